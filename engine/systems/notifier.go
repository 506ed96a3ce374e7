package systems

import (
	"context"
	"os/exec"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/vkcompositor/engine/core"
)

// Notification is a desktop notification. EventID identifies the kind of
// event for the notification daemon.
type Notification struct {
	EventID string
	Title   string
	Text    string
}

const (
	GraphicsResetEventID     = "graphicsreset"
	CompositingFailedEventID = "compositingfailed"
)

var (
	GraphicsResetNotification = Notification{
		EventID: GraphicsResetEventID,
		Title:   "Graphics reset",
		Text:    "Desktop effects were restarted due to a graphics reset",
	}
	CompositingFailedNotification = Notification{
		EventID: CompositingFailedEventID,
		Title:   "Compositing failed",
		Text:    "Desktop effects have been suspended due to a fatal error",
	}
)

// CommandRunner executes an external program.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func execCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "%s: %s", name, out)
	}
	return nil
}

/**
 * @brief Sends desktop notifications through notify-send. Every notification
 * runs as a job so the caller never waits for the notification daemon.
 */
type Notifier struct {
	jobs    *JobSystem
	appName string
	timeout time.Duration
	run     CommandRunner
}

func NewNotifier(jobs *JobSystem, appName string) *Notifier {
	return &Notifier{
		jobs:    jobs,
		appName: appName,
		timeout: 5 * time.Second,
		run:     execCommand,
	}
}

func notifySendArgs(appName string, n Notification) []string {
	return []string{
		"--app-name=" + appName,
		"--hint=string:x-kde-eventid:" + n.EventID,
		n.Title,
		n.Text,
	}
}

func (n *Notifier) Notify(notification Notification) {
	core.LogInfo("notification %s: %s", notification.EventID, notification.Text)
	n.jobs.AddWorkNonBlocking(JobTask{
		Name:        "notify " + notification.EventID,
		InputParams: notifySendArgs(n.appName, notification),
		OnStart: func(params interface{}, _ chan<- interface{}) error {
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			defer cancel()
			return n.run(ctx, "notify-send", params.([]string)...)
		},
	})
}
