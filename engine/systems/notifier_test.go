package systems

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestNotifierRunsNotifySend(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer js.Shutdown()

	calls := make(chan []string, 1)
	n := NewNotifier(js, "vkcompositor")
	n.run = func(ctx context.Context, name string, args ...string) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("notify-send must run with a timeout")
		}
		calls <- append([]string{name}, args...)
		return nil
	}

	n.Notify(GraphicsResetNotification)

	select {
	case got := <-calls:
		want := []string{
			"notify-send",
			"--app-name=vkcompositor",
			"--hint=string:x-kde-eventid:graphicsreset",
			"Graphics reset",
			"Desktop effects were restarted due to a graphics reset",
		}
		if !slices.Equal(got, want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("the notification was never sent")
	}
}

func TestCompositingFailedNotification(t *testing.T) {
	args := notifySendArgs("app", CompositingFailedNotification)
	if args[1] != "--hint=string:x-kde-eventid:compositingfailed" {
		t.Fatalf("unexpected event id argument %s", args[1])
	}
	if args[3] != "Desktop effects have been suspended due to a fatal error" {
		t.Fatalf("unexpected text %s", args[3])
	}
}
