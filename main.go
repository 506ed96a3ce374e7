/*
vkcompositor composites the windows of the testbed clients onto a Vulkan
output.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/vkcompositor/engine"
	"github.com/spaghettifunk/vkcompositor/engine/config"
	"github.com/spaghettifunk/vkcompositor/engine/core"
	"github.com/spaghettifunk/vkcompositor/testbed"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path of the configuration file")
	shadow := flag.String("shadow", "", "image placed below every window")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("failed to load the configuration: %s", err)
	}

	e, err := engine.New(cfg, testbed.NewTestBed(*shadow))
	if err != nil {
		core.LogFatal("failed to create the engine: %s", err)
	}

	if err := e.Initialize(); err != nil {
		core.LogError("failed to initialize: %+v", err)
		e.Shutdown()
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the main loop on the first signal
	go func() {
		<-sigCh
		e.Stop()
	}()

	if err := e.Run(); err != nil {
		core.LogError(err.Error())
	}
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown failed: %s", err)
		os.Exit(1)
	}
}
