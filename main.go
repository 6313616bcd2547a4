/*
parallax shows a 3D model on stereo displays.

	parallax [flags] MODEL_PATH
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/parallax/engine"
	"github.com/spaghettifunk/parallax/engine/core"
	"github.com/spaghettifunk/parallax/engine/renderer/metadata"
	"github.com/spaghettifunk/parallax/testbed"
)

func main() {
	if err := run(); err != nil {
		core.LogError(err.Error())
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "configuration file (.toml, .yaml or .yml)")
	trackerAddr := flag.String("tracker", "", "listen for a websocket head tracker on this address")
	video := flag.String("video", "", "video file shown in the scene")
	video3d := flag.String("video3d", "", "side by side stereo video file shown in the scene")
	headless := flag.Int("headless", 0, "render this many frames without a window and exit")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	stereo := flag.String("stereo", "", "initial stereo mode")
	skybox := flag.String("skybox", "", "image drawn around the scene")
	spin := flag.Float64("spin", 0, "degrees per second the model turns")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] MODEL_PATH\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	config := engine.DefaultApplicationConfig()
	if *configPath != "" {
		c, err := engine.LoadApplicationConfig(*configPath)
		if err != nil {
			return err
		}
		config = c
	}
	if *trackerAddr != "" {
		config.Tracker.Addr = *trackerAddr
	}
	if *logLevel != "" {
		config.LogLevel = *logLevel
	}
	if *stereo != "" {
		if _, ok := metadata.ParseStereoMode(*stereo); !ok {
			return fmt.Errorf("stereo mode '%s': %w", *stereo, core.ErrInvalidConfig)
		}
		config.Stereo.Mode = *stereo
	}
	for _, v := range []string{*video, *video3d} {
		if v != "" {
			core.LogWarn("video playback is not supported, ignoring '%s'", v)
		}
	}
	if flag.NArg() > 1 {
		flag.Usage()
		return fmt.Errorf("expected one model path, got %d", flag.NArg())
	}

	viewer := testbed.NewViewer(config, testbed.ViewerOptions{
		ModelPath:  flag.Arg(0),
		SkyboxPath: *skybox,
		Spin:       float32(*spin),
	})

	var e *engine.Engine
	var err error
	if *headless > 0 {
		e, err = engine.NewHeadless(viewer.Game, *headless)
	} else {
		e, err = engine.New(viewer.Game)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := e.Shutdown(); err != nil {
			core.LogError("shutdown: %s", err)
		}
	}()

	if err := e.Initialize(); err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		// delivered on the render thread by the next frame
		_ = core.EventPost(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
	}()

	return e.Run()
}
