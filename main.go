package main

import (
	"context"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"holecenter/config"
	"holecenter/journal"
	"holecenter/notify"
	"holecenter/serve"
	"holecenter/ui"
	"holecenter/video"
	"holecenter/video/process"
	"holecenter/video/sink"
	"holecenter/video/source"
)

var (
	configPath = flag.String("config", "holecenter.json", "Path to the JSON configuration file. Optional.")
	windowMode = flag.Bool("window", false, "Display in an OpenCV window instead of the desktop form.")
	filePath   = flag.String("file", "", "Video file to process in window mode.")
	camera     = flag.Int("camera", -1, "Camera index, overrides the configuration.")
	synthetic  = flag.Bool("synthetic", false, "Use a generated moving hole instead of a camera or file.")
	verbose    = flag.Bool("v", false, "Enable debug logging.")
)

// recordFPS is used for recordings; capture devices do not reliably report
// their rate.
const recordFPS = 30

// HighGUI and fyne both expect to own the main thread.
func init() {
	runtime.LockOSThread()
}

func houghParams(d config.Detection) process.HoughParams {
	return process.HoughParams{
		DP:        d.DP,
		MinDist:   d.MinDist,
		Param1:    d.Param1,
		Param2:    d.Param2,
		MinRadius: d.MinRadius,
		MaxRadius: d.MaxRadius,
	}
}

func main() {
	flag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.Load(ctx, *configPath); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.Get()

	cameraIndex := cfg.CameraIndex
	if *camera >= 0 {
		cameraIndex = *camera
	}

	detector := process.NewHoughDetector(houghParams(cfg.Detection))
	defer detector.Close()

	processor := video.NewProcessor(detector)
	defer processor.Close()

	var opener source.Opener = source.CaptureOpener{}
	if *synthetic {
		opts := source.DefaultSyntheticOptions().WithRandomStart(rand.New(rand.NewSource(time.Now().UnixNano())))
		opener = source.SyntheticOpener{Options: opts}
	}
	ctl := video.NewController(opener, processor)

	notifier := notify.NewNotifier(cfg.CenterTolerance)
	processor.Listeners = append(processor.Listeners, notifier)

	config.OnChange(func(c *config.Config) {
		detector.SetParams(houghParams(c.Detection))
		notifier.SetTolerance(c.CenterTolerance)
	})

	if cfg.RecordPath != "" {
		path := cfg.RecordPath
		ctl.NewRunSinks = func(src source.Source) []sink.Sink {
			v, err := sink.NewVideo(path, "mp4v", recordFPS, src.Size())
			if err != nil {
				log.Errorf("Recording disabled for this run: %v", err)
				return nil
			}
			log.Infof("Recording annotated output to %v", path)
			return []sink.Sink{v}
		}
	}

	routes := serve.Routes{}
	if cfg.DatabaseDSN != "" {
		db, err := journal.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("Failed to open journal: %v", err)
		}
		j := journal.New(db)
		ctl.RunListeners = append(ctl.RunListeners, j)
		routes.Runs = &serve.RunsServer{Journal: j}

		push, err := notify.NewWebPush(db, cfg.PushSubscriber)
		if err != nil {
			log.Fatalf("Failed to set up web push: %v", err)
		}
		notifier.Listeners = append(notifier.Listeners, push)
		routes.Extra = push.RegisterHandlers
	}

	if cfg.HTTPPort != 0 {
		mjpegServer := sink.NewMJPEGServer()
		processor.RawSinks = append(processor.RawSinks, mjpegServer.Stream("raw"))
		processor.Sinks = append(processor.Sinks, mjpegServer.Stream("annotated"))

		status := &serve.StatusServer{Notifier: notifier}
		processor.Listeners = append(processor.Listeners, status)
		ctl.RunListeners = append(ctl.RunListeners, status)

		offsets := serve.NewOffsetUpdater()
		defer offsets.Close()
		processor.Listeners = append(processor.Listeners, offsets)
		ctl.RunListeners = append(ctl.RunListeners, offsets)
		notifier.Listeners = append(notifier.Listeners, offsets)

		routes.MJPEG = mjpegServer
		routes.Status = status
		routes.Offsets = offsets

		go func() {
			if err := serve.ListenAndServe(ctx, cfg.HTTPPort, serve.NewHandler(routes)); err != nil {
				log.Errorf("HTTP server failed: %v", err)
			}
		}()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	if *windowMode {
		runWindow(ctx, ctl, cameraIndex, sigs)
		return
	}

	app := ui.CreateApp(ctx, ctl, cameraIndex)
	processor.Display = app.Display()
	processor.Listeners = append(processor.Listeners, app)
	go func() {
		sig := <-sigs
		log.Infof("Caught signal %v", sig)
		app.Quit()
	}()
	app.Run()
	ctl.Close()
}

// runWindow processes one source in an OpenCV window until it ends, q is
// pressed or a signal arrives. Every window call stays on the main thread.
func runWindow(ctx context.Context, ctl *video.Controller, cameraIndex int, sigs <-chan os.Signal) {
	window := sink.NewWindow(sink.WindowTitle)
	ctl.Processor.Display = window

	sel := source.Selection{Mode: source.ModeWebcam, CameraIndex: cameraIndex}
	if *filePath != "" {
		sel = source.Selection{Mode: source.ModeFile, Path: *filePath}
	}

	go func() {
		select {
		case sig := <-sigs:
			log.Infof("Caught signal %v", sig)
			ctl.Stop()
		case <-ctx.Done():
		}
	}()

	summary, err := ctl.Run(ctx, sel)
	if err != nil {
		// The window is only closed by a run.
		window.Close()
		log.Fatalf("Failed to start: %v", err)
	}
	log.Infof("Finished: %v after %d frames", summary.Reason, summary.Frames)
}
