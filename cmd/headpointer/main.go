// headpointer is a gaze-substitute input adapter: it follows the user's
// head with a webcam and streams pointer samples to the access gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-access/internal/config"
	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/announce"
	"github.com/teslashibe/go-access/pkg/debug"
	"github.com/teslashibe/go-access/pkg/feed"
	"github.com/teslashibe/go-access/pkg/headpointer"
	"github.com/teslashibe/go-access/pkg/modality"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Warn("could not load .env", "error", err)
	}

	debugFlag := flag.Bool("debug", false, "Enable verbose debug logging")
	gatewayURL := flag.String("gateway", config.GatewayURL(), "Sensor gateway URL")
	adapterID := flag.String("id", "headpointer", "Adapter id")
	cameraID := flag.Int("camera", 0, "Camera device index")
	modelPath := flag.String("model", headpointer.DefaultDetectorConfig().ModelPath, "YuNet ONNX model path")
	fps := flag.Int("fps", headpointer.DefaultConfig().FPS, "Frames processed per second")
	gain := flag.Float64("gain", headpointer.DefaultMapperConfig().Gain, "Pointer gain")
	noMirror := flag.Bool("no-mirror", false, "Disable horizontal mirroring")
	flag.Parse()

	level := config.LogLevel()
	if *debugFlag {
		level = "debug"
		debug.Enabled = true
	}
	log.Init(level)

	if err := run(*gatewayURL, *adapterID, *cameraID, *modelPath, *fps, *gain, !*noMirror); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("head pointer stopped", "error", err)
		os.Exit(1)
	}
}

func run(gatewayURL, id string, cameraID int, modelPath string, fps int, gain float64, mirror bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := feed.NewClient(feed.DefaultConfig().WithURL(gatewayURL).WithID(id))
	if err != nil {
		return err
	}

	mapCfg := headpointer.DefaultMapperConfig()
	mapCfg.Gain = gain
	mapCfg.Mirror = mirror
	if err := mapCfg.Validate(); err != nil {
		return err
	}
	mapper := headpointer.NewMapper(mapCfg)

	detCfg := headpointer.DefaultDetectorConfig()
	detCfg.ModelPath = modelPath
	detector, err := headpointer.NewYuNet(detCfg)
	if err != nil {
		_ = client.SendPermission(modality.Gaze, false, "face model unavailable")
		return err
	}
	defer detector.Close()

	camCfg := headpointer.DefaultWebcamConfig()
	camCfg.Device = cameraID
	cam, err := headpointer.OpenWebcam(camCfg)
	if err != nil {
		return err
	}
	defer cam.Close()

	ptrCfg := headpointer.DefaultConfig()
	ptrCfg.FPS = fps
	pointer := headpointer.NewPointer(ptrCfg, cam, detector, mapper)
	pointer.OnLost = func() { _ = client.SendPermission(modality.Gaze, false, "face not visible") }
	pointer.OnFound = func() { _ = client.SendPermission(modality.Gaze, true, "") }

	client.OnConnect = func() {
		// re-announce availability on every (re)connect
		_ = client.SendPermission(modality.Gaze, true, "")
	}
	client.OnAnnounce = func(msg string, p announce.Priority) {
		log.Info("announcement", "message", msg, "priority", p)
	}

	go func() {
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("gateway connection ended", "error", err)
		}
	}()

	return pointer.Run(ctx, func(s modality.Sample) error {
		err := client.SendSample(s)
		if errors.Is(err, feed.ErrThrottled) {
			return nil
		}
		return err
	})
}
