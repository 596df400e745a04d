package headpointer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-access/internal/log"
	"github.com/teslashibe/go-access/pkg/modality"
)

// FrameSource yields encoded camera frames.
type FrameSource interface {
	Frame() ([]byte, error)
	Close() error
}

// Sink receives pointer samples.
type Sink func(modality.Sample) error

// Config holds the pointer loop parameters.
type Config struct {
	FPS         int           // Frames processed per second
	AutoNeutral bool          // Use the first detected face as the neutral position
	LostAfter   time.Duration // Frames without a face for this long report tracking lost
}

// DefaultConfig returns 15 FPS with automatic neutral capture.
func DefaultConfig() Config {
	return Config{
		FPS:         15,
		AutoNeutral: true,
		LostAfter:   time.Second,
	}
}

// Pointer runs the capture-detect-map loop.
type Pointer struct {
	config   Config
	source   FrameSource
	detector Detector
	mapper   *Mapper
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	neutral  bool
	lastSeen time.Time
	lost     bool

	// OnLost and OnFound fire when tracking drops or recovers.
	OnLost  func()
	OnFound func()
}

// NewPointer wires a frame source, detector and mapper together.
func NewPointer(config Config, source FrameSource, detector Detector, mapper *Mapper) *Pointer {
	return &Pointer{
		config:   config,
		source:   source,
		detector: detector,
		mapper:   mapper,
		logger:   log.Component("headpointer"),
		now:      time.Now,
	}
}

// Recenter makes the next detected face the neutral position.
func (p *Pointer) Recenter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.neutral = false
}

// Process handles one frame. ok is false when no face was found.
func (p *Pointer) Process(frame []byte) (modality.Sample, bool, error) {
	faces, err := p.detector.Detect(frame)
	if err != nil {
		return modality.Sample{}, false, err
	}
	now := p.now()

	best := SelectBest(faces)
	if best == nil {
		p.mu.Lock()
		var fire func()
		if !p.lost && !p.lastSeen.IsZero() && now.Sub(p.lastSeen) >= p.config.LostAfter {
			p.lost = true
			fire = p.OnLost
		}
		p.mu.Unlock()
		if fire != nil {
			p.logger.Info("face lost")
			fire()
		}
		return modality.Sample{}, false, nil
	}

	p.mu.Lock()
	setNeutral := p.config.AutoNeutral && !p.neutral
	p.neutral = p.neutral || setNeutral
	wasLost := p.lost
	p.lost = false
	p.lastSeen = now
	found := p.OnFound
	p.mu.Unlock()

	if setNeutral {
		p.mapper.SetNeutral(*best)
		p.logger.Info("neutral head position captured")
	}
	if wasLost && found != nil {
		found()
	}

	pt := p.mapper.Map(*best)
	return modality.Sample{
		Modality:   modality.Gaze,
		Values:     []float64{pt.X, pt.Y},
		Time:       now,
		Confidence: best.Confidence,
	}, true, nil
}

// Run processes frames at the configured rate until ctx is done.
func (p *Pointer) Run(ctx context.Context, sink Sink) error {
	fps := p.config.FPS
	if fps <= 0 {
		fps = DefaultConfig().FPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	p.logger.Info("head pointer running", "fps", fps)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, err := p.source.Frame()
		if err != nil {
			return fmt.Errorf("headpointer: capture: %w", err)
		}
		s, ok, err := p.Process(frame)
		if err != nil {
			p.logger.Debug("frame skipped", "error", err)
			continue
		}
		if !ok {
			continue
		}
		if err := sink(s); err != nil {
			p.logger.Debug("sample not delivered", "error", err)
		}
	}
}

// WebcamConfig holds capture settings for a local camera.
type WebcamConfig struct {
	Device    int `json:"device"`    // Device index
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Capture FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100
}

// DefaultWebcamConfig returns 640x480 at 30 FPS. Face detection does not
// need more, and smaller frames keep inference inside the frame budget.
func DefaultWebcamConfig() WebcamConfig {
	return WebcamConfig{Width: 640, Height: 480, Framerate: 30, Quality: 85}
}

// Validate checks the configuration and returns every problem found.
func (c WebcamConfig) Validate() []string {
	var errs []string
	if c.Device < 0 {
		errs = append(errs, "device must be >= 0")
	}
	if c.Width < 160 || c.Width > 3840 {
		errs = append(errs, "width must be 160-3840")
	}
	if c.Height < 120 || c.Height > 2160 {
		errs = append(errs, "height must be 120-2160")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errs = append(errs, "framerate must be 1-120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, "quality must be 1-100")
	}
	return errs
}

// Webcam captures frames from a local camera device.
type Webcam struct {
	mu      sync.Mutex
	vc      *gocv.VideoCapture
	mat     gocv.Mat
	quality int
	open    bool
}

// OpenWebcam opens and configures a camera.
func OpenWebcam(cfg WebcamConfig) (*Webcam, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("headpointer: invalid camera config: %v", errs)
	}
	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("headpointer: open camera %d: %w", cfg.Device, err)
	}
	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	return &Webcam{vc: vc, mat: gocv.NewMat(), quality: cfg.Quality, open: true}, nil
}

// Frame captures and JPEG-encodes one frame.
func (w *Webcam) Frame() ([]byte, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return nil, errors.New("headpointer: camera closed")
	}
	if ok := w.vc.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, errors.New("headpointer: camera read failed")
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, w.mat, []int{int(gocv.IMWriteJpegQuality), w.quality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// Close releases the camera.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.open {
		return nil
	}
	w.open = false
	_ = w.mat.Close()
	return w.vc.Close()
}
