// Package simsource is a synthetic FrameProvider used by the scanctl CLI
// when no platform sensor bridge is attached. Real camera/depth/mesh
// capture is an external collaborator (see domaininterfaces.FrameProvider);
// this package only exists so the pipeline is exercisable end to end
// without native sensor hardware.
package simsource

import (
	"context"
	"math"
	"sync"
	"time"

	domaintypes "provinode/scan-core/internal/domain/types"
)

// Source emits synthetic frames on a fixed tick, orbiting a unit circle so
// the pose payload is non-degenerate.
type Source struct {
	fps    float64
	frames chan domaintypes.Frame

	mu      sync.Mutex
	ticker  *time.Ticker
	cancel  context.CancelFunc
	stopped bool
}

// New returns a Source that ticks at fps frames per second once Start is
// called.
func New(fps float64) *Source {
	if fps <= 0 {
		fps = 30
	}
	return &Source{fps: fps, frames: make(chan domaintypes.Frame, 32)}
}

// Frames implements domaininterfaces.FrameProvider.
func (s *Source) Frames() <-chan domaintypes.Frame { return s.frames }

// Start implements domaininterfaces.FrameProvider.
func (s *Source) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	interval := time.Duration(float64(time.Second) / s.fps)
	s.ticker = time.NewTicker(interval)

	go func() {
		start := time.Now()
		var n int64
		for {
			select {
			case <-runCtx.Done():
				return
			case <-s.ticker.C:
				elapsed := time.Since(start).Seconds()
				select {
				case s.frames <- syntheticFrame(elapsed, n):
				default: // backpressure: drop rather than block the ticker
				}
				n++
			}
		}
	}()
	return nil
}

// Stop implements domaininterfaces.FrameProvider.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	close(s.frames)
}

func syntheticFrame(elapsed float64, n int64) domaintypes.Frame {
	angle := elapsed
	pose := [16]float64{
		math.Cos(angle), 0, math.Sin(angle), 0,
		0, 1, 0, 0,
		-math.Sin(angle), 0, math.Cos(angle), 0,
		math.Cos(angle), 0, math.Sin(angle), 1,
	}
	intrinsics := [9]float64{1000, 0, 640, 0, 1000, 360, 0, 0, 1}

	frame := domaintypes.Frame{
		TimestampSec:     elapsed,
		CaptureTimeNS:    time.Now().UnixNano(),
		Pose:             pose,
		IntrinsicsMat3:   intrinsics,
		ResolutionWidth:  1280,
		ResolutionHeight: 720,
	}
	if n%30 == 0 {
		frame.ImageJPEG = []byte("synthetic-jpeg-frame")
	}
	if n%5 == 0 {
		frame.DepthMap = []byte("synthetic-depth-frame")
	}
	if n%30 == 0 {
		frame.MeshAnchors = []domaintypes.MeshAnchor{{
			Identifier:  "anchor-0",
			Transform:   pose,
			Vertices:    []float64{0, 0, 0, 1, 0, 0, 0, 1, 0},
			FaceIndices: []int{0, 1, 2},
		}}
	}
	return frame
}
