// Package capture implements the capture pipeline (C9): drives sample
// production from a frame provider, applies backpressure to cadence
// parameters, and fans emitted samples out to the recorder and, when
// attached, the secure transport.
package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"strconv"
	"sync"

	domaininterfaces "provinode/scan-core/internal/domain/interfaces"
	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/telemetry"
)

const heartbeatEvery = 30

// Pipeline drives one session's sample production from Frames() to the
// recorder and, when attached, the transport.
type Pipeline struct {
	provider  domaininterfaces.FrameProvider
	recorder  domaininterfaces.SessionRecorder
	sequencer domaininterfaces.Sequencer
	logger    *telemetry.Logger

	sessionID      domaintypes.SortableID
	sourceDeviceID domaintypes.SortableID

	mu               sync.Mutex
	transport        domaininterfaces.TransportClient
	keyframeInterval float64
	depthStride      int
	meshInterval     float64
	dropNonKeyframes bool

	frameCounter   int64
	lastCaptureNS  int64
	lastKeyframeTS float64
	lastMeshTS     float64
	samplesTotal   int64
	samplesDropped int64

	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a Pipeline with default cadence parameters (1 keyframe/sec,
// no depth striding, 1s mesh updates), ready to Start once a session is
// underway. transport may be nil for local-only recording.
func New(provider domaininterfaces.FrameProvider, recorder domaininterfaces.SessionRecorder, sequencer domaininterfaces.Sequencer, transport domaininterfaces.TransportClient, sessionID, sourceDeviceID domaintypes.SortableID, logger *telemetry.Logger) *Pipeline {
	return &Pipeline{
		provider:         provider,
		recorder:         recorder,
		sequencer:        sequencer,
		transport:        transport,
		sessionID:        sessionID,
		sourceDeviceID:   sourceDeviceID,
		logger:           logger,
		keyframeInterval: 1.0,
		depthStride:      1,
		meshInterval:     1.0,
		lastKeyframeTS:   math.Inf(-1),
		lastMeshTS:       math.Inf(-1),
	}
}

// ApplyBackpressureHint recomputes cadence parameters from a peer-issued
// hint. Safe to call concurrently with the running pipeline.
func (p *Pipeline) ApplyBackpressureHint(hint domaintypes.BackpressureHint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if hint.TargetKeyframeFPS > 0 {
		p.keyframeInterval = math.Max(0.1, 1/hint.TargetKeyframeFPS)
	} else {
		p.keyframeInterval = 1.0
	}
	p.depthStride = int(math.Max(1, float64(hint.DepthStrideHint)))
	p.meshInterval = math.Max(0.1, float64(hint.MeshUpdateIntervalMS)/1000)
	p.dropNonKeyframes = hint.DropNonKeyframes
}

// Start subscribes to the frame provider and processes frames until Stop
// is called or the provider's channel closes.
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.provider.Start(ctx); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		frames := p.provider.Frames()
		for {
			select {
			case <-runCtx.Done():
				return
			case frame, ok := <-frames:
				if !ok {
					return
				}
				p.processFrame(runCtx, frame)
			}
		}
	}()
	return nil
}

// Stop pauses the frame source, emits a final session-end heartbeat, and
// finalizes the recorder with summary metadata merged with extraMetadata
// (caller-supplied manifest fields, e.g. from a CLI --metadata flag).
// Every call emits another session-end heartbeat and finalizes the
// recorder again; the controller calls it once per session.
func (p *Pipeline) Stop(ctx context.Context, extraMetadata map[string]string) (string, error) {
	p.provider.Stop()
	if p.cancel != nil {
		p.cancel()
	}
	if p.done != nil {
		<-p.done
	}

	p.mu.Lock()
	frameCounter := p.frameCounter
	lastCaptureNS := p.lastCaptureNS
	samplesTotal := p.samplesTotal
	samplesDropped := p.samplesDropped
	p.mu.Unlock()

	final, err := json.Marshal(heartbeatPayload{FrameCounter: frameCounter, SessionEnd: true})
	if err == nil {
		p.emit(ctx, domaintypes.SampleKindHeartbeat, lastCaptureNS, final, nil)
	}

	summary := map[string]string{
		"samples_total":   strconv.FormatInt(samplesTotal, 10),
		"samples_dropped": strconv.FormatInt(samplesDropped, 10),
	}
	for k, v := range extraMetadata {
		summary[k] = v
	}
	return p.recorder.Finalize(ctx, summary)
}

func (p *Pipeline) processFrame(ctx context.Context, frame domaintypes.Frame) {
	p.mu.Lock()
	p.frameCounter++
	frameCounter := p.frameCounter
	p.lastCaptureNS = frame.CaptureTimeNS
	keyframeInterval := p.keyframeInterval
	depthStride := p.depthStride
	meshInterval := p.meshInterval
	dropNonKeyframes := p.dropNonKeyframes
	emitKeyframe := frame.TimestampSec-p.lastKeyframeTS >= keyframeInterval && len(frame.ImageJPEG) > 0
	if emitKeyframe {
		p.lastKeyframeTS = frame.TimestampSec
	}
	emitMesh := !dropNonKeyframes && frame.TimestampSec-p.lastMeshTS >= meshInterval && len(frame.MeshAnchors) > 0
	if emitMesh {
		p.lastMeshTS = frame.TimestampSec
	}
	p.mu.Unlock()

	pose, err := json.Marshal(cameraPosePayload{Transform: frame.Pose})
	if err == nil {
		p.emit(ctx, domaintypes.SampleKindCameraPose, frame.CaptureTimeNS, pose, nil)
	}
	intrinsics, err := json.Marshal(intrinsicsPayload{
		Matrix: frame.IntrinsicsMat3,
		Width:  frame.ResolutionWidth,
		Height: frame.ResolutionHeight,
	})
	if err == nil {
		p.emit(ctx, domaintypes.SampleKindIntrinsics, frame.CaptureTimeNS, intrinsics, nil)
	}

	if emitKeyframe {
		p.emit(ctx, domaintypes.SampleKindKeyframeRGB, frame.CaptureTimeNS, frame.ImageJPEG, nil)
	}
	if !dropNonKeyframes && depthStride > 0 && frameCounter%int64(depthStride) == 0 && len(frame.DepthMap) > 0 {
		p.emit(ctx, domaintypes.SampleKindDepthFrame, frame.CaptureTimeNS, frame.DepthMap, nil)
	}
	if emitMesh {
		mesh, err := json.Marshal(frame.MeshAnchors)
		if err == nil {
			p.emit(ctx, domaintypes.SampleKindMeshAnchorBatch, frame.CaptureTimeNS, mesh, nil)
		}
	}
	if frameCounter%heartbeatEvery == 0 {
		heartbeat, err := json.Marshal(heartbeatPayload{FrameCounter: frameCounter})
		if err == nil {
			p.emit(ctx, domaintypes.SampleKindHeartbeat, frame.CaptureTimeNS, heartbeat, nil)
		}
	}
}

// emit hashes the payload, mints the next sample_seq, writes to the
// recorder, and (if a transport is attached) forwards to send_sample.
// Recorder and transport failures are isolated per sample: neither aborts
// the pipeline nor blocks subsequent emissions.
func (p *Pipeline) emit(ctx context.Context, kind domaintypes.SampleKind, captureTimeNS int64, payload []byte, metadata map[string]string) {
	sum := sha256.Sum256(payload)
	hash := domaintypes.SHA256Hex(hex.EncodeToString(sum[:]))
	seq := p.sequencer.Next()

	merged := map[string]string{"source_device_id": p.sourceDeviceID.String()}
	for k, v := range metadata {
		merged[k] = v
	}

	envelope := domaintypes.SampleEnvelope{
		SessionID:     p.sessionID,
		SampleSeq:     seq,
		CaptureTimeNS: captureTimeNS,
		ClockID:       "monotonic",
		SampleKind:    kind,
		HashSHA256:    hash,
		PayloadRef:    "blobs/sha256/" + string(hash),
		Metadata:      merged,
	}

	if err := p.recorder.Record(ctx, envelope, payload); err != nil {
		p.mu.Lock()
		p.samplesDropped++
		p.mu.Unlock()
		if p.logger != nil {
			p.logger.Error("recorder_record_failed", telemetry.Fields{"sample_seq": seq, "sample_kind": kind, "error": err.Error()})
		}
		return
	}
	p.mu.Lock()
	p.samplesTotal++
	transport := p.transport
	p.mu.Unlock()

	if transport == nil {
		return
	}
	if err := transport.SendSample(ctx, envelope, payload); err != nil {
		p.mu.Lock()
		p.samplesDropped++
		p.mu.Unlock()
		if p.logger != nil {
			p.logger.Warning("transport_send_dropped", telemetry.Fields{"sample_seq": seq, "sample_kind": kind, "error": err.Error()})
		}
	}
}

type cameraPosePayload struct {
	Transform [16]float64 `json:"transform"`
}

type intrinsicsPayload struct {
	Matrix [9]float64 `json:"matrix"`
	Width  int        `json:"width"`
	Height int        `json:"height"`
}

type heartbeatPayload struct {
	FrameCounter int64 `json:"frame_counter"`
	SessionEnd   bool  `json:"session_end,omitempty"`
}
