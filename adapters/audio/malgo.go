package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

// MalgoCapture reads the system microphone through miniaudio and emits raw
// PCM in fixed time slices.
type MalgoCapture struct {
	logger *zap.Logger
	ctx    *malgo.AllocatedContext

	mu         sync.Mutex
	device     *malgo.Device
	out        chan []byte
	stopCh     chan struct{}
	pending    []byte
	sliceBytes int
	running    bool
}

// NewMalgoCapture initializes the audio backend without touching the
// microphone yet; the device is only opened while a capture run is active.
func NewMalgoCapture(logger *zap.Logger) (*MalgoCapture, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug("Audio backend", zap.String("message", message))
	})
	if err != nil {
		return nil, fmt.Errorf("initializing audio backend: %w", err)
	}
	return &MalgoCapture{logger: logger, ctx: ctx}, nil
}

// Start opens the microphone and begins slicing. The run ends on Stop or
// when ctx is cancelled.
func (c *MalgoCapture) Start(ctx context.Context, slice time.Duration) (<-chan []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil, errors.New("capture already running")
	}

	sliceBytes := int(slice.Seconds()*float64(entities.SampleRate)) * entities.Channels * entities.BytesPerSample
	if sliceBytes <= 0 {
		return nil, fmt.Errorf("slice duration %v is too short", slice)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = entities.Channels
	deviceConfig.SampleRate = entities.SampleRate
	deviceConfig.PeriodSizeInMilliseconds = 20

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			c.appendSamples(samples)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening microphone: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, fmt.Errorf("starting microphone: %w", err)
	}

	c.device = device
	c.out = make(chan []byte, 1)
	c.stopCh = make(chan struct{})
	c.pending = c.pending[:0]
	c.sliceBytes = sliceBytes
	c.running = true

	stopCh := c.stopCh
	go func() {
		select {
		case <-ctx.Done():
			c.Stop()
		case <-stopCh:
		}
	}()

	return c.out, nil
}

// Stop flushes the in-flight slice and closes the microphone. Stopping an
// idle device is a no-op.
func (c *MalgoCapture) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	device := c.device
	c.device = nil
	close(c.stopCh)

	if len(c.pending) > 0 {
		c.deliverLocked(append([]byte(nil), c.pending...))
		c.pending = c.pending[:0]
	}
	close(c.out)
	c.mu.Unlock()

	device.Stop()
	device.Uninit()
	return nil
}

// Close releases the audio backend. The capture device must be stopped
// first.
func (c *MalgoCapture) Close() error {
	_ = c.Stop()
	if err := c.ctx.Uninit(); err != nil {
		return fmt.Errorf("releasing audio backend: %w", err)
	}
	c.ctx.Free()
	return nil
}

// appendSamples runs on the audio backend's callback thread. It cuts full
// slices out of the accumulating buffer and hands them to the consumer.
func (c *MalgoCapture) appendSamples(samples []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}

	c.pending = append(c.pending, samples...)
	for len(c.pending) >= c.sliceBytes {
		buf := append([]byte(nil), c.pending[:c.sliceBytes]...)
		c.pending = c.pending[c.sliceBytes:]
		c.deliverLocked(buf)
	}
}

// deliverLocked hands one slice to the consumer without ever blocking the
// audio callback. With the consumer gone or slow, the oldest backlog slice
// is dropped in favor of the new one.
func (c *MalgoCapture) deliverLocked(buf []byte) {
	select {
	case c.out <- buf:
		return
	default:
	}
	select {
	case <-c.out:
		c.logger.Warn("Capture backlog full, dropping oldest slice")
	default:
	}
	select {
	case c.out <- buf:
	default:
	}
}

var _ repositories.CaptureDevice = (*MalgoCapture)(nil)
