package capture

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/repositories"
)

// SliceDuration is how much microphone audio goes into one uplink buffer.
const SliceDuration = 500 * time.Millisecond

// Sender transmits one captured buffer upstream.
type Sender interface {
	SendAudio(buf []byte) error
}

// Authorizer decides whether voice capture may start.
type Authorizer interface {
	Authorize() error
}

// Uplink drives a capture device and forwards each filled slice to the
// sender. At most one capture run is active at a time; Start and Stop are
// idempotent.
type Uplink struct {
	device repositories.CaptureDevice
	sender Sender
	gate   Authorizer
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	drained chan struct{}
}

// NewUplink creates an idle uplink.
func NewUplink(device repositories.CaptureDevice, sender Sender, gate Authorizer, logger *zap.Logger) *Uplink {
	return &Uplink{
		device: device,
		sender: sender,
		gate:   gate,
		logger: logger,
	}
}

// Start begins capturing and forwarding. It fails when the usage gate has
// been disabled or the device cannot start. Starting a running uplink is a
// no-op.
func (u *Uplink) Start(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.running {
		return nil
	}
	if err := u.gate.Authorize(); err != nil {
		return fmt.Errorf("capture refused: %w", err)
	}

	buffers, err := u.device.Start(ctx, SliceDuration)
	if err != nil {
		return fmt.Errorf("starting capture device: %w", err)
	}

	u.running = true
	u.drained = make(chan struct{})
	go u.forward(buffers, u.drained)

	u.logger.Info("Capture started", zap.Duration("slice", SliceDuration))
	return nil
}

// Stop ceases capture, letting the device flush its in-flight buffer, and
// waits until every captured slice has been forwarded. Stopping an idle
// uplink is a no-op.
func (u *Uplink) Stop() error {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return nil
	}
	u.running = false
	drained := u.drained
	u.mu.Unlock()

	if err := u.device.Stop(); err != nil {
		return fmt.Errorf("stopping capture device: %w", err)
	}
	<-drained

	u.logger.Info("Capture stopped")
	return nil
}

// Running reports whether a capture run is active.
func (u *Uplink) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

// forward drains the device channel until the device closes it. A failed
// send drops that slice; the session is not torn down over one lost buffer.
func (u *Uplink) forward(buffers <-chan []byte, drained chan struct{}) {
	defer close(drained)
	for buf := range buffers {
		if err := u.sender.SendAudio(buf); err != nil {
			u.logger.Warn("Failed to send captured audio",
				zap.Error(err),
				zap.Int("size", len(buf)))
		}
	}
}
