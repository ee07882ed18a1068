package audio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

// FakePlaybackDevice is an in-memory PlaybackDevice for tests. Rendering
// never completes on its own; tests drive completion explicitly so ordering
// and stale-callback behavior stay deterministic.
type FakePlaybackDevice struct {
	mu      sync.Mutex
	started []*entities.AudioChunk
	stopped int
	current *fakePlaybackHandle
	playErr error
}

// NewFakePlaybackDevice creates an idle fake playback device.
func NewFakePlaybackDevice() *FakePlaybackDevice {
	return &FakePlaybackDevice{}
}

type fakePlaybackHandle struct {
	device *FakePlaybackDevice
	done   func()
}

func (h *fakePlaybackHandle) Stop() {
	h.device.mu.Lock()
	defer h.device.mu.Unlock()
	h.device.stopped++
	if h.device.current == h {
		h.device.current = nil
	}
}

// Play records the chunk as rendering and returns a handle for it.
func (d *FakePlaybackDevice) Play(chunk *entities.AudioChunk, done func()) (repositories.PlaybackHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.playErr != nil {
		err := d.playErr
		d.playErr = nil
		return nil, err
	}
	h := &fakePlaybackHandle{device: d, done: done}
	d.current = h
	d.started = append(d.started, chunk)
	return h, nil
}

// FailNextPlay makes the next Play call return an error.
func (d *FakePlaybackDevice) FailNextPlay() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playErr = errors.New("playback device unavailable")
}

// CompleteCurrent fires the done callback of the rendering attempt most
// recently started, simulating natural completion.
func (d *FakePlaybackDevice) CompleteCurrent() {
	d.mu.Lock()
	h := d.current
	d.current = nil
	d.mu.Unlock()
	if h != nil {
		h.done()
	}
}

// CurrentDone returns the done callback of the current rendering attempt,
// letting tests replay it after the attempt was interrupted.
func (d *FakePlaybackDevice) CurrentDone() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil
	}
	return d.current.done
}

// Started returns the chunks that began rendering, in order.
func (d *FakePlaybackDevice) Started() []*entities.AudioChunk {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*entities.AudioChunk, len(d.started))
	copy(out, d.started)
	return out
}

// StopCount returns how many rendering attempts were stopped.
func (d *FakePlaybackDevice) StopCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

// FakeCaptureDevice is an in-memory CaptureDevice for tests. Tests push
// buffers through it as if the microphone had filled a time slice.
type FakeCaptureDevice struct {
	mu       sync.Mutex
	out      chan []byte
	running  bool
	startErr error
}

// NewFakeCaptureDevice creates an idle fake capture device.
func NewFakeCaptureDevice() *FakeCaptureDevice {
	return &FakeCaptureDevice{}
}

// Start begins a capture run.
func (d *FakeCaptureDevice) Start(ctx context.Context, slice time.Duration) (<-chan []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.startErr != nil {
		err := d.startErr
		d.startErr = nil
		return nil, err
	}
	if d.running {
		return nil, errors.New("capture already running")
	}
	d.out = make(chan []byte, 1)
	d.running = true
	return d.out, nil
}

// Stop ends the capture run and closes the buffer channel.
func (d *FakeCaptureDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return nil
	}
	d.running = false
	close(d.out)
	return nil
}

// FailNextStart makes the next Start call return an error, simulating a
// denied or unavailable microphone.
func (d *FakeCaptureDevice) FailNextStart() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.startErr = errors.New("capture device denied")
}

// Push delivers one captured buffer, blocking until the consumer takes it.
func (d *FakeCaptureDevice) Push(buf []byte) {
	d.mu.Lock()
	out := d.out
	running := d.running
	d.mu.Unlock()
	if running {
		out <- buf
	}
}

// Running reports whether a capture run is active.
func (d *FakeCaptureDevice) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}
