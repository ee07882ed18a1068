package playback

import (
	"sync"

	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

// Scheduler owns the ordered queue of pending audio chunks and enforces
// at-most-one-active playback with immediate interruption support.
//
// Each rendering attempt is tagged with a generation number. A completion
// callback is honored only if its generation still matches the scheduler's
// current one; Interrupt bumps the generation, so completions from a render
// that was already cancelled are discarded even when the underlying device
// cannot suppress the callback synchronously.
type Scheduler struct {
	device repositories.PlaybackDevice
	logger *zap.Logger

	mu         sync.Mutex
	queue      []*entities.AudioChunk
	playing    bool
	generation uint64
	handle     repositories.PlaybackHandle
}

// NewScheduler creates an idle scheduler driving the given output device.
func NewScheduler(device repositories.PlaybackDevice, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		device: device,
		logger: logger,
	}
}

// Enqueue appends the chunk to the queue tail. If nothing is currently
// playing, the head of the queue is promoted and begins rendering at once.
func (s *Scheduler) Enqueue(chunk *entities.AudioChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, chunk)
	if !s.playing {
		s.promoteLocked()
	}
}

// Interrupt stops the currently rendering chunk (if any), discards it, and
// empties the pending queue. Safe to call when nothing is playing.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	s.queue = nil
	s.playing = false
	// Invalidate any completion callback already in flight.
	s.generation++
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if handle != nil {
		handle.Stop()
		s.logger.Debug("Playback interrupted")
	}
}

// Playing reports whether a chunk is currently rendering.
func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// QueueLen returns the number of pending (not yet rendering) chunks.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// promoteLocked starts rendering the head of the queue. Chunks the device
// refuses to play are dropped and the next one is tried.
func (s *Scheduler) promoteLocked() {
	for len(s.queue) > 0 {
		chunk := s.queue[0]
		s.queue = s.queue[1:]

		s.generation++
		gen := s.generation
		handle, err := s.device.Play(chunk, func() { s.complete(gen) })
		if err != nil {
			s.logger.Error("Failed to start playback, dropping chunk",
				zap.Duration("chunkDuration", chunk.Duration()),
				zap.Error(err))
			continue
		}

		s.playing = true
		s.handle = handle
		return
	}

	s.playing = false
	s.handle = nil
}

// complete handles natural completion of a rendering attempt. Stale
// completions from attempts that were already interrupted are ignored.
func (s *Scheduler) complete(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}

	s.playing = false
	s.handle = nil
	s.promoteLocked()
}
