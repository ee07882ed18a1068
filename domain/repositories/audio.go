package repositories

import (
	"context"
	"time"

	"github.com/embercove/voicelink/domain/entities"
)

// CaptureDevice captures microphone audio in fixed time slices.
type CaptureDevice interface {
	// Start begins capture. Each buffer holds at most slice worth of raw
	// 16 kHz mono s16le PCM and is delivered on the returned channel as soon
	// as it is full. The channel carries no more than one buffer of backlog
	// and is closed after Stop, once any in-flight buffer has been flushed.
	Start(ctx context.Context, slice time.Duration) (<-chan []byte, error)

	// Stop flushes the in-flight buffer and ceases capture. Stopping a
	// device that is not capturing is a no-op.
	Stop() error
}

// PlaybackHandle controls a single rendering attempt.
type PlaybackHandle interface {
	// Stop cancels the attempt at once and disconnects its output. The
	// attempt's done callback may still fire afterwards; callers are
	// expected to discard it by identity.
	Stop()
}

// PlaybackDevice renders one audio chunk at a time.
type PlaybackDevice interface {
	// Play begins rendering the chunk and invokes done at most once when
	// rendering finishes naturally. done must not be invoked synchronously
	// from within Play.
	Play(chunk *entities.AudioChunk, done func()) (PlaybackHandle, error)
}
