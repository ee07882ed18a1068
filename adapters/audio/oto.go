package audio

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

// renderPollInterval is how often a rendering attempt checks for natural
// completion.
const renderPollInterval = 10 * time.Millisecond

// OtoPlayback renders PCM chunks on the system speaker through oto.
type OtoPlayback struct {
	ctx    *oto.Context
	logger *zap.Logger
}

// NewOtoPlayback initializes the speaker. The one oto context is shared by
// every rendering attempt for the life of the process.
func NewOtoPlayback(logger *zap.Logger) (*OtoPlayback, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   entities.SampleRate,
		ChannelCount: entities.Channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing speaker: %w", err)
	}
	<-ready

	return &OtoPlayback{ctx: ctx, logger: logger}, nil
}

// Play starts rendering the chunk and reports completion asynchronously.
func (d *OtoPlayback) Play(chunk *entities.AudioChunk, done func()) (repositories.PlaybackHandle, error) {
	player := d.ctx.NewPlayer(bytes.NewReader(chunk.PCM()))
	player.Play()

	h := &otoHandle{player: player, stopped: make(chan struct{})}
	go h.watch(done)
	return h, nil
}

type otoHandle struct {
	player   *oto.Player
	stopOnce sync.Once
	stopped  chan struct{}
}

// Stop cuts the attempt off and releases the player. The completion callback
// is not invoked for a stopped attempt.
func (h *otoHandle) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopped)
		h.player.Pause()
		h.player.Close()
	})
}

// watch polls until the player has drained, then reports completion. Polling
// is the supported way to observe the end of an oto player.
func (h *otoHandle) watch(done func()) {
	ticker := time.NewTicker(renderPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopped:
			return
		case <-ticker.C:
			if h.player.IsPlaying() || h.player.UnplayedBufferSize() > 0 {
				continue
			}
			finished := false
			h.stopOnce.Do(func() {
				close(h.stopped)
				h.player.Close()
				finished = true
			})
			if finished {
				done()
			}
			return
		}
	}
}

var _ repositories.PlaybackDevice = (*OtoPlayback)(nil)
