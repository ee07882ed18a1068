package protocol

import (
	"errors"

	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
)

// TextSink receives the conversation text surfaces.
type TextSink interface {
	// ShowTranscript replaces the "what the user said" display.
	ShowTranscript(text string)
	// AppendAssistant appends to the "assistant is saying" display.
	AppendAssistant(text string)
	// ResetAssistant clears the assistant display for a new response.
	ResetAssistant()
}

// PlaybackControl is the scheduler surface the dispatcher drives.
type PlaybackControl interface {
	Enqueue(chunk *entities.AudioChunk)
	Interrupt()
}

// UsageControl is the gate surface the dispatcher drives.
type UsageControl interface {
	Enabled() bool
	Warn(kind, message string, remainingMinutes float64)
	Disable(kind, reason string)
}

// Dispatcher classifies each inbound message and routes it to the right
// handler. It assumes nothing about event ordering beyond the transport's
// FIFO delivery; each message is treated independently. No inbound message
// may crash the session: failures are logged and the channel keeps going.
type Dispatcher struct {
	text     TextSink
	playback PlaybackControl
	gate     UsageControl
	logger   *zap.Logger

	// Set when an end-of-response assistant event arrives, consumed by the
	// next assistant text event, which then replaces instead of appending.
	resetAssistant bool
}

// NewDispatcher creates a dispatcher routing to the given sinks.
func NewDispatcher(text TextSink, playback PlaybackControl, gate UsageControl, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		text:     text,
		playback: playback,
		gate:     gate,
		logger:   logger,
	}
}

// HandleMessage processes one raw inbound message. It is driven by the
// transport's single delivery goroutine and is not safe for concurrent use.
func (d *Dispatcher) HandleMessage(raw []byte) {
	event, err := Classify(raw)
	if err != nil {
		if errors.Is(err, ErrBadAudio) {
			d.logger.Warn("Rejected audio chunk", zap.Error(err))
		} else {
			d.logger.Warn("Rejected inbound message", zap.Error(err), zap.Int("size", len(raw)))
		}
		return
	}
	if event == nil {
		d.logger.Warn("Audio envelope carried neither audio nor clear flag")
		return
	}
	d.handle(event)
}

func (d *Dispatcher) handle(event Event) {
	switch e := event.(type) {
	case VoiceLimitReached:
		d.gate.Disable(e.Kind, e.Message)

	case VoiceDisabled:
		d.gate.Disable("", e.Reason)

	case VoiceUsageWarning:
		d.gate.Warn(e.Kind, e.Message, e.RemainingMinutes)

	case TranscriptText:
		// A transcript does not interrupt playback; barge-in is signaled by
		// an explicit clear event from the server.
		d.text.ShowTranscript(e.Text)

	case AssistantText:
		if d.resetAssistant {
			d.text.ResetAssistant()
			d.resetAssistant = false
		}
		if e.End {
			d.resetAssistant = true
		}
		if e.Text != "" {
			d.text.AppendAssistant(e.Text)
		}

	case ClearPlayback:
		d.playback.Interrupt()

	case AudioChunk:
		if !d.gate.Enabled() {
			d.logger.Debug("Dropping audio chunk, voice disabled",
				zap.Int("size", len(e.Payload)))
			return
		}
		chunk, err := entities.NewAudioChunk(e.Payload)
		if err != nil {
			d.logger.Warn("Rejected audio chunk", zap.Error(err), zap.Int("size", len(e.Payload)))
			return
		}
		d.playback.Enqueue(chunk)
	}
}
