package protocol

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// Usage control message types. These are checked before anything else and
// short-circuit further processing of the message.
const (
	TypeVoiceLimitReached = "voice_limit_reached"
	TypeVoiceDisabled     = "voice_disabled"
	TypeVoiceUsageWarning = "voice_usage_warning"
)

// Classification errors.
var (
	ErrMalformed = errors.New("malformed inbound message")
	ErrBadAudio  = errors.New("invalid audio payload")
)

// Event is one classified inbound protocol event. Classification is total:
// every received message maps to exactly one variant or is rejected.
type Event interface {
	isEvent()
}

// TranscriptText carries what the user said, as recognized by the backend.
type TranscriptText struct {
	Text string
}

// AssistantText carries a piece of the assistant's response. End marks the
// response as complete; the next assistant text begins a new one.
type AssistantText struct {
	Text string
	End  bool
}

// AudioChunk carries one base64-decoded unit of synthesized speech.
type AudioChunk struct {
	Payload []byte
}

// ClearPlayback orders the client to stop and discard all pending audio.
type ClearPlayback struct{}

// VoiceLimitReached permanently disables voice for the session.
type VoiceLimitReached struct {
	Kind    string
	Message string
}

// VoiceDisabled permanently disables voice for the session.
type VoiceDisabled struct {
	Reason string
}

// VoiceUsageWarning surfaces a transient usage notice.
type VoiceUsageWarning struct {
	Kind             string
	RemainingMinutes float64
	Message          string
}

func (TranscriptText) isEvent()    {}
func (AssistantText) isEvent()     {}
func (AudioChunk) isEvent()        {}
func (ClearPlayback) isEvent()     {}
func (VoiceLimitReached) isEvent() {}
func (VoiceDisabled) isEvent()     {}
func (VoiceUsageWarning) isEvent() {}

// envelope is the union wire shape of all inbound JSON messages.
type envelope struct {
	Type string `json:"type"`

	IsText          *bool  `json:"is_text"`
	Msg             string `json:"msg"`
	IsTranscription bool   `json:"is_transcription"`
	IsEnd           bool   `json:"is_end"`

	Audio        *string `json:"audio"`
	IsClearEvent bool    `json:"is_clear_event"`

	LimitType        string  `json:"limit_type"`
	Message          string  `json:"message"`
	Reason           string  `json:"reason"`
	RemainingMinutes float64 `json:"remaining_minutes"`
}

// Classify maps a raw inbound message to exactly one event.
//
// It returns (nil, nil) for the one benign degenerate shape: an audio
// envelope carrying neither audio nor a clear flag. Callers log that as an
// anomaly and move on. Every other unrecognized shape is an error; a
// rejected message never terminates the session.
func Classify(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	// Usage control first, regardless of what else the message claims to be.
	switch env.Type {
	case TypeVoiceLimitReached:
		return VoiceLimitReached{Kind: env.LimitType, Message: env.Message}, nil
	case TypeVoiceDisabled:
		return VoiceDisabled{Reason: env.Reason}, nil
	case TypeVoiceUsageWarning:
		return VoiceUsageWarning{
			Kind:             env.LimitType,
			RemainingMinutes: env.RemainingMinutes,
			Message:          env.Message,
		}, nil
	}

	if env.IsText == nil {
		return nil, fmt.Errorf("%w: matches no known shape", ErrMalformed)
	}

	if *env.IsText {
		if env.IsTranscription {
			return TranscriptText{Text: env.Msg}, nil
		}
		return AssistantText{Text: env.Msg, End: env.IsEnd}, nil
	}

	if env.IsClearEvent {
		return ClearPlayback{}, nil
	}

	if env.Audio != nil && *env.Audio != "" {
		payload, err := base64.StdEncoding.DecodeString(*env.Audio)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadAudio, err)
		}
		return AudioChunk{Payload: payload}, nil
	}

	// Neither audio nor clear flag: a no-op the caller logs as an anomaly.
	return nil, nil
}
