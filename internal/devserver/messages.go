package devserver

import (
	"encoding/base64"
	"encoding/json"
)

// Outbound wire shapes. These mirror what the production backend emits so a
// client cannot tell the development server apart at the protocol level.

type textMessage struct {
	IsText          bool    `json:"is_text"`
	Msg             *string `json:"msg"`
	IsTranscription bool    `json:"is_transcription"`
	IsEnd           bool    `json:"is_end"`
}

type audioMessage struct {
	IsText       bool    `json:"is_text"`
	Audio        *string `json:"audio"`
	IsClearEvent bool    `json:"is_clear_event"`
}

type usageMessage struct {
	Type             string  `json:"type"`
	LimitType        string  `json:"limit_type,omitempty"`
	Message          string  `json:"message,omitempty"`
	Reason           string  `json:"reason,omitempty"`
	RemainingMinutes float64 `json:"remaining_minutes,omitempty"`
}

func marshalTranscript(text string) []byte {
	raw, _ := json.Marshal(textMessage{
		IsText:          true,
		Msg:             &text,
		IsTranscription: true,
		IsEnd:           true,
	})
	return raw
}

func marshalAssistantText(text string) []byte {
	raw, _ := json.Marshal(textMessage{IsText: true, Msg: &text})
	return raw
}

func marshalAssistantEnd() []byte {
	raw, _ := json.Marshal(textMessage{IsText: true, IsEnd: true})
	return raw
}

func marshalAudioChunk(pcm []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(pcm)
	raw, _ := json.Marshal(audioMessage{Audio: &encoded})
	return raw
}

func marshalClearEvent() []byte {
	raw, _ := json.Marshal(audioMessage{IsClearEvent: true})
	return raw
}

func marshalUsageWarning(remaining float64) []byte {
	raw, _ := json.Marshal(usageMessage{
		Type:             "voice_usage_warning",
		LimitType:        "daily",
		RemainingMinutes: remaining,
		Message:          "Voice time is running low",
	})
	return raw
}

func marshalLimitReached() []byte {
	raw, _ := json.Marshal(usageMessage{
		Type:      "voice_limit_reached",
		LimitType: "daily",
		Message:   "Daily voice limit reached",
	})
	return raw
}
