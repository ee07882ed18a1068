package entities

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// Audio format shared by both directions of the channel.
const (
	SampleRate     = 16000
	Channels       = 1
	BytesPerSample = 2
)

// ErrOddPayload is returned when a PCM payload does not contain a whole
// number of 16-bit samples.
var ErrOddPayload = errors.New("pcm payload has odd byte length")

// AudioChunk is one discrete unit of synthesized audio delivered over the
// channel. It is immutable once constructed: the payload is decoded into
// normalized float samples at construction time and never touched again.
type AudioChunk struct {
	pcm     []byte
	samples []float32
}

// NewAudioChunk decodes a raw little-endian 16-bit signed PCM payload.
// A payload that is not sample-aligned is a decode error and yields no chunk.
func NewAudioChunk(pcm []byte) (*AudioChunk, error) {
	samples, err := DecodePCM16(pcm)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	return &AudioChunk{pcm: buf, samples: samples}, nil
}

// PCM returns the raw 16-bit little-endian payload. Callers must not modify it.
func (c *AudioChunk) PCM() []byte {
	return c.pcm
}

// Samples returns the decoded samples, normalized to [-1, 1).
func (c *AudioChunk) Samples() []float32 {
	return c.samples
}

// Duration returns the playback duration of the chunk.
func (c *AudioChunk) Duration() time.Duration {
	return time.Duration(len(c.samples)) * time.Second / SampleRate
}

// DecodePCM16 reinterprets the payload as consecutive little-endian 16-bit
// signed integers and normalizes each sample by dividing by 32768.
func DecodePCM16(payload []byte) ([]float32, error) {
	if len(payload)%BytesPerSample != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrOddPayload, len(payload))
	}
	samples := make([]float32, len(payload)/BytesPerSample)
	for i := range samples {
		s := int16(binary.LittleEndian.Uint16(payload[i*BytesPerSample:]))
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}
