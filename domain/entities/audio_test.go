package entities

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestDecodePCM16(t *testing.T) {
	samples, err := DecodePCM16([]byte{0x00, 0x00, 0xFF, 0x7F})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(samples) != 2 {
		t.Fatalf("Expected 2 samples, got %d", len(samples))
	}

	if samples[0] != 0.0 {
		t.Errorf("Expected first sample 0.0, got %f", samples[0])
	}

	// 32767/32768 is the maximum positive normalized value.
	if math.Abs(float64(samples[1])-0.99997) > 0.0001 {
		t.Errorf("Expected second sample near 0.99997, got %f", samples[1])
	}
}

func TestDecodePCM16NegativeFullScale(t *testing.T) {
	samples, err := DecodePCM16([]byte{0x00, 0x80})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if samples[0] != -1.0 {
		t.Errorf("Expected -1.0, got %f", samples[0])
	}
}

func TestDecodePCM16OddLength(t *testing.T) {
	if _, err := DecodePCM16([]byte{0x01, 0x02, 0x03}); !errors.Is(err, ErrOddPayload) {
		t.Errorf("Expected ErrOddPayload for 3-byte payload, got %v", err)
	}
}

func TestNewAudioChunk(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0x00, 0x40}
	chunk, err := NewAudioChunk(pcm)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(chunk.Samples()) != 2 {
		t.Errorf("Expected 2 samples, got %d", len(chunk.Samples()))
	}

	// The chunk must hold its own copy of the payload.
	pcm[3] = 0x00
	if chunk.PCM()[3] != 0x40 {
		t.Error("AudioChunk should not alias the caller's payload")
	}
}

func TestNewAudioChunkRejectsOddPayload(t *testing.T) {
	if _, err := NewAudioChunk([]byte{0x01}); err == nil {
		t.Error("Expected decode error for odd payload")
	}
}

func TestAudioChunkDuration(t *testing.T) {
	// One second of silence at 16 kHz mono 16-bit.
	chunk, err := NewAudioChunk(make([]byte, SampleRate*BytesPerSample))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if chunk.Duration() != time.Second {
		t.Errorf("Expected 1s duration, got %v", chunk.Duration())
	}
}
