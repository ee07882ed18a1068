package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Listener is the capture side of the conversation.
type Listener interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
}

// Playback is the part of the playback scheduler the conversation drives.
type Playback interface {
	Interrupt()
}

// TextSender transmits typed user text upstream.
type TextSender interface {
	SendUserMessage(text string) error
}

// Conversation holds the user-visible state of one session: the transcript
// of what the user said, the assistant's accumulating response, and whether
// the microphone is live. It is the TextSink the protocol dispatcher writes
// into.
type Conversation struct {
	listener Listener
	playback Playback
	sender   TextSender
	logger   *zap.Logger

	mu         sync.Mutex
	transcript string
	assistant  strings.Builder
}

// NewConversation wires the conversation to its collaborators.
func NewConversation(listener Listener, playback Playback, sender TextSender, logger *zap.Logger) *Conversation {
	return &Conversation{
		listener: listener,
		playback: playback,
		sender:   sender,
		logger:   logger,
	}
}

// ShowTranscript replaces the transcript display.
func (c *Conversation) ShowTranscript(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript = text
}

// AppendAssistant appends to the assistant display.
func (c *Conversation) AppendAssistant(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assistant.WriteString(text)
}

// ResetAssistant clears the assistant display for a new response.
func (c *Conversation) ResetAssistant() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assistant.Reset()
}

// Transcript returns the current transcript display.
func (c *Conversation) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// AssistantText returns the current assistant display.
func (c *Conversation) AssistantText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.assistant.String()
}

// Listening reports whether the microphone is live.
func (c *Conversation) Listening() bool {
	return c.listener.Running()
}

// StartListening opens the microphone for a new turn.
func (c *Conversation) StartListening(ctx context.Context) error {
	if err := c.listener.Start(ctx); err != nil {
		return fmt.Errorf("starting to listen: %w", err)
	}
	c.logger.Info("Listening")
	return nil
}

// StopListening closes the microphone and resets the turn: both displays are
// cleared and any speech still rendering is cut off, so the next exchange
// starts from silence.
func (c *Conversation) StopListening() error {
	if err := c.listener.Stop(); err != nil {
		return fmt.Errorf("stopping listening: %w", err)
	}

	c.mu.Lock()
	c.transcript = ""
	c.assistant.Reset()
	c.mu.Unlock()

	c.playback.Interrupt()
	c.logger.Info("Stopped listening")
	return nil
}

// SendText submits typed user text and mirrors it in the transcript display.
func (c *Conversation) SendText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := c.sender.SendUserMessage(text); err != nil {
		return fmt.Errorf("sending text: %w", err)
	}

	c.mu.Lock()
	c.transcript = text
	c.mu.Unlock()
	return nil
}
