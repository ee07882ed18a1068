package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Development server accepts everything.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active development sessions. It speaks the same
// wire protocol as the production backend but runs entirely offline: replies
// are scripted and synthesized speech is silence.
type Hub struct {
	logger  *zap.Logger
	tracker *UsageTracker

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewHub creates a hub backed by the given usage tracker.
func NewHub(tracker *UsageTracker, logger *zap.Logger) *Hub {
	return &Hub{
		logger:   logger,
		tracker:  tracker,
		sessions: make(map[string]*session),
	}
}

type writeData struct {
	messageType int
	payload     []byte
}

// session is one connected client.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan writeData

	id       string
	language string
	userKey  string
	logger   *zap.Logger

	// Accumulated uplink audio since the last scripted response.
	pendingAudio time.Duration
	turns        int
}

// utteranceLength is how much uplink audio triggers one scripted exchange.
const utteranceLength = time.Second

// HandleSession upgrades a client connection on /ws/:source.
func (h *Hub) HandleSession(c echo.Context) error {
	source := c.Param("source")
	switch source {
	case "web", "device", "phone":
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unknown source %q", source),
		})
	}

	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "session_id is required",
		})
	}
	language := c.QueryParam("language")
	if language == "" {
		language = string(entities.DefaultLanguage)
	}
	userKey := c.QueryParam("user_id")
	if userKey == "" {
		userKey = sessionID
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	s := &session{
		hub:      h,
		conn:     conn,
		send:     make(chan writeData, 256),
		id:       sessionID,
		language: language,
		userKey:  userKey,
		logger: h.logger.With(
			zap.String("sessionId", sessionID),
			zap.String("source", source)),
	}

	h.mu.Lock()
	if previous, ok := h.sessions[sessionID]; ok {
		// A reconnect for a token replaces the dropped connection.
		previous.conn.Close()
	}
	h.sessions[sessionID] = s
	h.mu.Unlock()

	s.logger.Info("Session connected", zap.String("language", language))

	go s.writePump()
	go s.readPump()
	return nil
}

// SessionCount reports how many sessions are connected.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (h *Hub) drop(s *session) {
	h.mu.Lock()
	if h.sessions[s.id] == s {
		delete(h.sessions, s.id)
		close(s.send)
	}
	h.mu.Unlock()
}

// readPump consumes client frames until the connection ends.
func (s *session) readPump() {
	defer func() {
		s.hub.drop(s)
		s.conn.Close()
		s.logger.Info("Session disconnected")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket error", zap.Error(err))
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleAudio(message)
		case websocket.TextMessage:
			s.handleText(message)
		default:
			s.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(message.messageType, message.payload); err != nil {
				s.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) enqueue(payload []byte) {
	select {
	case s.send <- writeData{messageType: websocket.TextMessage, payload: payload}:
	default:
		s.logger.Warn("Send queue full, dropping message")
	}
}

// handleAudio accounts one uplink slice and emits a scripted exchange once
// enough audio has accumulated to count as an utterance.
func (s *session) handleAudio(data []byte) {
	duration := time.Duration(len(data)) * time.Second /
		(entities.SampleRate * entities.Channels * entities.BytesPerSample)

	status := s.hub.tracker.Record(s.userKey, duration)
	if status.LimitReached {
		s.logger.Info("Voice limit reached", zap.String("userKey", s.userKey))
		s.enqueue(marshalLimitReached())
		return
	}
	if status.Warn {
		s.enqueue(marshalUsageWarning(status.Remaining.Minutes()))
	}

	s.pendingAudio += duration
	if s.pendingAudio < utteranceLength {
		return
	}
	s.pendingAudio = 0

	s.turns++
	s.respond(fmt.Sprintf("voice turn %d", s.turns))
}

// handleText serves typed user messages.
func (s *session) handleText(message []byte) {
	var msg struct {
		UserMsg string `json:"user_msg"`
	}
	if err := json.Unmarshal(message, &msg); err != nil || msg.UserMsg == "" {
		s.logger.Warn("Ignoring unrecognized text frame", zap.Int("size", len(message)))
		return
	}
	s.turns++
	s.respond(msg.UserMsg)
}

// respond plays out one scripted exchange: clear whatever the client is
// still rendering, confirm the transcript, then stream a reply as text
// fragments and audio chunks closed by an end marker.
func (s *session) respond(heard string) {
	s.enqueue(marshalClearEvent())
	s.enqueue(marshalTranscript(heard))

	s.enqueue(marshalAssistantText("I heard you say "))
	s.enqueue(marshalAssistantText(fmt.Sprintf("%q.", heard)))

	// 200ms of silence per chunk stands in for synthesized speech.
	silence := make([]byte, entities.SampleRate*entities.BytesPerSample/5)
	s.enqueue(marshalAudioChunk(silence))
	s.enqueue(marshalAudioChunk(silence))

	s.enqueue(marshalAssistantEnd())
}
