package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/embercove/voicelink/domain/entities"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer. Refreshed on
	// every ping from the server.
	readWait = 60 * time.Second

	// Time allowed to establish the connection when the caller's context
	// carries no deadline of its own.
	dialTimeout = 15 * time.Second
)

// ErrClosed is returned by send operations after the connection is gone.
var ErrClosed = errors.New("connection is closed")

// Config describes where and as whom to connect.
type Config struct {
	// BaseURL is the backend origin, http(s) or ws(s) scheme.
	BaseURL string

	// Source identifies the kind of client: web, device or phone.
	Source string

	// Token is the bearer token sent on the upgrade request. Optional.
	Token string
}

// Client is one live WebSocket connection to the conversation backend.
//
// Inbound messages are delivered in arrival order on Messages() by a single
// reader goroutine. Sends are safe for concurrent use; the capture uplink
// and the text input path may write at the same time.
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	inbound chan []byte
	done    chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closing   atomic.Bool

	errMu     sync.Mutex
	err       error
	closeCode int
}

// Dial connects to the backend and binds the connection to the session
// identity. The server attaches language, session token, role and user to
// the conversation it spins up for this socket.
func Dial(ctx context.Context, cfg Config, session *entities.Session, logger *zap.Logger) (*Client, error) {
	endpoint, err := sessionURL(cfg, session)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, dialTimeout)
		defer cancel()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s (status %d): %w", endpoint, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dialing %s: %w", endpoint, err)
	}

	c := &Client{
		conn:      conn,
		logger:    logger,
		inbound:   make(chan []byte, 32),
		done:      make(chan struct{}),
		closeCode: -1,
	}

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	go c.readLoop()

	logger.Info("Session connected",
		zap.String("sessionId", session.ID),
		zap.String("source", cfg.Source),
		zap.String("language", string(session.Language)))

	return c, nil
}

// sessionURL builds the upgrade URL for a session.
func sessionURL(cfg Config, session *entities.Session) (string, error) {
	if session == nil {
		return "", errors.New("session is required")
	}
	if err := session.Validate(); err != nil {
		return "", fmt.Errorf("invalid session: %w", err)
	}

	source := cfg.Source
	if source == "" {
		source = "device"
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("base URL %q must use http(s) or ws(s)", cfg.BaseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + source

	q := u.Query()
	q.Set("language", string(session.Language))
	q.Set("session_id", session.ID)
	if session.Role != "" {
		q.Set("role", string(session.Role))
	}
	if session.UserID != "" {
		q.Set("user_id", session.UserID)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Messages returns the inbound message channel. It is closed when the
// connection ends, after which Err and CloseCode describe how.
func (c *Client) Messages() <-chan []byte {
	return c.inbound
}

// SendAudio transmits one captured PCM buffer as a binary frame.
func (c *Client) SendAudio(buf []byte) error {
	return c.write(websocket.BinaryMessage, buf)
}

// SendUserMessage transmits typed user text.
func (c *Client) SendUserMessage(text string) error {
	payload, err := json.Marshal(map[string]string{"user_msg": text})
	if err != nil {
		return fmt.Errorf("encoding user message: %w", err)
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *Client) write(messageType int, payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, payload); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	return nil
}

// Close ends the session deliberately with a normal closure frame. The
// server treats it as final and the session will not be resumed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.writeMu.Unlock()
		c.conn.Close()
	})
	<-c.done
	return nil
}

// Err returns the terminal read error, or nil after a clean closure. Valid
// once Messages() is closed.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

// CloseCode returns the WebSocket close code the connection ended with, or
// -1 when it dropped without a close frame. Valid once Messages() is closed.
func (c *Client) CloseCode() int {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.closeCode
}

// readLoop delivers inbound text frames in arrival order until the
// connection ends. Binary frames from the server are synthesized speech on
// some backends; this protocol carries audio inside JSON text frames, so
// anything else is logged and skipped.
func (c *Client) readLoop() {
	defer close(c.inbound)
	defer close(c.done)
	defer c.conn.Close()

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			c.recordExit(err)
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(readWait))

		if messageType != websocket.TextMessage {
			c.logger.Debug("Skipping non-text frame", zap.Int("type", messageType))
			continue
		}
		c.inbound <- payload
	}
}

func (c *Client) recordExit(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	if c.closing.Load() {
		c.closeCode = websocket.CloseNormalClosure
		return
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		c.closeCode = closeErr.Code
		if closeErr.Code == websocket.CloseNormalClosure {
			c.logger.Info("Session closed by server")
			return
		}
		c.err = err
		c.logger.Warn("Session closed abnormally",
			zap.Int("code", closeErr.Code),
			zap.String("text", closeErr.Text))
		return
	}

	c.err = err
	c.logger.Warn("Connection lost", zap.Error(err))
}
