package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/embercove/voicelink/adapters/audio"
	"github.com/embercove/voicelink/adapters/sessionstore"
	"github.com/embercove/voicelink/internal/auth"
	"github.com/embercove/voicelink/internal/capture"
	"github.com/embercove/voicelink/internal/config"
	"github.com/embercove/voicelink/internal/playback"
	"github.com/embercove/voicelink/internal/protocol"
	"github.com/embercove/voicelink/internal/transport"
	"github.com/embercove/voicelink/internal/usage"
	"github.com/embercove/voicelink/usecase"
)

// connHolder routes sends to the live connection, which is swapped out
// under it on every reconnect.
type connHolder struct {
	mu     sync.Mutex
	client *transport.Client
}

func (h *connHolder) set(client *transport.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = client
}

func (h *connHolder) current() *transport.Client {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.client
}

func (h *connHolder) SendAudio(buf []byte) error {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()
	return client.SendAudio(buf)
}

func (h *connHolder) SendUserMessage(text string) error {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()
	return client.SendUserMessage(text)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session identity, persisted across restarts.
	store, err := sessionstore.OpenBadger(filepath.Join(cfg.DataDir, "session"), logger)
	if err != nil {
		logger.Fatal("Failed to open session store", zap.Error(err))
	}
	defer store.Close()

	identity := usecase.NewIdentityService(store, logger)
	session, err := identity.Current(ctx, cfg.Language, cfg.Role, cfg.UserID)
	if err != nil {
		logger.Fatal("Failed to resolve session identity", zap.Error(err))
	}

	transportCfg := transport.Config{
		BaseURL: cfg.ServerURL,
		Source:  cfg.Source,
	}
	if cfg.DeviceSerial != "" {
		token, err := auth.Authenticate(ctx, cfg.ServerURL, auth.DeviceCredential{
			SerialNumber: cfg.DeviceSerial,
			SecretKey:    cfg.DeviceSecret,
		})
		if err != nil {
			logger.Fatal("Device authentication failed", zap.Error(err))
		}
		transportCfg.Token = token.Token
	}

	// Audio devices.
	playbackDevice, err := audio.NewOtoPlayback(logger)
	if err != nil {
		logger.Fatal("Failed to initialize speaker", zap.Error(err))
	}
	captureDevice, err := audio.NewMalgoCapture(logger)
	if err != nil {
		logger.Fatal("Failed to initialize microphone", zap.Error(err))
	}
	defer captureDevice.Close()

	// Session wiring.
	scheduler := playback.NewScheduler(playbackDevice, logger)
	gate := usage.NewGate(logger)

	holder := &connHolder{}
	uplink := capture.NewUplink(captureDevice, holder, gate, logger)
	conversation := usecase.NewConversation(uplink, scheduler, holder, logger)
	dispatcher := protocol.NewDispatcher(conversation, scheduler, gate, logger)

	gate.OnDisabled(func(kind, reason string) {
		if err := uplink.Stop(); err != nil {
			logger.Warn("Failed to stop capture after voice was disabled", zap.Error(err))
		}
	})

	client, err := transport.Dial(ctx, transportCfg, session, logger)
	if err != nil {
		logger.Fatal("Failed to connect", zap.Error(err))
	}
	holder.set(client)

	if err := conversation.StartListening(ctx); err != nil {
		logger.Warn("Microphone not available, text input only", zap.Error(err))
	}

	// Typed input from stdin rides the same session.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if err := conversation.SendText(scanner.Text()); err != nil {
				logger.Warn("Failed to send text", zap.Error(err))
			}
		}
	}()

	reconnector := transport.NewReconnector(transportCfg, session, logger)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			for msg := range client.Messages() {
				dispatcher.HandleMessage(msg)
			}
			if !transport.ShouldReconnect(client.CloseCode()) {
				logger.Info("Session ended")
				return
			}

			scheduler.Interrupt()
			next, err := reconnector.Redial(ctx)
			if err != nil {
				logger.Error("Giving up on the session", zap.Error(err))
				return
			}
			client = next
			holder.set(client)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down...")
	case <-done:
	}

	cancel()
	if err := conversation.StopListening(); err != nil {
		logger.Warn("Failed to stop listening", zap.Error(err))
	}
	holder.current().Close()
	<-done

	logger.Info("Agent exited")
}
