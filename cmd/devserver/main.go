package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/embercove/voicelink/internal/auth"
	"github.com/embercove/voicelink/internal/config"
	"github.com/embercove/voicelink/internal/devserver"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	issuer := auth.NewIssuer([]byte(cfg.JWTSecret))
	tracker := devserver.NewUsageTracker(0, 0)
	hub := devserver.NewHub(tracker, logger)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "voicelink-devserver",
		})
	})

	e.POST("/api/v1/device/auth", func(c echo.Context) error {
		return deviceAuth(c, issuer, logger)
	})

	e.GET("/ws/:source", hub.HandleSession)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Development server started", zap.String("port", port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// deviceAuth issues a development token. Any non-empty credential pair is
// accepted; the serial number becomes the device identity.
func deviceAuth(c echo.Context, issuer *auth.Issuer, logger *zap.Logger) error {
	var cred auth.DeviceCredential
	if err := c.Bind(&cred); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request format",
		})
	}
	if cred.SerialNumber == "" || cred.SecretKey == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "serial number and secret key are required",
		})
	}

	token, err := issuer.DeviceToken(cred.SerialNumber)
	if err != nil {
		logger.Error("Failed to generate device token",
			zap.String("serialNumber", cred.SerialNumber),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to generate token",
		})
	}

	logger.Info("Device authenticated", zap.String("serialNumber", cred.SerialNumber))

	return c.JSON(http.StatusOK, auth.DeviceToken{
		Token:     token,
		ExpiresAt: time.Now().Add(auth.DeviceTokenTTL),
		DeviceID:  cred.SerialNumber,
	})
}
