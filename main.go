package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"offer-tracker/internal/app"
	"offer-tracker/internal/auth"
	"offer-tracker/internal/bot"
	"offer-tracker/internal/config"
	"offer-tracker/internal/handler"
	"offer-tracker/internal/middleware"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// main serves the HTTP API and, when a bot token is configured, the Telegram
// webhook on the same port.
func main() {
	cfg := config.MustLoad()
	app.SetupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	go a.Service.RunNormalizer(ctx, cfg.NormalizeInterval)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.Tracing(cfg.Tracing.ServiceName))

	tokenService := auth.NewTokenService(cfg)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)
	handler.New(a.Service, a.Backup, tokenService).Register(router, authMiddleware.RequireAuth())

	if cfg.TelegramBotToken != "" {
		if err := mountWebhook(router, a, cfg); err != nil {
			slog.Error("Failed to set up Telegram webhook", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{Addr: cfg.Addr(), Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Server started", "addr", cfg.Addr())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server stopped with error", "error", err)
	}
}

func mountWebhook(router *gin.Engine, a *app.App, cfg config.Config) error {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return err
	}

	webhookURL := strings.TrimSuffix(cfg.WebhookBaseURL, "/") + "/telegram"
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return err
	}
	if _, err := api.Request(wh); err != nil {
		return err
	}
	slog.Info("Telegram webhook set", "url", webhookURL)

	b := bot.New(a.Service, api, cfg.TelegramAllowedChatID)
	router.POST("/telegram", func(c *gin.Context) {
		var update tgbotapi.Update
		if err := c.ShouldBindJSON(&update); err != nil {
			slog.Error("Failed to parse update", "error", err)
			c.Status(http.StatusBadRequest)
			return
		}
		b.HandleUpdate(c.Request.Context(), update)
		c.Status(http.StatusOK)
	})
	return nil
}
