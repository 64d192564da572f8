// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"offer-tracker/internal/app"
	"offer-tracker/internal/auth"
	"offer-tracker/internal/config"
	"offer-tracker/internal/handler"
	"offer-tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

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

	tokenService := auth.NewTokenService(cfg)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	router := gin.Default()
	router.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	handler.New(a.Service, a.Backup, tokenService).Register(router, authMiddleware.RequireAuth())

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
