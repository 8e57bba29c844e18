package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"megbot/internal/config"
	"megbot/internal/server"
	"megbot/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ring, err := services.OpenKeyring(services.KeyringConfig{
		Backend:  cfg.KeyringBackend,
		FileDir:  cfg.KeyringDir,
		Password: cfg.KeyringPassword,
	})
	if err != nil {
		logger.Fatal("failed to open keyring", zap.Error(err))
	}

	catalog, err := services.NewModelCatalogService()
	if err != nil {
		logger.Fatal("failed to load model catalog", zap.Error(err))
	}
	vault := services.NewKeyringService(ring)
	history := services.NewHistoryService(services.DefaultSystemPrompt)
	completion := services.NewCompletionService(catalog, vault, history, services.CompletionConfig{
		MaxTokens: cfg.MaxTokens,
		Logger:    logger.Named("completion"),
	})

	api := server.New(completion, history, vault, catalog, logger.Named("http"), server.Options{
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   cfg.RateLimit,
		RateBurst:   cfg.RateBurst,
	})
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.ServerAddr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	level := cfg.LogLevel
	switch level {
	case "trace":
		level = "debug"
	case "warning":
		level = "warn"
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
