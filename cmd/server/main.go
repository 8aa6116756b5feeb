package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pai-labs/pai/internal/api"
	"github.com/pai-labs/pai/internal/auth"
	"github.com/pai-labs/pai/internal/chat"
	"github.com/pai-labs/pai/internal/config"
	"github.com/pai-labs/pai/internal/db"
	"github.com/pai-labs/pai/internal/llm"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	authSvc := auth.New(database, logger)

	gateway := func() (chat.Gateway, error) {
		svc, err := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		svc.SetWindow(cfg.HistoryWindow)
		return svc, nil
	}

	handler := api.NewHandler(database, authSvc, gateway, logger, cfg.ChatConfig())

	// No WriteTimeout: chat responses stream over SSE for as long as the
	// reveal runs.
	server := &http.Server{
		Addr:        cfg.Addr,
		Handler:     handler.Routes(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr))
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("shutdown incomplete", zap.Error(err))
		}
	}
}
