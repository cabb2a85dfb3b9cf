package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/sketch-party-backend/internal/config"
	"github.com/DoyleJ11/sketch-party-backend/internal/coordinator"
	"github.com/DoyleJ11/sketch-party-backend/internal/engine"
	"github.com/DoyleJ11/sketch-party-backend/internal/gateway"
	"github.com/DoyleJ11/sketch-party-backend/internal/httpapi"
	"github.com/DoyleJ11/sketch-party-backend/internal/hub"
	"github.com/DoyleJ11/sketch-party-backend/internal/lobby"
	"github.com/DoyleJ11/sketch-party-backend/internal/logging"
	"github.com/DoyleJ11/sketch-party-backend/internal/store"
	"github.com/DoyleJ11/sketch-party-backend/internal/timer"
	"github.com/DoyleJ11/sketch-party-backend/internal/words"
	"github.com/DoyleJ11/sketch-party-backend/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool := words.Default()
	if cfg.WordsFile != "" {
		if pool, err = words.Load(cfg.WordsFile); err != nil {
			return err
		}
	}

	var repo store.Repository = store.NopRepository{}
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = db
	} else {
		logger.Info("DATABASE_URL not set, results archive disabled")
	}
	recorder := store.NewRecorder(repo, 64, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := gateway.NewSessions(logger)
	h := hub.NewHub(context.Background(), lobby.Deps{
		Rules:   engine.DefaultRules(),
		Env:     engine.DefaultEnv(pool),
		Gateway: sessions,
		Timers:  timer.NewService(),
		Results: recorder,
		Logger:  logger,
	})
	coord := coordinator.New(h, logger)

	wsHandler := ws.Handler(coord, sessions, ws.Options{
		OriginPatterns: cfg.AllowedOrigins,
		MsgRate:        cfg.MsgRate,
		MsgBurst:       cfg.MsgBurst,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, repo, wsHandler, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	recCtx, stopRecorder := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return recorder.Run(recCtx) })
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.Int("words", pool.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := errors.Join(h.Shutdown(shutdownCtx), srv.Shutdown(shutdownCtx))
		stopRecorder()
		return err
	})

	return g.Wait()
}
