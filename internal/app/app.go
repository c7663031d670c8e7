// Package app wires configuration into running components.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/typerush-backend/internal/config"
	"github.com/DoyleJ11/typerush-backend/internal/httpapi"
	"github.com/DoyleJ11/typerush-backend/internal/hub"
	"github.com/DoyleJ11/typerush-backend/internal/leaderboard"
	"github.com/DoyleJ11/typerush-backend/internal/prompt"
	"github.com/DoyleJ11/typerush-backend/internal/session"
	"github.com/DoyleJ11/typerush-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// OpenBoard builds the configured backend and loads the board from it.
func OpenBoard(ctx context.Context, cfg config.Config, log *zap.Logger) (*leaderboard.Board, error) {
	backend, err := leaderboard.NewBackend(ctx, cfg.Store.Kind, cfg.Store.Path, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("leaderboard backend: %w", err)
	}
	log.Info("leaderboard backend ready", zap.String("kind", cfg.Store.Kind))
	return leaderboard.Open(ctx, backend, log.Named("leaderboard")), nil
}

// SessionTemplate is the per-session config shared by every game.
func SessionTemplate(cfg config.Config, scores session.Scoreboard, log *zap.Logger) session.Config {
	return session.Config{
		Rules:        cfg.Rules(),
		Escalation:   cfg.Escalation(),
		TickInterval: cfg.Game.Tick,
		Loader:       prompt.NewOSLoader(cfg.PromptDir),
		Scores:       scores,
		TopN:         cfg.Game.TopN,
		Logger:       log.Named("session"),
	}
}

// Serve runs the HTTP server until ctx is cancelled, then drains it and
// closes the leaderboard.
func Serve(ctx context.Context, cfg config.Config, log *zap.Logger) (err error) {
	board, err := OpenBoard(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, board.Close()) }()

	h := hub.NewHub(ctx, hub.Options{
		Template: SessionTemplate(cfg, board, log),
		Logger:   log.Named("hub"),
	})

	var origins []string
	if cfg.Dev {
		origins = []string{"localhost:*", "127.0.0.1:*"}
	}
	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:    h,
			Board:  board,
			Logger: log.Named("http"),
			WS:     ws.Options{OriginPatterns: origins},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}

		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
