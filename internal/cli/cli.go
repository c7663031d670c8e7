// Package cli holds the cobra commands behind the typerush binaries.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerush-backend/internal/app"
	"github.com/DoyleJ11/typerush-backend/internal/config"
	"github.com/DoyleJ11/typerush-backend/internal/console"
	"github.com/DoyleJ11/typerush-backend/internal/difficulty"
	"github.com/DoyleJ11/typerush-backend/internal/logging"
	"github.com/DoyleJ11/typerush-backend/internal/session"
)

type globals struct {
	configPath string
}

func NewRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "typerush",
		Short:         "Timed typing game",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(NewServeCommand(g), newPlayCommand(g), newScoresCommand(g))
	return root
}

// NewServeCommand runs the HTTP and websocket server. A nil g gives the
// command its own --config flag.
func NewServeCommand(g *globals) *cobra.Command {
	standalone := g == nil
	if standalone {
		g = &globals{}
	}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(g)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx, cfg, log)
		},
	}
	if standalone {
		cmd.Flags().StringVar(&g.configPath, "config", "", "path to a YAML config file")
	}
	return cmd
}

func newPlayCommand(g *globals) *cobra.Command {
	var name, tier string
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one game in this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			name = strings.TrimSpace(name)
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			t, err := difficulty.ParseTier(tier)
			if err != nil {
				return err
			}

			cfg, log, err := setup(g)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			board, err := app.OpenBoard(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, board.Close()) }()

			con := console.New(cmd.OutOrStdout())
			sc := app.SessionTemplate(cfg, board, log)
			sc.ID = uuid.NewString()
			sc.PlayerName = name
			sc.Profile = difficulty.ProfileFor(t)
			sc.Observer = con

			s := session.New(ctx, sc)
			defer s.Close()

			_, err = con.Play(ctx, s, cmd.InOrStdin())
			return err
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "player name")
	cmd.Flags().StringVar(&tier, "difficulty", string(difficulty.TierMedium), "easy, medium or hard")
	return cmd
}

func newScoresCommand(g *globals) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Print the leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}
			cfg, log, err := setup(g)
			if err != nil {
				return err
			}
			defer log.Sync()

			board, err := app.OpenBoard(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, board.Close()) }()

			out := cmd.OutOrStdout()
			top := board.TopScores(limit)
			if len(top) == 0 {
				fmt.Fprintln(out, "No scores yet.")
				return nil
			}
			for i, e := range top {
				fmt.Fprintf(out, "%3d. %-16s %6d\n", i+1, e.PlayerName, e.Score)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", session.DefaultTopN, "number of rows")
	return cmd
}

func setup(g *globals) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.Dev)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

// Execute runs cmd with a background context and exits non-zero on error.
func Execute(cmd *cobra.Command) {
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
