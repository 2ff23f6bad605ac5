package cli

import (
	"context"
	"fmt"

	"github.com/factchecker/veritas/internal/analysis"
	"github.com/factchecker/veritas/internal/config"
	"github.com/factchecker/veritas/internal/database"
	"github.com/factchecker/veritas/internal/history"
	"github.com/factchecker/veritas/internal/stats"
	"github.com/rs/zerolog/log"
)

// app is the wired set of components every command works on.
type app struct {
	cfg          *config.Config
	store        database.Store
	history      *history.Store
	stats        *stats.Tracker
	orchestrator *analysis.Orchestrator
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	// Open migrates the backend before returning it.
	store, err := database.Open(cfg.History.Driver, cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history storage: %w", err)
	}

	hist := history.NewStore(store, cfg.History.Capacity)
	loaded := hist.LoadAll(ctx)

	tracker := stats.NewTracker(store, nil)
	tracker.Refresh(ctx)

	log.Debug().
		Str("driver", cfg.History.Driver).
		Str("path", cfg.History.Path).
		Int("results", len(loaded)).
		Msg("History loaded")

	return &app{
		cfg:          cfg,
		store:        store,
		history:      hist,
		stats:        tracker,
		orchestrator: analysis.NewOrchestrator(analysis.NewClient(&cfg.Analysis), hist, tracker),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp loads configuration, opens the app for the duration of fn and
// closes it afterwards.
func withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close history storage")
		}
	}()
	return fn(a)
}
