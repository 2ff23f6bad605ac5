package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/factchecker/veritas/internal/api"
	"github.com/factchecker/veritas/internal/auth"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var servePort int

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API server",
	Long: `Serve starts the HTTP API used by the dashboard: analysis submission,
recent results, history search, export and import, and aggregate stats.

Example:
  veritas serve
  veritas serve --config veritas.yaml --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(a *app) error {
		if servePort != 0 {
			a.cfg.Server.Port = servePort
		}

		go a.stats.Run(ctx, a.cfg.Stats.RefreshInterval)

		router := api.NewRouter(a.cfg, api.Services{
			Orchestrator: a.orchestrator,
			History:      a.history,
			Stats:        a.stats,
			Sessions:     auth.NewManager(a.cfg.Auth.SessionTTL),
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().
				Int("port", a.cfg.Server.Port).
				Str("analysis_url", a.cfg.Analysis.BaseURL).
				Str("history_driver", a.cfg.History.Driver).
				Msg("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	})
}
