package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/analysis"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/generator"
	"github.com/cx-miguel-neiva/crypto-analysis/internal/server"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API for the dashboard",
		Long: `Start the HTTP API used by the dashboard. Settings come from the config file,
CRYPTO_ANALYSIS_* environment variables and the flags below.

Examples:
  crypto-analysis serve
  crypto-analysis serve --addr :8080 --db data/dev.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = appConfig.Server.Addr
			}

			conn, err := openDatabase(dbPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			policy := analysis.DefaultPolicy()
			policy.Delay = appConfig.Analysis.Delay
			svc := analysis.NewService(generator.New(), policy, analysis.WithStore(conn))
			defer svc.Close()

			srv := &http.Server{
				Addr: addr,
				Handler: server.NewRouter(svc, conn, server.Options{
					AllowedOrigins: appConfig.Server.AllowedOrigins,
					RateLimit:      appConfig.Server.RateLimit,
					RateBurst:      appConfig.Server.RateBurst,
				}),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, srv, svc)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (defaults to server.addr from the config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the SQLite database file (defaults to database.path from the config)")

	return cmd
}

// serve runs srv until ctx is done, then stops accepting requests and gives
// background analyses the shutdown timeout to finish.
func serve(ctx context.Context, srv *http.Server, svc *analysis.Service) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("Server is running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := svc.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Cancelling unfinished analyses")
		}
		return nil
	})
	return g.Wait()
}
