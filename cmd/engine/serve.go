package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/strategy-engine/internal/httpx"
	"github.com/AngelCh415/strategy-engine/internal/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			r := httpx.NewRouter(httpx.Deps{
				Log:         a.log,
				Strategies:  a.strategies,
				Measures:    metrics.NewService(a.store),
				Collector:   a.collector,
				Telemetry:   a.telemetry,
				DefaultDays: a.cfg.AnalysisPeriod,
				Concurrency: a.cfg.BatchConcurrency,
				Sources:     a.cfg.Sources,
				CORSOrigins: a.cfg.CORSOrigins,
			})
			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				a.log.Info("starting server", slog.String("port", a.cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
				close(errc)
			}()

			select {
			case err := <-errc:
				if err != nil {
					a.log.Error("server error", slog.String("err", err.Error()))
				}
				return err
			case <-ctx.Done():
			}
			a.log.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
