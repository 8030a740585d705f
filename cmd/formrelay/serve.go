package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/xraph/formrelay/api"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the submission webhook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := newService(ctx, cfg, os.Stderr, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer svc.Close()

			if !skipPreflight {
				pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := svc.relay.Preflight(pctx)
				cancel()
				if err != nil {
					return err
				}
			}

			h := api.NewHandler(svc.relay, cfg.HTTP.API, svc.logger)
			if cfg.Metrics.Enabled {
				h.Router().Handle(cfg.Metrics.Path, promhttp.Handler())
			}

			srv := &http.Server{
				Addr:              cfg.HTTP.Addr,
				Handler:           h,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				svc.logger.Info("listening",
					"addr", cfg.HTTP.Addr,
					"debug_email", svc.relay.Notifying(),
					"journal", cfg.Journal.Driver,
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			svc.logger.Info("shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "start even if the destination is unreachable")
	return cmd
}
