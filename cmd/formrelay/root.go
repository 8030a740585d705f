package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/xraph/formrelay"
	"github.com/xraph/formrelay/config"
	"github.com/xraph/formrelay/journal"
	"github.com/xraph/formrelay/observability"
)

type globalFlags struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "formrelay",
		Short:         "Relay form submissions to an HTTP endpoint",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (default ./formrelay.yaml if present)")
	root.PersistentFlags().StringSliceVar(&flags.envFiles, "env-file", nil, "dotenv files to load (default .env)")

	root.AddCommand(
		newServeCmd(flags),
		newRelayCmd(flags),
		newItemsCmd(flags),
		newCheckCmd(flags),
	)
	return root
}

// loadConfig loads and validates the service configuration.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath, flags.envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// service is a fully wired relay plus the resources it owns.
type service struct {
	cfg     *config.Config
	logger  *slog.Logger
	relay   *formrelay.Relay
	journal journal.Store
}

func (s *service) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Error("close journal", "error", err)
		}
	}
}

// newService wires the relay from cfg. reg may be nil to skip metrics.
func newService(ctx context.Context, cfg *config.Config, logOut io.Writer, reg prometheus.Registerer) (*service, error) {
	logger, err := cfg.Log.Logger(logOut)
	if err != nil {
		return nil, err
	}

	mailer, err := cfg.Mailer(logger)
	if err != nil {
		return nil, err
	}

	store, err := cfg.Journal.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	opts := []formrelay.Option{
		formrelay.WithConfig(cfg.Relay),
		formrelay.WithLogger(logger),
		formrelay.WithMailer(mailer),
		formrelay.WithTracer(observability.NewTracer()),
	}
	if store != nil {
		opts = append(opts, formrelay.WithJournal(store))
	}
	if reg != nil {
		opts = append(opts, formrelay.WithMetrics(observability.NewStandaloneMetrics(reg)))
	}

	r, err := formrelay.New(opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, err
	}

	return &service{cfg: cfg, logger: logger, relay: r, journal: store}, nil
}
