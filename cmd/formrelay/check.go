package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and check the destination and journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			svc, err := newService(ctx, cfg, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "config: ok")

			if err := svc.relay.Preflight(ctx); err != nil {
				return err
			}
			fmt.Fprintln(w, "destination: reachable")

			if svc.journal != nil {
				if err := svc.journal.Ping(ctx); err != nil {
					return fmt.Errorf("journal: %w", err)
				}
				fmt.Fprintf(w, "journal (%s): ok\n", cfg.Journal.Driver)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall check timeout")
	return cmd
}
