package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

type relayOutput struct {
	SubmissionID string          `json:"submission_id"`
	StatusCode   int             `json:"status_code"`
	LatencyMs    int             `json:"latency_ms"`
	DebugEmailed bool            `json:"debug_emailed"`
	Record       json.RawMessage `json:"record,omitempty"`
	Error        string          `json:"error,omitempty"`
}

func newRelayCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "relay [event.json]",
		Short: "Relay one submission event read from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			svc, err := newService(cmd.Context(), cfg, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			out, herr := svc.relay.HandleEvent(cmd.Context(), data)
			if out == nil {
				return herr
			}

			res := relayOutput{
				SubmissionID: out.SubmissionID.String(),
				StatusCode:   out.StatusCode,
				LatencyMs:    out.LatencyMs,
				DebugEmailed: out.DebugEmailed,
			}
			if out.Record != nil {
				if b, err := out.Record.JSON(); err == nil {
					res.Record = b
				}
			}
			if herr != nil {
				res.Error = herr.Error()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			return herr
		},
	}
}

// readInput reads args[0], or stdin when no file or "-" is given.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", args[0], err)
	}
	return data, nil
}
