package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xraph/formrelay/config"
	"github.com/xraph/formrelay/form"
)

func newItemsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "items [form.json]",
		Short: "Print the question identifiers of a form definition or event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			f, err := form.DecodeForm(data)
			if err != nil {
				sub, serr := form.Decode(data)
				if serr != nil {
					return errors.Join(err, serr)
				}
				f = &sub.Form
			}

			w := cmd.OutOrStdout()
			for _, line := range f.Describe() {
				fmt.Fprintln(w, line)
			}

			// The relay config is optional here; without one only the items
			// are listed.
			cfg, err := config.Load(flags.configPath, flags.envFiles...)
			if err != nil {
				return nil //nolint:nilerr // listing items needs no config
			}
			missing := f.Missing(cfg.Relay.Fields.QuestionIDs())
			if len(missing) > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "configured identifiers missing from this form:")
				for _, qid := range missing {
					fmt.Fprintf(w, "  %s\n", qid)
				}
			}
			return nil
		},
	}
}
