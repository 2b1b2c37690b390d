package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tuner/internal/preflight"
	"tuner/internal/services/objectstore"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured services and paths are usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var bucket preflight.Prober
			if store, err := objectstore.New(cfg.Storage.BucketURL); err == nil {
				bucket = store
			}
			results := preflight.RunAll(cmd.Context(), cfg, bucket)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				writeLines(out, renderSectionHeader("Preflight", colorize))
				for _, result := range results {
					kind := statusOK
					if !result.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
				}
			}
			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}
