package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"tuner/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the tuner log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			tail, offset, err := logs.Last(cfg.LogPath(), lines)
			if err != nil {
				return err
			}
			writeLines(out, tail)
			if !follow {
				return nil
			}

			err = logs.Follow(cmd.Context(), cfg.LogPath(), offset, logs.DefaultFollowInterval, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	return cmd
}
