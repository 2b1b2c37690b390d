package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var instanceName string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll job and model status and print each phase change",
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := ctx.openSession(true)
			if err != nil {
				return err
			}
			defer handle.Close()

			runCtx := cmd.Context()
			if err := handle.session.Start(runCtx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			store := handle.session.Store()
			userID := handle.session.UserID()
			var last string
			for {
				state := store.State()
				if state.Flags.Ready {
					var rendered string
					if ctx.jsonOutput() {
						line, err := compactJSON(buildStatusPayload(userID, state, instanceName, nil))
						if err != nil {
							return err
						}
						rendered = line
					} else {
						rendered = strings.Join(renderState(userID, state, instanceName, colorize), "\n")
					}
					if rendered != last {
						if last != "" && !ctx.jsonOutput() {
							fmt.Fprintln(out)
						}
						fmt.Fprintln(out, rendered)
						last = rendered
					}
				}

				select {
				case <-runCtx.Done():
					if errors.Is(runCtx.Err(), context.Canceled) {
						return nil
					}
					return runCtx.Err()
				case <-store.Updates():
				}
			}
		},
	}
	cmd.Flags().StringVar(&instanceName, "instance", "", "Instance name used to evaluate tune availability")
	return cmd
}
