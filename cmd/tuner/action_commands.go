package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tuner/internal/config"
	"tuner/internal/dataset"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE...",
		Short: "Package files into a dataset archive and upload it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("inspect %q: %w", arg, err)
				}
				if info.IsDir() {
					return fmt.Errorf("%q is a directory; pass individual files", arg)
				}
				paths = append(paths, path)
			}

			handle, err := ctx.openSession(false)
			if err != nil {
				return err
			}
			defer handle.Close()

			refreshErr := refreshOnce(cmd.Context(), ctx, handle)
			if err := handle.session.Dispatcher().Upload(cmd.Context(), dataset.FromPaths(paths...)); err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			if !ctx.jsonOutput() {
				fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %d file(s)\n", len(paths))
			}
			return ctx.printState(cmd, handle, "", refreshErr)
		},
	}
}

func newTuneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tune INSTANCE_NAME",
		Short: "Start fine-tuning on the uploaded dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			instanceName, err := requireArg(args, "instance name")
			if err != nil {
				return err
			}
			handle, err := ctx.openSession(false)
			if err != nil {
				return err
			}
			defer handle.Close()

			refreshErr := refreshOnce(cmd.Context(), ctx, handle)
			runID, err := handle.session.Dispatcher().StartFineTuning(cmd.Context(), instanceName)
			if err != nil {
				return fmt.Errorf("tune: %w", err)
			}
			if !ctx.jsonOutput() {
				fmt.Fprintf(cmd.OutOrStdout(), "Fine-tuning queued (run %s)\n", valueOr(runID, "pending"))
			}
			return ctx.printState(cmd, handle, instanceName, refreshErr)
		},
	}
}

func newQueryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "query PROMPT",
		Short: "Generate an image from the tuned model",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := requireArg(args, "prompt")
			if err != nil {
				return err
			}
			handle, err := ctx.openSession(false)
			if err != nil {
				return err
			}
			defer handle.Close()

			refreshErr := refreshOnce(cmd.Context(), ctx, handle)
			url, err := handle.session.Dispatcher().QueryModel(cmd.Context(), prompt)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			if ctx.jsonOutput() {
				return ctx.printState(cmd, handle, "", refreshErr)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear the run and dataset so the workflow starts over",
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := ctx.openSession(false)
			if err != nil {
				return err
			}
			defer handle.Close()

			refreshErr := refreshOnce(cmd.Context(), ctx, handle)
			if err := handle.session.Dispatcher().Reset(cmd.Context()); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			if !ctx.jsonOutput() {
				fmt.Fprintln(cmd.OutOrStdout(), "Workflow reset")
			}
			return ctx.printState(cmd, handle, "", refreshErr)
		},
	}
}
