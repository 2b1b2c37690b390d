package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tuner/internal/logging"
	"tuner/internal/workflow"
)

type statusPayload struct {
	UserID       string   `json:"user_id"`
	Ready        bool     `json:"ready"`
	Phase        string   `json:"phase"`
	DatasetRef   string   `json:"dataset,omitempty"`
	RunID        string   `json:"run_id,omitempty"`
	RunStatus    string   `json:"run_status"`
	ModelID      string   `json:"model_id,omitempty"`
	ModelHealth  string   `json:"model_health"`
	ImageURL     string   `json:"image_url,omitempty"`
	UploadOK     bool     `json:"upload_enabled"`
	TuneOK       bool     `json:"tune_enabled"`
	QueryOK      bool     `json:"query_enabled"`
	InFlight     []string `json:"in_flight,omitempty"`
	RefreshError string   `json:"refresh_error,omitempty"`
}

func buildStatusPayload(userID string, state workflow.State, instanceName string, refreshErr error) statusPayload {
	view := state.View(instanceName)
	payload := statusPayload{
		UserID:      userID,
		Ready:       view.Ready,
		Phase:       view.Phase.String(),
		DatasetRef:  state.Snapshot.Job.DatasetRef,
		RunID:       state.Snapshot.Job.RunID,
		RunStatus:   view.Status.String(),
		ModelID:     state.Snapshot.Model.ModelID,
		ModelHealth: state.Snapshot.Model.Health.String(),
		ImageURL:    state.ImageURL,
		UploadOK:    view.UploadEnabled,
		TuneOK:      view.TuneEnabled,
		QueryOK:     view.QueryEnabled,
		InFlight:    busyActions(view),
	}
	if refreshErr != nil {
		payload.RefreshError = refreshErr.Error()
	}
	return payload
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var instanceName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Refresh job and model status and show the workflow phase",
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, err := ctx.openSession(false)
			if err != nil {
				return err
			}
			defer handle.Close()

			refreshErr := refreshOnce(cmd.Context(), ctx, handle)
			return ctx.printState(cmd, handle, instanceName, refreshErr)
		},
	}
	cmd.Flags().StringVar(&instanceName, "instance", "", "Instance name used to evaluate tune availability")
	return cmd
}

// refreshOnce runs one job and one model refresh. Failures are logged and
// returned so callers can report them without aborting.
func refreshOnce(parent context.Context, ctx *commandContext, handle *sessionHandle) error {
	err := handle.session.Refresh(parent)
	if err != nil {
		ctx.loggerValue().Debug("status refresh failed", logging.Error(err))
	}
	return err
}

func (c *commandContext) printState(cmd *cobra.Command, handle *sessionHandle, instanceName string, refreshErr error) error {
	state := handle.session.Store().State()
	userID := handle.session.UserID()
	if c.jsonOutput() {
		return writeJSON(cmd, buildStatusPayload(userID, state, instanceName, refreshErr))
	}
	out := cmd.OutOrStdout()
	writeLines(out, renderState(userID, state, instanceName, shouldColorize(out)))
	if refreshErr != nil {
		fmt.Fprintf(out, "%s\n", renderStatusLine("Refresh", statusError, refreshErr.Error(), shouldColorize(out)))
	}
	return nil
}
