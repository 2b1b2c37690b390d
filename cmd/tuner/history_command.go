package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tuner/internal/journal"
	"tuner/internal/workflow"
)

type historyEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var allUsers bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently dispatched workflow actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, userID, err := ctx.openJournal(allUsers)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.List(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				entries := make([]historyEntry, 0, len(records))
				for _, rec := range records {
					entries = append(entries, historyEntry{
						ID:         rec.ID,
						UserID:     rec.UserID,
						Action:     string(rec.Action),
						Outcome:    rec.Outcome,
						Detail:     rec.Detail,
						StartedAt:  rec.StartedAt,
						FinishedAt: rec.FinishedAt,
					})
				}
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No actions recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(records, allUsers))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultLimit, "Maximum number of actions to show")
	cmd.Flags().BoolVar(&allUsers, "all", false, "Include actions for every user")
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the action history for the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, userID, err := ctx.openJournal(false)
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Clear(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d action(s) for %s\n", removed, userID)
			return nil
		},
	}
}

func (c *commandContext) openJournal(allUsers bool) (*journal.Store, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	userID := ""
	if !allUsers {
		if err := cfg.RequireUser(); err != nil {
			return nil, "", err
		}
		userID = cfg.User.ID
	}
	store, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, "", fmt.Errorf("open action journal: %w", err)
	}
	return store, userID, nil
}

func renderHistoryTable(records []workflow.ActionRecord, withUser bool) string {
	headers := []string{"Started", "Action", "Outcome", "Duration", "Detail"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	if withUser {
		headers = append([]string{"User"}, headers...)
		aligns = append([]columnAlignment{alignLeft}, aligns...)
	}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		duration := "-"
		if !rec.FinishedAt.IsZero() && !rec.StartedAt.IsZero() {
			duration = rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond).String()
		}
		row := []string{
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			string(rec.Action),
			strings.ToUpper(rec.Outcome),
			duration,
			valueOr(rec.Detail, "-"),
		}
		if withUser {
			row = append([]string{rec.UserID}, row...)
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, aligns, 60)
}
