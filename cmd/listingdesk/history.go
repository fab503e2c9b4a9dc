// ABOUTME: history command: lists recent submissions from the local journal.
package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/2389-research/listingdesk/journal"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := a.openJournal()
			if err != nil {
				return err
			}
			if j == nil {
				return errors.New("the journal is disabled (journal.enabled: false)")
			}
			defer closeJournal(j, a.log)

			entries, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No submissions yet.")
				return nil
			}
			fmt.Fprintln(out, historyTable(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func historyTable(entries []journal.Entry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "ACTION", "SURFACE", "POST", "TITLE", "IMAGES", "RESULT")
	for _, e := range entries {
		result := "saved"
		if !e.OK {
			result = e.Message
		}
		t.Row(
			e.At.Local().Format("2006-01-02 15:04"),
			e.Action,
			e.Surface,
			orDash(e.ResourceID),
			orDash(e.Title),
			strconv.Itoa(e.Images),
			result,
		)
	}
	return t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
