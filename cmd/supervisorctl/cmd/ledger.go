package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger [source]",
	Short: "Show the health ledger, or a single source",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		var entries []types.LedgerEntry
		if len(args) == 1 {
			entry, err := c.LedgerEntry(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get ledger entry: %w", err)
			}
			entries = []types.LedgerEntry{*entry}
		} else {
			entries, err = c.Ledger(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get ledger: %w", err)
			}
		}

		if IsJSONOutput() {
			return printJSON(cmd.OutOrStdout(), entries)
		}
		renderLedger(cmd.OutOrStdout(), entries)
		return nil
	},
}

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the latest audit records",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		records, err := c.Audit(cmd.Context(), auditLimit)
		if err != nil {
			return fmt.Errorf("failed to get audit trail: %w", err)
		}

		if IsJSONOutput() {
			return printJSON(cmd.OutOrStdout(), records)
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No audit records")
			return nil
		}

		table := tablewriter.NewWriter(cmd.OutOrStdout())
		table.Header("Time", "Source", "Category", "Weight", "Content")
		for _, r := range records {
			table.Append(r.Timestamp.Local().Format(time.DateTime), r.Source, r.Category, fmt.Sprintf("%d", r.SeverityWeight), r.Content)
		}
		table.Render()
		return nil
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "number of records to show")
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(auditCmd)
}

func renderLedger(w io.Writer, entries []types.LedgerEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Ledger is empty")
		return
	}

	table := tablewriter.NewWriter(w)
	table.Header("Source", "Score", "Crashes", "Chronic", "Updated")
	for _, e := range entries {
		chronic := "no"
		if e.ChronicIssue {
			chronic = "yes"
		}
		table.Append(
			e.Name,
			fmt.Sprintf("%d", e.HealthScore),
			fmt.Sprintf("%d", e.CrashCount),
			chronic,
			e.LastUpdated.Local().Format(time.DateTime),
		)
	}
	table.Render()
}
