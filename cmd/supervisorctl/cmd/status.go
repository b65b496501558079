package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the supervisor status and every worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		if IsJSONOutput() {
			return printJSON(cmd.OutOrStdout(), st)
		}
		renderStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func renderStatus(w io.Writer, st *types.SupervisorStatus) {
	fmt.Fprintf(w, "Instance:   %s\n", st.InstanceID)
	fmt.Fprintf(w, "Running:    %t\n", st.Running)
	fmt.Fprintf(w, "Dependency: %s\n", upDown(!st.DependencyDown))
	fmt.Fprintf(w, "Emergency:  %s\n", activeClear(st.EmergencyActive))
	if len(st.DisabledSources) > 0 {
		fmt.Fprintf(w, "Disabled:   %s\n", strings.Join(st.DisabledSources, ", "))
	}
	fmt.Fprintln(w)

	if len(st.Workers) == 0 {
		fmt.Fprintln(w, "No workers registered")
		return
	}

	names := make([]string, 0, len(st.Workers))
	for name := range st.Workers {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.Header("Worker", "Criticality", "Status", "Silent", "Missed")
	for _, name := range names {
		ws := st.Workers[name]
		table.Append(
			name,
			string(ws.Criticality),
			ws.Status,
			fmt.Sprintf("%.0fs", ws.SecondsSinceLastSeen),
			fmt.Sprintf("%d", ws.MissedBeats),
		)
	}
	table.Render()
}

func upDown(up bool) string {
	if up {
		return "up"
	}
	return "DOWN"
}

func activeClear(active bool) string {
	if active {
		return "ACTIVE"
	}
	return "clear"
}
