package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var emergencyCmd = &cobra.Command{
	Use:   "emergency",
	Short: "Set or clear the global emergency stop",
}

var emergencyStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Request an emergency stop",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.EmergencyStop(cmd.Context()); err != nil {
			return fmt.Errorf("failed to request emergency stop: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Emergency stop requested")
		return nil
	},
}

var emergencyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the emergency stop",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.EmergencyClear(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear emergency stop: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Emergency stop cleared")
		return nil
	},
}

func init() {
	emergencyCmd.AddCommand(emergencyStopCmd)
	emergencyCmd.AddCommand(emergencyClearCmd)
	rootCmd.AddCommand(emergencyCmd)
}
