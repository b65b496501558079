package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

var heartbeatStatus string

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat <worker>",
	Short: "Send a heartbeat on behalf of a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.SendHeartbeat(cmd.Context(), args[0], heartbeatStatus); err != nil {
			return fmt.Errorf("failed to send heartbeat: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat sent for %s\n", args[0])
		return nil
	},
}

var registerCriticality string

var registerCmd = &cobra.Command{
	Use:   "register <worker>",
	Short: "Register a remote worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		criticality, err := types.ParseCriticality(registerCriticality)
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.Register(cmd.Context(), args[0], criticality); err != nil {
			return fmt.Errorf("failed to register worker: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s as %s\n", args[0], criticality)
		return nil
	},
}

func init() {
	heartbeatCmd.Flags().StringVar(&heartbeatStatus, "status", "alive", "status to report (alive, resting, ...)")
	registerCmd.Flags().StringVar(&registerCriticality, "criticality", string(types.CriticalityStandard), "VITAL, IMPORTANT or STANDARD")
	rootCmd.AddCommand(heartbeatCmd)
	rootCmd.AddCommand(registerCmd)
}
