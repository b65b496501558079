package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/masa-finance/liveness-supervisor/pkg/client"
)

const defaultSupervisorURL = "http://localhost:8080"

var (
	supervisorURL string
	outputFormat  string
	cfgFile       string
	apiKey        string
	timeout       time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "supervisorctl",
	Short:         "CLI for the liveness supervisor",
	Long:          `supervisorctl inspects a running liveness supervisor: worker status, the health ledger, the audit trail and the emergency stop.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.supervisorctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&supervisorURL, "url", "", "supervisor API URL (default from config or "+defaultSupervisorURL+")")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key (default from config or SUPERVISOR_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "table", "output format: table or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".supervisorctl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	_ = viper.BindEnv("url", "SUPERVISOR_URL")
	_ = viper.BindEnv("api_key", "SUPERVISOR_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}

	if supervisorURL == "" {
		supervisorURL = viper.GetString("url")
	}
	if apiKey == "" {
		apiKey = viper.GetString("api_key")
	}
	if supervisorURL == "" {
		supervisorURL = defaultSupervisorURL
	}
}

// newClient builds an API client from the global flags.
func newClient() (*client.Client, error) {
	opts := []client.Option{client.Timeout(timeout)}
	if apiKey != "" {
		opts = append(opts, client.APIKey(apiKey))
	}
	return client.NewClient(strings.TrimRight(supervisorURL, "/"), opts...)
}

// IsJSONOutput returns true if JSON output is requested
func IsJSONOutput() bool {
	return outputFormat == "json"
}

func printJSON(w io.Writer, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(w, string(output))
	return nil
}
