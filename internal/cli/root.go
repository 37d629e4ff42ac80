// Package cli implements the kanso command tree. Running the binary with no
// subcommand starts the API server.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comitanigiacomo/kanso-tracker/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "kanso",
	Short: "Kanso habit tracker API",
	Long: `Kanso tracks habits and their check-ins and serves streaks, consistency,
goal progress and calendar heatmaps over a JSON API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (overrides "+config.ConfigPathEnvVar+")")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, configPath); err != nil {
			return nil, err
		}
	}
	return config.Load()
}
