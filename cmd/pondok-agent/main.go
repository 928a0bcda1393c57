package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "pondok-agent",
	Short: "Pondok Tracker agent - samples the foreground application and syncs study sessions",
	Long: `The Pondok Tracker agent owns the device activation and the study session.
It samples the foreground application once per interval, detects idle time,
serves the local API used by the terminal UI and the CLI, and syncs activities
to the Pondok Informatika API.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runAgent,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/local.yaml", "Path to configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
