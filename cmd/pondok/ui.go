package main

import (
	"time"

	"Mansoor88-6/pondok-tracker/internal/tui"

	"github.com/spf13/cobra"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	interval := time.Duration(cfg.Client.PollInterval) * time.Second
	return tui.Run(cmd.Context(), agent, interval, log.Logger)
}
