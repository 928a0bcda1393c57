package main

import (
	"fmt"
	"time"

	"Mansoor88-6/pondok-tracker/internal/activation"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var activateCmd = &cobra.Command{
	Use:     "activate TOKEN",
	Short:   "Activate this device with a one-time token",
	Long:    `Exchange the one-time activation token shown on your dashboard for this device's credential.`,
	Example: `  pondok activate 8f2c1e`,
	Args:    cobra.ExactArgs(1),
	RunE:    runActivate,
}

func init() {
	rootCmd.AddCommand(activateCmd)
}

func runActivate(cmd *cobra.Command, args []string) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " Activating device..."
	s.Start()

	cred, err := activation.NewController(agent, log.Logger).Activate(cmd.Context(), args[0])
	s.Stop()
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen, color.Bold)
	green.Fprint(cmd.OutOrStdout(), "Activated")
	fmt.Fprintf(cmd.OutOrStdout(), " as %s\n", cred.DisplayName)
	return nil
}
