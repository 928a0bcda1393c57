package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	reportResult   string
	reportObstacle string
)

var startCmd = &cobra.Command{
	Use:     "start PLAN",
	Short:   "Start a study session",
	Example: `  pondok start "Belajar goroutine dan channel"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runStart,
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running session",
	Args:  cobra.NoArgs,
	RunE:  runPause,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused session",
	Args:  cobra.NoArgs,
	RunE:  runResume,
}

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "End the session and submit the report",
	Long: `End the running session and attach the end-of-session report.
The result is required; the obstacle is optional.

If the session was already ended and its report is still pending, for
example because an earlier submit failed, only the report is sent.`,
	Example: `  pondok end --result "Selesai bab 3" --obstacle "Internet putus"`,
	Args:    cobra.NoArgs,
	RunE:    runEnd,
}

func init() {
	endCmd.Flags().StringVarP(&reportResult, "result", "r", "", "What was achieved (required)")
	endCmd.Flags().StringVarP(&reportObstacle, "obstacle", "o", "", "What got in the way")
	endCmd.MarkFlagRequired("result")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(endCmd)
}

func done(cmd *cobra.Command, format string, args ...interface{}) {
	color.New(color.FgGreen, color.Bold).Fprint(cmd.OutOrStdout(), "✓ ")
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

func runStart(cmd *cobra.Command, args []string) error {
	machine, err := syncedMachine(cmd.Context())
	if err != nil {
		return err
	}
	if err := machine.Start(cmd.Context(), strings.Join(args, " ")); err != nil {
		return err
	}
	st := machine.Snapshot()
	done(cmd, "Session #%d started", *st.SessionID)
	return nil
}

func runPause(cmd *cobra.Command, args []string) error {
	machine, err := syncedMachine(cmd.Context())
	if err != nil {
		return err
	}
	if err := machine.Pause(cmd.Context()); err != nil {
		return err
	}
	done(cmd, "Session paused")
	return nil
}

func runResume(cmd *cobra.Command, args []string) error {
	machine, err := syncedMachine(cmd.Context())
	if err != nil {
		return err
	}
	if err := machine.Resume(cmd.Context()); err != nil {
		return err
	}
	done(cmd, "Session resumed")
	return nil
}

func runEnd(cmd *cobra.Command, args []string) error {
	if strings.TrimSpace(reportResult) == "" {
		return fmt.Errorf("--result must not be blank")
	}

	machine, err := syncedMachine(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := machine.Snapshot().ElapsedSeconds

	if machine.Phase().IsAwaitingReport() {
		if err := machine.Submit(cmd.Context(), reportResult, &reportObstacle); err != nil {
			return fmt.Errorf("the report was not saved, run \"pondok end\" again to retry: %w", err)
		}
		done(cmd, "Report submitted for the session of %s", formatElapsed(elapsed))
		return nil
	}

	if err := machine.End(cmd.Context()); err != nil {
		return err
	}
	if err := machine.Submit(cmd.Context(), reportResult, &reportObstacle); err != nil {
		return fmt.Errorf("session ended but the report was not saved, run \"pondok end\" again to retry: %w", err)
	}
	done(cmd, "Session ended after %s", formatElapsed(elapsed))
	return nil
}

func formatElapsed(seconds int64) string {
	h, m := seconds/3600, (seconds%3600)/60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
