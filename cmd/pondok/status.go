package main

import (
	"fmt"
	"strings"

	"Mansoor88-6/pondok-tracker/internal/session"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "Show the applications used most in the current session",
	Args:  cobra.NoArgs,
	RunE:  runApps,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(appsCmd)
}

func statusColor(s session.Status) *color.Color {
	switch s {
	case session.StatusActive:
		return color.New(color.FgGreen, color.Bold)
	case session.StatusIdle:
		return color.New(color.FgYellow, color.Bold)
	case session.StatusPaused:
		return color.New(color.FgCyan, color.Bold)
	default:
		return color.New(color.Bold)
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	machine, err := syncedMachine(cmd.Context())
	if err != nil {
		return err
	}
	st := machine.Snapshot()
	out := cmd.OutOrStdout()

	fmt.Fprint(out, "Status:       ")
	statusColor(st.Status).Fprintln(out, strings.ToUpper(string(st.Status)))
	if st.SessionID != nil {
		fmt.Fprintf(out, "Session:      #%d\n", *st.SessionID)
	}
	fmt.Fprintf(out, "Elapsed:      %s\n", session.FormatDuration(st.ElapsedSeconds))
	fmt.Fprintf(out, "Productive:   %s\n", session.FormatDuration(st.ProductiveSeconds))
	fmt.Fprintf(out, "Idle:         %s\n", session.FormatDuration(st.IdleSeconds))
	fmt.Fprintf(out, "Productivity: %d%%\n", st.ProductivityPercent())
	if st.CurrentApp != "" {
		fmt.Fprintf(out, "Current app:  %s\n", st.CurrentApp)
	}
	if machine.Phase().IsAwaitingReport() {
		color.New(color.FgYellow).Fprintln(out, "Report pending, submit it with: pondok end --result TEXT")
	}
	return nil
}

func runApps(cmd *cobra.Command, args []string) error {
	machine, err := syncedMachine(cmd.Context())
	if err != nil {
		return err
	}

	ranked := machine.Ranking()
	if len(ranked) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No application usage recorded yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Application", "Category", "Time", "Share"})
	for i, r := range ranked {
		t.AppendRow(table.Row{
			i + 1,
			r.Name,
			indicatorText(r.Indicator).Sprint(r.Category),
			session.FormatDuration(r.DurationSeconds),
			fmt.Sprintf("%.0f%%", r.Fraction*100),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
	return nil
}

func indicatorText(i usage.Indicator) text.Colors {
	switch i {
	case usage.IndicatorSuccess:
		return text.Colors{text.FgGreen}
	case usage.IndicatorDanger:
		return text.Colors{text.FgRed}
	default:
		return text.Colors{text.FgHiBlack}
	}
}
