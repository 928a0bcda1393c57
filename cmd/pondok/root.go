package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Mansoor88-6/pondok-tracker/internal/activation"
	"Mansoor88-6/pondok-tracker/internal/apperrors"
	"Mansoor88-6/pondok-tracker/internal/backend"
	"Mansoor88-6/pondok-tracker/internal/config"
	"Mansoor88-6/pondok-tracker/internal/logger"
	"Mansoor88-6/pondok-tracker/internal/session"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
	verbose    bool

	cfg   *config.Config
	log   *logger.Logger
	agent *backend.HTTPClient
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pondok",
	Short: "Pondok Tracker - study session tracking for Pondok Informatika students",
	Long: `Pondok Tracker records how a study session is spent. Activate the device
with the token from your dashboard, start a session with a study plan and
end it with a short report. The tracking agent must be running.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := "warn"
		if verbose {
			level = "debug"
		}
		log, err = logger.New(level, "console")
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		agent = backend.NewHTTPClient(
			cfg.Client.AgentURL,
			time.Duration(cfg.Client.Timeout)*time.Second,
			log.Logger,
		)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the terminal UI when no subcommand is provided
		return runUI(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/local.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to the tracking agent")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if log != nil {
		log.Sync()
	}
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, apperrors.UserMessage(err))
		os.Exit(1)
	}
}

// syncedMachine restores the activation held by the agent and returns a
// state machine reconciled with the agent's current session
func syncedMachine(ctx context.Context) (*session.Machine, error) {
	cred, ok, err := activation.NewController(agent, log.Logger).Restore(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("device is not activated, run \"pondok activate TOKEN\" first")
	}

	machine := session.NewMachine(agent, cred, log.Logger)
	loop := session.NewLoop(machine, 0, log.Logger)
	if err := loop.Tick(ctx); err != nil {
		return nil, err
	}
	return machine, nil
}
