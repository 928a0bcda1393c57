package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Mansoor88-6/pondok-tracker/internal/agent"
	"Mansoor88-6/pondok-tracker/internal/client"
	"Mansoor88-6/pondok-tracker/internal/collector"
	"Mansoor88-6/pondok-tracker/internal/config"
	"Mansoor88-6/pondok-tracker/internal/database"
	"Mansoor88-6/pondok-tracker/internal/device"
	"Mansoor88-6/pondok-tracker/internal/handler"
	"Mansoor88-6/pondok-tracker/internal/logger"
	"Mansoor88-6/pondok-tracker/internal/platform"
	"Mansoor88-6/pondok-tracker/internal/queue"
	"Mansoor88-6/pondok-tracker/internal/repository"
	"Mansoor88-6/pondok-tracker/internal/router"
	"Mansoor88-6/pondok-tracker/internal/server"
	"Mansoor88-6/pondok-tracker/internal/systemd"
	"Mansoor88-6/pondok-tracker/internal/tracker"
	"Mansoor88-6/pondok-tracker/internal/tray"
	"Mansoor88-6/pondok-tracker/internal/usage"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout    = 5 * time.Second
	urlCleanupInterval = 10 * time.Second
)

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func runAgent(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("Starting Pondok Tracker agent",
		zap.String("version", version),
		zap.String("env", cfg.Env),
		zap.String("config_path", configPath),
	)

	// Initialize database
	db, err := database.New(cfg.StoragePath, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize platform
	platformInstance, err := platform.NewPlatform()
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize platform: %w", err)
	}

	identity := device.NewResolver(platformInstance).Resolve(cfg.Device.ID, cfg.Device.Name)
	log.Info("Device identified",
		zap.String("device_id", identity.ID),
		zap.String("device_name", identity.Name),
		zap.String("os", identity.OS),
	)

	apiClient := client.NewAPIClient(cfg.Backend.BaseURL, seconds(cfg.Backend.Timeout), log.Logger)

	categorizer, err := usage.NewCategorizer(nil, nil, 0)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize categorizer: %w", err)
	}

	// Browser extension URL reports
	var urlStore *agent.URLStore
	var urlHandler *handler.URLHandler
	if cfg.Agent.ExtensionEnabled {
		urlStore = agent.NewURLStore(seconds(cfg.Agent.URLStoreTTL), agent.RealClock{}, log.Logger)
		urlStore.Start(urlCleanupInterval)
		urlHandler = handler.NewURLHandler(urlStore, log.Logger)
	} else {
		log.Info("Browser extension endpoint disabled in configuration")
	}

	windowTracker := tracker.NewWindowTracker(platformInstance, seconds(cfg.Tracking.WindowPollInterval), log.Logger)
	activityTracker := tracker.NewActivityTracker(
		platformInstance,
		seconds(cfg.Tracking.IdleThreshold),
		seconds(cfg.Tracking.SampleInterval),
		log.Logger,
	)

	engine := agent.NewEngine(
		apiClient,
		repository.NewActivationRepository(db.DB),
		windowTracker,
		activityTracker,
		categorizer,
		collector.NewActivityCollector(cfg.Tracking.BatchSize, seconds(cfg.Tracking.BatchFlushInterval), log.Logger),
		queue.NewActivityQueue(db.DB, log.Logger),
		urlStore, // nil when the extension endpoint is disabled
		identity,
		agent.Options{
			SampleInterval:     seconds(cfg.Tracking.SampleInterval),
			HeartbeatInterval:  seconds(cfg.Tracking.HeartbeatInterval),
			QueueRetryInterval: seconds(cfg.Tracking.QueueRetryInterval),
			AgentVersion:       cfg.Backend.AgentVersion,
		},
		agent.RealClock{},
		log.Logger,
	)
	if err := engine.Restore(); err != nil {
		db.Close()
		return err
	}

	// A window switch counts as user activity
	windowTracker.Start(func(w *platform.WindowInfo) {
		activityTracker.RecordActivity()
	})
	activityTracker.Start(func(s tracker.ActivityState) {
		log.Info("Activity state changed", zap.String("state", string(s)))
	})
	engine.Start()

	// Local API
	h := router.New(
		handler.NewTrackingHandler(engine, log.Logger),
		router.Options{Metrics: cfg.Metrics.Enabled, URLs: urlHandler},
		log.Logger,
	)
	srv := server.New(cfg.AgentAddr(), h, log.Logger)

	ln, err := systemd.Listener()
	if err != nil {
		log.Warn("Ignoring systemd socket activation", zap.Error(err))
	}
	if ln != nil {
		log.Info("Using socket-activated listener")
		srv.Serve(ln)
	} else if err := srv.Start(); err != nil {
		stopErr := shutdown(log, nil, windowTracker, activityTracker, engine, urlStore, db)
		return multierror.Append(err, stopErr).ErrorOrNil()
	}

	if err := systemd.NotifyReady(); err != nil {
		log.Warn("Failed to notify systemd", zap.Error(err))
	}

	log.Info("Pondok Tracker agent started",
		zap.String("device_id", identity.ID),
		zap.String("address", srv.Addr()),
		zap.String("backend_url", cfg.Backend.BaseURL),
	)

	waitForShutdown(cfg, platformInstance, log)

	if err := systemd.NotifyStopping(); err != nil {
		log.Warn("Failed to notify systemd", zap.Error(err))
	}
	log.Info("Shutting down Pondok Tracker agent...")

	if err := shutdown(log, srv, windowTracker, activityTracker, engine, urlStore, db); err != nil {
		log.Error("Shutdown finished with errors", zap.Error(err))
		return err
	}

	log.Info("Pondok Tracker agent stopped")
	return nil
}

// waitForShutdown blocks until a signal arrives or, with the tray enabled,
// the user picks "Quit"
func waitForShutdown(cfg *config.Config, p platform.Platform, log *logger.Logger) {
	done := make(chan struct{})
	var once sync.Once
	requestShutdown := func() {
		once.Do(func() { close(done) })
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	go func() {
		select {
		case sig := <-quit:
			log.Info("Received shutdown signal", zap.String("signal", sig.String()))
			requestShutdown()
		case <-done:
		}
	}()

	if !cfg.Tray.Enabled {
		<-done
		return
	}

	t := tray.New(cfg.Tray.DashboardURL, p.OpenBrowser, requestShutdown, log.Logger)
	go func() {
		<-done
		t.Quit()
	}()
	t.Run()
	requestShutdown()
}

// shutdown stops components in reverse start order and collects every error.
// srv may be nil when the API never started.
func shutdown(
	log *logger.Logger,
	srv *server.Server,
	windowTracker *tracker.WindowTracker,
	activityTracker *tracker.ActivityTracker,
	engine *agent.Engine,
	urlStore *agent.URLStore,
	db *database.DB,
) error {
	var result *multierror.Error

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}

	windowTracker.Stop()
	activityTracker.Stop()

	// The engine flushes unsynced activities to the local queue
	done := make(chan error, 1)
	go func() {
		done <- engine.Stop()
	}()
	select {
	case err := <-done:
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to stop engine: %w", err))
		}
	case <-ctx.Done():
		result = multierror.Append(result, fmt.Errorf("timed out stopping engine"))
	}

	if urlStore != nil {
		urlStore.Stop()
	}

	if err := db.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close database: %w", err))
	}

	return result.ErrorOrNil()
}
