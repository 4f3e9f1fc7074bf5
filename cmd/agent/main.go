package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wso2/task-platform/sync-agent/pkg/api/handlers"
	"github.com/wso2/task-platform/sync-agent/pkg/backend"
	"github.com/wso2/task-platform/sync-agent/pkg/config"
	"github.com/wso2/task-platform/sync-agent/pkg/constants"
	"github.com/wso2/task-platform/sync-agent/pkg/logger"
	"github.com/wso2/task-platform/sync-agent/pkg/metrics"
	"github.com/wso2/task-platform/sync-agent/pkg/realtime"
	"github.com/wso2/task-platform/sync-agent/pkg/session"
	"github.com/wso2/task-platform/sync-agent/pkg/storage"
	"github.com/wso2/task-platform/sync-agent/pkg/stream"
	"github.com/wso2/task-platform/sync-agent/pkg/telemetry"
	"go.uber.org/zap"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (TOML)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger with config
	log, err := logger.NewLogger(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting task sync agent",
		zap.String("version", version),
		zap.String("config_file", *configPath),
		zap.String("backend_url", cfg.Backend.BaseURL),
		zap.String("storage_type", cfg.Storage.Type),
		zap.Strings("channels", cfg.Realtime.Channels),
	)

	// Metrics must be configured before any collector is touched
	metrics.SetEnabled(cfg.Metrics.Enabled)
	metrics.Init()
	metrics.Up.Set(1)
	metrics.Info.WithLabelValues(version, cfg.Storage.Type).Set(1)

	// Durable agent storage
	var db storage.Storage
	if cfg.IsPersistentMode() {
		log.Info("Initializing SQLite storage", zap.String("path", cfg.Storage.SQLite.Path))
		db, err = storage.NewSQLiteStorage(cfg.Storage.SQLite.Path, log)
		if err != nil {
			log.Fatal("Failed to initialize SQLite database", zap.Error(err))
		}
	} else {
		log.Info("Running in memory-only mode (session does not survive restarts)")
		db = storage.NewMemoryStorage()
	}
	defer db.Close()

	// Session credentials, restored from durable storage
	creds := session.NewStore(db, cfg.Session.LogoutWindow, log)

	// Live task view, restored from the last persisted snapshot
	taskStore := storage.NewTaskStore()
	taskStore.SetChangeListener(func(op storage.ChangeOp, taskID int64) {
		metrics.StoreMutationsTotal.WithLabelValues(string(op)).Inc()
		metrics.TasksCached.Set(float64(taskStore.Len()))
	})
	if tasks, err := db.LoadTaskSnapshot(); err != nil {
		log.Warn("Failed to load task snapshot", zap.Error(err))
	} else if len(tasks) > 0 {
		taskStore.ReplaceAll(tasks)
		log.Info("Restored task snapshot", zap.Int("count", len(tasks)))
	}

	// Telemetry sink, fire-and-forget
	tel := telemetry.NewClient(&cfg.Telemetry, log)

	// Local fan-out hub for UI subscribers
	hub := stream.NewHub(log)

	// One cookie jar rides both the HTTP client and the websocket
	// dialer, so the channel handshake carries the session cookie.
	jar, err := cookiejar.New(nil)
	if err != nil {
		log.Fatal("Failed to create cookie jar", zap.Error(err))
	}

	// The registry is wired below; the terminal callback captures it
	// through this pointer.
	var registry *realtime.Registry

	client := backend.NewClient(backend.Options{
		Config:      cfg.Backend,
		Credentials: creds,
		Logger:      log,
		Jar:         jar,
		OnSessionTerminal: func(reason string) {
			// The daemon rendition of "navigate to the login page":
			// drop everything a stale session could resurrect and
			// tell local subscribers to re-authenticate.
			creds.Clear()
			taskStore.Reset()
			if registry != nil {
				registry.DisconnectAll()
			}
			if frame, err := realtime.NewEventFrame(
				constants.FrameTypeSession, constants.EventExpired,
				map[string]string{"reason": reason}); err == nil {
				hub.Broadcast(frame)
			}
			tel.Log("warn", "session terminated", map[string]string{
				"component": "backend",
				"reason":    reason,
			})
		},
	})

	wsBase, err := cfg.Backend.WebSocketBaseURL()
	if err != nil {
		log.Fatal("Failed to derive websocket URL", zap.Error(err))
	}

	dispatcher := realtime.NewDispatcher(taskStore, creds, hub, log)
	registry = realtime.NewRegistry(realtime.RegistryOptions{
		BaseURL:            wsBase,
		Jar:                jar,
		InsecureSkipVerify: cfg.Backend.InsecureSkipVerify,
		Handler:            dispatcher,
	}, cfg.Realtime, log)

	// Metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(&cfg.Metrics, log)
		if err := metricsServer.Start(); err != nil {
			log.Fatal("Failed to start metrics server", zap.Error(err))
		}
	}
	memCtx, memCancel := context.WithCancel(context.Background())
	defer memCancel()
	metrics.StartMemoryMetricsUpdater(memCtx, 15*time.Second)

	// Local HTTP API
	apiServer := handlers.NewAPIServer(taskStore, client, creds, registry, hub, log)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Agent.Host, cfg.Agent.Port),
		Handler: apiServer.Router(),
	}
	go func() {
		log.Info("Starting local API server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Local API server failed", zap.Error(err))
		}
	}()

	// Configured channels connect immediately; frames for an unknown
	// actor pass through unsuppressed until the identity resolves.
	for _, channel := range cfg.Realtime.Channels {
		registry.Connect(channel)
	}

	// Best-effort initial sync when a session survived the restart
	if creds.HasSession() {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.RequestTimeout)
			defer cancel()

			if _, err := client.Identify(ctx); err != nil {
				log.Warn("Restored session could not be verified", zap.Error(err))
				return
			}
			tasks, err := client.ListTasks(ctx)
			if err != nil {
				log.Warn("Initial task sync failed", zap.Error(err))
				return
			}
			taskStore.ReplaceAll(tasks)
			log.Info("Initial task sync complete", zap.Int("count", len(tasks)))
		}()
	}

	tel.Log("info", "sync agent started", map[string]string{
		"component": "agent",
		"version":   version,
	})

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")
	metrics.Up.Set(0)

	// Channels first so no frame mutates the store mid-teardown
	registry.DisconnectAll()
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Agent.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Local API server forced to shutdown", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}

	persistSnapshot(db, taskStore, log)

	tel.Log("info", "sync agent stopped", map[string]string{"component": "agent"})
	tel.Wait()

	log.Info("Shutdown complete")
}

// persistSnapshot writes the live task view to durable storage so the
// next start renders immediately while the first sync runs.
func persistSnapshot(db storage.Storage, taskStore *storage.TaskStore, log *zap.Logger) {
	start := time.Now()
	if err := db.SaveTaskSnapshot(taskStore.Snapshot()); err != nil {
		metrics.ErrorsTotal.WithLabelValues("storage", "snapshot_persist").Inc()
		log.Error("Failed to persist task snapshot", zap.Error(err))
		return
	}
	metrics.SnapshotPersistDurationSeconds.Observe(time.Since(start).Seconds())
	log.Info("Task snapshot persisted", zap.Int("count", taskStore.Len()))
}
