// Package main contains the entrypoint for the pushrouter service.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/edgard/pushrouter/internal/app"
	"github.com/edgard/pushrouter/internal/app/tasks"
	"github.com/edgard/pushrouter/internal/config"
	"github.com/edgard/pushrouter/internal/database"
	"github.com/edgard/pushrouter/internal/ingest"
	"github.com/edgard/pushrouter/internal/logger"
	"github.com/edgard/pushrouter/internal/notify"
	"github.com/edgard/pushrouter/internal/push"
	"github.com/edgard/pushrouter/internal/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until shutdown and returns the exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	presenter, err := notify.New(ctx, cfg.Notify, log)
	if err != nil {
		log.Error("Failed to initialize notification backends", "backends", cfg.Notify.Backends, "error", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessions := session.NewStoreProvider(store, log)
	router := push.NewRouter(push.Texts{
		MessageTitle:   cfg.Push.Texts.MessageTitle,
		MessageTicker:  cfg.Push.Texts.MessageTicker,
		FollowerTitle:  cfg.Push.Texts.FollowerTitle,
		FollowerTicker: cfg.Push.Texts.FollowerTicker,
	}, push.StaticNavigator{
		push.DestinationLogin:          cfg.Push.Navigation.Login,
		push.DestinationMain:           cfg.Push.Navigation.Main,
		push.DestinationMainWithThread: cfg.Push.Navigation.MainWithThread,
	})
	engine := push.NewEngine(store, router, push.Options{
		Enabled:    cfg.Push.Enabled,
		Session:    sessions,
		Presenter:  presenter,
		Deliveries: store,
		Logger:     log,
		Metrics:    push.NewMetrics(registry),
	})

	server := ingest.NewServer(cfg.Server, ingest.HandlerDeps{
		Logger:   log,
		Engine:   engine,
		Store:    store,
		Session:  sessions,
		Registry: registry,
	})

	sched, err := app.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	log.Info("Starting pushrouter...", "push_enabled", cfg.Push.Enabled)
	runErr := app.New(log, server, sched).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("pushrouter stopped due to error", "error", runErr)
		return 1
	}

	log.Info("pushrouter stopped gracefully.")
	return 0
}
