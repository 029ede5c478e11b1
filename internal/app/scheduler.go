package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/edgard/pushrouter/internal/app/tasks"
	"github.com/edgard/pushrouter/internal/config"
)

// Scheduler manages scheduled tasks using the gocron library.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]tasks.ScheduledTaskFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a new scheduler instance using gocron.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]tasks.ScheduledTaskFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules every enabled task and starts the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduledCount := 0
	if s.cfg == nil || len(s.cfg.Tasks) == 0 {
		s.logger.Warn("No scheduler tasks configured.")
	} else {
		for taskName, taskConfig := range s.cfg.Tasks {
			if !taskConfig.Enabled {
				s.logger.Info("Skipping disabled task", "task_name", taskName)
				continue
			}

			taskFunc, exists := s.taskMap[taskName]
			if !exists {
				s.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
				continue
			}

			_, err := s.scheduler.NewJob(
				gocron.CronJob(taskConfig.Schedule, true),
				gocron.NewTask(s.wrap(taskFunc), taskName),
				gocron.WithName(taskName),
				gocron.WithSingletonMode(gocron.LimitModeReschedule),
			)
			if err != nil {
				s.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
				continue
			}

			s.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule)
			scheduledCount++
		}
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler initialized and started", "tasks_scheduled", scheduledCount)
	return nil
}

// wrap adds timing and error logging around a task. gocron injects the job
// context as the first argument.
func (s *Scheduler) wrap(taskFunc tasks.ScheduledTaskFunc) func(ctx context.Context, name string) {
	return func(ctx context.Context, name string) {
		s.logger.InfoContext(ctx, "Running scheduled task", "task_name", name)
		startTime := time.Now()
		if err := taskFunc(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled task failed", "task_name", name, "error", err)
		}
		s.logger.InfoContext(ctx, "Finished scheduled task", "task_name", name, "duration", time.Since(startTime))
	}
}

// Jobs returns the names of the scheduled jobs.
func (s *Scheduler) Jobs() []string {
	jobs := s.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}

// Stop stops the scheduler, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Info("Scheduler is not running, nothing to stop.")
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
