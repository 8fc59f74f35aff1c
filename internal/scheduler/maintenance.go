// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/clubhouse/internal/logging"
)

// Job is a named unit of maintenance work run on a cron schedule.
type Job struct {
	Name     string
	Schedule string // Cron format: "*/15 * * * *", or a descriptor such as "@hourly"
	Run      func(ctx context.Context) error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether schedule parses as a cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// MaintenanceScheduler manages the periodic session purge and audit cleanup.
type MaintenanceScheduler struct {
	jobs   []Job
	logger logrus.FieldLogger

	cron       *cron.Cron
	entries    map[string]cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewMaintenanceScheduler creates a scheduler for jobs. Jobs with an empty
// schedule are skipped.
func NewMaintenanceScheduler(logger logrus.FieldLogger, jobs ...Job) *MaintenanceScheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &MaintenanceScheduler{
		jobs:    jobs,
		logger:  logger.WithField("component", "scheduler"),
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
	}
}

// Start registers every job and starts the cron loop. The scheduler stops
// when ctx is cancelled.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	s.ctx, s.cancelFunc = context.WithCancel(ctx)

	for _, job := range s.jobs {
		if job.Schedule == "" {
			s.logger.WithField("job", job.Name).Info("Maintenance job disabled")
			continue
		}
		if err := ValidateSchedule(job.Schedule); err != nil {
			s.cancelFunc()
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.Schedule, job.Name, err)
		}
		entryID, err := s.cron.AddFunc(job.Schedule, s.runner(job))
		if err != nil {
			s.cancelFunc()
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		s.entries[job.Name] = entryID
	}

	s.cron.Start()
	s.isRunning = true

	for name, id := range s.entries {
		s.logger.WithFields(logrus.Fields{
			"job":      name,
			"next_run": s.cron.Entry(id).Next,
		}).Info("Maintenance job scheduled")
	}

	cancelCtx := s.ctx
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

func (s *MaintenanceScheduler) runner(job Job) func() {
	return func() {
		s.mu.RLock()
		ctx := s.ctx
		s.mu.RUnlock()
		if ctx == nil || ctx.Err() != nil {
			return
		}

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			logging.LogError(s.logger, "Maintenance job failed", err, logrus.Fields{"job": job.Name})
			return
		}
		s.logger.WithFields(logrus.Fields{
			"job":      job.Name,
			"duration": time.Since(start).String(),
		}).Debug("Maintenance job finished")
	}
}

// Stop gracefully stops the scheduler, waiting for running jobs to complete.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.mu.Unlock()

	// Running jobs take the read lock, so wait outside of it.
	stopped := s.cron.Stop()
	<-stopped.Done()
	cancel()

	s.logger.Info("Maintenance scheduler stopped")
}

// IsRunning returns whether the scheduler is active
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the named job will run next.
func (s *MaintenanceScheduler) NextRun(name string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.entries[name]
	if !ok || !s.isRunning {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}
