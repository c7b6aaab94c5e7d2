// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/mrlokans/cookbook/internal/logger"
	"github.com/mrlokans/cookbook/internal/uploads"
)

// DefaultSweepSchedule runs the sweep nightly at 03:00.
const DefaultSweepSchedule = "0 3 * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Sweeper removes orphaned uploads.
type Sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (uploads.SweepResult, error)
}

// MaintenanceAuditor records the outcome of each sweep.
type MaintenanceAuditor interface {
	LogMaintenance(action, description string, counts map[string]int, err error)
}

// UploadSweepScheduler periodically deletes uploads no record references.
type UploadSweepScheduler struct {
	sweeper  Sweeper
	auditor  MaintenanceAuditor
	schedule string
	log      zerolog.Logger

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewUploadSweepScheduler creates a new scheduler instance. auditor may be nil.
func NewUploadSweepScheduler(sweeper Sweeper, auditor MaintenanceAuditor, schedule string) *UploadSweepScheduler {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &UploadSweepScheduler{
		sweeper:  sweeper,
		auditor:  auditor,
		schedule: schedule,
		log:      logger.Component("scheduler"),
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler. It stops when ctx is cancelled or Stop is called.
func (s *UploadSweepScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runSweep()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	s.log.Info().
		Str("schedule", s.schedule).
		Time("next_run", s.nextRunLocked()).
		Msg("upload sweep scheduler started")

	// Monitor for context cancellation
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-cancelCtx.Done()
		s.stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *UploadSweepScheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancelFunc
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

func (s *UploadSweepScheduler) stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.cancelFunc = nil
	entryID := s.entryID
	s.mu.Unlock()

	// Stop accepting new jobs and wait for running jobs to complete.
	// The lock is released first: a running sweep takes it on exit.
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(entryID)

	s.log.Info().Msg("upload sweep scheduler stopped")
}

// RunNow triggers an immediate sweep in the background.
func (s *UploadSweepScheduler) RunNow() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSweep()
	}()
}

// IsRunning returns whether the scheduler is active
func (s *UploadSweepScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSweeping returns whether a sweep is currently in progress
func (s *UploadSweepScheduler) IsSweeping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSweeping
}

// NextRun returns when the next sweep will occur, or nil when stopped.
func (s *UploadSweepScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	t := s.nextRunLocked()
	return &t
}

func (s *UploadSweepScheduler) nextRunLocked() time.Time {
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			return entry.Next
		}
	}
	return time.Time{}
}

func (s *UploadSweepScheduler) runSweep() {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		s.log.Info().Msg("upload sweep skipped, already sweeping")
		return
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	startTime := time.Now()
	result, err := s.sweeper.Sweep(ctx, false)
	if err != nil {
		s.log.Error().Err(err).Msg("upload sweep failed")
		s.logAudit("upload sweep failed", result.Counts(), err)
		return
	}

	msg := fmt.Sprintf("Deleted %d of %d orphaned uploads in %v",
		result.Deleted, len(result.Orphaned), time.Since(startTime).Round(time.Millisecond))
	s.log.Info().
		Int("scanned", result.Scanned).
		Int("deleted", result.Deleted).
		Int("failed", result.Failed).
		Msg("upload sweep finished")
	s.logAudit(msg, result.Counts(), nil)
}

func (s *UploadSweepScheduler) logAudit(description string, counts map[string]int, err error) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogMaintenance("upload_sweep", description, counts, err)
}
