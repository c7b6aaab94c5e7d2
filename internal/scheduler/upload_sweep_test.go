package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mrlokans/cookbook/internal/uploads"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSweeper struct {
	calls  atomic.Int32
	err    error
	result uploads.SweepResult
	block  chan struct{}
}

func (f *fakeSweeper) Sweep(ctx context.Context, dryRun bool) (uploads.SweepResult, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

type maintenanceCall struct {
	action string
	counts map[string]int
	err    error
}

type recordingAuditor struct {
	mu    sync.Mutex
	calls []maintenanceCall
}

func (a *recordingAuditor) LogMaintenance(action, _ string, counts map[string]int, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, maintenanceCall{action: action, counts: counts, err: err})
}

func (a *recordingAuditor) snapshot() []maintenanceCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]maintenanceCall(nil), a.calls...)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule("0 3 * * *"))
	assert.NoError(t, ValidateSchedule("*/15 * * * *"))
	assert.Error(t, ValidateSchedule("every night"))
	assert.Error(t, ValidateSchedule("0 0 3 * * *"), "seconds field is not accepted")
}

func TestStartStop(t *testing.T) {
	s := NewUploadSweepScheduler(&fakeSweeper{}, nil, "")

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	next := s.NextRun()
	require.NotNil(t, next)
	assert.True(t, next.After(time.Now()))

	// Starting twice is a no-op.
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())

	// Stopping twice is safe.
	s.Stop()
}

func TestStopOnContextCancel(t *testing.T) {
	s := NewUploadSweepScheduler(&fakeSweeper{}, nil, "0 3 * * *")

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := NewUploadSweepScheduler(&fakeSweeper{}, nil, "not a schedule")

	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestRunNowRecordsAudit(t *testing.T) {
	sweeper := &fakeSweeper{result: uploads.SweepResult{Scanned: 5, Deleted: 2, Orphaned: make([]uploads.File, 2)}}
	auditor := &recordingAuditor{}
	s := NewUploadSweepScheduler(sweeper, auditor, "")

	s.RunNow()
	s.Stop()

	calls := auditor.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "upload_sweep", calls[0].action)
	assert.Equal(t, 2, calls[0].counts["deleted"])
	assert.NoError(t, calls[0].err)
}

func TestRunNowRecordsFailure(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("storage offline")}
	auditor := &recordingAuditor{}
	s := NewUploadSweepScheduler(sweeper, auditor, "")

	s.RunNow()
	s.Stop()

	calls := auditor.snapshot()
	require.Len(t, calls, 1)
	assert.EqualError(t, calls[0].err, "storage offline")
}

func TestConcurrentSweepsAreSkipped(t *testing.T) {
	sweeper := &fakeSweeper{block: make(chan struct{})}
	s := NewUploadSweepScheduler(sweeper, nil, "")

	s.RunNow()
	assert.Eventually(t, s.IsSweeping, time.Second, 5*time.Millisecond)

	s.RunNow()
	time.Sleep(20 * time.Millisecond)
	close(sweeper.block)
	s.Stop()

	assert.EqualValues(t, 1, sweeper.calls.Load())
	assert.False(t, s.IsSweeping())
}
