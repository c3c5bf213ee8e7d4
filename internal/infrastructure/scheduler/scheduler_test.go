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

	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

type countingJob struct {
	name  string
	runs  atomic.Int32
	err   error
	panic bool
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job " + j.name }
func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

type jobRecorder struct {
	mu   sync.Mutex
	runs map[string]int
}

func (r *jobRecorder) RecordJob(job string, _ time.Duration, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string]int{}
	}
	r.runs[job]++
}

func TestParseCron_MidnightInFixedZone(t *testing.T) {
	s, err := ParseCron(CronMidnight, timeutil.TegucigalpaTZ)
	require.NoError(t, err)

	from := timeutil.DateTime(2024, 6, 1, 23, 59, 30)
	next := s.Next(from)
	assert.True(t, next.Equal(timeutil.DateTime(2024, 6, 2, 0, 0, 0)), next)

	// 05:30 UTC is 23:30 the previous day in Tegucigalpa
	next = s.Next(time.Date(2024, 6, 2, 5, 30, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC)), next)
}

func TestParseCron_Invalid(t *testing.T) {
	_, err := ParseCron("not a cron", nil)
	assert.Error(t, err)
	_, err = ParseCron(" ", nil)
	assert.Error(t, err)
	assert.Panics(t, func() { MustParseCron("61 * * * *", nil) })
}

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	rec := &jobRecorder{}
	s := NewScheduler(Config{Metrics: rec})
	job := &countingJob{name: "reset"}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Hour)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "x"}, nil), ErrNilSchedule)

	res, err := s.RunNow(context.Background(), "reset")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)
	assert.EqualValues(t, 1, job.runs.Load())
	assert.Equal(t, 1, rec.runs["reset"])

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_RunNowReportsFailureAndPanic(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	failing := &countingJob{name: "failing", err: errors.New("store down")}
	panicking := &countingJob{name: "panicking", panic: true}
	require.NoError(t, s.Register(failing, NewIntervalSchedule(time.Hour)))
	require.NoError(t, s.Register(panicking, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "failing")
	assert.ErrorIs(t, err, failing.err)
	assert.False(t, res.Success)

	res, err = s.RunNow(context.Background(), "panicking")
	assert.Error(t, err)
	assert.False(t, res.Success)
}

func TestScheduler_LoopRunsDueJobs(t *testing.T) {
	s := NewScheduler(Config{TickInterval: 5 * time.Millisecond})
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	infos := s.ListJobs()
	require.Len(t, infos, 1)
	assert.Equal(t, "sweep", infos[0].Name)
	assert.GreaterOrEqual(t, infos[0].RunCount, int64(2))
}

func TestScheduler_DisableJob(t *testing.T) {
	s := NewScheduler(Config{TickInterval: 5 * time.Millisecond})
	job := &countingJob{name: "sweep"}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Millisecond)))
	require.NoError(t, s.DisableJob("sweep"))

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop())

	assert.EqualValues(t, 0, job.runs.Load())
	assert.ErrorIs(t, s.EnableJob("missing"), ErrJobNotFound)
}

func TestWakeTimers_FireOnceAndReplace(t *testing.T) {
	var pending atomic.Int32
	w := NewWakeTimers(WakeTimersConfig{OnChange: func(n int) { pending.Store(int32(n)) }})

	var fired atomic.Int32
	now := time.Now()
	w.Schedule("1", "e1", now.Add(time.Hour), func() { fired.Add(100) })
	// same key replaces the pending timer
	w.Schedule("1", "e1", now.Add(10*time.Millisecond), func() { fired.Add(1) })
	w.Schedule("2", "e1", now.Add(-time.Minute), func() { fired.Add(1) })

	assert.Eventually(t, func() bool { return fired.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return w.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.EqualValues(t, 0, pending.Load())
}

func TestWakeTimers_Stop(t *testing.T) {
	w := NewWakeTimers(WakeTimersConfig{})

	var fired atomic.Bool
	w.Schedule("1", "e1", time.Now().Add(20*time.Millisecond), func() { fired.Store(true) })
	assert.Equal(t, 1, w.Len())

	w.Stop()
	w.Schedule("1", "e2", time.Now(), func() { fired.Store(true) })
	time.Sleep(60 * time.Millisecond)

	assert.False(t, fired.Load())
	assert.Equal(t, 0, w.Len())
}
