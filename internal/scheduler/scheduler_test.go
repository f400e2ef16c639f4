package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundflow/pkg/logger"
)

type countingJob struct {
	name     string
	schedule string
	errs     []error
	calls    int
}

func (j *countingJob) Name() string     { return j.name }
func (j *countingJob) Schedule() string { return j.schedule }
func (j *countingJob) Run(context.Context) error {
	j.calls++
	if j.calls <= len(j.errs) {
		return j.errs[j.calls-1]
	}
	return nil
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(&countingJob{name: "b", schedule: "0 30 16 * * 1-5"}))
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}))

	assert.Error(t, s.AddJob(&countingJob{name: "a", schedule: "@daily"}), "duplicate name")
	assert.Error(t, s.AddJob(&countingJob{name: "c", schedule: "not a cron"}))
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())
}

func TestRunJob_NoRetry(t *testing.T) {
	s := New(logger.Nop())
	job := &countingJob{name: "flaky", schedule: "@daily", errs: []error{errors.New("upstream down")}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob(context.Background(), "flaky")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "upstream down", result.Error)
	assert.Equal(t, 1, job.calls, "a failed run must not be retried")

	result, err = s.RunJob(context.Background(), "flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	assert.Len(t, history.Results, 2)
	assert.InDelta(t, 0.5, history.SuccessRate(), 1e-9)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 2, stats.TotalRuns)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Empty(t, stats.LastError)
	assert.NotNil(t, stats.LastRun)
}

func TestRunJob_Unknown(t *testing.T) {
	s := New(logger.Nop())
	_, err := s.RunJob(context.Background(), "missing")
	assert.Error(t, err)
	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
	assert.Error(t, s.RemoveJob("missing"))
}

func TestRemoveJob(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "@hourly"}))

	next, err := s.NextRun("a")
	require.NoError(t, err)
	assert.True(t, next.IsZero(), "no next time before Start")

	require.NoError(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetAllJobs())
	_, err = s.NextRun("a")
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := New(logger.Nop())
	require.NoError(t, s.AddJob(&countingJob{name: "a", schedule: "0 30 16 * * 1-5"}))

	s.Start()
	next, err := s.NextRun("a")
	require.NoError(t, err)
	assert.Equal(t, 16, next.Hour())
	assert.Equal(t, 30, next.Minute())
	s.Stop()
}

func TestJobHistory_KeepsLast(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistory+5; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%2 == 0})
	}
	assert.Len(t, h.Results, maxHistory)

	_, ok := (&JobHistory{}).Latest()
	assert.False(t, ok)
	assert.Equal(t, 0.0, (&JobHistory{}).SuccessRate())
}
