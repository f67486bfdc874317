package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRunOnce(t *testing.T) {
	job := &countingJob{}
	require.NoError(t, RunOnce(context.Background(), job, "manual"))
	assert.EqualValues(t, 1, job.runs.Load())

	job.err = errors.New("boom")
	assert.EqualError(t, RunOnce(context.Background(), job, "manual"), "boom")
}

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&countingJob{}, "not a cron spec"))
	require.NoError(t, s.AddJob(&countingJob{}, "*/30 * * * *"))
	require.NoError(t, s.AddJob(&countingJob{}, "@hourly"))
	assert.Len(t, s.cron.Entries(), 1)
}

func TestWrapSkipsOverlappingRun(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{}
	run := s.wrap(job, "@every 1s")
	run()
	run()
	assert.EqualValues(t, 2, job.runs.Load())
}
