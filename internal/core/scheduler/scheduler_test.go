package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJobRejectsInvalidSchedule(t *testing.T) {
	s := NewScheduler()
	err := s.AddJob("pipeline", "not a cron", func() {})
	require.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestSecondsFieldIsNotAccepted(t *testing.T) {
	s := NewScheduler()
	assert.Error(t, s.AddJob("pipeline", "0 0 18 * * *", func() {}))
	assert.NoError(t, s.AddJob("pipeline", "0 18 * * *", func() {}))
}

func TestAddJobReplacesAndRemoves(t *testing.T) {
	s := NewScheduler()
	require.NoError(t, s.AddJob("pipeline", "@daily", func() {}))
	require.NoError(t, s.AddJob("pipeline", "@hourly", func() {}))
	require.NoError(t, s.AddJob("cleanup", "0 3 * * *", func() {}))

	assert.Equal(t, []string{"cleanup", "pipeline"}, s.Jobs())
	assert.Len(t, s.cron.Entries(), 2)

	s.RemoveJob("pipeline")
	s.RemoveJob("unknown")
	assert.Equal(t, []string{"cleanup"}, s.Jobs())
}

func TestJobRuns(t *testing.T) {
	s := NewScheduler()
	var runs atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func() { runs.Add(1) }))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
