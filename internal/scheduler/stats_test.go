package scheduler

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStats(t *testing.T) {
	s := newTestScheduler(t)
	assert.Equal(t, Stats{}, s.GetStats())

	diamond(t, s)

	stats := s.GetStats()
	assert.Equal(t, 4, stats.TasksScheduled)
	assert.Equal(t, 4, stats.TasksPending)
	assert.Equal(t, 1, stats.TasksReady)
	assert.Equal(t, 0, stats.TasksRunning)
	assert.False(t, stats.Finished())
	assert.Zero(t, stats.Progress())

	require.NoError(t, s.MarkStarted("A"))
	stats = s.GetStats()
	assert.Equal(t, 4, stats.TasksPending, "running tasks count as pending")
	assert.Equal(t, 1, stats.TasksRunning)
	assert.Equal(t, 0, stats.TasksReady)

	require.NoError(t, s.MarkCompleted("A", nil))
	require.NoError(t, s.MarkStarted("B"))
	require.NoError(t, s.MarkFailed("B", assert.AnError))

	stats = s.GetStats()
	assert.Equal(t, Stats{
		TasksScheduled: 4,
		TasksCompleted: 1,
		TasksPending:   2,
		TasksFailed:    1,
		TasksReady:     1,
	}, stats)
	assert.InDelta(t, 0.5, stats.Progress(), 0.0001)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestScheduler(t, func(c *Config) {
		c.Name = "metrics"
		c.Registerer = reg
	})
	diamond(t, s)

	require.NoError(t, s.MarkStarted("A"))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.running))

	require.NoError(t, s.MarkCompleted("A", nil))
	require.NoError(t, s.MarkStarted("B"))
	require.NoError(t, s.MarkFailed("B", nil))

	assert.Equal(t, float64(4), testutil.ToFloat64(s.metrics.registrations))
	assert.Equal(t, float64(2), testutil.ToFloat64(s.metrics.transitions.WithLabelValues("running")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.transitions.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(s.metrics.transitions.WithLabelValues("failed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(s.metrics.running))

	count, err := testutil.GatherAndCount(reg, "depsched_task_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series per terminal state")
}

func TestMetrics_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := New(&Config{Name: "one", MaxConcurrentTasks: 1, Registerer: reg, Logger: quietLogger()})
	require.NoError(t, err)

	_, err = New(&Config{Name: "two", MaxConcurrentTasks: 1, Registerer: reg, Logger: quietLogger()})
	require.NoError(t, err, "distinct names register side by side")

	_, err = New(&Config{Name: "one", MaxConcurrentTasks: 1, Registerer: reg, Logger: quietLogger()})
	require.Error(t, err, "a second scheduler with the same name collides")
}

func TestMetrics_Disabled(t *testing.T) {
	s := newTestScheduler(t)
	assert.Nil(t, s.metrics)

	require.NoError(t, s.RegisterTask("A"))
	require.NoError(t, s.MarkStarted("A"))
	require.NoError(t, s.MarkCompleted("A", nil))
}

func TestClose_ReleasesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	config := &Config{Name: "reused", MaxConcurrentTasks: 1, Registerer: reg, Logger: quietLogger()}

	first, err := New(config)
	require.NoError(t, err)
	require.NoError(t, first.RegisterTask("A"))

	first.Close()
	first.Close()

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "closed scheduler leaves no series behind")

	second, err := New(config)
	require.NoError(t, err, "the name is free again after Close")
	require.NoError(t, second.RegisterTask("A"))
	assert.Equal(t, float64(1), testutil.ToFloat64(second.metrics.registrations))

	// the closed scheduler keeps working without recording
	require.NoError(t, first.MarkStarted("A"))
	require.NoError(t, first.MarkCompleted("A", nil))
	assert.Equal(t, float64(0), testutil.ToFloat64(second.metrics.running))
}
