package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the collectors of one scheduler instance. A nil *metrics
// records nothing.
type metrics struct {
	registrations prometheus.Counter
	transitions   *prometheus.CounterVec
	running       prometheus.Gauge
	taskDuration  *prometheus.HistogramVec
	batchSize     prometheus.Histogram
	batchDuration prometheus.Histogram

	reg        prometheus.Registerer
	collectors []prometheus.Collector
}

// newMetrics registers the scheduler collectors on reg, labelled with the
// scheduler name. A nil reg disables metrics.
func newMetrics(reg prometheus.Registerer, name string) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	labels := prometheus.Labels{"scheduler": name}

	m := &metrics{
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "depsched_tasks_registered_total",
			Help:        "Total tasks registered",
			ConstLabels: labels,
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "depsched_task_transitions_total",
			Help:        "Total lifecycle transitions by target state",
			ConstLabels: labels,
		}, []string{"state"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "depsched_tasks_running",
			Help:        "Tasks currently in the running state",
			ConstLabels: labels,
		}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "depsched_task_duration_seconds",
			Help:        "Time from start to completion or failure",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4m
		}, []string{"state"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "depsched_batch_size",
			Help:        "Number of task ids per concurrent batch",
			ConstLabels: labels,
			Buckets:     []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "depsched_batch_duration_seconds",
			Help:        "Wall clock of concurrent batches",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	collectors := []prometheus.Collector{
		m.registrations, m.transitions, m.running,
		m.taskDuration, m.batchSize, m.batchDuration,
	}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			for _, registered := range collectors[:i] {
				reg.Unregister(registered)
			}
			return nil, err
		}
	}
	m.reg = reg
	m.collectors = collectors
	return m, nil
}

// unregister removes the collectors from the registerer they were added to
func (m *metrics) unregister() {
	if m == nil {
		return
	}
	for _, c := range m.collectors {
		m.reg.Unregister(c)
	}
}

func (m *metrics) registered() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

func (m *metrics) transition(to State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to.String()).Inc()
}

func (m *metrics) setRunning(n int) {
	if m == nil {
		return
	}
	m.running.Set(float64(n))
}

func (m *metrics) observeDuration(state State, d time.Duration) {
	if m == nil {
		return
	}
	m.taskDuration.WithLabelValues(state.String()).Observe(d.Seconds())
}

func (m *metrics) observeBatch(size int, d time.Duration) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
	m.batchDuration.Observe(d.Seconds())
}
