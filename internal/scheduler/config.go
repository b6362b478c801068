package scheduler

import (
	"os"
	"strconv"
	"time"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxConcurrentTasks bounds the worker pool used by ExecuteConcurrent
	DefaultMaxConcurrentTasks = 10

	// DefaultName labels logs and metrics of an unnamed scheduler
	DefaultName = "default"

	EnvMaxConcurrency     = "DEPSCHED_MAX_CONCURRENCY"
	EnvTaskTimeout        = "DEPSCHED_TASK_TIMEOUT"
	EnvStrictDependencies = "DEPSCHED_STRICT_DEPENDENCIES"
)

// Config contains configuration for a Scheduler
type Config struct {
	// Name identifies the instance in logs and metric labels
	Name string

	// MaxConcurrentTasks is the number of workers ExecuteConcurrent starts per batch
	MaxConcurrentTasks int

	// TaskTimeout, when positive, bounds the context passed to each execution
	// callback. The callback must honour it; the scheduler does not preempt.
	TaskTimeout time.Duration

	// StrictDependencies rejects dependencies on ids that are not registered yet
	StrictDependencies bool

	// Logger receives operational logs. Nil means the shared op logger.
	Logger *logrus.Entry

	// Registerer receives scheduler metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Name:               DefaultName,
		MaxConcurrentTasks: DefaultMaxConcurrentTasks,
	}
}

// ApplyEnv overrides fields from DEPSCHED_* environment variables
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvMaxConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return schederrors.NewConfigurationError(EnvMaxConcurrency, v, "must be an integer").
				WithOriginalError(err)
		}
		c.MaxConcurrentTasks = n
	}

	if v := os.Getenv(EnvTaskTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return schederrors.NewConfigurationError(EnvTaskTimeout, v, "must be a duration such as 30s").
				WithOriginalError(err)
		}
		c.TaskTimeout = d
	}

	if v := os.Getenv(EnvStrictDependencies); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return schederrors.NewConfigurationError(EnvStrictDependencies, v, "must be true or false").
				WithOriginalError(err)
		}
		c.StrictDependencies = b
	}

	return c.Validate()
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if c.MaxConcurrentTasks < 1 {
		return schederrors.NewConfigurationError("MaxConcurrentTasks", c.MaxConcurrentTasks, "must be at least 1")
	}
	if c.TaskTimeout < 0 {
		return schederrors.NewConfigurationError("TaskTimeout", c.TaskTimeout, "must not be negative")
	}
	return nil
}
