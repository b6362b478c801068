package scheduler

import (
	"testing"
	"time"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, DefaultName, config.Name)
	assert.Equal(t, 10, config.MaxConcurrentTasks)
	assert.Zero(t, config.TaskTimeout)
	assert.False(t, config.StrictDependencies)
	assert.NoError(t, config.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid", Config{MaxConcurrentTasks: 1}, false},
		{"zero workers", Config{MaxConcurrentTasks: 0}, true},
		{"negative workers", Config{MaxConcurrentTasks: -2}, true},
		{"negative timeout", Config{MaxConcurrentTasks: 1, TaskTimeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, schederrors.ErrInvalidConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyEnv(t *testing.T) {
	t.Setenv(EnvMaxConcurrency, "4")
	t.Setenv(EnvTaskTimeout, "90s")
	t.Setenv(EnvStrictDependencies, "true")

	config := DefaultConfig()
	require.NoError(t, config.ApplyEnv())

	assert.Equal(t, 4, config.MaxConcurrentTasks)
	assert.Equal(t, 90*time.Second, config.TaskTimeout)
	assert.True(t, config.StrictDependencies)
}

func TestConfigApplyEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"concurrency not a number", EnvMaxConcurrency, "many"},
		{"concurrency zero", EnvMaxConcurrency, "0"},
		{"timeout not a duration", EnvTaskTimeout, "soon"},
		{"strict not a bool", EnvStrictDependencies, "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			err := DefaultConfig().ApplyEnv()
			require.Error(t, err)
			assert.ErrorIs(t, err, schederrors.ErrInvalidConfiguration)
		})
	}
}
