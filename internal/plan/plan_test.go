package plan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/scheduler"
	"github.com/maxkimambo/depsched/internal/workflow"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const diamondPlan = `
name: release
max_concurrency: 3
task_timeout: 45s
tasks:
  - id: fetch
    command: git fetch
  - id: build
    depends_on: [fetch]
    command: make build
    timeout: 2m
  - id: lint
    depends_on: [fetch]
    command: make lint
    env:
      GOFLAGS: -mod=mod
  - id: publish
    depends_on: [build, lint]
    command: make publish
    dir: ./dist
`

func quietConfig(p *Plan) *scheduler.Config {
	config := p.SchedulerConfig()
	l := logrus.New()
	l.SetOutput(io.Discard)
	config.Logger = logrus.NewEntry(l)
	return config
}

func TestParse(t *testing.T) {
	p, err := Parse([]byte(diamondPlan))
	require.NoError(t, err)

	assert.Equal(t, "release", p.Name)
	assert.Equal(t, 3, p.MaxConcurrency)
	assert.Equal(t, 45*time.Second, p.TaskTimeout)
	require.Len(t, p.Tasks, 4)

	build, ok := p.Task("build")
	require.True(t, ok)
	assert.Equal(t, []string{"fetch"}, build.DependsOn)
	assert.Equal(t, "make build", build.Command)
	assert.Equal(t, 2*time.Minute, build.Timeout)

	lint, ok := p.Task("lint")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"GOFLAGS": "-mod=mod"}, lint.Env)

	_, ok = p.Task("deploy")
	assert.False(t, ok)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		contains string
	}{
		{"empty", "", "plan is empty"},
		{"bad yaml", "name: [unclosed", "failed to parse plan"},
		{"unknown field", "name: x\nworkers: 3\ntasks:\n  - id: a\n", "failed to parse plan"},
		{"missing name", "tasks:\n  - id: a\n", "Name is required"},
		{"no tasks", "name: x\n", "Tasks is required"},
		{"missing id", "name: x\ntasks:\n  - command: echo\n", "Tasks[0].ID is required"},
		{"duplicate ids", "name: x\ntasks:\n  - id: a\n  - id: a\n", "unique ID"},
		{"blank dependency", "name: x\ntasks:\n  - id: a\n    depends_on: ['']\n", "Tasks[0].DependsOn[0] is required"},
		{"whitespace in id", "name: x\ntasks:\n  - id: a b\n", "must not contain whitespace"},
		{"negative concurrency", "name: x\nmax_concurrency: -1\ntasks:\n  - id: a\n", "MaxConcurrency"},
		{"bad duration", "name: x\ntask_timeout: soon\ntasks:\n  - id: a\n", "failed to parse plan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, schederrors.ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(diamondPlan), 0644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, p.Tasks, 4)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, schederrors.ErrInvalidConfiguration)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSchedulerConfig(t *testing.T) {
	p, err := Parse([]byte(diamondPlan))
	require.NoError(t, err)

	config := p.SchedulerConfig()
	assert.Equal(t, "release", config.Name)
	assert.Equal(t, 3, config.MaxConcurrentTasks)
	assert.Equal(t, 45*time.Second, config.TaskTimeout)
	assert.NoError(t, config.Validate())

	p.MaxConcurrency = 0
	assert.Equal(t, scheduler.DefaultMaxConcurrentTasks, p.SchedulerConfig().MaxConcurrentTasks)
}

func TestRegister(t *testing.T) {
	p, err := Parse([]byte(diamondPlan))
	require.NoError(t, err)

	s, err := scheduler.New(quietConfig(p))
	require.NoError(t, err)
	require.NoError(t, p.Register(s))

	order, err := s.GetExecutionOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch", "build", "lint", "publish"}, order)
}

func TestRegister_Cycle(t *testing.T) {
	p, err := Parse([]byte("name: loop\ntasks:\n  - id: a\n    depends_on: [b]\n  - id: b\n    depends_on: [a]\n"))
	require.NoError(t, err, "cycles are a graph problem, not a field problem")

	s, err := scheduler.New(quietConfig(p))
	require.NoError(t, err)
	require.NoError(t, p.Register(s))

	_, err = s.GetExecutionOrder()
	assert.ErrorIs(t, err, schederrors.ErrCircularDependency)
}

func TestRegister_Strict(t *testing.T) {
	p, err := Parse([]byte("name: strict\nstrict_dependencies: true\ntasks:\n  - id: a\n    depends_on: [b]\n  - id: b\n"))
	require.NoError(t, err)

	s, err := scheduler.New(quietConfig(p))
	require.NoError(t, err)
	assert.ErrorIs(t, p.Register(s), schederrors.ErrUnknownTask)
}

func TestWorkflow(t *testing.T) {
	p, err := Parse([]byte(diamondPlan))
	require.NoError(t, err)

	w, err := p.Workflow(func(task Task) workflow.TaskFunc {
		return func(ctx context.Context, sharedCtx *workflow.SharedContext) (any, error) {
			return task.Command, nil
		}
	})
	require.NoError(t, err)
	assert.Equal(t, "release", w.ID)
	assert.Equal(t, []string{"fetch", "build", "lint", "publish"}, w.Order)
	assert.Equal(t, []string{"build", "lint"}, w.Tasks["publish"].DependsOn)

	runner := workflow.NewRunner(w, quietConfig(p))
	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success())

	value, ok := runner.SharedContext().Get("publish")
	require.True(t, ok)
	assert.Equal(t, "make publish", value)
}
