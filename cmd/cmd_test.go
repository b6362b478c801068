package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/plan"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flag values
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, c := range append([]*cobra.Command{rootCmd}, rootCmd.Commands()...) {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--quiet"))

	err := rootCmd.Execute()
	return out.String(), err
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// loggingPlan appends each task id to log as it runs
func loggingPlan(log string) string {
	return `
name: release
tasks:
  - id: fetch
    command: echo fetch >> ` + log + `
  - id: build
    depends_on: [fetch]
    command: echo build >> ` + log + `
  - id: lint
    depends_on: [fetch]
    command: echo lint >> ` + log + `
  - id: publish
    depends_on: [build, lint]
    command: echo publish >> ` + log + `
`
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Fields(string(data))
}

func TestOrderCommand(t *testing.T) {
	path := writePlan(t, loggingPlan("/dev/null"))

	out, err := execute(t, "order", path)
	require.NoError(t, err)
	assert.Equal(t, "1. fetch\n2. build\n3. lint\n4. publish\n", out)
}

func TestOrderCommand_Cycle(t *testing.T) {
	path := writePlan(t, "name: loop\ntasks:\n  - id: a\n    depends_on: [b]\n  - id: b\n    depends_on: [a]\n")

	_, err := execute(t, "order", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, schederrors.ErrCircularDependency)
}

func TestOrderCommand_MissingDependency(t *testing.T) {
	path := writePlan(t, "name: broken\ntasks:\n  - id: a\n    depends_on: [ghost]\n")

	_, err := execute(t, "order", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, schederrors.ErrMissingDependency)
}

func TestGraphCommand(t *testing.T) {
	path := writePlan(t, loggingPlan("/dev/null"))

	out, err := execute(t, "graph", path, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "release"`)
	assert.Contains(t, out, `"from": "fetch"`)

	out, err = execute(t, "graph", path, "--format", "dot")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph Tasks {"))

	out, err = execute(t, "graph", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Ready (1):")

	_, err = execute(t, "graph", path, "--format", "svg")
	assert.ErrorIs(t, err, schederrors.ErrInvalidConfiguration)
}

func TestRunCommand(t *testing.T) {
	log := filepath.Join(t.TempDir(), "ran.log")
	path := writePlan(t, loggingPlan(log))

	_, err := execute(t, "run", path, "--max-concurrency", "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"fetch", "build", "lint", "publish"}, readLines(t, log))
}

func TestRunCommand_DryRun(t *testing.T) {
	log := filepath.Join(t.TempDir(), "ran.log")
	path := writePlan(t, loggingPlan(log))

	out, err := execute(t, "run", path, "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "4. publish")
	assert.NoFileExists(t, log)
}

func TestRunCommand_Failure(t *testing.T) {
	log := filepath.Join(t.TempDir(), "ran.log")
	path := writePlan(t, `
name: failing
tasks:
  - id: a
    command: echo a >> `+log+`
  - id: b
    depends_on: [a]
    command: echo oops; exit 3
  - id: c
    depends_on: [b]
    command: echo c >> `+log+`
  - id: d
    depends_on: [a]
    command: echo d >> `+log+`
`)

	_, err := execute(t, "run", path, "--max-concurrency", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 task(s) failed, 1 blocked")
	assert.ErrorIs(t, err, schederrors.ErrExecution)
	assert.Equal(t, []string{"a", "d"}, readLines(t, log))
}

func TestRunCommand_InvalidConcurrency(t *testing.T) {
	path := writePlan(t, loggingPlan("/dev/null"))

	_, err := execute(t, "run", path, "--max-concurrency", "0")
	assert.ErrorIs(t, err, schederrors.ErrInvalidConfiguration)
}

func TestShellTask(t *testing.T) {
	dir := t.TempDir()

	run := shellTask(plan.Task{
		ID:      "env",
		Command: `echo "$GREETING from $DEPSCHED_TASK_ID in $(basename "$PWD")"`,
		Dir:     dir,
		Env:     map[string]string{"GREETING": "hello"},
	})
	out, err := run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hello from env in "+filepath.Base(dir), out)

	out, err = shellTask(plan.Task{ID: "noop"})(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestShellTask_Failure(t *testing.T) {
	out, err := shellTask(plan.Task{ID: "fail", Command: "echo first; echo last; exit 2"})(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, "first\nlast", out)
	assert.Contains(t, err.Error(), "exit status 2")
	assert.Contains(t, err.Error(), ": last")
}

func TestShellTask_Timeout(t *testing.T) {
	start := time.Now()
	_, err := shellTask(plan.Task{ID: "slow", Command: "sleep 5", Timeout: 50 * time.Millisecond})(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "6789", truncate("0123456789", 4))

	// each "é" is two bytes; an odd limit lands inside a rune
	out := truncate("ab"+strings.Repeat("é", 5), 5)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "éé", out)
}

func TestLoadPlan_MaxConcurrencyFlagError(t *testing.T) {
	path := writePlan(t, loggingPlan("/dev/null"))

	c := &cobra.Command{Use: "test"}
	c.Flags().String("max-concurrency", "", "")
	require.NoError(t, c.Flags().Set("max-concurrency", "many"))

	_, _, err := loadPlan(c, []string{path})
	require.Error(t, err)
	assert.ErrorIs(t, err, schederrors.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "max-concurrency")
}
