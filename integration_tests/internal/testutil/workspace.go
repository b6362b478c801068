package testutil

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Workspace is a scratch directory holding one plan file
type Workspace struct {
	Dir  string
	Plan string
}

// Result is the outcome of one binary invocation
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// SetupWorkspace creates a unique directory under tmp_integration_tests/ and
// writes plan into it. The template marker {{dir}} in plan is replaced with the
// workspace path. The returned cleanup removes the directory unless keep is
// set or PRESERVE_WORKSPACES=true.
func SetupWorkspace(t *testing.T, plan string, keep bool) (*Workspace, func()) {
	t.Helper()

	root, err := filepath.Abs(filepath.Join("..", "tmp_integration_tests"))
	require.NoError(t, err, "failed to resolve workspace root")

	randomBytes := make([]byte, 4)
	_, err = rand.Read(randomBytes)
	require.NoError(t, err, "failed to generate random bytes")

	name := fmt.Sprintf("%s-%s", strings.ReplaceAll(t.Name(), "/", "_"), hex.EncodeToString(randomBytes))
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755), "failed to create workspace directory")

	planPath := filepath.Join(dir, "plan.yaml")
	content := strings.ReplaceAll(plan, "{{dir}}", dir)
	require.NoError(t, os.WriteFile(planPath, []byte(content), 0644), "failed to write plan")

	cleanup := func() {
		if keep || os.Getenv("PRESERVE_WORKSPACES") == "true" {
			t.Logf("Workspace preserved in: %s", dir)
			return
		}
		if err := os.RemoveAll(dir); err != nil {
			t.Logf("Warning: failed to clean up workspace directory %s: %v", dir, err)
		}
	}

	return &Workspace{Dir: dir, Plan: planPath}, cleanup
}

// Run invokes the binary with args and extra environment variables
func Run(t *testing.T, env []string, args ...string) Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, GetBinaryPath(), args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
	} else {
		require.NoError(t, err, "failed to run depsched")
	}

	t.Logf("depsched %s exited with %d", strings.Join(args, " "), result.ExitCode)
	return result
}

// Lines returns the whitespace separated words of a file in the workspace
func (w *Workspace) Lines(t *testing.T, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(w.Dir, name))
	require.NoError(t, err)
	return strings.Fields(string(data))
}
