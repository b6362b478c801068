package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/logger"
	"github.com/maxkimambo/depsched/internal/plan"
	"github.com/maxkimambo/depsched/internal/scheduler"
	"github.com/maxkimambo/depsched/internal/workflow"
	"github.com/spf13/cobra"
)

// maxOutputBytes caps the command output kept as a task result
const maxOutputBytes = 64 * 1024

// waitDelay bounds how long a killed command's children may hold its output open
const waitDelay = 2 * time.Second

// loadPlan reads the plan named by the first argument and builds a scheduler
// config from it. DEPSCHED_* environment variables and --max-concurrency
// override the file.
func loadPlan(cmd *cobra.Command, args []string) (*plan.Plan, *scheduler.Config, error) {
	p, err := plan.Load(args[0])
	if err != nil {
		return nil, nil, err
	}

	config := p.SchedulerConfig()
	if err := config.ApplyEnv(); err != nil {
		return nil, nil, err
	}

	if f := cmd.Flags().Lookup("max-concurrency"); f != nil && f.Changed {
		n, err := cmd.Flags().GetInt("max-concurrency")
		if err != nil {
			return nil, nil, schederrors.NewConfigurationError("max-concurrency", f.Value.String(), "must be an integer").
				WithOriginalError(err)
		}
		config.MaxConcurrentTasks = n
	}
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	return p, config, nil
}

// newScheduler builds a scheduler and registers every plan task
func newScheduler(p *plan.Plan, config *scheduler.Config) (*scheduler.Scheduler, error) {
	s, err := scheduler.New(config)
	if err != nil {
		return nil, err
	}
	if err := p.Register(s); err != nil {
		return nil, err
	}
	return s, nil
}

// shellTask runs the task's command through sh -c. The trimmed output is the
// task result; a non-zero exit fails the task.
func shellTask(task plan.Task) workflow.TaskFunc {
	return func(ctx context.Context, sharedCtx *workflow.SharedContext) (any, error) {
		if strings.TrimSpace(task.Command) == "" {
			return "", nil
		}

		if task.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, task.Timeout)
			defer cancel()
		}

		c := exec.CommandContext(ctx, "sh", "-c", task.Command)
		c.Dir = task.Dir
		c.WaitDelay = waitDelay
		c.Env = os.Environ()
		c.Env = append(c.Env, "DEPSCHED_TASK_ID="+task.ID)
		for k, v := range task.Env {
			c.Env = append(c.Env, k+"="+v)
		}

		var out bytes.Buffer
		c.Stdout = &out
		c.Stderr = &out

		logger.Op.WithFields(map[string]interface{}{
			"task":    task.ID,
			"command": task.Command,
		}).Debug("Running command")

		err := c.Run()
		output := strings.TrimSpace(truncate(out.String(), maxOutputBytes))
		if err != nil {
			if ctx.Err() != nil {
				return output, fmt.Errorf("command %q: %w", task.Command, ctx.Err())
			}
			if output != "" {
				return output, fmt.Errorf("command %q: %w: %s", task.Command, err, lastLine(output))
			}
			return output, fmt.Errorf("command %q: %w", task.Command, err)
		}
		return output, nil
	}
}

// truncate keeps at most the last n bytes of s, starting on a rune boundary
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return s[start:]
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
