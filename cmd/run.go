package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/logger"
	"github.com/maxkimambo/depsched/internal/output"
	"github.com/maxkimambo/depsched/internal/progress"
	"github.com/maxkimambo/depsched/internal/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	maxConcurrency int
	dryRun         bool
	metricsAddr    string
)

var runCmd = &cobra.Command{
	Use:   "run <plan.yaml>",
	Short: "Run every task of a plan in dependency order",
	Long: `Run the tasks of a plan. Each task's command is executed with sh -c once all
of its dependencies have completed. Independent tasks run in parallel, bounded by
--max-concurrency (or max_concurrency in the plan).

A failed task does not stop the run: tasks that do not depend on it still run,
while its dependents stay pending and are reported as blocked.

Examples:
  depsched run plan.yaml
  depsched run plan.yaml --max-concurrency 4
  depsched run plan.yaml --dry-run
  depsched run plan.yaml --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	runCmd.Flags().IntVarP(&maxConcurrency, "max-concurrency", "c", 0, "Maximum number of tasks running at once (overrides the plan)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the plan and print the execution order without running anything")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the plan runs")
}

func runPlan(cmd *cobra.Command, args []string) error {
	p, config, err := loadPlan(cmd, args)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
		return err
	}

	if dryRun {
		return runOrder(cmd, args)
	}

	w, err := p.Workflow(shellTask)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		config.Registerer = registry

		shutdown, err := serveMetrics(metricsAddr, registry)
		if err != nil {
			fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
			return err
		}
		defer shutdown()
	}

	report, err := workflow.NewRunner(w, config).Run(ctx)
	if report == nil {
		fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
		return err
	}
	if !quiet {
		fmt.Fprint(cmd.OutOrStdout(), output.Summary(report))
	}
	if err != nil {
		return err
	}

	logger.Op.WithFields(map[string]interface{}{
		"run_id":    report.RunID,
		"batches":   report.Batches,
		"completed": report.Stats.TasksCompleted,
		"failed":    report.Stats.TasksFailed,
		"duration":  progress.FormatDuration(report.Duration),
	}).Info("Run finished")

	if !report.Success() {
		return fmt.Errorf("%d task(s) failed, %d blocked, %d not started: %w",
			len(report.Failed), len(report.Blocked), len(report.Pending), report.Err())
	}
	return nil
}

// serveMetrics exposes registry on addr until the returned func is called
func serveMetrics(addr string, registry *prometheus.Registry) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, schederrors.NewConfigurationError("metrics-addr", addr, "cannot listen").
			WithOriginalError(err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Op.WithFields(map[string]interface{}{"addr": addr}).Errorf("Metrics server stopped: %v", err)
		}
	}()
	logger.Op.WithFields(map[string]interface{}{"addr": listener.Addr().String()}).Info("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
