package cmd

import (
	"fmt"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/maxkimambo/depsched/internal/scheduler"
	"github.com/spf13/cobra"
)

var graphFormat string

var graphCmd = &cobra.Command{
	Use:   "graph <plan.yaml>",
	Short: "Render the task graph of a plan",
	Long: `Render the task graph of a plan as JSON, Graphviz DOT or a text summary.

Undeclared dependencies are shown rather than rejected, so the graph can be used
to inspect a broken plan:

  depsched graph plan.yaml --format dot | dot -Tsvg > plan.svg`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "text", "Output format: text, json or dot")
}

func runGraph(cmd *cobra.Command, args []string) error {
	switch graphFormat {
	case "text", "json", "dot":
	default:
		err := schederrors.NewConfigurationError("format", graphFormat, "must be one of text, json, dot")
		fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
		return err
	}

	p, config, err := loadPlan(cmd, args)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
		return err
	}

	s, err := newScheduler(p, config)
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
		return err
	}
	defer s.Close()

	viz := scheduler.NewVisualization(s)
	out := cmd.OutOrStdout()

	switch graphFormat {
	case "json":
		data, err := viz.ToJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "dot":
		fmt.Fprint(out, viz.ToDOT())
	default:
		fmt.Fprint(out, viz.TextSummary())
	}
	return nil
}
