package cmd

import (
	"fmt"

	schederrors "github.com/maxkimambo/depsched/internal/errors"
	"github.com/spf13/cobra"
)

var orderCmd = &cobra.Command{
	Use:   "order <plan.yaml>",
	Short: "Print a valid sequential execution order for a plan",
	Long: `Resolve the execution order of every task in the plan. Each task appears after
all of its dependencies; ties keep the order tasks are declared in.

Fails when a dependency is not declared or when the plan contains a cycle.`,
	Args: cobra.ExactArgs(1),
	RunE: runOrder,
}

func runOrder(cmd *cobra.Command, args []string) error {
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

	order, err := s.GetExecutionOrder()
	if err != nil {
		fmt.Fprint(cmd.ErrOrStderr(), schederrors.FormatForCLI(err))
		return err
	}

	out := cmd.OutOrStdout()
	for i, id := range order {
		fmt.Fprintf(out, "%d. %s\n", i+1, id)
	}
	return nil
}
