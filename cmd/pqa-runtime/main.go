package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRoot().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRoot() *cobra.Command {
	flags := &RunFlags{}

	root := &cobra.Command{
		Use:   "pqa-runtime",
		Short: "Desktop runtime launcher for the QA assistant",
		Long: `pqa-runtime resolves a runtime mode into a launch plan of sidecar
processes (mongo, backend, web), spawns them in order and keeps crashed
ones running within a bounded restart budget.

Examples:
  pqa-runtime run                                  # local_fullstack with defaults
  pqa-runtime run --mode=remote_slim --web-dev
  pqa-runtime run --profile=~/.project-qa-assistant/runtime-profile.json
  pqa-runtime plan --mode=local_fullstack          # print the plan, start nothing`,
	}

	root.AddCommand(
		createRunCommand(flags),
		createPlanCommand(flags),
	)
	return root
}

func createRunCommand(flags *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the sidecars and supervise them until a signal arrives",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLauncher(*flags)
		},
	}
	addRunFlags(cmd, flags)
	return cmd
}

func createPlanCommand(flags *RunFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the launch plan as JSON without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printPlan(cmd.OutOrStdout(), *flags)
		},
	}
	addRunFlags(cmd, flags)
	return cmd
}
