package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"    //nolint:gochecknoglobals // Build-time commit info
	date    = "unknown" //nolint:gochecknoglobals // Build-time date info

	// Global debug flag
	debugMode bool //nolint:gochecknoglobals // CLI global flag
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "confsync",
		Short: "Declarative configuration deployment for data platforms",
		Long: `Confsync builds a tree of declaratively described resources, diffs it
against the target platform and applies the minimal set of changes in
dependency order.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if debugMode {
				_ = os.Setenv("CONFSYNC_DEBUG", "true") // os.Setenv always returns nil
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false,
		"Enable debug logging")

	rootCmd.AddCommand(
		newPlanCommand(),
		newDeployCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newPlanCommand() *cobra.Command {
	var env string
	var target string

	cmd := &cobra.Command{
		Use:   "plan [project-dir]",
		Short: "Show what deploy would change without touching the target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), args[0], env, target, true)
		},
	}

	cmd.Flags().StringVar(&env, "env", "dev", "Deployment environment to resolve variables for")
	cmd.Flags().StringVar(&target, "target", "confsync-state.json", "Target state file")
	return cmd
}

func newDeployCommand() *cobra.Command {
	var env string
	var target string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "deploy [project-dir]",
		Short: "Build the project and apply the resulting plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), args[0], env, target, dryRun)
		},
	}

	cmd.Flags().StringVar(&env, "env", "dev", "Deployment environment to resolve variables for")
	cmd.Flags().StringVar(&target, "target", "confsync-state.json", "Target state file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only, apply nothing")
	return cmd
}
