package cli

import (
	"github.com/spf13/cobra"

	"github.com/devrickard/testcascade/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "testcascade",
	Short:   "Run dependency-ordered API test suites",
	Long:    `testcascade executes JSON-described API test suites: variable substitution, assertions, prerequisite-based scheduling and reporting.`,
	Version: version.Version,
}

// Execute builds the command tree with the given Dependencies and runs
// the root command.
func Execute(deps Dependencies) error {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newExecuteCmd(deps))
	rootCmd.AddCommand(newGenerateCmd(deps))
	rootCmd.AddCommand(newServeCmd(deps))

	return rootCmd.Execute()
}
