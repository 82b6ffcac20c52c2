// Package cli implements the replayd command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// SetVersionInfo records the build-time version variables.
func SetVersionInfo(v, c, d string) {
	version, commit, buildDate = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "replayd",
	Short: "Serve recorded HTTP traffic back as a mock server",
	Long: `replayd loads a session log of captured HTTP exchanges and answers
live requests with the recorded responses, matching each incoming request
against the corpus by exact, pattern, fuzzy, or semantic strategy.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "replayd %s (commit %s, built %s)\n",
			version, commit, buildDate)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
