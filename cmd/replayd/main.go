// replayd serves recorded HTTP traffic back as a mock server.
package main

import (
	"fmt"
	"os"

	"github.com/getmockd/replayd/pkg/cli"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.SetVersionInfo(Version, Commit, BuildDate)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
