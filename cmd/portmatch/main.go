// Command portmatch is the command-line front end of the port-matching
// conformance oracle.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/portmatch/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
