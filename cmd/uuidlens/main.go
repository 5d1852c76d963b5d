// Command uuidlens resolves storage UUIDs to catalog, schema and table names.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/uuidlens/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// ExitErrors were already reported in the requested format.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
