// Command filterjoin compiles join specifications in search queries into
// nested filterjoin clauses, from the command line or over HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/filterjoin/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands that print their own errors return an ExitError;
		// anything else (flag parsing, bad --format) is printed here.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
