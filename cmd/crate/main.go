// Package main provides the entry point for the crate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/crate/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil && !cli.IsReported(err) {
		fmt.Fprintf(os.Stderr, "crate: %v\n", err)
	}
	os.Exit(cli.GetExitCode(err))
}
