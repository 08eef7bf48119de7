// Command statefuzz runs stateful invariant-fuzzing campaigns.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/statefuzz/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
