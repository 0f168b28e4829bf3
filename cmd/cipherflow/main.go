// Command cipherflow builds and resolves dataflow graphs of cryptographic
// blocks.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cipherflow/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
