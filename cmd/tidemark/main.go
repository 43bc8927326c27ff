package main

import (
	"fmt"
	"os"

	"github.com/tidemark/tidemark/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tidemark: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
