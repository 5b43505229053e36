package main

import (
	"fmt"
	"os"

	"github.com/GalitskyKK/kirakira-sub003/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand(cli.OpenFromEnv)
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
