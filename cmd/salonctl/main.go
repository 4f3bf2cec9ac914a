package main

import (
	"context"
	"fmt"
	"os"

	"saloncal/internal/cli"
)

func main() {
	cli.LoadEnvFile()

	cmd := cli.SetupCommands(cli.DefaultDeps())
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
