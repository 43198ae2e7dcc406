package main

import (
	"os"

	"agentcore/internal/cli"
)

func main() {
	os.Exit(cli.MainWithArgs(os.Args[1:]))
}
