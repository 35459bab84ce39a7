package main

import (
	"fmt"
	"os"

	"github.com/dgallion1/notemark/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "notemark:", err)
		os.Exit(1)
	}
}
