package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/uepipe/uepipe/pkg/cli"
)

var version = "dev"

func main() {
	if err := cli.ExecuteWithVersion(version); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		os.Exit(1)
	}
}
