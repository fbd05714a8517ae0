// Command api serves the run history and the chart-table flattener over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/AlanFontoura/myscripts/internal/cli"
	"github.com/AlanFontoura/myscripts/internal/infrastructure/config"
)

func main() {
	flags, err := cli.ParseServeFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	path := flags.ConfigFile
	if path == "" {
		path = "config.yaml"
	}
	cfg := config.LoadOrEnvWithPath(path)

	if err := cli.RunServe(cfg, flags); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}
