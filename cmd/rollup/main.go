// Command rollup summarizes the latest position recon of a client profile by
// security type, account, client and household.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/AlanFontoura/myscripts/internal/application/rollup"
	"github.com/AlanFontoura/myscripts/internal/cli"
	"github.com/AlanFontoura/myscripts/internal/clients"
)

func main() {
	var common cli.Common
	var outputDir string
	fs := flag.NewFlagSet("rollup", flag.ExitOnError)
	common.Register(fs)
	fs.StringVar(&outputDir, "out", "", "Output folder (defaults to recon.output_dir)")
	_ = fs.Parse(os.Args[1:])

	ctx := context.Background()
	env, err := cli.Setup(ctx, "rollup", common, clients.Options{S3: true, History: true})
	if err != nil {
		cli.Fatal(nil, "Setup failed", err)
	}
	defer env.Close()

	if env.Profile == nil {
		cli.Fatal(env.Logger, "Invalid arguments", errors.New("-profile is required"))
	}
	p := env.Profile
	if err := p.Require("RECON_FOLDER", "DATA_FOLDER"); err != nil {
		cli.Fatal(env.Logger, "Invalid profile", err)
	}
	if outputDir == "" {
		outputDir = env.Config.Recon.OutputDir
	}

	cli.PrintHeader("rollup", p.Name)
	result, err := rollup.NewRunner(env.Clients.Files, env.Clients.Recorder, env.Logger).Run(ctx, rollup.Options{
		Profile:     p.Name,
		ReconFolder: p.ReconFolder,
		DataFolder:  p.DataFolder,
		Metrics:     p.Metrics,
		OutputDir:   outputDir,
	})
	if err != nil {
		cli.Fatal(env.Logger, "Rollup failed", err)
	}

	cli.PrintSummary("rollup", map[string]int{
		"Positions":  result.Positions,
		"Accounts":   result.Accounts,
		"Clients":    result.Clients,
		"Households": result.Households,
	}, []string{"Positions", "Accounts", "Clients", "Households"}, env.Clients.Store)
	cli.PrintFiles(result.Files)
}
