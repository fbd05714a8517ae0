// Command positions reconciles d1g1t positions against custodian positions
// for one day of a client profile.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/AlanFontoura/myscripts/internal/application/positions"
	"github.com/AlanFontoura/myscripts/internal/cli"
	"github.com/AlanFontoura/myscripts/internal/clients"
	"github.com/AlanFontoura/myscripts/internal/domain/recon"
)

func main() {
	var common cli.Common
	var date, outputDir string
	var workbook bool
	fs := flag.NewFlagSet("positions", flag.ExitOnError)
	common.Register(fs)
	fs.StringVar(&date, "date", "", "Recon date")
	fs.StringVar(&outputDir, "out", "", "Output folder (defaults to recon.output_dir)")
	fs.BoolVar(&workbook, "workbook", false, "Also write every report as one XLSX workbook")
	_ = fs.Parse(os.Args[1:])

	ctx := context.Background()
	env, err := cli.Setup(ctx, "positions", common, clients.Options{S3: true, History: true})
	if err != nil {
		cli.Fatal(nil, "Setup failed", err)
	}
	defer env.Close()

	if env.Profile == nil {
		cli.Fatal(env.Logger, "Invalid arguments", errors.New("-profile is required"))
	}
	p := env.Profile
	if err := p.Require("CLIENT", "ENVIRONMENT", "TRACKING_FILE", "POSITION_FILE", "SECURITY_MASTER_FILE"); err != nil {
		cli.Fatal(env.Logger, "Invalid profile", err)
	}
	reconDate, err := cli.ParseDate(date)
	if err != nil {
		cli.Fatal(env.Logger, "Invalid arguments", err)
	}
	if outputDir == "" {
		outputDir = env.Config.Recon.OutputDir
	}

	cli.PrintHeader("positions", p.Name, reconDate)
	result, err := positions.NewRunner(env.Clients.Files, env.Clients.Recorder, env.Logger).Run(ctx, positions.Options{
		Profile:            p.Name,
		Date:               reconDate,
		Client:             p.Client,
		Environment:        p.Environment,
		TrackingFile:       p.TrackingFile,
		PositionFile:       p.PositionFile,
		SecurityMasterFile: p.SecurityMasterFile,
		USDSecurity:        p.USDSecurity,
		Thresholds:         p.Thresholds,
		OutputDir:          outputDir,
		Workbook:           workbook,
	})
	if err != nil {
		cli.Fatal(env.Logger, "Position recon failed", err)
	}

	counts := map[string]int{"Rows": result.Rows, "Breaks": result.Breaks}
	for category, n := range result.Reports {
		counts[category] = n
	}
	order := append([]string{"Rows", "Breaks"}, recon.Categories...)
	cli.PrintSummary("positions", counts, order, env.Clients.Store)
	cli.PrintFiles(result.Files)
}
