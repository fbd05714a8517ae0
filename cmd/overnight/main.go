// Command overnight copies one day of a client's custodian files from S3.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/AlanFontoura/myscripts/internal/application/overnight"
	"github.com/AlanFontoura/myscripts/internal/cli"
	"github.com/AlanFontoura/myscripts/internal/clients"
)

func main() {
	var common cli.Common
	var opts overnight.Options
	var date string
	fs := flag.NewFlagSet("overnight", flag.ExitOnError)
	common.Register(fs)
	fs.StringVar(&date, "date", "", "Business date")
	fs.StringVar(&opts.Client, "client", "", "Client name")
	fs.StringVar(&opts.Root, "root", "", "Root holding <client>/<YYYYMMDD>/ folders")
	fs.StringVar(&opts.OutputDir, "out", "", "Output folder (defaults to recon.input_dir)")
	_ = fs.Parse(os.Args[1:])

	ctx := context.Background()
	env, err := cli.Setup(ctx, "overnight", common, clients.Options{S3: true, History: true})
	if err != nil {
		cli.Fatal(nil, "Setup failed", err)
	}
	defer env.Close()

	if opts.Client == "" && env.Profile != nil {
		opts.Client = env.Profile.Client
	}
	if opts.Client == "" {
		cli.Fatal(env.Logger, "Invalid arguments", errors.New("-client is required"))
	}
	if opts.Date, err = cli.ParseDate(date); err != nil {
		cli.Fatal(env.Logger, "Invalid arguments", err)
	}
	if opts.Root == "" && env.Config.S3.CustodianBucket != "" {
		opts.Root = fmt.Sprintf("s3://%s/apx", env.Config.S3.CustodianBucket)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = env.Config.Recon.InputDir
	}
	if env.Profile != nil {
		opts.Profile = env.Profile.Name
	}
	opts.Workers = env.Config.D1g1t.Workers

	cli.PrintHeader("overnight", opts.Client, opts.Date)
	result, err := overnight.NewDownloader(env.Clients.Files, env.Clients.Recorder, env.Logger).Run(ctx, opts)
	if err != nil {
		cli.Fatal(env.Logger, "Overnight download failed", err)
	}

	cli.PrintSummary("overnight", map[string]int{
		"Downloaded": result.Downloaded,
		"Failed":     result.Failed,
	}, []string{"Downloaded", "Failed"}, env.Clients.Store)
	fmt.Printf("\nFolder: %s\n", result.Folder)
}
