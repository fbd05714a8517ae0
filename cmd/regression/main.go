// Command regression compares the NAV downloads of two environment versions.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/AlanFontoura/myscripts/internal/application/regression"
	"github.com/AlanFontoura/myscripts/internal/cli"
	"github.com/AlanFontoura/myscripts/internal/clients"
)

func main() {
	var common cli.Common
	var opts regression.Options
	fs := flag.NewFlagSet("regression", flag.ExitOnError)
	common.Register(fs)
	fs.StringVar(&opts.Level, "level", "accounts", "Hierarchy level (accounts, clients or households)")
	fs.StringVar(&opts.BaseEnv, "base-env", "", "Base environment name")
	fs.StringVar(&opts.TargetEnv, "target-env", "", "Target environment name")
	fs.StringVar(&opts.BaseVersion, "base-version", "", "Base version (e.g. v5.0)")
	fs.StringVar(&opts.TargetVersion, "target-version", "", "Target version (e.g. v5.1)")
	fs.Float64Var(&opts.Tolerance, "tolerance", 0, "Largest difference still reconciled (defaults to recon.tolerance)")
	_ = fs.Parse(os.Args[1:])

	ctx := context.Background()
	env, err := cli.Setup(ctx, "regression", common, clients.Options{History: true})
	if err != nil {
		cli.Fatal(nil, "Setup failed", err)
	}
	defer env.Close()

	if opts.BaseEnv == "" || opts.TargetEnv == "" || opts.BaseVersion == "" || opts.TargetVersion == "" {
		cli.Fatal(env.Logger, "Invalid arguments", errors.New("-base-env, -target-env, -base-version and -target-version are required"))
	}
	if opts.Tolerance == 0 {
		opts.Tolerance = env.Config.Recon.Tolerance
	}
	opts.OutputDir = env.Config.Recon.OutputDir

	cli.PrintHeader("regression", opts.BaseEnv+" "+opts.BaseVersion, opts.TargetEnv+" "+opts.TargetVersion, opts.Level)
	result, err := regression.NewRunner(env.Clients.Recorder, env.Logger).Run(ctx, opts)
	if err != nil {
		cli.Fatal(env.Logger, "Regression failed", err)
	}

	cli.PrintSummary("regression", map[string]int{"Rows": result.Rows, "Breaks": result.Breaks},
		[]string{"Rows", "Breaks"}, env.Clients.Store)
	cli.PrintFiles([]string{result.FullFile, result.FilteredFile})
}
