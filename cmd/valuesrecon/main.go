// Command valuesrecon reconciles the daily values files of two environment
// folders.
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/AlanFontoura/myscripts/internal/application/valuesrecon"
	"github.com/AlanFontoura/myscripts/internal/cli"
	"github.com/AlanFontoura/myscripts/internal/clients"
)

func main() {
	var common cli.Common
	var opts valuesrecon.Options
	fs := flag.NewFlagSet("valuesrecon", flag.ExitOnError)
	common.Register(fs)
	fs.StringVar(&opts.BaseEnv, "base", "", "Folder with the base environment files")
	fs.StringVar(&opts.TargetEnv, "target", "", "Folder with the target environment files")
	fs.StringVar(&opts.AccountMaster, "accounts", "", "Account master extract (optional)")
	fs.Float64Var(&opts.Threshold, "threshold", 0, "Largest difference still reconciled")
	fs.StringVar(&opts.ExcludeDate, "exclude-date", "", "Drop rows of this date")
	_ = fs.Parse(os.Args[1:])

	ctx := context.Background()
	env, err := cli.Setup(ctx, "valuesrecon", common, clients.Options{History: true})
	if err != nil {
		cli.Fatal(nil, "Setup failed", err)
	}
	defer env.Close()

	if opts.BaseEnv == "" || opts.TargetEnv == "" {
		cli.Fatal(env.Logger, "Invalid arguments", errors.New("-base and -target are required"))
	}
	if opts.Threshold == 0 {
		opts.Threshold = env.Config.Recon.Tolerance
	}
	opts.OutputDir = env.Config.Recon.OutputDir

	cli.PrintHeader("valuesrecon", opts.BaseEnv, opts.TargetEnv)
	result, err := valuesrecon.NewRunner(env.Clients.Recorder, env.Logger).Run(ctx, opts)
	if err != nil {
		cli.Fatal(env.Logger, "Values recon failed", err)
	}

	cli.PrintSummary("valuesrecon", map[string]int{
		"Files":   result.Files,
		"Merged":  result.Merged,
		"Skipped": result.Skipped,
		"Rows":    result.Rows,
		"Breaks":  result.Breaks,
	}, []string{"Files", "Merged", "Skipped", "Rows", "Breaks"}, env.Clients.Store)
}
