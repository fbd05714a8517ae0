// Command navhistory downloads the NAV history of every account, client or
// household of a d1g1t server and concatenates it into one CSV.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/AlanFontoura/myscripts/internal/adapters/d1g1t"
	"github.com/AlanFontoura/myscripts/internal/application/navhistory"
	"github.com/AlanFontoura/myscripts/internal/cli"
	"github.com/AlanFontoura/myscripts/internal/clients"
)

func main() {
	var common cli.Common
	var date, currency, level, server, user string
	var filter bool
	fs := flag.NewFlagSet("navhistory", flag.ExitOnError)
	common.Register(fs)
	fs.StringVar(&date, "date", "", "Report date")
	fs.StringVar(&currency, "currency", "CAD", "Reporting currency")
	fs.StringVar(&level, "level", "accounts", "Hierarchy level (accounts, clients or households)")
	fs.BoolVar(&filter, "filter", false, "Only download entities listed in vnf_<level>.csv")
	fs.StringVar(&server, "server", "", "Server domain name (defaults to d1g1t.server)")
	fs.StringVar(&user, "user", "", "Username used for login (defaults to d1g1t.username)")
	_ = fs.Parse(os.Args[1:])

	ctx := context.Background()
	env, err := cli.Setup(ctx, "navhistory", common, clients.Options{History: true})
	if err != nil {
		cli.Fatal(nil, "Setup failed", err)
	}
	defer env.Close()

	reportDate, err := cli.ParseDate(date)
	if err != nil {
		cli.Fatal(env.Logger, "Invalid arguments", err)
	}
	if user != "" {
		env.Config.D1g1t.Username = user
	}
	if server == "" {
		server = env.Config.D1g1t.Server
	}

	api, err := env.Clients.D1g1t(ctx, env.Config, server, env.Logger)
	if err != nil {
		cli.Fatal(env.Logger, "Login failed", err)
	}

	cli.PrintHeader("navhistory", d1g1t.ServerName(server), level, reportDate)
	result, err := navhistory.NewDownloader(api, env.Clients.Recorder, env.Logger).Run(ctx, navhistory.Options{
		Date:      reportDate,
		Currency:  currency,
		Level:     level,
		Filter:    filter,
		Server:    d1g1t.ServerName(server),
		InputDir:  env.Config.Recon.InputDir,
		OutputDir: env.Config.Recon.OutputDir,
		Workers:   env.Config.D1g1t.Workers,
	})
	if err != nil {
		cli.Fatal(env.Logger, "NAV history download failed", err)
	}

	cli.PrintSummary("navhistory", map[string]int{
		"Entities":   result.Entities,
		"Skipped":    result.Skipped,
		"Downloaded": result.Downloaded,
		"Failed":     result.Failed,
		"Rows":       result.Rows,
	}, []string{"Entities", "Skipped", "Downloaded", "Failed", "Rows"}, env.Clients.Store)
	if result.Concatenated != "" {
		cli.PrintFiles([]string{result.Concatenated})
	}
}
