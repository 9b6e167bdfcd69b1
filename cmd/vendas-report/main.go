// Command vendas-report prints the dashboard indicators for one month.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"vendas/internal/backend"
	"vendas/internal/cli"
	"vendas/internal/config"
	"vendas/internal/core"
	apphttp "vendas/internal/http"
	applog "vendas/internal/log"
	"vendas/internal/services"
)

func main() {
	year := flag.Int("year", 0, "year to report (default: latest in the ledger)")
	month := flag.Int("month", 0, "month to report, 1-12 (default: latest of the year)")
	asJSON := flag.Bool("json", false, "print the snapshot as JSON")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentDashboard)
	cfg := cli.MustLoadConfig(logger, (*config.Config).Validate)

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Failed to resolve display timezone", err, "timezone", cfg.DisplayTimezone)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	}
	defer result.Close()

	dash := services.NewDashboardService(result.Source, services.DashboardConfig{
		SourceName:    cfg.DataBackend,
		SourceTimeout: cfg.SourceTimeout,
	})
	view, err := dash.View(ctx, core.Selection{Year: *year, Month: *month})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Erro ao processar dados: "+err.Error())
		result.Close()
		os.Exit(1)
	}

	resp := apphttp.NewSnapshotResponse(view, loc)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			cli.Fatal(logger, "Failed to encode snapshot", err)
		}
		return
	}
	if err := printReport(os.Stdout, view, resp); err != nil {
		cli.Fatal(logger, "Failed to write report", err)
	}
}

func printReport(out io.Writer, view services.DashboardView, resp apphttp.SnapshotResponse) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s de %d\n", resp.MonthName, resp.Year)
	fmt.Fprintf(tw, "Dados atualizados em:\t%s\n", resp.LoadedAt.Format("02/01/2006 15:04:05"))
	for _, card := range apphttp.KPICards(view.Snapshot) {
		if card.Delta != "" {
			fmt.Fprintf(tw, "%s:\t%s\t(%s)\n", card.Label, card.Value, card.Delta)
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", card.Label, card.Value)
	}
	if view.Snapshot.HasTarget {
		fmt.Fprintf(tw, "Meta:\t%s\n", core.FormatBRL(view.Snapshot.TargetValue))
	} else {
		fmt.Fprintln(tw, "Meta não cadastrada.")
	}
	return tw.Flush()
}
