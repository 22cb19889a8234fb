package main

import (
	"flag"
	"fmt"
	"os"

	"illuminator/internal/analysis"
	"illuminator/internal/config"
	"illuminator/internal/logging"
	"illuminator/internal/sim"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(os.Args[2:])
	case "check":
		cmdCheck(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli run --scenario examples/scenario.yaml --out results/ledger.csv")
	fmt.Println("  cli check --scenario examples/scenario.yaml")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - run simulates the scenario and writes market result CSVs plus a run ledger")
	fmt.Println("  - check validates a scenario file without running it")
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	scenarioPath := fs.String("scenario", "", "Path to YAML scenario")
	outPath := fs.String("out", "", "Optional path to write the run ledger CSV")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	_ = fs.Parse(args)

	if *scenarioPath == "" {
		fmt.Println("--scenario is required")
		os.Exit(2)
	}

	logging.Setup(logging.Options{Level: *logLevel})

	cfg, err := config.Load(*scenarioPath)
	if err != nil {
		fail(err)
	}

	scenario, err := sim.BuildScenario(cfg)
	if err != nil {
		fail(err)
	}

	res, err := sim.New().Run(scenario)
	if err != nil {
		fail(err)
	}

	if *outPath != "" {
		if err := sim.WriteLedgerCSV(*outPath, res.Ledger); err != nil {
			fail(err)
		}
		fmt.Printf("Wrote %d rows to %s\n", len(res.Ledger), *outPath)
	}

	summary := analysis.Summarize(res.Ledger)
	fmt.Printf("Run %s: %d slots, %d cleared\n", res.RunID, summary.Slots, summary.ClearedSlots)
	if summary.ClearedSlots > 0 {
		fmt.Printf("Day-ahead price: min=%.4f mean=%.4f max=%.4f\n",
			summary.MinPrice, summary.MeanPrice, summary.MaxPrice)
	}
	fmt.Printf("Volume: day-ahead=%.3f kW, p2p=%.3f kW, rt bought=%.3f kW, rt sold=%.3f kW\n",
		summary.DayAheadVolume, summary.P2PVolume, summary.RTBought, summary.RTSold)

	fmt.Println("Participants by net day-ahead position:")
	for i, r := range analysis.RankByNet(res.Settlements) {
		fmt.Printf("%3d. %-20s revenue=%.4f cost=%.4f net=%.4f\n",
			i+1, r.Name, r.Revenue, r.Cost, r.Net)
	}
}

func cmdCheck(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	scenarioPath := fs.String("scenario", "", "Path to YAML scenario")
	_ = fs.Parse(args)

	if *scenarioPath == "" {
		fmt.Println("--scenario is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*scenarioPath)
	if err != nil {
		fail(err)
	}
	start, end := cfg.Horizon()
	fmt.Printf("OK: %d agents, horizon %s .. %s\n", len(cfg.Agents), start, end)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
