package main

import (
	"flag"
	"fmt"

	"illuminator/internal/config"
	"illuminator/internal/logging"
	"illuminator/internal/sim"
)

// Demo:
// - Build a two-prosumer scenario inline (no YAML, no profile files)
// - Run one hour of 15-minute slots through all three markets
// - Print the per-slot ledger to show how the pieces fit together
func main() {
	logLevel := flag.String("log-level", "warn", "Log level")
	flag.Parse()

	logging.Setup(logging.Options{Level: *logLevel})

	slots := []string{
		"2024-06-01 00:00:00",
		"2024-06-01 00:15:00",
		"2024-06-01 00:30:00",
		"2024-06-01 00:45:00",
	}

	// Producer generates more than it consumes; consumer is the mirror.
	pv := map[string]float64{}
	load := map[string]float64{}
	for _, s := range slots {
		pv[s] = 12
		load[s] = 8
	}

	cfg := &config.Config{
		Start: "2024-06-01 00:00:00",
		End:   "2024-06-01 01:00:00",
		Realtime: config.RealtimeConfig{
			BuyPrice:  0.40,
			SellPrice: 0.05,
		},
		Agents: []config.AgentConfig{
			{
				Name:     "rooftop-pv",
				Strategy: "market_first",
				Generators: []config.AssetConfig{
					{Name: "pv", MarketMetric: 0.12, PeerMetric: 0.10, Profile: pv},
				},
			},
			{
				Name:     "household",
				Strategy: "market_first",
				Demands: []config.AssetConfig{
					{Name: "base-load", MarketMetric: 0.30, PeerMetric: 0.25, Profile: load},
				},
			},
		},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	scenario, err := sim.BuildScenario(cfg)
	if err != nil {
		panic(err)
	}

	res, err := sim.New().Run(scenario)
	if err != nil {
		panic(err)
	}

	fmt.Printf("run %s\n", res.RunID)
	fmt.Println("slot                 em_price  em_qty  p2p_qty  rt_buy  rt_sell")
	for _, row := range res.Ledger {
		fmt.Printf("%s  %8.4f %7.3f %8.3f %7.3f %8.3f\n",
			row.Slot, row.DayAheadPrice, row.DayAheadQuantity,
			row.P2PQuantityTraded, row.RTBought, row.RTSold)
	}

	for name, s := range res.Settlements {
		fmt.Printf("%s: revenue=%.4f cost=%.4f\n", name, s.Revenue, s.Cost)
	}
}
