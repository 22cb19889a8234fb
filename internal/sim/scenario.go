package sim

import (
	"fmt"

	"illuminator/internal/agent"
	"illuminator/internal/config"
	"illuminator/internal/data"
	"illuminator/internal/market"
	"illuminator/internal/model"
)

// BuildScenario turns a validated scenario config into a runnable wiring
// of agents and markets.
func BuildScenario(cfg *config.Config) (*Scenario, error) {
	start, end := cfg.Horizon()
	slots := model.SlotsBetween(start, end, model.SlotDuration)

	agents := make([]*agent.Prosumer, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		strat, err := agent.ParseStrategy(ac.Strategy)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.Name, err)
		}
		generators, err := buildAssets(cfg, ac.Generators, slots)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.Name, err)
		}
		demands, err := buildAssets(cfg, ac.Demands, slots)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.Name, err)
		}
		storages, err := buildAssets(cfg, ac.Storages, slots)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", ac.Name, err)
		}
		p, err := agent.New(agent.Config{
			Name:       ac.Name,
			Strategy:   strat,
			Strict:     ac.Strict,
			Generators: generators,
			Demands:    demands,
			Storages:   storages,
		}, slots)
		if err != nil {
			return nil, err
		}
		agents = append(agents, p)
	}

	return &Scenario{
		Start:       start,
		End:         end,
		RTBuyPrice:  cfg.Realtime.BuyPrice,
		RTSellPrice: cfg.Realtime.SellPrice,
		Agents:      agents,
		DayAhead:    market.NewDayAheadMarket(end, cfg.OutputDir),
		P2P:         market.NewP2PMarket(cfg.OutputDir),
		Balancer:    market.NewRealTimeBalancer(cfg.OutputDir),
	}, nil
}

// buildAssets resolves asset configs into rows with concrete forecast
// series: a profile file overlaid by inline values, or a projected SOC
// curve for battery-backed storages.
func buildAssets(cfg *config.Config, assets []config.AssetConfig, slots []model.Slot) ([]model.AssetRow, error) {
	out := make([]model.AssetRow, 0, len(assets))
	for _, ac := range assets {
		series := model.NewSeries()
		if ac.ProfileFile != "" {
			loaded, err := data.LoadProfileJSON(cfg.ResolvePath(ac.ProfileFile))
			if err != nil {
				return nil, fmt.Errorf("asset %s: %w", ac.Name, err)
			}
			series = loaded
		}
		if len(ac.Profile) > 0 {
			inline, err := data.SeriesFromMap(ac.Profile)
			if err != nil {
				return nil, fmt.Errorf("asset %s: %w", ac.Name, err)
			}
			for k, v := range inline {
				series[k] = v
			}
		}
		if ac.Battery != nil {
			batt, err := model.NewBattery(ac.Battery.ToModelParams(), ac.Battery.InitialSOC)
			if err != nil {
				return nil, fmt.Errorf("asset %s: %w", ac.Name, err)
			}
			series = batt.SOCSeries(slots, series)
		}
		out = append(out, model.AssetRow{
			Name:         ac.Name,
			Series:       series,
			MarketMetric: ac.MarketMetric,
			PeerMetric:   ac.PeerMetric,
		})
	}
	return out, nil
}
