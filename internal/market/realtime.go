package market

import (
	"fmt"
	"sort"

	"illuminator/internal/model"
)

// RealTimeStep echoes the quoted prices back to the caller. The balancer
// does not clear a market: residual flows are already determined upstream
// and settle at whatever price is quoted.
type RealTimeStep struct {
	BuyPrice  float64
	SellPrice float64
}

// RealTimeBalancer settles residual imbalances at externally quoted
// prices and keeps cumulative per-agent books. Every call appends one CSV
// row per known agent, so the result file grows for the whole run.
type RealTimeBalancer struct {
	outputDir string

	agents  map[string]bool
	cost    map[string]float64
	revenue map[string]float64

	wroteHeader bool
}

func NewRealTimeBalancer(outputDir string) *RealTimeBalancer {
	return &RealTimeBalancer{
		outputDir: outputDir,
		agents:    map[string]bool{},
		cost:      map[string]float64{},
		revenue:   map[string]float64{},
	}
}

// Cost and Revenue report an agent's cumulative settled totals. Cost is
// accrued negative: money leaving the agent.
func (b *RealTimeBalancer) Cost(name string) float64    { return b.cost[name] }
func (b *RealTimeBalancer) Revenue(name string) float64 { return b.revenue[name] }

// Settle accrues one step of residual settlement. buys and sells map agent
// name to the residual kW bought from / sold to the balancing market this
// slot; division by 4 converts to kWh for a 15-minute slot.
func (b *RealTimeBalancer) Settle(now model.Slot, buyPrice, sellPrice float64, buys, sells map[string]float64) (RealTimeStep, error) {
	for name, qty := range buys {
		b.agents[name] = true
		b.cost[name] += -qty / 4 * buyPrice
	}
	for name, qty := range sells {
		b.agents[name] = true
		b.revenue[name] += qty / 4 * sellPrice
	}

	if b.outputDir != "" {
		if err := b.appendRows(now, buyPrice, sellPrice, buys, sells); err != nil {
			return RealTimeStep{}, fmt.Errorf("append realtime rows: %w", err)
		}
	}
	return RealTimeStep{BuyPrice: buyPrice, SellPrice: sellPrice}, nil
}

// knownAgents returns the agents seen so far in a stable order.
func (b *RealTimeBalancer) knownAgents() []string {
	names := make([]string, 0, len(b.agents))
	for name := range b.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
