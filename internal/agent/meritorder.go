package agent

import (
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"

	"illuminator/internal/market"
	"illuminator/internal/model"
)

// metricOf selects which merit-order metric ranks an asset in the current
// game: marginal cost/benefit for the wholesale market, offer/request
// metrics for peer trading.
type metricOf func(model.AssetRow) float64

func marketMetric(a model.AssetRow) float64 { return a.MarketMetric }
func peerMetric(a model.AssetRow) float64   { return a.PeerMetric }

// dispatchTolerance absorbs float drift when checking that a slot's bid
// stack adds up to its forecast surplus or shortfall.
const dispatchTolerance = 1e-6

// rankByMetric returns the assets ordered by the selected metric,
// highest first. Stable, so equal-metric assets keep configuration order.
func rankByMetric(assets []model.AssetRow, metric metricOf) []model.AssetRow {
	ranked := append([]model.AssetRow(nil), assets...)
	sort.SliceStable(ranked, func(i, j int) bool { return metric(ranked[i]) > metric(ranked[j]) })
	return ranked
}

// buildSupplyBids constructs the supply bid stack for every slot with a
// positive forecast excess. Assets are dispatched in merit order; each
// asset's output first covers the agent's own demand at the slot, and only
// the surplus beyond internal netting becomes an external bid priced at
// the asset's metric.
//
// The stack must add up to the slot's excess. In strict mode a mismatch is
// an error; otherwise it is logged and the stack is used as built.
func buildSupplyBids(owner string, slots []model.Slot, generators []model.AssetRow, ownDemand, excess model.Series, metric metricOf, strict bool, logger *log.Entry) ([]market.Bid, error) {
	ranked := rankByMetric(generators, metric)
	var bids []market.Bid
	for _, slot := range slots {
		target := excess.At(slot)
		if target <= 0 {
			continue
		}
		remaining := ownDemand.At(slot)
		total := 0.0
		for _, a := range ranked {
			output := a.Series.At(slot)
			if output <= 0 {
				continue
			}
			if remaining >= output {
				remaining -= output
				continue
			}
			surplus := output - remaining
			remaining = 0
			bids = append(bids, market.Bid{
				Slot:     slot,
				Quantity: surplus,
				Price:    metric(a),
				Owner:    owner,
				Asset:    a.Name,
			})
			total += surplus
		}
		if err := checkDispatch(owner, slot, "supply", total, target, strict, logger); err != nil {
			return nil, err
		}
	}
	return bids, nil
}

// buildDemandBids is the mirror of buildSupplyBids for slots with a
// forecast shortfall. Demand assets are ranked by the metric descending
// (highest willingness first); consumption is netted against the agent's
// own generation, and the remaining shortfall becomes an external bid with
// the agent-side negative quantity convention.
func buildDemandBids(owner string, slots []model.Slot, demands []model.AssetRow, ownGeneration, deficit model.Series, metric metricOf, strict bool, logger *log.Entry) ([]market.Bid, error) {
	ranked := rankByMetric(demands, metric)
	var bids []market.Bid
	for _, slot := range slots {
		target := -deficit.At(slot)
		if target <= 0 {
			continue
		}
		remaining := ownGeneration.At(slot)
		total := 0.0
		for _, a := range ranked {
			consumption := a.Series.At(slot)
			if consumption <= 0 {
				continue
			}
			if remaining >= consumption {
				remaining -= consumption
				continue
			}
			shortfall := consumption - remaining
			remaining = 0
			bids = append(bids, market.Bid{
				Slot:     slot,
				Quantity: -shortfall,
				Price:    metric(a),
				Owner:    owner,
				Asset:    a.Name,
			})
			total += shortfall
		}
		if err := checkDispatch(owner, slot, "demand", total, target, strict, logger); err != nil {
			return nil, err
		}
	}
	return bids, nil
}

// checkDispatch verifies the merit-order stack covers exactly the slot's
// forecast position.
func checkDispatch(owner string, slot model.Slot, side string, total, target float64, strict bool, logger *log.Entry) error {
	if math.Abs(total-target) <= dispatchTolerance {
		return nil
	}
	if strict {
		return fmt.Errorf("%s %s stack at %s sums to %g, forecast is %g", owner, side, slot, total, target)
	}
	logger.WithFields(log.Fields{
		"slot":     slot.Format(),
		"side":     side,
		"stack":    total,
		"forecast": target,
	}).Warn("merit-order stack does not cover forecast position")
	return nil
}
