package market

import (
	"errors"

	"illuminator/internal/model"
)

// ErrNoIntersection is returned when the supply and demand curves for a
// slot never cross: either side is empty, the supply price floor exceeds
// the demand price ceiling, or the curves run past each other. It marks a
// valid market outcome, not a failure.
var ErrNoIntersection = errors.New("supply and demand curves do not intersect")

// Side names which half of the market the clearing (marginal) bid sits on.
type Side int

const (
	SupplySide Side = iota
	DemandSide
)

func (s Side) String() string {
	if s == DemandSide {
		return "demand"
	}
	return "supply"
}

// ClearingResult is the outcome of clearing one slot: the uniform price
// and quantity plus the partition of bids into accepted sets. The marginal
// bid appears in its accepted set with a possibly partial ClearedQuantity.
type ClearingResult struct {
	Slot     model.Slot
	Price    float64
	Quantity float64

	ClearingBid      Bid
	ClearingQuantity float64
	ClearingSide     Side

	AcceptedSupply []AcceptedBid
	AcceptedDemand []AcceptedBid
}

// Clear finds the uniform clearing price and quantity for one slot.
//
// Supply bids are stacked cheapest first, demand bids highest first, and
// both stacks become step curves of alternating quantity runs and price
// jumps. The clearing point is the first geometric intersection found while
// walking supply segments in increasing-quantity order: a supply quantity
// run crossing a demand price jump, or a supply price jump crossing a
// demand quantity run. When both kinds meet at a shared vertex the quantity
// run on the supply side wins, which makes the tie-break deterministic.
func Clear(slot model.Slot, supplyBids, demandBids []Bid) (*ClearingResult, error) {
	supply := sortSupply(filterBySlot(supplyBids, slot))
	demand := sortDemand(filterBySlot(demandBids, slot))
	if len(supply) == 0 || len(demand) == 0 {
		return nil, ErrNoIntersection
	}

	sCurve := BuildSupplyCurve(supply)
	dCurve := BuildDemandCurve(demand)

	// No overlap at zero quantity: the cheapest offer already prices out
	// the most willing buyer.
	if sCurve.OpeningPrice() > dCurve.OpeningPrice() {
		return nil, ErrNoIntersection
	}

	for _, ss := range sCurve.Segments {
		for _, ds := range dCurve.Segments {
			switch {
			case ss.Kind == QuantityStep && ds.Kind == PriceStep:
				if !ss.containsQuantity(ds.From.Quantity) || !ds.containsPrice(ss.From.Price) {
					continue
				}
				return resultAtSupplyRun(slot, supply, demand, ss, ds), nil
			case ss.Kind == PriceStep && ds.Kind == QuantityStep:
				if !ds.containsQuantity(ss.From.Quantity) || !ss.containsPrice(ds.From.Price) {
					continue
				}
				return resultAtDemandRun(slot, supply, demand, ss, ds), nil
			}
		}
	}

	return nil, ErrNoIntersection
}

// resultAtSupplyRun builds the result for an intersection on a supply
// quantity run: the supply bid is marginal, the price is its limit price,
// and the quantity is the demand curve's plateau.
func resultAtSupplyRun(slot model.Slot, supply, demand []Bid, ss, ds Segment) *ClearingResult {
	quantity := ds.From.Quantity
	partial := quantity - ss.quantityLow()
	return &ClearingResult{
		Slot:             slot,
		Price:            ss.From.Price,
		Quantity:         quantity,
		ClearingBid:      supply[ss.BidIndex],
		ClearingQuantity: partial,
		ClearingSide:     SupplySide,
		AcceptedSupply:   acceptThrough(supply, ss.BidIndex, partial),
		AcceptedDemand:   acceptThrough(demand, ds.BidIndex, demand[ds.BidIndex].Quantity),
	}
}

// resultAtDemandRun is the mirror case: the demand bid is marginal and the
// quantity is the supply curve's plateau.
func resultAtDemandRun(slot model.Slot, supply, demand []Bid, ss, ds Segment) *ClearingResult {
	quantity := ss.From.Quantity
	partial := quantity - ds.quantityLow()
	return &ClearingResult{
		Slot:             slot,
		Price:            ds.From.Price,
		Quantity:         quantity,
		ClearingBid:      demand[ds.BidIndex],
		ClearingQuantity: partial,
		ClearingSide:     DemandSide,
		AcceptedSupply:   acceptThrough(supply, ss.BidIndex, supply[ss.BidIndex].Quantity),
		AcceptedDemand:   acceptThrough(demand, ds.BidIndex, partial),
	}
}

// acceptThrough accepts sorted[0..idx] inclusive: everything at-or-better
// than the marginal bid. The bid at idx clears marginalQuantity; every
// earlier bid clears in full.
func acceptThrough(sorted []Bid, idx int, marginalQuantity float64) []AcceptedBid {
	out := make([]AcceptedBid, 0, idx+1)
	for i := 0; i <= idx && i < len(sorted); i++ {
		cleared := sorted[i].Quantity
		if i == idx {
			cleared = marginalQuantity
		}
		out = append(out, AcceptedBid{Bid: sorted[i], ClearedQuantity: cleared})
	}
	return out
}
