package market

import (
	"sort"

	"illuminator/internal/model"
)

// Bid is an offer to sell (supply) or buy (demand) energy at a limit price
// for one delivery slot. Quantity is always a positive kW magnitude inside
// the market; the sign convention at the agent boundary is handled by the
// submitting side. Bids are immutable once submitted.
type Bid struct {
	Slot     model.Slot
	Quantity float64
	Price    float64
	// Owner is the submitting participant.
	Owner string
	// Asset identifies which of the owner's assets produced the bid, so
	// accepted quantities can be settled back onto the right forecast.
	Asset string
}

// AcceptedBid pairs an original bid with the quantity the market actually
// cleared for it. The marginal bid of a clearing may be partially filled;
// every other accepted bid clears in full. The original bid is never
// mutated.
type AcceptedBid struct {
	Bid
	ClearedQuantity float64
}

// filterBySlot returns the bids whose delivery slot matches exactly.
func filterBySlot(bids []Bid, slot model.Slot) []Bid {
	var out []Bid
	for _, b := range bids {
		if b.Slot.Equal(slot) {
			out = append(out, b)
		}
	}
	return out
}

// sortSupply orders supply bids cheapest first. The sort is stable so that
// equal-priced bids keep submission order.
func sortSupply(bids []Bid) []Bid {
	out := append([]Bid(nil), bids...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// sortDemand orders demand bids by highest willingness-to-pay first.
func sortDemand(bids []Bid) []Bid {
	out := append([]Bid(nil), bids...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}

func totalQuantity(bids []Bid) float64 {
	total := 0.0
	for _, b := range bids {
		total += b.Quantity
	}
	return total
}
