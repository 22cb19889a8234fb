package sim

import (
	"illuminator/internal/market"
	"illuminator/internal/model"
)

// LedgerRow is one row of per-slot output: the cleared and traded state of
// every market at that slot. This is the primary "what happened" artifact
// of a run.
type LedgerRow struct {
	Index int
	Slot  model.Slot

	DayAheadPrice    float64
	DayAheadQuantity float64

	P2PQuantityTraded float64

	// DeliveredEM and DeliveredP2P sum the agents' signed real-time
	// delivery instructions at this slot.
	DeliveredEM  float64
	DeliveredP2P float64

	RTBuyPrice  float64
	RTSellPrice float64
	RTBought    float64
	RTSold      float64
}

// Result bundles everything a run produces.
type Result struct {
	RunID  string
	Ledger []LedgerRow

	Settlements  map[string]*market.Settlement
	Trades       []market.Trade
	Transactions map[string]*market.TransactionBook
}

// TotalTraded sums the traded quantity across the whole ledger.
func (r *Result) TotalTraded() float64 {
	total := 0.0
	for _, row := range r.Ledger {
		total += row.P2PQuantityTraded + row.DayAheadQuantity
	}
	return total
}
