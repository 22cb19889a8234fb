package analysis

import (
	"math"
	"sort"

	"illuminator/internal/market"
	"illuminator/internal/sim"
)

// RunSummary is a run-level digest of clearing prices and traded volume,
// useful for comparing scenarios without reading the full ledger.
type RunSummary struct {
	Slots int

	ClearedSlots int

	MinPrice  float64
	MaxPrice  float64
	MeanPrice float64
	P05Price  float64
	P95Price  float64

	SpreadP95P05 float64

	DayAheadVolume float64
	P2PVolume      float64
	RTBought       float64
	RTSold         float64
}

// Summarize digests a run ledger. Price statistics cover only slots that
// actually cleared; volumes cover the whole horizon.
func Summarize(ledger []sim.LedgerRow) RunSummary {
	s := RunSummary{Slots: len(ledger)}
	if len(ledger) == 0 {
		return s
	}

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	var prices []float64
	for _, row := range ledger {
		s.DayAheadVolume += row.DayAheadQuantity
		s.P2PVolume += row.P2PQuantityTraded
		s.RTBought += row.RTBought
		s.RTSold += row.RTSold
		if row.DayAheadQuantity == 0 {
			continue
		}
		s.ClearedSlots++
		p := row.DayAheadPrice
		prices = append(prices, p)
		sum += p
		if p < minv {
			minv = p
		}
		if p > maxv {
			maxv = p
		}
	}
	if len(prices) == 0 {
		return s
	}

	s.MinPrice = minv
	s.MaxPrice = maxv
	s.MeanPrice = sum / float64(len(prices))
	sort.Float64s(prices)
	s.P05Price = percentile(prices, 0.05)
	s.P95Price = percentile(prices, 0.95)
	s.SpreadP95P05 = s.P95Price - s.P05Price
	return s
}

// percentile picks from sorted values by nearest-rank.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Round(q * float64(len(sorted)-1)))
	return sorted[idx]
}

// ParticipantRank is one row of a per-participant profit ranking.
type ParticipantRank struct {
	Name    string
	Revenue float64
	Cost    float64
	Net     float64
}

// RankByNet orders participants by day-ahead net position, best first.
func RankByNet(settlements map[string]*market.Settlement) []ParticipantRank {
	out := make([]ParticipantRank, 0, len(settlements))
	for name, s := range settlements {
		out = append(out, ParticipantRank{
			Name:    name,
			Revenue: s.Revenue,
			Cost:    s.Cost,
			Net:     s.Revenue - s.Cost,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Net != out[j].Net {
			return out[i].Net > out[j].Net
		}
		return out[i].Name < out[j].Name
	})
	return out
}
