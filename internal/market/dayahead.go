package market

import (
	"errors"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"

	"illuminator/internal/model"
)

// Submission is one participant's bid stacks for the day-ahead market.
// Demand bids arrive with the agent-side sign convention (negative
// quantities); the market normalizes them to magnitudes when pooling.
type Submission struct {
	SupplyBids []Bid
	DemandBids []Bid
}

func (s Submission) empty() bool {
	return len(s.SupplyBids) == 0 && len(s.DemandBids) == 0
}

// Feedback is the accepted-bid view returned to one participant. A nil
// slice means the side was never part of the clearing; an empty slice means
// it took part and nothing was accepted. Callers must preserve that
// distinction.
type Feedback struct {
	SupplyBids []AcceptedBid
	DemandBids []AcceptedBid
}

// Settlement is the per-participant bookkeeping of one clearing event.
type Settlement struct {
	Received []Bid
	Accepted []AcceptedBid
	Revenue  float64
	Cost     float64
}

// DayAheadStep is the market's per-step output.
type DayAheadStep struct {
	Price    float64
	Quantity float64
	Accepted map[string]*Feedback
}

// DayAheadMarket clears every 15-minute slot of the horizon in one shot,
// the first time it sees bids from any participant. Clearing the whole
// horizon at once gives every participant a complete day-ahead price
// signal on the very next step. Once cleared the market is frozen: later
// steps only replay cached results.
type DayAheadMarket struct {
	simEnd    model.Slot
	outputDir string

	cleared    bool
	supplyPool []Bid
	demandPool []Bid

	prices     model.Series
	quantities model.Series

	accepted    map[string]*Feedback
	settlements map[string]*Settlement

	logger *log.Entry
}

// NewDayAheadMarket creates an open market that will clear slots up to
// simEnd (exclusive). outputDir may be empty to disable CSV output.
func NewDayAheadMarket(simEnd model.Slot, outputDir string) *DayAheadMarket {
	return &DayAheadMarket{
		simEnd:     simEnd,
		outputDir:  outputDir,
		prices:     model.NewSeries(),
		quantities: model.NewSeries(),
		accepted:   map[string]*Feedback{},
		logger:     log.WithField("market", "dayahead"),
	}
}

// Cleared reports whether the market has run its one clearing event.
func (m *DayAheadMarket) Cleared() bool { return m.cleared }

// Settlements exposes the per-participant books once cleared.
func (m *DayAheadMarket) Settlements() map[string]*Settlement { return m.settlements }

// PriceAt returns the cleared price for a slot, 0 if the slot never cleared.
func (m *DayAheadMarket) PriceAt(slot model.Slot) float64 { return m.prices.At(slot) }

// Step advances the market by one simulated step. While open, the first
// call carrying any submission absorbs all bids, clears the full horizon
// and freezes the market. Closed calls replay cached results for the
// queried slot.
func (m *DayAheadMarket) Step(now model.Slot, players map[string]Submission) (DayAheadStep, error) {
	if m.cleared {
		return m.replay(now), nil
	}

	if !m.absorb(players) {
		// Open with no player data yet: nothing to report.
		return DayAheadStep{}, nil
	}

	if err := m.clearHorizon(now, players); err != nil {
		return DayAheadStep{}, err
	}
	return m.replay(now), nil
}

// absorb pools every player's bids, normalizing demand quantities to
// magnitudes. Returns false when no player submitted anything.
func (m *DayAheadMarket) absorb(players map[string]Submission) bool {
	any := false
	for name, sub := range players {
		if sub.empty() {
			continue
		}
		any = true
		for _, b := range sub.SupplyBids {
			b.Owner = name
			m.supplyPool = append(m.supplyPool, b)
		}
		for _, b := range sub.DemandBids {
			b.Owner = name
			b.Quantity = math.Abs(b.Quantity)
			m.demandPool = append(m.demandPool, b)
		}
	}
	return any
}

// clearHorizon runs the clearing engine over every slot from now to the
// configured end, then settles each participant and freezes the market.
func (m *DayAheadMarket) clearHorizon(now model.Slot, players map[string]Submission) error {
	var allSupply, allDemand []AcceptedBid
	for slot := now; slot.Before(m.simEnd); slot = slot.Add(model.SlotDuration) {
		res, err := Clear(slot, m.supplyPool, m.demandPool)
		if errors.Is(err, ErrNoIntersection) {
			continue
		}
		if err != nil {
			return fmt.Errorf("clear slot %s: %w", slot, err)
		}
		m.prices.Set(slot, res.Price)
		m.quantities.Set(slot, res.Quantity)
		allSupply = append(allSupply, res.AcceptedSupply...)
		allDemand = append(allDemand, res.AcceptedDemand...)
		m.logger.WithFields(log.Fields{
			"slot":     slot.Format(),
			"price":    res.Price,
			"quantity": res.Quantity,
			"marginal": res.ClearingSide.String(),
		}).Info("slot cleared")
	}

	m.settlements = map[string]*Settlement{}
	for name, sub := range players {
		if sub.empty() {
			continue
		}
		m.settlements[name] = m.settle(name, sub, allSupply, allDemand)
		fb := &Feedback{}
		if len(sub.SupplyBids) > 0 {
			fb.SupplyBids = ownedBy(allSupply, name)
		}
		if len(sub.DemandBids) > 0 {
			fb.DemandBids = ownedBy(allDemand, name)
		}
		m.accepted[name] = fb
	}

	m.cleared = true

	if m.outputDir != "" {
		if err := writeDayAheadCSV(m.outputDir, m.settlements); err != nil {
			return fmt.Errorf("write day-ahead results: %w", err)
		}
	}
	return nil
}

// settle splits a participant's submission into received and accepted
// books and totals revenue and cost. Quantities are per-slot kW; dividing
// by 4 converts to kWh for a 15-minute slot.
func (m *DayAheadMarket) settle(name string, sub Submission, allSupply, allDemand []AcceptedBid) *Settlement {
	s := &Settlement{}
	s.Received = append(s.Received, sub.SupplyBids...)
	s.Received = append(s.Received, sub.DemandBids...)
	for _, ab := range ownedBy(allSupply, name) {
		s.Accepted = append(s.Accepted, ab)
		s.Revenue += ab.ClearedQuantity / 4 * m.prices.At(ab.Slot)
	}
	for _, ab := range ownedBy(allDemand, name) {
		s.Accepted = append(s.Accepted, ab)
		s.Cost += ab.ClearedQuantity / 4 * m.prices.At(ab.Slot)
	}
	return s
}

// replay returns the cached view for one slot. Unknown slots report zero
// price and quantity; the accepted map is always the frozen clearing-time
// content.
func (m *DayAheadMarket) replay(now model.Slot) DayAheadStep {
	return DayAheadStep{
		Price:    m.prices.At(now),
		Quantity: m.quantities.At(now),
		Accepted: m.accepted,
	}
}

func ownedBy(bids []AcceptedBid, owner string) []AcceptedBid {
	out := []AcceptedBid{}
	for _, b := range bids {
		if b.Owner == owner {
			out = append(out, b)
		}
	}
	return out
}
