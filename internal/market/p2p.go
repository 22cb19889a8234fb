package market

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"illuminator/internal/model"
)

// Trade is one bilateral match between a demand request and a supply offer.
// Price follows the buyer-pays-bid-price convention: the requester's limit
// price, not the offerer's.
type Trade struct {
	Slot model.Slot

	Requester    string
	RequestQty   float64
	RequestPrice float64

	Offerer    string
	OfferQty   float64
	OfferPrice float64

	Quantity float64
	Price    float64
}

// TransactionEntry records one side of a trade against the participant's
// original submission.
type TransactionEntry struct {
	Slot          model.Slot
	OriginalQty   float64
	OriginalPrice float64
	Quantity      float64
	Price         float64
}

// TransactionBook is a participant's buy and sell ledger.
type TransactionBook struct {
	Buy  []TransactionEntry
	Sell []TransactionEntry
}

// offerState is the matcher's mutable view of one supply offer. Keeping
// remaining quantity in an indexed record avoids re-finding offers by
// value equality after each fill.
type offerState struct {
	bid       Bid
	remaining float64
}

// MatchTrades greedily matches demand requests against supply offers with
// price-time priority: requests are served highest price first (stable, so
// equal-priced requests keep submission order), and each request takes the
// same-slot offer with the largest price improvement until it is filled or
// no offer priced strictly below it remains. Trades are returned in slot
// order.
func MatchTrades(offers, requests []Bid) []Trade {
	states := make([]*offerState, len(offers))
	for i, o := range offers {
		states[i] = &offerState{bid: o, remaining: o.Quantity}
	}

	sorted := append([]Bid(nil), requests...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price > sorted[j].Price })

	var trades []Trade
	for _, req := range sorted {
		remaining := req.Quantity
		for remaining > 0 {
			best := bestOffer(states, req)
			if best == nil {
				break
			}
			qty := remaining
			if best.remaining < qty {
				qty = best.remaining
			}
			best.remaining -= qty
			remaining -= qty
			trades = append(trades, Trade{
				Slot:         req.Slot,
				Requester:    req.Owner,
				RequestQty:   req.Quantity,
				RequestPrice: req.Price,
				Offerer:      best.bid.Owner,
				OfferQty:     best.bid.Quantity,
				OfferPrice:   best.bid.Price,
				Quantity:     qty,
				Price:        req.Price,
			})
		}
	}

	sort.SliceStable(trades, func(i, j int) bool { return trades[i].Slot.Before(trades[j].Slot) })
	return trades
}

// bestOffer picks the unexhausted same-slot offer priced strictly below
// the request that maximizes the requester's price improvement. Ties go to
// the earliest-submitted offer.
func bestOffer(states []*offerState, req Bid) *offerState {
	var best *offerState
	for _, s := range states {
		if s.remaining <= 0 || !s.bid.Slot.Equal(req.Slot) || s.bid.Price >= req.Price {
			continue
		}
		if best == nil || s.bid.Price < best.bid.Price {
			best = s
		}
	}
	return best
}

// P2PSubmission is one participant's offers and requests for the
// peer-to-peer market. Requests arrive with agent-side negative quantities.
type P2PSubmission struct {
	Offers   []Bid
	Requests []Bid
}

func (s P2PSubmission) empty() bool {
	return len(s.Offers) == 0 && len(s.Requests) == 0
}

// P2PStep is the market's per-step output.
type P2PStep struct {
	QuantityTraded float64
	Transactions   map[string]*TransactionBook
}

// P2PMarket matches the whole accumulated pool once, globally across all
// slots, the first time any participant submits. Same freeze-once-cleared
// lifecycle as the day-ahead market.
type P2PMarket struct {
	outputDir string

	cleared     bool
	offerPool   []Bid
	requestPool []Bid

	trades       []Trade
	transactions map[string]*TransactionBook
	revenue      map[string]float64
	cost         map[string]float64

	logger *log.Entry
}

func NewP2PMarket(outputDir string) *P2PMarket {
	return &P2PMarket{
		outputDir:    outputDir,
		transactions: map[string]*TransactionBook{},
		revenue:      map[string]float64{},
		cost:         map[string]float64{},
		logger:       log.WithField("market", "p2p"),
	}
}

func (m *P2PMarket) Cleared() bool { return m.cleared }

// Trades exposes the matched trades once cleared.
func (m *P2PMarket) Trades() []Trade { return m.trades }

// Transactions exposes the frozen per-participant ledgers.
func (m *P2PMarket) Transactions() map[string]*TransactionBook { return m.transactions }

// Revenue and Cost report a participant's settled totals.
func (m *P2PMarket) Revenue(name string) float64 { return m.revenue[name] }
func (m *P2PMarket) Cost(name string) float64    { return m.cost[name] }

// Step advances the market by one simulated step.
func (m *P2PMarket) Step(now model.Slot, players map[string]P2PSubmission) (P2PStep, error) {
	if m.cleared {
		return m.replay(now), nil
	}

	var submitters []string
	for name, sub := range players {
		if sub.empty() {
			continue
		}
		submitters = append(submitters, name)
		for _, b := range sub.Offers {
			b.Owner = name
			m.offerPool = append(m.offerPool, b)
		}
		for _, b := range sub.Requests {
			b.Owner = name
			if b.Quantity < 0 {
				b.Quantity = -b.Quantity
			}
			m.requestPool = append(m.requestPool, b)
		}
	}
	if len(submitters) == 0 {
		return P2PStep{}, nil
	}

	m.trades = MatchTrades(m.offerPool, m.requestPool)
	m.book()
	// A submitter whose bids matched nothing still took part; its empty
	// book is the no-content signal that lets it settle.
	for _, name := range submitters {
		m.bookFor(name)
	}
	m.cleared = true
	m.logger.WithFields(log.Fields{
		"offers":   len(m.offerPool),
		"requests": len(m.requestPool),
		"trades":   len(m.trades),
	}).Info("pool matched")

	if m.outputDir != "" {
		if err := writeP2PCSV(m.outputDir, m.trades, m.transactions, m.revenue, m.cost); err != nil {
			return P2PStep{}, fmt.Errorf("write p2p results: %w", err)
		}
	}
	return m.replay(now), nil
}

// book builds the per-participant transaction ledgers and settles revenue
// (sales) and cost (purchases) at kWh terms for 15-minute slots.
func (m *P2PMarket) book() {
	for _, t := range m.trades {
		buyer := m.bookFor(t.Requester)
		buyer.Buy = append(buyer.Buy, TransactionEntry{
			Slot:          t.Slot,
			OriginalQty:   t.RequestQty,
			OriginalPrice: t.RequestPrice,
			Quantity:      t.Quantity,
			Price:         t.Price,
		})
		m.cost[t.Requester] += t.Quantity / 4 * t.Price

		seller := m.bookFor(t.Offerer)
		seller.Sell = append(seller.Sell, TransactionEntry{
			Slot:          t.Slot,
			OriginalQty:   t.OfferQty,
			OriginalPrice: t.OfferPrice,
			Quantity:      t.Quantity,
			Price:         t.Price,
		})
		m.revenue[t.Offerer] += t.Quantity / 4 * t.Price
	}
}

func (m *P2PMarket) bookFor(name string) *TransactionBook {
	if b, ok := m.transactions[name]; ok {
		return b
	}
	b := &TransactionBook{}
	m.transactions[name] = b
	return b
}

// replay sums traded quantity at the queried slot and returns the frozen
// transaction books.
func (m *P2PMarket) replay(now model.Slot) P2PStep {
	total := 0.0
	for _, t := range m.trades {
		if t.Slot.Equal(now) {
			total += t.Quantity
		}
	}
	return P2PStep{QuantityTraded: total, Transactions: m.transactions}
}
