package market

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illuminator/internal/model"
)

func TestMatchTradesPaysRequesterPrice(t *testing.T) {
	offers := []Bid{{Slot: slot0, Quantity: 5, Price: 2, Owner: "seller"}}
	requests := []Bid{{Slot: slot0, Quantity: 5, Price: 6, Owner: "buyer"}}

	trades := MatchTrades(offers, requests)
	require.Len(t, trades, 1)
	assert.Equal(t, 6.0, trades[0].Price)
	assert.Equal(t, 5.0, trades[0].Quantity)
	assert.Equal(t, "seller", trades[0].Offerer)
	assert.Equal(t, "buyer", trades[0].Requester)
	assert.Equal(t, 2.0, trades[0].OfferPrice)
}

func TestMatchTradesPrefersCheapestOffer(t *testing.T) {
	offers := []Bid{
		{Slot: slot0, Quantity: 5, Price: 4, Owner: "pricey"},
		{Slot: slot0, Quantity: 5, Price: 2, Owner: "cheap"},
	}
	requests := []Bid{{Slot: slot0, Quantity: 8, Price: 6, Owner: "buyer"}}

	trades := MatchTrades(offers, requests)
	require.Len(t, trades, 2)
	assert.Equal(t, "cheap", trades[0].Offerer)
	assert.Equal(t, 5.0, trades[0].Quantity)
	assert.Equal(t, "pricey", trades[1].Offerer)
	assert.Equal(t, 3.0, trades[1].Quantity)
}

func TestMatchTradesRequiresStrictPriceImprovement(t *testing.T) {
	offers := []Bid{{Slot: slot0, Quantity: 5, Price: 3, Owner: "seller"}}
	requests := []Bid{{Slot: slot0, Quantity: 5, Price: 3, Owner: "buyer"}}

	assert.Empty(t, MatchTrades(offers, requests))
}

func TestMatchTradesServesHighestRequestFirst(t *testing.T) {
	offers := []Bid{{Slot: slot0, Quantity: 5, Price: 1, Owner: "seller"}}
	requests := []Bid{
		{Slot: slot0, Quantity: 5, Price: 3, Owner: "low"},
		{Slot: slot0, Quantity: 5, Price: 7, Owner: "high"},
	}

	trades := MatchTrades(offers, requests)
	require.Len(t, trades, 1)
	assert.Equal(t, "high", trades[0].Requester)
	assert.Equal(t, 5.0, trades[0].Quantity)
}

func TestMatchTradesConservesQuantity(t *testing.T) {
	offers := []Bid{
		{Slot: slot0, Quantity: 4, Price: 1, Owner: "a"},
		{Slot: slot0, Quantity: 3, Price: 2, Owner: "b"},
	}
	requests := []Bid{
		{Slot: slot0, Quantity: 5, Price: 6, Owner: "c"},
		{Slot: slot0, Quantity: 5, Price: 5, Owner: "d"},
	}

	trades := MatchTrades(offers, requests)
	soldBy := map[string]float64{}
	boughtBy := map[string]float64{}
	for _, tr := range trades {
		soldBy[tr.Offerer] += tr.Quantity
		boughtBy[tr.Requester] += tr.Quantity
		assert.Less(t, tr.OfferPrice, tr.RequestPrice)
	}
	assert.InDelta(t, 4.0, soldBy["a"], 1e-9)
	assert.InDelta(t, 3.0, soldBy["b"], 1e-9)
	assert.InDelta(t, 5.0, boughtBy["c"], 1e-9)
	assert.InDelta(t, 2.0, boughtBy["d"], 1e-9)
}

func TestMatchTradesIgnoresOtherSlots(t *testing.T) {
	other := model.MustSlot("2024-06-01 09:00:00")
	offers := []Bid{{Slot: other, Quantity: 5, Price: 1, Owner: "seller"}}
	requests := []Bid{{Slot: slot0, Quantity: 5, Price: 7, Owner: "buyer"}}

	assert.Empty(t, MatchTrades(offers, requests))
}

func TestP2PMarketFreezesAfterFirstMatch(t *testing.T) {
	m := NewP2PMarket("")
	subs := map[string]P2PSubmission{
		"seller": {Offers: []Bid{{Slot: slot0, Quantity: 5, Price: 2}}},
		"buyer":  {Requests: []Bid{{Slot: slot0, Quantity: -5, Price: 6}}},
	}

	step, err := m.Step(slot0, subs)
	require.NoError(t, err)
	require.True(t, m.Cleared())
	assert.Equal(t, 5.0, step.QuantityTraded)

	book := step.Transactions["buyer"]
	require.NotNil(t, book)
	require.Len(t, book.Buy, 1)
	assert.Equal(t, 5.0, book.Buy[0].Quantity)
	assert.Equal(t, 6.0, book.Buy[0].Price)
	assert.Equal(t, 5.0, book.Buy[0].OriginalQty)

	// Settled at kWh terms.
	assert.InDelta(t, 5.0/4*6, m.Revenue("seller"), 1e-9)
	assert.InDelta(t, 5.0/4*6, m.Cost("buyer"), 1e-9)

	// Late pool entries are ignored once frozen.
	late := map[string]P2PSubmission{
		"latecomer": {Offers: []Bid{{Slot: slot0, Quantity: 50, Price: 0.1}}},
	}
	again, err := m.Step(slot0, late)
	require.NoError(t, err)
	assert.Equal(t, 5.0, again.QuantityTraded)
	assert.NotContains(t, again.Transactions, "latecomer")
}

func TestP2PMarketBooksSubmittersWithoutTrades(t *testing.T) {
	m := NewP2PMarket("")
	subs := map[string]P2PSubmission{
		"seller": {Offers: []Bid{{Slot: slot0, Quantity: 5, Price: 6}}},
		"buyer":  {Requests: []Bid{{Slot: slot0, Quantity: -5, Price: 2}}},
	}

	step, err := m.Step(slot0, subs)
	require.NoError(t, err)
	require.True(t, m.Cleared())
	assert.Equal(t, 0.0, step.QuantityTraded)
	assert.Empty(t, m.Trades())

	// Both took part, neither traded: each gets an empty book, not no
	// book at all.
	for _, name := range []string{"seller", "buyer"} {
		book, ok := step.Transactions[name]
		require.True(t, ok, name)
		assert.Empty(t, book.Buy)
		assert.Empty(t, book.Sell)
	}
}

func TestP2PMarketOpenWithoutSubmissions(t *testing.T) {
	m := NewP2PMarket("")
	step, err := m.Step(slot0, nil)
	require.NoError(t, err)
	assert.False(t, m.Cleared())
	assert.Equal(t, P2PStep{}, step)
}

func TestP2PMarketWritesResultCSV(t *testing.T) {
	dir := t.TempDir()
	m := NewP2PMarket(dir)
	subs := map[string]P2PSubmission{
		"seller": {Offers: []Bid{{Slot: slot0, Quantity: 5, Price: 2}}},
		"buyer":  {Requests: []Bid{{Slot: slot0, Quantity: -5, Price: 6}}},
	}
	_, err := m.Step(slot0, subs)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, p2pResultFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "trade,2024-06-01 08:00:00,buyer,seller")
}
