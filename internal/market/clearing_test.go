package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illuminator/internal/model"
)

var slot0 = model.MustSlot("2024-06-01 08:00:00")

func supplyBid(q, p float64) Bid {
	return Bid{Slot: slot0, Quantity: q, Price: p, Owner: "seller"}
}

func demandBid(q, p float64) Bid {
	return Bid{Slot: slot0, Quantity: q, Price: p, Owner: "buyer"}
}

func TestClearSingleBidPair(t *testing.T) {
	res, err := Clear(slot0, []Bid{supplyBid(10, 5)}, []Bid{demandBid(10, 8)})
	require.NoError(t, err)

	assert.Equal(t, 5.0, res.Price)
	assert.Equal(t, 10.0, res.Quantity)
	assert.Equal(t, SupplySide, res.ClearingSide)

	require.Len(t, res.AcceptedSupply, 1)
	require.Len(t, res.AcceptedDemand, 1)
	assert.Equal(t, 10.0, res.AcceptedSupply[0].ClearedQuantity)
	assert.Equal(t, 10.0, res.AcceptedDemand[0].ClearedQuantity)
}

func TestClearNoOverlap(t *testing.T) {
	_, err := Clear(slot0, []Bid{supplyBid(10, 9)}, []Bid{demandBid(10, 4)})
	assert.ErrorIs(t, err, ErrNoIntersection)
}

func TestClearEmptySide(t *testing.T) {
	_, err := Clear(slot0, nil, []Bid{demandBid(10, 4)})
	assert.ErrorIs(t, err, ErrNoIntersection)

	_, err = Clear(slot0, []Bid{supplyBid(10, 4)}, nil)
	assert.ErrorIs(t, err, ErrNoIntersection)
}

func TestClearPartialMarginalSupply(t *testing.T) {
	supply := []Bid{supplyBid(5, 1), supplyBid(10, 2)}
	demand := []Bid{demandBid(8, 5)}

	res, err := Clear(slot0, supply, demand)
	require.NoError(t, err)

	assert.Equal(t, 2.0, res.Price)
	assert.Equal(t, 8.0, res.Quantity)
	assert.Equal(t, SupplySide, res.ClearingSide)
	assert.Equal(t, 3.0, res.ClearingQuantity)

	require.Len(t, res.AcceptedSupply, 2)
	assert.Equal(t, 5.0, res.AcceptedSupply[0].ClearedQuantity)
	assert.Equal(t, 3.0, res.AcceptedSupply[1].ClearedQuantity)
	require.Len(t, res.AcceptedDemand, 1)
	assert.Equal(t, 8.0, res.AcceptedDemand[0].ClearedQuantity)
}

func TestClearPartialMarginalDemand(t *testing.T) {
	supply := []Bid{supplyBid(4, 2), supplyBid(10, 6)}
	demand := []Bid{demandBid(12, 5)}

	res, err := Clear(slot0, supply, demand)
	require.NoError(t, err)

	// The second offer is priced out, so only the first 4 kW trade and
	// the demand bid sets the price.
	assert.Equal(t, 5.0, res.Price)
	assert.Equal(t, 4.0, res.Quantity)
	assert.Equal(t, DemandSide, res.ClearingSide)
	assert.Equal(t, 4.0, res.ClearingQuantity)

	require.Len(t, res.AcceptedSupply, 1)
	assert.Equal(t, 4.0, res.AcceptedSupply[0].ClearedQuantity)
	require.Len(t, res.AcceptedDemand, 1)
	assert.Equal(t, 4.0, res.AcceptedDemand[0].ClearedQuantity)
}

func TestClearBalancesAcceptedSides(t *testing.T) {
	supply := []Bid{supplyBid(3, 1), supplyBid(4, 2), supplyBid(6, 3)}
	demand := []Bid{demandBid(5, 6), demandBid(5, 4), demandBid(2, 2)}

	res, err := Clear(slot0, supply, demand)
	require.NoError(t, err)

	sumS := 0.0
	for _, ab := range res.AcceptedSupply {
		sumS += ab.ClearedQuantity
		assert.LessOrEqual(t, ab.ClearedQuantity, ab.Quantity)
		assert.LessOrEqual(t, ab.Price, res.Price)
	}
	sumD := 0.0
	for _, ab := range res.AcceptedDemand {
		sumD += ab.ClearedQuantity
		assert.LessOrEqual(t, ab.ClearedQuantity, ab.Quantity)
		assert.GreaterOrEqual(t, ab.Price, res.Price)
	}
	assert.InDelta(t, res.Quantity, sumS, 1e-9)
	assert.InDelta(t, res.Quantity, sumD, 1e-9)
	assert.LessOrEqual(t, res.Quantity, totalQuantity(supply))
	assert.LessOrEqual(t, res.Quantity, totalQuantity(demand))
}

func TestClearIgnoresOtherSlots(t *testing.T) {
	other := model.MustSlot("2024-06-01 09:00:00")
	supply := []Bid{
		supplyBid(10, 5),
		{Slot: other, Quantity: 99, Price: 1, Owner: "seller"},
	}
	res, err := Clear(slot0, supply, []Bid{demandBid(10, 8)})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Price)
	assert.Equal(t, 10.0, res.Quantity)
}

func TestClearPriceTimePriority(t *testing.T) {
	// Two equal-priced offers: the earlier submission clears in full,
	// the later one is the partial marginal bid.
	supply := []Bid{
		{Slot: slot0, Quantity: 6, Price: 2, Owner: "first"},
		{Slot: slot0, Quantity: 6, Price: 2, Owner: "second"},
	}
	res, err := Clear(slot0, supply, []Bid{demandBid(9, 5)})
	require.NoError(t, err)

	require.Len(t, res.AcceptedSupply, 2)
	assert.Equal(t, "first", res.AcceptedSupply[0].Owner)
	assert.Equal(t, 6.0, res.AcceptedSupply[0].ClearedQuantity)
	assert.Equal(t, "second", res.AcceptedSupply[1].Owner)
	assert.Equal(t, 3.0, res.AcceptedSupply[1].ClearedQuantity)
}
