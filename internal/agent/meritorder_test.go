package agent

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illuminator/internal/model"
)

var testLogger = log.WithField("test", true)

func seriesAt(slots []model.Slot, values ...float64) model.Series {
	s := model.NewSeries()
	for i, slot := range slots {
		if i < len(values) {
			s.Set(slot, values[i])
		}
	}
	return s
}

func TestRankByMetricOrdersHighestFirst(t *testing.T) {
	assets := []model.AssetRow{
		{Name: "a", MarketMetric: 1},
		{Name: "b", MarketMetric: 3},
		{Name: "c", MarketMetric: 3},
		{Name: "d", MarketMetric: 2},
	}
	ranked := rankByMetric(assets, marketMetric)
	names := []string{ranked[0].Name, ranked[1].Name, ranked[2].Name, ranked[3].Name}
	// Stable: b keeps its place ahead of the equal-metric c.
	assert.Equal(t, []string{"b", "c", "d", "a"}, names)
}

func TestBuildSupplyBidsNetsOwnDemandFirst(t *testing.T) {
	slots := []model.Slot{model.MustSlot("2024-06-01 08:00:00")}
	generators := []model.AssetRow{
		{Name: "chp", Series: seriesAt(slots, 10), MarketMetric: 5},
		{Name: "pv", Series: seriesAt(slots, 4), MarketMetric: 3},
	}
	ownDemand := seriesAt(slots, 6)
	excess := seriesAt(slots, 8)

	bids, err := buildSupplyBids("p", slots, generators, ownDemand, excess, marketMetric, true, testLogger)
	require.NoError(t, err)
	require.Len(t, bids, 2)

	// The highest-metric asset covers internal demand first; only its
	// surplus is offered.
	assert.Equal(t, "chp", bids[0].Asset)
	assert.Equal(t, 4.0, bids[0].Quantity)
	assert.Equal(t, 5.0, bids[0].Price)
	assert.Equal(t, "pv", bids[1].Asset)
	assert.Equal(t, 4.0, bids[1].Quantity)
	assert.Equal(t, 3.0, bids[1].Price)
	assert.Equal(t, "p", bids[0].Owner)
}

func TestBuildSupplyBidsSkipsSlotsWithoutExcess(t *testing.T) {
	slots := []model.Slot{
		model.MustSlot("2024-06-01 08:00:00"),
		model.MustSlot("2024-06-01 08:15:00"),
	}
	generators := []model.AssetRow{
		{Name: "pv", Series: seriesAt(slots, 5, 5), MarketMetric: 2},
	}
	excess := seriesAt(slots, 5, 0)

	bids, err := buildSupplyBids("p", slots, generators, model.NewSeries(), excess, marketMetric, true, testLogger)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Slot.Equal(slots[0]))
}

func TestBuildSupplyBidsStrictMismatch(t *testing.T) {
	slots := []model.Slot{model.MustSlot("2024-06-01 08:00:00")}
	generators := []model.AssetRow{
		{Name: "pv", Series: seriesAt(slots, 5), MarketMetric: 2},
	}
	// Forecast excess claims more than the stack can deliver.
	excess := seriesAt(slots, 9)

	_, err := buildSupplyBids("p", slots, generators, model.NewSeries(), excess, marketMetric, true, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supply stack")

	// Lenient mode logs and keeps the stack as built.
	bids, err := buildSupplyBids("p", slots, generators, model.NewSeries(), excess, marketMetric, false, testLogger)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, 5.0, bids[0].Quantity)
}

func TestBuildDemandBidsUsesNegativeQuantities(t *testing.T) {
	slots := []model.Slot{model.MustSlot("2024-06-01 08:00:00")}
	demands := []model.AssetRow{
		{Name: "load", Series: seriesAt(slots, 5), MarketMetric: 4},
	}
	ownGeneration := seriesAt(slots, 2)
	deficit := seriesAt(slots, -3)

	bids, err := buildDemandBids("p", slots, demands, ownGeneration, deficit, marketMetric, true, testLogger)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, -3.0, bids[0].Quantity)
	assert.Equal(t, 4.0, bids[0].Price)
	assert.Equal(t, "load", bids[0].Asset)
}

func TestBuildDemandBidsPeerMetricSelectsPeerPrice(t *testing.T) {
	slots := []model.Slot{model.MustSlot("2024-06-01 08:00:00")}
	demands := []model.AssetRow{
		{Name: "load", Series: seriesAt(slots, 5), MarketMetric: 4, PeerMetric: 3},
	}
	deficit := seriesAt(slots, -5)

	bids, err := buildDemandBids("p", slots, demands, model.NewSeries(), deficit, peerMetric, true, testLogger)
	require.NoError(t, err)
	require.Len(t, bids, 1)
	assert.Equal(t, 3.0, bids[0].Price)
}
