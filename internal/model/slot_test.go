package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSlotRoundTrip(t *testing.T) {
	s, err := ParseSlot("2024-06-01 08:15:00")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01 08:15:00", s.Format())
	assert.Equal(t, s.Format(), s.String())
}

func TestParseSlotRejectsOtherLayouts(t *testing.T) {
	for _, bad := range []string{"2024-06-01T08:15:00", "2024-06-01 08:15", "01.06.2024 08:15:00", ""} {
		_, err := ParseSlot(bad)
		assert.Error(t, err, bad)
	}
}

func TestSlotComparesByInstant(t *testing.T) {
	a := MustSlot("2024-06-01 08:00:00")
	b := a.Add(SlotDuration)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(SlotAt(a.Time())))
	assert.False(t, a.IsZero())
	assert.True(t, Slot{}.IsZero())
}

func TestSlotsBetweenIsHalfOpen(t *testing.T) {
	start := MustSlot("2024-06-01 08:00:00")
	end := MustSlot("2024-06-01 09:00:00")

	slots := SlotsBetween(start, end, SlotDuration)
	require.Len(t, slots, 4)
	assert.True(t, slots[0].Equal(start))
	assert.True(t, slots[3].Equal(MustSlot("2024-06-01 08:45:00")))

	assert.Empty(t, SlotsBetween(end, start, SlotDuration))
	assert.Len(t, SlotsBetween(start, end, 0), 4)
	assert.Len(t, SlotsBetween(start, end, 30*time.Minute), 2)
}

func TestSeriesJoinsByCanonicalKey(t *testing.T) {
	s := NewSeries()
	slot := MustSlot("2024-06-01 08:00:00")
	s.Set(slot, 5)

	// The same instant reached through arithmetic hits the same entry.
	assert.Equal(t, 5.0, s.At(slot.Add(SlotDuration).Add(-SlotDuration)))

	s.Add(slot, -2)
	assert.Equal(t, 3.0, s.At(slot))

	clone := s.Clone()
	clone.Set(slot, 99)
	assert.Equal(t, 3.0, s.At(slot))

	other := NewSeries()
	other.Set(slot, 4)
	assert.Equal(t, 7.0, SumAt(slot, s, other))
}
