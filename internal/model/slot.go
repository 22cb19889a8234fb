package model

import (
	"fmt"
	"time"
)

// SlotLayout is the canonical wire format for delivery slots. Every lookup
// that joins market data to agent data goes through this one format.
const SlotLayout = "2006-01-02 15:04:05"

// SlotDuration is the length of one delivery slot.
const SlotDuration = 15 * time.Minute

// Slot identifies one delivery interval by its zone-naive start instant.
// Slots compare by instant, never by raw string, so formatting mismatches
// cannot silently break joins.
type Slot struct {
	t time.Time
}

func SlotAt(t time.Time) Slot {
	return Slot{t: t.Truncate(time.Second)}
}

// ParseSlot parses a canonical "YYYY-MM-DD HH:MM:SS" timestamp.
func ParseSlot(s string) (Slot, error) {
	t, err := time.Parse(SlotLayout, s)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot %q: %w", s, err)
	}
	return Slot{t: t}, nil
}

// MustSlot is ParseSlot for literals in tests and fixtures.
func MustSlot(s string) Slot {
	slot, err := ParseSlot(s)
	if err != nil {
		panic(err)
	}
	return slot
}

func (s Slot) Format() string       { return s.t.Format(SlotLayout) }
func (s Slot) String() string       { return s.Format() }
func (s Slot) Time() time.Time      { return s.t }
func (s Slot) IsZero() bool         { return s.t.IsZero() }
func (s Slot) Equal(o Slot) bool    { return s.t.Equal(o.t) }
func (s Slot) Before(o Slot) bool   { return s.t.Before(o.t) }
func (s Slot) After(o Slot) bool    { return s.t.After(o.t) }
func (s Slot) Add(d time.Duration) Slot {
	return Slot{t: s.t.Add(d)}
}

// SlotsBetween returns every slot start in [start, end) at the given step.
func SlotsBetween(start, end Slot, step time.Duration) []Slot {
	if step <= 0 {
		step = SlotDuration
	}
	var out []Slot
	for s := start; s.Before(end); s = s.Add(step) {
		out = append(out, s)
	}
	return out
}
