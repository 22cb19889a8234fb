package model

// Series is a slot-indexed forecast series. Keys are canonical slot strings,
// so two slots representing the same instant always hit the same entry.
type Series map[string]float64

func NewSeries() Series { return Series{} }

func (s Series) At(slot Slot) float64 { return s[slot.Format()] }

func (s Series) Has(slot Slot) bool {
	_, ok := s[slot.Format()]
	return ok
}

func (s Series) Set(slot Slot, v float64) { s[slot.Format()] = v }

// Add shifts the value at slot by dv, creating the entry if absent.
func (s Series) Add(slot Slot, dv float64) { s[slot.Format()] += dv }

// Clone returns an independent copy.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SumAt adds up the values of several series at one slot.
func SumAt(slot Slot, series ...Series) float64 {
	total := 0.0
	for _, s := range series {
		total += s.At(slot)
	}
	return total
}
