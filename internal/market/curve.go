package market

import "math"

// Point is one vertex of a piecewise-linear bid curve: a cumulative
// quantity paired with a price.
type Point struct {
	Quantity float64
	Price    float64
}

// SegmentKind distinguishes the two alternating kinds of curve segment.
type SegmentKind int

const (
	// QuantityStep runs along the quantity axis at a constant price: one
	// bid's quantity entering the stack.
	QuantityStep SegmentKind = iota
	// PriceStep rises or falls along the price axis at a constant
	// cumulative quantity: the jump between two adjacent bids.
	PriceStep
)

// Segment is one edge of a bid curve. BidIndex is the index into the sorted
// bid stack of the bid this segment belongs to; for a PriceStep it is the
// index of the bid the step closes (the last bid fully inside the stack at
// this cumulative quantity).
type Segment struct {
	Kind     SegmentKind
	From, To Point
	BidIndex int
}

// priceLow/priceHigh normalize the segment's price span regardless of
// whether the curve rises (supply) or falls (demand).
func (s Segment) priceLow() float64  { return math.Min(s.From.Price, s.To.Price) }
func (s Segment) priceHigh() float64 { return math.Max(s.From.Price, s.To.Price) }

func (s Segment) quantityLow() float64  { return math.Min(s.From.Quantity, s.To.Quantity) }
func (s Segment) quantityHigh() float64 { return math.Max(s.From.Quantity, s.To.Quantity) }

// containsPrice reports whether p lies within the segment's price span.
func (s Segment) containsPrice(p float64) bool {
	return s.priceLow() <= p && p <= s.priceHigh()
}

// containsQuantity reports whether q lies within the segment's quantity span.
func (s Segment) containsQuantity(q float64) bool {
	return s.quantityLow() <= q && q <= s.quantityHigh()
}

// Curve is an ordered sequence of alternating segments built from a sorted
// bid stack. Supply curves are non-decreasing in price, demand curves
// non-increasing.
type Curve struct {
	Segments []Segment
}

// OpeningPrice is the price at zero cumulative quantity.
func (c Curve) OpeningPrice() float64 {
	if len(c.Segments) == 0 {
		return 0
	}
	return c.Segments[0].From.Price
}

// buildCurve constructs the piecewise curve for a sorted bid stack. Each
// bid contributes a QuantityStep at its price; adjacent bids at different
// prices are joined by a PriceStep. The curve is closed by a terminal
// PriceStep at the stack's total quantity running to closingPrice, which
// lets a full-depth clearing register as a geometric intersection.
func buildCurve(sorted []Bid, closingPrice float64) Curve {
	var segs []Segment
	cum := 0.0
	for i, b := range sorted {
		from := Point{Quantity: cum, Price: b.Price}
		cum += b.Quantity
		to := Point{Quantity: cum, Price: b.Price}
		if from != to {
			segs = append(segs, Segment{Kind: QuantityStep, From: from, To: to, BidIndex: i})
		}
		if i+1 < len(sorted) && sorted[i+1].Price != b.Price {
			segs = append(segs, Segment{
				Kind:     PriceStep,
				From:     Point{Quantity: cum, Price: b.Price},
				To:       Point{Quantity: cum, Price: sorted[i+1].Price},
				BidIndex: i,
			})
		}
	}
	if len(sorted) > 0 {
		last := sorted[len(sorted)-1]
		if last.Price != closingPrice {
			segs = append(segs, Segment{
				Kind:     PriceStep,
				From:     Point{Quantity: cum, Price: last.Price},
				To:       Point{Quantity: cum, Price: closingPrice},
				BidIndex: len(sorted) - 1,
			})
		}
	}
	return Curve{Segments: segs}
}

// BuildSupplyCurve builds the ascending curve for supply bids sorted
// cheapest first. The terminal segment runs to +Inf: beyond the offered
// depth no quantity is available at any price.
func BuildSupplyCurve(sorted []Bid) Curve {
	return buildCurve(sorted, math.Inf(1))
}

// BuildDemandCurve builds the descending curve for demand bids sorted by
// highest willingness-to-pay first. The terminal segment drops to zero:
// beyond the requested depth no quantity is wanted at any price.
func BuildDemandCurve(sorted []Bid) Curve {
	return buildCurve(sorted, 0)
}
