// Package pricing computes session totals.
//
// Totals are always computed from the complete current set of line items and
// add-ons, never adjusted by a delta, so a lost or repeated edit can never make
// the stored totals drift from the rows they summarize.
package pricing

import "github.com/shopspring/decimal"

// Line is one priced line item.
type Line struct {
	Price decimal.Decimal
	Qty   int
}

// Totals is the derived money state of a session.
// Total == BasePrice + AddOnsTotal always holds for values built by Calculate.
type Totals struct {
	BasePrice   decimal.Decimal
	AddOnsTotal decimal.Decimal
	Total       decimal.Decimal
}

// Calculate returns BasePrice = Σ price×qty, AddOnsTotal = Σ addOns and their sum.
func Calculate(lines []Line, addOns []decimal.Decimal) Totals {
	base := decimal.Zero
	for _, l := range lines {
		base = base.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Qty))))
	}
	extras := decimal.Zero
	for _, a := range addOns {
		extras = extras.Add(a)
	}
	return Totals{
		BasePrice:   base,
		AddOnsTotal: extras,
		Total:       base.Add(extras),
	}
}

// Change returns cash − total. The result may be negative; callers decide
// whether that is acceptable.
func Change(cash, total decimal.Decimal) decimal.Decimal {
	return cash.Sub(total)
}
