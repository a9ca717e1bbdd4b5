package book

import "github.com/shopspring/decimal"

// TickScale is the power-of-ten exponent relating an integral Price/Quantity
// tick to a human decimal value (price = ticks * 10^Exponent). It is used
// only by the formatting helpers below; matching itself never consults it
// and performs no tick-size validation.
type TickScale struct {
	Exponent int32
}

// DefaultTickScale renders ticks as whole units (10^0).
var DefaultTickScale = TickScale{Exponent: 0}

// Decimal converts a Price into a human-scaled decimal.Decimal under scale.
func (s TickScale) Decimal(p Price) decimal.Decimal {
	return decimal.New(int64(p), s.Exponent)
}

// QuantityDecimal converts a Quantity into a human-scaled decimal.Decimal.
func (s TickScale) QuantityDecimal(q Quantity) decimal.Decimal {
	return decimal.New(int64(q), s.Exponent)
}

// DisplayLevel is a LevelInfo rendered for JSON/log consumers.
type DisplayLevel struct {
	Price    string `json:"price"`
	Quantity string `json:"quantity"`
}

// Display renders a LevelInfos slice for presentation under scale.
func (levels LevelInfos) Display(scale TickScale) []DisplayLevel {
	out := make([]DisplayLevel, len(levels))
	for i, l := range levels {
		out[i] = DisplayLevel{
			Price:    scale.Decimal(l.Price).String(),
			Quantity: scale.QuantityDecimal(l.Quantity).String(),
		}
	}
	return out
}
