package common

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a non-negative integer multiple of the book's tick size,
// represented as a count of ticks. Map keys and comparisons over Price
// are exact integer operations; decimal.Decimal is only used at the
// boundary where prices are parsed from or formatted back to text.
type Price int64

// TickSize converts between the scaled integer Price used internally and
// the decimal representation used at the CSV/log boundary.
type TickSize struct {
	size decimal.Decimal
}

// DefaultTickSize is the conventional 0.05 tick size for the book.
func DefaultTickSize() TickSize {
	ts, err := NewTickSize(decimal.NewFromFloat(0.05))
	if err != nil {
		panic(err) // 0.05 is always valid
	}
	return ts
}

func NewTickSize(size decimal.Decimal) (TickSize, error) {
	if size.Sign() <= 0 {
		return TickSize{}, fmt.Errorf("tick size must be positive, got %s", size)
	}
	return TickSize{size: size}, nil
}

// ToPrice scales a decimal price into ticks, failing if it is not an
// exact multiple of the tick size.
func (t TickSize) ToPrice(d decimal.Decimal) (Price, error) {
	if d.Sign() < 0 {
		return 0, fmt.Errorf("price %s is negative", d)
	}
	ratio := d.Div(t.size)
	if !ratio.Equal(ratio.Truncate(0)) {
		return 0, fmt.Errorf("price %s is not a multiple of tick size %s", d, t.size)
	}
	return Price(ratio.IntPart()), nil
}

// ToDecimal expands a scaled Price back into a decimal value, for
// inclusion in trade records and log output.
func (t TickSize) ToDecimal(p Price) decimal.Decimal {
	return t.size.Mul(decimal.NewFromInt(int64(p)))
}

func (p Price) String() string {
	return fmt.Sprintf("%dticks", int64(p))
}
