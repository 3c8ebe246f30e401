package common

import (
	"fmt"
	"time"
)

// Trade is the immutable execution record of a single fill:
// trade_number (assigned by the engine, 8-digit zero-padded),
// trade_date/time (inherited from the incoming/aggressing order),
// trade_price (the resting order's price), trade_quantity, and both
// order numbers.
type Trade struct {
	TradeNumber     string // 8-digit zero-padded, e.g. "00000001"
	TradeDate       time.Time
	TradeTime       time.Time
	TradePrice      Price
	TradeQuantity   uint64
	BuyOrderNumber  int64
	SellOrderNumber int64
}

func (t Trade) String() string {
	return fmt.Sprintf(
		`TradeNumber:     %s
TradeDate:       %s
TradeTime:       %s
TradePrice:      %v
TradeQuantity:   %d
BuyOrderNumber:  %d
SellOrderNumber: %d`,
		t.TradeNumber,
		t.TradeDate.Format("2006-01-02"),
		t.TradeTime.Format("15:04:05.000000"),
		t.TradePrice,
		t.TradeQuantity,
		t.BuyOrderNumber,
		t.SellOrderNumber,
	)
}
