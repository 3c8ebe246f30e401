// Package book implements the book state and order index: two
// price-keyed side books of FIFO price levels, plus a flat order-number
// index enabling O(1) cancel/modify lookup.
package book

import (
	"container/list"

	"github.com/tidalcross/lob/internal/common"
)

// PriceLevel is an ordered FIFO queue of resting orders at a single
// price on a single side. Ordering is by arrival, and the level is
// deleted the instant its queue empties.
//
// A doubly-linked list plus an externally-held element handle (kept in
// the Order Index) gives O(1) append/remove/head access.
type PriceLevel struct {
	Price common.Price
	queue *list.List
}

func newPriceLevel(price common.Price) *PriceLevel {
	return &PriceLevel{Price: price, queue: list.New()}
}

// Front returns the oldest resting order, or nil if the level is empty.
func (l *PriceLevel) Front() *common.Order {
	if e := l.queue.Front(); e != nil {
		return e.Value.(*common.Order)
	}
	return nil
}

// Empty reports whether the level currently has no resting orders.
func (l *PriceLevel) Empty() bool {
	return l.queue.Len() == 0
}

// Orders returns the resting orders in arrival order. Used by tests and
// by daily snapshotting; not on any hot path.
func (l *PriceLevel) Orders() []*common.Order {
	orders := make([]*common.Order, 0, l.queue.Len())
	for e := l.queue.Front(); e != nil; e = e.Next() {
		orders = append(orders, e.Value.(*common.Order))
	}
	return orders
}
