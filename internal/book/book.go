package book

import (
	"container/list"
	"fmt"

	"github.com/tidalcross/lob/internal/common"
)

// IndexEntry is the Order Index's value: where a resting order currently
// lives, so cancel/modify never has to scan a queue.
type IndexEntry struct {
	Side  common.Side
	Price common.Price
	elem  *list.Element
}

// Book owns the two side books and the order index, and provides the
// primitive level-and-queue operations. It holds no matching logic;
// that lives in internal/engine, which composes Book.
type Book struct {
	bids *levels
	asks *levels

	index map[int64]IndexEntry
}

func New() *Book {
	return &Book{
		bids:  newBidLevels(),
		asks:  newAskLevels(),
		index: make(map[int64]IndexEntry),
	}
}

func (b *Book) sideLevels(side common.Side) *levels {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

// BestPrice returns the extreme price on that side (max bid, min ask),
// and false if the side is empty.
func (b *Book) BestPrice(side common.Side) (common.Price, bool) {
	lvl, ok := b.sideLevels(side).Min()
	if !ok {
		return 0, false
	}
	return lvl.Price, true
}

// Level returns the queue at (side, price), or nil if none exists.
func (b *Book) Level(side common.Side, price common.Price) *PriceLevel {
	lvl, ok := b.sideLevels(side).Get(&PriceLevel{Price: price})
	if !ok {
		return nil
	}
	return lvl
}

// CreateLevel creates and returns an empty level at (side, price).
func (b *Book) CreateLevel(side common.Side, price common.Price) (*PriceLevel, error) {
	if _, ok := b.sideLevels(side).Get(&PriceLevel{Price: price}); ok {
		return nil, fmt.Errorf("%w: side=%s price=%v", common.ErrLevelExists, side, price)
	}
	lvl := newPriceLevel(price)
	b.sideLevels(side).Set(lvl)
	return lvl, nil
}

// DeleteLevel removes the level at (side, price).
func (b *Book) DeleteLevel(side common.Side, price common.Price) error {
	_, ok := b.sideLevels(side).Delete(&PriceLevel{Price: price})
	if !ok {
		return fmt.Errorf("%w: side=%s price=%v", common.ErrLevelMissing, side, price)
	}
	return nil
}

// Append appends order to the (side, price) level's queue, creating the
// level on demand, and records it in the Order Index. The order must not
// already be indexed. Reports whether a new level was created, so
// callers can log significant book state transitions without
// re-deriving them themselves.
func (b *Book) Append(side common.Side, price common.Price, order *common.Order) (createdLevel bool) {
	lvl, ok := b.sideLevels(side).Get(&PriceLevel{Price: price})
	if !ok {
		lvl = newPriceLevel(price)
		b.sideLevels(side).Set(lvl)
		createdLevel = true
	}
	elem := lvl.queue.PushBack(order)
	b.index[order.OrderNumber] = IndexEntry{Side: side, Price: price, elem: elem}
	return createdLevel
}

// Remove removes orderNumber from its (side, price) queue and the Order
// Index, deleting the level if it becomes empty. Fails with
// ErrOrderMissing if the order is not indexed at (side, price). Reports
// whether the level was deleted as a result.
func (b *Book) Remove(side common.Side, price common.Price, orderNumber int64) (deletedLevel bool, err error) {
	entry, ok := b.index[orderNumber]
	if !ok || entry.Side != side || entry.Price != price {
		return false, fmt.Errorf("%w: order#%d side=%s price=%v", common.ErrOrderMissing, orderNumber, side, price)
	}

	lvl, ok := b.sideLevels(side).Get(&PriceLevel{Price: price})
	if !ok {
		return false, fmt.Errorf("%w: side=%s price=%v", common.ErrBookInvariantViolation, side, price)
	}

	lvl.queue.Remove(entry.elem)
	delete(b.index, orderNumber)

	if lvl.Empty() {
		b.sideLevels(side).Delete(&PriceLevel{Price: price})
		deletedLevel = true
	}
	return deletedLevel, nil
}

// Lookup returns where orderNumber currently rests, and whether it is
// indexed at all. Used by the cancel and modify paths, which treat the
// event's reported (side, price) as advisory and the Index as
// authoritative.
func (b *Book) Lookup(orderNumber int64) (IndexEntry, bool) {
	entry, ok := b.index[orderNumber]
	return entry, ok
}

// Order returns the resting *common.Order for an indexed order number,
// or nil if not indexed. The returned pointer is the same one stored in
// the level's queue, and the matcher mutates its VolumeOriginal in
// place during partial fills.
func (b *Book) Order(orderNumber int64) *common.Order {
	entry, ok := b.index[orderNumber]
	if !ok {
		return nil
	}
	return entry.elem.Value.(*common.Order)
}

// Levels returns every level on a side, ordered best-to-worst. Used for
// snapshots and tests, never on the matching hot path.
func (b *Book) Levels(side common.Side) []*PriceLevel {
	var out []*PriceLevel
	b.sideLevels(side).Scan(func(lvl *PriceLevel) bool {
		out = append(out, lvl)
		return true
	})
	return out
}

// Clear empties both side books and the Order Index, as required on a
// day boundary.
func (b *Book) Clear() {
	b.bids = newBidLevels()
	b.asks = newAskLevels()
	b.index = make(map[int64]IndexEntry)
}
