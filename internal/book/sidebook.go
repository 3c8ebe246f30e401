package book

import (
	"github.com/tidwall/btree"

	"github.com/tidalcross/lob/internal/common"
)

// levels is an ordered price -> *PriceLevel map backed by
// github.com/tidwall/btree.BTreeG. One tree per side, with the
// comparator direction flipped so Min() always yields the best price
// regardless of side.
type levels = btree.BTreeG[*PriceLevel]

func newBidLevels() *levels {
	// Sorted highest-first: the best bid is the tree's minimum.
	return btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price > b.Price
	})
}

func newAskLevels() *levels {
	// Sorted lowest-first: the best ask is the tree's minimum.
	return btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return a.Price < b.Price
	})
}
