package engine

import (
	"fmt"

	"github.com/tidalcross/lob/internal/book"
	"github.com/tidalcross/lob/internal/common"
)

// placeOrder handles an ADD event: non-marketable limit orders rest
// directly; marketable limit orders and market orders enter the match
// loop.
func (e *Engine) placeOrder(order common.Order) error {
	incoming := order
	oppSide := opposite(order.Side)

	if order.IsMarket {
		if _, ok := e.book.BestPrice(oppSide); !ok {
			// Market orders that cannot be matched expire immediately:
			// no resting, no error.
			return nil
		}
	} else {
		bestOpp, ok := e.book.BestPrice(oppSide)
		if !ok || !marketableAt(order.Side, order.LimitPrice, bestOpp) {
			createdLevel := e.book.Append(order.Side, order.LimitPrice, &incoming)
			e.logEvent(order, "resting add", createdLevel)
			return nil
		}
	}

	return e.matchLoop(&incoming)
}

// matchLoop drives a marketable order to completion: repeatedly take
// the head of the opposite side's best price level, match as much as
// possible, and continue until the incoming order is filled, the book
// runs dry, or (for limit orders) the best opposite price no longer
// crosses. Any remaining limit volume rests at the incoming order's own
// limit price.
func (e *Engine) matchLoop(incoming *common.Order) error {
	oppSide := opposite(incoming.Side)
	remaining := incoming.VolumeOriginal

	for remaining > 0 {
		bestPrice, ok := e.book.BestPrice(oppSide)
		if !ok {
			break
		}
		if !incoming.IsMarket && !marketableAt(incoming.Side, incoming.LimitPrice, bestPrice) {
			break
		}

		lvl := e.book.Level(oppSide, bestPrice)
		if lvl == nil || lvl.Empty() {
			return fmt.Errorf("%w: empty level at best price %v", common.ErrBookInvariantViolation, bestPrice)
		}

		resting := lvl.Front()
		matchQty := min(remaining, resting.VolumeOriginal)

		e.emitTrade(incoming, resting, bestPrice, matchQty)
		remaining -= matchQty

		if resting.VolumeOriginal > matchQty {
			resting.VolumeOriginal -= matchQty
			continue
		}

		if _, err := e.book.Remove(oppSide, bestPrice, resting.OrderNumber); err != nil {
			return err
		}
	}

	incoming.VolumeOriginal = remaining
	if remaining > 0 && !incoming.IsMarket {
		createdLevel := e.book.Append(incoming.Side, incoming.LimitPrice, incoming)
		e.logEvent(*incoming, "partial fill rest", createdLevel)
	} else if remaining > 0 {
		e.logEvent(*incoming, "market order unfilled, dropped", false)
	}
	return nil
}

// emitTrade assigns the next trade number, records the trade with the
// Sink, and updates the engine's running daily totals.
func (e *Engine) emitTrade(incoming, resting *common.Order, price common.Price, qty uint64) {
	buyNum, sellNum := incoming.OrderNumber, resting.OrderNumber
	if incoming.Side == common.Sell {
		buyNum, sellNum = resting.OrderNumber, incoming.OrderNumber
	}

	trade := common.Trade{
		TradeNumber:     fmt.Sprintf("%08d", e.tradeCounter),
		TradeDate:       truncateToDate(incoming.TransDate),
		TradeTime:       incoming.Timestamp(),
		TradePrice:      price,
		TradeQuantity:   qty,
		BuyOrderNumber:  buyNum,
		SellOrderNumber: sellNum,
	}
	e.tradeCounter++
	e.tradeCount++
	e.totalVolume += qty

	e.sink.RecordTrade(trade)
	e.log.Debug().
		Str("tradeNumber", trade.TradeNumber).
		Int64("buy", buyNum).
		Int64("sell", sellNum).
		Uint64("qty", qty).
		Msg("trade")
}

// cancel handles a CANCEL event. Cancelling a market order is a
// structural error; cancelling an unknown order is a no-op (the order
// may have already fully traded).
func (e *Engine) cancel(order common.Order) error {
	if order.IsMarket {
		return fmt.Errorf("%w: cancel of market order#%d", common.ErrInvalidOperation, order.OrderNumber)
	}

	entry, ok := e.book.Lookup(order.OrderNumber)
	if !ok {
		e.log.Info().Int64("orderNumber", order.OrderNumber).Msg("cancel of unknown order, ignoring")
		return nil
	}
	deletedLevel, err := e.book.Remove(entry.Side, entry.Price, order.OrderNumber)
	if err != nil {
		return err
	}
	e.logEvent(order, "cancel", deletedLevel)
	return nil
}

// modify handles a MODIFY event. The precedence of the diff rules is
// implemented as a literal, ordered switch: price change dominates,
// and among volume changes the first applicable rule wins.
func (e *Engine) modify(order common.Order) error {
	if order.IsMarket {
		return fmt.Errorf("%w: modify of market order#%d", common.ErrInvalidOperation, order.OrderNumber)
	}

	entry, ok := e.book.Lookup(order.OrderNumber)
	if !ok {
		e.log.Info().Int64("orderNumber", order.OrderNumber).Msg("modify of unknown order, ignoring")
		return nil
	}
	resting := e.book.Order(order.OrderNumber)

	switch {
	case order.LimitPrice != entry.Price:
		return e.reenter(entry, order)
	case order.VolumeOriginal < resting.VolumeOriginal:
		resting.VolumeOriginal = order.VolumeOriginal
		e.logEvent(order, "modify volume_original decreased in-place", false)
		return nil
	case order.VolumeDisclosed < resting.VolumeDisclosed:
		resting.VolumeDisclosed = order.VolumeDisclosed
		e.logEvent(order, "modify volume_disclosed decreased in-place", false)
		return nil
	case order.VolumeOriginal > resting.VolumeOriginal:
		return e.reenter(entry, order)
	case order.VolumeDisclosed > resting.VolumeDisclosed:
		return e.reenter(entry, order)
	default:
		e.log.Info().Int64("orderNumber", order.OrderNumber).Msg("undefined modify scenario, ignoring")
		return nil
	}
}

// reenter removes the old resting order and re-enters it as an ADD,
// forfeiting queue position. The event's side is advisory; the Index's
// side is authoritative, matching the cancel path.
func (e *Engine) reenter(entry book.IndexEntry, order common.Order) error {
	deletedLevel, err := e.book.Remove(entry.Side, entry.Price, order.OrderNumber)
	if err != nil {
		return err
	}
	e.logEvent(order, "modify forfeits priority", deletedLevel)

	readd := order
	readd.Side = entry.Side
	readd.Activity = common.ActivityAdd
	return e.placeOrder(readd)
}

func opposite(side common.Side) common.Side {
	if side == common.Buy {
		return common.Sell
	}
	return common.Buy
}

// marketableAt implements the marketability test for a limit order
// against the opposite side's best price.
func marketableAt(side common.Side, limitPrice, oppBest common.Price) bool {
	if side == common.Buy {
		return limitPrice >= oppBest
	}
	return limitPrice <= oppBest
}
