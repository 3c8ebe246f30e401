// Package engine implements the matcher and the per-event routing:
// marketability tests, the match loop, cancel/modify semantics, and
// day-boundary bookkeeping. It composes internal/book for the
// price-indexed queues and emits to a Sink.
package engine

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tidalcross/lob/internal/book"
	"github.com/tidalcross/lob/internal/common"
)

// Sink is the trade and stats sink interface consumed by the engine.
// The engine never opens or formats files itself; that is the concern
// of internal/sink's implementation.
type Sink interface {
	RecordTrade(trade common.Trade)
	RecordEvent(order common.Order, note string)
	RecordDailyStats(day time.Time, snapshot Snapshot, tradeCount int, totalVolume uint64)
}

// Snapshot is an end-of-day view of both side books, handed to the Sink
// on day rollover and at stream end.
type Snapshot struct {
	Bids []*book.PriceLevel
	Asks []*book.PriceLevel
}

// Engine holds the book, the tick size, the current trading day, and
// the trade counter, plus its Sink and logger.
type Engine struct {
	book         *book.Book
	tickSize     common.TickSize
	sink         Sink
	log          zerolog.Logger
	sparseEvents bool

	currentDay   time.Time
	haveDay      bool
	tradeCounter int

	tradeCount  int
	totalVolume uint64
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithTickSize overrides the default 0.05 tick size.
func WithTickSize(ts common.TickSize) Option {
	return func(e *Engine) { e.tickSize = ts }
}

// WithSink attaches the Trade & Stats Sink.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithLogger overrides the default (disabled) logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithSparseEvents controls whether every event is emitted to the Sink's
// event log, or only trades and significant book state transitions
// (level creation/deletion). Defaults to true.
func WithSparseEvents(sparse bool) Option {
	return func(e *Engine) { e.sparseEvents = sparse }
}

type noopSink struct{}

func (noopSink) RecordTrade(common.Trade)                          {}
func (noopSink) RecordEvent(common.Order, string)                  {}
func (noopSink) RecordDailyStats(time.Time, Snapshot, int, uint64) {}

func New(opts ...Option) *Engine {
	e := &Engine{
		book:         book.New(),
		tickSize:     common.DefaultTickSize(),
		sink:         noopSink{},
		log:          zerolog.Nop(),
		sparseEvents: true,
		tradeCounter: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TickSize exposes the configured tick size, e.g. for the Ingestor to
// convert decimal CSV prices before constructing Order values.
func (e *Engine) TickSize() common.TickSize {
	return e.tickSize
}

// Book exposes the underlying Book State, for snapshotting and tests.
func (e *Engine) Book() *book.Book {
	return e.book
}

// Summary reports the trading day currently (or most recently) open and
// the running trade count / total volume accumulated for it, so a
// caller such as the CLI's --show-output can print an end-of-run
// summary without reaching into Engine's private bookkeeping. ok is
// false if no event has been processed yet.
func (e *Engine) Summary() (day time.Time, tradeCount int, totalVolume uint64, ok bool) {
	return e.currentDay, e.tradeCount, e.totalVolume, e.haveDay
}

// Process routes a single event: it adopts/advances the trading day
// (clearing the book on a transition), then classifies the event by
// activity and dispatches to the matcher, cancel, or modify path.
// Events must be supplied in the order they occurred; Process never
// reorders or buffers across calls.
func (e *Engine) Process(order common.Order) error {
	day := truncateToDate(order.TransDate)
	if !e.haveDay {
		e.currentDay = day
		e.haveDay = true
	} else if !day.Equal(e.currentDay) {
		e.rollDay(day)
	}

	var err error
	switch order.ResolvedActivity() {
	case common.ActivityAdd:
		err = e.placeOrder(order)
	case common.ActivityCancel:
		err = e.cancel(order)
	case common.ActivityModify:
		err = e.modify(order)
	default:
		err = fmt.Errorf("%w: %d", common.ErrUnknownActivity, order.Activity)
	}
	if err != nil {
		e.log.Error().Err(err).
			Int64("orderNumber", order.OrderNumber).
			Str("side", order.Side.String()).
			Int("activity", int(order.Activity)).
			Msg("event rejected")
	}
	return err
}

// Flush emits a final daily-stats record for the current day and should
// be called once the event stream ends.
func (e *Engine) Flush() {
	if !e.haveDay {
		return
	}
	e.emitDailyStats()
}

func (e *Engine) rollDay(newDay time.Time) {
	e.emitDailyStats()

	e.log.Info().
		Time("previousDay", e.currentDay).
		Time("newDay", newDay).
		Msg("day rollover, clearing book")

	e.book.Clear()
	e.tradeCounter = 1
	e.tradeCount = 0
	e.totalVolume = 0
	e.currentDay = newDay
}

func (e *Engine) emitDailyStats() {
	snap := Snapshot{
		Bids: e.book.Levels(common.Buy),
		Asks: e.book.Levels(common.Sell),
	}
	e.sink.RecordDailyStats(e.currentDay, snap, e.tradeCount, e.totalVolume)
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// logEvent forwards a non-trade event to the Sink's event log, unless
// sparse_events is enabled and the event isn't a significant book state
// transition.
func (e *Engine) logEvent(order common.Order, note string, significant bool) {
	if e.sparseEvents && !significant {
		return
	}
	e.sink.RecordEvent(order, note)
}
