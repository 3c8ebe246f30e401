// Package sink implements the trade and stats sink: a write-only
// collaborator that receives trade records, per-event records, and
// end-of-day snapshots from the engine and fans them out to log files
// and, optionally, stdout.
//
// The engine defines the Sink interface it consumes (internal/engine);
// this package is the one concrete implementation, following the
// teacher's pattern of injecting collaborators (Engine, Server) as
// interfaces rather than reaching for package-level globals.
package sink

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tidalcross/lob/internal/common"
	"github.com/tidalcross/lob/internal/engine"
)

// Config mirrors the engine construction options that pertain to
// output: where records are written and whether they are additionally
// mirrored to stdout.
type Config struct {
	ShowOutput        bool
	EventsLogFile     string
	StatsLogFile      string
	DailyStatsLogFile string
}

// FileSink is the file-backed Sink. Each configured destination is set
// up (through lumberjack, for rotation) at construction; lumberjack
// opens the file on its first write. Close must be called on every exit
// path.
type FileSink struct {
	tickSize common.TickSize

	eventsLog     io.WriteCloser
	statsLog      io.WriteCloser
	dailyStatsLog io.WriteCloser

	eventsLogger     zerolog.Logger
	statsLogger      zerolog.Logger
	dailyStatsLogger zerolog.Logger

	showOutput bool

	mu       sync.Mutex
	stats    dailyStats
	lastMean float64
	lastStd  float64
}

// New sets up the configured log destinations and returns a ready Sink.
// Any destination left blank in cfg is simply not written to.
func New(tickSize common.TickSize, cfg Config) *FileSink {
	s := &FileSink{tickSize: tickSize, showOutput: cfg.ShowOutput}

	if cfg.EventsLogFile != "" {
		s.eventsLog = &lumberjack.Logger{Filename: cfg.EventsLogFile, MaxSize: 100, MaxBackups: 5}
	}
	if cfg.StatsLogFile != "" {
		s.statsLog = &lumberjack.Logger{Filename: cfg.StatsLogFile, MaxSize: 100, MaxBackups: 5}
	}
	if cfg.DailyStatsLogFile != "" {
		s.dailyStatsLog = &lumberjack.Logger{Filename: cfg.DailyStatsLogFile, MaxSize: 10, MaxBackups: 10}
	}

	writers := s.eventsWriters()
	s.eventsLogger = zerolog.New(writers).With().Timestamp().Logger()

	s.statsLogger = zerolog.New(writerOrDiscard(s.statsLog)).With().Timestamp().Logger()

	dailyWriters := s.dailyStatsWriters()
	s.dailyStatsLogger = zerolog.New(dailyWriters).With().Timestamp().Logger()

	return s
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}

func (s *FileSink) eventsWriters() io.Writer {
	var writers []io.Writer
	if s.eventsLog != nil {
		writers = append(writers, s.eventsLog)
	}
	if s.showOutput {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout})
	}
	if len(writers) == 0 {
		return io.Discard
	}
	return zerolog.MultiLevelWriter(writers...)
}

func (s *FileSink) dailyStatsWriters() io.Writer {
	var writers []io.Writer
	if s.dailyStatsLog != nil {
		writers = append(writers, s.dailyStatsLog)
	}
	if len(writers) == 0 {
		return io.Discard
	}
	return zerolog.MultiLevelWriter(writers...)
}

// Close closes every configured destination and returns the first error
// any of them reports.
func (s *FileSink) Close() error {
	var firstErr error
	for _, c := range []io.WriteCloser{s.eventsLog, s.statsLog, s.dailyStatsLog} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RecordTrade appends a trade to the events log, mirrors it to stdout if
// configured, and folds it into the running daily stats.
func (s *FileSink) RecordTrade(trade common.Trade) {
	// Prices are written at the tick size's precision, e.g. "100.00" for a
	// 0.05 tick.
	places := max(0, -s.tickSize.ToDecimal(1).Exponent())
	s.eventsLogger.Info().
		Str("tradeNumber", trade.TradeNumber).
		Str("tradeDate", trade.TradeDate.Format("2006-01-02")).
		Str("tradeTime", trade.TradeTime.Format("15:04:05.000000")).
		Str("tradePrice", s.tickSize.ToDecimal(trade.TradePrice).StringFixed(places)).
		Uint64("tradeQuantity", trade.TradeQuantity).
		Int64("buyOrderNumber", trade.BuyOrderNumber).
		Int64("sellOrderNumber", trade.SellOrderNumber).
		Msg("trade")

	s.mu.Lock()
	s.stats.observe(s.tickSize.ToDecimal(trade.TradePrice).InexactFloat64(), trade.TradeQuantity)
	mean, std, n := s.stats.mean, s.stats.std, s.stats.n
	s.mu.Unlock()

	s.statsLogger.Info().
		Str("tradeNumber", trade.TradeNumber).
		Int("tradesSoFar", n).
		Float64("meanTradePrice", mean).
		Float64("stdTradePrice", std).
		Msg("running_stats")
}

// RecordEvent writes a non-trade event line.
func (s *FileSink) RecordEvent(order common.Order, note string) {
	s.eventsLogger.Info().
		Int64("orderNumber", order.OrderNumber).
		Str("side", order.Side.String()).
		Str("note", note).
		Msg("event")
}

// RecordDailyStats writes the end-of-day aggregate and resets the
// running accumulator for the next trading day.
func (s *FileSink) RecordDailyStats(day time.Time, snapshot engine.Snapshot, tradeCount int, totalVolume uint64) {
	s.mu.Lock()
	mean, std := s.stats.mean, s.stats.std
	s.lastMean, s.lastStd = mean, std
	s.stats = dailyStats{}
	s.mu.Unlock()

	s.dailyStatsLogger.Info().
		Str("day", day.Format("2006-01-02")).
		Int("tradeCount", tradeCount).
		Uint64("totalVolume", totalVolume).
		Float64("meanTradePrice", mean).
		Float64("stdTradePrice", std).
		Int("restingBidLevels", len(snapshot.Bids)).
		Int("restingAskLevels", len(snapshot.Asks)).
		Msg("daily_stats")
}

// PrintDailyStats is the optional human-readable call, printed to w
// (typically os.Stdout from the CLI). It reports the mean/stddev last
// computed by RecordDailyStats, which is called on day rollover and at
// stream end — day, tradeCount, and totalVolume are the caller's own
// record of those same totals (e.g. Engine.Summary()), since the Sink's
// running accumulator is reset once RecordDailyStats folds it in.
func (s *FileSink) PrintDailyStats(w io.Writer, day time.Time, tradeCount int, totalVolume uint64) {
	s.mu.Lock()
	mean, std := s.lastMean, s.lastStd
	s.mu.Unlock()

	fmt.Fprintf(w, "Day:                 %s\n", day.Format("2006-01-02"))
	fmt.Fprintf(w, "Number of trades:    %d\n", tradeCount)
	fmt.Fprintf(w, "Total trade volume:  %d\n", totalVolume)
	fmt.Fprintf(w, "Mean trade price:    %.4f\n", mean)
	fmt.Fprintf(w, "Trade price STD:     %.4f\n", std)
}

// dailyStats implements the incremental mean/stddev formula used for
// end-of-day trade price aggregates:
//
//	mean_n = (mean_{n-1}*(n-1) + x_n) / n
//	std_n  = sqrt((std_{n-1}^2*(n-1) + (x_n - mean_n)^2) / n)
type dailyStats struct {
	n    int
	mean float64
	std  float64
}

func (d *dailyStats) observe(price float64, qty uint64) {
	_ = qty // volume is tracked separately by the engine; price stats ignore size-weighting, matching the original.
	d.n++
	n := float64(d.n)
	if d.n == 1 {
		d.mean = price
		d.std = 0
		return
	}
	newMean := (d.mean*(n-1) + price) / n
	d.std = math.Sqrt((d.std*d.std*(n-1) + (price-newMean)*(price-newMean)) / n)
	d.mean = newMean
}
