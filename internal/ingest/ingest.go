// Package ingest implements the event ingestor: a chunked CSV
// (optionally gzip-compressed) source that normalizes the 22-column
// schema into common.Order values and drives an engine one event at a
// time, in file order.
//
// Run is meant to be launched as a tomb.Tomb-tracked goroutine by the
// caller (cmd/lobctl), so a SIGINT/SIGTERM-driven shutdown cancels the
// context Run observes between chunks rather than killing the process
// mid-row.
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tidalcross/lob/internal/common"
	"github.com/tidalcross/lob/internal/engine"
)

// DefaultChunkSize matches the reference implementation's batch size.
// Chunking is purely a read-buffering concern; it never changes which
// events are seen or in what order.
const DefaultChunkSize = 500

const columnCount = 22

// columnLayout names the 22 input fields in their wire order.
const (
	colRecordIndicator = iota
	colSegment
	colOrderNumber
	colTransDate
	colTransTime
	colBuySellIndicator
	colActivityType
	colSymbol
	colInstrument
	colExpiryDate
	colStrikePrice
	colOptionType
	colVolumeDisclosed
	colVolumeOriginal
	colLimitPrice
	colTriggerPrice
	colMktFlag
	colOnStopFlag
	colIOFlag
	colSpreadCombType
	colAlgoInd
	colClientIDFlag
)

// Engine is the subset of *engine.Engine the Ingestor drives. Declared
// as an interface so tests can substitute a recording fake.
type Engine interface {
	Process(order common.Order) error
	TickSize() common.TickSize
	Flush()
}

var _ Engine = (*engine.Engine)(nil)

// Ingestor reads one or more CSV sources in sequence and feeds the
// normalized events to an Engine, one file at a time, in the order
// given, draining them as a single ordered source.
type Ingestor struct {
	eng       Engine
	chunkSize int
	log       zerolog.Logger
	runID     string
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithChunkSize overrides DefaultChunkSize.
func WithChunkSize(n int) Option {
	return func(i *Ingestor) {
		if n > 0 {
			i.chunkSize = n
		}
	}
}

// WithLogger attaches a logger; every log line is tagged with the
// Ingestor's run correlation ID.
func WithLogger(log zerolog.Logger) Option {
	return func(i *Ingestor) { i.log = log }
}

// New constructs an Ingestor over eng, tagging its log lines with the
// caller-supplied runID for log correlation across a batch run.
func New(eng Engine, runID string, opts ...Option) *Ingestor {
	i := &Ingestor{
		eng:       eng,
		chunkSize: DefaultChunkSize,
		log:       zerolog.Nop(),
		runID:     runID,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.log = i.log.With().Str("runID", runID).Logger()
	return i
}

// Run ingests every path in order, then flushes the engine. It is
// designed to be launched as the tracked goroutine of a tomb.Tomb:
//
//	var t tomb.Tomb
//	t.Go(func() error { return ingestor.Run(t.Context(nil), paths...) })
//
// A cancelled context halts ingestion after the current chunk, so a
// SIGINT/SIGTERM-driven shutdown never truncates mid-row; the engine is
// always flushed before Run returns, so the final daily-stats record is
// emitted on every exit path. Closing the sink is left to the caller.
func (i *Ingestor) Run(ctx context.Context, paths ...string) error {
	defer i.eng.Flush()

	for _, path := range paths {
		if err := i.runFile(ctx, path); err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

func (i *Ingestor) runFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = columnCount
	cr.ReuseRecord = true

	i.log.Info().Str("file", path).Msg("ingest start")

	rows := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, err := readChunk(cr, i.chunkSize)
		if len(chunk) == 0 && err == io.EOF {
			break
		}
		for _, row := range chunk {
			order, perr := i.parseRow(row)
			if perr != nil {
				return fmt.Errorf("row %d: %w", rows+1, perr)
			}
			if perr := i.eng.Process(order); perr != nil {
				return fmt.Errorf("row %d (order#%d): %w", rows+1, order.OrderNumber, perr)
			}
			rows++
		}
		if err != nil && err != io.EOF {
			return err
		}
		if err == io.EOF {
			break
		}
	}

	i.log.Info().Str("file", path).Int("rows", rows).Msg("ingest complete")
	return nil
}

// readChunk reads up to n rows, copying each since cr.ReuseRecord is
// set. Returns io.EOF alongside any rows read on the final, short chunk.
func readChunk(cr *csv.Reader, n int) ([][]string, error) {
	chunk := make([][]string, 0, n)
	for len(chunk) < n {
		rec, err := cr.Read()
		if err != nil {
			return chunk, err
		}
		row := make([]string, len(rec))
		copy(row, rec)
		chunk = append(chunk, row)
	}
	return chunk, nil
}

const (
	dateLayout = "01/02/2006"
	timeLayout = "15:04:05.000000"
)

func (i *Ingestor) parseRow(row []string) (common.Order, error) {
	var o common.Order

	orderNumber, err := strconv.ParseInt(strings.TrimSpace(row[colOrderNumber]), 10, 64)
	if err != nil {
		return o, fmt.Errorf("order_number: %w", err)
	}
	o.OrderNumber = orderNumber

	transDate, err := time.Parse(dateLayout, strings.TrimSpace(row[colTransDate]))
	if err != nil {
		return o, fmt.Errorf("trans_date: %w", err)
	}
	o.TransDate = transDate

	transTime, err := parseTimeOfDay(strings.TrimSpace(row[colTransTime]))
	if err != nil {
		return o, fmt.Errorf("trans_time: %w", err)
	}
	o.TransTime = transTime

	side, err := parseSide(row[colBuySellIndicator])
	if err != nil {
		return o, err
	}
	o.Side = side

	activityCode, err := strconv.Atoi(strings.TrimSpace(row[colActivityType]))
	if err != nil {
		return o, fmt.Errorf("activity_type: %w", err)
	}
	switch common.Activity(activityCode) {
	case common.ActivityAdd, common.ActivityCancel, common.ActivityModify:
		o.Activity = common.Activity(activityCode)
	default:
		return o, fmt.Errorf("%w: %d", common.ErrUnknownActivity, activityCode)
	}

	o.IsMarket = strings.EqualFold(strings.TrimSpace(row[colMktFlag]), "Y")

	volDisclosed, err := strconv.ParseUint(strings.TrimSpace(row[colVolumeDisclosed]), 10, 64)
	if err != nil {
		return o, fmt.Errorf("volume_disclosed: %w", err)
	}
	o.VolumeDisclosed = volDisclosed

	volOriginal, err := strconv.ParseUint(strings.TrimSpace(row[colVolumeOriginal]), 10, 64)
	if err != nil {
		return o, fmt.Errorf("volume_original: %w", err)
	}
	o.VolumeOriginal = volOriginal

	ts := i.eng.TickSize()
	// A cancel's limit price is advisory (the engine finds the order by
	// number), so a cancel row may leave it blank.
	blankCancelPrice := o.Activity == common.ActivityCancel && strings.TrimSpace(row[colLimitPrice]) == ""
	if !o.IsMarket && !blankCancelPrice {
		price, err := parsePrice(ts, row[colLimitPrice])
		if err != nil {
			return o, fmt.Errorf("limit_price: %w", err)
		}
		o.LimitPrice = price
	}
	if trigger := strings.TrimSpace(row[colTriggerPrice]); trigger != "" {
		if price, err := parsePrice(ts, row[colTriggerPrice]); err == nil {
			o.TriggerPrice = price
		}
	}
	if strike := strings.TrimSpace(row[colStrikePrice]); strike != "" {
		if price, err := parsePrice(ts, row[colStrikePrice]); err == nil {
			o.StrikePrice = price
		}
	}

	o.Symbol = strings.TrimSpace(row[colSymbol])
	o.Instrument = strings.TrimSpace(row[colInstrument])
	o.OptionType = strings.TrimSpace(row[colOptionType])
	o.OnStopFlag = strings.EqualFold(strings.TrimSpace(row[colOnStopFlag]), "Y")
	o.IOFlag = strings.EqualFold(strings.TrimSpace(row[colIOFlag]), "Y")
	o.SpreadCombType = strings.TrimSpace(row[colSpreadCombType])
	o.AlgoInd = strings.TrimSpace(row[colAlgoInd])
	o.ClientIDFlag = strings.TrimSpace(row[colClientIDFlag])

	if expiry := strings.TrimSpace(row[colExpiryDate]); expiry != "" {
		if d, err := time.Parse(dateLayout, expiry); err == nil {
			o.ExpiryDate = d
		}
	}

	return o, nil
}

func parseSide(raw string) (common.Side, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "B":
		return common.Buy, nil
	case "S":
		return common.Sell, nil
	default:
		return 0, fmt.Errorf("%w: %q", common.ErrInvalidSide, raw)
	}
}

func parseTimeOfDay(raw string) (time.Duration, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return 0, err
	}
	return t.Sub(t.Truncate(24 * time.Hour)), nil
}

func parsePrice(ts common.TickSize, raw string) (common.Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	return ts.ToPrice(d)
}
