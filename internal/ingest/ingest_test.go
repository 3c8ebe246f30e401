package ingest

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidalcross/lob/internal/common"
)

// fakeEngine records every processed order without running any matching
// logic, so these tests exercise row parsing and chunk-boundary behavior
// in isolation from internal/engine.
type fakeEngine struct {
	ts        common.TickSize
	processed []common.Order
	flushed   bool
}

func (f *fakeEngine) Process(order common.Order) error {
	f.processed = append(f.processed, order)
	return nil
}
func (f *fakeEngine) TickSize() common.TickSize { return f.ts }
func (f *fakeEngine) Flush()                    { f.flushed = true }

var _ Engine = (*fakeEngine)(nil)

// row builds one 22-field CSV row in the wire order of spec.md §6.
func row(fields ...string) string {
	if len(fields) != columnCount {
		panic("row fixture must have exactly 22 fields")
	}
	return strings.Join(fields, ",")
}

func addRow(orderNumber, date, time_, side, volDisclosed, volOriginal, limitPrice string) string {
	return row(
		"2", "CM", orderNumber, date, time_, side, "1",
		"INFY", "EQ", "", "", "",
		volDisclosed, volOriginal, limitPrice, "",
		"N", "N", "N", "", "", "",
	)
}

func marketAddRow(orderNumber, date, time_, side, volDisclosed, volOriginal string) string {
	return row(
		"2", "CM", orderNumber, date, time_, side, "1",
		"INFY", "EQ", "", "", "",
		volDisclosed, volOriginal, "", "",
		"Y", "N", "N", "", "", "",
	)
}

func cancelRow(orderNumber, date, time_, side string) string {
	return row(
		"2", "CM", orderNumber, date, time_, side, "3",
		"INFY", "EQ", "", "", "",
		"0", "0", "", "",
		"N", "N", "N", "", "", "",
	)
}

func modifyRow(orderNumber, date, time_, side, volDisclosed, volOriginal, limitPrice string) string {
	return row(
		"2", "CM", orderNumber, date, time_, side, "4",
		"INFY", "EQ", "", "", "",
		volDisclosed, volOriginal, limitPrice, "",
		"N", "N", "N", "", "", "",
	)
}

func fixtureRows() []string {
	return []string{
		addRow("1", "09/14/2010", "09:15:00.000000", "B", "10", "10", "100.00"),
		addRow("2", "09/14/2010", "09:15:01.500000", "S", "5", "5", "100.05"),
		cancelRow("1", "09/14/2010", "09:15:02.000000", "B"),
		modifyRow("2", "09/14/2010", "09:15:03.000000", "S", "3", "3", "101.00"),
		marketAddRow("3", "09/14/2010", "09:15:04.000000", "B", "2", "2"),
	}
}

func writeFixture(t *testing.T, dir, name string, rows []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeGzipFixture(t *testing.T, dir, name string, rows []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(rows, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return path
}

func TestParseRow_FieldsAreNormalized(t *testing.T) {
	eng := &fakeEngine{ts: common.DefaultTickSize()}
	ing := New(eng, "test-run")

	path := writeFixture(t, t.TempDir(), "orders.csv", fixtureRows())
	require.NoError(t, ing.Run(t.Context(), path))

	require.Len(t, eng.processed, 5)
	require.True(t, eng.flushed)

	add1 := eng.processed[0]
	assert.Equal(t, int64(1), add1.OrderNumber)
	assert.Equal(t, common.Buy, add1.Side)
	assert.Equal(t, common.ActivityAdd, add1.Activity)
	assert.False(t, add1.IsMarket)
	assert.Equal(t, common.Price(2000), add1.LimitPrice, "100.00 at 0.05 tick size is 2000 ticks")
	assert.Equal(t, uint64(10), add1.VolumeOriginal)
	assert.Equal(t, uint64(10), add1.VolumeDisclosed)
	assert.Equal(t, "INFY", add1.Symbol)
	assert.True(t, add1.TransDate.Equal(time.Date(2010, 9, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 9*time.Hour+15*time.Minute, add1.TransTime)

	cancel := eng.processed[2]
	assert.Equal(t, common.ActivityCancel, cancel.Activity)
	assert.Equal(t, int64(1), cancel.OrderNumber)

	modify := eng.processed[3]
	assert.Equal(t, common.ActivityModify, modify.Activity)
	assert.Equal(t, common.Price(2020), modify.LimitPrice, "101.00 at 0.05 tick size is 2020 ticks")

	market := eng.processed[4]
	assert.True(t, market.IsMarket)
	assert.Equal(t, common.Price(0), market.LimitPrice, "market orders carry no meaningful limit price")
}

// spec.md §6: "Chunk boundaries must not affect semantics."
func TestChunkBoundariesDoNotAffectSemantics(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "orders.csv", fixtureRows())

	run := func(chunkSize int) []common.Order {
		eng := &fakeEngine{ts: common.DefaultTickSize()}
		ing := New(eng, "test-run", WithChunkSize(chunkSize))
		require.NoError(t, ing.Run(t.Context(), path))
		return eng.processed
	}

	wholeFile := run(DefaultChunkSize)
	oneAtATime := run(1)
	straddling := run(2)

	require.Len(t, oneAtATime, len(wholeFile))
	require.Len(t, straddling, len(wholeFile))
	for i := range wholeFile {
		assert.Equal(t, wholeFile[i], oneAtATime[i], "row %d", i)
		assert.Equal(t, wholeFile[i], straddling[i], "row %d", i)
	}
}

func TestRun_GzipFixtureDecompressesTransparently(t *testing.T) {
	dir := t.TempDir()
	plainPath := writeFixture(t, dir, "orders.csv", fixtureRows())
	gzPath := writeGzipFixture(t, dir, "orders.csv.gz", fixtureRows())

	runOn := func(path string) []common.Order {
		eng := &fakeEngine{ts: common.DefaultTickSize()}
		ing := New(eng, "test-run")
		require.NoError(t, ing.Run(t.Context(), path))
		return eng.processed
	}

	plain := runOn(plainPath)
	gzipped := runOn(gzPath)

	require.Len(t, gzipped, len(plain))
	for i := range plain {
		assert.Equal(t, plain[i], gzipped[i], "row %d", i)
	}
}

func TestRun_UnknownActivityTypeIsRejected(t *testing.T) {
	eng := &fakeEngine{ts: common.DefaultTickSize()}
	ing := New(eng, "test-run")

	rows := []string{
		row("2", "CM", "1", "09/14/2010", "09:15:00.000000", "B", "9",
			"INFY", "EQ", "", "", "", "10", "10", "100.00", "", "N", "N", "N", "", "", ""),
	}
	path := writeFixture(t, t.TempDir(), "bad_activity.csv", rows)

	err := ing.Run(t.Context(), path)
	assert.ErrorIs(t, err, common.ErrUnknownActivity)
}

func TestRun_InvalidSideIsRejected(t *testing.T) {
	eng := &fakeEngine{ts: common.DefaultTickSize()}
	ing := New(eng, "test-run")

	rows := []string{
		row("2", "CM", "1", "09/14/2010", "09:15:00.000000", "X", "1",
			"INFY", "EQ", "", "", "", "10", "10", "100.00", "", "N", "N", "N", "", "", ""),
	}
	path := writeFixture(t, t.TempDir(), "bad_side.csv", rows)

	err := ing.Run(t.Context(), path)
	assert.ErrorIs(t, err, common.ErrInvalidSide)
}
