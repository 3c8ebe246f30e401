package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	tomb "gopkg.in/tomb.v2"

	"github.com/tidalcross/lob/internal/common"
	"github.com/tidalcross/lob/internal/engine"
	"github.com/tidalcross/lob/internal/ingest"
	"github.com/tidalcross/lob/internal/sink"
)

func newRunCmd() *cobra.Command {
	var (
		tickSize          string
		showOutput        bool
		sparseEvents      bool
		eventsLogFile     string
		statsLogFile      string
		dailyStatsLogFile string
		chunkSize         int
	)

	cmd := &cobra.Command{
		Use:   "run <file.csv|file.csv.gz> [more files...]",
		Short: "Ingest one or more order event files and run the matching engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tsDecimal, err := decimal.NewFromString(tickSize)
			if err != nil {
				return fmt.Errorf("--tick-size: %w", err)
			}
			ts, err := common.NewTickSize(tsDecimal)
			if err != nil {
				return fmt.Errorf("--tick-size: %w", err)
			}

			runID := uuid.NewString()
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				With().Timestamp().Str("runID", runID).Logger()

			fileSink := sink.New(ts, sink.Config{
				ShowOutput:        showOutput,
				EventsLogFile:     eventsLogFile,
				StatsLogFile:      statsLogFile,
				DailyStatsLogFile: dailyStatsLogFile,
			})
			defer func() {
				if err := fileSink.Close(); err != nil {
					log.Error().Err(err).Msg("closing sink")
				}
			}()

			eng := engine.New(
				engine.WithTickSize(ts),
				engine.WithSink(fileSink),
				engine.WithLogger(log),
				engine.WithSparseEvents(sparseEvents),
			)

			ingestor := ingest.New(eng, runID,
				ingest.WithChunkSize(chunkSize),
				ingest.WithLogger(log),
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var t tomb.Tomb
			t.Go(func() error {
				return ingestor.Run(t.Context(ctx), args...)
			})

			<-t.Dead()
			if err := t.Err(); err != nil {
				return err
			}

			if showOutput {
				if day, tradeCount, totalVolume, ok := eng.Summary(); ok {
					fileSink.PrintDailyStats(os.Stdout, day, tradeCount, totalVolume)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tickSize, "tick-size", "0.05", "minimum price increment")
	cmd.Flags().BoolVar(&showOutput, "show-output", false, "mirror trade and event records to stdout")
	cmd.Flags().BoolVar(&sparseEvents, "sparse-events", true, "log only trades and significant book transitions")
	cmd.Flags().StringVar(&eventsLogFile, "events-log-file", "", "destination for event-level records")
	cmd.Flags().StringVar(&statsLogFile, "stats-log-file", "", "destination for continuous book-state statistics")
	cmd.Flags().StringVar(&dailyStatsLogFile, "daily-stats-log-file", "", "destination for end-of-day aggregates")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", ingest.DefaultChunkSize, "CSV rows read per chunk")

	return cmd
}
