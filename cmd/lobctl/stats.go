package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <events-log-file>",
		Short: "Recompute trade count, volume, and price mean/stddev from an events log",
		Long: "stats replays the JSON-line events log produced by `lobctl run` and recomputes\n" +
			"aggregate trade statistics independently of any daily-stats log, the way the\n" +
			"original driver scripts post-processed a generated trade log.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var numTrades int
			var totalVolume uint64
			var mean, std float64

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				var line map[string]any
				if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
					continue
				}
				if line["message"] != "trade" {
					continue
				}
				priceStr, _ := line["tradePrice"].(string)
				price, err := parseFloat(priceStr)
				if err != nil {
					continue
				}
				qty, _ := line["tradeQuantity"].(float64)

				numTrades++
				totalVolume += uint64(qty)
				if numTrades == 1 {
					mean = price
					std = 0
					continue
				}
				newMean := (mean*float64(numTrades-1) + price) / float64(numTrades)
				std = math.Sqrt((std*std*float64(numTrades-1) + (price-newMean)*(price-newMean)) / float64(numTrades))
				mean = newMean
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Number of trades:    %d\n", numTrades)
			fmt.Fprintf(cmd.OutOrStdout(), "Total trade volume:  %d\n", totalVolume)
			fmt.Fprintf(cmd.OutOrStdout(), "Mean trade price:    %.4f\n", mean)
			fmt.Fprintf(cmd.OutOrStdout(), "Trade price STD:     %.4f\n", std)
			return nil
		},
	}
	return cmd
}

func parseFloat(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	return f, err
}
