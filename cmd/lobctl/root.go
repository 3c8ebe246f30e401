package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lobctl",
		Short: "Drive a single-symbol limit order book matching engine over recorded order events",
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newStatsCmd())
	return root
}
