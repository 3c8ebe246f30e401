// Command lobctl drives the matching engine over one or more CSV event
// files. It is the systems-language replacement for the reference
// implementation's sge_run_lob.py driver script: where that script
// loops over <FIRM>-orders.csv.gz files and calls lob.py directly,
// lobctl wires the same shape through internal/ingest and
// internal/engine.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
