// rubatoplot.go - Dump the rubato interval curve as CSV for plotting
//
// Usage: go run tools/rubatoplot.go [-max 8000] [-step 50] > curve.csv
//
// Prints one line per transaction rate with the timer interval the
// modulation loop would pick for it. The constants here mirror the
// engine's; keep them in step when tuning.

package main

import (
	"flag"
	"fmt"
	"math"
	"os"
)

const (
	RUBATO_SCALE   = 286000.0
	RUBATO_OFFSET  = 200.0
	RUBATO_DIVISOR = 100.0
	RUBATO_SHIFT   = 212180.0

	MIN_TOD_UPDATE_USECS = 50
	MAX_TOD_UPDATE_USECS = 1000000
)

func rubatoInterval(maxRate uint64) int64 {
	usecs := RUBATO_SCALE*math.Log((float64(maxRate)+RUBATO_OFFSET)/RUBATO_DIVISOR) - RUBATO_SHIFT
	interval := int64(usecs)
	if interval < MIN_TOD_UPDATE_USECS {
		interval = MIN_TOD_UPDATE_USECS
	}
	if interval > MAX_TOD_UPDATE_USECS {
		interval = MAX_TOD_UPDATE_USECS
	}
	return interval
}

func main() {
	maxRate := flag.Uint64("max", 8000, "highest transaction rate to plot")
	step := flag.Uint64("step", 50, "rate increment between lines")
	flag.Parse()

	if *step == 0 {
		fmt.Fprintf(os.Stderr, "Error: -step must be at least 1\n")
		os.Exit(1)
	}

	fmt.Println("rate_tx_per_sec,interval_usecs")
	for rate := uint64(0); rate <= *maxRate; rate += *step {
		fmt.Printf("%d,%d\n", rate, rubatoInterval(rate))
	}

	// Report where the clamps engage so the plot is easy to read.
	lowEnd := uint64(0)
	for rate := uint64(0); rate <= *maxRate; rate++ {
		if rubatoInterval(rate) > MIN_TOD_UPDATE_USECS {
			break
		}
		lowEnd = rate
	}
	highStart := *maxRate
	for rate := *maxRate; rate > 0; rate-- {
		if rubatoInterval(rate) < MAX_TOD_UPDATE_USECS {
			break
		}
		highStart = rate
	}
	fmt.Fprintf(os.Stderr, "Floor clamp (%dus) holds through %d tx/s\n", MIN_TOD_UPDATE_USECS, lowEnd)
	fmt.Fprintf(os.Stderr, "Ceiling clamp (%dus) engages at %d tx/s\n", MAX_TOD_UPDATE_USECS, highStart)
}
