// timer_rubato.go - Adaptive timer interval modulation for IronEngine

/*
 ██▓ ██▀███   ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒▓██ ▒ ██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██ ░▄█ ▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▒██▀▀█▄  ▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░░██▓ ▒██▒░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒▓ ░▒▓░░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░  ░▒ ░ ▒░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░  ░░   ░ ░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░     ░         ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2025 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IronEngine
License: GPLv3 or later
*/

/*
timer_rubato.go - Adaptive Timer Interval Modulation for IronEngine

Rubato: the tempo bends with the music. While the transactional-execution
facility is active, this loop watches the machine-wide transaction counter
over a five-slot trailing window of its own intervals and maps the busiest
slot of the window (not the average) onto a logarithmic curve that stretches
the timer thread's wake interval. A machine doing no transactional work
keeps the shortest interval and its snappy interrupt delivery; a machine in
a hot transactional phase earns up to a full second between timer wakeups
so that transactions are not forever being interrupted mid-flight.

The curve and its constants are inherited tuning. Treat any change to them
as a behaviour change, never as a cleanup.
*/

package main

import "math"

// rubatoInterval maps an extrapolated transactions-per-second figure onto a
// timer interval in microseconds, clamped to the configured bounds.
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

// RunRubatoThread modulates the timer thread's wake interval under
// transactional load until shutdown or StopRubato. On the way out the
// modulated interval snaps back to the baseline exactly once.
func (sys *System) RunRubatoThread() {
	logThreadBegin("rubato")
	defer logThreadEnd("rubato")

	sys.rubatoActive.Store(true)
	defer func() {
		sys.txfTimerint.Store(sys.timerint.Load())
		sys.rubatoActive.Store(false)
	}()

	baseline := sys.timerint.Load()
	intervalsPerSec := int64(MAX_TOD_UPDATE_USECS) / baseline

	for !sys.shutdown.Load() && sys.rubatoActive.Load() {
		sys.rublock.Lock()

		// A baseline change from the console is a resynchronization
		// point: adopt it and rescale before looking at the window.
		if b := sys.timerint.Load(); b != baseline {
			baseline = b
			sys.txfTimerint.Store(baseline)
			intervalsPerSec = int64(MAX_TOD_UPDATE_USECS) / baseline
		}

		copy(sys.txfWindow[:RUBATO_WINDOW_SLOTS-1], sys.txfWindow[1:])
		sys.txfWindow[RUBATO_WINDOW_SLOTS-1] = sys.txfCounter.Swap(0)

		var maxCounter uint64
		for _, c := range sys.txfWindow {
			if c > maxCounter {
				maxCounter = c
			}
		}
		maxRate := maxCounter * uint64(intervalsPerSec)

		interval := rubatoInterval(maxRate)
		sys.txfTimerint.Store(interval)
		intervalsPerSec = int64(MAX_TOD_UPDATE_USECS) / interval

		sys.rublock.Unlock()

		// Sleep outside the lock; the sampler and the execution threads
		// keep moving while rubato rests.
		usleep(interval)
	}
}

// StopRubato deactivates the modulation loop at its next iteration
// boundary.
func (sys *System) StopRubato() {
	sys.rubatoActive.Store(false)
}
