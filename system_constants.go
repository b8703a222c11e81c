// system_constants.go - Machine-wide constants for the IronEngine timer core

package main

// Machine time-of-day format: 64-bit fixed point. The low 4 bits are
// fractional, so bit 4 counts microseconds. One second = 16,000,000 units.
const (
	TOD_USEC = 16       // one microsecond of machine time
	TOD_SEC  = 16000000 // one second of machine time
	TOD_FRAC = 0xF      // fractional bits masked off in classic mode

	// Machine clocks count from 1900-01-01; the host counts from
	// 1970-01-01. 70 years plus 17 leap days.
	TOD_EPOCH_SECS = ((70 * 365) + 17) * 86400
)

// Rate measurement period: statistics are recomputed once per second of
// machine time.
const MEASUREMENT_PERIOD = TOD_SEC

// Timer thread update interval bounds (microseconds). The baseline is
// user-configured within these; the rubato loop modulates between them.
const (
	MIN_TOD_UPDATE_USECS = 50      // highest wakeup frequency
	DEF_TOD_UPDATE_USECS = 50      // default baseline
	MAX_TOD_UPDATE_USECS = 1000000 // one second between wakeups
)

// Rubato curve tuning. These are behavior, not style: the published
// interval is SCALE * ln((rate + OFFSET) / DIVISOR) - SHIFT, clamped to the
// update bounds above.
const (
	RUBATO_SCALE   = 286000.0
	RUBATO_OFFSET  = 200.0
	RUBATO_DIVISOR = 100.0
	RUBATO_SHIFT   = 212180.0

	RUBATO_WINDOW_SLOTS = 5 // trailing intervals considered for the burst rate
)

// Virtual CPU execution states
const (
	CPUSTATE_STOPPED = iota
	CPUSTATE_STOPPING
	CPUSTATE_RUNNING
	CPUSTATE_WAITING
)

// Architecture modes
const (
	ARCH_CLASSIC  = iota // legacy mode: coarse clock, interval timer live
	ARCH_EXTENDED        // modern mode: full-resolution clock, no interval timer
)

// The wake mask is a single 64-bit word, one bit per CPU.
const MAX_CPUS = 64

// Interval timer: a 32-bit word in low storage that decrements 0x100 every
// 1/300 second while the CPU runs in classic mode.
const (
	ITIMER_LOCATION       = 0x50
	ITIMER_UNITS_PER_TICK = 0x100
	ITIMER_TICKS_PER_SEC  = 300
	ITIMER_UNITS_PER_SEC  = ITIMER_UNITS_PER_TICK * ITIMER_TICKS_PER_SEC
)

// Main storage layout
const (
	PSA_SIZE         = 0x1000    // each CPU's prefix area is one page
	DEF_STORAGE_SIZE = 1 << 20   // 1 MiB default
	MAX_STORAGE_SIZE = 1 << 31   // sanity cap for configuration
)

// Transactional facility: a CPU asking for assistance this many times in a
// measurement period raises the relief signal, switching the timer thread
// onto the modulated interval.
const TXF_ASSIST_THRESHOLD = 4

// Operator panel backends
const (
	PANEL_BACKEND_NONE = iota
	PANEL_BACKEND_TERM
	PANEL_BACKEND_GUI
)

// Console alarm tone
const (
	ALARM_SAMPLE_RATE = 44100
	ALARM_FREQ_HZ     = 880
	ALARM_BURST_MS    = 350
)
