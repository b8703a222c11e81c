// panel_interface.go - Operator panel interface for IronEngine

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

package main

import "fmt"

// PanelError provides detailed error context for panel operations
type PanelError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *PanelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("panel %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("panel %s failed: %s", e.Operation, e.Details)
}

// CPURates is one CPU's row in a rate snapshot.
type CPURates struct {
	CPU     int
	Online  bool
	State   int32
	MIPS    uint64 // instructions per second over the last period
	SIOs    uint64 // start-I/Os per second over the last period
	BusyPct uint32
}

// RateSnapshot is a consistent view of the machine's activity, taken for
// display. CPU rows are read per-CPU, so rows from different CPUs may
// straddle a sampling pass; each row is internally consistent.
type RateSnapshot struct {
	TOD       uint64 // last value the timer thread pushed to the TOD clock
	SampledAt uint64 // TOD of the last completed measurement period
	Interval  int64  // configured interrupt interval in microseconds
	Modulated int64  // interval currently in force when assists run hot
	Rubato    bool   // whether the modulator thread is live
	CPUs      []CPURates
	TotalMIPS uint64
	TotalSIOs uint64
	PeakMIPS  uint64
	PeakSIOs  uint64
}

// PanelOutput defines the minimal interface that panel backends must
// implement
type PanelOutput interface {
	// Lifecycle management
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	// Display operations
	UpdateSnapshot(snap RateSnapshot) error
	GetUpdateCount() uint64

	// The quit handler runs when the operator closes the panel
	SetQuitHandler(fn func())
}

// NewPanelOutput creates a new panel output instance using the specified
// backend
func NewPanelOutput(backend int) (PanelOutput, error) {
	switch backend {
	case PANEL_BACKEND_TERM:
		return NewTermPanel()
	case PANEL_BACKEND_GUI:
		return NewGUIPanel()
	}
	return nil, &PanelError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}

func cpuStateName(state int32) string {
	switch state {
	case CPUSTATE_STOPPED:
		return "STOPPED"
	case CPUSTATE_STOPPING:
		return "STOPPING"
	case CPUSTATE_RUNNING:
		return "RUNNING"
	case CPUSTATE_WAITING:
		return "WAITING"
	}
	return fmt.Sprintf("STATE%d", state)
}

// Snapshot collects the machine's current rates for display.
func (sys *System) Snapshot() RateSnapshot {
	snap := RateSnapshot{
		TOD:       sys.clock.Last(),
		Interval:  sys.TimerInterval(),
		Modulated: sys.ModulatedInterval(),
		Rubato:    sys.rubatoActive.Load(),
		CPUs:      make([]CPURates, len(sys.cpus)),
	}

	for i, cpu := range sys.cpus {
		sys.cpulock[i].Lock()
		snap.CPUs[i] = CPURates{
			CPU:     i,
			Online:  cpu.online.Load(),
			State:   cpu.state.Load(),
			MIPS:    cpu.mipsRate,
			SIOs:    cpu.sioRate,
			BusyPct: cpu.busyPct,
		}
		sys.cpulock[i].Unlock()
	}

	sys.rates.mu.RLock()
	snap.TotalMIPS = sys.rates.totalMIPS
	snap.TotalSIOs = sys.rates.totalSIOs
	snap.PeakMIPS = sys.rates.hwmMIPS
	snap.PeakSIOs = sys.rates.hwmSIOs
	snap.SampledAt = sys.rates.sampledAt
	sys.rates.mu.RUnlock()

	return snap
}

// RunPanelLoop pushes snapshots to a panel until shutdown. refreshUsecs
// is the redraw period.
func RunPanelLoop(sys *System, out PanelOutput, refreshUsecs int64) {
	logThreadBegin("panel")
	defer logThreadEnd("panel")

	for !sys.shutdown.Load() {
		if err := out.UpdateSnapshot(sys.Snapshot()); err != nil {
			fmt.Printf("panel update: %v\n", err)
			return
		}
		usleep(refreshUsecs)
	}
}
