package main

import (
	"math"
	"sync"
	"testing"
	"time"
)

// timerTestRig builds a System whose TOD clock runs off a hand-cranked host
// time source, so machine time moves exactly when a test says so. One
// microsecond of advance is exactly TOD_USEC machine units.
type timerTestRig struct {
	sys  *System
	mu   sync.Mutex
	host time.Time
}

func defaultTestConfig() MachineConfig {
	return MachineConfig{
		NumCPUs:  2,
		ArchMode: ARCH_CLASSIC,
	}
}

func newTimerTestRig(t *testing.T, cfg MachineConfig) *timerTestRig {
	t.Helper()
	sys, err := NewSystem(cfg)
	if err != nil {
		t.Fatalf("NewSystem: %v", err)
	}
	rig := &timerTestRig{
		sys: sys,
		// An exact second boundary, so interval-timer tick arithmetic
		// starts from a zero remainder.
		host: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	sys.clock = newTODClockWithSource(rig.hostNow)
	return rig
}

func (r *timerTestRig) hostNow() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

// advance cranks the host clock; machine time follows exactly.
func (r *timerTestRig) advance(d time.Duration) {
	r.mu.Lock()
	r.host = r.host.Add(d)
	r.mu.Unlock()
}

// startCPU moves a CPU to RUNNING without spawning an execution thread.
func (r *timerTestRig) startCPU(t *testing.T, cpu int) {
	t.Helper()
	if err := r.sys.SetCPUState(cpu, CPUSTATE_RUNNING); err != nil {
		t.Fatalf("SetCPUState(%d, RUNNING): %v", cpu, err)
	}
}

// disarm moves a CPU's clock comparator and CPU timer out of the way, so a
// test sees only the conditions it arms itself. A fresh CPU has both
// registers at zero, which counts as long past.
func (r *timerTestRig) disarm(t *testing.T, cpu int) {
	t.Helper()
	if err := r.sys.SetClockComparator(cpu, clkcDisarmed); err != nil {
		t.Fatalf("SetClockComparator(%d): %v", cpu, err)
	}
	if err := r.sys.SetCPUTimer(cpu, math.MaxInt64); err != nil {
		t.Fatalf("SetCPUTimer(%d): %v", cpu, err)
	}
}

// disarmGuest is disarm for the nested-guest shadow, which starts with the
// same instantly-pending zero registers.
func (r *timerTestRig) disarmGuest(t *testing.T, cpu int) {
	t.Helper()
	if err := r.sys.SetGuestClockComparator(cpu, clkcDisarmed); err != nil {
		t.Fatalf("SetGuestClockComparator(%d): %v", cpu, err)
	}
	if err := r.sys.SetGuestCPUTimer(cpu, math.MaxInt64); err != nil {
		t.Fatalf("SetGuestCPUTimer(%d): %v", cpu, err)
	}
}

func requireFlags(t *testing.T, sys *System, cpu int, clkc, ptimer, itimer bool) {
	t.Helper()
	gotClkc, gotPtimer, gotItimer, err := sys.PendingFlags(cpu)
	if err != nil {
		t.Fatalf("PendingFlags(%d): %v", cpu, err)
	}
	if gotClkc != clkc || gotPtimer != ptimer || gotItimer != itimer {
		t.Fatalf("CP%02d flags = clkc=%v ptimer=%v itimer=%v, want clkc=%v ptimer=%v itimer=%v",
			cpu, gotClkc, gotPtimer, gotItimer, clkc, ptimer, itimer)
	}
}

func requireGuestFlags(t *testing.T, sys *System, cpu int, clkc, ptimer, itimer bool) {
	t.Helper()
	gotClkc, gotPtimer, gotItimer, err := sys.GuestPendingFlags(cpu)
	if err != nil {
		t.Fatalf("GuestPendingFlags(%d): %v", cpu, err)
	}
	if gotClkc != clkc || gotPtimer != ptimer || gotItimer != itimer {
		t.Fatalf("CP%02d guest flags = clkc=%v ptimer=%v itimer=%v, want clkc=%v ptimer=%v itimer=%v",
			cpu, gotClkc, gotPtimer, gotItimer, clkc, ptimer, itimer)
	}
}

func requireMask(t *testing.T, got, want CPUMask) {
	t.Helper()
	if got != want {
		t.Fatalf("wake mask = %#x, want %#x", got, want)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
