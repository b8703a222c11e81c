// vcpu.go - Virtual CPU state for IronEngine

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

import (
	"sync"
	"sync/atomic"
)

// CPUMask is the wake mask: one bit per virtual CPU.
type CPUMask uint64

func (m CPUMask) Has(cpu int) bool {
	return m&(CPUMask(1)<<cpu) != 0
}

func (m *CPUMask) Set(cpu int) {
	*m |= CPUMask(1) << cpu
}

// GuestCPU is the nested-virtualization shadow attached to a VCPU while it
// interprets a second level of virtualization. It carries its own timer
// registers, pending flags and time view, evaluated alongside the host's
// against the same machine clock. Fields live in the interrupt-lock domain
// like the host flags they shadow, except txAssist, which belongs to the
// owning CPU's rate lock (the sampler reads it during the rate scan).
type GuestCPU struct {
	clockComparator uint64
	cpuTimerSet     int64  // value the guest CPU timer was last set to
	cpuTimerAnchor  uint64 // machine time at that set

	clkcPending   bool
	ptimerPending bool
	itimerPending bool

	todEpoch         int64 // guest time view offset from machine time
	archMode         int
	itimerSuppressed bool  // guest control state turns the interval timer off
	itimer           int32 // guest interval timer register copy
	itimerUnits      int64 // absolute tick-unit count at the last update

	txAssist uint32 // guest-side transactional assist pressure
}

// timeView is the guest's current clock value, scaled for its mode.
func (g *GuestCPU) timeView(now uint64) uint64 {
	v := uint64(int64(now) + g.todEpoch)
	if g.archMode == ARCH_CLASSIC {
		v &^= TOD_FRAC
	}
	return v
}

// cpuTimer returns the guest timer's remaining count; negative means expired.
func (g *GuestCPU) cpuTimer(now uint64) int64 {
	return g.cpuTimerSet - int64(now-g.cpuTimerAnchor)
}

// VCPU is one emulated processor. Locking is split by field group:
//
//   - interrupt fields (registers, pending flags, guest-shadow contents)
//     are guarded by the system interrupt lock, which the evaluator holds
//     across its whole scan;
//   - rate-counter fields and the published rates are guarded by this CPU's
//     own lock in System.cpulock;
//   - online, state and the guest pointer are atomics: transitions happen
//     under the interrupt lock so the evaluator sees them in pass order,
//     but the sampler may read them under the CPU lock without crossing
//     into the interrupt domain.
//
// Nothing here takes a lock itself; methods document which lock the caller
// must hold. The two locks are never held together.
type VCPU struct {
	cpu    int     // processor number
	cpuBit CPUMask // this CPU's bit in the wake mask
	prefix uint32  // PSA base address in main storage

	online atomic.Bool
	state  atomic.Int32
	guest  atomic.Pointer[GuestCPU]

	// Interrupt-lock domain
	clockComparator uint64
	cpuTimerSet     int64
	cpuTimerAnchor  uint64
	clkcPending     bool
	ptimerPending   bool
	itimerPending   bool
	itimerEnabled   bool
	itimerUnits     int64 // absolute tick-unit count at the last update
	archMode        int
	todEpoch        int64
	intcond         *sync.Cond // execution thread parks here; Cond.L is the interrupt lock

	// CPU-lock domain
	instCount      uint64 // instructions this measurement period
	prevInstTotal  uint64 // instructions in all completed periods
	sioCount       uint64 // start-I/O operations this period
	sioTotal       uint64
	waitTime       uint64 // machine time spent waiting this period
	waitTimeAccum  uint64
	waitStartedTOD uint64 // non-zero while the CPU is in wait state
	txAssist       uint32 // host-side transactional assist pressure

	// Published each period by the sampler, read by panels and reports.
	// CPU-lock domain as well.
	mipsRate uint64 // instructions per second
	sioRate  uint64 // start-I/Os per second
	busyPct  uint32 // 0..100
}

// timeView is this CPU's current clock value: machine time plus the CPU's
// epoch offset, with the fractional bits masked in classic mode.
// Caller holds the interrupt lock.
func (cpu *VCPU) timeView(now uint64) uint64 {
	v := uint64(int64(now) + cpu.todEpoch)
	if cpu.archMode == ARCH_CLASSIC {
		v &^= TOD_FRAC
	}
	return v
}

// cpuTimer returns the CPU timer's remaining count at the given machine
// time; negative means expired. The countdown is independent of the epoch
// offset. Caller holds the interrupt lock.
func (cpu *VCPU) cpuTimer(now uint64) int64 {
	return cpu.cpuTimerSet - int64(now-cpu.cpuTimerAnchor)
}

// setCPUTimer arms the countdown from the given instant.
// Caller holds the interrupt lock.
func (cpu *VCPU) setCPUTimer(value int64, now uint64) {
	cpu.cpuTimerSet = value
	cpu.cpuTimerAnchor = now
}

// anyPending reports whether any timer interrupt condition is pending for
// this CPU, host or guest side. Caller holds the interrupt lock.
func (cpu *VCPU) anyPending() bool {
	if cpu.clkcPending || cpu.ptimerPending || cpu.itimerPending {
		return true
	}
	if g := cpu.guest.Load(); g != nil {
		return g.clkcPending || g.ptimerPending || g.itimerPending
	}
	return false
}

// takePending clears and returns the pending flags of both sides, modelling
// an execution thread consuming its timer interrupts. Caller holds the
// interrupt lock.
func (cpu *VCPU) takePending() (clkc, ptimer, itimer bool) {
	clkc, ptimer, itimer = cpu.clkcPending, cpu.ptimerPending, cpu.itimerPending
	cpu.clkcPending, cpu.ptimerPending, cpu.itimerPending = false, false, false
	if g := cpu.guest.Load(); g != nil {
		clkc = clkc || g.clkcPending
		ptimer = ptimer || g.ptimerPending
		itimer = itimer || g.itimerPending
		g.clkcPending, g.ptimerPending, g.itimerPending = false, false, false
	}
	return clkc, ptimer, itimer
}
