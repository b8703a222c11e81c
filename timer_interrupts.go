// timer_interrupts.go - Timer interrupt evaluator for IronEngine

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
timer_interrupts.go - Timer Interrupt Evaluator for IronEngine

This module decides, for every virtual CPU in one atomic pass, whether the
three hardware timer conditions are pending: clock comparator (the machine
clock has passed a per-CPU register value), CPU timer (a per-CPU countdown
has gone negative) and, in classic mode, the interval timer in low storage.
A CPU interpreting a nested guest carries a shadow copy of each condition,
evaluated in the same pass against the guest's own registers and time view.

The pass holds the system interrupt lock throughout, so execution threads
always observe a whole-machine-consistent flag set: either all of a pass's
updates or none of them. Wake-up signalling is done strictly after the lock
is released.
*/

package main

// UpdateTimerInterrupts scans every online, non-stopped CPU, raising or
// clearing each timer interrupt condition for the CPU and for its nested
// guest if one is active. It returns the wake mask: the CPUs whose pending
// state newly became true this pass. Execution threads parked on those CPUs
// are signalled before returning, after the interrupt lock is dropped.
//
// Offline and STOPPED CPUs are skipped entirely; their flags keep whatever
// state they had.
func (sys *System) UpdateTimerInterrupts() CPUMask {
	var intmask CPUMask
	if sys.hicpu == 0 {
		return intmask
	}

	// One clock reading per pass; every CPU's and guest's view derives
	// from the same instant.
	now := sys.clock.Current()

	sys.intlock.Lock()
	for i := 0; i < sys.hicpu; i++ {
		cpu := sys.cpus[i]
		if !cpu.online.Load() || cpu.state.Load() == CPUSTATE_STOPPED {
			continue
		}
		guest := cpu.guest.Load()

		// Clock comparator: edge-detected set, unconditional clear.
		if cpu.timeView(now) > cpu.clockComparator {
			if !cpu.clkcPending {
				cpu.clkcPending = true
				intmask |= cpu.cpuBit
			}
		} else if cpu.clkcPending {
			cpu.clkcPending = false
		}

		// Guest clock comparator: same rule against the guest's own
		// comparator and time view, feeding the host CPU's wake bit.
		if g := guest; g != nil {
			if g.timeView(now) > g.clockComparator {
				if !g.clkcPending {
					g.clkcPending = true
					intmask |= cpu.cpuBit
				}
			} else if g.clkcPending {
				g.clkcPending = false
			}
		}

		// CPU timer: pending while negative, edge-detected.
		if cpu.cpuTimer(now) < 0 {
			if !cpu.ptimerPending {
				cpu.ptimerPending = true
				intmask |= cpu.cpuBit
			}
		} else if cpu.ptimerPending {
			cpu.ptimerPending = false
		}

		// Guest CPU timer. The guest side is eager: while the timer is
		// negative the flag is set and the bit contributed on EVERY pass,
		// with no edge detection. Keep it that way.
		if g := guest; g != nil {
			if g.cpuTimer(now) < 0 {
				g.ptimerPending = true
				intmask |= cpu.cpuBit
			} else if g.ptimerPending {
				g.ptimerPending = false
			}
		}

		// Interval timer, classic mode only. The checker owns the expiry
		// rules and says whether to contribute the wake bit.
		if cpu.archMode == ARCH_CLASSIC && cpu.itimerEnabled {
			if sys.checkIntervalTimer(cpu, now) {
				intmask |= cpu.cpuBit
			}
		}
		if g := guest; g != nil && g.archMode == ARCH_CLASSIC && !g.itimerSuppressed {
			if checkGuestIntervalTimer(g, now) {
				intmask |= cpu.cpuBit
			}
		}
	}
	sys.intlock.Unlock()

	// Wake after release so no thread resumes straight into the lock.
	sys.WakeCPUs(intmask)
	return intmask
}

// PendingFlags returns one CPU's host-side pending flags under the
// interrupt lock, in clkc, ptimer, itimer order.
func (sys *System) PendingFlags(cpu int) (bool, bool, bool, error) {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return false, false, false, err
	}
	sys.intlock.Lock()
	clkc, ptimer, itimer := c.clkcPending, c.ptimerPending, c.itimerPending
	sys.intlock.Unlock()
	return clkc, ptimer, itimer, nil
}

// GuestPendingFlags is PendingFlags for the nested-guest shadow.
func (sys *System) GuestPendingFlags(cpu int) (bool, bool, bool, error) {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return false, false, false, err
	}
	sys.intlock.Lock()
	defer sys.intlock.Unlock()
	g := c.guest.Load()
	if g == nil {
		return false, false, false, nil
	}
	return g.clkcPending, g.ptimerPending, g.itimerPending, nil
}
