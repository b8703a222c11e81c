// machine_reset.go - Reset() methods for the machine and its CPUs (system reset support)

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

// reset restores one CPU's interrupt-domain state to constructor defaults.
// Caller holds intlock.
func (cpu *VCPU) reset(itimerEnabled bool) {
	cpu.state.Store(CPUSTATE_STOPPED)
	cpu.guest.Store(nil)
	cpu.clockComparator = 0
	cpu.cpuTimerSet = 0
	cpu.cpuTimerAnchor = 0
	cpu.clkcPending = false
	cpu.ptimerPending = false
	cpu.itimerPending = false
	cpu.itimerEnabled = itimerEnabled
	cpu.itimerUnits = 0
	cpu.todEpoch = 0
}

// resetCounters zeroes one CPU's accounting state. Caller holds the CPU's
// cpulock.
func (cpu *VCPU) resetCounters() {
	cpu.instCount = 0
	cpu.prevInstTotal = 0
	cpu.sioCount = 0
	cpu.sioTotal = 0
	cpu.waitTime = 0
	cpu.waitTimeAccum = 0
	cpu.waitStartedTOD = 0
	cpu.txAssist = 0
	cpu.mipsRate = 0
	cpu.sioRate = 0
	cpu.busyPct = 0
}

// Reset performs a system reset: every CPU ends STOPPED with timers,
// pending interrupts, guests and accounting cleared, the interrupt
// interval returns to its configured value, and the rate store and
// transaction window are zeroed.
// Preserves: the TOD clock (it keeps running across a reset), main
// storage contents, configuration, and any execution threads, which
// park on their stopped CPUs.
func (sys *System) Reset() {
	itimerEnabled := sys.config.ArchMode == ARCH_CLASSIC

	sys.intlock.Lock()
	for _, cpu := range sys.cpus {
		cpu.reset(itimerEnabled)
	}
	sys.intlock.Unlock()
	for _, cpu := range sys.cpus {
		cpu.intcond.Broadcast()
	}

	for i, cpu := range sys.cpus {
		sys.cpulock[i].Lock()
		cpu.resetCounters()
		sys.cpulock[i].Unlock()
	}

	sys.rates.mu.Lock()
	sys.rates.totalMIPS = 0
	sys.rates.totalSIOs = 0
	sys.rates.hwmMIPS = 0
	sys.rates.hwmSIOs = 0
	sys.rates.sampledAt = 0
	sys.rates.mu.Unlock()

	sys.rublock.Lock()
	for i := range sys.txfWindow {
		sys.txfWindow[i] = 0
	}
	sys.rublock.Unlock()
	sys.txfCounter.Store(0)

	sys.timerint.Store(sys.config.TimerintUsecs)
	if !sys.rubatoActive.Load() {
		sys.txfTimerint.Store(sys.config.TimerintUsecs)
	}
}

// ResetClear performs a clearing reset: everything Reset does, plus main
// storage zeroed. Interval timer words at every prefix go with it.
func (sys *System) ResetClear() {
	sys.Reset()
	sys.storage.Reset()
}
