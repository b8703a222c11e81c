// timer_sampler.go - Clock and rate sampling loop for IronEngine

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
timer_sampler.go - Clock and Rate Sampling Loop for IronEngine

The timer thread is the machine's heartbeat. Every interval it advances the
TOD clock and runs one interrupt-evaluation pass; once per second of machine
time it recomputes each CPU's instruction rate, I/O rate and busy
percentage, publishes machine-wide totals and raises the high-water marks.

Rates are computed with round-half-up division against the actual period
length, so low counts are not systematically under-reported by truncation.
A CPU that is mid-wait at the period boundary has its wait topped up to the
boundary and the wait anchor moved, charging each period only its own share.

The sleep interval is the configured baseline unless the period scan found
transactional-assist pressure, in which case the next sleep uses the rubato
loop's modulated interval.
*/

package main

import "fmt"

// RunTimerThread drives the machine clock and the rate statistics until
// shutdown is requested. It returns nil on an orderly exit; a TOD clock
// regression is returned as an error, since a machine whose time source
// runs backwards cannot be trusted to keep running.
func (sys *System) RunTimerThread() error {
	logThreadBegin("timer")
	defer logThreadEnd("timer")
	applyThreadPriority(TIMER_THREAD_NICE)

	periodStart := sys.clock.Current()

	for !sys.shutdown.Load() {
		relief := false

		now, err := sys.clock.Advance()
		if err != nil {
			return fmt.Errorf("timer thread: %w", err)
		}

		sys.UpdateTimerInterrupts()

		if diff := now - periodStart; diff >= MEASUREMENT_PERIOD {
			periodStart = now
			relief = sys.sampleRates(now, diff)
		}

		if relief {
			usleep(sys.txfTimerint.Load())
		} else {
			usleep(sys.timerint.Load())
		}
	}
	return nil
}

// sampleRates closes one measurement period of length diff ending at now:
// per-CPU rates are recomputed under each CPU's lock, counters roll into
// their running totals, and the machine-wide figures are published. The
// return value reports whether any CPU's transactional-assist pressure
// calls for relief.
func (sys *System) sampleRates(now, diff uint64) bool {
	// Round-half-up rate against the measurement period.
	half := diff / 2
	diffrate := func(x, y uint64) uint64 {
		return (x*y + half) / diff
	}

	relief := false
	var totalMIPS, totalSIOs uint64

	for i := 0; i < sys.hicpu; i++ {
		cpu := sys.cpus[i]
		sys.cpulock[i].Lock()

		if !cpu.online.Load() {
			sys.cpulock[i].Unlock()
			continue
		}
		if cpu.state.Load() == CPUSTATE_STOPPED {
			// A stopped CPU reports dead zero no matter what it
			// accumulated before stopping. Its lock is still taken and
			// released like everyone else's.
			cpu.mipsRate = 0
			cpu.sioRate = 0
			cpu.busyPct = 0
			sys.cpulock[i].Unlock()
			continue
		}

		cpu.mipsRate = diffrate(cpu.instCount, MEASUREMENT_PERIOD)
		cpu.prevInstTotal += cpu.instCount
		cpu.instCount = 0

		cpu.sioRate = diffrate(cpu.sioCount, MEASUREMENT_PERIOD)
		cpu.sioTotal += cpu.sioCount
		cpu.sioCount = 0

		// Mid-wait at the boundary: bank the wait up to now and move the
		// anchor so the next period only sees its own share.
		if cpu.waitStartedTOD != 0 && now > cpu.waitStartedTOD {
			cpu.waitTime += now - cpu.waitStartedTOD
			cpu.waitStartedTOD = now
		}
		wait := cpu.waitTime
		cpu.waitTimeAccum += wait
		cpu.waitTime = 0

		var busy uint64
		if diff > wait {
			busy = diffrate(diff-wait, 100)
		}
		if busy > 100 {
			busy = 100
		}
		cpu.busyPct = uint32(busy)

		totalMIPS += cpu.mipsRate
		totalSIOs += cpu.sioRate

		if cpu.txAssist >= sys.config.TxAssistThreshold {
			relief = true
		}
		if g := cpu.guest.Load(); g != nil && g.txAssist >= sys.config.TxAssistThreshold {
			relief = true
		}

		sys.cpulock[i].Unlock()
	}

	sys.rates.mu.Lock()
	sys.rates.totalMIPS = totalMIPS
	sys.rates.totalSIOs = totalSIOs
	if totalMIPS > sys.rates.hwmMIPS {
		sys.rates.hwmMIPS = totalMIPS
	}
	if totalSIOs > sys.rates.hwmSIOs {
		sys.rates.hwmSIOs = totalSIOs
	}
	sys.rates.sampledAt = now
	sys.rates.mu.Unlock()

	return relief
}
