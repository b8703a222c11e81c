// interval_timer.go - Classic-mode interval timer for IronEngine

package main

import "fmt"

// The interval timer is a 32-bit word in each CPU's prefix area at offset
// ITIMER_LOCATION. In classic mode it decrements ITIMER_UNITS_PER_TICK
// every 1/300 second of machine time (76,800 units per second); crossing
// from non-negative to negative raises an external interrupt. The word is
// brought up to date lazily, whenever the evaluator looks at it.
//
// Tick accounting works on absolute unit counts derived from machine time
// with exact integer arithmetic, so no fraction of a tick is ever lost
// between checks no matter how often the evaluator runs.

// totalItimerUnits converts machine time to an absolute interval-timer unit
// count.
func totalItimerUnits(tod uint64) int64 {
	return int64(tod/TOD_SEC*ITIMER_UNITS_PER_SEC + tod%TOD_SEC*ITIMER_UNITS_PER_SEC/TOD_SEC)
}

// checkIntervalTimer brings a CPU's interval timer word up to date and
// reports whether its expiry should wake the CPU. The pending flag latches
// on the crossing only; an expired timer left unserviced does not re-raise.
// Caller holds the interrupt lock.
func (sys *System) checkIntervalTimer(cpu *VCPU, now uint64) bool {
	nowUnits := totalItimerUnits(now)
	ticks := nowUnits - cpu.itimerUnits
	if ticks <= 0 {
		return false
	}
	cpu.itimerUnits = nowUnits

	addr := cpu.prefix + ITIMER_LOCATION
	word, ok := sys.storage.Read32WithFault(addr)
	if !ok {
		return false
	}
	old := int32(word)
	updated := int32(int64(old) - ticks)
	sys.storage.Write32WithFault(addr, uint32(updated))

	if old >= 0 && updated < 0 {
		cpu.itimerPending = true
		return true
	}
	return false
}

// checkGuestIntervalTimer is the nested-guest version. The guest timer is a
// register copy rather than a storage word; otherwise the rules match the
// host side. Caller holds the interrupt lock.
func checkGuestIntervalTimer(g *GuestCPU, now uint64) bool {
	nowUnits := totalItimerUnits(now)
	ticks := nowUnits - g.itimerUnits
	if ticks <= 0 {
		return false
	}
	g.itimerUnits = nowUnits

	old := g.itimer
	updated := int32(int64(old) - ticks)
	g.itimer = updated

	if old >= 0 && updated < 0 {
		g.itimerPending = true
		return true
	}
	return false
}

// SetIntervalTimer loads a CPU's interval timer word and restarts its tick
// accounting from now.
func (sys *System) SetIntervalTimer(cpu int, value int32) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	now := sys.clock.Current()
	sys.intlock.Lock()
	c.itimerUnits = totalItimerUnits(now)
	sys.intlock.Unlock()
	if !sys.storage.Write32WithFault(c.prefix+ITIMER_LOCATION, uint32(value)) {
		return fmt.Errorf("CPU %d interval timer storage fault at %#x", cpu, c.prefix+ITIMER_LOCATION)
	}
	return nil
}

// IntervalTimer reads a CPU's interval timer word as last materialized.
func (sys *System) IntervalTimer(cpu int) (int32, error) {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return 0, err
	}
	word, ok := sys.storage.Read32WithFault(c.prefix + ITIMER_LOCATION)
	if !ok {
		return 0, fmt.Errorf("CPU %d interval timer storage fault at %#x", cpu, c.prefix+ITIMER_LOCATION)
	}
	return int32(word), nil
}

// SetIntervalTimerEnabled turns the classic-mode interval timer on or off
// for one CPU. Enabling re-anchors the tick accounting so the disabled span
// is not charged retroactively.
func (sys *System) SetIntervalTimerEnabled(cpu int, enabled bool) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	now := sys.clock.Current()
	sys.intlock.Lock()
	if enabled && !c.itimerEnabled {
		c.itimerUnits = totalItimerUnits(now)
	}
	c.itimerEnabled = enabled
	sys.intlock.Unlock()
	return nil
}

// SetGuestIntervalTimer loads the nested guest's interval timer register.
func (sys *System) SetGuestIntervalTimer(cpu int, value int32) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	now := sys.clock.Current()
	sys.intlock.Lock()
	defer sys.intlock.Unlock()
	g := c.guest.Load()
	if g == nil {
		return fmt.Errorf("CPU %d has no active guest", cpu)
	}
	g.itimer = value
	g.itimerUnits = totalItimerUnits(now)
	return nil
}
