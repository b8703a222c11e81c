// tod_clock.go - Machine time-of-day clock for IronEngine

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
	"fmt"
	"sync"
	"time"
)

// TODClock supplies the machine's time-of-day value: a 64-bit fixed-point
// count since 1900-01-01 UTC, bit 4 = one microsecond (low 4 bits
// fractional). The value is anchored to the host monotonic clock at
// creation, so stepping the host wall clock cannot drag machine time
// backwards.
type TODClock struct {
	mutex   sync.Mutex
	base    uint64    // machine time at the anchor instant
	anchor  time.Time // host instant the clock was anchored at
	last    uint64    // most recent value handed out by Advance
	hostNow func() time.Time
}

func NewTODClock() *TODClock {
	return newTODClockWithSource(time.Now)
}

func newTODClockWithSource(hostNow func() time.Time) *TODClock {
	c := &TODClock{hostNow: hostNow}
	c.anchor = c.hostNow()
	c.base = hostTOD(c.anchor)
	c.last = c.base
	return c
}

// hostTOD converts a host wall-clock instant to machine time.
func hostTOD(t time.Time) uint64 {
	secs := uint64(t.Unix()) + TOD_EPOCH_SECS
	return secs*TOD_SEC + uint64(t.Nanosecond())*TOD_USEC/1000
}

// Current returns machine time now. Repeated calls never go backwards as
// long as the host source honors its monotonic contract.
func (c *TODClock) Current() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.currentLocked()
}

func (c *TODClock) currentLocked() uint64 {
	elapsed := c.hostNow().Sub(c.anchor)
	return uint64(int64(c.base) + elapsed.Nanoseconds()*TOD_USEC/1000)
}

// Advance publishes a fresh clock value. A value below the previous one
// means the host time source is broken; the caller treats that as fatal, so
// it is reported rather than clamped.
func (c *TODClock) Advance() (uint64, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.currentLocked()
	if now < c.last {
		return c.last, fmt.Errorf("TOD clock regression: %#016x after %#016x", now, c.last)
	}
	c.last = now
	return now, nil
}

// Last returns the most recently published value without advancing.
func (c *TODClock) Last() uint64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.last
}

// FormatTOD renders a machine time value as a human-readable UTC timestamp.
func FormatTOD(tod uint64) string {
	usecs := tod / TOD_USEC
	secs := int64(usecs/1000000) - TOD_EPOCH_SECS
	t := time.Unix(secs, int64(usecs%1000000)*1000).UTC()
	return t.Format("2006-01-02 15:04:05.000000 UTC")
}
