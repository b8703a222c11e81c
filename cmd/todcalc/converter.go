package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TOD clock geometry. The clock counts in units of 1/16 microsecond from
// an epoch of 1900-01-01 00:00:00 UTC.
const (
	TOD_USEC       = 16
	TOD_SEC        = 1000000 * TOD_USEC
	TOD_EPOCH_SECS = ((70 * 365) + 17) * 86400
)

// Interval timer geometry: the timer word decrements 0x100 units every
// 1/300 second, giving 76,800 units per second.
const (
	ITIMER_UNITS_PER_TICK = 0x100
	ITIMER_TICKS_PER_SEC  = 300
	ITIMER_UNITS_PER_SEC  = ITIMER_UNITS_PER_TICK * ITIMER_TICKS_PER_SEC
)

// Accepted -from formats for date input.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInput converts an input value in the named format to a TOD word.
func ParseInput(value, from string) (uint64, error) {
	switch from {
	case "tod":
		tod, err := strconv.ParseUint(value, 0, 64)
		if err != nil {
			return 0, fmt.Errorf("bad TOD word %q: %v", value, err)
		}
		return tod, nil
	case "unix":
		secs, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("bad unix time %q: %v", value, err)
		}
		if secs < -TOD_EPOCH_SECS {
			return 0, fmt.Errorf("unix time %q is before the 1900 epoch", value)
		}
		return uint64((secs + TOD_EPOCH_SECS) * TOD_SEC), nil
	case "date":
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return TimeToTOD(t)
			}
		}
		return 0, fmt.Errorf("bad date %q: want RFC3339 or 2006-01-02[ 15:04:05]", value)
	}
	return 0, fmt.Errorf("unknown input format %q: want tod, unix or date", from)
}

// TimeToTOD converts a wall-clock time to a TOD word.
func TimeToTOD(t time.Time) (uint64, error) {
	secs := t.Unix()
	if secs < -TOD_EPOCH_SECS {
		return 0, fmt.Errorf("time %s is before the 1900 epoch", t)
	}
	return uint64(secs+TOD_EPOCH_SECS)*TOD_SEC +
		uint64(t.Nanosecond())*TOD_USEC/1000, nil
}

// TODToTime converts a TOD word back to wall-clock time.
func TODToTime(tod uint64) time.Time {
	secs := int64(tod/TOD_SEC) - TOD_EPOCH_SECS
	frac := tod % TOD_SEC
	nsecs := int64(frac) * 1000 / TOD_USEC
	return time.Unix(secs, nsecs).UTC()
}

// ItimerUnits converts a TOD word to total elapsed interval timer units
// since the epoch. Split into whole seconds plus remainder so the
// sub-second part cannot overflow.
func ItimerUnits(tod uint64) int64 {
	return int64(tod/TOD_SEC)*ITIMER_UNITS_PER_SEC +
		int64(tod%TOD_SEC)*ITIMER_UNITS_PER_SEC/TOD_SEC
}

// FormatConversion renders every view of one TOD word, one line each.
func FormatConversion(tod uint64) []string {
	t := TODToTime(tod)
	units := ItimerUnits(tod)
	return []string{
		fmt.Sprintf("TOD word:     %#016x", tod),
		fmt.Sprintf("Timestamp:    %s", t.Format("2006-01-02 15:04:05.000000 UTC")),
		fmt.Sprintf("Unix seconds: %d.%06d", t.Unix(), t.Nanosecond()/1000),
		fmt.Sprintf("iTimer units: %d (ticks %d)", units, units/ITIMER_UNITS_PER_TICK),
	}
}

// FormatDelta renders the distance between two TOD words.
func FormatDelta(a, b uint64) []string {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	diff := hi - lo
	units := ItimerUnits(hi) - ItimerUnits(lo)
	return []string{
		fmt.Sprintf("Delta:        %#016x", diff),
		fmt.Sprintf("Microseconds: %d.%04d", diff/TOD_USEC, (diff%TOD_USEC)*10000/TOD_USEC),
		fmt.Sprintf("Seconds:      %s", formatSeconds(diff)),
		fmt.Sprintf("iTimer units: %d (ticks %d)", units, units/ITIMER_UNITS_PER_TICK),
	}
}

func formatSeconds(diff uint64) string {
	secs := diff / TOD_SEC
	frac := diff % TOD_SEC
	usecs := frac / TOD_USEC
	return strings.TrimRight(strings.TrimRight(
		fmt.Sprintf("%d.%06d", secs, usecs), "0"), ".")
}
