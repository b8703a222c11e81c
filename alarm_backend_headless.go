//go:build headless

package main

import (
	"fmt"
	"sync/atomic"
)

func init() {
	compiledFeatures = append(compiledFeatures, "alarm:headless")
}

type HeadlessAlarm struct {
	started   bool
	ringCount uint64
}

func NewAlarmOutput() (AlarmOutput, error) {
	return &HeadlessAlarm{started: true}, nil
}

// Ring falls back to the terminal bell.
func (h *HeadlessAlarm) Ring() error {
	atomic.AddUint64(&h.ringCount, 1)
	fmt.Print("\a")
	return nil
}

func (h *HeadlessAlarm) Close() error {
	h.started = false
	return nil
}

func (h *HeadlessAlarm) IsStarted() bool {
	return h.started
}

func (h *HeadlessAlarm) GetRingCount() uint64 {
	return atomic.LoadUint64(&h.ringCount)
}
