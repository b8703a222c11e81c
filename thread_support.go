// thread_support.go - Long-running loop lifecycle helpers for IronEngine

package main

import (
	"fmt"
	"time"
)

// Niceness requests for the machine's long-running loops. The timer thread
// is the heartbeat; everything else yields to it.
const (
	TIMER_THREAD_NICE = -20
	CPU_THREAD_NICE   = 0
)

// logThreadBegin and logThreadEnd bracket every long-running loop so the
// console shows which loops are alive.
func logThreadBegin(name string) {
	fmt.Printf("%s thread started\n", name)
}

func logThreadEnd(name string) {
	fmt.Printf("%s thread ended\n", name)
}

// usleep suspends the calling goroutine for the given number of
// microseconds. The sleep is not interruptible; loops observe shutdown at
// their next iteration boundary.
func usleep(usecs int64) {
	time.Sleep(time.Duration(usecs) * time.Microsecond)
}
