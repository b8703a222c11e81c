// thread_priority_linux.go - OS thread priority adjustment, Linux

//go:build linux

package main

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

func init() {
	compiledFeatures = append(compiledFeatures, "priority:native")
}

// applyThreadPriority pins the calling goroutine to its OS thread and
// adjusts that thread's niceness. Lowering niceness below zero needs
// privileges; a refusal is logged and ignored.
func applyThreadPriority(nice int) {
	runtime.LockOSThread()
	if err := unix.Setpriority(unix.PRIO_PROCESS, unix.Gettid(), nice); err != nil {
		fmt.Printf("thread priority %d not applied: %v\n", nice, err)
	}
}
