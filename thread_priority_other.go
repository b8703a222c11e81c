// thread_priority_other.go - OS thread priority adjustment, non-Linux stub

//go:build !linux

package main

import "runtime"

func init() {
	compiledFeatures = append(compiledFeatures, "priority:none")
}

// applyThreadPriority pins the calling goroutine to its OS thread. Niceness
// is not adjusted on this platform.
func applyThreadPriority(int) {
	runtime.LockOSThread()
}
