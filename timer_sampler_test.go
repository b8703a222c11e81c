package main

import (
	"strings"
	"testing"
	"time"
)

func readCPURates(sys *System, cpu int) (mips, sios uint64, busy uint32) {
	sys.cpulock[cpu].Lock()
	defer sys.cpulock[cpu].Unlock()
	c := sys.cpus[cpu]
	return c.mipsRate, c.sioRate, c.busyPct
}

func TestSampleRatesIdentityPeriod(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	sys := rig.sys
	rig.startCPU(t, 0)
	rig.startCPU(t, 1)

	sys.chargeWork(0, 1_000_000, 500)
	sys.chargeWork(1, 42, 7)

	start := sys.clock.Current()
	rig.advance(time.Second)
	now := sys.clock.Current()

	// diff of exactly one measurement period: the rate IS the count.
	if relief := sys.sampleRates(now, now-start); relief {
		t.Fatalf("relief with no assist pressure")
	}

	mips, sios, busy := readCPURates(sys, 0)
	if mips != 1_000_000 || sios != 500 || busy != 100 {
		t.Fatalf("CP00 rates = %d MIPS %d SIO %d%%, want 1000000 500 100", mips, sios, busy)
	}
	mips, sios, busy = readCPURates(sys, 1)
	if mips != 42 || sios != 7 || busy != 100 {
		t.Fatalf("CP01 rates = %d MIPS %d SIO %d%%, want 42 7 100", mips, sios, busy)
	}

	totMIPS, totSIOs, hwmMIPS, hwmSIOs := sys.Totals()
	if totMIPS != 1_000_042 || totSIOs != 507 {
		t.Fatalf("totals = %d/%d, want 1000042/507", totMIPS, totSIOs)
	}
	if hwmMIPS != 1_000_042 || hwmSIOs != 507 {
		t.Fatalf("HWMs = %d/%d, want 1000042/507", hwmMIPS, hwmSIOs)
	}

	// Counters rolled into the running totals and reset.
	sys.cpulock[0].Lock()
	rolled, left := sys.cpus[0].prevInstTotal, sys.cpus[0].instCount
	sys.cpulock[0].Unlock()
	if rolled != 1_000_000 || left != 0 {
		t.Fatalf("rolled/left = %d/%d, want 1000000/0", rolled, left)
	}
}

func TestSampleRatesRoundHalfUp(t *testing.T) {
	rig := newTimerTestRig(t, MachineConfig{NumCPUs: 1, ArchMode: ARCH_CLASSIC})
	sys := rig.sys
	rig.startCPU(t, 0)
	now := sys.clock.Current()

	// Over a double-length period the per-second rate is count/2,
	// rounded half up.
	cases := []struct {
		count uint64
		want  uint64
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 2},
		{5, 3},
	}
	for _, tc := range cases {
		sys.chargeWork(0, tc.count, tc.count)
		sys.sampleRates(now, 2*MEASUREMENT_PERIOD)
		mips, sios, _ := readCPURates(sys, 0)
		if mips != tc.want || sios != tc.want {
			t.Errorf("count %d over 2 periods = %d MIPS %d SIO, want %d both",
				tc.count, mips, sios, tc.want)
		}
	}
}

func TestSampleRatesStoppedCPU(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	sys := rig.sys
	rig.startCPU(t, 0)
	rig.startCPU(t, 1)

	sys.chargeWork(0, 600, 6)
	sys.chargeWork(1, 400, 4)
	now := sys.clock.Current()
	sys.sampleRates(now, MEASUREMENT_PERIOD)

	if err := sys.SetCPUState(1, CPUSTATE_STOPPED); err != nil {
		t.Fatalf("SetCPUState: %v", err)
	}
	sys.chargeWork(0, 500, 5)
	sys.chargeWork(1, 999, 9)
	sys.sampleRates(now, MEASUREMENT_PERIOD)

	// Stopped reports dead zero, whatever it accumulated.
	mips, sios, busy := readCPURates(sys, 1)
	if mips != 0 || sios != 0 || busy != 0 {
		t.Fatalf("stopped CP01 rates = %d/%d/%d%%, want zeros", mips, sios, busy)
	}
	totMIPS, totSIOs, _, _ := sys.Totals()
	if totMIPS != 500 || totSIOs != 5 {
		t.Fatalf("totals = %d/%d, want 500/5", totMIPS, totSIOs)
	}

	// But the counters are preserved, not rolled: restarting surfaces them
	// in the next period.
	sys.cpulock[1].Lock()
	kept := sys.cpus[1].instCount
	sys.cpulock[1].Unlock()
	if kept != 999 {
		t.Fatalf("stopped CP01 kept instCount = %d, want 999", kept)
	}
	rig.startCPU(t, 1)
	sys.sampleRates(now, MEASUREMENT_PERIOD)
	mips, _, _ = readCPURates(sys, 1)
	if mips != 999 {
		t.Fatalf("restarted CP01 rate = %d, want 999", mips)
	}
}

func TestSampleRatesOfflineCPU(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	sys := rig.sys
	rig.startCPU(t, 0)
	rig.startCPU(t, 1)

	sys.chargeWork(0, 600, 6)
	sys.chargeWork(1, 400, 4)
	now := sys.clock.Current()
	sys.sampleRates(now, MEASUREMENT_PERIOD)

	if err := sys.SetOnline(1, false); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	sys.chargeWork(0, 200, 2)
	sys.chargeWork(1, 300, 3)
	sys.sampleRates(now, MEASUREMENT_PERIOD)

	// Skipped entirely: last published rates stand, counters untouched.
	mips, sios, _ := readCPURates(sys, 1)
	if mips != 400 || sios != 4 {
		t.Fatalf("offline CP01 rates = %d/%d, want stale 400/4", mips, sios)
	}
	sys.cpulock[1].Lock()
	kept := sys.cpus[1].instCount
	sys.cpulock[1].Unlock()
	if kept != 300 {
		t.Fatalf("offline CP01 instCount = %d, want 300", kept)
	}

	// And it contributes nothing to the machine totals.
	totMIPS, totSIOs, _, _ := sys.Totals()
	if totMIPS != 200 || totSIOs != 2 {
		t.Fatalf("totals = %d/%d, want 200/2", totMIPS, totSIOs)
	}
}

func TestSampleRatesBusyPct(t *testing.T) {
	rig := newTimerTestRig(t, MachineConfig{NumCPUs: 1, ArchMode: ARCH_CLASSIC})
	sys := rig.sys
	rig.startCPU(t, 0)

	// 400ms of wait inside a 1s period leaves 60% busy.
	sys.waitStart(0)
	rig.advance(400 * time.Millisecond)
	sys.waitEnd(0)
	rig.advance(600 * time.Millisecond)

	now := sys.clock.Current()
	sys.sampleRates(now, MEASUREMENT_PERIOD)
	_, _, busy := readCPURates(sys, 0)
	if busy != 60 {
		t.Fatalf("busy = %d%%, want 60%%", busy)
	}

	// A fully waiting period is 0% busy.
	sys.waitStart(0)
	rig.advance(time.Second)
	sys.waitEnd(0)
	now = sys.clock.Current()
	sys.sampleRates(now, MEASUREMENT_PERIOD)
	_, _, busy = readCPURates(sys, 0)
	if busy != 0 {
		t.Fatalf("all-wait busy = %d%%, want 0%%", busy)
	}
}

func TestSampleRatesMidWaitTopUp(t *testing.T) {
	rig := newTimerTestRig(t, MachineConfig{NumCPUs: 1, ArchMode: ARCH_CLASSIC})
	sys := rig.sys
	rig.startCPU(t, 0)

	// The CPU is still waiting when the period closes.
	sys.waitStart(0)
	rig.advance(300 * time.Millisecond)
	now := sys.clock.Current()
	sys.sampleRates(now, MEASUREMENT_PERIOD)

	_, _, busy := readCPURates(sys, 0)
	if busy != 70 {
		t.Fatalf("mid-wait busy = %d%%, want 70%%", busy)
	}
	sys.cpulock[0].Lock()
	anchor := sys.cpus[0].waitStartedTOD
	sys.cpulock[0].Unlock()
	if anchor != now {
		t.Fatalf("wait anchor = %#x, want moved to %#x", anchor, now)
	}

	// When the wait finally ends, only the remainder lands in the next
	// period: 200ms here, not the 500ms total.
	rig.advance(200 * time.Millisecond)
	sys.waitEnd(0)
	rig.advance(800 * time.Millisecond)
	now = sys.clock.Current()
	sys.sampleRates(now, MEASUREMENT_PERIOD)
	_, _, busy = readCPURates(sys, 0)
	if busy != 80 {
		t.Fatalf("post-wait busy = %d%%, want 80%%", busy)
	}
}

func TestSampleRatesRelief(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	sys := rig.sys
	rig.startCPU(t, 0)
	rig.startCPU(t, 1)
	now := sys.clock.Current()

	sys.chargeTxAssist(0, 3)
	if sys.sampleRates(now, MEASUREMENT_PERIOD) {
		t.Fatalf("relief below threshold")
	}

	sys.chargeTxAssist(0, 1)
	if !sys.sampleRates(now, MEASUREMENT_PERIOD) {
		t.Fatalf("no relief at threshold")
	}

	sys.chargeTxAssist(0, -4)
	if sys.sampleRates(now, MEASUREMENT_PERIOD) {
		t.Fatalf("relief after pressure decayed")
	}

	// Guest-side pressure counts too.
	if err := sys.StartGuest(1, 0, ARCH_CLASSIC, false); err != nil {
		t.Fatalf("StartGuest: %v", err)
	}
	sys.chargeGuestTxAssist(1, 5)
	if !sys.sampleRates(now, MEASUREMENT_PERIOD) {
		t.Fatalf("no relief from guest pressure")
	}
	if err := sys.EndGuest(1); err != nil {
		t.Fatalf("EndGuest: %v", err)
	}
	if sys.sampleRates(now, MEASUREMENT_PERIOD) {
		t.Fatalf("relief survived guest teardown")
	}
}

func TestSampleRatesHighWaterMarks(t *testing.T) {
	rig := newTimerTestRig(t, MachineConfig{NumCPUs: 1, ArchMode: ARCH_CLASSIC})
	sys := rig.sys
	rig.startCPU(t, 0)
	now := sys.clock.Current()

	steps := []struct {
		count   uint64
		wantTot uint64
		wantHWM uint64
	}{
		{100, 100, 100},
		{40, 40, 100},
		{200, 200, 200},
	}
	for _, s := range steps {
		sys.chargeWork(0, s.count, 0)
		sys.sampleRates(now, MEASUREMENT_PERIOD)
		tot, _, hwm, _ := sys.Totals()
		if tot != s.wantTot || hwm != s.wantHWM {
			t.Fatalf("after %d: totals/HWM = %d/%d, want %d/%d",
				s.count, tot, hwm, s.wantTot, s.wantHWM)
		}
	}

	sys.rates.mu.RLock()
	sampledAt := sys.rates.sampledAt
	sys.rates.mu.RUnlock()
	if sampledAt != now {
		t.Fatalf("sampledAt = %#x, want %#x", sampledAt, now)
	}
}

func TestRunTimerThreadShutdown(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	sys := rig.sys

	done := make(chan error, 1)
	go func() { done <- sys.RunTimerThread() }()

	time.Sleep(5 * time.Millisecond)
	sys.RequestShutdown()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunTimerThread = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer thread did not exit after shutdown")
	}
}

func TestRunTimerThreadRegression(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	sys := rig.sys

	// Drag the host source backwards: the first advance must refuse to
	// publish and the thread reports the broken clock.
	rig.advance(-time.Hour)
	err := sys.RunTimerThread()
	if err == nil {
		t.Fatalf("RunTimerThread ran on a regressing clock")
	}
	if !strings.Contains(err.Error(), "regression") {
		t.Fatalf("RunTimerThread error = %q, want clock regression", err)
	}
}
