package main

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// countingPanel is a PanelOutput that only counts redraw requests.
type countingPanel struct {
	updates atomic.Uint64
	fail    bool
}

func (p *countingPanel) Start() error    { return nil }
func (p *countingPanel) Stop() error     { return nil }
func (p *countingPanel) Close() error    { return nil }
func (p *countingPanel) IsStarted() bool { return true }

func (p *countingPanel) UpdateSnapshot(snap RateSnapshot) error {
	if p.fail {
		return &PanelError{Operation: "update", Details: "injected failure"}
	}
	p.updates.Add(1)
	return nil
}

func (p *countingPanel) GetUpdateCount() uint64 { return p.updates.Load() }
func (p *countingPanel) SetQuitHandler(func()) {}

func TestPanelErrorFormat(t *testing.T) {
	cases := []struct {
		err  *PanelError
		want string
	}{
		{
			&PanelError{Operation: "start", Details: "raw mode", Err: errors.New("boom")},
			"panel start failed: raw mode: boom",
		},
		{
			&PanelError{Operation: "update", Details: "panel not started"},
			"panel update failed: panel not started",
		},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("Error() = %q, want %q", got, tc.want)
		}
	}
}

func TestCPUStateNames(t *testing.T) {
	cases := []struct {
		state int32
		want  string
	}{
		{CPUSTATE_STOPPED, "STOPPED"},
		{CPUSTATE_STOPPING, "STOPPING"},
		{CPUSTATE_RUNNING, "RUNNING"},
		{CPUSTATE_WAITING, "WAITING"},
		{9, "STATE9"},
	}
	for _, tc := range cases {
		if got := cpuStateName(tc.state); got != tc.want {
			t.Errorf("cpuStateName(%d) = %q, want %q", tc.state, got, tc.want)
		}
	}
}

func TestNewPanelOutputTerm(t *testing.T) {
	panel, err := NewPanelOutput(PANEL_BACKEND_TERM)
	if err != nil {
		t.Fatalf("NewPanelOutput(TERM): %v", err)
	}
	if panel == nil {
		t.Fatalf("NewPanelOutput(TERM) returned no panel")
	}
	if panel.IsStarted() {
		t.Fatalf("fresh panel reports started")
	}
}

func TestNewPanelOutputUnknown(t *testing.T) {
	panel, err := NewPanelOutput(99)
	if panel != nil || err == nil {
		t.Fatalf("NewPanelOutput(99) = %v, %v", panel, err)
	}
	var perr *PanelError
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T", err)
	}
	if want := "panel backend creation failed: unknown backend type: 99"; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestSnapshotReflectsMachineState(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	sys := rig.sys

	if err := sys.SetTimerInterval(200); err != nil {
		t.Fatalf("SetTimerInterval: %v", err)
	}
	if err := sys.SetCPUState(0, CPUSTATE_RUNNING); err != nil {
		t.Fatalf("SetCPUState: %v", err)
	}
	if err := sys.SetOnline(1, false); err != nil {
		t.Fatalf("SetOnline: %v", err)
	}
	rig.advance(time.Second)
	now, err := sys.Clock().Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	snap := sys.Snapshot()
	if snap.TOD != now {
		t.Errorf("TOD = %#x, want %#x", snap.TOD, now)
	}
	if snap.Interval != 200 || snap.Modulated != 200 {
		t.Errorf("intervals = %d/%d, want 200/200", snap.Interval, snap.Modulated)
	}
	if snap.Rubato {
		t.Errorf("Rubato true with no modulator running")
	}
	if len(snap.CPUs) != 2 {
		t.Fatalf("CPUs = %d rows, want 2", len(snap.CPUs))
	}
	if snap.CPUs[0].CPU != 0 || snap.CPUs[1].CPU != 1 {
		t.Errorf("CPU numbers = %d/%d", snap.CPUs[0].CPU, snap.CPUs[1].CPU)
	}
	if snap.CPUs[0].State != CPUSTATE_RUNNING {
		t.Errorf("CP00 state = %d, want RUNNING", snap.CPUs[0].State)
	}
	if !snap.CPUs[0].Online || snap.CPUs[1].Online {
		t.Errorf("online = %v/%v, want true/false", snap.CPUs[0].Online, snap.CPUs[1].Online)
	}
	if snap.TotalMIPS != 0 || snap.TotalSIOs != 0 || snap.SampledAt != 0 {
		t.Errorf("idle machine has nonzero totals: %d/%d at %#x",
			snap.TotalMIPS, snap.TotalSIOs, snap.SampledAt)
	}
}

func TestRunPanelLoopShutdown(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	panel := &countingPanel{}

	done := make(chan struct{})
	go func() {
		RunPanelLoop(rig.sys, panel, 1000)
		close(done)
	}()

	waitFor(t, 2*time.Second, "panel redraws", func() bool {
		return panel.GetUpdateCount() >= 2
	})

	rig.sys.RequestShutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("panel loop did not exit after shutdown")
	}
}

func TestRunPanelLoopStopsOnError(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	panel := &countingPanel{fail: true}

	done := make(chan struct{})
	go func() {
		RunPanelLoop(rig.sys, panel, 1000)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("panel loop did not exit on update failure")
	}
	if panel.GetUpdateCount() != 0 {
		t.Fatalf("failing panel still counted %d updates", panel.GetUpdateCount())
	}
}
