package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// reportSnapshot builds a synthetic two-CPU snapshot i seconds past
// 01:00:00 on the machine epoch day.
func reportSnapshot(i int) RateSnapshot {
	tod := uint64(3600+i) * TOD_SEC
	return RateSnapshot{
		TOD:       tod,
		SampledAt: tod,
		Interval:  50,
		Modulated: int64(50 + i),
		Rubato:    true,
		CPUs: []CPURates{
			{CPU: 0, Online: true, State: CPUSTATE_RUNNING, MIPS: uint64(1000000 * (i + 1)), SIOs: uint64(10 * i), BusyPct: uint32(30 + i)},
			{CPU: 1, Online: true, State: CPUSTATE_WAITING, MIPS: uint64(500000 * (i + 1)), SIOs: uint64(5 * i), BusyPct: uint32(10 + i)},
		},
		TotalMIPS: uint64(1500000 * (i + 1)),
		TotalSIOs: uint64(15 * i),
		PeakMIPS:  6000000,
		PeakSIOs:  45,
	}
}

func TestTODTimeLabel(t *testing.T) {
	cases := []struct {
		tod  uint64
		want string
	}{
		{3661 * TOD_SEC, "01:01:01"},
		{hostTOD(time.Date(2026, 1, 1, 12, 34, 56, 0, time.UTC)), "12:34:56"},
	}
	for _, tc := range cases {
		if got := todTimeLabel(tc.tod); got != tc.want {
			t.Errorf("todTimeLabel(%#x) = %q, want %q", tc.tod, got, tc.want)
		}
	}
}

func TestRateRecorderCap(t *testing.T) {
	rec := NewRateRecorder()
	for i := 0; i < RATE_RECORD_LIMIT+5; i++ {
		rec.Record(RateSnapshot{})
	}
	if got := rec.Count(); got != RATE_RECORD_LIMIT {
		t.Fatalf("Count() = %d after overrecording, want %d", got, RATE_RECORD_LIMIT)
	}
}

func TestWriteHTMLTooFewSnapshots(t *testing.T) {
	rec := NewRateRecorder()

	var buf bytes.Buffer
	err := rec.WriteHTML(&buf)
	if err == nil || !strings.Contains(err.Error(), "needs at least 2 snapshots, have 0") {
		t.Fatalf("empty recorder error = %v", err)
	}

	rec.Record(reportSnapshot(0))
	err = rec.WriteHTML(&buf)
	if err == nil || !strings.Contains(err.Error(), "have 1") {
		t.Fatalf("single snapshot error = %v", err)
	}
}

func TestWriteHTML(t *testing.T) {
	rec := NewRateRecorder()
	for i := 0; i < 3; i++ {
		rec.Record(reportSnapshot(i))
	}

	var buf bytes.Buffer
	if err := rec.WriteHTML(&buf); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"Instruction rate",
		"I/O rate",
		"CPU busy",
		"Interrupt interval",
		"CP00",
		"CP01",
		rec.Session().String(),
		"01:00:02",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteHTMLFile(t *testing.T) {
	rec := NewRateRecorder()
	for i := 0; i < 3; i++ {
		rec.Record(reportSnapshot(i))
	}

	path := filepath.Join(t.TempDir(), "rates.html")
	if err := rec.WriteHTMLFile(path); err != nil {
		t.Fatalf("WriteHTMLFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("report file is empty")
	}
	if !strings.Contains(string(data), "Instruction rate") {
		t.Fatalf("report file missing chart title")
	}
}

func TestRunRecorderShutdown(t *testing.T) {
	rig := newTimerTestRig(t, defaultTestConfig())
	rec := NewRateRecorder()

	done := make(chan struct{})
	go func() {
		rec.RunRecorder(rig.sys, 1000)
		close(done)
	}()

	waitFor(t, 2*time.Second, "snapshots to accumulate", func() bool {
		return rec.Count() >= 2
	})

	rig.sys.RequestShutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("recorder did not exit after shutdown")
	}
}
