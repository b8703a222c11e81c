// rate_report.go - HTML rate report for IronEngine

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
	"io"
	"os"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/google/uuid"
)

// Cap sized for a day-long run on the one-second panel cadence.
const RATE_RECORD_LIMIT = 100000

// RateRecorder collects rate snapshots over a run and renders them as an
// HTML page of charts, one line per CPU plus the machine totals.
type RateRecorder struct {
	mutex     sync.Mutex
	session   uuid.UUID
	snapshots []RateSnapshot
}

func NewRateRecorder() *RateRecorder {
	return &RateRecorder{session: uuid.New()}
}

func (r *RateRecorder) Session() uuid.UUID {
	return r.session
}

// Record appends one snapshot. Recording stops silently at the cap.
func (r *RateRecorder) Record(snap RateSnapshot) {
	r.mutex.Lock()
	if len(r.snapshots) < RATE_RECORD_LIMIT {
		r.snapshots = append(r.snapshots, snap)
	}
	r.mutex.Unlock()
}

func (r *RateRecorder) Count() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.snapshots)
}

// RunRecorder collects snapshots on its own cadence until shutdown.
func (r *RateRecorder) RunRecorder(sys *System, periodUsecs int64) {
	logThreadBegin("recorder")
	defer logThreadEnd("recorder")

	for !sys.shutdown.Load() {
		r.Record(sys.Snapshot())
		usleep(periodUsecs)
	}
}

func todTimeLabel(tod uint64) string {
	secs := int64(tod/TOD_SEC) - TOD_EPOCH_SECS
	return time.Unix(secs, 0).UTC().Format("15:04:05")
}

func (r *RateRecorder) lineChart(title string, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", AxisLabel: &opts.AxisLabel{Rotate: 45}}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: yName}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)
	return line
}

func timeLabels(snaps []RateSnapshot) []string {
	labels := make([]string, len(snaps))
	for i, s := range snaps {
		labels[i] = todTimeLabel(s.TOD)
	}
	return labels
}

func addCPUSeries(line *charts.Line, snaps []RateSnapshot, value func(CPURates) float64) {
	if len(snaps) == 0 {
		return
	}
	for cpu := range snaps[0].CPUs {
		data := make([]opts.LineData, len(snaps))
		for i, s := range snaps {
			data[i] = opts.LineData{Value: value(s.CPUs[cpu])}
		}
		line.AddSeries(fmt.Sprintf("CP%02d", cpu), data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
		)
	}
}

func (r *RateRecorder) mipsChart(snaps []RateSnapshot) *charts.Line {
	line := r.lineChart("Instruction rate", "MIPS")

	total := make([]opts.LineData, len(snaps))
	for i, s := range snaps {
		total[i] = opts.LineData{Value: float64(s.TotalMIPS) / 1e6}
	}
	line.SetXAxis(timeLabels(snaps)).AddSeries("total", total,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
	)
	addCPUSeries(line, snaps, func(c CPURates) float64 { return float64(c.MIPS) / 1e6 })
	return line
}

func (r *RateRecorder) sioChart(snaps []RateSnapshot) *charts.Line {
	line := r.lineChart("I/O rate", "SIO/s")

	total := make([]opts.LineData, len(snaps))
	for i, s := range snaps {
		total[i] = opts.LineData{Value: s.TotalSIOs}
	}
	line.SetXAxis(timeLabels(snaps)).AddSeries("total", total,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
	)
	addCPUSeries(line, snaps, func(c CPURates) float64 { return float64(c.SIOs) })
	return line
}

func (r *RateRecorder) busyChart(snaps []RateSnapshot) *charts.Line {
	line := r.lineChart("CPU busy", "%")
	line.SetXAxis(timeLabels(snaps))
	addCPUSeries(line, snaps, func(c CPURates) float64 { return float64(c.BusyPct) })
	return line
}

func (r *RateRecorder) intervalChart(snaps []RateSnapshot) *charts.Line {
	line := r.lineChart("Interrupt interval", "us")

	configured := make([]opts.LineData, len(snaps))
	modulated := make([]opts.LineData, len(snaps))
	for i, s := range snaps {
		configured[i] = opts.LineData{Value: s.Interval}
		modulated[i] = opts.LineData{Value: s.Modulated}
	}
	line.SetXAxis(timeLabels(snaps)).
		AddSeries("configured", configured,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)})).
		AddSeries("modulated", modulated,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(false)}))
	return line
}

// WriteHTML renders every chart onto one page.
func (r *RateRecorder) WriteHTML(w io.Writer) error {
	r.mutex.Lock()
	snaps := make([]RateSnapshot, len(r.snapshots))
	copy(snaps, r.snapshots)
	r.mutex.Unlock()

	if len(snaps) < 2 {
		return fmt.Errorf("rate report needs at least 2 snapshots, have %d", len(snaps))
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("IronEngine rates - %s", r.session)
	page.AddCharts(
		r.mipsChart(snaps),
		r.sioChart(snaps),
		r.busyChart(snaps),
		r.intervalChart(snaps),
	)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("rendering rate report: %w", err)
	}
	return nil
}

// WriteHTMLFile writes the report to the named file.
func (r *RateRecorder) WriteHTMLFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating rate report: %w", err)
	}
	defer f.Close()
	return r.WriteHTML(f)
}
