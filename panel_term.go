// panel_term.go - ANSI terminal panel backend for IronEngine

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
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/term"
)

const busyBarWidth = 20

// TermPanel redraws the machine's rates in place on an ANSI terminal.
// Stdin goes raw so single keys work; 'q' or Ctrl-C fires the quit
// handler. The key reader parks on stdin, so after Stop it lingers until
// one more byte arrives or the process exits.
type TermPanel struct {
	mutex       sync.RWMutex
	out         *os.File
	oldState    *term.State
	running     bool
	stopped     atomic.Bool
	updateCount atomic.Uint64
	quitHandler func()
}

func NewTermPanel() (PanelOutput, error) {
	return &TermPanel{out: os.Stdout}, nil
}

func (p *TermPanel) Start() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.running {
		return nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return &PanelError{Operation: "start", Details: "stdin is not a terminal"}
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return &PanelError{Operation: "start", Details: "raw mode", Err: err}
	}
	p.oldState = oldState
	p.running = true
	p.stopped.Store(false)
	fmt.Fprint(p.out, "\x1b[?25l\x1b[2J")

	go p.readKeys()
	return nil
}

func (p *TermPanel) readKeys() {
	var buf [1]byte
	for !p.stopped.Load() {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case 'q', 'Q', 0x03:
			p.mutex.RLock()
			handler := p.quitHandler
			p.mutex.RUnlock()
			if handler != nil {
				handler()
			}
			return
		}
	}
}

func (p *TermPanel) Stop() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.running {
		return nil
	}
	p.stopped.Store(true)
	fmt.Fprint(p.out, "\x1b[?25h\x1b[2J\x1b[H")
	if p.oldState != nil {
		if err := term.Restore(int(os.Stdin.Fd()), p.oldState); err != nil {
			return &PanelError{Operation: "stop", Details: "terminal restore", Err: err}
		}
		p.oldState = nil
	}
	p.running = false
	return nil
}

func (p *TermPanel) Close() error {
	return p.Stop()
}

func (p *TermPanel) IsStarted() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.running
}

func (p *TermPanel) GetUpdateCount() uint64 {
	return p.updateCount.Load()
}

func (p *TermPanel) SetQuitHandler(fn func()) {
	p.mutex.Lock()
	p.quitHandler = fn
	p.mutex.Unlock()
}

func (p *TermPanel) UpdateSnapshot(snap RateSnapshot) error {
	p.mutex.RLock()
	running := p.running
	p.mutex.RUnlock()
	if !running {
		return &PanelError{Operation: "update", Details: "panel not started"}
	}

	// Raw mode: every line needs an explicit carriage return.
	lines := formatRateSnapshot(snap)
	fmt.Fprint(p.out, "\x1b[H\x1b[2J"+strings.Join(lines, "\r\n")+"\r\n")
	p.updateCount.Add(1)
	return nil
}

// formatRateSnapshot renders a snapshot as display lines, one per row.
// Shared by the terminal redraw and the GUI panel's clipboard copy.
func formatRateSnapshot(snap RateSnapshot) []string {
	lines := []string{
		"IronEngine operator panel",
		formatTODLine(snap),
		formatIntervalLine(snap),
		"",
	}
	for _, r := range snap.CPUs {
		lines = append(lines, formatCPULine(r))
	}
	lines = append(lines, "", formatTotalsLine(snap), formatPeaksLine(snap),
		"", "q quit")
	return lines
}

func formatTODLine(snap RateSnapshot) string {
	return fmt.Sprintf("TOD %s", FormatTOD(snap.TOD))
}

func formatIntervalLine(snap RateSnapshot) string {
	line := fmt.Sprintf("interval %dus", snap.Interval)
	if snap.Rubato {
		line += fmt.Sprintf("  modulated %dus", snap.Modulated)
	}
	return line
}

func formatCPULine(r CPURates) string {
	if !r.Online {
		return fmt.Sprintf("CP%02d offline", r.CPU)
	}
	return fmt.Sprintf("CP%02d %-8s %8.2f MIPS %6d SIO/s %3d%% |%s|",
		r.CPU, cpuStateName(r.State), float64(r.MIPS)/1e6, r.SIOs,
		r.BusyPct, busyBar(r.BusyPct, busyBarWidth))
}

func formatTotalsLine(snap RateSnapshot) string {
	return fmt.Sprintf("total %10.2f MIPS %8d SIO/s", float64(snap.TotalMIPS)/1e6, snap.TotalSIOs)
}

func formatPeaksLine(snap RateSnapshot) string {
	return fmt.Sprintf("peak  %10.2f MIPS %8d SIO/s", float64(snap.PeakMIPS)/1e6, snap.PeakSIOs)
}

// busyBar draws a proportional gauge. 100% fills the full width.
func busyBar(pct uint32, width int) string {
	if pct > 100 {
		pct = 100
	}
	filled := int(pct) * width / 100
	return strings.Repeat("*", filled) + strings.Repeat(".", width-filled)
}
