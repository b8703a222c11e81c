//go:build !headless

// panel_backend_ebiten.go - Ebiten GUI panel backend for IronEngine

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
	"image/color"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"
)

const (
	panelWindowW = 640
	panelWindowH = 480
	panelRowH    = 14
	panelMaxRows = 24
	panelBarW    = 160
)

func init() {
	compiledFeatures = append(compiledFeatures, "panel:ebiten")
}

type GUIPanel struct {
	running     bool
	snap        RateSnapshot
	mutex       sync.RWMutex
	updateCount atomic.Uint64
	vsyncChan   chan struct{}
	done        chan struct{}
	quitHandler func()
	quitting    atomic.Bool

	clipboardOnce sync.Once
	clipboardOK   bool
}

func NewGUIPanel() (PanelOutput, error) {
	return &GUIPanel{
		vsyncChan: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

func (p *GUIPanel) Start() error {
	if p.running {
		return nil
	}
	p.mutex.Lock()
	p.done = make(chan struct{})
	p.mutex.Unlock()
	p.running = true
	ebiten.SetWindowSize(panelWindowW, panelWindowH)
	ebiten.SetWindowTitle("Iron Engine (c) 2025 - 2026 Zayn Otley")
	ebiten.SetWindowResizable(false)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)

	go func() {
		defer func() {
			p.running = false
			p.mutex.RLock()
			done := p.done
			p.mutex.RUnlock()
			select {
			case <-done:
			default:
				close(done)
			}
		}()
		if err := ebiten.RunGame(p); err != nil {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for first Draw call to ensure Ebiten is ready
	<-p.vsyncChan
	return nil
}

func (p *GUIPanel) Stop() error {
	p.running = false
	return nil
}

func (p *GUIPanel) Close() error {
	return p.Stop()
}

func (p *GUIPanel) Done() <-chan struct{} {
	p.mutex.RLock()
	done := p.done
	p.mutex.RUnlock()
	return done
}

func (p *GUIPanel) IsStarted() bool {
	return p.running
}

func (p *GUIPanel) GetUpdateCount() uint64 {
	return p.updateCount.Load()
}

func (p *GUIPanel) SetQuitHandler(fn func()) {
	p.mutex.Lock()
	p.quitHandler = fn
	p.mutex.Unlock()
}

func (p *GUIPanel) UpdateSnapshot(snap RateSnapshot) error {
	p.mutex.Lock()
	p.snap = snap
	p.mutex.Unlock()
	p.updateCount.Add(1)
	return nil
}

func (p *GUIPanel) fireQuit() {
	if !p.quitting.CompareAndSwap(false, true) {
		return
	}
	p.mutex.RLock()
	handler := p.quitHandler
	p.mutex.RUnlock()
	if handler != nil {
		go handler()
	}
}

func (p *GUIPanel) copySnapshot() {
	p.clipboardOnce.Do(func() {
		p.clipboardOK = clipboard.Init() == nil
	})
	if !p.clipboardOK {
		return
	}
	p.mutex.RLock()
	snap := p.snap
	p.mutex.RUnlock()
	clipboard.Write(clipboard.FmtText, []byte(strings.Join(formatRateSnapshot(snap), "\n")))
}

func (p *GUIPanel) Update() error {
	if ebiten.IsWindowBeingClosed() {
		p.fireQuit()
		return ebiten.Termination
	}
	if !p.running {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		p.fireQuit()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyC) {
		p.copySnapshot()
	}
	return nil
}

func stateLampColor(r CPURates) color.RGBA {
	if !r.Online {
		return color.RGBA{50, 50, 50, 255}
	}
	switch r.State {
	case CPUSTATE_RUNNING:
		return color.RGBA{0, 220, 90, 255}
	case CPUSTATE_WAITING:
		return color.RGBA{230, 180, 0, 255}
	case CPUSTATE_STOPPING:
		return color.RGBA{220, 60, 60, 255}
	}
	return color.RGBA{120, 120, 120, 255}
}

func (p *GUIPanel) Draw(screen *ebiten.Image) {
	face := basicfont.Face7x13
	headColor := color.RGBA{230, 230, 230, 255}
	labelColor := color.RGBA{190, 190, 190, 255}
	barBack := color.RGBA{40, 40, 56, 255}
	barFill := color.RGBA{0, 180, 220, 255}

	screen.Fill(color.RGBA{12, 12, 24, 255})

	p.mutex.RLock()
	snap := p.snap
	p.mutex.RUnlock()

	y := 24
	text.Draw(screen, "IronEngine operator panel", face, 16, y, headColor)
	y += 18
	text.Draw(screen, formatTODLine(snap), face, 16, y, labelColor)
	y += panelRowH
	text.Draw(screen, formatIntervalLine(snap), face, 16, y, labelColor)
	y += panelRowH + 8

	for i, r := range snap.CPUs {
		if i == panelMaxRows {
			text.Draw(screen, fmt.Sprintf("... %d more CPUs", len(snap.CPUs)-i),
				face, 32, y, labelColor)
			y += panelRowH
			break
		}
		ebitenutil.DrawRect(screen, 16, float64(y-9), 8, 8, stateLampColor(r))
		line := fmt.Sprintf("CP%02d offline", r.CPU)
		if r.Online {
			line = fmt.Sprintf("CP%02d %-8s %8.2f MIPS %6d SIO/s %3d%%",
				r.CPU, cpuStateName(r.State), float64(r.MIPS)/1e6, r.SIOs, r.BusyPct)
		}
		text.Draw(screen, line, face, 32, y, labelColor)
		if r.Online {
			busy := r.BusyPct
			if busy > 100 {
				busy = 100
			}
			ebitenutil.DrawRect(screen, 460, float64(y-9), panelBarW, 8, barBack)
			ebitenutil.DrawRect(screen, 460, float64(y-9),
				float64(busy)*panelBarW/100, 8, barFill)
		}
		y += panelRowH
	}

	y += 8
	text.Draw(screen, formatTotalsLine(snap), face, 16, y, headColor)
	y += panelRowH
	text.Draw(screen, formatPeaksLine(snap), face, 16, y, headColor)
	text.Draw(screen, "Q quit   C copy", face, 16, panelWindowH-12, labelColor)

	select {
	case p.vsyncChan <- struct{}{}:
	default:
	}
}

func (p *GUIPanel) Layout(_, _ int) (int, int) {
	return panelWindowW, panelWindowH
}
