//go:build !headless

// alarm_backend_oto.go - OTO v3 console alarm output

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
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/ebitengine/oto/v3"
)

func init() {
	compiledFeatures = append(compiledFeatures, "alarm:oto")
}

// OtoAlarm keeps a silent player open and injects a square-wave burst
// whenever Ring is called. The stream never closes between rings, so a
// ring costs no device setup.
type OtoAlarm struct {
	ctx     *oto.Context
	player  *oto.Player
	pending atomic.Int64 // burst samples still to emit
	phase   int          // square-wave position, touched only by Read
	buf     []float32
	started bool
	mutex   sync.Mutex
}

func NewAlarmOutput() (AlarmOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   ALARM_SAMPLE_RATE,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	a := &OtoAlarm{
		ctx: ctx,
		buf: make([]float32, 4096),
	}
	a.player = ctx.NewPlayer(a)
	a.player.Play()
	a.started = true
	return a, nil
}

func (a *OtoAlarm) Read(p []byte) (n int, err error) {
	numSamples := len(p) / 4
	if len(a.buf) < numSamples {
		a.buf = make([]float32, numSamples)
	}
	samples := a.buf[:numSamples]

	halfPeriod := ALARM_SAMPLE_RATE / ALARM_FREQ_HZ / 2
	for i := 0; i < numSamples; i++ {
		if a.pending.Load() <= 0 {
			samples[i] = 0
			continue
		}
		a.pending.Add(-1)
		if (a.phase/halfPeriod)%2 == 0 {
			samples[i] = 0.25
		} else {
			samples[i] = -0.25
		}
		a.phase++
	}

	copy(p, (*[1 << 30]byte)(unsafe.Pointer(&samples[0]))[:len(p)])
	return len(p), nil
}

func (a *OtoAlarm) Ring() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if !a.started || a.player == nil {
		return &PanelError{Operation: "alarm", Details: "alarm output closed"}
	}
	a.pending.Store(ALARM_SAMPLE_RATE * ALARM_BURST_MS / 1000)
	return nil
}

func (a *OtoAlarm) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.player != nil {
		a.player.Close()
		a.player = nil
	}
	a.started = false
	return nil
}

func (a *OtoAlarm) IsStarted() bool {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.started
}
