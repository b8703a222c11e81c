//go:build headless

package main

import "sync/atomic"

func init() {
	compiledFeatures = append(compiledFeatures, "panel:headless")
}

type HeadlessPanelOutput struct {
	started     bool
	updateCount uint64
	quitHandler func()
}

func NewGUIPanel() (PanelOutput, error) {
	return &HeadlessPanelOutput{}, nil
}

func (h *HeadlessPanelOutput) Start() error {
	h.started = true
	return nil
}

func (h *HeadlessPanelOutput) Stop() error {
	h.started = false
	return nil
}

func (h *HeadlessPanelOutput) Close() error {
	h.started = false
	return nil
}

func (h *HeadlessPanelOutput) IsStarted() bool {
	return h.started
}

func (h *HeadlessPanelOutput) UpdateSnapshot(snap RateSnapshot) error {
	atomic.AddUint64(&h.updateCount, 1)
	return nil
}

func (h *HeadlessPanelOutput) GetUpdateCount() uint64 {
	return atomic.LoadUint64(&h.updateCount)
}

func (h *HeadlessPanelOutput) SetQuitHandler(fn func()) {
	h.quitHandler = fn
}
