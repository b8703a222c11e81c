package main

import (
	"sync"
	"testing"
	"time"
)

// TestTimerSubsystemRace stresses every lock domain at once: the timer and
// rubato loops, execution-thread accounting, console register pokes, guest
// churn, snapshot readers and a concurrent period close.
// The test itself has no assertions - the race detector is the oracle.
// Run with: go test -race -run TestTimerSubsystemRace -count=1
func TestTimerSubsystemRace(t *testing.T) {
	rig := newTimerTestRig(t, MachineConfig{
		NumCPUs:    4,
		ArchMode:   ARCH_CLASSIC,
		TxFacility: true,
	})
	sys := rig.sys
	for i := 0; i < 4; i++ {
		rig.startCPU(t, i)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})

	// Goroutine 1: the timer thread itself - clock advance, interrupt
	// evaluation, period sampling.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = sys.RunTimerThread()
	}()

	// Goroutine 2: the rubato modulator.
	wg.Add(1)
	go func() {
		defer wg.Done()
		sys.RunRubatoThread()
	}()

	// Goroutine 3: machine time cranker - keeps periods closing inside the
	// timer thread while the test runs.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			rig.advance(5 * time.Millisecond)
			time.Sleep(100 * time.Microsecond)
		}
	}()

	// Goroutines 4-7: execution threads - work charging, assist pressure,
	// transactions, wait accounting and interrupt consumption.
	for i := 0; i < 4; i++ {
		cpu := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; ; n++ {
				select {
				case <-stop:
					return
				default:
				}
				sys.chargeWork(cpu, 1000, 3)
				sys.chargeTxAssist(cpu, 2)
				sys.chargeTxAssist(cpu, -1)
				sys.chargeGuestTxAssist(cpu, 1)
				sys.CountTransaction()
				if n%8 == 0 {
					sys.waitStart(cpu)
					sys.waitEnd(cpu)
				}
				sys.intlock.Lock()
				sys.cpus[cpu].takePending()
				sys.intlock.Unlock()
			}
		}()
	}

	// Goroutine 8: operator console - register pokes, guest churn, state
	// flips, interval changes and the odd full reset.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; ; n++ {
			select {
			case <-stop:
				return
			default:
			}
			cpu := n % 4
			_ = sys.SetClockComparator(cpu, uint64(n)*TOD_SEC)
			_ = sys.SetCPUTimer(cpu, int64(n%3-1)*16_000)
			_ = sys.SetIntervalTimer(cpu, int32(n))
			_ = sys.SetTimerInterval(int64(50 + n%500))
			switch n % 9 {
			case 0:
				_ = sys.StartGuest(cpu, 0, ARCH_CLASSIC, n%2 == 0)
				_ = sys.SetGuestClockComparator(cpu, uint64(n))
				_ = sys.SetGuestCPUTimer(cpu, 16_000)
				_ = sys.SetGuestIntervalTimer(cpu, int32(n))
			case 4:
				_ = sys.EndGuest(cpu)
			case 7:
				_ = sys.SetCPUState(cpu, CPUSTATE_WAITING)
				_ = sys.SetCPUState(cpu, CPUSTATE_RUNNING)
			}
			if n%50 == 25 {
				sys.Reset()
				for i := 0; i < 4; i++ {
					_ = sys.SetCPUState(i, CPUSTATE_RUNNING)
				}
			}
			time.Sleep(20 * time.Microsecond)
		}
	}()

	// Goroutine 9: panel-side readers race all of the writers.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = sys.Snapshot()
			_, _, _, _ = sys.Totals()
			for i := 0; i < 4; i++ {
				_, _, _, _ = sys.PendingFlags(i)
				_, _, _, _ = sys.GuestPendingFlags(i)
				_, _ = sys.IntervalTimer(i)
			}
			time.Sleep(30 * time.Microsecond)
		}
	}()

	// Goroutine 10: a second period close racing the timer thread's own.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			sys.sampleRates(sys.clock.Current(), MEASUREMENT_PERIOD)
			time.Sleep(200 * time.Microsecond)
		}
	}()

	time.Sleep(150 * time.Millisecond)
	close(stop)
	sys.RequestShutdown()
	// The join can lag: a rubato burst stretches its sleep up to a second.
	wg.Wait()
}
