// cpu_thread.go - Virtual CPU execution threads for IronEngine

package main

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// A CPU with nothing armed parks with its comparator at the far end of
// time.
const clkcDisarmed = ^uint64(0)

// CPUThread drives one virtual CPU with a synthetic workload: bursts of
// counted instructions, occasional start-I/Os, transactional sections, and
// wait-state idling armed by a clock-comparator wakeup. It exists to give
// the timer subsystem a realistic concurrent load; it decodes nothing.
type CPUThread struct {
	sys  *System
	cpu  int
	rng  *rand.Rand
	stop atomic.Bool
	done chan struct{}
}

// CPUThreadManager owns the execution threads, one per started CPU.
type CPUThreadManager struct {
	mutex   sync.Mutex
	sys     *System
	threads map[int]*CPUThread
}

func NewCPUThreadManager(sys *System) *CPUThreadManager {
	return &CPUThreadManager{
		sys:     sys,
		threads: make(map[int]*CPUThread),
	}
}

// StartCPU brings a CPU online in RUNNING state and spawns its execution
// thread. The seed makes a run's workload reproducible.
func (m *CPUThreadManager) StartCPU(cpu int, seed int64) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.threads[cpu]; exists {
		return fmt.Errorf("CPU %d already has an execution thread", cpu)
	}
	if err := m.sys.SetCPUState(cpu, CPUSTATE_RUNNING); err != nil {
		return err
	}

	t := &CPUThread{
		sys:  m.sys,
		cpu:  cpu,
		rng:  rand.New(rand.NewSource(seed)),
		done: make(chan struct{}),
	}
	m.threads[cpu] = t
	go t.run()
	return nil
}

// StartAll starts every configured CPU, with per-CPU seeds derived from the
// base seed.
func (m *CPUThreadManager) StartAll(seed int64) error {
	for cpu := 0; cpu < m.sys.NumCPUs(); cpu++ {
		if err := m.StartCPU(cpu, seed+int64(cpu)); err != nil {
			return err
		}
	}
	return nil
}

// StopCPU asks a CPU's execution thread to exit and waits for it, bounded
// by a two second timeout. The CPU ends in STOPPED state.
func (m *CPUThreadManager) StopCPU(cpu int) error {
	m.mutex.Lock()
	t, exists := m.threads[cpu]
	if exists {
		delete(m.threads, cpu)
	}
	m.mutex.Unlock()

	if !exists {
		return fmt.Errorf("CPU %d has no execution thread", cpu)
	}

	m.sys.intlock.Lock()
	t.stop.Store(true)
	m.sys.intlock.Unlock()
	m.sys.cpus[cpu].intcond.Broadcast()

	select {
	case <-t.done:
	case <-time.After(2 * time.Second):
		fmt.Printf("CPU %02d execution thread did not stop in time\n", cpu)
	}
	return m.sys.SetCPUState(cpu, CPUSTATE_STOPPED)
}

// StopAll stops every execution thread.
func (m *CPUThreadManager) StopAll() {
	m.mutex.Lock()
	cpus := make([]int, 0, len(m.threads))
	for cpu := range m.threads {
		cpus = append(cpus, cpu)
	}
	m.mutex.Unlock()

	for _, cpu := range cpus {
		if err := m.StopCPU(cpu); err != nil {
			fmt.Printf("stopping CPU %02d: %v\n", cpu, err)
		}
	}
}

func (t *CPUThread) run() {
	defer close(t.done)
	name := fmt.Sprintf("cpu%02d", t.cpu)
	logThreadBegin(name)
	defer logThreadEnd(name)
	applyThreadPriority(CPU_THREAD_NICE)

	sys := t.sys
	cpu := sys.cpus[t.cpu]

	for !t.stop.Load() && !sys.shutdown.Load() {
		if cpu.state.Load() == CPUSTATE_STOPPED {
			t.idleWhileStopped()
			continue
		}

		// A burst of work, charged in one batch.
		insts := uint64(20000 + t.rng.Intn(80000))
		var sios uint64
		if t.rng.Intn(4) == 0 {
			sios = uint64(1 + t.rng.Intn(3))
		}
		sys.chargeWork(t.cpu, insts, sios)

		// Transactional phase: count the start machine-wide, and lean on
		// the assist pressure when the synthetic transaction conflicts.
		if sys.config.TxFacility && t.rng.Intn(8) == 0 {
			sys.CountTransaction()
			if t.rng.Intn(4) == 0 {
				sys.chargeTxAssist(t.cpu, 1)
			} else {
				sys.chargeTxAssist(t.cpu, -1)
			}
		}

		// Consume anything that became pending while executing.
		sys.intlock.Lock()
		if cpu.anyPending() {
			cpu.takePending()
			cpu.clockComparator = clkcDisarmed
		}
		sys.intlock.Unlock()

		if t.rng.Intn(3) == 0 {
			t.waitForInterrupt()
		} else {
			usleep(int64(200 + t.rng.Intn(800)))
		}
	}
}

// idleWhileStopped parks a stopped CPU's thread until the operator starts
// it again or the machine goes down. No wait-time accounting: a stopped
// CPU is not waiting, it is off the books.
func (t *CPUThread) idleWhileStopped() {
	sys := t.sys
	cpu := sys.cpus[t.cpu]

	sys.intlock.Lock()
	for cpu.state.Load() == CPUSTATE_STOPPED && !t.stop.Load() && !sys.shutdown.Load() {
		cpu.intcond.Wait()
	}
	sys.intlock.Unlock()
}

// waitForInterrupt models the wait state: arm a clock-comparator wakeup a
// few milliseconds out, account the idle time, park on the interrupt
// condition, and consume whatever became pending.
func (t *CPUThread) waitForInterrupt() {
	sys := t.sys
	cpu := sys.cpus[t.cpu]

	wake := sys.clock.Current() + uint64(1+t.rng.Intn(20))*(TOD_SEC/1000)

	sys.waitStart(t.cpu)

	sys.intlock.Lock()
	cpu.clockComparator = wake
	if cpu.state.Load() == CPUSTATE_RUNNING {
		cpu.state.Store(CPUSTATE_WAITING)
	}
	for !cpu.anyPending() && !t.stop.Load() && !sys.shutdown.Load() &&
		cpu.state.Load() == CPUSTATE_WAITING {
		cpu.intcond.Wait()
	}
	cpu.takePending()
	cpu.clockComparator = clkcDisarmed
	if cpu.state.Load() == CPUSTATE_WAITING {
		cpu.state.Store(CPUSTATE_RUNNING)
	}
	sys.intlock.Unlock()

	sys.waitEnd(t.cpu)
}
