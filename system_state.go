// system_state.go - Machine-wide state for IronEngine

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

/*
system_state.go - Machine State for IronEngine

One System value owns everything the timer subsystem touches: the virtual
CPU table, the TOD clock, main storage, the interrupt lock, the per-CPU rate
locks and the rubato state. Every loop receives the System handle explicitly
at start; there is no package-level machine state.

Lock order (deadlock freedom is an invariant, not a convention):

    The three lock scopes (per-CPU rate lock, system interrupt lock, rubato
    lock) are NEVER nested. A thread holds at most one of them at a time.
    Wake signalling on a CPU's condition variable always happens after the
    interrupt lock is released. No lock is ever held across a sleep.
*/

package main

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MachineConfig is the configuration a System is built from. Fields are
// read once at construction; the timer interval is the only value that can
// be changed afterwards, through SetTimerInterval.
type MachineConfig struct {
	NumCPUs           int
	ArchMode          int
	StorageSize       uint32 // bytes; 0 selects DEF_STORAGE_SIZE
	TimerintUsecs     int64  // baseline timer thread interval
	TxFacility        bool   // transactional-execution facility installed
	TxAssistThreshold uint32 // assist pressure that raises relief; 0 selects the default
}

// rateStore holds the system-wide published rates read by panels and
// reports. Separate small lock so readers never touch the hot paths.
type rateStore struct {
	mu        sync.RWMutex
	totalMIPS uint64 // machine-wide instructions per second, last period
	totalSIOs uint64 // machine-wide start-I/Os per second, last period
	hwmMIPS   uint64 // high-water marks, monotone over the run
	hwmSIOs   uint64
	sampledAt uint64 // machine time of the last completed period
}

// System is the whole emulated machine as the timer subsystem sees it.
type System struct {
	config MachineConfig

	cpus  []*VCPU
	hicpu int // number of configured CPUs; 0 means nothing to scan

	intlock sync.Mutex   // guards every CPU's interrupt-domain fields
	cpulock []sync.Mutex // cpulock[i] guards cpus[i]'s rate-domain fields

	clock   *TODClock
	storage *MainStorage

	shutdown atomic.Bool

	// Timer thread sleep intervals in microseconds. timerint is the
	// configured baseline; txfTimerint is the rubato-modulated value used
	// while transactional relief is pending.
	timerint    atomic.Int64
	txfTimerint atomic.Int64

	// Rubato state. The window is guarded by rublock; the transaction
	// counter is atomic so execution threads never take the rubato lock.
	rublock      sync.Mutex
	rubatoActive atomic.Bool
	txfWindow    [RUBATO_WINDOW_SLOTS]uint64
	txfCounter   atomic.Uint64

	rates rateStore
}

func NewSystem(cfg MachineConfig) (*System, error) {
	if cfg.NumCPUs < 1 || cfg.NumCPUs > MAX_CPUS {
		return nil, fmt.Errorf("invalid CPU count %d: need 1..%d", cfg.NumCPUs, MAX_CPUS)
	}
	if cfg.ArchMode != ARCH_CLASSIC && cfg.ArchMode != ARCH_EXTENDED {
		return nil, fmt.Errorf("invalid architecture mode %d", cfg.ArchMode)
	}
	if cfg.TimerintUsecs == 0 {
		cfg.TimerintUsecs = DEF_TOD_UPDATE_USECS
	}
	if cfg.TimerintUsecs < MIN_TOD_UPDATE_USECS || cfg.TimerintUsecs > MAX_TOD_UPDATE_USECS {
		return nil, fmt.Errorf("invalid timer interval %dus: need %d..%d",
			cfg.TimerintUsecs, MIN_TOD_UPDATE_USECS, MAX_TOD_UPDATE_USECS)
	}
	if cfg.StorageSize == 0 {
		cfg.StorageSize = DEF_STORAGE_SIZE
	}
	if cfg.TxAssistThreshold == 0 {
		cfg.TxAssistThreshold = TXF_ASSIST_THRESHOLD
	}
	if uint64(cfg.NumCPUs)*PSA_SIZE > uint64(cfg.StorageSize) {
		return nil, fmt.Errorf("storage size %#x too small for %d prefix areas", cfg.StorageSize, cfg.NumCPUs)
	}

	storage, err := NewMainStorage(cfg.StorageSize)
	if err != nil {
		return nil, err
	}

	sys := &System{
		config:  cfg,
		cpus:    make([]*VCPU, cfg.NumCPUs),
		hicpu:   cfg.NumCPUs,
		cpulock: make([]sync.Mutex, cfg.NumCPUs),
		clock:   NewTODClock(),
		storage: storage,
	}
	for i := range sys.cpus {
		cpu := &VCPU{
			cpu:           i,
			cpuBit:        CPUMask(1) << i,
			prefix:        uint32(i) * PSA_SIZE,
			archMode:      cfg.ArchMode,
			itimerEnabled: cfg.ArchMode == ARCH_CLASSIC,
		}
		cpu.online.Store(true)
		cpu.state.Store(CPUSTATE_STOPPED)
		cpu.intcond = sync.NewCond(&sys.intlock)
		sys.cpus[i] = cpu
	}
	sys.timerint.Store(cfg.TimerintUsecs)
	sys.txfTimerint.Store(cfg.TimerintUsecs)
	return sys, nil
}

func (sys *System) NumCPUs() int {
	return sys.hicpu
}

func (sys *System) Storage() *MainStorage {
	return sys.storage
}

func (sys *System) Clock() *TODClock {
	return sys.clock
}

func (sys *System) cpuByNumber(cpu int) (*VCPU, error) {
	if cpu < 0 || cpu >= sys.hicpu {
		return nil, fmt.Errorf("no such CPU %d", cpu)
	}
	return sys.cpus[cpu], nil
}

// RequestShutdown asks every loop to exit at its next iteration boundary,
// moves running CPUs to STOPPING and unparks any execution thread waiting
// for an interrupt. Broadcasts happen after the lock is released; a waiter
// that slips in between acquisitions sees the STOPPING state instead.
func (sys *System) RequestShutdown() {
	sys.shutdown.Store(true)
	sys.intlock.Lock()
	for _, cpu := range sys.cpus {
		if s := cpu.state.Load(); s == CPUSTATE_RUNNING || s == CPUSTATE_WAITING {
			cpu.state.Store(CPUSTATE_STOPPING)
		}
	}
	sys.intlock.Unlock()
	for _, cpu := range sys.cpus {
		cpu.intcond.Broadcast()
	}
}

func (sys *System) ShutdownRequested() bool {
	return sys.shutdown.Load()
}

// WakeCPUs signals the execution thread of every CPU in the mask. Callers
// must NOT hold the interrupt lock; waking under it would resume a thread
// straight into a lock it cannot take.
func (sys *System) WakeCPUs(mask CPUMask) {
	if mask == 0 {
		return
	}
	for i := 0; i < sys.hicpu; i++ {
		if mask.Has(i) {
			sys.cpus[i].intcond.Signal()
		}
	}
}

// ---------------------------------------------------------------------------
// Interrupt-lock domain operations (console, execution threads, tests)
// ---------------------------------------------------------------------------

func (sys *System) SetClockComparator(cpu int, value uint64) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	sys.intlock.Lock()
	c.clockComparator = value
	sys.intlock.Unlock()
	return nil
}

func (sys *System) SetCPUTimer(cpu int, value int64) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	now := sys.clock.Current()
	sys.intlock.Lock()
	c.setCPUTimer(value, now)
	sys.intlock.Unlock()
	return nil
}

func (sys *System) SetTODEpoch(cpu int, epoch int64) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	sys.intlock.Lock()
	c.todEpoch = epoch
	sys.intlock.Unlock()
	return nil
}

func (sys *System) SetOnline(cpu int, online bool) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	sys.intlock.Lock()
	c.online.Store(online)
	sys.intlock.Unlock()
	return nil
}

// SetCPUState moves a CPU between execution states. Entering RUNNING
// re-anchors the interval timer so time spent stopped is not charged as a
// burst of catch-up ticks.
func (sys *System) SetCPUState(cpu int, state int) error {
	switch state {
	case CPUSTATE_STOPPED, CPUSTATE_STOPPING, CPUSTATE_RUNNING, CPUSTATE_WAITING:
	default:
		return fmt.Errorf("invalid CPU state %d", state)
	}
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	now := sys.clock.Current()
	sys.intlock.Lock()
	if state == CPUSTATE_RUNNING && c.state.Load() == CPUSTATE_STOPPED {
		c.itimerUnits = totalItimerUnits(now)
		if g := c.guest.Load(); g != nil {
			g.itimerUnits = c.itimerUnits
		}
	}
	c.state.Store(int32(state))
	sys.intlock.Unlock()
	c.intcond.Signal()
	return nil
}

func (sys *System) CPUState(cpu int) (int, error) {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return 0, err
	}
	return int(c.state.Load()), nil
}

// StartGuest attaches a nested-guest shadow to a CPU. The guest gets its own
// epoch and architecture view; in classic mode its interval timer can be
// suppressed by the guest control state.
func (sys *System) StartGuest(cpu int, epoch int64, archMode int, itimerSuppressed bool) error {
	if archMode != ARCH_CLASSIC && archMode != ARCH_EXTENDED {
		return fmt.Errorf("invalid guest architecture mode %d", archMode)
	}
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	now := sys.clock.Current()
	sys.intlock.Lock()
	c.guest.Store(&GuestCPU{
		todEpoch:         epoch,
		archMode:         archMode,
		itimerSuppressed: itimerSuppressed,
		cpuTimerAnchor:   now,
		itimerUnits:      totalItimerUnits(now),
	})
	sys.intlock.Unlock()
	return nil
}

func (sys *System) EndGuest(cpu int) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	sys.intlock.Lock()
	c.guest.Store(nil)
	sys.intlock.Unlock()
	return nil
}

func (sys *System) SetGuestClockComparator(cpu int, value uint64) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	sys.intlock.Lock()
	defer sys.intlock.Unlock()
	g := c.guest.Load()
	if g == nil {
		return fmt.Errorf("CPU %d has no active guest", cpu)
	}
	g.clockComparator = value
	return nil
}

func (sys *System) SetGuestCPUTimer(cpu int, value int64) error {
	c, err := sys.cpuByNumber(cpu)
	if err != nil {
		return err
	}
	now := sys.clock.Current()
	sys.intlock.Lock()
	defer sys.intlock.Unlock()
	g := c.guest.Load()
	if g == nil {
		return fmt.Errorf("CPU %d has no active guest", cpu)
	}
	g.cpuTimerSet = value
	g.cpuTimerAnchor = now
	return nil
}

// ---------------------------------------------------------------------------
// CPU-lock domain operations (execution threads, sampler)
// ---------------------------------------------------------------------------

// chargeWork credits a batch of executed instructions and start-I/Os to a
// CPU. Execution threads call this once per burst, not per instruction.
func (sys *System) chargeWork(cpu int, insts, sios uint64) {
	sys.cpulock[cpu].Lock()
	sys.cpus[cpu].instCount += insts
	sys.cpus[cpu].sioCount += sios
	sys.cpulock[cpu].Unlock()
}

// chargeTxAssist raises (or with a negative delta, decays) a CPU's
// transactional assist pressure.
func (sys *System) chargeTxAssist(cpu int, delta int32) {
	sys.cpulock[cpu].Lock()
	c := sys.cpus[cpu]
	v := int64(c.txAssist) + int64(delta)
	if v < 0 {
		v = 0
	}
	c.txAssist = uint32(v)
	sys.cpulock[cpu].Unlock()
}

// chargeGuestTxAssist is chargeTxAssist for the nested-guest side. A CPU
// with no active guest absorbs the charge silently.
func (sys *System) chargeGuestTxAssist(cpu int, delta int32) {
	sys.cpulock[cpu].Lock()
	if g := sys.cpus[cpu].guest.Load(); g != nil {
		v := int64(g.txAssist) + int64(delta)
		if v < 0 {
			v = 0
		}
		g.txAssist = uint32(v)
	}
	sys.cpulock[cpu].Unlock()
}

// CountTransaction records one transactional-execution start machine-wide.
func (sys *System) CountTransaction() {
	sys.txfCounter.Add(1)
}

// waitStart marks a CPU as entering wait state at the current machine time.
func (sys *System) waitStart(cpu int) {
	now := sys.clock.Current()
	sys.cpulock[cpu].Lock()
	sys.cpus[cpu].waitStartedTOD = now
	sys.cpulock[cpu].Unlock()
}

// waitEnd accumulates the wait that began at waitStart. The sampler may
// already have banked part of it at a period boundary; the anchor it leaves
// behind makes this increment only the remainder.
func (sys *System) waitEnd(cpu int) {
	now := sys.clock.Current()
	sys.cpulock[cpu].Lock()
	c := sys.cpus[cpu]
	if c.waitStartedTOD != 0 && now > c.waitStartedTOD {
		c.waitTime += now - c.waitStartedTOD
	}
	c.waitStartedTOD = 0
	sys.cpulock[cpu].Unlock()
}

// ---------------------------------------------------------------------------
// Timer interval control
// ---------------------------------------------------------------------------

// TimerInterval returns the configured baseline interval in microseconds.
func (sys *System) TimerInterval() int64 {
	return sys.timerint.Load()
}

// ModulatedInterval returns the rubato-adjusted interval in microseconds.
func (sys *System) ModulatedInterval() int64 {
	return sys.txfTimerint.Load()
}

// SetTimerInterval changes the baseline. The rubato loop treats this as a
// resynchronization point; without the transactional facility the modulated
// interval just follows the baseline.
func (sys *System) SetTimerInterval(usecs int64) error {
	if usecs < MIN_TOD_UPDATE_USECS || usecs > MAX_TOD_UPDATE_USECS {
		return fmt.Errorf("invalid timer interval %dus: need %d..%d",
			usecs, MIN_TOD_UPDATE_USECS, MAX_TOD_UPDATE_USECS)
	}
	sys.timerint.Store(usecs)
	if !sys.rubatoActive.Load() {
		sys.txfTimerint.Store(usecs)
	}
	return nil
}

// Totals returns the published machine-wide rates and their high-water
// marks: instructions/s, SIOs/s, HWM instructions/s, HWM SIOs/s.
func (sys *System) Totals() (mips, sios, hwmMIPS, hwmSIOs uint64) {
	sys.rates.mu.RLock()
	defer sys.rates.mu.RUnlock()
	return sys.rates.totalMIPS, sys.rates.totalSIOs, sys.rates.hwmMIPS, sys.rates.hwmSIOs
}
