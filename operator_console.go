// operator_console.go - Operator command console for IronEngine

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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// OperatorConsole drives the machine from a command stream. Every verb is
// also callable programmatically, which is how the Lua automation binding
// and the tests reach it.
type OperatorConsole struct {
	sys     *System
	threads *CPUThreadManager
	alarm   AlarmOutput // may be nil
	out     io.Writer
}

func NewOperatorConsole(sys *System, threads *CPUThreadManager, alarm AlarmOutput, out io.Writer) *OperatorConsole {
	return &OperatorConsole{sys: sys, threads: threads, alarm: alarm, out: out}
}

// ConsoleCommand is a parsed command with name and arguments.
type ConsoleCommand struct {
	Name string
	Args []string
}

// ParseConsoleCommand splits a raw input line into a command name and
// arguments.
func ParseConsoleCommand(input string) ConsoleCommand {
	input = strings.TrimSpace(input)
	if input == "" {
		return ConsoleCommand{}
	}
	parts := strings.Fields(input)
	return ConsoleCommand{
		Name: strings.ToLower(parts[0]),
		Args: parts[1:],
	}
}

// RunConsole reads operator commands until quit, EOF or shutdown.
func (c *OperatorConsole) RunConsole(in io.Reader) {
	logThreadBegin("console")
	defer logThreadEnd("console")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !scanner.Scan() {
			return
		}
		if c.ExecuteCommand(scanner.Text()) {
			return
		}
		if c.sys.ShutdownRequested() {
			return
		}
	}
}

// ExecuteCommand dispatches one command line to the appropriate handler.
// Returns true if the console should exit.
func (c *OperatorConsole) ExecuteCommand(input string) bool {
	cmd := ParseConsoleCommand(input)
	if cmd.Name == "" {
		return false
	}

	switch cmd.Name {
	case "start":
		return c.cmdStart(cmd)
	case "stop":
		return c.cmdStop(cmd)
	case "online":
		return c.cmdOnline(cmd)
	case "clkc":
		return c.cmdClockComparator(cmd)
	case "pt":
		return c.cmdCPUTimer(cmd)
	case "it":
		return c.cmdIntervalTimer(cmd)
	case "iten":
		return c.cmdIntervalTimerEnable(cmd)
	case "epoch":
		return c.cmdEpoch(cmd)
	case "guest":
		return c.cmdGuest(cmd)
	case "pending":
		return c.cmdPending(cmd)
	case "rates":
		return c.cmdRates(cmd)
	case "tod":
		return c.cmdTOD(cmd)
	case "timerint":
		return c.cmdTimerint(cmd)
	case "rubato":
		return c.cmdRubato(cmd)
	case "alarm":
		return c.cmdAlarm(cmd)
	case "reset":
		return c.cmdReset(cmd)
	case "resetclear":
		return c.cmdResetClear(cmd)
	case "quit", "exit":
		c.sys.RequestShutdown()
		return true
	case "?", "help":
		return c.cmdHelp(cmd)
	default:
		fmt.Fprintf(c.out, "Unknown command: %s\n", cmd.Name)
		return false
	}
}

func (c *OperatorConsole) parseCPU(s string) (int, bool) {
	cpu, err := strconv.Atoi(s)
	if err != nil || cpu < 0 || cpu >= c.sys.NumCPUs() {
		fmt.Fprintf(c.out, "Invalid CPU: %s\n", s)
		return 0, false
	}
	return cpu, true
}

func (c *OperatorConsole) parseI64(s string) (int64, bool) {
	v, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid value: %s\n", s)
		return 0, false
	}
	return v, true
}

func (c *OperatorConsole) report(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "%v\n", err)
	}
}

func (c *OperatorConsole) cmdStart(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 1 {
		fmt.Fprintln(c.out, "usage: start <cpu>")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	if c.threads != nil {
		if err := c.threads.StartCPU(cpu, time.Now().UnixNano()); err == nil {
			fmt.Fprintf(c.out, "CP%02d started\n", cpu)
			return false
		}
		// Thread already exists: just flip its state back to RUNNING.
	}
	if err := c.sys.SetCPUState(cpu, CPUSTATE_RUNNING); err != nil {
		c.report(err)
		return false
	}
	fmt.Fprintf(c.out, "CP%02d started\n", cpu)
	return false
}

func (c *OperatorConsole) cmdStop(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 1 {
		fmt.Fprintln(c.out, "usage: stop <cpu>")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	if err := c.sys.SetCPUState(cpu, CPUSTATE_STOPPED); err != nil {
		c.report(err)
		return false
	}
	fmt.Fprintf(c.out, "CP%02d stopped\n", cpu)
	return false
}

func (c *OperatorConsole) cmdOnline(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 2 {
		fmt.Fprintln(c.out, "usage: online <cpu> on|off")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	c.report(c.sys.SetOnline(cpu, cmd.Args[1] == "on"))
	return false
}

func (c *OperatorConsole) cmdClockComparator(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 2 {
		fmt.Fprintln(c.out, "usage: clkc <cpu> <usecs>")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	usecs, ok := c.parseI64(cmd.Args[1])
	if !ok {
		return false
	}
	when := c.sys.Clock().Current() + uint64(usecs)*TOD_USEC
	if err := c.sys.SetClockComparator(cpu, when); err != nil {
		c.report(err)
		return false
	}
	fmt.Fprintf(c.out, "CP%02d comparator armed for %s\n", cpu, FormatTOD(when))
	return false
}

func (c *OperatorConsole) cmdCPUTimer(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 2 {
		fmt.Fprintln(c.out, "usage: pt <cpu> <usecs>")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	usecs, ok := c.parseI64(cmd.Args[1])
	if !ok {
		return false
	}
	c.report(c.sys.SetCPUTimer(cpu, usecs*TOD_USEC))
	return false
}

func (c *OperatorConsole) cmdIntervalTimer(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 1 {
		fmt.Fprintln(c.out, "usage: it <cpu> [value]")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	if len(cmd.Args) == 1 {
		value, err := c.sys.IntervalTimer(cpu)
		if err != nil {
			c.report(err)
			return false
		}
		fmt.Fprintf(c.out, "CP%02d interval timer %#010x\n", cpu, uint32(value))
		return false
	}
	v, ok := c.parseI64(cmd.Args[1])
	if !ok {
		return false
	}
	c.report(c.sys.SetIntervalTimer(cpu, int32(v)))
	return false
}

func (c *OperatorConsole) cmdIntervalTimerEnable(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 2 {
		fmt.Fprintln(c.out, "usage: iten <cpu> on|off")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	c.report(c.sys.SetIntervalTimerEnabled(cpu, cmd.Args[1] == "on"))
	return false
}

func (c *OperatorConsole) cmdEpoch(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 2 {
		fmt.Fprintln(c.out, "usage: epoch <cpu> <secs>")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	secs, ok := c.parseI64(cmd.Args[1])
	if !ok {
		return false
	}
	if secs < 0 {
		fmt.Fprintln(c.out, "epoch offset must be non-negative")
		return false
	}
	c.report(c.sys.SetTODEpoch(cpu, secs*TOD_SEC))
	return false
}

func (c *OperatorConsole) cmdGuest(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 2 {
		fmt.Fprintln(c.out, "usage: guest start|end|clkc|pt|it <cpu> [args]")
		return false
	}
	sub := strings.ToLower(cmd.Args[0])
	cpu, ok := c.parseCPU(cmd.Args[1])
	if !ok {
		return false
	}

	switch sub {
	case "start":
		archMode := ARCH_CLASSIC
		suppressed := false
		var epoch int64
		for _, arg := range cmd.Args[2:] {
			switch strings.ToLower(arg) {
			case "extended":
				archMode = ARCH_EXTENDED
			case "classic":
				archMode = ARCH_CLASSIC
			case "noitimer":
				suppressed = true
			default:
				if secs, err := strconv.ParseInt(arg, 0, 64); err == nil && secs >= 0 {
					epoch = secs * TOD_SEC
				}
			}
		}
		c.report(c.sys.StartGuest(cpu, epoch, archMode, suppressed))
	case "end":
		c.report(c.sys.EndGuest(cpu))
	case "clkc":
		if len(cmd.Args) < 3 {
			fmt.Fprintln(c.out, "usage: guest clkc <cpu> <usecs>")
			return false
		}
		usecs, ok := c.parseI64(cmd.Args[2])
		if !ok {
			return false
		}
		when := c.sys.Clock().Current() + uint64(usecs)*TOD_USEC
		c.report(c.sys.SetGuestClockComparator(cpu, when))
	case "pt":
		if len(cmd.Args) < 3 {
			fmt.Fprintln(c.out, "usage: guest pt <cpu> <usecs>")
			return false
		}
		usecs, ok := c.parseI64(cmd.Args[2])
		if !ok {
			return false
		}
		c.report(c.sys.SetGuestCPUTimer(cpu, usecs*TOD_USEC))
	case "it":
		if len(cmd.Args) < 3 {
			fmt.Fprintln(c.out, "usage: guest it <cpu> <value>")
			return false
		}
		v, ok := c.parseI64(cmd.Args[2])
		if !ok {
			return false
		}
		c.report(c.sys.SetGuestIntervalTimer(cpu, int32(v)))
	default:
		fmt.Fprintf(c.out, "Unknown guest subcommand: %s\n", sub)
	}
	return false
}

func (c *OperatorConsole) cmdPending(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 1 {
		fmt.Fprintln(c.out, "usage: pending <cpu>")
		return false
	}
	cpu, ok := c.parseCPU(cmd.Args[0])
	if !ok {
		return false
	}
	clkc, ptimer, itimer, err := c.sys.PendingFlags(cpu)
	if err != nil {
		c.report(err)
		return false
	}
	fmt.Fprintf(c.out, "CP%02d pending: clkc=%v ptimer=%v itimer=%v\n",
		cpu, clkc, ptimer, itimer)
	return false
}

func (c *OperatorConsole) cmdRates(cmd ConsoleCommand) bool {
	for _, line := range formatRateSnapshot(c.sys.Snapshot()) {
		fmt.Fprintln(c.out, line)
	}
	return false
}

func (c *OperatorConsole) cmdTOD(cmd ConsoleCommand) bool {
	now := c.sys.Clock().Current()
	fmt.Fprintf(c.out, "%#016x  %s\n", now, FormatTOD(now))
	return false
}

func (c *OperatorConsole) cmdTimerint(cmd ConsoleCommand) bool {
	if len(cmd.Args) == 0 {
		fmt.Fprintf(c.out, "interval %dus  modulated %dus\n",
			c.sys.TimerInterval(), c.sys.ModulatedInterval())
		return false
	}
	usecs, ok := c.parseI64(cmd.Args[0])
	if !ok {
		return false
	}
	c.report(c.sys.SetTimerInterval(usecs))
	return false
}

func (c *OperatorConsole) cmdRubato(cmd ConsoleCommand) bool {
	if len(cmd.Args) < 1 {
		fmt.Fprintln(c.out, "usage: rubato on|off")
		return false
	}
	switch cmd.Args[0] {
	case "on":
		if c.sys.rubatoActive.Load() {
			fmt.Fprintln(c.out, "rubato already running")
			return false
		}
		go c.sys.RunRubatoThread()
	case "off":
		c.sys.StopRubato()
	default:
		fmt.Fprintln(c.out, "usage: rubato on|off")
	}
	return false
}

func (c *OperatorConsole) cmdAlarm(cmd ConsoleCommand) bool {
	if c.alarm == nil {
		fmt.Fprintln(c.out, "no alarm output")
		return false
	}
	c.report(c.alarm.Ring())
	return false
}

func (c *OperatorConsole) cmdReset(cmd ConsoleCommand) bool {
	c.sys.Reset()
	fmt.Fprintln(c.out, "system reset")
	return false
}

func (c *OperatorConsole) cmdResetClear(cmd ConsoleCommand) bool {
	c.sys.ResetClear()
	fmt.Fprintln(c.out, "system reset, storage cleared")
	return false
}

func (c *OperatorConsole) cmdHelp(cmd ConsoleCommand) bool {
	fmt.Fprint(c.out, `start <cpu>              start CPU execution
stop <cpu>               stop a CPU
online <cpu> on|off      configure a CPU online or offline
clkc <cpu> <usecs>       arm the clock comparator usecs from now
pt <cpu> <usecs>         set the CPU timer (negative fires at once)
it <cpu> [value]         show or set the interval timer word
iten <cpu> on|off        enable or disable interval timer updates
epoch <cpu> <secs>       set the CPU's TOD epoch offset
guest start <cpu> [extended] [noitimer] [epoch-secs]
guest end <cpu>
guest clkc <cpu> <usecs>
guest pt <cpu> <usecs>
guest it <cpu> <value>
pending <cpu>            show pending timer interrupts
rates                    print the rate snapshot
tod                      print the TOD clock
timerint [usecs]         show or set the interrupt interval
rubato on|off            start or stop the interval modulator
alarm                    ring the console alarm
reset                    system reset
resetclear               system reset and clear storage
quit                     shut the machine down
`)
	return false
}
