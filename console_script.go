// console_script.go - Lua automation binding for the operator console

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
	"time"

	lua "github.com/yuin/gopher-lua"
)

func init() {
	compiledFeatures = append(compiledFeatures, "scripting:lua")
}

// RunScript executes a Lua automation script. The machine is exposed as
// the global mach table: mach.cmd(line) runs any console verb, and a few
// functions return machine state so scripts can branch on it.
//
//	mach.cmd("clkc 0 5000")     -- any console command, returns quit flag
//	mach.wait(250)              -- sleep milliseconds
//	mach.tod()                  -- TOD clock as a display string
//	mach.pending(0)             -- clkc, ptimer, itimer booleans
//	mach.totals()               -- total and peak MIPS, SIO/s
//	mach.done()                 -- true once shutdown was requested
//	mach.shutdown()             -- request shutdown
func (c *OperatorConsole) RunScript(path string) error {
	L := lua.NewState()
	defer L.Close()

	mod := L.NewTable()
	L.SetField(mod, "cmd", L.NewFunction(c.luaCmd))
	L.SetField(mod, "wait", L.NewFunction(luaWait))
	L.SetField(mod, "tod", L.NewFunction(c.luaTOD))
	L.SetField(mod, "pending", L.NewFunction(c.luaPending))
	L.SetField(mod, "totals", L.NewFunction(c.luaTotals))
	L.SetField(mod, "done", L.NewFunction(c.luaDone))
	L.SetField(mod, "shutdown", L.NewFunction(c.luaShutdown))
	L.SetGlobal("mach", mod)

	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

func (c *OperatorConsole) luaCmd(L *lua.LState) int {
	quit := c.ExecuteCommand(L.CheckString(1))
	L.Push(lua.LBool(quit))
	return 1
}

func luaWait(L *lua.LState) int {
	ms := L.CheckInt64(1)
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
	return 0
}

func (c *OperatorConsole) luaTOD(L *lua.LState) int {
	L.Push(lua.LString(FormatTOD(c.sys.Clock().Current())))
	return 1
}

func (c *OperatorConsole) luaPending(L *lua.LState) int {
	cpu := L.CheckInt(1)
	clkc, ptimer, itimer, err := c.sys.PendingFlags(cpu)
	if err != nil {
		L.RaiseError("pending: %v", err)
		return 0
	}
	L.Push(lua.LBool(clkc))
	L.Push(lua.LBool(ptimer))
	L.Push(lua.LBool(itimer))
	return 3
}

func (c *OperatorConsole) luaTotals(L *lua.LState) int {
	mips, sios, peakMIPS, peakSIOs := c.sys.Totals()
	L.Push(lua.LNumber(mips))
	L.Push(lua.LNumber(sios))
	L.Push(lua.LNumber(peakMIPS))
	L.Push(lua.LNumber(peakSIOs))
	return 4
}

func (c *OperatorConsole) luaDone(L *lua.LState) int {
	L.Push(lua.LBool(c.sys.ShutdownRequested()))
	return 1
}

func (c *OperatorConsole) luaShutdown(L *lua.LState) int {
	c.sys.RequestShutdown()
	return 0
}
