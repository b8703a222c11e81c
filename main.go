// main.go - Main entry point for the IronEngine timer machine

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
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

const panelRefreshUsecs = 250000

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ██▀███   ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒▓██ ▒ ██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██ ░▄█ ▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▒██▀▀█▄  ▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░░██▓ ▒██▒░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒▓ ░▒▓░░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░  ░▒ ░ ▒░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░  ░░   ░ ░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░     ░         ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nA mainframe-grade timer interrupt and clock-rate engine.")
	fmt.Println("(c) 2025 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IronEngine")
	fmt.Println("Buy me a coffee: https://ko-fi.com/intuition/tip")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	var (
		numCPUs      int
		archName     string
		storageMiB   int
		timerint     int64
		txf          bool
		panelName    string
		withConsole  bool
		scriptPath   string
		reportPath   string
		duration     time.Duration
		seed         int64
		showVersion  bool
		showFeatures bool
	)

	flagSet := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.IntVar(&numCPUs, "cpus", 2, "Number of virtual CPUs")
	flagSet.StringVar(&archName, "arch", "classic", "Architecture mode: classic or extended")
	flagSet.IntVar(&storageMiB, "storage", 1, "Main storage size in MiB")
	flagSet.Int64Var(&timerint, "timerint", DEF_TOD_UPDATE_USECS, "Timer interrupt interval in microseconds")
	flagSet.BoolVar(&txf, "txf", true, "Enable the transactional facility and interval modulator")
	flagSet.StringVar(&panelName, "panel", "none", "Operator panel: none, term or gui")
	flagSet.BoolVar(&withConsole, "console", false, "Run the operator console on stdin")
	flagSet.StringVar(&scriptPath, "script", "", "Lua automation script to run")
	flagSet.StringVar(&reportPath, "report", "", "Write an HTML rate report here on shutdown")
	flagSet.DurationVar(&duration, "duration", 0, "Shut down after this long (0 runs until quit)")
	flagSet.Int64Var(&seed, "seed", 1, "Workload seed")
	flagSet.BoolVar(&showVersion, "version", false, "Print the version and exit")
	flagSet.BoolVar(&showFeatures, "features", false, "Print compiled features and exit")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: ./iron_engine [-cpus N] [-arch classic|extended] [-timerint usecs] [-panel term|gui] [-console] [-script file.lua] [-report rates.html] [-duration 30s]")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if showVersion {
		fmt.Printf("Iron Engine %s\n", Version)
		os.Exit(0)
	}
	if showFeatures {
		printFeatures(os.Stdout)
		os.Exit(0)
	}

	archMode, err := parseArchFlag(archName)
	if err != nil {
		fmt.Printf("Invalid -arch: %v\n", err)
		os.Exit(1)
	}
	panelBackend, err := parsePanelFlag(panelName)
	if err != nil {
		fmt.Printf("Invalid -panel: %v\n", err)
		os.Exit(1)
	}

	// The terminal panel owns stdin in raw mode, so the line console
	// cannot share it.
	if panelBackend == PANEL_BACKEND_TERM && withConsole {
		fmt.Println("-console disabled: the terminal panel takes over stdin")
		withConsole = false
	}

	if panelBackend != PANEL_BACKEND_TERM {
		boilerPlate()
	}

	sys, err := NewSystem(MachineConfig{
		NumCPUs:       numCPUs,
		ArchMode:      archMode,
		StorageSize:   uint32(storageMiB) << 20,
		TimerintUsecs: timerint,
		TxFacility:    txf,
	})
	if err != nil {
		fmt.Printf("Failed to configure machine: %v\n", err)
		os.Exit(1)
	}

	alarm, err := NewAlarmOutput()
	if err != nil {
		fmt.Printf("Console alarm unavailable: %v\n", err)
		alarm = nil
	}

	threads := NewCPUThreadManager(sys)
	console := NewOperatorConsole(sys, threads, alarm, os.Stdout)

	// Ctrl-C and SIGTERM shut the machine down in order.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigc
		sys.RequestShutdown()
	}()

	if duration > 0 {
		time.AfterFunc(duration, sys.RequestShutdown)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		err := sys.RunTimerThread()
		if err != nil {
			fmt.Printf("Timer thread failed: %v\n", err)
			if alarm != nil {
				alarm.Ring()
			}
		}
		sys.RequestShutdown()
		return err
	})
	if txf {
		eg.Go(func() error {
			sys.RunRubatoThread()
			return nil
		})
	}

	if err := threads.StartAll(seed); err != nil {
		fmt.Printf("Failed to start CPUs: %v\n", err)
		sys.RequestShutdown()
		eg.Wait()
		os.Exit(1)
	}

	var panel PanelOutput
	if panelBackend != PANEL_BACKEND_NONE {
		panel, err = NewPanelOutput(panelBackend)
		if err != nil {
			fmt.Printf("Failed to initialize panel: %v\n", err)
			os.Exit(1)
		}
		panel.SetQuitHandler(sys.RequestShutdown)
		if err := panel.Start(); err != nil {
			fmt.Printf("Failed to start panel: %v\n", err)
			os.Exit(1)
		}
		go RunPanelLoop(sys, panel, panelRefreshUsecs)
	}

	var recorder *RateRecorder
	if reportPath != "" {
		recorder = NewRateRecorder()
		fmt.Printf("Recording rates, session %s\n", recorder.Session())
		go recorder.RunRecorder(sys, int64(MEASUREMENT_PERIOD/TOD_USEC))
	}

	if scriptPath != "" {
		eg.Go(func() error {
			err := console.RunScript(scriptPath)
			if err != nil {
				fmt.Printf("Script failed: %v\n", err)
				sys.RequestShutdown()
			}
			return err
		})
	}
	if withConsole {
		go func() {
			console.RunConsole(os.Stdin)
			sys.RequestShutdown()
		}()
	}

	// Runs until something requests shutdown: console quit, panel quit,
	// script, duration, signal, or a timer thread failure.
	runErr := eg.Wait()

	threads.StopAll()
	if panel != nil {
		panel.Close()
	}
	if alarm != nil {
		alarm.Close()
	}
	if recorder != nil {
		if err := recorder.WriteHTMLFile(reportPath); err != nil {
			fmt.Printf("Rate report not written: %v\n", err)
		} else {
			fmt.Printf("Rate report written to %s\n", reportPath)
		}
	}

	if runErr != nil {
		os.Exit(1)
	}
}

func parseArchFlag(value string) (int, error) {
	switch value {
	case "classic":
		return ARCH_CLASSIC, nil
	case "extended":
		return ARCH_EXTENDED, nil
	}
	return 0, fmt.Errorf("unknown architecture mode: %s", value)
}

func parsePanelFlag(value string) (int, error) {
	switch value {
	case "none":
		return PANEL_BACKEND_NONE, nil
	case "term":
		return PANEL_BACKEND_TERM, nil
	case "gui":
		return PANEL_BACKEND_GUI, nil
	}
	return 0, fmt.Errorf("unknown panel backend: %s", value)
}
