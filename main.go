package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rv32im/emulator/api"
	"github.com/rv32im/emulator/config"
	"github.com/rv32im/emulator/debugger"
	"github.com/rv32im/emulator/hostos"
	"github.com/rv32im/emulator/loader"
	"github.com/rv32im/emulator/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"     // Version number (set by git tag at build time)
	Commit  = "unknown" // Git commit hash
	Date    = "unknown" // Build date
)

func main() {
	// Config file values (~/.config/rv32im-emu/config.toml, or its platform
	// equivalent) seed the flag defaults below; command-line flags win when
	// given explicitly. A missing config file falls back to config.DefaultConfig.
	fileCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		fileCfg = config.DefaultConfig()
	}

	var (
		showVersion = flag.Bool("version", false, "Show version information")
		showHelp    = flag.Bool("help", false, "Show help information")
		debugMode   = flag.Bool("debug", false, "Start in debugger mode")
		tuiMode     = flag.Bool("tui", false, "Use TUI (Text User Interface) debugger")
		apiServer   = flag.Bool("api-server", false, "Start HTTP API server mode")
		apiPort     = flag.Int("port", 8080, "API server port (used with -api-server)")
		maxCycles   = flag.Uint64("max-cycles", fileCfg.Execution.MaxCycles, "Maximum CPU cycles before halt")
		verboseMode = flag.Bool("verbose", false, "Verbose output")

		memSize         = flag.Uint("mem-size", uint(fileCfg.Memory.SizeBytes), "Guest memory size in bytes")
		hostDeadlineMS  = flag.Int("host-deadline-ms", fileCfg.HostOS.CallDeadlineMS, "HostOS call timeout in milliseconds")
		pipeQueue       = flag.Int("pipe-queue", fileCfg.HostOS.PipeQueueCapacity, "HostOS pipe queue depth")
		descriptorStart = flag.Int("descriptor-start", int(fileCfg.HostOS.DescriptorStart), "First guest file descriptor number HostOS hands out")

		base   = flag.String("base", "0x0", "Load address for a raw hex program (hex or decimal)")
		entry  = flag.String("entry", "", "Initial PC (defaults to -base)")
		symbol = flag.String("symbol", "", "Label recorded for -entry, for hex loads")

		manifestPath = flag.String("manifest", "", "Load a named program from a YAML manifest instead of a raw hex file")
		programName  = flag.String("name", "", "Program name within -manifest")

		enableStats = flag.Bool("stats", fileCfg.Execution.EnableStats, "Enable execution statistics")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("RV32IM Emulator %s\n", Version)
		if Commit != "unknown" {
			fmt.Printf("Commit: %s\n", Commit)
		}
		if Date != "unknown" {
			fmt.Printf("Built: %s\n", Date)
		}
		os.Exit(0)
	}

	if *showHelp {
		printHelp()
		os.Exit(0)
	}

	if *apiServer {
		runAPIServer(*apiPort)
		return
	}

	if flag.NArg() == 0 && *manifestPath == "" {
		printHelp()
		os.Exit(0)
	}

	cfg := vm.Config{
		MemSize:            uint32(*memSize),
		HostCallDeadlineMS: *hostDeadlineMS,
		PipeQueueCapacity:  *pipeQueue,
		DescriptorStart:    int32(*descriptorStart),
	}

	hostServer := hostos.NewServer(cfg.DescriptorStart, cfg.PipeQueueCapacity)
	hostClient := hostos.NewLocalClient(hostServer)

	machine := vm.New(cfg, hostClient, os.Stdout)
	machine.MaxCycles = *maxCycles

	symbols := make(map[string]uint32)
	entryAddr, err := loadProgram(machine, symbols, *manifestPath, *programName, *base, *entry, *symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verboseMode {
		fmt.Printf("Entry point: 0x%08X\n", entryAddr)
		fmt.Printf("Memory size: %d bytes\n", cfg.MemSize)
		fmt.Printf("Symbols: %d defined\n", len(symbols))
	}

	if *enableStats {
		machine.Statistics = vm.NewStatistics()
	}

	if *debugMode || *tuiMode {
		dbg := debugger.NewDebugger(machine)
		dbg.LoadSymbols(symbols)

		if *tuiMode {
			if err := debugger.RunTUI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
				os.Exit(1)
			}
		} else {
			fmt.Println("RV32IM Debugger - Type 'help' for commands")
			fmt.Println()

			if err := debugger.RunCLI(dbg); err != nil {
				fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	runDirect(machine, *verboseMode)
}

// loadProgram loads either a manifest-named program or a raw hex file at
// base into machine's memory, per spec.md §4.G's two loading paths, and
// returns the resolved entry address.
func loadProgram(machine *vm.VM, symbols map[string]uint32, manifestPath, programName, baseStr, entryStr, symbolName string) (uint32, error) {
	if manifestPath != "" {
		m, err := loader.LoadManifestFile(manifestPath)
		if err != nil {
			return 0, err
		}
		p, err := m.Find(programName)
		if err != nil {
			return 0, err
		}
		if err := loader.LoadProgram(machine.Memory, p); err != nil {
			return 0, err
		}
		symbols[p.Name] = p.Base
		machine.CPU.Reset()
		machine.CPU.SetPC(p.Base)
		machine.State = vm.StateHalted
		return p.Base, nil
	}

	hexFile := flag.Arg(0)
	baseAddr, err := parseAddress(baseStr)
	if err != nil {
		return 0, fmt.Errorf("invalid -base: %w", err)
	}
	entryAddr := baseAddr
	if entryStr != "" {
		entryAddr, err = parseAddress(entryStr)
		if err != nil {
			return 0, fmt.Errorf("invalid -entry: %w", err)
		}
	}

	if err := loader.LoadHexFile(machine.Memory, hexFile, baseAddr); err != nil {
		return 0, err
	}
	if symbolName != "" {
		symbols[symbolName] = entryAddr
	}
	machine.CPU.Reset()
	machine.CPU.SetPC(entryAddr)
	machine.State = vm.StateHalted
	return entryAddr, nil
}

// parseAddress accepts either a 0x-prefixed hex address or a decimal one.
func parseAddress(s string) (uint32, error) {
	var addr uint32
	if _, err := fmt.Sscanf(s, "0x%x", &addr); err == nil {
		return addr, nil
	}
	if _, err := fmt.Sscanf(s, "%d", &addr); err == nil {
		return addr, nil
	}
	return 0, fmt.Errorf("not a valid address: %q", s)
}

// runDirect runs machine to completion outside the debugger, per spec.md
// §5's Step-driven execution loop.
func runDirect(machine *vm.VM, verbose bool) {
	if verbose {
		fmt.Println("Starting execution...")
		fmt.Println("----------------------------------------")
	}

	machine.State = vm.StateRunning
	for machine.State == vm.StateRunning {
		if machine.MaxCycles > 0 && machine.CPU.Cycles >= machine.MaxCycles {
			machine.State = vm.StateHalted
			fmt.Fprintf(os.Stderr, "\nHalted: reached max cycles (%d)\n", machine.MaxCycles)
			break
		}
		err := machine.Step()
		if err == nil {
			continue
		}

		machine.LastError = err
		if vm.IsBreak(err) {
			machine.State = vm.StateHalted
			break
		}

		machine.State = vm.StateError
		fmt.Fprintf(os.Stderr, "\nRuntime error at PC=0x%08X: %v\n", machine.CPU.PC, err)
		os.Exit(1)
	}

	if verbose {
		fmt.Println("----------------------------------------")
		fmt.Println("Execution complete")
		fmt.Printf("CPU cycles: %d\n", machine.CPU.Cycles)
	}

	if machine.Statistics != nil {
		machine.Statistics.Finish()
		fmt.Printf("Instructions executed: %d (loads=%d stores=%d branches taken=%d/not-taken=%d ecalls=%d, %.0f inst/s)\n",
			machine.Statistics.InstructionsExecuted,
			machine.Statistics.LoadsExecuted,
			machine.Statistics.StoresExecuted,
			machine.Statistics.BranchesTaken,
			machine.Statistics.BranchesNotTaken,
			machine.Statistics.ECallsExecuted,
			machine.Statistics.InstructionsPerSecond())
	}
}

// runAPIServer starts the HTTP+WebSocket control plane and blocks until a
// shutdown signal arrives.
func runAPIServer(port int) {
	server := api.NewServer(port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Create shutdown function with sync.Once to ensure it runs only once.
	// This prevents race conditions between the signal handler and the
	// process monitor.
	var shutdownOnce sync.Once
	performShutdown := func() {
		shutdownOnce.Do(func() {
			fmt.Println("\nShutting down API server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				os.Exit(1)
			}

			fmt.Println("API server stopped")
			os.Exit(0)
		})
	}

	// Detect parent death (GUI frontend crash/force-quit) so the backend
	// never outlives it.
	monitor := api.NewProcessMonitor(performShutdown)
	monitor.Start()

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	performShutdown()
}

func printHelp() {
	fmt.Printf(`RV32IM Emulator %s

Usage: rv32im-emulator [options] <hex-file>
       rv32im-emulator -manifest FILE -name NAME [options]
       rv32im-emulator -api-server [-port N]

Options:
  -help                 Show this help message
  -version              Show version information
  -api-server           Start HTTP API server mode (no hex file required)
  -port N               API server port (default: 8080, used with -api-server)
  -debug                Start in debugger mode (CLI)
  -tui                  Start in TUI debugger mode
  -max-cycles N         Set maximum CPU cycles (default: %d)
  -verbose              Enable verbose output
  -stats                Enable execution statistics

Program loading:
  -base ADDR            Load address for a raw hex file (default: 0x0)
  -entry ADDR           Initial PC (default: -base)
  -symbol NAME          Label recorded for -entry
  -manifest FILE        Load a named program from a YAML manifest
  -name NAME            Program name within -manifest

HostOS configuration:
  -mem-size N           Guest memory size in bytes (default: %d)
  -host-deadline-ms N   HostOS call timeout in milliseconds (default: %d)
  -pipe-queue N         HostOS pipe queue depth (default: %d)
  -descriptor-start N   First guest file descriptor (default: %d)

Examples:
  # Start the API server for a frontend
  rv32im-emulator -api-server
  rv32im-emulator -api-server -port 3000

  # Run a raw hex program directly
  rv32im-emulator -base 0x100 program.hex

  # Run with the CLI debugger
  rv32im-emulator -debug -base 0x100 program.hex

  # Run with the TUI debugger
  rv32im-emulator -tui -base 0x100 program.hex

  # Load a named program out of a manifest
  rv32im-emulator -manifest programs.yaml -name fibonacci

  # Run with execution statistics
  rv32im-emulator -stats -verbose -base 0x100 program.hex

Debugger Commands (when in -debug mode):
  run, r             Start/restart program execution
  continue, c        Continue execution
  step, s            Execute single instruction
  next, n            Step over calls
  break ADDR         Set breakpoint at address/label
  info registers     Show all registers
  print EXPR         Evaluate and print expression
  help               Show debugger help
`, Version, vm.DefaultMaxCycles, vm.DefaultMemSize, vm.DefaultHostCallDeadlineMS, vm.DefaultPipeQueueCapacity, vm.DefaultDescriptorStart)
}
