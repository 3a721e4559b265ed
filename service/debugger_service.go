package service

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rv32im/emulator/debugger"
	"github.com/rv32im/emulator/loader"
	"github.com/rv32im/emulator/vm"
)

const (
	// Validator limits for API safety
	maxDisassemblyCount = 1000   // Maximum number of instructions to disassemble
	maxStackCount       = 1000   // Maximum number of stack entries to return
	maxStackOffset      = 100000 // Maximum stack offset to prevent wraparound attacks
	stepsBeforeYield    = 1000   // Yield every N steps during execution
)

var serviceLog *log.Logger

func init() {
	if os.Getenv("RV32IM_EMULATOR_DEBUG") != "" {
		// Note: file handle intentionally not closed, kept open for process lifetime.
		logPath := filepath.Join(os.TempDir(), "rv32im-emulator-service-debug.log")
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600) // #nosec G304 -- fixed filename in temp dir
		if err != nil {
			serviceLog = log.New(os.Stderr, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		} else {
			serviceLog = log.New(f, "SERVICE: ", log.Ltime|log.Lmicroseconds|log.Lshortfile)
		}
	} else {
		serviceLog = log.New(io.Discard, "", 0)
	}
}

// DebuggerService provides a thread-safe interface to debugger functionality
// shared by the CLI, TUI, and HTTP API frontends.
//
// Lock ordering: s.mu guards every field on this type, including access to
// the embedded *debugger.Debugger. Debugger methods that take their own
// internal lock (ShouldBreak and friends) are always called with s.mu
// already held, so the order is s.mu -> debugger's own mutex, never the
// reverse.
type DebuggerService struct {
	mu       sync.RWMutex
	vm       *vm.VM
	debugger *debugger.Debugger
	symbols  map[string]uint32

	stdinWriter *os.File // write end of the pipe backing HostOS fd 0, nil if none was wired
}

// NewDebuggerService wraps machine in a DebuggerService. stdinWriter, if
// non-nil, is the write end of the pipe whose read end was handed to the
// HostOS descriptor table as fd 0 (see SessionManager.CreateSession);
// SendInput writes to it.
func NewDebuggerService(machine *vm.VM, stdinWriter *os.File) *DebuggerService {
	return &DebuggerService{
		vm:          machine,
		debugger:    debugger.NewDebugger(machine),
		symbols:     make(map[string]uint32),
		stdinWriter: stdinWriter,
	}
}

// GetVM returns the underlying VM (for testing)
func (s *DebuggerService) GetVM() *vm.VM {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vm
}

// LoadHex decodes hex into memory at base and sets the program counter to
// entry, per spec.md §4.G. name, if non-empty, is recorded as a symbol for
// entry so debugger commands can refer to it by label.
func (s *DebuggerService) LoadHex(hex string, base uint32, entry uint32, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := loader.LoadHex(s.vm.Memory, hex, base); err != nil {
		return err
	}

	s.vm.CPU.Reset()
	s.vm.CPU.SetPC(entry)
	if name != "" {
		s.symbols[name] = entry
	}

	s.debugger.LoadSymbols(s.symbols)
	s.vm.State = vm.StateHalted
	s.debugger.Running = false

	return nil
}

// LoadManifest loads the named program out of a YAML manifest file (the
// loader package's supplement to spec.md §4.G's single hex_string/base
// pair) and starts it at its declared base address.
func (s *DebuggerService) LoadManifest(path, name string) error {
	m, err := loader.LoadManifestFile(path)
	if err != nil {
		return err
	}
	p, err := m.Find(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := loader.LoadProgram(s.vm.Memory, p); err != nil {
		return err
	}

	s.vm.CPU.Reset()
	s.vm.CPU.SetPC(p.Base)
	s.symbols[p.Name] = p.Base

	s.debugger.LoadSymbols(s.symbols)
	s.vm.State = vm.StateHalted
	s.debugger.Running = false

	return nil
}

// GetRegisterState returns current register state (thread-safe)
func (s *DebuggerService) GetRegisterState() RegisterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var regs [32]uint32
	for i := range regs {
		regs[i] = s.vm.CPU.GetRegister(i)
	}

	return RegisterState{
		Registers: regs,
		PC:        s.vm.CPU.PC,
		Cycles:    s.vm.CPU.Cycles,
	}
}

// Step executes a single instruction
func (s *DebuggerService) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vm.Step()
}

// Continue runs until breakpoint or halt
func (s *DebuggerService) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.Running = true
	s.debugger.StepMode = debugger.StepNone

	return nil
}

// Pause pauses execution and sets VM state to halted
func (s *DebuggerService) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Running = false
	s.vm.State = vm.StateHalted
}

// Reset performs a complete reset: registers, memory, and execution state
// all return to their zero values, and all breakpoints/watchpoints are
// cleared. Use ResetToEntryPoint to restart the currently loaded program
// without re-loading it.
func (s *DebuggerService) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vm.Reset()
	_ = s.vm.Memory.WriteRange(0, make([]byte, s.vm.Memory.Size()))
	s.symbols = make(map[string]uint32)
	s.debugger.Breakpoints.Clear()
	s.debugger.Watchpoints.Clear()
	s.debugger.Running = false
	s.vm.State = vm.StateHalted

	return nil
}

// ResetToEntryPoint resets registers and the PC to entry without touching
// memory or the loaded symbol table, so the current program can be re-run.
func (s *DebuggerService) ResetToEntryPoint(entry uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vm.CPU.Reset()
	s.vm.CPU.SetPC(entry)
	s.vm.State = vm.StateHalted
	s.debugger.Running = false

	return nil
}

// GetExecutionState returns current execution state
func (s *DebuggerService) GetExecutionState() ExecutionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return VMStateToExecution(s.vm.State)
}

// GetLastError returns the VM's most recently recorded fault, if any.
func (s *DebuggerService) GetLastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vm.LastError
}

// AddBreakpoint adds a breakpoint at the specified address
func (s *DebuggerService) AddBreakpoint(address uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.Breakpoints.AddBreakpoint(address, false, "")
	return nil
}

// RemoveBreakpoint removes a breakpoint
func (s *DebuggerService) RemoveBreakpoint(address uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Breakpoints.DeleteBreakpointAt(address)
}

// GetBreakpoints returns all breakpoints
func (s *DebuggerService) GetBreakpoints() []BreakpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bps := s.debugger.Breakpoints.GetAllBreakpoints()
	result := make([]BreakpointInfo, len(bps))
	for i, bp := range bps {
		result[i] = BreakpointInfo{
			Address:   bp.Address,
			Enabled:   bp.Enabled,
			Condition: bp.Condition,
		}
	}
	return result
}

// ClearAllBreakpoints removes all breakpoints
func (s *DebuggerService) ClearAllBreakpoints() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Breakpoints.Clear()
}

// GetMemory returns memory contents for a region. Unreadable bytes (past
// the mapped region) come back as 0 rather than failing the whole request,
// so a memory-view client can still render up to a segment boundary.
func (s *DebuggerService) GetMemory(address uint32, size uint32) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make([]byte, size)
	for i := uint32(0); i < size; i++ {
		b, err := s.vm.Memory.ReadU8(address + i)
		if err != nil {
			data[i] = 0
			continue
		}
		data[i] = b
	}
	return data, nil
}

// GetSymbols returns all symbols
func (s *DebuggerService) GetSymbols() map[string]uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make(map[string]uint32, len(s.symbols))
	for k, v := range s.symbols {
		symbols[k] = v
	}
	return symbols
}

func (s *DebuggerService) getSymbolForAddressUnsafe(addr uint32) string {
	for name, symbolAddr := range s.symbols {
		if symbolAddr == addr {
			return name
		}
	}
	return ""
}

// RunUntilHalt runs the program until it halts, faults, or hits a
// breakpoint. If Running was already cleared before this was called (the
// race with Pause between Continue and the execution goroutine starting),
// it returns immediately.
func (s *DebuggerService) RunUntilHalt() error {
	serviceLog.Println("RunUntilHalt() called")
	s.mu.Lock()
	if !s.debugger.Running {
		s.mu.Unlock()
		return nil
	}
	s.vm.State = vm.StateRunning
	s.mu.Unlock()

	stepCount := 0

	for {
		s.mu.Lock()
		if !s.debugger.Running || s.vm.State != vm.StateRunning {
			s.mu.Unlock()
			break
		}

		if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
			s.debugger.Running = false
			s.vm.State = vm.StateBreakpoint
			s.mu.Unlock()
			break
		}

		err := s.vm.Step()
		halted := false
		if err != nil {
			s.vm.LastError = err
			if vm.IsBreak(err) {
				halted = true
				s.vm.State = vm.StateHalted
			} else {
				s.vm.State = vm.StateError
				s.debugger.Running = false
				s.mu.Unlock()
				return err
			}
		}
		s.mu.Unlock()

		if halted {
			s.mu.Lock()
			s.debugger.Running = false
			s.mu.Unlock()
			break
		}

		stepCount++
		if stepCount >= stepsBeforeYield {
			stepCount = 0
			time.Sleep(1 * time.Millisecond)
		}
	}

	serviceLog.Println("RunUntilHalt() completed")
	return nil
}

// IsRunning returns whether execution is in progress
func (s *DebuggerService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.debugger.Running
}

// SetRunning sets the running state synchronously, before an async
// execution method launches its goroutine.
func (s *DebuggerService) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.Running = running
	if running {
		s.vm.State = vm.StateRunning
	} else if s.vm.State == vm.StateRunning {
		s.vm.State = vm.StateHalted
	}
}

// GetDisassembly returns the raw instruction words starting at address.
// There is no mnemonic decoder in this module, so callers only get opcode
// words and whatever symbol lands on each address.
//
// startAddr must be 4-byte aligned; count must be positive and
// <= maxDisassemblyCount. Invalid inputs return an empty slice, and a
// memory read failure truncates the result rather than failing it.
func (s *DebuggerService) GetDisassembly(startAddr uint32, count int) []DisassemblyLine {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > maxDisassemblyCount {
		return []DisassemblyLine{}
	}
	if startAddr&0x3 != 0 {
		return []DisassemblyLine{}
	}

	lines := make([]DisassemblyLine, 0, count)
	addr := startAddr

	for i := 0; i < count; i++ {
		opcode, err := s.vm.Memory.ReadU32(addr)
		if err != nil {
			break
		}

		lines = append(lines, DisassemblyLine{
			Address: addr,
			Opcode:  opcode,
			Symbol:  s.getSymbolForAddressUnsafe(addr),
		})
		addr += vm.InstructionWidth
	}

	return lines
}

// GetStack returns memory contents from SP+offset, treated as a stack of
// words purely by convention (RV32IM has no dedicated stack instructions).
//
// offset is in words and must be in [-maxStackOffset, maxStackOffset];
// count must be positive and <= maxStackCount. All arithmetic is
// overflow-checked to reject wraparound addresses rather than wrapping.
func (s *DebuggerService) GetStack(offset int, count int) []StackEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if count <= 0 || count > maxStackCount {
		return []StackEntry{}
	}
	if offset < -maxStackOffset || offset > maxStackOffset {
		return []StackEntry{}
	}

	sp := s.vm.CPU.GetSP()

	offsetBytes := int64(offset) * 4
	newAddr := int64(sp) + offsetBytes
	if newAddr < 0 || newAddr > 0xFFFFFFFF {
		return []StackEntry{}
	}
	startAddr := uint32(newAddr)

	entries := make([]StackEntry, 0, count)
	for i := 0; i < count; i++ {
		nextAddr := int64(startAddr) + int64(i)*4
		if nextAddr < 0 || nextAddr > 0xFFFFFFFF {
			break
		}
		addr := uint32(nextAddr)

		value, err := s.vm.Memory.ReadU32(addr)
		if err != nil {
			break
		}

		entries = append(entries, StackEntry{
			Address: addr,
			Value:   value,
			Symbol:  s.getSymbolForAddressUnsafe(value),
		})
	}

	return entries
}

// StepOver executes one instruction, stepping over JAL/JALR calls (rd=ra)
// rather than descending into them.
func (s *DebuggerService) StepOver() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.debugger.SetStepOver()

	for s.debugger.Running {
		if s.debugger.StepMode != debugger.StepSingle {
			if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
				s.debugger.Running = false
				break
			}
		}

		s.mu.Unlock()
		err := s.vm.Step()
		s.mu.Lock()

		if err != nil {
			s.debugger.Running = false
			s.vm.LastError = err
			if vm.IsBreak(err) {
				s.vm.State = vm.StateHalted
				break
			}
			s.vm.State = vm.StateError
			return err
		}

		if s.debugger.StepMode == debugger.StepSingle {
			if shouldBreak, _ := s.debugger.ShouldBreak(); shouldBreak {
				s.debugger.Running = false
				break
			}
		}
	}

	return nil
}

// StepOut configures the debugger to run until the current function
// returns. The caller (RunUntilHalt or its API equivalent) must still
// drive execution afterward; this only arms step-out mode.
func (s *DebuggerService) StepOut() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.debugger.SetStepOut()
	return nil
}

// AddWatchpoint adds a memory watchpoint at the specified address.
func (s *DebuggerService) AddWatchpoint(address uint32, watchType string) error {
	wpType, err := parseWatchType(watchType)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expression := fmt.Sprintf("[0x%08X]", address)
	s.debugger.Watchpoints.AddWatchpoint(wpType, expression, address, false, 0)
	return nil
}

// AddRegisterWatchpoint adds a watchpoint on register index reg (an x0-x31
// index, see debugger.registerABINames for the ABI-name lookup the CLI
// layer uses to accept names like "sp" instead of a bare index).
func (s *DebuggerService) AddRegisterWatchpoint(reg int, watchType string) error {
	wpType, err := parseWatchType(watchType)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expression := fmt.Sprintf("x%d", reg)
	s.debugger.Watchpoints.AddWatchpoint(wpType, expression, 0, true, reg)
	return nil
}

func parseWatchType(watchType string) (debugger.WatchType, error) {
	switch watchType {
	case "read":
		return debugger.WatchRead, nil
	case "write":
		return debugger.WatchWrite, nil
	case "readwrite", "":
		return debugger.WatchReadWrite, nil
	default:
		return 0, fmt.Errorf("invalid watchpoint type: %s", watchType)
	}
}

// RemoveWatchpoint removes a watchpoint by ID
func (s *DebuggerService) RemoveWatchpoint(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Watchpoints.DeleteWatchpoint(id)
}

// GetWatchpoints returns all watchpoints
func (s *DebuggerService) GetWatchpoints() []WatchpointInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wps := s.debugger.Watchpoints.GetAllWatchpoints()
	result := make([]WatchpointInfo, len(wps))
	for i, wp := range wps {
		var wpType string
		switch wp.Type {
		case debugger.WatchRead:
			wpType = "read"
		case debugger.WatchWrite:
			wpType = "write"
		case debugger.WatchReadWrite:
			wpType = "readwrite"
		}

		result[i] = WatchpointInfo{
			ID:         wp.ID,
			Address:    wp.Address,
			IsRegister: wp.IsRegister,
			Register:   wp.Register,
			Type:       wpType,
			Enabled:    wp.Enabled,
		}
	}
	return result
}

// ExecuteCommand executes a debugger command and returns output
func (s *DebuggerService) ExecuteCommand(command string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.debugger.ExecuteCommand(command)
	output := s.debugger.GetOutput()

	return output, err
}

// EvaluateExpression evaluates an expression and returns the result
func (s *DebuggerService) EvaluateExpression(expr string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.debugger.Evaluator.EvaluateExpression(expr, s.vm, s.symbols)
}

// SendInput writes data to the guest program's HostOS stdin descriptor
// (fd 0). Returns an error if this session wasn't wired with a stdin pipe.
func (s *DebuggerService) SendInput(input string) error {
	s.mu.RLock()
	w := s.stdinWriter
	s.mu.RUnlock()

	if w == nil {
		return fmt.Errorf("session has no stdin pipe")
	}
	_, err := w.Write([]byte(input))
	return err
}

// EnableStatistics enables performance statistics collection
func (s *DebuggerService) EnableStatistics() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vm.Statistics = vm.NewStatistics()
	return nil
}

// DisableStatistics disables performance statistics collection
func (s *DebuggerService) DisableStatistics() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vm.Statistics = nil
}

// GetStatistics returns performance statistics, finalizing the clock.
func (s *DebuggerService) GetStatistics() (*vm.Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.vm.Statistics == nil {
		return nil, fmt.Errorf("statistics not enabled")
	}
	s.vm.Statistics.Finish()
	return s.vm.Statistics, nil
}
