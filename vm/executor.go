package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rv32im/emulator/hostos"
)

// ExecutionState tracks why the stepper is or isn't still running,
// mirroring the teacher's ExecutionState/ExecutionMode split but collapsed
// to what RV32IM actually needs (no step-over/step-into distinction since
// there is no call-stack convention baked into the VM itself).
type ExecutionState int

const (
	StateRunning ExecutionState = iota
	StateHalted
	StateBreakpoint
	StateError
)

// Frame is one VRAM snapshot published by DRAW, per spec.md §6's frame sink.
type Frame struct {
	Data      []byte
	Timestamp time.Time
}

// VM is the complete machine: CPU, Memory, and the ECALL dispatcher's
// collaborators (console sink, frame sink, HostOS client).
type VM struct {
	CPU    *CPU
	Memory *Memory
	State  ExecutionState

	// MaxCycles bounds the stepper (an external collaborator per spec.md
	// §1) from spinning forever; Step itself does not consult this field,
	// a driving loop does.
	MaxCycles uint64

	// Console receives bytes appended by the PRINT syscall.
	Console io.Writer

	// FrameSink receives VRAM snapshots published by the DRAW syscall.
	// VRAMAddr/VRAMSize give the conventional region DRAW reads, per
	// spec.md §4.F's "reads VRAM by convention".
	FrameSink func(Frame)
	VRAMAddr  uint32
	VRAMSize  uint32

	// Host is the HostOS client used for non-builtin ECALLs (RESET, OPEN,
	// CLOSE, SEEK, READ, WRITE, SOCKET). HostCallDeadline bounds each call.
	Host             hostos.Client
	HostCallDeadline time.Duration

	LastError error

	// Statistics, if non-nil, accumulates coarse execution counters for
	// every completed Step. Nil by default so normal execution pays no
	// bookkeeping cost; a debugger or CLI flag opts in with NewStatistics.
	Statistics *Statistics
}

// Config bundles the enumerated configuration knobs from spec.md §6.
type Config struct {
	MemSize            uint32
	HostCallDeadlineMS int
	PipeQueueCapacity  int
	InitialPC          uint32
	DescriptorStart    int32
}

// DefaultConfig returns spec.md §6's defaults.
func DefaultConfig() Config {
	return Config{
		MemSize:            DefaultMemSize,
		HostCallDeadlineMS: DefaultHostCallDeadlineMS,
		PipeQueueCapacity:  DefaultPipeQueueCapacity,
		InitialPC:          DefaultInitialPC,
		DescriptorStart:    DefaultDescriptorStart,
	}
}

// New creates a VM wired to a HostOS client and a console sink. Callers that
// don't care about HostOS (pure-compute test programs) may pass a nil host;
// ECALLs routed to HostOS then return the FAILED sentinel as though the
// bridge were unreachable.
func New(cfg Config, host hostos.Client, console io.Writer) *VM {
	if console == nil {
		console = os.Stdout
	}
	return &VM{
		CPU:              NewCPU(),
		Memory:           NewMemory(cfg.MemSize),
		State:            StateHalted,
		MaxCycles:        DefaultMaxCycles,
		Console:          console,
		VRAMAddr:         ConventionalVRAMStart,
		VRAMSize:         ConventionalVRAMSize,
		Host:             host,
		HostCallDeadline: time.Duration(cfg.HostCallDeadlineMS) * time.Millisecond,
	}
}

// DefaultMaxCycles is a sane default bound for a driving stepper.
const DefaultMaxCycles = 10_000_000

// Step executes exactly one instruction: fetch, decode, dispatch, execute
// (operand fetch, compute, writeback, PC update), per spec.md §2's control
// flow. Step is the atomic unit of progress (spec.md §5): nothing is
// half-retired when it returns, whether it returns nil or an error.
func (v *VM) Step() error {
	word, err := v.fetch()
	if err != nil {
		return err
	}

	in, err := Decode(word)
	if err != nil {
		return err
	}

	pcBefore := v.CPU.PC
	if err := v.dispatch(in); err != nil {
		return err
	}

	v.CPU.Cycles++

	if v.Statistics != nil {
		v.Statistics.RecordInstruction(in)
		if in.Class == ClassB {
			v.Statistics.RecordBranch(v.CPU.PC != pcBefore+InstructionWidth)
		}
	}

	return nil
}

// Reset zeroes the CPU, clears LastError and sets State to StateHalted,
// leaving Memory contents untouched (a debugger's "reset" command typically
// reloads the program afterward).
func (v *VM) Reset() {
	v.CPU.Reset()
	v.LastError = nil
	v.State = StateHalted
}

func (v *VM) fetch() (uint32, error) {
	if v.CPU.PC&0x3 != 0 {
		return 0, &Fault{Kind: FaultFetch, Err: fmt.Errorf("misaligned fetch at PC=0x%08X", v.CPU.PC)}
	}
	word, err := v.Memory.ReadU32(v.CPU.PC)
	if err != nil {
		return 0, &Fault{Kind: FaultFetch, Err: fmt.Errorf("fetch at PC=0x%08X: %w", v.CPU.PC, err)}
	}
	return word, nil
}

// dispatch routes a decoded instruction to its handler. This is the
// two-level dispatch Design Notes §9 calls for: opcode selects the class
// here, funct3/funct7 select the specific operation inside each handler.
func (v *VM) dispatch(in *Instruction) error {
	switch in.Opcode {
	case OpcodeRArith:
		return ExecuteRArith(v, in)
	case OpcodeIArith:
		return ExecuteIArith(v, in)
	case OpcodeLoad:
		return ExecuteLoad(v, in)
	case OpcodeStore:
		return ExecuteStore(v, in)
	case OpcodeBranch:
		return ExecuteBranch(v, in)
	case OpcodeLUI:
		return ExecuteLUI(v, in)
	case OpcodeAUIPC:
		return ExecuteAUIPC(v, in)
	case OpcodeJAL:
		return ExecuteJAL(v, in)
	case OpcodeJALR:
		return ExecuteJALR(v, in)
	case OpcodeSYSTEM:
		return v.executeSystem(in)
	default:
		return &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("opcode 0x%02X", in.Opcode)}
	}
}

// executeSystem handles ECALL/EBREAK. The handler never adjusts PC itself;
// PC advances by 4 after it returns, per spec.md §4.E's PC-update rule.
func (v *VM) executeSystem(in *Instruction) error {
	if in.Funct3 != 0 {
		return &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("SYSTEM funct3=0x%X", in.Funct3)}
	}
	switch in.Imm {
	case SystemImmECALL:
		v.dispatchECALL()
		v.CPU.IncrementPC()
		return nil
	case SystemImmEBREAK:
		return &Fault{Kind: FaultBreak}
	default:
		return &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("SYSTEM imm=%d", in.Imm)}
	}
}

func (v *VM) callContext() (context.Context, context.CancelFunc) {
	deadline := v.HostCallDeadline
	if deadline <= 0 {
		deadline = hostos.DefaultCallDeadline
	}
	return context.WithTimeout(context.Background(), deadline)
}
