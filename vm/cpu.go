package vm

// CPU holds the RV32IM register file and program counter.
type CPU struct {
	// X0-X31 general purpose registers. X0 is hard-wired to zero: reads
	// always observe 0 and writes are silently discarded.
	X [32]uint32

	// PC is the program counter, byte-addressed into Memory.
	PC uint32

	// Cycles counts completed steps, for statistics only (spec.md Non-goals
	// excludes exact cycle counting; this is an approximate instruction
	// counter, not a timing model).
	Cycles uint64
}

// Register ABI aliases, name-only per spec.md §3.
const (
	Zero = 0
	RA   = 1
	SP   = 2
	GP   = 3
	TP   = 4
	T0   = 5
	T1   = 6
	T2   = 7
	S0   = 8
	S1   = 9
	A0   = 10
	A1   = 11
	A2   = 12
	A3   = 13
	A4   = 14
	A5   = 15
	A6   = 16
	A7   = 17
)

// NewCPU returns a CPU with all registers and PC at zero.
func NewCPU() *CPU {
	return &CPU{}
}

// Reset zeroes every register, the PC, and the cycle counter.
func (c *CPU) Reset() {
	c.X = [32]uint32{}
	c.PC = 0
	c.Cycles = 0
}

// GetRegister returns the value of register i. Out-of-range indices (never
// produced by the 5-bit decoder fields, but guarded for callers such as the
// debugger) read as zero.
func (c *CPU) GetRegister(i int) uint32 {
	if i == Zero {
		return 0
	}
	if i < 0 || i > 31 {
		return 0
	}
	return c.X[i]
}

// SetRegister writes v to register i. Writes to X0 are a no-op.
func (c *CPU) SetRegister(i int, v uint32) {
	if i <= Zero || i > 31 {
		return
	}
	c.X[i] = v
}

// IncrementPC advances the PC by one instruction word (4 bytes). Used by
// every instruction that does not itself compute a new PC.
func (c *CPU) IncrementPC() {
	c.PC += 4
}

// SetPC sets the PC directly. No alignment is enforced here; it is enforced
// on fetch (VM.Step reports a misaligned PC as FetchFault).
func (c *CPU) SetPC(v uint32) {
	c.PC = v
}

// GetSP returns the stack pointer convention register (x2), for debugger
// and API callers that want the ABI name rather than a bare index.
func (c *CPU) GetSP() uint32 {
	return c.GetRegister(SP)
}

// GetLR returns the return-address convention register (x1, "ra").
func (c *CPU) GetLR() uint32 {
	return c.GetRegister(RA)
}
