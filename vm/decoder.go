package vm

import "fmt"

// InstructionClass tags the decoded instruction's format, per spec.md §3.
type InstructionClass int

const (
	ClassR InstructionClass = iota
	ClassIArith
	ClassILoad
	ClassIJump // JALR
	ClassISystem
	ClassS
	ClassB
	ClassU
	ClassJ
)

// Instruction is the decoder's pure output: everything the executor needs,
// with no further bit extraction required downstream.
type Instruction struct {
	Raw    uint32
	Opcode uint32
	Class  InstructionClass

	Funct3 uint32
	Funct7 uint32

	Rd, Rs1, Rs2 int

	// Imm is the sign-extended (or, for U-type, shifted-but-unsigned)
	// immediate per spec.md §4.D.
	Imm int32
}

// ImmU returns Imm reinterpreted as unsigned, the form most RV32IM handlers
// actually want since every register value in this VM is a uint32.
func (in *Instruction) ImmU() uint32 {
	return uint32(in.Imm)
}

func bits(word uint32, hi, lo uint) uint32 {
	width := hi - lo + 1
	mask := uint32(1)<<width - 1
	return (word >> lo) & mask
}

// signExtend sign-extends the low `width` bits of v to a full int32.
func signExtend(v uint32, width uint) int32 {
	shift := 32 - width
	return int32(v<<shift) >> shift
}

// Decode turns a raw 32-bit instruction word into a tagged Instruction.
// Decode is a pure function: it never touches CPU or Memory state.
func Decode(word uint32) (*Instruction, error) {
	opcode := bits(word, 6, 0)
	in := &Instruction{
		Raw:    word,
		Opcode: opcode,
		Funct3: bits(word, 14, 12),
		Funct7: bits(word, 31, 25),
		Rd:     int(bits(word, 11, 7)),
		Rs1:    int(bits(word, 19, 15)),
		Rs2:    int(bits(word, 24, 20)),
	}

	switch opcode {
	case OpcodeRArith:
		in.Class = ClassR
		// no immediate

	case OpcodeIArith, OpcodeLoad, OpcodeJALR:
		if opcode == OpcodeLoad {
			in.Class = ClassILoad
		} else if opcode == OpcodeJALR {
			in.Class = ClassIJump
		} else {
			in.Class = ClassIArith
		}
		in.Imm = signExtend(bits(word, 31, 20), 12)

	case OpcodeSYSTEM:
		in.Class = ClassISystem
		in.Imm = signExtend(bits(word, 31, 20), 12)

	case OpcodeStore:
		in.Class = ClassS
		imm := (bits(word, 31, 25) << 5) | bits(word, 11, 7)
		in.Imm = signExtend(imm, 12)

	case OpcodeBranch:
		in.Class = ClassB
		imm := (bits(word, 31, 31) << 12) |
			(bits(word, 7, 7) << 11) |
			(bits(word, 30, 25) << 5) |
			(bits(word, 11, 8) << 1)
		in.Imm = signExtend(imm, 13)

	case OpcodeLUI, OpcodeAUIPC:
		in.Class = ClassU
		in.Imm = int32(bits(word, 31, 12) << 12)

	case OpcodeJAL:
		in.Class = ClassJ
		imm := (bits(word, 31, 31) << 20) |
			(bits(word, 19, 12) << 12) |
			(bits(word, 20, 20) << 11) |
			(bits(word, 30, 21) << 1)
		in.Imm = signExtend(imm, 21)

	default:
		return nil, &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("unknown opcode 0x%02X (word 0x%08X)", opcode, word)}
	}

	return in, nil
}

// ShiftImmediate extracts shamt and the SRAI/SRLI-distinguishing bit from an
// I-arith shift instruction's immediate, per spec.md §4.D.
func (in *Instruction) ShiftImmediate() (shamt uint32, arithmetic bool) {
	u := in.ImmU()
	return u & 0x1F, (u>>10)&1 == 1
}
