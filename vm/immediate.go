package vm

import "fmt"

// ExecuteIArith executes an I-type immediate arithmetic instruction:
// ADDI/SLTI/SLTIU/XORI/ORI/ANDI/SLLI/SRLI/SRAI, per spec.md §4.E.
func ExecuteIArith(v *VM, in *Instruction) error {
	a := v.CPU.GetRegister(in.Rs1)
	imm := in.ImmU()

	var result uint32

	switch in.Funct3 {
	case Funct3AddSub: // ADDI
		result = a + imm
	case Funct3SLT: // SLTI, signed
		if int32(a) < in.Imm {
			result = 1
		}
	case Funct3SLTU: // SLTIU: sign-extend imm then compare unsigned
		if a < imm {
			result = 1
		}
	case Funct3XOR: // XORI
		result = a ^ imm
	case Funct3OR: // ORI
		result = a | imm
	case Funct3AND: // ANDI
		result = a & imm
	case Funct3SLL: // SLLI
		shamt, _ := in.ShiftImmediate()
		result = a << shamt
	case Funct3SRxx: // SRLI/SRAI
		shamt, arithmetic := in.ShiftImmediate()
		if arithmetic {
			result = uint32(int32(a) >> shamt)
		} else {
			result = a >> shamt
		}
	default:
		return &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("I-arith funct3=0x%X", in.Funct3)}
	}

	v.CPU.SetRegister(in.Rd, result)
	v.CPU.IncrementPC()
	return nil
}
