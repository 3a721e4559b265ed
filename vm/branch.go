package vm

import "fmt"

// ExecuteBranch executes BEQ/BNE/BLT/BGE/BLTU/BGEU. If taken, PC += imm;
// otherwise PC advances by 4 as usual, per spec.md §4.E.
func ExecuteBranch(v *VM, in *Instruction) error {
	a := v.CPU.GetRegister(in.Rs1)
	b := v.CPU.GetRegister(in.Rs2)

	var taken bool
	switch in.Funct3 {
	case Funct3BEQ:
		taken = a == b
	case Funct3BNE:
		taken = a != b
	case Funct3BLT:
		taken = int32(a) < int32(b)
	case Funct3BGE:
		taken = int32(a) >= int32(b)
	case Funct3BLTU:
		taken = a < b
	case Funct3BGEU:
		taken = a >= b
	default:
		return &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("branch funct3=0x%X", in.Funct3)}
	}

	if taken {
		v.CPU.SetPC(v.CPU.PC + in.ImmU())
	} else {
		v.CPU.IncrementPC()
	}
	return nil
}
