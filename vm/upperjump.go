package vm

// ExecuteLUI loads the U-immediate (already shifted into place by the
// decoder) directly into rd.
func ExecuteLUI(v *VM, in *Instruction) error {
	v.CPU.SetRegister(in.Rd, in.ImmU())
	v.CPU.IncrementPC()
	return nil
}

// ExecuteAUIPC writes PC+imm into rd.
func ExecuteAUIPC(v *VM, in *Instruction) error {
	v.CPU.SetRegister(in.Rd, v.CPU.PC+in.ImmU())
	v.CPU.IncrementPC()
	return nil
}

// ExecuteJAL writes the return address (PC+4) into rd, then jumps to PC+imm.
func ExecuteJAL(v *VM, in *Instruction) error {
	link := v.CPU.PC + InstructionWidth
	v.CPU.SetPC(v.CPU.PC + in.ImmU())
	v.CPU.SetRegister(in.Rd, link)
	return nil
}

// ExecuteJALR writes the return address (PC+4) into rd, then jumps to
// (rs1+imm) with the low bit cleared.
func ExecuteJALR(v *VM, in *Instruction) error {
	link := v.CPU.PC + InstructionWidth
	target := (v.CPU.GetRegister(in.Rs1) + in.ImmU()) &^ 1
	v.CPU.SetPC(target)
	v.CPU.SetRegister(in.Rd, link)
	return nil
}
