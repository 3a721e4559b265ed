package vm

import "fmt"

// ExecuteLoad executes LB/LH/LW/LBU/LHU. Effective address is rs1+imm, per
// spec.md §4.E; out-of-range accesses fail LoadFault.
func ExecuteLoad(v *VM, in *Instruction) error {
	addr := v.CPU.GetRegister(in.Rs1) + in.ImmU()

	var result uint32
	switch in.Funct3 {
	case Funct3LB:
		b, err := v.Memory.ReadU8(addr)
		if err != nil {
			return loadFault(addr, err)
		}
		result = uint32(int32(int8(b)))
	case Funct3LH:
		h, err := v.Memory.ReadU16(addr)
		if err != nil {
			return loadFault(addr, err)
		}
		result = uint32(int32(int16(h)))
	case Funct3LW:
		w, err := v.Memory.ReadU32(addr)
		if err != nil {
			return loadFault(addr, err)
		}
		result = w
	case Funct3LBU:
		b, err := v.Memory.ReadU8(addr)
		if err != nil {
			return loadFault(addr, err)
		}
		result = uint32(b)
	case Funct3LHU:
		h, err := v.Memory.ReadU16(addr)
		if err != nil {
			return loadFault(addr, err)
		}
		result = uint32(h)
	default:
		return &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("load funct3=0x%X", in.Funct3)}
	}

	v.CPU.SetRegister(in.Rd, result)
	v.CPU.IncrementPC()
	return nil
}

// ExecuteStore executes SB/SH/SW. Effective address is rs1+imm; out-of-range
// accesses fail StoreFault.
func ExecuteStore(v *VM, in *Instruction) error {
	addr := v.CPU.GetRegister(in.Rs1) + in.ImmU()
	value := v.CPU.GetRegister(in.Rs2)

	var err error
	switch in.Funct3 {
	case Funct3SB:
		err = v.Memory.WriteU8(addr, uint8(value))
	case Funct3SH:
		err = v.Memory.WriteU16(addr, uint16(value))
	case Funct3SW:
		err = v.Memory.WriteU32(addr, value)
	default:
		return &Fault{Kind: FaultIllegalInstruction, Err: fmt.Errorf("store funct3=0x%X", in.Funct3)}
	}
	if err != nil {
		return storeFault(addr, err)
	}

	v.CPU.IncrementPC()
	return nil
}

func loadFault(addr uint32, cause error) error {
	return &Fault{Kind: FaultLoad, Err: fmt.Errorf("load at 0x%08X: %w", addr, cause)}
}

func storeFault(addr uint32, cause error) error {
	return &Fault{Kind: FaultStore, Err: fmt.Errorf("store at 0x%08X: %w", addr, cause)}
}
