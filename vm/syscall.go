package vm

import (
	"time"

	"github.com/rv32im/emulator/hostos"
)

// Built-in syscall numbers handled directly by the VM (never reach HostOS),
// spec.md §4.F.
const (
	SyscallPrint = 0x01
	SyscallDraw  = 0x02
)

// a0Error is hostos.StatusError (-1) as the two's-complement value a0 holds.
const a0Error = ^uint32(0)

// dispatchECALL classifies R[a7] into a built-in (PRINT/DRAW) or a HostOS
// service, marshals arguments, and places the return value in a0. It never
// adjusts PC; the caller (executeSystem) advances PC by 4 after this
// returns, matching spec.md §4.E.
func (v *VM) dispatchECALL() {
	syscallNo := v.CPU.GetRegister(A7)

	switch syscallNo {
	case SyscallPrint:
		v.handlePrint()
	case SyscallDraw:
		v.handleDraw()
	case hostos.Reset, hostos.Open, hostos.Close, hostos.Seek, hostos.Read, hostos.Write, hostos.Socket:
		v.handleHostOS(syscallNo)
	default:
		// Unrecognised a7: a0 = -1, no HostOS state mutated, per spec.md
		// §4.F and the Open Question it resolves in Design Notes §9.
		v.CPU.SetRegister(A0, a0Error)
	}
}

func (v *VM) handlePrint() {
	ptr := v.CPU.GetRegister(A0)
	length := v.CPU.GetRegister(A1)

	data, err := v.Memory.ReadRange(ptr, length)
	if err != nil {
		v.CPU.SetRegister(A0, a0Error)
		return
	}
	if v.Console != nil {
		_, _ = v.Console.Write(data)
	}
	v.CPU.SetRegister(A0, hostos.StatusOK)
}

func (v *VM) handleDraw() {
	data, err := v.Memory.ReadRange(v.VRAMAddr, v.VRAMSize)
	if err != nil {
		v.CPU.SetRegister(A0, a0Error)
		return
	}
	if v.FrameSink != nil {
		v.FrameSink(Frame{Data: data, Timestamp: time.Now()})
	}
	v.CPU.SetRegister(A0, hostos.StatusOK)
}

func (v *VM) handleHostOS(syscallNo uint32) {
	if v.Host == nil {
		v.CPU.SetRegister(A0, a0Error)
		return
	}

	a0 := v.CPU.GetRegister(A0)
	a1 := v.CPU.GetRegister(A1)
	a2 := v.CPU.GetRegister(A2)

	var req hostos.Request
	switch syscallNo {
	case hostos.Reset:
		req = hostos.Request{Syscall: syscallNo}

	case hostos.Open:
		path, err := v.readCString(a0, a1)
		if err != nil {
			v.CPU.SetRegister(A0, a0Error)
			return
		}
		req = hostos.Request{Syscall: syscallNo, Payload: hostos.EncodeOpenPayload(path, a2)}

	case hostos.Close:
		req = hostos.Request{Syscall: syscallNo, Payload: hostos.EncodeCloseOrFDPayload(int32(a0))}

	case hostos.Seek:
		req = hostos.Request{Syscall: syscallNo, Payload: hostos.EncodeSeekPayload(int32(a0), int32(a1), int32(a2))}

	case hostos.Read:
		req = hostos.Request{Syscall: syscallNo, Payload: hostos.EncodeReadPayload(int32(a0), a2)}

	case hostos.Write:
		data, err := v.Memory.ReadRange(a1, a2)
		if err != nil {
			v.CPU.SetRegister(A0, a0Error)
			return
		}
		req = hostos.Request{Syscall: syscallNo, Payload: hostos.EncodeWritePayload(int32(a0), data)}

	case hostos.Socket:
		addr, err := v.readCStringNulTerminated(a0)
		if err != nil {
			v.CPU.SetRegister(A0, a0Error)
			return
		}
		req = hostos.Request{Syscall: syscallNo, Payload: hostos.EncodeSocketPayload(addr)}
	}

	ctx, cancel := v.callContext()
	defer cancel()
	resp := v.Host.Do(ctx, req)

	if syscallNo == hostos.Read && resp.Status > 0 && len(resp.Payload) > 0 {
		if err := v.Memory.WriteRange(a1, resp.Payload); err != nil {
			v.CPU.SetRegister(A0, a0Error)
			return
		}
	}

	v.CPU.SetRegister(A0, uint32(resp.Status))
}

// readCString reads a path of the given length from ptr. OPEN's path may
// also arrive NUL-terminated (len == 0 signals "read until NUL"), per
// spec.md §4.F's "a1=path_len (or NUL-terminated)".
func (v *VM) readCString(ptr, length uint32) (string, error) {
	if length == 0 {
		return v.readCStringNulTerminated(ptr)
	}
	data, err := v.Memory.ReadRange(ptr, length)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (v *VM) readCStringNulTerminated(ptr uint32) (string, error) {
	var out []byte
	for addr := ptr; addr < v.Memory.Size(); addr++ {
		b, err := v.Memory.ReadU8(addr)
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
	return string(out), nil
}
