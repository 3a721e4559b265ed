package vm

import (
	"bytes"
	"testing"
)

func newTestVM(t *testing.T, memSize uint32) *VM {
	t.Helper()
	cfg := DefaultConfig()
	cfg.MemSize = memSize
	return New(cfg, nil, &bytes.Buffer{})
}

func loadWord(t *testing.T, v *VM, addr uint32, word uint32) {
	t.Helper()
	if err := v.Memory.WriteU32(addr, word); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}
}

// Scenario 1: add t2, t0, t1 -> R[t2]=192, PC=4.
func TestScenarioAdd(t *testing.T) {
	v := newTestVM(t, 256)
	v.CPU.SetRegister(T0, 64)
	v.CPU.SetRegister(T1, 128)
	loadWord(t, v, 0, 0x006283B3)

	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(T2); got != 192 {
		t.Fatalf("t2 = %d, want 192", got)
	}
	if v.CPU.PC != 4 {
		t.Fatalf("PC = %d, want 4", v.CPU.PC)
	}
}

// Scenario 2: sub t2, t0, t1 with t1 = 0xFFFFFF80 wraps to 0xC0.
func TestScenarioSubWrapping(t *testing.T) {
	v := newTestVM(t, 256)
	v.CPU.SetRegister(T0, 64)
	v.CPU.SetRegister(T1, 0xFFFFFF80)
	loadWord(t, v, 0, 0x406283B3)

	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(T2); got != 0xC0 {
		t.Fatalf("t2 = 0x%X, want 0xC0", got)
	}
}

// Scenario 3: jal t0, 0x100 -> R[t0]=4, PC=0x100.
func TestScenarioJAL(t *testing.T) {
	v := newTestVM(t, 4096)
	loadWord(t, v, 0, 0x100002EF)

	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(T0); got != 4 {
		t.Fatalf("t0 = %d, want 4", got)
	}
	if v.CPU.PC != 0x100 {
		t.Fatalf("PC = 0x%X, want 0x100", v.CPU.PC)
	}
}

// Scenario 4: beq t0,t1, 0x20 taken -> PC=0x20.
func TestScenarioBEQTaken(t *testing.T) {
	v := newTestVM(t, 4096)
	v.CPU.SetRegister(T0, 2)
	v.CPU.SetRegister(T1, 2)
	loadWord(t, v, 0, 0x02628063)

	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if v.CPU.PC != 0x20 {
		t.Fatalf("PC = 0x%X, want 0x20", v.CPU.PC)
	}
}

// Scenario 5: ecall PRINT writes "ClickHouse!" to the console, PC=4.
func TestScenarioECallPrint(t *testing.T) {
	v := newTestVM(t, 256)
	console := &bytes.Buffer{}
	v.Console = console

	msg := []byte("ClickHouse!")
	if err := v.Memory.WriteRange(128, msg); err != nil {
		t.Fatalf("WriteRange: %v", err)
	}
	v.CPU.SetRegister(A0, 128)
	v.CPU.SetRegister(A1, uint32(len(msg)))
	v.CPU.SetRegister(A7, SyscallPrint)
	loadWord(t, v, 0, 0x00000073) // ecall

	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if console.String() != "ClickHouse!" {
		t.Fatalf("console = %q, want %q", console.String(), "ClickHouse!")
	}
	if v.CPU.PC != 4 {
		t.Fatalf("PC = %d, want 4", v.CPU.PC)
	}
	if got := v.CPU.GetRegister(A0); got != 0 {
		t.Fatalf("a0 = %d, want 0", got)
	}
}

// Scenario 6: sra t2,t0,t1 -> ((int32)64 >> 3) = 8.
func TestScenarioSRA(t *testing.T) {
	v := newTestVM(t, 256)
	v.CPU.SetRegister(T0, 64)
	v.CPU.SetRegister(T1, 3)
	loadWord(t, v, 0, 0x4062D3B3)

	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(T2); got != 8 {
		t.Fatalf("t2 = %d, want 8", got)
	}
}

// Scenario 7: blt t0,t1, 0x20 with t0 = -100 (signed), t1 = 10 -> taken.
func TestScenarioBLTSigned(t *testing.T) {
	v := newTestVM(t, 4096)
	v.CPU.SetRegister(T0, 0xFFFFFF9C) // -100
	v.CPU.SetRegister(T1, 10)
	loadWord(t, v, 0, 0x0262C063)

	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if v.CPU.PC != 0x20 {
		t.Fatalf("PC = 0x%X, want 0x20", v.CPU.PC)
	}
}

func TestZeroRegisterUnaffectedByStep(t *testing.T) {
	v := newTestVM(t, 256)
	// addi x0, x0, 5 -- targets the zero register.
	loadWord(t, v, 0, 0x00500013)
	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(Zero); got != 0 {
		t.Fatalf("X0 = %d, want 0 (write must be a no-op)", got)
	}
}

func TestDivByZero(t *testing.T) {
	v := newTestVM(t, 256)
	v.CPU.SetRegister(T0, 42)
	v.CPU.SetRegister(T1, 0)
	// div t2, t0, t1
	loadWord(t, v, 0, 0x0262C3B3)
	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(T2); got != 0xFFFFFFFF {
		t.Fatalf("DIV(x,0) = 0x%X, want 0xFFFFFFFF", got)
	}
}

func TestRemByZero(t *testing.T) {
	v := newTestVM(t, 256)
	v.CPU.SetRegister(T0, 42)
	v.CPU.SetRegister(T1, 0)
	// rem t2, t0, t1
	loadWord(t, v, 0, 0x0262E3B3)
	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(T2); got != 42 {
		t.Fatalf("REM(x,0) = %d, want 42", got)
	}
}

func TestDivOverflow(t *testing.T) {
	v := newTestVM(t, 256)
	v.CPU.SetRegister(T0, 0x80000000) // INT_MIN
	v.CPU.SetRegister(T1, 0xFFFFFFFF) // -1
	loadWord(t, v, 0, 0x0262C3B3) // div t2, t0, t1
	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := v.CPU.GetRegister(T2); got != 0x80000000 {
		t.Fatalf("DIV(INT_MIN,-1) = 0x%X, want 0x80000000", got)
	}
}

func TestEBREAKHalts(t *testing.T) {
	v := newTestVM(t, 256)
	loadWord(t, v, 0, 0x00100073) // ebreak
	err := v.Step()
	if err == nil {
		t.Fatal("expected Break fault from EBREAK")
	}
	if !IsBreak(err) {
		t.Fatalf("expected IsBreak(err) true, got err=%v", err)
	}
}

func TestFetchOutOfBoundsFault(t *testing.T) {
	v := newTestVM(t, 4)
	v.CPU.SetPC(100)
	err := v.Step()
	if err == nil {
		t.Fatal("expected FetchFault for out-of-range PC")
	}
	kind, ok := KindOf(err)
	if !ok || kind != FaultFetch {
		t.Fatalf("kind = %v (ok=%v), want FaultFetch", kind, ok)
	}
}

func TestUnknownECALLReturnsMinusOne(t *testing.T) {
	v := newTestVM(t, 256)
	v.CPU.SetRegister(A7, 0xBEEF)
	loadWord(t, v, 0, 0x00000073)
	if err := v.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if got := int32(v.CPU.GetRegister(A0)); got != -1 {
		t.Fatalf("a0 = %d, want -1", got)
	}
	if v.CPU.PC != 4 {
		t.Fatalf("PC = %d, want 4", v.CPU.PC)
	}
}
