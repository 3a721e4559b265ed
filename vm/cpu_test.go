package vm

import "testing"

func TestZeroRegisterAlwaysReadsZero(t *testing.T) {
	c := NewCPU()
	c.SetRegister(Zero, 0xFFFFFFFF)
	if got := c.GetRegister(Zero); got != 0 {
		t.Fatalf("X0 = 0x%X, want 0", got)
	}
}

func TestRegisterWriteReadRoundTrip(t *testing.T) {
	c := NewCPU()
	c.SetRegister(T0, 192)
	if got := c.GetRegister(T0); got != 192 {
		t.Fatalf("X%d = %d, want 192", T0, got)
	}
}

func TestIncrementPC(t *testing.T) {
	c := NewCPU()
	c.SetPC(100)
	c.IncrementPC()
	if c.PC != 104 {
		t.Fatalf("PC = %d, want 104", c.PC)
	}
}
