package vm

import "fmt"

// Memory is the VM's flat, byte-addressable store: a single contiguous
// region [0, Size) backed by a byte slice. Unlike the ARM2 teacher's
// permissioned, named segments, spec.md mandates uniform treatment of every
// address; layout (ROM/RAM/VRAM) is a convention the loaded program imposes,
// not something the VM enforces.
type Memory struct {
	bytes []byte

	AccessCount uint64
	ReadCount   uint64
	WriteCount  uint64
}

// NewMemory allocates a zeroed region of the given size.
func NewMemory(size uint32) *Memory {
	return &Memory{bytes: make([]byte, size)}
}

// Size returns the total number of addressable bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.bytes))
}

func (m *Memory) boundsCheck(addr uint32, width uint32) error {
	if width == 0 {
		return nil
	}
	// addr+width can overflow uint32 for addr near the top of the address
	// space; compare via uint64 to catch that case as OutOfBounds too.
	end := uint64(addr) + uint64(width)
	if end > uint64(len(m.bytes)) {
		return &Fault{Kind: FaultOutOfBounds, Err: fmt.Errorf("address 0x%08X+%d exceeds memory size 0x%08X", addr, width, len(m.bytes))}
	}
	return nil
}

// ReadU8 reads a single byte at addr.
func (m *Memory) ReadU8(addr uint32) (uint8, error) {
	if err := m.boundsCheck(addr, 1); err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	return m.bytes[addr], nil
}

// ReadU16 reads a little-endian halfword at addr.
func (m *Memory) ReadU16(addr uint32) (uint16, error) {
	if err := m.boundsCheck(addr, 2); err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	return uint16(m.bytes[addr]) | uint16(m.bytes[addr+1])<<8, nil
}

// ReadU32 reads a little-endian word at addr.
func (m *Memory) ReadU32(addr uint32) (uint32, error) {
	if err := m.boundsCheck(addr, 4); err != nil {
		return 0, err
	}
	m.AccessCount++
	m.ReadCount++
	return uint32(m.bytes[addr]) |
		uint32(m.bytes[addr+1])<<8 |
		uint32(m.bytes[addr+2])<<16 |
		uint32(m.bytes[addr+3])<<24, nil
}

// WriteU8 writes a single byte at addr.
func (m *Memory) WriteU8(addr uint32, v uint8) error {
	if err := m.boundsCheck(addr, 1); err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	m.bytes[addr] = v
	return nil
}

// WriteU16 writes a little-endian halfword at addr.
func (m *Memory) WriteU16(addr uint32, v uint16) error {
	if err := m.boundsCheck(addr, 2); err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	m.bytes[addr] = byte(v)
	m.bytes[addr+1] = byte(v >> 8)
	return nil
}

// WriteU32 writes a little-endian word at addr.
func (m *Memory) WriteU32(addr uint32, v uint32) error {
	if err := m.boundsCheck(addr, 4); err != nil {
		return err
	}
	m.AccessCount++
	m.WriteCount++
	m.bytes[addr] = byte(v)
	m.bytes[addr+1] = byte(v >> 8)
	m.bytes[addr+2] = byte(v >> 16)
	m.bytes[addr+3] = byte(v >> 24)
	return nil
}

// ReadRange copies length bytes starting at addr, used by ECALL marshalling
// (PRINT, HostOS WRITE) and the DRAW framebuffer publish.
func (m *Memory) ReadRange(addr, length uint32) ([]byte, error) {
	if err := m.boundsCheck(addr, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, m.bytes[addr:addr+length])
	m.AccessCount++
	m.ReadCount++
	return out, nil
}

// WriteRange copies data into memory starting at addr, used by the program
// loader and HostOS READ.
func (m *Memory) WriteRange(addr uint32, data []byte) error {
	if err := m.boundsCheck(addr, uint32(len(data))); err != nil {
		return err
	}
	copy(m.bytes[addr:addr+uint32(len(data))], data)
	m.AccessCount++
	m.WriteCount++
	return nil
}
