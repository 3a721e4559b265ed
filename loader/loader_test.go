package loader

import (
	"testing"

	"github.com/rv32im/emulator/vm"
)

func TestLoadHexWritesBytesSequentially(t *testing.T) {
	mem := vm.NewMemory(64)
	if err := LoadHex(mem, "B3836200", 0); err != nil {
		t.Fatalf("LoadHex: %v", err)
	}
	word, err := mem.ReadU32(0)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if word != 0x006283B3 {
		t.Fatalf("word = 0x%X, want 0x006283B3", word)
	}
}

func TestLoadHexStripsWhitespace(t *testing.T) {
	mem := vm.NewMemory(64)
	if err := LoadHex(mem, "B3 83\t62\n00", 0); err != nil {
		t.Fatalf("LoadHex: %v", err)
	}
	word, err := mem.ReadU32(0)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if word != 0x006283B3 {
		t.Fatalf("word = 0x%X, want 0x006283B3", word)
	}
}

func TestLoadHexAtNonzeroBase(t *testing.T) {
	mem := vm.NewMemory(64)
	if err := LoadHex(mem, "AABB", 10); err != nil {
		t.Fatalf("LoadHex: %v", err)
	}
	b0, _ := mem.ReadU8(10)
	b1, _ := mem.ReadU8(11)
	if b0 != 0xAA || b1 != 0xBB {
		t.Fatalf("got %02X %02X, want AA BB", b0, b1)
	}
}

func TestLoadHexOddLengthFails(t *testing.T) {
	mem := vm.NewMemory(64)
	err := LoadHex(mem, "ABC", 0)
	if err == nil {
		t.Fatal("expected LoadError for odd-length hex")
	}
	if _, ok := err.(*LoadError); !ok {
		t.Fatalf("err type = %T, want *LoadError", err)
	}
}

func TestLoadHexInvalidDigitFails(t *testing.T) {
	mem := vm.NewMemory(64)
	err := LoadHex(mem, "ZZ", 0)
	if err == nil {
		t.Fatal("expected LoadError for a non-hex digit")
	}
}

func TestLoadHexOutOfBoundsFails(t *testing.T) {
	mem := vm.NewMemory(4)
	err := LoadHex(mem, "AABBCCDDEE", 0)
	if err == nil {
		t.Fatal("expected LoadError when the decoded bytes overrun memory")
	}
}

func TestManifestFindAndLoad(t *testing.T) {
	yamlSrc := []byte(`
programs:
  - name: add
    hex: "B3836200"
    base: 0
  - name: jal
    hex: "EF029010"
    base: 256
`)
	m, err := LoadManifest(yamlSrc)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	p, err := m.Find("add")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if p.Hex != "B3836200" || p.Base != 0 {
		t.Fatalf("got %+v", p)
	}

	mem := vm.NewMemory(512)
	if err := LoadProgram(mem, p); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	word, err := mem.ReadU32(0)
	if err != nil {
		t.Fatalf("ReadU32: %v", err)
	}
	if word != 0x006283B3 {
		t.Fatalf("word = 0x%X, want 0x006283B3", word)
	}
}

func TestManifestFindMissingNameFails(t *testing.T) {
	m := &Manifest{}
	if _, err := m.Find("nope"); err == nil {
		t.Fatal("expected error for a missing manifest entry")
	}
}
