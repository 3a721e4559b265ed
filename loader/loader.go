// Package loader decodes guest programs into VM memory, spec.md §4.G.
// It is an external collaborator: the VM exposes only the memory range
// write it needs and never parses hex or YAML itself.
package loader

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rv32im/emulator/vm"
)

// LoadError reports a rejected program: bad hex digits, odd-length input,
// or a malformed manifest. Memory is left untouched when this is returned.
type LoadError struct {
	Reason string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loader: %s", e.Reason)
}

// LoadHex decodes hex into bytes and writes them sequentially starting at
// base, per spec.md §4.G. ASCII whitespace in hex is stripped before
// decoding; an odd-length result or a non-hex digit fails with LoadError
// and leaves mem untouched.
func LoadHex(mem *vm.Memory, hex string, base uint32) error {
	stripped := stripASCIIWhitespace(hex)
	if len(stripped)%2 != 0 {
		return &LoadError{Reason: fmt.Sprintf("hex string has odd length %d", len(stripped))}
	}

	data := make([]byte, len(stripped)/2)
	for i := 0; i < len(data); i++ {
		hi, ok := hexDigit(stripped[2*i])
		if !ok {
			return &LoadError{Reason: fmt.Sprintf("invalid hex digit %q at offset %d", stripped[2*i], 2*i)}
		}
		lo, ok := hexDigit(stripped[2*i+1])
		if !ok {
			return &LoadError{Reason: fmt.Sprintf("invalid hex digit %q at offset %d", stripped[2*i+1], 2*i+1)}
		}
		data[i] = hi<<4 | lo
	}

	if err := mem.WriteRange(base, data); err != nil {
		return &LoadError{Reason: fmt.Sprintf("write range at 0x%X: %v", base, err)}
	}
	return nil
}

// LoadHexFile reads path and loads it as a hex string at base.
func LoadHexFile(mem *vm.Memory, path string, base uint32) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("loader: read %q: %w", path, err)
	}
	return LoadHex(mem, string(buf), base)
}

func stripASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// Manifest is a YAML-described batch of named programs, supplementing
// spec.md §4.G's single hex_string/base pair with a way to load several
// demo or test programs from one file (cmd line: -manifest manifest.yaml -name NAME).
type Manifest struct {
	Programs []ManifestProgram `yaml:"programs"`
}

// ManifestProgram names one program entry in a Manifest.
type ManifestProgram struct {
	Name string `yaml:"name"`
	Hex  string `yaml:"hex"`
	Base uint32 `yaml:"base"`
}

// LoadManifest parses a YAML manifest from buf.
func LoadManifest(buf []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(buf, &m); err != nil {
		return nil, fmt.Errorf("loader: parse manifest: %w", err)
	}
	return &m, nil
}

// LoadManifestFile reads and parses a YAML manifest from path.
func LoadManifestFile(path string) (*Manifest, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %q: %w", path, err)
	}
	return LoadManifest(buf)
}

// Find returns the named program, or an error if no entry matches.
func (m *Manifest) Find(name string) (ManifestProgram, error) {
	for _, p := range m.Programs {
		if p.Name == name {
			return p, nil
		}
	}
	return ManifestProgram{}, fmt.Errorf("loader: no program named %q in manifest", name)
}

// LoadProgram decodes p.Hex into mem at p.Base.
func LoadProgram(mem *vm.Memory, p ManifestProgram) error {
	return LoadHex(mem, p.Hex, p.Base)
}
