package hostos

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single request/response frame, guarding the server
// against a guest requesting an absurd READ/WRITE count.
const MaxFrameSize = 16 << 20

// WriteFrame writes a u32-length-prefixed frame: `u32 len | payload`. This
// is the stream-transport envelope around the Request/Response encodings in
// protocol.go; it is what actually crosses a net.Conn.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("hostos: write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("hostos: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame written by WriteFrame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("hostos: read frame length: %w", err)
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("hostos: frame length %d exceeds maximum %d", n, MaxFrameSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("hostos: read frame payload: %w", err)
	}
	return payload, nil
}
