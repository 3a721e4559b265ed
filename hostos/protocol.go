// Package hostos implements the host bridge named in spec.md §4.F-I: a
// length-prefixed request/response codec plus the server that owns host
// file descriptors and UDP pipes on the guest's behalf.
package hostos

import (
	"encoding/binary"
	"fmt"
)

// Syscall numbers routed to HostOS, spec.md §4.F. PRINT and DRAW are handled
// directly by the VM's ECALL dispatcher and never reach this package.
const (
	Reset  = 0x00
	Open   = 0x0A
	Close  = 0x0B
	Seek   = 0x0C
	Read   = 0x0D
	Write  = 0x0E
	Socket = 0x0F

	// Failed is a reserved sentinel syscall number. Synthesised failure
	// responses (FailedResponse) do not carry it: they are plain
	// StatusError responses.
	Failed = 0xDEAD
)

// Guest-visible status codes that are not plain byte counts.
const (
	StatusOK     = 0
	StatusError  = -1
	StatusEAGAIN = -64
)

// Seek whence values, mirroring POSIX lseek semantics.
const (
	SeekSet = 0
	SeekCur = 1
	SeekEnd = 2
)

// Request is a decoded HostOS request: the syscall number plus a payload
// that each call interprets differently (see EncodeRequest/DecodeRequest).
type Request struct {
	Syscall uint32
	Payload []byte
}

// Response is a decoded HostOS response: a signed status plus optional
// payload bytes (only READ returns a non-empty payload).
type Response struct {
	Status  int32
	Payload []byte
}

// EncodeRequest serialises a Request as `u32 syscall_no | payload`,
// little-endian, per spec.md §6.
func EncodeRequest(req Request) []byte {
	buf := make([]byte, 4+len(req.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], req.Syscall)
	copy(buf[4:], req.Payload)
	return buf
}

// DecodeRequest parses a buffer produced by EncodeRequest.
func DecodeRequest(buf []byte) (Request, error) {
	if len(buf) < 4 {
		return Request{}, fmt.Errorf("hostos: request too short (%d bytes)", len(buf))
	}
	return Request{
		Syscall: binary.LittleEndian.Uint32(buf[0:4]),
		Payload: buf[4:],
	}, nil
}

// EncodeResponse serialises a Response as `i32 status | bytes`.
func EncodeResponse(resp Response) []byte {
	buf := make([]byte, 4+len(resp.Payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(resp.Status))
	copy(buf[4:], resp.Payload)
	return buf
}

// DecodeResponse parses a buffer produced by EncodeResponse.
func DecodeResponse(buf []byte) (Response, error) {
	if len(buf) < 4 {
		return Response{}, fmt.Errorf("hostos: response too short (%d bytes)", len(buf))
	}
	return Response{
		Status:  int32(binary.LittleEndian.Uint32(buf[0:4])),
		Payload: buf[4:],
	}, nil
}

// FailedResponse is the canned response synthesised when a transport call
// fails outright (timeout, connection reset, etc): the guest observes
// a0 = -1 and nothing about HostOS state changes.
func FailedResponse() Response {
	return Response{Status: StatusError}
}

// -- Payload helpers -----------------------------------------------------
//
// These encode/decode the fixed-width-fields-plus-bytes payload shapes
// spec.md §6 defines per call. They are pure and shared by both the client
// (vm/syscall.go, building requests) and the server (request dispatch).

// EncodeOpenPayload builds the OPEN payload: `cstr path | u32 flags`.
func EncodeOpenPayload(path string, flags uint32) []byte {
	buf := make([]byte, len(path)+1+4)
	copy(buf, path)
	buf[len(path)] = 0
	binary.LittleEndian.PutUint32(buf[len(path)+1:], flags)
	return buf
}

// DecodeOpenPayload parses an OPEN payload.
func DecodeOpenPayload(buf []byte) (path string, flags uint32, err error) {
	nul := indexByte(buf, 0)
	if nul < 0 {
		return "", 0, fmt.Errorf("hostos: OPEN payload missing NUL-terminated path")
	}
	if len(buf) < nul+1+4 {
		return "", 0, fmt.Errorf("hostos: OPEN payload truncated")
	}
	path = string(buf[:nul])
	flags = binary.LittleEndian.Uint32(buf[nul+1 : nul+5])
	return path, flags, nil
}

// EncodeCloseOrFDPayload builds a payload carrying a single `i32 fd`, used
// by CLOSE.
func EncodeCloseOrFDPayload(fd int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(fd))
	return buf
}

// DecodeCloseOrFDPayload parses a single-fd payload.
func DecodeCloseOrFDPayload(buf []byte) (fd int32, err error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("hostos: fd payload truncated")
	}
	return int32(binary.LittleEndian.Uint32(buf[0:4])), nil
}

// EncodeSeekPayload builds the SEEK payload: `i32 fd | i32 offset | i32 whence`.
func EncodeSeekPayload(fd, offset, whence int32) []byte {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(fd))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(offset))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(whence))
	return buf
}

// DecodeSeekPayload parses a SEEK payload.
func DecodeSeekPayload(buf []byte) (fd, offset, whence int32, err error) {
	if len(buf) < 12 {
		return 0, 0, 0, fmt.Errorf("hostos: SEEK payload truncated")
	}
	fd = int32(binary.LittleEndian.Uint32(buf[0:4]))
	offset = int32(binary.LittleEndian.Uint32(buf[4:8]))
	whence = int32(binary.LittleEndian.Uint32(buf[8:12]))
	return fd, offset, whence, nil
}

// EncodeReadPayload builds the READ payload: `i32 fd | u32 count`.
func EncodeReadPayload(fd int32, count uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(fd))
	binary.LittleEndian.PutUint32(buf[4:8], count)
	return buf
}

// DecodeReadPayload parses a READ payload.
func DecodeReadPayload(buf []byte) (fd int32, count uint32, err error) {
	if len(buf) < 8 {
		return 0, 0, fmt.Errorf("hostos: READ payload truncated")
	}
	fd = int32(binary.LittleEndian.Uint32(buf[0:4]))
	count = binary.LittleEndian.Uint32(buf[4:8])
	return fd, count, nil
}

// EncodeWritePayload builds the WRITE payload: `i32 fd | bytes`.
func EncodeWritePayload(fd int32, data []byte) []byte {
	buf := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(fd))
	copy(buf[4:], data)
	return buf
}

// DecodeWritePayload parses a WRITE payload.
func DecodeWritePayload(buf []byte) (fd int32, data []byte, err error) {
	if len(buf) < 4 {
		return 0, nil, fmt.Errorf("hostos: WRITE payload truncated")
	}
	fd = int32(binary.LittleEndian.Uint32(buf[0:4]))
	return fd, buf[4:], nil
}

// EncodeSocketPayload builds the SOCKET payload: `cstr address`.
func EncodeSocketPayload(address string) []byte {
	buf := make([]byte, len(address)+1)
	copy(buf, address)
	buf[len(address)] = 0
	return buf
}

// DecodeSocketPayload parses a SOCKET payload.
func DecodeSocketPayload(buf []byte) (address string, err error) {
	nul := indexByte(buf, 0)
	if nul < 0 {
		return "", fmt.Errorf("hostos: SOCKET payload missing NUL-terminated address")
	}
	return string(buf[:nul]), nil
}

func indexByte(buf []byte, b byte) int {
	for i, c := range buf {
		if c == b {
			return i
		}
	}
	return -1
}
