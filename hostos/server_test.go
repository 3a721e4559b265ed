package hostos

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDispatchOpenWriteReadClose(t *testing.T) {
	s := NewServer(3, 32)
	path := filepath.Join(t.TempDir(), "guest.bin")

	openResp := s.Dispatch(Request{
		Syscall: Open,
		Payload: EncodeOpenPayload(path, uint32(os.O_RDWR|os.O_CREATE|os.O_TRUNC)),
	})
	if openResp.Status < 0 {
		t.Fatalf("OPEN status = %d, want a non-negative fd", openResp.Status)
	}
	fd := openResp.Status

	writeResp := s.Dispatch(Request{
		Syscall: Write,
		Payload: EncodeWritePayload(fd, []byte("ClickHouse!")),
	})
	if writeResp.Status != int32(len("ClickHouse!")) {
		t.Fatalf("WRITE status = %d, want %d", writeResp.Status, len("ClickHouse!"))
	}

	seekResp := s.Dispatch(Request{
		Syscall: Seek,
		Payload: EncodeSeekPayload(fd, 0, SeekSet),
	})
	if seekResp.Status != 0 {
		t.Fatalf("SEEK status = %d, want 0", seekResp.Status)
	}

	readResp := s.Dispatch(Request{
		Syscall: Read,
		Payload: EncodeReadPayload(fd, 64),
	})
	if string(readResp.Payload) != "ClickHouse!" {
		t.Fatalf("READ payload = %q, want %q", readResp.Payload, "ClickHouse!")
	}

	closeResp := s.Dispatch(Request{
		Syscall: Close,
		Payload: EncodeCloseOrFDPayload(fd),
	})
	if closeResp.Status != StatusOK {
		t.Fatalf("CLOSE status = %d, want %d", closeResp.Status, StatusOK)
	}
}

func TestDispatchUnknownSyscallReturnsError(t *testing.T) {
	s := NewServer(3, 32)
	resp := s.Dispatch(Request{Syscall: 0xFFFF})
	if resp.Status != StatusError {
		t.Fatalf("status = %d, want %d", resp.Status, StatusError)
	}
}

func TestDispatchMalformedPayloadReturnsFailed(t *testing.T) {
	s := NewServer(3, 32)
	resp := s.Dispatch(Request{Syscall: Open, Payload: []byte{1, 2}})
	if resp.Status != StatusError {
		t.Fatalf("status = %d, want %d (FailedResponse)", resp.Status, StatusError)
	}
}

func TestDispatchReadUnknownFDReturnsError(t *testing.T) {
	s := NewServer(3, 32)
	resp := s.Dispatch(Request{Syscall: Read, Payload: EncodeReadPayload(999, 16)})
	if resp.Status != StatusError {
		t.Fatalf("status = %d, want %d", resp.Status, StatusError)
	}
}

func TestDispatchResetClosesDescriptors(t *testing.T) {
	s := NewServer(3, 32)
	path := filepath.Join(t.TempDir(), "guest.bin")
	openResp := s.Dispatch(Request{
		Syscall: Open,
		Payload: EncodeOpenPayload(path, uint32(os.O_RDWR|os.O_CREATE)),
	})
	fd := openResp.Status

	resetResp := s.Dispatch(Request{Syscall: Reset})
	if resetResp.Status != StatusOK {
		t.Fatalf("RESET status = %d, want %d", resetResp.Status, StatusOK)
	}

	readResp := s.Dispatch(Request{Syscall: Read, Payload: EncodeReadPayload(fd, 16)})
	if readResp.Status != StatusError {
		t.Fatalf("READ after RESET status = %d, want %d", readResp.Status, StatusError)
	}
}

func TestDispatchSocketOpensPipe(t *testing.T) {
	conn, addr := newUDPListener(t)
	defer conn.Close()

	s := NewServer(3, 32)
	resp := s.Dispatch(Request{Syscall: Socket, Payload: EncodeSocketPayload(addr)})
	if resp.Status < 0 {
		t.Fatalf("SOCKET status = %d, want a non-negative fd", resp.Status)
	}

	readResp := s.Dispatch(Request{Syscall: Read, Payload: EncodeReadPayload(resp.Status, 16)})
	if readResp.Status != StatusEAGAIN {
		t.Fatalf("READ on empty pipe status = %d, want %d", readResp.Status, StatusEAGAIN)
	}
}
