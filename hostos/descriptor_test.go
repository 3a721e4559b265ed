package hostos

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenFileReadWriteSeekClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.bin")
	table := NewTable(3, 32, nil)

	fd, err := table.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if fd != 3 {
		t.Fatalf("fd = %d, want %d", fd, 3)
	}

	n, err := table.Write(fd, []byte("ClickHouse!"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len("ClickHouse!") {
		t.Fatalf("Write n = %d, want %d", n, len("ClickHouse!"))
	}

	if _, err := table.Seek(fd, 0, SeekSet); err != nil {
		t.Fatalf("Seek: %v", err)
	}

	result, err := table.Read(fd, 64)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(result.Data) != "ClickHouse!" {
		t.Fatalf("Read = %q, want %q", result.Data, "ClickHouse!")
	}
	if result.EAGAIN {
		t.Fatal("file reads must never report EAGAIN")
	}

	if err := table.Close(fd); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := table.Read(fd, 1); err == nil {
		t.Fatal("expected error reading a closed fd")
	}
}

func TestCloseUnknownFD(t *testing.T) {
	table := NewTable(3, 32, nil)
	if err := table.Close(999); err == nil {
		t.Fatal("expected error closing an fd that was never opened")
	}
}

func TestSeekOnPipeFails(t *testing.T) {
	listener, addr := newUDPListener(t)
	defer listener.Close()

	table := NewTable(3, 32, nil)
	fd, err := table.OpenPipe(addr)
	if err != nil {
		t.Fatalf("OpenPipe: %v", err)
	}
	if _, err := table.Seek(fd, 0, SeekSet); err == nil {
		t.Fatal("expected error seeking a pipe descriptor")
	}
}

func TestPipeReadReportsEAGAINWhenEmpty(t *testing.T) {
	listener, addr := newUDPListener(t)
	defer listener.Close()

	table := NewTable(3, 32, nil)
	fd, err := table.OpenPipe(addr)
	if err != nil {
		t.Fatalf("OpenPipe: %v", err)
	}

	result, err := table.Read(fd, 16)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !result.EAGAIN {
		t.Fatal("expected EAGAIN reading an empty pipe queue")
	}
}

func TestPipeWriteAndReceive(t *testing.T) {
	listener, addr := newUDPListener(t)
	defer listener.Close()

	table := NewTable(3, 32, nil)
	fd, err := table.OpenPipe(addr)
	if err != nil {
		t.Fatalf("OpenPipe: %v", err)
	}

	if _, err := table.Write(fd, []byte("ping")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 16)
	if err := listener.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	n, raddr, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}
	if string(buf[:n]) != "ping" {
		t.Fatalf("listener received %q, want %q", buf[:n], "ping")
	}

	if _, err := listener.WriteToUDP([]byte("pong"), raddr); err != nil {
		t.Fatalf("WriteToUDP: %v", err)
	}

	result, err := waitForPipeData(t, table, fd)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(result.Data) != "pong" {
		t.Fatalf("Read = %q, want %q", result.Data, "pong")
	}
}

func TestResetClosesDescriptorsAndPreservesStdin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guest.bin")
	table := NewTable(3, 32, nil)

	fd, err := table.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	table.Reset()

	if _, err := table.Read(fd, 1); err == nil {
		t.Fatal("expected fd opened before Reset to be invalid afterward")
	}
	if _, err := table.get(0); err != nil {
		t.Fatalf("fd 0 must survive Reset: %v", err)
	}

	// Reset must be idempotent.
	table.Reset()
	if _, err := table.get(0); err != nil {
		t.Fatalf("fd 0 must survive a second Reset: %v", err)
	}

	fd2, err := table.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("OpenFile after Reset: %v", err)
	}
	if fd2 != 3 {
		t.Fatalf("fd after Reset = %d, want counter rewound to %d", fd2, 3)
	}
}

func newUDPListener(t *testing.T) (*net.UDPConn, string) {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	return conn, conn.LocalAddr().String()
}

func waitForPipeData(t *testing.T, table *Table, fd int32) (ReadResult, error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		result, err := table.Read(fd, 16)
		if err != nil || !result.EAGAIN {
			return result, err
		}
		time.Sleep(10 * time.Millisecond)
	}
	return ReadResult{}, nil
}
