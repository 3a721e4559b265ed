package hostos

import (
	"context"
	"net"
	"testing"
	"time"
)

func TestLocalClientDispatchesDirectly(t *testing.T) {
	server := NewServer(3, 32)
	client := NewLocalClient(server)

	resp := client.Do(context.Background(), Request{Syscall: Reset})
	if resp.Status != StatusOK {
		t.Fatalf("status = %d, want %d", resp.Status, StatusOK)
	}
}

func TestLocalClientHonoursCancelledContext(t *testing.T) {
	server := NewServer(3, 32)
	client := NewLocalClient(server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := client.Do(ctx, Request{Syscall: Reset})
	if resp.Status != StatusError {
		t.Fatalf("status = %d, want %d (FailedResponse)", resp.Status, StatusError)
	}
}

func TestPipeBridgeRoundTrip(t *testing.T) {
	server := NewServer(3, 32)
	client, stop := NewPipeBridge(server, time.Second)
	defer stop()

	resp := client.Do(context.Background(), Request{Syscall: Reset})
	if resp.Status != StatusOK {
		t.Fatalf("status = %d, want %d", resp.Status, StatusOK)
	}
}

func TestConnClientDeadlineExpiryReturnsFailedResponse(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	client := NewConnClient(clientConn, 10*time.Millisecond)
	// Nothing ever reads serverConn, so the round-trip must time out.
	resp := client.Do(context.Background(), Request{Syscall: Reset})
	if resp.Status != StatusError {
		t.Fatalf("status = %d, want %d (FailedResponse on timeout)", resp.Status, StatusError)
	}
}

func TestConnClientRequestResponseOverRealConn(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	server := NewServer(3, 32)
	go server.Serve(listener)
	defer server.Close()

	conn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	client := NewConnClient(conn, time.Second)
	resp := client.Do(context.Background(), Request{Syscall: Reset})
	if resp.Status != StatusOK {
		t.Fatalf("status = %d, want %d", resp.Status, StatusOK)
	}
}
