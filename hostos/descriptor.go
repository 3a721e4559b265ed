package hostos

import (
	"fmt"
	"net"
	"os"
	"sync"
)

// DescriptorKind tags whether a fd refers to a host file or a UDP pipe,
// spec.md §3's "HostOS file descriptor table".
type DescriptorKind int

const (
	KindFile DescriptorKind = iota
	KindPipe
)

// packet is one datagram buffered in a pipe's inbound queue.
type packet struct {
	data []byte
}

// descriptor is the internal representation of one fd. Exactly one of
// file/pipe is populated, selected by Kind.
type descriptor struct {
	kind DescriptorKind

	// KindFile
	file *os.File
	seek int64

	// KindPipe
	conn      *net.UDPConn
	inbound   chan packet
	closeOnce sync.Once
	done      chan struct{}
}

// Table is the descriptor table HostOS owns exclusively, per spec.md §3's
// ownership rule: the VM references descriptors only by integer fd.
type Table struct {
	mu       sync.Mutex
	entries  map[int32]*descriptor
	next     int32
	start    int32
	pipeCap  int
	stdin    *os.File
}

// NewTable creates an empty descriptor table. fd 0 is pre-populated with a
// stdin-like handle, as spec.md §3 requires; new fds are allocated starting
// at start (default DefaultDescriptorStart, avoiding 0/1/2).
func NewTable(start int32, pipeQueueCapacity int, stdin *os.File) *Table {
	if stdin == nil {
		stdin = os.Stdin
	}
	t := &Table{
		entries: make(map[int32]*descriptor),
		next:    start,
		start:   start,
		pipeCap: pipeQueueCapacity,
		stdin:   stdin,
	}
	t.entries[0] = &descriptor{kind: KindFile, file: stdin}
	return t
}

// OpenFile opens or creates a host file and allocates a new fd for it.
func (t *Table) OpenFile(path string, flags int, perm os.FileMode) (int32, error) {
	f, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.next
	t.next++
	t.entries[fd] = &descriptor{kind: KindFile, file: f}
	return fd, nil
}

// OpenPipe dials a UDP endpoint and starts a background receiver draining
// datagrams into a bounded inbound queue, per spec.md §4.I's state machine.
func (t *Table) OpenPipe(address string) (int32, error) {
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return 0, fmt.Errorf("resolve %q: %w", address, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return 0, fmt.Errorf("dial %q: %w", address, err)
	}

	d := &descriptor{
		kind:    KindPipe,
		conn:    conn,
		inbound: make(chan packet, t.pipeCap),
		done:    make(chan struct{}),
	}

	t.mu.Lock()
	fd := t.next
	t.next++
	t.entries[fd] = d
	t.mu.Unlock()

	go d.receiveLoop()

	return fd, nil
}

// receiveLoop is the single producer (SPSC) feeding the inbound queue.
// Excess datagrams are dropped when the queue is full rather than blocking
// the network stack indefinitely.
func (d *descriptor) receiveLoop() {
	buf := make([]byte, 65536)
	for {
		select {
		case <-d.done:
			return
		default:
		}
		n, err := d.conn.Read(buf)
		if err != nil {
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case d.inbound <- packet{data: data}:
		default:
			// Queue full: drop the packet.
		}
	}
}

func (t *Table) get(fd int32) (*descriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.entries[fd]
	if !ok {
		return nil, fmt.Errorf("bad fd %d", fd)
	}
	return d, nil
}

// Seek repositions a file descriptor's offset. Pipes do not support seek.
func (t *Table) Seek(fd int32, offset int64, whence int) (int64, error) {
	d, err := t.get(fd)
	if err != nil {
		return 0, err
	}
	if d.kind != KindFile {
		return 0, fmt.Errorf("fd %d is not seekable", fd)
	}
	pos, err := d.file.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	d.seek = pos
	return pos, nil
}

// ReadResult distinguishes a normal read from the non-blocking
// empty-queue case on a pipe (EAGAIN).
type ReadResult struct {
	Data   []byte
	EAGAIN bool
}

// Read reads up to count bytes from fd. File reads block (bounded by the
// caller's context deadline at the transport layer); pipe reads are always
// non-blocking and report EAGAIN when the queue is empty.
func (t *Table) Read(fd int32, count uint32) (ReadResult, error) {
	d, err := t.get(fd)
	if err != nil {
		return ReadResult{}, err
	}
	switch d.kind {
	case KindFile:
		buf := make([]byte, count)
		n, err := d.file.Read(buf)
		if n > 0 {
			d.seek += int64(n)
		}
		if err != nil && n == 0 {
			return ReadResult{}, err
		}
		return ReadResult{Data: buf[:n]}, nil
	case KindPipe:
		select {
		case p := <-d.inbound:
			if uint32(len(p.data)) > count {
				p.data = p.data[:count]
			}
			return ReadResult{Data: p.data}, nil
		default:
			return ReadResult{EAGAIN: true}, nil
		}
	default:
		return ReadResult{}, fmt.Errorf("unknown descriptor kind for fd %d", fd)
	}
}

// Write writes data to fd: appends to a file, or sends one datagram on a pipe.
func (t *Table) Write(fd int32, data []byte) (int, error) {
	d, err := t.get(fd)
	if err != nil {
		return 0, err
	}
	switch d.kind {
	case KindFile:
		n, err := d.file.Write(data)
		if n > 0 {
			d.seek += int64(n)
		}
		return n, err
	case KindPipe:
		return d.conn.Write(data)
	default:
		return 0, fmt.Errorf("unknown descriptor kind for fd %d", fd)
	}
}

// Close tears down fd: closes the file, or the pipe's socket and receiver.
func (t *Table) Close(fd int32) error {
	t.mu.Lock()
	d, ok := t.entries[fd]
	if ok {
		delete(t.entries, fd)
	}
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("bad fd %d", fd)
	}
	return d.teardown()
}

func (d *descriptor) teardown() error {
	switch d.kind {
	case KindFile:
		if d.file == os.Stdin || d.file == os.Stdout || d.file == os.Stderr {
			return nil
		}
		return d.file.Close()
	case KindPipe:
		var err error
		d.closeOnce.Do(func() {
			close(d.done)
			err = d.conn.Close()
		})
		return err
	}
	return nil
}

// Reset closes every descriptor (except the pre-populated stdin at fd 0)
// and rewinds the fd counter, per spec.md §4.F's RESET contract. Reset must
// be idempotent: calling it twice in a row leaves the same empty state.
func (t *Table) Reset() {
	t.mu.Lock()
	entries := t.entries
	t.entries = map[int32]*descriptor{0: {kind: KindFile, file: t.stdin}}
	t.next = t.start
	t.mu.Unlock()

	for fd, d := range entries {
		if fd == 0 {
			continue
		}
		_ = d.teardown()
	}
}
