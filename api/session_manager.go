package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rv32im/emulator/hostos"
	"github.com/rv32im/emulator/service"
	"github.com/rv32im/emulator/vm"
)

var (
	// ErrSessionNotFound is returned when a session is not found
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionAlreadyExists is returned when trying to create a session with an existing ID
	ErrSessionAlreadyExists = errors.New("session already exists")
)

// Session represents an active emulator session
type Session struct {
	ID        string
	Service   *service.DebuggerService
	Host      *hostos.Server
	Console   *EventWriter // nil if the server has no broadcaster
	CreatedAt time.Time

	stdinWriter *os.File // write end of the pipe backing the session's HostOS fd 0, if any
}

// SessionManager manages multiple emulator sessions
type SessionManager struct {
	sessions    map[string]*Session
	broadcaster *Broadcaster
	mu          sync.RWMutex
}

// NewSessionManager creates a new session manager
func NewSessionManager(broadcaster *Broadcaster) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		broadcaster: broadcaster,
	}
}

// CreateSession creates a new session with a unique ID. Each session owns
// its own HostOS server and descriptor table (spec.md §4.I) rather than
// sharing a process-wide one, so two sessions never see each other's open
// files or pipes.
func (sm *SessionManager) CreateSession(opts SessionCreateRequest) (*Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	cfg := vm.DefaultConfig()
	if opts.MemorySize > 0 {
		cfg.MemSize = opts.MemorySize
	}
	if opts.HostCallDeadlineMS > 0 {
		cfg.HostCallDeadlineMS = opts.HostCallDeadlineMS
	}
	if opts.PipeQueueCapacity > 0 {
		cfg.PipeQueueCapacity = opts.PipeQueueCapacity
	}

	var stdinR, stdinW *os.File
	stdin := os.Stdin
	if opts.WithStdin {
		stdinR, stdinW, err = os.Pipe()
		if err != nil {
			return nil, err
		}
		stdin = stdinR
	}

	hostServer := &hostos.Server{Table: hostos.NewTable(cfg.DescriptorStart, cfg.PipeQueueCapacity, stdin)}
	hostClient := hostos.NewLocalClient(hostServer)

	var console *EventWriter
	if sm.broadcaster != nil {
		console = NewEventWriter(sm.broadcaster, sessionID, "stdout")
		debugLog("Session %s: EventWriter set up for stdout broadcasting", sessionID)
	} else {
		debugLog("Session %s: WARNING - no broadcaster available for output", sessionID)
	}

	var consoleWriter = io.Writer(os.Stdout)
	if console != nil {
		consoleWriter = console
	}

	machine := vm.New(cfg, hostClient, consoleWriter)
	debugService := service.NewDebuggerService(machine, stdinW)

	session := &Session{
		ID:          sessionID,
		Service:     debugService,
		Host:        hostServer,
		Console:     console,
		CreatedAt:   time.Now(),
		stdinWriter: stdinW,
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[sessionID]; exists {
		return nil, ErrSessionAlreadyExists
	}

	sm.sessions[sessionID] = session
	return session, nil
}

// GetSession retrieves a session by ID
func (sm *SessionManager) GetSession(sessionID string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	return session, nil
}

// DestroySession removes a session by ID
func (sm *SessionManager) DestroySession(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}

	if session.Host != nil {
		session.Host.Table.Reset()
	}
	if session.stdinWriter != nil {
		session.stdinWriter.Close()
	}

	delete(sm.sessions, sessionID)
	return nil
}

// ListSessions returns a list of all session IDs
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return len(sm.sessions)
}

// generateSessionID generates a unique session ID
func generateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
