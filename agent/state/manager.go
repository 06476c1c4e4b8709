package state

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
)

// Manager tracks live sessions by caller-supplied (or generated) ID. There
// is deliberately no process-wide shared conversation: every session is an
// explicit entry here, and dropping the entry destroys the conversation.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Start creates a session with a generated ID.
func (m *Manager) Start() *Session {
	sess, _ := m.StartWithID(uuid.NewString())
	return sess
}

// StartWithID creates a session under the given ID. Starting an already
// existing ID is a validation error — sessions are never shared or reused
// across conversations.
func (m *Manager) StartWithID(id string) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: session id is empty", contractx.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("%w: session %s already exists", contractx.ErrValidation, id)
	}
	sess := NewSession(id, m.now())
	m.sessions[id] = sess
	return sess, nil
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", contractx.ErrUnknownSession, id)
	}
	return sess, nil
}

// End drops a session. Its state is garbage afterwards; there is no
// persistence to clean up.
func (m *Manager) End(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
