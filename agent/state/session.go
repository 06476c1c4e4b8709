// Package state owns per-conversation mutable state: the append-only
// message log and loop counters. Nothing here is persisted — a session dies
// with the process or an explicit EndSession.
package state

import (
	"sync"
	"time"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
)

// Session is the state container for one logical conversation. The message
// log is append-only and single-writer: only the reasoning loop of the
// in-flight turn appends, guarded by TryAcquire/Release. Readers (UI,
// debugging) use Snapshot and never see the live slice.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	messages []contractx.Message
	turns    int
	busy     bool
}

func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		CreatedAt: now.UTC(),
	}
}

// Append adds messages to the log. Messages are never mutated afterwards.
func (s *Session) Append(msgs ...contractx.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msgs...)
}

// Snapshot returns a copy of the message log for concurrent readers.
func (s *Session) Snapshot() []contractx.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contractx.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the current number of messages.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// BumpTurn increments and returns the conversation turn counter.
func (s *Session) BumpTurn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns++
	return s.turns
}

// TryAcquire claims the single-writer slot for a turn. It fails instead of
// blocking so a second concurrent Send on the same session is rejected
// rather than interleaved.
func (s *Session) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// Release frees the writer slot at the end of a turn.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}
