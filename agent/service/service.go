// Package service exposes the conversation boundary: start a session, send
// a user message, observe the event stream, read the history snapshot.
package service

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/fasfous92/public-transport-RAG/agent/contract"
	loopx "github.com/fasfous92/public-transport-RAG/agent/loop"
	statex "github.com/fasfous92/public-transport-RAG/agent/state"
)

// Service ties the session manager to the loop controller. It owns no
// state of its own and is safe for concurrent use; per-session ordering is
// enforced by the sessions themselves.
type Service struct {
	controller *loopx.Controller
	sessions   *statex.Manager
}

func New(controller *loopx.Controller, sessions *statex.Manager) (*Service, error) {
	if controller == nil {
		return nil, errors.New("loop controller is required")
	}
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}
	return &Service{
		controller: controller,
		sessions:   sessions,
	}, nil
}

// StartSession creates a new conversation and returns its ID.
func (s *Service) StartSession() string {
	return s.sessions.Start().ID
}

// StartSessionWithID creates a conversation under a caller-supplied ID.
func (s *Service) StartSessionWithID(id string) error {
	_, err := s.sessions.StartWithID(id)
	return err
}

// Send runs one turn in the named session and returns its event stream.
// The stream delivers events in emission order and ends with exactly one
// terminal event. Cancelling ctx stops the turn at the next safe
// checkpoint.
func (s *Service) Send(ctx context.Context, sessionID, userText string) (<-chan contractx.AgentEvent, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return nil, contractx.ErrEmptyMessage
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return s.controller.Run(ctx, sess, userText)
}

// History returns an immutable snapshot of a session's message log.
func (s *Service) History(sessionID string) ([]contractx.Message, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Snapshot(), nil
}

// EndSession destroys a session. Unknown IDs are a no-op.
func (s *Service) EndSession(sessionID string) {
	s.sessions.End(sessionID)
}
