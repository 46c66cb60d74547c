// Package session resolves the current authenticated identity and keeps it
// current across sign-in and sign-out events.
package session

import (
	"context"
	"sync"

	"chatsync/internal/common"
)

// Session is the authenticated principal as asserted by the token, before any
// identity row has been provisioned.
type Session struct {
	UserID   string
	Email    string
	FullName string
}

type EventKind string

const (
	SignedIn  EventKind = "signed-in"
	SignedOut EventKind = "signed-out"
)

// Event is one session-state change. Session is nil for SignedOut.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Source is the session interface the provider consumes: current session,
// sign-out, and a session-changed stream.
type Source interface {
	Current(ctx context.Context) (*Session, error)
	Events() <-chan Event
	SignOut(ctx context.Context) error
}

// TokenSource is a Source backed by verified session tokens.
type TokenSource struct {
	tokens *common.TokenManager

	mu      sync.RWMutex
	current *Session
	events  chan Event
}

func NewTokenSource(tokens *common.TokenManager) *TokenSource {
	return &TokenSource{
		tokens: tokens,
		events: make(chan Event, 8),
	}
}

// SignIn verifies the token and emits a signed-in event.
func (s *TokenSource) SignIn(token string) (*Session, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		UserID:   claims.UserID,
		Email:    claims.Email,
		FullName: claims.FullName,
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.emit(Event{Kind: SignedIn, Session: sess})
	return sess, nil
}

func (s *TokenSource) Current(ctx context.Context) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *TokenSource) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	s.emit(Event{Kind: SignedOut})
	return nil
}

func (s *TokenSource) Events() <-chan Event {
	return s.events
}

func (s *TokenSource) emit(event Event) {
	select {
	case s.events <- event:
	default:
	}
}
