// Package auth is the identity provider: email/password accounts, anonymous sign-in and
// a per-client state-change callback.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"campus-eats/models"
)

var (
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password should be at least 6 characters")
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrThrottled          = errors.New("too many failed attempts")
)

const MinPasswordLength = 6

// ThrottledError carries the remaining cooldown. errors.Is(err, ErrThrottled) matches it.
type ThrottledError struct {
	WaitSeconds int
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("too many failed attempts, try again in %d s", e.WaitSeconds)
}

func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

// StateFunc receives the client's identity after every change; nil means signed out.
type StateFunc func(id *models.Identity)

type Provider interface {
	SignIn(ctx context.Context, clientID int64, email, password string) (*models.Identity, error)
	SignUp(ctx context.Context, clientID int64, email, password string) (*models.Identity, error)
	SignInAnonymously(ctx context.Context, clientID int64) (*models.Identity, error)
	SignOut(ctx context.Context, clientID int64) error
	// OnStateChange registers fn for clientID and returns its removal func.
	OnStateChange(clientID int64, fn StateFunc) func()
	// Current returns the client's identity, nil when signed out.
	Current(clientID int64) *models.Identity
}

// normalize validates email and password for sign-up and sign-in.
func normalize(email, password string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return "", ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	return email, nil
}

// sessions tracks the signed-in identity of each client and fans changes out to listeners.
type sessions struct {
	mu        sync.Mutex
	current   map[int64]*models.Identity
	listeners map[int64]map[uint64]StateFunc
	next      uint64
}

func newSessions() *sessions {
	return &sessions{
		current:   make(map[int64]*models.Identity),
		listeners: make(map[int64]map[uint64]StateFunc),
	}
}

func (s *sessions) set(clientID int64, id *models.Identity) {
	s.mu.Lock()
	if id == nil {
		delete(s.current, clientID)
	} else {
		cp := *id
		s.current[clientID] = &cp
	}
	fns := make([]StateFunc, 0, len(s.listeners[clientID]))
	for _, fn := range s.listeners[clientID] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}

func (s *sessions) get(clientID int64) *models.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.current[clientID]
	if !ok {
		return nil
	}
	cp := *id
	return &cp
}

func (s *sessions) subscribe(clientID int64, fn StateFunc) func() {
	s.mu.Lock()
	s.next++
	key := s.next
	if s.listeners[clientID] == nil {
		s.listeners[clientID] = make(map[uint64]StateFunc)
	}
	s.listeners[clientID][key] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners[clientID], key)
		if len(s.listeners[clientID]) == 0 {
			delete(s.listeners, clientID)
		}
		s.mu.Unlock()
	}
}
