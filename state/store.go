package state

import (
	"sync"
	"time"
)

// Listener is called after every dispatch with the states before and after it.
type Listener func(prev, next State)

// Store is one client's state container. Dispatch is serialised; listeners run after
// the lock is released, so they may dispatch again.
type Store struct {
	mu        sync.Mutex
	st        State
	listeners map[uint64]Listener
	nextL     uint64
	seq       uint64
	timers    map[uint64]*time.Timer
	closed    bool

	toastDuration time.Duration
}

func NewStore(initial State, toastDuration time.Duration) *Store {
	if toastDuration <= 0 {
		toastDuration = DefaultToastDuration
	}
	return &Store{
		st:            initial,
		listeners:     make(map[uint64]Listener),
		timers:        make(map[uint64]*time.Timer),
		toastDuration: toastDuration,
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *Store) Dispatch(actions ...Action) State {
	s.mu.Lock()
	prev := s.st
	next := prev
	for _, a := range actions {
		next = Reduce(next, a)
	}
	s.st = next
	ls := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range ls {
		l(prev, next)
	}
	return next
}

// Transact lets fn choose actions from the current state under the store lock, so a
// check and its transition cannot interleave with another dispatch. fn must not call
// back into the store. Nothing is applied when fn returns an error.
func (s *Store) Transact(fn func(cur State) ([]Action, error)) (State, error) {
	s.mu.Lock()
	prev := s.st
	actions, err := fn(prev)
	if err != nil || len(actions) == 0 {
		s.mu.Unlock()
		return prev, err
	}
	next := prev
	for _, a := range actions {
		next = Reduce(next, a)
	}
	s.st = next
	ls := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range ls {
		l(prev, next)
	}
	return next, nil
}

func (s *Store) listenersLocked() []Listener {
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	return ls
}

// Subscribe registers l and returns its removal func.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	s.nextL++
	id := s.nextL
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ShowMessage sets the toast and schedules its removal after d (the store default when
// d is zero). A later message wins: the earlier timer finds a different Seq and does nothing.
func (s *Store) ShowMessage(text string, sev Severity, d time.Duration) uint64 {
	if sev == "" {
		sev = SeveritySuccess
	}
	if d <= 0 {
		d = s.toastDuration
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	// Sequence and state change share one critical section, so the highest Seq is
	// always the toast on screen.
	s.seq++
	seq := s.seq
	prev := s.st
	next := Reduce(prev, SetMessage{Toast: Toast{Text: text, Severity: sev, Seq: seq}})
	s.st = next
	s.timers[seq] = time.AfterFunc(d, func() { s.expire(seq) })
	ls := s.listenersLocked()
	s.mu.Unlock()

	for _, l := range ls {
		l(prev, next)
	}
	return seq
}

func (s *Store) expire(seq uint64) {
	s.mu.Lock()
	delete(s.timers, seq)
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.Dispatch(ClearMessage{Seq: seq})
}

// Open replaces the overlay.
func (s *Store) Open(title, body string, footer [][]Button, style FooterStyle) {
	s.Dispatch(OpenOverlay{Title: title, Body: body, Footer: footer, FooterStyle: style})
}

func (s *Store) CloseOverlay() {
	s.Dispatch(CloseOverlay{})
}

// Close stops pending toast timers and drops listeners.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for seq, t := range s.timers {
		t.Stop()
		delete(s.timers, seq)
	}
	s.listeners = make(map[uint64]Listener)
}

// PendingTimers is the number of toast timers not yet fired.
func (s *Store) PendingTimers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
