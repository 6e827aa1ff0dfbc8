package auth

import (
	"context"
	"sync"
	"time"

	"campus-eats/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type memAccount struct {
	uid  string
	hash []byte
}

type memThrottle struct {
	failCount     int
	cooldownUntil time.Time
}

// Memory is an in-process Provider for tests and --memory runs.
type Memory struct {
	*sessions

	mu       sync.Mutex
	accounts map[string]memAccount
	throttle map[string]memThrottle
	cost     int
	now      func() time.Time
}

// NewMemory returns an empty provider. cost is the bcrypt cost; 0 means bcrypt.DefaultCost.
func NewMemory(cost int) *Memory {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Memory{
		sessions: newSessions(),
		accounts: make(map[string]memAccount),
		throttle: make(map[string]memThrottle),
		cost:     cost,
		now:      time.Now,
	}
}

func (m *Memory) SignUp(ctx context.Context, clientID int64, email, password string) (*models.Identity, error) {
	email, err := normalize(email, password)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.cost)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	if _, ok := m.accounts[email]; ok {
		m.mu.Unlock()
		return nil, ErrEmailInUse
	}
	acc := memAccount{uid: uuid.NewString(), hash: hash}
	m.accounts[email] = acc
	m.mu.Unlock()

	id := &models.Identity{UID: acc.uid, Email: email}
	m.set(clientID, id)
	return id, nil
}

func (m *Memory) SignIn(ctx context.Context, clientID int64, email, password string) (*models.Identity, error) {
	email, err := normalize(email, password)
	if err != nil {
		if err == ErrWeakPassword {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	m.mu.Lock()
	if th, ok := m.throttle[email]; ok && m.now().Before(th.cooldownUntil) {
		wait := int(th.cooldownUntil.Sub(m.now()).Seconds()) + 1
		m.mu.Unlock()
		return nil, &ThrottledError{WaitSeconds: wait}
	}
	acc, ok := m.accounts[email]
	m.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		m.mu.Lock()
		th := m.throttle[email]
		th.failCount++
		th.cooldownUntil = m.now().Add(time.Duration(CooldownSecondsForFailCount(th.failCount)) * time.Second)
		m.throttle[email] = th
		m.mu.Unlock()
		return nil, ErrInvalidCredentials
	}

	m.mu.Lock()
	delete(m.throttle, email)
	m.mu.Unlock()

	id := &models.Identity{UID: acc.uid, Email: email}
	m.set(clientID, id)
	return id, nil
}

func (m *Memory) SignInAnonymously(ctx context.Context, clientID int64) (*models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := &models.Identity{UID: uuid.NewString(), Anonymous: true}
	m.set(clientID, id)
	return id, nil
}

func (m *Memory) SignOut(ctx context.Context, clientID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.set(clientID, nil)
	return nil
}

func (m *Memory) OnStateChange(clientID int64, fn StateFunc) func() {
	return m.subscribe(clientID, fn)
}

func (m *Memory) Current(clientID int64) *models.Identity {
	return m.get(clientID)
}
