package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-eats/db"
	"campus-eats/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCooldownSecondsForFailCount(t *testing.T) {
	tests := []struct {
		failCount int
		want      int
	}{
		{0, 1},   // 2^0=1
		{1, 2},   // 2^1=2
		{2, 4},   // 2^2=4
		{3, 8},   // 2^3=8
		{4, 16},  // 2^4=16
		{5, 30},  // 2^5=32 -> cap 30
		{6, 30},  // 2^6=64 -> cap 30
		{10, 30}, // cap 30
	}
	for _, tt := range tests {
		got := CooldownSecondsForFailCount(tt.failCount)
		if got != tt.want {
			t.Errorf("CooldownSecondsForFailCount(%d) = %d, want %d", tt.failCount, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		email, password string
		want            string
		err             error
	}{
		{" Alice@Campus.edu ", "secret1", "alice@campus.edu", nil},
		{"not-an-email", "secret1", "", ErrInvalidEmail},
		{"", "secret1", "", ErrInvalidEmail},
		{"a@b.c", "12345", "", ErrWeakPassword},
	}
	for _, tt := range tests {
		got, err := normalize(tt.email, tt.password)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.email)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestMemory_SignUpSignInSignOut(t *testing.T) {
	ctx := context.Background()
	p := NewMemory(bcrypt.MinCost)

	var seen []*models.Identity
	unsub := p.OnStateChange(7, func(id *models.Identity) { seen = append(seen, id) })
	defer unsub()

	id, err := p.SignUp(ctx, 7, "alice@campus.edu", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, id.UID)
	assert.False(t, id.Anonymous)

	_, err = p.SignUp(ctx, 8, "ALICE@campus.edu", "other12")
	assert.ErrorIs(t, err, ErrEmailInUse)

	again, err := p.SignIn(ctx, 7, "alice@campus.edu", "secret1")
	require.NoError(t, err)
	assert.Equal(t, id.UID, again.UID)
	assert.Equal(t, id.UID, p.Current(7).UID)

	require.NoError(t, p.SignOut(ctx, 7))
	assert.Nil(t, p.Current(7))

	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])
}

func TestMemory_WrongPasswordThrottles(t *testing.T) {
	ctx := context.Background()
	p := NewMemory(bcrypt.MinCost)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	_, err := p.SignUp(ctx, 1, "bob@campus.edu", "secret1")
	require.NoError(t, err)

	_, err = p.SignIn(ctx, 1, "bob@campus.edu", "wrong-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = p.SignIn(ctx, 1, "bob@campus.edu", "secret1")
	assert.ErrorIs(t, err, ErrThrottled)
	var te *ThrottledError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.WaitSeconds)

	now = now.Add(3 * time.Second)
	_, err = p.SignIn(ctx, 1, "bob@campus.edu", "secret1")
	require.NoError(t, err)
}

func TestMemory_Anonymous(t *testing.T) {
	p := NewMemory(bcrypt.MinCost)
	a, err := p.SignInAnonymously(context.Background(), 3)
	require.NoError(t, err)
	b, err := p.SignInAnonymously(context.Background(), 4)
	require.NoError(t, err)
	assert.True(t, a.Anonymous)
	assert.NotEqual(t, a.UID, b.UID)
}

// Integration test (requires DB). Skip if db.Pool is nil or -short.
func TestPostgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping auth integration test in short mode")
	}
	if db.Pool == nil {
		t.Skip("skipping auth integration test: no DB pool")
	}
	ctx := context.Background()
	p := NewPostgres(db.Pool, bcrypt.MinCost)
	email := uuid.NewString()[:8] + "@test.local"
	defer func() {
		_, _ = db.Pool.Exec(ctx, `DELETE FROM accounts WHERE email = $1`, email)
		_, _ = db.Pool.Exec(ctx, `DELETE FROM login_throttle WHERE email = $1`, email)
	}()

	_, err := p.SignUp(ctx, 1, email, "secret1")
	require.NoError(t, err)
	_, err = p.SignUp(ctx, 1, email, "secret1")
	assert.ErrorIs(t, err, ErrEmailInUse)

	_, err = p.SignIn(ctx, 1, email, "wrong-pw")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	wait, err := p.ThrottleWaitSeconds(ctx, email)
	require.NoError(t, err)
	assert.Greater(t, wait, 0)
	assert.LessOrEqual(t, wait, 30)

	require.NoError(t, p.RecordLoginSuccess(ctx, email))
	id, err := p.SignIn(ctx, 1, email, "secret1")
	require.NoError(t, err)
	assert.Equal(t, email, id.Email)
}
