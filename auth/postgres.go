package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-eats/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// Postgres keeps accounts in the accounts table and failed sign-ins in login_throttle.
// Signed-in identities are per process.
type Postgres struct {
	*sessions
	pool *pgxpool.Pool
	cost int
}

// NewPostgres hashes new passwords with the given bcrypt cost; zero means bcrypt.DefaultCost.
func NewPostgres(pool *pgxpool.Pool, cost int) *Postgres {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Postgres{sessions: newSessions(), pool: pool, cost: cost}
}

func (p *Postgres) SignUp(ctx context.Context, clientID int64, email, password string) (*models.Identity, error) {
	email, err := normalize(email, password)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, err
	}
	uid := uuid.NewString()
	_, err = p.pool.Exec(ctx, `
		INSERT INTO accounts (uid, email, password_hash) VALUES ($1, $2, $3)`,
		uid, email, string(hash),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	id := &models.Identity{UID: uid, Email: email}
	p.set(clientID, id)
	return id, nil
}

func (p *Postgres) SignIn(ctx context.Context, clientID int64, email, password string) (*models.Identity, error) {
	email, err := normalize(email, password)
	if err != nil {
		if errors.Is(err, ErrWeakPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	wait, err := p.ThrottleWaitSeconds(ctx, email)
	if err != nil {
		return nil, err
	}
	if wait > 0 {
		return nil, &ThrottledError{WaitSeconds: wait}
	}

	var uid, hash string
	err = p.pool.QueryRow(ctx, `
		SELECT uid, password_hash FROM accounts WHERE email = $1`,
		email,
	).Scan(&uid, &hash)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		if err := p.RecordLoginFailed(ctx, email); err != nil {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}
	if err := p.RecordLoginSuccess(ctx, email); err != nil {
		return nil, err
	}
	id := &models.Identity{UID: uid, Email: email}
	p.set(clientID, id)
	return id, nil
}

func (p *Postgres) SignInAnonymously(ctx context.Context, clientID int64) (*models.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := &models.Identity{UID: uuid.NewString(), Anonymous: true}
	p.set(clientID, id)
	return id, nil
}

func (p *Postgres) SignOut(ctx context.Context, clientID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.set(clientID, nil)
	return nil
}

func (p *Postgres) OnStateChange(clientID int64, fn StateFunc) func() {
	return p.subscribe(clientID, fn)
}

func (p *Postgres) Current(clientID int64) *models.Identity {
	return p.get(clientID)
}

// ThrottleWaitSeconds returns how many seconds the email must wait before trying again (0 if no cooldown).
func (p *Postgres) ThrottleWaitSeconds(ctx context.Context, email string) (int, error) {
	var cooldownUntil *time.Time
	err := p.pool.QueryRow(ctx, `
		SELECT cooldown_until FROM login_throttle WHERE email = $1`,
		email,
	).Scan(&cooldownUntil)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load throttle: %w", err)
	}
	if cooldownUntil == nil {
		return 0, nil
	}
	until := *cooldownUntil
	if time.Now().Before(until) {
		return int(time.Until(until).Seconds()) + 1, nil // round up
	}
	return 0, nil
}

// RecordLoginFailed increments fail_count and sets cooldown_until = now() + min(30, 2^fail_count) seconds.
func (p *Postgres) RecordLoginFailed(ctx context.Context, email string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO login_throttle (email, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 1, now(), now() + (LEAST(30, POWER(2, 1)::int) || ' seconds')::interval, now())
		ON CONFLICT (email) DO UPDATE SET
			fail_count = login_throttle.fail_count + 1,
			last_failed_at = now(),
			cooldown_until = now() + (LEAST(30, POWER(2, login_throttle.fail_count + 1)::int) || ' seconds')::interval,
			updated_at = now()`,
		email,
	)
	if err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}
	return nil
}

// RecordLoginSuccess resets fail_count and cooldown_until for the email.
func (p *Postgres) RecordLoginSuccess(ctx context.Context, email string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO login_throttle (email, fail_count, last_failed_at, cooldown_until, updated_at)
		VALUES ($1, 0, NULL, NULL, now())
		ON CONFLICT (email) DO UPDATE SET
			fail_count = 0,
			last_failed_at = NULL,
			cooldown_until = NULL,
			updated_at = now()`,
		email,
	)
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}
