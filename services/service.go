// Package services holds the operations behind every console button: session, cart,
// checkout, mess booking and the manager's writes. Each operation reports its outcome
// through the client's toast and also returns an error callers can inspect.
package services

import (
	"errors"
	"math/rand"
	"time"

	"campus-eats/auth"
	"campus-eats/docstore"
	"campus-eats/payment"

	"go.uber.org/zap"
)

var (
	ErrNotReady            = errors.New("session not ready")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientBalance = errors.New("insufficient wallet balance")
	ErrCheckoutInProgress  = errors.New("checkout already in progress")
	ErrDuplicateCredential = errors.New("credential already exists")
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrValidation          = errors.New("validation failed")
)

// validationError is a rejected input. Its text is what the user sees.
type validationError struct{ msg string }

func (e *validationError) Error() string        { return e.msg }
func (e *validationError) Is(target error) bool { return target == ErrValidation }

func invalid(msg string) error { return &validationError{msg: msg} }

// UserMessage returns the user-facing text of a validation error, or a generic one.
func UserMessage(err error) string {
	var v *validationError
	if errors.As(err, &v) {
		return v.msg
	}
	return "Something went wrong. Please try again."
}

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Toast durations that differ from the store default.
const (
	CartToastDuration    = 1500 * time.Millisecond
	PayPalToastDuration  = 2000 * time.Millisecond
	OrderToastDuration   = 5000 * time.Millisecond
	DefaultWalletBalance = 500
)

type Config struct {
	StripeURL     string
	DefaultWallet int64
}

type Service struct {
	docs    docstore.Store
	auth    auth.Provider
	gateway payment.Gateway
	log     *zap.Logger
	cfg     Config

	now  func() time.Time
	seat func() int
}

func New(docs docstore.Store, provider auth.Provider, gateway payment.Gateway, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DefaultWallet == 0 {
		cfg.DefaultWallet = DefaultWalletBalance
	}
	if gateway == nil {
		gateway = payment.NewSimulated(0)
	}
	return &Service{
		docs:    docs,
		auth:    provider,
		gateway: gateway,
		log:     log.Named("services"),
		cfg:     cfg,
		now:     time.Now,
		seat:    func() int { return rand.Intn(1000) + 1 },
	}
}

// StripeURL is the external checkout page for the Stripe mode.
func (s *Service) StripeURL() string { return s.cfg.StripeURL }

// DefaultWallet is the balance a new session starts with.
func (s *Service) DefaultWallet() int64 { return s.cfg.DefaultWallet }
