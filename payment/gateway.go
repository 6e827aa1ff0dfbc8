// Package payment holds the simulated payment gateway used by checkout.
package payment

import (
	"context"
	"fmt"
	"time"

	"campus-eats/models"
)

// DefaultPayPalDelay is how long the simulated PayPal charge takes.
const DefaultPayPalDelay = 3 * time.Second

type Gateway interface {
	// Charge blocks until the external processor accepts or rejects the amount.
	Charge(ctx context.Context, mode models.PaymentMode, amount int64) error
}

// Simulated stands in for the external processor. Only the PayPal test mode goes
// through it; other modes return immediately.
type Simulated struct {
	Delay time.Duration
}

func NewSimulated(delay time.Duration) *Simulated {
	if delay < 0 {
		delay = DefaultPayPalDelay
	}
	return &Simulated{Delay: delay}
}

func (s *Simulated) Charge(ctx context.Context, mode models.PaymentMode, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("charge %s: amount must be positive, got %d", mode, amount)
	}
	if mode != models.ModePayPal || s.Delay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
