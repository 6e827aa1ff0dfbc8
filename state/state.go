// Package state holds the per-client application state and the reducer that updates it.
// State values are treated as immutable: every transition replaces slices rather than
// mutating them, so a State handed to a subscriber stays valid.
package state

import (
	"time"

	"campus-eats/models"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

const DefaultToastDuration = 3000 * time.Millisecond

// Toast is the transient status message. Seq identifies the timer allowed to clear it.
type Toast struct {
	Text     string
	Severity Severity
	Seq      uint64
}

// Session is who is using this client.
type Session struct {
	Identity *models.Identity
	UserKey  string
	Name     string
	Role     models.Role
	Ready    bool
}

// LoggedIn reports whether a credential lookup has assigned a role.
func (s Session) LoggedIn() bool { return s.Role != models.RoleNone }

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelecting
	PhaseProcessing
	PhaseSettled
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelecting:
		return "selecting-payment-mode"
	case PhaseProcessing:
		return "processing"
	case PhaseSettled:
		return "settled"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

type Checkout struct {
	Phase  Phase
	Amount int64
	Mode   models.PaymentMode
	Reason string
}

type State struct {
	Session     Session
	Restaurants []models.Restaurant
	Orders      []models.Order
	MessHistory []models.MealBooking
	Employees   []models.Employee
	AllOrders   []models.Order
	Cart        []models.CartItem
	Wallet      int64
	Overlay     Overlay
	LightMode   bool
	LoginPrompt bool
	Toast       *Toast
	Checkout    Checkout
}

// Initial is the state of a freshly connected client.
func Initial(wallet int64) State {
	return State{
		Restaurants: []models.Restaurant{},
		Orders:      []models.Order{},
		MessHistory: []models.MealBooking{},
		Employees:   []models.Employee{},
		AllOrders:   []models.Order{},
		Cart:        []models.CartItem{},
		Wallet:      wallet,
		Overlay:     ClosedOverlay(),
		LightMode:   true,
		LoginPrompt: true,
	}
}

// CartTotal is the amount checkout would charge.
func (s State) CartTotal() int64 {
	return models.CartTotal(s.Cart)
}

// Restaurant looks up a restaurant in the current snapshot.
func (s State) Restaurant(id string) (models.Restaurant, bool) {
	for _, r := range s.Restaurants {
		if r.ID == id {
			return r, true
		}
	}
	return models.Restaurant{}, false
}
