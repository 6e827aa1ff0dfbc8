package state

import "campus-eats/models"

// Action is a named transition. The set is closed: only this package defines actions.
type Action interface{ isAction() }

type (
	SetAuthReady   struct{ Ready bool }
	SetSession     struct{ Session Session }
	SetRestaurants struct{ Restaurants []models.Restaurant }
	SetOrders      struct{ Orders []models.Order }
	SetMessHistory struct{ Bookings []models.MealBooking }
	SetEmployees   struct{ Employees []models.Employee }
	SetAllOrders   struct{ Orders []models.Order }
	SetCart        struct{ Items []models.CartItem }
	SetWallet      struct{ Balance int64 }
	OpenOverlay    struct {
		Title       string
		Body        string
		Footer      [][]Button
		FooterStyle FooterStyle
	}
	CloseOverlay   struct{}
	ToggleTheme    struct{}
	SetLoginPrompt struct{ Open bool }
	SetMessage     struct{ Toast Toast }
	// ClearMessage only clears the toast whose Seq matches.
	ClearMessage struct{ Seq uint64 }
	SetCheckout  struct{ Checkout Checkout }
)

func (SetAuthReady) isAction()   {}
func (SetSession) isAction()     {}
func (SetRestaurants) isAction() {}
func (SetOrders) isAction()      {}
func (SetMessHistory) isAction() {}
func (SetEmployees) isAction()   {}
func (SetAllOrders) isAction()   {}
func (SetCart) isAction()        {}
func (SetWallet) isAction()      {}
func (OpenOverlay) isAction()    {}
func (CloseOverlay) isAction()   {}
func (ToggleTheme) isAction()    {}
func (SetLoginPrompt) isAction() {}
func (SetMessage) isAction()     {}
func (ClearMessage) isAction()   {}
func (SetCheckout) isAction()    {}

// Reduce returns the state after a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetAuthReady:
		s.Session.Ready = a.Ready
	case SetSession:
		s.Session = a.Session
	case SetRestaurants:
		s.Restaurants = nonNil(a.Restaurants)
	case SetOrders:
		s.Orders = nonNil(a.Orders)
	case SetMessHistory:
		s.MessHistory = nonNil(a.Bookings)
	case SetEmployees:
		s.Employees = nonNil(a.Employees)
	case SetAllOrders:
		s.AllOrders = nonNil(a.Orders)
	case SetCart:
		s.Cart = nonNil(a.Items)
	case SetWallet:
		s.Wallet = a.Balance
	case OpenOverlay:
		style := a.FooterStyle
		if style == "" {
			style = FooterDefault
		}
		s.Overlay = Overlay{Open: true, Title: a.Title, Body: a.Body, Footer: a.Footer, FooterStyle: style}
	case CloseOverlay:
		s.Overlay = ClosedOverlay()
	case ToggleTheme:
		s.LightMode = !s.LightMode
	case SetLoginPrompt:
		s.LoginPrompt = a.Open
	case SetMessage:
		t := a.Toast
		s.Toast = &t
	case ClearMessage:
		if s.Toast != nil && s.Toast.Seq == a.Seq {
			s.Toast = nil
		}
	case SetCheckout:
		s.Checkout = a.Checkout
	}
	return s
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
