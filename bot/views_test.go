package bot

import (
	"strings"
	"testing"
	"time"

	"campus-eats/models"
	"campus-eats/state"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestConsoleRouting(t *testing.T) {
	base := state.Initial(500)

	tests := []struct {
		name string
		mod  func(*state.State)
		want string
	}{
		{"not ready", func(s *state.State) {}, "Connecting"},
		{"login prompt", func(s *state.State) { s.Session.Ready = true }, "🔐 Login"},
		{"no role", func(s *state.State) { s.Session.Ready, s.LoginPrompt = true, false }, loginPlaceholder},
		{"manager", func(s *state.State) {
			s.Session = state.Session{Ready: true, Role: models.RoleManager, Name: "Manager"}
			s.LoginPrompt = false
		}, "Manager Console"},
		{"day scholar", func(s *state.State) {
			s.Session = state.Session{Ready: true, Role: models.RoleDayScholar, Name: "Bob"}
			s.LoginPrompt = false
		}, "Welcome, Bob (Day Scholar)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			tt.mod(&s)
			if got := Console(s).Text; !strings.Contains(got, tt.want) {
				t.Errorf("Console() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestOverlayViewStacksFooter(t *testing.T) {
	o := state.Overlay{
		Open:        true,
		Title:       "T",
		Body:        "B",
		Footer:      [][]state.Button{{state.ActionButton("a", "1"), state.ActionButton("b", "2")}},
		FooterStyle: state.FooterStacked,
	}
	v := overlayView(o)
	want := [][]state.Button{{state.ActionButton("a", "1")}, {state.ActionButton("b", "2")}}
	if diff := cmp.Diff(want, v.Keyboard); diff != "" {
		t.Errorf("keyboard mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "T\n\nB", v.Text)

	o.FooterStyle = state.FooterDefault
	assert.Len(t, overlayView(o).Keyboard, 1)
}

func TestRestaurantPanel(t *testing.T) {
	r := models.Restaurant{
		ID: "south-spice", Name: "South Spice", IsOpen: true,
		Menu: map[string][]models.Dish{
			models.SectionMain:   {{Name: "Masala Dosa", Price: 50}},
			models.SectionDrinks: {{Name: "Filter Coffee", Price: 25}},
		},
	}
	p := restaurantPanel(r, 3)
	assert.Equal(t, "🍽 South Spice", p.Title)
	assert.Equal(t, "add:main:0:south-spice", p.Footer[0][0].CallbackData)
	assert.Equal(t, "add:drinks:0:south-spice", p.Footer[1][0].CallbackData)
	assert.Equal(t, "🛒 Cart (3)", p.Footer[2][0].Text)

	r.IsOpen = false
	closed := restaurantPanel(r, 0)
	assert.Contains(t, closed.Body, "Currently closed")
	assert.Len(t, closed.Footer, 1)
}

func TestPaymentPanelListsModes(t *testing.T) {
	p := paymentPanel(80, 500)
	assert.Equal(t, state.FooterStacked, p.Style)
	assert.Equal(t, "Amount Payable: ₹80\nWallet balance: ₹500", p.Body)
	assert.Len(t, p.Footer, len(models.PaymentModes)+1)
	assert.Equal(t, "pay:1", p.Footer[1][0].CallbackData)
}

func TestBookingPanelTotals(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	d := newBookingDraft(today)
	d.Meals[models.MealBreakfast] = true
	d.Meals[models.MealDinner] = true
	p := bookingPanel(d, today)
	assert.Contains(t, p.Body, "Total: ₹125")
	assert.Equal(t, "• Today", p.Footer[0][0].Text)
	assert.Equal(t, "mess:date:2026-03-11", p.Footer[0][1].CallbackData)
	assert.Equal(t, []string{models.MealBreakfast, models.MealDinner}, d.selected())
}

func TestCartPanelChunksRemoveButtons(t *testing.T) {
	cart := make([]models.CartItem, 6)
	for i := range cart {
		cart[i] = models.CartItem{Item: "x", Price: 10}
	}
	p := cartPanel(cart)
	assert.Len(t, p.Footer[0], 4)
	assert.Len(t, p.Footer[1], 2)
	assert.Equal(t, "💳 Checkout ₹60", p.Footer[2][0].Text)
	assert.Equal(t, "Cart is empty.", cartPanel(nil).Body)
}

func TestParsers(t *testing.T) {
	name, roll, ok := parseNameRoll(" Alice Johnson ,23CS001 ")
	assert.True(t, ok)
	assert.Equal(t, "Alice Johnson", name)
	assert.Equal(t, "23CS001", roll)

	_, _, ok = parseNameRoll("Alice")
	assert.False(t, ok)
	_, _, ok = parseNameRoll(", 23CS001")
	assert.False(t, ok)

	email, pw, ok := parseEmailCommand("/signin a@b.c secret")
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", email)
	assert.Equal(t, "secret", pw)
	_, _, ok = parseEmailCommand("/signin a@b.c")
	assert.False(t, ok)
}

func TestFormFlow(t *testing.T) {
	f := newForm(formDish)
	assert.Equal(t, "Dish name:", f.prompt())
	assert.False(t, f.accept(" Lassi "))
	assert.False(t, f.accept("₹35"))
	assert.True(t, f.accept("-"))
	assert.Equal(t, models.Dish{Name: "Lassi", Price: 35}, f.dish())

	login := newForm(formSignIn)
	assert.False(t, login.secretStep())
	login.accept("a@b.c")
	assert.True(t, login.secretStep())

	c := newForm(formCredential)
	c.accept("Eve")
	c.accept("23CS009")
	c.accept("Day Scholar")
	assert.Equal(t, models.RoleDayScholar, c.credential().Role)
}
