package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"campus-eats/models"
	"campus-eats/services"
	"campus-eats/state"
)

// View is one rendered message: text plus inline keyboard rows.
type View struct {
	Text     string
	Keyboard [][]state.Button
}

// Callback data. Telegram limits it to 64 bytes, so ids go last.
const (
	cbClose     = "close"
	cbTheme     = "theme"
	cbLogout    = "logout"
	cbPrompt    = "prompt"
	cbGuest     = "guest"
	cbSignIn    = "signin"
	cbSignUp    = "signup"
	cbCart      = "cart"
	cbCheckout  = "checkout"
	cbOrders    = "orders"
	cbMess      = "mess"
	cbMessHist  = "messhist"
	cbMessOK    = "mess:ok"
	cbStaff     = "m:staff"
	cbAllOrders = "m:orders"
	cbAddRest   = "m:rest"
	cbAddCred   = "m:cred"
	cbAddEmp    = "m:emp"

	pfxRestaurant = "rest:"       // rest:<id>
	pfxAdd        = "add:"        // add:<section>:<index>:<id>
	pfxRemove     = "rm:"         // rm:<index>
	pfxPay        = "pay:"        // pay:<mode index>
	pfxMessDate   = "mess:date:"  // mess:date:<YYYY-MM-DD>
	pfxMessMeal   = "mess:meal:"  // mess:meal:<meal>
	pfxMessMenu   = "mess:menu:"  // mess:menu:<option index>
	pfxToggle     = "m:toggle:"   // m:toggle:<id>
	pfxDish       = "m:dish:"     // m:dish:<id>
	pfxDishSec    = "m:dishsec:"  // m:dishsec:<section>:<id>
)

const loginPlaceholder = "Please log in using your credentials to access the campus dining portal."

func rupees(v int64) string { return "₹" + strconv.FormatInt(v, 10) }

func themeButton(light bool) state.Button {
	if light {
		return state.ActionButton("🌙 Dark mode", cbTheme)
	}
	return state.ActionButton("☀️ Light mode", cbTheme)
}

func header(s state.State) string {
	if s.LightMode {
		return "☀️ Campus Eats"
	}
	return "🌙 Campus Eats"
}

// Console is the main screen for s: login prompt, placeholder or a role's console.
func Console(s state.State) View {
	switch {
	case !s.Session.Ready:
		return View{Text: header(s) + "\n\n⏳ Connecting to campus dining..."}
	case s.LoginPrompt:
		return loginView(s)
	case !s.Session.LoggedIn():
		return View{
			Text: header(s) + "\n\n" + loginPlaceholder,
			Keyboard: [][]state.Button{
				state.Row(state.ActionButton("🔑 Log in", cbPrompt)),
				state.Row(themeButton(s.LightMode)),
			},
		}
	case s.Session.Role == models.RoleManager:
		return managerView(s)
	default:
		return studentView(s)
	}
}

func loginView(s state.State) View {
	var b strings.Builder
	b.WriteString(header(s))
	b.WriteString("\n\n🔐 Login\n")
	b.WriteString("Send your name and roll number as:\n  Name, Roll\n\n")
	b.WriteString("Or use an email account:\n  /signin email password\n  /signup email password")
	return View{
		Text: b.String(),
		Keyboard: [][]state.Button{
			state.Row(state.ActionButton("📧 Sign in with email", cbSignIn), state.ActionButton("🆕 Sign up", cbSignUp)),
			state.Row(state.ActionButton("👤 Continue as guest", cbGuest)),
		},
	}
}

func studentView(s state.State) View {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nWelcome, %s (%s)\n", header(s), s.Session.Name, s.Session.Role.Label())
	fmt.Fprintf(&b, "💰 Wallet: %s\n🛒 Cart: %d item(s), %s\n\n", rupees(s.Wallet), len(s.Cart), rupees(s.CartTotal()))

	kb := make([][]state.Button, 0, len(s.Restaurants)+3)
	if len(s.Restaurants) == 0 {
		b.WriteString("No restaurants yet.")
	} else {
		b.WriteString("Restaurants:")
	}
	for _, r := range s.Restaurants {
		fmt.Fprintf(&b, "\n%s %s · %s", openMark(r.IsOpen), r.Name, r.Type)
		if !r.IsOpen {
			b.WriteString(" (closed)")
		}
		kb = append(kb, state.Row(state.ActionButton(openMark(r.IsOpen)+" "+r.Name, pfxRestaurant+r.ID)))
	}

	kb = append(kb, state.Row(
		state.ActionButton(fmt.Sprintf("🛒 Cart (%d)", len(s.Cart)), cbCart),
		state.ActionButton("📜 Orders", cbOrders),
	))
	if s.Session.Role == models.RoleHosteller {
		kb = append(kb, state.Row(
			state.ActionButton("🍱 Mess Booking", cbMess),
			state.ActionButton("🗓 My Bookings", cbMessHist),
		))
	}
	kb = append(kb, state.Row(themeButton(s.LightMode), state.ActionButton("🚪 Logout", cbLogout)))
	return View{Text: b.String(), Keyboard: kb}
}

func managerView(s state.State) View {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n🧑‍🍳 Manager Console · %s\n", header(s), s.Session.Name)
	fmt.Fprintf(&b, "%d restaurant(s), %d staff, %d order(s)\n", len(s.Restaurants), len(s.Employees), len(s.AllOrders))

	kb := make([][]state.Button, 0, len(s.Restaurants)+4)
	for _, r := range s.Restaurants {
		status := "Open"
		toggle := "🔴 Close"
		if !r.IsOpen {
			status, toggle = "Closed", "🟢 Open"
		}
		fmt.Fprintf(&b, "\n%s %s · %s (%s)", openMark(r.IsOpen), r.Name, r.Type, status)
		kb = append(kb, state.Row(
			state.ActionButton(toggle+" "+r.Name, pfxToggle+r.ID),
			state.ActionButton("➕ Dish", pfxDish+r.ID),
		))
	}
	kb = append(kb,
		state.Row(state.ActionButton("🏪 Add Restaurant", cbAddRest), state.ActionButton("🔑 Add Credential", cbAddCred)),
		state.Row(state.ActionButton("👥 Staff", cbStaff), state.ActionButton("➕ Add Employee", cbAddEmp)),
		state.Row(state.ActionButton("📦 All Orders", cbAllOrders)),
		state.Row(themeButton(s.LightMode), state.ActionButton("🚪 Logout", cbLogout)),
	)
	return View{Text: b.String(), Keyboard: kb}
}

func openMark(open bool) string {
	if open {
		return "🟢"
	}
	return "🔴"
}

func closeRow() []state.Button { return state.Row(state.ActionButton("✖ Close", cbClose)) }

// Panel is the content of one overlay.
type Panel struct {
	Title  string
	Body   string
	Footer [][]state.Button
	Style  state.FooterStyle
}

func restaurantPanel(r models.Restaurant, cartCount int) Panel {
	var b strings.Builder
	if r.Description != "" {
		b.WriteString(r.Description + "\n")
	}
	if !r.IsOpen {
		b.WriteString("Currently closed. Check back later.")
		return Panel{Title: "🍽 " + r.Name, Body: b.String(), Footer: [][]state.Button{closeRow()}}
	}

	var footer [][]state.Button
	for _, sec := range models.Sections {
		dishes := r.Menu[sec]
		if len(dishes) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s\n", models.SectionLabel(sec))
		for i, d := range dishes {
			fmt.Fprintf(&b, "• %s %s", d.Name, rupees(d.Price))
			if d.Description != "" {
				fmt.Fprintf(&b, " (%s)", d.Description)
			}
			b.WriteString("\n")
			footer = append(footer, state.Row(state.ActionButton(
				fmt.Sprintf("➕ %s %s", d.Name, rupees(d.Price)),
				fmt.Sprintf("%s%s:%d:%s", pfxAdd, sec, i, r.ID),
			)))
		}
	}
	if len(footer) == 0 {
		b.WriteString("\nThe menu is empty.")
	}
	footer = append(footer, state.Row(state.ActionButton(fmt.Sprintf("🛒 Cart (%d)", cartCount), cbCart), state.ActionButton("✖ Close", cbClose)))
	return Panel{Title: "🍽 " + r.Name, Body: strings.TrimRight(b.String(), "\n"), Footer: footer}
}

func cartPanel(cart []models.CartItem) Panel {
	if len(cart) == 0 {
		return Panel{Title: "🛒 Your Cart", Body: "Cart is empty.", Footer: [][]state.Button{closeRow()}}
	}
	var b strings.Builder
	remove := make([]state.Button, 0, len(cart))
	for i, it := range cart {
		fmt.Fprintf(&b, "%d. %s (%s) %s\n", i+1, it.Item, it.Restaurant, rupees(it.Price))
		remove = append(remove, state.ActionButton(fmt.Sprintf("❌ %d", i+1), pfxRemove+strconv.Itoa(i)))
	}
	total := models.CartTotal(cart)
	fmt.Fprintf(&b, "\nTotal: %s", rupees(total))
	footer := chunk(remove, 4)
	footer = append(footer, state.Row(state.ActionButton("💳 Checkout "+rupees(total), cbCheckout), state.ActionButton("✖ Close", cbClose)))
	return Panel{Title: "🛒 Your Cart", Body: b.String(), Footer: footer}
}

func paymentPanel(amount, wallet int64) Panel {
	footer := make([][]state.Button, 0, len(models.PaymentModes)+1)
	for i, m := range models.PaymentModes {
		footer = append(footer, state.Row(state.ActionButton(paymentLabel(m), pfxPay+strconv.Itoa(i))))
	}
	footer = append(footer, closeRow())
	return Panel{
		Title:  "💳 Select Payment",
		Body:   fmt.Sprintf("Amount Payable: %s\nWallet balance: %s", rupees(amount), rupees(wallet)),
		Footer: footer,
		Style:  state.FooterStacked,
	}
}

func paymentLabel(m models.PaymentMode) string {
	switch m {
	case models.ModePayPal:
		return "🅿️ PayPal (Test)"
	case models.ModeWallet:
		return "👛 Wallet"
	case models.ModeCash:
		return "💵 Cash"
	case models.ModeStripe:
		return "💳 Stripe"
	}
	return string(m)
}

func stripePanel(url string, amount int64) Panel {
	return Panel{
		Title:  "💳 Stripe Checkout",
		Body:   fmt.Sprintf("Complete the payment of %s on Stripe.", rupees(amount)),
		Footer: [][]state.Button{state.Row(state.LinkButton("Open Stripe", url)), closeRow()},
	}
}

func ordersPanel(title string, orders []models.Order, showUser bool) Panel {
	if len(orders) == 0 {
		return Panel{Title: title, Body: "No orders yet.", Footer: [][]state.Button{closeRow()}}
	}
	var b strings.Builder
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		fmt.Fprintf(&b, "%s · %s · %s", formatWhen(o.When), o.Mode, rupees(o.Total))
		if showUser && o.User != "" {
			fmt.Fprintf(&b, " · %s", o.User)
		}
		b.WriteString("\n")
		for _, it := range o.Items {
			fmt.Fprintf(&b, "   %s (%s) %s\n", it.Item, it.Restaurant, rupees(it.Price))
		}
	}
	return Panel{Title: title, Body: strings.TrimRight(b.String(), "\n"), Footer: [][]state.Button{closeRow()}}
}

func formatWhen(ts string) string {
	t, err := time.Parse("2006-01-02T15:04:05.000Z", ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04")
}

// bookingDraft is the mess booking being assembled in the overlay.
type bookingDraft struct {
	Date  string
	Meals map[string]bool
	Menu  string
}

func newBookingDraft(today time.Time) *bookingDraft {
	return &bookingDraft{
		Date:  today.Format("2006-01-02"),
		Meals: make(map[string]bool),
		Menu:  models.MenuStandardVeg,
	}
}

func (d *bookingDraft) selected() []string {
	out := make([]string, 0, len(d.Meals))
	for _, m := range models.Meals {
		if d.Meals[m] {
			out = append(out, m)
		}
	}
	return out
}

func (d *bookingDraft) request() services.BookingRequest {
	return services.BookingRequest{Date: d.Date, Meals: d.selected(), Menu: d.Menu}
}

func bookingPanel(d *bookingDraft, today time.Time) Panel {
	var b strings.Builder
	fmt.Fprintf(&b, "Date: %s\nMenu: %s\n\n", d.Date, d.Menu)
	for _, m := range models.Meals {
		mark := "⬜"
		if d.Meals[m] {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s (%s) %s\n", mark, models.Capitalize(m), models.MealTimes[m], rupees(models.MealPrices[m]))
	}
	fmt.Fprintf(&b, "\nTotal: %s", rupees(services.BookingPrice(d.selected(), d.Menu)))

	dates := make([]state.Button, 0, 3)
	for i, label := range []string{"Today", "Tomorrow", "Day after"} {
		day := today.AddDate(0, 0, i).Format("2006-01-02")
		if day == d.Date {
			label = "• " + label
		}
		dates = append(dates, state.ActionButton(label, pfxMessDate+day))
	}
	meals := make([]state.Button, 0, len(models.Meals))
	for _, m := range models.Meals {
		label := models.Capitalize(m)
		if d.Meals[m] {
			label = "✅ " + label
		}
		meals = append(meals, state.ActionButton(label, pfxMessMeal+m))
	}
	footer := [][]state.Button{dates, meals}
	for i, opt := range models.MenuOptions {
		label := opt
		if opt == d.Menu {
			label = "• " + label
		}
		footer = append(footer, state.Row(state.ActionButton(label, pfxMessMenu+strconv.Itoa(i))))
	}
	footer = append(footer, state.Row(state.ActionButton("✅ Confirm Booking", cbMessOK), state.ActionButton("✖ Close", cbClose)))
	return Panel{Title: "🍱 Mess Booking", Body: b.String(), Footer: footer}
}

func bookingHistoryPanel(bookings []models.MealBooking) Panel {
	if len(bookings) == 0 {
		return Panel{Title: "🗓 My Bookings", Body: "No bookings yet.", Footer: [][]state.Button{closeRow()}}
	}
	var b strings.Builder
	for i := len(bookings) - 1; i >= 0; i-- {
		bk := bookings[i]
		fmt.Fprintf(&b, "%s · %s · %s · seat %d · %s\n", bk.Date, models.MealsLabel(bk.Meals), bk.Menu, bk.Seat, rupees(bk.Price))
	}
	return Panel{Title: "🗓 My Bookings", Body: strings.TrimRight(b.String(), "\n"), Footer: [][]state.Button{closeRow()}}
}

func staffPanel(staff []models.Employee) Panel {
	if len(staff) == 0 {
		return Panel{Title: "👥 Staff", Body: "No employees yet.", Footer: [][]state.Button{state.Row(state.ActionButton("➕ Add Employee", cbAddEmp)), closeRow()}}
	}
	var b strings.Builder
	for _, e := range staff {
		fmt.Fprintf(&b, "• %s · %s · %s shift\n", e.Name, e.Role, e.Shift)
	}
	return Panel{
		Title:  "👥 Staff",
		Body:   strings.TrimRight(b.String(), "\n"),
		Footer: [][]state.Button{state.Row(state.ActionButton("➕ Add Employee", cbAddEmp)), closeRow()},
	}
}

func sectionPanel(r models.Restaurant) Panel {
	row := make([]state.Button, 0, len(models.Sections))
	for _, sec := range models.Sections {
		row = append(row, state.ActionButton(models.SectionLabel(sec), pfxDishSec+sec+":"+r.ID))
	}
	return Panel{
		Title:  "➕ New dish for " + r.Name,
		Body:   "Pick the menu section.",
		Footer: [][]state.Button{row, closeRow()},
	}
}

// formPanel shows the current prompt of a text form.
func formPanel(title, prompt string) Panel {
	return Panel{
		Title:  title,
		Body:   prompt + "\n\nSend /cancel to stop.",
		Footer: [][]state.Button{closeRow()},
	}
}

func chunk(buttons []state.Button, n int) [][]state.Button {
	var rows [][]state.Button
	for len(buttons) > n {
		rows = append(rows, buttons[:n:n])
		buttons = buttons[n:]
	}
	if len(buttons) > 0 {
		rows = append(rows, buttons)
	}
	return rows
}

// overlayView renders the overlay as one message. Stacked footers get one button per row.
func overlayView(o state.Overlay) View {
	rows := o.Footer
	if o.FooterStyle == state.FooterStacked {
		rows = nil
		for _, r := range o.Footer {
			for _, btn := range r {
				rows = append(rows, state.Row(btn))
			}
		}
	}
	return View{Text: o.Title + "\n\n" + o.Body, Keyboard: rows}
}

func toastText(t state.Toast) string {
	switch t.Severity {
	case state.SeverityError:
		return "⚠️ " + t.Text
	case state.SeverityInfo:
		return "ℹ️ " + t.Text
	}
	return t.Text
}
