package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"campus-eats/models"
	"campus-eats/services"
	"campus-eats/state"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	c := b.client(msg.Chat.ID)
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start" || text == "/menu":
		b.resetOverlay(c)
		b.resendConsole(c)
		return
	case text == "/cancel":
		b.resetOverlay(c)
		return
	case text == "/logout":
		b.resetOverlay(c)
		b.svc.Logout(ctx, c.chatID, c.st)
		return
	case text == "/theme":
		c.st.Dispatch(state.ToggleTheme{})
		return
	case text == "/guest":
		b.resetOverlay(c)
		b.svc.ContinueAsGuest(c.st)
		return
	case strings.HasPrefix(text, "/signin"), strings.HasPrefix(text, "/signup"):
		b.deleteMessage(c.chatID, msg.MessageID)
		b.emailCommand(ctx, c, text)
		return
	}

	c.mu.Lock()
	f := c.form
	c.mu.Unlock()
	if f != nil {
		b.formStep(ctx, c, f, msg, text)
		return
	}

	if c.st.State().LoginPrompt {
		name, roll, ok := parseNameRoll(text)
		if !ok {
			c.st.ShowMessage("Send your name and roll number as: Name, Roll", state.SeverityError, 0)
			return
		}
		if _, err := b.svc.Login(ctx, c.st, name, roll); err != nil {
			b.log.Debug("login", zap.Int64("chat", c.chatID), zap.Error(err))
		}
		return
	}

	// Anything typed outside a form is a click outside the overlay.
	b.resetOverlay(c)
	b.resendConsole(c)
}

func (b *Bot) emailCommand(ctx context.Context, c *client, text string) {
	email, password, ok := parseEmailCommand(text)
	if !ok {
		kind := formSignIn
		if strings.HasPrefix(text, "/signup") {
			kind = formSignUp
		}
		b.startForm(c, newForm(kind))
		return
	}
	var err error
	if strings.HasPrefix(text, "/signup") {
		err = b.svc.SignUp(ctx, c.chatID, c.st, email, password)
	} else {
		err = b.svc.SignIn(ctx, c.chatID, c.st, email, password)
	}
	if err == nil {
		b.resetOverlay(c)
	}
}

func (b *Bot) resendConsole(c *client) {
	c.renderMu.Lock()
	c.resend = true
	c.renderMu.Unlock()
	c.markDirty()
}

// resetOverlay drops any form or booking draft and closes the overlay.
func (b *Bot) resetOverlay(c *client) {
	c.mu.Lock()
	c.form, c.draft = nil, nil
	c.mu.Unlock()
	if c.st.State().Overlay.Open {
		c.st.CloseOverlay()
	}
}

func (b *Bot) open(c *client, p Panel) {
	c.st.Open(p.Title, p.Body, p.Footer, p.Style)
}

func (b *Bot) startForm(c *client, f *form) {
	c.mu.Lock()
	c.form, c.draft = f, nil
	c.mu.Unlock()
	b.open(c, formPanel(f.def().title, f.prompt()))
}

func (b *Bot) formStep(ctx context.Context, c *client, f *form, msg *tgbotapi.Message, text string) {
	c.mu.Lock()
	if c.form != f {
		c.mu.Unlock()
		return
	}
	if f.secretStep() {
		b.deleteMessage(c.chatID, msg.MessageID)
	}
	done := f.accept(text)
	if done {
		c.form = nil
	}
	c.mu.Unlock()

	if !done {
		b.open(c, formPanel(f.def().title, f.prompt()))
		return
	}
	if err := b.submitForm(ctx, c, f); err != nil {
		b.log.Debug("form rejected", zap.Int64("chat", c.chatID), zap.Error(err))
		if errors.Is(err, services.ErrDuplicateCredential) {
			c.st.CloseOverlay()
			return
		}
		retry := newForm(f.kind)
		retry.restaurantID, retry.section = f.restaurantID, f.section
		b.startForm(c, retry)
		return
	}
	if c.st.State().Overlay.Open {
		c.st.CloseOverlay()
	}
}

func (b *Bot) submitForm(ctx context.Context, c *client, f *form) error {
	switch f.kind {
	case formSignIn:
		return b.svc.SignIn(ctx, c.chatID, c.st, f.value(0), f.value(1))
	case formSignUp:
		return b.svc.SignUp(ctx, c.chatID, c.st, f.value(0), f.value(1))
	case formDish:
		return b.svc.AddDishToMenu(ctx, c.st, f.restaurantID, f.section, f.dish())
	case formCredential:
		return b.svc.AddCredential(ctx, c.st, f.credential())
	case formRestaurant:
		_, err := b.svc.AddRestaurant(ctx, c.st, f.restaurant())
		return err
	case formEmployee:
		return b.svc.AddEmployee(ctx, c.st, f.employee())
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	b.answer(cq)
	c := b.client(cq.Message.Chat.ID)
	data := cq.Data

	// Buttons outside the overlay close it first.
	if cq.Message.MessageID != c.overlayMessage() {
		b.resetOverlay(c)
	}
	s := c.st.State()

	switch {
	case data == cbClose:
		b.resetOverlay(c)
	case data == cbTheme:
		c.st.Dispatch(state.ToggleTheme{})
	case data == cbLogout:
		b.resetOverlay(c)
		b.svc.Logout(ctx, c.chatID, c.st)
	case data == cbPrompt:
		c.st.Dispatch(state.SetLoginPrompt{Open: true})
	case data == cbGuest:
		b.svc.ContinueAsGuest(c.st)
	case data == cbSignIn:
		b.startForm(c, newForm(formSignIn))
	case data == cbSignUp:
		b.startForm(c, newForm(formSignUp))

	case data == cbCart:
		b.open(c, cartPanel(s.Cart))
	case data == cbCheckout:
		if amount, err := b.svc.BeginCheckout(c.st); err == nil {
			b.open(c, paymentPanel(amount, s.Wallet))
		}
	case strings.HasPrefix(data, pfxPay):
		b.pay(ctx, c, strings.TrimPrefix(data, pfxPay))
	case data == cbOrders:
		b.open(c, ordersPanel("📜 Your Orders", s.Orders, false))
	case strings.HasPrefix(data, pfxRestaurant):
		id := strings.TrimPrefix(data, pfxRestaurant)
		r, ok := s.Restaurant(id)
		if !ok {
			c.st.ShowMessage("Restaurant not found.", state.SeverityError, 0)
			return
		}
		b.open(c, restaurantPanel(r, len(s.Cart)))
	case strings.HasPrefix(data, pfxAdd):
		b.addToCart(c, strings.TrimPrefix(data, pfxAdd))
	case strings.HasPrefix(data, pfxRemove):
		i, err := strconv.Atoi(strings.TrimPrefix(data, pfxRemove))
		if err == nil && b.svc.RemoveFromCart(c.st, i) == nil {
			b.open(c, cartPanel(c.st.State().Cart))
		}

	case data == cbMess:
		if s.Session.Role != models.RoleHosteller {
			c.st.ShowMessage("Mess booking is only available to hostellers.", state.SeverityError, 0)
			return
		}
		d := newBookingDraft(b.now())
		c.mu.Lock()
		c.draft = d
		c.mu.Unlock()
		b.open(c, bookingPanel(d, b.now()))
	case strings.HasPrefix(data, "mess:") && data != cbMessOK:
		b.editDraft(c, data)
	case data == cbMessOK:
		c.mu.Lock()
		d := c.draft
		c.mu.Unlock()
		if d == nil {
			return
		}
		if _, err := b.svc.BookMeal(ctx, c.st, d.request()); err == nil {
			c.mu.Lock()
			c.draft = nil
			c.mu.Unlock()
		}
	case data == cbMessHist:
		b.open(c, bookingHistoryPanel(s.MessHistory))

	default:
		b.handleManagerCallback(ctx, c, s, data)
	}
}

func (b *Bot) handleManagerCallback(ctx context.Context, c *client, s state.State, data string) {
	if s.Session.Role != models.RoleManager {
		c.st.ShowMessage("Manager access required.", state.SeverityError, 0)
		return
	}
	switch {
	case strings.HasPrefix(data, pfxToggle):
		if err := b.svc.ToggleRestaurant(ctx, c.st, strings.TrimPrefix(data, pfxToggle)); err != nil {
			b.log.Debug("toggle restaurant", zap.Int64("chat", c.chatID), zap.Error(err))
		}
	case strings.HasPrefix(data, pfxDish):
		r, ok := s.Restaurant(strings.TrimPrefix(data, pfxDish))
		if !ok {
			c.st.ShowMessage("Restaurant not found.", state.SeverityError, 0)
			return
		}
		b.open(c, sectionPanel(r))
	case strings.HasPrefix(data, pfxDishSec):
		section, id, ok := strings.Cut(strings.TrimPrefix(data, pfxDishSec), ":")
		if !ok || !models.ValidSection(section) {
			return
		}
		f := newForm(formDish)
		f.restaurantID, f.section = id, section
		b.startForm(c, f)
	case data == cbAddCred:
		b.startForm(c, newForm(formCredential))
	case data == cbAddRest:
		b.startForm(c, newForm(formRestaurant))
	case data == cbAddEmp:
		b.startForm(c, newForm(formEmployee))
	case data == cbStaff:
		b.open(c, staffPanel(s.Employees))
	case data == cbAllOrders:
		b.open(c, ordersPanel("📦 All Orders", s.AllOrders, true))
	default:
		b.log.Debug("unknown callback", zap.String("data", data))
	}
}

func (b *Bot) addToCart(c *client, arg string) {
	parts := strings.SplitN(arg, ":", 3)
	if len(parts) != 3 {
		return
	}
	idx, err := strconv.Atoi(parts[1])
	if err != nil {
		return
	}
	r, ok := c.st.State().Restaurant(parts[2])
	if !ok {
		c.st.ShowMessage("Restaurant not found.", state.SeverityError, 0)
		return
	}
	if !r.IsOpen {
		c.st.ShowMessage(r.Name+" is closed right now.", state.SeverityError, 0)
		return
	}
	if err := b.svc.AddDishToCart(c.st, r.ID, parts[0], idx); err != nil {
		b.log.Debug("add to cart", zap.Error(err))
		return
	}
	b.open(c, restaurantPanel(r, len(c.st.State().Cart)))
}

func (b *Bot) pay(ctx context.Context, c *client, arg string) {
	i, err := strconv.Atoi(arg)
	if err != nil || i < 0 || i >= len(models.PaymentModes) {
		return
	}
	receipt, err := b.svc.Pay(ctx, c.st, models.PaymentModes[i])
	if err != nil {
		b.log.Debug("pay", zap.Int64("chat", c.chatID), zap.Error(err))
		return
	}
	if receipt.RedirectURL != "" {
		b.open(c, stripePanel(receipt.RedirectURL, receipt.Order.Total))
	}
}

func (b *Bot) editDraft(c *client, data string) {
	c.mu.Lock()
	d := c.draft
	if d == nil {
		d = newBookingDraft(b.now())
		c.draft = d
	}
	switch {
	case strings.HasPrefix(data, pfxMessDate):
		d.Date = strings.TrimPrefix(data, pfxMessDate)
	case strings.HasPrefix(data, pfxMessMeal):
		m := strings.TrimPrefix(data, pfxMessMeal)
		if _, ok := models.MealPrices[m]; ok {
			d.Meals[m] = !d.Meals[m]
		}
	case strings.HasPrefix(data, pfxMessMenu):
		if i, err := strconv.Atoi(strings.TrimPrefix(data, pfxMessMenu)); err == nil && i >= 0 && i < len(models.MenuOptions) {
			d.Menu = models.MenuOptions[i]
		}
	}
	p := bookingPanel(d, b.now())
	c.mu.Unlock()
	b.open(c, p)
}
