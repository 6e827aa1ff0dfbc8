package services

import (
	"context"
	"errors"
	"fmt"

	"campus-eats/docstore"
	"campus-eats/models"
	"campus-eats/state"

	"go.uber.org/zap"
)

// Receipt is what a successful payment hands back to the view.
type Receipt struct {
	Order       models.Order
	RedirectURL string
}

// BeginCheckout moves the client into payment-mode selection for the current cart total.
func (s *Service) BeginCheckout(st *state.Store) (int64, error) {
	var amount int64
	_, err := st.Transact(func(cur state.State) ([]state.Action, error) {
		if cur.Checkout.Phase == state.PhaseProcessing {
			return nil, ErrCheckoutInProgress
		}
		if len(cur.Cart) == 0 {
			return nil, ErrEmptyCart
		}
		amount = cur.CartTotal()
		return []state.Action{state.SetCheckout{Checkout: state.Checkout{Phase: state.PhaseSelecting, Amount: amount}}}, nil
	})
	switch {
	case errors.Is(err, ErrEmptyCart):
		st.ShowMessage("Cart is empty!", state.SeverityError, 0)
	case errors.Is(err, ErrCheckoutInProgress):
		st.ShowMessage("Payment already in progress.", state.SeverityInfo, 0)
	}
	return amount, err
}

// Pay settles the cart with mode. From idle, settled or failed it re-enters selection
// first; while another payment is processing it is rejected.
func (s *Service) Pay(ctx context.Context, st *state.Store, mode models.PaymentMode) (Receipt, error) {
	if !models.ValidPaymentMode(mode) {
		return Receipt{}, fmt.Errorf("%w: unknown payment mode %q", ErrValidation, mode)
	}
	if st.State().Checkout.Phase != state.PhaseSelecting {
		if _, err := s.BeginCheckout(st); err != nil {
			return Receipt{}, err
		}
	}

	var (
		amount int64
		items  []models.CartItem
		key    string
	)
	_, err := st.Transact(func(cur state.State) ([]state.Action, error) {
		if cur.Checkout.Phase == state.PhaseProcessing {
			return nil, ErrCheckoutInProgress
		}
		if !cur.Session.Ready || cur.Session.UserKey == "" {
			return nil, ErrNotReady
		}
		if len(cur.Cart) == 0 {
			return nil, ErrEmptyCart
		}
		amount, items, key = cur.CartTotal(), cur.Cart, cur.Session.UserKey
		if mode == models.ModeWallet && cur.Wallet < amount {
			return nil, ErrInsufficientBalance
		}
		actions := []state.Action{state.SetCheckout{Checkout: state.Checkout{Phase: state.PhaseProcessing, Amount: amount, Mode: mode}}}
		if mode == models.ModeWallet {
			actions = append(actions, state.SetWallet{Balance: cur.Wallet - amount})
		}
		return actions, nil
	})
	switch {
	case errors.Is(err, ErrInsufficientBalance):
		st.Dispatch(state.SetCheckout{Checkout: state.Checkout{
			Phase: state.PhaseSelecting, Amount: amount, Mode: mode, Reason: "insufficient wallet balance",
		}})
		st.ShowMessage("Payment failed: Insufficient wallet balance.", state.SeverityError, 0)
		return Receipt{}, err
	case errors.Is(err, ErrCheckoutInProgress):
		st.ShowMessage("Payment already in progress.", state.SeverityInfo, 0)
		return Receipt{}, err
	case errors.Is(err, ErrNotReady):
		st.ShowMessage("Database is not ready. Please wait.", state.SeverityError, 0)
		return Receipt{}, err
	case errors.Is(err, ErrEmptyCart):
		st.ShowMessage("Cart is empty!", state.SeverityError, 0)
		return Receipt{}, err
	case err != nil:
		return Receipt{}, err
	}

	if mode == models.ModePayPal {
		st.ShowMessage("Initiating PayPal payment...", state.SeverityInfo, PayPalToastDuration)
	}
	if err := s.gateway.Charge(ctx, mode, amount); err != nil {
		s.log.Warn("charge", zap.String("mode", string(mode)), zap.Int64("amount", amount), zap.Error(err))
		s.failCheckout(st, mode, amount, "gateway: "+err.Error())
		st.ShowMessage("Payment failed. Please try again.", state.SeverityError, 0)
		return Receipt{}, fmt.Errorf("charge %s: %w", mode, err)
	}

	order := models.Order{
		When:  s.now().UTC().Format(timestampLayout),
		Mode:  mode,
		Total: amount,
		Items: items,
	}
	id, err := s.docs.Add(ctx, docstore.UserOrders(key), order)
	if err != nil {
		s.log.Error("place order", zap.String("user", key), zap.Error(err))
		s.failCheckout(st, mode, amount, err.Error())
		st.ShowMessage("Order failed to save to database.", state.SeverityError, 0)
		return Receipt{}, fmt.Errorf("place order: %w", err)
	}
	order.ID = id

	shared := order
	shared.ID = ""
	shared.User = key
	if _, err := s.docs.Add(ctx, docstore.AllOrders, shared); err != nil {
		s.log.Warn("copy order to allOrders", zap.String("order", id), zap.Error(err))
	}

	next := st.Dispatch(
		state.SetCart{},
		state.CloseOverlay{},
		state.SetCheckout{Checkout: state.Checkout{Phase: state.PhaseSettled, Amount: amount, Mode: mode}},
	)
	if mode == models.ModeWallet {
		if err := s.docs.Set(ctx, docstore.Wallets, key, models.Wallet{Balance: next.Wallet}); err != nil {
			s.log.Warn("persist wallet", zap.String("user", key), zap.Error(err))
		}
	}

	receipt := Receipt{Order: order}
	if mode == models.ModeStripe {
		receipt.RedirectURL = s.cfg.StripeURL
		st.ShowMessage(fmt.Sprintf("Redirecting to Stripe for ₹%d...", amount), state.SeveritySuccess, OrderToastDuration)
		return receipt, nil
	}
	st.ShowMessage(fmt.Sprintf("✅ Order placed! Payment via %s. Total: ₹%d.", mode, amount), state.SeveritySuccess, OrderToastDuration)
	return receipt, nil
}

// failCheckout refunds an optimistic wallet debit and records the failure. The overlay stays open.
func (s *Service) failCheckout(st *state.Store, mode models.PaymentMode, amount int64, reason string) {
	st.Transact(func(cur state.State) ([]state.Action, error) {
		actions := []state.Action{state.SetCheckout{Checkout: state.Checkout{
			Phase: state.PhaseFailed, Amount: amount, Mode: mode, Reason: reason,
		}}}
		if mode == models.ModeWallet {
			actions = append(actions, state.SetWallet{Balance: cur.Wallet + amount})
		}
		return actions, nil
	})
}
