package services

import (
	"context"
	"fmt"
	"time"

	"campus-eats/docstore"
	"campus-eats/models"
	"campus-eats/state"

	"go.uber.org/zap"
)

type BookingRequest struct {
	Date  string // YYYY-MM-DD
	Meals []string
	Menu  string
}

// BookingPrice is the sum of the slot prices plus the menu option surcharge.
func BookingPrice(meals []string, menu string) int64 {
	var total int64
	for _, m := range meals {
		total += models.MealPrices[m]
	}
	return total + models.MenuSurcharges[menu]
}

// normalizeMeals drops duplicates and puts meals in serving order.
func normalizeMeals(meals []string) ([]string, error) {
	chosen := make(map[string]bool, len(meals))
	for _, m := range meals {
		if _, ok := models.MealPrices[m]; !ok {
			return nil, invalid(fmt.Sprintf("Unknown meal %q.", m))
		}
		chosen[m] = true
	}
	out := make([]string, 0, len(chosen))
	for _, m := range models.Meals {
		if chosen[m] {
			out = append(out, m)
		}
	}
	return out, nil
}

func validMenu(menu string) bool {
	for _, m := range models.MenuOptions {
		if m == menu {
			return true
		}
	}
	return false
}

// PrepareBooking validates req against now and prices it. Validation failures match
// ErrValidation and carry the message shown to the user.
func PrepareBooking(req BookingRequest, now time.Time, seat int) (models.MealBooking, error) {
	if len(req.Meals) == 0 {
		return models.MealBooking{}, invalid("Please select at least one meal!")
	}
	meals, err := normalizeMeals(req.Meals)
	if err != nil {
		return models.MealBooking{}, err
	}
	menu := req.Menu
	if menu == "" {
		menu = models.MenuStandardVeg
	}
	if !validMenu(menu) {
		return models.MealBooking{}, invalid("Unknown menu option.")
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, now.Location())
	if err != nil {
		return models.MealBooking{}, invalid("Please pick a valid date.")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if date.Before(today) {
		return models.MealBooking{}, invalid("Booking date cannot be in the past.")
	}
	return models.MealBooking{
		Date:  req.Date,
		Meals: meals,
		Menu:  menu,
		Price: BookingPrice(meals, menu),
		Seat:  seat,
		When:  now.UTC().Format(timestampLayout),
	}, nil
}

// BookMeal validates and stores a mess booking for a hosteller.
func (s *Service) BookMeal(ctx context.Context, st *state.Store, req BookingRequest) (models.MealBooking, error) {
	sess := st.State().Session
	if !sess.Ready || sess.UserKey == "" {
		st.ShowMessage("Database is not ready. Please wait.", state.SeverityError, 0)
		return models.MealBooking{}, ErrNotReady
	}
	if sess.Role != models.RoleHosteller {
		st.ShowMessage("Mess booking is only available to hostellers.", state.SeverityError, 0)
		return models.MealBooking{}, invalid("Mess booking is only available to hostellers.")
	}
	booking, err := PrepareBooking(req, s.now(), s.seat())
	if err != nil {
		st.ShowMessage(UserMessage(err), state.SeverityError, 0)
		return models.MealBooking{}, err
	}
	id, err := s.docs.Add(ctx, docstore.UserMessHistory(sess.UserKey), booking)
	if err != nil {
		s.log.Error("book mess meal", zap.String("user", sess.UserKey), zap.Error(err))
		st.ShowMessage("Failed to save mess booking.", state.SeverityError, 0)
		return models.MealBooking{}, fmt.Errorf("save booking: %w", err)
	}
	booking.ID = id
	st.CloseOverlay()
	st.ShowMessage(fmt.Sprintf("✅ Mess booking confirmed for %s!", models.MealsLabel(booking.Meals)), state.SeveritySuccess, 0)
	return booking, nil
}
