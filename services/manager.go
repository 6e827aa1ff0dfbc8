package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-eats/docstore"
	"campus-eats/models"
	"campus-eats/state"

	"go.uber.org/zap"
)

func (s *Service) requireManager(st *state.Store) error {
	if st.State().Session.Role != models.RoleManager {
		st.ShowMessage("Manager access required.", state.SeverityError, 0)
		return fmt.Errorf("%w: manager access required", ErrValidation)
	}
	return nil
}

// ToggleRestaurant flips a restaurant's open flag, starting from what the console shows.
func (s *Service) ToggleRestaurant(ctx context.Context, st *state.Store, restaurantID string) error {
	if err := s.requireManager(st); err != nil {
		return err
	}
	r, ok := st.State().Restaurant(restaurantID)
	if !ok {
		st.ShowMessage("Restaurant not found.", state.SeverityError, 0)
		return ErrRestaurantNotFound
	}
	if err := SetRestaurantOpen(ctx, s.docs, restaurantID, !r.IsOpen); err != nil {
		s.log.Error("toggle restaurant", zap.String("restaurant", restaurantID), zap.Error(err))
		st.ShowMessage("Failed to update status.", state.SeverityError, 0)
		return fmt.Errorf("toggle %s: %w", restaurantID, err)
	}
	verb := "opened"
	if r.IsOpen {
		verb = "closed"
	}
	st.ShowMessage(fmt.Sprintf("Restaurant %s successfully.", verb), state.SeveritySuccess, 0)
	return nil
}

// AddDishToMenu appends a dish to a restaurant's menu section.
func (s *Service) AddDishToMenu(ctx context.Context, st *state.Store, restaurantID, section string, dish models.Dish) error {
	if err := s.requireManager(st); err != nil {
		return err
	}
	dish.Name = strings.TrimSpace(dish.Name)
	dish.Description = strings.TrimSpace(dish.Description)
	if dish.Name == "" || dish.Price <= 0 {
		st.ShowMessage("Fill dish name and price.", state.SeverityError, 0)
		return fmt.Errorf("%w: dish needs a name and a positive price", ErrValidation)
	}
	if dish.Description == "" {
		dish.Description = "No description provided"
	}
	err := AppendDish(ctx, s.docs, restaurantID, section, dish)
	switch {
	case err == nil:
		st.ShowMessage(fmt.Sprintf("New dish %q added to %s!", dish.Name, models.SectionLabel(section)), state.SeveritySuccess, 0)
		return nil
	case errors.Is(err, ErrRestaurantNotFound):
		st.ShowMessage("Restaurant not found.", state.SeverityError, 0)
		return err
	default:
		s.log.Error("add dish", zap.String("restaurant", restaurantID), zap.Error(err))
		st.ShowMessage("Failed to add dish.", state.SeverityError, 0)
		return fmt.Errorf("add dish: %w", err)
	}
}

// AddCredential stores a (name, roll, role) credential unless the pair already exists.
func (s *Service) AddCredential(ctx context.Context, st *state.Store, c models.Credential) error {
	if err := s.requireManager(st); err != nil {
		return err
	}
	c.ID = ""
	c.Name, c.Roll = strings.TrimSpace(c.Name), strings.TrimSpace(c.Roll)
	if c.Name == "" || c.Roll == "" || !models.ValidRole(c.Role) {
		st.ShowMessage("Fill all fields.", state.SeverityError, 0)
		return fmt.Errorf("%w: credential needs name, roll and role", ErrValidation)
	}

	all, err := s.docs.Query(ctx, docstore.Credentials)
	if err != nil {
		s.log.Error("list credentials", zap.Error(err))
		st.ShowMessage("Failed to add credential.", state.SeverityError, 0)
		return fmt.Errorf("list credentials: %w", err)
	}
	existing, err := docstore.DecodeAll(all, func(c *models.Credential, id string) { c.ID = id })
	if err != nil {
		s.log.Error("decode credentials", zap.Error(err))
		st.ShowMessage("Failed to add credential.", state.SeverityError, 0)
		return err
	}
	for _, e := range existing {
		if e.Name == c.Name && e.Roll == c.Roll {
			st.ShowMessage("Credential already exists.", state.SeverityInfo, 0)
			return ErrDuplicateCredential
		}
	}

	if _, err := s.docs.Add(ctx, docstore.Credentials, c); err != nil {
		s.log.Error("add credential", zap.Error(err))
		st.ShowMessage("Failed to add credential.", state.SeverityError, 0)
		return fmt.Errorf("add credential: %w", err)
	}
	st.ShowMessage(fmt.Sprintf("%s credential added successfully!", models.Capitalize(string(c.Role))), state.SeveritySuccess, 0)
	return nil
}

// AddRestaurant creates an open restaurant with an empty menu and closes the overlay.
func (s *Service) AddRestaurant(ctx context.Context, st *state.Store, in RestaurantInput) (models.Restaurant, error) {
	if err := s.requireManager(st); err != nil {
		return models.Restaurant{}, err
	}
	r, err := NewRestaurant(in)
	if err != nil {
		st.ShowMessage("Fill restaurant name and type.", state.SeverityError, 0)
		return models.Restaurant{}, err
	}
	if err := CreateRestaurant(ctx, s.docs, r); err != nil {
		s.log.Error("add restaurant", zap.String("restaurant", r.ID), zap.Error(err))
		st.ShowMessage("Failed to add restaurant!", state.SeverityError, 0)
		return models.Restaurant{}, fmt.Errorf("add restaurant: %w", err)
	}
	st.ShowMessage(fmt.Sprintf("%s added successfully!", r.Name), state.SeveritySuccess, 0)
	st.CloseOverlay()
	return r, nil
}

// AddEmployee adds a staff member.
func (s *Service) AddEmployee(ctx context.Context, st *state.Store, e models.Employee) error {
	if err := s.requireManager(st); err != nil {
		return err
	}
	e.ID = ""
	e.Name, e.Role, e.Shift = strings.TrimSpace(e.Name), strings.TrimSpace(e.Role), strings.TrimSpace(e.Shift)
	if e.Name == "" || e.Role == "" || e.Shift == "" {
		st.ShowMessage("Fill all fields.", state.SeverityError, 0)
		return fmt.Errorf("%w: employee needs name, role and shift", ErrValidation)
	}
	if _, err := s.docs.Add(ctx, docstore.Employees, e); err != nil {
		s.log.Error("add employee", zap.Error(err))
		st.ShowMessage("Failed to add employee.", state.SeverityError, 0)
		return fmt.Errorf("add employee: %w", err)
	}
	st.ShowMessage(fmt.Sprintf("%s added to staff.", e.Name), state.SeveritySuccess, 0)
	return nil
}
