package services

import (
	"fmt"

	"campus-eats/models"
	"campus-eats/state"
)

// AddToCart appends one dish to the cart.
func (s *Service) AddToCart(st *state.Store, item models.CartItem) {
	st.Transact(func(cur state.State) ([]state.Action, error) {
		cart := make([]models.CartItem, 0, len(cur.Cart)+1)
		cart = append(cart, cur.Cart...)
		cart = append(cart, item)
		return []state.Action{state.SetCart{Items: cart}}, nil
	})
	st.ShowMessage(fmt.Sprintf("Added %s to cart!", item.Item), state.SeverityInfo, CartToastDuration)
}

// AddDishToCart adds the dish at position index of a restaurant's menu section.
func (s *Service) AddDishToCart(st *state.Store, restaurantID, section string, index int) error {
	r, ok := st.State().Restaurant(restaurantID)
	if !ok {
		return ErrRestaurantNotFound
	}
	dishes := r.Menu[section]
	if index < 0 || index >= len(dishes) {
		return fmt.Errorf("%w: no dish %d in %s", ErrValidation, index, section)
	}
	d := dishes[index]
	s.AddToCart(st, models.CartItem{RestaurantID: r.ID, Restaurant: r.Name, Item: d.Name, Price: d.Price})
	return nil
}

// RemoveFromCart drops the line at index.
func (s *Service) RemoveFromCart(st *state.Store, index int) error {
	_, err := st.Transact(func(cur state.State) ([]state.Action, error) {
		if index < 0 || index >= len(cur.Cart) {
			return nil, fmt.Errorf("%w: no cart line %d", ErrValidation, index)
		}
		cart := make([]models.CartItem, 0, len(cur.Cart)-1)
		cart = append(cart, cur.Cart[:index]...)
		cart = append(cart, cur.Cart[index+1:]...)
		return []state.Action{state.SetCart{Items: cart}}, nil
	})
	return err
}
