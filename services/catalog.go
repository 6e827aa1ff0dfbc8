package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-eats/docstore"
	"campus-eats/models"
)

// GetRestaurant loads one restaurant document.
func GetRestaurant(ctx context.Context, docs docstore.Store, id string) (models.Restaurant, error) {
	doc, err := docs.Get(ctx, docstore.Restaurants, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Restaurant{}, ErrRestaurantNotFound
	}
	if err != nil {
		return models.Restaurant{}, err
	}
	var r models.Restaurant
	if err := doc.Decode(&r); err != nil {
		return models.Restaurant{}, fmt.Errorf("decode restaurant %s: %w", id, err)
	}
	r.ID = doc.ID
	return r, nil
}

// ListRestaurants returns every restaurant in insertion order.
func ListRestaurants(ctx context.Context, docs docstore.Store) ([]models.Restaurant, error) {
	all, err := docs.Query(ctx, docstore.Restaurants)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll(all, func(r *models.Restaurant, id string) { r.ID = id })
}

// SetRestaurantOpen writes the open flag.
func SetRestaurantOpen(ctx context.Context, docs docstore.Store, id string, open bool) error {
	err := docs.Update(ctx, docstore.Restaurants, id, map[string]any{"isOpen": open})
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrRestaurantNotFound
	}
	return err
}

// ToggleRestaurantOpen flips the stored open flag and returns the new value.
func ToggleRestaurantOpen(ctx context.Context, docs docstore.Store, id string) (bool, error) {
	r, err := GetRestaurant(ctx, docs, id)
	if err != nil {
		return false, err
	}
	if err := SetRestaurantOpen(ctx, docs, id, !r.IsOpen); err != nil {
		return false, err
	}
	return !r.IsOpen, nil
}

// AppendDish adds dish to the end of a menu section.
func AppendDish(ctx context.Context, docs docstore.Store, restaurantID, section string, dish models.Dish) error {
	if !models.ValidSection(section) {
		return fmt.Errorf("%w: unknown section %q", ErrValidation, section)
	}
	if strings.TrimSpace(dish.Name) == "" || dish.Price <= 0 {
		return fmt.Errorf("%w: dish needs a name and a positive price", ErrValidation)
	}
	r, err := GetRestaurant(ctx, docs, restaurantID)
	if err != nil {
		return err
	}
	menu := make(map[string][]models.Dish, len(r.Menu)+1)
	for k, v := range r.Menu {
		menu[k] = v
	}
	dishes := make([]models.Dish, 0, len(menu[section])+1)
	dishes = append(dishes, menu[section]...)
	menu[section] = append(dishes, dish)
	if err := docs.Update(ctx, docstore.Restaurants, restaurantID, map[string]any{"menu": menu}); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrRestaurantNotFound
		}
		return err
	}
	return nil
}

type RestaurantInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// NewRestaurant builds an open restaurant with an empty menu, keyed by the slug of its name.
func NewRestaurant(in RestaurantInput) (models.Restaurant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Type) == "" {
		return models.Restaurant{}, fmt.Errorf("%w: restaurant needs a name and a type", ErrValidation)
	}
	return models.Restaurant{
		ID:          models.Slug(name),
		Name:        name,
		Type:        strings.TrimSpace(in.Type),
		IsOpen:      true,
		Description: strings.TrimSpace(in.Description),
		Img:         models.PlaceholderImage(name),
		Menu:        models.EmptyMenu(),
	}, nil
}

// CreateRestaurant stores r under its id, replacing any restaurant with the same slug.
func CreateRestaurant(ctx context.Context, docs docstore.Store, r models.Restaurant) error {
	return docs.Set(ctx, docstore.Restaurants, r.ID, r)
}
