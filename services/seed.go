package services

import (
	"context"
	"fmt"

	"campus-eats/docstore"
	"campus-eats/models"
)

// Demo data for a fresh deployment. Fixed ids make seeding repeatable.
var (
	seedCredentials = map[string]models.Credential{
		"seed-manager": {Name: "Manager", Roll: "MG-001", Role: models.RoleManager},
		"seed-alice":   {Name: "Alice Johnson", Roll: "23CS001", Role: models.RoleHosteller},
		"seed-bob":     {Name: "Bob Kumar", Roll: "23CS002", Role: models.RoleDayScholar},
	}
	seedEmployees = map[string]models.Employee{
		"seed-charlie": {Name: "Charlie Brown", Role: "Chef", Shift: "Morning"},
		"seed-dale":    {Name: "Dale Cooper", Role: "Server", Shift: "Evening"},
	}
	seedRestaurants = []models.Restaurant{
		{
			Name: "Night Canteen", Type: "Snacks", IsOpen: true,
			Description: "Late-night bites near the hostel blocks.",
			Menu: map[string][]models.Dish{
				models.SectionStarters: {{Name: "Samosa", Description: "Two pieces with chutney", Price: 20}},
				models.SectionMain:     {{Name: "Maggi", Description: "Classic masala noodles", Price: 40}},
				models.SectionDrinks:   {{Name: "Masala Chai", Description: "Hot and sweet", Price: 15}},
			},
		},
		{
			Name: "South Spice", Type: "South Indian", IsOpen: true,
			Description: "Dosas and idlis all day.",
			Menu: map[string][]models.Dish{
				models.SectionStarters: {{Name: "Medu Vada", Description: "Crisp lentil fritters", Price: 30}},
				models.SectionMain:     {{Name: "Masala Dosa", Description: "With sambar and chutney", Price: 50}},
				models.SectionDrinks:   {{Name: "Filter Coffee", Description: "Strong and frothy", Price: 25}},
			},
		},
		{
			Name: "Juice Junction", Type: "Beverages", IsOpen: false,
			Menu: map[string][]models.Dish{
				models.SectionStarters: {},
				models.SectionMain:     {},
				models.SectionDrinks:   {{Name: "Mango Shake", Description: "Seasonal", Price: 60}},
			},
		},
	}
)

// Seed writes the demo credentials, staff and restaurants, overwriting earlier seeds.
func Seed(ctx context.Context, docs docstore.Store) error {
	for id, c := range seedCredentials {
		if err := docs.Set(ctx, docstore.Credentials, id, c); err != nil {
			return fmt.Errorf("seed credential %s: %w", id, err)
		}
	}
	for id, e := range seedEmployees {
		if err := docs.Set(ctx, docstore.Employees, id, e); err != nil {
			return fmt.Errorf("seed employee %s: %w", id, err)
		}
	}
	for _, r := range seedRestaurants {
		r.ID = models.Slug(r.Name)
		r.Img = models.PlaceholderImage(r.Name)
		if err := CreateRestaurant(ctx, docs, r); err != nil {
			return fmt.Errorf("seed restaurant %s: %w", r.ID, err)
		}
	}
	return nil
}
