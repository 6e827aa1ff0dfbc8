package models

import "strings"

const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealDinner    = "dinner"
)

// Meals lists the mess slots in serving order.
var Meals = []string{MealBreakfast, MealLunch, MealDinner}

// MealPrices is the fixed per-slot price table.
var MealPrices = map[string]int64{
	MealBreakfast: 50,
	MealLunch:     80,
	MealDinner:    75,
}

// MealTimes is shown next to each slot in the booking panel.
var MealTimes = map[string]string{
	MealBreakfast: "7:30 AM",
	MealLunch:     "1:00 PM",
	MealDinner:    "8:00 PM",
}

const (
	MenuStandardVeg = "Standard Veg Thali"
	MenuNonVeg      = "Non-Veg Addition (+₹50)"
	MenuDiet        = "Diet Meal"
)

// MenuOptions lists the mess menu options; MenuSurcharges holds the extra cost of each.
var (
	MenuOptions    = []string{MenuStandardVeg, MenuNonVeg, MenuDiet}
	MenuSurcharges = map[string]int64{MenuNonVeg: 50}
)

type MealBooking struct {
	ID    string   `json:"id,omitempty"`
	Date  string   `json:"date"` // YYYY-MM-DD
	Meals []string `json:"meals"`
	Menu  string   `json:"menu"`
	Price int64    `json:"price"`
	Seat  int      `json:"seat"`
	When  string   `json:"when"`
}

// MealsLabel joins capitalised meal names ("Breakfast & Dinner").
func MealsLabel(meals []string) string {
	names := make([]string, len(meals))
	for i, m := range meals {
		names[i] = Capitalize(m)
	}
	return strings.Join(names, " & ")
}
