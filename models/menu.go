package models

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Dish is one menu entry. The short JSON keys match the documents already in the store.
type Dish struct {
	Name        string `json:"n"`
	Description string `json:"d"`
	Price       int64  `json:"p"`
}

type Restaurant struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	IsOpen      bool              `json:"isOpen"`
	Description string            `json:"description,omitempty"`
	Img         string            `json:"img,omitempty"`
	Menu        map[string][]Dish `json:"menu"`
}

const (
	SectionMain     = "main"
	SectionStarters = "starters"
	SectionDrinks   = "drinks"
)

// Sections lists menu sections in display order.
var Sections = []string{SectionStarters, SectionMain, SectionDrinks}

func ValidSection(s string) bool {
	return s == SectionMain || s == SectionStarters || s == SectionDrinks
}

// SectionLabel is the human label used in toasts and panels.
func SectionLabel(s string) string {
	switch s {
	case SectionMain:
		return "Main"
	case SectionStarters:
		return "Starters"
	case SectionDrinks:
		return "Drinks"
	}
	return Capitalize(s)
}

// EmptyMenu returns a menu with every section present and empty.
func EmptyMenu() map[string][]Dish {
	return map[string][]Dish{SectionMain: {}, SectionStarters: {}, SectionDrinks: {}}
}

var slugSpaces = regexp.MustCompile(`\s+`)

// Slug lowercases name and joins words with dashes ("Night Canteen" -> "night-canteen").
func Slug(name string) string {
	return slugSpaces.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// PlaceholderImage returns the placeholder picture used for new restaurants.
func PlaceholderImage(name string) string {
	return "https://placehold.co/150x120/4ade80/fff?text=" + slugSpaces.ReplaceAllString(strings.TrimSpace(name), "+")
}

func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
