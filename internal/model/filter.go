package model

import (
	"fmt"
	"strings"
)

// AgeRange is an inclusive age interval used as a filter predicate.
type AgeRange struct {
	Min int `json:"min" mapstructure:"min"`
	Max int `json:"max" mapstructure:"max"`
}

func (r AgeRange) Contains(age int) bool {
	return age >= r.Min && age <= r.Max
}

// AgeBracket is a labelled AgeRange preset shown in the sidebar.
type AgeBracket struct {
	ID       string `json:"id" mapstructure:"id"`
	Label    string `json:"label" mapstructure:"label"`
	AgeRange `mapstructure:",squash"`
}

// DefaultAgeBrackets are the presets offered when none are configured.
func DefaultAgeBrackets() []AgeBracket {
	return []AgeBracket{
		{ID: "10-25", Label: "10-25", AgeRange: AgeRange{Min: 10, Max: 25}},
		{ID: "26-35", Label: "26-35", AgeRange: AgeRange{Min: 26, Max: 35}},
		{ID: "36-50", Label: "36-50", AgeRange: AgeRange{Min: 36, Max: 50}},
		{ID: "50+", Label: "50+", AgeRange: AgeRange{Min: 50, Max: 100}},
	}
}

// Selection is the active filter state. A nil axis is inactive; active axes
// compose with AND.
type Selection struct {
	Gender *string   `json:"gender"`
	Age    *AgeRange `json:"age"`
}

func (s Selection) IsZero() bool {
	return s.Gender == nil && s.Age == nil
}

func (s Selection) GenderIs(g string) bool {
	return s.Gender != nil && *s.Gender == g
}

func (s Selection) AgeIs(min, max int) bool {
	return s.Age != nil && s.Age.Min == min && s.Age.Max == max
}

// Matches applies both predicates; gender compares case-sensitively.
func (s Selection) Matches(c Client) bool {
	if s.Gender != nil && c.Gender != *s.Gender {
		return false
	}
	if s.Age != nil && !s.Age.Contains(c.Age) {
		return false
	}
	return true
}

// Filter keeps the clients matching the selection and the search query.
// The input slice is not modified.
func (s Selection) Filter(clients []Client, search string) []Client {
	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if !s.Matches(c) {
			continue
		}
		if q != "" && !matchesSearch(c, q) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchesSearch(c Client, q string) bool {
	if strings.Contains(strings.ToLower(c.FullName()), q) {
		return true
	}
	return c.Phone != nil && strings.Contains(strings.ToLower(*c.Phone), q)
}

// Title describes the selection for the results header.
func (s Selection) Title() string {
	switch {
	case s.Age != nil && s.Gender != nil:
		return fmt.Sprintf("Clients aged %d-%d (%s)", s.Age.Min, s.Age.Max, *s.Gender)
	case s.Age != nil:
		return fmt.Sprintf("Clients aged %d-%d", s.Age.Min, s.Age.Max)
	case s.Gender != nil:
		return *s.Gender + " Clients"
	default:
		return "All Clients"
	}
}

// CountText renders n with the singular or plural noun.
func CountText(n int) string {
	if n == 1 {
		return "1 client"
	}
	return fmt.Sprintf("%d clients", n)
}

// ViewMode is the layout of the result list.
type ViewMode string

const (
	ViewTable ViewMode = "table"
	ViewCards ViewMode = "cards"
)

func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewTable:
		return ViewTable, nil
	case ViewCards:
		return ViewCards, nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Label is the text shown on the view toggle.
func (m ViewMode) Label() string {
	if m == ViewTable {
		return "≡ Table View"
	}
	return "☷ Card View"
}
