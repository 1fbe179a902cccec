package dashboard

import (
	"strings"
	"unicode"

	"github.com/jwalitptl/client-dashboard/internal/model"
)

// GenderOption is one gender entry of the sidebar.
type GenderOption struct {
	Name   string `json:"name"`
	Count  int    `json:"count"`
	Active bool   `json:"active"`
}

// BracketOption is one age preset of the sidebar.
type BracketOption struct {
	model.AgeBracket
	Active bool `json:"active"`
}

// Snapshot is everything a presentation layer needs to draw the dashboard.
type Snapshot struct {
	Clients          []model.Client    `json:"-"`
	Rows             []model.ClientRow `json:"clients"`
	Count            int               `json:"count"`
	CountText        string            `json:"count_text"`
	Title            string            `json:"title"`
	Loading          bool              `json:"loading"`
	Error            string            `json:"error,omitempty"`
	Genders          []GenderOption    `json:"genders"`
	GenderCounts     map[string]int    `json:"gender_counts"`
	AllGendersActive bool              `json:"all_genders_active"`
	AgeBrackets      []BracketOption   `json:"age_brackets"`
	AllSelected      bool              `json:"all_selected"`
	Selection        model.Selection   `json:"selection"`
	Search           string            `json:"search"`
	ViewMode         model.ViewMode    `json:"view_mode"`
	ViewModeLabel    string            `json:"view_mode_label"`
	SidebarOpen      bool              `json:"sidebar_open"`
	DropdownOpen     bool              `json:"dropdown_open"`
	UserName         string            `json:"user_name"`
	UserInitials     string            `json:"user_initials"`
}

// FullScreenLoading is true while the first results are still on their way.
func (s Snapshot) FullScreenLoading() bool {
	return s.Loading && len(s.Clients) == 0
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	clients := append([]model.Client(nil), c.clients...)
	rows := make([]model.ClientRow, len(clients))
	for i, cl := range clients {
		rows[i] = cl.Row()
	}

	genders := make([]GenderOption, len(c.catalog))
	for i, g := range c.catalog {
		genders[i] = GenderOption{Name: g, Count: c.counts[g], Active: c.selection.GenderIs(g)}
	}
	counts := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		counts[k] = v
	}

	brackets := make([]BracketOption, len(c.brackets))
	for i, b := range c.brackets {
		brackets[i] = BracketOption{AgeBracket: b, Active: c.selection.AgeIs(b.Min, b.Max)}
	}

	return Snapshot{
		Clients:          clients,
		Rows:             rows,
		Count:            len(clients),
		CountText:        model.CountText(len(clients)),
		Title:            c.selection.Title(),
		Loading:          c.loading,
		Error:            c.errMsg,
		Genders:          genders,
		GenderCounts:     counts,
		AllGendersActive: c.selection.Gender == nil,
		AgeBrackets:      brackets,
		AllSelected:      c.selection.IsZero(),
		Selection:        c.selection,
		Search:           c.search,
		ViewMode:         c.viewMode,
		ViewModeLabel:    c.viewMode.Label(),
		SidebarOpen:      c.sidebarOpen,
		DropdownOpen:     c.dropdownOpen,
		UserName:         c.userName,
		UserInitials:     initials(c.userName),
	}
}

// initials takes the first letter of the first two words, or the first two
// letters of a single word.
func initials(name string) string {
	words := strings.Fields(name)
	var out []rune
	switch len(words) {
	case 0:
		return ""
	case 1:
		out = []rune(words[0])
		if len(out) > 2 {
			out = out[:2]
		}
	default:
		out = []rune{[]rune(words[0])[0], []rune(words[1])[0]}
	}
	for i, r := range out {
		out[i] = unicode.ToUpper(r)
	}
	return string(out)
}
