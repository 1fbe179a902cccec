package tui

import "github.com/charmbracelet/lipgloss"

var (
	primary     = lipgloss.Color("#2c3e50")
	accent      = lipgloss.Color("#3498db")
	muted       = lipgloss.Color("#7f8c8d")
	border      = lipgloss.Color("#bdc3c7")
	destructive = lipgloss.Color("#e53935")
	maleColor   = lipgloss.Color("#5dade2")
	femaleColor = lipgloss.Color("#ec7063")
)

type Styles struct {
	Header       lipgloss.Style
	Title        lipgloss.Style
	Muted        lipgloss.Style
	Error        lipgloss.Style
	Sidebar      lipgloss.Style
	SectionTitle lipgloss.Style
	Option       lipgloss.Style
	ActiveOption lipgloss.Style
	Cursor       lipgloss.Style
	Count        lipgloss.Style
	Card         lipgloss.Style
	CardName     lipgloss.Style
	Search       lipgloss.Style
	SearchActive lipgloss.Style
	Main         lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primary).
			Padding(0, 1),
		Title:        lipgloss.NewStyle().Bold(true).Foreground(primary),
		Muted:        lipgloss.NewStyle().Foreground(muted),
		Error:        lipgloss.NewStyle().Foreground(destructive).Bold(true).Padding(1, 2),
		Sidebar:      lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, true, false, false).BorderForeground(border).Padding(0, 1).Width(26),
		SectionTitle: lipgloss.NewStyle().Bold(true).MarginTop(1),
		Option:       lipgloss.NewStyle(),
		ActiveOption: lipgloss.NewStyle().Foreground(accent).Bold(true),
		Cursor:       lipgloss.NewStyle().Foreground(accent),
		Count:        lipgloss.NewStyle().Foreground(muted),
		Card:         lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1).Width(cardWidth),
		CardName:     lipgloss.NewStyle().Bold(true),
		Search:       lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		SearchActive: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accent).Padding(0, 1),
		Main:         lipgloss.NewStyle().Padding(0, 2),
	}
}

// badge colors the gender label of a card.
func badge(gender string) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1)
	switch gender {
	case "male":
		return s.Foreground(maleColor)
	case "female":
		return s.Foreground(femaleColor)
	}
	return s.Foreground(muted)
}
