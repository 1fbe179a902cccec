package dashboard

import (
	"strings"

	"github.com/jwalitptl/client-dashboard/internal/model"
)

// SelectGender toggles the gender filter: selecting the active gender clears it.
func (c *Controller) SelectGender(g string) {
	c.updateSelection(func(sel *model.Selection) {
		if sel.GenderIs(g) {
			sel.Gender = nil
			return
		}
		gender := g
		sel.Gender = &gender
	})
}

// SelectAllGenders clears the gender filter.
func (c *Controller) SelectAllGenders() {
	c.updateSelection(func(sel *model.Selection) {
		sel.Gender = nil
	})
}

// SelectAgeBracket toggles the age filter: selecting the active bounds clears it.
func (c *Controller) SelectAgeBracket(min, max int) {
	c.updateSelection(func(sel *model.Selection) {
		if sel.AgeIs(min, max) {
			sel.Age = nil
			return
		}
		sel.Age = &model.AgeRange{Min: min, Max: max}
	})
}

// SetSearch narrows results to names or phone numbers containing q.
func (c *Controller) SetSearch(q string) {
	q = strings.TrimSpace(q)

	c.mu.Lock()
	if q == c.search {
		c.mu.Unlock()
		return
	}
	c.search = q
	c.refreshLocked()
	c.mu.Unlock()

	c.notify()
}

// updateSelection applies fn to a copy of the selection, stores it and refetches.
func (c *Controller) updateSelection(fn func(sel *model.Selection)) {
	c.mu.Lock()
	sel := c.selection
	fn(&sel)
	c.selection = sel
	if c.compact {
		c.sidebarOpen = false
	}
	c.refreshLocked()
	c.mu.Unlock()

	c.notify()
}

func (c *Controller) SetViewMode(m model.ViewMode) {
	c.mu.Lock()
	c.viewMode = m
	c.dropdownOpen = false
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) ToggleSidebar() {
	c.setFlag(func() { c.sidebarOpen = !c.sidebarOpen })
}

func (c *Controller) CloseSidebar() {
	c.setFlag(func() { c.sidebarOpen = false })
}

func (c *Controller) ToggleDropdown() {
	c.setFlag(func() { c.dropdownOpen = !c.dropdownOpen })
}

func (c *Controller) CloseDropdown() {
	c.setFlag(func() { c.dropdownOpen = false })
}

func (c *Controller) setFlag(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) IsGenderSelected(g string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.GenderIs(g)
}

func (c *Controller) IsAgeBracketSelected(min, max int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.AgeIs(min, max)
}

func (c *Controller) IsAllGendersSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Gender == nil
}

// IsAllSelected reports whether neither gender nor age filters are active.
func (c *Controller) IsAllSelected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.IsZero()
}

func (c *Controller) Selection() model.Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Title()
}

func (c *Controller) CountText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CountText(len(c.clients))
}
