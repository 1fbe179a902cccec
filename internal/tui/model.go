// Package tui renders the client dashboard in a terminal with bubbletea.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwalitptl/client-dashboard/internal/dashboard"
	"github.com/jwalitptl/client-dashboard/internal/model"
)

const cardWidth = 30

// changedMsg tells the model the controller state moved on. It carries no
// payload; the model reads a fresh snapshot so out-of-order notifications
// can never roll the view back.
type changedMsg struct{}

type itemKind int

const (
	itemAllGenders itemKind = iota
	itemGender
	itemBracket
)

type sidebarItem struct {
	kind    itemKind
	gender  string
	bracket model.AgeBracket
}

type Model struct {
	ctrl    *dashboard.Controller
	changes chan struct{}
	done    chan struct{}
	unsub   func()

	snap      dashboard.Snapshot
	cursor    int
	searching bool
	search    textinput.Model
	table     table.Model
	styles    Styles

	width  int
	height int
}

// New wires a model to ctrl. The controller may be mounted before or after;
// the model follows its change notifications either way.
func New(ctrl *dashboard.Controller) Model {
	changes := make(chan struct{}, 1)
	unsub := ctrl.Subscribe(func(dashboard.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	ti := textinput.New()
	ti.Placeholder = "Search clients..."
	ti.CharLimit = 100
	ti.Width = 40

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 24},
			{Title: "Gender", Width: 10},
			{Title: "Age", Width: 5},
			{Title: "Phone", Width: 16},
			{Title: "SSN", Width: 13},
		}),
		table.WithHeight(15),
	)

	m := Model{
		ctrl:    ctrl,
		changes: changes,
		done:    make(chan struct{}),
		unsub:   unsub,
		search:  ti,
		table:   t,
		styles:  DefaultStyles(),
		width:   100,
		height:  30,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return waitForChange(m.changes, m.done)
}

func waitForChange(ch, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-done:
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		m.refresh()
		return m, waitForChange(m.changes, m.done)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetHeight(max(msg.Height-10, 3))
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.ctrl.SetSearch(m.search.Value())
		m.refresh()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.snap.Search)
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.ctrl.ToggleSidebar()
	case "esc":
		m.ctrl.PointerDown(dashboard.TargetMain)
	case "/":
		m.searching = true
		m.search.SetValue(m.snap.Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "v":
		next := model.ViewTable
		if m.snap.ViewMode == model.ViewTable {
			next = model.ViewCards
		}
		m.ctrl.SetViewMode(next)
	case "j", "down":
		if m.snap.SidebarOpen && m.cursor < len(m.items())-1 {
			m.cursor++
		}
	case "k", "up":
		if m.snap.SidebarOpen && m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		if m.snap.SidebarOpen {
			m.selectItem()
		}
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

func (m *Model) selectItem() {
	items := m.items()
	if m.cursor >= len(items) {
		return
	}
	it := items[m.cursor]
	switch it.kind {
	case itemAllGenders:
		m.ctrl.SelectAllGenders()
	case itemGender:
		m.ctrl.SelectGender(it.gender)
	case itemBracket:
		m.ctrl.SelectAgeBracket(it.bracket.Min, it.bracket.Max)
	}
}

func (m Model) items() []sidebarItem {
	items := make([]sidebarItem, 0, 1+len(m.snap.Genders)+len(m.snap.AgeBrackets))
	items = append(items, sidebarItem{kind: itemAllGenders})
	for _, g := range m.snap.Genders {
		items = append(items, sidebarItem{kind: itemGender, gender: g.Name})
	}
	for _, b := range m.snap.AgeBrackets {
		items = append(items, sidebarItem{kind: itemBracket, bracket: b.AgeBracket})
	}
	return items
}

// refresh pulls the latest snapshot and rebuilds the table rows from it.
func (m *Model) refresh() {
	m.snap = m.ctrl.Snapshot()

	rows := make([]table.Row, len(m.snap.Rows))
	for i, r := range m.snap.Rows {
		rows[i] = table.Row{r.Name, r.Gender, strconv.Itoa(r.Age), r.Phone, r.SSN}
	}
	m.table.SetRows(rows)

	if n := len(m.items()); m.cursor >= n {
		m.cursor = n - 1
	}
}

// Close drops the controller subscription. The program owner unmounts the
// controller.
func (m Model) Close() {
	m.unsub()
	close(m.done)
}

func (m Model) View() string {
	if m.snap.FullScreenLoading() {
		return "Loading...\n"
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	body := m.renderMain()
	if m.snap.SidebarOpen {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), body)
	}
	sb.WriteString(body)
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Muted.Render(m.help()))
	return sb.String()
}

func (m Model) renderHeader() string {
	left := m.styles.Header.Render("☰ Client Dashboard")
	right := m.styles.Header.Render(fmt.Sprintf("%s  %s", m.snap.UserInitials, m.snap.UserName))

	searchStyle := m.styles.Search
	if m.searching {
		searchStyle = m.styles.SearchActive
	}
	var box string
	if m.searching || m.snap.Search != "" {
		box = searchStyle.Render(m.search.View())
	} else {
		box = searchStyle.Render(m.styles.Muted.Render("Search clients..."))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, left, " ", right),
		box,
	)
}

func (m Model) renderSidebar() string {
	var sb strings.Builder
	idx := 0
	line := func(text string, active bool, count string) {
		prefix := "  "
		if idx == m.cursor {
			prefix = m.styles.Cursor.Render("> ")
		}
		style := m.styles.Option
		if active {
			style = m.styles.ActiveOption
		}
		sb.WriteString(prefix + style.Render(text))
		if count != "" {
			sb.WriteString(" " + m.styles.Count.Render("("+count+")"))
		}
		sb.WriteString("\n")
		idx++
	}

	sb.WriteString(m.styles.SectionTitle.Render("Gender") + "\n")
	line("All Genders", m.snap.AllGendersActive, "")
	for _, g := range m.snap.Genders {
		line(g.Name, g.Active, strconv.Itoa(g.Count))
	}

	sb.WriteString(m.styles.SectionTitle.Render("Age Groups") + "\n")
	for _, b := range m.snap.AgeBrackets {
		line(b.Label, b.Active, "")
	}

	return m.styles.Sidebar.Render(sb.String())
}

func (m Model) renderMain() string {
	if m.snap.Error != "" {
		return m.styles.Main.Render(m.styles.Error.Render(m.snap.Error))
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render(m.snap.Title))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Muted.Render(m.snap.CountText + "  |  " + m.snap.ViewModeLabel))
	sb.WriteString("\n\n")

	switch {
	case len(m.snap.Rows) == 0:
		sb.WriteString("No clients found\n")
		sb.WriteString(m.styles.Muted.Render("Try adjusting your filters or check back later"))
	case m.snap.ViewMode == model.ViewTable:
		sb.WriteString(m.table.View())
	default:
		sb.WriteString(m.renderCards())
	}
	return m.styles.Main.Render(sb.String())
}

func (m Model) renderCards() string {
	avail := m.width
	if m.snap.SidebarOpen {
		avail -= 30
	}
	perRow := max(avail/(cardWidth+4), 1)

	var rows []string
	var current []string
	for _, r := range m.snap.Rows {
		body := lipgloss.JoinVertical(lipgloss.Left,
			m.styles.CardName.Render(r.Name)+badge(r.GenderClass).Render(r.Gender),
			"Age: "+strconv.Itoa(r.Age),
			"Phone: "+r.Phone,
			"SSN: "+r.SSN,
		)
		current = append(current, m.styles.Card.Render(body))
		if len(current) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
			current = nil
		}
	}
	if len(current) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, current...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) help() string {
	if m.searching {
		return "[enter] apply  [esc] cancel"
	}
	if m.snap.SidebarOpen {
		return "[tab] hide filters  [j/k] move  [enter] select  [v] view  [/] search  [q] quit"
	}
	return "[tab] filters  [v] view  [/] search  [esc] close menus  [q] quit"
}

// Run mounts ctrl, drives it with a terminal program until the user quits or
// ctx ends, then unmounts it.
func Run(ctx context.Context, ctrl *dashboard.Controller, opts ...tea.ProgramOption) error {
	m := New(ctrl)
	defer m.Close()

	if err := ctrl.Mount(ctx); err != nil {
		return err
	}
	defer ctrl.Unmount()

	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
