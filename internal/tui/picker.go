package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const pickerVisible = 15

// PickerItem is one work item offered by the picker.
type PickerItem struct {
	ID    int
	Title string
	Type  string
	State string
	Group string // "assigned" or "backlog"
}

type PickerResult struct {
	Item     PickerItem
	Canceled bool
}

type pickerModel struct {
	items    []PickerItem
	filtered []int // indices into items
	cursor   int
	filter   textinput.Model
	done     bool
	canceled bool
}

// PickerApp lets the user choose one work item to log against.
type PickerApp struct {
	picker pickerModel
	result *PickerResult
}

func NewPickerApp(items []PickerItem) *PickerApp {
	return &PickerApp{picker: newPicker(items)}
}

func (a *PickerApp) Init() tea.Cmd {
	return textinput.Blink
}

func (a *PickerApp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)

	if a.picker.done || a.picker.canceled {
		a.result = a.picker.Result()
		return a, tea.Quit
	}
	return a, cmd
}

func (a *PickerApp) View() string {
	return a.picker.View()
}

func (a *PickerApp) GetResult() *PickerResult {
	return a.result
}

func newPicker(items []PickerItem) pickerModel {
	ti := textinput.New()
	ti.Placeholder = "Filter by id, title or type..."
	ti.Focus()

	filtered := make([]int, len(items))
	for i := range items {
		filtered[i] = i
	}

	return pickerModel{
		items:    items,
		filtered: filtered,
		filter:   ti,
	}
}

func (m pickerModel) Update(msg tea.Msg) (pickerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc":
			m.canceled = true
			return m, nil
		case "enter":
			if len(m.filtered) > 0 {
				m.done = true
			}
			return m, nil
		case "up", "ctrl+k":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down", "ctrl+j":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	prev := m.filter.Value()
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != prev {
		m.applyFilter()
	}
	return m, cmd
}

func (m *pickerModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.filtered = m.filtered[:0]
	for i, it := range m.items {
		if query == "" ||
			strings.Contains(strconv.Itoa(it.ID), query) ||
			strings.Contains(strings.ToLower(it.Title), query) ||
			strings.Contains(strings.ToLower(it.Type), query) {
			m.filtered = append(m.filtered, i)
		}
	}
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

func (m pickerModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Pick a work item"))
	b.WriteString("\n")
	b.WriteString(m.filter.View())
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		b.WriteString(dimStyle.Render("  No work items match filter"))
		b.WriteString("\n")
	} else {
		start := 0
		if m.cursor >= pickerVisible {
			start = m.cursor - pickerVisible + 1
		}
		end := min(start+pickerVisible, len(m.filtered))

		for vi := start; vi < end; vi++ {
			it := m.items[m.filtered[vi]]

			cursor := "  "
			if vi == m.cursor {
				cursor = "> "
			}
			label := fmt.Sprintf("#%d %s", it.ID, it.Title)
			meta := dimStyle.Render(fmt.Sprintf(" %s, %s, %s", it.Type, it.State, it.Group))
			if vi == m.cursor {
				label = highlightStyle.Render(label)
			}
			b.WriteString(cursor + label + meta + "\n")
		}
	}

	b.WriteString(helpStyle.Render(fmt.Sprintf("%d of %d. Enter: pick. Esc: cancel", len(m.filtered), len(m.items))))
	return b.String()
}

func (m pickerModel) Result() *PickerResult {
	if m.canceled || len(m.filtered) == 0 {
		return &PickerResult{Canceled: true}
	}
	return &PickerResult{Item: m.items[m.filtered[m.cursor]]}
}
