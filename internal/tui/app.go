package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/christopherklint97/adotime/internal/model"
)

type viewState int

const (
	formView viewState = iota
	submittingView
	confirmationView
)

const (
	fieldHours = iota
	fieldMinutes
	fieldDescription
	fieldCount
)

// SubmitFunc writes the log. It runs off the UI goroutine.
type SubmitFunc func(ctx context.Context, hours, minutes int, description string) (model.LogID, error)

// Header describes what is being logged.
type Header struct {
	Title   string   // e.g. "#42 Fix login"
	Context []string // hierarchy and day summary lines
}

// Values prefills the form.
type Values struct {
	Hours       int
	Minutes     int
	Description string
}

type Result struct {
	Canceled bool
	LogID    model.LogID
	Values   Values
}

type submitMsg struct {
	id  model.LogID
	err error
}

// App is the interactive form for a single time log.
type App struct {
	state   viewState
	header  Header
	inputs  []textinput.Model
	focus   int
	spinner spinner.Model
	submit  SubmitFunc
	timeout time.Duration

	values  Values
	formErr string
	errMsg  string
	result  *Result
}

func NewApp(header Header, prefill Values, submit SubmitFunc) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	inputs := make([]textinput.Model, fieldCount)
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		inputs[i] = ti
	}
	inputs[fieldHours].Placeholder = "0-23"
	inputs[fieldHours].CharLimit = 2
	inputs[fieldHours].Width = 4
	inputs[fieldMinutes].Placeholder = "0-59"
	inputs[fieldMinutes].CharLimit = 2
	inputs[fieldMinutes].Width = 4
	inputs[fieldDescription].Placeholder = "What did you work on?"
	inputs[fieldDescription].CharLimit = 500
	inputs[fieldDescription].Width = 60

	if prefill.Hours > 0 {
		inputs[fieldHours].SetValue(strconv.Itoa(prefill.Hours))
	}
	if prefill.Minutes > 0 {
		inputs[fieldMinutes].SetValue(strconv.Itoa(prefill.Minutes))
	}
	inputs[fieldDescription].SetValue(prefill.Description)
	inputs[fieldHours].Focus()

	return &App{
		state:   formView,
		header:  header,
		inputs:  inputs,
		spinner: s,
		submit:  submit,
		timeout: 60 * time.Second,
	}
}

func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if a.result == nil {
				a.result = &Result{Canceled: true}
			}
			return a, tea.Quit
		}
	case submitMsg:
		return a.handleSubmit(msg)
	}

	switch a.state {
	case formView:
		return a.updateForm(msg)
	case submittingView:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	case confirmationView:
		if _, ok := msg.(tea.KeyMsg); ok {
			return a, tea.Quit
		}
	}
	return a, nil
}

func (a *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			a.result = &Result{Canceled: true}
			return a, tea.Quit
		case "tab", "down":
			return a, a.setFocus((a.focus + 1) % fieldCount)
		case "shift+tab", "up":
			return a, a.setFocus((a.focus + fieldCount - 1) % fieldCount)
		case "enter":
			if a.focus < fieldDescription {
				return a, a.setFocus(a.focus + 1)
			}
			values, err := parseValues(a.inputs[fieldHours].Value(), a.inputs[fieldMinutes].Value(), a.inputs[fieldDescription].Value())
			if err != nil {
				a.formErr = err.Error()
				return a, nil
			}
			a.formErr = ""
			a.values = values
			a.state = submittingView
			return a, tea.Batch(a.spinner.Tick, a.runSubmit(values))
		}
	}

	var cmd tea.Cmd
	a.inputs[a.focus], cmd = a.inputs[a.focus].Update(msg)
	return a, cmd
}

func (a *App) setFocus(i int) tea.Cmd {
	a.inputs[a.focus].Blur()
	a.focus = i
	return a.inputs[a.focus].Focus()
}

func (a *App) runSubmit(v Values) tea.Cmd {
	submit := a.submit
	timeout := a.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		id, err := submit(ctx, v.Hours, v.Minutes, v.Description)
		return submitMsg{id: id, err: err}
	}
}

func (a *App) handleSubmit(msg submitMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		// Back to the form so the values can be corrected.
		a.state = formView
		a.formErr = msg.err.Error()
		return a, a.inputs[a.focus].Focus()
	}
	a.result = &Result{LogID: msg.id, Values: a.values}
	a.state = confirmationView
	return a, nil
}

// parseValues reads the raw form fields. Empty hours or minutes count as zero.
func parseValues(hours, minutes, description string) (Values, error) {
	h, err := parseField("hours", hours, 23)
	if err != nil {
		return Values{}, err
	}
	m, err := parseField("minutes", minutes, 59)
	if err != nil {
		return Values{}, err
	}
	if h == 0 && m == 0 {
		return Values{}, fmt.Errorf("enter a duration greater than zero")
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return Values{}, fmt.Errorf("description is required")
	}
	return Values{Hours: h, Minutes: m, Description: description}, nil
}

func parseField(name, raw string, maxValue int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > maxValue {
		return 0, fmt.Errorf("%s must be a number between 0 and %d", name, maxValue)
	}
	return n, nil
}

func (a *App) View() string {
	switch a.state {
	case submittingView:
		return a.spinner.View() + " Logging " + model.FormatDuration(a.values.Hours, a.values.Minutes) + "..."
	case confirmationView:
		msg := successStyle.Render("Time logged: ") + model.FormatDuration(a.values.Hours, a.values.Minutes)
		if !a.result.LogID.IsZero() {
			msg += dimStyle.Render(" (log " + a.result.LogID.String() + ")")
		}
		return msg + "\n" + helpStyle.Render("Press any key to exit")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("adotime: " + a.header.Title))
	b.WriteString("\n")
	for _, line := range a.header.Context {
		b.WriteString(subtitleStyle.Render(line))
		b.WriteString("\n")
	}

	labels := []string{"Hours", "Minutes", "Description"}
	var form strings.Builder
	for i, in := range a.inputs {
		label := fmt.Sprintf("%-12s", labels[i])
		if i == a.focus {
			label = selectedStyle.Render(label)
		} else {
			label = dimStyle.Render(label)
		}
		form.WriteString(label + in.View())
		if i < len(a.inputs)-1 {
			form.WriteString("\n")
		}
	}
	b.WriteString(boxStyle.Render(form.String()))
	b.WriteString("\n")

	if a.formErr != "" {
		b.WriteString(errorStyle.Render("Error: ") + a.formErr + "\n")
	}
	b.WriteString(helpStyle.Render("Tab: next field. Enter: submit. Esc: cancel"))
	return b.String()
}

func (a *App) GetResult() *Result {
	return a.result
}
