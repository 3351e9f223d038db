package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/litescript/ls-constellations/internal/astro"
	"github.com/litescript/ls-constellations/internal/resolver"
)

// formField is one labelled input with its parser.
type formField struct {
	label string
	hint  string
	parse func(string) (float64, error)
	value string
}

// EntryForm is a Bubble Tea model collecting manual astrometry.
type EntryForm struct {
	identifier string
	fields     []formField
	focus      int
	err        string
	submitted  bool
	cancelled  bool
}

// NewPositionForm asks for RA, Dec, both proper motions and distance.
func NewPositionForm(identifier string) EntryForm {
	return EntryForm{
		identifier: identifier,
		fields: []formField{
			{label: "RA", hint: "06h45m08.9s or degrees", parse: astro.ParseRA},
			{label: "Dec", hint: "-16d42m58s or degrees", parse: astro.ParseDec},
			{label: "PM RA (mas/yr)", hint: "-546.01", parse: parseNumber},
			{label: "PM Dec (mas/yr)", hint: "-1223.07", parse: parseNumber},
			{label: "Distance (pc)", hint: "2.64", parse: parsePositive},
		},
	}
}

// NewDistanceForm asks for the distance only.
func NewDistanceForm(identifier string) EntryForm {
	return EntryForm{
		identifier: identifier,
		fields: []formField{
			{label: "Distance (pc)", hint: "2.64", parse: parsePositive},
		},
	}
}

// Init implements tea.Model.
func (m EntryForm) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m EntryForm) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc":
		m.cancelled = true
		return m, tea.Quit

	case "tab", "down":
		m.focus = (m.focus + 1) % len(m.fields)

	case "shift+tab", "up":
		m.focus = (m.focus - 1 + len(m.fields)) % len(m.fields)

	case "enter":
		f := m.fields[m.focus]
		if _, err := f.parse(strings.TrimSpace(f.value)); err != nil {
			m.err = fmt.Sprintf("%s: %v", f.label, err)
			return m, nil
		}
		m.err = ""
		if m.focus < len(m.fields)-1 {
			m.focus++
			return m, nil
		}
		if i, err := m.firstInvalid(); err != nil {
			m.focus = i
			m.err = err.Error()
			return m, nil
		}
		m.submitted = true
		return m, tea.Quit

	case "backspace":
		v := []rune(m.fields[m.focus].value)
		if len(v) > 0 {
			m.fields[m.focus].value = string(v[:len(v)-1])
		}

	default:
		if key.Type == tea.KeyRunes || key.Type == tea.KeySpace {
			m.fields[m.focus].value += string(key.Runes)
		}
	}
	return m, nil
}

func (m EntryForm) firstInvalid() (int, error) {
	for i, f := range m.fields {
		if _, err := f.parse(strings.TrimSpace(f.value)); err != nil {
			return i, fmt.Errorf("%s: %v", f.label, err)
		}
	}
	return 0, nil
}

// View implements tea.Model.
func (m EntryForm) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Manual entry: "+m.identifier) + "\n\n")

	for i, f := range m.fields {
		value := f.value
		if value == "" {
			value = dimStyle.Render(f.hint)
		}
		line := labelStyle.Render(f.label) + " " + value
		if i == m.focus {
			line = labelStyle.Render(f.label) + " " + focusedStyle.Render(f.value+"_")
		}
		b.WriteString(line + "\n")
	}

	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("enter: next/submit  tab: move  esc: abort") + "\n")
	return b.String()
}

// Submitted reports whether every field was accepted.
func (m EntryForm) Submitted() bool {
	return m.submitted
}

// Values returns the parsed fields in order.
func (m EntryForm) Values() ([]float64, error) {
	out := make([]float64, len(m.fields))
	for i, f := range m.fields {
		v, err := f.parse(strings.TrimSpace(f.value))
		if err != nil {
			return nil, fmt.Errorf("%s: %v", f.label, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}

func parsePositive(s string) (float64, error) {
	v, err := parseNumber(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, errors.New("must be positive")
	}
	return v, nil
}

// FormProvider implements resolver.MissingDataProvider with an EntryForm on
// the terminal.
type FormProvider struct {
	in  io.Reader
	out io.Writer
}

// NewFormProvider creates a provider that runs the form on in/out.
func NewFormProvider(in io.Reader, out io.Writer) *FormProvider {
	return &FormProvider{in: in, out: out}
}

// Position implements resolver.MissingDataProvider.
func (p *FormProvider) Position(ctx context.Context, identifier string) (resolver.ManualPosition, error) {
	vals, err := p.run(ctx, NewPositionForm(identifier))
	if err != nil {
		return resolver.ManualPosition{}, err
	}
	return resolver.ManualPosition{
		RA:       vals[0],
		Dec:      vals[1],
		PMRA:     vals[2],
		PMDec:    vals[3],
		Distance: vals[4],
	}, nil
}

// Distance implements resolver.MissingDataProvider.
func (p *FormProvider) Distance(ctx context.Context, identifier string) (float64, error) {
	vals, err := p.run(ctx, NewDistanceForm(identifier))
	if err != nil {
		return 0, err
	}
	return vals[0], nil
}

func (p *FormProvider) run(ctx context.Context, form EntryForm) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prog := tea.NewProgram(form,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := prog.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", resolver.ErrIncompleteEntry, err)
	}

	m, ok := final.(EntryForm)
	if !ok || !m.Submitted() {
		return nil, fmt.Errorf("%w: entry for %s aborted", resolver.ErrIncompleteEntry, form.identifier)
	}
	return m.Values()
}
