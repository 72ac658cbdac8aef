package ui

import (
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const (
	activeSymbol   = "◆"
	completeSymbol = "◇"
	separator      = " · "
	borderTop      = "┌"
	borderSide     = "│"
	borderBottom   = "└"
	checkSymbol    = "✓"
)

// CreatableKinds are the kinds the create wizard can author.
var CreatableKinds = []string{"agent", "skill", "command"}

func WizardTheme() *huh.Theme {
	t := huh.ThemeBase()
	red := lipgloss.Color("1")
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.SetString("✗").Foreground(red)
	t.Blurred.ErrorMessage = t.Blurred.ErrorMessage.SetString("✗").Foreground(red)
	return t
}

// CreateInput collects what the create wizard asks for.
type CreateInput struct {
	Kind        string
	Scope       string
	Name        string
	ProjectPath string
	Description string
}

func (in *CreateInput) Fields() []Field {
	fields := []Field{
		{Label: "Kind", Value: in.Kind},
		{Label: "Scope", Value: in.Scope},
		{Label: "Name", Value: strings.TrimSpace(in.Name)},
	}
	if in.Scope == "project" {
		fields = append(fields, Field{Label: "Project", Value: strings.TrimSpace(in.ProjectPath)})
	}
	return append(fields, Field{Label: "Description", Value: strings.TrimSpace(in.Description), Optional: true})
}

// CreateForm builds the interactive form filling in. The project group is
// skipped for the global scope.
func CreateForm(in *CreateInput, validateName func(string) error) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Kind").
				Options(huh.NewOptions(CreatableKinds...)...).
				Value(&in.Kind),
			huh.NewSelect[string]().
				Title("Scope").
				Options(huh.NewOptions("global", "project")...).
				Value(&in.Scope),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&in.Name).
				Validate(validateName),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Project").
				Description("Press Enter to accept, or type a new path").
				Value(&in.ProjectPath),
		).WithHideFunc(func() bool { return in.Scope != "project" }),
		huh.NewGroup(
			huh.NewInput().
				Title("Description").
				Value(&in.Description),
		),
	).WithTheme(WizardTheme())
}

type Field struct {
	Label    string
	Value    string
	Optional bool
}

func borderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
}

func RenderWizard(title string, fields []Field, activeIdx int) string {
	var b strings.Builder

	border := borderStyle()

	b.WriteString(border.Render(borderTop))
	b.WriteString(" ")
	b.WriteString(title)
	b.WriteString("\n")

	b.WriteString(border.Render(borderSide))
	b.WriteString("\n")

	for i, f := range fields {
		active := i == activeIdx
		if f.Value != "" || active {
			b.WriteString(renderField(f, active))
			b.WriteString("\n")
		}
	}

	if activeIdx >= 0 && activeIdx < len(fields) {
		b.WriteString(border.Render(borderSide))
		b.WriteString("\n")
	}

	b.WriteString(border.Render(borderBottom))
	b.WriteString("\n")

	return b.String()
}

// RenderSaved reports a written resource and its location, followed by one
// line per note.
func RenderSaved(kind, name, path string, notes []string) string {
	var b strings.Builder

	border := borderStyle()

	b.WriteString(border.Render(borderTop))
	b.WriteString(" ")
	b.WriteString(activeSymbol)
	b.WriteString(" Saved ")
	b.WriteString(kind)
	b.WriteString(" ")
	b.WriteString(name)
	b.WriteString("\n")

	b.WriteString(border.Render(borderSide))
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString("\n")

	if len(notes) > 0 {
		b.WriteString(border.Render(borderSide))
		b.WriteString("\n")
	}
	for _, note := range notes {
		b.WriteString(border.Render(borderSide))
		b.WriteString(" ")
		b.WriteString(checkSymbol)
		b.WriteString(" ")
		b.WriteString(note)
		b.WriteString("\n")
	}

	b.WriteString(border.Render(borderBottom))
	b.WriteString("\n")

	return b.String()
}

func renderField(f Field, active bool) string {
	var b strings.Builder

	if active {
		b.WriteString(activeSymbol)
		b.WriteString(" ")
		b.WriteString(f.Label)
		if f.Optional {
			b.WriteString(" (optional)")
		}
	} else {
		b.WriteString(completeSymbol)
		b.WriteString(" ")
		b.WriteString(f.Label)
		b.WriteString(separator)
		b.WriteString(f.Value)
	}

	return b.String()
}
