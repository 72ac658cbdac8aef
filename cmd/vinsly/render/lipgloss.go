package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"vinsly/internal/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

const favoriteMark = "★ "

type LipglossRenderer struct {
	width int
	r     *lipgloss.Renderer

	nameStyle   lipgloss.Style
	pathStyle   lipgloss.Style
	descStyle   lipgloss.Style
	tagStyle    lipgloss.Style
	favStyle    lipgloss.Style
	newStyle    lipgloss.Style
	failedStyle lipgloss.Style
}

func NewLipglossRenderer(w io.Writer, width int) *LipglossRenderer {
	r := lipgloss.NewRenderer(w)
	return &LipglossRenderer{
		width:       width,
		r:           r,
		nameStyle:   r.NewStyle().Bold(true),
		pathStyle:   r.NewStyle().Faint(true),
		descStyle:   r.NewStyle(),
		tagStyle:    r.NewStyle().Faint(true),
		favStyle:    r.NewStyle().Foreground(lipgloss.Color("11")),
		newStyle:    r.NewStyle().Foreground(lipgloss.Color("10")),
		failedStyle: r.NewStyle().Foreground(lipgloss.Color("1")),
	}
}

func NewLipglossRendererAuto(w io.Writer) *LipglossRenderer {
	width := 80
	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(f.Fd()); err == nil && tw > 0 {
			width = tw
		}
	}
	return NewLipglossRenderer(w, width)
}

func (r *LipglossRenderer) RenderResourceList(view ResourceListView) string {
	if view.IsEmpty() {
		return "No resources found.\n"
	}

	var sb strings.Builder
	for i, item := range view.Items {
		last := i == len(view.Items)-1
		sb.WriteString(r.renderItem(item, last))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (r *LipglossRenderer) renderItem(item ResourceListItem, last bool) string {
	name := r.nameStyle.Render(item.Name)
	if item.Favorite {
		name = r.favStyle.Render(favoriteMark) + name
	}
	tag := r.tagStyle.Render(item.Kind + " · " + item.Scope)

	padding := max(1, r.width-lipgloss.Width(name)-lipgloss.Width(tag))
	lines := []string{
		name + strings.Repeat(" ", padding) + tag,
		r.pathStyle.Render("  " + config.ShortenPath(item.Locator)),
	}
	if item.Description != "" {
		lines = append(lines, r.descStyle.Render("  "+item.Description))
	}
	if !last {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (r *LipglossRenderer) RenderScanSummary(view ScanSummaryView) string {
	var sb strings.Builder
	header := fmt.Sprintf("Scanned %d resources", view.Total)
	if view.New > 0 {
		header += ", " + r.newStyle.Render(fmt.Sprintf("%d new", view.New))
	}
	sb.WriteString(r.nameStyle.Render(header))
	sb.WriteString("\n")

	for _, row := range view.Rows {
		line := fmt.Sprintf("  %-10s", row.Collection)
		switch {
		case row.Failed != "":
			line += " " + r.failedStyle.Render("failed: "+row.Failed)
		case row.New > 0:
			line += fmt.Sprintf(" %4d  ", row.Total) + r.newStyle.Render(fmt.Sprintf("+%d", row.New))
		default:
			line += fmt.Sprintf(" %4d", row.Total)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
