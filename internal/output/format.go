// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"quicktasks/internal/service"
)

const (
	// ListSeparator is the separator line around the filter bar.
	ListSeparator = "------------"

	// descriptionIndent lines descriptions up with task titles.
	descriptionIndent = "          "
)

// Styles renders task rows. Colors and text attributes depend on the
// terminal behind the renderer.
type Styles struct {
	title  lipgloss.Style
	done   lipgloss.Style
	muted  lipgloss.Style
	active lipgloss.Style
	badge  map[service.Priority]lipgloss.Style
	status map[service.Status]lipgloss.Style
}

// NewStyles creates styles for w, detecting its color support.
func NewStyles(w io.Writer) *Styles {
	return newStyles(lipgloss.NewRenderer(w))
}

// PlainStyles creates styles that emit no escape sequences.
func PlainStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(termenv.Ascii)
	return newStyles(r)
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		title:  r.NewStyle().Bold(true),
		done:   r.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("244")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("244")),
		active: r.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Bold(true),
		badge: map[service.Priority]lipgloss.Style{
			service.PriorityHigh:   r.NewStyle().Foreground(lipgloss.Color("1")),
			service.PriorityMedium: r.NewStyle().Foreground(lipgloss.Color("3")),
			service.PriorityLow:    r.NewStyle().Foreground(lipgloss.Color("2")),
		},
		status: map[service.Status]lipgloss.Style{
			service.StatusTodo:       r.NewStyle().Foreground(lipgloss.Color("250")),
			service.StatusInProgress: r.NewStyle().Foreground(lipgloss.Color("33")),
			service.StatusCompleted:  r.NewStyle().Foreground(lipgloss.Color("2")),
		},
	}
}

// StatusGlyph returns the checkbox drawn for a status.
func StatusGlyph(s service.Status) string {
	switch s {
	case service.StatusInProgress:
		return "[~]"
	case service.StatusCompleted:
		return "[x]"
	}
	return "[ ]"
}

// PriorityLabel returns the badge text of a priority, e.g. "High Priority".
func PriorityLabel(p service.Priority) string {
	s := string(p)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:] + " Priority"
}

// FormatTask formats a task row.
// Format: "{N:>4}  {GLYPH} {TITLE}  ({PRIORITY})\n", followed by the
// description indented under the title when there is one. status is the
// status to draw, which may differ from task.Status while a change is in
// flight.
func (st *Styles) FormatTask(w io.Writer, num int, task service.Task, status service.Status) {
	title := normalizeTitle(task.Title)
	if status == service.StatusCompleted {
		title = st.done.Render(title)
	} else {
		title = st.title.Render(title)
	}
	glyph := st.status[status].Render(StatusGlyph(status))
	badge := st.badge[task.Priority].Render("(" + PriorityLabel(task.Priority) + ")")
	fmt.Fprintf(w, "%4d  %s %s  %s\n", num, glyph, title, badge)

	if desc := normalizeText(task.Description); desc != "" {
		fmt.Fprintf(w, "%s%s\n", descriptionIndent, st.muted.Render(desc))
	}
}

// FormatFilterBar formats the filter choices with the active one marked.
func (st *Styles) FormatFilterBar(w io.Writer, active service.Filter) {
	labels := make([]string, 0, len(service.Filters))
	for _, f := range service.Filters {
		if f == active {
			labels = append(labels, st.active.Render("["+f.Label()+"]"))
			continue
		}
		labels = append(labels, f.Label())
	}
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, strings.Join(labels, " | "))
	fmt.Fprintln(w, ListSeparator)
}

// FormatEmpty formats the empty-list line.
func (st *Styles) FormatEmpty(w io.Writer, active service.Filter) {
	if active == service.FilterAll || active == "" {
		fmt.Fprintln(w, st.muted.Render("No tasks"))
		return
	}
	fmt.Fprintln(w, st.muted.Render("No tasks match "+active.Label()))
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = normalizeText(title)
	if title == "" {
		return "(untitled)"
	}
	return title
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
