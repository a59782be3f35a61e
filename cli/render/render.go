// Package render produces the human-readable run summary printed to
// stdout after a run: the processing record entries, the resolved
// auxiliary inputs, and the final outcome line.
package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/neuropipe-io/maxprep/resolve"
	"github.com/neuropipe-io/maxprep/runtime"
	"github.com/neuropipe-io/maxprep/types"
)

// Color palette.
var (
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for summary output.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
)

// Renderer writes run summaries. Colors are dropped when NoColor is set
// (non-TTY output, batch logs).
type Renderer struct {
	out     io.Writer
	noColor bool
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, noColor bool) *Renderer {
	return &Renderer{out: out, noColor: noColor}
}

// Summary writes the full run summary: record entries first, then the
// auxiliary inputs that resolved, then the outcome line.
func (r *Renderer) Summary(result *runtime.RunResult) {
	var b strings.Builder

	b.WriteString(r.style(titleStyle, "Processing record"))
	b.WriteString("\n")
	if len(result.Entries) == 0 {
		b.WriteString(r.style(mutedStyle, "  (empty)"))
		b.WriteString("\n")
	}
	for _, e := range result.Entries {
		b.WriteString(fmt.Sprintf("  %s  %s\n", r.entryTag(e.Type), e.Msg))
	}

	if result.Aux != nil {
		b.WriteString("\n")
		b.WriteString(r.style(titleStyle, "Auxiliary inputs"))
		b.WriteString("\n")
		b.WriteString(r.renderAux(result.Aux))
	}

	b.WriteString("\n")
	b.WriteString(r.outcomeLine(result))
	b.WriteString("\n")

	fmt.Fprint(r.out, b.String())
}

func (r *Renderer) renderAux(aux *resolve.Set) string {
	var b strings.Builder
	for _, kind := range types.AllAuxKinds {
		f := aux.File(kind)
		if !f.Resolved() {
			b.WriteString(fmt.Sprintf("  %-12s %s\n", kind, r.style(mutedStyle, "absent")))
			continue
		}
		note := f.Path
		if f.FromOverride {
			note += " (override)"
		}
		if f.Copied {
			note += " -> " + resolve.CanonicalName(kind)
		}
		b.WriteString(fmt.Sprintf("  %-12s %s\n", kind, note))
	}
	if aux.DestinationCoords != nil {
		c := aux.DestinationCoords
		b.WriteString(fmt.Sprintf("  %-12s [%g, %g, %g] (parameter)\n", "destination", c[0], c[1], c[2]))
	}
	return b.String()
}

func (r *Renderer) entryTag(t types.RecordEntryType) string {
	switch t {
	case types.RecordSuccess:
		return r.style(successStyle, "success")
	case types.RecordWarning:
		return r.style(warningStyle, "warning")
	case types.RecordError:
		return r.style(errorStyle, "error  ")
	default:
		return string(t)
	}
}

func (r *Renderer) outcomeLine(result *runtime.RunResult) string {
	status := string(result.Outcome.Status)
	line := fmt.Sprintf("Outcome: %s (%s)", status, result.Duration.Round(time.Millisecond))
	if result.Outcome.Status == runtime.OutcomeSuccess {
		return r.style(successStyle, line)
	}
	return r.style(errorStyle, line)
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.noColor {
		return text
	}
	return s.Render(text)
}
