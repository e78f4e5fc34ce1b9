package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imkarma/clarity/internal/triage"
)

// --- Color palette ---
var (
	clrSubtle    = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#666666"}
	clrHighlight = lipgloss.AdaptiveColor{Light: "#0F766E", Dark: "#2DD4BF"}
	clrGreen     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	clrRed       = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#F87171"}
	clrBlue      = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	clrCyan      = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#22D3EE"}
	clrDim       = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#555555"}
)

// --- Styles ---
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	dimStyle     = lipgloss.NewStyle().Foreground(clrDim)
	errorStyle   = lipgloss.NewStyle().Foreground(clrRed).Bold(true)
	spinnerStyle = lipgloss.NewStyle().Foreground(clrHighlight)

	footerKeyStyle  = lipgloss.NewStyle().Bold(true).Foreground(clrHighlight)
	footerDescStyle = lipgloss.NewStyle().Foreground(clrSubtle)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.screen {
	case screenReport, screenTop, screenPlans:
		return m.viewResults()
	default:
		return m.viewRun()
	}
}

func (m Model) viewRun() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("clarity triage"))
	b.WriteString(dimStyle.Render(" — " + m.req.Repo))
	b.WriteString("\n\n")

	b.WriteString("  " + m.renderTracker() + "\n")
	b.WriteString("  " + m.renderPhaseLabels() + "\n\n")

	if m.running {
		b.WriteString("  " + m.spinner.View() + dimStyle.Render(" working...") + "\n\n")
	} else if m.runErr != nil {
		b.WriteString(errorStyle.Render("  ✗ run failed: "+m.runErr.Error()) + "\n\n")
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(clrGreen).Render("  ✓ run complete") + "\n\n")
	}

	for _, e := range m.logTail {
		ts := dimStyle.Render(e.Timestamp.Local().Format("15:04:05"))
		tag := lipgloss.NewStyle().Foreground(clrCyan).Render(fmt.Sprintf("%-10s", e.Tag))
		b.WriteString(fmt.Sprintf("  %s %s %s\n", ts, tag, truncate(e.Message, 70)))
	}

	b.WriteString("\n")
	if m.artifact != nil {
		b.WriteString(m.footer([]struct{ key, desc string }{
			{"r", "report"}, {"t", "top issues"}, {"p", "plans"}, {"q", "quit"},
		}))
	} else {
		b.WriteString(m.footer([]struct{ key, desc string }{{"q", "quit"}}))
	}
	return b.String()
}

func (m Model) viewResults() string {
	var b strings.Builder

	var label string
	switch m.screen {
	case screenTop:
		label = "Top issues"
	case screenPlans:
		label = "Fix plans"
	default:
		label = "Report"
	}

	b.WriteString(titleStyle.Render(label))
	b.WriteString(dimStyle.Render(" — " + m.req.Repo))
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n\n")
	b.WriteString(m.footer([]struct{ key, desc string }{
		{"↑↓", "scroll"}, {"tab", "next screen"}, {"esc", "run log"}, {"q", "quit"},
	}))
	return b.String()
}

// renderTracker draws the stage dots: ● ── ◉ ── ○
func (m Model) renderTracker() string {
	var parts []string

	for i := 0; i < numPhases; i++ {
		var dot string
		switch {
		case m.phasesDone[i]:
			dot = lipgloss.NewStyle().Foreground(clrGreen).Render("●")
		case i == m.phase && m.running:
			dot = lipgloss.NewStyle().Foreground(clrBlue).Render("◉")
		case i == m.phase && m.runErr != nil:
			dot = lipgloss.NewStyle().Foreground(clrRed).Render("●")
		default:
			dot = dimStyle.Render("○")
		}

		parts = append(parts, dot)
		if i < numPhases-1 {
			connector := dimStyle.Render(" ── ")
			if m.phasesDone[i] {
				connector = lipgloss.NewStyle().Foreground(clrGreen).Render(" ── ")
			}
			parts = append(parts, connector)
		}
	}

	return strings.Join(parts, "")
}

func (m Model) renderPhaseLabels() string {
	var parts []string
	for i, label := range phaseLabels {
		style := dimStyle
		if m.phasesDone[i] {
			style = lipgloss.NewStyle().Foreground(clrGreen)
		} else if i == m.phase && m.running {
			style = lipgloss.NewStyle().Foreground(clrBlue)
		}
		parts = append(parts, style.Render(fmt.Sprintf("%-8s", label)))
	}
	return strings.Join(parts, "")
}

func (m Model) footer(keys []struct{ key, desc string }) string {
	var parts []string
	for _, k := range keys {
		parts = append(parts, footerKeyStyle.Render(k.key)+" "+footerDescStyle.Render(k.desc))
	}
	return "  " + strings.Join(parts, "  ")
}

// renderTopIssues formats the ranked list for the viewport.
func renderTopIssues(a *triage.Artifact) string {
	if len(a.TopIssues) == 0 {
		return "No items were ranked."
	}

	var b strings.Builder
	for i, t := range a.TopIssues {
		fmt.Fprintf(&b, "%d. #%d %s\n", i+1, t.Number, t.Title)
		fmt.Fprintf(&b, "   severity %d  impact %d  effort %d  score %.0f\n", t.Severity, t.Impact, t.Effort, t.Score)
		if t.Justification != "" {
			fmt.Fprintf(&b, "   %s\n", t.Justification)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderPlans formats the fix plans for the viewport.
func renderPlans(a *triage.Artifact) string {
	if len(a.Plans) == 0 {
		return "No fix plans were drafted."
	}

	var b strings.Builder
	for _, p := range a.Plans {
		fmt.Fprintf(&b, "#%d %s\n", p.Number, p.Title)
		for i, step := range p.Steps {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
		if len(p.FilesLikelyTouched) > 0 {
			fmt.Fprintf(&b, "  files: %s\n", strings.Join(p.FilesLikelyTouched, ", "))
		}
		if len(p.AcceptanceCriteria) > 0 {
			fmt.Fprintf(&b, "  done when: %s\n", strings.Join(p.AcceptanceCriteria, "; "))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return s[:n-1] + "…"
}
