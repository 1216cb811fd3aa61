package engine

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nomad-traveller/jetsonprep/internal/model"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	wouldStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
)

func statusGlyph(status string) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓")
	case model.StatusFailed:
		return failureStyle.Render("✗")
	case model.StatusWouldRun:
		return wouldStyle.Render("~")
	default:
		return skippedStyle.Render("-")
	}
}

// RenderSummary renders the per-operation outcome report shown after a
// run.
func RenderSummary(results []model.StepResult) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Convergence summary"))
	b.WriteString("\n")

	var failed int
	for _, res := range results {
		b.WriteString(fmt.Sprintf("  %s %-10s %-9s %s\n", statusGlyph(res.Status), res.Resource, res.Status, res.Message))
		if res.Failed() {
			failed++
		}
	}

	if failed > 0 {
		b.WriteString(failureStyle.Render(fmt.Sprintf("%d operation(s) failed", failed)))
		b.WriteString("\n")
	}
	return b.String()
}
