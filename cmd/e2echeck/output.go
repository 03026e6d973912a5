package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/Cloudsky01/gh-e2echeck/pkg/models"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const divider = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func printResult(w io.Writer, checkRunID int64, status models.CheckStatus, conclusion models.Conclusion) {
	line := fmt.Sprintf("✓ check run %d → %s", checkRunID, status)
	if conclusion == "" {
		fmt.Fprintln(w, successStyle.Render(line))
		return
	}

	style := successStyle
	if conclusion != models.ConclusionSuccess {
		style = failureStyle
	}
	fmt.Fprintln(w, successStyle.Render(line)+" "+style.Render("("+string(conclusion)+")"))
}

func existsIndicator(exists bool) string {
	if exists {
		return "✓"
	}
	return "✗"
}
