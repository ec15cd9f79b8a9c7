package cli

import (
	"github.com/charmbracelet/lipgloss"

	"flowfunds/internal/core"
)

var (
	IncomeColor  = lipgloss.Color("#2ECC71")
	ExpenseColor = lipgloss.Color("#E74C3C")
	AccentColor  = lipgloss.Color("#5DADE2")
	WarningColor = lipgloss.Color("#F1C40F")
	SubtleColor  = lipgloss.Color("#7F8C8D")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(AccentColor)

	IncomeStyle  = lipgloss.NewStyle().Foreground(IncomeColor)
	ExpenseStyle = lipgloss.NewStyle().Foreground(ExpenseColor)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor)
	SubtleStyle  = lipgloss.NewStyle().Foreground(SubtleColor)
	HeaderStyle  = lipgloss.NewStyle().Bold(true)

	SuccessStyle = lipgloss.NewStyle().Foreground(IncomeColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(ExpenseColor).Bold(true)

	// BoxStyle frames summary panels.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SubtleColor).
			Padding(0, 1)
)

// TypeStyle colours by transaction type: income green, expense red.
func TypeStyle(t core.TransactionType) lipgloss.Style {
	if t == core.Income {
		return IncomeStyle
	}
	return ExpenseStyle
}

// SignedAmount renders m in currency with a sign and the colour of t.
func SignedAmount(m core.Money, t core.TransactionType, currency string) string {
	sign := "-"
	if t == core.Income {
		sign = "+"
	}
	return TypeStyle(t).Render(sign + core.FormatMoney(m, currency))
}

// FormatTitle renders a section title.
func FormatTitle(s string) string {
	return TitleStyle.Render(s)
}
