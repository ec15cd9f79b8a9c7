package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"flowfunds/internal/cli"
	"flowfunds/internal/core"
	"flowfunds/internal/services"
)

// budgetWarnPercent is where the budget line turns from green to amber.
var budgetWarnPercent = decimal.NewFromInt(80)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals, this month, the last 7 days and the budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				stats := a.tracker.Stats()
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(stats)
				}
				printStats(cmd.OutOrStdout(), stats, a.tracker.Last7Days(), a.tracker.Settings())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printStats(out io.Writer, s services.Stats, days []core.DayTotals, settings core.Settings) {
	cur := settings.BaseCurrency
	money := func(m core.Money) string { return core.FormatMoney(m, cur) }

	title := "FlowFunds"
	if settings.UserName != "" {
		title += " for " + settings.UserName
	}

	lines := []string{
		cli.FormatTitle(title),
		"",
		fmt.Sprintf("Balance   %s", money(s.Totals.Balance)),
		fmt.Sprintf("Income    %s", cli.IncomeStyle.Render(money(s.Totals.Income))),
		fmt.Sprintf("Expenses  %s", cli.ExpenseStyle.Render(money(s.Totals.Expenses))),
		"",
		cli.HeaderStyle.Render(fmt.Sprintf("%04d-%02d", s.Month.Year, s.Month.Month)),
		fmt.Sprintf("Income    %s", cli.IncomeStyle.Render(money(s.Month.Income))),
		fmt.Sprintf("Expenses  %s", cli.ExpenseStyle.Render(money(s.Month.Expenses))),
		"",
		fmt.Sprintf("Last 7 days spend    %s", money(s.Last7DaysSpend)),
		fmt.Sprintf("Average transaction  %s", money(s.Average)),
		fmt.Sprintf("Top category         %s", orDash(s.TopCategory)),
		fmt.Sprintf("Transactions         %d", s.Count),
	}

	if b := s.Budget; b != nil {
		style := cli.IncomeStyle
		if b.Over {
			style = cli.ExpenseStyle
		} else if b.PercentUsed.GreaterThanOrEqual(budgetWarnPercent) {
			style = cli.WarningStyle
		}
		lines = append(lines, "",
			fmt.Sprintf("Budget  %s of %s (%s%%)", money(b.Spent), money(b.Cap), style.Render(b.PercentUsed.String())))
	}

	lines = append(lines, "", cli.HeaderStyle.Render("Last 7 days"))
	for _, d := range days {
		lines = append(lines, fmt.Sprintf("%s %s  %s  %s",
			d.Label, d.Date,
			cli.IncomeStyle.Render("+"+money(d.Income)),
			cli.ExpenseStyle.Render("-"+money(d.Expense))))
	}

	if len(s.Breakdown) > 0 {
		lines = append(lines, "", cli.HeaderStyle.Render("Spending by category"))
		for _, c := range s.Breakdown {
			lines = append(lines, fmt.Sprintf("%-14s %s", c.Name, money(c.Amount)))
		}
	}

	fmt.Fprintln(out, cli.BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, strings.Join(lines, "\n"))))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
