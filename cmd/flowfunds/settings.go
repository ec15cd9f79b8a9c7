package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"flowfunds/internal/cli"
	"flowfunds/internal/core"
)

func newSettingsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
	}
	cmd.AddCommand(newSettingsShowCmd(opts), newSettingsSetCmd(opts))
	return cmd
}

func newSettingsShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				s := a.tracker.Settings()
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(s)
				}
				return printSettings(cmd.OutOrStdout(), s)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// settingsFlags maps set flags onto SettingsInput fields.
var settingsFlags = []struct {
	name, usage string
	field       func(*core.SettingsInput) **string
}{
	{"name", "your name", func(in *core.SettingsInput) **string { return &in.UserName }},
	{"budget", "monthly budget cap; empty clears it", func(in *core.SettingsInput) **string { return &in.BudgetCap }},
	{"base", "base currency code", func(in *core.SettingsInput) **string { return &in.BaseCurrency }},
	{"alt", "alternate currency code", func(in *core.SettingsInput) **string { return &in.AltCurrency }},
	{"rate", "1 base = rate alt", func(in *core.SettingsInput) **string { return &in.Rate }},
	{"rate-usd", "1 base = rate USD", func(in *core.SettingsInput) **string { return &in.RateUSD }},
	{"rate-ngn", "1 base = rate NGN", func(in *core.SettingsInput) **string { return &in.RateNGN }},
	{"theme", "light or dark", func(in *core.SettingsInput) **string { return &in.Theme }},
}

func newSettingsSetCmd(opts *rootOptions) *cobra.Command {
	var clearBudget bool
	cmd := &cobra.Command{
		Use:     "set",
		Short:   "Change one or more settings",
		Example: `  flowfunds settings set --name Ada --budget 150000 --rate 0.00072`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var in core.SettingsInput
			changed := false
			for _, f := range settingsFlags {
				if !cmd.Flags().Changed(f.name) {
					continue
				}
				v, err := cmd.Flags().GetString(f.name)
				if err != nil {
					return err
				}
				*f.field(&in) = &v
				changed = true
			}
			if clearBudget {
				empty := ""
				in.BudgetCap = &empty
				changed = true
			}
			if !changed {
				return errors.New("nothing to change; see --help")
			}

			u, fields := in.Update()
			if fields != nil {
				return fmt.Errorf("invalid settings: %w", fields)
			}
			return opts.withApp(cmd.Context(), func(a *app) error {
				s, err := a.tracker.UpdateSettings(cmd.Context(), u)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Settings saved"))
				return printSettings(cmd.OutOrStdout(), s)
			})
		},
	}
	for _, f := range settingsFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().BoolVar(&clearBudget, "clear-budget", false, "remove the budget cap")
	cmd.MarkFlagsMutuallyExclusive("budget", "clear-budget")
	return cmd
}

func printSettings(out io.Writer, s core.Settings) error {
	rate := func(r core.Rate) string {
		if !r.Valid {
			return cli.SubtleStyle.Render("not set")
		}
		return r.Value.String()
	}
	budget := cli.SubtleStyle.Render("none")
	if s.BudgetCap != nil {
		budget = core.FormatMoney(*s.BudgetCap, s.BaseCurrency)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name\t%s\n", orDash(s.UserName))
	fmt.Fprintf(w, "Budget\t%s\n", budget)
	fmt.Fprintf(w, "Base currency\t%s\n", s.BaseCurrency)
	fmt.Fprintf(w, "Alt currency\t%s\n", s.AltCurrency)
	fmt.Fprintf(w, "Rate\t%s\n", rate(s.Rate))
	fmt.Fprintf(w, "Rate USD\t%s\n", rate(s.RateUSD))
	fmt.Fprintf(w, "Rate NGN\t%s\n", rate(s.RateNGN))
	fmt.Fprintf(w, "Theme\t%s\n", s.Theme)
	return w.Flush()
}

func newConvertCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <amount>",
		Short: "Convert an amount from the base to the alternate currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], core.ErrInvalidAmount)
			}
			return opts.withApp(cmd.Context(), func(a *app) error {
				c, err := a.tracker.Convert(amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s %s\n",
					c.FromDisplay,
					cli.HeaderStyle.Render(c.ToDisplay),
					cli.SubtleStyle.Render(fmt.Sprintf("(rate %s)", c.Rate)))
				return nil
			})
		},
	}
}
