package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"flowfunds/internal/cli"
	"flowfunds/internal/core"
)

type draftFlags struct {
	description string
	amount      string
	date        string
	category    string
	typ         string
}

func (f *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.description, "description", "d", "", "what the money was for")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount, e.g. 12.50")
	cmd.Flags().StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category, e.g. Food")
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "income or expense")
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  flowfunds add -d "Lunch" -a 12.50 -c Food
  flowfunds add -t income -d "March salary" -a 900 -c Salary --date 2025-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				if f.date == "" {
					f.date = core.DateOf(a.tracker.Now()).String()
				}
				if f.typ == "" {
					f.typ = string(core.Expense)
				}
				tx, err := a.tracker.Create(cmd.Context(), core.TransactionDraft{
					Description: f.description,
					Amount:      f.amount,
					Date:        f.date,
					Category:    f.category,
					Type:        core.TransactionType(strings.ToLower(f.typ)),
				})
				if err != nil {
					return describeError(err)
				}
				s := a.tracker.Settings()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %s\n",
					cli.SuccessStyle.Render("Added"),
					tx.ID,
					cli.SignedAmount(tx.Amount, tx.Type, s.BaseCurrency),
					tx.Description)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var f draftFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a transaction; fields not given keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				cur := a.tracker.Get(args[0])
				if cur == nil {
					return fmt.Errorf("transaction %s: %w", args[0], core.ErrNotFound)
				}
				d := core.TransactionDraft{
					Description: cur.Description,
					Amount:      cur.Amount.String(),
					Date:        cur.Date.String(),
					Category:    cur.Category,
				}
				flags := cmd.Flags()
				if flags.Changed("description") {
					d.Description = f.description
				}
				if flags.Changed("amount") {
					d.Amount = f.amount
				}
				if flags.Changed("date") {
					d.Date = f.date
				}
				if flags.Changed("category") {
					d.Category = f.category
				}
				if flags.Changed("type") {
					d.Type = core.TransactionType(strings.ToLower(f.typ))
				}

				tx, err := a.tracker.Edit(cmd.Context(), args[0], d)
				if err != nil {
					return describeError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n",
					cli.SuccessStyle.Render("Updated"), tx.ID, tx.Description)
				return nil
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				ok, err := a.tracker.Delete(cmd.Context(), args[0])
				if !ok {
					return fmt.Errorf("transaction %s: %w", args[0], core.ErrNotFound)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.SuccessStyle.Render("Deleted"), args[0])
				return nil
			})
		},
	}
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		q      core.Query
		sort   string
		dir    string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List transactions",
		Long: `List transactions, newest first. --search takes a regular expression that
is matched against description, category, date and amount; an invalid
expression is searched as plain text.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				q.SortKey = core.ParseSortKey(sort)
				q.SortDir = core.ParseSortDir(dir)
				q.FilterType = strings.ToLower(q.FilterType)
				switch q.FilterType {
				case "", core.FilterAll, string(core.Income), string(core.Expense):
				default:
					return fmt.Errorf("type filter %q: %w", q.FilterType, core.ErrInvalidType)
				}
				q = q.Normalize()

				txs := a.tracker.VisibleWith(q)
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(txs)
				}
				return printTransactions(cmd.OutOrStdout(), txs, a.tracker.Settings().BaseCurrency, a.tracker.Len())
			})
		},
	}
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "search pattern")
	cmd.Flags().BoolVar(&q.CaseSensitive, "case-sensitive", false, "match the search case sensitively")
	cmd.Flags().StringVarP(&q.FilterType, "type", "t", core.FilterAll, "income, expense or all")
	cmd.Flags().StringVarP(&q.FilterCategory, "category", "c", core.FilterAll, "only this category")
	cmd.Flags().StringVar(&sort, "sort", string(core.SortDate), "date, amount, description or category")
	cmd.Flags().StringVar(&dir, "dir", string(core.Desc), "asc or desc")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printTransactions(out io.Writer, txs []core.Transaction, currency string, total int) error {
	if len(txs) == 0 {
		fmt.Fprintln(out, cli.SubtleStyle.Render("No transactions found."))
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
		cli.HeaderStyle.Render("ID"),
		cli.HeaderStyle.Render("Date"),
		cli.HeaderStyle.Render("Description"),
		cli.HeaderStyle.Render("Category"),
		cli.HeaderStyle.Render("Amount"))
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			tx.ID, tx.Date, tx.Description, tx.Category,
			cli.SignedAmount(tx.Amount, tx.Type, currency))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d of %d transactions", len(txs), total)))
	return nil
}

// describeError turns validation errors into one line per field.
func describeError(err error) error {
	var fields core.FieldErrors
	if !errors.As(err, &fields) {
		return err
	}
	var b strings.Builder
	b.WriteString("invalid input:")
	for _, name := range []string{"description", "amount", "date", "category", "type"} {
		if msg, ok := fields[name]; ok {
			fmt.Fprintf(&b, "\n  %s: %s", name, msg)
		}
	}
	return errors.New(b.String())
}
