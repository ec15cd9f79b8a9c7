package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"flowfunds/internal/amqp"
	"flowfunds/internal/cli"
)

func newEventsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Work with the AMQP change feed",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print change events as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg
			if cfg.AMQPURL == "" {
				return errors.New("no AMQP broker configured; set amqp_url or AMQP_URL")
			}
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, opts.logger)
			if err != nil {
				return fmt.Errorf("connect to broker: %w", err)
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.Consume(cmd.Context(), func(_ context.Context, ev *amqp.Event) error {
				line := fmt.Sprintf("%s %-22s", ev.Timestamp.Format("15:04:05"), ev.Type)
				switch {
				case ev.Transaction != nil:
					tx := ev.Transaction
					sign := "-"
					if tx.IsIncome() {
						sign = "+"
					}
					line += fmt.Sprintf(" %s %s%s %s", tx.ID, sign, tx.Amount, tx.Description)
				case ev.TransactionID != "":
					line += " " + ev.TransactionID
				default:
					line += fmt.Sprintf(" %d records", ev.Count)
				}
				_, err := fmt.Fprintln(out, eventStyle(ev.Type).Render(line))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	})
	return cmd
}

func eventStyle(t amqp.EventType) lipgloss.Style {
	switch t {
	case amqp.EventDeleted, amqp.EventCleared:
		return cli.ExpenseStyle
	case amqp.EventImported:
		return cli.WarningStyle
	}
	return cli.IncomeStyle
}
