package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"flowfunds/internal/backup"
	"flowfunds/internal/cli"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all transactions and settings to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				b, err := backup.Encode(a.tracker.Export())
				if err != nil {
					return err
				}
				if output == "-" {
					_, err := cmd.OutOrStdout().Write(append(b, '\n'))
					return err
				}
				if output == "" {
					output = backup.FileName(a.tracker.Now())
				}
				if err := os.WriteFile(output, b, 0o644); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d transactions to %s\n",
					cli.SuccessStyle.Render("Exported"), a.tracker.Len(), output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "-" for stdout (default: flowfunds-export-<date>.json)`)
	return cmd
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all transactions with those in an export file",
		Long: `Import a file written by export, or a bare JSON array of transactions.
The file is rejected as a whole when any record is invalid. Use "-" to read
standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return opts.withApp(cmd.Context(), func(a *app) error {
				n, err := a.tracker.Import(cmd.Context(), data)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d transactions\n", cli.SuccessStyle.Render("Imported"), n)
				return nil
			})
		},
	}
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}
	return data, nil
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete all transactions without --yes")
			}
			return opts.withApp(cmd.Context(), func(a *app) error {
				n := a.tracker.Len()
				if err := a.tracker.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d transactions\n", cli.WarningStyle.Render("Cleared"), n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}
