package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"flowfunds/internal/cli"
	"flowfunds/internal/config"
	"flowfunds/internal/log"
)

var version = "dev"

// rootOptions carries the persistent flags and what initConfig builds from them.
type rootOptions struct {
	configFile string

	cfg    *config.Config
	logger *log.Logger
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
	"backend":    config.KeyDataBackend,
	"data-dir":   config.KeyDataDir,
	"db":         config.KeySQLiteDBPath,
	"port":       config.KeyPort,
	"watch":      config.KeyWatchData,
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "flowfunds",
		Short: "Personal income and expense tracker",
		Long: `flowfunds records income and expenses, reports totals, budgets and
spending trends, and serves the same data over a JSON API.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: opts.initConfig,
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default: ./config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	cmd.PersistentFlags().String("backend", "", "data backend (memory, file, sqlite)")
	cmd.PersistentFlags().String("data-dir", "", "directory of the file backend")
	cmd.PersistentFlags().String("db", "", "database path of the sqlite backend")

	cmd.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newListCmd(opts),
		newEditCmd(opts),
		newDeleteCmd(opts),
		newStatsCmd(opts),
		newSettingsCmd(opts),
		newConvertCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newClearCmd(opts),
		newEventsCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func (o *rootOptions) initConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := cli.LoadAndValidateConfig(o.configFile, func(v *viper.Viper) error {
		for name, key := range flagKeys {
			if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func main() {
	ctx, cancel := cli.SignalContext(context.Background(), log.Discard())
	err := newRootCmd().ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
