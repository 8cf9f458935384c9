package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/JonMunkholm/stopload/internal/config"
	"github.com/JonMunkholm/stopload/internal/core"
	"github.com/JonMunkholm/stopload/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configFile  string
	envFile     string
	databaseURL string
	logLevel    string
	logFormat   string

	// bound holds subcommand flag values keyed by env var name. They are
	// read after flag parsing, so empty means "not given".
	bound map[string]*string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{bound: map[string]*string{}}

	cmd := &cobra.Command{
		Use:           "stopload",
		Short:         "Load GTFS stops into PostgreSQL and serve lookups",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(scopeFor(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Optional YAML config file")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Dotenv file loaded if present")
	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return withCode(exitUsage, err)
	})

	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	return cmd
}

// bind registers a string flag on cmd that overrides env var key.
func (o *globalOptions) bind(cmd *cobra.Command, key, name, usage string) {
	v := new(string)
	cmd.Flags().StringVar(v, name, "", usage)
	o.bound[key] = v
}

// scopeFor limits config validation to the sections cmd reads, so a bad
// server setting does not block an import.
func scopeFor(cmd *cobra.Command) config.Scope {
	switch cmd.Name() {
	case "import":
		return config.ScopeImport
	case "serve":
		return config.ScopeServe
	default:
		return config.ScopeAll
	}
}

// load reads .env, then builds and validates the configuration, then
// installs the logger.
func (o *globalOptions) load(scope config.Scope) error {
	if o.envFile != "" {
		// real environment wins over .env
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return withCode(exitConfig, fmt.Errorf("load %s: %w", o.envFile, err))
		}
	}

	overrides := map[string]string{
		"DATABASE_URL": o.databaseURL,
		"LOG_LEVEL":    o.logLevel,
		"LOG_FORMAT":   o.logFormat,
	}
	for k, v := range o.bound {
		overrides[k] = *v
	}

	cfg, err := config.Load(config.Options{File: o.configFile, Overrides: overrides, Scope: scope})
	if err != nil {
		if errors.Is(err, config.ErrMissingDatabaseURL) {
			err = core.NewError(core.KindConfiguration, "load config", fmt.Errorf("%w: %w", core.ErrMissingConnString, err))
		}
		return withCode(exitConfig, err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	o.cfg = cfg
	return nil
}

// Execute runs the root command and exits with the mapped code.
func Execute() {
	err := newRootCmd().Execute()
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "error:", err.Error())
	if msg := core.MapError(err); msg.Code != "ERR000" {
		fmt.Fprintf(os.Stderr, "hint: %s (Code: %s)\n", msg.Action, msg.Code)
	}
	os.Exit(exitCode(err))
}
