// Package commands implements the contactsctl command line interface.
package commands

import (
	"context"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/mutcache/contacts"
	"github.com/jonwraymond/mutcache/observe"
)

// API is the part of the contacts service the commands mutate.
type API interface {
	contacts.Deleter
	contacts.Updater
}

// APIFactory connects to the contacts service described by cfg.
type APIFactory func(cfg Config, logger observe.Logger) (API, error)

// CLI represents the command line interface for contactsctl.
type CLI struct {
	rootCmd *cobra.Command
	newAPI  APIFactory

	configPath string
	overrides  Config
}

// Option configures a CLI.
type Option func(*CLI)

// WithAPIFactory replaces the HTTP contacts client. Used for testing.
func WithAPIFactory(f APIFactory) Option {
	return func(c *CLI) {
		if f != nil {
			c.newAPI = f
		}
	}
}

// New creates a new CLI instance.
func New(opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "contactsctl",
		Short:         "Drive per-contact mutations against a contacts API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		rootCmd: rootCmd,
		newAPI:  httpAPI,
	}
	for _, opt := range opts {
		opt(c)
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "Path to a TOML config file (default $CONTACTS_CONFIG)")
	flags.StringVar(&c.overrides.URL, "url", "", "Contacts collection URL")
	flags.DurationVar(&c.overrides.Timeout, "timeout", 0, "Per-request timeout")
	flags.IntVarP(&c.overrides.Concurrency, "concurrency", "c", 0, "Maximum mutations in flight")
	flags.IntVar(&c.overrides.MaxFailures, "max-failures", 0, "Consecutive failures that open the circuit")
	flags.StringVar(&c.overrides.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVarP(&c.overrides.Output, "output", "o", "", "Listing format (text, json)")

	rootCmd.AddCommand(c.newDeleteCmd())
	rootCmd.AddCommand(c.newFavoriteCmd())
	rootCmd.AddCommand(c.newServeCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// config loads the configuration and applies the flags that were set.
func (c *CLI) config(cmd *cobra.Command) (Config, error) {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.URL = c.overrides.URL
	}
	if flags.Changed("timeout") {
		cfg.Timeout = c.overrides.Timeout
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency = c.overrides.Concurrency
	}
	if flags.Changed("max-failures") {
		cfg.MaxFailures = c.overrides.MaxFailures
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.overrides.LogLevel
	}
	if flags.Changed("output") {
		cfg.Output = c.overrides.Output
	}
	if flags.Changed("listen") {
		cfg.Listen = c.overrides.Listen
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func httpAPI(cfg Config, logger observe.Logger) (API, error) {
	client, err := contacts.New(cfg.URL,
		contacts.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		contacts.WithLogger(logger),
		contacts.WithToken(cfg.Token),
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}
