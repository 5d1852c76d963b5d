package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/uuidlens/internal/clock"
	"github.com/roach88/uuidlens/internal/lookup"
	"github.com/roach88/uuidlens/internal/resolver"
	"github.com/roach88/uuidlens/internal/statement"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // SQLite path; empty means the per-user default
	RedisURL string // when set, replaces SQLite

	// Overrides for tests. Zero values use the production defaults.
	Statement   statement.Config
	Clock       clock.Clock
	IDGenerator lookup.IDGenerator
	Concurrency int
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the uuidlens CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uuidlens",
		Short: "uuidlens - resolve storage UUIDs to qualified names",
		Long: `Resolve the catalog, schema and table UUIDs found in storage paths into
qualified names by querying a SQL statement endpoint. Results are cached
locally for 24 hours.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(cmd, opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite store (default: user config dir)")
	cmd.PersistentFlags().StringVar(&opts.RedisURL, "redis", "", "redis URL; stores cache and settings in Redis instead of SQLite")

	cmd.AddCommand(NewLookupCommand(opts))
	cmd.AddCommand(NewAnnotateCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}

// setupLogging installs the process-wide slog handler on stderr.
func setupLogging(cmd *cobra.Command, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// connectorConfig applies the test overrides to the executor and resolver.
func (o *RootOptions) connectorConfig() lookup.ConnectorConfig {
	cfg := lookup.ConnectorConfig{Statement: o.Statement}
	if o.Concurrency > 1 {
		cfg.ResolverOptions = append(cfg.ResolverOptions, resolver.WithConcurrency(o.Concurrency))
	}
	return cfg
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // keep JSON on stdout parseable
		Verbose:   o.Verbose,
	}
}
