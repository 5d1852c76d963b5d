package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/uuidlens/internal/settings"
)

// ConfigSetOptions holds flags for config set.
type ConfigSetOptions struct {
	*RootOptions
	settings.Settings
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the endpoint, warehouse and token",
		Long: `Manage the endpoint, warehouse and token lookups run against.

The ` + settings.EnvToken + ` environment variable overrides the stored token.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Show the current settings with the token masked",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(rootOpts, cmd)
		},
	})
	cmd.AddCommand(newConfigSetCommand(rootOpts))
	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Remove every stored setting",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigClear(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Load settings from a YAML file",
		Long: `Load settings from a YAML file with the keys endpoint, warehouse_id
and optionally token. The file is validated before anything is saved.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigImport(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func newConfigSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigSetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update one or more settings",
		Long: `Update one or more settings. Fields that are not given keep their
current value.

Example:
  uuidlens config set --endpoint adb-123.azuredatabricks.net --warehouse abc123`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Endpoint, "endpoint", "", "workspace host or URL")
	cmd.Flags().StringVar(&opts.WarehouseID, "warehouse", "", "SQL warehouse id")
	cmd.Flags().StringVar(&opts.Token, "token", "", "access token")

	return cmd
}

// ConfigOutput renders settings for display. The token is always redacted.
type ConfigOutput struct {
	settings.Settings
	TokenSource string `json:"token_source,omitempty"`
}

func (o ConfigOutput) String() string {
	show := func(v string) string {
		if v == "" {
			return "(not set)"
		}
		return v
	}
	token := show(o.Token)
	if o.TokenSource != "" {
		token += " (" + o.TokenSource + ")"
	}
	return fmt.Sprintf("endpoint:  %s\nwarehouse: %s\ntoken:     %s",
		show(o.Endpoint), show(o.WarehouseID), token)
}

func newConfigOutput(stored, effective settings.Settings) ConfigOutput {
	out := ConfigOutput{Settings: effective.Redacted()}
	switch {
	case effective.Token == "":
	case effective.Token != stored.Token:
		out.TokenSource = "env " + settings.EnvToken
	default:
		out.TokenSource = "stored"
	}
	return out
}

func runConfigShow(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	e, err := openEnv(opts)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	stored, err := e.settings.LoadStored(cmd.Context())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to load settings", err)
	}
	effective, err := e.settings.Load(cmd.Context())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to load settings", err)
	}
	return formatter.Success(newConfigOutput(stored, effective))
}

func runConfigSet(opts *ConfigSetOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Endpoint == "" && opts.WarehouseID == "" && opts.Token == "" {
		return fail(formatter, ExitCommandError, ErrCodeBadArgument,
			"nothing to set: pass --endpoint, --warehouse or --token", nil)
	}
	if opts.Endpoint != "" {
		if err := settings.CheckEndpoint(opts.Endpoint); err != nil {
			return fail(formatter, ExitCommandError, ErrCodeBadArgument, "invalid --endpoint", err)
		}
	}

	e, err := openEnv(opts.RootOptions)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	if err := e.settings.Save(cmd.Context(), opts.Settings); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to save settings", err)
	}
	stored, err := e.settings.LoadStored(cmd.Context())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to load settings", err)
	}
	return formatter.Success(newConfigOutput(stored, stored))
}

func runConfigClear(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	e, err := openEnv(opts)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	if err := e.settings.Clear(cmd.Context()); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to clear settings", err)
	}
	return formatter.Success("settings cleared")
}

func runConfigImport(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	e, err := openEnv(opts)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	imported, err := e.settings.Import(cmd.Context(), path)
	if err != nil {
		var ie *settings.ImportError
		if errors.As(err, &ie) {
			_ = formatter.Error(ErrCodeInvalidConfig, ie.Error(), ie.Problems)
			return WrapExitError(ExitCommandError, "invalid settings file", err)
		}
		return fail(formatter, ExitCommandError, ErrCodeInputFailed, "failed to import settings", err)
	}
	formatter.VerboseLog("Imported settings from %s", path)
	return formatter.Success(newConfigOutput(imported, imported))
}
