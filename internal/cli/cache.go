package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/uuidlens/internal/cache"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the resolution cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "show",
		Short:         "Show cache entry counts and last update time",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheShow(rootOpts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Drop every cached name",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(rootOpts, cmd)
		},
	})

	return cmd
}

// CacheOutput wraps a cache snapshot for text output.
type CacheOutput struct {
	cache.Snapshot
}

func (o CacheOutput) String() string {
	updated := "never"
	if o.UpdatedAt != nil {
		updated = o.UpdatedAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("entries: %d\nexpired: %d\nupdated: %s", o.Entries, o.Expired, updated)
}

func runCacheShow(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	e, err := openEnv(opts)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	snap, err := e.cache.Snapshot(cmd.Context())
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to read cache", err)
	}
	return formatter.Success(CacheOutput{Snapshot: snap})
}

func runCacheClear(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	e, err := openEnv(opts)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to open store", err)
	}
	defer e.Close()

	if err := e.cache.Clear(cmd.Context()); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeStoreFailed, "failed to clear cache", err)
	}
	return formatter.Success("cache cleared")
}
