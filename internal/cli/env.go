package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/roach88/uuidlens/internal/cache"
	"github.com/roach88/uuidlens/internal/lookup"
	"github.com/roach88/uuidlens/internal/settings"
	"github.com/roach88/uuidlens/internal/store"
)

// env is the per-invocation wiring: one KV store shared by the cache and
// the settings.
type env struct {
	kv       store.KV
	cache    *cache.Cache
	settings *settings.Store
}

// openEnv opens the configured store and the cache and settings on top of it.
func openEnv(opts *RootOptions) (*env, error) {
	kv, err := openKV(opts)
	if err != nil {
		return nil, err
	}

	var cacheOpts []cache.Option
	if opts.Clock != nil {
		cacheOpts = append(cacheOpts, cache.WithClock(opts.Clock))
	}
	c, err := cache.New(kv, cacheOpts...)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &env{
		kv:       kv,
		cache:    c,
		settings: settings.NewStore(kv),
	}, nil
}

func openKV(opts *RootOptions) (store.KV, error) {
	if opts.RedisURL != "" {
		slog.Debug("opening redis store")
		return store.OpenRedis(store.RedisOptions{URL: opts.RedisURL})
	}

	path := opts.Database
	if path == "" {
		var err error
		if path, err = defaultDatabasePath(); err != nil {
			return nil, err
		}
	}
	slog.Debug("opening database", "path", path)
	return store.Open(path)
}

// defaultDatabasePath returns <user config dir>/uuidlens/uuidlens.db,
// creating the directory.
func defaultDatabasePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	dir = filepath.Join(dir, "uuidlens")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return filepath.Join(dir, "uuidlens.db"), nil
}

// service builds the lookup coordinator. The executor is only constructed
// when a lookup has misses.
func (e *env) service(opts *RootOptions) *lookup.Service {
	var svcOpts []lookup.Option
	if opts.IDGenerator != nil {
		svcOpts = append(svcOpts, lookup.WithIDGenerator(opts.IDGenerator))
	}
	return lookup.New(e.cache, lookup.FromSettings(e.settings, opts.connectorConfig()), svcOpts...)
}

func (e *env) Close() {
	if err := e.kv.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}

// fail reports err through f and returns the ExitError main exits with.
func fail(f *OutputFormatter, exit int, code, message string, err error) error {
	detail := message
	if err != nil {
		detail = message + ": " + err.Error()
	}
	_ = f.Error(code, detail, nil)
	return WrapExitError(exit, message, err)
}

// lookupErrorCode maps a lookup error onto an error code.
func lookupErrorCode(err error) string {
	if lookup.IsConfigurationError(err) {
		return ErrCodeNotConfigured
	}
	return ErrCodeLookupFailed
}

// commandContext is cancelled on SIGINT or SIGTERM so an in-flight remote
// statement is cancelled too.
func commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
