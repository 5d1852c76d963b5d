package lookup

import (
	"context"
	"fmt"

	"github.com/roach88/uuidlens/internal/resolver"
	"github.com/roach88/uuidlens/internal/settings"
	"github.com/roach88/uuidlens/internal/statement"
)

// Connector supplies the resolver for a lookup that has cache misses.
// It is not called when every identifier is served from the cache.
type Connector func(ctx context.Context) (Resolver, error)

// Static always returns r.
func Static(r Resolver) Connector {
	return func(context.Context) (Resolver, error) { return r, nil }
}

// SettingsLoader is satisfied by *settings.Store.
type SettingsLoader interface {
	Load(ctx context.Context) (settings.Settings, error)
}

// ConnectorConfig tunes the executor and resolver built by FromSettings.
type ConnectorConfig struct {
	// Statement overrides executor limits. Host, Token and WarehouseID are
	// always taken from settings.
	Statement statement.Config

	StatementOptions []statement.Option
	ResolverOptions  []resolver.Option
}

// FromSettings builds a statement-backed resolver from the current settings
// each time it is called. Missing settings yield a *ConfigurationError.
func FromSettings(src SettingsLoader, cfg ConnectorConfig) Connector {
	return func(ctx context.Context) (Resolver, error) {
		s, err := src.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}

		var missing []string
		if s.Endpoint == "" {
			missing = append(missing, "endpoint")
		}
		if s.WarehouseID == "" {
			missing = append(missing, "warehouse id")
		}
		if !s.HasCredential() {
			missing = append(missing, "token")
		}
		if len(missing) > 0 {
			return nil, &ConfigurationError{Missing: missing}
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}

		sc := cfg.Statement
		sc.Host = s.Endpoint
		sc.Token = s.Token
		sc.WarehouseID = s.WarehouseID
		client, err := statement.New(sc, cfg.StatementOptions...)
		if err != nil {
			return nil, fmt.Errorf("create statement client: %w", err)
		}
		return resolver.New(client, cfg.ResolverOptions...), nil
	}
}
