// Package settings stores the endpoint, warehouse and credential the
// statement executor is bound to.
//
// Each field is its own key in the KV store. The UUIDLENS_TOKEN environment
// variable, when set, takes precedence over the stored credential.
package settings

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/roach88/uuidlens/internal/store"
)

// KV keys.
const (
	KeyEndpoint    = "endpoint"
	KeyWarehouseID = "warehouseId"
	KeyToken       = "token"
)

// EnvToken overrides the stored credential.
const EnvToken = "UUIDLENS_TOKEN"

// Settings binds lookups to one remote endpoint.
type Settings struct {
	Endpoint    string `json:"endpoint" yaml:"endpoint"`
	WarehouseID string `json:"warehouse_id" yaml:"warehouse_id"`
	Token       string `json:"token,omitempty" yaml:"token,omitempty"`
}

// HasCredential reports whether a token is available.
func (s Settings) HasCredential() bool {
	return s.Token != ""
}

// Redacted returns a copy with all but the last four characters of the
// token masked.
func (s Settings) Redacted() Settings {
	if s.Token == "" {
		return s
	}
	keep := 4
	if len(s.Token) <= 8 {
		keep = 0
	}
	s.Token = strings.Repeat("*", len(s.Token)-keep) + s.Token[len(s.Token)-keep:]
	return s
}

// Validate checks that the settings are complete enough to run a lookup.
// The credential is not required here; its absence is reported by the
// lookup itself.
func (s Settings) Validate() error {
	var problems []string
	if strings.TrimSpace(s.Endpoint) == "" {
		problems = append(problems, "endpoint is not set")
	} else if err := CheckEndpoint(s.Endpoint); err != nil {
		problems = append(problems, err.Error())
	}
	if strings.TrimSpace(s.WarehouseID) == "" {
		problems = append(problems, "warehouse id is not set")
	}
	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// CheckEndpoint reports whether endpoint is a host or an http(s) URL.
func CheckEndpoint(endpoint string) error {
	raw := endpoint
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("endpoint %q is not a URL", endpoint)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("endpoint %q must use http or https", endpoint)
	}
	return nil
}

// Error lists problems found in settings.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return "invalid settings: " + strings.Join(e.Problems, "; ")
}

// Store reads and writes Settings in a KV.
type Store struct {
	kv store.KV
}

// NewStore creates a Store over kv.
func NewStore(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Load returns the stored settings with the environment override applied.
// Unset fields are empty.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	stored, err := s.LoadStored(ctx)
	if err != nil {
		return Settings{}, err
	}
	if token := os.Getenv(EnvToken); token != "" {
		stored.Token = token
	}
	return stored, nil
}

// LoadStored returns the settings exactly as persisted.
func (s *Store) LoadStored(ctx context.Context) (Settings, error) {
	var out Settings
	fields := []struct {
		key string
		dst *string
	}{
		{KeyEndpoint, &out.Endpoint},
		{KeyWarehouseID, &out.WarehouseID},
		{KeyToken, &out.Token},
	}
	for _, f := range fields {
		v, ok, err := s.kv.Get(ctx, f.key)
		if err != nil {
			return Settings{}, fmt.Errorf("load %s: %w", f.key, err)
		}
		if ok {
			*f.dst = string(v)
		}
	}
	return out, nil
}

// Save writes every non-empty field of update, leaving the others as they
// are.
func (s *Store) Save(ctx context.Context, update Settings) error {
	fields := []struct {
		key   string
		value string
	}{
		{KeyEndpoint, strings.TrimSpace(update.Endpoint)},
		{KeyWarehouseID, strings.TrimSpace(update.WarehouseID)},
		{KeyToken, strings.TrimSpace(update.Token)},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := s.kv.Set(ctx, f.key, []byte(f.value)); err != nil {
			return fmt.Errorf("save %s: %w", f.key, err)
		}
	}
	return nil
}

// Clear removes every stored field.
func (s *Store) Clear(ctx context.Context) error {
	for _, key := range []string{KeyEndpoint, KeyWarehouseID, KeyToken} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("clear %s: %w", key, err)
		}
	}
	return nil
}
