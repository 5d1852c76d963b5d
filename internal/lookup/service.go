// Package lookup coordinates a batch lookup: cache first, then the resolver
// for whatever the cache could not answer.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/uuidlens/internal/ident"
)

// Resolver resolves cache misses. *resolver.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, ids []ident.TypedIdentifier) (map[string]ident.ResolvedName, error)
}

// Cache is the part of *cache.Cache a lookup uses.
type Cache interface {
	Split(ctx context.Context, ids []ident.TypedIdentifier) (map[string]ident.ResolvedName, []ident.TypedIdentifier, error)
	Merge(ctx context.Context, fresh map[string]ident.ResolvedName) error
}

// Result is the outcome of one lookup.
//
// Matches is authoritative even when Err is set: it holds every name that
// could be resolved, from the cache or freshly.
type Result struct {
	RequestID string
	Matches   map[string]ident.ResolvedName
	Err       error
}

// Service runs lookups.
//
// Thread-safety: Service is safe for concurrent use. Overlapping lookups are
// not coalesced; both resolve and the last cache write wins.
type Service struct {
	cache   Cache
	connect Connector
	ids     IDGenerator
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator overrides the request id source.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Service) { s.ids = g }
}

// New creates a Service.
func New(cache Cache, connect Connector, opts ...Option) *Service {
	s := &Service{
		cache:   cache,
		connect: connect,
		ids:     UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup resolves requested to qualified names.
//
// Identifiers are lower-cased, validated and deduplicated first; invalid
// ones are dropped silently. Cache misses are resolved only when the
// Connector can supply a resolver. Fresh names are written back to the
// cache before returning.
func (s *Service) Lookup(ctx context.Context, requested []ident.TypedIdentifier) Result {
	res := Result{
		RequestID: s.ids.Generate(),
		Matches:   make(map[string]ident.ResolvedName),
	}
	log := slog.With("request_id", res.RequestID)

	ids := normalize(requested)
	if len(ids) == 0 {
		return res
	}

	hits, misses, err := s.cache.Split(ctx, ids)
	if err != nil {
		log.Warn("cache unavailable, resolving everything", "error", err)
	}
	for id, name := range hits {
		res.Matches[id] = name
	}
	log.Debug("lookup started", "requested", len(ids), "hits", len(hits), "misses", len(misses))

	if len(misses) == 0 {
		return res
	}

	r, err := s.connect(ctx)
	if err != nil {
		res.Err = err
		return res
	}

	fresh, resolveErr := r.Resolve(ctx, misses)
	var errs []error
	if resolveErr != nil {
		errs = append(errs, resolveErr)
	}

	if len(fresh) > 0 {
		if err := s.cache.Merge(ctx, fresh); err != nil {
			log.Warn("cache write failed", "error", err)
			errs = append(errs, fmt.Errorf("update cache: %w", err))
		}
	}
	for id, name := range fresh {
		res.Matches[id] = name
	}

	res.Err = errors.Join(errs...)
	log.Debug("lookup finished",
		"matches", len(res.Matches),
		"fresh", len(fresh),
		"error", res.Err,
	)
	return res
}

// normalize lower-cases and validates every identifier, then collapses
// duplicates keeping the most specific kind.
func normalize(requested []ident.TypedIdentifier) []ident.TypedIdentifier {
	valid := make([]ident.TypedIdentifier, 0, len(requested))
	for _, id := range requested {
		n, err := ident.New(strings.ToLower(strings.TrimSpace(id.ID)), id.Kind)
		if err != nil {
			slog.Debug("dropping invalid identifier", "id", id.ID, "error", err)
			continue
		}
		valid = append(valid, n)
	}
	return ident.Dedupe(valid)
}
