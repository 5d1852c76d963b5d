// Package cache implements the time-bounded resolution cache that sits in
// front of the resolver.
//
// The whole cache is one JSON record in a store.KV. Every operation reads
// the record, and writers persist it back, under a single mutex so that
// concurrent lookups in one process do not lose updates.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/roach88/uuidlens/internal/clock"
	"github.com/roach88/uuidlens/internal/ident"
	"github.com/roach88/uuidlens/internal/store"
)

// TTL is how long a resolved name is served from the cache.
const TTL = 24 * time.Hour

const meterName = "github.com/roach88/uuidlens/internal/cache"

// Cache partitions lookups into hits and misses and records fresh
// resolutions.
type Cache struct {
	kv    store.KV
	clock clock.Clock

	mu sync.Mutex

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	clock clock.Clock
	meter metric.MeterProvider
}

// WithClock overrides the wall clock used for entry ages.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMeterProvider records hit and miss counters.
// Default: no-op provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meter = mp }
}

// New creates a Cache persisted in kv.
func New(kv store.KV, opts ...Option) (*Cache, error) {
	o := options{
		clock: clock.System{},
		meter: noop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.meter.Meter(meterName)
	hits, err := meter.Int64Counter("uuidlens.cache.hits",
		metric.WithDescription("Identifiers served from the resolution cache"))
	if err != nil {
		return nil, fmt.Errorf("create hit counter: %w", err)
	}
	misses, err := meter.Int64Counter("uuidlens.cache.misses",
		metric.WithDescription("Identifiers missing or expired in the resolution cache"))
	if err != nil {
		return nil, fmt.Errorf("create miss counter: %w", err)
	}

	return &Cache{
		kv:     kv,
		clock:  o.clock,
		hits:   hits,
		misses: misses,
	}, nil
}

// Split partitions ids into those with a live entry and those that must be
// resolved. Every id lands in exactly one of the two results.
//
// When the record cannot be read every id is a miss and the read error is
// returned alongside.
func (c *Cache) Split(ctx context.Context, ids []ident.TypedIdentifier) (map[string]ident.ResolvedName, []ident.TypedIdentifier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hits := make(map[string]ident.ResolvedName)
	rec, err := c.load(ctx)
	if err != nil {
		misses := append([]ident.TypedIdentifier(nil), ids...)
		c.misses.Add(ctx, int64(len(misses)))
		return hits, misses, err
	}

	now := c.clock.Now()
	var misses []ident.TypedIdentifier
	for _, id := range ids {
		e, ok := rec.Entries[strings.ToLower(id.ID)]
		if ok && e.fresh(now) {
			hits[id.ID] = e.Value
			continue
		}
		misses = append(misses, id)
	}

	c.hits.Add(ctx, int64(len(hits)))
	c.misses.Add(ctx, int64(len(misses)))
	slog.Debug("cache split", "hits", len(hits), "misses", len(misses))
	return hits, misses, nil
}

// Merge stores every entry of fresh with the current time, replacing any
// existing entry for the same id, and persists the record. An empty fresh
// map leaves the record untouched.
func (c *Cache) Merge(ctx context.Context, fresh map[string]ident.ResolvedName) error {
	if len(fresh) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.load(ctx)
	if err != nil {
		return err
	}

	now := c.clock.Now().UnixMilli()
	for id, name := range fresh {
		rec.Entries[strings.ToLower(id)] = entry{Value: name, CachedAt: now}
	}
	rec.UpdatedAt = &now

	return c.save(ctx, rec)
}

// Clear drops every entry and unsets the last-updated time.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.save(ctx, emptyRecord())
}

// Snapshot summarizes the persisted record.
type Snapshot struct {
	Entries   int        `json:"entries"`
	Expired   int        `json:"expired"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Snapshot reports entry counts and the last update time.
func (c *Cache) Snapshot(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := c.load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	now := c.clock.Now()
	snap := Snapshot{Entries: len(rec.Entries)}
	for _, e := range rec.Entries {
		if !e.fresh(now) {
			snap.Expired++
		}
	}
	if rec.UpdatedAt != nil {
		t := time.UnixMilli(*rec.UpdatedAt).UTC()
		snap.UpdatedAt = &t
	}
	return snap, nil
}

// load reads the record. A missing or unreadable record starts empty; only
// store failures are errors.
func (c *Cache) load(ctx context.Context) (*record, error) {
	data, ok, err := c.kv.Get(ctx, RecordKey)
	if err != nil {
		return nil, fmt.Errorf("read cache record: %w", err)
	}
	if !ok || len(data) == 0 {
		return emptyRecord(), nil
	}

	rec := emptyRecord()
	if err := json.Unmarshal(data, rec); err != nil {
		slog.Warn("discarding unreadable cache record", "error", err)
		return emptyRecord(), nil
	}
	if rec.Entries == nil {
		rec.Entries = make(map[string]entry)
	}
	return rec, nil
}

func (c *Cache) save(ctx context.Context, rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode cache record: %w", err)
	}
	if err := c.kv.Set(ctx, RecordKey, data); err != nil {
		return fmt.Errorf("write cache record: %w", err)
	}
	return nil
}
