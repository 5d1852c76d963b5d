package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"testing"
	"time"

	"github.com/roach88/uuidlens/internal/cache"
	"github.com/roach88/uuidlens/internal/ident"
	"github.com/roach88/uuidlens/internal/lookup"
	"github.com/roach88/uuidlens/internal/settings"
	"github.com/roach88/uuidlens/internal/statement"
	"github.com/roach88/uuidlens/internal/store"
	"github.com/roach88/uuidlens/internal/testutil"
)

const (
	harnessToken     = "dapi-harness"
	harnessWarehouse = "wh-harness"
)

// Harness holds the wiring for one scenario run.
type Harness struct {
	store  *store.Store
	cache  *cache.Cache
	clock  *testutil.FakeClock
	server *testutil.StatementServer
	svc    *lookup.Service
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory SQLite store and its own
// fake statement endpoint, both released when t ends.
//
// Execution flow:
// 1. Seed the cache
// 2. Run each lookup, recording submitted statements and the outcome
// 3. Check per-lookup expectations
// 4. Evaluate assertions against the final cache record and trace
func Run(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	t.Setenv(settings.EnvToken, "")

	h, err := newHarness(t, scenario)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed cache: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Lookups {
		if err := h.runLookup(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("lookups[%d]: %w", i, err)
		}
	}

	record, err := h.record(ctx)
	if err != nil {
		return nil, err
	}
	result.Cache = record

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(t *testing.T, scenario *Scenario) (*Harness, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	clk := testutil.NewFakeClock(time.Time{})
	c, err := cache.New(st, cache.WithClock(clk))
	if err != nil {
		return nil, err
	}

	srv := testutil.NewStatementServer(t, harnessToken, scenario.Scripts...)
	cfg := settings.NewStore(st)
	if err := cfg.Save(context.Background(), settings.Settings{
		Endpoint:    srv.URL,
		WarehouseID: harnessWarehouse,
		Token:       harnessToken,
	}); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	requestIDs := make([]string, len(scenario.Lookups))
	for i := range requestIDs {
		requestIDs[i] = fmt.Sprintf("lookup-%d", i+1)
	}

	connect := lookup.FromSettings(cfg, lookup.ConnectorConfig{
		Statement: statement.Config{PollInterval: time.Millisecond},
	})
	return &Harness{
		store:  st,
		cache:  c,
		clock:  clk,
		server: srv,
		svc:    lookup.New(c, connect, lookup.WithIDGenerator(lookup.NewFixedGenerator(requestIDs...))),
	}, nil
}

// seed merges entries one at a time so each gets its own cachedAt.
func (h *Harness) seed(ctx context.Context, entries []SeedEntry) error {
	start := h.clock.Now()
	defer h.clock.Set(start)

	for _, e := range entries {
		kind, err := ident.ParseKind(e.Type)
		if err != nil {
			return err
		}
		id, err := ident.New(e.ID, kind)
		if err != nil {
			return err
		}
		h.clock.Set(start.Add(-e.Age))
		if err := h.cache.Merge(ctx, map[string]ident.ResolvedName{
			id.ID: {Kind: kind, Name: e.Name},
		}); err != nil {
			return err
		}
	}
	return nil
}

func (h *Harness) runLookup(ctx context.Context, index int, step LookupStep, result *Result) error {
	h.clock.Advance(step.Advance)

	ids := make([]ident.TypedIdentifier, 0, len(step.Request))
	for _, raw := range step.Request {
		id, err := ident.Parse(raw)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	before := len(h.server.Submissions())
	res := h.svc.Lookup(ctx, ids)
	submitted := h.server.Submissions()[before:]

	for _, sub := range submitted {
		params := make([]string, len(sub.Params))
		for i, p := range sub.Params {
			params[i] = p.Name + "=" + p.Value
		}
		result.addEvent(TraceEvent{
			Type:        EventStatement,
			StatementID: sub.StatementID,
			Statement:   sub.Statement,
			Params:      params,
		})
	}

	matches := make(map[string]string, len(res.Matches))
	for id, name := range res.Matches {
		matches[id] = name.Name
	}
	result.addEvent(TraceEvent{
		Type:      EventLookup,
		RequestID: res.RequestID,
		Request:   step.Request,
		Matches:   matches,
		Failed:    res.Err != nil,
	})

	if step.Expect != nil {
		checkExpect(index, step.Expect, matches, res.Err, len(submitted), result)
	}
	return nil
}

func checkExpect(index int, want *LookupExpect, matches map[string]string, err error, statements int, result *Result) {
	wantMatches := want.Matches
	if wantMatches == nil {
		wantMatches = map[string]string{}
	}
	if !maps.Equal(wantMatches, matches) {
		result.AddError(fmt.Sprintf("lookups[%d]: matches = %v, want %v", index, matches, wantMatches))
	}

	switch {
	case want.Error == "" && err != nil:
		result.AddError(fmt.Sprintf("lookups[%d]: unexpected error: %v", index, err))
	case want.Error != "" && err == nil:
		result.AddError(fmt.Sprintf("lookups[%d]: expected error containing %q, got none", index, want.Error))
	case want.Error != "" && !strings.Contains(err.Error(), want.Error):
		result.AddError(fmt.Sprintf("lookups[%d]: error %q does not contain %q", index, err, want.Error))
	}

	if want.Statements != nil && *want.Statements != statements {
		result.AddError(fmt.Sprintf("lookups[%d]: submitted %d statements, want %d", index, statements, *want.Statements))
	}
}

// record decodes the persisted cache record.
func (h *Harness) record(ctx context.Context) (map[string]any, error) {
	data, ok, err := h.store.Get(ctx, cache.RecordKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache record: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode cache record: %w", err)
	}
	return record, nil
}
