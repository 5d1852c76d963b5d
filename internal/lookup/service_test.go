package lookup

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uuidlens/internal/cache"
	"github.com/roach88/uuidlens/internal/ident"
	"github.com/roach88/uuidlens/internal/resolver"
	"github.com/roach88/uuidlens/internal/settings"
	"github.com/roach88/uuidlens/internal/statement"
	"github.com/roach88/uuidlens/internal/testutil"
)

const (
	tableToken   = "0f8fad5b-d9cb-469f-a165-70867728950e"
	schemaToken  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	catalogToken = "16fd2706-8baf-433b-82eb-8c7fada847da"
)

var (
	tableID   = ident.TypedIdentifier{ID: tableToken, Kind: ident.KindLeaf}
	schemaID  = ident.TypedIdentifier{ID: schemaToken, Kind: ident.KindBranch}
	catalogID = ident.TypedIdentifier{ID: catalogToken, Kind: ident.KindRoot}

	tableName   = ident.ResolvedName{Kind: ident.KindLeaf, Name: "main.sales.orders"}
	schemaName  = ident.ResolvedName{Kind: ident.KindBranch, Name: "main.sales"}
	catalogName = ident.ResolvedName{Kind: ident.KindRoot, Name: "main"}
)

// fakeResolver returns canned names and records what it was asked.
type fakeResolver struct {
	mu    sync.Mutex
	names map[string]ident.ResolvedName
	err   error
	calls [][]ident.TypedIdentifier
}

func (f *fakeResolver) Resolve(_ context.Context, ids []ident.TypedIdentifier) (map[string]ident.ResolvedName, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]ident.TypedIdentifier(nil), ids...))
	out := make(map[string]ident.ResolvedName)
	for _, id := range ids {
		if n, ok := f.names[id.ID]; ok {
			out[id.ID] = n
		}
	}
	return out, f.err
}

func newTestCache(t *testing.T) (*cache.Cache, *testutil.MemoryKV, *testutil.FakeClock) {
	t.Helper()
	kv := testutil.NewMemoryKV()
	clk := testutil.NewFakeClock(time.Time{})
	c, err := cache.New(kv, cache.WithClock(clk))
	require.NoError(t, err)
	return c, kv, clk
}

func neverConnect(t *testing.T) Connector {
	return func(context.Context) (Resolver, error) {
		t.Error("connector must not be called")
		return nil, errors.New("unexpected connect")
	}
}

func TestLookup_EmptyInput(t *testing.T) {
	c, _, _ := newTestCache(t)
	svc := New(c, neverConnect(t), WithIDGenerator(NewFixedGenerator("req-1")))

	res := svc.Lookup(context.Background(), nil)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Matches)
	assert.NotNil(t, res.Matches)
	assert.Equal(t, "req-1", res.RequestID)
}

func TestLookup_InvalidIdentifiersDropped(t *testing.T) {
	c, _, _ := newTestCache(t)
	svc := New(c, neverConnect(t))

	res := svc.Lookup(context.Background(), []ident.TypedIdentifier{
		{ID: "not-a-uuid", Kind: ident.KindLeaf},
		{ID: tableToken, Kind: ident.KindUnknown},
	})
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Matches)
}

func TestLookup_AllCachedSkipsResolver(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Merge(ctx, map[string]ident.ResolvedName{tableToken: tableName}))

	res := New(c, neverConnect(t)).Lookup(ctx, []ident.TypedIdentifier{tableID})
	assert.NoError(t, res.Err)
	assert.Equal(t, map[string]ident.ResolvedName{tableToken: tableName}, res.Matches)
}

func TestLookup_ResolvesMissesAndCachesThem(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Merge(ctx, map[string]ident.ResolvedName{tableToken: tableName}))

	r := &fakeResolver{names: map[string]ident.ResolvedName{
		schemaToken:  schemaName,
		catalogToken: catalogName,
	}}
	svc := New(c, Static(r))

	res := svc.Lookup(ctx, []ident.TypedIdentifier{tableID, schemaID, catalogID})
	require.NoError(t, res.Err)
	assert.Equal(t, map[string]ident.ResolvedName{
		tableToken:   tableName,
		schemaToken:  schemaName,
		catalogToken: catalogName,
	}, res.Matches)

	// Only the misses reach the resolver.
	require.Len(t, r.calls, 1)
	assert.ElementsMatch(t, []ident.TypedIdentifier{schemaID, catalogID}, r.calls[0])

	// A second lookup is served entirely from the cache.
	res = svc.Lookup(ctx, []ident.TypedIdentifier{tableID, schemaID, catalogID})
	require.NoError(t, res.Err)
	assert.Len(t, res.Matches, 3)
	assert.Len(t, r.calls, 1)
}

func TestLookup_NormalizesAndDedupes(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	r := &fakeResolver{names: map[string]ident.ResolvedName{tableToken: tableName}}

	res := New(c, Static(r)).Lookup(ctx, []ident.TypedIdentifier{
		{ID: strings.ToUpper(tableToken), Kind: ident.KindRoot},
		{ID: tableToken, Kind: ident.KindLeaf},
		{ID: " " + tableToken + " ", Kind: ident.KindBranch},
	})
	require.NoError(t, res.Err)
	assert.Equal(t, map[string]ident.ResolvedName{tableToken: tableName}, res.Matches)

	require.Len(t, r.calls, 1)
	assert.Equal(t, []ident.TypedIdentifier{tableID}, r.calls[0])
}

func TestLookup_NoCredentialReturnsHits(t *testing.T) {
	t.Setenv(settings.EnvToken, "")
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Merge(ctx, map[string]ident.ResolvedName{tableToken: tableName}))

	srv := testutil.NewStatementServer(t, "")
	st := settings.NewStore(testutil.NewMemoryKV())
	require.NoError(t, st.Save(ctx, settings.Settings{Endpoint: srv.URL, WarehouseID: "wh"}))

	res := New(c, FromSettings(st, ConnectorConfig{})).Lookup(ctx, []ident.TypedIdentifier{tableID, catalogID})

	require.Error(t, res.Err)
	assert.True(t, IsConfigurationError(res.Err))
	assert.Contains(t, res.Err.Error(), "token")
	assert.Equal(t, map[string]ident.ResolvedName{tableToken: tableName}, res.Matches)
	assert.Empty(t, srv.Submissions(), "no network I/O without a credential")
}

func TestLookup_ConfigurationErrorListsMissing(t *testing.T) {
	t.Setenv(settings.EnvToken, "")
	c, _, _ := newTestCache(t)
	st := settings.NewStore(testutil.NewMemoryKV())

	res := New(c, FromSettings(st, ConnectorConfig{})).Lookup(context.Background(), []ident.TypedIdentifier{catalogID})

	var ce *ConfigurationError
	require.ErrorAs(t, res.Err, &ce)
	assert.Equal(t, []string{"endpoint", "warehouse id", "token"}, ce.Missing)
}

func TestLookup_ResolverErrorKeepsHitsAndPartialResults(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCache(t)
	require.NoError(t, c.Merge(ctx, map[string]ident.ResolvedName{tableToken: tableName}))

	boom := errors.New("schema group failed")
	r := &fakeResolver{
		names: map[string]ident.ResolvedName{catalogToken: catalogName},
		err:   boom,
	}
	res := New(c, Static(r)).Lookup(ctx, []ident.TypedIdentifier{tableID, schemaID, catalogID})

	assert.ErrorIs(t, res.Err, boom)
	assert.Equal(t, map[string]ident.ResolvedName{
		tableToken:   tableName,
		catalogToken: catalogName,
	}, res.Matches)

	// The partial result was cached.
	hits, misses, err := c.Split(ctx, []ident.TypedIdentifier{catalogID, schemaID})
	require.NoError(t, err)
	assert.Contains(t, hits, catalogToken)
	assert.Equal(t, []ident.TypedIdentifier{schemaID}, misses)
}

func TestLookup_CacheReadFailureDegrades(t *testing.T) {
	ctx := context.Background()
	kv := testutil.NewMemoryKV()
	c, err := cache.New(kv)
	require.NoError(t, err)
	kv.GetErr = errors.New("disk gone")

	r := &fakeResolver{names: map[string]ident.ResolvedName{tableToken: tableName}}
	res := New(c, Static(r)).Lookup(ctx, []ident.TypedIdentifier{tableID})

	// Split degraded to all misses; the following merge then fails to read.
	assert.Equal(t, map[string]ident.ResolvedName{tableToken: tableName}, res.Matches)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "update cache")
	assert.Len(t, r.calls, 1)
}

func TestLookup_CacheWriteFailureSurfaced(t *testing.T) {
	ctx := context.Background()
	c, kv, _ := newTestCache(t)
	kv.SetErr = errors.New("read-only")

	r := &fakeResolver{names: map[string]ident.ResolvedName{catalogToken: catalogName}}
	res := New(c, Static(r)).Lookup(ctx, []ident.TypedIdentifier{catalogID})

	assert.Equal(t, map[string]ident.ResolvedName{catalogToken: catalogName}, res.Matches)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "read-only")
}

func TestLookup_ExpiredEntriesAreResolvedAgain(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCache(t)
	require.NoError(t, c.Merge(ctx, map[string]ident.ResolvedName{catalogToken: catalogName}))
	clk.Advance(cache.TTL)

	r := &fakeResolver{names: map[string]ident.ResolvedName{catalogToken: catalogName}}
	res := New(c, Static(r)).Lookup(ctx, []ident.TypedIdentifier{catalogID})
	require.NoError(t, res.Err)
	assert.Len(t, res.Matches, 1)
	assert.Len(t, r.calls, 1)
}

// End-to-end through the real resolver, executor and fake endpoint.

func newEndToEnd(t *testing.T, scripts ...testutil.Script) (*Service, *cache.Cache, *testutil.StatementServer) {
	t.Helper()
	t.Setenv(settings.EnvToken, "")
	srv := testutil.NewStatementServer(t, "dapi-test", scripts...)

	st := settings.NewStore(testutil.NewMemoryKV())
	require.NoError(t, st.Save(context.Background(), settings.Settings{
		Endpoint:    srv.URL,
		WarehouseID: "wh-1",
		Token:       "dapi-test",
	}))

	c, _, _ := newTestCache(t)
	connect := FromSettings(st, ConnectorConfig{
		Statement:       statement.Config{PollInterval: time.Millisecond},
		ResolverOptions: []resolver.Option{resolver.WithConcurrency(2)},
	})
	return New(c, connect), c, srv
}

func TestLookup_OnlyRootResolves(t *testing.T) {
	svc, _, srv := newEndToEnd(t,
		testutil.Script{
			Match: "tables/" + tableToken,
			Steps: []testutil.Step{{State: "PENDING"}, {State: "SUCCEEDED"}},
		},
		testutil.Script{
			Match: "/catalogs/" + catalogToken + "/",
			Steps: []testutil.Step{
				{State: "PENDING"},
				{State: "RUNNING"},
				{State: "SUCCEEDED", Rows: [][]any{{"main"}}},
			},
		},
	)

	res := svc.Lookup(context.Background(), []ident.TypedIdentifier{tableID, catalogID})
	assert.NoError(t, res.Err)
	assert.Equal(t, map[string]ident.ResolvedName{catalogToken: catalogName}, res.Matches)
	assert.Len(t, srv.Submissions(), 2)
}

func TestLookup_FailedStatementKeepsCachedIds(t *testing.T) {
	svc, c, _ := newEndToEnd(t,
		testutil.Script{
			Match: "tables/" + tableToken,
			Steps: []testutil.Step{{State: "RUNNING"}, {State: "FAILED", Error: "x"}},
		},
	)
	ctx := context.Background()
	require.NoError(t, c.Merge(ctx, map[string]ident.ResolvedName{catalogToken: catalogName}))

	res := svc.Lookup(ctx, []ident.TypedIdentifier{tableID, catalogID})

	require.Error(t, res.Err)
	assert.True(t, statement.IsStatementError(res.Err))
	assert.Contains(t, res.Err.Error(), "x")
	assert.Equal(t, map[string]ident.ResolvedName{catalogToken: catalogName}, res.Matches)
	assert.NotContains(t, res.Matches, tableToken)
}

func TestLookup_EndToEndSendsCredential(t *testing.T) {
	svc, _, srv := newEndToEnd(t, testutil.Script{
		Match: "/schemas/" + schemaToken + "/",
		Steps: []testutil.Step{{State: "SUCCEEDED", Rows: [][]any{{"main", "sales"}}}},
	})

	res := svc.Lookup(context.Background(), []ident.TypedIdentifier{schemaID})
	require.NoError(t, res.Err)
	assert.Equal(t, map[string]ident.ResolvedName{schemaToken: schemaName}, res.Matches)

	subs := srv.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, "Bearer dapi-test", subs[0].Authorization)
	assert.Equal(t, "wh-1", subs[0].WarehouseID)
	assert.NotContains(t, subs[0].Statement, schemaToken)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14])
}

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}
