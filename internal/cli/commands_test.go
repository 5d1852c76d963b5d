package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uuidlens/internal/lookup"
	"github.com/roach88/uuidlens/internal/settings"
	"github.com/roach88/uuidlens/internal/testutil"
)

const (
	tableToken   = "0f8fad5b-d9cb-469f-a165-70867728950e"
	schemaToken  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	catalogToken = "16fd2706-8baf-433b-82eb-8c7fada847da"
)

func tableScript() testutil.Script {
	return testutil.Script{
		Match: "tables/" + tableToken,
		Steps: []testutil.Step{
			{State: "PENDING"},
			{State: "SUCCEEDED", Rows: [][]any{{"main", "sales", "orders", "tables/" + tableToken}}},
		},
	}
}

func catalogScript() testutil.Script {
	return testutil.Script{
		Match: "/catalogs/" + catalogToken + "/",
		Steps: []testutil.Step{{State: "SUCCEEDED", Rows: [][]any{{"main"}}}},
	}
}

func TestLookup_ResolvesAndCaches(t *testing.T) {
	h := newCLI(t)
	srv := testutil.NewStatementServer(t, "dapi-test", tableScript(), catalogScript())
	h.configure(srv)

	args := []string{"lookup", "table:" + strings.ToUpper(tableToken), "catalog:" + catalogToken}
	stdout, stderr, err := h.run(nil, args...)
	require.NoError(t, err, stderr)
	assert.Equal(t, "table:"+tableToken+"\tmain.sales.orders\ncatalog:"+catalogToken+"\tmain\n", stdout)
	assert.Len(t, srv.Submissions(), 2)

	// Second invocation is served from the SQLite cache.
	again, _, err := h.run(nil, args...)
	require.NoError(t, err)
	assert.Equal(t, stdout, again)
	assert.Len(t, srv.Submissions(), 2)
}

func TestLookup_JSON(t *testing.T) {
	h := newCLI(t)
	h.opts.IDGenerator = lookup.NewFixedGenerator("req-1")
	srv := testutil.NewStatementServer(t, "dapi-test", catalogScript())
	h.configure(srv)

	stdout, _, err := h.run(nil, "--format", "json", "lookup", "root:"+catalogToken)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   LookupOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "req-1", resp.Data.RequestID)
	require.Len(t, resp.Data.Matches, 1)
	assert.Equal(t, "main", resp.Data.Matches[0].Name)
	assert.Equal(t, "catalog", resp.Data.Matches[0].Kind.String())
}

func TestLookup_PartialFailureExitsOne(t *testing.T) {
	h := newCLI(t)
	srv := testutil.NewStatementServer(t, "dapi-test",
		testutil.Script{
			Match: "tables/" + tableToken,
			Steps: []testutil.Step{{State: "RUNNING"}, {State: "FAILED", Error: "x"}},
		},
		catalogScript(),
	)
	h.configure(srv)

	stdout, stderr, err := h.run(nil, "lookup", "table:"+tableToken, "catalog:"+catalogToken)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "catalog:"+catalogToken+"\tmain\ntable:"+tableToken+"\t-\n", stdout)
	assert.Contains(t, stderr, "Error [E101]")
	assert.Contains(t, stderr, "x")
}

func TestLookup_NotConfigured(t *testing.T) {
	h := newCLI(t)

	_, stderr, err := h.run(nil, "lookup", "schema:"+schemaToken)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E102]")
	assert.Contains(t, stderr, "token")
}

func TestLookup_BadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no kind", []string{"lookup", tableToken}, "expected kind:token"},
		{"bad token", []string{"lookup", "table:1234"}, "table:1234"},
		{"unknown kind", []string{"lookup", "volume:" + tableToken}, "volume"},
		{"nothing", []string{"lookup"}, "no identifiers given"},
		{"missing scan file", []string{"lookup", "--scan", "/nonexistent/paths.txt"}, "paths.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newCLI(t)
			_, stderr, err := h.run(nil, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, stderr, "Error [E002]")
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestLookup_ScanStdin(t *testing.T) {
	h := newCLI(t)
	srv := testutil.NewStatementServer(t, "dapi-test", tableScript())
	h.configure(srv)

	listing := "s3://bucket/__unitystorage/catalogs/" + catalogToken + "/tables/" + tableToken + "/part-0.parquet\n"
	srv.AddScript(catalogScript())

	stdout, _, err := h.run(strings.NewReader(listing), "lookup", "--scan", "-")
	require.NoError(t, err)
	assert.Equal(t, "catalog:"+catalogToken+"\tmain\ntable:"+tableToken+"\tmain.sales.orders\n", stdout)
}

func TestAnnotate_File(t *testing.T) {
	h := newCLI(t)
	srv := testutil.NewStatementServer(t, "dapi-test", tableScript())
	h.configure(srv)

	path := filepath.Join(t.TempDir(), "listing.txt")
	text := "2024-01-15 1024 __unitystorage/tables/" + tableToken + "/part-0.parquet\n"
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	stdout, _, err := h.run(nil, "annotate", path)
	require.NoError(t, err)
	assert.Equal(t,
		"2024-01-15 1024 __unitystorage/tables/"+tableToken+" [main.sales.orders]/part-0.parquet\n",
		stdout)
}

func TestAnnotate_NoIdentifiers(t *testing.T) {
	h := newCLI(t)

	stdout, _, err := h.run(strings.NewReader("nothing to see\n"), "--format", "json", "annotate")
	require.NoError(t, err)

	var resp struct {
		Data AnnotateOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, AnnotateOutput{Text: "nothing to see\n"}, resp.Data)

	_, err = os.Stat(h.opts.Database)
	assert.True(t, os.IsNotExist(err), "annotate without identifiers must not open the store")
}

func TestCache_ShowAndClear(t *testing.T) {
	h := newCLI(t)
	srv := testutil.NewStatementServer(t, "dapi-test", catalogScript())
	h.configure(srv)

	stdout, _, err := h.run(nil, "cache", "show")
	require.NoError(t, err)
	assert.Equal(t, "entries: 0\nexpired: 0\nupdated: never\n", stdout)

	_, _, err = h.run(nil, "lookup", "catalog:"+catalogToken)
	require.NoError(t, err)

	stdout, _, err = h.run(nil, "cache", "show")
	require.NoError(t, err)
	assert.Equal(t, "entries: 1\nexpired: 0\nupdated: 2024-01-15T09:30:00Z\n", stdout)

	stdout, _, err = h.run(nil, "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "cache cleared\n", stdout)

	stdout, _, err = h.run(nil, "cache", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "entries: 0")
}

func TestConfig_ShowMasksToken(t *testing.T) {
	h := newCLI(t)

	stdout, _, err := h.run(nil, "config", "show")
	require.NoError(t, err)
	assert.Equal(t, "endpoint:  (not set)\nwarehouse: (not set)\ntoken:     (not set)\n", stdout)

	_, _, err = h.run(nil, "config", "set", "--endpoint", "adb-1.azuredatabricks.net", "--warehouse", "wh-1", "--token", "dapi-secret")
	require.NoError(t, err)

	stdout, _, err = h.run(nil, "config", "show")
	require.NoError(t, err)
	assert.Equal(t, "endpoint:  adb-1.azuredatabricks.net\nwarehouse: wh-1\ntoken:     *******cret (stored)\n", stdout)
	assert.NotContains(t, stdout, "dapi-secret")

	t.Setenv(settings.EnvToken, "dapi-from-env")
	stdout, _, err = h.run(nil, "--format", "json", "config", "show")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "dapi-from-env")
	assert.Contains(t, stdout, `"token_source":"env UUIDLENS_TOKEN"`)
}

func TestConfig_SetIsPartial(t *testing.T) {
	h := newCLI(t)

	_, _, err := h.run(nil, "config", "set", "--endpoint", "a.example", "--warehouse", "wh-1")
	require.NoError(t, err)
	stdout, _, err := h.run(nil, "config", "set", "--warehouse", "wh-2")
	require.NoError(t, err)
	assert.Contains(t, stdout, "endpoint:  a.example")
	assert.Contains(t, stdout, "warehouse: wh-2")
}

func TestConfig_SetRejectsBadInput(t *testing.T) {
	h := newCLI(t)

	_, stderr, err := h.run(nil, "config", "set")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "nothing to set")

	_, stderr, err = h.run(nil, "config", "set", "--endpoint", "ftp://a.example")
	require.Error(t, err)
	assert.Contains(t, stderr, "http or https")
}

func TestConfig_ImportAndClear(t *testing.T) {
	h := newCLI(t)
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("endpoint: https://dbc-1.cloud.databricks.com\nwarehouse_id: abc123\n"), 0o600))
	stdout, _, err := h.run(nil, "config", "import", good)
	require.NoError(t, err)
	assert.Contains(t, stdout, "warehouse: abc123")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("endpoint: https://dbc-2.cloud.databricks.com\nregion: eu\n"), 0o600))
	_, stderr, err := h.run(nil, "config", "import", bad)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E201]")
	assert.Contains(t, stderr, "bad.yaml")

	// The rejected file changed nothing.
	stdout, _, err = h.run(nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dbc-1.cloud.databricks.com")

	_, _, err = h.run(nil, "config", "clear")
	require.NoError(t, err)
	stdout, _, err = h.run(nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "endpoint:  (not set)")
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	h := newCLI(t)
	h.opts.RedisURL = "redis://" + mr.Addr()
	srv := testutil.NewStatementServer(t, "dapi-test", catalogScript())
	h.configure(srv)

	_, _, err := h.run(nil, "lookup", "catalog:"+catalogToken)
	require.NoError(t, err)

	assert.True(t, mr.Exists("uuidlens:resolutionCache"))
	assert.True(t, mr.Exists("uuidlens:warehouseId"))
	_, err = os.Stat(h.opts.Database)
	assert.True(t, os.IsNotExist(err), "redis replaces sqlite")
}

func TestStoreUnavailable(t *testing.T) {
	h := newCLI(t)
	h.opts.Database = filepath.Join(t.TempDir(), "missing-dir", "uuidlens.db")

	_, stderr, err := h.run(nil, "cache", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, stderr, "Error [E004]")
}
