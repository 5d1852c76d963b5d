package ident

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tableToken   = "0f8fad5b-d9cb-469f-a165-70867728950e"
	schemaToken  = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	catalogToken = "16fd2706-8baf-433b-82eb-8c7fada847da"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "catalog", KindRoot.String())
	assert.Equal(t, "schema", KindBranch.String())
	assert.Equal(t, "table", KindLeaf.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}

func TestKindSegments(t *testing.T) {
	assert.Equal(t, 1, KindRoot.Segments())
	assert.Equal(t, 2, KindBranch.Segments())
	assert.Equal(t, 3, KindLeaf.Segments())
	assert.Equal(t, 0, KindUnknown.Segments())
}

func TestKindMarker(t *testing.T) {
	assert.Equal(t, "catalogs", KindRoot.Marker())
	assert.Equal(t, "schemas", KindBranch.Marker())
	assert.Equal(t, "tables", KindLeaf.Marker())
	assert.Equal(t, "", KindUnknown.Marker())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"root", KindRoot},
		{"catalog", KindRoot},
		{"BRANCH", KindBranch},
		{"schema", KindBranch},
		{"leaf", KindLeaf},
		{" Table ", KindLeaf},
		{"tables", KindLeaf},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("volume")
	assert.Error(t, err)
}

func TestMoreSpecific(t *testing.T) {
	assert.Equal(t, KindLeaf, MoreSpecific(KindRoot, KindLeaf))
	assert.Equal(t, KindLeaf, MoreSpecific(KindLeaf, KindBranch))
	assert.Equal(t, KindBranch, MoreSpecific(KindBranch, KindRoot))
	assert.Equal(t, KindRoot, MoreSpecific(KindRoot, KindRoot))
}

func TestNew_LowerCasesToken(t *testing.T) {
	id, err := New("0F8FAD5B-D9CB-469F-A165-70867728950E", KindLeaf)
	require.NoError(t, err)
	assert.Equal(t, tableToken, id.ID)
	assert.Equal(t, KindLeaf, id.Kind)
}

func TestNew_RejectsUnknownKind(t *testing.T) {
	_, err := New(tableToken, KindUnknown)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestParse(t *testing.T) {
	id, err := Parse("schema:" + schemaToken)
	require.NoError(t, err)
	assert.Equal(t, TypedIdentifier{ID: schemaToken, Kind: KindBranch}, id)
	assert.Equal(t, "schema:"+schemaToken, id.String())

	_, err = Parse(schemaToken)
	assert.Error(t, err, "missing kind prefix")

	_, err = Parse("volume:" + schemaToken)
	assert.Error(t, err)

	_, err = Parse("table:not-a-token")
	assert.Error(t, err)
}

func TestNewResolvedName(t *testing.T) {
	name, err := NewResolvedName(KindLeaf, "main", "sales", "orders")
	require.NoError(t, err)
	assert.Equal(t, ResolvedName{Kind: KindLeaf, Name: "main.sales.orders"}, name)

	_, err = NewResolvedName(KindBranch, "main")
	assert.Error(t, err)

	_, err = NewResolvedName(KindRoot, "")
	assert.Error(t, err)
}

func TestResolvedName_JSON(t *testing.T) {
	data, err := json.Marshal(ResolvedName{Kind: KindBranch, Name: "main.sales"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"schema","name":"main.sales"}`, string(data))

	var back ResolvedName
	require.NoError(t, json.Unmarshal([]byte(`{"type":"catalog","name":"main"}`), &back))
	assert.Equal(t, ResolvedName{Kind: KindRoot, Name: "main"}, back)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"volume","name":"x"}`), &back))
}

func TestDedupe_MoreSpecificWins(t *testing.T) {
	in := []TypedIdentifier{
		{ID: tableToken, Kind: KindRoot},
		{ID: schemaToken, Kind: KindBranch},
		{ID: tableToken, Kind: KindLeaf},
		{ID: tableToken, Kind: KindBranch},
	}
	out := Dedupe(in)
	require.Len(t, out, 2)
	assert.Equal(t, TypedIdentifier{ID: tableToken, Kind: KindLeaf}, out[0])
	assert.Equal(t, TypedIdentifier{ID: schemaToken, Kind: KindBranch}, out[1])
}
