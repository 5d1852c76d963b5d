package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan_ClassifiesByMarker(t *testing.T) {
	text := "s3://lake/meta/__unitystorage/catalogs/" + catalogToken +
		"/schemas/" + schemaToken + "/tables/" + tableToken + "/part-0001.parquet"

	got := Scan(text)
	require.Len(t, got, 3)
	assert.Equal(t, TypedIdentifier{ID: catalogToken, Kind: KindRoot}, got[0])
	assert.Equal(t, TypedIdentifier{ID: schemaToken, Kind: KindBranch}, got[1])
	assert.Equal(t, TypedIdentifier{ID: tableToken, Kind: KindLeaf}, got[2])
}

func TestScan_ConflictingKindsKeepMostSpecific(t *testing.T) {
	text := "catalogs/" + tableToken + "\nsee also TABLES/" + tableToken
	got := Scan(text)
	require.Len(t, got, 1)
	assert.Equal(t, KindLeaf, got[0].Kind)
}

func TestScan_IgnoresBareTokensAndUnknownMarkers(t *testing.T) {
	text := tableToken + " volumes/" + schemaToken
	assert.Empty(t, Scan(text))
}

func TestAnnotate(t *testing.T) {
	text := "tables/" + tableToken + " and TABLES/0F8FAD5B-D9CB-469F-A165-70867728950E, unknown " + schemaToken
	names := map[string]ResolvedName{
		tableToken: {Kind: KindLeaf, Name: "main.sales.orders"},
	}

	got := Annotate(text, names)
	assert.Equal(t,
		"tables/"+tableToken+" [main.sales.orders] and TABLES/0F8FAD5B-D9CB-469F-A165-70867728950E [main.sales.orders], unknown "+schemaToken,
		got)
}

func TestAnnotate_NoNames(t *testing.T) {
	assert.Equal(t, "unchanged", Annotate("unchanged", nil))
}
