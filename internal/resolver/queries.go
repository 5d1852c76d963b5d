package resolver

import (
	"github.com/roach88/uuidlens/internal/ident"
	"github.com/roach88/uuidlens/internal/queryir"
)

// tablesView is the catalog view every lookup reads.
const tablesView = "system.information_schema.tables"

const (
	colCatalog = "table_catalog"
	colSchema  = "table_schema"
	colTable   = "table_name"
	colSubDir  = "storage_sub_directory"
	colPath    = "storage_path"
)

// leafColumns is also the row schema of LeafQuery results.
var leafColumns = []string{colCatalog, colSchema, colTable, colSubDir}

// LeafQuery selects the names of every table whose storage sub-directory is
// tables/<token> for one of tokens.
func LeafQuery(tokens []string) queryir.Select {
	values := make([]string, len(tokens))
	for i, token := range tokens {
		values[i] = leafSubDirectory(token)
	}
	return queryir.Select{
		From:    tablesView,
		Columns: leafColumns,
		Filter:  queryir.In{Field: colSubDir, Values: values},
		OrderBy: []string{colSubDir},
	}
}

// BranchQuery selects the catalog and schema of any one table stored under
// schemas/<token>.
func BranchQuery(token string) queryir.Select {
	return queryir.Select{
		From:    tablesView,
		Columns: []string{colCatalog, colSchema},
		Filter:  queryir.Like{Field: colPath, Pattern: pathPattern(ident.KindBranch, token)},
		OrderBy: []string{colCatalog, colSchema},
		Limit:   1,
	}
}

// RootQuery selects the catalog of any one table stored under
// catalogs/<token>.
func RootQuery(token string) queryir.Select {
	return queryir.Select{
		From:    tablesView,
		Columns: []string{colCatalog},
		Filter:  queryir.Like{Field: colPath, Pattern: pathPattern(ident.KindRoot, token)},
		OrderBy: []string{colCatalog},
		Limit:   1,
	}
}

func leafSubDirectory(token string) string {
	return ident.KindLeaf.Marker() + "/" + token
}

// pathPattern matches the token as a whole path segment under its marker.
func pathPattern(kind ident.Kind, token string) string {
	return "%/" + kind.Marker() + "/" + token + "/%"
}
