package resolver

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/uuidlens/internal/ident"
)

// SchemaError reports a result row that does not have the shape its query
// projects.
type SchemaError struct {
	Kind   ident.Kind
	Row    int
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unexpected %s result row %d: %s", e.Kind, e.Row, e.Reason)
}

// rowStrings checks that row has exactly arity string cells.
func rowStrings(kind ident.Kind, index int, row []any, arity int) ([]string, error) {
	if len(row) != arity {
		return nil, &SchemaError{
			Kind:   kind,
			Row:    index,
			Reason: fmt.Sprintf("want %d columns, got %d", arity, len(row)),
		}
	}
	cells := make([]string, arity)
	for i, v := range row {
		s, ok := v.(string)
		if !ok {
			return nil, &SchemaError{
				Kind:   kind,
				Row:    index,
				Reason: fmt.Sprintf("column %d is %T, want string", i, v),
			}
		}
		cells[i] = s
	}
	return cells, nil
}

// qualifiedName builds the NFC-normalized name of kind from row cells.
func qualifiedName(kind ident.Kind, index int, segments ...string) (ident.ResolvedName, error) {
	for i, seg := range segments {
		segments[i] = norm.NFC.String(seg)
	}
	name, err := ident.NewResolvedName(kind, segments...)
	if err != nil {
		return ident.ResolvedName{}, &SchemaError{Kind: kind, Row: index, Reason: err.Error()}
	}
	return name, nil
}

// trailingToken returns the last path segment of a storage sub-directory,
// lower-cased: "tables/<UUID>" yields "<uuid>".
func trailingToken(subDir string) string {
	subDir = strings.TrimRight(subDir, "/")
	if i := strings.LastIndexByte(subDir, '/'); i >= 0 {
		subDir = subDir[i+1:]
	}
	return strings.ToLower(subDir)
}
