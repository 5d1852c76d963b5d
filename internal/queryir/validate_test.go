package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSelect() Select {
	return Select{
		From:    "system.information_schema.tables",
		Columns: []string{"table_catalog", "table_schema"},
		Filter: And{Predicates: []Predicate{
			Like{Field: "storage_path", Pattern: "%/schemas/x/%"},
			Equals{Field: "table_type", Value: "MANAGED"},
		}},
		OrderBy: []string{"table_catalog"},
		Limit:   1,
	}
}

func TestValidate_ValidSelect(t *testing.T) {
	assert.NoError(t, Validate(validSelect()))

	s := validSelect()
	assert.NoError(t, Validate(&s), "pointer form")
}

func TestValidate_ValuesAreNotInspected(t *testing.T) {
	s := validSelect()
	s.Filter = Equals{Field: "table_name", Value: "'; DROP TABLE x; --"}
	assert.NoError(t, Validate(s))
}

func TestValidate_Problems(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Select)
		want   string
	}{
		{"empty from", func(s *Select) { s.From = "" }, `from ""`},
		{"injected from", func(s *Select) { s.From = "tables; DROP" }, "from"},
		{"no columns", func(s *Select) { s.Columns = nil }, "at least one column"},
		{"star column", func(s *Select) { s.Columns = []string{"*"} }, "column"},
		{"bad order key", func(s *Select) { s.OrderBy = []string{"x desc"} }, "order by"},
		{"negative limit", func(s *Select) { s.Limit = -1 }, "negative"},
		{"empty in", func(s *Select) { s.Filter = In{Field: "f"} }, "no values"},
		{"bad like field", func(s *Select) { s.Filter = &Like{Field: "lower(f)", Pattern: "%"} }, "field"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSelect()
			tc.mutate(&s)

			err := Validate(s)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Error(), tc.want)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	err := Validate(Select{From: "", Limit: -2})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 3)
}

func TestValidate_NilQuery(t *testing.T) {
	assert.Error(t, Validate(nil))

	var s *Select
	assert.Error(t, Validate(s))
}

func TestValidate_TypedNilPredicates(t *testing.T) {
	testCases := []struct {
		name   string
		filter Predicate
	}{
		{"equals", (*Equals)(nil)},
		{"in", (*In)(nil)},
		{"like", (*Like)(nil)},
		{"and", (*And)(nil)},
		{"nested", And{Predicates: []Predicate{(*Like)(nil)}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := validSelect()
			s.Filter = tc.filter

			var err error
			require.NotPanics(t, func() { err = Validate(s) })
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Error(), "nil")
		})
	}
}
