package queryir

// Query represents an abstract query in the IR.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = value
//   - In: field IN (values...)
//   - Like: field LIKE pattern
//   - And: all predicates must be true
type Predicate interface {
	predicateNode()
}

// Select is a single-table read.
//
// Semantics:
//
//	SELECT <columns> FROM <from> WHERE <filter> ORDER BY <order by> LIMIT <limit>
//
// Example:
//
//	Select{
//	  From:    "system.information_schema.tables",
//	  Columns: []string{"table_catalog", "table_schema"},
//	  Filter:  Like{Field: "storage_path", Pattern: "%/schemas/<uuid>/%"},
//	  OrderBy: []string{"table_catalog", "table_schema"},
//	  Limit:   1,
//	}
//
// Columns are emitted in slice order. Result rows are positional, so the
// order here is the row schema.
type Select struct {
	From    string    // Fully qualified table name
	Columns []string  // Projected columns, in row order
	Filter  Predicate // WHERE conditions (nil = no filter)
	OrderBy []string  // Ascending sort keys (empty = no ORDER BY)
	Limit   int       // 0 = no limit
}

func (Select) queryNode() {}

// Equals represents a field-equals-value predicate.
//
//	<field> = :p
type Equals struct {
	Field string
	Value string
}

func (Equals) predicateNode() {}

// In represents membership in a fixed value list.
//
//	<field> IN (:p0, :p1, ...)
//
// Values must be non-empty.
type In struct {
	Field  string
	Values []string
}

func (In) predicateNode() {}

// Like represents a SQL pattern match.
//
//	<field> LIKE :p
//
// Pattern is passed as a parameter, wildcards included.
type Like struct {
	Field   string
	Pattern string
}

func (Like) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// An empty And is vacuously true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}
