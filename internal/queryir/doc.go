// Package queryir is a small relational IR for the lookup statements that
// uuidlens sends to the remote SQL endpoint.
//
// The IR is the boundary between the resolver, which knows which columns it
// needs for each identifier kind, and the querysql backend, which renders
// statement text and named parameters.
//
//	[resolver] → [queryir.Select] → [querysql] → statement text + parameters
//
// SUPPORTED FRAGMENT:
//   - Select(from, columns, filter, order by, limit)
//   - Predicates: Equals, In, Like, And
//   - Explicit column lists (no SELECT *), since rows are consumed by position
//
// EXCLUDED:
//   - Joins, subqueries, aggregations
//   - OR predicates
//   - Literal values in statement text; every value becomes a parameter
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed with marker methods. Only types in this
// package implement them, so backends can switch exhaustively.
//
// VALIDATION:
//
// Validate checks that table and column references are plain identifiers
// and that predicates are well formed. Values are never inspected here:
// they travel as parameters and cannot change the statement's structure.
package queryir
