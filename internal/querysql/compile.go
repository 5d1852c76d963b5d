// Package querysql compiles queryir queries into statement text with named
// parameters for the remote SQL statement-execution endpoint.
package querysql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/uuidlens/internal/queryir"
)

// ParamTypeString is the only parameter type the lookup statements need.
const ParamTypeString = "STRING"

// Param is a named statement parameter, serialized in the shape the
// statement-execution API expects.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Statement is compiled statement text plus its parameters.
// Text references parameters as :name markers.
type Statement struct {
	Text   string
	Params []Param
}

// Compiler turns queryir queries into Statements.
//
// CRITICAL: values are never interpolated into Text - every value becomes a
// named parameter.
type Compiler struct{}

// NewCompiler creates a new Compiler.
func NewCompiler() *Compiler {
	return &Compiler{}
}

// Compile converts a query to a Statement.
// The query is validated first; structural problems are returned as a
// *queryir.ValidationError.
func (c *Compiler) Compile(q queryir.Query) (Statement, error) {
	if err := queryir.Validate(q); err != nil {
		return Statement{}, err
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	default:
		return Statement{}, fmt.Errorf("unsupported query type: %T", q)
	}
}

// compileSelect renders a Select. Clause order is fixed so that the same
// query always yields byte-identical text.
func (c *Compiler) compileSelect(q queryir.Select) (Statement, error) {
	b := &builder{}

	var sql strings.Builder
	sql.WriteString("SELECT ")
	sql.WriteString(strings.Join(q.Columns, ", "))
	sql.WriteString(" FROM ")
	sql.WriteString(q.From)

	if q.Filter != nil {
		where, err := b.predicate(q.Filter)
		if err != nil {
			return Statement{}, fmt.Errorf("compile filter: %w", err)
		}
		sql.WriteString(" WHERE ")
		sql.WriteString(where)
	}

	if len(q.OrderBy) > 0 {
		keys := make([]string, len(q.OrderBy))
		for i, key := range q.OrderBy {
			keys[i] = key + " ASC"
		}
		sql.WriteString(" ORDER BY ")
		sql.WriteString(strings.Join(keys, ", "))
	}

	if q.Limit > 0 {
		sql.WriteString(" LIMIT ")
		sql.WriteString(strconv.Itoa(q.Limit))
	}

	return Statement{Text: sql.String(), Params: b.params}, nil
}

// builder hands out sequential parameter names (p0, p1, ...) for one statement.
type builder struct {
	params []Param
}

func (b *builder) bind(value string) string {
	name := "p" + strconv.Itoa(len(b.params))
	b.params = append(b.params, Param{Name: name, Value: value, Type: ParamTypeString})
	return ":" + name
}

func (b *builder) predicate(p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.Equals:
		return pred.Field + " = " + b.bind(pred.Value), nil
	case *queryir.Equals:
		if pred == nil {
			return "", fmt.Errorf("nil predicate: %T", p)
		}
		return pred.Field + " = " + b.bind(pred.Value), nil
	case queryir.In:
		return b.in(pred), nil
	case *queryir.In:
		if pred == nil {
			return "", fmt.Errorf("nil predicate: %T", p)
		}
		return b.in(*pred), nil
	case queryir.Like:
		return pred.Field + " LIKE " + b.bind(pred.Pattern), nil
	case *queryir.Like:
		if pred == nil {
			return "", fmt.Errorf("nil predicate: %T", p)
		}
		return pred.Field + " LIKE " + b.bind(pred.Pattern), nil
	case queryir.And:
		return b.and(pred)
	case *queryir.And:
		if pred == nil {
			return "", fmt.Errorf("nil predicate: %T", p)
		}
		return b.and(*pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func (b *builder) in(in queryir.In) string {
	markers := make([]string, len(in.Values))
	for i, v := range in.Values {
		markers[i] = b.bind(v)
	}
	return in.Field + " IN (" + strings.Join(markers, ", ") + ")"
}

func (b *builder) and(and queryir.And) (string, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, 0, len(and.Predicates))
	for _, sub := range and.Predicates {
		sql, err := b.predicate(sub)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, " AND "), nil
}
