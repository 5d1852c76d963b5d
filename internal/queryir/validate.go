package queryir

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe matches plain, optionally dot-qualified, identifiers.
var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// ValidationError lists every structural problem found in a query.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.Problems, "; ")
}

// Validate checks that a query is well formed.
//
// Rules:
//  1. From and every column/field reference are plain identifiers
//  2. At least one column is projected
//  3. In predicates carry at least one value
//  4. Limit is not negative
//
// Validate is a pure function with no side effects.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: v.problems}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		if query == nil {
			v.addProblem("nil query")
			return
		}
		v.validateSelect(*query)
	default:
		v.addProblem("unsupported query type %T", q)
	}
}

func (v *validator) validateSelect(s Select) {
	v.checkIdentifier("from", s.From)

	if len(s.Columns) == 0 {
		v.addProblem("select must project at least one column")
	}
	for _, col := range s.Columns {
		v.checkIdentifier("column", col)
	}
	for _, key := range s.OrderBy {
		v.checkIdentifier("order by", key)
	}
	if s.Limit < 0 {
		v.addProblem("limit %d is negative", s.Limit)
	}
	if s.Filter != nil {
		v.validatePredicate(s.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		v.checkIdentifier("field", pred.Field)
	case *Equals:
		if pred == nil {
			v.addProblem("nil %T predicate", p)
			return
		}
		v.checkIdentifier("field", pred.Field)
	case In:
		v.validateIn(pred)
	case *In:
		if pred == nil {
			v.addProblem("nil %T predicate", p)
			return
		}
		v.validateIn(*pred)
	case Like:
		v.checkIdentifier("field", pred.Field)
	case *Like:
		if pred == nil {
			v.addProblem("nil %T predicate", p)
			return
		}
		v.checkIdentifier("field", pred.Field)
	case And:
		v.validateAnd(pred)
	case *And:
		if pred == nil {
			v.addProblem("nil %T predicate", p)
			return
		}
		v.validateAnd(*pred)
	default:
		v.addProblem("unsupported predicate type %T", p)
	}
}

func (v *validator) validateAnd(and And) {
	for _, sub := range and.Predicates {
		v.validatePredicate(sub)
	}
}

func (v *validator) validateIn(in In) {
	v.checkIdentifier("field", in.Field)
	if len(in.Values) == 0 {
		v.addProblem("IN on %q has no values", in.Field)
	}
}

func (v *validator) checkIdentifier(role, name string) {
	if !identifierRe.MatchString(name) {
		v.addProblem("%s %q is not a plain identifier", role, name)
	}
}
