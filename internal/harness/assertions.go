package harness

import (
	"fmt"
	"regexp"
	"strings"
)

// tokenPattern finds any hyphenated hex token in statement text.
var tokenPattern = regexp.MustCompile(`(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		switch event.Type {
		case EventStatement:
			fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.StatementID, event.Params)
		case EventLookup:
			fmt.Fprintf(&buf, "  [%d] %s %v -> %d match(es)\n", event.Seq, event.RequestID, event.Request, len(event.Matches))
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCacheContains:
		return assertCacheContains(result, a)
	case AssertCacheAbsent:
		return assertCacheAbsent(result, a)
	case AssertCacheCount:
		return assertCacheCount(result, a)
	case AssertStatementCount:
		return assertStatementCount(result, a)
	case AssertTokensParameterized:
		return assertTokensParameterized(result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCacheContains(result *Result, a Assertion) error {
	id := strings.ToLower(a.ID)
	got, ok := result.cachedName(id)
	if ok && got == a.Name {
		return nil
	}
	actual := "no entry"
	if ok {
		actual = fmt.Sprintf("name %q", got)
	}
	return &AssertionError{
		Type:     AssertCacheContains,
		Expected: fmt.Sprintf("%s cached as %q", id, a.Name),
		Actual:   actual,
		Trace:    result.Trace,
	}
}

func assertCacheAbsent(result *Result, a Assertion) error {
	id := strings.ToLower(a.ID)
	got, ok := result.cachedName(id)
	if !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertCacheAbsent,
		Expected: fmt.Sprintf("%s not cached", id),
		Actual:   fmt.Sprintf("cached as %q", got),
		Trace:    result.Trace,
	}
}

func assertCacheCount(result *Result, a Assertion) error {
	got := len(result.cacheEntries())
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCacheCount,
		Expected: fmt.Sprintf("%d cache entries", a.Count),
		Actual:   fmt.Sprintf("%d cache entries", got),
		Trace:    result.Trace,
	}
}

func assertStatementCount(result *Result, a Assertion) error {
	got := len(result.Statements())
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertStatementCount,
		Expected: fmt.Sprintf("%d statements", a.Count),
		Actual:   fmt.Sprintf("%d statements", got),
		Trace:    result.Trace,
	}
}

// assertTokensParameterized checks that tokens only ever travel as
// parameter values.
func assertTokensParameterized(result *Result) error {
	for _, e := range result.Statements() {
		if tok := tokenPattern.FindString(e.Statement); tok != "" {
			return &AssertionError{
				Type:     AssertTokensParameterized,
				Expected: "no token in statement text",
				Actual:   fmt.Sprintf("%s contains %s", e.StatementID, tok),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}
