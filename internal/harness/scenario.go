package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/uuidlens/internal/ident"
	"github.com/roach88/uuidlens/internal/testutil"
)

// Scenario defines one end-to-end lookup test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Seed entries are merged into the cache before the first lookup.
	Seed []SeedEntry `yaml:"seed,omitempty"`

	// Scripts drive the fake statement endpoint. Submissions that match no
	// script succeed with no rows.
	Scripts []testutil.Script `yaml:"scripts,omitempty"`

	// Lookups run in order against the same cache and endpoint.
	Lookups []LookupStep `yaml:"lookups"`

	// Assertions are checked after the last lookup.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// SeedEntry is a name already in the cache when the scenario starts.
type SeedEntry struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
	Name string `yaml:"name"`

	// Age back-dates the entry relative to the scenario start.
	Age time.Duration `yaml:"age,omitempty"`
}

// LookupStep is one call to the coordinator.
type LookupStep struct {
	// Request lists identifiers in kind:token form.
	Request []string `yaml:"request"`

	// Advance moves the clock forward before the lookup.
	Advance time.Duration `yaml:"advance,omitempty"`

	// Expect is checked against this lookup only. Nil skips the check.
	Expect *LookupExpect `yaml:"expect,omitempty"`
}

// LookupExpect describes the expected outcome of one lookup.
type LookupExpect struct {
	// Matches is the exact token -> qualified name map.
	Matches map[string]string `yaml:"matches"`

	// Error is a substring of the lookup error. Empty expects no error.
	Error string `yaml:"error,omitempty"`

	// Statements is the number of statements this lookup submits, when set.
	Statements *int `yaml:"statements,omitempty"`
}

// Assertion validates the final cache record or the whole trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// ID is the token checked by cache_contains and cache_absent.
	ID string `yaml:"id,omitempty"`

	// Name is the expected qualified name for cache_contains.
	Name string `yaml:"name,omitempty"`

	// Count is used by cache_count and statement_count.
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertCacheContains       = "cache_contains"
	AssertCacheAbsent         = "cache_absent"
	AssertCacheCount          = "cache_count"
	AssertStatementCount      = "statement_count"
	AssertTokensParameterized = "tokens_parameterized"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario is LoadScenario over an in-memory document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Lookups) == 0 {
		return fmt.Errorf("lookups list is required and must be non-empty")
	}

	for i, seed := range s.Seed {
		kind, err := ident.ParseKind(seed.Type)
		if err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if _, err := ident.New(seed.ID, kind); err != nil {
			return fmt.Errorf("seed[%d]: %w", i, err)
		}
		if seed.Name == "" {
			return fmt.Errorf("seed[%d]: name is required", i)
		}
		if seed.Age < 0 {
			return fmt.Errorf("seed[%d]: age must be non-negative", i)
		}
	}

	for i, script := range s.Scripts {
		if len(script.Steps) == 0 {
			return fmt.Errorf("scripts[%d]: steps list is required", i)
		}
	}

	for i, step := range s.Lookups {
		if len(step.Request) == 0 {
			return fmt.Errorf("lookups[%d]: request is required", i)
		}
		if step.Advance < 0 {
			return fmt.Errorf("lookups[%d]: advance must be non-negative", i)
		}
		if step.Expect != nil && step.Expect.Statements != nil && *step.Expect.Statements < 0 {
			return fmt.Errorf("lookups[%d].expect: statements must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertCacheContains:
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("assertions[%d]: id and name are required for cache_contains", index)
		}
	case AssertCacheAbsent:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for cache_absent", index)
		}
	case AssertCacheCount, AssertStatementCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertTokensParameterized:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
