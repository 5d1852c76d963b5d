package settings

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// ImportError reports a settings file that does not match the schema.
type ImportError struct {
	Path     string
	Problems []string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, strings.Join(e.Problems, "; "))
}

// fileSettings mirrors #Settings; cue.Value.Decode reads json tags.
type fileSettings struct {
	Endpoint    string `json:"endpoint"`
	WarehouseID string `json:"warehouse_id"`
	Token       string `json:"token,omitempty"`
}

// ParseFile reads a YAML settings file and checks it against the embedded
// schema. Unknown fields are rejected.
func ParseFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		if ie, ok := err.(*ImportError); ok {
			ie.Path = path
		}
		return Settings{}, err
	}
	return s, nil
}

// Parse is ParseFile over an in-memory document.
func Parse(data []byte) (Settings, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Settings{}, &ImportError{Path: "<input>", Problems: []string{err.Error()}}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Settings{}, fmt.Errorf("compile settings schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Settings"))

	v := def.Unify(ctx.Encode(raw))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Settings{}, &ImportError{Path: "<input>", Problems: problems(err)}
	}

	if unknown := unknownFields(raw); len(unknown) > 0 {
		return Settings{}, &ImportError{Path: "<input>", Problems: unknown}
	}

	var fs fileSettings
	if err := v.Decode(&fs); err != nil {
		return Settings{}, &ImportError{Path: "<input>", Problems: problems(err)}
	}
	return Settings(fs), nil
}

// Import parses path and saves its fields.
func (s *Store) Import(ctx context.Context, path string) (Settings, error) {
	parsed, err := ParseFile(path)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Save(ctx, parsed); err != nil {
		return Settings{}, err
	}
	return parsed, nil
}

var knownFields = map[string]bool{"endpoint": true, "warehouse_id": true, "token": true}

func unknownFields(raw map[string]any) []string {
	var out []string
	for key := range raw {
		if !knownFields[key] {
			out = append(out, fmt.Sprintf("%s: field not allowed", key))
		}
	}
	sort.Strings(out)
	return out
}

// problems flattens a CUE error list into one message per error.
func problems(err error) []string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Error()
		if path := strings.Join(e.Path(), "."); path != "" && !strings.Contains(msg, path) {
			msg = path + ": " + msg
		}
		out = append(out, msg)
	}
	return out
}
