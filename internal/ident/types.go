package ident

import (
	"fmt"
	"strings"
)

// Kind classifies an identifier's position in the containment hierarchy.
//
// ROOT ⊃ BRANCH ⊃ LEAF. Higher values are more specific, which is the order
// used to settle conflicting classifications (see MoreSpecific).
type Kind int

const (
	// KindUnknown is the zero value and never valid on a TypedIdentifier.
	KindUnknown Kind = iota

	// KindRoot is a catalog.
	KindRoot

	// KindBranch is a schema.
	KindBranch

	// KindLeaf is a table.
	KindLeaf
)

// String returns the wire name of the kind ("catalog", "schema", "table").
func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "catalog"
	case KindBranch:
		return "schema"
	case KindLeaf:
		return "table"
	default:
		return "unknown"
	}
}

// Segments returns the number of dot-separated segments a qualified name of
// this kind carries.
func (k Kind) Segments() int {
	switch k {
	case KindRoot:
		return 1
	case KindBranch:
		return 2
	case KindLeaf:
		return 3
	default:
		return 0
	}
}

// Marker returns the storage path segment that precedes tokens of this kind
// ("catalogs", "schemas", "tables").
func (k Kind) Marker() string {
	if !k.Valid() {
		return ""
	}
	return k.String() + "s"
}

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	return k == KindRoot || k == KindBranch || k == KindLeaf
}

// ParseKind accepts both the hierarchy names (root, branch, leaf) and the
// storage names (catalog, schema, table), case-insensitively.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "root", "catalog", "catalogs":
		return KindRoot, nil
	case "branch", "schema", "schemas":
		return KindBranch, nil
	case "leaf", "table", "tables":
		return KindLeaf, nil
	default:
		return KindUnknown, fmt.Errorf("unknown identifier kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal invalid kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MoreSpecific returns whichever of a and b sits deeper in the hierarchy.
// LEAF > BRANCH > ROOT.
func MoreSpecific(a, b Kind) Kind {
	if b > a {
		return b
	}
	return a
}

// TypedIdentifier is a validated token together with its declared kind.
// Values are immutable once built by New or Parse.
type TypedIdentifier struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
}

// New validates token and returns a TypedIdentifier with the canonical
// lower-case form of the token.
func New(token string, kind Kind) (TypedIdentifier, error) {
	if !kind.Valid() {
		return TypedIdentifier{}, &ValidationError{Token: token, Reason: "unknown kind"}
	}
	canonical, err := CanonicalToken(token)
	if err != nil {
		return TypedIdentifier{}, err
	}
	return TypedIdentifier{ID: canonical, Kind: kind}, nil
}

// Parse reads the "kind:token" form used on the command line,
// e.g. "table:0f8fad5b-d9cb-469f-a165-70867728950e".
func Parse(s string) (TypedIdentifier, error) {
	kindPart, token, ok := strings.Cut(s, ":")
	if !ok {
		return TypedIdentifier{}, &ValidationError{Token: s, Reason: "expected kind:token"}
	}
	kind, err := ParseKind(kindPart)
	if err != nil {
		return TypedIdentifier{}, &ValidationError{Token: token, Reason: err.Error()}
	}
	return New(token, kind)
}

// String renders the identifier in the same "kind:token" form Parse reads.
func (t TypedIdentifier) String() string {
	return t.Kind.String() + ":" + t.ID
}

// ResolvedName is the human-readable qualified name of an identifier.
// Name is dot-joined with Kind.Segments() segments.
type ResolvedName struct {
	Kind Kind   `json:"type"`
	Name string `json:"name"`
}

// NewResolvedName joins segments into a qualified name for kind.
// It fails when the segment count does not match the kind or a segment is empty.
func NewResolvedName(kind Kind, segments ...string) (ResolvedName, error) {
	if len(segments) != kind.Segments() {
		return ResolvedName{}, fmt.Errorf("%s name needs %d segments, got %d", kind, kind.Segments(), len(segments))
	}
	for i, seg := range segments {
		if seg == "" {
			return ResolvedName{}, fmt.Errorf("%s name segment %d is empty", kind, i)
		}
	}
	return ResolvedName{Kind: kind, Name: strings.Join(segments, ".")}, nil
}

// Dedupe collapses repeated tokens, keeping the most specific kind seen for
// each one. First-occurrence order is preserved.
func Dedupe(ids []TypedIdentifier) []TypedIdentifier {
	index := make(map[string]int, len(ids))
	out := make([]TypedIdentifier, 0, len(ids))
	for _, id := range ids {
		if i, seen := index[id.ID]; seen {
			out[i].Kind = MoreSpecific(out[i].Kind, id.Kind)
			continue
		}
		index[id.ID] = len(out)
		out = append(out, id)
	}
	return out
}
