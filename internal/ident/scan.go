package ident

import (
	"regexp"
	"strings"
)

const tokenPattern = `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`

var (
	markerRe = regexp.MustCompile(`(?i)\b(catalogs|schemas|tables)/(` + tokenPattern + `)\b`)
	tokenRe  = regexp.MustCompile(`\b` + tokenPattern + `\b`)
)

// Scan extracts typed identifiers from free text by looking for the
// catalogs/, schemas/ and tables/ path markers.
//
// A token seen under several markers keeps the most specific kind. Results
// are in order of first occurrence.
func Scan(text string) []TypedIdentifier {
	var found []TypedIdentifier
	for _, m := range markerRe.FindAllStringSubmatch(text, -1) {
		kind, err := ParseKind(m[1])
		if err != nil {
			continue
		}
		id, err := New(m[2], kind)
		if err != nil {
			continue
		}
		found = append(found, id)
	}
	return Dedupe(found)
}

// Annotate writes " [name]" after every occurrence of a token present in
// names. Tokens are matched case-insensitively; unknown tokens are left alone.
func Annotate(text string, names map[string]ResolvedName) string {
	if len(names) == 0 {
		return text
	}
	return tokenRe.ReplaceAllStringFunc(text, func(tok string) string {
		resolved, ok := names[strings.ToLower(tok)]
		if !ok {
			return tok
		}
		return tok + " [" + resolved.Name + "]"
	})
}
