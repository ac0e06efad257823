// Package names normalizes catalog display names into identifier-safe tokens
// and builds the hierarchical path strings used in schema identifiers.
package names

import (
	"strings"
	"unicode"
)

// Format normalizes an arbitrary display name into an identifier-safe camel
// token. Path separators, parentheses and any other non-alphanumeric runes
// are treated as word breaks; each word keeps its internal casing and gets an
// upper-cased first rune. The function is pure, total and idempotent:
// Format(Format(x)) == Format(x).
func Format(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	startOfWord := true
	for _, r := range raw {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			startOfWord = true
			continue
		}
		if startOfWord {
			b.WriteRune(unicode.ToUpper(r))
			startOfWord = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Property returns the lower-camel form of Format, used for property names
// inside object schemas ("Line Item" -> "lineItem").
func Property(raw string) string {
	formatted := Format(raw)
	if formatted == "" {
		return formatted
	}
	runes := []rune(formatted)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// Path joins a root-to-leaf sequence of names with '/' separators, formatting
// each element. Empty elements are dropped so a partial ancestor chain never
// produces doubled separators.
func Path(ordered []string) string {
	parts := make([]string, 0, len(ordered))
	for _, name := range ordered {
		if formatted := Format(name); formatted != "" {
			parts = append(parts, formatted)
		}
	}
	return strings.Join(parts, "/")
}
