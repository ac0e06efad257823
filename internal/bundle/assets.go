// Package bundle compiles JSON Schema documents into the catalog's asset
// bundle representation: a tree of typed nodes with generated identifiers
// and containment edges, plus reference edges resolved in a second pass.
package bundle

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// shortDescriptionLimit is the catalog's fixed column width for short-form
// text. Anything longer is split into a truncated short form plus a
// long-form attribute carrying the full text. Not configurable.
const shortDescriptionLimit = 255

// ellipsis suffixes a truncated short-form description.
const ellipsis = "..."

// knownDocumentKeys is the schema-document vocabulary the builder copies
// onto asset nodes. Anything else (except x-* extensions) is advisory-logged
// and dropped.
var knownDocumentKeys = map[string]bool{
	"$schema":     true,
	"$id":         true,
	"id":          true,
	"title":       true,
	"description": true,
	"type":        true,
	"enum":        true,
	"properties":  true,
	"items":       true,
	"$ref":        true,
	"format":      true,
}

// splitDescription applies the short/long split rule: text within the limit
// stays a single short form; longer text becomes a truncated,
// ellipsis-suffixed short form plus the full long form. The limit counts
// characters, not bytes, and truncation lands on a rune boundary so
// multibyte text never degrades into invalid UTF-8.
func splitDescription(text string) (short, long string) {
	if utf8.RuneCountInString(text) <= shortDescriptionLimit {
		return text, ""
	}
	cut := shortDescriptionLimit - 1 - len(ellipsis)
	runes := []rune(text)
	return string(runes[:cut]) + ellipsis, text
}

// attrString renders an arbitrary decoded JSON value as an attribute string.
// Scalars render naturally; anything structured round-trips through the
// codec so no information is silently lost.
func attrString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		// Avoid "1e+06" style output for integral values.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// enumString flattens an enum array into a comma-separated attribute value.
func enumString(value any) string {
	list, ok := value.([]any)
	if !ok {
		return attrString(value)
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, attrString(item))
	}
	return strings.Join(parts, ",")
}

// sortedKeys returns a map's keys in deterministic order so generated asset
// identifiers are stable across runs over the same input.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeSchemaPath strips the protocol prefix and any fragment from a
// document identifier or $ref, leaving the bare tokenizable path.
func normalizeSchemaPath(id string) string {
	trimmed := id
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+len("://"):]
	}
	if idx := strings.IndexByte(trimmed, '#'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.Trim(trimmed, "/")
}
