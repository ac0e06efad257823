// Package typeinfer merges native platform type tags into JSON-Schema
// compatible types and caches the per-term result for the generation run.
package typeinfer

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/api/igc"
)

// SchemaType is a JSON Schema type discriminator plus an optional format
// qualifier (e.g. {"string", "date-time"}).
type SchemaType struct {
	Type   string
	Format string
}

// Merge collapses a multi-valued set of native type tags into one. If every
// candidate is identical that value wins; anything mixed (or empty) falls
// back to "string". The fallback is intentionally lossy: "string" is the
// lowest common denominator every consumer can parse.
func Merge(candidates []string) string {
	if len(candidates) == 0 {
		return "string"
	}
	first := candidates[0]
	for _, c := range candidates[1:] {
		if c != first {
			return "string"
		}
	}
	return first
}

// nativeTable is the single source of truth for native-to-schema type
// mapping. Keys are compared lower-cased.
var nativeTable = map[string]SchemaType{
	"string":    {Type: "string"},
	"text":      {Type: "string"},
	"char":      {Type: "string"},
	"varchar":   {Type: "string"},
	"date":      {Type: "string", Format: "date"},
	"timestamp": {Type: "string", Format: "date-time"},
	"datetime":  {Type: "string", Format: "date-time"},
	"time":      {Type: "string", Format: "time"},
	"numeric":   {Type: "number"},
	"number":    {Type: "number"},
	"decimal":   {Type: "number"},
	"double":    {Type: "number"},
	"float":     {Type: "number"},
	"integer":   {Type: "integer"},
	"int":       {Type: "integer"},
	"bigint":    {Type: "integer"},
	"smallint":  {Type: "integer"},
	"boolean":   {Type: "boolean"},
	"bool":      {Type: "boolean"},
}

// MapNative resolves a native type tag through the fixed lookup table.
// Unrecognized tags pass through lower-cased as their own type name rather
// than erroring, keeping the mapping forward-compatible with platform tags
// the table has never seen.
func MapNative(tag string) SchemaType {
	key := strings.ToLower(strings.TrimSpace(tag))
	if mapped, ok := nativeTable[key]; ok {
		return mapped
	}
	return SchemaType{Type: key}
}

// Cache holds the precomputed term-to-type mapping for one run. It is built
// once from the full data-class listing and read by the schema compiler.
type Cache struct {
	byTerm map[string]SchemaType
}

// BuildCache gathers every native tag assigned to each term across all data
// classes, merges them, and resolves the result through the native table.
// Terms with no assignment simply stay absent; callers default to "string".
func BuildCache(classes []igc.DataClass, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}

	tags := make(map[string][]string)
	for _, class := range classes {
		for _, term := range class.AssignedTerms.Items {
			tags[term.ID] = append(tags[term.ID], class.DataTypes...)
		}
	}

	cache := &Cache{byTerm: make(map[string]SchemaType, len(tags))}
	for termID, candidates := range tags {
		// Sort before merging so the mixed-tag advisory below is stable
		// across runs; Merge itself is order-insensitive.
		sort.Strings(candidates)
		merged := Merge(candidates)
		if len(candidates) > 1 && merged == "string" && candidates[0] != candidates[len(candidates)-1] {
			log.Debug("Mixed native types collapsed to string",
				zap.String("term_id", termID),
				zap.Strings("candidates", candidates))
		}
		cache.byTerm[termID] = MapNative(merged)
	}
	return cache
}

// Lookup returns the cached schema type for a term identifier.
func (c *Cache) Lookup(termID string) (SchemaType, bool) {
	st, ok := c.byTerm[termID]
	return st, ok
}
