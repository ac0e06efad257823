package igc

import "encoding/json"

// -- Catalog Wire Types --

// Item is the minimal attribute bag the catalog returns for any referenced
// asset. Every relationship collection is a list of these; callers that need
// more than identity and display name must perform a point lookup by ID.
type Item struct {
	ID   string `json:"_id"`
	Type string `json:"_type,omitempty"`
	Name string `json:"_name"`
	URL  string `json:"_url,omitempty"`
}

// Paging carries the catalog's cursor information for a paged collection.
// Next is an opaque URL; an empty Next means the page is the last one.
type Paging struct {
	NumTotal int    `json:"numTotal"`
	PageSize int    `json:"pageSize"`
	Next     string `json:"next,omitempty"`
}

// ReferenceList is the catalog's standard shape for a relationship
// collection: `{items: [...], paging: {...}}`.
type ReferenceList struct {
	Items  []Item `json:"items"`
	Paging Paging `json:"paging,omitempty"`
}

// Term is a named node in the business-term hierarchy as returned by the
// catalog. Relationship collections are typed edges:
//
//   - HasA        containment ("the term is composed of")
//   - HasTypes    taxonomy children ("enumerated kinds of")
//   - IsATypeOf   taxonomy parents
//   - RelatedTerms association edges (a term that only names a relationship
//     among other terms carries these and nothing structural)
//
// CategoryPath holds the ancestor categories. The catalog reports them
// leaf-to-root; the client normalizes to root-to-leaf before the term is
// handed to anything downstream (see catalog.normalizeTerm).
type Term struct {
	ID               string        `json:"_id"`
	Type             string        `json:"_type,omitempty"`
	Name             string        `json:"_name"`
	ShortDescription string        `json:"short_description,omitempty"`
	LongDescription  string        `json:"long_description,omitempty"`
	CategoryPath     ReferenceList `json:"category_path,omitempty"`
	HasA             ReferenceList `json:"has_a_term,omitempty"`
	HasTypes         ReferenceList `json:"has_types,omitempty"`
	IsATypeOf        ReferenceList `json:"is_a_type_of,omitempty"`
	RelatedTerms     ReferenceList `json:"related_terms,omitempty"`
	AssignedAssets   ReferenceList `json:"assigned_assets,omitempty"`
	// Multiplicity is a free-form custom attribute. Values matching the
	// configured truthy set ("yes", "true", "y" by default) mark the term as
	// multi-valued wherever it appears as a contained property.
	Multiplicity string `json:"custom_Multiplicity,omitempty"`
}

// IsAssociation reports whether the term's structural role is purely to name
// a relationship among other terms.
func (t *Term) IsAssociation() bool {
	return len(t.RelatedTerms.Items) > 0
}

// DataClass maps zero or more native platform type tags to the terms it has
// been assigned to. Multiple classes assigned to one term are merged into a
// single effective type by the type-inference cache.
type DataClass struct {
	ID            string        `json:"_id"`
	Name          string        `json:"_name"`
	DataTypes     []string      `json:"data_type_filter_elements_enum,omitempty"`
	AssignedTerms ReferenceList `json:"assigned_terms,omitempty"`
}

// -- Search Wire Types --

// SearchRequest is the body of a paged catalog search. Properties selects the
// attributes to materialize on each hit; Where is an optional filter tree.
type SearchRequest struct {
	Types      []string         `json:"types"`
	Properties []string         `json:"properties,omitempty"`
	PageSize   int              `json:"pageSize,omitempty"`
	Where      *SearchCondition `json:"where,omitempty"`
}

// SearchCondition combines clauses with a boolean operator ("and" / "or").
type SearchCondition struct {
	Operator   string         `json:"operator"`
	Conditions []SearchClause `json:"conditions"`
}

// SearchClause is a single property comparison inside a search filter.
type SearchClause struct {
	Property string `json:"property"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// SearchPage is one page of search results. Items is left raw so the client
// can decode hits into the entity type it asked for.
type SearchPage struct {
	Items  json.RawMessage `json:"items"`
	Paging Paging          `json:"paging"`
}

// Patch is a partial-attribute update applied to a single catalog asset.
type Patch map[string]any

// -- Asset Bundle Types --

// AssetType identifies the bundle class of a generated asset node.
type AssetType string

const (
	AssetNamespace  AssetType = "JSchema_Namespace"  // First token of a tokenized $id.
	AssetPath       AssetType = "JSchema_Path"       // Intermediate $id tokens, chained by containment.
	AssetJSONSchema AssetType = "JSchema_JSONSchema" // The schema document itself.
	AssetObject     AssetType = "JSchema_Object"     // An object-typed property.
	AssetArray      AssetType = "JSchema_Array"      // An array-typed property.
	AssetPrimitive  AssetType = "JSchema_Primitive"  // Any scalar-typed property.
)

// AttributePrefix is prepended to every schema attribute copied verbatim onto
// an asset node, keeping bundle attributes out of the catalog's reserved
// namespace.
const AttributePrefix = "jschema_"

// Asset is one typed node in a bundle. IDs are generated by the builder and
// are stable for the duration of a run; ParentID is the single containment
// edge (empty only for namespace roots).
type Asset struct {
	ID         string            `json:"_id"`
	Type       AssetType         `json:"_type"`
	Name       string            `json:"_name"`
	ParentID   string            `json:"_parent_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ReferenceEdge is a named, non-containment relationship between two assets,
// produced by resolving a `$ref` after the whole tree has been built.
type ReferenceEdge struct {
	FromID string `json:"from"`
	ToID   string `json:"to"`
	Name   string `json:"name"`
}

// Bundle is the batch document posted to the catalog's bundle endpoint: the
// full set of typed nodes plus the reference edges between them. Containment
// is implicit in each asset's ParentID.
type Bundle struct {
	BundleID   string          `json:"bundleId"`
	Assets     []Asset         `json:"assets"`
	References []ReferenceEdge `json:"references,omitempty"`
}
