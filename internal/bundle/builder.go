package bundle

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/api/igc"
)

// pendingRef remembers a node that declared a $ref, to be resolved into a
// direct edge once every document has been built.
type pendingRef struct {
	fromID string
	target string
}

// Builder compiles schema documents into one growing asset graph. Identifiers
// are monotonic counter tokens generated once per distinct schema-tree path
// and retained for the whole run so the reference-resolution pass can find
// its targets.
type Builder struct {
	log      *zap.Logger
	bundleID string

	seq     int
	byPath  map[string]string // schema-tree path -> generated asset ID
	assets  []igc.Asset
	pending []pendingRef
}

// NewBuilder creates an empty builder for the given bundle identifier.
func NewBuilder(bundleID string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		log:      logger.Named("BundleBuilder"),
		bundleID: bundleID,
		byPath:   make(map[string]string),
	}
}

// idFor returns the asset identifier for a schema-tree path, generating a
// fresh token on first sight. IDs are never reused within a run.
func (b *Builder) idFor(path string) (id string, created bool) {
	if existing, ok := b.byPath[path]; ok {
		return existing, false
	}
	b.seq++
	id = fmt.Sprintf("ast_%d", b.seq)
	b.byPath[path] = id
	return id, true
}

// addAsset appends a node to the graph and returns its ID. Paths already
// materialized (shared namespace/path prefixes) are returned as-is; chain
// nodes carry nil attrs, so a non-nil duplicate means a second document
// resolved to the same identity and its attributes are being dropped.
func (b *Builder) addAsset(path string, typ igc.AssetType, name, parentID string, attrs map[string]string) string {
	id, created := b.idFor(path)
	if !created {
		if attrs != nil {
			b.log.Warn("Duplicate schema-tree identity, keeping the first asset",
				zap.String("path", path),
				zap.String("name", name))
		}
		return id
	}
	b.assets = append(b.assets, igc.Asset{
		ID:         id,
		Type:       typ,
		Name:       name,
		ParentID:   parentID,
		Attributes: attrs,
	})
	return id
}

// AddDocument compiles one raw schema document into the asset graph and
// returns the chain of identifiers from the namespace root down to the
// schema leaf, so the caller can record the chain as an addition without
// overwriting identically named siblings already present in the catalog.
func (b *Builder) AddDocument(raw []byte) ([]string, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse schema document: %w", err)
	}

	id, _ := doc["$id"].(string)
	if id == "" {
		id, _ = doc["id"].(string)
	}
	if id == "" {
		return nil, fmt.Errorf("schema document has no $id")
	}

	// Tokenize the identifier into namespace / path... / schema. A bare
	// single-token identifier becomes a namespace with the schema directly
	// under it.
	path := normalizeSchemaPath(id)
	tokens := strings.Split(path, "/")
	if len(tokens) == 0 || tokens[0] == "" {
		return nil, fmt.Errorf("schema document $id %q tokenizes to nothing", id)
	}

	chain := make([]string, 0, len(tokens)+1)
	parentID := ""
	prefix := ""
	for i, token := range tokens[:len(tokens)-1] {
		if prefix == "" {
			prefix = token
		} else {
			prefix = prefix + "/" + token
		}
		typ := igc.AssetPath
		if i == 0 {
			typ = igc.AssetNamespace
		}
		parentID = b.addAsset(prefix, typ, token, parentID, nil)
		chain = append(chain, parentID)
	}

	leaf := tokens[len(tokens)-1]
	if len(tokens) == 1 {
		// Single token: the namespace and the schema share the name but not
		// the path key.
		parentID = b.addAsset("ns:"+leaf, igc.AssetNamespace, leaf, "", nil)
		chain = append(chain, parentID)
	}

	schemaID := b.addAsset(path, igc.AssetJSONSchema, leaf, parentID, b.documentAttributes(path, doc))
	chain = append(chain, schemaID)

	if ref, ok := doc["$ref"].(string); ok && ref != "" {
		b.pending = append(b.pending, pendingRef{fromID: schemaID, target: ref})
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		b.walkProperties(schemaID, path, props)
	}
	return chain, nil
}

// documentAttributes copies the recognized document-level vocabulary onto
// the schema node, applying the short/long description split and the
// attribute prefix. Unrecognized keys are advisory, never fatal: this
// compiler stays permissive toward vocabulary it has not seen.
func (b *Builder) documentAttributes(path string, doc map[string]any) map[string]string {
	attrs := make(map[string]string)
	for _, key := range sortedKeys(doc) {
		value := doc[key]
		switch {
		case key == "description":
			short, long := splitDescription(attrString(value))
			attrs["short_description"] = short
			if long != "" {
				attrs["long_description"] = long
			}
		case key == "properties" || key == "items":
			// Structural, handled by recursion.
		case key == "enum":
			attrs[igc.AttributePrefix+"enum"] = enumString(value)
		case strings.HasPrefix(key, "x-"):
			attrs[igc.AttributePrefix+key] = attrString(value)
		case knownDocumentKeys[key]:
			attrs[igc.AttributePrefix+strings.TrimPrefix(key, "$")] = attrString(value)
		default:
			b.log.Warn("Unrecognized schema key",
				zap.String("path", path),
				zap.String("key", key))
		}
	}
	return attrs
}

// walkProperties descends one object's properties map, emitting a child
// asset per property.
func (b *Builder) walkProperties(parentID, parentPath string, props map[string]any) {
	for _, name := range sortedKeys(props) {
		node, ok := props[name].(map[string]any)
		if !ok {
			b.log.Warn("Property is not an object, skipping",
				zap.String("path", parentPath),
				zap.String("property", name))
			continue
		}
		b.addPropertyNode(parentID, parentPath+"/properties/"+name, name, node)
	}
}

// addPropertyNode classifies a property by its declared type (or by the
// presence of a $ref when the type is absent) and recurses into nested
// structures.
func (b *Builder) addPropertyNode(parentID, path, name string, node map[string]any) {
	typ, _ := node["type"].(string)
	ref, _ := node["$ref"].(string)

	switch {
	case typ == "object" || (typ == "" && ref != ""):
		id := b.addAsset(path, igc.AssetObject, name, parentID, b.documentAttributes(path, node))
		if ref != "" {
			b.pending = append(b.pending, pendingRef{fromID: id, target: ref})
		}
		if nested, ok := node["properties"].(map[string]any); ok {
			b.walkProperties(id, path, nested)
		}
	case typ == "array":
		id := b.addAsset(path, igc.AssetArray, name, parentID, b.documentAttributes(path, node))
		if items, ok := node["items"].(map[string]any); ok {
			b.addItemsNode(id, path+"/items", items)
		}
	default:
		// string/integer/number/boolean/null (and anything it has never
		// seen) all collapse to primitive.
		id := b.addAsset(path, igc.AssetPrimitive, name, parentID, b.documentAttributes(path, node))
		if ref != "" {
			b.pending = append(b.pending, pendingRef{fromID: id, target: ref})
		}
	}
}

// addItemsNode handles an array's item schema with the same object/primitive
// decision, continuing the properties recursion when the items are objects.
func (b *Builder) addItemsNode(parentID, path string, items map[string]any) {
	typ, _ := items["type"].(string)
	ref, _ := items["$ref"].(string)

	if typ == "object" || (typ == "" && ref != "") {
		id := b.addAsset(path, igc.AssetObject, "items", parentID, b.documentAttributes(path, items))
		if ref != "" {
			b.pending = append(b.pending, pendingRef{fromID: id, target: ref})
		}
		if nested, ok := items["properties"].(map[string]any); ok {
			b.walkProperties(id, path, nested)
		}
		return
	}
	b.addAsset(path, igc.AssetPrimitive, "items", parentID, b.documentAttributes(path, items))
}

// SetAttribute sets one attribute on an already-built asset, reporting
// whether the asset exists. Used to fold sidecar provenance onto schema
// nodes after the document itself has been compiled.
func (b *Builder) SetAttribute(assetID, key, value string) bool {
	for i := range b.assets {
		if b.assets[i].ID != assetID {
			continue
		}
		if b.assets[i].Attributes == nil {
			b.assets[i].Attributes = make(map[string]string)
		}
		b.assets[i].Attributes[key] = value
		return true
	}
	return false
}

// Assets returns the nodes built so far in emission order.
func (b *Builder) Assets() []igc.Asset {
	return b.assets
}
