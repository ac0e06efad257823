// Package jsonschema models the subset of the JSON Schema vocabulary this
// tool emits and consumes, plus the document store the two-phase generation
// pipeline writes through.
package jsonschema

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DraftURI is stamped into every emitted document's $schema.
const DraftURI = "http://json-schema.org/draft-06/schema#"

// ExtensionPrefix marks vendor extension keys carried through untouched.
const ExtensionPrefix = "x-"

// Property is one entry of an object schema's properties map: an inline
// type, an array of refs, a direct $ref, or a nested object.
type Property struct {
	Type        string               `json:"type,omitempty"`
	Format      string               `json:"format,omitempty"`
	Description string               `json:"description,omitempty"`
	Ref         string               `json:"$ref,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
}

// Document is one JSON Schema document representing one term. Recognized
// vocabulary is typed; vendor extension keys (x-*) ride along in Extensions
// so a read-modify-write cycle never drops them.
type Document struct {
	Schema      string               `json:"$schema,omitempty"`
	ID          string               `json:"$id,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	Type        string               `json:"type,omitempty"`
	Format      string               `json:"format,omitempty"`
	Enum        []string             `json:"enum,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`

	Extensions map[string]any `json:"-"`
}

// docAlias breaks the MarshalJSON/UnmarshalJSON recursion.
type docAlias Document

// MarshalJSON emits the typed fields and then folds the extension map back
// in at the top level.
func (d *Document) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal((*docAlias)(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extensions) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range d.Extensions {
		if strings.HasPrefix(key, ExtensionPrefix) {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the typed fields and stashes any x-* keys into
// Extensions. Unknown non-extension keys are dropped silently here; the
// bundle builder, which must warn on them, walks raw documents itself.
func (d *Document) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*docAlias)(d)); err != nil {
		return err
	}

	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if !strings.HasPrefix(key, ExtensionPrefix) {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			return fmt.Errorf("failed to decode extension %q: %w", key, err)
		}
		if d.Extensions == nil {
			d.Extensions = make(map[string]any)
		}
		d.Extensions[key] = decoded
	}
	return nil
}

// EnsureObject forces the document into object form, initializing the
// properties map. It reports whether the document had to be converted from a
// non-object type, which callers surface as an advisory since it reopens a
// previously closed document shape.
func (d *Document) EnsureObject() bool {
	converted := d.Type != "" && d.Type != "object"
	if converted {
		d.Enum = nil
		d.Format = ""
	}
	d.Type = "object"
	if d.Properties == nil {
		d.Properties = make(map[string]*Property)
	}
	return converted
}

// Sidecar is the companion provenance record written next to a schema file,
// linking the document back to its originating term.
type Sidecar struct {
	TermID       string         `json:"term_id"`
	TermName     string         `json:"term_name,omitempty"`
	IdentityPath string         `json:"identity_path"`
	RunID        string         `json:"run_id,omitempty"`
	Properties   map[string]any `json:"properties,omitempty"`
}
