package generator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/api/igc"
	"github.com/IBM/igc-x-json-schema/internal/jsonschema"
	"github.com/IBM/igc-x-json-schema/internal/names"
)

// Compile runs phase one: one document per term, in deterministic order.
// Association terms without containment edges are skipped here; they only
// surface during linking. A failure on one term is recoverable: it is logged
// and the remaining terms still compile.
func (s *Session) Compile() error {
	var failed int
	for _, id := range s.order {
		term := s.terms[id]
		if term.IsAssociation() && len(term.HasA.Items) == 0 {
			continue
		}
		if err := s.compileTerm(term); err != nil {
			failed++
			s.log.Error("Failed to compile term",
				zap.String("term_id", term.ID),
				zap.String("term_name", term.Name),
				zap.Error(err))
		}
	}
	if failed > 0 {
		s.log.Warn("Compilation finished with per-term failures", zap.Int("failed", failed))
	}
	return nil
}

// compileTerm evaluates the emission state machine for a single term.
// Re-processing an already-processed identifier is a no-op, and the
// identifier is marked processed before any related lookup so mutually
// referencing terms cannot recurse forever.
func (s *Session) compileTerm(term *igc.Term) error {
	if s.processed[term.ID] {
		return nil
	}
	s.processed[term.ID] = true

	formatted := names.Format(term.Name)
	s.checkCollision(formatted, term.ID)

	docID := s.DocumentID(term)
	doc := &jsonschema.Document{
		Schema:      jsonschema.DraftURI,
		ID:          docID,
		Title:       term.Name,
		Description: description(term),
		Extensions:  map[string]any{"x-term-id": term.ID},
	}

	// First match wins: containment beats taxonomy beats bare primitive.
	switch {
	case len(term.HasA.Items) > 0:
		s.compileObject(term, doc)
	case len(term.HasTypes.Items) > 0:
		s.compileEnum(term, doc)
	default:
		st := s.schemaType(term.ID)
		doc.Type = st.Type
		doc.Format = st.Format
	}

	side := &jsonschema.Sidecar{
		TermID:       term.ID,
		TermName:     term.Name,
		IdentityPath: names.Path(categoryNames(term)) + "/" + formatted,
		RunID:        s.runID,
	}
	if term.Multiplicity != "" {
		side.Properties = map[string]any{"multiplicity": term.Multiplicity}
	}

	if err := s.store.Put(docID, doc, side); err != nil {
		return fmt.Errorf("failed to persist document: %w", err)
	}
	s.docIDs[term.ID] = docID
	return nil
}

// compileObject emits an object schema with one property per containment
// edge: an array-of-ref when the contained term's cardinality marker is
// truthy, a direct ref otherwise. A containment edge pointing at a term
// absent from the preloaded mapping resolves to nothing; the property is
// omitted with a warning.
func (s *Session) compileObject(term *igc.Term, doc *jsonschema.Document) {
	doc.Type = "object"
	doc.Properties = make(map[string]*jsonschema.Property, len(term.HasA.Items))

	for _, edge := range term.HasA.Items {
		target := s.terms[edge.ID]
		if target == nil {
			s.log.Warn("Unresolved containment edge",
				zap.String("term_id", term.ID),
				zap.String("term_name", term.Name),
				zap.String("target_id", edge.ID),
				zap.String("target_name", edge.Name))
			continue
		}

		propName := names.Property(target.Name)
		ref := s.DocumentID(target)
		if s.multiValued(target.Multiplicity) {
			doc.Properties[propName] = &jsonschema.Property{
				Type:  "array",
				Items: &jsonschema.Property{Ref: ref},
			}
		} else {
			doc.Properties[propName] = &jsonschema.Property{Ref: ref}
		}
	}
}

// compileEnum emits an enumeration over the display names of the term's
// taxonomy children, typed by the cached data-type lookup.
func (s *Session) compileEnum(term *igc.Term, doc *jsonschema.Document) {
	st := s.schemaType(term.ID)
	doc.Type = st.Type
	doc.Format = st.Format
	doc.Enum = make([]string, 0, len(term.HasTypes.Items))
	for _, child := range term.HasTypes.Items {
		doc.Enum = append(doc.Enum, child.Name)
	}
}

func categoryNames(term *igc.Term) []string {
	out := make([]string, 0, len(term.CategoryPath.Items))
	for _, cat := range term.CategoryPath.Items {
		out = append(out, cat.Name)
	}
	return out
}
