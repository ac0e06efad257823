package generator

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/api/igc"
	"github.com/IBM/igc-x-json-schema/internal/jsonschema"
	"github.com/IBM/igc-x-json-schema/internal/names"
)

// Link runs phase two and must only start after Compile has finished: it
// depends on the completed term-to-document index. For every association
// term it re-opens the documents of the terms it connects and embeds an
// object-typed cross-reference property between them. A malformed persisted
// document aborts the run (the store's parse errors propagate); everything
// else degrades to per-item warnings.
func (s *Session) Link() error {
	for _, id := range s.order {
		term := s.terms[id]
		if !term.IsAssociation() {
			continue
		}
		if err := s.linkAssociation(term); err != nil {
			return fmt.Errorf("failed to link association %s (%s): %w", term.Name, term.ID, err)
		}
	}
	return nil
}

func (s *Session) linkAssociation(assoc *igc.Term) error {
	// If the association also carried containment edges it was compiled as an
	// ordinary object in phase one; its own properties become inheritable by
	// every term it associates. Otherwise it contributes no attributes.
	var baseProps map[string]*jsonschema.Property
	if docID, ok := s.docIDs[assoc.ID]; ok {
		doc, err := s.store.Get(docID)
		if err != nil {
			if errors.Is(err, jsonschema.ErrNotFound) {
				s.log.Warn("Association document missing from store",
					zap.String("association", assoc.Name),
					zap.String("doc_id", docID))
			} else {
				return err
			}
		} else {
			baseProps = doc.Properties
		}
	}

	// Collect the members the association connects, skipping anything that
	// never made it through phase one.
	members := make([]*igc.Term, 0, len(assoc.RelatedTerms.Items))
	for _, edge := range assoc.RelatedTerms.Items {
		member := s.terms[edge.ID]
		if member == nil || !s.processed[member.ID] {
			s.log.Warn("Association references an unprocessed term",
				zap.String("association", assoc.Name),
				zap.String("term_id", edge.ID),
				zap.String("term_name", edge.Name))
			continue
		}
		members = append(members, member)
	}
	if len(members) < 2 {
		s.log.Warn("Association has fewer than two resolvable members, nothing to link",
			zap.String("association", assoc.Name),
			zap.Int("members", len(members)))
		return nil
	}

	assocProp := names.Property(assoc.Name)
	for _, member := range members {
		if err := s.linkMember(assoc, assocProp, baseProps, member, members); err != nil {
			return err
		}
	}
	return nil
}

// linkMember performs the read-modify-write on one member's document: ensure
// the association property exists as an object, then add a $ref to every
// other member that is not the member itself or one of its taxonomy
// ancestors.
func (s *Session) linkMember(assoc *igc.Term, assocProp string, baseProps map[string]*jsonschema.Property, member *igc.Term, members []*igc.Term) error {
	docID := s.docIDs[member.ID]
	doc, err := s.store.Get(docID)
	if err != nil {
		if errors.Is(err, jsonschema.ErrNotFound) {
			s.log.Warn("Member document missing from store, skipping",
				zap.String("association", assoc.Name),
				zap.String("term_name", member.Name),
				zap.String("doc_id", docID))
			return nil
		}
		return err
	}

	if converted := doc.EnsureObject(); converted {
		s.log.Warn("Forced a non-object document into object form for association linking",
			zap.String("association", assoc.Name),
			zap.String("term_name", member.Name),
			zap.String("doc_id", docID))
	}

	prop := doc.Properties[assocProp]
	if prop == nil {
		prop = &jsonschema.Property{Type: "object"}
		doc.Properties[assocProp] = prop
	}
	if prop.Properties == nil {
		prop.Properties = make(map[string]*jsonschema.Property)
	}
	// The association's own properties are inherited even when the member
	// already carried a property under the association's name; existing
	// entries keep precedence.
	for name, base := range baseProps {
		if _, exists := prop.Properties[name]; !exists {
			prop.Properties[name] = base
		}
	}

	for _, other := range members {
		if other.ID == member.ID {
			continue
		}
		// A derived type already is its ancestor; a ref back up the taxonomy
		// chain would be redundant.
		if s.isTaxonomyAncestor(other.ID, member) {
			continue
		}
		prop.Properties[names.Property(other.Name)] = &jsonschema.Property{Ref: s.docIDs[other.ID]}
	}

	return s.store.Put(docID, doc, nil)
}

// isTaxonomyAncestor walks the member's "is a type of" chain transitively
// and reports whether candidateID appears in it. The visited set bounds the
// walk on cyclic taxonomies.
func (s *Session) isTaxonomyAncestor(candidateID string, member *igc.Term) bool {
	visited := make(map[string]bool)
	stack := make([]string, 0, len(member.IsATypeOf.Items))
	for _, parent := range member.IsATypeOf.Items {
		stack = append(stack, parent.ID)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[id] {
			continue
		}
		visited[id] = true

		if id == candidateID {
			return true
		}
		if parent := s.terms[id]; parent != nil {
			for _, grand := range parent.IsATypeOf.Items {
				stack = append(stack, grand.ID)
			}
		}
	}
	return false
}
