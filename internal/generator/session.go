// Package generator compiles a business-term graph into JSON Schema
// documents. It runs in two strict phases: Compile emits one document per
// term, Link then re-opens emitted documents to embed association
// cross-references.
package generator

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/api/igc"
	"github.com/IBM/igc-x-json-schema/internal/jsonschema"
	"github.com/IBM/igc-x-json-schema/internal/names"
	"github.com/IBM/igc-x-json-schema/internal/typeinfer"
)

// defaultTruthy is the fixed whitelist marking a multiplicity attribute as
// multi-valued. Matching is case-insensitive.
var defaultTruthy = []string{"yes", "true", "y"}

// Options configures a compilation session.
type Options struct {
	// Store receives every emitted document and is re-read during linking.
	Store jsonschema.Store
	// Types is the precomputed term-to-type cache. Optional; absent entries
	// default to "string".
	Types *typeinfer.Cache
	// Prefix is the namespace prefix of every document identifier, e.g.
	// "https://example.com/glossary".
	Prefix string
	// Truthy overrides the multi-valued marker whitelist. Leave nil to keep
	// the default {"yes", "true", "y"}.
	Truthy []string
	// RunID is stamped into sidecars for provenance.
	RunID  string
	Logger *zap.Logger
}

// Collision records two distinct terms whose display names format to the
// same token. Advisory only; both documents are still emitted under their
// distinct full identifiers.
type Collision struct {
	Name    string
	FirstID string
	OtherID string
}

// Session owns all mutable state of one compilation run: the preloaded term
// mapping, the processed-identifier set, the name-collision cache and the
// term-to-document index. Nothing here is global, so independent sessions
// can run in one process without cross-contamination.
type Session struct {
	log    *zap.Logger
	store  jsonschema.Store
	types  *typeinfer.Cache
	prefix string
	truthy map[string]struct{}
	runID  string

	terms      map[string]*igc.Term
	order      []string          // term IDs in deterministic compile order
	processed  map[string]bool   // guards re-entry and re-runs
	docIDs     map[string]string // term ID -> emitted document ID
	seenNames  map[string]string // formatted name -> first term ID
	collisions []Collision
}

// NewSession creates a session over the given options. The term graph is
// loaded separately via AddTerms.
func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	truthy := opts.Truthy
	if len(truthy) == 0 {
		truthy = defaultTruthy
	}
	truthySet := make(map[string]struct{}, len(truthy))
	for _, marker := range truthy {
		truthySet[strings.ToLower(marker)] = struct{}{}
	}

	return &Session{
		log:       logger.Named("Generator"),
		store:     opts.Store,
		types:     opts.Types,
		prefix:    strings.TrimRight(opts.Prefix, "/"),
		truthy:    truthySet,
		runID:     opts.RunID,
		terms:     make(map[string]*igc.Term),
		processed: make(map[string]bool),
		docIDs:    make(map[string]string),
		seenNames: make(map[string]string),
	}
}

// AddTerms loads the term graph into the session's identifier mapping. Terms
// are compiled in name order (ties broken by ID) so runs are reproducible.
func (s *Session) AddTerms(terms []igc.Term) {
	for i := range terms {
		term := terms[i]
		if _, exists := s.terms[term.ID]; !exists {
			s.order = append(s.order, term.ID)
		}
		s.terms[term.ID] = &term
	}
	sort.Slice(s.order, func(i, j int) bool {
		a, b := s.terms[s.order[i]], s.terms[s.order[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

// DocumentID builds the globally unique identifier of a term's document:
// namespace prefix, root-to-leaf category path, formatted name.
func (s *Session) DocumentID(term *igc.Term) string {
	segments := make([]string, 0, len(term.CategoryPath.Items)+1)
	for _, cat := range term.CategoryPath.Items {
		segments = append(segments, cat.Name)
	}
	segments = append(segments, term.Name)

	path := names.Path(segments)
	if s.prefix == "" {
		return path
	}
	return s.prefix + "/" + path
}

// multiValued reports whether a cardinality marker is in the truthy set.
func (s *Session) multiValued(marker string) bool {
	_, ok := s.truthy[strings.ToLower(strings.TrimSpace(marker))]
	return ok
}

// checkCollision records an advisory when two distinct terms share a
// formatted name. Returns true when a new collision was recorded.
func (s *Session) checkCollision(formatted, termID string) bool {
	first, seen := s.seenNames[formatted]
	if !seen {
		s.seenNames[formatted] = termID
		return false
	}
	if first == termID {
		return false
	}
	s.collisions = append(s.collisions, Collision{Name: formatted, FirstID: first, OtherID: termID})
	s.log.Warn("Formatted name collision",
		zap.String("name", formatted),
		zap.String("first_term", first),
		zap.String("other_term", termID))
	return true
}

// Collisions returns every name collision recorded so far, for the
// end-of-run summary.
func (s *Session) Collisions() []Collision {
	return s.collisions
}

// schemaType resolves the cached data type for a term, defaulting to string.
func (s *Session) schemaType(termID string) typeinfer.SchemaType {
	if s.types != nil {
		if st, ok := s.types.Lookup(termID); ok {
			return st
		}
	}
	return typeinfer.SchemaType{Type: "string"}
}

// description prefers the long-form text and falls back to the short form.
func description(term *igc.Term) string {
	if term.LongDescription != "" {
		return term.LongDescription
	}
	return term.ShortDescription
}
