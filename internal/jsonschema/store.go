package jsonschema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNotFound is returned by Get when no document exists for an identifier.
var ErrNotFound = errors.New("document not found")

// SidecarExt is the filename suffix of a schema document's provenance file.
const SidecarExt = ".igc"

// Store is the seam between the compile phase and the linking phase: the
// compiler writes documents once, the linker re-reads and mutates them
// (read-modify-write on the same key). A nil sidecar on Put leaves any
// previously written sidecar untouched.
type Store interface {
	Get(id string) (*Document, error)
	Put(id string, doc *Document, side *Sidecar) error
	// IDs returns every stored document identifier in sorted order.
	IDs() []string
}

// -- In-Memory Store --

// MemoryStore keeps serialized documents in a map. Documents round-trip
// through the codec on every Get/Put so callers observe the same
// copy-on-read semantics as the file store, and malformed content surfaces
// as a parse error exactly where it would for a file.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	sidecars map[string]*Sidecar
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string][]byte),
		sidecars: make(map[string]*Sidecar),
	}
}

func (s *MemoryStore) Get(id string) (*Document, error) {
	s.mu.RLock()
	data, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *MemoryStore) Put(id string, doc *Document, side *Sidecar) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = data
	if side != nil {
		s.sidecars[id] = side
	}
	return nil
}

func (s *MemoryStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sidecar returns the provenance record stored for a document, if any.
func (s *MemoryStore) Sidecar(id string) (*Sidecar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	side, ok := s.sidecars[id]
	return side, ok
}

// -- File Store --

// FileStore persists each document as pretty-printed JSON under a single
// output directory, with the provenance sidecar alongside it. Writes are
// atomic (temp file + rename) so an interrupted run never leaves a
// half-written document behind.
type FileStore struct {
	dir string
	log *zap.Logger

	mu    sync.Mutex
	names map[string]string // document ID -> relative file name
}

// NewFileStore creates the output directory if needed and returns a store
// rooted there.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &FileStore{
		dir:   dir,
		log:   logger.Named("DocumentStore"),
		names: make(map[string]string),
	}, nil
}

// fileName flattens a document identifier into a single file name: the
// scheme prefix is stripped and path separators become underscores, so two
// terms with colliding display names but distinct identity paths still land
// in distinct files.
func fileName(id string) string {
	trimmed := id
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+len("://"):]
	}
	trimmed = strings.ReplaceAll(trimmed, "/", "_")
	if !strings.HasSuffix(trimmed, ".json") {
		trimmed += ".json"
	}
	return trimmed
}

func (s *FileStore) Get(id string) (*Document, error) {
	path := filepath.Join(s.dir, fileName(id))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		// Malformed persisted content is fatal for this document's update;
		// the caller decides whether that aborts the run.
		return nil, fmt.Errorf("failed to parse document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *FileStore) Put(id string, doc *Document, side *Sidecar) error {
	name := fileName(id)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize document %s: %w", id, err)
	}

	if err := s.writeAtomic(name, data); err != nil {
		return err
	}
	if side != nil {
		sideData, err := json.MarshalIndent(side, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize sidecar for %s: %w", id, err)
		}
		if err := s.writeAtomic(name+SidecarExt, sideData); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.names[id] = name
	s.mu.Unlock()

	s.log.Debug("Document written", zap.String("id", id), zap.String("file", name))
	return nil
}

// writeAtomic writes data to a temp file in the target directory and renames
// it into place.
func (s *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.names))
	for id := range s.names {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
