package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/jsoncodec"
	"github.com/drblury/pipeflow/internal/runtime/logging"
)

// Folder is one level of an output document.
type Folder struct {
	Folders map[string]*Folder    `json:"folders,omitempty"`
	Tables  map[string]*TableData `json:"tables,omitempty"`
}

// TableData is the persisted form of a flushed table.
type TableData struct {
	Columns []Column `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func (f *Folder) child(path []string) *Folder {
	node := f
	for _, segment := range path {
		if node.Folders == nil {
			node.Folders = make(map[string]*Folder)
		}
		next, ok := node.Folders[segment]
		if !ok {
			next = &Folder{}
			node.Folders[segment] = next
		}
		node = next
	}
	return node
}

// Lookup returns the table stored at path/name.
func (f *Folder) Lookup(loc Location, name string) (*TableData, bool) {
	node := f
	for _, segment := range loc.Path() {
		next, ok := node.Folders[segment]
		if !ok {
			return nil, false
		}
		node = next
	}
	t, ok := node.Tables[name]
	return t, ok
}

// FileStore writes one JSON document per output file. Every flush rewrites
// the whole document, so the file on disk is always complete and its bytes
// only depend on the flushed tables.
type FileStore struct {
	keys   tableKeys
	mu     sync.Mutex
	docs   map[string]*Folder
	logger logging.Logger
}

// NewFileStore creates an empty store. A nil logger discards logs.
func NewFileStore(logger logging.Logger) *FileStore {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileStore{docs: make(map[string]*Folder), logger: logger}
}

func (s *FileStore) OpenTable(loc Location, name string, columns []Column) (*Table, error) {
	if loc.File == "" {
		return nil, errspkg.ErrOutputFileRequired
	}
	if err := s.keys.claim(loc, name); err != nil {
		return nil, err
	}
	return newTable(loc, name, columns, s), nil
}

func (s *FileStore) writeTable(t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[t.loc.File]
	if !ok {
		doc = &Folder{}
		s.docs[t.loc.File] = doc
	}
	node := doc.child(t.loc.Path())
	if node.Tables == nil {
		node.Tables = make(map[string]*TableData)
	}
	node.Tables[t.name] = &TableData{Columns: t.Columns(), Rows: t.rows}

	data, err := jsoncodec.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeflow: encode %s: %w", t.loc.File, err)
	}
	if err := writeFileAtomic(t.loc.File, append(data, '\n')); err != nil {
		return err
	}

	s.logger.Debug("Table flushed", logging.LogFields{
		"file":   t.loc.File,
		"folder": t.loc.Folder,
		"table":  t.name,
		"rows":   len(t.rows),
	})
	return nil
}

func (s *FileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("pipeflow: create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("pipeflow: create temp output: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("pipeflow: write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pipeflow: close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("pipeflow: replace output: %w", err)
	}
	return nil
}

// ReadFile loads a document written by FileStore.
func ReadFile(path string) (*Folder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := &Folder{}
	if err := jsoncodec.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("pipeflow: decode %s: %w", path, err)
	}
	return doc, nil
}
