// Package output is the durable output boundary of a pipeline. Consumers open
// named tables at a hierarchical Location, append rows while events flow and
// flush each table exactly once from Finish. The serialization is chosen by
// the Store implementation, not by the consumer.
package output

import (
	"fmt"
	"strings"
	"sync"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/transport"
)

const (
	SystemFile     = "file"
	SystemMemory   = "memory"
	SystemChannel  = transport.SystemChannel
	SystemIO       = transport.SystemIO
	SystemKafka    = transport.SystemKafka
	SystemNATS     = transport.SystemNATS
	SystemRabbitMQ = transport.SystemRabbitMQ
	SystemHTTP     = transport.SystemHTTP

	FormatJSON  = "json"
	FormatProto = "proto"
)

// Location addresses a folder inside an output file. Folder is a slash
// separated hierarchy; empty means the file's root.
type Location struct {
	File   string
	Folder string
}

// Path returns the non-empty folder segments.
func (l Location) Path() []string {
	var segments []string
	for _, s := range strings.Split(l.Folder, "/") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// Topic derives a broker topic for a table at this location.
func (l Location) Topic(table string) string {
	return strings.Join(append(l.Path(), table), ".")
}

func (l Location) String() string {
	return l.File + ":/" + strings.Join(l.Path(), "/")
}

// ColumnType is the value type stored in a column.
type ColumnType string

const (
	ColumnInt    ColumnType = "int"
	ColumnFloat  ColumnType = "float"
	ColumnString ColumnType = "string"
)

// Column describes one named table column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Store opens tables. Implementations must be safe for concurrent use so
// several pipelines can share one store.
type Store interface {
	OpenTable(loc Location, name string, columns []Column) (*Table, error)
	Close() error
}

type sink interface {
	writeTable(t *Table) error
}

// Table accumulates rows for one consumer. It is not safe for concurrent use;
// a table belongs to exactly one consumer of one pipeline.
type Table struct {
	loc     Location
	name    string
	columns []Column
	rows    [][]any
	flushed bool
	sink    sink
}

func newTable(loc Location, name string, columns []Column, s sink) *Table {
	return &Table{
		loc:     loc,
		name:    name,
		columns: append([]Column(nil), columns...),
		rows:    make([][]any, 0),
		sink:    s,
	}
}

func (t *Table) Name() string       { return t.name }
func (t *Table) Location() Location { return t.loc }
func (t *Table) Columns() []Column  { return append([]Column(nil), t.columns...) }
func (t *Table) Len() int           { return len(t.rows) }

// Append adds one row. Values are normalised to int64, float64 or string
// according to the column types.
func (t *Table) Append(values ...any) error {
	if t.flushed {
		return fmt.Errorf("%w: %s", errspkg.ErrTableClosed, t.name)
	}
	if len(values) != len(t.columns) {
		return fmt.Errorf("%w: table %s has %d columns, got %d values",
			errspkg.ErrColumnCountMismatch, t.name, len(t.columns), len(values))
	}
	row := make([]any, len(values))
	for i, v := range values {
		normalized, err := normalize(t.columns[i], v)
		if err != nil {
			return fmt.Errorf("pipeflow: table %s: %w", t.name, err)
		}
		row[i] = normalized
	}
	t.rows = append(t.rows, row)
	return nil
}

// Flush hands the table to its store. A table can be flushed once.
func (t *Table) Flush() error {
	if t.flushed {
		return fmt.Errorf("%w: %s", errspkg.ErrTableClosed, t.name)
	}
	t.flushed = true
	return t.sink.writeTable(t)
}

// records returns the table keyed by column name, one map per row.
func (t *Table) records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for i, row := range t.rows {
		rec := make(map[string]any, len(row))
		for j, v := range row {
			rec[t.columns[j].Name] = v
		}
		out[i] = rec
	}
	return out
}

func normalize(col Column, v any) (any, error) {
	switch col.Type {
	case ColumnInt:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint32:
			return int64(n), nil
		}
	case ColumnFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case ColumnString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("column %s expects %s, got %T", col.Name, col.Type, v)
}

// tableKeys guards against two consumers writing the same table.
type tableKeys struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (k *tableKeys) claim(loc Location, name string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.seen == nil {
		k.seen = make(map[string]struct{})
	}
	key := loc.String() + "/" + name
	if _, dup := k.seen[key]; dup {
		return fmt.Errorf("%w: %s", errspkg.ErrTableExists, key)
	}
	k.seen[key] = struct{}{}
	return nil
}
