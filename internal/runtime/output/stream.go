package output

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/ids"
	"github.com/drblury/pipeflow/internal/runtime/jsoncodec"
	"github.com/drblury/pipeflow/internal/runtime/logging"
)

// Metadata keys set on every streamed message.
const (
	MetadataKind     = "pipeflow_kind"
	MetadataTable    = "pipeflow_table"
	MetadataFolder   = "pipeflow_folder"
	MetadataFormat   = "pipeflow_format"
	MetadataRowIndex = "pipeflow_row_index"
	MetadataRowCount = "pipeflow_row_count"

	KindSchema = "schema"
	KindRow    = "row"
	KindEnd    = "end"
)

// StreamStore publishes every flushed table as a message sequence on topic
// Location.Topic(name): one schema message, one message per row and a
// closing end message carrying the row count.
type StreamStore struct {
	keys      tableKeys
	mu        sync.Mutex
	publisher message.Publisher
	format    string
	logger    logging.Logger
}

// NewStreamStore wraps a Watermill publisher. format is FormatJSON (default)
// or FormatProto.
func NewStreamStore(pub message.Publisher, format string, logger logging.Logger) (*StreamStore, error) {
	if pub == nil {
		return nil, errspkg.ErrPublisherRequired
	}
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatProto:
	default:
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnsupportedRowFormat, format)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &StreamStore{publisher: pub, format: format, logger: logger}, nil
}

func (s *StreamStore) OpenTable(loc Location, name string, columns []Column) (*Table, error) {
	if err := s.keys.claim(loc, name); err != nil {
		return nil, err
	}
	return newTable(loc, name, columns, s), nil
}

func (s *StreamStore) writeTable(t *Table) error {
	schema, err := jsoncodec.Marshal(t.columns)
	if err != nil {
		return fmt.Errorf("pipeflow: encode schema of %s: %w", t.name, err)
	}

	records := t.records()
	msgs := make([]*message.Message, 0, len(records)+2)
	msgs = append(msgs, s.newMessage(t, KindSchema, schema))
	for i, rec := range records {
		payload, err := EncodeRow(s.format, rec)
		if err != nil {
			return fmt.Errorf("pipeflow: encode row %d of %s: %w", i, t.name, err)
		}
		msg := s.newMessage(t, KindRow, payload)
		msg.Metadata.Set(MetadataRowIndex, strconv.Itoa(i))
		msgs = append(msgs, msg)
	}
	end := s.newMessage(t, KindEnd, nil)
	end.Metadata.Set(MetadataRowCount, strconv.Itoa(len(records)))
	msgs = append(msgs, end)

	topic := t.loc.Topic(t.name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.publisher.Publish(topic, msgs...); err != nil {
		s.logger.Error("Publishing table failed", err, logging.LogFields{"topic": topic, "table": t.name})
		return fmt.Errorf("pipeflow: publish %s: %w", topic, err)
	}
	s.logger.Debug("Table published", logging.LogFields{
		"topic": topic,
		"rows":  len(records),
	})
	return nil
}

func (s *StreamStore) newMessage(t *Table, kind string, payload []byte) *message.Message {
	msg := message.NewMessage(ids.CreateULID(), payload)
	msg.Metadata.Set(MetadataKind, kind)
	msg.Metadata.Set(MetadataTable, t.name)
	msg.Metadata.Set(MetadataFolder, t.loc.Folder)
	msg.Metadata.Set(MetadataFormat, s.format)
	return msg
}

// Close closes the underlying publisher.
func (s *StreamStore) Close() error {
	return s.publisher.Close()
}

// EncodeRow serialises one record in the given format.
func EncodeRow(format string, rec map[string]any) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return jsoncodec.Marshal(rec)
	case FormatProto:
		st, err := structpb.NewStruct(rec)
		if err != nil {
			return nil, err
		}
		return proto.MarshalOptions{Deterministic: true}.Marshal(st)
	default:
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnsupportedRowFormat, format)
	}
}

// DecodeRow is the inverse of EncodeRow. Numbers come back as float64 in
// both formats.
func DecodeRow(format string, payload []byte) (map[string]any, error) {
	switch format {
	case FormatJSON, "":
		rec := map[string]any{}
		if err := jsoncodec.Unmarshal(payload, &rec); err != nil {
			return nil, err
		}
		return rec, nil
	case FormatProto:
		st := &structpb.Struct{}
		if err := proto.Unmarshal(payload, st); err != nil {
			return nil, err
		}
		return st.AsMap(), nil
	default:
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnsupportedRowFormat, format)
	}
}
