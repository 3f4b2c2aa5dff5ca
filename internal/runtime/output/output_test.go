package output

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/jsoncodec"
	"github.com/drblury/pipeflow/internal/runtime/transport"
)

var testColumns = []Column{
	{Name: "hits", Type: ColumnInt},
	{Name: "energy", Type: ColumnFloat},
	{Name: "label", Type: ColumnString},
}

type systemConfig struct {
	system string
	format string
	ioFile string
}

func (c systemConfig) GetOutputSystem() string     { return c.system }
func (c systemConfig) GetOutputFormat() string     { return c.format }
func (c systemConfig) GetKafkaBrokers() []string   { return nil }
func (c systemConfig) GetNATSURL() string          { return "" }
func (c systemConfig) GetRabbitMQURL() string      { return "" }
func (c systemConfig) GetHTTPPublisherURL() string { return "" }
func (c systemConfig) GetIOFile() string           { return c.ioFile }

type recordingPublisher struct {
	topics   []string
	messages []*message.Message
	err      error
	closed   bool
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	for range msgs {
		p.topics = append(p.topics, topic)
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestLocationPathAndTopic(t *testing.T) {
	loc := Location{File: "out.json", Folder: "/tracks/ run1 //muons/"}
	assert.Equal(t, []string{"tracks", "run1", "muons"}, loc.Path())
	assert.Equal(t, "tracks.run1.muons.runTime", loc.Topic("runTime"))
	assert.Equal(t, "out.json:/tracks/run1/muons", loc.String())

	assert.Empty(t, Location{File: "out.json"}.Path())
	assert.Equal(t, "runTime", Location{}.Topic("runTime"))
}

func TestTableAppendNormalizesValues(t *testing.T) {
	store := NewMemoryStore()
	table, err := store.OpenTable(Location{}, "t", testColumns)
	require.NoError(t, err)

	require.NoError(t, table.Append(3, float32(1.5), "a"))
	require.NoError(t, table.Append(int64(-999), 2, "b"))
	assert.Equal(t, 2, table.Len())

	require.NoError(t, table.Flush())
	snap, ok := store.Table(Location{}, "t")
	require.True(t, ok)
	assert.Equal(t, [][]any{
		{int64(3), 1.5, "a"},
		{int64(-999), 2.0, "b"},
	}, snap.Rows)
}

func TestTableAppendRejectsBadRows(t *testing.T) {
	table, err := NewMemoryStore().OpenTable(Location{}, "t", testColumns)
	require.NoError(t, err)

	err = table.Append(1, 2.0)
	assert.ErrorIs(t, err, errspkg.ErrColumnCountMismatch)

	err = table.Append("one", 2.0, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column hits expects int")
	assert.Zero(t, table.Len())
}

func TestTableFlushOnce(t *testing.T) {
	table, err := NewMemoryStore().OpenTable(Location{}, "t", testColumns)
	require.NoError(t, err)

	require.NoError(t, table.Flush())
	assert.ErrorIs(t, table.Flush(), errspkg.ErrTableClosed)
	assert.ErrorIs(t, table.Append(1, 1.0, "x"), errspkg.ErrTableClosed)
}

func TestStoresRejectDuplicateTables(t *testing.T) {
	loc := Location{File: filepath.Join(t.TempDir(), "out.json"), Folder: "a"}
	pub := &recordingPublisher{}
	stream, err := NewStreamStore(pub, "", nil)
	require.NoError(t, err)

	for _, store := range []Store{NewFileStore(nil), NewMemoryStore(), stream} {
		_, err := store.OpenTable(loc, "runTime", testColumns)
		require.NoError(t, err)
		_, err = store.OpenTable(loc, "runTime", testColumns)
		assert.ErrorIs(t, err, errspkg.ErrTableExists)

		_, err = store.OpenTable(Location{File: loc.File, Folder: "b"}, "runTime", testColumns)
		assert.NoError(t, err)
	}
}

func TestFileStoreWritesNestedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	store := NewFileStore(nil)

	first, err := store.OpenTable(Location{File: path, Folder: "analysis/muons"}, "runTime", testColumns)
	require.NoError(t, err)
	second, err := store.OpenTable(Location{File: path, Folder: "analysis"}, "cutflow", testColumns)
	require.NoError(t, err)

	require.NoError(t, first.Append(7, 0.5, "ok"))
	require.NoError(t, first.Flush())
	require.NoError(t, second.Flush())

	doc, err := ReadFile(path)
	require.NoError(t, err)

	runTime, ok := doc.Lookup(Location{Folder: "analysis/muons"}, "runTime")
	require.True(t, ok)
	assert.Equal(t, testColumns, runTime.Columns)
	assert.Equal(t, [][]any{{7.0, 0.5, "ok"}}, runTime.Rows)

	cutflow, ok := doc.Lookup(Location{Folder: "analysis"}, "cutflow")
	require.True(t, ok)
	assert.NotNil(t, cutflow.Rows)
	assert.Empty(t, cutflow.Rows)

	_, ok = doc.Lookup(Location{Folder: "missing"}, "runTime")
	assert.False(t, ok)
}

func TestFileStoreEmptyTableIsComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	store := NewFileStore(nil)
	table, err := store.OpenTable(Location{File: path}, "runTime", testColumns)
	require.NoError(t, err)
	require.NoError(t, table.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rows": []`)
	assert.Contains(t, string(data), `"name": "hits"`)
}

func TestFileStoreOutputIsRepeatable(t *testing.T) {
	write := func(path string) []byte {
		store := NewFileStore(nil)
		for _, folder := range []string{"b", "a", "a/c"} {
			table, err := store.OpenTable(Location{File: path, Folder: folder}, "t", testColumns)
			require.NoError(t, err)
			require.NoError(t, table.Append(1, 2.5, folder))
			require.NoError(t, table.Flush())
		}
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return data
	}

	dir := t.TempDir()
	assert.Equal(t, write(filepath.Join(dir, "one.json")), write(filepath.Join(dir, "two.json")))
}

func TestFileStoreRequiresFile(t *testing.T) {
	_, err := NewFileStore(nil).OpenTable(Location{Folder: "a"}, "t", testColumns)
	assert.ErrorIs(t, err, errspkg.ErrOutputFileRequired)
}

func TestMemoryStoreTables(t *testing.T) {
	store := NewMemoryStore()
	for _, name := range []string{"first", "second"} {
		table, err := store.OpenTable(Location{Folder: "x"}, name, testColumns)
		require.NoError(t, err)
		require.NoError(t, table.Flush())
	}

	tables := store.Tables()
	require.Len(t, tables, 2)
	assert.Equal(t, "first", tables[0].Name)
	assert.Equal(t, "second", tables[1].Name)

	_, ok := store.Table(Location{Folder: "y"}, "first")
	assert.False(t, ok)
	assert.NoError(t, store.Close())
}

func TestStreamStorePublishesSchemaRowsAndEnd(t *testing.T) {
	for _, format := range []string{FormatJSON, FormatProto} {
		t.Run(format, func(t *testing.T) {
			pub := &recordingPublisher{}
			store, err := NewStreamStore(pub, format, nil)
			require.NoError(t, err)

			table, err := store.OpenTable(Location{Folder: "run/1"}, "runTime", testColumns)
			require.NoError(t, err)
			require.NoError(t, table.Append(4, 1.25, "a"))
			require.NoError(t, table.Append(-999, -999.0, "b"))
			require.NoError(t, table.Flush())

			require.Len(t, pub.messages, 4)
			for _, topic := range pub.topics {
				assert.Equal(t, "run.1.runTime", topic)
			}

			schema := pub.messages[0]
			assert.Equal(t, KindSchema, schema.Metadata.Get(MetadataKind))
			var columns []Column
			require.NoError(t, jsoncodec.Unmarshal(schema.Payload, &columns))
			assert.Equal(t, testColumns, columns)

			row := pub.messages[2]
			assert.Equal(t, KindRow, row.Metadata.Get(MetadataKind))
			assert.Equal(t, "1", row.Metadata.Get(MetadataRowIndex))
			assert.Equal(t, format, row.Metadata.Get(MetadataFormat))
			rec, err := DecodeRow(format, row.Payload)
			require.NoError(t, err)
			assert.Equal(t, map[string]any{"hits": -999.0, "energy": -999.0, "label": "b"}, rec)

			end := pub.messages[3]
			assert.Equal(t, KindEnd, end.Metadata.Get(MetadataKind))
			assert.Equal(t, "2", end.Metadata.Get(MetadataRowCount))

			seen := map[string]bool{}
			for _, msg := range pub.messages {
				assert.False(t, seen[msg.UUID])
				seen[msg.UUID] = true
			}

			require.NoError(t, store.Close())
			assert.True(t, pub.closed)
		})
	}
}

func TestStreamStorePublishError(t *testing.T) {
	boom := errors.New("broker down")
	store, err := NewStreamStore(&recordingPublisher{err: boom}, FormatJSON, nil)
	require.NoError(t, err)

	table, err := store.OpenTable(Location{}, "t", testColumns)
	require.NoError(t, err)
	assert.ErrorIs(t, table.Flush(), boom)
}

func TestNewStreamStoreValidation(t *testing.T) {
	_, err := NewStreamStore(nil, FormatJSON, nil)
	assert.ErrorIs(t, err, errspkg.ErrPublisherRequired)

	_, err = NewStreamStore(&recordingPublisher{}, "xml", nil)
	assert.ErrorIs(t, err, errspkg.ErrUnsupportedRowFormat)
}

func TestProtoRowEncodingIsDeterministic(t *testing.T) {
	rec := map[string]any{"a": int64(1), "b": 2.5, "c": "x", "d": int64(-999)}
	first, err := EncodeRow(FormatProto, rec)
	require.NoError(t, err)
	for range 5 {
		again, err := EncodeRow(FormatProto, rec)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestOpenSelectsStore(t *testing.T) {
	store, err := Open(systemConfig{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = Open(systemConfig{system: SystemMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(systemConfig{system: "carrier-pigeon"}, nil)
	assert.ErrorIs(t, err, errspkg.ErrOutputSystemUnknown)

	_, err = Open(nil, nil)
	assert.ErrorIs(t, err, errspkg.ErrConfigRequired)
}

func TestOpenIOStreamsRowsToFile(t *testing.T) {
	ioFile := filepath.Join(t.TempDir(), "rows.log")
	store, err := Open(systemConfig{system: SystemIO, ioFile: ioFile}, nil)
	require.NoError(t, err)
	require.IsType(t, &StreamStore{}, store)

	table, err := store.OpenTable(Location{Folder: "det"}, "ntuple", testColumns)
	require.NoError(t, err)
	require.NoError(t, table.Append(1, 0.1, "x"))
	require.NoError(t, table.Flush())
	require.NoError(t, store.Close())

	f, err := os.Open(ioFile)
	require.NoError(t, err)
	defer f.Close()

	var kinds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var stored transport.StoredMessage
		require.NoError(t, jsoncodec.Unmarshal(scanner.Bytes(), &stored))
		assert.Equal(t, "det.ntuple", stored.Topic)
		kinds = append(kinds, stored.Metadata[MetadataKind])
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, []string{KindSchema, KindRow, KindEnd}, kinds)
}
