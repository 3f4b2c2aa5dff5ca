package runtime

import (
	"errors"
	"sync"

	"github.com/drblury/pipeflow/internal/runtime/config"
	"github.com/drblury/pipeflow/internal/runtime/logging"
)

type testEvent struct {
	ID     int
	Energy float64
}

type testProduct struct {
	ProductBase
	Energy     float64
	Calibrated float64
	Trail      []string
}

func newTestProduct() *testProduct { return &testProduct{} }

type (
	testPipeline = Pipeline[testEvent, *testProduct, *config.Config]
	testRegistry = Registry[testEvent, *testProduct, *config.Config]
)

func testSettings(processors, consumers []string) *config.Config {
	cfg := &config.Config{PipelineName: "test", Processors: processors, Consumers: consumers}
	cfg.ApplyDefaults()
	return cfg
}

func producer(id string, fn func(testEvent, *testProduct) error) Producer[testEvent, *testProduct, *config.Config] {
	return NewProducerFunc(id, func(e testEvent, p *testProduct, _ *config.Config) error {
		if err := Assign(p, &p.Trail, append(p.Trail, id)); err != nil {
			return err
		}
		return fn(e, p)
	})
}

func filter(id string, fn func(testEvent, *testProduct) (bool, error)) Filter[testEvent, *testProduct, *config.Config] {
	return NewFilterFunc(id, func(e testEvent, p *testProduct, _ *config.Config) (bool, error) {
		// Trail is test bookkeeping for evaluation order, not product data.
		p.Trail = append(p.Trail, id)
		return fn(e, p)
	})
}

func passing(testEvent, *testProduct) (bool, error)   { return true, nil }
func rejecting(testEvent, *testProduct) (bool, error) { return false, nil }

type seenEvent struct {
	ID            int
	PassedAll     bool
	FirstRejector string
	Decisions     []FilterDecision
	RunTimes      map[string]int64
	Phase         Phase
}

type recordingConsumer struct {
	ConsumerBase[testEvent, *testProduct, *config.Config]

	filtered    []int
	events      []seenEvent
	processed   int
	finishCalls int

	initErr    error
	eventErr   error
	finishErr  error
	processErr error
}

func newRecordingConsumer(id string) *recordingConsumer {
	return &recordingConsumer{ConsumerBase: NewConsumerBase[testEvent, *testProduct, *config.Config](id)}
}

func (c *recordingConsumer) Init(p PipelineView[*config.Config]) error {
	if c.initErr != nil {
		return c.initErr
	}
	return c.ConsumerBase.Init(p)
}

func (c *recordingConsumer) ProcessFilteredEvent(e testEvent, _ *testProduct) error {
	c.filtered = append(c.filtered, e.ID)
	return nil
}

func (c *recordingConsumer) ProcessEvent(e testEvent, p *testProduct, r *FilterResult) error {
	if err := c.ConsumerBase.ProcessEvent(e, p, r); err != nil {
		return err
	}
	if c.eventErr != nil {
		return c.eventErr
	}
	c.events = append(c.events, seenEvent{
		ID:            e.ID,
		PassedAll:     r.PassedAll(),
		FirstRejector: r.FirstRejector(),
		Decisions:     r.Decisions(),
		RunTimes:      p.RunTimes(),
		Phase:         p.Phase(),
	})
	return nil
}

func (c *recordingConsumer) Process() error {
	c.processed++
	return c.processErr
}

func (c *recordingConsumer) Finish() error {
	c.finishCalls++
	if err := c.ConsumerBase.Finish(); err != nil {
		return err
	}
	return c.finishErr
}

type loggedError struct {
	msg    string
	err    error
	fields logging.LogFields
}

// captureLogger keeps error lines and drops everything else.
type captureLogger struct {
	mu     *sync.Mutex
	errors *[]loggedError
	fields logging.LogFields
}

func newCaptureLogger() captureLogger {
	return captureLogger{mu: &sync.Mutex{}, errors: &[]loggedError{}}
}

func (l captureLogger) With(fields logging.LogFields) logging.Logger {
	merged := logging.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return captureLogger{mu: l.mu, errors: l.errors, fields: merged}
}

func (l captureLogger) Debug(string, logging.LogFields) {}
func (l captureLogger) Info(string, logging.LogFields)  {}
func (l captureLogger) Trace(string, logging.LogFields) {}

func (l captureLogger) Error(msg string, err error, fields logging.LogFields) {
	merged := logging.LogFields{}
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.errors = append(*l.errors, loggedError{msg: msg, err: err, fields: merged})
}

func (l captureLogger) Errors() []loggedError {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]loggedError(nil), *l.errors...)
}

var errBoom = errors.New("boom")
