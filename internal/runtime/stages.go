package runtime

import (
	"github.com/drblury/pipeflow/internal/runtime/logging"
	"github.com/drblury/pipeflow/internal/runtime/output"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
)

// Settings is what a pipeline needs from its configuration. Everything else
// in a settings type is opaque to the pipeline and read only by stages.
type Settings interface {
	GetPipelineName() string
	GetAllProcessors() []string
	GetConsumers() []string
	GetOutputLocation() output.Location
}

// Producer adds data to the product. It is called at most once per event and
// must not remove or reorder what earlier producers wrote. Producers are the
// only stages allowed to write the product; Assign enforces that.
type Producer[E any, P Product, S Settings] interface {
	ProcessNode
	Produce(event E, product P, settings S) error
}

// Filter decides whether an event passes. Evaluate must not modify the
// product; it runs in PhaseFiltering, where Assign returns ErrProductSealed.
// The pipeline records the returned decision.
type Filter[E any, P Product, S Settings] interface {
	ProcessNode
	Evaluate(event E, product P, settings S) (bool, error)
}

// Consumer observes processed events and owns any durable output. The
// product it receives is in PhaseConsuming and is read-only.
type Consumer[E any, P Product, S Settings] interface {
	ProcessNode
	Init(pipeline PipelineView[S]) error
	ProcessFilteredEvent(event E, product P) error
	ProcessEvent(event E, product P, result *FilterResult) error
	Process() error
	Finish() error
}

// PipelineView is the read-only side of a pipeline handed to consumers.
type PipelineView[S Settings] interface {
	GetSettings() S
	Name() string
	RunID() string
	Logger() logging.Logger
	Store() output.Store
}

// ProducerFunc adapts a function to Producer. fn runs in PhaseProducing.
type ProducerFunc[E any, P Product, S Settings] struct {
	ProducerBase
	fn func(E, P, S) error
}

func NewProducerFunc[E any, P Product, S Settings](id string, fn func(E, P, S) error) *ProducerFunc[E, P, S] {
	return &ProducerFunc[E, P, S]{ProducerBase: NewProducerBase(id), fn: fn}
}

func (f *ProducerFunc[E, P, S]) Produce(event E, product P, settings S) error {
	return f.fn(event, product, settings)
}

// FilterFunc adapts a function to Filter. fn must only read the product.
type FilterFunc[E any, P Product, S Settings] struct {
	FilterBase
	fn func(E, P, S) (bool, error)
}

func NewFilterFunc[E any, P Product, S Settings](id string, fn func(E, P, S) (bool, error)) *FilterFunc[E, P, S] {
	return &FilterFunc[E, P, S]{FilterBase: NewFilterBase(id), fn: fn}
}

func (f *FilterFunc[E, P, S]) Evaluate(event E, product P, settings S) (bool, error) {
	return f.fn(event, product, settings)
}

// ConsumerState is the lifecycle position of a consumer.
type ConsumerState int

const (
	ConsumerUninitialized ConsumerState = iota
	ConsumerInitialized
	ConsumerFinished
)

func (s ConsumerState) String() string {
	switch s {
	case ConsumerUninitialized:
		return "uninitialized"
	case ConsumerInitialized:
		return "initialized"
	case ConsumerFinished:
		return "finished"
	}
	return "unknown"
}

// ConsumerBase carries the consumer identity and lifecycle bookkeeping.
// Concrete consumers embed it, provide their own Finish and call the
// embedded Init, ProcessEvent and Finish when they override them.
type ConsumerBase[E any, P Product, S Settings] struct {
	node
	view   PipelineView[S]
	state  ConsumerState
	events uint64
}

func NewConsumerBase[E any, P Product, S Settings](id string) ConsumerBase[E, P, S] {
	return ConsumerBase[E, P, S]{node: node{id: id, kind: KindConsumer}}
}

// Init binds the consumer to its pipeline.
func (c *ConsumerBase[E, P, S]) Init(pipeline PipelineView[S]) error {
	if c.state != ConsumerUninitialized {
		return errspkg.ErrLifecycle
	}
	if pipeline == nil {
		return errspkg.ErrSettingsRequired
	}
	c.view = pipeline
	c.state = ConsumerInitialized
	return nil
}

func (c *ConsumerBase[E, P, S]) ProcessFilteredEvent(E, P) error { return nil }

func (c *ConsumerBase[E, P, S]) ProcessEvent(E, P, *FilterResult) error {
	if c.state != ConsumerInitialized {
		return errspkg.ErrLifecycle
	}
	c.events++
	return nil
}

func (c *ConsumerBase[E, P, S]) Process() error { return nil }

// Finish marks the consumer finished. It fails when called before Init or
// twice.
func (c *ConsumerBase[E, P, S]) Finish() error {
	if c.state != ConsumerInitialized {
		return errspkg.ErrLifecycle
	}
	c.state = ConsumerFinished
	return nil
}

func (c *ConsumerBase[E, P, S]) Pipeline() PipelineView[S] { return c.view }

func (c *ConsumerBase[E, P, S]) GetPipelineSettings() S {
	if c.view == nil {
		var zero S
		return zero
	}
	return c.view.GetSettings()
}

// Logger returns the pipeline logger scoped to this consumer.
func (c *ConsumerBase[E, P, S]) Logger() logging.Logger {
	if c.view == nil {
		return logging.NewNopLogger()
	}
	return c.view.Logger().With(logging.LogFields{"consumer": c.id})
}

// ResolveStore returns store when set, else the pipeline's store.
func (c *ConsumerBase[E, P, S]) ResolveStore(store output.Store) output.Store {
	if store != nil || c.view == nil {
		return store
	}
	return c.view.Store()
}

func (c *ConsumerBase[E, P, S]) State() ConsumerState { return c.state }

// EventsSeen counts events passed to ProcessEvent.
func (c *ConsumerBase[E, P, S]) EventsSeen() uint64 { return c.events }
