package pipeflow

import (
	"github.com/drblury/pipeflow/consumer"
	runtimepkg "github.com/drblury/pipeflow/internal/runtime"
	configpkg "github.com/drblury/pipeflow/internal/runtime/config"
	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	idspkg "github.com/drblury/pipeflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/pipeflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/pipeflow/internal/runtime/logging"
	outputpkg "github.com/drblury/pipeflow/internal/runtime/output"
	transportpkg "github.com/drblury/pipeflow/internal/runtime/transport"
)

type (
	Config = configpkg.Config

	Pipeline[E any, P Product, S Settings] = runtimepkg.Pipeline[E, P, S]
	EventResult[P Product]                 = runtimepkg.EventResult[P]
	Option                                 = runtimepkg.Option
	FilterPolicy                           = runtimepkg.FilterPolicy
	Runner[E any]                          = runtimepkg.Runner[E]
	Runnable[E any]                        = runtimepkg.Runnable[E]
	Registry[E any, P Product, S Settings] = runtimepkg.Registry[E, P, S]

	Settings    = runtimepkg.Settings
	Product     = runtimepkg.Product
	ProductBase = runtimepkg.ProductBase
	Phase       = runtimepkg.Phase

	NodeKind    = runtimepkg.NodeKind
	ProcessNode = runtimepkg.ProcessNode

	Producer[E any, P Product, S Settings]     = runtimepkg.Producer[E, P, S]
	Filter[E any, P Product, S Settings]       = runtimepkg.Filter[E, P, S]
	Consumer[E any, P Product, S Settings]     = runtimepkg.Consumer[E, P, S]
	ConsumerBase[E any, P Product, S Settings] = runtimepkg.ConsumerBase[E, P, S]
	ConsumerState                              = runtimepkg.ConsumerState
	PipelineView[S Settings]                   = runtimepkg.PipelineView[S]
	ProducerBase                               = runtimepkg.ProducerBase
	FilterBase                                 = runtimepkg.FilterBase

	FilterResult   = runtimepkg.FilterResult
	FilterDecision = runtimepkg.FilterDecision

	StageInfo              = runtimepkg.StageInfo
	StageFunc              = runtimepkg.StageFunc
	StageMiddleware        = runtimepkg.StageMiddleware
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	StageContext           = runtimepkg.StageContext
	StageHooks             = runtimepkg.StageHooks
	StageMetrics           = runtimepkg.StageMetrics
	StageStats             = runtimepkg.StageStats
	LatencyMetrics         = runtimepkg.LatencyMetrics

	RunTimeConsumer[E any, P Product, S Settings]                 = consumer.RunTimeConsumer[E, P, S]
	NtupleConsumer[E any, P Product, S consumer.QuantitySettings] = consumer.NtupleConsumer[E, P, S]
	CutFlowConsumer[E any, P Product, S Settings]                 = consumer.CutFlowConsumer[E, P, S]
	QuantitySettings                                              = consumer.QuantitySettings
	ValueFunc[E any, P Product]                                   = consumer.ValueFunc[E, P]
	CutCount                                                      = consumer.CutCount

	Location    = outputpkg.Location
	Column      = outputpkg.Column
	ColumnType  = outputpkg.ColumnType
	Store       = outputpkg.Store
	Table       = outputpkg.Table
	FileStore   = outputpkg.FileStore
	MemoryStore = outputpkg.MemoryStore
	StreamStore = outputpkg.StreamStore

	PublisherBuilder  = transportpkg.Builder
	PublisherRegistry = transportpkg.Registry

	LogFields = loggingpkg.LogFields
	Logger    = loggingpkg.Logger

	ConfigError          = errspkg.ConfigError
	StageError           = errspkg.StageError
	DuplicateFilterError = errspkg.DuplicateFilterError
	PanicError           = errspkg.PanicError
)

const (
	KindProducer = runtimepkg.KindProducer
	KindFilter   = runtimepkg.KindFilter
	KindConsumer = runtimepkg.KindConsumer

	EvaluateAll  = runtimepkg.EvaluateAll
	StopOnReject = runtimepkg.StopOnReject

	UndefinedInt   = runtimepkg.UndefinedInt
	UndefinedFloat = runtimepkg.UndefinedFloat

	RunTimeConsumerID = consumer.RunTimeConsumerID
	NtupleConsumerID  = consumer.NtupleConsumerID
	CutFlowConsumerID = consumer.CutFlowConsumerID

	ColumnInt    = outputpkg.ColumnInt
	ColumnFloat  = outputpkg.ColumnFloat
	ColumnString = outputpkg.ColumnString
)

var (
	LoadConfig       = configpkg.Load
	ParseProcessNode = runtimepkg.ParseProcessNode
	NewFilterResult  = runtimepkg.NewFilterResult
	NewProducerBase  = runtimepkg.NewProducerBase
	NewFilterBase    = runtimepkg.NewFilterBase

	WithLogger                = runtimepkg.WithLogger
	WithStore                 = runtimepkg.WithStore
	WithFilterPolicy          = runtimepkg.WithFilterPolicy
	WithMiddlewares           = runtimepkg.WithMiddlewares
	WithHooks                 = runtimepkg.WithHooks
	WithMetrics               = runtimepkg.WithMetrics
	WithTracerProvider        = runtimepkg.WithTracerProvider
	WithoutDefaultMiddlewares = runtimepkg.WithoutDefaultMiddlewares

	DefaultMiddlewares  = runtimepkg.DefaultMiddlewares
	TracerMiddleware    = runtimepkg.TracerMiddleware
	RecovererMiddleware = runtimepkg.RecovererMiddleware
	MetricsMiddleware   = runtimepkg.MetricsMiddleware
	HooksMiddleware     = runtimepkg.HooksMiddleware
	LoggingHooks        = runtimepkg.LoggingHooks
	MetricsHooks        = runtimepkg.MetricsHooks
	AlertingHooks       = runtimepkg.AlertingHooks
	NewStageMetrics     = runtimepkg.NewStageMetrics

	OpenStore       = outputpkg.Open
	NewFileStore    = outputpkg.NewFileStore
	NewMemoryStore  = outputpkg.NewMemoryStore
	NewStreamStore  = outputpkg.NewStreamStore
	ReadOutputFile  = outputpkg.ReadFile
	DecodeRow       = outputpkg.DecodeRow
	RegisterOutput  = transportpkg.DefaultRegistry.Register
	OutputSystems   = transportpkg.DefaultRegistry.Names
	BuildPublisher  = transportpkg.Build
	NewSlogLogger   = loggingpkg.NewSlogLogger
	NewNopLogger    = loggingpkg.NewNopLogger
	WatermillLogger = loggingpkg.NewWatermillAdapter
	CreateULID      = idspkg.CreateULID

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal

	ErrSettingsRequired    = errspkg.ErrSettingsRequired
	ErrProductRequired     = errspkg.ErrProductRequired
	ErrStageRequired       = errspkg.ErrStageRequired
	ErrInvalidProcessNode  = errspkg.ErrInvalidProcessNode
	ErrUnknownProcessor    = errspkg.ErrUnknownProcessor
	ErrDuplicateProcessor  = errspkg.ErrDuplicateProcessor
	ErrDuplicateConsumer   = errspkg.ErrDuplicateConsumer
	ErrWrongStageKind      = errspkg.ErrWrongStageKind
	ErrLifecycle           = errspkg.ErrLifecycle
	ErrFilterResultSealed  = errspkg.ErrFilterResultSealed
	ErrProductSealed       = errspkg.ErrProductSealed
	ErrOutputSystemUnknown = errspkg.ErrOutputSystemUnknown
	ErrTableExists         = errspkg.ErrTableExists
	ErrStoreRequired       = errspkg.ErrStoreRequired
	ErrStageIDMismatch     = errspkg.ErrStageIDMismatch
	ErrUnknownFilterPolicy = errspkg.ErrUnknownFilterPolicy
)

func NewPipeline[E any, P Product, S Settings](settings S, newProduct func() P, opts ...Option) *Pipeline[E, P, S] {
	return runtimepkg.NewPipeline[E](settings, newProduct, opts...)
}

// Assign writes v to *dst while producers run and returns ErrProductSealed
// afterwards.
func Assign[T any](p Product, dst *T, v T) error {
	return runtimepkg.Assign(p, dst, v)
}

func NewRegistry[E any, P Product, S Settings]() *Registry[E, P, S] {
	return runtimepkg.NewRegistry[E, P, S]()
}

func WithRegistry[E any, P Product, S Settings](r *Registry[E, P, S]) Option {
	return runtimepkg.WithRegistry(r)
}

func NewRunner[E any](logger Logger, pipelines ...Runnable[E]) *Runner[E] {
	return runtimepkg.NewRunner(logger, pipelines...)
}

func NewConsumerBase[E any, P Product, S Settings](id string) ConsumerBase[E, P, S] {
	return runtimepkg.NewConsumerBase[E, P, S](id)
}

func NewProducerFunc[E any, P Product, S Settings](id string, fn func(E, P, S) error) Producer[E, P, S] {
	return runtimepkg.NewProducerFunc(id, fn)
}

func NewFilterFunc[E any, P Product, S Settings](id string, fn func(E, P, S) (bool, error)) Filter[E, P, S] {
	return runtimepkg.NewFilterFunc(id, fn)
}

func NewRunTimeConsumer[E any, P Product, S Settings](store Store) *RunTimeConsumer[E, P, S] {
	return consumer.NewRunTimeConsumer[E, P, S](store)
}

func NewNtupleConsumer[E any, P Product, S QuantitySettings](store Store, value ValueFunc[E, P]) *NtupleConsumer[E, P, S] {
	return consumer.NewNtupleConsumer[E, P, S](store, value)
}

func NewCutFlowConsumer[E any, P Product, S Settings](store Store) *CutFlowConsumer[E, P, S] {
	return consumer.NewCutFlowConsumer[E, P, S](store)
}
