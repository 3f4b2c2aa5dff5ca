package runtime

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/drblury/pipeflow/internal/runtime/config"
	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/ids"
	"github.com/drblury/pipeflow/internal/runtime/logging"
	"github.com/drblury/pipeflow/internal/runtime/output"
)

// FilterPolicy selects how the filter phase treats a rejection.
type FilterPolicy string

const (
	// EvaluateAll runs every filter for every event.
	EvaluateAll FilterPolicy = config.FilterPolicyEvaluateAll
	// StopOnReject skips the filters after the first rejection.
	StopOnReject FilterPolicy = config.FilterPolicyStopOnReject
)

type pipelineState int

const (
	stateCreated pipelineState = iota
	stateInitialized
	stateFinished
	stateFailed
)

type options struct {
	logger         logging.Logger
	registry       any
	store          output.Store
	policy         FilterPolicy
	middlewares    []MiddlewareRegistration
	hooks          StageHooks
	metrics        *StageMetrics
	tracerProvider trace.TracerProvider
	noDefaults     bool
}

// Option configures a Pipeline.
type Option func(*options)

func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegistry resolves the stage names listed in settings.
func WithRegistry[E any, P Product, S Settings](r *Registry[E, P, S]) Option {
	return func(o *options) { o.registry = r }
}

// WithStore sets the store consumers reach through PipelineView.Store.
func WithStore(store output.Store) Option {
	return func(o *options) { o.store = store }
}

// WithFilterPolicy overrides the policy read from settings.
func WithFilterPolicy(policy FilterPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// WithMiddlewares adds stage middlewares. They run inside tracing, metrics
// and hooks, and outside panic recovery.
func WithMiddlewares(regs ...MiddlewareRegistration) Option {
	return func(o *options) { o.middlewares = append(o.middlewares, regs...) }
}

func WithHooks(hooks StageHooks) Option {
	return func(o *options) { o.hooks = o.hooks.Merge(hooks) }
}

func WithMetrics(m *StageMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithoutDefaultMiddlewares drops tracing and panic recovery. A panicking
// stage then unwinds through ProcessEvent.
func WithoutDefaultMiddlewares() Option {
	return func(o *options) { o.noDefaults = true }
}

// EventResult is what ProcessEvent returns for one event.
type EventResult[P Product] struct {
	Index   uint64
	Product P
	Filters *FilterResult
	// StageErrors holds the producer and filter failures that were
	// contained for this event.
	StageErrors []*errspkg.StageError
}

// Pipeline runs producers, then filters, then consumers over one event at a
// time. It is not safe for concurrent use; run independent pipelines in
// separate goroutines instead.
type Pipeline[E any, P Product, S Settings] struct {
	settings   S
	newProduct func() P
	opts       options
	name       string
	logger     logging.Logger
	policy     FilterPolicy

	addedProducers []Producer[E, P, S]
	addedFilters   []Filter[E, P, S]
	addedConsumers []Consumer[E, P, S]

	producers []Producer[E, P, S]
	filters   []Filter[E, P, S]
	consumers []Consumer[E, P, S]

	middlewares []MiddlewareRegistration
	state       pipelineState
	runID       string
	events      uint64
	stats       map[string]*stageStats
	statIDs     []string
}

// NewPipeline creates a pipeline. Nothing is validated until Init.
func NewPipeline[E any, P Product, S Settings](settings S, newProduct func() P, opts ...Option) *Pipeline[E, P, S] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.NewNopLogger()
	}
	return &Pipeline[E, P, S]{
		settings:   settings,
		newProduct: newProduct,
		opts:       o,
		logger:     o.logger,
	}
}

func (p *Pipeline[E, P, S]) AddProducer(stage Producer[E, P, S]) error {
	if err := p.checkAddable(stage); err != nil {
		return err
	}
	p.addedProducers = append(p.addedProducers, stage)
	return nil
}

func (p *Pipeline[E, P, S]) AddFilter(stage Filter[E, P, S]) error {
	if err := p.checkAddable(stage); err != nil {
		return err
	}
	p.addedFilters = append(p.addedFilters, stage)
	return nil
}

func (p *Pipeline[E, P, S]) AddConsumer(stage Consumer[E, P, S]) error {
	if err := p.checkAddable(stage); err != nil {
		return err
	}
	p.addedConsumers = append(p.addedConsumers, stage)
	return nil
}

func (p *Pipeline[E, P, S]) checkAddable(stage ProcessNode) error {
	if p.state != stateCreated {
		return fmt.Errorf("%w: stages can only be added before Init", errspkg.ErrLifecycle)
	}
	if isNil(stage) {
		return errspkg.ErrStageRequired
	}
	return nil
}

// Init resolves and validates the stage lists, then initialises every
// consumer in order. On a configuration problem it returns a
// *errors.ConfigError and the pipeline never processes events.
func (p *Pipeline[E, P, S]) Init() error {
	if p.state != stateCreated {
		return fmt.Errorf("%w: Init called twice", errspkg.ErrLifecycle)
	}
	if isNil(p.settings) {
		p.state = stateFailed
		return errspkg.NewConfigError("", errspkg.ErrSettingsRequired)
	}
	p.name = p.settings.GetPipelineName()

	if err := p.resolve(); err != nil {
		p.state = stateFailed
		p.logger.Error("Pipeline configuration rejected", err, logging.LogFields{"pipeline": p.name})
		return err
	}

	p.runID = ids.CreateULID()
	p.logger = p.opts.logger.With(logging.LogFields{"pipeline": p.name, "run_id": p.runID})
	p.middlewares = p.middlewareChain()
	p.stats = make(map[string]*stageStats)
	for _, s := range p.producers {
		p.trackStats(s)
	}
	for _, s := range p.filters {
		p.trackStats(s)
	}

	view := pipelineView[E, P, S]{p: p}
	for _, c := range p.consumers {
		if err := c.Init(view); err != nil {
			p.state = stateFailed
			return fmt.Errorf("pipeflow: consumer %q init: %w", c.ID(), err)
		}
	}

	p.state = stateInitialized
	p.logger.Info("Pipeline initialized", logging.LogFields{
		"producers": len(p.producers),
		"filters":   len(p.filters),
		"consumers": len(p.consumers),
		"policy":    string(p.policy),
	})
	return nil
}

func (p *Pipeline[E, P, S]) resolve() error {
	var errs []error
	if p.newProduct == nil {
		errs = append(errs, errspkg.ErrProductRequired)
	}

	registry, ok := p.opts.registry.(*Registry[E, P, S])
	if p.opts.registry != nil && !ok {
		errs = append(errs, fmt.Errorf("pipeflow: registry type %T does not match pipeline", p.opts.registry))
	}

	for _, spec := range p.settings.GetAllProcessors() {
		kind, name, err := ParseProcessNode(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch kind {
		case KindProducer:
			if registry == nil {
				errs = append(errs, fmt.Errorf("%w: producer %q (no registry)", errspkg.ErrUnknownProcessor, name))
				continue
			}
			stage, err := registry.newProducer(name, p.settings)
			if err == nil {
				err = matchConfiguredName(name, stage)
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			p.producers = append(p.producers, stage)
		case KindFilter:
			if registry == nil {
				errs = append(errs, fmt.Errorf("%w: filter %q (no registry)", errspkg.ErrUnknownProcessor, name))
				continue
			}
			stage, err := registry.newFilter(name, p.settings)
			if err == nil {
				err = matchConfiguredName(name, stage)
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			p.filters = append(p.filters, stage)
		default:
			errs = append(errs, fmt.Errorf("%w: %q listed as a processor", errspkg.ErrWrongStageKind, spec))
		}
	}

	for _, entry := range p.settings.GetConsumers() {
		name := entry
		if strings.Contains(entry, ":") {
			kind, n, err := ParseProcessNode(entry)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if kind != KindConsumer {
				errs = append(errs, fmt.Errorf("%w: %q listed as a consumer", errspkg.ErrWrongStageKind, entry))
				continue
			}
			name = n
		}
		if registry == nil {
			errs = append(errs, fmt.Errorf("%w: consumer %q (no registry)", errspkg.ErrUnknownProcessor, name))
			continue
		}
		stage, err := registry.newConsumer(name, p.settings)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.consumers = append(p.consumers, stage)
	}

	p.producers = append(p.producers, p.addedProducers...)
	p.filters = append(p.filters, p.addedFilters...)
	p.consumers = append(p.consumers, p.addedConsumers...)

	p.policy = p.resolvePolicy()
	switch p.policy {
	case EvaluateAll, StopOnReject:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", errspkg.ErrUnknownFilterPolicy, p.policy))
	}

	errs = append(errs, p.validateStages()...)
	return errspkg.NewConfigError(p.name, errors.Join(errs...))
}

// matchConfiguredName checks that a processor built from settings carries
// the name it was configured under. Runtimes are keyed by stage id.
func matchConfiguredName(name string, stage ProcessNode) error {
	if isNil(stage) || stage.ID() == name {
		return nil
	}
	return fmt.Errorf("%w: %q built a stage with id %q", errspkg.ErrStageIDMismatch, name, stage.ID())
}

func (p *Pipeline[E, P, S]) validateStages() []error {
	var errs []error
	processors := make(map[string]struct{})
	checkProcessor := func(n ProcessNode, want NodeKind) {
		if isNil(n) {
			errs = append(errs, errspkg.ErrStageRequired)
			return
		}
		if n.Kind() != want {
			errs = append(errs, fmt.Errorf("%w: %s %q placed with %ss", errspkg.ErrWrongStageKind, n.Kind(), n.ID(), want))
		}
		if n.ID() == "" {
			errs = append(errs, fmt.Errorf("%w: unnamed %s", errspkg.ErrStageIDRequired, want))
			return
		}
		if _, dup := processors[n.ID()]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", errspkg.ErrDuplicateProcessor, n.ID()))
		}
		processors[n.ID()] = struct{}{}
	}
	for _, s := range p.producers {
		checkProcessor(s, KindProducer)
	}
	for _, s := range p.filters {
		checkProcessor(s, KindFilter)
	}

	consumers := make(map[string]struct{})
	for _, c := range p.consumers {
		if isNil(c) {
			errs = append(errs, errspkg.ErrStageRequired)
			continue
		}
		if c.Kind() != KindConsumer {
			errs = append(errs, fmt.Errorf("%w: %s %q placed with consumers", errspkg.ErrWrongStageKind, c.Kind(), c.ID()))
		}
		if c.ID() == "" {
			errs = append(errs, fmt.Errorf("%w: unnamed consumer", errspkg.ErrStageIDRequired))
			continue
		}
		if _, dup := consumers[c.ID()]; dup {
			errs = append(errs, fmt.Errorf("%w: %q", errspkg.ErrDuplicateConsumer, c.ID()))
		}
		consumers[c.ID()] = struct{}{}
	}
	return errs
}

func (p *Pipeline[E, P, S]) resolvePolicy() FilterPolicy {
	if p.opts.policy != "" {
		return p.opts.policy
	}
	if ps, ok := any(p.settings).(interface{ GetFilterPolicy() string }); ok && ps.GetFilterPolicy() != "" {
		return FilterPolicy(ps.GetFilterPolicy())
	}
	return EvaluateAll
}

func (p *Pipeline[E, P, S]) middlewareChain() []MiddlewareRegistration {
	var regs []MiddlewareRegistration
	if !p.opts.noDefaults {
		regs = append(regs, TracerMiddleware(p.opts.tracerProvider))
	}
	if p.opts.metrics != nil {
		regs = append(regs, MetricsMiddleware(p.opts.metrics))
	}
	if !p.opts.hooks.empty() {
		regs = append(regs, HooksMiddleware(p.opts.hooks))
	}
	regs = append(regs, p.opts.middlewares...)
	if !p.opts.noDefaults {
		regs = append(regs, RecovererMiddleware())
	}
	return regs
}

func (p *Pipeline[E, P, S]) trackStats(n ProcessNode) {
	p.stats[n.ID()] = newStageStats(n.ID(), n.Kind())
	p.statIDs = append(p.statIDs, n.ID())
}

// invoke runs body through the middleware chain and records its wall time
// on the product, even when it fails.
func (p *Pipeline[E, P, S]) invoke(ctx context.Context, n ProcessNode, index uint64, base *ProductBase, body func() error) error {
	var elapsed time.Duration
	call := func(context.Context, StageInfo) error {
		start := time.Now()
		defer func() {
			elapsed = time.Since(start)
			base.recordRunTime(n.ID(), elapsed.Microseconds())
		}()
		return body()
	}

	info := StageInfo{
		Pipeline:   p.name,
		RunID:      p.runID,
		StageID:    n.ID(),
		Kind:       n.Kind(),
		EventIndex: index,
	}
	err := chain(p.middlewares, call)(ctx, info)
	p.stats[n.ID()].observe(elapsed, err)
	return err
}

func (p *Pipeline[E, P, S]) stageFailed(n ProcessNode, index uint64, err error) *errspkg.StageError {
	stageErr := &errspkg.StageError{StageID: n.ID(), Kind: n.Kind().String(), EventIndex: index, Err: err}
	p.logger.Error("Stage failed, skipping the rest of its phase for this event", err, logging.LogFields{
		"stage":       n.ID(),
		"kind":        n.Kind().String(),
		"event_index": index,
	})
	return stageErr
}

// ProcessEvent runs one event through the pipeline. Producer and filter
// failures are contained and reported in the result; the returned error is
// reserved for consumer failures and contract violations, after which the
// pipeline refuses further events.
func (p *Pipeline[E, P, S]) ProcessEvent(ctx context.Context, event E) (*EventResult[P], error) {
	if p.state != stateInitialized {
		return nil, fmt.Errorf("%w: ProcessEvent requires an initialized pipeline", errspkg.ErrLifecycle)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	index := p.events
	p.events++

	product := p.newProduct()
	if isNil(product) || product.Base() == nil {
		p.state = stateFailed
		return nil, errspkg.ErrProductRequired
	}
	base := product.Base()
	base.reset()
	res := &EventResult[P]{Index: index, Product: product, Filters: NewFilterResult()}

	for _, stage := range p.producers {
		err := p.invoke(ctx, stage, index, base, func() error {
			return stage.Produce(event, product, p.settings)
		})
		if err != nil {
			res.StageErrors = append(res.StageErrors, p.stageFailed(stage, index, err))
			break
		}
	}

	base.phase = PhaseFiltering
	for _, stage := range p.filters {
		var passed bool
		err := p.invoke(ctx, stage, index, base, func() error {
			var err error
			passed, err = stage.Evaluate(event, product, p.settings)
			return err
		})

		decision := FilterDecision{FilterID: stage.ID(), Passed: passed && err == nil, Errored: err != nil}
		if recErr := res.Filters.record(decision); recErr != nil {
			p.state = stateFailed
			return res, recErr
		}
		if p.opts.metrics != nil {
			p.opts.metrics.RecordDecision(p.name, decision)
		}
		if !decision.Passed {
			p.stats[stage.ID()].Rejections++
		}
		if err != nil {
			res.StageErrors = append(res.StageErrors, p.stageFailed(stage, index, err))
			break
		}
		if !passed && p.policy == StopOnReject {
			break
		}
	}
	res.Filters.seal()
	base.phase = PhaseConsuming

	passedAll := res.Filters.PassedAll()
	if p.opts.metrics != nil {
		p.opts.metrics.RecordEvent(p.name, passedAll)
	}

	if passedAll {
		for _, c := range p.consumers {
			if err := c.ProcessFilteredEvent(event, product); err != nil {
				return res, p.consumerFailed(c, "ProcessFilteredEvent", err)
			}
		}
	}
	for _, c := range p.consumers {
		if err := c.ProcessEvent(event, product, res.Filters); err != nil {
			return res, p.consumerFailed(c, "ProcessEvent", err)
		}
	}
	return res, nil
}

func (p *Pipeline[E, P, S]) consumerFailed(c ProcessNode, call string, err error) error {
	p.state = stateFailed
	p.logger.Error("Consumer failed, aborting run", err, logging.LogFields{"consumer": c.ID(), "call": call})
	return fmt.Errorf("pipeflow: consumer %q %s: %w", c.ID(), call, err)
}

// Handle processes one event and keeps only the error.
func (p *Pipeline[E, P, S]) Handle(ctx context.Context, event E) error {
	_, err := p.ProcessEvent(ctx, event)
	return err
}

// Process dispatches Process to every consumer, for pipelines that work on
// accumulated state rather than events.
func (p *Pipeline[E, P, S]) Process(ctx context.Context) error {
	if p.state != stateInitialized {
		return fmt.Errorf("%w: Process requires an initialized pipeline", errspkg.ErrLifecycle)
	}
	for _, c := range p.consumers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Process(); err != nil {
			return p.consumerFailed(c, "Process", err)
		}
	}
	return nil
}

// Finish calls Finish on every consumer exactly once, in order, and joins
// their errors.
func (p *Pipeline[E, P, S]) Finish() error {
	if p.state != stateInitialized {
		return fmt.Errorf("%w: Finish requires an initialized, unfinished pipeline", errspkg.ErrLifecycle)
	}
	p.state = stateFinished

	var errs []error
	for _, c := range p.consumers {
		if err := c.Finish(); err != nil {
			errs = append(errs, fmt.Errorf("pipeflow: consumer %q Finish: %w", c.ID(), err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		p.logger.Error("Pipeline finished with consumer errors", err, logging.LogFields{"events": p.events})
		return err
	}
	p.logger.Info("Pipeline finished", logging.LogFields{"events": p.events})
	return nil
}

func (p *Pipeline[E, P, S]) GetSettings() S         { return p.settings }
func (p *Pipeline[E, P, S]) Name() string           { return p.name }
func (p *Pipeline[E, P, S]) RunID() string          { return p.runID }
func (p *Pipeline[E, P, S]) Logger() logging.Logger { return p.logger }
func (p *Pipeline[E, P, S]) Store() output.Store    { return p.opts.store }

// EventsProcessed counts calls to ProcessEvent since Init.
func (p *Pipeline[E, P, S]) EventsProcessed() uint64 { return p.events }

// Stats returns per-stage statistics keyed by stage id.
func (p *Pipeline[E, P, S]) Stats() map[string]StageStats {
	out := make(map[string]StageStats, len(p.stats))
	for _, id := range p.statIDs {
		out[id] = p.stats[id].snapshot()
	}
	return out
}

// Stages returns the resolved stage ids in execution order.
func (p *Pipeline[E, P, S]) Stages() (producers, filters, consumers []string) {
	for _, s := range p.producers {
		producers = append(producers, s.ID())
	}
	for _, s := range p.filters {
		filters = append(filters, s.ID())
	}
	for _, s := range p.consumers {
		consumers = append(consumers, s.ID())
	}
	return producers, filters, consumers
}

// pipelineView hides the mutating half of a pipeline from its consumers.
type pipelineView[E any, P Product, S Settings] struct {
	p *Pipeline[E, P, S]
}

func (v pipelineView[E, P, S]) GetSettings() S         { return v.p.settings }
func (v pipelineView[E, P, S]) Name() string           { return v.p.name }
func (v pipelineView[E, P, S]) RunID() string          { return v.p.runID }
func (v pipelineView[E, P, S]) Logger() logging.Logger { return v.p.logger }
func (v pipelineView[E, P, S]) Store() output.Store    { return v.p.opts.store }

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
