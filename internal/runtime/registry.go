package runtime

import (
	"fmt"
	"sort"
	"sync"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
)

type (
	ProducerConstructor[E any, P Product, S Settings] func(settings S) (Producer[E, P, S], error)
	FilterConstructor[E any, P Product, S Settings]   func(settings S) (Filter[E, P, S], error)
	ConsumerConstructor[E any, P Product, S Settings] func(settings S) (Consumer[E, P, S], error)
)

// Registry resolves the names listed in settings to stage constructors.
type Registry[E any, P Product, S Settings] struct {
	mu        sync.RWMutex
	producers map[string]ProducerConstructor[E, P, S]
	filters   map[string]FilterConstructor[E, P, S]
	consumers map[string]ConsumerConstructor[E, P, S]
}

func NewRegistry[E any, P Product, S Settings]() *Registry[E, P, S] {
	return &Registry[E, P, S]{
		producers: make(map[string]ProducerConstructor[E, P, S]),
		filters:   make(map[string]FilterConstructor[E, P, S]),
		consumers: make(map[string]ConsumerConstructor[E, P, S]),
	}
}

func (r *Registry[E, P, S]) RegisterProducer(name string, ctor ProducerConstructor[E, P, S]) error {
	return register(&r.mu, r.producers, KindProducer, name, ctor)
}

func (r *Registry[E, P, S]) RegisterFilter(name string, ctor FilterConstructor[E, P, S]) error {
	return register(&r.mu, r.filters, KindFilter, name, ctor)
}

func (r *Registry[E, P, S]) RegisterConsumer(name string, ctor ConsumerConstructor[E, P, S]) error {
	return register(&r.mu, r.consumers, KindConsumer, name, ctor)
}

func register[C any](mu *sync.RWMutex, m map[string]C, kind NodeKind, name string, ctor C) error {
	if name == "" {
		return errspkg.ErrStageIDRequired
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := m[name]; dup {
		return fmt.Errorf("%w: %s %q", errspkg.ErrDuplicateDefinition, kind, name)
	}
	m[name] = ctor
	return nil
}

// Names lists the registered names of one kind in sorted order.
func (r *Registry[E, P, S]) Names(kind NodeKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	switch kind {
	case KindProducer:
		names = keys(r.producers)
	case KindFilter:
		names = keys(r.filters)
	case KindConsumer:
		names = keys(r.consumers)
	}
	sort.Strings(names)
	return names
}

func keys[C any](m map[string]C) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (r *Registry[E, P, S]) newProducer(name string, settings S) (Producer[E, P, S], error) {
	r.mu.RLock()
	ctor, ok := r.producers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: producer %q", errspkg.ErrUnknownProcessor, name)
	}
	return ctor(settings)
}

func (r *Registry[E, P, S]) newFilter(name string, settings S) (Filter[E, P, S], error) {
	r.mu.RLock()
	ctor, ok := r.filters[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: filter %q", errspkg.ErrUnknownProcessor, name)
	}
	return ctor(settings)
}

func (r *Registry[E, P, S]) newConsumer(name string, settings S) (Consumer[E, P, S], error) {
	r.mu.RLock()
	ctor, ok := r.consumers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: consumer %q", errspkg.ErrUnknownProcessor, name)
	}
	return ctor(settings)
}
