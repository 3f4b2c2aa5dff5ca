// Package transport builds the Watermill publishers that stream consumer
// output tables to a message broker. Only the publishing side is needed:
// pipelines never read their own output back.
package transport

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
)

const (
	SystemChannel  = "channel"
	SystemIO       = "io"
	SystemKafka    = "kafka"
	SystemNATS     = "nats"
	SystemRabbitMQ = "rabbitmq"
	SystemHTTP     = "http"
)

// Config exposes only the settings publishers need.
type Config interface {
	GetOutputSystem() string
	GetKafkaBrokers() []string
	GetNATSURL() string
	GetRabbitMQURL() string
	GetHTTPPublisherURL() string
	GetIOFile() string
}

// Builder creates a publisher from config.
type Builder func(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error)

// Registry maps output system names to publisher builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry returns a registry preloaded with the built-in publishers.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	r.Register(SystemChannel, channelPublisher)
	r.Register(SystemIO, ioPublisherBuilder)
	r.Register(SystemKafka, kafkaPublisher)
	r.Register(SystemNATS, natsPublisher)
	r.Register(SystemRabbitMQ, rabbitPublisher)
	r.Register(SystemHTTP, httpPublisher)
	return r
}

// DefaultRegistry is used by Build.
var DefaultRegistry = NewRegistry()

// Register adds or replaces a builder.
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// Has reports whether a builder is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered system names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates the publisher selected by cfg.GetOutputSystem().
func (r *Registry) Build(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	name := cfg.GetOutputSystem()

	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", errspkg.ErrOutputSystemUnknown, name, r.Names())
	}
	return builder(cfg, logger)
}

// Build uses DefaultRegistry.
func Build(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return DefaultRegistry.Build(cfg, logger)
}
