package output

import (
	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
	"github.com/drblury/pipeflow/internal/runtime/logging"
	"github.com/drblury/pipeflow/internal/runtime/transport"
)

// SystemConfig is what Open needs to pick and build a store.
type SystemConfig interface {
	transport.Config
	GetOutputFormat() string
}

// Open builds the store selected by cfg.GetOutputSystem(). "file" (or empty)
// and "memory" are local; every other name is resolved through the transport
// registry and wrapped in a StreamStore.
func Open(cfg SystemConfig, logger logging.Logger) (Store, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	switch cfg.GetOutputSystem() {
	case "", SystemFile:
		return NewFileStore(logger), nil
	case SystemMemory:
		return NewMemoryStore(), nil
	}

	pub, err := transport.Build(cfg, logging.NewWatermillAdapter(logger))
	if err != nil {
		return nil, err
	}
	store, err := NewStreamStore(pub, cfg.GetOutputFormat(), logger.With(logging.LogFields{
		"output_system": cfg.GetOutputSystem(),
	}))
	if err != nil {
		pub.Close()
		return nil, err
	}
	return store, nil
}
