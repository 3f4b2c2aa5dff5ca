package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrSettingsRequired     = sterrors.New("pipeflow: settings are required")
	ErrProductRequired      = sterrors.New("pipeflow: product constructor is required")
	ErrStageRequired        = sterrors.New("pipeflow: stage is required")
	ErrStageIDRequired      = sterrors.New("pipeflow: stage id is required")
	ErrInvalidProcessNode   = sterrors.New("pipeflow: invalid process node specification")
	ErrUnknownProcessor     = sterrors.New("pipeflow: unknown processor")
	ErrDuplicateProcessor   = sterrors.New("pipeflow: duplicate processor id")
	ErrDuplicateConsumer    = sterrors.New("pipeflow: duplicate consumer id")
	ErrWrongStageKind       = sterrors.New("pipeflow: stage placed in the wrong stage list")
	ErrLifecycle            = sterrors.New("pipeflow: lifecycle violation")
	ErrFilterResultSealed   = sterrors.New("pipeflow: filter result is sealed")
	ErrProductSealed        = sterrors.New("pipeflow: product is read-only outside the producer phase")
	ErrOutputSystemUnknown  = sterrors.New("pipeflow: unknown output system")
	ErrTableExists          = sterrors.New("pipeflow: output table already opened")
	ErrTableClosed          = sterrors.New("pipeflow: output table already flushed")
	ErrColumnCountMismatch  = sterrors.New("pipeflow: row does not match table columns")
	ErrOutputFileRequired   = sterrors.New("pipeflow: output file is required")
	ErrPublisherRequired    = sterrors.New("pipeflow: publisher is required")
	ErrValueFuncRequired    = sterrors.New("pipeflow: value function is required")
	ErrConfigRequired       = sterrors.New("pipeflow: configuration is required")
	ErrDuplicateDefinition  = sterrors.New("pipeflow: stage name already registered")
	ErrUnsupportedRowFormat = sterrors.New("pipeflow: unsupported row format")
	ErrStoreRequired        = sterrors.New("pipeflow: output store is required")
	ErrStageIDMismatch      = sterrors.New("pipeflow: stage id does not match its configured name")
	ErrUnknownFilterPolicy  = sterrors.New("pipeflow: unknown filter policy")
)

// ConfigError reports a pipeline that cannot start. Err usually joins every
// problem found during Init.
type ConfigError struct {
	Pipeline string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Pipeline == "" {
		return "pipeflow: invalid configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("pipeflow: invalid configuration for pipeline %q: %v", e.Pipeline, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError returns nil when err is nil.
func NewConfigError(pipeline string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Pipeline: pipeline, Err: err}
}

// StageError is a recoverable failure of one producer or filter for one event.
type StageError struct {
	StageID    string
	Kind       string
	EventIndex uint64
	Err        error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeflow: %s %q failed on event %d: %v", e.Kind, e.StageID, e.EventIndex, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// DuplicateFilterError signals that one filter recorded two decisions for the
// same event. It is a composition bug and is never recovered.
type DuplicateFilterError struct {
	FilterID string
}

func (e *DuplicateFilterError) Error() string {
	return fmt.Sprintf("pipeflow: filter %q recorded more than one decision for the same event", e.FilterID)
}

// PanicError carries a value recovered from a panicking stage.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pipeflow: stage panicked: %v", e.Value)
}
