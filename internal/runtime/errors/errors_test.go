package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestSentinelErrorsCarryPrefix(t *testing.T) {
	sentinels := []error{
		ErrSettingsRequired,
		ErrProductRequired,
		ErrUnknownProcessor,
		ErrDuplicateConsumer,
		ErrWrongStageKind,
		ErrLifecycle,
		ErrFilterResultSealed,
		ErrStageIDMismatch,
	}
	for _, err := range sentinels {
		if !strings.HasPrefix(err.Error(), "pipeflow: ") {
			t.Errorf("sentinel %q is missing the pipeflow prefix", err)
		}
	}
}

func TestConfigError(t *testing.T) {
	inner := errors.Join(ErrDuplicateConsumer, ErrUnknownProcessor)
	err := NewConfigError("main", inner)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Pipeline != "main" {
		t.Errorf("Pipeline = %q, want main", cfgErr.Pipeline)
	}
	if !errors.Is(err, ErrDuplicateConsumer) || !errors.Is(err, ErrUnknownProcessor) {
		t.Errorf("joined causes should be reachable through Unwrap: %v", err)
	}
	if !strings.Contains(err.Error(), `pipeline "main"`) {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestNewConfigErrorNil(t *testing.T) {
	if err := NewConfigError("main", nil); err != nil {
		t.Errorf("NewConfigError(nil) = %v, want nil", err)
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("missing jets")
	err := &StageError{StageID: "jets", Kind: "producer", EventIndex: 7, Err: cause}

	want := `pipeflow: producer "jets" failed on event 7: missing jets`
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("StageError should unwrap to its cause")
	}
}

func TestDuplicateFilterError(t *testing.T) {
	err := &DuplicateFilterError{FilterID: "pt_cut"}
	if !strings.Contains(err.Error(), `"pt_cut"`) {
		t.Errorf("unexpected message %q", err.Error())
	}
}
