package runtime

import (
	errspkg "github.com/drblury/pipeflow/internal/runtime/errors"
)

// NoRejector is returned by FirstRejector when every filter passed.
const NoRejector = "none"

// FilterDecision is one filter's outcome for one event.
type FilterDecision struct {
	FilterID string `json:"filter_id"`
	Passed   bool   `json:"passed"`
	Errored  bool   `json:"errored,omitempty"`
}

// FilterResult is the decision log of one event. It is written during the
// filter phase and read-only afterwards.
type FilterResult struct {
	decisions []FilterDecision
	index     map[string]int
	sealed    bool
}

func NewFilterResult() *FilterResult {
	return &FilterResult{index: make(map[string]int)}
}

// RecordDecision appends a decision. A filter may decide once per event.
func (r *FilterResult) RecordDecision(filterID string, passed bool) error {
	return r.record(FilterDecision{FilterID: filterID, Passed: passed})
}

func (r *FilterResult) record(d FilterDecision) error {
	if r.sealed {
		return errspkg.ErrFilterResultSealed
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if _, dup := r.index[d.FilterID]; dup {
		return &errspkg.DuplicateFilterError{FilterID: d.FilterID}
	}
	r.index[d.FilterID] = len(r.decisions)
	r.decisions = append(r.decisions, d)
	return nil
}

// PassedAll is true when no recorded decision rejected, including when no
// filter ran.
func (r *FilterResult) PassedAll() bool {
	for _, d := range r.decisions {
		if !d.Passed {
			return false
		}
	}
	return true
}

// FirstRejector returns the earliest rejecting filter or NoRejector.
func (r *FilterResult) FirstRejector() string {
	for _, d := range r.decisions {
		if !d.Passed {
			return d.FilterID
		}
	}
	return NoRejector
}

// Rejectors lists every rejecting filter in evaluation order.
func (r *FilterResult) Rejectors() []string {
	var out []string
	for _, d := range r.decisions {
		if !d.Passed {
			out = append(out, d.FilterID)
		}
	}
	return out
}

// Decision returns the outcome recorded by filterID.
func (r *FilterResult) Decision(filterID string) (FilterDecision, bool) {
	i, ok := r.index[filterID]
	if !ok {
		return FilterDecision{}, false
	}
	return r.decisions[i], true
}

// Decisions returns a copy of the log in evaluation order.
func (r *FilterResult) Decisions() []FilterDecision {
	return append([]FilterDecision(nil), r.decisions...)
}

func (r *FilterResult) Len() int     { return len(r.decisions) }
func (r *FilterResult) Sealed() bool { return r.sealed }

func (r *FilterResult) seal() { r.sealed = true }
