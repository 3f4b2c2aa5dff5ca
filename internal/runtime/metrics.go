package runtime

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomePassed   = "passed"
	OutcomeRejected = "rejected"
	OutcomeErrored  = "errored"
)

// StageMetrics exports per-stage Prometheus collectors.
type StageMetrics struct {
	mu sync.Mutex

	stageDuration   *prometheus.HistogramVec
	stageErrors     *prometheus.CounterVec
	filterDecisions *prometheus.CounterVec
	eventsTotal     *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

func newPipelineCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pipeflow",
			Subsystem: "pipeline",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// NewStageMetrics creates the collectors. A nil registerer uses the default
// Prometheus registry.
func NewStageMetrics(registerer prometheus.Registerer) *StageMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &StageMetrics{
		registerer: registerer,
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pipeflow",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Wall time spent in a producer or filter for one event",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"pipeline", "stage", "kind"},
		),
		stageErrors:     newPipelineCounterVec("stage_errors_total", "Producer and filter failures, including recovered panics", []string{"pipeline", "stage", "kind"}),
		filterDecisions: newPipelineCounterVec("filter_decisions_total", "Filter decisions by outcome", []string{"pipeline", "filter", "outcome"}),
		eventsTotal:     newPipelineCounterVec("events_total", "Events processed by filter outcome", []string{"pipeline", "outcome"}),
	}
}

// Register registers the collectors. Safe to call multiple times.
func (m *StageMetrics) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}
	for _, c := range []prometheus.Collector{m.stageDuration, m.stageErrors, m.filterDecisions, m.eventsTotal} {
		if err := m.registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	m.registered = true
	return nil
}

func (m *StageMetrics) ObserveStage(info StageInfo, d time.Duration, err error) {
	kind := info.Kind.String()
	m.stageDuration.WithLabelValues(info.Pipeline, info.StageID, kind).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(info.Pipeline, info.StageID, kind).Inc()
	}
}

func (m *StageMetrics) RecordDecision(pipeline string, d FilterDecision) {
	outcome := OutcomePassed
	switch {
	case d.Errored:
		outcome = OutcomeErrored
	case !d.Passed:
		outcome = OutcomeRejected
	}
	m.filterDecisions.WithLabelValues(pipeline, d.FilterID, outcome).Inc()
}

func (m *StageMetrics) RecordEvent(pipeline string, passed bool) {
	outcome := OutcomePassed
	if !passed {
		outcome = OutcomeRejected
	}
	m.eventsTotal.WithLabelValues(pipeline, outcome).Inc()
}

// Reset clears every series (useful for testing).
func (m *StageMetrics) Reset() {
	m.stageDuration.Reset()
	m.stageErrors.Reset()
	m.filterDecisions.Reset()
	m.eventsTotal.Reset()
}
