package runtime

import (
	"math"
	"sort"
	"time"
)

const latencySampleSize = 256

// LatencyMetrics summarises recent stage latencies in microseconds.
type LatencyMetrics struct {
	SampleSize    int   `json:"sample_size"`
	P50Micros     int64 `json:"p50_us"`
	P95Micros     int64 `json:"p95_us"`
	P99Micros     int64 `json:"p99_us"`
	AverageMicros int64 `json:"average_us"`
	LastMicros    int64 `json:"last_us"`
}

// StageStats is a snapshot of one stage's activity in a pipeline.
type StageStats struct {
	StageID     string         `json:"stage_id"`
	Kind        NodeKind       `json:"kind"`
	Calls       uint64         `json:"calls"`
	Failures    uint64         `json:"failures"`
	Rejections  uint64         `json:"rejections,omitempty"`
	TotalMicros int64          `json:"total_us"`
	LastError   string         `json:"last_error,omitempty"`
	Latency     LatencyMetrics `json:"latency"`
}

type stageStats struct {
	StageStats
	window *latencyWindow
}

func newStageStats(id string, kind NodeKind) *stageStats {
	return &stageStats{
		StageStats: StageStats{StageID: id, Kind: kind},
		window:     newLatencyWindow(latencySampleSize),
	}
}

func (s *stageStats) observe(d time.Duration, err error) {
	s.Calls++
	s.TotalMicros += d.Microseconds()
	if err != nil {
		s.Failures++
		s.LastError = err.Error()
	}
	s.window.Add(d)
}

func (s *stageStats) snapshot() StageStats {
	out := s.StageStats
	out.Latency = s.window.Snapshot()
	return out
}

type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	if lw == nil || len(lw.samples) == 0 {
		return
	}
	lw.samples[lw.next] = d.Microseconds()
	lw.last = d.Microseconds()
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	var metrics LatencyMetrics
	if lw == nil {
		return metrics
	}
	metrics.LastMicros = lw.last
	if lw.filled == 0 {
		return metrics
	}
	samples := make([]int64, lw.filled)
	for i := range lw.filled {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		samples[i] = lw.samples[idx]
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	metrics.SampleSize = lw.filled
	metrics.P50Micros = percentile(samples, 0.50)
	metrics.P95Micros = percentile(samples, 0.95)
	metrics.P99Micros = percentile(samples, 0.99)
	var sum int64
	for _, v := range samples {
		sum += v
	}
	metrics.AverageMicros = sum / int64(len(samples))
	return metrics
}

func percentile(samples []int64, quantile float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	if quantile <= 0 {
		return samples[0]
	}
	if quantile >= 1 {
		return samples[len(samples)-1]
	}
	pos := quantile * float64(len(samples)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return samples[lower]
	}
	frac := pos - float64(lower)
	return samples[lower] + int64(float64(samples[upper]-samples[lower])*frac)
}
