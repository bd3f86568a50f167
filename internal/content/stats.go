package content

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Fetch outcomes counted by Stats. Upstream HTTP failures are counted under
// their status code, e.g. "404".
const (
	OutcomeOK          = "ok"
	OutcomeInvalidPath = "invalid_path"
	OutcomeCanceled    = "canceled"
	OutcomeError       = "error"
)

// Outcome classifies the result of a fetch.
func Outcome(err error) string {
	var fe *FetchError
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &fe):
		return strconv.Itoa(fe.StatusCode)
	case errors.Is(err, ErrInvalidPath):
		return OutcomeInvalidPath
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

type sample struct {
	timestamp  time.Time
	durationMs int64
	outcome    string
}

// StatsSnapshot is a point-in-time aggregate of fetch latency samples.
type StatsSnapshot struct {
	Count    int            `json:"count"`
	Failures int            `json:"failures"`
	Outcomes map[string]int `json:"outcomes"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// Stats tracks recent fetch latencies within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one fetch sample with an outcome from Outcome.
func (s *Stats) Record(durationMs int64, outcome string) {
	if durationMs < 0 {
		durationMs = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
		outcome:    outcome,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	failures := 0
	outcomes := make(map[string]int)
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
		outcomes[sm.outcome]++
		if sm.outcome != OutcomeOK {
			failures++
		}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:    len(values),
		Failures: failures,
		Outcomes: outcomes,
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
		P99Ms:    percentile(values, 99),
	}
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}

// Instrumented records the latency and outcome of every fetch made through it.
type Instrumented struct {
	Fetcher Fetcher
	Stats   *Stats
}

func (i Instrumented) Fetch(ctx context.Context, docPath string) (Source, error) {
	start := time.Now()
	src, err := i.Fetcher.Fetch(ctx, docPath)
	i.Stats.Record(time.Since(start).Milliseconds(), Outcome(err))
	return src, err
}
