package collector

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
)

// Failure is one classified failure recorded during a sweep.
type Failure struct {
	ResortID   int64      `json:"resort_id"`
	ResortName string     `json:"resort_name"`
	Type       fault.Type `json:"error_type"`
	Message    string     `json:"message,omitempty"`
	URL        string     `json:"url,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// FailureTracker accumulates failures across one sweep. It is safe for
// concurrent use by the worker pool.
type FailureTracker struct {
	mu       sync.Mutex
	failures []Failure
}

// NewFailureTracker returns an empty tracker.
func NewFailureTracker() *FailureTracker {
	return &FailureTracker{}
}

// Record classifies err and appends an entry. The url is recorded when
// the error does not already carry one.
func (t *FailureTracker) Record(resortID int64, name string, err error, url string) {
	fe := fault.Classify(err, url)
	if fe == nil {
		return
	}

	ref := fe.URL
	if ref == "" {
		ref = url
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = append(t.failures, Failure{
		ResortID:   resortID,
		ResortName: name,
		Type:       fe.Type,
		Message:    fe.Message,
		URL:        ref,
		Timestamp:  time.Now().UTC(),
	})
}

// Len returns the number of recorded failures.
func (t *FailureTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.failures)
}

// Failures returns a copy of the recorded failures.
func (t *FailureTracker) Failures() []Failure {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Failure, len(t.failures))
	copy(out, t.failures)
	return out
}

// ByType groups the recorded failures by class.
func (t *FailureTracker) ByType() map[fault.Type][]Failure {
	groups := make(map[fault.Type][]Failure)
	for _, f := range t.Failures() {
		groups[f.Type] = append(groups[f.Type], f)
	}
	return groups
}

// LogSummary emits one warning per failure class with the affected
// resorts.
func (t *FailureTracker) LogSummary(logger zerolog.Logger) {
	for typ, fs := range t.ByType() {
		names := make([]string, len(fs))
		for i, f := range fs {
			names[i] = f.ResortName
		}
		logger.Warn().
			Str("error_type", string(typ)).
			Int("count", len(fs)).
			Strs("resorts", names).
			Msg("collection failures")
	}
}
