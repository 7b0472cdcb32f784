package search

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// topResultCount is how many results a compiled run reports.
const topResultCount = 10

// Tracker records every evaluation of a run, maintains the running best and
// reports progress. It is owned by a single run and is not safe for
// concurrent use; the engine guarantees a single writer.
type Tracker struct {
	results  []EvaluationResult
	bestIdx  int
	total    int
	observer ProgressFunc

	startTime time.Time
	endTime   time.Time
}

// NewTracker creates a tracker for a run expected to perform total
// evaluations. The estimate only affects progress percentages.
func NewTracker(total int) *Tracker {
	return &Tracker{
		results:   make([]EvaluationResult, 0, total),
		bestIdx:   -1,
		total:     total,
		startTime: time.Now(),
	}
}

// SetObserver registers the progress observer. A nil observer is a no-op,
// not an error.
func (t *Tracker) SetObserver(fn ProgressFunc) {
	t.observer = fn
}

// Record appends a result, advances the best pointer on strict improvement
// only (ties keep the earlier holder), and emits progress.
func (t *Tracker) Record(r EvaluationResult) {
	t.results = append(t.results, r)
	if t.bestIdx < 0 || r.Score > t.results[t.bestIdx].Score {
		t.bestIdx = len(t.results) - 1
	}
	t.reportProgress()
}

// Len returns the number of recorded results.
func (t *Tracker) Len() int {
	return len(t.results)
}

// Best returns the best result recorded so far, or nil before the first
// evaluation.
func (t *Tracker) Best() *EvaluationResult {
	if t.bestIdx < 0 {
		return nil
	}
	best := t.results[t.bestIdx]
	return &best
}

// TopN returns up to n results ordered by descending score. The sort is
// stable, so equal scores keep completion order.
func (t *Tracker) TopN(n int) []EvaluationResult {
	ranked := make([]EvaluationResult, len(t.results))
	copy(ranked, t.results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}

// Finish latches the run's end time. Further calls have no effect, which
// keeps Compile idempotent.
func (t *Tracker) Finish() {
	if t.endTime.IsZero() {
		t.endTime = time.Now()
	}
}

// Compile builds the run result from everything recorded so far. Calling it
// twice on a finished tracker yields identical output.
func (t *Tracker) Compile() *RunResult {
	t.Finish()

	result := &RunResult{
		Success:    true,
		Duration:   t.endTime.Sub(t.startTime),
		TotalTests: len(t.results),
		Best:       t.Best(),
		TopResults: t.TopN(topResultCount),
	}

	if len(t.results) == 0 {
		return result
	}

	scores := make([]float64, len(t.results))
	for i, r := range t.results {
		scores[i] = r.Score
	}

	best := t.results[t.bestIdx]
	result.Summary = RunSummary{
		BestScore:    best.Score,
		AverageScore: stat.Mean(scores, nil),
		Improvement:  improvement(scores[0], best.Score, len(scores)),
		Parameters:   best.Parameters,
	}
	return result
}

// improvement is the percentage gain of the best score over the very first
// evaluation. With fewer than 2 evaluations, or a zero baseline, it is 0.
func improvement(first, best float64, count int) float64 {
	if count < 2 || first == 0 {
		return 0
	}
	return (best - first) / math.Abs(first) * 100
}

// reportProgress emits the current progress to the observer, if any.
// Observer panics are contained so a faulty callback cannot abort the run.
func (t *Tracker) reportProgress() {
	if t.observer == nil {
		return
	}

	current := len(t.results)
	pct := 100.0
	if t.total > 0 {
		pct = math.Min(100, float64(current)/float64(t.total)*100)
	}

	var bestScore float64
	if t.bestIdx >= 0 {
		bestScore = t.results[t.bestIdx].Score
	}

	defer func() {
		_ = recover()
	}()
	t.observer(Progress{
		Current:      current,
		Total:        t.total,
		Percentage:   pct,
		BestScore:    bestScore,
		ResultsCount: current,
	})
}
