package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(iteration int, score float64) EvaluationResult {
	return EvaluationResult{
		Iteration:  iteration,
		Parameters: ParameterSet{"n": IntValue(int64(iteration))},
		Score:      score,
		Timestamp:  time.Now(),
	}
}

func TestTrackerBestMonotonic(t *testing.T) {
	tr := NewTracker(10)
	scores := []float64{1, 3, 2, 3, 5, 4}

	lastBest := 0.0
	for i, s := range scores {
		tr.Record(result(i, s))
		best := tr.Best()
		require.NotNil(t, best)
		assert.GreaterOrEqual(t, best.Score, lastBest, "best only moves up")
		lastBest = best.Score
	}

	assert.Equal(t, 5.0, tr.Best().Score)
	assert.Equal(t, 4, tr.Best().Iteration)
}

func TestTrackerTiesKeepEarliestHolder(t *testing.T) {
	tr := NewTracker(3)
	tr.Record(result(0, 7))
	tr.Record(result(1, 7))

	assert.Equal(t, 0, tr.Best().Iteration, "equal score must not displace the earlier result")
}

func TestTrackerTopN(t *testing.T) {
	tr := NewTracker(5)
	for i, s := range []float64{2, 9, 9, 1, 5} {
		tr.Record(result(i, s))
	}

	top := tr.TopN(3)
	require.Len(t, top, 3)
	assert.Equal(t, []float64{9, 9, 5}, []float64{top[0].Score, top[1].Score, top[2].Score})
	// Stable: completion order breaks the tie.
	assert.Equal(t, 1, top[0].Iteration)
	assert.Equal(t, 2, top[1].Iteration)

	assert.Len(t, tr.TopN(100), 5, "asking for more than recorded returns everything")
}

func TestTrackerBestBeforeFirstResult(t *testing.T) {
	tr := NewTracker(1)
	assert.Nil(t, tr.Best())
	assert.Equal(t, 0, tr.Len())
}

func TestTrackerProgress(t *testing.T) {
	tr := NewTracker(4)
	var seen []Progress
	tr.SetObserver(func(p Progress) { seen = append(seen, p) })

	tr.Record(result(0, 2))
	tr.Record(result(1, 8))

	require.Len(t, seen, 2)
	assert.Equal(t, Progress{Current: 1, Total: 4, Percentage: 25, BestScore: 2, ResultsCount: 1}, seen[0])
	assert.Equal(t, Progress{Current: 2, Total: 4, Percentage: 50, BestScore: 8, ResultsCount: 2}, seen[1])
}

func TestTrackerProgressObserverPanicContained(t *testing.T) {
	tr := NewTracker(2)
	tr.SetObserver(func(Progress) { panic("observer bug") })

	assert.NotPanics(t, func() {
		tr.Record(result(0, 1))
	})
	assert.Equal(t, 1, tr.Len(), "result recorded despite observer panic")
}

func TestTrackerProgressWithoutObserver(t *testing.T) {
	tr := NewTracker(2)
	assert.NotPanics(t, func() {
		tr.Record(result(0, 1))
	})
}

func TestCompile(t *testing.T) {
	tr := NewTracker(3)
	tr.Record(result(0, 10))
	tr.Record(result(1, 15))
	tr.Record(result(2, 5))

	compiled := tr.Compile()

	assert.True(t, compiled.Success)
	assert.Equal(t, 3, compiled.TotalTests)
	require.NotNil(t, compiled.Best)
	assert.Equal(t, 15.0, compiled.Best.Score)
	assert.Equal(t, 15.0, compiled.Summary.BestScore)
	assert.Equal(t, 10.0, compiled.Summary.AverageScore)
	assert.Equal(t, 50.0, compiled.Summary.Improvement, "best over first evaluation")
	assert.Equal(t, compiled.Best.Parameters, compiled.Summary.Parameters)
	require.Len(t, compiled.TopResults, 3)
	assert.Equal(t, 15.0, compiled.TopResults[0].Score)
}

func TestCompileIdempotent(t *testing.T) {
	tr := NewTracker(2)
	tr.Record(result(0, 1))
	tr.Record(result(1, 4))

	first := tr.Compile()
	time.Sleep(5 * time.Millisecond)
	second := tr.Compile()

	assert.Equal(t, first, second)
}

func TestCompileImprovementEdgeCases(t *testing.T) {
	t.Run("single evaluation", func(t *testing.T) {
		tr := NewTracker(1)
		tr.Record(result(0, 42))
		assert.Zero(t, tr.Compile().Summary.Improvement)
	})

	t.Run("zero baseline", func(t *testing.T) {
		tr := NewTracker(2)
		tr.Record(result(0, 0))
		tr.Record(result(1, 9))
		assert.Zero(t, tr.Compile().Summary.Improvement)
	})

	t.Run("negative baseline", func(t *testing.T) {
		tr := NewTracker(2)
		tr.Record(result(0, -10))
		tr.Record(result(1, -5))
		assert.Equal(t, 50.0, tr.Compile().Summary.Improvement)
	})

	t.Run("no evaluations", func(t *testing.T) {
		tr := NewTracker(0)
		compiled := tr.Compile()
		assert.True(t, compiled.Success)
		assert.Zero(t, compiled.TotalTests)
		assert.Nil(t, compiled.Best)
	})
}
