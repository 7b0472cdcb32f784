package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/ASCENT/internal/search"
)

func seedBest(r *run, params search.ParameterSet, score float64) {
	r.tracker.Record(search.EvaluationResult{
		Iteration:  0,
		Parameters: params,
		Score:      score,
		Timestamp:  time.Now(),
	})
}

func TestLocalSearchClimbsToOptimum(t *testing.T) {
	defs := []search.ParameterDefinition{
		{Name: "x", Type: search.KindInteger, Min: 0, Max: 100, Step: 5},
	}

	score := func(x float64) float64 { return -(x - 40) * (x - 40) }
	count := 0
	var r *run
	r = newTestRun(t, defs, func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		count++
		return score(params["x"].Num), nil, nil
	})

	seedBest(r, search.ParameterSet{"x": search.IntValue(0)}, score(0))

	require.NoError(t, r.runLocalSearch(200))

	best := r.tracker.Best()
	require.NotNil(t, best)
	assert.Equal(t, int64(40), best.Parameters["x"].Int())
	assert.Equal(t, 0.0, best.Score)
	assert.Greater(t, count, 0)
}

func TestLocalSearchFirstImprovementPerParameter(t *testing.T) {
	defs := []search.ParameterDefinition{
		{Name: "x", Type: search.KindInteger, Min: 0, Max: 100, Step: 10},
	}

	var visited []int64
	r := newTestRun(t, defs, nil)
	r.eval = func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		x := params["x"].Int()
		visited = append(visited, x)
		return float64(x), nil, nil
	}

	seedBest(r, search.ParameterSet{"x": search.IntValue(50)}, 50)

	require.NoError(t, r.runLocalSearch(200))

	// Neighbors are tried in {-2,-1,+1,+2} step order; +1 is the first
	// improvement, so +2 is never reached within a round.
	assert.Equal(t, []int64{30, 40, 60}, visited[:3])
	assert.Equal(t, int64(100), r.tracker.Best().Parameters["x"].Int())
}

func TestLocalSearchStopsWhenNoImprovement(t *testing.T) {
	defs := []search.ParameterDefinition{
		{Name: "x", Type: search.KindFloat, Min: -10, Max: 10, Step: 1},
	}

	count := 0
	r := newTestRun(t, defs, func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		count++
		x := params["x"].Num
		return -x * x, nil, nil
	})

	seedBest(r, search.ParameterSet{"x": search.FloatValue(0)}, 0)

	require.NoError(t, r.runLocalSearch(200))

	// One full pass over the four neighbors, none better, done.
	assert.Equal(t, 4, count)
}

func TestLocalSearchRespectsBudget(t *testing.T) {
	defs := []search.ParameterDefinition{
		{Name: "x", Type: search.KindInteger, Min: 0, Max: 1000, Step: 1},
	}

	count := 0
	r := newTestRun(t, defs, func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		count++
		return params["x"].Num, nil, nil
	})

	seedBest(r, search.ParameterSet{"x": search.IntValue(0)}, 0)

	require.NoError(t, r.runLocalSearch(7))
	assert.Equal(t, 7, count)
}

func TestLocalSearchSkipsBooleans(t *testing.T) {
	defs := []search.ParameterDefinition{
		{Name: "flag", Type: search.KindBoolean},
	}

	count := 0
	r := newTestRun(t, defs, func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		count++
		return 0, nil, nil
	})

	seedBest(r, search.ParameterSet{"flag": search.BoolValue(true)}, 1)

	require.NoError(t, r.runLocalSearch(10))
	assert.Zero(t, count, "boolean dimensions have no neighbors")
}

func TestLocalSearchWithoutBestIsNoOp(t *testing.T) {
	count := 0
	r := newTestRun(t, floatDefs("a"), func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		count++
		return 0, nil, nil
	})

	require.NoError(t, r.runLocalSearch(10))
	assert.Zero(t, count)
}
