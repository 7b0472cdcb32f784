package engine

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/copyleftdev/ASCENT/internal/search"
)

// newTestRun builds a run around a normalized definition list, for driving
// phases directly.
func newTestRun(t *testing.T, defs []search.ParameterDefinition, eval search.Evaluator) *run {
	t.Helper()
	normalized, err := search.Normalize(defs)
	require.NoError(t, err)
	return &run{
		ctx:       context.Background(),
		defs:      normalized,
		eval:      eval,
		tracker:   search.NewTracker(0),
		rng:       rand.New(rand.NewSource(42)),
		logger:    zap.NewNop(),
		cancelled: &atomic.Bool{},
	}
}

func countingEval(count *int) search.Evaluator {
	return func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		*count++
		sum := 0.0
		for _, v := range params {
			if v.Kind != search.KindBoolean {
				sum += v.Num * v.Num
			}
		}
		return -sum, nil, nil
	}
}

func TestGeneticPhaseSizing(t *testing.T) {
	tests := []struct {
		name        string
		budget      int
		wantPop     int
		wantGens    int
		wantMaxEval int
	}{
		// budget=50: population clamp(50/5, 10, 20)=10, generations=5.
		{"typical budget", 50, 10, 5, 50},
		{"clamped up", 30, 10, 3, 30},
		{"clamped down", 200, 20, 10, 200},
		{"too small for a generation", 5, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count := 0
			r := newTestRun(t, floatDefs("a", "b"), countingEval(&count))

			require.NoError(t, r.runGenetic(tt.budget))

			assert.LessOrEqual(t, count, tt.wantMaxEval)
			if tt.wantGens == 0 {
				assert.Zero(t, count, "no generation fits the budget")
				return
			}

			// First generation evaluates the full random population; later
			// ones skip the carried elites.
			elite := int(float64(tt.wantPop) * elitismShare)
			wantEvals := tt.wantPop + (tt.wantGens-1)*(tt.wantPop-elite)
			assert.Equal(t, wantEvals, count)
		})
	}
}

func TestGeneticPhaseSeedsFromTracker(t *testing.T) {
	count := 0
	r := newTestRun(t, floatDefs("a", "b"), countingEval(&count))

	// Pre-record known results; the phase must reuse their fitness instead
	// of re-evaluating them.
	for i := 0; i < 3; i++ {
		r.tracker.Record(search.EvaluationResult{
			Iteration:  i,
			Parameters: search.ParameterSet{"a": search.FloatValue(float64(i)), "b": search.FloatValue(0)},
			Score:      -float64(i * i),
			Timestamp:  time.Now(),
		})
	}

	require.NoError(t, r.runGenetic(50))

	// Generation one only evaluates the 7 random pad individuals.
	elite := 2
	wantEvals := 7 + 4*(10-elite)
	assert.Equal(t, wantEvals, count)
}

func TestGeneticPhaseRespectsBudget(t *testing.T) {
	count := 0
	r := newTestRun(t, floatDefs("a", "b"), countingEval(&count))

	// Budget 12 allows the 10-strong initial generation plus part of the
	// second.
	require.NoError(t, r.runGenetic(12))
	assert.LessOrEqual(t, count, 12)
}

func TestGeneticPhaseHaltsOnCancellation(t *testing.T) {
	count := 0
	r := newTestRun(t, floatDefs("a", "b"), nil)
	r.eval = func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		count++
		if count == 4 {
			r.cancelled.Store(true)
		}
		return 0, nil, nil
	}

	require.NoError(t, r.runGenetic(50))
	assert.Equal(t, 4, count, "in-flight evaluation completes, no new one starts")
}

func TestGeneticPhaseEvaluatorFailure(t *testing.T) {
	r := newTestRun(t, floatDefs("a", "b"), func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
		return 0, nil, assert.AnError
	})

	err := r.runGenetic(50)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestCrossoverInheritsFromParents(t *testing.T) {
	r := newTestRun(t, floatDefs("a", "b"), nil)
	p1 := search.ParameterSet{"a": search.FloatValue(1), "b": search.FloatValue(1)}
	p2 := search.ParameterSet{"a": search.FloatValue(2), "b": search.FloatValue(2)}

	for i := 0; i < 50; i++ {
		child := r.crossover(p1, p2)
		require.Len(t, child, 2)
		for name, v := range child {
			assert.Contains(t, []float64{1, 2}, v.Num, "gene %s from one of the parents", name)
		}
	}
}

func TestTournamentPrefersFitter(t *testing.T) {
	r := newTestRun(t, floatDefs("a"), nil)
	pop := []individual{
		{genes: search.ParameterSet{"a": search.FloatValue(0)}, fitness: 0, evaluated: true},
		{genes: search.ParameterSet{"a": search.FloatValue(1)}, fitness: 100, evaluated: true},
	}

	wins := 0
	const draws = 200
	for i := 0; i < draws; i++ {
		if r.tournament(pop).fitness == 100 {
			wins++
		}
	}
	// Tournament of 3 over 2 individuals picks the fitter unless all three
	// draws land on the weaker one (1/8 chance).
	assert.Greater(t, wins, draws/2)
}

func TestNextGenerationElitism(t *testing.T) {
	r := newTestRun(t, floatDefs("a"), nil)

	pop := make([]individual, 10)
	for i := range pop {
		pop[i] = individual{
			genes:     search.ParameterSet{"a": search.FloatValue(float64(i))},
			fitness:   float64(i),
			evaluated: true,
		}
	}

	next := r.nextGeneration(pop)
	require.Len(t, next, 10)

	// Top 20% carried forward unchanged, fitness intact.
	assert.Equal(t, 9.0, next[0].fitness)
	assert.True(t, next[0].evaluated)
	assert.Equal(t, 8.0, next[1].fitness)

	// Offspring start unevaluated.
	for _, ind := range next[2:] {
		assert.False(t, ind.evaluated)
	}
}
