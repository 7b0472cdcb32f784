package bench

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/ASCENT/internal/search"
)

func TestEvaluatorResolution(t *testing.T) {
	for _, name := range Names() {
		_, ok := Evaluator(name)
		assert.True(t, ok, "objective %q should resolve", name)
	}

	_, ok := Evaluator("no-such-objective")
	assert.False(t, ok)
}

func TestObjectiveOptima(t *testing.T) {
	tests := []struct {
		objective string
		at        search.ParameterSet
		want      float64
	}{
		{"sphere", search.ParameterSet{"x": search.FloatValue(0), "y": search.FloatValue(0)}, 0},
		{"rastrigin", search.ParameterSet{"x": search.FloatValue(0), "y": search.FloatValue(0)}, 0},
		{"rosenbrock", search.ParameterSet{"x": search.FloatValue(1), "y": search.FloatValue(1)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.objective, func(t *testing.T) {
			eval, ok := Evaluator(tt.objective)
			require.True(t, ok)

			score, metrics, err := eval(context.Background(), tt.at, 0)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, score, 1e-9)
			assert.Equal(t, 2.0, metrics["dimensions"])
		})
	}
}

func TestObjectivesAreMaximizedAtOptimum(t *testing.T) {
	// Any off-optimum point must score strictly below the optimum.
	eval, ok := Evaluator("sphere")
	require.True(t, ok)

	off, _, err := eval(context.Background(), search.ParameterSet{"x": search.FloatValue(2)}, 0)
	require.NoError(t, err)
	assert.Less(t, off, 0.0)
}

func TestVectorizeOrderingAndBooleans(t *testing.T) {
	eval, ok := Evaluator("sphere")
	require.True(t, ok)

	params := search.ParameterSet{
		"b":       search.FloatValue(3),
		"a":       search.FloatValue(4),
		"enabled": search.BoolValue(true),
	}

	score, metrics, err := eval(context.Background(), params, 0)
	require.NoError(t, err)
	assert.Equal(t, -25.0, score, "booleans do not contribute")
	assert.Equal(t, 2.0, metrics["dimensions"])
}

func TestEvaluatorHonorsContext(t *testing.T) {
	eval, ok := Evaluator("sphere")
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := eval(ctx, search.ParameterSet{"x": search.FloatValue(1)}, 0)
	assert.Error(t, err)
}
