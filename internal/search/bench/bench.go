// Package bench provides built-in benchmark objectives for exercising the
// search engine. Each objective maps the numeric dimensions of a parameter
// set onto a standard test function; since the engine maximizes, the
// classical minimization landscapes are negated so their optima remain the
// target.
package bench

import (
	"context"
	"math"
	"sort"

	"github.com/copyleftdev/ASCENT/internal/search"
)

// Objective is a named benchmark fitness function.
type Objective struct {
	Name string
	Fn   func(x []float64) float64
}

var registry = []Objective{
	{"sphere", sphere},
	{"rastrigin", rastrigin},
	{"rosenbrock", rosenbrock},
	{"styblinski-tang", styblinskiTang},
}

// Names lists the registered objectives.
func Names() []string {
	names := make([]string, len(registry))
	for i, o := range registry {
		names[i] = o.Name
	}
	return names
}

// Evaluator resolves a named objective into a search.Evaluator. The second
// return value reports whether the name was known.
func Evaluator(name string) (search.Evaluator, bool) {
	for _, o := range registry {
		o := o
		if o.Name != name {
			continue
		}
		eval := func(ctx context.Context, params search.ParameterSet, iteration int) (float64, map[string]float64, error) {
			if err := ctx.Err(); err != nil {
				return 0, nil, err
			}
			x := vectorize(params)
			score := o.Fn(x)
			return score, map[string]float64{"dimensions": float64(len(x))}, nil
		}
		return eval, true
	}
	return nil, false
}

// vectorize flattens the numeric dimensions of a set into a vector, ordered
// by name so the mapping is stable. Boolean dimensions are skipped.
func vectorize(params search.ParameterSet) []float64 {
	names := make([]string, 0, len(params))
	for name, v := range params {
		if v.Kind != search.KindBoolean {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	x := make([]float64, len(names))
	for i, name := range names {
		x[i] = params[name].Num
	}
	return x
}

// sphere is -sum(x_i^2); maximum 0 at the origin.
func sphere(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return -sum
}

// rastrigin is the negated Rastrigin function; maximum 0 at the origin.
func rastrigin(x []float64) float64 {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return -sum
}

// rosenbrock is the negated Rosenbrock valley; maximum 0 at (1, ..., 1).
func rosenbrock(x []float64) float64 {
	if len(x) < 2 {
		return sphere(x)
	}
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return -sum
}

// styblinskiTang is the negated Styblinski–Tang function; its maximum is
// about 39.166*n at x_i ≈ -2.9035.
func styblinskiTang(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v*v*v*v - 16*v*v + 5*v
	}
	return -sum / 2
}
