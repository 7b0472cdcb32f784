package search

import (
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Density is the number of discrete sample values a numeric dimension is
// split into during grid generation.
type Density int

const (
	DensityBasic    Density = 3
	DensityCoarse   Density = 5
	DensityStandard Density = 7
	DensityFine     Density = 10
)

// MaxGridCandidates bounds the Cartesian-product enumeration regardless of
// dimensionality.
const MaxGridCandidates = 10000

// SampleValues returns the discrete values a single dimension contributes to
// the grid. Booleans always contribute exactly {true, false}; numeric kinds
// contribute up to density evenly spaced values from Min to Max inclusive,
// with integer rounding collapses removed.
func SampleValues(def ParameterDefinition, density Density) []Value {
	if def.Type == KindBoolean {
		return []Value{BoolValue(true), BoolValue(false)}
	}

	n := int(density)
	if n < 2 || def.Min == def.Max {
		return []Value{clampValue(def, def.Min)}
	}

	span := floats.Span(make([]float64, n), def.Min, def.Max)
	values := make([]Value, 0, n)
	var last Value
	for i, num := range span {
		v := clampValue(def, num)
		if i > 0 && v == last {
			continue
		}
		values = append(values, v)
		last = v
	}
	return values
}

// CartesianCount returns the size of the full grid at the given density,
// saturating at MaxGridCandidates.
func CartesianCount(defs []ParameterDefinition, density Density) int {
	count := 1
	for _, def := range defs {
		count *= len(SampleValues(def, density))
		if count >= MaxGridCandidates {
			return MaxGridCandidates
		}
	}
	return count
}

// GridCandidates enumerates the Cartesian product of per-dimension sample
// values, deduplicated, capped at MaxGridCandidates, and returned in a
// uniformly shuffled order so that early termination still samples broadly
// across the space.
func GridCandidates(defs []ParameterDefinition, density Density, rng *rand.Rand) []ParameterSet {
	axes := make([][]Value, len(defs))
	for i, def := range defs {
		axes[i] = SampleValues(def, density)
	}

	candidates := make([]ParameterSet, 0, CartesianCount(defs, density))
	seen := make(map[string]struct{})

	indices := make([]int, len(axes))
	for {
		set := make(ParameterSet, len(defs))
		for i, def := range defs {
			set[def.Name] = axes[i][indices[i]]
		}
		if key := set.Key(); !dedup(seen, key) {
			candidates = append(candidates, set)
		}
		if len(candidates) >= MaxGridCandidates {
			break
		}

		// Odometer increment over the axes.
		pos := len(indices) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < len(axes[pos]) {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return candidates
}

// RefineCandidates produces fine-grained candidates around prior results:
// for each seed and each numeric dimension, the value is perturbed by one
// and two step units in both directions, clamped to bounds, with the seed's
// other values unchanged. Duplicates by full value equality are removed.
func RefineCandidates(defs []ParameterDefinition, seeds []ParameterSet) []ParameterSet {
	candidates := make([]ParameterSet, 0, len(seeds)*len(defs)*4)
	seen := make(map[string]struct{})
	for _, seed := range seeds {
		seen[seed.Key()] = struct{}{}
	}

	for _, seed := range seeds {
		for _, def := range defs {
			for _, steps := range []float64{-2, -1, 1, 2} {
				neighbor, ok := Perturb(def, seed, steps)
				if !ok {
					continue
				}
				if key := neighbor.Key(); !dedup(seen, key) {
					candidates = append(candidates, neighbor)
				}
			}
		}
	}
	return candidates
}

// Perturb returns a copy of the set with one numeric dimension moved by the
// given number of step units, clamped to bounds. It reports false for
// boolean dimensions and for perturbations that collapse back onto the
// unperturbed value.
func Perturb(def ParameterDefinition, set ParameterSet, steps float64) (ParameterSet, bool) {
	if def.Type == KindBoolean {
		return nil, false
	}
	cur, ok := set[def.Name]
	if !ok {
		return nil, false
	}
	v := clampValue(def, cur.Num+steps*def.Step)
	if v == cur {
		return nil, false
	}
	neighbor := set.Clone()
	neighbor[def.Name] = v
	return neighbor, true
}

// RandomSet draws a uniform random value per dimension within its bounds.
func RandomSet(defs []ParameterDefinition, rng *rand.Rand) ParameterSet {
	set := make(ParameterSet, len(defs))
	for _, def := range defs {
		if def.Type == KindBoolean {
			set[def.Name] = BoolValue(rng.Intn(2) == 0)
			continue
		}
		set[def.Name] = clampValue(def, def.Min+rng.Float64()*(def.Max-def.Min))
	}
	return set
}

// dedup records key in seen and reports whether it was already present.
func dedup(seen map[string]struct{}, key string) bool {
	if _, ok := seen[key]; ok {
		return true
	}
	seen[key] = struct{}{}
	return false
}
