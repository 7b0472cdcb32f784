package engine

import "github.com/copyleftdev/ASCENT/internal/search"

// phaseKind identifies a search strategy within a profile.
type phaseKind int

const (
	phaseGrid phaseKind = iota
	phaseRefine
	phaseGenetic
	phaseLocal
)

// String returns the phase name used in logs.
func (k phaseKind) String() string {
	switch k {
	case phaseGrid:
		return "grid"
	case phaseRefine:
		return "refinement"
	case phaseGenetic:
		return "genetic"
	case phaseLocal:
		return "local-search"
	default:
		return "unknown"
	}
}

// phaseSpec is one entry of a depth profile. The phase list and budget split
// are data, so new profiles compose existing phases without touching their
// implementations.
type phaseSpec struct {
	kind    phaseKind
	density search.Density // grid phases only
	share   float64        // fraction of the run's iteration budget
	absorb  bool           // inherits budget earlier phases left unspent
	// needsBest gates the phase on a best result already existing.
	needsBest bool
}

// profile is the fixed phase sequence selected by a depth.
type profile struct {
	phases []phaseSpec
}

var profiles = map[search.Depth]profile{
	search.DepthBasic: {phases: []phaseSpec{
		{kind: phaseGrid, density: search.DensityBasic, share: 1},
	}},
	search.DepthStandard: {phases: []phaseSpec{
		{kind: phaseGrid, density: search.DensityCoarse, share: 0.6},
		{kind: phaseRefine, share: 0.4},
	}},
	search.DepthDeep: {phases: []phaseSpec{
		{kind: phaseGrid, density: search.DensityCoarse, share: 0.3},
		{kind: phaseGenetic, share: 0.4},
		{kind: phaseLocal, share: 0.3, absorb: true, needsBest: true},
	}},
}

// profileFor returns the profile for a depth, falling back to basic for
// values outside the known set.
func profileFor(depth search.Depth) profile {
	if p, ok := profiles[depth]; ok {
		return p
	}
	return profiles[search.DepthBasic]
}

// estimate derives the expected total evaluations for progress reporting.
// A single-grid profile is bounded by the grid's cardinality; multi-phase
// profiles are expected to spend the whole budget.
func (p profile) estimate(defs []search.ParameterDefinition, maxIterations int) int {
	if len(p.phases) == 1 && p.phases[0].kind == phaseGrid {
		if n := search.CartesianCount(defs, p.phases[0].density); n < maxIterations {
			return n
		}
	}
	return maxIterations
}
