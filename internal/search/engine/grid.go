package engine

import "github.com/copyleftdev/ASCENT/internal/search"

// refineSeedCount is how many top results seed the refinement phase.
const refineSeedCount = 5

// runGrid consumes pre-shuffled grid candidates until the supply or the
// allotment runs out.
func (r *run) runGrid(density search.Density, allot int) error {
	candidates := search.GridCandidates(r.defs, density, r.rng)
	return r.runCandidates(candidates, allot)
}

// runRefine evaluates fine-grained perturbations around the best results
// recorded so far.
func (r *run) runRefine(allot int) error {
	top := r.tracker.TopN(refineSeedCount)
	seeds := make([]search.ParameterSet, len(top))
	for i, res := range top {
		seeds[i] = res.Parameters
	}
	candidates := search.RefineCandidates(r.defs, seeds)
	return r.runCandidates(candidates, allot)
}

// runCandidates is the shared evaluation loop: cancellation is checked
// before every evaluation, and the phase ends early when its candidate
// supply is exhausted.
func (r *run) runCandidates(candidates []search.ParameterSet, allot int) error {
	for _, candidate := range candidates {
		if allot <= 0 || r.halted() {
			return nil
		}
		if _, err := r.evaluate(candidate); err != nil {
			return err
		}
		allot--
	}
	return nil
}
