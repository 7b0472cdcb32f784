package engine

import "github.com/copyleftdev/ASCENT/internal/search"

// neighborSteps are the step-unit offsets tried per parameter during hill
// climbing.
var neighborSteps = []float64{-2, -1, 1, 2}

// runLocalSearch hill-climbs from the current best result. Every neighbor
// evaluation is recorded, but the climb re-anchors on the first neighbor
// that strictly beats the current best and immediately moves on to the next
// parameter. Rounds repeat until a full pass over all parameters finds no
// improvement, the allotment is spent, or the run is cancelled.
func (r *run) runLocalSearch(allot int) error {
	best := r.tracker.Best()
	if best == nil {
		return nil
	}
	current := best.Parameters.Clone()
	currentScore := best.Score

	used := 0
	improved := true
	for improved {
		improved = false
		for _, def := range r.defs {
			if def.Type == search.KindBoolean {
				continue
			}
			for _, steps := range neighborSteps {
				neighbor, ok := search.Perturb(def, current, steps)
				if !ok {
					continue
				}
				if used >= allot || r.halted() {
					return nil
				}
				res, err := r.evaluate(neighbor)
				if err != nil {
					return err
				}
				used++
				if res.Score > currentScore {
					current = neighbor
					currentScore = res.Score
					improved = true
					break
				}
			}
		}
	}
	return nil
}
