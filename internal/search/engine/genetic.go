package engine

import (
	"sort"

	"go.uber.org/zap"

	"github.com/copyleftdev/ASCENT/internal/search"
)

const (
	geneticPopMin    = 10
	geneticPopMax    = 20
	geneticSeedCount = 5
	// elitismShare of each generation is carried forward unchanged.
	elitismShare = 0.2
	// tournamentSize individuals compete per parent pick.
	tournamentSize = 3
	// mutationRate is per offspring; a triggered mutation re-randomizes
	// every gene, not a single one.
	mutationRate = 0.1
)

// individual is one member of a genetic-phase generation.
type individual struct {
	genes     search.ParameterSet
	fitness   float64
	evaluated bool
}

// runGenetic evolves a fixed-size population for floor(allot/popSize)
// generations, evaluating only individuals whose fitness is not yet known.
func (r *run) runGenetic(allot int) error {
	popSize := allot / 5
	if popSize < geneticPopMin {
		popSize = geneticPopMin
	}
	if popSize > geneticPopMax {
		popSize = geneticPopMax
	}
	generations := allot / popSize
	if generations == 0 {
		return nil
	}

	r.logger.Debug("genetic phase sized",
		zap.Int("population", popSize),
		zap.Int("generations", generations))

	pop := r.seedPopulation(popSize)
	used := 0

	for gen := 0; gen < generations; gen++ {
		for i := range pop {
			if pop[i].evaluated {
				continue
			}
			if used >= allot || r.halted() {
				return nil
			}
			res, err := r.evaluate(pop[i].genes)
			if err != nil {
				return err
			}
			pop[i].fitness = res.Score
			pop[i].evaluated = true
			used++
		}
		if gen < generations-1 {
			pop = r.nextGeneration(pop)
		}
	}
	return nil
}

// seedPopulation starts from the best known results, carrying their scores
// so they are not re-evaluated, and pads with uniform random individuals.
func (r *run) seedPopulation(popSize int) []individual {
	seedCount := geneticSeedCount
	if seedCount > popSize {
		seedCount = popSize
	}

	pop := make([]individual, 0, popSize)
	for _, res := range r.tracker.TopN(seedCount) {
		pop = append(pop, individual{
			genes:     res.Parameters.Clone(),
			fitness:   res.Score,
			evaluated: true,
		})
	}
	for len(pop) < popSize {
		pop = append(pop, individual{genes: search.RandomSet(r.defs, r.rng)})
	}
	return pop
}

// nextGeneration applies elitism, tournament selection, uniform crossover
// and whole-offspring mutation.
func (r *run) nextGeneration(pop []individual) []individual {
	ranked := make([]individual, len(pop))
	copy(ranked, pop)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].fitness > ranked[j].fitness
	})

	elite := int(float64(len(pop)) * elitismShare)
	if elite < 1 {
		elite = 1
	}

	next := make([]individual, 0, len(pop))
	next = append(next, ranked[:elite]...)

	for len(next) < len(pop) {
		p1 := r.tournament(pop)
		p2 := r.tournament(pop)
		genes := r.crossover(p1.genes, p2.genes)
		if r.rng.Float64() < mutationRate {
			genes = search.RandomSet(r.defs, r.rng)
		}
		next = append(next, individual{genes: genes})
	}
	return next
}

// tournament picks the fittest of tournamentSize uniformly random
// individuals.
func (r *run) tournament(pop []individual) individual {
	best := pop[r.rng.Intn(len(pop))]
	for i := 1; i < tournamentSize; i++ {
		c := pop[r.rng.Intn(len(pop))]
		if c.fitness > best.fitness {
			best = c
		}
	}
	return best
}

// crossover inherits each parameter independently from one of the two
// parents with equal probability.
func (r *run) crossover(a, b search.ParameterSet) search.ParameterSet {
	child := make(search.ParameterSet, len(r.defs))
	for _, def := range r.defs {
		if r.rng.Intn(2) == 0 {
			child[def.Name] = a[def.Name]
		} else {
			child[def.Name] = b[def.Name]
		}
	}
	return child
}
