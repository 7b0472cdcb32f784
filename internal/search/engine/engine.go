// Package engine implements the phased search controller: a state machine
// that sequences grid, refinement, genetic and local-search phases over a
// shared result tracker.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/ASCENT/internal/search"
)

// DefaultMaxIterations is used when the run configuration leaves the
// iteration budget unset.
const DefaultMaxIterations = 100

// State is the lifecycle state of the engine.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures a new Engine.
type Options struct {
	// Logger receives structured run and phase events. Nil disables logging.
	Logger *zap.Logger
	// Seed fixes the random source for reproducible candidate order.
	// Zero seeds from the wall clock.
	Seed int64
}

// Engine drives at most one optimization run at a time. Phases execute
// strictly sequentially and candidates are evaluated one at a time; the
// injected evaluator is the only suspension point.
type Engine struct {
	mu       sync.Mutex
	state    State
	observer search.ProgressFunc

	logger    *zap.Logger
	rng       *rand.Rand
	cancelled atomic.Bool
}

// New creates an idle engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		state:  StateIdle,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SetProgressObserver registers the callback invoked after every
// evaluation. It takes effect for the next run.
func (e *Engine) SetProgressObserver(fn search.ProgressFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = fn
}

// Stop requests cancellation of the active run. It is idempotent and
// returns immediately; the run halts at its next yield point, so an
// in-flight evaluation still completes and is recorded.
func (e *Engine) Stop() {
	e.cancelled.Store(true)
}

// Optimize executes a run over the given definitions and returns the
// compiled result. It fails fast with search.ErrRunActive while another run
// is in flight. A cancelled run still returns a valid partial result; an
// evaluator failure fails the run and discards partial results.
func (e *Engine) Optimize(ctx context.Context, defs []search.ParameterDefinition, cfg search.RunConfig, eval search.Evaluator) (*search.RunResult, error) {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return nil, search.ErrRunActive
	}
	e.state = StateRunning
	e.cancelled.Store(false)
	observer := e.observer
	e.mu.Unlock()

	result, err := e.execute(ctx, defs, cfg, eval, observer)

	e.mu.Lock()
	switch {
	case err != nil:
		e.state = StateFailed
	case e.cancelled.Load() || ctx.Err() != nil:
		e.state = StateCancelled
	default:
		e.state = StateCompleted
	}
	e.mu.Unlock()

	return result, err
}

func (e *Engine) execute(ctx context.Context, defs []search.ParameterDefinition, cfg search.RunConfig, eval search.Evaluator, observer search.ProgressFunc) (*search.RunResult, error) {
	defs, err := search.Normalize(defs)
	if err != nil {
		return nil, search.WrapError(err, "invalid parameter definitions").WithComponent("engine")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if eval == nil {
		return nil, search.NewError("no evaluator supplied").WithComponent("engine")
	}

	prof := profileFor(cfg.Depth)
	tracker := search.NewTracker(prof.estimate(defs, cfg.MaxIterations))
	tracker.SetObserver(observer)

	r := &run{
		ctx:       ctx,
		defs:      defs,
		eval:      eval,
		tracker:   tracker,
		rng:       e.rng,
		logger:    e.logger,
		cancelled: &e.cancelled,
	}

	e.logger.Info("run started",
		zap.Stringer("depth", cfg.Depth),
		zap.Int("max_iterations", cfg.MaxIterations),
		zap.Int("parameters", len(defs)))

	allocated := 0
	for i, ph := range prof.phases {
		if r.halted() {
			break
		}

		allot := int(ph.share * float64(cfg.MaxIterations))
		if i == len(prof.phases)-1 {
			// The last phase takes the allotment remainder; an absorbing
			// phase additionally inherits budget earlier phases left unspent.
			allot = cfg.MaxIterations - allocated
			if ph.absorb {
				allot = cfg.MaxIterations - r.iteration
			}
		}
		if allot > cfg.MaxIterations-r.iteration {
			allot = cfg.MaxIterations - r.iteration
		}
		allocated += allot

		if allot <= 0 {
			continue
		}
		if ph.needsBest && tracker.Best() == nil {
			e.logger.Debug("phase skipped, no best result yet", zap.Stringer("phase", ph.kind))
			continue
		}

		e.logger.Info("phase started",
			zap.Stringer("phase", ph.kind),
			zap.Int("budget", allot),
			zap.Int("completed", r.iteration))

		if err := r.runPhase(ph, allot); err != nil {
			e.logger.Error("run failed", zap.Stringer("phase", ph.kind), zap.Error(err))
			return nil, search.WrapErrorf(err, "%s phase failed", ph.kind).WithComponent("engine")
		}
	}

	result := tracker.Compile()
	e.logger.Info("run finished",
		zap.Int("total_tests", result.TotalTests),
		zap.Float64("best_score", result.Summary.BestScore),
		zap.Duration("duration", result.Duration),
		zap.Bool("cancelled", r.halted()))
	return result, nil
}

// run holds the state owned exclusively by one Optimize call.
type run struct {
	ctx       context.Context
	defs      []search.ParameterDefinition
	eval      search.Evaluator
	tracker   *search.Tracker
	rng       *rand.Rand
	logger    *zap.Logger
	cancelled *atomic.Bool

	iteration int
}

// halted reports whether the run should stop at the next yield point.
func (r *run) halted() bool {
	return r.cancelled.Load() || r.ctx.Err() != nil
}

// evaluate scores one candidate and records the result. The candidate is
// cloned first so every evaluation owns its parameters.
func (r *run) evaluate(set search.ParameterSet) (search.EvaluationResult, error) {
	n := r.iteration
	r.iteration++

	params := set.Clone()
	score, metrics, err := r.eval(r.ctx, params, n)
	if err != nil {
		return search.EvaluationResult{}, search.WrapErrorf(err, "evaluation %d", n).WithComponent("evaluator")
	}

	result := search.EvaluationResult{
		Iteration:  n,
		Parameters: params,
		Score:      score,
		Metrics:    metrics,
		Timestamp:  time.Now(),
	}
	r.tracker.Record(result)
	return result, nil
}

func (r *run) runPhase(ph phaseSpec, allot int) error {
	switch ph.kind {
	case phaseGrid:
		return r.runGrid(ph.density, allot)
	case phaseRefine:
		return r.runRefine(allot)
	case phaseGenetic:
		return r.runGenetic(allot)
	case phaseLocal:
		return r.runLocalSearch(allot)
	default:
		return search.NewErrorf("unknown phase %d", ph.kind)
	}
}
