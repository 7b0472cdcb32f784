// Package search defines the parameter model, candidate generation and
// result tracking used by the ASCENT search engine.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the type of a parameter dimension.
type Kind int

const (
	// KindInteger parameters take whole-number values within [Min, Max].
	KindInteger Kind = iota
	// KindFloat parameters take real values within [Min, Max].
	KindFloat
	// KindBoolean parameters take {true, false} and carry no bounds.
	KindBoolean
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	default:
		return "unknown"
	}
}

// MarshalJSON implements json.Marshaler.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "integer":
		*k = KindInteger
	case "float":
		*k = KindFloat
	case "boolean":
		*k = KindBoolean
	default:
		return NewErrorf("unknown parameter type %q", s)
	}
	return nil
}

// Value is a single parameter value. Numeric kinds use Num, booleans use
// Flag. Values are comparable, so parameter sets can be checked for
// equality with ==.
type Value struct {
	Kind Kind
	Num  float64
	Flag bool
}

// IntValue returns an integer-kind value.
func IntValue(v int64) Value { return Value{Kind: KindInteger, Num: float64(v)} }

// FloatValue returns a float-kind value.
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Num: v} }

// BoolValue returns a boolean-kind value.
func BoolValue(v bool) Value { return Value{Kind: KindBoolean, Flag: v} }

// Int returns the value rounded to the nearest integer.
func (v Value) Int() int64 { return int64(math.Round(v.Num)) }

func (v Value) text() string {
	switch v.Kind {
	case KindInteger:
		return strconv.FormatInt(v.Int(), 10)
	case KindBoolean:
		return strconv.FormatBool(v.Flag)
	default:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	}
}

// MarshalJSON implements json.Marshaler. Numeric values marshal as JSON
// numbers, booleans as JSON booleans.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(v.text()), nil
}

// UnmarshalJSON implements json.Unmarshaler. The kind is inferred from the
// JSON token; Normalize coerces it to the owning definition's type.
func (v *Value) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = BoolValue(b)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return NewErrorf("invalid parameter value %s", string(data))
	}
	if f == math.Trunc(f) {
		*v = Value{Kind: KindInteger, Num: f}
	} else {
		*v = FloatValue(f)
	}
	return nil
}

// ParameterDefinition describes one searchable dimension. Min, Max and Step
// apply to numeric kinds only.
type ParameterDefinition struct {
	Name    string  `json:"name"`
	Type    Kind    `json:"type"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Step    float64 `json:"step,omitempty"`
	Current Value   `json:"current"`
}

// ParameterSet is one concrete assignment of values to all parameters, a
// single point in the search space. Sets are treated as immutable once
// produced; Clone before mutating.
type ParameterSet map[string]Value

// Clone returns an independent copy of the set.
func (p ParameterSet) Clone() ParameterSet {
	c := make(ParameterSet, len(p))
	for k, v := range p {
		c[k] = v
	}
	return c
}

// Key returns a canonical fingerprint of the set, used to deduplicate
// candidates by full value equality.
func (p ParameterSet) Key() string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(p[name].text())
		b.WriteByte(';')
	}
	return b.String()
}

// Evaluator scores a candidate parameter set. It is the single suspension
// point of a run: the engine treats it as opaque, potentially slow and
// potentially side-effecting, and never assumes determinism. The iteration
// argument is the run-wide monotonic evaluation index.
type Evaluator func(ctx context.Context, params ParameterSet, iteration int) (score float64, metrics map[string]float64, err error)

// Depth selects the phase sequence of a run.
type Depth int

const (
	// DepthBasic runs a single grid phase at basic density.
	DepthBasic Depth = iota
	// DepthStandard runs a coarse grid phase followed by refinement around
	// the top results.
	DepthStandard
	// DepthDeep runs grid, genetic and local-search phases in sequence.
	DepthDeep
)

// String returns the wire name of the depth.
func (d Depth) String() string {
	switch d {
	case DepthBasic:
		return "basic"
	case DepthStandard:
		return "standard"
	case DepthDeep:
		return "deep"
	default:
		return "unknown"
	}
}

// ParseDepth converts a wire name into a Depth.
func ParseDepth(s string) (Depth, error) {
	switch s {
	case "basic":
		return DepthBasic, nil
	case "standard":
		return DepthStandard, nil
	case "deep":
		return DepthDeep, nil
	default:
		return 0, NewErrorf("unknown optimization depth %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (d Depth) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Depth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDepth(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// RunConfig controls a single optimization run.
type RunConfig struct {
	// MaxIterations caps the number of evaluations. Recommended range is
	// [10, 1000].
	MaxIterations int `json:"maxIterations"`
	// Depth selects the phase sequence.
	Depth Depth `json:"optimizationDepth"`
	// Parallel hints that independent candidates may be batched to the
	// evaluator. The core algorithm does not exercise it.
	Parallel bool `json:"parallelProcessing"`
}

// EvaluationResult records a single evaluator call. Created exactly once per
// call and never mutated afterwards.
type EvaluationResult struct {
	Iteration  int                `json:"iteration"`
	Parameters ParameterSet       `json:"parameters"`
	Score      float64            `json:"score"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// Progress is emitted to the registered observer after every evaluation.
type Progress struct {
	Current      int     `json:"current"`
	Total        int     `json:"total"`
	Percentage   float64 `json:"percentage"`
	BestScore    float64 `json:"bestScore"`
	ResultsCount int     `json:"resultsCount"`
}

// ProgressFunc observes run progress. Observer panics are contained and do
// not abort the run.
type ProgressFunc func(Progress)

// RunSummary aggregates the scores of a finished run.
type RunSummary struct {
	BestScore    float64      `json:"bestScore"`
	AverageScore float64      `json:"averageScore"`
	Improvement  float64      `json:"improvement"`
	Parameters   ParameterSet `json:"parameters"`
}

// RunResult is the compiled output of a run. A cancelled run still yields a
// valid, possibly partial, result.
type RunResult struct {
	Success    bool               `json:"success"`
	Duration   time.Duration      `json:"duration"`
	TotalTests int                `json:"totalTests"`
	Best       *EvaluationResult  `json:"bestResult"`
	TopResults []EvaluationResult `json:"topResults"`
	Summary    RunSummary         `json:"summary"`
}

// String renders a short human-readable form of the result.
func (r *RunResult) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("tests=%d best=%.6g avg=%.6g improvement=%.2f%% in %s",
		r.TotalTests, r.Summary.BestScore, r.Summary.AverageScore, r.Summary.Improvement, r.Duration)
}
