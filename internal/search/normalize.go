package search

import "math"

// defaultStepDivisions is used when a numeric definition arrives without a
// usable step: the range is split into this many step units.
const defaultStepDivisions = 10

// Normalize validates a definition list and applies defensive defaults,
// returning an independent, cleaned copy. Booleans lose their bounds and
// numeric definitions get synthesized bounds and steps where recoverable.
// Unrecoverable definitions (min > max, a numeric dimension with no usable
// range at all, duplicate names) fail the whole run before any evaluation.
func Normalize(defs []ParameterDefinition) ([]ParameterDefinition, error) {
	if len(defs) == 0 {
		return nil, ErrNoParameters
	}

	out := make([]ParameterDefinition, 0, len(defs))
	seen := make(map[string]struct{}, len(defs))

	for _, def := range defs {
		if def.Name == "" {
			return nil, NewError("parameter definition without a name").WithOperation("normalize")
		}
		if _, dup := seen[def.Name]; dup {
			return nil, NewErrorf("duplicate parameter name %q", def.Name).WithOperation("normalize")
		}
		seen[def.Name] = struct{}{}

		switch def.Type {
		case KindBoolean:
			def.Min, def.Max, def.Step = 0, 0, 0
			def.Current = BoolValue(def.Current.Flag)

		case KindInteger, KindFloat:
			if def.Min > def.Max {
				return nil, NewErrorf("parameter %q: min %g exceeds max %g", def.Name, def.Min, def.Max).
					WithOperation("normalize")
			}
			if def.Min == 0 && def.Max == 0 {
				// Bounds were never supplied; synthesize a range around the
				// current value.
				cur := def.Current.Num
				if cur == 0 {
					return nil, NewErrorf("parameter %q: no bounds and zero current value", def.Name).
						WithOperation("normalize")
				}
				def.Min = math.Min(cur/2, cur*2)
				def.Max = math.Max(cur/2, cur*2)
			}
			if def.Step <= 0 {
				def.Step = (def.Max - def.Min) / defaultStepDivisions
				if def.Type == KindInteger && def.Step < 1 {
					def.Step = 1
				}
				if def.Step <= 0 {
					def.Step = 1
				}
			}
			def.Current = coerce(def.Type, def.Current)

		default:
			return nil, NewErrorf("parameter %q: unknown type", def.Name).WithOperation("normalize")
		}

		out = append(out, def)
	}

	return out, nil
}

// coerce forces a value onto the definition's kind, rounding integers.
func coerce(kind Kind, v Value) Value {
	switch kind {
	case KindInteger:
		return IntValue(v.Int())
	case KindFloat:
		return FloatValue(v.Num)
	default:
		return BoolValue(v.Flag)
	}
}

// clampValue produces a value of the definition's kind clamped to its
// bounds, rounding integers.
func clampValue(def ParameterDefinition, num float64) Value {
	num = math.Max(def.Min, math.Min(num, def.Max))
	if def.Type == KindInteger {
		return IntValue(int64(math.Round(num)))
	}
	return FloatValue(num)
}
