package params

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/neuropipe-io/maxprep/types"
)

// Normalize produces a typed Params from the raw parameter bag.
//
// The bag is never mutated. Keys absent from the document keep the
// documented defaults; keys present with the empty-string sentinel (or an
// explicit null) are treated as explicit nulls. Orchestration bookkeeping
// keys and unknown keys are ignored. Values that already carry their
// native type pass through unchanged, so normalizing an already-normalized
// bag is a no-op.
func Normalize(raw map[string]any) (*Params, error) {
	p := defaults()

	if v, ok := present(raw, KeySTDuration); ok {
		f, err := toFloat(KeySTDuration, v)
		if err != nil {
			return nil, err
		}
		p.STDuration = &f
	}

	if v, ok := present(raw, KeySTCorrelation); ok {
		f, err := toFloat(KeySTCorrelation, v)
		if err != nil {
			return nil, err
		}
		p.STCorrelation = f
	}

	if v, ok := present(raw, KeyOrigin); ok {
		if isAuto(v) {
			p.Origin = OriginSpec{Auto: true}
		} else {
			coords, err := parseVector3(KeyOrigin, v)
			if err != nil {
				return nil, err
			}
			p.Origin = OriginSpec{Coords: coords}
		}
	}

	if v, ok := present(raw, KeyIntOrder); ok {
		n, err := toInt(KeyIntOrder, v)
		if err != nil {
			return nil, err
		}
		p.IntOrder = n
	}

	if v, ok := present(raw, KeyExtOrder); ok {
		n, err := toInt(KeyExtOrder, v)
		if err != nil {
			return nil, err
		}
		p.ExtOrder = n
	}

	if v, ok := present(raw, KeyCoordFrame); ok {
		s, err := toString(KeyCoordFrame, v)
		if err != nil {
			return nil, err
		}
		if s != "head" && s != "meg" {
			return nil, types.NewValidationError(KeyCoordFrame, `must be "head" or "meg"`)
		}
		p.CoordFrame = s
	}

	// Regularize is nullable: an explicit sentinel disables regularization,
	// while an absent key keeps the "in" default.
	if _, exists := raw[KeyRegularize]; exists {
		v, ok := present(raw, KeyRegularize)
		if !ok {
			p.Regularize = nil
		} else {
			s, err := toString(KeyRegularize, v)
			if err != nil {
				return nil, err
			}
			if s != "in" {
				return nil, types.NewValidationError(KeyRegularize, `must be "in" or null`)
			}
			p.Regularize = &s
		}
	}

	if v, ok := present(raw, KeyIgnoreRef); ok {
		b, err := toBool(KeyIgnoreRef, v)
		if err != nil {
			return nil, err
		}
		p.IgnoreRef = b
	}

	if v, ok := present(raw, KeyBadCondition); ok {
		s, err := toString(KeyBadCondition, v)
		if err != nil {
			return nil, err
		}
		switch s {
		case "error", "warning", "info", "ignore":
			p.BadCondition = s
		default:
			return nil, types.NewValidationError(KeyBadCondition,
				`must be one of "error", "warning", "info", "ignore"`)
		}
	}

	if v, ok := present(raw, KeySTFixed); ok {
		b, err := toBool(KeySTFixed, v)
		if err != nil {
			return nil, err
		}
		p.STFixed = b
	}

	if v, ok := present(raw, KeySTOnly); ok {
		b, err := toBool(KeySTOnly, v)
		if err != nil {
			return nil, err
		}
		p.STOnly = b
	}

	if v, ok := present(raw, KeySkipByAnnotation); ok {
		list, err := parseStringList(KeySkipByAnnotation, v)
		if err != nil {
			return nil, err
		}
		p.SkipByAnnotation = list
	}

	if v, ok := present(raw, KeyMagScale); ok {
		if isAuto(v) {
			p.MagScale = AutoScalar{Auto: true}
		} else {
			f, err := toFloat(KeyMagScale, v)
			if err != nil {
				return nil, err
			}
			p.MagScale = AutoScalar{Value: f}
		}
	}

	if v, ok := present(raw, KeyExtendedProj); ok {
		list, err := parseStringList(KeyExtendedProj, v)
		if err != nil {
			return nil, err
		}
		p.ExtendedProj = list
	}

	if v, ok := present(raw, KeyDestination); ok {
		coords, err := parseVector3(KeyDestination, v)
		if err != nil {
			return nil, err
		}
		p.Destination = &coords
	}

	return p, nil
}

// present reports whether the key carries a usable value: present in the
// bag and not the empty-string sentinel or an explicit null.
func present(raw map[string]any, key string) (any, bool) {
	v, ok := raw[key]
	if !ok || isAbsent(v) {
		return nil, false
	}
	return v, true
}

func isAbsent(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func isAuto(v any) bool {
	s, ok := v.(string)
	return ok && s == "auto"
}

func toFloat(key string, v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, types.NewValidationError(key, fmt.Sprintf("not a number: %q", t))
		}
		return f, nil
	default:
		return 0, types.NewValidationError(key, fmt.Sprintf("unsupported type %T", v))
	}
}

func toInt(key string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case float64:
		if t != float64(int(t)) {
			return 0, types.NewValidationError(key, fmt.Sprintf("not an integer: %v", t))
		}
		return int(t), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, types.NewValidationError(key, fmt.Sprintf("not an integer: %q", t))
		}
		return n, nil
	default:
		return 0, types.NewValidationError(key, fmt.Sprintf("unsupported type %T", v))
	}
}

func toBool(key string, v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, types.NewValidationError(key, fmt.Sprintf("not a boolean: %q", t))
		}
		return b, nil
	default:
		return false, types.NewValidationError(key, fmt.Sprintf("unsupported type %T", v))
	}
}

func toString(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", types.NewValidationError(key, fmt.Sprintf("unsupported type %T", v))
	}
	return s, nil
}

// parseVector3 accepts a native 3-element list or a comma-separated string
// "x, y, z". Anything with a different arity fails validation.
func parseVector3(key string, v any) (Vector3, error) {
	var parts []any
	switch t := v.(type) {
	case []any:
		parts = t
	case []float64:
		parts = make([]any, len(t))
		for i, f := range t {
			parts[i] = f
		}
	case string:
		for _, field := range strings.Split(t, ",") {
			parts = append(parts, strings.TrimSpace(field))
		}
	default:
		return Vector3{}, types.NewValidationError(key, fmt.Sprintf("unsupported type %T", v))
	}

	if len(parts) != 3 {
		return Vector3{}, types.NewValidationError(key,
			fmt.Sprintf("must contain three elements, got %d", len(parts)))
	}

	var vec Vector3
	for i, part := range parts {
		f, err := toFloat(key, part)
		if err != nil {
			return Vector3{}, err
		}
		vec[i] = f
	}
	return vec, nil
}

// parseStringList accepts a native string list, the literal "[]" (empty
// list), a bracketed comma-separated string "[a, b]", or a bare string
// (single-element list).
func parseStringList(key string, v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, types.NewValidationError(key, fmt.Sprintf("non-string element %v", item))
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if t == "[]" {
			return []string{}, nil
		}
		if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
			inner := strings.TrimSuffix(strings.TrimPrefix(t, "["), "]")
			var out []string
			for _, field := range strings.Split(inner, ",") {
				out = append(out, strings.TrimSpace(field))
			}
			return out, nil
		}
		return []string{t}, nil
	default:
		return nil, types.NewValidationError(key, fmt.Sprintf("unsupported type %T", v))
	}
}
