package learner

import (
	"sort"
	"strconv"

	"govote/internal/errors"
)

// Params holds resolved hyperparameters for one estimator.
type Params map[string]interface{}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with overrides applied on top.
func (p Params) Merge(overrides Params) Params {
	out := p.Clone()
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Float reads a numeric parameter.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
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
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, errors.ConfigurationError("parameter %s: %q is not a number", key, t)
		}
		return f, nil
	default:
		return 0, errors.ConfigurationError("parameter %s: unsupported type %T", key, v)
	}
}

// Int reads an integral parameter.
func (p Params) Int(key string, def int) (int, error) {
	f, err := p.Float(key, float64(def))
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, errors.ConfigurationError("parameter %s: %v is not an integer", key, f)
	}
	return int(f), nil
}

// String reads a string parameter.
func (p Params) String(key, def string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.ConfigurationError("parameter %s: expected a string, got %T", key, v)
	}
	return s, nil
}

// Keys returns the parameter names, sorted.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParamGrid lists candidate values per parameter.
type ParamGrid map[string][]interface{}

// Expand returns the cartesian product of the grid in a stable order:
// parameters in sorted name order, values in listed order, the last
// parameter varying fastest.
func (g ParamGrid) Expand() []Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []Params{{}}
	for _, k := range keys {
		values := g[k]
		if len(values) == 0 {
			continue
		}
		next := make([]Params, 0, len(out)*len(values))
		for _, base := range out {
			for _, v := range values {
				c := base.Clone()
				c[k] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

// Size returns the number of candidates Expand produces.
func (g ParamGrid) Size() int {
	n := 1
	for _, v := range g {
		if len(v) > 0 {
			n *= len(v)
		}
	}
	return n
}
