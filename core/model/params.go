package model

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/YuminosukeSato/regselect/pkg/errors"
)

// Params is a set of hyperparameters keyed by their scikit-learn names
// (e.g. "n_estimators", "learning_rate").
type Params map[string]interface{}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the parameters deterministically, e.g. "learning_rate=0.1, n_estimators=64".
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, p[k]))
	}
	return strings.Join(parts, ", ")
}

// AsInt converts a parameter value to int. Integral floats are accepted.
func AsInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int32:
		return int(x), nil
	case int64:
		return int(x), nil
	case float64:
		if x == math.Trunc(x) {
			return int(x), nil
		}
	}
	return 0, errors.NewValidationError(name, "expected an integer", v)
}

// AsFloat converts a parameter value to float64.
func AsFloat(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, errors.NewValidationError(name, "expected a number", v)
}

// AsString converts a parameter value to string.
func AsString(name string, v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", errors.NewValidationError(name, "expected a string", v)
}

// AsBool converts a parameter value to bool.
func AsBool(name string, v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, errors.NewValidationError(name, "expected a boolean", v)
}

// UnknownParam reports a parameter name the estimator does not have.
func UnknownParam(estimator, name string, v interface{}) error {
	return errors.NewValidationError(name, "invalid parameter for "+estimator, v)
}
