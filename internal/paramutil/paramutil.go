// Package paramutil reads typed values out of the loosely typed maps decoded
// from scenario YAML: action params, preconditions and effects.
package paramutil

import (
	"fmt"

	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
)

// GetOptionalString returns params[key] as a string. found is false when the
// key is absent; a present key of another type is a ValidationError.
func GetOptionalString(params map[string]interface{}, key string) (string, bool, error) {
	value, exists := params[key]
	if !exists {
		return "", false, nil
	}
	strValue, ok := value.(string)
	if !ok {
		return "", false, goaperrors.NewValidationError(fmt.Sprintf("parameter '%s' must be a string, got %T", key, value), nil)
	}
	return strValue, true, nil
}

// GetOptionalBool returns params[key] as a bool.
func GetOptionalBool(params map[string]interface{}, key string) (bool, bool, error) {
	value, exists := params[key]
	if !exists {
		return false, false, nil
	}
	boolValue, ok := value.(bool)
	if !ok {
		return false, false, goaperrors.NewValidationError(fmt.Sprintf("parameter '%s' must be a boolean, got %T", key, value), nil)
	}
	return boolValue, true, nil
}

// GetOptionalFloat returns params[key] as a float64, accepting any numeric
// type the YAML decoder may produce.
func GetOptionalFloat(params map[string]interface{}, key string) (float64, bool, error) {
	value, exists := params[key]
	if !exists {
		return 0, false, nil
	}
	f, ok := ToFloat(value)
	if !ok {
		return 0, false, goaperrors.NewValidationError(fmt.Sprintf("parameter '%s' must be a number, got %T", key, value), nil)
	}
	return f, true, nil
}

// ToFloat converts the numeric types produced by yaml.v3 to float64.
func ToFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// GetRequiredSlice returns params[key] as a list. yaml.v3 decodes sequences
// into []interface{}.
func GetRequiredSlice(params map[string]interface{}, key string) ([]interface{}, error) {
	value, exists := params[key]
	if !exists {
		return nil, goaperrors.NewValidationError(fmt.Sprintf("missing required parameter '%s'", key), nil)
	}
	sliceValue, ok := value.([]interface{})
	if !ok {
		return nil, goaperrors.NewValidationError(fmt.Sprintf("parameter '%s' must be a list, got %T", key, value), nil)
	}
	if len(sliceValue) == 0 {
		return nil, goaperrors.NewValidationError(fmt.Sprintf("parameter '%s' must not be empty", key), nil)
	}
	return sliceValue, nil
}

// GetOptionalMap returns params[key] as a string-keyed map, converting
// map[interface{}]interface{} when needed.
func GetOptionalMap(params map[string]interface{}, key string) (map[string]interface{}, bool, error) {
	value, exists := params[key]
	if !exists {
		return nil, false, nil
	}
	if mapValue, ok := value.(map[string]interface{}); ok {
		return mapValue, true, nil
	}
	if genericMap, ok := value.(map[interface{}]interface{}); ok {
		converted := make(map[string]interface{}, len(genericMap))
		for k, v := range genericMap {
			strKey, ok := k.(string)
			if !ok {
				return nil, false, goaperrors.NewValidationError(fmt.Sprintf("parameter '%s' must be a map with string keys, found key of type %T", key, k), nil)
			}
			converted[strKey] = v
		}
		return converted, true, nil
	}
	return nil, false, goaperrors.NewValidationError(fmt.Sprintf("parameter '%s' must be a map, got %T", key, value), nil)
}

// CheckAllowed rejects keys of params missing from allowed. An empty allowed
// list accepts everything.
func CheckAllowed(params map[string]interface{}, allowed []string) error {
	if len(allowed) == 0 {
		return nil
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, key := range allowed {
		allowedSet[key] = struct{}{}
	}
	for key := range params {
		if _, ok := allowedSet[key]; !ok {
			return goaperrors.NewValidationError(fmt.Sprintf("unknown parameter '%s' provided", key), nil)
		}
	}
	return nil
}

// IsScalar reports whether value can live in a planner state. States compare
// values with ==, so lists and maps are not allowed.
func IsScalar(value interface{}) bool {
	switch value.(type) {
	case nil, bool, string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	default:
		return false
	}
}

// Normalize maps numeric values onto int or float64 so that 3 from a
// precondition and 3 from an effect compare equal regardless of how the
// decoder typed them. Non-numeric scalars are returned unchanged.
func Normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		if int64(int(v)) == v {
			return int(v)
		}
		return v
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case float32:
		return float64(v)
	default:
		return value
	}
}

// NormalizeMap applies Normalize to every value of m.
func NormalizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = Normalize(v)
	}
	return out
}
