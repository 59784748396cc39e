package paramutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxo-labs/goap/internal/paramutil"
	goaperrors "github.com/gxo-labs/goap/pkg/goap/v1/errors"
)

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	var validationErr *goaperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestGetOptionalString(t *testing.T) {
	params := map[string]interface{}{"key": "at", "n": 1}

	v, found, err := paramutil.GetOptionalString(params, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "at", v)

	_, found, err = paramutil.GetOptionalString(params, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = paramutil.GetOptionalString(params, "n")
	assertValidationError(t, err)
}

func TestGetOptionalBool(t *testing.T) {
	params := map[string]interface{}{"on": true, "s": "yes"}

	v, found, err := paramutil.GetOptionalBool(params, "on")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, v)

	_, _, err = paramutil.GetOptionalBool(params, "s")
	assertValidationError(t, err)
}

func TestGetOptionalFloat(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  float64
		ok    bool
	}{
		{name: "int", value: 3, want: 3, ok: true},
		{name: "int64", value: int64(4), want: 4, ok: true},
		{name: "uint", value: uint(5), want: 5, ok: true},
		{name: "float32", value: float32(0.5), want: 0.5, ok: true},
		{name: "float64", value: 1.25, want: 1.25, ok: true},
		{name: "string", value: "1", ok: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, found, err := paramutil.GetOptionalFloat(map[string]interface{}{"x": tc.value}, "x")
			if !tc.ok {
				assertValidationError(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestGetRequiredSlice(t *testing.T) {
	list, err := paramutil.GetRequiredSlice(map[string]interface{}{"targets": []interface{}{"a", "b"}}, "targets")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	for _, params := range []map[string]interface{}{
		{},
		{"targets": []interface{}{}},
		{"targets": "a"},
	} {
		_, err := paramutil.GetRequiredSlice(params, "targets")
		assertValidationError(t, err)
	}
}

func TestGetOptionalMap(t *testing.T) {
	m, found, err := paramutil.GetOptionalMap(map[string]interface{}{
		"costs": map[interface{}]interface{}{"river": 5},
	}, "costs")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, map[string]interface{}{"river": 5}, m)

	_, _, err = paramutil.GetOptionalMap(map[string]interface{}{
		"costs": map[interface{}]interface{}{1: 5},
	}, "costs")
	assertValidationError(t, err)

	_, _, err = paramutil.GetOptionalMap(map[string]interface{}{"costs": []interface{}{}}, "costs")
	assertValidationError(t, err)

	_, found, err = paramutil.GetOptionalMap(map[string]interface{}{}, "costs")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCheckAllowed(t *testing.T) {
	params := map[string]interface{}{"targets": nil, "key": nil}
	assert.NoError(t, paramutil.CheckAllowed(params, []string{"targets", "key", "cost_per_target"}))
	assert.NoError(t, paramutil.CheckAllowed(params, nil))

	err := paramutil.CheckAllowed(params, []string{"targets"})
	assertValidationError(t, err)
	assert.Contains(t, err.Error(), "'key'")
}

func TestIsScalar(t *testing.T) {
	assert.True(t, paramutil.IsScalar("forest"))
	assert.True(t, paramutil.IsScalar(nil))
	assert.True(t, paramutil.IsScalar(uint16(2)))
	assert.False(t, paramutil.IsScalar([]interface{}{1}))
	assert.False(t, paramutil.IsScalar(map[string]interface{}{}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 3, paramutil.Normalize(int64(3)))
	assert.Equal(t, 3, paramutil.Normalize(uint8(3)))
	assert.Equal(t, 0.5, paramutil.Normalize(float32(0.5)))
	assert.Equal(t, "x", paramutil.Normalize("x"))

	assert.Equal(t,
		map[string]interface{}{"a": 1, "b": true},
		paramutil.NormalizeMap(map[string]interface{}{"a": int32(1), "b": true}),
	)
}
