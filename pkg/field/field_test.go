package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/pkg/descriptor"
	"github.com/theory-cloud/firedoc/pkg/driver"
)

func compile(t *testing.T, d descriptor.Basic) *descriptor.Compiled {
	t.Helper()
	c, err := descriptor.Compile("f", d)
	require.NoError(t, err)
	return c
}

func TestField_SetThenGet(t *testing.T) {
	c := compile(t, descriptor.String(""))
	f, err := New("f", c, true, "initial", false, nil)
	require.NoError(t, err)

	require.NoError(t, f.Set("updated"))
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "updated", v)
	assert.True(t, f.Written())
	assert.True(t, f.Mutated())
}

func TestField_SetInvalidLeavesPriorStateUntouched(t *testing.T) {
	c := compile(t, descriptor.Integer("min=0"))
	f, err := New("f", c, true, 5.0, false, nil)
	require.NoError(t, err)

	err = f.Set(-1.0)
	require.Error(t, err)

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
	assert.False(t, f.Mutated())
}

func TestField_ImmutableRejectsSetRegardlessOfEquality(t *testing.T) {
	c := compile(t, descriptor.Integer("").Imm())
	f, err := New("f", c, true, 5.0, false, nil)
	require.NoError(t, err)

	err = f.Set(5.0)
	require.Error(t, err)
}

func TestField_Peek_DoesNotFlipReadAccessed(t *testing.T) {
	c := compile(t, descriptor.String(""))
	f, err := New("f", c, true, "v", false, nil)
	require.NoError(t, err)

	_ = f.Peek()
	assert.False(t, f.ReadAccessed())
}

func TestField_WriteValue_DeleteSentinelOnNilOverPresent(t *testing.T) {
	c := compile(t, descriptor.String("").Opt())
	f, err := New("f", c, true, "v", false, nil)
	require.NoError(t, err)

	require.NoError(t, f.Set(nil))
	v, ok := f.WriteValue()
	require.True(t, ok)
	assert.Equal(t, driver.DeleteField, v)
}

func TestNumeric_IncrementByWithoutRead_UsesSentinel(t *testing.T) {
	c := compile(t, descriptor.Integer(""))
	f, err := New("count", c, true, 0.0, false, nil)
	require.NoError(t, err)

	numeric := f.(*Numeric)
	require.NoError(t, numeric.IncrementBy(1))

	v, ok := f.WriteValue()
	require.True(t, ok)
	inc, ok := v.(driver.IncrementSentinel)
	require.True(t, ok)
	assert.Equal(t, 1.0, inc.Delta)
}

func TestNumeric_IncrementByAfterRead_DowngradesToSet(t *testing.T) {
	c := compile(t, descriptor.Integer(""))
	f, err := New("count", c, true, 0.0, false, nil)
	require.NoError(t, err)

	numeric := f.(*Numeric)
	_, err = numeric.Get()
	require.NoError(t, err)

	require.NoError(t, numeric.IncrementBy(1))
	v, ok := f.WriteValue()
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestNumeric_IncrementByWithNoInitial_Raises(t *testing.T) {
	c := compile(t, descriptor.Integer(""))
	f, err := New("count", c, false, nil, false, nil)
	require.NoError(t, err)

	numeric := f.(*Numeric)
	err = numeric.IncrementBy(1)
	require.Error(t, err)
}

func TestField_HasChangesToCommit_SuppressesSilentDefaultOnFetch(t *testing.T) {
	c := compile(t, descriptor.Integer("").WithDefault(5.0))
	// Field constructed with no initial value and the descriptor's default
	// as its only value.
	f, err := New("f", c, false, nil, true, 5.0)
	require.NoError(t, err)

	assert.False(t, f.HasChangesToCommit(false))
	assert.True(t, f.HasChangesToCommit(true))
}

func TestDeepCopy_IndependentMapCopy(t *testing.T) {
	orig := map[string]any{"a": 1.0}
	cp := DeepCopy(orig).(map[string]any)
	cp["a"] = 2.0
	assert.Equal(t, 1.0, orig["a"])
}
