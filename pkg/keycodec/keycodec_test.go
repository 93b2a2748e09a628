package keycodec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/pkg/descriptor"
)

func TestEncode_SingleNumericComponent(t *testing.T) {
	order := []Component{{Name: "id", Tag: descriptor.TagInteger}}
	encoded, err := Encode(order, map[string]any{"id": 123.0})
	require.NoError(t, err)
	assert.Equal(t, 123.0, encoded)
}

func TestEncode_CompoundKeyLiteralValue(t *testing.T) {
	order := []Component{
		{Name: "raceID", Tag: descriptor.TagInteger},
		{Name: "runnerName", Tag: descriptor.TagString},
	}
	encoded, err := Encode(order, map[string]any{"raceID": 123, "runnerName": "Joe"})
	require.NoError(t, err)
	assert.Equal(t, "123\x00Joe", encoded)
}

func TestEncode_MissingComponent(t *testing.T) {
	order := []Component{{Name: "id", Tag: descriptor.TagString}}
	_, err := Encode(order, map[string]any{})
	require.Error(t, err)
}

func TestEncode_StringComponentRejectsEmbeddedNUL(t *testing.T) {
	order := []Component{
		{Name: "a", Tag: descriptor.TagString},
		{Name: "b", Tag: descriptor.TagString},
	}
	_, err := Encode(order, map[string]any{"a": "has\x00nul", "b": "ok"})
	require.Error(t, err)
}

func TestDecode_RoundTrip(t *testing.T) {
	order := []Component{
		{Name: "raceID", Tag: descriptor.TagInteger},
		{Name: "runnerName", Tag: descriptor.TagString},
	}
	components := map[string]any{"raceID": 123.0, "runnerName": "Joe"}

	encoded, err := Encode(order, components)
	require.NoError(t, err)

	decoded, err := Decode(order, encoded)
	require.NoError(t, err)
	assert.Equal(t, components, decoded)
}

func TestEncode_ObjectComponentPermutationInvariance(t *testing.T) {
	order := []Component{{Name: "coords", Tag: descriptor.TagObject}}
	// A single-component object key is not the numeric shortcut, so it
	// still goes through the NUL-joined path with exactly one piece.
	a := map[string]any{"coords": map[string]any{"x": 1.0, "y": 2.0}}
	b := map[string]any{"coords": map[string]any{"y": 2.0, "x": 1.0}}

	encA, err := Encode(order, a)
	require.NoError(t, err)
	encB, err := Encode(order, b)
	require.NoError(t, err)
	assert.Equal(t, encA, encB)
}

func TestDecode_WrongComponentCount(t *testing.T) {
	order := []Component{
		{Name: "a", Tag: descriptor.TagString},
		{Name: "b", Tag: descriptor.TagString},
	}
	_, err := Decode(order, "only-one-piece")
	require.Error(t, err)
}

func TestEncode_EmptyKeyOrderRejected(t *testing.T) {
	_, err := Encode(nil, map[string]any{})
	require.Error(t, err)
}
