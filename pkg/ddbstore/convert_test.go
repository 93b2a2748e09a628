package ddbstore

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/pkg/driver"
)

func TestToAttributeValue_RoundTrip(t *testing.T) {
	cases := []any{
		nil,
		"hello",
		true,
		42.5,
		[]any{"a", 1.0, true},
		map[string]any{"x": 1.0, "y": "z"},
	}

	for _, c := range cases {
		av, err := toAttributeValue(c)
		require.NoError(t, err)
		back, err := fromAttributeValue(av)
		require.NoError(t, err)
		assert.Equal(t, c, back)
	}
}

func TestToAttributeValue_RejectsUnsupportedType(t *testing.T) {
	_, err := toAttributeValue(struct{}{})
	require.Error(t, err)
}

func TestMapToItem_RejectsSentinels(t *testing.T) {
	_, err := mapToItem(map[string]any{"a": driver.DeleteField})
	require.Error(t, err)

	_, err = mapToItem(map[string]any{"a": driver.Increment(1)})
	require.Error(t, err)
}

func TestItemToMap_RoundTrip(t *testing.T) {
	item := map[string]types.AttributeValue{
		"a": &types.AttributeValueMemberS{Value: "x"},
		"b": &types.AttributeValueMemberN{Value: "3"},
	}
	m, err := itemToMap(item)
	require.NoError(t, err)
	assert.Equal(t, "x", m["a"])
	assert.Equal(t, 3.0, m["b"])
}

func TestNormalizeID_WidensIntTypes(t *testing.T) {
	assert.Equal(t, float64(5), normalizeID(5))
	assert.Equal(t, float64(5), normalizeID(int64(5)))
	assert.Equal(t, "s", normalizeID("s"))
}
