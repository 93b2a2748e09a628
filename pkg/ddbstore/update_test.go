package ddbstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/pkg/driver"
)

func TestBuildUpdateExpression_Empty(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, expr)
	assert.Empty(t, names)
	assert.Empty(t, values)
}

func TestBuildUpdateExpression_PlainSet(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(map[string]any{"product": "coffee"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(expr, "SET "))
	assert.Len(t, names, 1)
	assert.Len(t, values, 1)
}

func TestBuildUpdateExpression_DeleteSentinelBecomesRemove(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(map[string]any{"note": driver.DeleteField})
	require.NoError(t, err)
	assert.Contains(t, expr, "REMOVE ")
	assert.NotContains(t, expr, "SET ")
	assert.Len(t, names, 1)
	assert.Empty(t, values)
}

func TestBuildUpdateExpression_IncrementSentinelBecomesAdd(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(map[string]any{"count": driver.Increment(3)})
	require.NoError(t, err)
	assert.Contains(t, expr, "ADD ")
	assert.Len(t, names, 1)
	assert.Len(t, values, 1)
}

func TestBuildUpdateExpression_MixedClausesAllPresent(t *testing.T) {
	expr, names, values, err := buildUpdateExpression(map[string]any{
		"product": "coffee",
		"count":   driver.Increment(1),
		"note":    driver.DeleteField,
	})
	require.NoError(t, err)
	assert.Contains(t, expr, "SET ")
	assert.Contains(t, expr, "ADD ")
	assert.Contains(t, expr, "REMOVE ")
	assert.Len(t, names, 3)
	assert.Len(t, values, 2)
}
