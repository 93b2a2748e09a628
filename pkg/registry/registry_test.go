package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/internal/fixtures"
	"github.com/theory-cloud/firedoc/pkg/memstore"
	"github.com/theory-cloud/firedoc/pkg/registry"
)

func TestRegistry_StoreBeforeInitErrors(t *testing.T) {
	r := registry.New()
	_, err := r.Store()
	require.Error(t, err)
}

func TestRegistry_InitTwiceErrors(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Init(memstore.New()))
	err := r.Init(memstore.New())
	require.Error(t, err)
}

func TestRegistry_TeardownAllowsReInit(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.Init(memstore.New()))
	r.Teardown()
	require.NoError(t, r.Init(memstore.New()))
}

func TestRegistry_RegisterModel_DuplicateCollectionNameRejected(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.RegisterModel(fixtures.Order{}))

	err := r.RegisterModel(duplicateOrderName{})
	require.Error(t, err)
}

func TestRegistry_RegisterModel_SameClassTwiceIsNoop(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.RegisterModel(fixtures.Order{}))
	require.NoError(t, r.RegisterModel(fixtures.Order{}))
}

func TestRegistry_ClassByCollection(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.RegisterModel(fixtures.Order{}))

	cls, ok := r.ClassByCollection("Order")
	require.True(t, ok)
	assert.Equal(t, fixtures.Order{}, cls)

	_, ok = r.ClassByCollection("Unknown")
	assert.False(t, ok)
}

type duplicateOrderName struct{ fixtures.Order }
