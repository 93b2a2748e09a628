package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/pkg/driver"
	"github.com/theory-cloud/firedoc/pkg/memstore"
)

func TestCreate_RejectsExisting(t *testing.T) {
	st := memstore.New()
	ref := driver.Ref{Collection: "Order", ID: "A1"}

	require.NoError(t, st.Create(context.Background(), ref, map[string]any{"product": "coffee"}))
	err := st.Create(context.Background(), ref, map[string]any{"product": "tea"})
	require.Error(t, err)

	var derr *driver.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ConditionalCheckFailed", derr.Code)
}

func TestUpdate_RejectsMissingDocument(t *testing.T) {
	st := memstore.New()
	err := st.Update(context.Background(), driver.Ref{Collection: "Order", ID: "missing"}, map[string]any{"product": "tea"})
	require.Error(t, err)
}

func TestUpdate_AppliesDeleteAndIncrementSentinels(t *testing.T) {
	st := memstore.New()
	ref := driver.Ref{Collection: "Counter", ID: "c1"}
	require.NoError(t, st.Create(context.Background(), ref, map[string]any{"count": 1.0, "note": "x"}))

	err := st.Update(context.Background(), ref, map[string]any{
		"count": driver.Increment(2),
		"note":  driver.DeleteField,
	})
	require.NoError(t, err)

	snap, err := st.Get(context.Background(), ref)
	require.NoError(t, err)
	data := snap.Data()
	assert.Equal(t, 3.0, data["count"])
	_, hasNote := data["note"]
	assert.False(t, hasNote)
}

func TestSet_MergeOnlyTouchesSuppliedAttrs(t *testing.T) {
	st := memstore.New()
	ref := driver.Ref{Collection: "Order", ID: "A1"}
	require.NoError(t, st.Create(context.Background(), ref, map[string]any{"product": "coffee", "quantity": 1.0}))

	err := st.Set(context.Background(), ref, map[string]any{"quantity": 2.0}, driver.SetOptions{Merge: true})
	require.NoError(t, err)

	snap, err := st.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "coffee", snap.Data()["product"])
	assert.Equal(t, 2.0, snap.Data()["quantity"])
}

func TestSet_NonMergeReplacesWholeDocument(t *testing.T) {
	st := memstore.New()
	ref := driver.Ref{Collection: "Order", ID: "A1"}
	require.NoError(t, st.Create(context.Background(), ref, map[string]any{"product": "coffee", "quantity": 1.0}))

	err := st.Set(context.Background(), ref, map[string]any{"quantity": 2.0}, driver.SetOptions{Merge: false})
	require.NoError(t, err)

	snap, err := st.Get(context.Background(), ref)
	require.NoError(t, err)
	_, hasProduct := snap.Data()["product"]
	assert.False(t, hasProduct)
}

func TestGetAll_PreservesOrderAndMissing(t *testing.T) {
	st := memstore.New()
	require.NoError(t, st.Create(context.Background(), driver.Ref{Collection: "Order", ID: "A1"}, map[string]any{"product": "coffee"}))

	snaps, err := st.GetAll(context.Background(), []driver.Ref{
		{Collection: "Order", ID: "A1"},
		{Collection: "Order", ID: "missing"},
	})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Exists())
	assert.False(t, snaps[1].Exists())
}

func TestDelete_RemovesDocument(t *testing.T) {
	st := memstore.New()
	ref := driver.Ref{Collection: "Order", ID: "A1"}
	require.NoError(t, st.Create(context.Background(), ref, map[string]any{"product": "coffee"}))
	require.NoError(t, st.Delete(context.Background(), ref, driver.DeleteOptions{}))

	snap, err := st.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, snap.Exists())
}

func TestDelete_RequireExistsRejectsMissingDocument(t *testing.T) {
	st := memstore.New()
	ref := driver.Ref{Collection: "Order", ID: "missing"}

	err := st.Delete(context.Background(), ref, driver.DeleteOptions{RequireExists: true})
	require.Error(t, err)

	var derr *driver.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "ConditionalCheckFailed", derr.Code)
}
