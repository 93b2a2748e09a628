package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/internal/fixtures"
	"github.com/theory-cloud/firedoc/pkg/descriptor"
	"github.com/theory-cloud/firedoc/pkg/model"
)

func TestCompile_RejectsAttrNameCollisionBetweenKeyAndFields(t *testing.T) {
	_, err := model.Compile(collidingClass{})
	require.Error(t, err)
}

type collidingClass struct{}

func (collidingClass) ClassName() string { return "Colliding" }

func (collidingClass) KeySchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{"id": descriptor.String("")}
}

func (collidingClass) FieldSchema() map[string]descriptor.Descriptor {
	return map[string]descriptor.Descriptor{"id": descriptor.String("")}
}

func TestKeyOf_SingleComponent(t *testing.T) {
	k, err := model.KeyOf(fixtures.Order{}, "A1")
	require.NoError(t, err)
	assert.Equal(t, "A1", k.EncodedID)
}

func TestKeyOf_CompoundMap(t *testing.T) {
	k, err := model.KeyOf(fixtures.RaceResult{}, map[string]any{"raceID": 123, "runnerName": "Joe"})
	require.NoError(t, err)
	assert.Equal(t, "123\x00Joe", k.EncodedID)
}

func TestDataOf_SplitsKeyFromValues(t *testing.T) {
	d, err := model.DataOf(fixtures.Order{}, map[string]any{"id": "A1", "product": "coffee", "quantity": 1.0})
	require.NoError(t, err)
	assert.Equal(t, "A1", d.EncodedID)
	assert.Equal(t, map[string]any{"product": "coffee", "quantity": 1.0}, d.Values)
}

func TestUniqueKeyList_DedupesPreservingOrder(t *testing.T) {
	k1, _ := model.KeyOf(fixtures.Order{}, "A1")
	k2, _ := model.KeyOf(fixtures.Order{}, "A2")

	l := model.NewUniqueKeyList()
	l.Push(k1, k2, k1)

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []model.Key{k1, k2}, l.Items())
}

func TestInstance_PureCreate_AppliesDefaultRegardlessOfOptionality(t *testing.T) {
	meta, err := model.Compile(fixtures.Widget{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Widget{}, "B")
	require.NoError(t, err)

	inst, err := model.New(meta, key, model.NewOptions{
		IsNew:       true,
		InputValues: map[string]any{"aNonNegInt": 0.0},
	})
	require.NoError(t, err)

	v, err := inst.Get("immutableInt")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestInstance_PureCreate_MissingRequiredRaises(t *testing.T) {
	meta, err := model.Compile(fixtures.Widget{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Widget{}, "B")
	require.NoError(t, err)

	_, err = model.New(meta, key, model.NewOptions{IsNew: true, InputValues: map[string]any{}})
	require.Error(t, err)
}

func TestInstance_Fetched_DefaultAppliedOnlyWhenRequiredAndAbsent(t *testing.T) {
	meta, err := model.Compile(fixtures.Widget{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Widget{}, "B")
	require.NoError(t, err)

	inst, err := model.New(meta, key, model.NewOptions{
		HasFetched:    true,
		FetchedValues: map[string]any{"aNonNegInt": 0.0},
	})
	require.NoError(t, err)

	v, err := inst.Get("immutableInt")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)

	err = inst.Set("immutableInt", 6.0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "immutable")
}

func TestInstance_SetRejectsKeyAttribute(t *testing.T) {
	meta, err := model.Compile(fixtures.Order{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Order{}, "A1")
	require.NoError(t, err)

	inst, err := model.New(meta, key, model.NewOptions{
		IsNew:       true,
		InputValues: map[string]any{"product": "coffee", "quantity": 1.0},
	})
	require.NoError(t, err)

	err = inst.Set("id", "other")
	require.Error(t, err)
}

func TestInstance_PartialUpdate_OnlyTracksSuppliedAttrs(t *testing.T) {
	meta, err := model.Compile(fixtures.Order{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Order{}, "A1")
	require.NoError(t, err)

	inst, err := model.New(meta, key, model.NewOptions{
		IsPartial:   true,
		InputValues: map[string]any{"quantity": 2.0},
	})
	require.NoError(t, err)

	err = inst.Set("product", "tea")
	require.Error(t, err)

	payload, err := inst.PartialPayload()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"quantity": 2.0}, payload)
}

func TestInstance_Plan_CreateKind(t *testing.T) {
	meta, err := model.Compile(fixtures.Order{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Order{}, "A1")
	require.NoError(t, err)

	inst, err := model.New(meta, key, model.NewOptions{
		IsNew:       true,
		InputValues: map[string]any{"product": "coffee", "quantity": 1.0},
	})
	require.NoError(t, err)

	plan, err := inst.Plan(true)
	require.NoError(t, err)
	assert.Equal(t, model.WriteCreate, plan.Kind)
	assert.Equal(t, "coffee", plan.Values["product"])
}

func TestInstance_Plan_NoChangesYieldsWriteNone(t *testing.T) {
	meta, err := model.Compile(fixtures.Order{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Order{}, "A1")
	require.NoError(t, err)

	inst, err := model.New(meta, key, model.NewOptions{
		HasFetched:    true,
		FetchedValues: map[string]any{"product": "coffee", "quantity": 1.0},
	})
	require.NoError(t, err)

	plan, err := inst.Plan(true)
	require.NoError(t, err)
	assert.Equal(t, model.WriteNone, plan.Kind)
}

func TestSnapshot_UsesPeekAndDoesNotMarkRead(t *testing.T) {
	meta, err := model.Compile(fixtures.Order{})
	require.NoError(t, err)
	key, err := model.KeyOf(fixtures.Order{}, "A1")
	require.NoError(t, err)

	inst, err := model.New(meta, key, model.NewOptions{
		HasFetched:    true,
		FetchedValues: map[string]any{"product": "coffee", "quantity": 1.0},
	})
	require.NoError(t, err)

	snap, err := inst.Snapshot(model.SnapshotOptions{})
	require.NoError(t, err)
	assert.Equal(t, "coffee", snap["product"])
	assert.Equal(t, "A1", snap["id"])

	f, ok := inst.Field("product")
	require.True(t, ok)
	assert.False(t, f.ReadAccessed())
}

func TestDiff_ReportsChangedAndRemovedKeys(t *testing.T) {
	before := map[string]any{"a": 1.0, "b": "x"}
	after := map[string]any{"a": 1.0, "b": "y"}
	diff := model.Diff(before, after)
	assert.Equal(t, map[string]any{"b": "y"}, diff)
}

func TestDiff_RemovedAttributeBecomesNil(t *testing.T) {
	before := map[string]any{"a": 1.0, "b": "x"}
	after := map[string]any{"a": 1.0}
	diff := model.Diff(before, after)
	assert.Equal(t, map[string]any{"b": nil}, diff)
}
