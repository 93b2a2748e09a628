package txcontext

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/theory-cloud/firedoc/pkg/driver"
	"github.com/theory-cloud/firedoc/pkg/errors"
	"github.com/theory-cloud/firedoc/pkg/event"
	"github.com/theory-cloud/firedoc/pkg/lambdautil"
	"github.com/theory-cloud/firedoc/pkg/model"
)

type slotState int

const (
	slotLive slotState = iota
	slotAbsent
	slotDeleted
)

// trackedSlot is one entry in the context-local tracked-document table.
// A slot holds a live model instance, the "fetched absent" sentinel,
// or the "deleted this context" sentinel.
type trackedSlot struct {
	state      slotState
	inst       *model.Instance
	written    bool // true once its write has already been dispatched (updateWithoutRead)
	wasFetched bool // true when a deleted slot's key was read here and found live (isNew=false)
}

// Context is the Transaction Core: one scoped unit of work, open for
// the duration of a single Run attempt.
type Context struct {
	store   driver.Store // bound per attempt: transactional handle or the root store
	opts    Options
	emitter *event.Emitter
	tracked map[string]*trackedSlot
	order   []string
}

func newContext(opts Options) *Context {
	return &Context{
		opts:    opts,
		emitter: event.NewEmitter(),
		tracked: make(map[string]*trackedSlot),
	}
}

func (tc *Context) reset() {
	tc.emitter.Reset()
	tc.tracked = make(map[string]*trackedSlot)
	tc.order = nil
}

// MakeReadOnly toggles readOnly on, effective for subsequent operations.
func (tc *Context) MakeReadOnly() { tc.opts.ReadOnly = true }

// EnableModelCache toggles cacheModels on, effective for subsequent
// operations.
func (tc *Context) EnableModelCache() { tc.opts.CacheModels = true }

// AddEventHandler registers a single-fire handler for event, cleared at the
// start of each retry attempt.
func (tc *Context) AddEventHandler(ev event.Name, fn event.Handler, name string) error {
	return tc.emitter.On(ev, fn, name)
}

func pathFor(cls model.Class, key model.Key) string { return key.Path() }

// GetOptions controls a get call.
type GetOptions struct {
	// CreateIfMissing requests construction of a new instance (isNew=true)
	// from the supplied Data when the driver reports no document.
	CreateIfMissing bool
}

// Get fetches a single document by key. It returns (nil, nil) when the
// driver reports no document and CreateIfMissing is false — the tracked
// slot still records "fetched absent" so a later get/create on the same
// key is caught by the tracking rules.
func (tc *Context) Get(cls model.Class, key model.Key, opts GetOptions) (*model.Instance, error) {
	if opts.CreateIfMissing {
		return nil, errors.NewFieldError("", "CreateIfMissing requires GetData with initial values")
	}
	path := pathFor(cls, key)
	if slot, ok := tc.tracked[path]; ok {
		return tc.cachedOrConflict(path, slot)
	}

	snap, err := tc.store.Get(context.Background(), refFor(key))
	if err != nil {
		return nil, errors.Op("get", err)
	}

	if !snap.Exists() {
		tc.track(path, &trackedSlot{state: slotAbsent})
		return nil, nil
	}

	meta, err := model.Compile(cls)
	if err != nil {
		return nil, err
	}
	inst, err := model.New(meta, key, model.NewOptions{HasFetched: true, FetchedValues: snap.Data()})
	if err != nil {
		return nil, err
	}
	tc.track(path, &trackedSlot{state: slotLive, inst: inst})
	return inst, nil
}

// GetData fetches (or creates) a single document addressed by data.Key,
// using data.Values to construct a new instance when the driver reports no
// document.
func (tc *Context) GetData(cls model.Class, data model.Data, opts GetOptions) (*model.Instance, error) {
	path := pathFor(cls, data.Key)
	if slot, ok := tc.tracked[path]; ok {
		return tc.cachedOrConflict(path, slot)
	}

	meta, err := model.Compile(cls)
	if err != nil {
		return nil, err
	}

	snap, err := tc.store.Get(context.Background(), refFor(data.Key))
	if err != nil {
		return nil, errors.Op("get", err)
	}

	if snap.Exists() {
		inst, err := model.New(meta, data.Key, model.NewOptions{HasFetched: true, FetchedValues: snap.Data()})
		if err != nil {
			return nil, err
		}
		tc.track(path, &trackedSlot{state: slotLive, inst: inst})
		return inst, nil
	}

	if !opts.CreateIfMissing {
		tc.track(path, &trackedSlot{state: slotAbsent})
		return nil, nil
	}

	inst, err := model.New(meta, data.Key, model.NewOptions{IsNew: true, InputValues: data.Values})
	if err != nil {
		return nil, err
	}
	tc.track(path, &trackedSlot{state: slotLive, inst: inst})
	return inst, nil
}

// GetAll performs a batched read of keys through the driver's multi-get.
// Inside a transaction this is a consistent snapshot. Each element is
// handled exactly as Get would handle it alone; mixing with tracked state
// follows the same rules.
func (tc *Context) GetAll(cls model.Class, keys []model.Key) ([]*model.Instance, error) {
	meta, err := model.Compile(cls)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Instance, len(keys))
	pending := make([]int, 0, len(keys))
	refs := make([]driver.Ref, 0, len(keys))

	for i, k := range keys {
		path := pathFor(cls, k)
		if slot, ok := tc.tracked[path]; ok {
			inst, err := tc.cachedOrConflict(path, slot)
			if err != nil {
				return nil, err
			}
			out[i] = inst
			continue
		}
		pending = append(pending, i)
		refs = append(refs, refFor(k))
	}

	if len(refs) == 0 {
		return out, nil
	}

	snaps, err := tc.store.GetAll(context.Background(), refs)
	if err != nil {
		return nil, errors.Op("getAll", err)
	}

	for j, idx := range pending {
		k := keys[idx]
		path := pathFor(cls, k)
		snap := snaps[j]
		if !snap.Exists() {
			tc.track(path, &trackedSlot{state: slotAbsent})
			out[idx] = nil
			continue
		}
		inst, err := model.New(meta, k, model.NewOptions{HasFetched: true, FetchedValues: snap.Data()})
		if err != nil {
			return nil, err
		}
		tc.track(path, &trackedSlot{state: slotLive, inst: inst})
		out[idx] = inst
	}
	return out, nil
}

// GetAllData is the createIfMissing-capable array form: each element is
// fetched, or constructed with isNew=true from its Values when the driver
// reports no document.
func (tc *Context) GetAllData(cls model.Class, items []model.Data) ([]*model.Instance, error) {
	out := make([]*model.Instance, len(items))
	for i, d := range items {
		inst, err := tc.GetData(cls, d, GetOptions{CreateIfMissing: true})
		if err != nil {
			return nil, err
		}
		out[i] = inst
	}
	return out, nil
}

func (tc *Context) cachedOrConflict(path string, slot *trackedSlot) (*model.Instance, error) {
	if !tc.opts.CacheModels {
		return nil, &errors.TrackingError{Path: path, Kind: errors.ErrModelTrackedTwice}
	}
	if slot.state == slotAbsent {
		return nil, nil
	}
	if slot.state == slotDeleted {
		return nil, &errors.TrackingError{Path: path, Kind: errors.ErrModelTrackedTwice}
	}
	return slot.inst, nil
}

// track records slot under path, appending path to the commit-order list
// only the first time it's seen — overwriting an already-tracked slot (e.g.
// deleting a key that was previously read or created) must not leave a
// second entry in tc.order, or dispatchCommitWrites would resolve the same
// path twice and double-dispatch its write.
func (tc *Context) track(path string, slot *trackedSlot) {
	if _, seen := tc.tracked[path]; !seen {
		tc.order = append(tc.order, path)
	}
	tc.tracked[path] = slot
}

// Create tracks a brand-new document locally; the create write dispatches
// at commit time.
func (tc *Context) Create(cls model.Class, data model.Data) (*model.Instance, error) {
	return tc.createInternal(cls, data, false)
}

// CreateOrOverwrite is like Create, but the eventual write replaces any
// existing document rather than failing on collision.
func (tc *Context) CreateOrOverwrite(cls model.Class, data model.Data) (*model.Instance, error) {
	return tc.createInternal(cls, data, true)
}

func (tc *Context) createInternal(cls model.Class, data model.Data, isSet bool) (*model.Instance, error) {
	if tc.opts.ReadOnly {
		return nil, errors.ErrWriteInReadOnlyTx
	}
	path := pathFor(cls, data.Key)
	if slot, ok := tc.tracked[path]; ok {
		return tc.cachedOrConflict(path, slot)
	}

	meta, err := model.Compile(cls)
	if err != nil {
		return nil, err
	}
	inst, err := model.New(meta, data.Key, model.NewOptions{IsNew: true, IsSet: isSet, InputValues: data.Values})
	if err != nil {
		return nil, err
	}
	tc.track(path, &trackedSlot{state: slotLive, inst: inst})
	return inst, nil
}

// UpdateWithoutRead constructs a partial model, runs finalize, and
// dispatches the update to the driver immediately — it does not wait for
// commit.
func (tc *Context) UpdateWithoutRead(cls model.Class, data model.Data) error {
	if tc.opts.ReadOnly {
		return errors.ErrWriteInReadOnlyTx
	}

	meta, err := model.Compile(cls)
	if err != nil {
		return err
	}
	for name := range data.Values {
		if attr, ok := meta.Attrs[name]; ok && attr.IsKey {
			return errors.NewFieldError(name, "updateWithoutRead may not change a key attribute")
		}
	}

	path := pathFor(cls, data.Key)
	if _, ok := tc.tracked[path]; ok {
		if !tc.opts.CacheModels {
			return &errors.TrackingError{Path: path, Kind: errors.ErrModelTrackedTwice}
		}
	}

	inst, err := model.New(meta, data.Key, model.NewOptions{IsPartial: true, InputValues: data.Values})
	if err != nil {
		return err
	}
	if err := inst.RunFinalize(finalizeFor(cls)); err != nil {
		return err
	}

	payload, err := inst.PartialPayload()
	if err != nil {
		return err
	}
	if err := tc.store.Update(context.Background(), refFor(data.Key), payload); err != nil {
		return errors.Op("updateWithoutRead", err)
	}

	tc.track(path, &trackedSlot{state: slotLive, inst: inst, written: true})
	return nil
}

// Delete marks each key's slot deleted; the actual driver delete call is
// issued at commit time, but tracking happens here, eagerly. Per §4.4, a
// delete of a model this context read and found live (isNew=false) is
// preconditioned on existence at commit; a delete of any other key (never
// fetched, confirmed absent, or created in this context) is unconditional.
func (tc *Context) Delete(cls model.Class, keys ...model.Key) error {
	if tc.opts.ReadOnly {
		return errors.ErrWriteInReadOnlyTx
	}
	for _, k := range keys {
		path := pathFor(cls, k)
		wasFetched := false
		if slot, ok := tc.tracked[path]; ok {
			if slot.state == slotDeleted {
				return &errors.TrackingError{Path: path, Kind: errors.ErrDeletedTwice}
			}
			wasFetched = slot.state == slotLive && slot.inst != nil && !slot.inst.IsNew()
		}
		tc.track(path, &trackedSlot{state: slotDeleted, wasFetched: wasFetched})
	}
	return nil
}

// ModelDiff is one entry of GetModelDiffs' result.
type ModelDiff struct {
	Before map[string]any
	After  map[string]any
	Diff   map[string]any
}

// GetModelDiffs returns the before/after/diff snapshot for every tracked
// live instance matching filter (nil matches everything). Deleted slots
// are omitted entirely (SPEC_FULL.md Decision D.2).
func (tc *Context) GetModelDiffs(filter func(*model.Instance) bool) ([]ModelDiff, error) {
	var out []ModelDiff
	for _, path := range tc.order {
		slot := tc.tracked[path]
		if slot.state != slotLive || slot.inst == nil {
			continue
		}
		if filter != nil && !filter(slot.inst) {
			continue
		}
		before, err := slot.inst.Snapshot(model.SnapshotOptions{Initial: true})
		if err != nil {
			return nil, err
		}
		after, err := slot.inst.Snapshot(model.SnapshotOptions{})
		if err != nil {
			return nil, err
		}
		out = append(out, ModelDiff{Before: before, After: after, Diff: model.Diff(before, after)})
	}
	return out, nil
}

func refFor(k model.Key) driver.Ref {
	return driver.Ref{Collection: k.Meta.CollectionName, ID: k.EncodedID}
}

// Finalizer lets a Class supply a pre-commit hook that may stamp derived
// fields (timestamps, versions) before each write.
type Finalizer interface {
	Finalize(inst *model.Instance) error
}

func finalizeFor(cls model.Class) model.FinalizeFunc {
	f, ok := cls.(Finalizer)
	if !ok {
		return nil
	}
	return f.Finalize
}

// dispatchCommitWrites walks tracked slots in insertion order, issuing the
// prescribed write for each live, mutated-or-new instance, and the deferred
// delete for each deleted slot whose write wasn't already dispatched
// eagerly.
func (tc *Context) dispatchCommitWrites(ctx context.Context) error {
	for _, path := range tc.order {
		slot := tc.tracked[path]
		switch slot.state {
		case slotDeleted:
			if slot.written {
				continue
			}
			if tc.opts.ReadOnly {
				return errors.ErrWriteInReadOnlyTx
			}
			opts := driver.DeleteOptions{RequireExists: slot.wasFetched}
			if err := tc.store.Delete(ctx, deletedRef(path), opts); err != nil {
				return errors.Op("delete", err)
			}
		case slotLive:
			if slot.inst == nil || slot.written {
				continue
			}
			if err := tc.dispatchInstanceWrite(ctx, slot.inst); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tc *Context) dispatchInstanceWrite(ctx context.Context, inst *model.Instance) error {
	if err := inst.RunFinalize(finalizeFor(inst.Key().Class)); err != nil {
		return err
	}

	plan, err := inst.Plan(!tc.opts.ReadOnly)
	if err != nil {
		return err
	}
	if plan.Kind == model.WriteNone {
		return nil
	}
	if tc.opts.ReadOnly {
		return errors.ErrWriteInReadOnlyTx
	}

	ref := refFor(plan.Key)
	switch plan.Kind {
	case model.WriteCreate:
		if err := tc.store.Create(ctx, ref, plan.Values); err != nil {
			return errors.Op("create", classifyExists(err))
		}
	case model.WriteCreateOrOverwrite:
		if err := tc.store.Set(ctx, ref, plan.Values, driver.SetOptions{Merge: false}); err != nil {
			return errors.Op("createOrOverwrite", err)
		}
	case model.WriteUpdate:
		if len(plan.Values) == 0 {
			return errors.Op("update", fmt.Errorf("%w: update did not provide any data to change", errors.ErrGenericModel))
		}
		if err := tc.store.Update(ctx, ref, plan.Values); err != nil {
			return errors.Op("update", err)
		}
	}
	return nil
}

func classifyExists(err error) error {
	var derr *driver.Error
	if stderrors.As(err, &derr) {
		if derr.Code == "ConditionalCheckFailed" || derr.Code == "AlreadyExists" {
			return fmt.Errorf("%w: %s", errors.ErrModelAlreadyExists, derr.Detail)
		}
	}
	return err
}

// deletedRef reconstructs a driver.Ref from a tracked path (collection/id)
// for dispatch; encodedID round-trips as a string, which is safe since
// driver.Ref.ID is opaque to the driver beyond addressing the document.
func deletedRef(path string) driver.Ref {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return driver.Ref{Collection: path[:i], ID: path[i+1:]}
		}
	}
	return driver.Ref{Collection: path}
}

// Run opens a context over store per opts, invoking fn once per attempt
// until it succeeds, a non-retryable error occurs, or retries are
// exhausted (§4.6 commit sequence, §7 classification).
func Run(ctx context.Context, store driver.Store, opts Options, fn func(tc *Context) error) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	tc := newContext(opts)
	transactional := !opts.ReadOnly || opts.ConsistentReads

	backoff := opts.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= opts.Retries; attempt++ {
		tc.reset()

		var err error
		if transactional {
			err = store.RunTransaction(ctx, func(ctx context.Context, tx driver.Store) error {
				tc.store = tx
				if cbErr := fn(tc); cbErr != nil {
					return cbErr
				}
				return tc.dispatchCommitWrites(ctx)
			}, driver.TxOptions{ReadOnly: opts.ReadOnly, MaxAttempts: 1})
		} else {
			tc.store = store
			if cbErr := fn(tc); cbErr != nil {
				err = cbErr
			} else {
				err = tc.dispatchCommitWrites(ctx)
			}
		}

		if err == nil {
			if fireErr := tc.emitter.Fire(ctx, event.PostCommit, tc); fireErr != nil {
				return fireErr
			}
			return nil
		}

		lastErr = err
		if attempt == opts.Retries || !errors.IsRetryable(err) {
			txErr := &errors.TransactionError{Attempts: attempt + 1, Err: lastErr}
			_ = tc.emitter.Fire(ctx, event.TxFailed, txErr)
			return txErr
		}

		sleepWithJitter(ctx, backoff)
		backoff *= 2
		if backoff > opts.MaxBackoff {
			backoff = opts.MaxBackoff
		}
	}

	return &errors.TransactionError{Attempts: opts.Retries + 1, Err: lastErr}
}

// sleepWithJitter applies the documented ±10% jitter, then — when running
// inside a Lambda invocation with a known deadline — shortens the sleep so
// a retry still gets a real attempt instead of running out the clock.
func sleepWithJitter(ctx context.Context, base time.Duration) {
	jitter := time.Duration(float64(base) * (rand.Float64()*0.2 - 0.1))
	d := base + jitter
	if d < 0 {
		d = 0
	}
	d = lambdautil.CapBackoff(ctx, d)
	time.Sleep(d)
}
