// Package memstore is a deterministic, in-process fake of driver.Store,
// playing the role DynamoDB Local plays for the teacher's integration
// tests: no network, but it exercises the driver contract's
// create/update/delete semantics and the increment and delete sentinels.
// Transactions are not buffered: see RunTransaction.
package memstore

import (
	"context"
	"sync"

	"github.com/theory-cloud/firedoc/pkg/driver"
)

// Store is a process-local map of document path to attribute map, safe for
// concurrent use by independent contexts.
type Store struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

// New returns an empty Store.
func New() *Store {
	return &Store{docs: make(map[string]map[string]any)}
}

type snapshot struct {
	exists bool
	data   map[string]any
}

func (s snapshot) Exists() bool            { return s.exists }
func (s snapshot) Data() map[string]any    { return s.data }

func (st *Store) Get(_ context.Context, ref driver.Ref) (driver.Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	doc, ok := st.docs[ref.Path()]
	if !ok {
		return snapshot{}, nil
	}
	return snapshot{exists: true, data: copyMap(doc)}, nil
}

func (st *Store) GetAll(_ context.Context, refs []driver.Ref) ([]driver.Snapshot, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]driver.Snapshot, len(refs))
	for i, ref := range refs {
		if doc, ok := st.docs[ref.Path()]; ok {
			out[i] = snapshot{exists: true, data: copyMap(doc)}
		} else {
			out[i] = snapshot{}
		}
	}
	return out, nil
}

func (st *Store) Create(_ context.Context, ref driver.Ref, data map[string]any) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, exists := st.docs[ref.Path()]; exists {
		return &driver.Error{Code: "ConditionalCheckFailed", Detail: "document already exists: " + ref.Path()}
	}
	st.docs[ref.Path()] = applyWrites(nil, data)
	return nil
}

func (st *Store) Set(_ context.Context, ref driver.Ref, data map[string]any, opts driver.SetOptions) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	var base map[string]any
	if opts.Merge {
		base = st.docs[ref.Path()]
	}
	st.docs[ref.Path()] = applyWrites(base, data)
	return nil
}

func (st *Store) Update(_ context.Context, ref driver.Ref, data map[string]any) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	existing, ok := st.docs[ref.Path()]
	if !ok {
		return &driver.Error{Code: "ValidationException", Detail: "document does not exist: " + ref.Path()}
	}
	st.docs[ref.Path()] = applyWrites(existing, data)
	return nil
}

func (st *Store) Delete(_ context.Context, ref driver.Ref, opts driver.DeleteOptions) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if opts.RequireExists {
		if _, ok := st.docs[ref.Path()]; !ok {
			return &driver.Error{Code: "ConditionalCheckFailed", Detail: "document does not exist: " + ref.Path()}
		}
	}
	delete(st.docs, ref.Path())
	return nil
}

// RunTransaction invokes fn with the same Store (writes take effect
// immediately; memstore does not model optimistic-lock or partial-failure
// behavior — pkg/ddbstore is where real transactional atomicity lives).
func (st *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx driver.Store) error, _ driver.TxOptions) error {
	return fn(ctx, st)
}

// applyWrites merges data onto base, resolving driver.DeleteField and
// driver.IncrementSentinel, and returns a fresh map (never aliasing base).
func applyWrites(base map[string]any, data map[string]any) map[string]any {
	out := copyMap(base)
	if out == nil {
		out = make(map[string]any)
	}
	for k, v := range data {
		switch sv := v.(type) {
		case driver.DeleteSentinel:
			delete(out, k)
		case driver.IncrementSentinel:
			cur, _ := out[k].(float64)
			out[k] = cur + sv.Delta
		default:
			out[k] = v
		}
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
