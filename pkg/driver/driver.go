// Package driver defines the contract the core consumes from a remote
// document-store driver. The driver itself — the wire protocol, the
// concrete client, transaction plumbing — is deliberately out of scope for
// the core; this package only names the surface that pkg/txcontext and
// pkg/model depend on. pkg/ddbstore and pkg/memstore provide concrete
// implementations; pkg/mocks provides a testify mock for interaction tests.
package driver

import (
	"context"
	"fmt"
)

// Ref addresses a single document: collectionName/encodedID.
type Ref struct {
	Collection string
	ID         any // string or a numeric type, per the key codec's output
}

// Path renders the document path used in error messages and the tracked
// table's keys.
func (r Ref) Path() string { return fmt.Sprintf("%s/%v", r.Collection, r.ID) }

// Snapshot is what a Get/GetAll call returns for one ref.
type Snapshot interface {
	// Exists reports whether the store held a document at this ref.
	Exists() bool
	// Data returns the document's non-key attributes as a plain map. Only
	// meaningful when Exists() is true.
	Data() map[string]any
}

// DeleteSentinel marks a field for deletion in a write payload.
type DeleteSentinel struct{}

// DeleteField is the shared field-deletion sentinel value.
var DeleteField = DeleteSentinel{}

// IncrementSentinel requests an atomic numeric increment in a write payload.
type IncrementSentinel struct{ Delta float64 }

// Increment builds an atomic-increment sentinel for delta.
func Increment(delta float64) IncrementSentinel { return IncrementSentinel{Delta: delta} }

// SetOptions configures a Store.Set call.
type SetOptions struct {
	// Merge, when true, only touches the attributes present in the payload
	// (create-or-overwrite-by-merge); when false, the write replaces the
	// whole document.
	Merge bool
}

// TxOptions configures Store.RunTransaction.
type TxOptions struct {
	ReadOnly    bool
	MaxAttempts int
}

// DeleteOptions configures a Store.Delete call.
type DeleteOptions struct {
	// RequireExists preconditions the delete on the document being present.
	// Set for a delete of a model the caller has actually read (isNew=false);
	// left false for a delete of a key the caller never fetched, which has
	// nothing to precondition against.
	RequireExists bool
}

// Store is the driver surface the core requires, both as a standalone
// client and as a transaction object. A transactional Store returned
// to the RunTransaction callback buffers writes and flushes them when the
// callback returns nil; a non-transactional Store executes each call
// immediately.
type Store interface {
	Get(ctx context.Context, ref Ref) (Snapshot, error)
	GetAll(ctx context.Context, refs []Ref) ([]Snapshot, error)

	Create(ctx context.Context, ref Ref, data map[string]any) error
	Set(ctx context.Context, ref Ref, data map[string]any, opts SetOptions) error
	Update(ctx context.Context, ref Ref, data map[string]any) error
	Delete(ctx context.Context, ref Ref, opts DeleteOptions) error

	// RunTransaction opens a transaction and invokes fn with a Store bound
	// to it. The transaction commits iff fn returns nil.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Store) error, opts TxOptions) error
}

// Error is the classifiable shape a driver implementation should return for
// commit-time failures, so pkg/txcontext can apply its retry/error
// classification without depending on any specific transport's error types.
type Error struct {
	// Code is a short driver-defined status, e.g. "TransactionConflict",
	// "ConditionalCheckFailed".
	Code string
	// Detail is the driver's raw message, inspected by a best-effort parser
	// for "already exists" style signatures.
	Detail string
	// RetryableFlag marks known lock-contention / optimistic-conflict signatures.
	RetryableFlag bool
	Err           error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("driver error [%s]: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("driver error [%s]", e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable implements the marker interface errors.IsRetryable looks for.
func (e *Error) Retryable() bool { return e.RetryableFlag }
