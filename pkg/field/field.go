// Package field implements the per-attribute state machine: initial/current
// value, access/write tracking, mutation detection, and the write-expression
// a Field emits at commit time.
package field

import (
	"fmt"
	"reflect"

	"github.com/theory-cloud/firedoc/pkg/descriptor"
	"github.com/theory-cloud/firedoc/pkg/driver"
	"github.com/theory-cloud/firedoc/pkg/errors"
)

// Field is the common operations every variant exposes.
type Field interface {
	// Name is the declared attribute name, used in error messages.
	Name() string

	// Get returns the current value. It sets readAccessed unless the field
	// has already been written by application code — a field you just set
	// doesn't need a read to justify its own value appearing in a write.
	Get() (any, error)

	// Set validates v; on failure it raises InvalidField and leaves prior
	// state untouched; on success it sets value=v, written=true, discards
	// any increment accumulator.
	Set(v any) error

	// Validate re-runs the validator against the current value.
	Validate() error

	// Mutated reports whether the current value differs from the initial
	// one, using the may-have-mutated fast path before falling back to a
	// full deep-equality comparison.
	Mutated() bool

	// HasChangesToCommit reports whether this field should appear in a
	// write payload. It equals Mutated() unless the only change is the
	// silent application of a default while expectWrites is false (a
	// read-only fetch), in which case it is suppressed.
	HasChangesToCommit(expectWrites bool) bool

	// WriteValue produces the driver-side value for this field: a deletion
	// sentinel, an increment sentinel, or a deep copy of the current
	// value. ok is false when there is nothing to write.
	WriteValue() (value any, ok bool)

	// ReadAccessed reports whether Get has been called on this field.
	ReadAccessed() bool
	// Written reports whether Set has been called directly (not merely
	// via increment accumulation).
	Written() bool

	// Initial returns the value observed at load time, and whether one
	// existed (false means "new document, no prior value").
	Initial() (value any, had bool)

	// Peek returns the current value without touching readAccessed or
	// written — used by snapshot/identifier derivation, which must not be
	// observable as an application read.
	Peek() any
}

// base holds the state and rules every variant shares.
type base struct {
	name         string
	compiled     *descriptor.Compiled
	initialValue any
	hadInitial   bool
	value        any
	readAccessed bool
	written      bool
}

func (b *base) Name() string         { return b.name }
func (b *base) ReadAccessed() bool   { return b.readAccessed }
func (b *base) Written() bool        { return b.written }
func (b *base) Initial() (any, bool) { return b.initialValue, b.hadInitial }

func (b *base) Peek() any { return b.value }

func (b *base) Get() (any, error) {
	if !b.written {
		b.readAccessed = true
	}
	return b.value, nil
}

func (b *base) Validate() error {
	if err := b.compiled.AssertValid(b.value); err != nil {
		return errors.NewFieldError(b.name, err.Error())
	}
	return nil
}

// set is shared Set logic; variants with extra bookkeeping (Numeric) call
// this after clearing their own state.
func (b *base) set(v any) error {
	if b.compiled.Immutable && b.hadInitial {
		return errors.NewFieldError(b.name, "field is immutable")
	}
	if err := b.compiled.AssertValid(v); err != nil {
		return errors.NewFieldError(b.name, err.Error())
	}
	b.value = v
	b.written = true
	return nil
}

// mayHaveMutated implements a fast-path heuristic: a field cannot have
// mutated unless it was read or written, or it was initialized with a
// non-absent value while its initial was absent.
func (b *base) mayHaveMutated() bool {
	if b.readAccessed || b.written {
		return true
	}
	if !b.hadInitial && b.value != nil {
		return true
	}
	return false
}

func (b *base) Mutated() bool {
	if !b.mayHaveMutated() {
		return false
	}
	var initial any
	if b.hadInitial {
		initial = b.initialValue
	}
	return !reflect.DeepEqual(initial, b.value)
}

func (b *base) HasChangesToCommit(expectWrites bool, mutated bool) bool {
	if !mutated {
		return false
	}
	if !expectWrites && !b.readAccessed && !b.written && !b.hadInitial {
		if def, ok := b.compiled.Default, b.compiled.HasDefault; ok && reflect.DeepEqual(b.value, def) {
			return false
		}
	}
	return true
}

func (b *base) writeValue(mutated bool) (any, bool) {
	if !mutated {
		return nil, false
	}
	if b.value == nil && (b.hadInitial || b.written) {
		return driver.DeleteField, true
	}
	return deepCopy(b.value), true
}

// DeepCopy produces an independent copy of v for maps/slices; scalars are
// already value types in Go. Exported so callers applying a descriptor's
// default (e.g. pkg/model) get the same independent-copy guarantee:
// applied defaults are deep-copied from the descriptor.
func DeepCopy(v any) any { return deepCopy(v) }

// deepCopy produces an independent copy of v for maps/slices; scalars are
// already value types in Go.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}

// New constructs the Field variant selected by compiled.TypeTag.
//
// hadInitial/initialValue describe the value observed at load time (for a
// freshly created document, hadInitial is false). hasRaw/raw describe the
// value supplied at construction time (driver data, application-provided
// create values, or the descriptor's default); an omitted, non-defaulted
// optional attribute has neither.
func New(name string, compiled *descriptor.Compiled, hadInitial bool, initialValue any, hasRaw bool, raw any) (Field, error) {
	// Numeric values are normalized to float64 so later deep-equality
	// comparisons between an int-typed seed and a float64-typed write
	// don't report a spurious mutation.
	if compiled.TypeTag == descriptor.TagInteger || compiled.TypeTag == descriptor.TagNumber {
		if hadInitial && initialValue != nil {
			fv, err := toFloat64(initialValue)
			if err != nil {
				return nil, errors.NewFieldError(name, err.Error())
			}
			initialValue = fv
		}
		if hasRaw && raw != nil {
			fv, err := toFloat64(raw)
			if err != nil {
				return nil, errors.NewFieldError(name, err.Error())
			}
			raw = fv
		}
	}

	b := base{
		name:         name,
		compiled:     compiled,
		initialValue: initialValue,
		hadInitial:   hadInitial,
	}

	var f Field
	switch compiled.TypeTag {
	case descriptor.TagInteger, descriptor.TagNumber:
		f = &Numeric{base: b}
	case descriptor.TagString:
		f = &String{base: b}
	case descriptor.TagBoolean:
		f = &Boolean{base: b}
	case descriptor.TagArray:
		f = &Array{base: b}
	case descriptor.TagObject:
		f = &Object{base: b}
	default:
		return nil, errors.NewFieldError(name, fmt.Sprintf("unsupported type tag %q", compiled.TypeTag))
	}

	if hasRaw {
		if err := validateSeed(compiled, name, raw); err != nil {
			return nil, err
		}
		seedValue(f, raw)
	} else {
		seedValue(f, initialValue)
	}

	return f, nil
}

// validateSeed runs the descriptor's validator against a constructor-time
// value without going through Set, since construction is not an
// application write and must not set the written flag.
func validateSeed(compiled *descriptor.Compiled, name string, v any) error {
	if v == nil {
		return nil
	}
	if err := compiled.AssertValid(v); err != nil {
		return errors.NewFieldError(name, err.Error())
	}
	return nil
}

func seedValue(f Field, v any) {
	switch fv := f.(type) {
	case *Numeric:
		fv.value = v
	case *String:
		fv.value = v
	case *Boolean:
		fv.value = v
	case *Array:
		fv.value = v
	case *Object:
		fv.value = v
	}
}
