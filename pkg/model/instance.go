package model

import (
	"fmt"
	"reflect"

	"github.com/theory-cloud/firedoc/pkg/errors"
	"github.com/theory-cloud/firedoc/pkg/field"
	"github.com/theory-cloud/firedoc/pkg/keycodec"
)

// NewOptions selects which of the three construction paths Instance
// construction takes.
type NewOptions struct {
	// IsNew marks a document that does not yet exist in the store.
	IsNew bool
	// IsSet marks a createOrOverwrite — like IsNew but no key-collision
	// check happens at commit time.
	IsSet bool
	// IsPartial marks an updateWithoutRead construction: only the
	// attributes present in InputValues get a Field at all.
	IsPartial bool

	// HasFetched is true when FetchedValues came back from a driver read
	// (as opposed to application-supplied create values).
	HasFetched    bool
	FetchedValues map[string]any

	// InputValues are application-supplied non-key values, used for create
	// and createOrOverwrite, and for the attributes present in a partial
	// update.
	InputValues map[string]any
}

// Instance is the Model Runtime façade: one tracked document, with a
// Field per attribute and the isNew/isSet/isPartial flags that determine
// its write shape at commit time.
type Instance struct {
	meta      *Metadata
	key       Key
	isNew     bool
	isSet     bool
	isPartial bool
	fields    map[string]field.Field
}

// New constructs an Instance for key according to opts. Exactly one of
// opts.IsPartial, opts.HasFetched, or a pure-create combination (neither) is
// expected; see the three branches below.
func New(meta *Metadata, key Key, opts NewOptions) (*Instance, error) {
	inst := &Instance{
		meta:      meta,
		key:       key,
		isNew:     opts.IsNew,
		isSet:     opts.IsSet,
		isPartial: opts.IsPartial,
		fields:    make(map[string]field.Field),
	}

	if opts.IsPartial {
		if err := inst.buildPartialFields(opts.InputValues); err != nil {
			return nil, err
		}
		return inst, nil
	}

	if opts.HasFetched {
		if err := inst.buildFetchedFields(opts.FetchedValues); err != nil {
			return nil, err
		}
		return inst, nil
	}

	if err := inst.buildCreateFields(opts.InputValues); err != nil {
		return nil, err
	}
	if err := inst.validateRequired(); err != nil {
		return nil, err
	}
	return inst, nil
}

// buildPartialFields constructs a Field only for attributes present in
// values — updateWithoutRead never reads the rest of the document; partial
// update attributes are the only tracked slots.
func (inst *Instance) buildPartialFields(values map[string]any) error {
	for name := range values {
		attr, ok := inst.meta.Attrs[name]
		if !ok {
			return errors.NewFieldError(name, "unknown attribute")
		}
		if attr.IsKey {
			return errors.NewFieldError(name, "key attributes cannot be updated")
		}
	}
	for name, attr := range inst.meta.Attrs {
		if attr.IsKey {
			continue
		}
		v, present := values[name]
		if !present {
			continue
		}
		f, err := field.New(name, attr.Schema, false, nil, true, v)
		if err != nil {
			return err
		}
		inst.fields[name] = f
	}
	return nil
}

// buildFetchedFields constructs a Field for every non-key attribute from a
// driver read. A default is applied only when the attribute is absent and
// required — an absent optional attribute stays absent, matching what the
// driver actually returned.
func (inst *Instance) buildFetchedFields(values map[string]any) error {
	for name, attr := range inst.meta.Attrs {
		if attr.IsKey {
			continue
		}
		v, present := values[name]
		if !present && attr.HasDefault && !attr.Optional {
			v = field.DeepCopy(attr.Default)
			present = true
		}

		var f field.Field
		var err error
		if present {
			f, err = field.New(name, attr.Schema, true, v, false, nil)
		} else {
			f, err = field.New(name, attr.Schema, false, nil, false, nil)
		}
		if err != nil {
			return err
		}
		inst.fields[name] = f
	}
	return nil
}

// buildCreateFields constructs a Field for every non-key attribute for a
// freshly created document. A default is applied whenever the attribute is
// absent and has one, regardless of whether it is required.
func (inst *Instance) buildCreateFields(values map[string]any) error {
	for name, attr := range inst.meta.Attrs {
		if attr.IsKey {
			continue
		}
		v, present := values[name]
		if !present && attr.HasDefault {
			v = field.DeepCopy(attr.Default)
			present = true
		}

		f, err := field.New(name, attr.Schema, false, nil, present, v)
		if err != nil {
			return err
		}
		inst.fields[name] = f
	}
	return nil
}

// validateRequired rejects a create whose required (non-optional,
// non-defaulted) attributes were never given a value.
func (inst *Instance) validateRequired() error {
	for name, attr := range inst.meta.Attrs {
		if attr.IsKey || attr.Optional {
			continue
		}
		f := inst.fields[name]
		if v, _ := f.Initial(); v == nil {
			if fv, err := f.Get(); err != nil || fv == nil {
				return errors.NewFieldError(name, "required attribute has no value")
			}
		}
	}
	return nil
}

// Key returns the document's identity handle.
func (inst *Instance) Key() Key { return inst.key }

// IsNew reports whether this instance represents a document not yet known
// to exist in the store.
func (inst *Instance) IsNew() bool { return inst.isNew }

// Get returns the current value of attribute name, which may be a key
// component (always available, never tracked as a Field) or a tracked
// field.
func (inst *Instance) Get(name string) (any, error) {
	if attr, ok := inst.meta.Attrs[name]; ok && attr.IsKey {
		return inst.key.Components[name], nil
	}
	f, ok := inst.fields[name]
	if !ok {
		return nil, errors.NewFieldError(name, "attribute not tracked on this instance")
	}
	return f.Get()
}

// Set assigns value to attribute name. Key attributes are immutable once a
// document has identity and are always rejected here.
func (inst *Instance) Set(name string, value any) error {
	if attr, ok := inst.meta.Attrs[name]; ok && attr.IsKey {
		return errors.NewFieldError(name, "key attributes cannot be set")
	}
	f, ok := inst.fields[name]
	if !ok {
		if inst.isPartial {
			return errors.NewFieldError(name, "attribute was not included in this partial update")
		}
		return errors.NewFieldError(name, "attribute not tracked on this instance")
	}
	return f.Set(value)
}

// Field exposes the underlying Field for name, for callers (txcontext, the
// increment helper) that need more than Get/Set — for example Numeric's
// IncrementBy. Returns false if name is not a tracked non-key attribute.
func (inst *Instance) Field(name string) (field.Field, bool) {
	f, ok := inst.fields[name]
	return f, ok
}

// Identifier recomputes the encoded document identifier from the instance's
// current key-component values. It reads the components held on the Key
// rather than going through any Field, because deriving the identifier is a
// structural operation, not an application read, and must not flip
// readAccessed on any field.
func (inst *Instance) Identifier() (any, error) {
	components := make(map[string]any, len(inst.meta.KeyOrder))
	for _, name := range inst.meta.KeyOrder {
		components[name] = inst.key.Components[name]
	}
	return keycodec.Encode(inst.meta.KeyComponents, components)
}

// FinalizeFunc is an application hook run once before commit, after which
// all required non-key attributes are re-validated.
type FinalizeFunc func(inst *Instance) error

// RunFinalize invokes fn (if non-nil) and then re-validates every tracked
// field, catching a finalize hook that left a required attribute unset or
// produced an invalid value without going through Set.
func (inst *Instance) RunFinalize(fn FinalizeFunc) error {
	if fn != nil {
		if err := fn(inst); err != nil {
			return err
		}
	}
	for name, attr := range inst.meta.Attrs {
		if attr.IsKey {
			continue
		}
		f, ok := inst.fields[name]
		if !ok {
			continue
		}
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return inst.validateRequired()
}

// WriteKind classifies the write shape Plan produces for commit-time
// dispatch. Delete is not represented here: deletion is tracked as a
// txcontext-level sentinel, not an Instance state.
type WriteKind int

const (
	WriteNone WriteKind = iota
	WriteCreate
	WriteCreateOrOverwrite
	WriteUpdate
)

// WritePlan is the commit-time write Instance.Plan produces: a kind plus
// the attribute values to send to the driver.
type WritePlan struct {
	Kind   WriteKind
	Key    Key
	Values map[string]any
}

// Plan determines the write this instance should dispatch at commit time.
// expectWrites mirrors Field.HasChangesToCommit's parameter: true inside a
// transaction that intends to write, suppressing the "only a silently
// applied default changed" case for a read-only fetch.
func (inst *Instance) Plan(expectWrites bool) (WritePlan, error) {
	kind := WriteUpdate
	switch {
	case inst.isSet:
		kind = WriteCreateOrOverwrite
	case inst.isNew:
		kind = WriteCreate
	}

	values := make(map[string]any)
	for name, f := range inst.fields {
		if !f.HasChangesToCommit(expectWrites) {
			continue
		}
		v, ok := f.WriteValue()
		if !ok {
			continue
		}
		values[name] = v
	}

	if kind == WriteUpdate && len(values) == 0 {
		return WritePlan{Kind: WriteNone, Key: inst.key}, nil
	}

	return WritePlan{Kind: kind, Key: inst.key, Values: values}, nil
}

// PartialPayload returns the driver-ready attribute map for an
// updateWithoutRead dispatch, which happens immediately at call time rather
// than through the tracked-slot commit walk. Returns GenericModel-wrapped
// error if the update provides no data to change.
func (inst *Instance) PartialPayload() (map[string]any, error) {
	values := make(map[string]any)
	for name, f := range inst.fields {
		v, ok := f.WriteValue()
		if !ok {
			continue
		}
		values[name] = v
	}
	if len(values) == 0 {
		return nil, errors.Op("updateWithoutRead", fmt.Errorf("%w: update did not provide any data to change", errors.ErrGenericModel))
	}
	return values, nil
}

// SnapshotOptions controls what Snapshot includes.
type SnapshotOptions struct {
	// Initial takes each field's initial (load-time) value instead of its
	// current value.
	Initial bool
	// IncludeIDAsField additionally stores the encoded identifier under the
	// reserved "identifier" key.
	IncludeIDAsField bool
	// OmitKey excludes the key components from the result entirely.
	OmitKey bool
}

// Snapshot captures the instance's attribute values without touching any
// field's readAccessed or written flags (it uses Peek, not Get) — taking a
// snapshot must never be observable as an application read.
func (inst *Instance) Snapshot(opts SnapshotOptions) (map[string]any, error) {
	out := make(map[string]any)

	if !opts.OmitKey {
		for name, v := range inst.key.Components {
			out[name] = v
		}
	}

	for name, f := range inst.fields {
		if opts.Initial {
			v, had := f.Initial()
			if !had {
				continue
			}
			out[name] = v
			continue
		}
		out[name] = f.Peek()
	}

	if opts.IncludeIDAsField {
		id, err := inst.Identifier()
		if err != nil {
			return nil, err
		}
		out["identifier"] = id
	}

	return out, nil
}

// Diff reports attribute names whose value differs between before and
// after, using deep equality (used by event payloads that report what
// changed across a commit).
func Diff(before, after map[string]any) map[string]any {
	out := make(map[string]any)
	for k, av := range after {
		bv, existed := before[k]
		if !existed || !reflect.DeepEqual(bv, av) {
			out[k] = av
		}
	}
	for k := range before {
		if _, stillPresent := after[k]; !stillPresent {
			out[k] = nil
		}
	}
	return out
}
