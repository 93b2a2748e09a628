// Package descriptor adapts external, JSON-schema-like field descriptors
// into the compiled shape the rest of firedoc consumes (§4.1). The
// descriptor library itself is an external collaborator — this package only
// defines the interface it must satisfy, plus one reference implementation
// (Basic) used by the examples and tests.
package descriptor

import (
	"fmt"

	"github.com/theory-cloud/firedoc/pkg/errors"
)

// TypeTag selects the Field variant a compiled descriptor drives.
type TypeTag string

const (
	TagArray   TypeTag = "array"
	TagBoolean TypeTag = "boolean"
	TagInteger TypeTag = "integer"
	TagNumber  TypeTag = "number"
	TagObject  TypeTag = "object"
	TagString  TypeTag = "string"
)

// Descriptor is the shape an external schema-descriptor library exposes for
// one declared attribute.
type Descriptor interface {
	// TypeTag reports the attribute's declared type.
	TypeTag() TypeTag
	// Validate reports whether value satisfies the descriptor's rules. A
	// nil value (absent) is only valid when Optional() or a Default exists.
	Validate(value any) error
	// JSONShape returns the descriptor's own schema representation, used
	// only for introspection/documentation.
	JSONShape() any
	// Optional reports whether the attribute may be absent.
	Optional() bool
	// Immutable reports whether the attribute may not be written after its
	// initial value is set.
	Immutable() bool
	// Default returns the attribute's default value, if any.
	Default() (value any, ok bool)
}

// Compiled is the extracted, memoizable shape of one descriptor (§4.1).
type Compiled struct {
	TypeTag     TypeTag
	JSONShape   any
	Default     any
	HasDefault  bool
	Optional    bool
	Immutable   bool
	AssertValid func(value any) error
}

// Compile extracts {typeTag, validator, jsonShape, optional, immutable,
// default, assertValid} from d, rejecting a default that fails its own
// validator.
func Compile(name string, d Descriptor) (*Compiled, error) {
	if d == nil {
		return nil, errors.NewFieldError(name, "descriptor is nil")
	}

	c := &Compiled{
		TypeTag:     d.TypeTag(),
		JSONShape:   d.JSONShape(),
		Optional:    d.Optional(),
		Immutable:   d.Immutable(),
		AssertValid: d.Validate,
	}

	if def, ok := d.Default(); ok {
		if err := d.Validate(def); err != nil {
			return nil, errors.NewFieldError(name, fmt.Sprintf("default value fails its own validator: %v", err))
		}
		c.Default = def
		c.HasDefault = true
	}

	return c, nil
}

// CompileKeyComponent is Compile plus the extra invariants the key codec
// requires of a KEY attribute: a key component must not be optional,
// must not be writable after its initial set (Immutable), and must carry
// no default.
func CompileKeyComponent(name string, d Descriptor) (*Compiled, error) {
	c, err := Compile(name, d)
	if err != nil {
		return nil, err
	}
	if c.Optional {
		return nil, errors.NewFieldError(name, "key components may not be optional")
	}
	if !c.Immutable {
		return nil, errors.NewFieldError(name, "key components must be immutable")
	}
	if c.HasDefault {
		return nil, errors.NewFieldError(name, "key components may not carry a default")
	}
	return c, nil
}
