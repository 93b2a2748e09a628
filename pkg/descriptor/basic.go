package descriptor

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level validator instance, mirroring the
// niiniyare-ruun repo's use of go-playground/validator as the backing
// engine for declarative field validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Basic is a minimal, self-contained reference implementation of
// Descriptor. Its shape — Name/Type/required flag/default/validation tag —
// follows the field-descriptor struct used by niiniyare-ruun's
// schema.Field, adapted here to drive go-playground/validator "tag" rules
// instead of a UI form renderer.
type Basic struct {
	// Tag is the attribute's declared type.
	Tag TypeTag
	// Rules is a go-playground/validator tag string, e.g. "required,min=0".
	// Empty means "anything of the right Go kind is valid".
	Rules string
	// DefaultValue and HasDefaultValue describe the attribute's default.
	DefaultValue    any
	HasDefaultValue bool
	// IsOptional and IsImmutable map directly to Descriptor's flags.
	IsOptional  bool
	IsImmutable bool
}

func String(rules string) Basic  { return Basic{Tag: TagString, Rules: rules} }
func Integer(rules string) Basic { return Basic{Tag: TagInteger, Rules: rules} }
func Number(rules string) Basic  { return Basic{Tag: TagNumber, Rules: rules} }
func Boolean() Basic             { return Basic{Tag: TagBoolean} }
func Array(rules string) Basic   { return Basic{Tag: TagArray, Rules: rules} }
func Object(rules string) Basic  { return Basic{Tag: TagObject, Rules: rules} }

// Opt marks b optional.
func (b Basic) Opt() Basic { b.IsOptional = true; return b }

// Imm marks b immutable.
func (b Basic) Imm() Basic { b.IsImmutable = true; return b }

// WithDefault attaches a default value to b.
func (b Basic) WithDefault(v any) Basic {
	b.DefaultValue = v
	b.HasDefaultValue = true
	return b
}

func (b Basic) TypeTag() TypeTag { return b.Tag }
func (b Basic) Optional() bool   { return b.IsOptional }
func (b Basic) Immutable() bool  { return b.IsImmutable }

func (b Basic) Default() (any, bool) {
	return b.DefaultValue, b.HasDefaultValue
}

func (b Basic) JSONShape() any {
	shape := map[string]any{"type": string(b.Tag)}
	if b.Rules != "" {
		shape["rules"] = b.Rules
	}
	if b.IsOptional {
		shape["optional"] = true
	}
	if b.IsImmutable {
		shape["immutable"] = true
	}
	return shape
}

func (b Basic) Validate(value any) error {
	if value == nil {
		if b.IsOptional || b.HasDefaultValue {
			return nil
		}
		return fmt.Errorf("value is required")
	}

	if err := b.checkKind(value); err != nil {
		return err
	}

	if b.Rules == "" {
		return nil
	}

	if err := validate.Var(value, b.Rules); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

func (b Basic) checkKind(value any) error {
	switch b.Tag {
	case TagString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case TagBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
	case TagInteger:
		switch n := value.(type) {
		case int, int32, int64:
		case float64:
			if n != math.Trunc(n) {
				return fmt.Errorf("expected integer, got %v", n)
			}
		default:
			return fmt.Errorf("expected integer, got %T", value)
		}
	case TagNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	case TagArray:
		if _, ok := value.([]any); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	case TagObject:
		if _, ok := value.(map[string]any); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	}
	return nil
}
