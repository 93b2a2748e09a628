package descriptor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/firedoc/pkg/descriptor"
)

func TestCompile_RejectsNilDescriptor(t *testing.T) {
	_, err := descriptor.Compile("f", nil)
	require.Error(t, err)
}

func TestCompile_RejectsDefaultFailingItsOwnValidator(t *testing.T) {
	_, err := descriptor.Compile("f", descriptor.Integer("min=0").WithDefault(-1.0))
	require.Error(t, err)
}

func TestCompileKeyComponent_RejectsOptional(t *testing.T) {
	_, err := descriptor.CompileKeyComponent("id", descriptor.String("").Opt())
	require.Error(t, err)
}

func TestCompileKeyComponent_RejectsMutable(t *testing.T) {
	_, err := descriptor.CompileKeyComponent("id", descriptor.String(""))
	require.Error(t, err)
}

func TestCompileKeyComponent_RejectsDefault(t *testing.T) {
	_, err := descriptor.CompileKeyComponent("id", descriptor.String("").Imm().WithDefault("x"))
	require.Error(t, err)
}

func TestCompileKeyComponent_AcceptsImmutableNonOptionalNoDefault(t *testing.T) {
	c, err := descriptor.CompileKeyComponent("id", descriptor.String("").Imm())
	require.NoError(t, err)
	assert.Equal(t, descriptor.TagString, c.TypeTag)
}

func TestBasic_Validate_RequiredRejectsNil(t *testing.T) {
	b := descriptor.String("")
	err := b.Validate(nil)
	require.Error(t, err)
}

func TestBasic_Validate_OptionalAcceptsNil(t *testing.T) {
	b := descriptor.String("").Opt()
	require.NoError(t, b.Validate(nil))
}

func TestBasic_Validate_KindMismatch(t *testing.T) {
	b := descriptor.Integer("")
	err := b.Validate("not a number")
	require.Error(t, err)
}

func TestBasic_Validate_ValidatorTagEnforced(t *testing.T) {
	b := descriptor.Integer("min=0")
	require.NoError(t, b.Validate(5.0))
	require.Error(t, b.Validate(-1.0))
}

func TestBasic_JSONShape_IncludesFlags(t *testing.T) {
	b := descriptor.String("min=1").Opt().Imm()
	shape := b.JSONShape().(map[string]any)
	assert.Equal(t, "string", shape["type"])
	assert.Equal(t, "min=1", shape["rules"])
	assert.Equal(t, true, shape["optional"])
	assert.Equal(t, true, shape["immutable"])
}
