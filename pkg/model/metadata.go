// Package model implements the Model Runtime and its supporting static
// declaration (the "Model class"), plus the handle types, which are kept
// in this same package to avoid an import cycle: a Model instance carries
// a reference to its Key, and building a Key requires the class's compiled
// metadata.
package model

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/theory-cloud/firedoc/pkg/descriptor"
	"github.com/theory-cloud/firedoc/pkg/errors"
	"github.com/theory-cloud/firedoc/pkg/keycodec"
)

// Class is the static declaration application code provides for one
// document shape.
type Class interface {
	// ClassName identifies the class; used as the default collection name.
	ClassName() string
	// KeySchema maps key-component name to its descriptor. At least one
	// component is required.
	KeySchema() map[string]descriptor.Descriptor
	// FieldSchema maps non-key attribute name to its descriptor.
	FieldSchema() map[string]descriptor.Descriptor
}

// CollectionNamer lets a Class override the default collection name
// (otherwise ClassName() is used).
type CollectionNamer interface {
	CollectionName() string
}

// reservedAttrNames collides with the instance façade's own surface: no
// attribute name may collide with an instance-method name on the façade.
var reservedAttrNames = map[string]bool{
	"isNew":      true,
	"get":        true,
	"set":        true,
	"key":        true,
	"identifier": true,
	"finalize":   true,
	"snapshot":   true,
}

var collectionNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)
var reservedCollectionSuffixes = []string{"Model", "Table", "Collection"}

// AttrOptions is the compiled shape of one attribute (key component or
// field), merged into Metadata.Attrs.
type AttrOptions struct {
	Name      string
	Schema    *descriptor.Compiled
	IsKey     bool
	Optional  bool
	Immutable bool
	Default   any
	HasDefault bool
}

// Metadata is the derived, memoized compilation of a Class.
type Metadata struct {
	Class          Class
	CollectionName string
	KeyOrder       []string
	KeyComponents  []keycodec.Component
	Attrs          map[string]AttrOptions
}

var metadataCache sync.Map // reflect.Type -> *Metadata

// Compile returns the memoized Metadata for cls, computing it on first
// access.
func Compile(cls Class) (*Metadata, error) {
	t := reflect.TypeOf(cls)
	if cached, ok := metadataCache.Load(t); ok {
		return cached.(*Metadata), nil
	}

	meta, err := compile(cls)
	if err != nil {
		return nil, err
	}

	actual, _ := metadataCache.LoadOrStore(t, meta)
	return actual.(*Metadata), nil
}

func compile(cls Class) (*Metadata, error) {
	keySchema := cls.KeySchema()
	fieldSchema := cls.FieldSchema()

	if len(keySchema) == 0 {
		return nil, errors.NewFieldError("", fmt.Sprintf("model %s: KEY must declare at least one component", cls.ClassName()))
	}

	attrs := make(map[string]AttrOptions, len(keySchema)+len(fieldSchema))
	keyOrder := make([]string, 0, len(keySchema))

	for name, d := range keySchema {
		if err := checkAttrName(name, fieldSchema); err != nil {
			return nil, err
		}
		compiled, err := descriptor.CompileKeyComponent(name, d)
		if err != nil {
			return nil, err
		}
		attrs[name] = AttrOptions{
			Name:      name,
			Schema:    compiled,
			IsKey:     true,
			Optional:  false,
			Immutable: true,
		}
		keyOrder = append(keyOrder, name)
	}

	for name, d := range fieldSchema {
		if err := checkAttrName(name, keySchema); err != nil {
			return nil, err
		}
		compiled, err := descriptor.Compile(name, d)
		if err != nil {
			return nil, err
		}
		attrs[name] = AttrOptions{
			Name:       name,
			Schema:     compiled,
			IsKey:      false,
			Optional:   compiled.Optional,
			Immutable:  compiled.Immutable,
			Default:    compiled.Default,
			HasDefault: compiled.HasDefault,
		}
	}

	sort.Strings(keyOrder)

	keyComponents := make([]keycodec.Component, len(keyOrder))
	for i, name := range keyOrder {
		keyComponents[i] = keycodec.Component{Name: name, Tag: attrs[name].Schema.TypeTag}
	}

	collectionName := cls.ClassName()
	if namer, ok := cls.(CollectionNamer); ok {
		collectionName = namer.CollectionName()
	}
	if err := validateCollectionName(collectionName); err != nil {
		return nil, err
	}

	return &Metadata{
		Class:          cls,
		CollectionName: collectionName,
		KeyOrder:       keyOrder,
		KeyComponents:  keyComponents,
		Attrs:          attrs,
	}, nil
}

func checkAttrName(name string, other map[string]descriptor.Descriptor) error {
	if strings.HasPrefix(name, "_") {
		return errors.NewFieldError(name, "attribute names may not start with '_'")
	}
	if reservedAttrNames[name] {
		return errors.NewFieldError(name, "attribute name collides with a reserved name")
	}
	if _, collide := other[name]; collide {
		return errors.NewFieldError(name, "attribute name appears in both KEY and FIELDS")
	}
	return nil
}

func validateCollectionName(name string) error {
	if !collectionNamePattern.MatchString(name) {
		return errors.NewFieldError("", fmt.Sprintf("collection name %q must start with an uppercase letter and contain only letters/digits", name))
	}
	for _, suffix := range reservedCollectionSuffixes {
		if strings.HasSuffix(name, suffix) {
			return errors.NewFieldError("", fmt.Sprintf("collection name %q may not end in %q", name, suffix))
		}
	}
	return nil
}
