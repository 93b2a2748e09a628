package model

import (
	"fmt"

	"github.com/theory-cloud/firedoc/pkg/errors"
	"github.com/theory-cloud/firedoc/pkg/keycodec"
)

// Key is identity only: a class, its compiled metadata, the encoded
// identifier, and the raw key-component values.
type Key struct {
	Class      Class
	Meta       *Metadata
	EncodedID  any
	Components map[string]any
}

// Path renders the document path: collectionName/encodedID.
func (k Key) Path() string { return fmt.Sprintf("%s/%v", k.Meta.CollectionName, k.EncodedID) }

// Data is a Key plus a map of non-key initial values, used to create a
// document without first reading it.
type Data struct {
	Key
	Values map[string]any
}

// KeyOf canonicalizes input into a Key for cls. input may be a bare scalar
// (only legal when cls declares exactly one key component) or a
// map[string]any of key-component values. Non-key fields present in a map
// input raise InvalidParameter — use DataOf for that.
func KeyOf(cls Class, input any) (Key, error) {
	meta, err := Compile(cls)
	if err != nil {
		return Key{}, err
	}

	var components map[string]any
	if m, ok := input.(map[string]any); ok {
		keyVals, rest := splitValues(meta, m)
		if len(rest) > 0 {
			return Key{}, errors.ErrInvalidParameter
		}
		components = keyVals
	} else {
		if len(meta.KeyOrder) != 1 {
			return Key{}, errors.ErrInvalidParameter
		}
		components = map[string]any{meta.KeyOrder[0]: input}
	}

	return buildKey(meta, components)
}

// DataOf splits values into key components and the rest, building a Data
// handle that retains the non-key values for later model construction.
func DataOf(cls Class, values map[string]any) (Data, error) {
	meta, err := Compile(cls)
	if err != nil {
		return Data{}, err
	}

	keyVals, rest := splitValues(meta, values)
	key, err := buildKey(meta, keyVals)
	if err != nil {
		return Data{}, err
	}
	return Data{Key: key, Values: rest}, nil
}

func splitValues(meta *Metadata, values map[string]any) (key map[string]any, rest map[string]any) {
	keySet := make(map[string]bool, len(meta.KeyOrder))
	for _, name := range meta.KeyOrder {
		keySet[name] = true
	}
	key = make(map[string]any, len(meta.KeyOrder))
	rest = make(map[string]any)
	for k, v := range values {
		if keySet[k] {
			key[k] = v
		} else {
			rest[k] = v
		}
	}
	return key, rest
}

func buildKey(meta *Metadata, components map[string]any) (Key, error) {
	for _, name := range meta.KeyOrder {
		v, ok := components[name]
		if !ok {
			return Key{}, errors.NewFieldError(name, "missing key component")
		}
		if err := meta.Attrs[name].Schema.AssertValid(v); err != nil {
			return Key{}, errors.NewFieldError(name, err.Error())
		}
	}

	encoded, err := keycodec.Encode(meta.KeyComponents, components)
	if err != nil {
		return Key{}, err
	}

	return Key{
		Class:      meta.Class,
		Meta:       meta,
		EncodedID:  encoded,
		Components: components,
	}, nil
}

// UniqueKeyList deduplicates by (className, encodedID), preserving
// first-seen order.
type UniqueKeyList struct {
	items []Key
	seen  map[string]struct{}
}

// NewUniqueKeyList returns an empty list.
func NewUniqueKeyList() *UniqueKeyList {
	return &UniqueKeyList{seen: make(map[string]struct{})}
}

// Push appends each key not already present, in argument order.
func (l *UniqueKeyList) Push(keys ...Key) {
	for _, k := range keys {
		id := k.Meta.CollectionName + "\x00" + fmt.Sprint(k.EncodedID)
		if _, ok := l.seen[id]; ok {
			continue
		}
		l.seen[id] = struct{}{}
		l.items = append(l.items, k)
	}
}

// Items returns the deduplicated keys in first-seen order.
func (l *UniqueKeyList) Items() []Key { return l.items }

// Len returns the number of distinct keys pushed so far.
func (l *UniqueKeyList) Len() int { return len(l.items) }
