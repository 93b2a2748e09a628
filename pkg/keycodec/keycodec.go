// Package keycodec implements the deterministic encode/decode between a
// compound-key component map and a single document identifier.
package keycodec

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/theory-cloud/firedoc/pkg/descriptor"
	"github.com/theory-cloud/firedoc/pkg/errors"
)

// Component describes one key component's declared type, enough for Encode
// to validate and canonicalize, and for Decode to parse a piece back.
type Component struct {
	Name string
	Tag  descriptor.TypeTag
}

// Encode canonicalizes components (in keyOrder) into the single encoded
// identifier. For the single-component numeric case, the identifier is the
// numeric value itself, returned as a float64. Otherwise each component is
// rendered (strings verbatim, after rejecting an embedded NUL; everything
// else as canonical JSON with object keys sorted) and the pieces are joined
// with a single NUL separator.
func Encode(keyOrder []Component, components map[string]any) (any, error) {
	if len(keyOrder) == 0 {
		return nil, errors.NewFieldError("", "key schema must declare at least one component")
	}

	if len(keyOrder) == 1 && isNumeric(keyOrder[0].Tag) {
		v, ok := components[keyOrder[0].Name]
		if !ok {
			return nil, errors.NewFieldError(keyOrder[0].Name, "missing key component value")
		}
		switch n := v.(type) {
		case int:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case float32:
			return float64(n), nil
		}
		return v, nil
	}

	pieces := make([]string, len(keyOrder))
	for i, comp := range keyOrder {
		v, ok := components[comp.Name]
		if !ok {
			return nil, errors.NewFieldError(comp.Name, "missing key component value")
		}
		piece, err := renderComponent(comp, v)
		if err != nil {
			return nil, err
		}
		pieces[i] = piece
	}
	return strings.Join(pieces, "\x00"), nil
}

func renderComponent(comp Component, v any) (string, error) {
	if comp.Tag == descriptor.TagString {
		s, ok := v.(string)
		if !ok {
			return "", errors.NewFieldError(comp.Name, fmt.Sprintf("expected string, got %T", v))
		}
		if strings.ContainsRune(s, 0) {
			return "", errors.NewFieldError(comp.Name, "string key components may not contain NUL")
		}
		return s, nil
	}
	return canonicalJSON(v)
}

// canonicalJSON renders v as JSON with object keys sorted lexicographically,
// so that permutations of the same logical object key component encode
// identically.
func canonicalJSON(v any) (string, error) {
	normalized, err := normalize(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(normalized)
	if err != nil {
		return "", errors.NewFieldError("", fmt.Sprintf("failed to encode key component: %v", err))
	}
	return string(b), nil
}

// normalize rewrites a map[string]any into a sorted-key representation
// (encoding/json already sorts map keys on marshal, but we do it explicitly
// so decode's round trip is obviously symmetric and so nested maps are
// normalized too).
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(val))
		for _, k := range keys {
			nv, err := normalize(val[k])
			if err != nil {
				return nil, err
			}
			out[k] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			nv, err := normalize(item)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return v, nil
	}
}

// Decode splits an encoded identifier back into a component map. For the
// single-component numeric case, encoded is returned verbatim under that
// component's name.
func Decode(keyOrder []Component, encoded any) (map[string]any, error) {
	if len(keyOrder) == 0 {
		return nil, errors.NewFieldError("", "key schema must declare at least one component")
	}

	if len(keyOrder) == 1 && isNumeric(keyOrder[0].Tag) {
		return map[string]any{keyOrder[0].Name: encoded}, nil
	}

	s, ok := encoded.(string)
	if !ok {
		return nil, errors.NewFieldError("", fmt.Sprintf("expected a string encoded identifier, got %T", encoded))
	}

	pieces := strings.Split(s, "\x00")
	if len(pieces) != len(keyOrder) {
		return nil, errors.NewFieldError("", fmt.Sprintf("encoded identifier has %d component(s), expected %d", len(pieces), len(keyOrder)))
	}

	out := make(map[string]any, len(keyOrder))
	for i, comp := range keyOrder {
		v, err := parseComponent(comp, pieces[i])
		if err != nil {
			return nil, err
		}
		out[comp.Name] = v
	}
	return out, nil
}

func parseComponent(comp Component, piece string) (any, error) {
	if comp.Tag == descriptor.TagString {
		return piece, nil
	}

	switch comp.Tag {
	case descriptor.TagInteger, descriptor.TagNumber:
		f, err := strconv.ParseFloat(piece, 64)
		if err != nil {
			return nil, errors.NewFieldError(comp.Name, fmt.Sprintf("failed to parse numeric key component: %v", err))
		}
		return f, nil
	case descriptor.TagBoolean:
		b, err := strconv.ParseBool(piece)
		if err != nil {
			return nil, errors.NewFieldError(comp.Name, fmt.Sprintf("failed to parse boolean key component: %v", err))
		}
		return b, nil
	default:
		var v any
		if err := json.Unmarshal([]byte(piece), &v); err != nil {
			return nil, errors.NewFieldError(comp.Name, fmt.Sprintf("failed to parse key component: %v", err))
		}
		return v, nil
	}
}

func isNumeric(tag descriptor.TypeTag) bool {
	return tag == descriptor.TagInteger || tag == descriptor.TagNumber
}
