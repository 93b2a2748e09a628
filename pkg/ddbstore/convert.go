package ddbstore

import (
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/firedoc/pkg/driver"
)

// toAttributeValue converts one document attribute value — a string,
// float64, bool, []any, or map[string]any, per the type tags descriptor
// compilation restricts Field values to — into a DynamoDB AttributeValue.
// Narrower than the teacher's reflect-based pkg/types.Converter, since
// every value reaching here has already passed through a compiled
// descriptor and is one of a closed set of shapes.
func toAttributeValue(v any) (types.AttributeValue, error) {
	switch val := v.(type) {
	case nil:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case string:
		return &types.AttributeValueMemberS{Value: val}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: val}, nil
	case float64:
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(val, 'f', -1, 64)}, nil
	case []any:
		items := make([]types.AttributeValue, len(val))
		for i, item := range val {
			av, err := toAttributeValue(item)
			if err != nil {
				return nil, err
			}
			items[i] = av
		}
		return &types.AttributeValueMemberL{Value: items}, nil
	case map[string]any:
		m := make(map[string]types.AttributeValue, len(val))
		for k, item := range val {
			av, err := toAttributeValue(item)
			if err != nil {
				return nil, err
			}
			m[k] = av
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, fmt.Errorf("firedoc: ddbstore: unsupported attribute value type %T", v)
	}
}

// fromAttributeValue is toAttributeValue's inverse.
func fromAttributeValue(av types.AttributeValue) (any, error) {
	switch val := av.(type) {
	case *types.AttributeValueMemberNULL:
		return nil, nil
	case *types.AttributeValueMemberS:
		return val.Value, nil
	case *types.AttributeValueMemberBOOL:
		return val.Value, nil
	case *types.AttributeValueMemberN:
		f, err := strconv.ParseFloat(val.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("firedoc: ddbstore: malformed numeric attribute %q: %w", val.Value, err)
		}
		return f, nil
	case *types.AttributeValueMemberL:
		out := make([]any, len(val.Value))
		for i, item := range val.Value {
			v, err := fromAttributeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case *types.AttributeValueMemberM:
		out := make(map[string]any, len(val.Value))
		for k, item := range val.Value {
			v, err := fromAttributeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("firedoc: ddbstore: unsupported DynamoDB attribute value %T", av)
	}
}

func itemToMap(item map[string]types.AttributeValue) (map[string]any, error) {
	out := make(map[string]any, len(item))
	for k, av := range item {
		v, err := fromAttributeValue(av)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// mapToItem marshals a write payload, resolving the core's delete and
// increment sentinels into DynamoDB's own SET/REMOVE/ADD idioms is the
// caller's job (buildUpdateExpression); this is used only for full-item
// puts (Create/Set), where a sentinel has no meaning.
func mapToItem(data map[string]any) (map[string]types.AttributeValue, error) {
	item := make(map[string]types.AttributeValue, len(data))
	for k, v := range data {
		switch v.(type) {
		case driver.DeleteSentinel, driver.IncrementSentinel:
			return nil, fmt.Errorf("firedoc: ddbstore: sentinel value for %q is only valid in an update", k)
		}
		av, err := toAttributeValue(v)
		if err != nil {
			return nil, err
		}
		item[k] = av
	}
	return item, nil
}
