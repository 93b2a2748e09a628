package ddbstore

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/firedoc/pkg/driver"
)

// buildUpdateExpression turns a write payload into a DynamoDB
// UpdateExpression, splitting attributes across SET/REMOVE/ADD clauses
// depending on whether the value is a plain value, a driver.DeleteSentinel,
// or a driver.IncrementSentinel. Placeholder naming (#f%d / :v%d) follows
// the teacher's pkg/transaction/transaction.go's buildUpdateExpression.
func buildUpdateExpression(data map[string]any) (string, map[string]string, map[string]types.AttributeValue, error) {
	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)

	var setClauses, removeClauses, addClauses []string
	i := 0
	for attr, v := range data {
		nameRef := fmt.Sprintf("#f%d", i)
		names[nameRef] = attr
		i++

		switch sv := v.(type) {
		case driver.DeleteSentinel:
			removeClauses = append(removeClauses, nameRef)
		case driver.IncrementSentinel:
			valueRef := fmt.Sprintf(":v%d", i)
			av, err := toAttributeValue(sv.Delta)
			if err != nil {
				return "", nil, nil, fmt.Errorf("firedoc: ddbstore: increment value for %q: %w", attr, err)
			}
			values[valueRef] = av
			addClauses = append(addClauses, nameRef+" "+valueRef)
		default:
			valueRef := fmt.Sprintf(":v%d", i)
			av, err := toAttributeValue(v)
			if err != nil {
				return "", nil, nil, fmt.Errorf("firedoc: ddbstore: value for %q: %w", attr, err)
			}
			values[valueRef] = av
			setClauses = append(setClauses, nameRef+" = "+valueRef)
		}
	}

	expr := ""
	if len(setClauses) > 0 {
		expr += "SET " + joinClauses(setClauses)
	}
	if len(addClauses) > 0 {
		if expr != "" {
			expr += " "
		}
		expr += "ADD " + joinClauses(addClauses)
	}
	if len(removeClauses) > 0 {
		if expr != "" {
			expr += " "
		}
		expr += "REMOVE " + joinClauses(removeClauses)
	}

	if expr == "" {
		return "", nil, nil, nil
	}
	return expr, names, values, nil
}

func joinClauses(clauses []string) string {
	out := ""
	for i, c := range clauses {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
