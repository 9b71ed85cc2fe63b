package dynamo

import (
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// itemToRow converts a DynamoDB item into a plain row mapping. Numbers are
// parsed to float64 so no fixed-point representation leaks to the pipeline.
func itemToRow(item map[string]types.AttributeValue) map[string]any {
	row := make(map[string]any, len(item))
	for key, av := range item {
		row[key] = attributeToValue(av)
	}
	return row
}

func attributeToValue(av types.AttributeValue) any {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		f, err := strconv.ParseFloat(v.Value, 64)
		if err != nil {
			return v.Value
		}
		return f
	case *types.AttributeValueMemberBOOL:
		return v.Value
	case *types.AttributeValueMemberNULL:
		return nil
	case *types.AttributeValueMemberSS:
		out := make([]any, 0, len(v.Value))
		for _, s := range v.Value {
			out = append(out, s)
		}
		return out
	case *types.AttributeValueMemberNS:
		out := make([]any, 0, len(v.Value))
		for _, n := range v.Value {
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				out = append(out, f)
			} else {
				out = append(out, n)
			}
		}
		return out
	case *types.AttributeValueMemberL:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, attributeToValue(item))
		}
		return out
	case *types.AttributeValueMemberM:
		return itemToRow(v.Value)
	case *types.AttributeValueMemberB:
		return v.Value
	default:
		return nil
	}
}
