package enquiry

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/staybook/pkg/types"
)

// converters turns raw input into the typed value of a field. Fields not
// listed here are stored as given.
var converters = map[string]func(any) (any, error){
	types.FieldPropRef:  convertString,
	types.FieldStatus:   convertString,
	types.FieldMessage:  convertString,
	types.FieldFromDate: convertDate,
	types.FieldToDate:   convertDate,
	types.FieldAdults:   convertCount,
	types.FieldChildren: convertCount,
	types.FieldInfants:  convertCount,
	types.FieldPets:     convertCount,
}

func convertDate(raw any) (any, error) {
	return types.ConvertDate(raw)
}

func convertString(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return nil, fmt.Errorf("%w: expected a string, got %T", types.ErrInvalidValue, raw)
	}
}

// convertCount returns a *int, nil when the counter is being removed.
func convertCount(raw any) (any, error) {
	var n int
	switch v := raw.(type) {
	case nil:
		return (*int)(nil), nil
	case int:
		n = v
	case int32:
		n = int(v)
	case int64:
		n = int(v)
	case *int:
		if v == nil {
			return (*int)(nil), nil
		}
		n = *v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("%w: %v is not a whole number", types.ErrInvalidValue, v)
		}
		n = int(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return (*int)(nil), nil
		}
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", types.ErrInvalidValue, v)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("%w: expected a number, got %T", types.ErrInvalidValue, raw)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d is negative", types.ErrInvalidValue, n)
	}
	return &n, nil
}
