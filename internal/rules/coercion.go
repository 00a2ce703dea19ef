// internal/rules/coercion.go
package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/alertkeeper/internal/types"
)

/*
 * Type coercion for declarative conditions.
 *
 * Every record field has a fixed type, so condition values are coerced once
 * at compile time and record values are normalized at evaluation time.
 *
 * Type modes:
 *   - NUMERIC: Strict - numbers and numeric strings become float64, booleans rejected
 *   - TEXT: Lenient - scalars become their string form
 *   - BOOLEAN: Strict - booleans only
 *
 * Severity is TEXT but its values are checked against the known severity
 * names, so a typo in a rule file fails compilation instead of never matching.
 */

// FieldType is the comparison type of a record field.
type FieldType int

const (
	FieldTypeUnspecified FieldType = iota
	FieldTypeNumeric
	FieldTypeText
	FieldTypeBoolean
)

func (ft FieldType) String() string {
	switch ft {
	case FieldTypeNumeric:
		return "numeric"
	case FieldTypeText:
		return "text"
	case FieldTypeBoolean:
		return "boolean"
	default:
		return "unspecified"
	}
}

var fieldTypes = map[string]FieldType{
	types.FieldValid:         FieldTypeBoolean,
	types.FieldCategory:      FieldTypeText,
	types.FieldSeverity:      FieldTypeText,
	types.FieldSeverityLevel: FieldTypeNumeric,
	types.FieldApproaching:   FieldTypeBoolean,
	types.FieldHail:          FieldTypeBoolean,
	types.FieldTemperature:   FieldTypeNumeric,
	types.FieldHumidity:      FieldTypeNumeric,
}

// FieldTypeOf returns the type of a record field.
// Returns ErrUnknownField for names records do not have.
func FieldTypeOf(field string) (FieldType, error) {
	ft, ok := fieldTypes[field]
	if !ok {
		return FieldTypeUnspecified, fmt.Errorf("%w: %q", types.ErrUnknownField, field)
	}
	return ft, nil
}

// Coerce converts value to the representation used for fieldType.
// Returns ErrCoercionFailed for nil input and impossible coercions.
func Coerce(value any, fieldType FieldType) (any, error) {
	if value == nil {
		return nil, types.ErrCoercionFailed
	}

	switch fieldType {
	case FieldTypeNumeric:
		return coerceNumeric(value)
	case FieldTypeText:
		return coerceText(value)
	case FieldTypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, types.ErrCoercionFailed
	default:
		return nil, types.ErrCoercionFailed
	}
}

func coerceNumeric(value any) (any, error) {
	if f, ok := toFloat64(value); ok {
		return f, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, types.ErrCoercionFailed
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, types.ErrCoercionFailed
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, types.ErrCoercionFailed
	}
	return f, nil
}

func coerceText(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return nil, types.ErrCoercionFailed
	}
}

// coerceConditionValue coerces a rule file value for field.
func coerceConditionValue(field string, fieldType FieldType, value any) (any, error) {
	v, err := Coerce(value, fieldType)
	if err != nil {
		return nil, fmt.Errorf("%w: field %s expects %s, got %v", err, field, fieldType, value)
	}
	if field == types.FieldSeverity {
		sev, err := types.ParseSeverity(v.(string))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrCoercionFailed, err)
		}
		return sev.String(), nil
	}
	return v, nil
}
