package rules

import (
	"errors"
	"testing"

	"github.com/solatis/alertkeeper/internal/types"
)

func TestCoerce(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		fieldType FieldType
		want      any
		wantErr   error
	}{
		{"numeric: int", 100, FieldTypeNumeric, 100.0, nil},
		{"numeric: int64", int64(7), FieldTypeNumeric, 7.0, nil},
		{"numeric: float64", 42.5, FieldTypeNumeric, 42.5, nil},
		{"numeric: string", "25", FieldTypeNumeric, 25.0, nil},
		{"numeric: string with whitespace", "  42  ", FieldTypeNumeric, 42.0, nil},
		{"numeric: whitespace only", "   ", FieldTypeNumeric, nil, types.ErrCoercionFailed},
		{"numeric: not a number", "abc", FieldTypeNumeric, nil, types.ErrCoercionFailed},
		{"numeric: bool rejected", true, FieldTypeNumeric, nil, types.ErrCoercionFailed},
		{"text: string", "storm", FieldTypeText, "storm", nil},
		{"text: int", 12, FieldTypeText, "12", nil},
		{"text: float", 1.5, FieldTypeText, "1.5", nil},
		{"text: bool", false, FieldTypeText, "false", nil},
		{"text: slice rejected", []any{1}, FieldTypeText, nil, types.ErrCoercionFailed},
		{"boolean: bool", true, FieldTypeBoolean, true, nil},
		{"boolean: string rejected", "true", FieldTypeBoolean, nil, types.ErrCoercionFailed},
		{"boolean: int rejected", 1, FieldTypeBoolean, nil, types.ErrCoercionFailed},
		{"nil", nil, FieldTypeText, nil, types.ErrCoercionFailed},
		{"unspecified type", 1, FieldTypeUnspecified, nil, types.ErrCoercionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.value, tt.fieldType)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Coerce() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Coerce() = %v (%T), want %v (%T)", got, got, tt.want, tt.want)
			}
		})
	}
}

func TestFieldTypeOf(t *testing.T) {
	tests := []struct {
		field   string
		want    FieldType
		wantErr error
	}{
		{types.FieldValid, FieldTypeBoolean, nil},
		{types.FieldCategory, FieldTypeText, nil},
		{types.FieldSeverity, FieldTypeText, nil},
		{types.FieldSeverityLevel, FieldTypeNumeric, nil},
		{types.FieldTemperature, FieldTypeNumeric, nil},
		{"pressure", FieldTypeUnspecified, types.ErrUnknownField},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := FieldTypeOf(tt.field)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FieldTypeOf() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("FieldTypeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name   string
		op     Operator
		value  any
		target any
		want   bool
	}{
		{"eq int64 vs float", OpEq, int64(5), 5.0, true},
		{"neq", OpNeq, "storm", "heatwave", true},
		{"lt", OpLt, int64(4), 5.0, true},
		{"lte equal", OpLte, int64(5), 5.0, true},
		{"gt false", OpGt, int64(5), 5.0, false},
		{"gte", OpGte, int64(6), 5.0, true},
		{"gt non numeric", OpGt, "a", 1.0, false},
		{"prefix", OpPrefix, "heatwave", "heat", true},
		{"suffix", OpSuffix, "heatwave", "wave", true},
		{"prefix non string", OpPrefix, int64(1), "1", false},
		{"in hit", OpIn, int64(3), []any{1.0, 3.0}, true},
		{"in miss", OpIn, "low", []any{"high"}, false},
		{"unspecified", OpUnspecified, 1, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.op, tt.value, tt.target); got != tt.want {
				t.Errorf("Compare() = %v, want %v", got, tt.want)
			}
		})
	}
}
