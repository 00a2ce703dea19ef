package types

import "errors"

// Sentinel errors for alertkeeper operations.
var (
	// ErrDuplicateRuleID indicates a rule id is already registered.
	ErrDuplicateRuleID = errors.New("duplicate rule id")

	// ErrRuleNotFound indicates no rule is registered under the id.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrNilRule indicates a nil rule was passed for registration.
	ErrNilRule = errors.New("rule is nil")

	// ErrDuplicateHandlerID indicates a handler id is already registered.
	ErrDuplicateHandlerID = errors.New("duplicate handler id")

	// ErrHandlerNotFound indicates no handler is registered under the id.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrNilHandler indicates a nil handler was passed for registration.
	ErrNilHandler = errors.New("handler is nil")

	// ErrHandlerPanic indicates a handler panicked while handling an action.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrUnknownField indicates a condition references a field records do not have.
	ErrUnknownField = errors.New("unknown record field")

	// ErrInvalidOperator indicates an unknown or incompatible operator.
	ErrInvalidOperator = errors.New("invalid operator for field type")

	// ErrCoercionFailed indicates type coercion failed.
	ErrCoercionFailed = errors.New("type coercion failed")

	// ErrTooManyInValues indicates an IN operator exceeds MaxInOperatorValues.
	ErrTooManyInValues = errors.New("IN operator has too many values")

	// ErrEmptyLadder indicates a declarative rule defines no escalation steps.
	ErrEmptyLadder = errors.New("rule ladder is empty")

	// ErrInvalidRuleDefinition wraps every declarative rule compilation failure.
	ErrInvalidRuleDefinition = errors.New("invalid rule definition")

	// ErrUnknownLevel indicates an unrecognized action level name.
	ErrUnknownLevel = errors.New("unknown level")

	// ErrUnknownSeverity indicates an unrecognized severity name.
	ErrUnknownSeverity = errors.New("unknown severity")
)
