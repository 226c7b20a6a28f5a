package interpreter

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	UndeclaredIdentifier ErrorKind = "UNDECLARED_IDENTIFIER"
	InvalidOperandType   ErrorKind = "INVALID_OPERAND_TYPE"
	InvalidOperator      ErrorKind = "INVALID_OPERATOR"
	DivisionByZero       ErrorKind = "DIVISION_BY_ZERO"
	InvalidSubscript     ErrorKind = "INVALID_SUBSCRIPT"
	NotAFunction         ErrorKind = "NOT_A_FUNCTION"
	ArityMismatch        ErrorKind = "ARITY_MISMATCH"
)

// RuntimeError aborts evaluation. Operator or Name is set when the failure
// is about a specific operator token or identifier.
type RuntimeError struct {
	Kind     ErrorKind
	Message  string
	Operator string
	Name     string
}

func (e *RuntimeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is, or wraps, a RuntimeError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var rtErr *RuntimeError
	if !errors.As(err, &rtErr) {
		return false
	}
	return rtErr.Kind == kind
}

func undeclared(name string) error {
	return &RuntimeError{
		Kind:    UndeclaredIdentifier,
		Message: fmt.Sprintf("identifier %s was undeclared", name),
		Name:    name,
	}
}

func invalidOperand(operator string, got ...Value) error {
	kinds := ""
	for i, v := range got {
		if i > 0 {
			kinds += ", "
		}
		kinds += v.Kind().String()
	}
	return &RuntimeError{
		Kind:     InvalidOperandType,
		Message:  fmt.Sprintf("invalid operand types for '%s' operator: %s", operator, kinds),
		Operator: operator,
	}
}

func invalidOperator(operator string) error {
	return &RuntimeError{
		Kind:     InvalidOperator,
		Message:  fmt.Sprintf("unknown operator '%s'", operator),
		Operator: operator,
	}
}

func divisionByZero(operator string) error {
	return &RuntimeError{
		Kind:     DivisionByZero,
		Message:  "division by zero",
		Operator: operator,
	}
}

func invalidSubscript(format string, a ...any) error {
	return &RuntimeError{
		Kind:    InvalidSubscript,
		Message: fmt.Sprintf(format, a...),
	}
}

func notAFunction(name string, v Value) error {
	return &RuntimeError{
		Kind:    NotAFunction,
		Message: fmt.Sprintf("%s is not a function: %s", name, v.Kind()),
		Name:    name,
	}
}

func arityMismatch(name string, got, want int) error {
	return &RuntimeError{
		Kind:    ArityMismatch,
		Message: fmt.Sprintf("wrong number of arguments to %s. got=%d, want=%d", name, got, want),
		Name:    name,
	}
}
