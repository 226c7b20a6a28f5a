package interpreter

import (
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	NUMBER_KIND Kind = iota
	BOOLEAN_KIND
	ARRAY_KIND
	BUILTIN_KIND
	FUNCTION_KIND
)

func (k Kind) String() string {
	switch k {
	case NUMBER_KIND:
		return "NUMBER"
	case BOOLEAN_KIND:
		return "BOOLEAN"
	case ARRAY_KIND:
		return "ARRAY"
	case BUILTIN_KIND:
		return "BUILTIN"
	case FUNCTION_KIND:
		return "FUNCTION"
	default:
		return "UNKNOWN"
	}
}

// Value is the closed set of runtime values. The unexported method keeps
// other packages from adding kinds.
type Value interface {
	Kind() Kind
	Inspect() string
	value()
}

type Number struct {
	Value float64
}

func (n *Number) Kind() Kind      { return NUMBER_KIND }
func (n *Number) Inspect() string { return formatNumber(n.Value) }
func (n *Number) value()          {}

type Boolean struct {
	Value bool
}

func (b *Boolean) Kind() Kind { return BOOLEAN_KIND }
func (b *Boolean) Inspect() string {
	if b.Value {
		return "true"
	}
	return "false"
}
func (b *Boolean) value() {}

type Array struct {
	Elements []Value
}

func (a *Array) Kind() Kind { return ARRAY_KIND }
func (a *Array) Inspect() string {
	var out strings.Builder
	out.WriteString("[")
	for i, el := range a.Elements {
		if i > 0 {
			out.WriteString(", ")
		}
		out.WriteString(el.Inspect())
	}
	out.WriteString("]")
	return out.String()
}
func (a *Array) value() {}

// BuiltinFunction is a host-native callable. Its result is passed back to the
// program unchanged.
type BuiltinFunction func(args []Value) (Value, error)

type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Kind() Kind      { return BUILTIN_KIND }
func (b *Builtin) Inspect() string { return "<builtin " + b.Name + ">" }
func (b *Builtin) value()          {}

// UserFunction is the (parameters, body) pair bound by a function
// declaration. It carries no environment: the body is evaluated against the
// caller's environment extended with the parameter bindings.
type UserFunction struct {
	Parameters []*Identifier
	Body       Expression
}

func (f *UserFunction) Kind() Kind { return FUNCTION_KIND }
func (f *UserFunction) Inspect() string {
	params := make([]string, len(f.Parameters))
	for i, p := range f.Parameters {
		params[i] = p.Name
	}
	return "<function(" + strings.Join(params, ", ") + ")>"
}
func (f *UserFunction) value() {}

var (
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

func nativeBoolToBooleanValue(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}

func isTruthy(v Value) bool {
	switch v := v.(type) {
	case *Boolean:
		return v.Value
	case *Number:
		return v.Value != 0 && !math.IsNaN(v.Value)
	case *Array, *Builtin, *UserFunction:
		return true
	default:
		return false
	}
}

// IsTruthy reports how v behaves in a condition.
func IsTruthy(v Value) bool { return isTruthy(v) }

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'g', -1, 64)
		s = strings.Replace(s, "e-0", "e-", 1)
		return strings.Replace(s, "e+0", "e+", 1)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// strictEqual compares two values of the same kind. Scalars compare by value,
// arrays and functions by identity.
func strictEqual(left, right Value) bool {
	switch l := left.(type) {
	case *Number:
		r, ok := right.(*Number)
		return ok && l.Value == r.Value
	case *Boolean:
		r, ok := right.(*Boolean)
		return ok && l.Value == r.Value
	case *Array:
		r, ok := right.(*Array)
		return ok && l == r
	case *Builtin:
		r, ok := right.(*Builtin)
		return ok && l == r
	case *UserFunction:
		r, ok := right.(*UserFunction)
		return ok && l == r
	default:
		return false
	}
}
