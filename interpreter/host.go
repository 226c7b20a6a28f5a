package interpreter

import (
	"fmt"
	"math"
	"reflect"

	"github.com/oarkflow/convert"
)

// ToHost converts a value into plain Go data suitable for JSON. Non-finite
// numbers and functions become their printed form.
func ToHost(v Value) any {
	switch v := v.(type) {
	case *Number:
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return v.Inspect()
		}
		return v.Value
	case *Boolean:
		return v.Value
	case *Array:
		elements := make([]any, len(v.Elements))
		for i, el := range v.Elements {
			elements[i] = ToHost(el)
		}
		return elements
	case *Builtin, *UserFunction:
		return v.Inspect()
	default:
		return nil
	}
}

// OutputToHost converts every printed value with ToHost.
func OutputToHost(out Output) []any {
	result := make([]any, len(out))
	for i, v := range out {
		result[i] = ToHost(v)
	}
	return result
}

// FromHost converts Go data into a value. Booleans, anything numeric and
// slices of those are accepted.
func FromHost(val any) (Value, error) {
	if val == nil {
		return nil, fmt.Errorf("cannot convert nil to a value")
	}
	if v, ok := val.(Value); ok {
		return v, nil
	}

	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Bool:
		b, ok := convert.ToBool(val)
		if !ok {
			b = rv.Bool()
		}
		return nativeBoolToBooleanValue(b), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if f, ok := convert.ToFloat64(val); ok {
			return &Number{Value: f}, nil
		}
		switch {
		case rv.CanInt():
			return &Number{Value: float64(rv.Int())}, nil
		case rv.CanUint():
			return &Number{Value: float64(rv.Uint())}, nil
		default:
			return &Number{Value: rv.Float()}, nil
		}
	case reflect.Slice, reflect.Array:
		elements := make([]Value, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			el, err := FromHost(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elements[i] = el
		}
		return &Array{Elements: elements}, nil
	}
	return nil, fmt.Errorf("cannot convert %T to a value", val)
}

// HostBuiltin adapts a plain float64 function so it can be registered with
// WithBuiltin.
func HostBuiltin(name string, fn func(args ...float64) (float64, error)) BuiltinFunction {
	return func(args []Value) (Value, error) {
		nums := make([]float64, len(args))
		for i, arg := range args {
			n, ok := arg.(*Number)
			if !ok {
				return nil, invalidOperand(name, arg)
			}
			nums[i] = n.Value
		}
		result, err := fn(nums...)
		if err != nil {
			return nil, err
		}
		return &Number{Value: result}, nil
	}
}
