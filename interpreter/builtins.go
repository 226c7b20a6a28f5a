package interpreter

import (
	"math"
)

const PI = math.Pi

var standardBuiltinNames = []string{"sqrt", "sin", "cos", "ln", "exp", "hypot"}

var standardBuiltins = map[string]*Builtin{
	"sqrt":  unaryMath("sqrt", math.Sqrt),
	"sin":   unaryMath("sin", math.Sin),
	"cos":   unaryMath("cos", math.Cos),
	"ln":    unaryMath("ln", math.Log),
	"exp":   unaryMath("exp", math.Exp),
	"hypot": {Name: "hypot", Fn: hypot},
}

func unaryMath(name string, fn func(float64) float64) *Builtin {
	return &Builtin{
		Name: name,
		Fn: func(args []Value) (Value, error) {
			if len(args) != 1 {
				return nil, arityMismatch(name, len(args), 1)
			}
			n, ok := args[0].(*Number)
			if !ok {
				return nil, invalidOperand(name, args[0])
			}
			return &Number{Value: fn(n.Value)}, nil
		},
	}
}

// hypot accepts any number of arguments; with none it returns 0.
// An infinite argument wins over NaN.
func hypot(args []Value) (Value, error) {
	var acc float64
	inf, nan := false, false
	for _, arg := range args {
		n, ok := arg.(*Number)
		if !ok {
			return nil, invalidOperand("hypot", arg)
		}
		switch {
		case math.IsInf(n.Value, 0):
			inf = true
		case math.IsNaN(n.Value):
			nan = true
		default:
			acc = math.Hypot(acc, n.Value)
		}
	}
	if inf {
		return &Number{Value: math.Inf(1)}, nil
	}
	if nan {
		return &Number{Value: math.NaN()}, nil
	}
	return &Number{Value: acc}, nil
}
