package interpreter

import (
	"fmt"
	"math"

	"github.com/oarkflow/log"
)

type evaluator struct {
	logger *log.Logger
}

// Evaluate computes the value of an expression against env. It never
// changes env.
func Evaluate(node Expression, env *Environment) (Value, error) {
	ev := &evaluator{logger: &quietLogger}
	return ev.eval(node, env)
}

func (ev *evaluator) eval(node Expression, env *Environment) (Value, error) {
	switch node := node.(type) {
	case *Numeral:
		return &Number{Value: node.Value}, nil

	case *BooleanLiteral:
		return nativeBoolToBooleanValue(node.Value), nil

	case *Identifier:
		if val, ok := env.Lookup(node.Name); ok {
			return val, nil
		}
		return nil, undeclared(node.Name)

	case *UnaryExpression:
		operand, err := ev.eval(node.Expression, env)
		if err != nil {
			return nil, err
		}
		return evalUnaryExpression(node.Operator, operand)

	case *BinaryExpression:
		left, err := ev.eval(node.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := ev.eval(node.Right, env)
		if err != nil {
			return nil, err
		}
		if entry := ev.logger.Debug(); entry != nil {
			entry.Str("operator", node.Operator).
				Str("left", left.Inspect()).
				Str("right", right.Inspect()).
				Msg("binary expression")
		}
		return evalBinaryExpression(node.Operator, left, right)

	case *ConditionalExpression:
		test, err := ev.eval(node.Test, env)
		if err != nil {
			return nil, err
		}
		if isTruthy(test) {
			return ev.eval(node.Consequent, env)
		}
		return ev.eval(node.Alternate, env)

	case *ArrayLiteral:
		elements, err := ev.evalExpressions(node.Elements, env)
		if err != nil {
			return nil, err
		}
		return &Array{Elements: elements}, nil

	case *SubscriptExpression:
		array, err := ev.eval(node.Array, env)
		if err != nil {
			return nil, err
		}
		subscript, err := ev.eval(node.Subscript, env)
		if err != nil {
			return nil, err
		}
		return evalSubscriptExpression(array, subscript)

	case *Call:
		return ev.evalCall(node, env)

	case nil:
		return nil, fmt.Errorf("cannot evaluate nil expression")
	}

	return nil, fmt.Errorf("unsupported expression node %T", node)
}

func (ev *evaluator) evalExpressions(exps []Expression, env *Environment) ([]Value, error) {
	result := make([]Value, 0, len(exps))
	for _, e := range exps {
		evaluated, err := ev.eval(e, env)
		if err != nil {
			return nil, err
		}
		result = append(result, evaluated)
	}
	return result, nil
}

func evalUnaryExpression(operator string, operand Value) (Value, error) {
	switch operator {
	case "-":
		n, ok := operand.(*Number)
		if !ok {
			return nil, invalidOperand(operator, operand)
		}
		return &Number{Value: -n.Value}, nil
	case "!":
		return nativeBoolToBooleanValue(!isTruthy(operand)), nil
	default:
		return nil, invalidOperator(operator)
	}
}

func evalBinaryExpression(operator string, left, right Value) (Value, error) {
	switch operator {
	case "+", "-", "*", "/", "%", "<", "<=", ">", ">=":
		l, lok := left.(*Number)
		r, rok := right.(*Number)
		if !lok || !rok {
			return nil, invalidOperand(operator, left, right)
		}
		return evalNumberInfixExpression(operator, l.Value, r.Value)
	case "==", "!=":
		if left.Kind() != right.Kind() {
			return nil, invalidOperand(operator, left, right)
		}
		eq := strictEqual(left, right)
		if operator == "!=" {
			eq = !eq
		}
		return nativeBoolToBooleanValue(eq), nil
	case "&&":
		return nativeBoolToBooleanValue(isTruthy(left) && isTruthy(right)), nil
	case "||":
		return nativeBoolToBooleanValue(isTruthy(left) || isTruthy(right)), nil
	default:
		return nil, invalidOperator(operator)
	}
}

func evalNumberInfixExpression(operator string, leftVal, rightVal float64) (Value, error) {
	switch operator {
	case "+":
		return &Number{Value: leftVal + rightVal}, nil
	case "-":
		return &Number{Value: leftVal - rightVal}, nil
	case "*":
		return &Number{Value: leftVal * rightVal}, nil
	case "/":
		if rightVal == 0 {
			return nil, divisionByZero(operator)
		}
		return &Number{Value: leftVal / rightVal}, nil
	case "%":
		if rightVal == 0 {
			return nil, divisionByZero(operator)
		}
		return &Number{Value: math.Mod(leftVal, rightVal)}, nil
	case "<":
		return nativeBoolToBooleanValue(leftVal < rightVal), nil
	case "<=":
		return nativeBoolToBooleanValue(leftVal <= rightVal), nil
	case ">":
		return nativeBoolToBooleanValue(leftVal > rightVal), nil
	case ">=":
		return nativeBoolToBooleanValue(leftVal >= rightVal), nil
	default:
		return nil, invalidOperator(operator)
	}
}

func evalSubscriptExpression(array, subscript Value) (Value, error) {
	arr, ok := array.(*Array)
	if !ok {
		return nil, invalidSubscript("cannot subscript %s", array.Kind())
	}
	idx, ok := subscript.(*Number)
	if !ok {
		return nil, invalidSubscript("subscript must be a NUMBER, got %s", subscript.Kind())
	}
	if idx.Value != math.Trunc(idx.Value) || idx.Value < 0 || idx.Value >= float64(len(arr.Elements)) {
		return nil, invalidSubscript("index %s out of range [0, %d)", idx.Inspect(), len(arr.Elements))
	}
	return arr.Elements[int(idx.Value)], nil
}

func (ev *evaluator) evalCall(node *Call, env *Environment) (Value, error) {
	name := node.Callee.Name
	callee, bound := env.Lookup(name)

	args, err := ev.evalExpressions(node.Args, env)
	if err != nil {
		return nil, err
	}
	if !bound {
		return nil, undeclared(name)
	}

	switch fn := callee.(type) {
	case *UserFunction:
		if len(args) != len(fn.Parameters) {
			return nil, arityMismatch(name, len(args), len(fn.Parameters))
		}
		params := make([]string, len(fn.Parameters))
		for i, p := range fn.Parameters {
			params[i] = p.Name
		}
		return ev.eval(fn.Body, env.Merged(params, args))

	case *Builtin:
		val, err := fn.Fn(args)
		if err != nil {
			return nil, err
		}
		if val == nil {
			return nil, fmt.Errorf("builtin %s returned no value", fn.Name)
		}
		return val, nil

	default:
		return nil, notAFunction(name, callee)
	}
}
