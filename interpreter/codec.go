package interpreter

import (
	"fmt"

	"github.com/oarkflow/json"
)

// wireNode is the union of every field a node may carry in its JSON form.
// The "type" tag picks which of them are read.
type wireNode struct {
	Type       string          `json:"type"`
	Value      json.RawMessage `json:"value"`
	Name       string          `json:"name"`
	Operator   string          `json:"operator"`
	Expression *wireNode       `json:"expression"`
	Left       *wireNode       `json:"left"`
	Right      *wireNode       `json:"right"`
	Test       *wireNode       `json:"test"`
	Consequent *wireNode       `json:"consequent"`
	Alternate  *wireNode       `json:"alternate"`
	Elements   []*wireNode     `json:"elements"`
	Array      *wireNode       `json:"array"`
	Subscript  *wireNode       `json:"subscript"`
	Callee     *wireNode       `json:"callee"`
	Args       []*wireNode     `json:"args"`
	ID         *wireNode       `json:"id"`
	Parameters []*wireNode     `json:"parameters"`
	Block      *wireNode       `json:"block"`
	Statements []*wireNode     `json:"statements"`
}

type DecodeError struct {
	Path    string
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Path, e.Message)
}

// DecodeProgram reads a program from its JSON form.
func DecodeProgram(data []byte) (*Program, error) {
	var root wireNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Type != "Program" {
		return nil, &DecodeError{Path: "$", Message: fmt.Sprintf("expected Program, got %q", root.Type)}
	}
	block, err := decodeBlock(root.Block, "$.block")
	if err != nil {
		return nil, err
	}
	return &Program{Block: block}, nil
}

// DecodeExpression reads a single expression node.
func DecodeExpression(data []byte) (Expression, error) {
	var root wireNode
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	return decodeExpression(&root, "$")
}

func decodeBlock(n *wireNode, path string) (*Block, error) {
	if n == nil {
		return nil, &DecodeError{Path: path, Message: "missing block"}
	}
	if n.Type != "Block" {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected Block, got %q", n.Type)}
	}
	block := &Block{Statements: make([]Statement, 0, len(n.Statements))}
	for i, s := range n.Statements {
		stmt, err := decodeStatement(s, fmt.Sprintf("%s.statements[%d]", path, i))
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
	return block, nil
}

func decodeStatement(n *wireNode, path string) (Statement, error) {
	if n == nil {
		return nil, &DecodeError{Path: path, Message: "missing statement"}
	}
	switch n.Type {
	case "VariableDeclaration":
		id, exp, err := decodeBinding(n, path)
		if err != nil {
			return nil, err
		}
		return &VariableDeclaration{ID: id, Expression: exp}, nil
	case "Assignment":
		id, exp, err := decodeBinding(n, path)
		if err != nil {
			return nil, err
		}
		return &Assignment{ID: id, Expression: exp}, nil
	case "FunctionDeclaration":
		id, exp, err := decodeBinding(n, path)
		if err != nil {
			return nil, err
		}
		params := make([]*Identifier, 0, len(n.Parameters))
		for i, p := range n.Parameters {
			param, err := decodeIdentifier(p, fmt.Sprintf("%s.parameters[%d]", path, i))
			if err != nil {
				return nil, err
			}
			params = append(params, param)
		}
		return &FunctionDeclaration{ID: id, Parameters: params, Expression: exp}, nil
	case "PrintStatement":
		exp, err := decodeExpression(n.Expression, path+".expression")
		if err != nil {
			return nil, err
		}
		return &PrintStatement{Expression: exp}, nil
	case "WhileStatement":
		exp, err := decodeExpression(n.Expression, path+".expression")
		if err != nil {
			return nil, err
		}
		block, err := decodeBlock(n.Block, path+".block")
		if err != nil {
			return nil, err
		}
		return &WhileStatement{Expression: exp, Block: block}, nil
	}
	return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown statement type %q", n.Type)}
}

func decodeBinding(n *wireNode, path string) (*Identifier, Expression, error) {
	id, err := decodeIdentifier(n.ID, path+".id")
	if err != nil {
		return nil, nil, err
	}
	exp, err := decodeExpression(n.Expression, path+".expression")
	if err != nil {
		return nil, nil, err
	}
	return id, exp, nil
}

func decodeIdentifier(n *wireNode, path string) (*Identifier, error) {
	if n == nil {
		return nil, &DecodeError{Path: path, Message: "missing identifier"}
	}
	if n.Type != "Identifier" {
		return nil, &DecodeError{Path: path, Message: fmt.Sprintf("expected Identifier, got %q", n.Type)}
	}
	if n.Name == "" {
		return nil, &DecodeError{Path: path, Message: "identifier has no name"}
	}
	return &Identifier{Name: n.Name}, nil
}

func decodeExpression(n *wireNode, path string) (Expression, error) {
	if n == nil {
		return nil, &DecodeError{Path: path, Message: "missing expression"}
	}
	switch n.Type {
	case "Numeral":
		var v float64
		if !hasValue(n.Value) || json.Unmarshal(n.Value, &v) != nil {
			return nil, &DecodeError{Path: path + ".value", Message: "numeral needs a numeric value"}
		}
		return &Numeral{Value: v}, nil
	case "BooleanLiteral":
		var v bool
		if !hasValue(n.Value) || json.Unmarshal(n.Value, &v) != nil {
			return nil, &DecodeError{Path: path + ".value", Message: "boolean literal needs a boolean value"}
		}
		return &BooleanLiteral{Value: v}, nil
	case "Identifier":
		return decodeIdentifier(n, path)
	case "UnaryExpression":
		if n.Operator == "" {
			return nil, &DecodeError{Path: path + ".operator", Message: "missing operator"}
		}
		operand, err := decodeExpression(n.Expression, path+".expression")
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Operator: n.Operator, Expression: operand}, nil
	case "BinaryExpression":
		if n.Operator == "" {
			return nil, &DecodeError{Path: path + ".operator", Message: "missing operator"}
		}
		left, err := decodeExpression(n.Left, path+".left")
		if err != nil {
			return nil, err
		}
		right, err := decodeExpression(n.Right, path+".right")
		if err != nil {
			return nil, err
		}
		return &BinaryExpression{Operator: n.Operator, Left: left, Right: right}, nil
	case "ConditionalExpression":
		test, err := decodeExpression(n.Test, path+".test")
		if err != nil {
			return nil, err
		}
		consequent, err := decodeExpression(n.Consequent, path+".consequent")
		if err != nil {
			return nil, err
		}
		alternate, err := decodeExpression(n.Alternate, path+".alternate")
		if err != nil {
			return nil, err
		}
		return &ConditionalExpression{Test: test, Consequent: consequent, Alternate: alternate}, nil
	case "ArrayLiteral":
		elements, err := decodeExpressions(n.Elements, path+".elements")
		if err != nil {
			return nil, err
		}
		return &ArrayLiteral{Elements: elements}, nil
	case "SubscriptExpression":
		array, err := decodeExpression(n.Array, path+".array")
		if err != nil {
			return nil, err
		}
		subscript, err := decodeExpression(n.Subscript, path+".subscript")
		if err != nil {
			return nil, err
		}
		return &SubscriptExpression{Array: array, Subscript: subscript}, nil
	case "Call":
		callee, err := decodeIdentifier(n.Callee, path+".callee")
		if err != nil {
			return nil, err
		}
		args, err := decodeExpressions(n.Args, path+".args")
		if err != nil {
			return nil, err
		}
		return &Call{Callee: callee, Args: args}, nil
	}
	return nil, &DecodeError{Path: path, Message: fmt.Sprintf("unknown expression type %q", n.Type)}
}

func hasValue(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func decodeExpressions(nodes []*wireNode, path string) ([]Expression, error) {
	result := make([]Expression, 0, len(nodes))
	for i, n := range nodes {
		exp, err := decodeExpression(n, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		result = append(result, exp)
	}
	return result, nil
}

// EncodeProgram writes p in the form DecodeProgram reads.
func EncodeProgram(p *Program) ([]byte, error) {
	tree, err := ProgramTree(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(tree)
}

// ProgramTree returns the generic map form of p, ready to be embedded in a
// larger JSON document.
func ProgramTree(p *Program) (map[string]any, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot encode nil program")
	}
	block, err := encodeBlock(p.Block)
	if err != nil {
		return nil, err
	}
	return map[string]any{"type": "Program", "block": block}, nil
}

func encodeBlock(b *Block) (map[string]any, error) {
	statements := []any{}
	if b != nil {
		for _, s := range b.Statements {
			encoded, err := encodeStatement(s)
			if err != nil {
				return nil, err
			}
			statements = append(statements, encoded)
		}
	}
	return map[string]any{"type": "Block", "statements": statements}, nil
}

func encodeStatement(s Statement) (map[string]any, error) {
	switch s := s.(type) {
	case *VariableDeclaration:
		return encodeBinding("VariableDeclaration", s.ID, s.Expression)
	case *Assignment:
		return encodeBinding("Assignment", s.ID, s.Expression)
	case *FunctionDeclaration:
		node, err := encodeBinding("FunctionDeclaration", s.ID, s.Expression)
		if err != nil {
			return nil, err
		}
		params := make([]any, len(s.Parameters))
		for i, p := range s.Parameters {
			params[i] = encodeIdentifier(p)
		}
		node["parameters"] = params
		return node, nil
	case *PrintStatement:
		exp, err := encodeExpression(s.Expression)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "PrintStatement", "expression": exp}, nil
	case *WhileStatement:
		exp, err := encodeExpression(s.Expression)
		if err != nil {
			return nil, err
		}
		block, err := encodeBlock(s.Block)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "WhileStatement", "expression": exp, "block": block}, nil
	}
	return nil, fmt.Errorf("cannot encode statement %T", s)
}

func encodeBinding(typ string, id *Identifier, e Expression) (map[string]any, error) {
	exp, err := encodeExpression(e)
	if err != nil {
		return nil, err
	}
	return map[string]any{"type": typ, "id": encodeIdentifier(id), "expression": exp}, nil
}

func encodeIdentifier(id *Identifier) map[string]any {
	return map[string]any{"type": "Identifier", "name": id.Name}
}

func encodeExpression(e Expression) (map[string]any, error) {
	switch e := e.(type) {
	case *Numeral:
		return map[string]any{"type": "Numeral", "value": e.Value}, nil
	case *BooleanLiteral:
		return map[string]any{"type": "BooleanLiteral", "value": e.Value}, nil
	case *Identifier:
		return encodeIdentifier(e), nil
	case *UnaryExpression:
		operand, err := encodeExpression(e.Expression)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "UnaryExpression", "operator": e.Operator, "expression": operand}, nil
	case *BinaryExpression:
		left, err := encodeExpression(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := encodeExpression(e.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "BinaryExpression", "operator": e.Operator, "left": left, "right": right}, nil
	case *ConditionalExpression:
		test, err := encodeExpression(e.Test)
		if err != nil {
			return nil, err
		}
		consequent, err := encodeExpression(e.Consequent)
		if err != nil {
			return nil, err
		}
		alternate, err := encodeExpression(e.Alternate)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"type":       "ConditionalExpression",
			"test":       test,
			"consequent": consequent,
			"alternate":  alternate,
		}, nil
	case *ArrayLiteral:
		elements, err := encodeExpressions(e.Elements)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "ArrayLiteral", "elements": elements}, nil
	case *SubscriptExpression:
		array, err := encodeExpression(e.Array)
		if err != nil {
			return nil, err
		}
		subscript, err := encodeExpression(e.Subscript)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "SubscriptExpression", "array": array, "subscript": subscript}, nil
	case *Call:
		args, err := encodeExpressions(e.Args)
		if err != nil {
			return nil, err
		}
		return map[string]any{"type": "Call", "callee": encodeIdentifier(e.Callee), "args": args}, nil
	}
	return nil, fmt.Errorf("cannot encode expression %T", e)
}

func encodeExpressions(exps []Expression) ([]any, error) {
	result := make([]any, len(exps))
	for i, e := range exps {
		encoded, err := encodeExpression(e)
		if err != nil {
			return nil, err
		}
		result[i] = encoded
	}
	return result, nil
}
