package interpreter

import (
	"strconv"
	"strings"
)

type Node interface {
	String() string
}

type Expression interface {
	Node
	expressionNode()
}

type Statement interface {
	Node
	statementNode()
}

// Expressions

type Numeral struct {
	Value float64
}

func (n *Numeral) expressionNode() {}
func (n *Numeral) String() string  { return formatNumber(n.Value) }

type BooleanLiteral struct {
	Value bool
}

func (bl *BooleanLiteral) expressionNode() {}
func (bl *BooleanLiteral) String() string  { return strconv.FormatBool(bl.Value) }

type Identifier struct {
	Name string
}

func (i *Identifier) expressionNode() {}
func (i *Identifier) String() string  { return i.Name }

type UnaryExpression struct {
	Operator   string
	Expression Expression
}

func (ue *UnaryExpression) expressionNode() {}
func (ue *UnaryExpression) String() string {
	return "(" + ue.Operator + ue.Expression.String() + ")"
}

type BinaryExpression struct {
	Operator string
	Left     Expression
	Right    Expression
}

func (be *BinaryExpression) expressionNode() {}
func (be *BinaryExpression) String() string {
	return "(" + be.Left.String() + " " + be.Operator + " " + be.Right.String() + ")"
}

type ConditionalExpression struct {
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

func (ce *ConditionalExpression) expressionNode() {}
func (ce *ConditionalExpression) String() string {
	return "(" + ce.Test.String() + " ? " + ce.Consequent.String() + " : " + ce.Alternate.String() + ")"
}

type ArrayLiteral struct {
	Elements []Expression
}

func (al *ArrayLiteral) expressionNode() {}
func (al *ArrayLiteral) String() string {
	return "[" + joinNodes(al.Elements, ", ") + "]"
}

type SubscriptExpression struct {
	Array     Expression
	Subscript Expression
}

func (se *SubscriptExpression) expressionNode() {}
func (se *SubscriptExpression) String() string {
	return se.Array.String() + "[" + se.Subscript.String() + "]"
}

type Call struct {
	Callee *Identifier
	Args   []Expression
}

func (c *Call) expressionNode() {}
func (c *Call) String() string {
	return c.Callee.String() + "(" + joinNodes(c.Args, ", ") + ")"
}

// Statements

type VariableDeclaration struct {
	ID         *Identifier
	Expression Expression
}

func (vd *VariableDeclaration) statementNode() {}
func (vd *VariableDeclaration) String() string {
	return "let " + vd.ID.String() + " = " + vd.Expression.String() + ";"
}

type FunctionDeclaration struct {
	ID         *Identifier
	Parameters []*Identifier
	Expression Expression
}

func (fd *FunctionDeclaration) statementNode() {}
func (fd *FunctionDeclaration) String() string {
	params := make([]string, len(fd.Parameters))
	for i, p := range fd.Parameters {
		params[i] = p.String()
	}
	return "function " + fd.ID.String() + "(" + strings.Join(params, ", ") + ") = " + fd.Expression.String() + ";"
}

type Assignment struct {
	ID         *Identifier
	Expression Expression
}

func (a *Assignment) statementNode() {}
func (a *Assignment) String() string {
	return a.ID.String() + " = " + a.Expression.String() + ";"
}

type PrintStatement struct {
	Expression Expression
}

func (ps *PrintStatement) statementNode() {}
func (ps *PrintStatement) String() string {
	return "print " + ps.Expression.String() + ";"
}

type WhileStatement struct {
	Expression Expression
	Block      *Block
}

func (ws *WhileStatement) statementNode() {}
func (ws *WhileStatement) String() string {
	return "while " + ws.Expression.String() + " " + ws.Block.String()
}

type Block struct {
	Statements []Statement
}

func (b *Block) String() string {
	var out strings.Builder
	out.WriteString("{ ")
	for _, s := range b.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")
	return out.String()
}

type Program struct {
	Block *Block
}

func (p *Program) String() string {
	if p.Block == nil {
		return ""
	}
	return p.Block.String()
}

func joinNodes[T Node](nodes []T, sep string) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, sep)
}
