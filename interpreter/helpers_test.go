package interpreter

func num(v float64) *Numeral { return &Numeral{Value: v} }
func boolean(v bool) *BooleanLiteral { return &BooleanLiteral{Value: v} }
func ident(name string) *Identifier { return &Identifier{Name: name} }
func neg(e Expression) *UnaryExpression { return &UnaryExpression{Operator: "-", Expression: e} }
func not(e Expression) *UnaryExpression { return &UnaryExpression{Operator: "!", Expression: e} }
func array(els ...Expression) *ArrayLiteral { return &ArrayLiteral{Elements: els} }
func printStmt(e Expression) *PrintStatement { return &PrintStatement{Expression: e} }

func bin(op string, left, right Expression) *BinaryExpression {
	return &BinaryExpression{Operator: op, Left: left, Right: right}
}

func call(name string, args ...Expression) *Call {
	return &Call{Callee: ident(name), Args: args}
}

func let(name string, e Expression) *VariableDeclaration {
	return &VariableDeclaration{ID: ident(name), Expression: e}
}

func assign(name string, e Expression) *Assignment {
	return &Assignment{ID: ident(name), Expression: e}
}

func fun(name string, params []string, body Expression) *FunctionDeclaration {
	ids := make([]*Identifier, len(params))
	for i, p := range params {
		ids[i] = ident(p)
	}
	return &FunctionDeclaration{ID: ident(name), Parameters: ids, Expression: body}
}

func while(cond Expression, body ...Statement) *WhileStatement {
	return &WhileStatement{Expression: cond, Block: &Block{Statements: body}}
}

func program(stmts ...Statement) *Program {
	return &Program{Block: &Block{Statements: stmts}}
}

func inspectAll(out Output) []string {
	result := make([]string, len(out))
	for i, v := range out {
		result[i] = v.Inspect()
	}
	return result
}
