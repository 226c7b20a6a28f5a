package bella

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/oarkflow/bella/interpreter"
)

type Parser struct {
	l         *Lexer
	curToken  Token
	peekToken Token
	errors    []string
	depth     int
	maxDepth  int
	// set when a failed statement already consumed its own closing brace
	recovered bool
}

// NewParser reads its nesting limit from the current runtime config.
func NewParser(l *Lexer) *Parser {
	return newParser(l, GetRuntimeConfig().MaxNestingDepth)
}

func newParser(l *Lexer, maxDepth int) *Parser {
	p := &Parser{
		l:        l,
		errors:   []string{},
		maxDepth: maxDepth,
	}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t TokenType) bool {
	if p.peekToken.Type == t {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t TokenType) {
	p.errorf(p.peekToken, "expected next token to be %s, got %s instead", t, describe(p.peekToken))
}

func (p *Parser) errorf(tok Token, format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	p.errors = append(p.errors, fmt.Sprintf("%s (line %d, col %d)", msg, tok.Line, tok.Column))
}

func describe(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case ILLEGAL:
		return fmt.Sprintf("illegal %q", tok.Literal)
	case IDENT, NUMBER:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	default:
		return string(tok.Type)
	}
}

// enter tracks nesting of blocks and expressions; it reports false once the
// configured limit is exceeded.
func (p *Parser) enter() bool {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		if p.depth == p.maxDepth+1 {
			p.errorf(p.curToken, "maximum nesting depth %d exceeded", p.maxDepth)
		}
		return false
	}
	return true
}

func (p *Parser) leave() { p.depth-- }

// ParseProgram parses statements up to end of input into a single root
// block. Parsing continues after an error so every problem is reported.
func (p *Parser) ParseProgram() *interpreter.Program {
	block := &interpreter.Block{Statements: []interpreter.Statement{}}
	for !p.curTokenIs(EOF) {
		stmt := p.parseStatement()
		if stmt == nil {
			p.resync()
			if p.curTokenIs(RBRACE) {
				p.nextToken()
			}
			continue
		}
		block.Statements = append(block.Statements, stmt)
		p.nextToken()
	}
	return &interpreter.Program{Block: block}
}

func (p *Parser) resync() {
	if p.recovered {
		p.recovered = false
		return
	}
	p.synchronize()
}

// synchronize skips to the token after the next semicolon, or stops on a
// closing brace so the enclosing block can finish.
func (p *Parser) synchronize() {
	for !p.curTokenIs(SEMICOLON) && !p.curTokenIs(RBRACE) && !p.curTokenIs(EOF) {
		p.nextToken()
	}
	if p.curTokenIs(SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) parseStatement() interpreter.Statement {
	switch p.curToken.Type {
	case LET:
		return p.parseVariableDeclaration()
	case FUNCTION:
		return p.parseFunctionDeclaration()
	case PRINT:
		return p.parsePrintStatement()
	case WHILE:
		return p.parseWhileStatement()
	case IDENT:
		if p.peekTokenIs(ASSIGN) {
			return p.parseAssignment()
		}
		p.errorf(p.peekToken, "expected = after %s, got %s", p.curToken.Literal, describe(p.peekToken))
		return nil
	default:
		p.errorf(p.curToken, "expected a statement, got %s", describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseVariableDeclaration() interpreter.Statement {
	if !p.expectPeek(IDENT) {
		return nil
	}
	id := &interpreter.Identifier{Name: p.curToken.Literal}
	exp := p.parseBinding()
	if exp == nil {
		return nil
	}
	return &interpreter.VariableDeclaration{ID: id, Expression: exp}
}

func (p *Parser) parseAssignment() interpreter.Statement {
	id := &interpreter.Identifier{Name: p.curToken.Literal}
	exp := p.parseBinding()
	if exp == nil {
		return nil
	}
	return &interpreter.Assignment{ID: id, Expression: exp}
}

// parseBinding parses `= Exp ;` following an identifier.
func (p *Parser) parseBinding() interpreter.Expression {
	if !p.expectPeek(ASSIGN) {
		return nil
	}
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(SEMICOLON) {
		return nil
	}
	return exp
}

func (p *Parser) parseFunctionDeclaration() interpreter.Statement {
	if !p.expectPeek(IDENT) {
		return nil
	}
	id := &interpreter.Identifier{Name: p.curToken.Literal}
	if !p.expectPeek(LPAREN) {
		return nil
	}
	params, ok := p.parseParameters()
	if !ok {
		return nil
	}
	exp := p.parseBinding()
	if exp == nil {
		return nil
	}
	return &interpreter.FunctionDeclaration{ID: id, Parameters: params, Expression: exp}
}

func (p *Parser) parseParameters() ([]*interpreter.Identifier, bool) {
	params := []*interpreter.Identifier{}
	if p.peekTokenIs(RPAREN) {
		p.nextToken()
		return params, true
	}
	if !p.expectPeek(IDENT) {
		return nil, false
	}
	params = append(params, &interpreter.Identifier{Name: p.curToken.Literal})
	for p.peekTokenIs(COMMA) {
		p.nextToken()
		if !p.expectPeek(IDENT) {
			return nil, false
		}
		params = append(params, &interpreter.Identifier{Name: p.curToken.Literal})
	}
	if !p.expectPeek(RPAREN) {
		return nil, false
	}
	return params, true
}

func (p *Parser) parsePrintStatement() interpreter.Statement {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(SEMICOLON) {
		return nil
	}
	return &interpreter.PrintStatement{Expression: exp}
}

func (p *Parser) parseWhileStatement() interpreter.Statement {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(LBRACE) {
		return nil
	}
	block := p.parseBlock()
	if block == nil {
		if p.curTokenIs(RBRACE) {
			p.nextToken()
			p.recovered = true
		}
		return nil
	}
	return &interpreter.WhileStatement{Expression: exp, Block: block}
}

// parseBlock expects the current token to be '{' and leaves it on '}'.
func (p *Parser) parseBlock() *interpreter.Block {
	defer p.leave()
	if !p.enter() {
		return nil
	}
	open := p.curToken
	block := &interpreter.Block{Statements: []interpreter.Statement{}}
	p.nextToken()
	failed := false
	for !p.curTokenIs(RBRACE) {
		if p.curTokenIs(EOF) {
			p.errorf(open, "unterminated block")
			return nil
		}
		stmt := p.parseStatement()
		if stmt == nil {
			failed = true
			p.resync()
			continue
		}
		block.Statements = append(block.Statements, stmt)
		p.nextToken()
	}
	if failed {
		return nil
	}
	return block
}

func (p *Parser) parseExpression(precedence int) interpreter.Expression {
	defer p.leave()
	if !p.enter() {
		return nil
	}
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for !p.peekTokenIs(SEMICOLON) && precedence < p.peekPrecedence() {
		p.nextToken()
		left = p.parseInfix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parsePrefix() interpreter.Expression {
	switch p.curToken.Type {
	case NUMBER:
		value, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			p.errorf(p.curToken, "could not parse %q as a number", p.curToken.Literal)
			return nil
		}
		return &interpreter.Numeral{Value: value}
	case TRUE:
		return &interpreter.BooleanLiteral{Value: true}
	case FALSE:
		return &interpreter.BooleanLiteral{Value: false}
	case IDENT:
		if p.peekTokenIs(LPAREN) {
			return p.parseCall()
		}
		return &interpreter.Identifier{Name: p.curToken.Literal}
	case LPAREN:
		p.nextToken()
		exp := p.parseExpression(LOWEST)
		if exp == nil {
			return nil
		}
		if !p.expectPeek(RPAREN) {
			return nil
		}
		return exp
	case LBRACKET:
		elements, ok := p.parseExpressionList(RBRACKET)
		if !ok {
			return nil
		}
		return &interpreter.ArrayLiteral{Elements: elements}
	case MINUS, BANG:
		operator := p.curToken.Literal
		p.nextToken()
		operand := p.parseExpression(PREFIX)
		if operand == nil {
			return nil
		}
		return &interpreter.UnaryExpression{Operator: operator, Expression: operand}
	default:
		p.errorf(p.curToken, "expected an expression, got %s", describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseInfix(left interpreter.Expression) interpreter.Expression {
	switch p.curToken.Type {
	case LBRACKET:
		return p.parseSubscript(left)
	case QUESTION:
		return p.parseConditional(left)
	case EQ, NOT_EQ, LT, LTE, GT, GTE:
		exp := p.parseBinary(left)
		if exp != nil && p.peekPrecedence() == COMPARE {
			p.errorf(p.peekToken, "comparison operators cannot be chained")
			return nil
		}
		return exp
	default:
		return p.parseBinary(left)
	}
}

func (p *Parser) parseBinary(left interpreter.Expression) interpreter.Expression {
	operator := p.curToken.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return &interpreter.BinaryExpression{Operator: operator, Left: left, Right: right}
}

// parseConditional keeps the consequent at logical-or level and lets the
// alternate nest, so conditionals associate to the right.
func (p *Parser) parseConditional(test interpreter.Expression) interpreter.Expression {
	p.nextToken()
	consequent := p.parseExpression(TERNARY)
	if consequent == nil {
		return nil
	}
	if !p.expectPeek(COLON) {
		return nil
	}
	p.nextToken()
	alternate := p.parseExpression(LOWEST)
	if alternate == nil {
		return nil
	}
	return &interpreter.ConditionalExpression{Test: test, Consequent: consequent, Alternate: alternate}
}

func (p *Parser) parseSubscript(array interpreter.Expression) interpreter.Expression {
	p.nextToken()
	subscript := p.parseExpression(LOWEST)
	if subscript == nil {
		return nil
	}
	if !p.expectPeek(RBRACKET) {
		return nil
	}
	return &interpreter.SubscriptExpression{Array: array, Subscript: subscript}
}

func (p *Parser) parseCall() interpreter.Expression {
	callee := &interpreter.Identifier{Name: p.curToken.Literal}
	p.nextToken()
	args, ok := p.parseExpressionList(RPAREN)
	if !ok {
		return nil
	}
	return &interpreter.Call{Callee: callee, Args: args}
}

// parseExpressionList expects the current token to be the opening delimiter.
func (p *Parser) parseExpressionList(end TokenType) ([]interpreter.Expression, bool) {
	list := []interpreter.Expression{}
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil, false
	}
	list = append(list, exp)
	for p.peekTokenIs(COMMA) {
		p.nextToken()
		p.nextToken()
		exp := p.parseExpression(LOWEST)
		if exp == nil {
			return nil, false
		}
		list = append(list, exp)
	}
	if !p.expectPeek(end) {
		return nil, false
	}
	return list, true
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}
