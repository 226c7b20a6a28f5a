package bella

import (
	"fmt"
	"unicode"
)

var precedences = map[TokenType]int{
	QUESTION: TERNARY,
	OR:       LOGICAL_OR,
	AND:      LOGICAL_AND,
	EQ:       COMPARE,
	NOT_EQ:   COMPARE,
	LT:       COMPARE,
	LTE:      COMPARE,
	GT:       COMPARE,
	GTE:      COMPARE,
	PLUS:     SUM,
	MINUS:    SUM,
	ASTERISK: PRODUCT,
	SLASH:    PRODUCT,
	PERCENT:  PRODUCT,
	LBRACKET: INDEX,
}

const (
	_ int = iota
	LOWEST
	TERNARY
	LOGICAL_OR
	LOGICAL_AND
	COMPARE
	SUM
	PRODUCT
	PREFIX
	INDEX
)

type TokenType string

const (
	ILLEGAL = "ILLEGAL"
	EOF     = "EOF"

	IDENT  = "IDENT"
	NUMBER = "NUMBER"

	ASSIGN   = "="
	PLUS     = "+"
	MINUS    = "-"
	ASTERISK = "*"
	SLASH    = "/"
	PERCENT  = "%"
	BANG     = "!"
	EQ       = "=="
	NOT_EQ   = "!="
	LT       = "<"
	GT       = ">"
	LTE      = "<="
	GTE      = ">="
	AND      = "&&"
	OR       = "||"
	QUESTION = "?"
	COLON    = ":"

	COMMA     = ","
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	LET      = "LET"
	FUNCTION = "FUNCTION"
	PRINT    = "PRINT"
	WHILE    = "WHILE"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
)

func lookupKeyword(ident string) TokenType {
	switch ident {
	case "let":
		return LET
	case "function":
		return FUNCTION
	case "print":
		return PRINT
	case "while":
		return WHILE
	case "true":
		return TRUE
	case "false":
		return FALSE
	default:
		return IDENT
	}
}

type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

func newToken(tokenType TokenType, ch byte, line int, column int) Token {
	return Token{Type: tokenType, Literal: string(ch), Line: line, Column: column}
}

func (t Token) Precedence() int {
	if p, ok := precedences[t.Type]; ok {
		return p
	}
	return LOWEST
}

func (t Token) String() string {
	return fmt.Sprintf("Token(%s, %q, Line: %d, Column: %d)", t.Type, t.Literal, t.Line, t.Column)
}

func isIdentifierStart(ch byte) bool {
	return unicode.IsLetter(rune(ch)) || ch == '_'
}

func isIdentifierChar(ch byte) bool {
	return isIdentifierStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
