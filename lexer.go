package bella

func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()
	var tok Token
	line, column := l.line, l.column
	switch l.ch {
	case '=':
		tok = l.twoCharToken('=', ASSIGN, EQ)
	case '!':
		tok = l.twoCharToken('=', BANG, NOT_EQ)
	case '<':
		tok = l.twoCharToken('=', LT, LTE)
	case '>':
		tok = l.twoCharToken('=', GT, GTE)
	case '&':
		tok = l.twoCharToken('&', ILLEGAL, AND)
	case '|':
		tok = l.twoCharToken('|', ILLEGAL, OR)
	case '+':
		tok = newToken(PLUS, l.ch, line, column)
	case '-':
		tok = newToken(MINUS, l.ch, line, column)
	case '*':
		tok = newToken(ASTERISK, l.ch, line, column)
	case '/':
		tok = newToken(SLASH, l.ch, line, column)
	case '%':
		tok = newToken(PERCENT, l.ch, line, column)
	case '?':
		tok = newToken(QUESTION, l.ch, line, column)
	case ':':
		tok = newToken(COLON, l.ch, line, column)
	case ',':
		tok = newToken(COMMA, l.ch, line, column)
	case ';':
		tok = newToken(SEMICOLON, l.ch, line, column)
	case '(':
		tok = newToken(LPAREN, l.ch, line, column)
	case ')':
		tok = newToken(RPAREN, l.ch, line, column)
	case '{':
		tok = newToken(LBRACE, l.ch, line, column)
	case '}':
		tok = newToken(RBRACE, l.ch, line, column)
	case '[':
		tok = newToken(LBRACKET, l.ch, line, column)
	case ']':
		tok = newToken(RBRACKET, l.ch, line, column)
	case 0:
		if l.atEnd() {
			return Token{Type: EOF, Literal: "", Line: line, Column: column}
		}
		tok = newToken(ILLEGAL, l.ch, line, column)
	default:
		if isIdentifierStart(l.ch) {
			literal := l.readIdentifier()
			return Token{Type: lookupKeyword(literal), Literal: literal, Line: line, Column: column}
		} else if isDigit(l.ch) {
			literal, ok := l.readNumber()
			if !ok {
				return Token{Type: ILLEGAL, Literal: literal, Line: line, Column: column}
			}
			return Token{Type: NUMBER, Literal: literal, Line: line, Column: column}
		}
		tok = newToken(ILLEGAL, l.ch, line, column)
	}
	l.readChar()
	return tok
}

// twoCharToken returns double when the next character is second, and single
// otherwise. The current character is left on the last consumed byte.
func (l *Lexer) twoCharToken(second byte, single, double TokenType) Token {
	line, column := l.line, l.column
	if l.peekChar() == second {
		ch := l.ch
		l.readChar()
		return Token{Type: double, Literal: string(ch) + string(l.ch), Line: line, Column: column}
	}
	return newToken(single, l.ch, line, column)
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isIdentifierChar(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readNumber reads digits with an optional fraction and exponent. A '.' or
// exponent marker that is not followed by digits makes the literal illegal.
func (l *Lexer) readNumber() (string, bool) {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		if !isDigit(l.ch) {
			return l.input[start:l.position], false
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readChar()
		if l.ch == '-' || l.ch == '+' {
			l.readChar()
		}
		if !isDigit(l.ch) {
			return l.input[start:l.position], false
		}
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.input[start:l.position], true
}

type Lexer struct {
	input        string
	position     int
	readPosition int
	ch           byte
	line         int
	column       int
}

func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.column++
}

// atEnd distinguishes the end of input from a NUL byte in the source.
func (l *Lexer) atEnd() bool {
	return l.position >= len(l.input)
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		if l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
			continue
		}
		if l.ch == '/' && l.peekChar() == '/' {
			l.skipLineComment()
			continue
		}
		break
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && !l.atEnd() {
		l.readChar()
	}
}

// Reset points the lexer at new input, starting again from line 1.
func (l *Lexer) Reset(input string) {
	l.input = input
	l.position = 0
	l.readPosition = 0
	l.ch = 0
	l.line = 1
	l.column = 0
	l.readChar()
}
