package parser

import (
	"strconv"
	"strings"

	"squiggle/interpreter-go/pkg/ast"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota

	IDENT
	NUMBER
	STRING

	// Punctuation
	LPAREN
	RPAREN
	LBRACKET
	RBRACKET
	LBRACE
	RBRACE
	COMMA
	SEMICOLON
	COLON
	DCOLON // "::"
	DOT
	QUESTION
	BAR
	AT
	PERCENT
	ASSIGN

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	CARET
	DOT_PLUS
	DOT_MINUS
	DOT_STAR
	DOT_SLASH
	DOT_CARET
	EQ
	NEQ
	LT
	LTE
	GT
	GTE
	AND
	OR
	BANG
	ARROW

	// Keywords
	KW_IF
	KW_THEN
	KW_ELSE
	KW_TRUE
	KW_FALSE
	KW_IMPORT
	KW_EXPORT
	KW_AS
	KW_TO
)

var tokenNames = map[TokenType]string{
	EOF: "end of input", IDENT: "identifier", NUMBER: "number", STRING: "string",
	LPAREN: "\"(\"", RPAREN: "\")\"", LBRACKET: "\"[\"", RBRACKET: "\"]\"",
	LBRACE: "\"{\"", RBRACE: "\"}\"", COMMA: "\",\"", SEMICOLON: "\";\"",
	COLON: "\":\"", DCOLON: "\"::\"", DOT: "\".\"", QUESTION: "\"?\"", BAR: "\"|\"",
	AT: "\"@\"", ASSIGN: "\"=\"", ARROW: "\"->\"",
	KW_IF: "\"if\"", KW_THEN: "\"then\"", KW_ELSE: "\"else\"", KW_AS: "\"as\"",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "operator"
}

var keywords = map[string]TokenType{
	"if":     KW_IF,
	"then":   KW_THEN,
	"else":   KW_ELSE,
	"true":   KW_TRUE,
	"false":  KW_FALSE,
	"import": KW_IMPORT,
	"export": KW_EXPORT,
	"as":     KW_AS,
	"to":     KW_TO,
}

// Token is a lexical token. NewlineBefore is set when a line break separates
// this token from the previous one; the parser uses it to end statements.
type Token struct {
	Type          TokenType
	Lexeme        string
	Num           float64
	Str           string
	Start         ast.Position
	End           ast.Position
	NewlineBefore bool
	// SpaceBefore is false when the token touches the previous one, e.g. the
	// "(" in `f(x)` or the unit in `5k`.
	SpaceBefore bool
}

type lexer struct {
	src      string
	sourceID string
	cur      int
	line     int
	col      int

	tokens   []Token
	comments []ast.Comment

	newline bool
	space   bool
}

func newLexer(src, sourceID string) *lexer {
	return &lexer{src: src, sourceID: sourceID, line: 1, col: 1}
}

func (l *lexer) pos() ast.Position {
	return ast.Position{Line: l.line, Column: l.col, Offset: l.cur}
}

func (l *lexer) atEnd() bool { return l.cur >= len(l.src) }

func (l *lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.cur]
}

func (l *lexer) peekAt(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *lexer) advance() byte {
	ch := l.src[l.cur]
	l.cur++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *lexer) errorAt(start ast.Position, msg string) *ParseError {
	return &ParseError{
		Message:  msg,
		Location: ast.LocationRange{Source: l.sourceID, Start: start, End: l.pos()},
	}
}

// truncatedAt reports a construct that was still open at end of input.
func (l *lexer) truncatedAt(start ast.Position, msg string) *ParseError {
	err := l.errorAt(start, msg)
	err.Incomplete = true
	return err
}

func (l *lexer) emit(tt TokenType, start ast.Position) *Token {
	l.tokens = append(l.tokens, Token{
		Type:          tt,
		Lexeme:        l.src[start.Offset:l.cur],
		Start:         start,
		End:           l.pos(),
		NewlineBefore: l.newline,
		SpaceBefore:   l.space,
	})
	l.newline = false
	l.space = false
	return &l.tokens[len(l.tokens)-1]
}

func (l *lexer) run() ([]Token, error) {
	l.newline = true
	l.space = true
	for {
		if err := l.skipTrivia(); err != nil {
			return nil, err
		}
		if l.atEnd() {
			l.emit(EOF, l.pos())
			return l.tokens, nil
		}
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) skipTrivia() error {
	for !l.atEnd() {
		ch := l.peek()
		switch {
		case ch == '\n':
			l.newline = true
			l.space = true
			l.advance()
		case ch == ' ' || ch == '\t' || ch == '\r':
			l.space = true
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			start := l.pos()
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
			l.comments = append(l.comments, ast.Comment{
				Kind:     ast.LineComment,
				Value:    l.src[start.Offset+2 : l.cur],
				Location: ast.LocationRange{Source: l.sourceID, Start: start, End: l.pos()},
			})
			l.space = true
		case ch == '/' && l.peekAt(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			closed := false
			for !l.atEnd() {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				if l.peek() == '\n' {
					l.newline = true
				}
				l.advance()
			}
			if !closed {
				return l.truncatedAt(start, "Unterminated block comment")
			}
			l.comments = append(l.comments, ast.Comment{
				Kind:     ast.BlockComment,
				Value:    l.src[start.Offset+2 : l.cur-2],
				Location: ast.LocationRange{Source: l.sourceID, Start: start, End: l.pos()},
			})
			l.space = true
		default:
			return nil
		}
	}
	return nil
}

func (l *lexer) scanToken() error {
	start := l.pos()
	ch := l.peek()
	switch {
	case isDigit(ch) || (ch == '.' && isDigit(l.peekAt(1))):
		return l.scanNumber(start)
	case isAlpha(ch):
		l.scanIdentifier(start)
		return nil
	case ch == '"' || ch == '\'':
		return l.scanString(start)
	}

	l.advance()
	next := l.peek()
	two := func(tt TokenType) {
		l.advance()
		l.emit(tt, start)
	}
	switch ch {
	case '(':
		l.emit(LPAREN, start)
	case ')':
		l.emit(RPAREN, start)
	case '[':
		l.emit(LBRACKET, start)
	case ']':
		l.emit(RBRACKET, start)
	case '{':
		l.emit(LBRACE, start)
	case '}':
		l.emit(RBRACE, start)
	case ',':
		l.emit(COMMA, start)
	case ';':
		l.emit(SEMICOLON, start)
	case '?':
		l.emit(QUESTION, start)
	case '@':
		l.emit(AT, start)
	case '%':
		l.emit(PERCENT, start)
	case '+':
		l.emit(PLUS, start)
	case '*':
		l.emit(STAR, start)
	case '/':
		l.emit(SLASH, start)
	case '^':
		l.emit(CARET, start)
	case ':':
		if next == ':' {
			two(DCOLON)
		} else {
			l.emit(COLON, start)
		}
	case '-':
		if next == '>' {
			two(ARROW)
		} else {
			l.emit(MINUS, start)
		}
	case '=':
		if next == '=' {
			two(EQ)
		} else {
			l.emit(ASSIGN, start)
		}
	case '!':
		if next == '=' {
			two(NEQ)
		} else {
			l.emit(BANG, start)
		}
	case '<':
		if next == '=' {
			two(LTE)
		} else {
			l.emit(LT, start)
		}
	case '>':
		if next == '=' {
			two(GTE)
		} else {
			l.emit(GT, start)
		}
	case '&':
		if next != '&' {
			return l.errorAt(start, "Expected \"&&\"")
		}
		two(AND)
	case '|':
		if next == '|' {
			two(OR)
		} else {
			l.emit(BAR, start)
		}
	case '.':
		switch next {
		case '+':
			two(DOT_PLUS)
		case '-':
			two(DOT_MINUS)
		case '*':
			two(DOT_STAR)
		case '/':
			two(DOT_SLASH)
		case '^':
			two(DOT_CARET)
		default:
			l.emit(DOT, start)
		}
	default:
		return l.errorAt(start, "Unexpected character "+strconv.QuoteRune(rune(ch)))
	}
	return nil
}

func (l *lexer) scanNumber(start ast.Position) error {
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if (l.peek() == 'e' || l.peek() == 'E') &&
		(isDigit(l.peekAt(1)) || ((l.peekAt(1) == '-' || l.peekAt(1) == '+') && isDigit(l.peekAt(2)))) {
		l.advance()
		if l.peek() == '-' || l.peek() == '+' {
			l.advance()
		}
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	text := l.src[start.Offset:l.cur]
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return l.errorAt(start, "Invalid number "+text)
	}
	tok := l.emit(NUMBER, start)
	tok.Num = v
	return nil
}

func (l *lexer) scanIdentifier(start ast.Position) {
	for isAlphaNum(l.peek()) {
		l.advance()
	}
	text := l.src[start.Offset:l.cur]
	if kw, ok := keywords[text]; ok {
		l.emit(kw, start)
		return
	}
	l.emit(IDENT, start)
}

func (l *lexer) scanString(start ast.Position) error {
	quote := l.advance()
	var b strings.Builder
	for {
		if l.atEnd() {
			return l.truncatedAt(start, "Unterminated string")
		}
		ch := l.advance()
		if ch == quote {
			break
		}
		if ch != '\\' {
			b.WriteByte(ch)
			continue
		}
		if l.atEnd() {
			return l.truncatedAt(start, "Unterminated string")
		}
		esc := l.advance()
		switch esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'u':
			if l.cur+4 > len(l.src) {
				return l.errorAt(start, "Invalid unicode escape")
			}
			code, err := strconv.ParseUint(l.src[l.cur:l.cur+4], 16, 32)
			if err != nil {
				return l.errorAt(start, "Invalid unicode escape")
			}
			for i := 0; i < 4; i++ {
				l.advance()
			}
			b.WriteRune(rune(code))
		default:
			b.WriteByte(esc)
		}
	}
	tok := l.emit(STRING, start)
	tok.Str = b.String()
	return nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool { return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_' || b == '$' }
func isAlphaNum(b byte) bool {
	return isAlpha(b) || isDigit(b)
}
