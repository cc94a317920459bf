// Package parser turns source text into an *ast.Program.
package parser

import (
	"unicode"

	"squiggle/interpreter-go/pkg/ast"
)

type parser struct {
	toks     []Token
	pos      int
	sourceID string
	// nesting tracks whether newlines currently separate statements: true
	// entries are blocks, false entries are parentheses and brackets.
	nesting []bool
}

// Parse parses a whole program. On failure the error is a *ParseError and no
// AST is returned.
func Parse(source, sourceID string) (*ast.Program, error) {
	lx := newLexer(source, sourceID)
	toks, err := lx.run()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, sourceID: sourceID}
	prog, perr := p.parseProgram()
	if perr != nil {
		return nil, perr
	}
	prog.Comments = lx.comments
	return prog, nil
}

// ParseExpression parses a single expression, used by tooling and tests.
func ParseExpression(source, sourceID string) (ast.Node, error) {
	toks, err := newLexer(source, sourceID).run()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, sourceID: sourceID}
	expr, perr := p.parseExpression()
	if perr != nil {
		return nil, perr
	}
	if p.peek().Type != EOF {
		return nil, p.expectedError("end of input")
	}
	return expr, nil
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	tok := p.toks[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *parser) check(tt TokenType) bool { return p.peek().Type == tt }

func (p *parser) match(tt TokenType) bool {
	if p.check(tt) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(tt TokenType) (Token, *ParseError) {
	if !p.check(tt) {
		return Token{}, p.expectedError(tt.String())
	}
	return p.next(), nil
}

func (p *parser) prev() Token {
	if p.pos == 0 {
		return p.toks[0]
	}
	return p.toks[p.pos-1]
}

func (p *parser) loc(start Token) ast.LocationRange {
	return ast.LocationRange{Source: p.sourceID, Start: start.Start, End: p.prev().End}
}

func (p *parser) push(block bool) { p.nesting = append(p.nesting, block) }
func (p *parser) pop()            { p.nesting = p.nesting[:len(p.nesting)-1] }

func (p *parser) newlinesSignificant() bool {
	return len(p.nesting) == 0 || p.nesting[len(p.nesting)-1]
}

// breaksLine reports whether tok starts a new statement rather than
// continuing the current expression.
func (p *parser) breaksLine(tok Token) bool {
	return tok.NewlineBefore && p.newlinesSignificant()
}

func (p *parser) parseProgram() (*ast.Program, *ParseError) {
	start := p.peek()
	prog := &ast.Program{Symbols: map[string]ast.Node{}}
	for p.check(KW_IMPORT) {
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		prog.Imports = append(prog.Imports, imp)
		if err := p.statementEnd(EOF); err != nil {
			return nil, err
		}
	}
	stmts, result, err := p.parseStatements(EOF)
	if err != nil {
		return nil, err
	}
	prog.Statements = stmts
	prog.Result = result
	for _, stmt := range stmts {
		if name := StatementName(stmt); name != "" {
			prog.Symbols[name] = stmt
		}
	}
	prog.Loc = ast.LocationRange{Source: p.sourceID, Start: start.Start, End: p.peek().End}
	return prog, nil
}

// StatementName returns the variable bound by a let, defun or decorated
// statement.
func StatementName(stmt ast.Node) string {
	switch s := stmt.(type) {
	case *ast.LetStatement:
		return s.Variable.Value
	case *ast.DefunStatement:
		return s.Variable.Value
	case *ast.DecoratedStatement:
		return StatementName(s.Statement)
	}
	return ""
}

func (p *parser) parseImport() (*ast.Import, *ParseError) {
	start := p.next()
	pathTok, err := p.expect(STRING)
	if err != nil {
		return nil, err
	}
	path := ast.At(&ast.String{Value: pathTok.Str}, p.loc(pathTok))
	if _, err := p.expect(KW_AS); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	variable := ast.At(&ast.Identifier{Value: nameTok.Lexeme}, p.loc(nameTok))
	return ast.At(&ast.Import{Path: path, Variable: variable}, p.loc(start)), nil
}

// parseStatements reads statements followed by an optional result
// expression, stopping at the closing token.
func (p *parser) parseStatements(closing TokenType) ([]ast.Node, ast.Node, *ParseError) {
	var stmts []ast.Node
	for {
		for p.match(SEMICOLON) {
		}
		if p.check(closing) || p.check(EOF) {
			return stmts, nil, nil
		}
		if p.isStatementStart() {
			stmt, err := p.parseStatement()
			if err != nil {
				return nil, nil, err
			}
			stmts = append(stmts, stmt)
			if err := p.statementEnd(closing); err != nil {
				return nil, nil, err
			}
			continue
		}
		result, err := p.parseExpression()
		if err != nil {
			return nil, nil, err
		}
		for p.match(SEMICOLON) {
		}
		if !p.check(closing) {
			return nil, nil, p.expectedError(closing.String())
		}
		return stmts, result, nil
	}
}

func (p *parser) statementEnd(closing TokenType) *ParseError {
	tok := p.peek()
	if tok.Type == SEMICOLON || tok.Type == closing || tok.Type == EOF || tok.NewlineBefore {
		return nil
	}
	return p.expectedError("\";\" or new line")
}

func (p *parser) isStatementStart() bool {
	tok := p.peek()
	switch tok.Type {
	case AT, KW_EXPORT:
		return true
	case IDENT:
		next := p.peekAt(1)
		switch next.Type {
		case ASSIGN, DCOLON:
			return true
		case LPAREN:
			if next.SpaceBefore {
				return false
			}
			// f(a, b) = ... is a definition, f(a, b) alone is a call.
			depth := 0
			for i := p.pos + 1; i < len(p.toks); i++ {
				switch p.toks[i].Type {
				case LPAREN, LBRACKET, LBRACE:
					depth++
				case RPAREN, RBRACKET, RBRACE:
					depth--
					if depth == 0 {
						return i+1 < len(p.toks) && p.toks[i+1].Type == ASSIGN
					}
				case EOF:
					return false
				}
			}
		}
	}
	return false
}

func (p *parser) parseStatement() (ast.Node, *ParseError) {
	start := p.peek()
	if p.check(AT) {
		dec, err := p.parseDecorator()
		if err != nil {
			return nil, err
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		return ast.At(&ast.DecoratedStatement{Decorator: dec, Statement: stmt}, p.loc(start)), nil
	}
	exported := p.match(KW_EXPORT)
	nameTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	variable := ast.At(&ast.Identifier{Value: nameTok.Lexeme}, p.loc(nameTok))

	if p.check(LPAREN) {
		paramsStart := p.next()
		params, err := p.parseParameters(RPAREN)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(ASSIGN); err != nil {
			return nil, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		lambda := ast.At(&ast.Lambda{Parameters: params, Body: body, Name: nameTok.Lexeme}, ast.Span(p.loc(paramsStart), body.Location()))
		return ast.At(&ast.DefunStatement{Exported: exported, Variable: variable, Value: lambda}, p.loc(start)), nil
	}

	var unitType *ast.UnitTypeSignature
	if p.check(DCOLON) {
		unitType, err = p.parseUnitTypeSignature()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.At(&ast.LetStatement{Exported: exported, Variable: variable, UnitType: unitType, Value: value}, p.loc(start)), nil
}

func (p *parser) parseDecorator() (*ast.Decorator, *ParseError) {
	start := p.next()
	nameTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	dec := &ast.Decorator{Name: ast.At(&ast.Identifier{Value: nameTok.Lexeme}, p.loc(nameTok))}
	if p.check(LPAREN) && !p.peek().SpaceBefore {
		p.next()
		args, err := p.parseList(RPAREN)
		if err != nil {
			return nil, err
		}
		dec.Args = args
	}
	dec.Loc = p.loc(start)
	return dec, nil
}

func (p *parser) parseParameters(closing TokenType) ([]*ast.LambdaParameter, *ParseError) {
	p.push(false)
	defer p.pop()
	var params []*ast.LambdaParameter
	for !p.check(closing) {
		tok, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		param := &ast.LambdaParameter{Variable: tok.Lexeme}
		if p.match(COLON) {
			ann, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			param.Annotation = ann
		}
		if p.check(DCOLON) {
			ut, err := p.parseUnitTypeSignature()
			if err != nil {
				return nil, err
			}
			param.UnitType = ut
		}
		param.Loc = p.loc(tok)
		params = append(params, param)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseUnitTypeSignature() (*ast.UnitTypeSignature, *ParseError) {
	start := p.next()
	body, err := p.parseUnitProduct()
	if err != nil {
		return nil, err
	}
	return ast.At(&ast.UnitTypeSignature{Body: body}, p.loc(start)), nil
}

func (p *parser) parseUnitProduct() (ast.Node, *ParseError) {
	start := p.peek()
	left, err := p.parseUnitTerm()
	if err != nil {
		return nil, err
	}
	for p.check(STAR) || p.check(SLASH) {
		op := p.next().Lexeme
		right, err := p.parseUnitTerm()
		if err != nil {
			return nil, err
		}
		left = ast.At(&ast.InfixUnitType{Op: op, Args: [2]ast.Node{left, right}}, p.loc(start))
	}
	return left, nil
}

func (p *parser) parseUnitTerm() (ast.Node, *ParseError) {
	tok := p.peek()
	switch tok.Type {
	case IDENT:
		p.next()
		return ast.At(&ast.Identifier{Value: tok.Lexeme}, p.loc(tok)), nil
	case NUMBER:
		p.next()
		return ast.At(&ast.Float{Value: tok.Num}, p.loc(tok)), nil
	case LPAREN:
		p.next()
		inner, err := p.parseUnitProduct()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, p.expectedError("unit type")
}

func (p *parser) parseExpression() (ast.Node, *ParseError) {
	if p.check(KW_IF) {
		return p.parseIfThenElse()
	}
	start := p.peek()
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.check(QUESTION) {
		p.next()
		trueExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COLON); err != nil {
			return nil, err
		}
		falseExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return ast.At(&ast.Ternary{Condition: cond, TrueExpr: trueExpr, FalseExpr: falseExpr, Syntax: ast.TernaryC}, p.loc(start)), nil
	}
	return cond, nil
}

func (p *parser) parseIfThenElse() (ast.Node, *ParseError) {
	start := p.next()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KW_THEN); err != nil {
		return nil, err
	}
	trueExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(KW_ELSE); err != nil {
		return nil, err
	}
	falseExpr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return ast.At(&ast.Ternary{Condition: cond, TrueExpr: trueExpr, FalseExpr: falseExpr, Syntax: ast.TernaryIfThenElse}, p.loc(start)), nil
}

type binaryLevel struct {
	ops  map[TokenType]string
	next func(*parser) (ast.Node, *ParseError)
}

func (p *parser) parseBinary(level binaryLevel) (ast.Node, *ParseError) {
	start := p.peek()
	left, err := level.next(p)
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		op, ok := level.ops[tok.Type]
		if !ok || p.breaksLine(tok) {
			return left, nil
		}
		p.next()
		right, err := level.next(p)
		if err != nil {
			return nil, err
		}
		left = ast.At(&ast.InfixCall{Op: op, Args: [2]ast.Node{left, right}}, p.loc(start))
	}
}

var (
	orOps             = map[TokenType]string{OR: "||"}
	andOps            = map[TokenType]string{AND: "&&"}
	equalityOps       = map[TokenType]string{EQ: "==", NEQ: "!="}
	relationalOps     = map[TokenType]string{LT: "<", LTE: "<=", GT: ">", GTE: ">="}
	additiveOps       = map[TokenType]string{PLUS: "+", MINUS: "-", DOT_PLUS: ".+", DOT_MINUS: ".-"}
	multiplicativeOps = map[TokenType]string{STAR: "*", SLASH: "/", DOT_STAR: ".*", DOT_SLASH: "./"}
	powerOps          = map[TokenType]string{CARET: "^", DOT_CARET: ".^"}
	unaryOps          = map[TokenType]string{MINUS: "-", BANG: "!", DOT_MINUS: ".-"}
)

func (p *parser) parseOr() (ast.Node, *ParseError) {
	return p.parseBinary(binaryLevel{ops: orOps, next: (*parser).parseAnd})
}

func (p *parser) parseAnd() (ast.Node, *ParseError) {
	return p.parseBinary(binaryLevel{ops: andOps, next: (*parser).parseEquality})
}

func (p *parser) parseEquality() (ast.Node, *ParseError) {
	return p.parseBinary(binaryLevel{ops: equalityOps, next: (*parser).parseRelational})
}

func (p *parser) parseRelational() (ast.Node, *ParseError) {
	return p.parseBinary(binaryLevel{ops: relationalOps, next: (*parser).parseCredibleInterval})
}

func (p *parser) parseCredibleInterval() (ast.Node, *ParseError) {
	start := p.peek()
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.check(KW_TO) && !p.breaksLine(p.peek()) {
		p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return ast.At(&ast.InfixCall{Op: "to", Args: [2]ast.Node{left, right}}, p.loc(start)), nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (ast.Node, *ParseError) {
	return p.parseBinary(binaryLevel{ops: additiveOps, next: (*parser).parseMultiplicative})
}

func (p *parser) parseMultiplicative() (ast.Node, *ParseError) {
	return p.parseBinary(binaryLevel{ops: multiplicativeOps, next: (*parser).parsePower})
}

// parsePower is right associative: 2^3^2 == 2^(3^2).
func (p *parser) parsePower() (ast.Node, *ParseError) {
	start := p.peek()
	left, err := p.parsePipe()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if op, ok := powerOps[tok.Type]; ok && !p.breaksLine(tok) {
		p.next()
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		return ast.At(&ast.InfixCall{Op: op, Args: [2]ast.Node{left, right}}, p.loc(start)), nil
	}
	return left, nil
}

func (p *parser) parsePipe() (ast.Node, *ParseError) {
	start := p.peek()
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.check(ARROW) {
		p.next()
		callee, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		pipe := &ast.Pipe{Left: left, Fn: callee}
		if call, ok := callee.(*ast.Call); ok {
			pipe.Fn = call.Fn
			pipe.RightArgs = call.Args
		}
		left = ast.At(pipe, p.loc(start))
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Node, *ParseError) {
	tok := p.peek()
	if op, ok := unaryOps[tok.Type]; ok {
		p.next()
		arg, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.At(&ast.UnaryCall{Op: op, Arg: arg}, p.loc(tok)), nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (ast.Node, *ParseError) {
	start := p.peek()
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case tok.Type == LPAREN && !tok.NewlineBefore:
			p.next()
			args, err := p.parseList(RPAREN)
			if err != nil {
				return nil, err
			}
			expr = ast.At(&ast.Call{Fn: expr, Args: args}, p.loc(start))
		case tok.Type == LBRACKET && !tok.NewlineBefore:
			p.next()
			p.push(false)
			key, err := p.parseExpression()
			p.pop()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			expr = ast.At(&ast.BracketLookup{Arg: expr, Key: key}, p.loc(start))
		case tok.Type == DOT:
			p.next()
			keyTok, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			expr = ast.At(&ast.DotLookup{Arg: expr, Key: keyTok.Lexeme}, p.loc(start))
		default:
			return expr, nil
		}
	}
}

// parseList parses comma separated expressions up to the closing token,
// allowing a trailing comma.
func (p *parser) parseList(closing TokenType) ([]ast.Node, *ParseError) {
	p.push(false)
	defer p.pop()
	var out []ast.Node
	for !p.check(closing) {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *parser) parsePrimary() (ast.Node, *ParseError) {
	tok := p.peek()
	switch tok.Type {
	case NUMBER:
		p.next()
		num := ast.At(&ast.Float{Value: tok.Num}, p.loc(tok))
		unit := p.peek()
		if !unit.SpaceBefore && (unit.Type == IDENT || unit.Type == PERCENT) {
			p.next()
			return ast.At(&ast.UnitValue{Value: num, Unit: unit.Lexeme}, p.loc(tok)), nil
		}
		return num, nil
	case STRING:
		p.next()
		return ast.At(&ast.String{Value: tok.Str}, p.loc(tok)), nil
	case KW_TRUE, KW_FALSE:
		p.next()
		return ast.At(&ast.Boolean{Value: tok.Type == KW_TRUE}, p.loc(tok)), nil
	case IDENT:
		p.next()
		name := tok.Lexeme
		// Module-qualified names such as List.map are single identifiers.
		for isModuleName(name) && p.check(DOT) && !p.peek().SpaceBefore &&
			p.peekAt(1).Type == IDENT && !p.peekAt(1).SpaceBefore {
			p.next()
			name += "." + p.next().Lexeme
		}
		return ast.At(&ast.Identifier{Value: name}, p.loc(tok)), nil
	case LPAREN:
		p.next()
		p.push(false)
		expr, err := p.parseExpression()
		p.pop()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case LBRACKET:
		p.next()
		elems, err := p.parseList(RBRACKET)
		if err != nil {
			return nil, err
		}
		return ast.At(&ast.Array{Elements: elems}, p.loc(tok)), nil
	case LBRACE:
		return p.parseBrace()
	}
	return nil, p.expectedError("expression")
}

func isModuleName(name string) bool {
	for _, r := range name {
		return unicode.IsUpper(r)
	}
	return false
}

func (p *parser) parseBrace() (ast.Node, *ParseError) {
	start := p.next()
	switch {
	case p.check(BAR):
		p.next()
		params, err := p.parseParameters(BAR)
		if err != nil {
			return nil, err
		}
		return p.parseLambdaBody(start, params)
	case p.check(OR):
		p.next()
		return p.parseLambdaBody(start, nil)
	case p.check(RBRACE):
		p.next()
		return ast.At(&ast.Dict{}, p.loc(start)), nil
	case p.looksLikeDict():
		return p.parseDict(start)
	}
	p.push(true)
	stmts, result, err := p.parseStatements(RBRACE)
	p.pop()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, p.expectedError("expression")
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return ast.At(&ast.Block{Statements: stmts, Result: result}, p.loc(start)), nil
}

func (p *parser) parseLambdaBody(start Token, params []*ast.LambdaParameter) (ast.Node, *ParseError) {
	bodyStart := p.peek()
	p.push(true)
	stmts, result, err := p.parseStatements(RBRACE)
	p.pop()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, p.expectedError("expression")
	}
	var body ast.Node = result
	if len(stmts) > 0 {
		body = ast.At(&ast.Block{Statements: stmts, Result: result}, p.loc(bodyStart))
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return ast.At(&ast.Lambda{Parameters: params, Body: body}, p.loc(start)), nil
}

// looksLikeDict peeks past the first entry: `{key: ...}` and `{a, b}` are
// dicts, anything else is a block.
func (p *parser) looksLikeDict() bool {
	save, saveNesting := p.pos, len(p.nesting)
	defer func() {
		p.pos = save
		p.nesting = p.nesting[:saveNesting]
	}()
	p.push(false)
	key, err := p.parseOr()
	if err != nil {
		return false
	}
	if p.check(COLON) {
		return true
	}
	_, isIdent := key.(*ast.Identifier)
	return isIdent && p.check(COMMA)
}

func (p *parser) parseDict(start Token) (ast.Node, *ParseError) {
	p.push(false)
	defer p.pop()
	var elems []ast.Node
	for !p.check(RBRACE) {
		entryStart := p.peek()
		key, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.match(COLON) {
			if id, ok := key.(*ast.Identifier); ok {
				key = ast.At(&ast.String{Value: id.Value}, id.Location())
			}
			value, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			elems = append(elems, ast.At(&ast.KeyValue{Key: key, Value: value}, p.loc(entryStart)))
		} else {
			id, ok := key.(*ast.Identifier)
			if !ok {
				return nil, p.expectedError("\":\"")
			}
			elems = append(elems, id)
		}
		if !p.match(COMMA) {
			break
		}
	}
	if _, err := p.expect(RBRACE); err != nil {
		return nil, err
	}
	return ast.At(&ast.Dict{Elements: elems}, p.loc(start)), nil
}
