package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is an expression node. Nodes own their children; the tree is never
// shared or mutated after parsing.
type Expr interface {
	String() string
	expr()
}

type NumberExpr struct {
	Value float64
}

func (NumberExpr) expr() {}

func (n NumberExpr) String() string {
	return strconv.FormatFloat(n.Value, 'f', -1, 64)
}

type VariableExpr struct {
	Name string
}

func (VariableExpr) expr() {}

func (n VariableExpr) String() string {
	return n.Name
}

type BinaryExpr struct {
	LHS Expr
	Op  BinaryOperator
	RHS Expr
}

func (BinaryExpr) expr() {}

// String parenthesizes compound left operands; the right operand never needs
// it since every operator groups to the right.
func (n BinaryExpr) String() string {
	lhs := n.LHS.String()
	switch n.LHS.(type) {
	case BinaryExpr, IfElseExpr:
		lhs = "(" + lhs + ")"
	}
	return fmt.Sprintf("%s %s %s", lhs, n.Op, n.RHS)
}

type IfElseExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (IfElseExpr) expr() {}

func (n IfElseExpr) String() string {
	return fmt.Sprintf("if %s then %s else %s", n.Cond, n.Then, n.Else)
}

type CallExpr struct {
	Name string
	Args []Expr
}

func (CallExpr) expr() {}

func (n CallExpr) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return n.Name + "(" + strings.Join(args, ", ") + ")"
}

type Prototype struct {
	Name   string
	Params []string
}

func (p Prototype) String() string {
	return p.Name + "(" + strings.Join(p.Params, ", ") + ")"
}

type Definition struct {
	Prototype Prototype
	Body      Expr
}

func (d Definition) String() string {
	return fmt.Sprintf("def %s %s;", d.Prototype, d.Body)
}

type ParseErrorKind int

const (
	UnexpectedToken ParseErrorKind = iota
	UnexpectedEOF
)

type ParseError struct {
	Kind  ParseErrorKind
	Token Token
}

func (e ParseError) Error() string {
	if e.Kind == UnexpectedEOF {
		return "parse error: unexpected end of input"
	}
	return fmt.Sprintf("parse error at %s: unexpected token %s", e.Token.Pos, e.Token)
}

// ErrorWithContext renders the error followed by the offending source line
// and a caret under the token.
func (e ParseError) ErrorWithContext(source string) string {
	if e.Kind == UnexpectedEOF {
		return e.Error()
	}

	lines := strings.Split(source, "\n")
	if e.Token.Pos.Line < 1 || e.Token.Pos.Line > len(lines) {
		return e.Error()
	}
	line := lines[e.Token.Pos.Line-1]
	caret := strings.Repeat(" ", max(e.Token.Pos.Col-1, 0)) + strings.Repeat("^", max(e.Token.Length, 1))

	return fmt.Sprintf("%s\n  %s\n  %s", e.Error(), line, caret)
}

// Parser is a recursive-descent parser over a token slice. Operators have no
// precedence: the whole remainder of an expression becomes the right operand.
type Parser struct {
	tokens []Token
	index  int
	// line makes the ';' closing a form optional at end of input.
	line bool
}

func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens: tokens,
		index:  0,
	}
}

// NewLineParser returns a parser for a single REPL line, where the trailing
// ';' may be left out.
func NewLineParser(tokens []Token) *Parser {
	p := NewParser(tokens)
	p.line = true
	return p
}

func (p *Parser) isEOF() bool {
	return p.index >= len(p.tokens)
}

func (p *Parser) current() (Token, bool) {
	if p.isEOF() {
		return Token{}, false
	}
	return p.tokens[p.index], true
}

func (p *Parser) advance() {
	p.index++
}

func (p *Parser) expect(kind TokenKind) error {
	tok, ok := p.current()
	if !ok {
		return ParseError{Kind: UnexpectedEOF}
	}
	if tok.Kind != kind {
		return ParseError{Kind: UnexpectedToken, Token: tok}
	}
	p.advance()
	return nil
}

// ParseTerminator consumes the ';' that closes a form.
func (p *Parser) ParseTerminator() error {
	if p.line && p.isEOF() {
		return nil
	}
	return p.ParseTerminator()
}

// Finish fails if any token is left unread.
func (p *Parser) Finish() error {
	if tok, ok := p.current(); ok {
		return ParseError{Kind: UnexpectedToken, Token: tok}
	}
	return nil
}

// ParseTopLevel parses a sequence of externs and definitions.
func (p *Parser) ParseTopLevel() (*TopLevel, error) {
	externs := []Prototype{}
	definitions := []Definition{}

	for !p.isEOF() {
		tok, _ := p.current()
		switch tok.Kind {
		case EXTERN:
			extern, err := p.ParseExtern()
			if err != nil {
				return nil, err
			}
			externs = append(externs, extern)
		case DEF:
			def, err := p.ParseDefinition()
			if err != nil {
				return nil, err
			}
			definitions = append(definitions, def)
		default:
			return nil, ParseError{Kind: UnexpectedToken, Token: tok}
		}
	}

	return NewTopLevel(externs, definitions), nil
}

// ParseFile is ParseTopLevel plus loose expression statements.
func (p *Parser) ParseFile() (*TopLevel, error) {
	externs := []Prototype{}
	definitions := []Definition{}
	expressions := []Expr{}

	for !p.isEOF() {
		tok, _ := p.current()
		switch tok.Kind {
		case EXTERN:
			extern, err := p.ParseExtern()
			if err != nil {
				return nil, err
			}
			externs = append(externs, extern)
		case DEF:
			def, err := p.ParseDefinition()
			if err != nil {
				return nil, err
			}
			definitions = append(definitions, def)
		default:
			expr, err := p.ParseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.ParseTerminator(); err != nil {
				return nil, err
			}
			expressions = append(expressions, expr)
		}
	}

	topLevel := NewTopLevel(externs, definitions)
	for _, expr := range expressions {
		topLevel.AddExpression(expr)
	}
	return topLevel, nil
}

func (p *Parser) ParseExtern() (Prototype, error) {
	if err := p.expect(EXTERN); err != nil {
		return Prototype{}, err
	}
	proto, err := p.ParsePrototype()
	if err != nil {
		return Prototype{}, err
	}
	if err := p.ParseTerminator(); err != nil {
		return Prototype{}, err
	}
	return proto, nil
}

func (p *Parser) ParseDefinition() (Definition, error) {
	if err := p.expect(DEF); err != nil {
		return Definition{}, err
	}
	proto, err := p.ParsePrototype()
	if err != nil {
		return Definition{}, err
	}
	body, err := p.ParseExpr()
	if err != nil {
		return Definition{}, err
	}
	if err := p.ParseTerminator(); err != nil {
		return Definition{}, err
	}
	return Definition{Prototype: proto, Body: body}, nil
}

func (p *Parser) ParsePrototype() (Prototype, error) {
	name, err := p.parseIdentifier()
	if err != nil {
		return Prototype{}, err
	}
	params, err := parseList(p, p.parseIdentifier)
	if err != nil {
		return Prototype{}, err
	}
	return Prototype{Name: name, Params: params}, nil
}

func (p *Parser) parseIdentifier() (string, error) {
	tok, ok := p.current()
	if !ok {
		return "", ParseError{Kind: UnexpectedEOF}
	}
	if tok.Kind != IDENTIFIER {
		return "", ParseError{Kind: UnexpectedToken, Token: tok}
	}
	p.advance()
	return tok.Text, nil
}

// parseList parses a parenthesized list of terms. Commas between terms are
// consumed when present but not required.
func parseList[T any](p *Parser, term func() (T, error)) ([]T, error) {
	if err := p.expect(LEFT_PAREN); err != nil {
		return nil, err
	}

	items := []T{}
	for {
		tok, ok := p.current()
		if !ok || tok.Kind == RIGHT_PAREN {
			break
		}
		item, err := term()
		if err != nil {
			return nil, err
		}
		if tok, ok := p.current(); ok && tok.Kind == COMMA {
			p.advance()
		}
		items = append(items, item)
	}

	if err := p.expect(RIGHT_PAREN); err != nil {
		return nil, err
	}
	return items, nil
}

// ParseExpr parses a primary and, if an operator follows, the entire rest of
// the expression as its right operand.
func (p *Parser) ParseExpr() (Expr, error) {
	tok, ok := p.current()
	if !ok {
		return nil, ParseError{Kind: UnexpectedEOF}
	}

	var expr Expr
	switch tok.Kind {
	case LEFT_PAREN:
		p.advance()
		inner, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RIGHT_PAREN); err != nil {
			return nil, err
		}
		expr = inner
	case NUMBER:
		p.advance()
		expr = NumberExpr{Value: tok.Number}
	case IDENTIFIER:
		p.advance()
		if next, ok := p.current(); ok && next.Kind == LEFT_PAREN {
			args, err := parseList(p, p.ParseExpr)
			if err != nil {
				return nil, err
			}
			expr = CallExpr{Name: tok.Text, Args: args}
		} else {
			expr = VariableExpr{Name: tok.Text}
		}
	case IF:
		ifElse, err := p.parseIfElse()
		if err != nil {
			return nil, err
		}
		expr = ifElse
	default:
		return nil, ParseError{Kind: UnexpectedToken, Token: tok}
	}

	if next, ok := p.current(); ok && next.Kind == OPERATOR {
		p.advance()
		rhs, err := p.ParseExpr()
		if err != nil {
			return nil, err
		}
		expr = BinaryExpr{LHS: expr, Op: next.Op, RHS: rhs}
	}

	return expr, nil
}

func (p *Parser) parseIfElse() (Expr, error) {
	if err := p.expect(IF); err != nil {
		return nil, err
	}
	cond, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(THEN); err != nil {
		return nil, err
	}
	then, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(ELSE); err != nil {
		return nil, err
	}
	els, err := p.ParseExpr()
	if err != nil {
		return nil, err
	}
	return IfElseExpr{Cond: cond, Then: then, Else: els}, nil
}
