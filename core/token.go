package core

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"
)

type TokenKind int

const (
	UNKNOWN TokenKind = iota

	// punctuation
	LEFT_PAREN
	RIGHT_PAREN
	COMMA
	SEMICOLON

	// keywords
	DEF
	EXTERN
	IF
	THEN
	ELSE

	IDENTIFIER
	NUMBER
	OPERATOR
)

// BinaryOperator is one of the single-character infix operators.
type BinaryOperator rune

const (
	Plus   BinaryOperator = '+'
	Minus  BinaryOperator = '-'
	Times  BinaryOperator = '*'
	Divide BinaryOperator = '/'
	Mod    BinaryOperator = '%'
	Equals BinaryOperator = '='
)

func (op BinaryOperator) String() string {
	return string(op)
}

var keywords = map[string]TokenKind{
	"def":    DEF,
	"extern": EXTERN,
	"if":     IF,
	"then":   THEN,
	"else":   ELSE,
}

type Position struct {
	Line   int
	Col    int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("[%d:%d]", p.Line, p.Col)
}

// Token is a lexed token. Pos and Length locate it in the source and take no
// part in equality, see Eq.
type Token struct {
	Kind   TokenKind
	Text   string
	Number float64
	Op     BinaryOperator

	Pos    Position
	Length int
}

// Eq compares kind and payload.
func (t Token) Eq(u Token) bool {
	return t.Kind == u.Kind && t.Text == u.Text && t.Number == u.Number && t.Op == u.Op
}

func (t Token) String() string {
	switch t.Kind {
	case LEFT_PAREN:
		return "("
	case RIGHT_PAREN:
		return ")"
	case COMMA:
		return ","
	case SEMICOLON:
		return ";"
	case DEF:
		return "def"
	case EXTERN:
		return "extern"
	case IF:
		return "if"
	case THEN:
		return "then"
	case ELSE:
		return "else"
	case IDENTIFIER:
		return fmt.Sprintf("identifier(%s)", t.Text)
	case NUMBER:
		return fmt.Sprintf("number(%s)", strconv.FormatFloat(t.Number, 'g', -1, 64))
	case OPERATOR:
		return t.Op.String()
	default:
		return "<unknown>"
	}
}

type tokenizer struct {
	source []rune
	index  int
	line   int
	col    int
}

func NewTokenizer(source string) *tokenizer {
	return &tokenizer{
		source: []rune(source),
		index:  0,
		line:   1,
		col:    1,
	}
}

func (t *tokenizer) isEOF() bool {
	return t.index >= len(t.source)
}

func (t *tokenizer) next() rune {
	char := t.source[t.index]
	t.index++

	if char == '\n' {
		t.line++
		t.col = 1
	} else {
		t.col++
	}

	return char
}

func (t *tokenizer) peek() rune {
	return t.source[t.index]
}

func (t *tokenizer) pos() Position {
	return Position{
		Line:   t.line,
		Col:    t.col,
		Offset: t.index,
	}
}

func isWordRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func (t *tokenizer) readWord() string {
	word := []rune{}
	for !t.isEOF() && isWordRune(t.peek()) {
		word = append(word, t.next())
	}

	return string(word)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// parseNumber accepts words that start with a digit and parse as a float.
// Out-of-range literals keep the ±Inf that strconv returns.
func parseNumber(word string) (float64, bool) {
	if word == "" || word[0] < '0' || word[0] > '9' {
		return 0, false
	}
	v, err := strconv.ParseFloat(word, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			return v, true
		}
		return 0, false
	}
	return v, true
}

// NextToken returns the next token, or false once the input is exhausted or
// a character that starts no token is reached.
func (t *tokenizer) NextToken() (Token, bool) {
	for !t.isEOF() && unicode.IsSpace(t.peek()) {
		t.next()
	}

	if t.isEOF() {
		return Token{}, false
	}

	pos := t.pos()

	switch t.peek() {
	case ',':
		t.next()
		return Token{Kind: COMMA, Pos: pos, Length: 1}, true
	case '(':
		t.next()
		return Token{Kind: LEFT_PAREN, Pos: pos, Length: 1}, true
	case ')':
		t.next()
		return Token{Kind: RIGHT_PAREN, Pos: pos, Length: 1}, true
	case ';':
		t.next()
		return Token{Kind: SEMICOLON, Pos: pos, Length: 1}, true
	case '+', '-', '*', '/', '%', '=':
		op := BinaryOperator(t.next())
		return Token{Kind: OPERATOR, Op: op, Pos: pos, Length: 1}, true
	}

	if !isWordRune(t.peek()) {
		return Token{}, false
	}

	word := t.readWord()

	// integer part followed by '.': take the fraction only if the whole
	// literal still parses, otherwise leave the '.' unread
	if isDigits(word) && !t.isEOF() && t.peek() == '.' {
		mark := *t
		t.next()
		literal := word + "." + t.readWord()
		if _, ok := parseNumber(literal); ok {
			word = literal
		} else {
			*t = mark
		}
	}

	length := t.index - pos.Offset

	if v, ok := parseNumber(word); ok {
		return Token{Kind: NUMBER, Number: v, Pos: pos, Length: length}, true
	}

	if kind, ok := keywords[word]; ok {
		return Token{Kind: kind, Pos: pos, Length: length}, true
	}

	return Token{Kind: IDENTIFIER, Text: word, Pos: pos, Length: length}, true
}

func (t *tokenizer) Tokenize() []Token {
	tokens := []Token{}

	for {
		tok, ok := t.NextToken()
		if !ok {
			break
		}
		tokens = append(tokens, tok)
	}

	return tokens
}
