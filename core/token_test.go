package core

import (
	"math"
	"testing"
)

func ident(name string) Token    { return Token{Kind: IDENTIFIER, Text: name} }
func number(v float64) Token     { return Token{Kind: NUMBER, Number: v} }
func operator(op rune) Token     { return Token{Kind: OPERATOR, Op: BinaryOperator(op)} }
func token(kind TokenKind) Token { return Token{Kind: kind} }

func assertTokens(t *testing.T, source string, want []Token) {
	t.Helper()

	got := NewTokenizer(source).Tokenize()
	if len(got) != len(want) {
		t.Fatalf("Tokenize(%q) returned %d tokens %v, want %d %v", source, len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Eq(want[i]) {
			t.Errorf("Tokenize(%q)[%d] = %s, want %s", source, i, got[i], want[i])
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []Token
	}{
		{
			name:   "empty",
			source: "",
			want:   []Token{},
		},
		{
			name:   "whitespace only",
			source: " \t\n  ",
			want:   []Token{},
		},
		{
			name:   "punctuation and operators",
			source: ", ( ) ; + - * / % =",
			want: []Token{
				token(COMMA), token(LEFT_PAREN), token(RIGHT_PAREN), token(SEMICOLON),
				operator('+'), operator('-'), operator('*'), operator('/'), operator('%'), operator('='),
			},
		},
		{
			name:   "keywords",
			source: "def extern if then else",
			want: []Token{
				token(DEF), token(EXTERN), token(IF), token(THEN), token(ELSE),
			},
		},
		{
			name:   "keyword prefix is an identifier",
			source: "define iffy _else",
			want:   []Token{ident("define"), ident("iffy"), ident("_else")},
		},
		{
			name:   "definition",
			source: "def add(a, b) a+b;",
			want: []Token{
				token(DEF), ident("add"), token(LEFT_PAREN), ident("a"), token(COMMA), ident("b"),
				token(RIGHT_PAREN), ident("a"), operator('+'), ident("b"), token(SEMICOLON),
			},
		},
		{
			name:   "numbers",
			source: "1 2.5 0.125 10",
			want:   []Token{number(1), number(2.5), number(0.125), number(10)},
		},
		{
			name:   "exponent",
			source: "1e3",
			want:   []Token{number(1000)},
		},
		{
			name:   "identifier with digits",
			source: "x1 y_2",
			want:   []Token{ident("x1"), ident("y_2")},
		},
		{
			name:   "digit run that is not a number",
			source: "1abc",
			want:   []Token{ident("1abc")},
		},
		{
			name:   "fraction that does not parse is backtracked",
			source: "1.x",
			want:   []Token{number(1)},
		},
		{
			name:   "unknown character ends the stream",
			source: "a + b # c",
			want:   []Token{ident("a"), operator('+'), ident("b")},
		},
		{
			name:   "unknown character first",
			source: "$x",
			want:   []Token{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertTokens(t, tt.source, tt.want)
		})
	}
}

func TestTokenizeOutOfRangeNumber(t *testing.T) {
	tokens := NewTokenizer("1e999").Tokenize()
	if len(tokens) != 1 || tokens[0].Kind != NUMBER {
		t.Fatalf("expected a single number token, got %v", tokens)
	}
	if !math.IsInf(tokens[0].Number, 1) {
		t.Errorf("expected +Inf, got %v", tokens[0].Number)
	}
}

func TestNextTokenIsLazy(t *testing.T) {
	tokenizer := NewTokenizer("f(x)")

	want := []Token{ident("f"), token(LEFT_PAREN), ident("x"), token(RIGHT_PAREN)}
	for i, w := range want {
		tok, ok := tokenizer.NextToken()
		if !ok {
			t.Fatalf("token %d: unexpected end of input", i)
		}
		if !tok.Eq(w) {
			t.Errorf("token %d = %s, want %s", i, tok, w)
		}
	}

	if tok, ok := tokenizer.NextToken(); ok {
		t.Errorf("expected end of input, got %s", tok)
	}
}

func TestTokenPositions(t *testing.T) {
	tokens := NewTokenizer("def f(x)\n  x*2.5;").Tokenize()

	tests := []struct {
		index  int
		pos    Position
		length int
	}{
		{index: 0, pos: Position{Line: 1, Col: 1, Offset: 0}, length: 3},
		{index: 1, pos: Position{Line: 1, Col: 5, Offset: 4}, length: 1},
		{index: 5, pos: Position{Line: 2, Col: 3, Offset: 11}, length: 1},
		{index: 7, pos: Position{Line: 2, Col: 5, Offset: 13}, length: 3},
		{index: 8, pos: Position{Line: 2, Col: 8, Offset: 16}, length: 1},
	}

	for _, tt := range tests {
		tok := tokens[tt.index]
		if tok.Pos != tt.pos {
			t.Errorf("token %d (%s) at %+v, want %+v", tt.index, tok, tok.Pos, tt.pos)
		}
		if tok.Length != tt.length {
			t.Errorf("token %d (%s) has length %d, want %d", tt.index, tok, tok.Length, tt.length)
		}
	}
}

func TestTokenEqIgnoresPosition(t *testing.T) {
	a := Token{Kind: IDENTIFIER, Text: "x", Pos: Position{Line: 1, Col: 1}}
	b := Token{Kind: IDENTIFIER, Text: "x", Pos: Position{Line: 4, Col: 9, Offset: 30}, Length: 1}
	if !a.Eq(b) {
		t.Errorf("%s and %s should be equal", a, b)
	}
	if a.Eq(ident("y")) {
		t.Errorf("identifiers with different names compare equal")
	}
	if number(1).Eq(number(2)) {
		t.Errorf("numbers with different values compare equal")
	}
}
