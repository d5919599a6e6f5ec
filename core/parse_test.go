package core

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func parseExpr(t *testing.T, source string) Expr {
	t.Helper()

	parser := NewParser(NewTokenizer(source).Tokenize())
	expr, err := parser.ParseExpr()
	if err != nil {
		t.Fatalf("ParseExpr(%q): %v", source, err)
	}
	return expr
}

func v(name string) Expr   { return VariableExpr{Name: name} }
func n(value float64) Expr { return NumberExpr{Value: value} }

func bin(lhs Expr, op BinaryOperator, rhs Expr) Expr {
	return BinaryExpr{LHS: lhs, Op: op, RHS: rhs}
}

func TestParseExpr(t *testing.T) {
	tests := []struct {
		source string
		want   Expr
	}{
		{"42", n(42)},
		{"x", v("x")},
		{"a-b-c", bin(v("a"), Minus, bin(v("b"), Minus, v("c")))},
		{"a*b+c", bin(v("a"), Times, bin(v("b"), Plus, v("c")))},
		{"a+b*c", bin(v("a"), Plus, bin(v("b"), Times, v("c")))},
		{"(a-b)-c", bin(bin(v("a"), Minus, v("b")), Minus, v("c"))},
		{"x = 1", bin(v("x"), Equals, n(1))},
		{"a % 2", bin(v("a"), Mod, n(2))},
		{"f()", CallExpr{Name: "f", Args: []Expr{}}},
		{"f(a, b)", CallExpr{Name: "f", Args: []Expr{v("a"), v("b")}}},
		{"f(a b)", CallExpr{Name: "f", Args: []Expr{v("a"), v("b")}}},
		{"f(a+1, g(b))", CallExpr{Name: "f", Args: []Expr{
			bin(v("a"), Plus, n(1)),
			CallExpr{Name: "g", Args: []Expr{v("b")}},
		}}},
		{"if x then 1 else 2", IfElseExpr{Cond: v("x"), Then: n(1), Else: n(2)}},
		{"if x then 1 else 2 + 3", IfElseExpr{Cond: v("x"), Then: n(1), Else: bin(n(2), Plus, n(3))}},
		{"(if x then 1 else 2) + 3", bin(IfElseExpr{Cond: v("x"), Then: n(1), Else: n(2)}, Plus, n(3))},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			got := parseExpr(t, tt.source)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseExpr(%q) = %s, want %s", tt.source, got, tt.want)
			}
		})
	}
}

func TestParsePrototypeLenientCommas(t *testing.T) {
	tests := []struct {
		source string
		want   Prototype
	}{
		{"f()", Prototype{Name: "f", Params: []string{}}},
		{"f(a)", Prototype{Name: "f", Params: []string{"a"}}},
		{"f(a, b)", Prototype{Name: "f", Params: []string{"a", "b"}}},
		{"f(a b)", Prototype{Name: "f", Params: []string{"a", "b"}}},
		{"f(a, b c)", Prototype{Name: "f", Params: []string{"a", "b", "c"}}},
		{"f(a, a)", Prototype{Name: "f", Params: []string{"a", "a"}}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			parser := NewParser(NewTokenizer(tt.source).Tokenize())
			got, err := parser.ParsePrototype()
			if err != nil {
				t.Fatalf("ParsePrototype(%q): %v", tt.source, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsePrototype(%q) = %s, want %s", tt.source, got, tt.want)
			}
		})
	}
}

func TestParseTopLevel(t *testing.T) {
	source := `
extern sin(x);
def double(x) x * 2;
extern cos(x);
def sum(a b) a + b;
`
	parser := NewParser(NewTokenizer(source).Tokenize())
	topLevel, err := parser.ParseTopLevel()
	if err != nil {
		t.Fatalf("ParseTopLevel: %v", err)
	}

	externs := []Prototype{
		{Name: "sin", Params: []string{"x"}},
		{Name: "cos", Params: []string{"x"}},
	}
	if !reflect.DeepEqual(topLevel.Externs(), externs) {
		t.Errorf("externs = %v, want %v", topLevel.Externs(), externs)
	}

	definitions := []Definition{
		{Prototype: Prototype{Name: "double", Params: []string{"x"}}, Body: bin(v("x"), Times, n(2))},
		{Prototype: Prototype{Name: "sum", Params: []string{"a", "b"}}, Body: bin(v("a"), Plus, v("b"))},
	}
	if !reflect.DeepEqual(topLevel.Definitions(), definitions) {
		t.Errorf("definitions = %v, want %v", topLevel.Definitions(), definitions)
	}
}

func TestLineParserTerminator(t *testing.T) {
	tests := []struct {
		source string
		line   bool
		want   error
	}{
		{"def f(x) x", true, nil},
		{"def f(x) x;", true, nil},
		{"def f(x) x", false, ParseError{Kind: UnexpectedEOF}},
		{"def f(x)", true, ParseError{Kind: UnexpectedEOF}},
		{"def f(x) x 1", true, ParseError{Kind: UnexpectedToken, Token: number(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			tokens := NewTokenizer(tt.source).Tokenize()
			parser := NewParser(tokens)
			if tt.line {
				parser = NewLineParser(tokens)
			}

			_, err := parser.ParseDefinition()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("ParseDefinition(%q): %v", tt.source, err)
				}
				if err := parser.Finish(); err != nil {
					t.Errorf("Finish: %v", err)
				}
				return
			}

			want := tt.want.(ParseError)
			var parseErr ParseError
			if !errors.As(err, &parseErr) || parseErr.Kind != want.Kind || !parseErr.Token.Eq(want.Token) {
				t.Errorf("ParseDefinition(%q) = %v, want %v", tt.source, err, want)
			}
		})
	}
}

func TestParseTopLevelRejectsExpressions(t *testing.T) {
	parser := NewParser(NewTokenizer("def f(x) x; 1 + 2;").Tokenize())
	_, err := parser.ParseTopLevel()

	var parseErr ParseError
	if !errors.As(err, &parseErr) || parseErr.Kind != UnexpectedToken {
		t.Fatalf("expected UnexpectedToken, got %v", err)
	}
	if !parseErr.Token.Eq(number(1)) {
		t.Errorf("error token = %s, want number(1)", parseErr.Token)
	}
}

func TestParseFile(t *testing.T) {
	topLevel, err := Parse("def f(x) x + 1; f(2); extern g(); 3;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Expr{CallExpr{Name: "f", Args: []Expr{n(2)}}, n(3)}
	if !reflect.DeepEqual(topLevel.Expressions(), want) {
		t.Errorf("expressions = %v, want %v", topLevel.Expressions(), want)
	}
	if len(topLevel.Externs()) != 1 || len(topLevel.Definitions()) != 1 {
		t.Errorf("expected one extern and one definition, got %d and %d",
			len(topLevel.Externs()), len(topLevel.Definitions()))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source string
		kind   ParseErrorKind
		token  Token
	}{
		{"def", UnexpectedEOF, Token{}},
		{"def f(x)", UnexpectedEOF, Token{}},
		{"def f(x) x", UnexpectedEOF, Token{}},
		{"def 1(x) x;", UnexpectedToken, number(1)},
		{"def f x;", UnexpectedToken, ident("x")},
		{"extern f(x)", UnexpectedEOF, Token{}},
		{"extern f(x) x;", UnexpectedToken, ident("x")},
		{"f(1, 2;", UnexpectedToken, token(SEMICOLON)},
		{"(1 + 2;", UnexpectedToken, token(SEMICOLON)},
		{"if x then 1;", UnexpectedToken, token(SEMICOLON)},
		{"if x 1 else 2;", UnexpectedToken, number(1)},
		{"1 +;", UnexpectedToken, token(SEMICOLON)},
		{"1 2;", UnexpectedToken, number(2)},
		{"then;", UnexpectedToken, token(THEN)},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			_, err := Parse(tt.source)

			var parseErr ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("Parse(%q) = %v, want a ParseError", tt.source, err)
			}
			if parseErr.Kind != tt.kind {
				t.Errorf("Parse(%q) error kind = %d, want %d (%v)", tt.source, parseErr.Kind, tt.kind, err)
			}
			if tt.kind == UnexpectedToken && !parseErr.Token.Eq(tt.token) {
				t.Errorf("Parse(%q) error token = %s, want %s", tt.source, parseErr.Token, tt.token)
			}
		})
	}
}

func TestParseErrorWithContext(t *testing.T) {
	source := "def f(x)\n  x 2;"
	_, err := Parse(source)

	var parseErr ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}

	got := parseErr.ErrorWithContext(source)
	want := "parse error at [2:5]: unexpected token number(2)\n    x 2;\n      ^"
	if got != want {
		t.Errorf("ErrorWithContext =\n%s\nwant\n%s", got, want)
	}

	eof := ParseError{Kind: UnexpectedEOF}
	if got := eof.ErrorWithContext(source); !strings.Contains(got, "unexpected end of input") {
		t.Errorf("EOF ErrorWithContext = %q", got)
	}
}

// Printing an AST and parsing the text again gives back the same tree.
func TestPrintRoundTrip(t *testing.T) {
	sources := []string{
		"a - b - c",
		"(a - b) - c",
		"((a * b) - c) = d",
		"f(1, g(x y), 2.5 % 3)",
		"if x = 0 then 1 else x * fact(x - 1)",
		"(if a then b else c) + (if d then e else f)",
		"if if a then b else c then d else e",
		"0.001 + 1000000",
	}

	for _, source := range sources {
		t.Run(source, func(t *testing.T) {
			first := parseExpr(t, source)
			printed := first.String()
			second := parseExpr(t, printed)
			if !reflect.DeepEqual(first, second) {
				t.Errorf("round trip through %q changed the tree: %s != %s", printed, first, second)
			}
		})
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	source := "extern sin(x);\ndef f(a, b) a * sin(b);\nf(1, 2);\n"
	topLevel, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	printed := topLevel.String()
	again, err := Parse(printed)
	if err != nil {
		t.Fatalf("Parse(%q): %v", printed, err)
	}

	if !reflect.DeepEqual(topLevel.Definitions(), again.Definitions()) {
		t.Errorf("definitions changed: %v != %v", topLevel.Definitions(), again.Definitions())
	}
	if !reflect.DeepEqual(topLevel.Expressions(), again.Expressions()) {
		t.Errorf("expressions changed: %v != %v", topLevel.Expressions(), again.Expressions())
	}
}
