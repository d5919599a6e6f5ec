package core

import (
	"errors"
	"testing"

	"github.com/ajkachnic/kaleidoscope/backend/ssa"
)

func newTestSession(t *testing.T) (*Session, *ssa.Engine) {
	t.Helper()

	session, err := NewSession(ssa.Target{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return session, session.Engine().(*ssa.Engine)
}

func eval(t *testing.T, session *Session, line string) Result {
	t.Helper()

	result, err := session.Eval(line)
	if err != nil {
		t.Fatalf("Eval(%q): %v", line, err)
	}
	return result
}

func TestSessionConditionals(t *testing.T) {
	session, _ := newTestSession(t)

	tests := []struct {
		line string
		want float64
	}{
		{"if 1 then 10 else 20", 10},
		{"if 0 then 10 else 20;", 20},
		{"if 2 - 2 then 1 else 0", 0},
	}

	for _, tt := range tests {
		result := eval(t, session, tt.line)
		if result.Kind != ExpressionResult {
			t.Fatalf("Eval(%q) kind = %d, want ExpressionResult", tt.line, result.Kind)
		}
		if result.Value != tt.want {
			t.Errorf("Eval(%q) = %v, want %v", tt.line, result.Value, tt.want)
		}
	}
}

func TestSessionEmptyLine(t *testing.T) {
	session, _ := newTestSession(t)

	for _, line := range []string{"", "   ", "\t"} {
		result := eval(t, session, line)
		if result.Kind != EmptyResult {
			t.Errorf("Eval(%q) kind = %d, want EmptyResult", line, result.Kind)
		}
	}
	if session.Count() != 0 {
		t.Errorf("empty lines advanced the counter to %d", session.Count())
	}
}

func TestSessionDefinitionsPersist(t *testing.T) {
	session, _ := newTestSession(t)

	result := eval(t, session, "def square(x) x * x;")
	if result.Kind != DefinitionResult || result.Name != "square" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Function == nil || result.Function.IsDeclaration() {
		t.Fatal("definition result should carry the defined function")
	}

	result = eval(t, session, "def hyp(a b) square(a) + square(b)")
	if result.Kind != DefinitionResult {
		t.Fatalf("unexpected result %+v", result)
	}

	if got := eval(t, session, "hyp(3, 4)").Value; got != 25 {
		t.Errorf("hyp(3, 4) = %v, want 25", got)
	}
}

func TestSessionExtern(t *testing.T) {
	session, engine := newTestSession(t)
	engine.LoadFunc("triple", 1, func(args []float64) float64 { return args[0] * 3 })

	result := eval(t, session, "extern triple(x);")
	if result.Kind != ExternResult || result.Name != "triple" {
		t.Fatalf("unexpected result %+v", result)
	}
	if !result.Function.IsDeclaration() {
		t.Error("extern should only be declared")
	}

	if got := eval(t, session, "triple(5)").Value; got != 15 {
		t.Errorf("triple(5) = %v, want 15", got)
	}
}

func TestSessionRedefinition(t *testing.T) {
	session, _ := newTestSession(t)

	eval(t, session, "extern foo(x);")
	eval(t, session, "def foo(x) x + 1;")
	if got := eval(t, session, "foo(1)").Value; got != 2 {
		t.Errorf("foo(1) = %v, want 2", got)
	}

	eval(t, session, "def foo(x) x * 10;")
	if got := eval(t, session, "foo(2)").Value; got != 20 {
		t.Errorf("foo(2) after redefinition = %v, want 20", got)
	}
}

func TestSessionArityChange(t *testing.T) {
	session, _ := newTestSession(t)

	eval(t, session, "extern foo(x);")
	result := eval(t, session, "def foo(a b) a + b;")
	if result.Kind != DefinitionResult || len(result.Function.Params()) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := eval(t, session, "foo(1, 2)").Value; got != 3 {
		t.Errorf("foo(1, 2) = %v, want 3", got)
	}

	eval(t, session, "def twice(x) x * 2;")
	eval(t, session, "def quad(x) twice(twice(x));")
	eval(t, session, "def twice(x y) x * y * 2;")

	if got := eval(t, session, "twice(3, 4)").Value; got != 24 {
		t.Errorf("twice(3, 4) = %v, want 24", got)
	}
	if got := eval(t, session, "quad(1)").Value; got != 4 {
		t.Errorf("quad(1) = %v, want 4 from the one-parameter twice it was compiled against", got)
	}
	if _, err := session.Eval("twice(3)"); err == nil {
		t.Error("twice(3) accepted after twice took two parameters")
	}
}

func TestSessionUniqueNamesAndTransientModules(t *testing.T) {
	session, engine := newTestSession(t)

	first := eval(t, session, "1 + 2")
	second := eval(t, session, "3 + 4")

	if first.Name != "__repl_input_0__" || second.Name != "__repl_input_1__" {
		t.Errorf("names = %q, %q; want __repl_input_0__, __repl_input_1__", first.Name, second.Name)
	}
	if first.Value != 3 || second.Value != 7 {
		t.Errorf("values = %v, %v; want 3, 7", first.Value, second.Value)
	}

	modules := engine.Modules()
	if len(modules) != 1 || modules[0] != session.Module() {
		names := make([]string, len(modules))
		for i, m := range modules {
			names[i] = m.Name()
		}
		t.Errorf("engine holds modules %v, want only the session module", names)
	}
	if _, ok := engine.FindFunction(first.Name); ok {
		t.Errorf("%s is still reachable after evaluation", first.Name)
	}
}

func TestSessionRecoversFromErrors(t *testing.T) {
	session, engine := newTestSession(t)

	eval(t, session, "def f(x) x * 2;")

	tests := []struct {
		line string
		want error
	}{
		{"g()", IRError{Kind: UnknownFunction, Name: "g"}},
		{"f(1, 2)", IRError{Kind: ArityMismatch, Name: "f", Expected: 1, Got: 2}},
		{"def h(x) y;", IRError{Kind: UnknownVariable, Name: "y"}},
		{"def (x) x;", ParseError{Kind: UnexpectedToken, Token: token(LEFT_PAREN)}},
		{"1 2", ParseError{Kind: UnexpectedToken, Token: number(2)}},
		{"1; 2", ParseError{Kind: UnexpectedToken, Token: number(2)}},
		{"extern", ParseError{Kind: UnexpectedEOF}},
		{"def foo(x)", ParseError{Kind: UnexpectedEOF}},
		{"1 +", ParseError{Kind: UnexpectedEOF}},
		{"foo(1, 2", ParseError{Kind: UnexpectedEOF}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, err := session.Eval(tt.line)
			if err == nil {
				t.Fatalf("Eval(%q) succeeded, want %v", tt.line, tt.want)
			}

			switch want := tt.want.(type) {
			case IRError:
				assertIRError(t, err, want)
			case ParseError:
				var parseErr ParseError
				if !errors.As(err, &parseErr) || parseErr.Kind != want.Kind || !parseErr.Token.Eq(want.Token) {
					t.Errorf("Eval(%q) = %v, want %v", tt.line, err, want)
				}
			}
		})
	}

	if _, ok := session.TopLevel().Prototype("h"); ok {
		t.Error("failed definition h was registered")
	}
	if len(engine.Modules()) != 1 {
		t.Errorf("failed lines left %d modules loaded", len(engine.Modules()))
	}
	if session.Count() != 0 {
		t.Errorf("failed lines advanced the counter to %d", session.Count())
	}

	if got := eval(t, session, "f(21)").Value; got != 42 {
		t.Errorf("f(21) = %v after errors, want 42", got)
	}
	if got := eval(t, session, "f(21)").Name; got != "__repl_input_1__" {
		t.Errorf("second evaluation named %q, want __repl_input_1__", got)
	}
}

func TestSessionRuntimeErrorUnloadsModule(t *testing.T) {
	session, engine := newTestSession(t)

	eval(t, session, "extern nowhere(x);")
	_, err := session.Eval("nowhere(1)")

	var runtimeErr *ssa.RuntimeError
	if !errors.As(err, &runtimeErr) {
		t.Fatalf("expected a runtime error, got %v", err)
	}
	if len(engine.Modules()) != 1 {
		t.Errorf("transient module was not removed after a runtime error")
	}
}
