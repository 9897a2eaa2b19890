package pos

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEvaluate_LeftToRight(t *testing.T) {
	cases := []struct {
		name     string
		base     string
		expr     string
		mode     PercentMode
		expected string
	}{
		{"literal percent", "100", "+10+5%", PercentLiteral, "110.05"},
		{"relative percent", "100", "+10+5%", PercentOfAccumulator, "115.5"},
		{"no precedence", "0", "10 + 5 x 2", PercentLiteral, "30"},
		{"implicit plus", "100", "10", PercentLiteral, "110"},
		{"upper X multiplies", "100", "X2", PercentLiteral, "200"},
		{"star multiplies", "100", "*1.5", PercentLiteral, "150"},
		{"divide", "90", "/4", PercentLiteral, "22.5"},
		{"empty expression", "173", "   ", PercentLiteral, "173"},
		{"literal minus percent", "200", "-10%", PercentLiteral, "199.9"},
		{"relative minus percent", "200", "-10%", PercentOfAccumulator, "180"},
		{"multiply percent", "200", "x50%", PercentLiteral, "100"},
		{"relative multiply percent", "200", "x50%", PercentOfAccumulator, "100"},
		{"relative divide percent", "100", "/50%", PercentOfAccumulator, "200"},
		{"skips unknown text", "100", "+10abc+5", PercentLiteral, "115"},
		{"ignores trailing text", "100", "+10 pesos", PercentLiteral, "110"},
		{"skips dangling operator", "100", "+-5", PercentLiteral, "95"},
	}
	for _, tc := range cases {
		e := Evaluator{PercentMode: tc.mode}
		got, err := e.Evaluate(dec(tc.base), tc.expr)
		if err != nil {
			t.Fatalf("%s: Evaluate(%s, %q) error: %v", tc.name, tc.base, tc.expr, err)
		}
		if !got.Equal(dec(tc.expected)) {
			t.Fatalf("%s: Evaluate(%s, %q) expected %s, got %s", tc.name, tc.base, tc.expr, tc.expected, got)
		}
	}
}

func TestEvaluate_DivisionByZero(t *testing.T) {
	for _, expr := range []string{"/0", "+10/0", "/0%", "/0.000"} {
		_, err := Evaluator{}.Evaluate(dec("100"), expr)
		if !errors.Is(err, ErrInvalidFormulaResult) {
			t.Fatalf("Evaluate(100, %q) expected ErrInvalidFormulaResult, got %v", expr, err)
		}
		v, ok := Evaluator{}.EvaluateOrBase(dec("100"), expr)
		if ok || !v.Equal(dec("100")) {
			t.Fatalf("EvaluateOrBase(100, %q) expected fallback to base, got %s ok=%v", expr, v, ok)
		}
	}
}

func TestEvaluate_StrictRejectsMalformed(t *testing.T) {
	strict := Evaluator{Strict: true}
	if _, err := strict.Evaluate(dec("100"), "+10abc"); !errors.Is(err, ErrMalformedFormulaToken) {
		t.Fatalf("expected ErrMalformedFormulaToken, got %v", err)
	}
	var fe *FormulaError
	if _, err := strict.Evaluate(dec("100"), "+10abc"); !errors.As(err, &fe) || fe.Token != "abc" {
		t.Fatalf("expected token abc in error, got %v", err)
	}
	got, err := strict.Evaluate(dec("100"), "+ 10 x 2")
	if err != nil || !got.Equal(dec("220")) {
		t.Fatalf("strict evaluation of a clean expression failed: %s %v", got, err)
	}
}

func TestTokenize(t *testing.T) {
	tokens, skipped := Tokenize("10 x 2% / 4 ??")
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %d", len(tokens))
	}
	if tokens[0].Operator != '+' || !tokens[0].Operand.Equal(dec("10")) {
		t.Fatalf("unexpected first token %+v", tokens[0])
	}
	if tokens[1].Operator != 'x' || !tokens[1].IsPercent {
		t.Fatalf("unexpected second token %+v", tokens[1])
	}
	if len(skipped) != 1 || skipped[0] != "??" {
		t.Fatalf("expected skipped [??], got %v", skipped)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("+10 +5%"); err != nil {
		t.Fatalf("Validate clean expression: %v", err)
	}
	if err := Validate("+10 + abc"); !errors.Is(err, ErrMalformedFormulaToken) {
		t.Fatalf("Validate expected ErrMalformedFormulaToken, got %v", err)
	}
}

func TestParsePercentMode(t *testing.T) {
	cases := map[string]PercentMode{
		"":         PercentLiteral,
		"literal":  PercentLiteral,
		"Relative": PercentOfAccumulator,
		"base":     PercentOfAccumulator,
	}
	for in, expected := range cases {
		got, err := ParsePercentMode(in)
		if err != nil || got != expected {
			t.Fatalf("ParsePercentMode(%q) expected %v, got %v (%v)", in, expected, got, err)
		}
	}
	if _, err := ParsePercentMode("sideways"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func FuzzEvaluate(f *testing.F) {
	for _, seed := range []string{"+10+5%", "10 + 5 x 2", "/0", "x1.032", "-3%/2", "abc"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, expr string) {
		base := dec("173")
		for _, e := range []Evaluator{{}, {PercentMode: PercentOfAccumulator}} {
			_, err := e.Evaluate(base, expr)
			if err != nil && !errors.Is(err, ErrInvalidFormulaResult) {
				t.Fatalf("lenient Evaluate(%q) returned %v", expr, err)
			}
			v, ok := e.EvaluateOrBase(base, expr)
			if !ok && !v.Equal(base) {
				t.Fatalf("EvaluateOrBase(%q) fallback %s is not the base", expr, v)
			}
		}
	})
}
