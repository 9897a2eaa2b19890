package pos

import (
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidFormulaResult is returned when a step of the expression has no finite result.
	ErrInvalidFormulaResult = errors.New("formula produced an invalid result")
	// ErrMalformedFormulaToken is only returned by a strict Evaluator.
	ErrMalformedFormulaToken = errors.New("formula contains a malformed token")
)

// PercentMode selects how an `N%` operand is combined with the running value.
type PercentMode int

const (
	// PercentLiteral treats N% as the plain number N/100: 100+5% = 100.05.
	PercentLiteral PercentMode = iota
	// PercentOfAccumulator treats N% as a share of the running value: 100+5% = 105.
	PercentOfAccumulator
)

func (m PercentMode) String() string {
	if m == PercentOfAccumulator {
		return "relative"
	}
	return "literal"
}

// ParsePercentMode accepts "literal" and "relative" (case-insensitive).
func ParsePercentMode(s string) (PercentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "literal", "offset":
		return PercentLiteral, nil
	case "relative", "accumulator", "base":
		return PercentOfAccumulator, nil
	}
	return PercentLiteral, errors.New("invalid percent mode")
}

var (
	whitespace  = regexp.MustCompile(`\s+`)
	formulaTerm = regexp.MustCompile(`([+\-xX*/])(\d+(?:\.\d+)?)(%?)`)

	oneHundred = decimal.NewFromInt(100)
)

// FormulaToken is one `(operator)(operand)` term of an expression.
type FormulaToken struct {
	Operator  byte
	Operand   decimal.Decimal
	IsPercent bool
}

// Evaluator applies a user-authored operator expression to a base value.
// The zero value evaluates leniently with literal percents.
type Evaluator struct {
	PercentMode PercentMode
	Strict      bool
}

// normalizeExpression strips whitespace and adds the implicit leading "+".
func normalizeExpression(expression string) string {
	cleaned := whitespace.ReplaceAllString(expression, "")
	if cleaned == "" {
		return ""
	}
	if !strings.ContainsRune("+-xX*/", rune(cleaned[0])) {
		cleaned = "+" + cleaned
	}
	return cleaned
}

// Tokenize returns the recognised terms and the text that matched no term.
func Tokenize(expression string) ([]FormulaToken, []string) {
	cleaned := normalizeExpression(expression)
	var tokens []FormulaToken
	var skipped []string

	last := 0
	for _, idx := range formulaTerm.FindAllStringSubmatchIndex(cleaned, -1) {
		if idx[0] > last {
			skipped = append(skipped, cleaned[last:idx[0]])
		}
		last = idx[1]

		operand, err := decimal.NewFromString(cleaned[idx[4]:idx[5]])
		if err != nil {
			skipped = append(skipped, cleaned[idx[0]:idx[1]])
			continue
		}
		op := cleaned[idx[2]]
		if op == 'X' || op == '*' {
			op = 'x'
		}
		tokens = append(tokens, FormulaToken{
			Operator:  op,
			Operand:   operand,
			IsPercent: idx[7] > idx[6],
		})
	}
	if last < len(cleaned) {
		skipped = append(skipped, cleaned[last:])
	}
	return tokens, skipped
}

// Validate fails with ErrMalformedFormulaToken when any text is left unconsumed.
func Validate(expression string) error {
	_, skipped := Tokenize(expression)
	if len(skipped) > 0 {
		return &FormulaError{Err: ErrMalformedFormulaToken, Token: strings.Join(skipped, " ")}
	}
	return nil
}

// Evaluate runs the expression strictly left to right starting from base.
func (e Evaluator) Evaluate(base decimal.Decimal, expression string) (decimal.Decimal, error) {
	tokens, skipped := Tokenize(expression)
	if e.Strict && len(skipped) > 0 {
		return decimal.Zero, &FormulaError{Err: ErrMalformedFormulaToken, Token: strings.Join(skipped, " ")}
	}

	acc := base
	for _, t := range tokens {
		next, err := e.apply(acc, t)
		if err != nil {
			return decimal.Zero, err
		}
		acc = next
	}
	return acc, nil
}

// EvaluateOrBase returns base and false when the expression cannot be evaluated.
func (e Evaluator) EvaluateOrBase(base decimal.Decimal, expression string) (decimal.Decimal, bool) {
	v, err := e.Evaluate(base, expression)
	if err != nil {
		return base, false
	}
	return v, true
}

func (e Evaluator) apply(acc decimal.Decimal, t FormulaToken) (decimal.Decimal, error) {
	operand := t.Operand
	if t.IsPercent {
		operand = operand.Div(oneHundred)
		if e.PercentMode == PercentOfAccumulator && (t.Operator == '+' || t.Operator == '-') {
			operand = acc.Mul(operand)
		}
	}

	switch t.Operator {
	case '+':
		return acc.Add(operand), nil
	case '-':
		return acc.Sub(operand), nil
	case 'x':
		return acc.Mul(operand), nil
	case '/':
		if operand.IsZero() {
			return decimal.Zero, &FormulaError{Err: ErrInvalidFormulaResult, Token: "/" + t.Operand.String()}
		}
		return acc.Div(operand), nil
	}
	return acc, nil
}

// FormulaError carries the offending token text.
type FormulaError struct {
	Err   error
	Token string
}

func (e *FormulaError) Error() string {
	if e.Token != "" {
		return e.Err.Error() + ": " + e.Token
	}
	return e.Err.Error()
}

func (e *FormulaError) Unwrap() error {
	return e.Err
}
