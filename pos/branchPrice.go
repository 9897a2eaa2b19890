package pos

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

type Branch string

const (
	BranchCerroAzul   Branch = "cerroazul"
	BranchAquismon    Branch = "aquismon"
	BranchTepetzintla Branch = "tepetzintla"
	BranchTlacolula   Branch = "tlacolula"
)

// Branches lists every store in display order; Cerro Azul is the reference branch.
var Branches = []Branch{BranchCerroAzul, BranchAquismon, BranchTepetzintla, BranchTlacolula}

var ErrUnknownBranch = errors.New("unknown branch")

func (b Branch) IsValid() bool {
	switch b {
	case BranchCerroAzul, BranchAquismon, BranchTepetzintla, BranchTlacolula:
		return true
	}
	return false
}

var branchSeparators = strings.NewReplacer(" ", "", "_", "", "-", "")

// ParseBranch accepts labels such as "Cerro Azul", "cerro_azul" or "AQUISMON".
func ParseBranch(s string) (Branch, error) {
	b := Branch(strings.ToLower(branchSeparators.Replace(strings.TrimSpace(s))))
	if !b.IsValid() {
		return "", ErrUnknownBranch
	}
	return b, nil
}

// BranchPrices is the sell price of one branch under each payment modality.
type BranchPrices struct {
	Cash   decimal.Decimal `json:"cash"`
	MSI    decimal.Decimal `json:"msi"`
	Credit decimal.Decimal `json:"credit"`
}

type PriceTable map[Branch]BranchPrices

// UnitPrice picks the price a sale line uses. Layaway and card sales are sold at cash price.
func (t PriceTable) UnitPrice(branch Branch, modality Modality) decimal.Decimal {
	prices, ok := t[branch]
	if !ok {
		return decimal.Zero
	}
	switch modality {
	case ModalityMSI:
		return prices.MSI
	case ModalityCredit:
		return prices.Credit
	default:
		return prices.Cash
	}
}

// Equal reports whether both tables hold the same 12 figures.
func (t PriceTable) Equal(other PriceTable) bool {
	if len(t) != len(other) {
		return false
	}
	for branch, p := range t {
		o, ok := other[branch]
		if !ok || !p.Cash.Equal(o.Cash) || !p.MSI.Equal(o.MSI) || !p.Credit.Equal(o.Credit) {
			return false
		}
	}
	return true
}

var ten = decimal.NewFromInt(10)

// RoundUpToTen returns ceil(x/10)*10.
func RoundUpToTen(x decimal.Decimal) decimal.Decimal {
	return x.Div(ten).Ceil().Mul(ten)
}

// Deriver expands one cost into the full per-branch price table.
type Deriver struct {
	Evaluator    Evaluator
	Premiums     map[Branch]decimal.Decimal
	MSIFactor    decimal.Decimal
	CreditFactor decimal.Decimal
}

func NewDeriver(evaluator Evaluator) Deriver {
	return Deriver{
		Evaluator: evaluator,
		Premiums: map[Branch]decimal.Decimal{
			BranchCerroAzul:   decimal.NewFromInt(1),
			BranchAquismon:    decimal.RequireFromString("1.032"),
			BranchTepetzintla: decimal.RequireFromString("1.03"),
			BranchTlacolula:   decimal.RequireFromString("1.045"),
		},
		MSIFactor:    decimal.RequireFromString("1.1"),
		CreditFactor: decimal.RequireFromString("1.52"),
	}
}

// AdjustedPrice is the formula-adjusted base, rounded up to the nearest ten.
// A formula that cannot be evaluated falls back to the base value.
func (d Deriver) AdjustedPrice(base decimal.Decimal, expression string) decimal.Decimal {
	adjusted := base
	if strings.TrimSpace(expression) != "" {
		adjusted, _ = d.Evaluator.EvaluateOrBase(base, expression)
	}
	return RoundUpToTen(adjusted)
}

// Derive recomputes the whole table from base and expression.
// It returns false when base is zero so the caller keeps its prior prices.
func (d Deriver) Derive(base decimal.Decimal, expression string) (PriceTable, bool) {
	if base.IsZero() {
		return PriceTable{}, false
	}

	adjusted := d.AdjustedPrice(base, expression)
	table := make(PriceTable, len(Branches))
	for _, branch := range Branches {
		premium, ok := d.Premiums[branch]
		if !ok {
			premium = decimal.NewFromInt(1)
		}
		cash := RoundUpToTen(adjusted.Mul(premium))
		table[branch] = BranchPrices{
			Cash:   cash,
			MSI:    RoundUpToTen(cash.Mul(d.MSIFactor)),
			Credit: RoundUpToTen(cash.Mul(d.CreditFactor)),
		}
	}
	return table, true
}
