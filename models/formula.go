package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/pos"
	"github.com/huastex/huastex_backend/utils"
	"github.com/shopspring/decimal"
)

// Formula is a named operator expression applied to inventory costs.
type Formula struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:100;not null" json:"name"`
	Operators     string          `gorm:"size:255;not null" json:"operators"`
	InitialNumber decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"initialNumber"`
	FinalNumber   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"finalNumber"`
	PercentMode   *string         `gorm:"size:20" json:"percentMode"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewFormula struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Operators     string          `json:"operators" validate:"required,max=255"`
	InitialNumber decimal.Decimal `json:"initialNumber"`
	PercentMode   *string         `json:"percentMode" validate:"omitempty,oneof=literal relative"`
}

func (input *NewFormula) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	input.Operators = strings.TrimSpace(input.Operators)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if config.StrictFormulaValidation() {
		if err := pos.Validate(input.Operators); err != nil {
			return err
		}
	}
	if tokens, _ := pos.Tokenize(input.Operators); len(tokens) == 0 {
		return errors.New("formula has no operators")
	}
	return nil
}

// computeFinalNumber evaluates the example shown next to the formula.
func (f *Formula) computeFinalNumber() error {
	v, err := evaluatorFor(f).Evaluate(f.InitialNumber, f.Operators)
	if err != nil {
		return fmt.Errorf("formula %q: %w", f.Name, err)
	}
	f.FinalNumber = money(v)
	return nil
}

func CreateFormula(ctx context.Context, input *NewFormula) (*Formula, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	formula := Formula{
		Name:          input.Name,
		Operators:     input.Operators,
		InitialNumber: input.InitialNumber,
		PercentMode:   input.PercentMode,
	}
	if err := formula.computeFinalNumber(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&formula).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, "", formula.CreatedAt, formula.ID, ReferenceTypeFormula, formula, OutboxActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &formula, nil
}

// UpdateFormula stores the new expression and re-derives, in the same transaction,
// every automatic-mode item priced with it.
func UpdateFormula(ctx context.Context, id int, input *NewFormula) (*Formula, int, error) {
	if err := input.validate(); err != nil {
		return nil, 0, err
	}
	existing, err := GetFormula(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	formula := *existing
	formula.Name = input.Name
	formula.Operators = input.Operators
	formula.InitialNumber = input.InitialNumber
	formula.PercentMode = input.PercentMode
	if err := formula.computeFinalNumber(); err != nil {
		return nil, 0, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Save(&formula).Error; err != nil {
		tx.Rollback()
		return nil, 0, err
	}
	changed, err := repriceItemsTx(ctx, tx, &formula.ID, PriceSourceDerived)
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}
	if err := PublishSalesEvent(ctx, tx, "", time.Now().UTC(), formula.ID, ReferenceTypeFormula, formula, OutboxActionUpdate); err != nil {
		tx.Rollback()
		return nil, 0, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, 0, err
	}
	return &formula, changed, nil
}

// DeleteFormula detaches the items that used it; their prices are kept.
func DeleteFormula(ctx context.Context, id int) (*Formula, error) {
	formula, err := GetFormula(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&InventoryItem{}).Where("formula_id = ?", id).Update("formula_id", nil).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(formula).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, "", time.Now().UTC(), formula.ID, ReferenceTypeFormula, nil, OutboxActionDelete); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return formula, nil
}

func GetFormula(ctx context.Context, id int) (*Formula, error) {
	formula, err := utils.FetchSingleModel[Formula](ctx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, ErrFormulaNotFound
	}
	return formula, err
}

func ListFormulas(ctx context.Context) ([]*Formula, error) {
	var results []*Formula
	if err := config.GetDB().WithContext(ctx).Order("name ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetFormulasByIds returns the formulas found, in no particular order.
func GetFormulasByIds(ctx context.Context, ids []int) ([]*Formula, error) {
	var results []*Formula
	if len(ids) == 0 {
		return results, nil
	}
	err := config.GetDB().WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&results).Error
	return results, err
}
