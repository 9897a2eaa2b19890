package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/huastex/huastex_backend/config"
	"github.com/huastex/huastex_backend/pos"
	"github.com/huastex/huastex_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailyAccounting is the end-of-day drawer count of one branch.
type DailyAccounting struct {
	ID             int              `gorm:"primary_key" json:"id"`
	Date           time.Time        `gorm:"not null;index:uniq_daily_accounting,unique" json:"date"`
	Location       string           `gorm:"size:50;not null;index:uniq_daily_accounting,unique" json:"location"`
	CountedAmount  *decimal.Decimal `gorm:"type:decimal(20,4)" json:"counted_amount"`
	CashInRegister *decimal.Decimal `gorm:"type:decimal(20,4)" json:"cash_in_register"`
	CashierName    string           `gorm:"size:100" json:"cashier_name"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewDailyAccounting takes amounts as typed text; empty means not counted yet.
type NewDailyAccounting struct {
	Location       string `json:"location" validate:"required"`
	CountedAmount  string `json:"counted_amount"`
	CashInRegister string `json:"cash_in_register"`
	CashierName    string `json:"cashier_name" validate:"max=100"`
}

func optionalAmount(field string, raw string) (*decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := pos.ParseAmount(raw)
	if err != nil {
		return nil, errors.New("invalid " + field)
	}
	d = money(d)
	return &d, nil
}

func UpsertDailyAccounting(ctx context.Context, date time.Time, input *NewDailyAccounting) (*DailyAccounting, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	branch, err := pos.ParseBranch(input.Location)
	if err != nil {
		return nil, err
	}
	counted, err := optionalAmount("counted_amount", input.CountedAmount)
	if err != nil {
		return nil, err
	}
	inRegister, err := optionalAmount("cash_in_register", input.CashInRegister)
	if err != nil {
		return nil, err
	}
	day := utils.DateOnly(date.UTC())

	db := config.GetDB()
	tx := db.Begin()
	var row DailyAccounting
	err = tx.WithContext(ctx).Where("date = ? AND location = ?", day, string(branch)).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, err
	}
	action := OutboxActionUpdate
	if row.ID == 0 {
		action = OutboxActionCreate
		row.Date = day
		row.Location = string(branch)
	}
	row.CountedAmount = counted
	row.CashInRegister = inRegister
	row.CashierName = strings.TrimSpace(input.CashierName)

	if err := tx.WithContext(ctx).Save(&row).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, row.Location, row.Date, row.ID, ReferenceTypeDailyAccounting, row, action); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateDailyReport(row.Location, row.Date)
	return &row, nil
}

// GetDailyAccounting returns nil without error when the day was not counted.
func GetDailyAccounting(ctx context.Context, date time.Time, location string) (*DailyAccounting, error) {
	branch, err := pos.ParseBranch(location)
	if err != nil {
		return nil, err
	}
	var row DailyAccounting
	err = config.GetDB().WithContext(ctx).
		Where("date = ? AND location = ?", utils.DateOnly(date.UTC()), string(branch)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
