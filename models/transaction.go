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

var ErrTransactionManagedBySale = errors.New("transaction is managed by its sale or payment")

// Transaction is a ledger row of the cash report.
type Transaction struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	TransactionType pos.TransactionType `gorm:"size:10;not null" json:"transaction_type"`
	Name            string              `gorm:"size:255" json:"name"`
	Product         string              `gorm:"type:text" json:"product"`
	Value           decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"value"`
	Saldo           decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"saldo"`
	PorPagar        decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"por_pagar"`
	TransactionDate time.Time           `gorm:"index;not null" json:"transaction_date"`
	PaymentType     pos.PaymentMethod   `gorm:"size:30" json:"payment_type"`
	Location        string              `gorm:"size:50;not null;index" json:"location"`
	SaleId          *int                `gorm:"index" json:"sale_id"`
	PaymentId       *int                `gorm:"uniqueIndex" json:"payment_id"`
	Notes           string              `gorm:"type:text" json:"notes"`
	CashierName     string              `gorm:"size:100" json:"cashier_name"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTransaction struct {
	TransactionType string          `json:"transaction_type" validate:"required"`
	Name            string          `json:"name" validate:"required,max=255"`
	Product         string          `json:"product"`
	Value           decimal.Decimal `json:"value"`
	TransactionDate string          `json:"transaction_date" validate:"required"`
	PaymentType     string          `json:"payment_type"`
	Location        string          `json:"location" validate:"required"`
	Notes           string          `json:"notes"`
}

func (t Transaction) LedgerEntry() pos.LedgerEntry {
	return pos.LedgerEntry{
		ID:              t.ID,
		TransactionType: t.TransactionType,
		Name:            t.Name,
		Value:           t.Value,
		TransactionDate: t.TransactionDate,
		PaymentType:     t.PaymentType,
		Location:        t.Location,
	}
}

// managed rows are written by sales and payments only.
func (t Transaction) managed() bool {
	return t.SaleId != nil
}

func (t *Transaction) applyRecord(rec pos.IncomeRecord) {
	t.TransactionType = rec.TransactionType
	t.Name = rec.Name
	t.Product = rec.Product
	t.Value = money(rec.Value)
	t.Saldo = money(rec.Saldo)
	t.PorPagar = money(rec.PorPagar)
	t.TransactionDate = rec.TransactionDate
	t.PaymentType = rec.PaymentType
	t.Location = rec.Location
	if rec.SaleId > 0 {
		saleId := rec.SaleId
		t.SaleId = &saleId
	}
}

func (input *NewTransaction) validate() (pos.IncomeRecord, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return pos.IncomeRecord{}, err
	}
	txType := pos.TransactionType(strings.ToLower(strings.TrimSpace(input.TransactionType)))
	if !txType.IsValid() {
		return pos.IncomeRecord{}, errors.New("invalid transaction_type")
	}
	method := pos.PaymentMethod(strings.ToLower(strings.TrimSpace(input.PaymentType)))
	if method == "" && txType == pos.TransactionTypeIncome {
		method = pos.PaymentMethodDeposit
	}
	if method != "" && !method.IsValid() {
		return pos.IncomeRecord{}, errors.New("invalid payment_type")
	}
	if !input.Value.IsPositive() {
		return pos.IncomeRecord{}, errors.New("value must be greater than 0")
	}
	branch, err := pos.ParseBranch(input.Location)
	if err != nil {
		return pos.IncomeRecord{}, err
	}
	date, err := utils.ParseDate(input.TransactionDate, time.UTC)
	if err != nil {
		return pos.IncomeRecord{}, err
	}
	return pos.IncomeRecord{
		TransactionType: txType,
		Name:            input.Name,
		Product:         strings.TrimSpace(input.Product),
		Value:           input.Value,
		TransactionDate: date,
		PaymentType:     method,
		Location:        string(branch),
	}, nil
}

func cashierFromContext(ctx context.Context) string {
	name, _ := utils.GetCashierNameFromContext(ctx)
	return name
}

// upsertSaleTransaction writes the ledger record of a sale, keyed by sale id.
// Payment rows of the same sale are left alone.
func upsertSaleTransaction(ctx context.Context, tx *gorm.DB, sale Sale) error {
	rec := pos.BuildIncomeRecord(sale.Snapshot())

	var existing Transaction
	err := tx.WithContext(ctx).Where("sale_id = ? AND payment_id IS NULL", sale.ID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	existing.applyRecord(rec)
	if cashier := cashierFromContext(ctx); cashier != "" {
		existing.CashierName = cashier
	}
	if existing.ID == 0 {
		return tx.WithContext(ctx).Create(&existing).Error
	}
	return tx.WithContext(ctx).Save(&existing).Error
}

func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {
	rec, err := input.validate()
	if err != nil {
		return nil, err
	}
	var t Transaction
	t.applyRecord(rec)
	t.Notes = input.Notes
	t.CashierName = cashierFromContext(ctx)

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&t).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, t.Location, t.TransactionDate, t.ID, ReferenceTypeTransaction, t, OutboxActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateDailyReport(t.Location, t.TransactionDate)
	return &t, nil
}

func UpdateTransaction(ctx context.Context, id int, input *NewTransaction) (*Transaction, error) {
	rec, err := input.validate()
	if err != nil {
		return nil, err
	}
	existing, err := GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.managed() {
		return nil, ErrTransactionManagedBySale
	}
	oldLocation, oldDate := existing.Location, existing.TransactionDate

	t := *existing
	t.applyRecord(rec)
	t.Notes = input.Notes

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Save(&t).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, t.Location, t.TransactionDate, t.ID, ReferenceTypeTransaction, t, OutboxActionUpdate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateDailyReport(oldLocation, oldDate)
	InvalidateDailyReport(t.Location, t.TransactionDate)
	return &t, nil
}

func DeleteTransaction(ctx context.Context, id int) (*Transaction, error) {
	t, err := GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.managed() {
		return nil, ErrTransactionManagedBySale
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&Transaction{}, id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, t.Location, t.TransactionDate, t.ID, ReferenceTypeTransaction, nil, OutboxActionDelete); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateDailyReport(t.Location, t.TransactionDate)
	return t, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	t, err := utils.FetchSingleModel[Transaction](ctx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	return t, err
}

// GetTransactionBySaleId returns the sale's own ledger row, not its abonos.
func GetTransactionBySaleId(ctx context.Context, saleId int) (*Transaction, error) {
	var t Transaction
	err := config.GetDB().WithContext(ctx).Where("sale_id = ? AND payment_id IS NULL", saleId).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTransactions filters by branch ("" or "all" for every branch) and,
// when date is not zero, by that calendar day.
func ListTransactions(ctx context.Context, location string, date time.Time) ([]*Transaction, error) {
	var results []*Transaction
	dbCtx := config.GetDB().WithContext(ctx)
	if location = strings.TrimSpace(location); location != "" && !strings.EqualFold(location, "all") {
		branch, err := pos.ParseBranch(location)
		if err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("location = ?", string(branch))
	}
	if !date.IsZero() {
		day := utils.DateOnly(date)
		dbCtx = dbCtx.Where("transaction_date >= ? AND transaction_date < ?", day, day.AddDate(0, 0, 1))
	}
	if err := dbCtx.Order("transaction_date ASC, id ASC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
