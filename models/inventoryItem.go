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
)

type InventoryItem struct {
	ID                      int             `gorm:"primary_key" json:"id"`
	Product                 string          `gorm:"size:255;not null;index" json:"product"`
	PriceCost               decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_cost"`
	Model                   string          `gorm:"size:255" json:"model"`
	SerialNumber            string          `gorm:"size:255;index" json:"serial_number"`
	CerroAzulPrice          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cerro_azul_price"`
	CerroAzulMsiPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cerro_azul_msiPrice"`
	CerroAzulCreditPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cerro_azul_creditPrice"`
	AquismonPrice           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"aquismon_price"`
	AquismonMsiPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"aquismon_msiPrice"`
	AquismonCreditPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"aquismon_creditPrice"`
	TepetzintlaPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tepetzintla_price"`
	TepetzintlaMsiPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tepetzintla_msiPrice"`
	TepetzintlaCreditPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tepetzintla_creditPrice"`
	TlacolulaPrice          decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tlacolula_price"`
	TlacolulaMsiPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tlacolula_msiPrice"`
	TlacolulaCreditPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tlacolula_creditPrice"`
	HeadquartersArrivalDate *time.Time      `json:"headquarters_arrival_date"`
	OriginalQuantity        int             `gorm:"default:0" json:"original_quantity"`
	AllBranchesQuantity     int             `gorm:"default:0" json:"all_branches_quantity"`
	InternalNumber          string          `gorm:"size:100" json:"internal_number"`
	Description             string          `gorm:"type:text" json:"description"`
	Category                string          `gorm:"size:100;index" json:"category"`
	Supplier                string          `gorm:"size:255" json:"supplier"`
	SupplierBill            string          `gorm:"size:100" json:"supplier_bill"`
	FinalCustomerBill       string          `gorm:"size:100" json:"final_customer_bill"`
	DevolutionBill          string          `gorm:"size:100" json:"devolution_bill"`
	BankDeposit             string          `gorm:"size:100" json:"bank_deposit"`
	Comments                string          `gorm:"type:text" json:"comments"`
	FormulaId               *int            `gorm:"index" json:"formula_id"`
	ManualPricing           bool            `gorm:"not null;default:false" json:"manual_pricing"`
	CreatedAt               time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt               time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// InventoryPrices carries the 12 branch prices as typed in manual mode.
type InventoryPrices struct {
	CerroAzulPrice         decimal.Decimal `json:"cerro_azul_price"`
	CerroAzulMsiPrice      decimal.Decimal `json:"cerro_azul_msiPrice"`
	CerroAzulCreditPrice   decimal.Decimal `json:"cerro_azul_creditPrice"`
	AquismonPrice          decimal.Decimal `json:"aquismon_price"`
	AquismonMsiPrice       decimal.Decimal `json:"aquismon_msiPrice"`
	AquismonCreditPrice    decimal.Decimal `json:"aquismon_creditPrice"`
	TepetzintlaPrice       decimal.Decimal `json:"tepetzintla_price"`
	TepetzintlaMsiPrice    decimal.Decimal `json:"tepetzintla_msiPrice"`
	TepetzintlaCreditPrice decimal.Decimal `json:"tepetzintla_creditPrice"`
	TlacolulaPrice         decimal.Decimal `json:"tlacolula_price"`
	TlacolulaMsiPrice      decimal.Decimal `json:"tlacolula_msiPrice"`
	TlacolulaCreditPrice   decimal.Decimal `json:"tlacolula_creditPrice"`
}

func (p InventoryPrices) PriceTable() pos.PriceTable {
	return pos.PriceTable{
		pos.BranchCerroAzul:   {Cash: p.CerroAzulPrice, MSI: p.CerroAzulMsiPrice, Credit: p.CerroAzulCreditPrice},
		pos.BranchAquismon:    {Cash: p.AquismonPrice, MSI: p.AquismonMsiPrice, Credit: p.AquismonCreditPrice},
		pos.BranchTepetzintla: {Cash: p.TepetzintlaPrice, MSI: p.TepetzintlaMsiPrice, Credit: p.TepetzintlaCreditPrice},
		pos.BranchTlacolula:   {Cash: p.TlacolulaPrice, MSI: p.TlacolulaMsiPrice, Credit: p.TlacolulaCreditPrice},
	}
}

type NewInventoryItem struct {
	InventoryPrices
	Product                 string          `json:"product" validate:"required,max=255"`
	PriceCost               decimal.Decimal `json:"price_cost"`
	Model                   string          `json:"model"`
	SerialNumber            string          `json:"serial_number"`
	HeadquartersArrivalDate string          `json:"headquarters_arrival_date"`
	OriginalQuantity        int             `json:"original_quantity" validate:"gte=0"`
	AllBranchesQuantity     int             `json:"all_branches_quantity" validate:"gte=0"`
	InternalNumber          string          `json:"internal_number"`
	Description             string          `json:"description"`
	Category                string          `json:"category"`
	Supplier                string          `json:"supplier"`
	SupplierBill            string          `json:"supplier_bill"`
	FinalCustomerBill       string          `json:"final_customer_bill"`
	DevolutionBill          string          `json:"devolution_bill"`
	BankDeposit             string          `json:"bank_deposit"`
	Comments                string          `json:"comments"`
	FormulaId               *int            `json:"formula_id"`
	ManualPricing           bool            `json:"manual_pricing"`
}

// PriceTable exposes the stored prices.
func (item InventoryItem) PriceTable() pos.PriceTable {
	return InventoryPrices{
		CerroAzulPrice:         item.CerroAzulPrice,
		CerroAzulMsiPrice:      item.CerroAzulMsiPrice,
		CerroAzulCreditPrice:   item.CerroAzulCreditPrice,
		AquismonPrice:          item.AquismonPrice,
		AquismonMsiPrice:       item.AquismonMsiPrice,
		AquismonCreditPrice:    item.AquismonCreditPrice,
		TepetzintlaPrice:       item.TepetzintlaPrice,
		TepetzintlaMsiPrice:    item.TepetzintlaMsiPrice,
		TepetzintlaCreditPrice: item.TepetzintlaCreditPrice,
		TlacolulaPrice:         item.TlacolulaPrice,
		TlacolulaMsiPrice:      item.TlacolulaMsiPrice,
		TlacolulaCreditPrice:   item.TlacolulaCreditPrice,
	}.PriceTable()
}

func (item *InventoryItem) SetPriceTable(t pos.PriceTable) {
	a, b, c, d := t[pos.BranchCerroAzul], t[pos.BranchAquismon], t[pos.BranchTepetzintla], t[pos.BranchTlacolula]
	item.CerroAzulPrice, item.CerroAzulMsiPrice, item.CerroAzulCreditPrice = money(a.Cash), money(a.MSI), money(a.Credit)
	item.AquismonPrice, item.AquismonMsiPrice, item.AquismonCreditPrice = money(b.Cash), money(b.MSI), money(b.Credit)
	item.TepetzintlaPrice, item.TepetzintlaMsiPrice, item.TepetzintlaCreditPrice = money(c.Cash), money(c.MSI), money(c.Credit)
	item.TlacolulaPrice, item.TlacolulaMsiPrice, item.TlacolulaCreditPrice = money(d.Cash), money(d.MSI), money(d.Credit)
}

func (input *NewInventoryItem) validate(ctx context.Context) error {
	input.Product = strings.TrimSpace(input.Product)
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if input.PriceCost.IsNegative() {
		return errors.New("price_cost cannot be negative")
	}
	if input.FormulaId != nil && *input.FormulaId > 0 {
		if err := utils.ValidateResourceId[Formula](ctx, *input.FormulaId); err != nil {
			return ErrFormulaNotFound
		}
	}
	return nil
}

func (input *NewInventoryItem) apply(item *InventoryItem) error {
	item.Product = input.Product
	item.PriceCost = money(input.PriceCost)
	item.Model = input.Model
	item.SerialNumber = strings.TrimSpace(input.SerialNumber)
	item.OriginalQuantity = input.OriginalQuantity
	item.AllBranchesQuantity = input.AllBranchesQuantity
	item.InternalNumber = input.InternalNumber
	item.Description = input.Description
	item.Category = input.Category
	item.Supplier = input.Supplier
	item.SupplierBill = input.SupplierBill
	item.FinalCustomerBill = input.FinalCustomerBill
	item.DevolutionBill = input.DevolutionBill
	item.BankDeposit = input.BankDeposit
	item.Comments = input.Comments
	item.ManualPricing = input.ManualPricing
	item.FormulaId = nil
	if input.FormulaId != nil && *input.FormulaId > 0 {
		id := *input.FormulaId
		item.FormulaId = &id
	}
	item.HeadquartersArrivalDate = nil
	if input.HeadquartersArrivalDate != "" {
		d, err := utils.ParseDate(input.HeadquartersArrivalDate, time.UTC)
		if err != nil {
			return err
		}
		item.HeadquartersArrivalDate = &d
	}
	return nil
}

// priceItem sets the 12 prices: typed verbatim in manual mode, otherwise derived
// from cost and formula. A zero cost keeps the prices the item already had.
func priceItem(ctx context.Context, item *InventoryItem, input *NewInventoryItem) error {
	if item.ManualPricing {
		item.SetPriceTable(input.InventoryPrices.PriceTable())
		return nil
	}
	var formula *Formula
	if item.FormulaId != nil {
		f, err := GetFormula(ctx, *item.FormulaId)
		if err != nil {
			return err
		}
		formula = f
	}
	if table, ok := deriverFor(formula).Derive(item.PriceCost, expressionOf(formula)); ok {
		item.SetPriceTable(table)
	}
	return nil
}

func priceSourceOf(item *InventoryItem) PriceSource {
	if item.ManualPricing {
		return PriceSourceManual
	}
	return PriceSourceDerived
}

func CreateInventoryItem(ctx context.Context, input *NewInventoryItem) (*InventoryItem, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	var item InventoryItem
	if err := input.apply(&item); err != nil {
		return nil, err
	}
	// typed prices are the prior prices of a new item
	item.SetPriceTable(input.InventoryPrices.PriceTable())
	before := pos.PriceTable{}
	if err := priceItem(ctx, &item, input); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordPriceChanges(ctx, tx, &item, before, priceSourceOf(&item)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, "", item.CreatedAt, item.ID, ReferenceTypeInventoryItem, item, OutboxActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateInventoryItem re-derives all 12 prices in automatic mode, so switching
// back from manual mode discards the manual edits.
func UpdateInventoryItem(ctx context.Context, id int, input *NewInventoryItem) (*InventoryItem, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}
	existing, err := GetInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item := *existing
	before := existing.PriceTable()
	if err := input.apply(&item); err != nil {
		return nil, err
	}
	if err := priceItem(ctx, &item, input); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Save(&item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := recordPriceChanges(ctx, tx, &item, before, priceSourceOf(&item)); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, "", time.Now().UTC(), item.ID, ReferenceTypeInventoryItem, item, OutboxActionUpdate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func DeleteInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	item, err := GetInventoryItem(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("inventory_item_id = ?", id).Delete(&PriceHistory{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(item).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, "", time.Now().UTC(), item.ID, ReferenceTypeInventoryItem, nil, OutboxActionDelete); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return item, nil
}

func GetInventoryItem(ctx context.Context, id int) (*InventoryItem, error) {
	item, err := utils.FetchSingleModel[InventoryItem](ctx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, ErrInventoryItemNotFound
	}
	return item, err
}

// ListInventoryItems matches search against product, model and serial number.
func ListInventoryItems(ctx context.Context, search string) ([]*InventoryItem, error) {
	var results []*InventoryItem
	dbCtx := config.GetDB().WithContext(ctx)
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("product LIKE ? OR model LIKE ? OR serial_number LIKE ?", like, like, like)
	}
	if err := dbCtx.Order("id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetInventoryItemsByIds(ctx context.Context, ids []int) ([]*InventoryItem, error) {
	var results []*InventoryItem
	if len(ids) == 0 {
		return results, nil
	}
	err := config.GetDB().WithContext(ctx).Where("id IN ?", utils.UniqueSlice(ids)).Find(&results).Error
	return results, err
}
