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
	"gorm.io/gorm/clause"
)

type Sale struct {
	ID                   int             `gorm:"primary_key" json:"id"`
	Nombre               string          `gorm:"size:255;not null;index" json:"nombre"`
	Email                string          `gorm:"size:255;not null" json:"email"`
	Phone                string          `gorm:"size:30;not null" json:"phone"`
	CalleYNumero         string          `gorm:"size:255" json:"calleYNumero"`
	Ciudad               string          `gorm:"size:100" json:"ciudad"`
	Estado               string          `gorm:"size:100" json:"estado"`
	Fecha                time.Time       `gorm:"index;not null" json:"fecha"`
	FormaDePago          pos.Modality    `gorm:"size:20;not null" json:"formaDePago"`
	Location             string          `gorm:"size:50;not null;index" json:"sucursal"`
	Products             []SaleProduct   `gorm:"foreignKey:SaleId" json:"products"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Discount             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount"`
	Enganche             decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"enganche"`
	PrecioPromocion      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"precioPromocion"`
	PrecioNormal         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"precioNormal"`
	SaldoPrecioPromocion decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"saldoPrecioPromocion"`
	SaldoPrecioNormal    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"saldoPrecioNormal"`
	Plazo                pos.Term        `gorm:"embedded;embeddedPrefix:plazo_" json:"plazo"`
	FechaVencimiento     *time.Time      `json:"fechaVencimiento"`
	AgenteDeVentas       string          `gorm:"size:100" json:"agenteDeVentas"`
	Aclaraciones         string          `gorm:"type:text" json:"aclaraciones"`
	ManualPricing        bool            `gorm:"not null;default:false" json:"manualPricing"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type SaleProduct struct {
	ID              int             `gorm:"primary_key" json:"id"`
	SaleId          int             `gorm:"index;not null" json:"sale_id"`
	InventoryItemId *int            `gorm:"index" json:"inventory_id"`
	Producto        string          `gorm:"size:255" json:"producto"`
	SerialNumber    string          `gorm:"size:255" json:"serial_number"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unitPrice"`
	TotalPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"totalProductPrice"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSale struct {
	Nombre         string           `json:"nombre" validate:"required,max=255"`
	Email          string           `json:"email" validate:"required,email"`
	Phone          string           `json:"phone" validate:"required"`
	CalleYNumero   string           `json:"calleYNumero"`
	Ciudad         string           `json:"ciudad"`
	Estado         string           `json:"estado"`
	Fecha          string           `json:"fecha" validate:"required"`
	FormaDePago    string           `json:"formaDePago" validate:"required"`
	Sucursal       string           `json:"sucursal" validate:"required"`
	Products       []NewSaleProduct `json:"products" validate:"required,min=1,dive"`
	Discount       decimal.Decimal  `json:"discount"`
	Enganche       decimal.Decimal  `json:"enganche"`
	Plazo          pos.Term         `json:"plazo"`
	AgenteDeVentas string           `json:"agenteDeVentas"`
	Aclaraciones   string           `json:"aclaraciones"`
	ManualPricing  bool             `json:"manualPricing"`
	// Typed figures, used as-is in manual mode.
	PrecioPromocion      decimal.Decimal `json:"precioPromocion"`
	PrecioNormal         decimal.Decimal `json:"precioNormal"`
	SaldoPrecioPromocion decimal.Decimal `json:"saldoPrecioPromocion"`
	SaldoPrecioNormal    decimal.Decimal `json:"saldoPrecioNormal"`
	FechaVencimiento     string          `json:"fechaVencimiento"`
	// Recalculate recomputes the totals of an edited sale.
	Recalculate bool `json:"recalculate"`
}

type NewSaleProduct struct {
	InventoryId  *int            `json:"inventory_id"`
	Producto     string          `json:"producto"`
	SerialNumber string          `json:"serial_number"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

// parsedSale holds the normalized enums of a validated NewSale.
type parsedSale struct {
	modality pos.Modality
	branch   pos.Branch
	fecha    time.Time
	due      *time.Time
}

func (input *NewSale) validate(ctx context.Context) (*parsedSale, error) {
	input.Nombre = strings.TrimSpace(input.Nombre)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
		return nil, errors.New("invalid phone number")
	}
	modality, err := pos.ParseModality(input.FormaDePago)
	if err != nil {
		return nil, err
	}
	branch, err := pos.ParseBranch(input.Sucursal)
	if err != nil {
		return nil, err
	}
	fecha, err := utils.ParseDate(input.Fecha, time.UTC)
	if err != nil {
		return nil, err
	}
	if input.Discount.IsNegative() || input.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return nil, errors.New("discount must be between 0 and 100")
	}
	input.Plazo.Unit = pos.ParseTermUnit(string(input.Plazo.Unit))
	if input.Plazo.Value < 0 {
		return nil, errors.New("plazo cannot be negative")
	}

	var inventoryIds []int
	for i := range input.Products {
		p := &input.Products[i]
		if p.Quantity.IsZero() {
			p.Quantity = decimal.NewFromInt(1)
		}
		if p.Quantity.IsNegative() {
			return nil, errors.New("quantity cannot be negative")
		}
		if p.InventoryId != nil && *p.InventoryId > 0 {
			inventoryIds = append(inventoryIds, *p.InventoryId)
		} else if strings.TrimSpace(p.Producto) == "" {
			return nil, errors.New("product name or inventory item is required")
		}
	}
	for _, id := range utils.UniqueSlice(inventoryIds) {
		if err := utils.ValidateResourceId[InventoryItem](ctx, id); err != nil {
			return nil, ErrInventoryItemNotFound
		}
	}

	parsed := &parsedSale{modality: modality, branch: branch, fecha: fecha}
	if input.ManualPricing && input.FechaVencimiento != "" {
		due, err := utils.ParseDate(input.FechaVencimiento, time.UTC)
		if err != nil {
			return nil, err
		}
		parsed.due = &due
	} else {
		parsed.due = pos.DueDate(fecha, input.Plazo)
	}
	return parsed, nil
}

// buildLines resolves unit prices from each item's branch price table unless
// a unit price was typed in manual mode.
func buildLines(ctx context.Context, tx *gorm.DB, input *NewSale, parsed *parsedSale) ([]SaleProduct, []pos.LineItem, error) {
	lines := make([]SaleProduct, 0, len(input.Products))
	items := make([]pos.LineItem, 0, len(input.Products))
	for _, p := range input.Products {
		line := SaleProduct{
			Producto:     strings.TrimSpace(p.Producto),
			SerialNumber: strings.TrimSpace(p.SerialNumber),
			Quantity:     p.Quantity,
			UnitPrice:    p.UnitPrice,
		}
		if p.InventoryId != nil && *p.InventoryId > 0 {
			var item InventoryItem
			if err := tx.WithContext(ctx).First(&item, *p.InventoryId).Error; err != nil {
				return nil, nil, ErrInventoryItemNotFound
			}
			id := item.ID
			line.InventoryItemId = &id
			if line.Producto == "" {
				line.Producto = item.Product
			}
			if line.SerialNumber == "" {
				line.SerialNumber = item.SerialNumber
			}
			if !input.ManualPricing || p.UnitPrice.IsZero() {
				line.UnitPrice = item.PriceTable().UnitPrice(parsed.branch, parsed.modality)
			}
		}
		li := pos.LineItem{Name: line.Producto, UnitPrice: line.UnitPrice, Quantity: line.Quantity}
		line.UnitPrice = money(line.UnitPrice)
		line.TotalPrice = money(li.Total())
		lines = append(lines, line)
		items = append(items, li)
	}
	return lines, items, nil
}

func (input *NewSale) totals(parsed *parsedSale, items []pos.LineItem) pos.Totals {
	computed := pos.ComputeTotals(pos.TotalsInput{
		Lines:           items,
		DiscountPercent: input.Discount,
		Modality:        parsed.modality,
		DownPayment:     input.Enganche,
		SaleDate:        parsed.fecha,
		Term:            input.Plazo,
	})
	if input.ManualPricing {
		computed.PromoPrice = input.PrecioPromocion
		computed.NormalPrice = input.PrecioNormal
		computed.BalancePromo = input.SaldoPrecioPromocion
		computed.BalanceNormal = input.SaldoPrecioNormal
	}
	computed.DueDate = parsed.due
	return computed.Rounded()
}

func (s *Sale) applyTotals(t pos.Totals) {
	s.Subtotal = t.Subtotal
	s.PrecioPromocion = t.PromoPrice
	s.PrecioNormal = t.NormalPrice
	s.SaldoPrecioPromocion = t.BalancePromo
	s.SaldoPrecioNormal = t.BalanceNormal
}

func (s *Sale) applyInput(input *NewSale, parsed *parsedSale) {
	s.Nombre = input.Nombre
	s.Email = input.Email
	if formatted, err := utils.FormatPhoneNumber(input.Phone, utils.CountryCode); err == nil {
		s.Phone = formatted
	} else {
		s.Phone = input.Phone
	}
	s.CalleYNumero = input.CalleYNumero
	s.Ciudad = input.Ciudad
	s.Estado = input.Estado
	s.Fecha = parsed.fecha
	s.FormaDePago = parsed.modality
	s.Location = string(parsed.branch)
	s.Discount = money(input.Discount)
	s.Enganche = money(input.Enganche)
	s.Plazo = input.Plazo
	s.FechaVencimiento = parsed.due
	s.AgenteDeVentas = input.AgenteDeVentas
	s.Aclaraciones = input.Aclaraciones
	s.ManualPricing = input.ManualPricing
}

// Snapshot is the ledger view of the sale.
func (s Sale) Snapshot() pos.SaleSnapshot {
	names := make([]string, 0, len(s.Products))
	for _, p := range s.Products {
		names = append(names, p.Producto)
	}
	return pos.SaleSnapshot{
		ID:            s.ID,
		CustomerName:  s.Nombre,
		Products:      names,
		Modality:      s.FormaDePago,
		DownPayment:   s.Enganche,
		PromoPrice:    s.PrecioPromocion,
		BalancePromo:  s.SaldoPrecioPromocion,
		BalanceNormal: s.SaldoPrecioNormal,
		Date:          s.Fecha,
		Location:      s.Location,
	}
}

func (s Sale) Balances() pos.Balances {
	return pos.Balances{Promo: s.SaldoPrecioPromocion, Normal: s.SaldoPrecioNormal}
}

// CreateSale writes the sale, its lines, its income record and an outbox event atomically.
func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {
	parsed, err := input.validate(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	lines, items, err := buildLines(ctx, tx, input, parsed)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var sale Sale
	sale.applyInput(input, parsed)
	sale.applyTotals(input.totals(parsed, items))
	sale.Products = lines

	if err := tx.WithContext(ctx).Create(&sale).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := upsertSaleTransaction(ctx, tx, sale); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, sale.Location, sale.Fecha, sale.ID, ReferenceTypeSale, sale, OutboxActionCreate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateDailyReport(sale.Location, sale.Fecha)
	return &sale, nil
}

// ErrSaleRecalculateRequired rejects an edit that changes the lines, discount,
// enganche, modality or branch of a sale while keeping its stored totals.
var ErrSaleRecalculateRequired = errors.New("sale amounts changed; set recalculate to update the totals")

func sameInventoryItem(a, b *int) bool {
	if a == nil || *a <= 0 {
		return b == nil
	}
	return b != nil && *a == *b
}

// amountsChanged reports whether the edit touches anything the totals depend on.
// Products must be loaded in id order.
func (s *Sale) amountsChanged(input *NewSale, parsed *parsedSale) bool {
	if parsed.modality != s.FormaDePago || string(parsed.branch) != s.Location ||
		!money(input.Discount).Equal(s.Discount) || !money(input.Enganche).Equal(s.Enganche) {
		return true
	}
	if len(input.Products) != len(s.Products) {
		return true
	}
	for i, p := range input.Products {
		stored := s.Products[i]
		if !sameInventoryItem(p.InventoryId, stored.InventoryItemId) || !p.Quantity.Equal(stored.Quantity) {
			return true
		}
		if stored.InventoryItemId == nil && !money(p.UnitPrice).Equal(stored.UnitPrice) {
			return true
		}
	}
	return false
}

// paidAmount sums the abonos registered against the sale.
func paidAmount(ctx context.Context, tx *gorm.DB, saleId int) (decimal.Decimal, error) {
	var payments []Payment
	if err := tx.WithContext(ctx).Where("sale_id = ?", saleId).Find(&payments).Error; err != nil {
		return decimal.Zero, err
	}
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	return paid, nil
}

// UpdateSale edits a sale under a row lock and upserts its income record.
//   - Manual mode stores the typed figures.
//   - Recalculate recomputes the totals and takes the registered abonos off
//     the new balances.
//   - Otherwise the stored totals and line prices are kept, and an edit that
//     changes an amount input fails with ErrSaleRecalculateRequired.
func UpdateSale(ctx context.Context, id int, input *NewSale) (*Sale, error) {
	parsed, err := input.validate(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	var sale Sale
	if err := tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, id).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("sale_id = ?", sale.ID).Order("id ASC").Find(&sale.Products).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	oldLocation, oldFecha := sale.Location, sale.Fecha

	lines, items, err := buildLines(ctx, tx, input, parsed)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	switch {
	case input.ManualPricing:
		sale.applyTotals(input.totals(parsed, items))
	case input.Recalculate:
		paid, err := paidAmount(ctx, tx, sale.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		totals := input.totals(parsed, items)
		totals.BalancePromo = money(totals.BalancePromo.Sub(paid))
		totals.BalanceNormal = money(totals.BalanceNormal.Sub(paid))
		sale.applyTotals(totals)
	case sale.amountsChanged(input, parsed):
		tx.Rollback()
		return nil, ErrSaleRecalculateRequired
	default:
		for i := range lines {
			lines[i].UnitPrice = sale.Products[i].UnitPrice
			lines[i].TotalPrice = sale.Products[i].TotalPrice
		}
	}
	sale.applyInput(input, parsed)

	if err := tx.WithContext(ctx).Where("sale_id = ?", sale.ID).Delete(&SaleProduct{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range lines {
		lines[i].SaleId = sale.ID
	}
	if len(lines) > 0 {
		if err := tx.WithContext(ctx).Create(&lines).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	sale.Products = nil
	if err := tx.WithContext(ctx).Save(&sale).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	sale.Products = lines
	if err := upsertSaleTransaction(ctx, tx, sale); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, sale.Location, time.Now().UTC(), sale.ID, ReferenceTypeSale, sale, OutboxActionUpdate); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateDailyReport(oldLocation, oldFecha)
	InvalidateDailyReport(sale.Location, sale.Fecha)
	return &sale, nil
}

// DeleteSale removes the sale with its lines, payments and ledger rows.
func DeleteSale(ctx context.Context, id int) (*Sale, error) {
	sale, err := GetSale(ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	for _, model := range []interface{}{&SaleProduct{}, &Payment{}, &Transaction{}} {
		if err := tx.WithContext(ctx).Where("sale_id = ?", id).Delete(model).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.WithContext(ctx).Delete(&Sale{}, id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := PublishSalesEvent(ctx, tx, sale.Location, time.Now().UTC(), sale.ID, ReferenceTypeSale, nil, OutboxActionDelete); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	InvalidateDailyReport(sale.Location, sale.Fecha)
	return sale, nil
}

func GetSale(ctx context.Context, id int) (*Sale, error) {
	sale, err := utils.FetchSingleModel[Sale](ctx, id, "Products")
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	return sale, err
}

// ListSales filters by branch ("" or "all" for every branch) and customer name.
func ListSales(ctx context.Context, location string, search string) ([]*Sale, error) {
	var results []*Sale
	dbCtx := config.GetDB().WithContext(ctx).Preload("Products")
	if location = strings.TrimSpace(location); location != "" && !strings.EqualFold(location, "all") {
		branch, err := pos.ParseBranch(location)
		if err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("location = ?", string(branch))
	}
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + search + "%"
		dbCtx = dbCtx.Where("nombre LIKE ? OR email LIKE ? OR phone LIKE ?", like, like, like)
	}
	if err := dbCtx.Order("fecha DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
