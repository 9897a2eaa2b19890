package models

// ReferenceType tags the document an outbox event or price change belongs to.
type ReferenceType string

const (
	ReferenceTypeFormula         ReferenceType = "FORMULA"
	ReferenceTypeInventoryItem   ReferenceType = "INVENTORY"
	ReferenceTypeSale            ReferenceType = "SALE"
	ReferenceTypePayment         ReferenceType = "PAYMENT"
	ReferenceTypeTransaction     ReferenceType = "TRANSACTION"
	ReferenceTypeDailyAccounting ReferenceType = "DAILY_ACCOUNTING"
)

type OutboxAction string

const (
	OutboxActionCreate OutboxAction = "C"
	OutboxActionUpdate OutboxAction = "U"
	OutboxActionDelete OutboxAction = "D"
)

// Outbox publish statuses for OutboxEvent.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// PriceSource records why a price history row was written.
type PriceSource string

const (
	PriceSourceDerived PriceSource = "derived"
	PriceSourceManual  PriceSource = "manual"
	PriceSourceReprice PriceSource = "reprice"
)
