package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates inventory movement kinds.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeOutcome TransactionType = "OUTCOME"
	TransactionTypeInstall TransactionType = "INSTALL"
)

// InventoryTransaction records a single inventory movement. Rows referencing
// a request are created exclusively by the fulfillment workflow, never by
// direct API writes.
type InventoryTransaction struct {
	ID          int64            `db:"id" json:"id"`
	Type        TransactionType  `db:"type" json:"type"`
	ProductID   int64            `db:"product_id" json:"product_id"`
	WarehouseID int64            `db:"warehouse_id" json:"warehouse_id"`
	UserID      string           `db:"user_id" json:"user_id"`
	Quantity    int64            `db:"quantity" json:"quantity"`
	UnitPrice   *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
	TotalPrice  *decimal.Decimal `db:"total_price" json:"total_price,omitempty"`
	RequestID   *int64           `db:"request_id" json:"request_id,omitempty"`
	Description *string          `db:"description" json:"description,omitempty"`
	Date        time.Time        `db:"date" json:"date"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

// TransactionFilter constrains transaction listing queries.
type TransactionFilter struct {
	Types        []TransactionType
	ProductID    int64
	WarehouseIDs []int64
	RequestID    int64
	UserID       string
	DateFrom     *time.Time
	DateTo       *time.Time
	Limit        int
	Offset       int
}
