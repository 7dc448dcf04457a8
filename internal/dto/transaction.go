package dto

import (
	"time"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

// TransactionQuery mirrors supported transaction listing filters.
type TransactionQuery struct {
	Types       []models.TransactionType
	ProductID   int64
	WarehouseID int64
	RequestID   int64
	DateFrom    *time.Time
	DateTo      *time.Time
	Limit       int
	Offset      int
}
