package dto

import (
	"github.com/shopspring/decimal"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

// RequestItemInput is a single requested line in create/add payloads.
type RequestItemInput struct {
	ProductID   int64            `json:"product_id" validate:"required,gt=0"`
	WarehouseID int64            `json:"warehouse_id" validate:"required,gt=0"`
	Quantity    int64            `json:"quantity" validate:"required,gt=0"`
	LocationID  *int64           `json:"location_id,omitempty"`
	Description string           `json:"description,omitempty" validate:"max=500"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
}

// CreateRequestRequest is the payload for opening a new material request.
type CreateRequestRequest struct {
	Title       string             `json:"title" validate:"required,min=3,max=200"`
	Description string             `json:"description,omitempty" validate:"max=1000"`
	Items       []RequestItemInput `json:"items" validate:"required,min=1,dive"`
}

// TransitionRequest carries the optional comment recorded with a transition.
type TransitionRequest struct {
	Comment string `json:"comment,omitempty" validate:"max=500"`
}

// RequestQuery mirrors supported request listing filters.
type RequestQuery struct {
	Status      []models.RequestStatus
	WarehouseID int64
	CreatedBy   string
	Search      string
	Limit       int
	Offset      int
}
