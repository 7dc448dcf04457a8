package dto

import "github.com/polterabyte/inventory-ctrl-api/internal/models"

// AssignWarehouseRequest is the payload for assigning a warehouse to a user.
type AssignWarehouseRequest struct {
	UserID      string             `json:"user_id" validate:"required"`
	WarehouseID int64              `json:"warehouse_id" validate:"required,gt=0"`
	AccessLevel models.AccessLevel `json:"access_level" validate:"required"`
	IsDefault   bool               `json:"is_default"`
}

// UpdateAssignmentRequest updates an existing assignment in place. Nil fields
// are left untouched.
type UpdateAssignmentRequest struct {
	AccessLevel *models.AccessLevel `json:"access_level,omitempty"`
	IsDefault   *bool               `json:"is_default,omitempty"`
}

// BulkAssignRequest assigns many users to one warehouse; each user's outcome
// is reported individually.
type BulkAssignRequest struct {
	UserIDs      []string           `json:"user_ids" validate:"required,min=1"`
	WarehouseID  int64              `json:"warehouse_id" validate:"required,gt=0"`
	AccessLevel  models.AccessLevel `json:"access_level" validate:"required"`
	SetAsDefault bool               `json:"set_as_default"`
}
