package models

import "time"

// AccessLevel controls what a user may do within an assigned warehouse.
type AccessLevel string

const (
	AccessLevelReadOnly AccessLevel = "READ_ONLY"
	AccessLevelFull     AccessLevel = "FULL"
)

// Valid reports whether the value is a known access level.
func (l AccessLevel) Valid() bool {
	return l == AccessLevelReadOnly || l == AccessLevelFull
}

// Allows reports whether the level satisfies the required one. Full access
// covers read-only requirements, never the other way around.
func (l AccessLevel) Allows(required AccessLevel) bool {
	if required == AccessLevelReadOnly {
		return l == AccessLevelReadOnly || l == AccessLevelFull
	}
	return l == AccessLevelFull
}

// UserWarehouse assigns a user to a warehouse with an access level. At most
// one row exists per (user, warehouse) pair and at most one row per user is
// flagged as the default warehouse.
type UserWarehouse struct {
	UserID      string      `db:"user_id" json:"user_id"`
	WarehouseID int64       `db:"warehouse_id" json:"warehouse_id"`
	AccessLevel AccessLevel `db:"access_level" json:"access_level"`
	IsDefault   bool        `db:"is_default" json:"is_default"`
	AssignedAt  time.Time   `db:"assigned_at" json:"assigned_at"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// AccessCheck is the outcome of a warehouse access lookup. HasAccess is true
// whenever any assignment (or an elevated role) grants visibility; callers
// requiring Full access must inspect the returned level.
type AccessCheck struct {
	HasAccess   bool        `json:"has_access"`
	AccessLevel AccessLevel `json:"access_level,omitempty"`
	IsDefault   bool        `json:"is_default"`
}

// BulkAssignOutcome reports the per-user result of a bulk assignment.
type BulkAssignOutcome struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Bulk assignment outcome statuses.
const (
	BulkAssignStatusAssigned        = "ASSIGNED"
	BulkAssignStatusAlreadyAssigned = "ALREADY_ASSIGNED"
	BulkAssignStatusInvalid         = "INVALID"
)
