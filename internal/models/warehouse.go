package models

import "time"

// Warehouse is a physical storage site requests and transactions are scoped to.
type Warehouse struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Location  *string   `db:"location" json:"location,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// WarehouseFilter constrains warehouse listing queries.
type WarehouseFilter struct {
	IDs        []int64
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}
