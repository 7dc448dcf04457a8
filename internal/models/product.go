package models

import "time"

// Product is a catalog entry request items and transactions reference.
type Product struct {
	ID            int64     `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	SKU           string    `db:"sku" json:"sku"`
	UnitOfMeasure string    `db:"unit_of_measure" json:"unit_of_measure"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
