package models

import "time"

// NotificationType enumerates user-facing notification categories.
type NotificationType string

const (
	NotificationTypeTransaction NotificationType = "TRANSACTION"
	NotificationTypeSystem      NotificationType = "SYSTEM"
	NotificationTypeStock       NotificationType = "STOCK"
)

// Notification is a persisted user-facing event. Delivery transport is out of
// scope; rows are written fire-and-forget by the workflow.
type Notification struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"user_id"`
	Type          NotificationType `db:"type" json:"type"`
	Title         string           `db:"title" json:"title"`
	Message       string           `db:"message" json:"message"`
	RequestID     *int64           `db:"request_id" json:"request_id,omitempty"`
	TransactionID *int64           `db:"transaction_id" json:"transaction_id,omitempty"`
	IsRead        bool             `db:"is_read" json:"is_read"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// NotificationFilter constrains notification listing queries.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}
