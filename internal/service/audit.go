package service

import (
	"context"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

// auditSink receives audit trail entries. Writes are best-effort; services
// log failures and continue.
type auditSink interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}
