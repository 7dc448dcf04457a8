package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

// TransactionRepository reads inventory transactions. Workflow-produced rows
// are written by RequestRepository.Transition inside the transition
// transaction; this repository only serves the read side.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository constructs the repository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, type, product_id, warehouse_id, user_id, quantity, unit_price, total_price, request_id, description, date, created_at`

// List returns transactions matching the filter (latest first).
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.InventoryTransaction, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 8)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM inventory_transactions`, transactionColumns))

	conditions := make([]string, 0, 6)
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			args = append(args, t)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.WarehouseIDs) > 0 {
		placeholders := make([]string, len(filter.WarehouseIDs))
		for i, id := range filter.WarehouseIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("warehouse_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ProductID > 0 {
		args = append(args, filter.ProductID)
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.RequestID > 0 {
		args = append(args, filter.RequestID)
		conditions = append(conditions, fmt.Sprintf("request_id = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY date DESC, id DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var transactions []models.InventoryTransaction
	if err := r.db.SelectContext(ctx, &transactions, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return transactions, nil
}

// ListByRequest returns the transactions produced for a request.
func (r *TransactionRepository) ListByRequest(ctx context.Context, requestID int64) ([]models.InventoryTransaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM inventory_transactions WHERE request_id = $1 ORDER BY id ASC`, transactionColumns)
	var transactions []models.InventoryTransaction
	if err := r.db.SelectContext(ctx, &transactions, query, requestID); err != nil {
		return nil, fmt.Errorf("list request transactions: %w", err)
	}
	return transactions, nil
}
