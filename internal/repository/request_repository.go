package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

// RequestRepository persists material requests, their items, history trail
// and the inventory transactions a transition produces.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, title, description, status, created_by_user_id, created_at, updated_at`

// Create inserts the request aggregate: the request row, its items and the
// initial history entry, all in one transaction.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Status == "" {
		request.Status = models.RequestStatusDraft
	}

	const insertRequest = `INSERT INTO requests (title, description, status, created_by_user_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err = tx.GetContext(ctx, &request.ID, insertRequest,
		request.Title, request.Description, request.Status, request.CreatedByUserID, request.CreatedAt, request.UpdatedAt); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	for i := range request.Items {
		item := &request.Items[i]
		item.RequestID = request.ID
		if err = insertRequestItem(ctx, tx, item); err != nil {
			return err
		}
	}

	history := models.RequestHistory{
		RequestID:   request.ID,
		NewStatus:   request.Status,
		ActorUserID: request.CreatedByUserID,
		CreatedAt:   now,
	}
	if err = insertRequestHistory(ctx, tx, &history); err != nil {
		return err
	}
	request.History = append(request.History, history)

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

// GetByID loads the full request aggregate including items and history.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	var request models.Request
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1`, requestColumns)
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}

	const itemsQuery = `SELECT id, request_id, product_id, warehouse_id, quantity, location_id, description, unit_price
FROM request_items WHERE request_id = $1 ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &request.Items, itemsQuery, id); err != nil {
		return nil, fmt.Errorf("load request items: %w", err)
	}

	const historyQuery = `SELECT id, request_id, previous_status, new_status, actor_user_id, comment, created_at
FROM request_history WHERE request_id = $1 ORDER BY id ASC`
	if err := r.db.SelectContext(ctx, &request.History, historyQuery, id); err != nil {
		return nil, fmt.Errorf("load request history: %w", err)
	}

	return &request, nil
}

// List returns requests matching the filter (latest first). Items and history
// are not hydrated on list reads.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 8)
	builder.WriteString(`SELECT DISTINCT r.id, r.title, r.description, r.status, r.created_by_user_id, r.created_at, r.updated_at FROM requests r`)

	if len(filter.WarehouseIDs) > 0 {
		builder.WriteString(" JOIN request_items ri ON ri.request_id = r.id")
	}

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("r.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.WarehouseIDs) > 0 {
		placeholders := make([]string, len(filter.WarehouseIDs))
		for i, id := range filter.WarehouseIDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("ri.warehouse_id IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedByUserID != "" {
		args = append(args, filter.CreatedByUserID)
		conditions = append(conditions, fmt.Sprintf("r.created_by_user_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("r.title ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY r.created_at DESC, r.id DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// TransitionParams groups everything a status transition commits atomically:
// the guarded status update, the history entry, and any inventory
// transactions the transition produces.
type TransitionParams struct {
	RequestID    int64
	FromStatus   models.RequestStatus
	ToStatus     models.RequestStatus
	ActorUserID  string
	Comment      *string
	Transactions []models.InventoryTransaction
}

// Transition applies a status change guarded by the expected source status.
// When the row no longer carries FromStatus a concurrent writer won; the
// caller receives sql.ErrNoRows and nothing is persisted.
func (r *RequestRepository) Transition(ctx context.Context, params TransitionParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const update = `UPDATE requests SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	result, err := tx.ExecContext(ctx, update, params.ToStatus, now, params.RequestID, params.FromStatus)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	prev := params.FromStatus
	history := models.RequestHistory{
		RequestID:      params.RequestID,
		PreviousStatus: &prev,
		NewStatus:      params.ToStatus,
		ActorUserID:    params.ActorUserID,
		Comment:        params.Comment,
		CreatedAt:      now,
	}
	if err = insertRequestHistory(ctx, tx, &history); err != nil {
		return err
	}

	for i := range params.Transactions {
		txn := &params.Transactions[i]
		if txn.Date.IsZero() {
			txn.Date = now
		}
		txn.CreatedAt = now
		const insertTxn = `INSERT INTO inventory_transactions
(type, product_id, warehouse_id, user_id, quantity, unit_price, total_price, request_id, description, date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
		if err = tx.GetContext(ctx, &txn.ID, insertTxn,
			txn.Type, txn.ProductID, txn.WarehouseID, txn.UserID, txn.Quantity,
			txn.UnitPrice, txn.TotalPrice, txn.RequestID, txn.Description, txn.Date, txn.CreatedAt); err != nil {
			return fmt.Errorf("insert inventory transaction: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// AddItem appends an item to a request. The insert is guarded by the
// request's current status; when the row no longer carries one of the allowed
// statuses a concurrent transition won and the caller receives sql.ErrNoRows.
func (r *RequestRepository) AddItem(ctx context.Context, item *models.RequestItem, allowed ...models.RequestStatus) error {
	args := []interface{}{item.ProductID, item.WarehouseID, item.Quantity, item.LocationID, item.Description, item.UnitPrice, item.RequestID}
	placeholders := make([]string, len(allowed))
	for i, status := range allowed {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`INSERT INTO request_items (request_id, product_id, warehouse_id, quantity, location_id, description, unit_price)
SELECT id, $1, $2, $3, $4, $5, $6 FROM requests WHERE id = $7 AND status IN (%s) RETURNING id`, strings.Join(placeholders, ","))
	if err := r.db.GetContext(ctx, &item.ID, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("insert request item: %w", err)
	}
	return r.touch(ctx, item.RequestID)
}

// RemoveItem deletes an item from a request. The delete carries the same
// status guard as AddItem; sql.ErrNoRows means the item is gone or a
// concurrent transition closed the request for editing.
func (r *RequestRepository) RemoveItem(ctx context.Context, requestID, itemID int64, allowed ...models.RequestStatus) error {
	args := []interface{}{itemID, requestID}
	placeholders := make([]string, len(allowed))
	for i, status := range allowed {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	query := fmt.Sprintf(`DELETE FROM request_items ri USING requests r
WHERE ri.id = $1 AND ri.request_id = $2 AND r.id = ri.request_id AND r.status IN (%s)`, strings.Join(placeholders, ","))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete request item: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return r.touch(ctx, requestID)
}

func (r *RequestRepository) touch(ctx context.Context, requestID int64) error {
	const query = `UPDATE requests SET updated_at = $1 WHERE id = $2`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), requestID); err != nil {
		return fmt.Errorf("touch request: %w", err)
	}
	return nil
}

type execer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func insertRequestItem(ctx context.Context, q execer, item *models.RequestItem) error {
	const query = `INSERT INTO request_items (request_id, product_id, warehouse_id, quantity, location_id, description, unit_price)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := q.GetContext(ctx, &item.ID, query,
		item.RequestID, item.ProductID, item.WarehouseID, item.Quantity, item.LocationID, item.Description, item.UnitPrice); err != nil {
		return fmt.Errorf("insert request item: %w", err)
	}
	return nil
}

func insertRequestHistory(ctx context.Context, q execer, history *models.RequestHistory) error {
	const query = `INSERT INTO request_history (request_id, previous_status, new_status, actor_user_id, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := q.GetContext(ctx, &history.ID, query,
		history.RequestID, history.PreviousStatus, history.NewStatus, history.ActorUserID, history.Comment, history.CreatedAt); err != nil {
		return fmt.Errorf("insert request history: %w", err)
	}
	return nil
}
