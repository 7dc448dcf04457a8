package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

// UserWarehouseRepository persists user-to-warehouse assignments. Default
// exclusivity and the last-assignment guard are enforced inside single
// database transactions with row locks, so concurrent writers for the same
// user serialize here.
type UserWarehouseRepository struct {
	db *sqlx.DB
}

// NewUserWarehouseRepository constructs the repository.
func NewUserWarehouseRepository(db *sqlx.DB) *UserWarehouseRepository {
	return &UserWarehouseRepository{db: db}
}

const userWarehouseColumns = `user_id, warehouse_id, access_level, is_default, assigned_at, created_at`

// Get fetches a single assignment row.
func (r *UserWarehouseRepository) Get(ctx context.Context, userID string, warehouseID int64) (*models.UserWarehouse, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_warehouses WHERE user_id = $1 AND warehouse_id = $2`, userWarehouseColumns)
	var assignment models.UserWarehouse
	if err := r.db.GetContext(ctx, &assignment, query, userID, warehouseID); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListByUser returns all assignments for the user ordered by warehouse id.
func (r *UserWarehouseRepository) ListByUser(ctx context.Context, userID string) ([]models.UserWarehouse, error) {
	query := fmt.Sprintf(`SELECT %s FROM user_warehouses WHERE user_id = $1 ORDER BY warehouse_id ASC`, userWarehouseColumns)
	var assignments []models.UserWarehouse
	if err := r.db.SelectContext(ctx, &assignments, query, userID); err != nil {
		return nil, fmt.Errorf("list user warehouses: %w", err)
	}
	return assignments, nil
}

// WarehouseIDsForUser returns the ids of warehouses assigned to the user.
func (r *UserWarehouseRepository) WarehouseIDsForUser(ctx context.Context, userID string) ([]int64, error) {
	const query = `SELECT warehouse_id FROM user_warehouses WHERE user_id = $1 ORDER BY warehouse_id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("list user warehouse ids: %w", err)
	}
	return ids, nil
}

// Assign inserts a new assignment. When the row is flagged default, every
// other default for the user is cleared in the same transaction.
func (r *UserWarehouseRepository) Assign(ctx context.Context, assignment *models.UserWarehouse) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assign: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockUserAssignments(ctx, tx, assignment.UserID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = now
	}
	assignment.CreatedAt = now

	if assignment.IsDefault {
		if err = clearDefaults(ctx, tx, assignment.UserID); err != nil {
			return err
		}
	} else {
		// First assignment becomes the default regardless of the flag.
		var count int
		if err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_warehouses WHERE user_id = $1`, assignment.UserID); err != nil {
			return fmt.Errorf("count user warehouses: %w", err)
		}
		if count == 0 {
			assignment.IsDefault = true
		}
	}

	const insert = `INSERT INTO user_warehouses (user_id, warehouse_id, access_level, is_default, assigned_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err = tx.ExecContext(ctx, insert,
		assignment.UserID, assignment.WarehouseID, assignment.AccessLevel, assignment.IsDefault, assignment.AssignedAt, assignment.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			err = appErrors.ErrDuplicateAssignment
			return err
		}
		return fmt.Errorf("insert user warehouse: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assign: %w", err)
	}
	return nil
}

// Remove deletes an assignment. Removing the user's only assignment fails
// with ErrLastAssignment; removing the default promotes the first remaining
// assignment to default within the same transaction.
func (r *UserWarehouseRepository) Remove(ctx context.Context, userID string, warehouseID int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockUserAssignments(ctx, tx, userID); err != nil {
		return err
	}

	query := fmt.Sprintf(`SELECT %s FROM user_warehouses WHERE user_id = $1 ORDER BY warehouse_id ASC FOR UPDATE`, userWarehouseColumns)
	var assignments []models.UserWarehouse
	if err = tx.SelectContext(ctx, &assignments, query, userID); err != nil {
		return fmt.Errorf("lock user warehouses: %w", err)
	}

	var target *models.UserWarehouse
	for i := range assignments {
		if assignments[i].WarehouseID == warehouseID {
			target = &assignments[i]
			break
		}
	}
	if target == nil {
		err = sql.ErrNoRows
		return err
	}
	if len(assignments) == 1 {
		err = appErrors.ErrLastAssignment
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM user_warehouses WHERE user_id = $1 AND warehouse_id = $2`, userID, warehouseID); err != nil {
		return fmt.Errorf("delete user warehouse: %w", err)
	}

	if target.IsDefault {
		// Promote the first remaining assignment; the pick is arbitrary by contract.
		for _, remaining := range assignments {
			if remaining.WarehouseID == warehouseID {
				continue
			}
			if _, err = tx.ExecContext(ctx,
				`UPDATE user_warehouses SET is_default = TRUE WHERE user_id = $1 AND warehouse_id = $2`,
				userID, remaining.WarehouseID); err != nil {
				return fmt.Errorf("promote default warehouse: %w", err)
			}
			break
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit remove: %w", err)
	}
	return nil
}

// UpdateAssignmentParams groups mutable assignment columns. Nil fields are
// left untouched.
type UpdateAssignmentParams struct {
	UserID      string
	WarehouseID int64
	AccessLevel *models.AccessLevel
	IsDefault   *bool
}

// Update changes access level and/or the default flag in place. Setting the
// default clears every other default for the user atomically.
func (r *UserWarehouseRepository) Update(ctx context.Context, params UpdateAssignmentParams) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update assignment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockUserAssignments(ctx, tx, params.UserID); err != nil {
		return err
	}

	var exists bool
	if err = tx.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM user_warehouses WHERE user_id = $1 AND warehouse_id = $2 FOR UPDATE)`,
		params.UserID, params.WarehouseID); err != nil {
		return fmt.Errorf("lock assignment: %w", err)
	}
	if !exists {
		err = sql.ErrNoRows
		return err
	}

	if params.IsDefault != nil && *params.IsDefault {
		if err = clearDefaults(ctx, tx, params.UserID); err != nil {
			return err
		}
	}

	sets := make([]string, 0, 2)
	args := make([]interface{}, 0, 4)
	if params.AccessLevel != nil {
		args = append(args, *params.AccessLevel)
		sets = append(sets, fmt.Sprintf("access_level = $%d", len(args)))
	}
	if params.IsDefault != nil {
		args = append(args, *params.IsDefault)
		sets = append(sets, fmt.Sprintf("is_default = $%d", len(args)))
	}
	if len(sets) > 0 {
		args = append(args, params.UserID)
		userArg := len(args)
		args = append(args, params.WarehouseID)
		warehouseArg := len(args)
		query := fmt.Sprintf(`UPDATE user_warehouses SET %s WHERE user_id = $%d AND warehouse_id = $%d`,
			joinSets(sets), userArg, warehouseArg)
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit update assignment: %w", err)
	}
	return nil
}

// SetDefault marks the pair as the user's default, clearing all others.
// Returns sql.ErrNoRows when no assignment exists for the pair.
func (r *UserWarehouseRepository) SetDefault(ctx context.Context, userID string, warehouseID int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = lockUserAssignments(ctx, tx, userID); err != nil {
		return err
	}
	if err = clearDefaults(ctx, tx, userID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE user_warehouses SET is_default = TRUE WHERE user_id = $1 AND warehouse_id = $2`,
		userID, warehouseID)
	if err != nil {
		return fmt.Errorf("set default warehouse: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check set default rows: %w", err)
	}
	if rows == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set default: %w", err)
	}
	return nil
}

// lockUserAssignments serializes assignment writers for one user. Row locks
// alone cannot cover rows a concurrent transaction is still inserting, so
// default handling takes a transaction-scoped advisory lock keyed on the
// user id. A partial unique index ON user_warehouses (user_id) WHERE
// is_default backstops the invariant at the schema level.
func lockUserAssignments(ctx context.Context, tx *sqlx.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("lock user assignments: %w", err)
	}
	return nil
}

func clearDefaults(ctx context.Context, tx *sqlx.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_warehouses SET is_default = FALSE WHERE user_id = $1 AND is_default = TRUE`, userID); err != nil {
		return fmt.Errorf("clear default warehouses: %w", err)
	}
	return nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
