package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

// WarehouseRepository resolves warehouse records for access-control checks
// and read endpoints.
type WarehouseRepository struct {
	db *sqlx.DB
}

// NewWarehouseRepository constructs the repository.
func NewWarehouseRepository(db *sqlx.DB) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

const warehouseColumns = `id, name, location, is_active, created_at, updated_at`

// FindByID fetches a warehouse by identifier.
func (r *WarehouseRepository) FindByID(ctx context.Context, id int64) (*models.Warehouse, error) {
	query := fmt.Sprintf(`SELECT %s FROM warehouses WHERE id = $1`, warehouseColumns)
	var warehouse models.Warehouse
	if err := r.db.GetContext(ctx, &warehouse, query, id); err != nil {
		return nil, err
	}
	return &warehouse, nil
}

// List returns warehouses matching the filter ordered by name.
func (r *WarehouseRepository) List(ctx context.Context, filter models.WarehouseFilter) ([]models.Warehouse, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM warehouses`, warehouseColumns))

	conditions := make([]string, 0, 3)
	if len(filter.IDs) > 0 {
		placeholders := make([]string, len(filter.IDs))
		for i, id := range filter.IDs {
			args = append(args, id)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("id IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY name ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var warehouses []models.Warehouse
	if err := r.db.SelectContext(ctx, &warehouses, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	return warehouses, nil
}

// ActiveIDs returns the ids of every active warehouse.
func (r *WarehouseRepository) ActiveIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT id FROM warehouses WHERE is_active = TRUE ORDER BY id ASC`
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list active warehouse ids: %w", err)
	}
	return ids, nil
}
