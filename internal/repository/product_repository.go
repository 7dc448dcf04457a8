package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

// ProductRepository resolves catalog entries referenced by request items.
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository constructs the repository.
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, sku, unit_of_measure, is_active, created_at, updated_at`

// FindByID fetches a product by identifier.
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	var product models.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		return nil, err
	}
	return &product, nil
}

// ActiveIDs returns which of the given product ids exist and are active.
func (r *ProductRepository) ActiveIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id FROM products WHERE is_active = TRUE AND id IN (%s)`, strings.Join(placeholders, ","))
	var found []int64
	if err := r.db.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("resolve active products: %w", err)
	}
	for _, id := range found {
		result[id] = true
	}
	return result, nil
}
