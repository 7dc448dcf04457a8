package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

type warehouseStore interface {
	FindByID(ctx context.Context, id int64) (*models.Warehouse, error)
	List(ctx context.Context, filter models.WarehouseFilter) ([]models.Warehouse, error)
}

// WarehouseService serves warehouse reads scoped to the actor's visibility.
type WarehouseService struct {
	repo   warehouseStore
	access warehouseAccess
	logger *zap.Logger
}

// NewWarehouseService constructs the service.
func NewWarehouseService(repo warehouseStore, access warehouseAccess, logger *zap.Logger) *WarehouseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WarehouseService{repo: repo, access: access, logger: logger}
}

// Get returns a warehouse the actor has access to.
func (s *WarehouseService) Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.Warehouse, error) {
	check, err := s.access.CheckAccess(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !check.HasAccess {
		return nil, appErrors.ErrAccessDenied
	}
	warehouse, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "warehouse not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load warehouse")
	}
	return warehouse, nil
}

// List returns the warehouses visible to the actor.
func (s *WarehouseService) List(ctx context.Context, filter models.WarehouseFilter, actor *models.JWTClaims) ([]models.Warehouse, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsElevated() {
		accessible, err := s.access.AccessibleWarehouseIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		if len(accessible) == 0 {
			return []models.Warehouse{}, nil
		}
		filter.IDs = accessible
	}
	warehouses, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list warehouses")
	}
	return warehouses, nil
}
