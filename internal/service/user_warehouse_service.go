package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	"github.com/polterabyte/inventory-ctrl-api/internal/repository"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

type userWarehouseStore interface {
	Get(ctx context.Context, userID string, warehouseID int64) (*models.UserWarehouse, error)
	ListByUser(ctx context.Context, userID string) ([]models.UserWarehouse, error)
	WarehouseIDsForUser(ctx context.Context, userID string) ([]int64, error)
	Assign(ctx context.Context, assignment *models.UserWarehouse) error
	Remove(ctx context.Context, userID string, warehouseID int64) error
	Update(ctx context.Context, params repository.UpdateAssignmentParams) error
	SetDefault(ctx context.Context, userID string, warehouseID int64) error
}

type warehouseResolver interface {
	FindByID(ctx context.Context, id int64) (*models.Warehouse, error)
	ActiveIDs(ctx context.Context) ([]int64, error)
}

type userResolver interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type accessCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// UserWarehouseService manages warehouse assignments and answers access
// checks for the rest of the application. Accessible warehouse sets are
// cached per user; every assignment mutation invalidates the user's entry.
type UserWarehouseService struct {
	repo       userWarehouseStore
	warehouses warehouseResolver
	users      userResolver
	cache      accessCache
	cacheTTL   time.Duration
	audit      auditSink
	logger     *zap.Logger
}

// UserWarehouseServiceOption configures the service.
type UserWarehouseServiceOption func(*UserWarehouseService)

// WithAccessCache enables accessible-set caching with the given TTL.
func WithAccessCache(cache accessCache, ttl time.Duration) UserWarehouseServiceOption {
	return func(s *UserWarehouseService) {
		if cache != nil && ttl > 0 {
			s.cache = cache
			s.cacheTTL = ttl
		}
	}
}

// WithAssignmentAudit sets the audit sink for assignment mutations.
func WithAssignmentAudit(audit auditSink) UserWarehouseServiceOption {
	return func(s *UserWarehouseService) {
		s.audit = audit
	}
}

// NewUserWarehouseService constructs the service.
func NewUserWarehouseService(repo userWarehouseStore, warehouses warehouseResolver, users userResolver, logger *zap.Logger, opts ...UserWarehouseServiceOption) *UserWarehouseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &UserWarehouseService{
		repo:       repo,
		warehouses: warehouses,
		users:      users,
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Assign grants a user access to a warehouse. The warehouse must exist and be
// active and the user must exist; the first assignment for a user becomes the
// default regardless of the flag.
func (s *UserWarehouseService) Assign(ctx context.Context, req dto.AssignWarehouseRequest, actor *models.JWTClaims) (*models.UserWarehouse, error) {
	if !req.AccessLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown access level")
	}
	if err := s.ensureAssignable(ctx, req.UserID, req.WarehouseID); err != nil {
		return nil, err
	}

	assignment := &models.UserWarehouse{
		UserID:      req.UserID,
		WarehouseID: req.WarehouseID,
		AccessLevel: req.AccessLevel,
		IsDefault:   req.IsDefault,
	}
	if err := s.repo.Assign(ctx, assignment); err != nil {
		s.emitAssignmentAudit(ctx, actor, models.AuditActionWarehouseAssign, req.UserID, req.WarehouseID, err)
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign warehouse")
	}

	s.invalidateAccess(ctx, req.UserID)
	s.emitAssignmentAudit(ctx, actor, models.AuditActionWarehouseAssign, req.UserID, req.WarehouseID, nil)
	return assignment, nil
}

// BulkAssign assigns many users to one warehouse. Failures are reported per
// user and never abort the batch.
func (s *UserWarehouseService) BulkAssign(ctx context.Context, req dto.BulkAssignRequest, actor *models.JWTClaims) ([]models.BulkAssignOutcome, error) {
	if !req.AccessLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown access level")
	}
	if err := s.ensureWarehouseActive(ctx, req.WarehouseID); err != nil {
		return nil, err
	}

	outcomes := make([]models.BulkAssignOutcome, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		outcome := models.BulkAssignOutcome{UserID: userID, Status: models.BulkAssignStatusAssigned}
		if err := s.ensureUserExists(ctx, userID); err != nil {
			outcome.Status = models.BulkAssignStatusInvalid
			outcome.Error = "user not found"
			outcomes = append(outcomes, outcome)
			continue
		}
		assignment := &models.UserWarehouse{
			UserID:      userID,
			WarehouseID: req.WarehouseID,
			AccessLevel: req.AccessLevel,
			IsDefault:   req.SetAsDefault,
		}
		err := s.repo.Assign(ctx, assignment)
		switch {
		case err == nil:
			s.invalidateAccess(ctx, userID)
			s.emitAssignmentAudit(ctx, actor, models.AuditActionWarehouseAssign, userID, req.WarehouseID, nil)
		case errors.Is(err, appErrors.ErrDuplicateAssignment):
			outcome.Status = models.BulkAssignStatusAlreadyAssigned
		default:
			outcome.Status = models.BulkAssignStatusInvalid
			outcome.Error = "assignment failed"
			s.logger.Warn("bulk assign failed",
				zap.String("user_id", userID),
				zap.Int64("warehouse_id", req.WarehouseID),
				zap.Error(err))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Remove revokes a user's access to a warehouse. The user's last assignment
// cannot be removed; removing the default promotes another assignment.
func (s *UserWarehouseService) Remove(ctx context.Context, userID string, warehouseID int64, actor *models.JWTClaims) error {
	err := s.repo.Remove(ctx, userID, warehouseID)
	if err != nil {
		s.emitAssignmentAudit(ctx, actor, models.AuditActionWarehouseUnassign, userID, warehouseID, err)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assignment")
	}

	s.invalidateAccess(ctx, userID)
	s.emitAssignmentAudit(ctx, actor, models.AuditActionWarehouseUnassign, userID, warehouseID, nil)
	return nil
}

// Update changes the access level and/or default flag of an assignment.
func (s *UserWarehouseService) Update(ctx context.Context, userID string, warehouseID int64, req dto.UpdateAssignmentRequest, actor *models.JWTClaims) (*models.UserWarehouse, error) {
	if req.AccessLevel == nil && req.IsDefault == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "nothing to update")
	}
	if req.AccessLevel != nil && !req.AccessLevel.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown access level")
	}
	if req.IsDefault != nil && !*req.IsDefault {
		// The default flag can only move to another assignment, never be
		// switched off in place; that would leave the user with no default.
		return nil, appErrors.Clone(appErrors.ErrValidation, "default flag cannot be cleared directly, set another warehouse as default")
	}

	err := s.repo.Update(ctx, repository.UpdateAssignmentParams{
		UserID:      userID,
		WarehouseID: warehouseID,
		AccessLevel: req.AccessLevel,
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		s.emitAssignmentAudit(ctx, actor, models.AuditActionWarehouseAccessEdit, userID, warehouseID, err)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment")
	}

	s.invalidateAccess(ctx, userID)
	s.emitAssignmentAudit(ctx, actor, models.AuditActionWarehouseAccessEdit, userID, warehouseID, nil)
	return s.getAssignment(ctx, userID, warehouseID)
}

// SetDefault marks the assignment as the user's default warehouse, clearing
// every other default atomically.
func (s *UserWarehouseService) SetDefault(ctx context.Context, userID string, warehouseID int64, actor *models.JWTClaims) error {
	err := s.repo.SetDefault(ctx, userID, warehouseID)
	if err != nil {
		s.emitAssignmentAudit(ctx, actor, models.AuditActionDefaultWarehouseSet, userID, warehouseID, err)
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set default warehouse")
	}

	s.invalidateAccess(ctx, userID)
	s.emitAssignmentAudit(ctx, actor, models.AuditActionDefaultWarehouseSet, userID, warehouseID, nil)
	return nil
}

// ListForUser returns all assignments for the user.
func (s *UserWarehouseService) ListForUser(ctx context.Context, userID string) ([]models.UserWarehouse, error) {
	assignments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// DefaultWarehouse returns the user's default assignment, or nil when the
// user has no assignments at all.
func (s *UserWarehouseService) DefaultWarehouse(ctx context.Context, userID string) (*models.UserWarehouse, error) {
	assignments, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve default warehouse")
	}
	for i := range assignments {
		if assignments[i].IsDefault {
			return &assignments[i], nil
		}
	}
	return nil, nil
}

// CheckAccess reports whether the user can see the warehouse and at which
// level. Elevated roles see every warehouse with full access; the check
// itself never fails on a denied outcome.
func (s *UserWarehouseService) CheckAccess(ctx context.Context, actor *models.JWTClaims, warehouseID int64) (models.AccessCheck, error) {
	if actor == nil {
		return models.AccessCheck{}, nil
	}
	if actor.Role.IsElevated() {
		// Elevated roles get full access to active warehouses only.
		warehouse, err := s.warehouses.FindByID(ctx, warehouseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.AccessCheck{}, nil
			}
			return models.AccessCheck{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve warehouse")
		}
		if !warehouse.IsActive {
			return models.AccessCheck{}, nil
		}
		return models.AccessCheck{HasAccess: true, AccessLevel: models.AccessLevelFull}, nil
	}

	assignment, err := s.repo.Get(ctx, actor.UserID, warehouseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.AccessCheck{}, nil
		}
		return models.AccessCheck{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check warehouse access")
	}
	return models.AccessCheck{
		HasAccess:   true,
		AccessLevel: assignment.AccessLevel,
		IsDefault:   assignment.IsDefault,
	}, nil
}

// RequireAccess enforces that the actor holds at least the required access
// level on the warehouse. Returns ErrAccessDenied otherwise.
func (s *UserWarehouseService) RequireAccess(ctx context.Context, actor *models.JWTClaims, warehouseID int64, required models.AccessLevel) error {
	check, err := s.CheckAccess(ctx, actor, warehouseID)
	if err != nil {
		return err
	}
	if !check.HasAccess || !check.AccessLevel.Allows(required) {
		return appErrors.ErrAccessDenied
	}
	return nil
}

// AccessibleWarehouseIDs returns the warehouses the actor may see. Elevated
// roles resolve to every active warehouse; regular users resolve to their
// assignments, served from cache when enabled.
func (s *UserWarehouseService) AccessibleWarehouseIDs(ctx context.Context, actor *models.JWTClaims) ([]int64, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role.IsElevated() {
		ids, err := s.warehouses.ActiveIDs(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list warehouses")
		}
		return ids, nil
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, accessCacheKey(actor.UserID)); err == nil {
			var ids []int64
			if err := json.Unmarshal(cached, &ids); err == nil {
				return ids, nil
			}
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("access cache read failed", zap.String("user_id", actor.UserID), zap.Error(err))
		}
	}

	ids, err := s.repo.WarehouseIDsForUser(ctx, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list accessible warehouses")
	}

	if s.cache != nil {
		if payload, err := json.Marshal(ids); err == nil {
			if err := s.cache.Set(ctx, accessCacheKey(actor.UserID), payload, s.cacheTTL); err != nil {
				s.logger.Warn("access cache write failed", zap.String("user_id", actor.UserID), zap.Error(err))
			}
		}
	}
	return ids, nil
}

func (s *UserWarehouseService) getAssignment(ctx context.Context, userID string, warehouseID int64) (*models.UserWarehouse, error) {
	assignment, err := s.repo.Get(ctx, userID, warehouseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignment")
	}
	return assignment, nil
}

func (s *UserWarehouseService) ensureAssignable(ctx context.Context, userID string, warehouseID int64) error {
	if err := s.ensureUserExists(ctx, userID); err != nil {
		return err
	}
	return s.ensureWarehouseActive(ctx, warehouseID)
}

func (s *UserWarehouseService) ensureUserExists(ctx context.Context, userID string) error {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrInvalidWarehouse, "user does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve user")
	}
	return nil
}

func (s *UserWarehouseService) ensureWarehouseActive(ctx context.Context, warehouseID int64) error {
	warehouse, err := s.warehouses.FindByID(ctx, warehouseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrInvalidWarehouse
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve warehouse")
	}
	if !warehouse.IsActive {
		return appErrors.ErrInvalidWarehouse
	}
	return nil
}

func (s *UserWarehouseService) invalidateAccess(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, accessCacheKey(userID)); err != nil {
		s.logger.Warn("access cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *UserWarehouseService) emitAssignmentAudit(ctx context.Context, actor *models.JWTClaims, action, userID string, warehouseID int64, opErr error) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   "user_warehouse",
		Success:    opErr == nil,
		Severity:   models.AuditSeverityInfo,
		NewValues:  mustJSON(map[string]interface{}{"user_id": userID, "warehouse_id": warehouseID}),
		ResourceID: strPtr(fmt.Sprintf("%s:%d", userID, warehouseID)),
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if opErr != nil {
		entry.Severity = models.AuditSeverityWarning
		msg := opErr.Error()
		entry.ErrorMessage = &msg
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}

func accessCacheKey(userID string) string {
	return "access:warehouses:" + userID
}

func strPtr(s string) *string { return &s }

func mustJSON(v interface{}) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return payload
}
