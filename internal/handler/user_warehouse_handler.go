package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/response"
)

type userWarehouseService interface {
	Assign(ctx context.Context, req dto.AssignWarehouseRequest, actor *models.JWTClaims) (*models.UserWarehouse, error)
	BulkAssign(ctx context.Context, req dto.BulkAssignRequest, actor *models.JWTClaims) ([]models.BulkAssignOutcome, error)
	Remove(ctx context.Context, userID string, warehouseID int64, actor *models.JWTClaims) error
	Update(ctx context.Context, userID string, warehouseID int64, req dto.UpdateAssignmentRequest, actor *models.JWTClaims) (*models.UserWarehouse, error)
	SetDefault(ctx context.Context, userID string, warehouseID int64, actor *models.JWTClaims) error
	ListForUser(ctx context.Context, userID string) ([]models.UserWarehouse, error)
	DefaultWarehouse(ctx context.Context, userID string) (*models.UserWarehouse, error)
	CheckAccess(ctx context.Context, actor *models.JWTClaims, warehouseID int64) (models.AccessCheck, error)
}

// UserWarehouseHandler exposes warehouse assignment management endpoints.
type UserWarehouseHandler struct {
	service userWarehouseService
}

// NewUserWarehouseHandler constructs the handler.
func NewUserWarehouseHandler(service userWarehouseService) *UserWarehouseHandler {
	return &UserWarehouseHandler{service: service}
}

// Assign godoc
// @Summary Assign a warehouse to a user
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.AssignWarehouseRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /user-warehouses [post]
func (h *UserWarehouseHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AssignWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	assignment, err := h.service.Assign(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, assignment, nil)
}

// BulkAssign godoc
// @Summary Assign one warehouse to many users
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body dto.BulkAssignRequest true "Bulk assignment payload"
// @Success 200 {object} response.Envelope
// @Router /user-warehouses/bulk [post]
func (h *UserWarehouseHandler) BulkAssign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.BulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid bulk assignment payload"))
		return
	}
	outcomes, err := h.service.BulkAssign(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcomes, nil)
}

// ListForUser godoc
// @Summary List warehouse assignments of a user
// @Tags Assignments
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Router /user-warehouses/{userId} [get]
func (h *UserWarehouseHandler) ListForUser(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id required"))
		return
	}
	assignments, err := h.service.ListForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// DefaultWarehouse godoc
// @Summary Get the default warehouse of a user
// @Tags Assignments
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /user-warehouses/{userId}/default [get]
func (h *UserWarehouseHandler) DefaultWarehouse(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "user id required"))
		return
	}
	assignment, err := h.service.DefaultWarehouse(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Update godoc
// @Summary Update an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param userId path string true "User ID"
// @Param warehouseId path int true "Warehouse ID"
// @Param payload body dto.UpdateAssignmentRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /user-warehouses/{userId}/{warehouseId} [patch]
func (h *UserWarehouseHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := c.Param("userId")
	warehouseID, err := int64Param(c, "warehouseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid update payload"))
		return
	}
	assignment, err := h.service.Update(c.Request.Context(), userID, warehouseID, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// Remove godoc
// @Summary Remove an assignment
// @Tags Assignments
// @Produce json
// @Param userId path string true "User ID"
// @Param warehouseId path int true "Warehouse ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /user-warehouses/{userId}/{warehouseId} [delete]
func (h *UserWarehouseHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := c.Param("userId")
	warehouseID, err := int64Param(c, "warehouseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Remove(c.Request.Context(), userID, warehouseID, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SetDefault godoc
// @Summary Set an assignment as the user's default
// @Tags Assignments
// @Produce json
// @Param userId path string true "User ID"
// @Param warehouseId path int true "Warehouse ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /user-warehouses/{userId}/{warehouseId}/default [put]
func (h *UserWarehouseHandler) SetDefault(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	userID := c.Param("userId")
	warehouseID, err := int64Param(c, "warehouseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.SetDefault(c.Request.Context(), userID, warehouseID, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CheckAccess godoc
// @Summary Check the caller's access to a warehouse
// @Tags Assignments
// @Produce json
// @Param warehouseId path int true "Warehouse ID"
// @Success 200 {object} response.Envelope
// @Router /user-warehouses/check/{warehouseId} [get]
func (h *UserWarehouseHandler) CheckAccess(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	warehouseID, err := int64Param(c, "warehouseId")
	if err != nil {
		response.Error(c, err)
		return
	}
	check, err := h.service.CheckAccess(c.Request.Context(), claims, warehouseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, check, nil)
}
