package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/response"
)

type warehouseService interface {
	Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.Warehouse, error)
	List(ctx context.Context, filter models.WarehouseFilter, actor *models.JWTClaims) ([]models.Warehouse, error)
}

// WarehouseHandler exposes read endpoints for warehouses.
type WarehouseHandler struct {
	service warehouseService
}

// NewWarehouseHandler constructs the handler.
func NewWarehouseHandler(service warehouseService) *WarehouseHandler {
	return &WarehouseHandler{service: service}
}

// List godoc
// @Summary List warehouses accessible to the caller
// @Tags Warehouses
// @Produce json
// @Param active query bool false "Active warehouses only"
// @Param search query string false "Name search"
// @Success 200 {object} response.Envelope
// @Router /warehouses [get]
func (h *WarehouseHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.WarehouseFilter{
		ActiveOnly: c.Query("active") == "true",
		Search:     strings.TrimSpace(c.Query("search")),
		Limit:      intQuery(c, "limit"),
		Offset:     intQuery(c, "offset"),
	}
	warehouses, err := h.service.List(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, warehouses, nil)
}

// Get godoc
// @Summary Get warehouse detail
// @Tags Warehouses
// @Produce json
// @Param id path int true "Warehouse ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /warehouses/{id} [get]
func (h *WarehouseHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	warehouse, err := h.service.Get(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, warehouse, nil)
}
