package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	"github.com/polterabyte/inventory-ctrl-api/internal/service"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/response"
)

type transactionService interface {
	List(ctx context.Context, query dto.TransactionQuery, actor *models.JWTClaims) ([]models.InventoryTransaction, error)
	ListByRequest(ctx context.Context, requestID int64) ([]models.InventoryTransaction, error)
	Export(ctx context.Context, query dto.TransactionQuery, format service.ExportFormat, actor *models.JWTClaims) (*service.ExportResult, error)
}

// TransactionHandler exposes inventory transaction endpoints.
type TransactionHandler struct {
	service transactionService
}

// NewTransactionHandler constructs the handler.
func NewTransactionHandler(service transactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// List godoc
// @Summary List inventory transactions
// @Tags Transactions
// @Produce json
// @Param type query string false "Comma separated transaction types"
// @Param product_id query int false "Product filter"
// @Param warehouse_id query int false "Warehouse filter"
// @Param request_id query int false "Request filter"
// @Param date_from query string false "RFC3339 lower bound"
// @Param date_to query string false "RFC3339 upper bound"
// @Success 200 {object} response.Envelope
// @Router /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query, err := transactionQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	transactions, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, nil)
}

// ListByRequest godoc
// @Summary List transactions created by a request
// @Tags Transactions
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/transactions [get]
func (h *TransactionHandler) ListByRequest(c *gin.Context) {
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
	transactions, err := h.service.ListByRequest(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transactions, nil)
}

// Export godoc
// @Summary Export transactions as CSV or PDF
// @Tags Transactions
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /transactions/export [get]
func (h *TransactionHandler) Export(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query, err := transactionQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	result, err := h.service.Export(c.Request.Context(), query, format, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}

func transactionQuery(c *gin.Context) (dto.TransactionQuery, error) {
	query := dto.TransactionQuery{
		ProductID:   int64Query(c, "product_id"),
		WarehouseID: int64Query(c, "warehouse_id"),
		RequestID:   int64Query(c, "request_id"),
		Limit:       intQuery(c, "limit"),
		Offset:      intQuery(c, "offset"),
	}
	if rawTypes := c.Query("type"); rawTypes != "" {
		parts := strings.Split(rawTypes, ",")
		types := make([]models.TransactionType, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			types = append(types, models.TransactionType(part))
		}
		query.Types = types
	}
	if raw := c.Query("date_from"); raw != "" {
		from, err := parseQueryTime(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid date_from")
		}
		query.DateFrom = &from
	}
	if raw := c.Query("date_to"); raw != "" {
		to, err := parseQueryTime(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid date_to")
		}
		query.DateTo = &to
	}
	return query, nil
}

func parseQueryTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
