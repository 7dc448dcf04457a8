package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, req dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error)
	Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.Request, error)
	List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.Request, error)
	Submit(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)
	Approve(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)
	MarkItemsReceived(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)
	MarkItemsInstalled(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)
	Complete(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)
	Cancel(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)
	Reject(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)
	AddItem(ctx context.Context, requestID int64, input dto.RequestItemInput, actor *models.JWTClaims) (*models.Request, error)
	RemoveItem(ctx context.Context, requestID, itemID int64, actor *models.JWTClaims) (*models.Request, error)
	History(ctx context.Context, id int64, actor *models.JWTClaims) ([]models.RequestHistory, error)
}

// RequestHandler exposes REST endpoints for the request workflow.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(service requestService) *RequestHandler {
	return &RequestHandler{service: service}
}

// Create godoc
// @Summary Create a request draft
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	request, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, request, nil)
}

// List godoc
// @Summary List requests visible to the caller
// @Tags Requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param warehouse_id query int false "Warehouse filter"
// @Param created_by query string false "Creator user ID"
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.RequestQuery{
		WarehouseID: int64Query(c, "warehouse_id"),
		CreatedBy:   strings.TrimSpace(c.Query("created_by")),
		Search:      strings.TrimSpace(c.Query("search")),
		Limit:       intQuery(c, "limit"),
		Offset:      intQuery(c, "offset"),
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.RequestStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToUpper(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			statuses = append(statuses, models.RequestStatus(part))
		}
		query.Status = statuses
	}
	requests, err := h.service.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get request detail
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
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
	request, err := h.service.Get(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// History godoc
// @Summary Get the transition history of a request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id}/history [get]
func (h *RequestHandler) History(c *gin.Context) {
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
	history, err := h.service.History(c.Request.Context(), id, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// Submit godoc
// @Summary Submit a draft for approval
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/submit [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.Submit)
}

// Approve godoc
// @Summary Approve a submitted request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *RequestHandler) Approve(c *gin.Context) {
	h.transition(c, h.service.Approve)
}

// Receive godoc
// @Summary Mark request items as received
// @Description Records receipt and creates matching income inventory transactions.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/receive [post]
func (h *RequestHandler) Receive(c *gin.Context) {
	h.transition(c, h.service.MarkItemsReceived)
}

// Install godoc
// @Summary Mark request items as installed
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/install [post]
func (h *RequestHandler) Install(c *gin.Context) {
	h.transition(c, h.service.MarkItemsInstalled)
}

// Complete godoc
// @Summary Complete an installed request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/complete [post]
func (h *RequestHandler) Complete(c *gin.Context) {
	h.transition(c, h.service.Complete)
}

// Cancel godoc
// @Summary Cancel a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/cancel [post]
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.transition(c, h.service.Cancel)
}

// Reject godoc
// @Summary Reject a submitted request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.TransitionRequest false "Optional comment"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *RequestHandler) Reject(c *gin.Context) {
	h.transition(c, h.service.Reject)
}

// AddItem godoc
// @Summary Add an item to a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.RequestItemInput true "Item payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/items [post]
func (h *RequestHandler) AddItem(c *gin.Context) {
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
	var input dto.RequestItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid item payload"))
		return
	}
	request, err := h.service.AddItem(c.Request.Context(), id, input, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// RemoveItem godoc
// @Summary Remove an item from a request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Param itemId path int true "Item ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/items/{itemId} [delete]
func (h *RequestHandler) RemoveItem(c *gin.Context) {
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
	itemID, err := int64Param(c, "itemId")
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.service.RemoveItem(c.Request.Context(), id, itemID, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

type transitionFunc func(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error)

func (h *RequestHandler) transition(c *gin.Context, fn transitionFunc) {
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
	var req dto.TransitionRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid transition payload"))
			return
		}
	}
	request, err := fn(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
