package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/middleware"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/response"
)

type stubRequestService struct {
	request   *models.Request
	history   []models.RequestHistory
	err       error
	lastQuery dto.RequestQuery
}

func (s *stubRequestService) Create(context.Context, dto.CreateRequestRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) Get(context.Context, int64, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) List(_ context.Context, query dto.RequestQuery, _ *models.JWTClaims) ([]models.Request, error) {
	s.lastQuery = query
	if s.err != nil {
		return nil, s.err
	}
	if s.request == nil {
		return []models.Request{}, nil
	}
	return []models.Request{*s.request}, nil
}

func (s *stubRequestService) Submit(context.Context, int64, dto.TransitionRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) Approve(context.Context, int64, dto.TransitionRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) MarkItemsReceived(context.Context, int64, dto.TransitionRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) MarkItemsInstalled(context.Context, int64, dto.TransitionRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) Complete(context.Context, int64, dto.TransitionRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) Cancel(context.Context, int64, dto.TransitionRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) Reject(context.Context, int64, dto.TransitionRequest, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) AddItem(context.Context, int64, dto.RequestItemInput, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) RemoveItem(context.Context, int64, int64, *models.JWTClaims) (*models.Request, error) {
	return s.request, s.err
}

func (s *stubRequestService) History(context.Context, int64, *models.JWTClaims) ([]models.RequestHistory, error) {
	return s.history, s.err
}

func testContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, recorder
}

func authenticate(c *gin.Context, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
}

func TestRequestHandlerCreate(t *testing.T) {
	svc := &stubRequestService{request: &models.Request{ID: 7, Status: models.RequestStatusDraft}}
	handler := NewRequestHandler(svc)

	c, recorder := testContext(t, http.MethodPost, "/api/v1/requests", dto.CreateRequestRequest{
		Title: "Replacement pumps",
		Items: []dto.RequestItemInput{{ProductID: 1, WarehouseID: 2, Quantity: 3}},
	})
	authenticate(c, models.RoleUser)

	handler.Create(c)

	if recorder.Code != http.StatusCreated {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	var envelope response.Envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error != nil {
		t.Fatalf("unexpected error: %v", envelope.Error)
	}
}

func TestRequestHandlerCreateRequiresAuth(t *testing.T) {
	handler := NewRequestHandler(&stubRequestService{})

	c, recorder := testContext(t, http.MethodPost, "/api/v1/requests", dto.CreateRequestRequest{Title: "x"})

	handler.Create(c)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequestHandlerCreateRejectsMalformedBody(t *testing.T) {
	handler := NewRequestHandler(&stubRequestService{})

	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/requests", bytes.NewReader([]byte("{not json")))
	authenticate(c, models.RoleUser)

	handler.Create(c)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequestHandlerListParsesStatuses(t *testing.T) {
	svc := &stubRequestService{}
	handler := NewRequestHandler(svc)

	c, recorder := testContext(t, http.MethodGet, "/api/v1/requests?status=draft,submitted&warehouse_id=4", nil)
	authenticate(c, models.RoleAdmin)

	handler.List(c)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if len(svc.lastQuery.Status) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(svc.lastQuery.Status))
	}
	if svc.lastQuery.Status[0] != models.RequestStatusDraft {
		t.Fatalf("unexpected status filter: %s", svc.lastQuery.Status[0])
	}
	if svc.lastQuery.WarehouseID != 4 {
		t.Fatalf("unexpected warehouse filter: %d", svc.lastQuery.WarehouseID)
	}
}

func TestRequestHandlerGetRejectsBadID(t *testing.T) {
	handler := NewRequestHandler(&stubRequestService{})

	c, recorder := testContext(t, http.MethodGet, "/api/v1/requests/abc", nil)
	authenticate(c, models.RoleUser)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequestHandlerTransitionConflict(t *testing.T) {
	svc := &stubRequestService{err: appErrors.ErrConcurrencyConflict}
	handler := NewRequestHandler(svc)

	c, recorder := testContext(t, http.MethodPost, "/api/v1/requests/7/approve", nil)
	authenticate(c, models.RoleManager)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.Approve(c)

	if recorder.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	var envelope response.Envelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Error == nil || envelope.Error.Code != appErrors.ErrConcurrencyConflict.Code {
		t.Fatalf("expected conflict error, got %+v", envelope.Error)
	}
}

func TestRequestHandlerTransitionWithComment(t *testing.T) {
	svc := &stubRequestService{request: &models.Request{ID: 7, Status: models.RequestStatusCancelled}}
	handler := NewRequestHandler(svc)

	c, recorder := testContext(t, http.MethodPost, "/api/v1/requests/7/cancel", dto.TransitionRequest{Comment: "ordered twice"})
	authenticate(c, models.RoleUser)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.Cancel(c)

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
