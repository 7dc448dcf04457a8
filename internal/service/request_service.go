package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	"github.com/polterabyte/inventory-ctrl-api/internal/repository"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

type requestStore interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	Transition(ctx context.Context, params repository.TransitionParams) error
	AddItem(ctx context.Context, item *models.RequestItem, allowed ...models.RequestStatus) error
	RemoveItem(ctx context.Context, requestID, itemID int64, allowed ...models.RequestStatus) error
}

type warehouseAccess interface {
	CheckAccess(ctx context.Context, actor *models.JWTClaims, warehouseID int64) (models.AccessCheck, error)
	RequireAccess(ctx context.Context, actor *models.JWTClaims, warehouseID int64, required models.AccessLevel) error
	AccessibleWarehouseIDs(ctx context.Context, actor *models.JWTClaims) ([]int64, error)
}

type receiptBuilder interface {
	ReceiptTransactions(ctx context.Context, request *models.Request, actorUserID string) ([]models.InventoryTransaction, error)
}

type productChecker interface {
	ActiveIDs(ctx context.Context, ids []int64) (map[int64]bool, error)
}

type transitionNotifier interface {
	NotifyRequestTransition(ctx context.Context, request *models.Request, from, to models.RequestStatus)
}

type transitionObserver interface {
	ObserveTransition(toStatus string, success bool)
}

// RequestService drives the material request workflow. Status transitions
// follow models.RequestTransitions; every mutation requires full access to
// the warehouses the request touches, and every transition appends a history
// entry atomically with the status change.
type RequestService struct {
	repo      requestStore
	access    warehouseAccess
	products  productChecker
	receipts  receiptBuilder
	notifier  transitionNotifier
	metrics   transitionObserver
	audit     auditSink
	logger    *zap.Logger
	validator *validator.Validate

	allowSubmittedItemEdits bool
	maxItems                int
}

// RequestServiceOption configures the service.
type RequestServiceOption func(*RequestService)

// WithRequestAudit sets the audit sink for workflow mutations.
func WithRequestAudit(audit auditSink) RequestServiceOption {
	return func(s *RequestService) { s.audit = audit }
}

// WithRequestNotifier sets the fire-and-forget transition notifier.
func WithRequestNotifier(notifier transitionNotifier) RequestServiceOption {
	return func(s *RequestService) { s.notifier = notifier }
}

// WithTransitionMetrics counts transition outcomes on the given observer.
func WithTransitionMetrics(metrics transitionObserver) RequestServiceOption {
	return func(s *RequestService) { s.metrics = metrics }
}

// WithSubmittedItemEdits keeps item add/remove open on SUBMITTED requests.
func WithSubmittedItemEdits(allow bool) RequestServiceOption {
	return func(s *RequestService) { s.allowSubmittedItemEdits = allow }
}

// WithMaxItemsPerRequest caps how many items a request may carry.
func WithMaxItemsPerRequest(max int) RequestServiceOption {
	return func(s *RequestService) {
		if max > 0 {
			s.maxItems = max
		}
	}
}

// NewRequestService constructs the service.
func NewRequestService(repo requestStore, access warehouseAccess, products productChecker, receipts receiptBuilder, logger *zap.Logger, validate *validator.Validate, opts ...RequestServiceOption) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &RequestService{
		repo:      repo,
		access:    access,
		products:  products,
		receipts:  receipts,
		logger:    logger,
		validator: validate,
		maxItems:  100,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create opens a new request in DRAFT. The actor needs full access to every
// warehouse referenced by the items, and every product must exist and be
// active.
func (s *RequestService) Create(ctx context.Context, req dto.CreateRequestRequest, actor *models.JWTClaims) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}
	if len(req.Items) > s.maxItems {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("a request may carry at most %d items", s.maxItems))
	}

	items := make([]models.RequestItem, 0, len(req.Items))
	for _, input := range req.Items {
		items = append(items, itemFromInput(input))
	}
	if err := s.checkItemWarehouses(ctx, actor, items); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestCreate, 0, nil, err)
		return nil, err
	}
	if err := s.checkItemProducts(ctx, items); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestCreate, 0, nil, err)
		return nil, err
	}

	request := &models.Request{
		Title:           req.Title,
		Description:     optionalString(req.Description),
		Status:          models.RequestStatusDraft,
		CreatedByUserID: actor.UserID,
		Items:           items,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestCreate, 0, nil, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.emitRequestAudit(ctx, actor, models.AuditActionRequestCreate, request.ID, map[string]interface{}{
		"title": request.Title,
		"items": len(request.Items),
	}, nil)
	return request, nil
}

// Get loads a request aggregate. Non-elevated actors see a request only when
// they created it or hold access to one of its warehouses.
func (s *RequestService) Get(ctx context.Context, id int64, actor *models.JWTClaims) (*models.Request, error) {
	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, request, actor); err != nil {
		return nil, err
	}
	return request, nil
}

// List returns requests visible to the actor. Non-elevated actors are scoped
// to their accessible warehouses plus requests they created themselves.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.Request, error) {
	filter := models.RequestFilter{
		Status:          query.Status,
		CreatedByUserID: query.CreatedBy,
		Search:          query.Search,
		Limit:           query.Limit,
		Offset:          query.Offset,
	}
	if query.WarehouseID > 0 {
		filter.WarehouseIDs = []int64{query.WarehouseID}
	}

	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.Role.IsElevated() {
		accessible, err := s.access.AccessibleWarehouseIDs(ctx, actor)
		if err != nil {
			return nil, err
		}
		if query.WarehouseID > 0 {
			if !containsID(accessible, query.WarehouseID) {
				return nil, appErrors.ErrAccessDenied
			}
		} else if query.CreatedBy == actor.UserID {
			// Own requests are visible regardless of warehouse scope.
		} else {
			if len(accessible) == 0 {
				return []models.Request{}, nil
			}
			filter.WarehouseIDs = accessible
		}
	}

	requests, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// Submit moves a DRAFT request into review. Only the creator or an elevated
// role may submit.
func (s *RequestService) Submit(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.RequestStatusSubmitted, req, actor, transitionOpts{creatorOnly: true})
}

// Approve accepts a SUBMITTED request for fulfillment.
func (s *RequestService) Approve(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.RequestStatusApproved, req, actor, transitionOpts{})
}

// MarkItemsReceived records delivery of the requested goods. One INCOME
// inventory transaction is created per item in the same database transaction
// as the status change; if any transaction cannot be built the whole
// operation fails and the status stays APPROVED.
func (s *RequestService) MarkItemsReceived(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.RequestStatusItemsReceived, req, actor, transitionOpts{buildReceipts: true})
}

// MarkItemsInstalled records installation of received goods.
func (s *RequestService) MarkItemsInstalled(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.RequestStatusItemsInstalled, req, actor, transitionOpts{})
}

// Complete closes the workflow for an installed request.
func (s *RequestService) Complete(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.RequestStatusCompleted, req, actor, transitionOpts{})
}

// Cancel aborts the request from any non-terminal status.
func (s *RequestService) Cancel(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.RequestStatusCancelled, req, actor, transitionOpts{})
}

// Reject declines a SUBMITTED request.
func (s *RequestService) Reject(ctx context.Context, id int64, req dto.TransitionRequest, actor *models.JWTClaims) (*models.Request, error) {
	return s.transition(ctx, id, models.RequestStatusRejected, req, actor, transitionOpts{})
}

type transitionOpts struct {
	creatorOnly   bool
	buildReceipts bool
}

func (s *RequestService) transition(ctx context.Context, id int64, to models.RequestStatus, req dto.TransitionRequest, actor *models.JWTClaims, opts transitionOpts) (*models.Request, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transition payload")
	}

	request, err := s.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	from := request.Status

	// Authorization comes first so transition errors never reveal the
	// status of a request the actor cannot see.
	if err := s.requireFullAccess(ctx, actor, request); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestTransition, id, transitionValues(from, to), err)
		s.observeTransition(to, false)
		return nil, err
	}
	if opts.creatorOnly && !actor.Role.IsElevated() && request.CreatedByUserID != actor.UserID {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestTransition, id, transitionValues(from, to), appErrors.ErrForbidden)
		s.observeTransition(to, false)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the creator may submit the request")
	}
	if !models.CanTransition(from, to) {
		err := appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move request from %s to %s", from, to))
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestTransition, id, transitionValues(from, to), err)
		s.observeTransition(to, false)
		return nil, err
	}

	var transactions []models.InventoryTransaction
	if opts.buildReceipts {
		transactions, err = s.receipts.ReceiptTransactions(ctx, request, actor.UserID)
		if err != nil {
			s.emitRequestAudit(ctx, actor, models.AuditActionRequestTransition, id, transitionValues(from, to), err)
			s.observeTransition(to, false)
			return nil, err
		}
	}

	err = s.repo.Transition(ctx, repository.TransitionParams{
		RequestID:    id,
		FromStatus:   from,
		ToStatus:     to,
		ActorUserID:  actor.UserID,
		Comment:      optionalString(req.Comment),
		Transactions: transactions,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrConcurrencyConflict
		} else {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply transition")
		}
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestTransition, id, transitionValues(from, to), err)
		s.observeTransition(to, false)
		return nil, err
	}

	s.emitRequestAudit(ctx, actor, models.AuditActionRequestTransition, id, transitionValues(from, to), nil)
	s.observeTransition(to, true)
	if s.notifier != nil {
		s.notifier.NotifyRequestTransition(ctx, request, from, to)
	}
	return s.loadRequest(ctx, id)
}

// AddItem appends an item to a request still open for editing. Editing is
// allowed in DRAFT and, when configured, in SUBMITTED.
func (s *RequestService) AddItem(ctx context.Context, requestID int64, input dto.RequestItemInput, actor *models.JWTClaims) (*models.Request, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid item payload")
	}

	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, request, actor); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemAdd, requestID, nil, err)
		return nil, err
	}
	if len(request.Items) >= s.maxItems {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("a request may carry at most %d items", s.maxItems))
	}

	item := itemFromInput(input)
	item.RequestID = requestID
	if err := s.access.RequireAccess(ctx, actor, item.WarehouseID, models.AccessLevelFull); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemAdd, requestID, nil, err)
		return nil, err
	}
	if err := s.checkItemProducts(ctx, []models.RequestItem{item}); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemAdd, requestID, nil, err)
		return nil, err
	}

	if err := s.repo.AddItem(ctx, &item, s.editableStatuses()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.ErrConcurrencyConflict
			s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemAdd, requestID, nil, err)
			return nil, err
		}
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemAdd, requestID, nil, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add item")
	}

	s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemAdd, requestID, map[string]interface{}{
		"item_id":      item.ID,
		"product_id":   item.ProductID,
		"warehouse_id": item.WarehouseID,
		"quantity":     item.Quantity,
	}, nil)
	return s.loadRequest(ctx, requestID)
}

// RemoveItem deletes an item from a request still open for editing. The last
// item cannot be removed; a request always carries at least one.
func (s *RequestService) RemoveItem(ctx context.Context, requestID, itemID int64, actor *models.JWTClaims) (*models.Request, error) {
	request, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, request, actor); err != nil {
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemRemove, requestID, nil, err)
		return nil, err
	}
	if len(request.Items) <= 1 {
		err := appErrors.Clone(appErrors.ErrInvalidOperation, "a request must keep at least one item")
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemRemove, requestID, nil, err)
		return nil, err
	}

	if err := s.repo.RemoveItem(ctx, requestID, itemID, s.editableStatuses()...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The snapshot loaded above tells the two zero-row causes apart:
			// an item it never carried is a miss, an item it did carry means
			// a concurrent transition closed the request between the check
			// and the delete.
			if !requestHasItem(request, itemID) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "item not found on this request")
			}
			err = appErrors.ErrConcurrencyConflict
			s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemRemove, requestID, nil, err)
			return nil, err
		}
		s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemRemove, requestID, nil, err)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove item")
	}

	s.emitRequestAudit(ctx, actor, models.AuditActionRequestItemRemove, requestID, map[string]interface{}{"item_id": itemID}, nil)
	return s.loadRequest(ctx, requestID)
}

// History returns the append-only transition trail of a request.
func (s *RequestService) History(ctx context.Context, id int64, actor *models.JWTClaims) ([]models.RequestHistory, error) {
	request, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	return request.History, nil
}

func (s *RequestService) loadRequest(ctx context.Context, id int64) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}

func (s *RequestService) ensureVisible(ctx context.Context, request *models.Request, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role.IsElevated() || request.CreatedByUserID == actor.UserID {
		return nil
	}
	for _, warehouseID := range request.WarehouseIDs() {
		check, err := s.access.CheckAccess(ctx, actor, warehouseID)
		if err != nil {
			return err
		}
		if check.HasAccess {
			return nil
		}
	}
	return appErrors.ErrAccessDenied
}

// editableStatuses lists the statuses in which items may be added or removed.
// Repository item writes are guarded on this same set so a transition racing
// an edit cannot slip an item into a closed request.
func (s *RequestService) editableStatuses() []models.RequestStatus {
	statuses := []models.RequestStatus{models.RequestStatusDraft}
	if s.allowSubmittedItemEdits {
		statuses = append(statuses, models.RequestStatusSubmitted)
	}
	return statuses
}

func requestHasItem(request *models.Request, itemID int64) bool {
	for _, item := range request.Items {
		if item.ID == itemID {
			return true
		}
	}
	return false
}

func (s *RequestService) ensureEditable(ctx context.Context, request *models.Request, actor *models.JWTClaims) error {
	editable := false
	for _, status := range s.editableStatuses() {
		if request.Status == status {
			editable = true
			break
		}
	}
	if !editable {
		return appErrors.Clone(appErrors.ErrInvalidOperation,
			fmt.Sprintf("items cannot be changed while the request is %s", request.Status))
	}
	return s.requireFullAccess(ctx, actor, request)
}

func (s *RequestService) requireFullAccess(ctx context.Context, actor *models.JWTClaims, request *models.Request) error {
	for _, warehouseID := range request.WarehouseIDs() {
		if err := s.access.RequireAccess(ctx, actor, warehouseID, models.AccessLevelFull); err != nil {
			return err
		}
	}
	return nil
}

func (s *RequestService) checkItemWarehouses(ctx context.Context, actor *models.JWTClaims, items []models.RequestItem) error {
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.WarehouseID]; ok {
			continue
		}
		seen[item.WarehouseID] = struct{}{}
		if err := s.access.RequireAccess(ctx, actor, item.WarehouseID, models.AccessLevelFull); err != nil {
			return err
		}
	}
	return nil
}

func (s *RequestService) checkItemProducts(ctx context.Context, items []models.RequestItem) error {
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	active, err := s.products.ActiveIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve products")
	}
	for _, id := range ids {
		if !active[id] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("product %d does not exist or is inactive", id))
		}
	}
	return nil
}

func (s *RequestService) observeTransition(to models.RequestStatus, success bool) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(string(to), success)
	}
}

func (s *RequestService) emitRequestAudit(ctx context.Context, actor *models.JWTClaims, action string, requestID int64, values map[string]interface{}, opErr error) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:   action,
		Resource: "request",
		Success:  opErr == nil,
		Severity: models.AuditSeverityInfo,
	}
	if requestID > 0 {
		entry.ResourceID = strPtr(strconv.FormatInt(requestID, 10))
	}
	if actor != nil {
		entry.UserID = &actor.UserID
	}
	if values != nil {
		entry.NewValues = mustJSON(values)
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

func transitionValues(from, to models.RequestStatus) map[string]interface{} {
	return map[string]interface{}{"from": string(from), "to": string(to)}
}

func itemFromInput(input dto.RequestItemInput) models.RequestItem {
	return models.RequestItem{
		ProductID:   input.ProductID,
		WarehouseID: input.WarehouseID,
		Quantity:    input.Quantity,
		LocationID:  input.LocationID,
		Description: optionalString(input.Description),
		UnitPrice:   input.UnitPrice,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
