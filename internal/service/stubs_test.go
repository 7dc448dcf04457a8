package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	"github.com/polterabyte/inventory-ctrl-api/internal/repository"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

type accessStub struct {
	grants map[string]map[int64]models.AccessLevel
}

func newAccessStub() *accessStub {
	return &accessStub{grants: make(map[string]map[int64]models.AccessLevel)}
}

func (a *accessStub) grant(userID string, warehouseID int64, level models.AccessLevel) {
	if a.grants[userID] == nil {
		a.grants[userID] = make(map[int64]models.AccessLevel)
	}
	a.grants[userID][warehouseID] = level
}

func (a *accessStub) CheckAccess(ctx context.Context, actor *models.JWTClaims, warehouseID int64) (models.AccessCheck, error) {
	if actor == nil {
		return models.AccessCheck{}, nil
	}
	if actor.Role.IsElevated() {
		return models.AccessCheck{HasAccess: true, AccessLevel: models.AccessLevelFull}, nil
	}
	level, ok := a.grants[actor.UserID][warehouseID]
	if !ok {
		return models.AccessCheck{}, nil
	}
	return models.AccessCheck{HasAccess: true, AccessLevel: level}, nil
}

func (a *accessStub) RequireAccess(ctx context.Context, actor *models.JWTClaims, warehouseID int64, required models.AccessLevel) error {
	check, err := a.CheckAccess(ctx, actor, warehouseID)
	if err != nil {
		return err
	}
	if !check.HasAccess || !check.AccessLevel.Allows(required) {
		return appErrors.ErrAccessDenied
	}
	return nil
}

func (a *accessStub) AccessibleWarehouseIDs(ctx context.Context, actor *models.JWTClaims) ([]int64, error) {
	ids := make([]int64, 0, len(a.grants[actor.UserID]))
	for id := range a.grants[actor.UserID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type auditStub struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (a *auditStub) Create(ctx context.Context, entry *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

func (a *auditStub) byAction(action string) []*models.AuditLog {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.AuditLog
	for _, entry := range a.entries {
		if entry.Action == action {
			out = append(out, entry)
		}
	}
	return out
}

type productStub struct {
	inactive map[int64]bool
}

func (p *productStub) ActiveIDs(ctx context.Context, ids []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(ids))
	for _, id := range ids {
		result[id] = !p.inactive[id]
	}
	return result, nil
}

type requestRepoStub struct {
	seq            int64
	itemSeq        int64
	requests       map[int64]*models.Request
	transactions   []models.InventoryTransaction
	failTransition bool
	lastFilter     models.RequestFilter

	// beforeItemWrite, when set, runs ahead of AddItem/RemoveItem so tests
	// can interleave a status change with an item edit.
	beforeItemWrite func()
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{requests: make(map[int64]*models.Request)}
}

func (r *requestRepoStub) Create(ctx context.Context, request *models.Request) error {
	r.seq++
	request.ID = r.seq
	now := time.Now().UTC()
	request.CreatedAt = now
	request.UpdatedAt = now
	for i := range request.Items {
		r.itemSeq++
		request.Items[i].ID = r.itemSeq
		request.Items[i].RequestID = request.ID
	}
	request.History = []models.RequestHistory{{
		RequestID:   request.ID,
		NewStatus:   request.Status,
		ActorUserID: request.CreatedByUserID,
		CreatedAt:   now,
	}}
	stored := cloneRequest(request)
	r.requests[request.ID] = stored
	return nil
}

func (r *requestRepoStub) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	stored, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneRequest(stored), nil
}

func (r *requestRepoStub) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	r.lastFilter = filter
	out := make([]models.Request, 0, len(r.requests))
	for _, stored := range r.requests {
		if len(filter.Status) > 0 && !containsStatus(filter.Status, stored.Status) {
			continue
		}
		if filter.CreatedByUserID != "" && stored.CreatedByUserID != filter.CreatedByUserID {
			continue
		}
		if len(filter.WarehouseIDs) > 0 && !intersects(stored.WarehouseIDs(), filter.WarehouseIDs) {
			continue
		}
		out = append(out, *cloneRequest(stored))
	}
	return out, nil
}

func (r *requestRepoStub) Transition(ctx context.Context, params repository.TransitionParams) error {
	stored, ok := r.requests[params.RequestID]
	if !ok {
		return sql.ErrNoRows
	}
	if r.failTransition || stored.Status != params.FromStatus {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	prev := stored.Status
	stored.Status = params.ToStatus
	stored.UpdatedAt = now
	stored.History = append(stored.History, models.RequestHistory{
		RequestID:      params.RequestID,
		PreviousStatus: &prev,
		NewStatus:      params.ToStatus,
		ActorUserID:    params.ActorUserID,
		Comment:        params.Comment,
		CreatedAt:      now,
	})
	for i := range params.Transactions {
		params.Transactions[i].ID = int64(len(r.transactions) + 1)
		r.transactions = append(r.transactions, params.Transactions[i])
	}
	return nil
}

func (r *requestRepoStub) AddItem(ctx context.Context, item *models.RequestItem, allowed ...models.RequestStatus) error {
	if r.beforeItemWrite != nil {
		r.beforeItemWrite()
	}
	stored, ok := r.requests[item.RequestID]
	if !ok || !statusIn(stored.Status, allowed) {
		return sql.ErrNoRows
	}
	r.itemSeq++
	item.ID = r.itemSeq
	stored.Items = append(stored.Items, *item)
	return nil
}

func (r *requestRepoStub) RemoveItem(ctx context.Context, requestID, itemID int64, allowed ...models.RequestStatus) error {
	if r.beforeItemWrite != nil {
		r.beforeItemWrite()
	}
	stored, ok := r.requests[requestID]
	if !ok || !statusIn(stored.Status, allowed) {
		return sql.ErrNoRows
	}
	for i, item := range stored.Items {
		if item.ID == itemID {
			stored.Items = append(stored.Items[:i], stored.Items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func statusIn(status models.RequestStatus, set []models.RequestStatus) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}

// setStatus forcibly rewrites the stored status, bypassing the workflow.
func (r *requestRepoStub) setStatus(id int64, status models.RequestStatus) {
	if stored, ok := r.requests[id]; ok {
		stored.Status = status
	}
}

type txRepoStub struct {
	transactions []models.InventoryTransaction
	lastFilter   models.TransactionFilter
}

func (r *txRepoStub) List(ctx context.Context, filter models.TransactionFilter) ([]models.InventoryTransaction, error) {
	r.lastFilter = filter
	out := make([]models.InventoryTransaction, 0, len(r.transactions))
	for _, txn := range r.transactions {
		if len(filter.WarehouseIDs) > 0 && !containsID(filter.WarehouseIDs, txn.WarehouseID) {
			continue
		}
		out = append(out, txn)
	}
	return out, nil
}

func (r *txRepoStub) ListByRequest(ctx context.Context, requestID int64) ([]models.InventoryTransaction, error) {
	var out []models.InventoryTransaction
	for _, txn := range r.transactions {
		if txn.RequestID != nil && *txn.RequestID == requestID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func cloneRequest(in *models.Request) *models.Request {
	out := *in
	out.Items = append([]models.RequestItem(nil), in.Items...)
	out.History = append([]models.RequestHistory(nil), in.History...)
	return &out
}

func containsStatus(statuses []models.RequestStatus, status models.RequestStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func intersects(a, b []int64) bool {
	for _, x := range a {
		if containsID(b, x) {
			return true
		}
	}
	return false
}
