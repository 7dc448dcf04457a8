package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

func creatorClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "creator", Role: models.RoleUser}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}
}

func newWorkflowFixture(t *testing.T, opts ...RequestServiceOption) (*RequestService, *requestRepoStub, *accessStub, *auditStub) {
	t.Helper()
	repo := newRequestRepoStub()
	access := newAccessStub()
	access.grant("creator", 2, models.AccessLevelFull)
	products := &productStub{}
	txRepo := &txRepoStub{}
	receipts := NewTransactionService(txRepo, products, access, nil)
	audit := &auditStub{}
	opts = append([]RequestServiceOption{WithRequestAudit(audit)}, opts...)
	svc := NewRequestService(repo, access, products, receipts, nil, nil, opts...)
	return svc, repo, access, audit
}

func createDraft(t *testing.T, svc *RequestService) *models.Request {
	t.Helper()
	price := decimal.NewFromInt(10)
	request, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Title: "Replacement pumps",
		Items: []dto.RequestItemInput{
			{ProductID: 1, WarehouseID: 2, Quantity: 3, UnitPrice: &price},
		},
	}, creatorClaims())
	require.NoError(t, err)
	return request
}

func TestRequestServiceCreateStartsInDraft(t *testing.T) {
	svc, _, _, audit := newWorkflowFixture(t)

	request := createDraft(t, svc)
	require.Equal(t, models.RequestStatusDraft, request.Status)
	require.Len(t, request.Items, 1)
	require.Len(t, request.History, 1)
	require.Nil(t, request.History[0].PreviousStatus)
	require.Len(t, audit.byAction(models.AuditActionRequestCreate), 1)
}

func TestRequestServiceCreateRequiresFullAccess(t *testing.T) {
	svc, _, access, _ := newWorkflowFixture(t)
	access.grant("creator", 5, models.AccessLevelReadOnly)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Title: "Read only attempt",
		Items: []dto.RequestItemInput{{ProductID: 1, WarehouseID: 5, Quantity: 1}},
	}, creatorClaims())
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)
}

func TestRequestServiceCreateRejectsInactiveProduct(t *testing.T) {
	repo := newRequestRepoStub()
	access := newAccessStub()
	access.grant("creator", 2, models.AccessLevelFull)
	products := &productStub{inactive: map[int64]bool{9: true}}
	svc := NewRequestService(repo, access, products, NewTransactionService(&txRepoStub{}, products, access, nil), nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Title: "Unknown product",
		Items: []dto.RequestItemInput{{ProductID: 9, WarehouseID: 2, Quantity: 1}},
	}, creatorClaims())
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRequestServiceFullLifecycle(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture(t)
	actor := creatorClaims()
	ctx := context.Background()

	request := createDraft(t, svc)

	request, err := svc.Submit(ctx, request.ID, dto.TransitionRequest{}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusSubmitted, request.Status)

	request, err = svc.Approve(ctx, request.ID, dto.TransitionRequest{Comment: "go ahead"}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusApproved, request.Status)

	request, err = svc.MarkItemsReceived(ctx, request.ID, dto.TransitionRequest{}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusItemsReceived, request.Status)

	// Goods receipt commits one INCOME row per item with the request linked.
	require.Len(t, repo.transactions, 1)
	txn := repo.transactions[0]
	require.Equal(t, models.TransactionTypeIncome, txn.Type)
	require.Equal(t, int64(3), txn.Quantity)
	require.NotNil(t, txn.RequestID)
	require.Equal(t, request.ID, *txn.RequestID)
	require.NotNil(t, txn.TotalPrice)
	require.True(t, txn.TotalPrice.Equal(decimal.NewFromInt(30)))

	request, err = svc.MarkItemsInstalled(ctx, request.ID, dto.TransitionRequest{}, actor)
	require.NoError(t, err)

	request, err = svc.Complete(ctx, request.ID, dto.TransitionRequest{}, actor)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusCompleted, request.Status)

	// The history chain mirrors every hop in order.
	require.Len(t, request.History, 6)
	expected := []models.RequestStatus{
		models.RequestStatusDraft,
		models.RequestStatusSubmitted,
		models.RequestStatusApproved,
		models.RequestStatusItemsReceived,
		models.RequestStatusItemsInstalled,
		models.RequestStatusCompleted,
	}
	for i, entry := range request.History {
		require.Equal(t, expected[i], entry.NewStatus)
		if i == 0 {
			require.Nil(t, entry.PreviousStatus)
		} else {
			require.Equal(t, expected[i-1], *entry.PreviousStatus)
		}
	}
}

func TestRequestServiceTransitionTableIsEnforcedEverywhere(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture(t)
	actor := creatorClaims()
	ctx := context.Background()

	operations := map[models.RequestStatus]func(int64) error{
		models.RequestStatusSubmitted: func(id int64) error {
			_, err := svc.Submit(ctx, id, dto.TransitionRequest{}, actor)
			return err
		},
		models.RequestStatusApproved: func(id int64) error {
			_, err := svc.Approve(ctx, id, dto.TransitionRequest{}, actor)
			return err
		},
		models.RequestStatusItemsReceived: func(id int64) error {
			_, err := svc.MarkItemsReceived(ctx, id, dto.TransitionRequest{}, actor)
			return err
		},
		models.RequestStatusItemsInstalled: func(id int64) error {
			_, err := svc.MarkItemsInstalled(ctx, id, dto.TransitionRequest{}, actor)
			return err
		},
		models.RequestStatusCompleted: func(id int64) error {
			_, err := svc.Complete(ctx, id, dto.TransitionRequest{}, actor)
			return err
		},
		models.RequestStatusCancelled: func(id int64) error {
			_, err := svc.Cancel(ctx, id, dto.TransitionRequest{}, actor)
			return err
		},
		models.RequestStatusRejected: func(id int64) error {
			_, err := svc.Reject(ctx, id, dto.TransitionRequest{}, actor)
			return err
		},
	}

	for _, from := range models.RequestStatuses {
		for to, op := range operations {
			request := createDraft(t, svc)
			repo.setStatus(request.ID, from)

			err := op(request.ID)
			if models.CanTransition(from, to) {
				require.NoError(t, err, "%s -> %s should be allowed", from, to)
			} else {
				require.ErrorIs(t, err, appErrors.ErrInvalidTransition, "%s -> %s should be rejected", from, to)
			}
		}
	}
}

func TestRequestServiceSubmitCreatorOnly(t *testing.T) {
	svc, _, access, _ := newWorkflowFixture(t)
	request := createDraft(t, svc)

	outsider := &models.JWTClaims{UserID: "someone-else", Role: models.RoleUser}
	access.grant("someone-else", 2, models.AccessLevelFull)

	_, err := svc.Submit(context.Background(), request.ID, dto.TransitionRequest{}, outsider)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	// Elevated roles may submit on behalf of the creator.
	_, err = svc.Submit(context.Background(), request.ID, dto.TransitionRequest{}, adminClaims())
	require.NoError(t, err)
}

func TestRequestServiceConcurrentWriterLoses(t *testing.T) {
	svc, repo, _, audit := newWorkflowFixture(t)
	request := createDraft(t, svc)

	repo.failTransition = true
	_, err := svc.Submit(context.Background(), request.ID, dto.TransitionRequest{}, creatorClaims())
	require.ErrorIs(t, err, appErrors.ErrConcurrencyConflict)

	failures := audit.byAction(models.AuditActionRequestTransition)
	require.NotEmpty(t, failures)
	require.False(t, failures[len(failures)-1].Success)
}

func TestRequestServiceReceiptAbortsOnInactiveProduct(t *testing.T) {
	repo := newRequestRepoStub()
	access := newAccessStub()
	access.grant("creator", 2, models.AccessLevelFull)
	products := &productStub{}
	svc := NewRequestService(repo, access, products, NewTransactionService(&txRepoStub{}, products, access, nil), nil, nil)
	actor := creatorClaims()
	ctx := context.Background()

	request := createDraft(t, svc)
	repo.setStatus(request.ID, models.RequestStatusApproved)

	// The product catalog changes between approval and receipt.
	products.inactive = map[int64]bool{1: true}

	_, err := svc.MarkItemsReceived(ctx, request.ID, dto.TransitionRequest{}, actor)
	require.ErrorIs(t, err, appErrors.ErrInvalidOperation)

	// Nothing moved and nothing was written.
	current, err := svc.Get(ctx, request.ID, actor)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusApproved, current.Status)
	require.Empty(t, repo.transactions)
}

func TestRequestServiceItemEditingRules(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture(t)
	actor := creatorClaims()
	ctx := context.Background()

	request := createDraft(t, svc)

	request, err := svc.AddItem(ctx, request.ID, dto.RequestItemInput{ProductID: 4, WarehouseID: 2, Quantity: 1}, actor)
	require.NoError(t, err)
	require.Len(t, request.Items, 2)

	request, err = svc.RemoveItem(ctx, request.ID, request.Items[1].ID, actor)
	require.NoError(t, err)
	require.Len(t, request.Items, 1)

	// The last item must stay.
	_, err = svc.RemoveItem(ctx, request.ID, request.Items[0].ID, actor)
	require.ErrorIs(t, err, appErrors.ErrInvalidOperation)

	// Editing closes once the request leaves DRAFT.
	repo.setStatus(request.ID, models.RequestStatusApproved)
	_, err = svc.AddItem(ctx, request.ID, dto.RequestItemInput{ProductID: 4, WarehouseID: 2, Quantity: 1}, actor)
	require.ErrorIs(t, err, appErrors.ErrInvalidOperation)
}

func TestRequestServiceSubmittedItemEditsConfigurable(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture(t, WithSubmittedItemEdits(true))
	actor := creatorClaims()
	ctx := context.Background()

	request := createDraft(t, svc)
	repo.setStatus(request.ID, models.RequestStatusSubmitted)

	request, err := svc.AddItem(ctx, request.ID, dto.RequestItemInput{ProductID: 4, WarehouseID: 2, Quantity: 2}, actor)
	require.NoError(t, err)
	require.Len(t, request.Items, 2)
}

func TestRequestServiceGetVisibility(t *testing.T) {
	svc, _, access, _ := newWorkflowFixture(t)
	ctx := context.Background()

	request := createDraft(t, svc)

	// Creator always sees their own request.
	_, err := svc.Get(ctx, request.ID, creatorClaims())
	require.NoError(t, err)

	// A stranger with no warehouse overlap does not.
	stranger := &models.JWTClaims{UserID: "stranger", Role: models.RoleUser}
	_, err = svc.Get(ctx, request.ID, stranger)
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)

	// Read-only access to a referenced warehouse is enough to see it.
	access.grant("stranger", 2, models.AccessLevelReadOnly)
	_, err = svc.Get(ctx, request.ID, stranger)
	require.NoError(t, err)

	// But read-only is not enough to move it.
	_, err = svc.Cancel(ctx, request.ID, dto.TransitionRequest{}, stranger)
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)
}

func TestRequestServiceListScopesToAccessibleWarehouses(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture(t)
	ctx := context.Background()
	createDraft(t, svc)

	viewer := &models.JWTClaims{UserID: "viewer", Role: models.RoleUser}

	// No assignments means an empty result, not an error.
	list, err := svc.List(ctx, dto.RequestQuery{}, viewer)
	require.NoError(t, err)
	require.Empty(t, list)

	// Asking for a warehouse outside the accessible set is denied outright.
	_, err = svc.List(ctx, dto.RequestQuery{WarehouseID: 2}, viewer)
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)

	// Admins see everything.
	list, err = svc.List(ctx, dto.RequestQuery{}, adminClaims())
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Empty(t, repo.lastFilter.WarehouseIDs)
}

func TestRequestServiceDeniedCreateIsAudited(t *testing.T) {
	svc, _, access, audit := newWorkflowFixture(t)
	access.grant("creator", 5, models.AccessLevelReadOnly)

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Title: "Read only attempt",
		Items: []dto.RequestItemInput{{ProductID: 1, WarehouseID: 5, Quantity: 1}},
	}, creatorClaims())
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)

	// The denial leaves a trail too, not only successful creates.
	entries := audit.byAction(models.AuditActionRequestCreate)
	require.Len(t, entries, 1)
	require.False(t, entries[0].Success)
}

func TestRequestServiceInactiveProductCreateIsAudited(t *testing.T) {
	repo := newRequestRepoStub()
	access := newAccessStub()
	access.grant("creator", 2, models.AccessLevelFull)
	products := &productStub{inactive: map[int64]bool{9: true}}
	audit := &auditStub{}
	svc := NewRequestService(repo, access, products,
		NewTransactionService(&txRepoStub{}, products, access, nil), nil, nil,
		WithRequestAudit(audit))

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Title: "Unknown product",
		Items: []dto.RequestItemInput{{ProductID: 9, WarehouseID: 2, Quantity: 1}},
	}, creatorClaims())
	require.Error(t, err)

	entries := audit.byAction(models.AuditActionRequestCreate)
	require.Len(t, entries, 1)
	require.False(t, entries[0].Success)
}

func TestRequestServiceRejectedAddItemIsAudited(t *testing.T) {
	repo := newRequestRepoStub()
	access := newAccessStub()
	access.grant("creator", 2, models.AccessLevelFull)
	products := &productStub{}
	audit := &auditStub{}
	svc := NewRequestService(repo, access, products,
		NewTransactionService(&txRepoStub{}, products, access, nil), nil, nil,
		WithRequestAudit(audit))
	request := createDraft(t, svc)

	// The catalog retires the product before the item lands.
	products.inactive = map[int64]bool{4: true}
	_, err := svc.AddItem(context.Background(), request.ID,
		dto.RequestItemInput{ProductID: 4, WarehouseID: 2, Quantity: 1}, creatorClaims())
	require.Error(t, err)

	entries := audit.byAction(models.AuditActionRequestItemAdd)
	require.Len(t, entries, 1)
	require.False(t, entries[0].Success)
}

func TestRequestServiceTransitionChecksAccessFirst(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture(t)
	request := createDraft(t, svc)
	repo.setStatus(request.ID, models.RequestStatusApproved)

	// An actor without warehouse access learns nothing about the request's
	// state: the answer is access denied, not an invalid-transition hint.
	outsider := &models.JWTClaims{UserID: "outsider", Role: models.RoleUser}
	_, err := svc.Submit(context.Background(), request.ID, dto.TransitionRequest{}, outsider)
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)
}

type transitionObserverStub struct {
	observed []string
}

func (o *transitionObserverStub) ObserveTransition(toStatus string, success bool) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	o.observed = append(o.observed, toStatus+":"+outcome)
}

func TestRequestServiceTransitionsAreObserved(t *testing.T) {
	observer := &transitionObserverStub{}
	svc, repo, _, _ := newWorkflowFixture(t, WithTransitionMetrics(observer))
	actor := creatorClaims()
	ctx := context.Background()

	request := createDraft(t, svc)

	_, err := svc.Submit(ctx, request.ID, dto.TransitionRequest{}, actor)
	require.NoError(t, err)

	repo.failTransition = true
	_, err = svc.Approve(ctx, request.ID, dto.TransitionRequest{}, actor)
	require.ErrorIs(t, err, appErrors.ErrConcurrencyConflict)

	require.Equal(t, []string{"SUBMITTED:ok", "APPROVED:error"}, observer.observed)
}

func TestRequestServiceItemEditLosesToTransition(t *testing.T) {
	svc, repo, _, _ := newWorkflowFixture(t)
	actor := creatorClaims()
	ctx := context.Background()

	request := createDraft(t, svc)

	// Another writer approves the request between the editability check and
	// the item insert; the guarded write must not land.
	repo.beforeItemWrite = func() {
		repo.setStatus(request.ID, models.RequestStatusApproved)
	}
	_, err := svc.AddItem(ctx, request.ID, dto.RequestItemInput{ProductID: 4, WarehouseID: 2, Quantity: 1}, actor)
	require.ErrorIs(t, err, appErrors.ErrConcurrencyConflict)

	repo.beforeItemWrite = nil
	current, err := svc.Get(ctx, request.ID, actor)
	require.NoError(t, err)
	require.Len(t, current.Items, 1)
}
