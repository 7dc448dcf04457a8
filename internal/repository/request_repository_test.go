package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
)

func newRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRequestRepositoryCreateAggregates(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO requests")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO request_items")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(71)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO request_history")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(701)))
	mock.ExpectCommit()

	price := decimal.NewFromInt(12)
	request := &models.Request{
		Title:           "Spare pumps",
		CreatedByUserID: "creator",
		Items: []models.RequestItem{
			{ProductID: 1, WarehouseID: 2, Quantity: 3, UnitPrice: &price},
		},
	}
	require.NoError(t, repo.Create(context.Background(), request))
	require.Equal(t, int64(7), request.ID)
	require.Equal(t, models.RequestStatusDraft, request.Status)
	require.Equal(t, int64(7), request.Items[0].RequestID)
	require.Len(t, request.History, 1)
	require.Nil(t, request.History[0].PreviousStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryGetByIDHydrates(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, status")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status", "created_by_user_id", "created_at", "updated_at"}).
			AddRow(int64(7), "Spare pumps", nil, "SUBMITTED", "creator", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM request_items")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "product_id", "warehouse_id", "quantity", "location_id", "description", "unit_price"}).
			AddRow(int64(71), int64(7), int64(1), int64(2), int64(3), nil, nil, nil))
	mock.ExpectQuery(regexp.QuoteMeta("FROM request_history")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "previous_status", "new_status", "actor_user_id", "comment", "created_at"}).
			AddRow(int64(701), int64(7), nil, "DRAFT", "creator", nil, now).
			AddRow(int64(702), int64(7), "DRAFT", "SUBMITTED", "creator", nil, now))

	request, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, models.RequestStatusSubmitted, request.Status)
	require.Len(t, request.Items, 1)
	require.Len(t, request.History, 2)
	require.Equal(t, models.RequestStatusDraft, *request.History[1].PreviousStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryListJoinsItemsForWarehouseFilter(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("JOIN request_items ri ON ri.request_id = r.id")).
		WithArgs("SUBMITTED", int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status", "created_by_user_id", "created_at", "updated_at"}).
			AddRow(int64(7), "Spare pumps", nil, "SUBMITTED", "creator", now, now))

	list, err := repo.List(context.Background(), models.RequestFilter{
		Status:       []models.RequestStatus{models.RequestStatusSubmitted},
		WarehouseIDs: []int64{2},
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransitionCommitsHistoryAndTransactions(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status")).
		WithArgs("ITEMS_RECEIVED", sqlmock.AnyArg(), int64(7), "APPROVED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO request_history")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(703)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO inventory_transactions")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(900)))
	mock.ExpectCommit()

	requestID := int64(7)
	err := repo.Transition(context.Background(), TransitionParams{
		RequestID:   7,
		FromStatus:  models.RequestStatusApproved,
		ToStatus:    models.RequestStatusItemsReceived,
		ActorUserID: "manager",
		Transactions: []models.InventoryTransaction{
			{Type: models.TransactionTypeIncome, ProductID: 1, WarehouseID: 2, UserID: "manager", Quantity: 3, RequestID: &requestID},
		},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryTransitionGuardLoses(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Transition(context.Background(), TransitionParams{
		RequestID:   7,
		FromStatus:  models.RequestStatusSubmitted,
		ToStatus:    models.RequestStatusApproved,
		ActorUserID: "manager",
	})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryRemoveItemMissing(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM request_items")).
		WithArgs(int64(99), int64(7), models.RequestStatusDraft).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveItem(context.Background(), 7, 99, models.RequestStatusDraft)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAddItemStatusGuard(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	// The request moved out of DRAFT between the caller's read and the
	// insert; the guarded insert matches no row.
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO request_items")).
		WithArgs(int64(1), int64(2), int64(3), nil, nil, nil, int64(7), models.RequestStatusDraft).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	item := models.RequestItem{RequestID: 7, ProductID: 1, WarehouseID: 2, Quantity: 3}
	err := repo.AddItem(context.Background(), &item, models.RequestStatusDraft)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepositoryAddItemGuardPasses(t *testing.T) {
	db, mock, cleanup := newRequestRepoMock(t)
	defer cleanup()

	repo := NewRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO request_items")).
		WithArgs(int64(1), int64(2), int64(3), nil, nil, nil, int64(7), models.RequestStatusDraft, models.RequestStatusSubmitted).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE requests SET updated_at")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	item := models.RequestItem{RequestID: 7, ProductID: 1, WarehouseID: 2, Quantity: 3}
	err := repo.AddItem(context.Background(), &item, models.RequestStatusDraft, models.RequestStatusSubmitted)
	require.NoError(t, err)
	require.Equal(t, int64(42), item.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
