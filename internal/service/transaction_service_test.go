package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
)

func TestTransactionServiceReceiptTransactions(t *testing.T) {
	products := &productStub{}
	svc := NewTransactionService(&txRepoStub{}, products, newAccessStub(), nil)

	price := decimal.NewFromInt(7)
	request := &models.Request{
		ID:     42,
		Status: models.RequestStatusApproved,
		Items: []models.RequestItem{
			{ProductID: 1, WarehouseID: 2, Quantity: 5, UnitPrice: &price},
			{ProductID: 3, WarehouseID: 2, Quantity: 2},
		},
	}

	transactions, err := svc.ReceiptTransactions(context.Background(), request, "mgr")
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	first := transactions[0]
	require.Equal(t, models.TransactionTypeIncome, first.Type)
	require.Equal(t, int64(5), first.Quantity)
	require.Equal(t, "mgr", first.UserID)
	require.NotNil(t, first.RequestID)
	require.Equal(t, int64(42), *first.RequestID)
	require.NotNil(t, first.TotalPrice)
	require.True(t, first.TotalPrice.Equal(decimal.NewFromInt(35)))

	// Items without a price produce untotaled rows.
	require.Nil(t, transactions[1].UnitPrice)
	require.Nil(t, transactions[1].TotalPrice)
}

func TestTransactionServiceReceiptAbortsOnMissingProduct(t *testing.T) {
	products := &productStub{inactive: map[int64]bool{3: true}}
	svc := NewTransactionService(&txRepoStub{}, products, newAccessStub(), nil)

	request := &models.Request{
		ID: 42,
		Items: []models.RequestItem{
			{ProductID: 1, WarehouseID: 2, Quantity: 5},
			{ProductID: 3, WarehouseID: 2, Quantity: 2},
		},
	}

	transactions, err := svc.ReceiptTransactions(context.Background(), request, "mgr")
	require.ErrorIs(t, err, appErrors.ErrInvalidOperation)
	require.Nil(t, transactions)
}

func TestTransactionServiceListScoping(t *testing.T) {
	repo := &txRepoStub{transactions: []models.InventoryTransaction{
		{ID: 1, Type: models.TransactionTypeIncome, WarehouseID: 1, Date: time.Now()},
		{ID: 2, Type: models.TransactionTypeIncome, WarehouseID: 9, Date: time.Now()},
	}}
	access := newAccessStub()
	access.grant("u1", 1, models.AccessLevelReadOnly)
	svc := NewTransactionService(repo, &productStub{}, access, nil)
	ctx := context.Background()

	user := &models.JWTClaims{UserID: "u1", Role: models.RoleUser}

	list, err := svc.List(ctx, dto.TransactionQuery{}, user)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, int64(1), list[0].ID)

	_, err = svc.List(ctx, dto.TransactionQuery{WarehouseID: 9}, user)
	require.ErrorIs(t, err, appErrors.ErrAccessDenied)

	list, err = svc.List(ctx, dto.TransactionQuery{}, adminClaims())
	require.NoError(t, err)
	require.Len(t, list, 2)

	// A user with no assignments sees nothing.
	nobody := &models.JWTClaims{UserID: "nobody", Role: models.RoleUser}
	list, err = svc.List(ctx, dto.TransactionQuery{}, nobody)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestTransactionServiceExportCSV(t *testing.T) {
	requestID := int64(42)
	price := decimal.NewFromInt(7)
	total := decimal.NewFromInt(35)
	repo := &txRepoStub{transactions: []models.InventoryTransaction{
		{
			ID: 1, Type: models.TransactionTypeIncome, ProductID: 1, WarehouseID: 1,
			Quantity: 5, UnitPrice: &price, TotalPrice: &total, RequestID: &requestID,
			Date: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
	svc := NewTransactionService(repo, &productStub{}, newAccessStub(), nil)

	result, err := svc.Export(context.Background(), dto.TransactionQuery{}, ExportFormatCSV, adminClaims())
	require.NoError(t, err)
	require.Equal(t, "text/csv", result.ContentType)
	require.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Content)
	require.Contains(t, body, "ID,Type,Product,Warehouse,Quantity")
	require.Contains(t, body, "1,INCOME,1,1,5,7.00,35.00,42,2026-03-01T10:00:00Z")
}

func TestTransactionServiceExportRejectsUnknownFormat(t *testing.T) {
	svc := NewTransactionService(&txRepoStub{}, &productStub{}, newAccessStub(), nil)

	_, err := svc.Export(context.Background(), dto.TransactionQuery{}, "xlsx", adminClaims())
	require.ErrorIs(t, err, appErrors.ErrValidation)
}
