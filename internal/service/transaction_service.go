package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/polterabyte/inventory-ctrl-api/internal/dto"
	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/export"
)

type transactionStore interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.InventoryTransaction, error)
	ListByRequest(ctx context.Context, requestID int64) ([]models.InventoryTransaction, error)
}

// ExportFormat selects the rendering for transaction exports.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult carries rendered export bytes and response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// TransactionService reads inventory transactions and builds the INCOME rows
// the request workflow commits when goods arrive. It never writes
// workflow-linked rows itself.
type TransactionService struct {
	repo     transactionStore
	products productChecker
	access   warehouseAccess
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger

	exportMaxRows int
}

// TransactionServiceOption configures the service.
type TransactionServiceOption func(*TransactionService)

// WithExportMaxRows caps how many rows a single export may contain.
func WithExportMaxRows(max int) TransactionServiceOption {
	return func(s *TransactionService) {
		if max > 0 {
			s.exportMaxRows = max
		}
	}
}

// NewTransactionService constructs the service.
func NewTransactionService(repo transactionStore, products productChecker, access warehouseAccess, logger *zap.Logger, opts ...TransactionServiceOption) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &TransactionService{
		repo:          repo,
		products:      products,
		access:        access,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		logger:        logger,
		exportMaxRows: 10000,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// ReceiptTransactions builds one INCOME transaction per request item. Every
// product referenced must still exist and be active, otherwise nothing is
// returned and the caller aborts the transition.
func (s *TransactionService) ReceiptTransactions(ctx context.Context, request *models.Request, actorUserID string) ([]models.InventoryTransaction, error) {
	if len(request.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidOperation, "request has no items to receive")
	}

	ids := make([]int64, 0, len(request.Items))
	seen := make(map[int64]struct{}, len(request.Items))
	for _, item := range request.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	active, err := s.products.ActiveIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrDependencyFailure.Code, appErrors.ErrDependencyFailure.Status, "failed to resolve products for receipt")
	}
	for _, id := range ids {
		if !active[id] {
			return nil, appErrors.Clone(appErrors.ErrInvalidOperation,
				fmt.Sprintf("product %d is no longer active, receipt aborted", id))
		}
	}

	requestID := request.ID
	description := fmt.Sprintf("Receipt for request #%d", request.ID)
	transactions := make([]models.InventoryTransaction, 0, len(request.Items))
	for _, item := range request.Items {
		txn := models.InventoryTransaction{
			Type:        models.TransactionTypeIncome,
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			UserID:      actorUserID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			RequestID:   &requestID,
			Description: &description,
		}
		if item.UnitPrice != nil {
			total := item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
			txn.TotalPrice = &total
		}
		transactions = append(transactions, txn)
	}
	return transactions, nil
}

// List returns transactions visible to the actor. Non-elevated actors are
// scoped to their accessible warehouses.
func (s *TransactionService) List(ctx context.Context, query dto.TransactionQuery, actor *models.JWTClaims) ([]models.InventoryTransaction, error) {
	filter, err := s.scopedFilter(ctx, query, actor)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return []models.InventoryTransaction{}, nil
	}

	transactions, err := s.repo.List(ctx, *filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	return transactions, nil
}

// ListByRequest returns the transactions the workflow produced for a request.
func (s *TransactionService) ListByRequest(ctx context.Context, requestID int64) ([]models.InventoryTransaction, error) {
	transactions, err := s.repo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list request transactions")
	}
	return transactions, nil
}

// Export renders the actor's visible transactions as CSV or PDF.
func (s *TransactionService) Export(ctx context.Context, query dto.TransactionQuery, format ExportFormat, actor *models.JWTClaims) (*ExportResult, error) {
	format = ExportFormat(strings.ToLower(string(format)))
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format, use csv or pdf")
	}

	query.Limit = s.exportMaxRows
	query.Offset = 0
	transactions, err := s.List(ctx, query, actor)
	if err != nil {
		return nil, err
	}

	dataset := transactionDataset(transactions)
	stamp := time.Now().UTC().Format("20060102-150405")
	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(dataset, "Inventory Transactions")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("transactions-%s.pdf", stamp),
		}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("transactions-%s.csv", stamp),
		}, nil
	}
}

// scopedFilter translates the query into a repository filter bounded by the
// actor's warehouse visibility. A nil filter means nothing is visible.
func (s *TransactionService) scopedFilter(ctx context.Context, query dto.TransactionQuery, actor *models.JWTClaims) (*models.TransactionFilter, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}

	filter := models.TransactionFilter{
		Types:     query.Types,
		ProductID: query.ProductID,
		RequestID: query.RequestID,
		DateFrom:  query.DateFrom,
		DateTo:    query.DateTo,
		Limit:     query.Limit,
		Offset:    query.Offset,
	}
	if query.WarehouseID > 0 {
		filter.WarehouseIDs = []int64{query.WarehouseID}
	}

	if actor.Role.IsElevated() {
		return &filter, nil
	}

	accessible, err := s.access.AccessibleWarehouseIDs(ctx, actor)
	if err != nil {
		return nil, err
	}
	if query.WarehouseID > 0 {
		if !containsID(accessible, query.WarehouseID) {
			return nil, appErrors.ErrAccessDenied
		}
		return &filter, nil
	}
	if len(accessible) == 0 {
		return nil, nil
	}
	filter.WarehouseIDs = accessible
	return &filter, nil
}

func transactionDataset(transactions []models.InventoryTransaction) export.Dataset {
	headers := []string{"ID", "Type", "Product", "Warehouse", "Quantity", "Unit Price", "Total Price", "Request", "Date"}
	rows := make([]map[string]string, 0, len(transactions))
	for _, txn := range transactions {
		row := map[string]string{
			"ID":        strconv.FormatInt(txn.ID, 10),
			"Type":      string(txn.Type),
			"Product":   strconv.FormatInt(txn.ProductID, 10),
			"Warehouse": strconv.FormatInt(txn.WarehouseID, 10),
			"Quantity":  strconv.FormatInt(txn.Quantity, 10),
			"Date":      txn.Date.UTC().Format(time.RFC3339),
		}
		if txn.UnitPrice != nil {
			row["Unit Price"] = txn.UnitPrice.StringFixed(2)
		}
		if txn.TotalPrice != nil {
			row["Total Price"] = txn.TotalPrice.StringFixed(2)
		}
		if txn.RequestID != nil {
			row["Request"] = strconv.FormatInt(*txn.RequestID, 10)
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
