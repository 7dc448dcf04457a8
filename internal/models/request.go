package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus captures workflow states for material requests.
type RequestStatus string

const (
	RequestStatusDraft          RequestStatus = "DRAFT"
	RequestStatusSubmitted      RequestStatus = "SUBMITTED"
	RequestStatusApproved       RequestStatus = "APPROVED"
	RequestStatusItemsReceived  RequestStatus = "ITEMS_RECEIVED"
	RequestStatusItemsInstalled RequestStatus = "ITEMS_INSTALLED"
	RequestStatusCompleted      RequestStatus = "COMPLETED"
	RequestStatusCancelled      RequestStatus = "CANCELLED"
	RequestStatusRejected       RequestStatus = "REJECTED"
)

// RequestStatuses enumerates every workflow state.
var RequestStatuses = []RequestStatus{
	RequestStatusDraft,
	RequestStatusSubmitted,
	RequestStatusApproved,
	RequestStatusItemsReceived,
	RequestStatusItemsInstalled,
	RequestStatusCompleted,
	RequestStatusCancelled,
	RequestStatusRejected,
}

// RequestTransitions is the workflow transition table: source status to the
// set of statuses reachable from it. Any pair absent from the table is
// rejected, which keeps the state machine total by construction.
var RequestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusDraft:          {RequestStatusSubmitted, RequestStatusCancelled},
	RequestStatusSubmitted:      {RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled},
	RequestStatusApproved:       {RequestStatusItemsReceived, RequestStatusCancelled},
	RequestStatusItemsReceived:  {RequestStatusItemsInstalled, RequestStatusCancelled},
	RequestStatusItemsInstalled: {RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusCompleted:      {},
	RequestStatusCancelled:      {},
	RequestStatusRejected:       {},
}

// CanTransition reports whether the workflow allows moving from one status
// to another.
func CanTransition(from, to RequestStatus) bool {
	for _, allowed := range RequestTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves the status.
func (s RequestStatus) IsTerminal() bool {
	return len(RequestTransitions[s]) == 0
}

// Valid reports whether the value is a known workflow status.
func (s RequestStatus) Valid() bool {
	_, ok := RequestTransitions[s]
	return ok
}

// Request is a material request aggregate. Items and History are populated
// when the aggregate is loaded as a whole.
type Request struct {
	ID              int64         `db:"id" json:"id"`
	Title           string        `db:"title" json:"title"`
	Description     *string       `db:"description" json:"description,omitempty"`
	Status          RequestStatus `db:"status" json:"status"`
	CreatedByUserID string        `db:"created_by_user_id" json:"created_by_user_id"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`

	Items   []RequestItem    `db:"-" json:"items,omitempty"`
	History []RequestHistory `db:"-" json:"history,omitempty"`
}

// WarehouseIDs returns the distinct warehouses referenced by the request items.
func (r *Request) WarehouseIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Items))
	ids := make([]int64, 0, len(r.Items))
	for _, item := range r.Items {
		if _, ok := seen[item.WarehouseID]; ok {
			continue
		}
		seen[item.WarehouseID] = struct{}{}
		ids = append(ids, item.WarehouseID)
	}
	return ids
}

// RequestItem is a single requested product line.
type RequestItem struct {
	ID          int64            `db:"id" json:"id"`
	RequestID   int64            `db:"request_id" json:"request_id"`
	ProductID   int64            `db:"product_id" json:"product_id"`
	WarehouseID int64            `db:"warehouse_id" json:"warehouse_id"`
	Quantity    int64            `db:"quantity" json:"quantity"`
	LocationID  *int64           `db:"location_id" json:"location_id,omitempty"`
	Description *string          `db:"description" json:"description,omitempty"`
	UnitPrice   *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
}

// RequestHistory is an append-only audit trail entry written once per
// successful transition, including the creation entry where PreviousStatus
// is nil.
type RequestHistory struct {
	ID             int64          `db:"id" json:"id"`
	RequestID      int64          `db:"request_id" json:"request_id"`
	PreviousStatus *RequestStatus `db:"previous_status" json:"previous_status,omitempty"`
	NewStatus      RequestStatus  `db:"new_status" json:"new_status"`
	ActorUserID    string         `db:"actor_user_id" json:"actor_user_id"`
	Comment        *string        `db:"comment" json:"comment,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	Status          []RequestStatus
	CreatedByUserID string
	WarehouseIDs    []int64
	Search          string
	Limit           int
	Offset          int
}
