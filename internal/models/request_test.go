package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestTransitionTableShape(t *testing.T) {
	// Every known status has a row, so lookups never hit a missing key.
	for _, status := range RequestStatuses {
		_, ok := RequestTransitions[status]
		require.True(t, ok, "status %s missing from transition table", status)
		require.True(t, status.Valid())
	}
	require.Len(t, RequestTransitions, len(RequestStatuses))

	// Only the three closing statuses are terminal.
	terminal := map[RequestStatus]bool{
		RequestStatusCompleted: true,
		RequestStatusCancelled: true,
		RequestStatusRejected:  true,
	}
	for _, status := range RequestStatuses {
		require.Equal(t, terminal[status], status.IsTerminal(), "terminality of %s", status)
	}
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(RequestStatusDraft, RequestStatusSubmitted))
	require.True(t, CanTransition(RequestStatusSubmitted, RequestStatusRejected))
	require.True(t, CanTransition(RequestStatusItemsInstalled, RequestStatusCancelled))

	require.False(t, CanTransition(RequestStatusDraft, RequestStatusApproved))
	require.False(t, CanTransition(RequestStatusCompleted, RequestStatusCancelled))
	require.False(t, CanTransition(RequestStatusRejected, RequestStatusSubmitted))
	require.False(t, CanTransition("BOGUS", RequestStatusSubmitted))
	require.False(t, RequestStatus("BOGUS").Valid())
}

func TestAccessLevelAllows(t *testing.T) {
	require.True(t, AccessLevelFull.Allows(AccessLevelReadOnly))
	require.True(t, AccessLevelFull.Allows(AccessLevelFull))
	require.True(t, AccessLevelReadOnly.Allows(AccessLevelReadOnly))
	require.False(t, AccessLevelReadOnly.Allows(AccessLevelFull))
}

func TestRequestWarehouseIDsDeduplicates(t *testing.T) {
	request := &Request{Items: []RequestItem{
		{WarehouseID: 2}, {WarehouseID: 5}, {WarehouseID: 2},
	}}
	require.Equal(t, []int64{2, 5}, request.WarehouseIDs())
}
