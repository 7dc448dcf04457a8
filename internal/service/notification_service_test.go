package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/jobs"
)

type notificationRepoStub struct {
	notifications []*models.Notification
	read          map[string]bool
}

func newNotificationRepoStub() *notificationRepoStub {
	return &notificationRepoStub{read: make(map[string]bool)}
}

func (r *notificationRepoStub) Create(ctx context.Context, n *models.Notification) error {
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *notificationRepoStub) ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.notifications {
		if n.UserID == filter.UserID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (r *notificationRepoStub) MarkRead(ctx context.Context, id, userID string) error {
	for _, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return sql.ErrNoRows
}

func (r *notificationRepoStub) MarkAllRead(ctx context.Context, userID string) error {
	for _, n := range r.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func TestNotificationServicePersistsTransitionPayload(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, nil, jobs.QueueConfig{})

	request := &models.Request{ID: 7, Title: "Spare pumps", CreatedByUserID: "creator"}
	notification := models.Notification{
		UserID:    "creator",
		Type:      models.NotificationTypeTransaction,
		Title:     "Request #7 approved",
		Message:   "Request \"Spare pumps\" moved from SUBMITTED to APPROVED",
		RequestID: &request.ID,
	}

	// Drive the queue handler directly; delivery order is covered by the
	// queue's own tests.
	err := svc.handleJob(context.Background(), jobs.Job{ID: "job-1", Type: "TRANSACTION", Payload: notification})
	require.NoError(t, err)
	require.Len(t, repo.notifications, 1)
	require.Equal(t, "creator", repo.notifications[0].UserID)
	require.Equal(t, models.NotificationTypeTransaction, repo.notifications[0].Type)
}

func TestNotificationServiceEnqueueBeforeStartIsSwallowed(t *testing.T) {
	repo := newNotificationRepoStub()
	svc := NewNotificationService(repo, nil, jobs.QueueConfig{})

	// The queue was never started; the notification is dropped, not fatal.
	svc.NotifyRequestTransition(context.Background(),
		&models.Request{ID: 7, Title: "Spare pumps", CreatedByUserID: "creator"},
		models.RequestStatusDraft, models.RequestStatusSubmitted)
	require.Empty(t, repo.notifications)
}

func TestNotificationServiceMarkRead(t *testing.T) {
	repo := newNotificationRepoStub()
	repo.notifications = append(repo.notifications, &models.Notification{ID: "n1", UserID: "u1"})
	svc := NewNotificationService(repo, nil, jobs.QueueConfig{})
	ctx := context.Background()

	require.NoError(t, svc.MarkRead(ctx, "n1", "u1"))
	require.True(t, repo.notifications[0].IsRead)

	// Another user's notification is invisible.
	err := svc.MarkRead(ctx, "n1", "u2")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
