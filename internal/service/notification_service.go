package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/polterabyte/inventory-ctrl-api/internal/models"
	appErrors "github.com/polterabyte/inventory-ctrl-api/pkg/errors"
	"github.com/polterabyte/inventory-ctrl-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// NotificationService persists user-facing notifications through a background
// queue. Enqueue failures are logged and swallowed; notifications never block
// or fail the operations that trigger them.
type NotificationService struct {
	repo   notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its delivery queue. Call
// Start before triggering notifications and Stop on shutdown.
func NewNotificationService(repo notificationStore, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, logger: logger}
	cfg.Logger = logger
	svc.queue = jobs.NewQueue("notifications", svc.handleJob, cfg)
	return svc
}

// Start begins background delivery.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	if pending := s.queue.Pending(); pending > 0 {
		s.logger.Warn("stopping with undelivered notifications", zap.Int("pending", pending))
	}
	s.queue.Stop()
}

// NotifyRequestTransition informs the request creator about a status change.
func (s *NotificationService) NotifyRequestTransition(ctx context.Context, request *models.Request, from, to models.RequestStatus) {
	requestID := request.ID
	s.enqueue(models.Notification{
		UserID:    request.CreatedByUserID,
		Type:      models.NotificationTypeTransaction,
		Title:     fmt.Sprintf("Request #%d %s", request.ID, transitionVerb(to)),
		Message:   fmt.Sprintf("Request %q moved from %s to %s", request.Title, from, to),
		RequestID: &requestID,
	})
}

// NotifySystem delivers a free-form system notification to a user.
func (s *NotificationService) NotifySystem(ctx context.Context, userID, title, message string) {
	s.enqueue(models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeSystem,
		Title:   title,
		Message: message,
	})
}

// ListForUser returns the user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	notifications, err := s.repo.ListForUser(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return notifications, nil
}

// MarkRead flags one notification as read for the owning user.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}

// MarkAllRead flags every unread notification as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}

func (s *NotificationService) enqueue(n models.Notification) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(n.Type),
		Payload: n,
	})
	if err != nil {
		s.logger.Warn("notification enqueue failed",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err))
	}
}

func (s *NotificationService) handleJob(ctx context.Context, job jobs.Job) error {
	notification, ok := job.Payload.(models.Notification)
	if !ok {
		s.logger.Error("notification job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &notification)
}

func transitionVerb(to models.RequestStatus) string {
	switch to {
	case models.RequestStatusSubmitted:
		return "submitted"
	case models.RequestStatusApproved:
		return "approved"
	case models.RequestStatusItemsReceived:
		return "received"
	case models.RequestStatusItemsInstalled:
		return "installed"
	case models.RequestStatusCompleted:
		return "completed"
	case models.RequestStatusCancelled:
		return "cancelled"
	case models.RequestStatusRejected:
		return "rejected"
	default:
		return "updated"
	}
}
