package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	"github.com/desa-connect/aspirasi-api/pkg/jobs"
)

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
	ListPending(ctx context.Context, limit int) ([]models.Notification, error)
}

// EmailSender delivers one resolved-report email. Implementations wrap the
// transactional-email HTTP API.
type EmailSender interface {
	SendResolved(ctx context.Context, n models.Notification) error
}

// emailMetrics counts delivery outcomes per dispatch attempt.
type emailMetrics interface {
	RecordEmailDispatch(sent bool)
}

// NotificationService is the outbox consumer for resolved-report emails.
// Status changes enqueue rows; workers dispatch them with retries. The two
// failure domains stay separate: a dead email never reverts a status.
type NotificationService struct {
	repo    notificationRepository
	sender  EmailSender
	metrics emailMetrics
	queue   *jobs.Queue
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its dispatch queue.
func NewNotificationService(repo notificationRepository, sender EmailSender, metrics emailMetrics, qcfg jobs.QueueConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{repo: repo, sender: sender, metrics: metrics, logger: logger}
	qcfg.Logger = logger
	svc.queue = jobs.NewQueue("notifications", svc.dispatch, qcfg)
	return svc
}

// Start launches the workers and re-enqueues rows that were pending when
// the process last stopped.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)

	pending, err := s.repo.ListPending(ctx, 100)
	if err != nil {
		s.logger.Warn("failed to recover pending notifications", zap.Error(err))
		return
	}
	for _, n := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: "resolved_email", Payload: n}); err != nil {
			s.logger.Warn("failed to enqueue recovered notification", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
}

// Stop drains the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// EnqueueResolved writes the outbox row and hands it to the workers. The
// row is persisted first so a crash between the two steps loses nothing.
func (s *NotificationService) EnqueueResolved(ctx context.Context, report *models.Report, owner *models.User) error {
	n := &models.Notification{
		ReportID:       report.ID,
		ReportTitle:    report.Title,
		RecipientName:  owner.FullName,
		RecipientEmail: owner.Email,
		Status:         models.NotificationPending,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("persist notification outbox row: %w", err)
	}
	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: "resolved_email", Payload: *n}); err != nil {
		// The row stays pending and is recovered on next start.
		s.logger.Warn("outbox row persisted but enqueue failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
	return nil
}

func (s *NotificationService) dispatch(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}

	if err := s.sender.SendResolved(ctx, n); err != nil {
		if s.metrics != nil {
			s.metrics.RecordEmailDispatch(false)
		}
		if markErr := s.repo.MarkFailed(ctx, n.ID, job.Attempt+1, err.Error()); markErr != nil {
			s.logger.Warn("failed to record notification failure", zap.String("notification_id", n.ID), zap.Error(markErr))
		}
		return fmt.Errorf("send resolved email for report %s: %w", n.ReportID, err)
	}

	if s.metrics != nil {
		s.metrics.RecordEmailDispatch(true)
	}
	if err := s.repo.MarkSent(ctx, n.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("email sent but outbox update failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
	s.logger.Info("resolved notification sent",
		zap.String("report_id", n.ReportID), zap.String("recipient", n.RecipientEmail))
	return nil
}
