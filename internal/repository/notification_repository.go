package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/desa-connect/aspirasi-api/internal/models"
)

// NotificationRepository persists the outbox rows for resolved-report
// emails. A row outlives the request that created it, so dispatch retries
// survive process restarts.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a pending outbox row.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}
	const query = `INSERT INTO notifications (id, report_id, report_title, recipient_name, recipient_email, status, attempts, created_at)
VALUES (:id, :report_id, :report_title, :recipient_name, :recipient_email, :status, :attempts, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// MarkSent records a successful dispatch.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	const query = `UPDATE notifications SET status = $2, sent_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.NotificationSent, sentAt); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt; the row stays failed until a later
// attempt succeeds or the retries run out.
func (r *NotificationRepository) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	const query = `UPDATE notifications SET status = $2, attempts = $3, last_error = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.NotificationFailed, attempts, lastError); err != nil {
		return fmt.Errorf("mark notification failed: %w", err)
	}
	return nil
}

// ListPending returns undelivered rows, oldest first, for startup recovery.
func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, report_id, report_title, recipient_name, recipient_email, status, attempts, last_error, created_at, sent_at
FROM notifications WHERE status = $1 ORDER BY created_at ASC LIMIT %d`, limit)
	var rows []models.Notification
	if err := r.db.SelectContext(ctx, &rows, query, models.NotificationPending); err != nil {
		return nil, fmt.Errorf("list pending notifications: %w", err)
	}
	return rows, nil
}
