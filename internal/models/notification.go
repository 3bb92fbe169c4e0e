package models

import "time"

// NotificationStatus tracks an outbox row through dispatch.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is one outbox row for a "report resolved" email. The status
// change that created it is already committed; dispatch failure never rolls
// it back.
type Notification struct {
	ID             string             `db:"id" json:"id"`
	ReportID       string             `db:"report_id" json:"report_id"`
	ReportTitle    string             `db:"report_title" json:"report_title"`
	RecipientName  string             `db:"recipient_name" json:"recipient_name"`
	RecipientEmail string             `db:"recipient_email" json:"recipient_email"`
	Status         NotificationStatus `db:"status" json:"status"`
	Attempts       int                `db:"attempts" json:"attempts"`
	LastError      *string            `db:"last_error" json:"last_error,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	SentAt         *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
}
