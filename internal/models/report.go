package models

import (
	"time"

	"github.com/lib/pq"
)

// ReportStatus is the admin-controlled lifecycle state of a report. All four
// states are mutually reachable; there is no terminal state.
type ReportStatus string

const (
	StatusPending    ReportStatus = "pending"
	StatusInProgress ReportStatus = "in_progress"
	StatusResolved   ReportStatus = "resolved"
	StatusRejected   ReportStatus = "rejected"
)

// ValidStatus reports whether s is one of the four lifecycle states.
func ValidStatus(s ReportStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	default:
		return false
	}
}

// ReportCategory enumerates the complaint categories citizens can pick.
type ReportCategory string

const (
	CategoryJalanRusak     ReportCategory = "Jalan Rusak"
	CategoryJembatanPatah  ReportCategory = "Jembatan Patah"
	CategoryDrainaseMampet ReportCategory = "Drainase Mampet"
	CategoryLampuJalan     ReportCategory = "Lampu Jalan"
	CategoryLainnya        ReportCategory = "Lainnya"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c ReportCategory) bool {
	switch c {
	case CategoryJalanRusak, CategoryJembatanPatah, CategoryDrainaseMampet, CategoryLampuJalan, CategoryLainnya:
		return true
	default:
		return false
	}
}

// ReportPriority is the citizen-assigned urgency.
type ReportPriority string

const (
	PriorityRendah ReportPriority = "rendah"
	PrioritySedang ReportPriority = "sedang"
	PriorityTinggi ReportPriority = "tinggi"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p ReportPriority) bool {
	switch p {
	case PriorityRendah, PrioritySedang, PriorityTinggi:
		return true
	default:
		return false
	}
}

// Report is a citizen-submitted infrastructure complaint. Photos are fixed
// at creation; createdBy never changes.
type Report struct {
	ID          string          `db:"id" json:"id"`
	Title       string          `db:"title" json:"title"`
	Description string          `db:"description" json:"description"`
	Category    ReportCategory  `db:"category" json:"category"`
	Priority    ReportPriority  `db:"priority" json:"priority"`
	Photos      pq.StringArray  `db:"photos" json:"photos"`
	Latitude    float64         `db:"latitude" json:"latitude"`
	Longitude   float64         `db:"longitude" json:"longitude"`
	Address     string          `db:"address" json:"address"`
	Status      ReportStatus    `db:"status" json:"status"`
	CreatedBy   string          `db:"created_by" json:"created_by"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	Timeline    []TimelineEntry `db:"-" json:"timeline,omitempty"`
	Comments    []ReportComment `db:"-" json:"comments,omitempty"`
}

// TimelineEntry is one row of a report's append-only audit log. Rows are
// inserted, never updated or deleted.
type TimelineEntry struct {
	ID        string    `db:"id" json:"id"`
	ReportID  string    `db:"report_id" json:"report_id"`
	ActorID   string    `db:"actor_id" json:"actor_id"`
	Action    string    `db:"action" json:"action"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReportComment is one row of a report's append-only discussion. Author name
// and avatar are denormalised at append time, matching the stored document
// shape the portal renders.
type ReportComment struct {
	ID         string    `db:"id" json:"id"`
	ReportID   string    `db:"report_id" json:"report_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	UserName   string    `db:"user_name" json:"user_name"`
	UserAvatar string    `db:"user_avatar" json:"user_avatar"`
	Text       string    `db:"text" json:"text"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ReportFilter captures list criteria: by owner, by status, newest first.
type ReportFilter struct {
	CreatedBy string
	Status    *ReportStatus
	Category  *ReportCategory
	Page      int
	PageSize  int
}

// ReportMarker is the read-only projection consumed by the map view.
type ReportMarker struct {
	ID        string       `db:"id" json:"id"`
	Title     string       `db:"title" json:"title"`
	Latitude  float64      `db:"latitude" json:"latitude"`
	Longitude float64      `db:"longitude" json:"longitude"`
	Address   string       `db:"address" json:"address"`
	Status    ReportStatus `db:"status" json:"status"`
}

// StatusCount aggregates reports per lifecycle state.
type StatusCount struct {
	Status ReportStatus `db:"status" json:"status"`
	Count  int          `db:"count" json:"count"`
}

// CategoryCount aggregates reports per category.
type CategoryCount struct {
	Category ReportCategory `db:"category" json:"category"`
	Count    int            `db:"count" json:"count"`
}
