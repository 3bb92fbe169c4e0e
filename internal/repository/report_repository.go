package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/desa-connect/aspirasi-api/internal/models"
)

// ReportRepository provides persistence for reports and their append-only
// timeline and comment logs. Timeline and comment appends are single-row
// INSERTs, so concurrent appends never overwrite each other; status changes
// are single-field UPDATEs.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, title, description, category, priority, photos, latitude, longitude, address, status, created_by, created_at, updated_at`

// Create inserts the report together with its seed timeline entry in one
// transaction, so a report never exists without its "Laporan dibuat" row.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report, seed *models.TimelineEntry) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create report: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertReport = `INSERT INTO reports (id, title, description, category, priority, photos, latitude, longitude, address, status, created_by, created_at, updated_at)
VALUES (:id, :title, :description, :category, :priority, :photos, :latitude, :longitude, :address, :status, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertReport, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if seed != nil {
		seed.ReportID = report.ID
		if err := insertTimelineEntry(ctx, tx, seed); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create report: %w", err)
	}
	return nil
}

// GetByID returns a report with its timeline and comments.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf(`SELECT %s FROM reports WHERE id = $1`, reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}

	const timelineQuery = `SELECT id, report_id, actor_id, action, message, created_at FROM report_timeline WHERE report_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &report.Timeline, timelineQuery, id); err != nil {
		return nil, fmt.Errorf("load report timeline: %w", err)
	}

	const commentsQuery = `SELECT id, report_id, user_id, user_name, user_avatar, text, created_at FROM report_comments WHERE report_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &report.Comments, commentsQuery, id); err != nil {
		return nil, fmt.Errorf("load report comments: %w", err)
	}

	return &report, nil
}

// List returns reports matching the filter, newest first, with total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	baseQuery := `FROM reports WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CreatedBy != "" {
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)+1))
		args = append(args, filter.CreatedBy)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, *filter.Category)
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, reportColumns, baseQuery, pageSize, offset)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + baseQuery
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}
	return reports, total, nil
}

// UpdateStatus sets the status field. Returns sql.ErrNoRows when the report
// does not exist. Setting the current value again is a valid no-op update.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	const query = `UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AppendTimeline inserts one audit entry. Entries are never updated or
// removed.
func (r *ReportRepository) AppendTimeline(ctx context.Context, entry *models.TimelineEntry) error {
	return insertTimelineEntry(ctx, r.db, entry)
}

// AppendComment inserts one comment row.
func (r *ReportRepository) AppendComment(ctx context.Context, comment *models.ReportComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_comments (id, report_id, user_id, user_name, user_avatar, text, created_at)
VALUES (:id, :report_id, :user_id, :user_name, :user_avatar, :text, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("append report comment: %w", err)
	}
	return nil
}

// Delete removes the report. Timeline, comments and outbox rows go with it
// via ON DELETE CASCADE. Returns sql.ErrNoRows for unknown ids.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reports WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Markers returns the location projection for the map view.
func (r *ReportRepository) Markers(ctx context.Context) ([]models.ReportMarker, error) {
	const query = `SELECT id, title, latitude, longitude, address, status FROM reports ORDER BY created_at DESC`
	var markers []models.ReportMarker
	if err := r.db.SelectContext(ctx, &markers, query); err != nil {
		return nil, fmt.Errorf("list report markers: %w", err)
	}
	return markers, nil
}

// CountByStatus aggregates reports per lifecycle state.
func (r *ReportRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM reports GROUP BY status`
	var counts []models.StatusCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count reports by status: %w", err)
	}
	return counts, nil
}

// CountByCategory aggregates reports per category.
func (r *ReportRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	const query = `SELECT category, COUNT(*) AS count FROM reports GROUP BY category`
	var counts []models.CategoryCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count reports by category: %w", err)
	}
	return counts, nil
}

// Recent returns the newest reports up to limit.
func (r *ReportRepository) Recent(ctx context.Context, limit int) ([]models.Report, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM reports ORDER BY created_at DESC LIMIT %d`, reportColumns, limit)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	return reports, nil
}

func insertTimelineEntry(ctx context.Context, ext sqlx.ExtContext, entry *models.TimelineEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_timeline (id, report_id, actor_id, action, message, created_at)
VALUES (:id, :report_id, :actor_id, :action, :message, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("append report timeline: %w", err)
	}
	return nil
}
