package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
	"github.com/desa-connect/aspirasi-api/pkg/export"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.Report, seed *models.TimelineEntry) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
	AppendTimeline(ctx context.Context, entry *models.TimelineEntry) error
	AppendComment(ctx context.Context, comment *models.ReportComment) error
	Delete(ctx context.Context, id string) error
	Markers(ctx context.Context) ([]models.ReportMarker, error)
}

type reportOwnerDirectory interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// resolvedNotifier enqueues the "report resolved" email. Enqueue failure is
// never fatal to the already-committed status change.
type resolvedNotifier interface {
	EnqueueResolved(ctx context.Context, report *models.Report, owner *models.User) error
}

// reportCacheInvalidator drops cached aggregates after report mutations.
type reportCacheInvalidator interface {
	InvalidateReports(ctx context.Context)
}

// reportMetrics counts submissions and status relabels.
type reportMetrics interface {
	RecordReportCreated()
	RecordStatusChange(status string)
}

// ReportService owns the report lifecycle: creation, the flat admin-driven
// status machine, append-only timeline and comments, hard delete, and the
// notification side effect on resolution.
type ReportService struct {
	repo      reportRepository
	users     reportOwnerDirectory
	notifier  resolvedNotifier
	cache     reportCacheInvalidator
	metrics   reportMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(repo reportRepository, users reportOwnerDirectory, notifier resolvedNotifier, cache reportCacheInvalidator, metrics reportMetrics, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ReportService{repo: repo, users: users, notifier: notifier, cache: cache, metrics: metrics, validator: validate, logger: logger}
	svc.validator.RegisterValidation("report_category", func(fl validator.FieldLevel) bool {
		return models.ValidCategory(models.ReportCategory(fl.Field().String()))
	})
	svc.validator.RegisterValidation("report_priority", func(fl validator.FieldLevel) bool {
		return models.ValidPriority(models.ReportPriority(fl.Field().String()))
	})
	return svc
}

// CreateReportRequest describes the submission payload.
type CreateReportRequest struct {
	Title       string   `json:"title" validate:"required,min=10,max=100"`
	Description string   `json:"description" validate:"required,min=20"`
	Category    string   `json:"category" validate:"required,report_category"`
	Priority    string   `json:"priority" validate:"required,report_priority"`
	Photos      []string `json:"photos" validate:"required,min=1,dive,url"`
	Latitude    float64  `json:"latitude" validate:"min=-90,max=90"`
	Longitude   float64  `json:"longitude" validate:"min=-180,max=180"`
	Address     string   `json:"address" validate:"required"`
}

// ReportListRequest describes list filters.
type ReportListRequest struct {
	CreatedBy string
	Status    string
	Category  string
	Page      int
	PageSize  int
}

const timelineCreated = "Laporan dibuat"

// Create registers a new report for the authenticated citizen. The report
// starts pending with a single seeded timeline entry; no notification is
// sent on creation.
func (s *ReportService) Create(ctx context.Context, req CreateReportRequest, actor *models.JWTClaims) (*models.Report, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	now := time.Now().UTC()
	report := &models.Report{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    models.ReportCategory(req.Category),
		Priority:    models.ReportPriority(req.Priority),
		Photos:      req.Photos,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		Status:      models.StatusPending,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
	}
	seed := &models.TimelineEntry{
		ActorID:   actor.UserID,
		Action:    timelineCreated,
		Message:   "",
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, report, seed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to create report")
	}
	report.Timeline = []models.TimelineEntry{*seed}

	if s.metrics != nil {
		s.metrics.RecordReportCreated()
	}
	s.invalidate(ctx)
	return report, nil
}

// Get returns a report with its timeline and comments.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load report")
	}
	return report, nil
}

// List returns reports matching the filter with pagination.
func (s *ReportService) List(ctx context.Context, req ReportListRequest) ([]models.Report, *models.Pagination, error) {
	filter := models.ReportFilter{
		CreatedBy: req.CreatedBy,
		Page:      req.Page,
		PageSize:  req.PageSize,
	}
	if req.Status != "" {
		status := models.ReportStatus(req.Status)
		if !models.ValidStatus(status) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", req.Status))
		}
		filter.Status = &status
	}
	if req.Category != "" {
		category := models.ReportCategory(req.Category)
		if !models.ValidCategory(category) {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", req.Category))
		}
		filter.Category = &category
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to list reports")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return reports, pagination, nil
}

// ChangeStatus relabels a report. Admin only; any state may move to any
// other, and setting the current status again succeeds idempotently. A
// timeline entry is always appended. When the new status is resolved, a
// notification to the owner is enqueued after the status commit; enqueue or
// dispatch failure never reverts the change.
func (s *ReportService) ChangeStatus(ctx context.Context, id string, newStatus models.ReportStatus, message string, actor *models.JWTClaims) (*models.Report, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators may change report status")
	}
	if !models.ValidStatus(newStatus) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", newStatus))
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to update report status")
	}
	if s.metrics != nil {
		s.metrics.RecordStatusChange(string(newStatus))
	}

	entry := &models.TimelineEntry{
		ReportID: id,
		ActorID:  actor.UserID,
		Action:   fmt.Sprintf("Status diubah menjadi %s", newStatus),
		Message:  message,
	}
	if err := s.repo.AppendTimeline(ctx, entry); err != nil {
		// Status is already committed; the audit gap is logged, not fatal.
		s.logger.Warn("failed to append status timeline entry",
			zap.String("report_id", id), zap.Error(err))
	}

	report, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to reload report")
	}

	if newStatus == models.StatusResolved {
		s.notifyResolved(ctx, report)
	}

	s.invalidate(ctx)
	return report, nil
}

// AddComment appends a comment for any authenticated user. The report's
// status is untouched.
func (s *ReportService) AddComment(ctx context.Context, id string, text string, actor *models.JWTClaims) (*models.ReportComment, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment text must not be empty")
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load report")
	}

	comment := &models.ReportComment{
		ReportID:   id,
		UserID:     actor.UserID,
		UserName:   actor.FullName,
		UserAvatar: actor.AvatarURL,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.AppendComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to append comment")
	}
	return comment, nil
}

// Delete permanently removes a report and its embedded logs. Admin only;
// there is no recovery path.
func (s *ReportService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may delete reports")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to delete report")
	}
	s.invalidate(ctx)
	return nil
}

// Markers returns the map projection of all reports.
func (s *ReportService) Markers(ctx context.Context) ([]models.ReportMarker, error) {
	markers, err := s.repo.Markers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load report markers")
	}
	return markers, nil
}

// RegisterDataset flattens every report into a tabular dataset for the
// admin CSV/PDF export.
func (s *ReportService) RegisterDataset(ctx context.Context) (export.Dataset, error) {
	reports, _, err := s.repo.List(ctx, models.ReportFilter{Page: 1, PageSize: 100})
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrPersistence.Code, appErrors.ErrPersistence.Status, "failed to load reports for export")
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Judul", "Kategori", "Prioritas", "Status", "Alamat", "Tanggal"},
	}
	for _, r := range reports {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":        r.ID,
			"Judul":     r.Title,
			"Kategori":  string(r.Category),
			"Prioritas": string(r.Priority),
			"Status":    string(r.Status),
			"Alamat":    r.Address,
			"Tanggal":   r.CreatedAt.Format("2006-01-02"),
		})
	}
	return dataset, nil
}

func (s *ReportService) notifyResolved(ctx context.Context, report *models.Report) {
	if s.notifier == nil {
		return
	}
	owner, err := s.users.FindByID(ctx, report.CreatedBy)
	if err != nil {
		s.logger.Warn("report resolved but owner lookup failed, notification skipped",
			zap.String("report_id", report.ID), zap.String("owner_id", report.CreatedBy), zap.Error(err))
		return
	}
	if err := s.notifier.EnqueueResolved(ctx, report, owner); err != nil {
		s.logger.Warn("failed to enqueue resolved notification",
			zap.String("report_id", report.ID), zap.Error(err))
	}
}

func (s *ReportService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateReports(ctx)
	}
}
