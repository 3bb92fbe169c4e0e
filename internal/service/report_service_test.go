package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	appErrors "github.com/desa-connect/aspirasi-api/pkg/errors"
)

type fakeReportRepo struct {
	mu          sync.Mutex
	reports     map[string]*models.Report
	timeline    map[string][]models.TimelineEntry
	comments    map[string][]models.ReportComment
	createErr   error
	updateErr   error
	timelineErr error
	commentErr  error
	nextID      int
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{
		reports:  make(map[string]*models.Report),
		timeline: make(map[string][]models.TimelineEntry),
		comments: make(map[string][]models.ReportComment),
	}
}

func (f *fakeReportRepo) Create(_ context.Context, report *models.Report, seed *models.TimelineEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	report.ID = fmt.Sprintf("r%d", f.nextID)
	stored := *report
	f.reports[report.ID] = &stored
	seed.ReportID = report.ID
	f.timeline[report.ID] = append(f.timeline[report.ID], *seed)
	return nil
}

func (f *fakeReportRepo) GetByID(_ context.Context, id string) (*models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report, ok := f.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *report
	out.Timeline = append([]models.TimelineEntry(nil), f.timeline[id]...)
	out.Comments = append([]models.ReportComment(nil), f.comments[id]...)
	return &out, nil
}

func (f *fakeReportRepo) List(_ context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Report
	for _, r := range f.reports {
		if filter.CreatedBy != "" && r.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (f *fakeReportRepo) UpdateStatus(_ context.Context, id string, status models.ReportStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	report, ok := f.reports[id]
	if !ok {
		return sql.ErrNoRows
	}
	report.Status = status
	return nil
}

func (f *fakeReportRepo) AppendTimeline(_ context.Context, entry *models.TimelineEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.timelineErr != nil {
		return f.timelineErr
	}
	f.timeline[entry.ReportID] = append(f.timeline[entry.ReportID], *entry)
	return nil
}

func (f *fakeReportRepo) AppendComment(_ context.Context, comment *models.ReportComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments[comment.ReportID] = append(f.comments[comment.ReportID], *comment)
	return nil
}

func (f *fakeReportRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.reports, id)
	delete(f.timeline, id)
	delete(f.comments, id)
	return nil
}

func (f *fakeReportRepo) Markers(_ context.Context) ([]models.ReportMarker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReportMarker
	for _, r := range f.reports {
		out = append(out, models.ReportMarker{ID: r.ID, Title: r.Title, Status: r.Status})
	}
	return out, nil
}

type fakeOwnerDirectory struct {
	users map[string]*models.User
	err   error
}

func (f *fakeOwnerDirectory) FindByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type fakeResolvedNotifier struct {
	enqueued []string
	err      error
}

func (f *fakeResolvedNotifier) EnqueueResolved(_ context.Context, report *models.Report, _ *models.User) error {
	f.enqueued = append(f.enqueued, report.ID)
	return f.err
}

type fakeInvalidator struct {
	calls int
}

func (f *fakeInvalidator) InvalidateReports(context.Context) {
	f.calls++
}

type fakeReportMetrics struct {
	mu       sync.Mutex
	created  int
	statuses []string
}

func (f *fakeReportMetrics) RecordReportCreated() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
}

func (f *fakeReportMetrics) RecordStatusChange(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func validCreateRequest() CreateReportRequest {
	return CreateReportRequest{
		Title:       "Jalan berlubang di depan balai desa",
		Description: "Lubang besar membahayakan pengendara motor terutama malam hari",
		Category:    string(models.CategoryJalanRusak),
		Priority:    string(models.PriorityTinggi),
		Photos:      []string{"https://cdn.desa.example/foto/1.jpg"},
		Latitude:    -6.914744,
		Longitude:   107.609810,
		Address:     "Jl. Raya Desa No. 1",
	}
}

func wargaClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleWarga, FullName: "Budi", Email: id + "@example.com"}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin1", Role: models.RoleAdmin, FullName: "Admin Desa"}
}

func newTestReportService(repo *fakeReportRepo, users *fakeOwnerDirectory, notifier *fakeResolvedNotifier, cache *fakeInvalidator) *ReportService {
	return NewReportService(repo, users, notifier, cache, nil, validator.New(), zap.NewNop())
}

func TestReportServiceCreateStartsPending(t *testing.T) {
	repo := newFakeReportRepo()
	cache := &fakeInvalidator{}
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, cache)

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, report.Status)
	assert.Equal(t, "u1", report.CreatedBy)
	require.Len(t, report.Timeline, 1)
	assert.Equal(t, "Laporan dibuat", report.Timeline[0].Action)
	assert.Equal(t, 1, cache.calls)
}

func TestReportServiceCreateRequiresAuth(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	_, err := svc.Create(context.Background(), validCreateRequest(), nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateDescriptionBoundary(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	req := validCreateRequest()
	req.Description = strings.Repeat("a", 19)
	_, err := svc.Create(context.Background(), req, wargaClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	req.Description = strings.Repeat("a", 20)
	_, err = svc.Create(context.Background(), req, wargaClaims("u1"))
	require.NoError(t, err)
}

func TestReportServiceCreateRequiresPhoto(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	req := validCreateRequest()
	req.Photos = nil
	_, err := svc.Create(context.Background(), req, wargaClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceCreateRejectsUnknownCategory(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	req := validCreateRequest()
	req.Category = "Listrik Padam"
	_, err := svc.Create(context.Background(), req, wargaClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceChangeStatusForbiddenForWarga(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), report.ID, models.StatusResolved, "", wargaClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	current, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, current.Status)
}

func TestReportServiceChangeStatusAppendsTimeline(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	updated, err := svc.ChangeStatus(context.Background(), report.ID, models.StatusInProgress, "Tim sudah di lokasi", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.Len(t, updated.Timeline, 2)
	assert.Equal(t, "Status diubah menjadi in_progress", updated.Timeline[1].Action)
	assert.Equal(t, "Tim sudah di lokasi", updated.Timeline[1].Message)
}

func TestReportServiceChangeStatusRejectsUnknown(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	_, err := svc.ChangeStatus(context.Background(), "r1", models.ReportStatus("archived"), "", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceChangeStatusNotFound(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	_, err := svc.ChangeStatus(context.Background(), "missing", models.StatusResolved, "", adminClaims())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceResolveNotifiesOwner(t *testing.T) {
	repo := newFakeReportRepo()
	users := &fakeOwnerDirectory{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "budi@example.com", FullName: "Budi"},
	}}
	notifier := &fakeResolvedNotifier{}
	svc := newTestReportService(repo, users, notifier, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), report.ID, models.StatusResolved, "", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, []string{report.ID}, notifier.enqueued)
}

func TestReportServiceResolveTwiceIsIdempotent(t *testing.T) {
	repo := newFakeReportRepo()
	users := &fakeOwnerDirectory{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "budi@example.com", FullName: "Budi"},
	}}
	notifier := &fakeResolvedNotifier{}
	svc := newTestReportService(repo, users, notifier, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	first, err := svc.ChangeStatus(context.Background(), report.ID, models.StatusResolved, "", adminClaims())
	require.NoError(t, err)
	second, err := svc.ChangeStatus(context.Background(), report.ID, models.StatusResolved, "", adminClaims())
	require.NoError(t, err)

	assert.Equal(t, models.StatusResolved, first.Status)
	assert.Equal(t, models.StatusResolved, second.Status)
	// Each successful relabel appends its own entry and fires its own email.
	assert.Len(t, second.Timeline, 3)
	assert.Len(t, notifier.enqueued, 2)
}

func TestReportServiceNotificationFailureKeepsStatus(t *testing.T) {
	repo := newFakeReportRepo()
	users := &fakeOwnerDirectory{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "budi@example.com", FullName: "Budi"},
	}}
	notifier := &fakeResolvedNotifier{err: errors.New("smtp down")}
	svc := newTestReportService(repo, users, notifier, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	updated, err := svc.ChangeStatus(context.Background(), report.ID, models.StatusResolved, "", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, updated.Status)
}

func TestReportServiceTimelineFailureKeepsStatus(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	repo.timelineErr = errors.New("insert failed")
	updated, err := svc.ChangeStatus(context.Background(), report.ID, models.StatusRejected, "", adminClaims())
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, updated.Status)
	assert.Len(t, updated.Timeline, 1)
}

func TestReportServiceAddCommentAppends(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	first, err := svc.AddComment(context.Background(), report.ID, "Mohon segera diperbaiki", wargaClaims("u1"))
	require.NoError(t, err)
	second, err := svc.AddComment(context.Background(), report.ID, "Sedang kami jadwalkan", adminClaims())
	require.NoError(t, err)

	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, "Admin Desa", second.UserName)

	current, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	require.Len(t, current.Comments, 2)
	assert.Equal(t, "Mohon segera diperbaiki", current.Comments[0].Text)
	assert.Equal(t, "Sedang kami jadwalkan", current.Comments[1].Text)
}

func TestReportServiceAddCommentRejectsEmpty(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	_, err = svc.AddComment(context.Background(), report.ID, "   ", wargaClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceDeleteAdminOnly(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), report.ID, wargaClaims("u1"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), report.ID, adminClaims()))

	_, err = svc.Get(context.Background(), report.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestReportServiceConcurrentCommentsAllKept(t *testing.T) {
	repo := newFakeReportRepo()
	svc := newTestReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.AddComment(context.Background(), report.ID, fmt.Sprintf("Komentar %d", i), wargaClaims(fmt.Sprintf("u%d", i)))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	current, err := svc.Get(context.Background(), report.ID)
	require.NoError(t, err)
	require.Len(t, current.Comments, writers)

	seen := make(map[string]bool, writers)
	for _, comment := range current.Comments {
		seen[comment.Text] = true
	}
	for i := 0; i < writers; i++ {
		assert.True(t, seen[fmt.Sprintf("Komentar %d", i)], "comment %d lost", i)
	}
}

func TestReportServiceCountsDomainEvents(t *testing.T) {
	repo := newFakeReportRepo()
	metrics := &fakeReportMetrics{}
	svc := NewReportService(repo, &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{}, metrics, validator.New(), zap.NewNop())

	report, err := svc.Create(context.Background(), validCreateRequest(), wargaClaims("u1"))
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), report.ID, models.StatusInProgress, "", adminClaims())
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), report.ID, models.StatusRejected, "", adminClaims())
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.created)
	assert.Equal(t, []string{"in_progress", "rejected"}, metrics.statuses)
}

func TestReportServiceListRejectsUnknownStatus(t *testing.T) {
	svc := newTestReportService(newFakeReportRepo(), &fakeOwnerDirectory{}, &fakeResolvedNotifier{}, &fakeInvalidator{})

	_, _, err := svc.List(context.Background(), ReportListRequest{Status: "archived"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
