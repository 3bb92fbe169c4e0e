package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/desa-connect/aspirasi-api/internal/models"
	"github.com/desa-connect/aspirasi-api/pkg/jobs"
)

type fakeNotificationRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Notification
	nextID  int
	pending []models.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{rows: make(map[string]*models.Notification)}
}

func (f *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if n.ID == "" {
		n.ID = "n" + string(rune('0'+f.nextID))
	}
	n.Status = models.NotificationPending
	stored := *n
	f.rows[n.ID] = &stored
	return nil
}

func (f *fakeNotificationRepo) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return errors.New("row not found")
	}
	row.Status = models.NotificationSent
	row.SentAt = &sentAt
	return nil
}

func (f *fakeNotificationRepo) MarkFailed(_ context.Context, id string, attempts int, lastError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return errors.New("row not found")
	}
	row.Status = models.NotificationFailed
	row.Attempts = attempts
	row.LastError = &lastError
	return nil
}

func (f *fakeNotificationRepo) ListPending(context.Context, int) ([]models.Notification, error) {
	return f.pending, nil
}

func (f *fakeNotificationRepo) row(id string) models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[id]
}

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (f *fakeEmailSender) SendResolved(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeEmailSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeEmailMetrics struct {
	mu     sync.Mutex
	sent   int
	failed int
}

func (f *fakeEmailMetrics) RecordEmailDispatch(sent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sent {
		f.sent++
	} else {
		f.failed++
	}
}

func (f *fakeEmailMetrics) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent, f.failed
}

func TestNotificationServiceEnqueuePersistsOutboxRow(t *testing.T) {
	repo := newFakeNotificationRepo()
	svc := NewNotificationService(repo, &fakeEmailSender{}, nil, jobs.QueueConfig{}, zap.NewNop())

	report := &models.Report{ID: "r1", Title: "Jalan berlubang"}
	owner := &models.User{ID: "u1", FullName: "Budi", Email: "budi@example.com"}

	// Queue not started: the row must still be persisted for recovery.
	err := svc.EnqueueResolved(context.Background(), report, owner)
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)
	for _, row := range repo.rows {
		assert.Equal(t, "r1", row.ReportID)
		assert.Equal(t, "budi@example.com", row.RecipientEmail)
		assert.Equal(t, models.NotificationPending, row.Status)
	}
}

func TestNotificationServiceDispatchMarksSent(t *testing.T) {
	repo := newFakeNotificationRepo()
	sender := &fakeEmailSender{}
	metrics := &fakeEmailMetrics{}
	svc := NewNotificationService(repo, sender, metrics, jobs.QueueConfig{}, zap.NewNop())

	n := &models.Notification{ReportID: "r1", RecipientEmail: "budi@example.com"}
	require.NoError(t, repo.Create(context.Background(), n))

	err := svc.dispatch(context.Background(), jobs.Job{ID: n.ID, Type: "resolved_email", Payload: *n})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, models.NotificationSent, repo.rows[n.ID].Status)
	require.NotNil(t, repo.rows[n.ID].SentAt)

	sent, failed := metrics.counts()
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
}

func TestNotificationServiceDispatchMarksFailed(t *testing.T) {
	repo := newFakeNotificationRepo()
	sender := &fakeEmailSender{err: errors.New("provider unavailable")}
	metrics := &fakeEmailMetrics{}
	svc := NewNotificationService(repo, sender, metrics, jobs.QueueConfig{}, zap.NewNop())

	n := &models.Notification{ReportID: "r1", RecipientEmail: "budi@example.com"}
	require.NoError(t, repo.Create(context.Background(), n))

	err := svc.dispatch(context.Background(), jobs.Job{ID: n.ID, Type: "resolved_email", Payload: *n})
	require.Error(t, err)
	assert.Equal(t, models.NotificationFailed, repo.rows[n.ID].Status)
	require.NotNil(t, repo.rows[n.ID].LastError)
	assert.Equal(t, "provider unavailable", *repo.rows[n.ID].LastError)

	sent, failed := metrics.counts()
	assert.Equal(t, 0, sent)
	assert.Equal(t, 1, failed)
}

func TestNotificationServiceStartRecoversPending(t *testing.T) {
	repo := newFakeNotificationRepo()
	repo.pending = []models.Notification{
		{ID: "n1", ReportID: "r1", RecipientEmail: "budi@example.com", Status: models.NotificationPending},
	}
	n := &models.Notification{ID: "n1", ReportID: "r1", RecipientEmail: "budi@example.com"}
	require.NoError(t, repo.Create(context.Background(), n))

	sender := &fakeEmailSender{}
	svc := NewNotificationService(repo, sender, nil, jobs.QueueConfig{Workers: 1, RetryDelay: time.Millisecond}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	require.Eventually(t, func() bool {
		return sender.sentCount() == 1
	}, time.Second, 10*time.Millisecond)
	svc.Stop()

	assert.Equal(t, models.NotificationSent, repo.row("n1").Status)
}
