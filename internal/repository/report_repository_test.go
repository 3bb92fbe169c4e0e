package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/desa-connect/aspirasi-api/internal/models"
)

func newReportRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReportRepositoryCreateSeedsTimeline(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_timeline")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	report := &models.Report{
		Title:       "Jalan berlubang di depan balai desa",
		Description: "Lubang besar membahayakan pengendara",
		Category:    models.CategoryJalanRusak,
		Priority:    models.PriorityTinggi,
		Photos:      pq.StringArray{"https://cdn.desa.example/foto/1.jpg"},
		Address:     "Jl. Raya Desa No. 1",
		Status:      models.StatusPending,
		CreatedBy:   "u1",
	}
	seed := &models.TimelineEntry{ActorID: "u1", Action: "Laporan dibuat"}

	require.NoError(t, repo.Create(context.Background(), report, seed))
	require.NotEmpty(t, report.ID)
	require.Equal(t, report.ID, seed.ReportID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCreateRollsBackOnSeedFailure(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reports")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_timeline")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	report := &models.Report{Title: "Jalan berlubang", Status: models.StatusPending}
	err := repo.Create(context.Background(), report, &models.TimelineEntry{ActorID: "u1", Action: "Laporan dibuat"})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByIDLoadsLogs(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	now := time.Now().UTC()

	reportRows := sqlmock.NewRows([]string{"id", "title", "description", "category", "priority", "photos", "latitude", "longitude", "address", "status", "created_by", "created_at", "updated_at"}).
		AddRow("r1", "Jalan berlubang", "Lubang besar", "Jalan Rusak", "tinggi", "{https://cdn.desa.example/foto/1.jpg}", -6.9, 107.6, "Jl. Raya", "pending", "u1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, category")).
		WithArgs("r1").
		WillReturnRows(reportRows)

	timelineRows := sqlmock.NewRows([]string{"id", "report_id", "actor_id", "action", "message", "created_at"}).
		AddRow("t1", "r1", "u1", "Laporan dibuat", "", now).
		AddRow("t2", "r1", "admin1", "Status diubah menjadi in_progress", "Tim di lokasi", now.Add(time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_timeline")).
		WithArgs("r1").
		WillReturnRows(timelineRows)

	commentRows := sqlmock.NewRows([]string{"id", "report_id", "user_id", "user_name", "user_avatar", "text", "created_at"}).
		AddRow("c1", "r1", "u1", "Budi", "", "Mohon segera", now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_comments")).
		WithArgs("r1").
		WillReturnRows(commentRows)

	report, err := repo.GetByID(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, report.Timeline, 2)
	require.Len(t, report.Comments, 1)
	require.Equal(t, "Laporan dibuat", report.Timeline[0].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateStatusNotFound(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reports SET status")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", models.StatusResolved)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	now := time.Now().UTC()
	status := models.StatusPending

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "priority", "photos", "latitude", "longitude", "address", "status", "created_by", "created_at", "updated_at"}).
		AddRow("r1", "Jalan berlubang", "Lubang besar", "Jalan Rusak", "tinggi", "{}", 0.0, 0.0, "Jl. Raya", "pending", "u1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, category")).
		WithArgs("u1", status).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("u1", status).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	reports, total, err := repo.List(context.Background(), models.ReportFilter{CreatedBy: "u1", Status: &status})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reports")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("pending", 3).
		AddRow("resolved", 2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*)")).
		WillReturnRows(rows)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	require.Equal(t, models.StatusPending, counts[0].Status)
	require.Equal(t, 3, counts[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}
