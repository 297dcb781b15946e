package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func newWeekScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func TestWeekScheduleRepositoryNextVersion(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleRepository(db)

	mock.ExpectQuery("SELECT MAX\\(version\\)").
		WithArgs("term-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))

	version, err := repo.NextVersion(context.Background(), "term-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
}

func TestWeekScheduleRepositoryNextVersionFirst(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleRepository(db)

	mock.ExpectQuery("SELECT MAX\\(version\\)").
		WithArgs("term-1", 5).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	version, err := repo.NextVersion(context.Background(), "term-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestWeekScheduleRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleRepository(db)

	mock.ExpectExec("INSERT INTO week_schedules").
		WillReturnResult(sqlmock.NewResult(1, 1))

	schedule := &models.WeekSchedule{
		TermID:  "term-1",
		Week:    5,
		Version: 1,
	}
	require.NoError(t, repo.CreateVersioned(context.Background(), db, schedule))
	assert.NotEmpty(t, schedule.ID)
	assert.Equal(t, models.WeekScheduleStatusDraft, schedule.Status)
}

func TestWeekScheduleRepositoryListByTermWeek(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleRepository(db)

	rows := sqlmock.NewRows([]string{"id", "term_id", "week", "version", "status", "meta", "created_at", "updated_at"}).
		AddRow("ws-1", "term-1", 5, 2, "DRAFT", []byte("{}"), time.Now(), time.Now()).
		AddRow("ws-2", "term-1", 5, 1, "ARCHIVED", []byte("{}"), time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, term_id, week, version, status, meta, created_at, updated_at").
		WithArgs("term-1", 5).
		WillReturnRows(rows)

	result, err := repo.ListByTermWeek(context.Background(), "term-1", 5)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 2, result[0].Version)
}

func TestWeekScheduleRepositoryUpdateStatusNotFound(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleRepository(db)

	mock.ExpectExec("UPDATE week_schedules SET status").
		WithArgs(models.WeekScheduleStatusPublished, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), db, "missing", models.WeekScheduleStatusPublished)
	require.Error(t, err)
}

func TestWeekScheduleRepositoryArchiveSiblings(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleRepository(db)

	mock.ExpectExec("UPDATE week_schedules SET status").
		WithArgs(models.WeekScheduleStatusArchived, "term-1", 5, "ws-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.ArchiveSiblings(context.Background(), db, "term-1", 5, "ws-1"))
}

func TestWeekScheduleRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleRepository(db)

	mock.ExpectExec("DELETE FROM week_schedules").
		WithArgs("ws-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "ws-1"))
}
