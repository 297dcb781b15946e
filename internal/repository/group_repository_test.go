package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func newGroupRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() { db.Close() }
}

func TestGroupRepositoryList(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	rows := sqlmock.NewRows([]string{"id", "promotion_id", "name", "size", "created_at", "updated_at"}).
		AddRow("g1", "p1", "G1", 30, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, promotion_id, name, size, created_at, updated_at FROM groups WHERE 1=1 AND promotion_id = $1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("p1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM groups WHERE 1=1 AND promotion_id = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.GroupFilter{PromotionID: "p1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	rows := sqlmock.NewRows([]string{"id", "promotion_id", "name", "size", "created_at", "updated_at", "promotion_name"}).
		AddRow("g1", "p1", "G1", 30, time.Now(), time.Now(), "BUT1")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE g.id = $1")).
		WithArgs("g1").
		WillReturnRows(rows)

	detail, err := repo.FindDetailByID(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "BUT1", detail.PromotionName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryExistsByName(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM groups WHERE promotion_id = $1 AND LOWER(name) = LOWER($2) LIMIT 1")).
		WithArgs("p1", "G1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByName(context.Background(), "p1", "G1", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectExec("INSERT INTO groups").
		WithArgs(sqlmock.AnyArg(), "p1", "G1", 30, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.Group{PromotionID: "p1", Name: "G1", Size: 30})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGroupRepositoryCountSubGroupsAndCourses(t *testing.T) {
	db, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()
	repo := NewGroupRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sub_groups WHERE group_id = $1")).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM courses WHERE audience_type = 'group' AND audience_id = $1")).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	subGroups, err := repo.CountSubGroups(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 2, subGroups)

	courses, err := repo.CountCourses(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, 0, courses)
	assert.NoError(t, mock.ExpectationsWereMet())
}
