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

func newCourseEligibilityMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseEligibilityRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newCourseEligibilityMock(t)
	defer cleanup()
	repo := NewCourseEligibilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "course_id", "created_at", "course_title", "term_name", "teacher_name"}).
		AddRow("elig-1", "teacher-1", "course-1", time.Now(), "Algorithmics", "Semester 1", "Teacher One")
	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT ce.id, ce.teacher_id, ce.course_id, ce.created_at,
       c.title AS course_title, t.name AS term_name, tr.full_name AS teacher_name
FROM course_eligibilities ce
JOIN courses c ON c.id = ce.course_id
JOIN terms t ON t.id = c.term_id
JOIN teachers tr ON tr.id = ce.teacher_id
WHERE ce.teacher_id = $1
ORDER BY t.start_date DESC, c.title ASC`)).
		WithArgs("teacher-1").
		WillReturnRows(rows)

	details, err := repo.ListByTeacher(context.Background(), "teacher-1")
	require.NoError(t, err)
	assert.Len(t, details, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseEligibilityRepositoryListByCourse(t *testing.T) {
	db, mock, cleanup := newCourseEligibilityMock(t)
	defer cleanup()
	repo := NewCourseEligibilityRepository(db)

	rows := sqlmock.NewRows([]string{"id", "teacher_id", "course_id", "created_at"}).
		AddRow("elig-1", "teacher-1", "course-1", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher_id, course_id, created_at FROM course_eligibilities WHERE course_id = $1")).
		WithArgs("course-1").
		WillReturnRows(rows)

	eligibilities, err := repo.ListByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Len(t, eligibilities, 1)
	assert.Equal(t, "teacher-1", eligibilities[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseEligibilityRepositoryCreateDelete(t *testing.T) {
	db, mock, cleanup := newCourseEligibilityMock(t)
	defer cleanup()
	repo := NewCourseEligibilityRepository(db)

	mock.ExpectExec("INSERT INTO course_eligibilities").
		WithArgs(sqlmock.AnyArg(), "teacher-1", "course-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), &models.CourseEligibility{
		TeacherID: "teacher-1",
		CourseID:  "course-1",
	})
	require.NoError(t, err)

	mock.ExpectExec("DELETE FROM course_eligibilities").
		WithArgs("eligibility-1", "teacher-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "teacher-1", "eligibility-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseEligibilityRepositoryExistsAndCount(t *testing.T) {
	db, mock, cleanup := newCourseEligibilityMock(t)
	defer cleanup()
	repo := NewCourseEligibilityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM course_eligibilities WHERE teacher_id = $1 AND course_id = $2 LIMIT 1")).
		WithArgs("teacher-1", "course-1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "teacher-1", "course-1")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta(`
SELECT COUNT(*) FROM course_eligibilities ce
JOIN courses c ON c.id = ce.course_id
WHERE ce.teacher_id = $1 AND c.term_id = $2`)).
		WithArgs("teacher-1", "term-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByTeacherAndTerm(context.Background(), "teacher-1", "term-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
