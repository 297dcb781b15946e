package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// CourseEligibilityRepository persists teacher-course eligibility links.
type CourseEligibilityRepository struct {
	db *sqlx.DB
}

// NewCourseEligibilityRepository constructs the repository.
func NewCourseEligibilityRepository(db *sqlx.DB) *CourseEligibilityRepository {
	return &CourseEligibilityRepository{db: db}
}

// ListByTeacher returns eligibility rows owned by a teacher.
func (r *CourseEligibilityRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseEligibilityDetail, error) {
	const query = `
SELECT ce.id, ce.teacher_id, ce.course_id, ce.created_at,
       c.title AS course_title, t.name AS term_name, tr.full_name AS teacher_name
FROM course_eligibilities ce
JOIN courses c ON c.id = ce.course_id
JOIN terms t ON t.id = c.term_id
JOIN teachers tr ON tr.id = ce.teacher_id
WHERE ce.teacher_id = $1
ORDER BY t.start_date DESC, c.title ASC`
	var rows []models.CourseEligibilityDetail
	if err := r.db.SelectContext(ctx, &rows, query, teacherID); err != nil {
		return nil, fmt.Errorf("list course eligibilities: %w", err)
	}
	return rows, nil
}

// ListByCourse returns every teacher eligible to teach a course, used by
// the data preparation step to build the solver's eligible-teacher sets.
func (r *CourseEligibilityRepository) ListByCourse(ctx context.Context, courseID string) ([]models.CourseEligibility, error) {
	const query = `SELECT id, teacher_id, course_id, created_at FROM course_eligibilities WHERE course_id = $1`
	var rows []models.CourseEligibility
	if err := r.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, fmt.Errorf("list course eligibilities by course: %w", err)
	}
	return rows, nil
}

// ListAllForTerm returns every eligibility row in a term, used to batch-load the
// eligible-teacher index rather than issuing one query per course.
func (r *CourseEligibilityRepository) ListAllForTerm(ctx context.Context, termID string) ([]models.CourseEligibility, error) {
	const query = `
SELECT ce.id, ce.teacher_id, ce.course_id, ce.created_at
FROM course_eligibilities ce
JOIN courses c ON c.id = ce.course_id
WHERE c.term_id = $1`
	var rows []models.CourseEligibility
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list course eligibilities for term: %w", err)
	}
	return rows, nil
}

// Exists checks if the teacher-course pair is already recorded.
func (r *CourseEligibilityRepository) Exists(ctx context.Context, teacherID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM course_eligibilities WHERE teacher_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, teacherID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course eligibility: %w", err)
	}
	return true, nil
}

// Create inserts a new eligibility link.
func (r *CourseEligibilityRepository) Create(ctx context.Context, eligibility *models.CourseEligibility) error {
	if eligibility.ID == "" {
		eligibility.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if eligibility.CreatedAt.IsZero() {
		eligibility.CreatedAt = now
	}
	const query = `INSERT INTO course_eligibilities (id, teacher_id, course_id, created_at)
		VALUES (:id, :teacher_id, :course_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, eligibility); err != nil {
		return fmt.Errorf("create course eligibility: %w", err)
	}
	return nil
}

// Delete removes an eligibility row verifying teacher ownership.
func (r *CourseEligibilityRepository) Delete(ctx context.Context, teacherID, eligibilityID string) error {
	const query = `DELETE FROM course_eligibilities WHERE id = $1 AND teacher_id = $2`
	result, err := r.db.ExecContext(ctx, query, eligibilityID, teacherID)
	if err != nil {
		return fmt.Errorf("delete course eligibility: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted eligibility rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByTeacherAndTerm returns the number of eligibility rows for a
// teacher within a term, used as a teaching-load soft limit input.
func (r *CourseEligibilityRepository) CountByTeacherAndTerm(ctx context.Context, teacherID, termID string) (int, error) {
	const query = `
SELECT COUNT(*) FROM course_eligibilities ce
JOIN courses c ON c.id = ce.course_id
WHERE ce.teacher_id = $1 AND c.term_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, termID); err != nil {
		return 0, fmt.Errorf("count course eligibilities: %w", err)
	}
	return count, nil
}
