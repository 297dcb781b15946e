package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new repository instance.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses matching filters with pagination metadata.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := "FROM courses WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.AudienceType != "" {
		conditions = append(conditions, fmt.Sprintf("audience_type = $%d", len(args)+1))
		args = append(args, filter.AudienceType)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"title":      true,
		"type":       true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(
		"SELECT id, term_id, title, type, duration_slots, audience_type, audience_id, obligation_day, obligation_offset, is_exam, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d",
		base, sortBy, order, size, offset,
	)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// FindByID returns a course by id.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, term_id, title, type, duration_slots, audience_type, audience_id, obligation_day, obligation_offset, is_exam, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListByTerm returns every course scheduled within a term, used by the data
// preparation step to build the solver's course demand set.
func (r *CourseRepository) ListByTerm(ctx context.Context, termID string) ([]models.Course, error) {
	const query = `SELECT id, term_id, title, type, duration_slots, audience_type, audience_id, obligation_day, obligation_offset, is_exam, created_at, updated_at
		FROM courses WHERE term_id = $1 ORDER BY created_at ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, termID); err != nil {
		return nil, fmt.Errorf("list courses by term: %w", err)
	}
	return courses, nil
}

// Exists reports whether a course id is known, grounding
// store.SubjectChecker.CourseSlotExists.
func (r *CourseRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM courses WHERE id = $1 LIMIT 1`, id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check course exists: %w", err)
	}
	return true, nil
}

// ExistsByTitle checks uniqueness of a course title within a term.
func (r *CourseRepository) ExistsByTitle(ctx context.Context, termID, title string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE term_id = $1 AND LOWER(title) = LOWER($2)"
	args := []interface{}{termID, title}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}

	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course title: %w", err)
	}
	return true, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, term_id, title, type, duration_slots, audience_type, audience_id, obligation_day, obligation_offset, is_exam, created_at, updated_at)
		VALUES (:id, :term_id, :title, :type, :duration_slots, :audience_type, :audience_id, :obligation_day, :obligation_offset, :is_exam, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET title = :title, type = :type, duration_slots = :duration_slots,
		audience_type = :audience_type, audience_id = :audience_id, obligation_day = :obligation_day,
		obligation_offset = :obligation_offset, is_exam = :is_exam, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course record.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// CountEligibilities returns the number of course_eligibilities rows
// referencing the course, used as a delete precondition.
func (r *CourseRepository) CountEligibilities(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM course_eligibilities WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count course eligibilities: %w", err)
	}
	return count, nil
}
