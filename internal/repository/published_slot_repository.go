package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// PublishedSlotRepository provides persistence for committed timetable slots.
type PublishedSlotRepository struct {
	db *sqlx.DB
}

// NewPublishedSlotRepository creates a new published slot repository.
func NewPublishedSlotRepository(db *sqlx.DB) *PublishedSlotRepository {
	return &PublishedSlotRepository{db: db}
}

// List returns published slots matching filter with pagination metadata.
func (r *PublishedSlotRepository) List(ctx context.Context, filter models.PublishedSlotFilter) ([]models.PublishedSlot, int, error) {
	base := "FROM published_slots WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Week != 0 {
		conditions = append(conditions, fmt.Sprintf("week = $%d", len(args)+1))
		args = append(args, filter.Week)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	switch sortBy {
	case "day_of_week", "offset", "created_at":
	default:
		sortBy = "day_of_week"
	}
	sortOrder := "ASC"
	if strings.EqualFold(filter.SortOrder, "desc") {
		sortOrder = "DESC"
	}

	var total int
	countQuery := "SELECT COUNT(*) " + base
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count published slots: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(
		"SELECT id, term_id, week, course_id, day_of_week, %q, room_id, teacher_id, created_at, updated_at %s ORDER BY %s %s, offset ASC LIMIT $%d OFFSET $%d",
		"offset", base, sortBy, sortOrder, len(args)+1, len(args)+2,
	)
	args = append(args, pageSize, offset)

	var slots []models.PublishedSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list published slots: %w", err)
	}
	return slots, total, nil
}

// FindByID fetches a published slot by id.
func (r *PublishedSlotRepository) FindByID(ctx context.Context, id string) (*models.PublishedSlot, error) {
	var slot models.PublishedSlot
	query := `SELECT id, term_id, week, course_id, day_of_week, "offset", room_id, teacher_id, created_at, updated_at
		FROM published_slots WHERE id = $1`
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, fmt.Errorf("find published slot: %w", err)
	}
	return &slot, nil
}

// ReplaceForWeek atomically clears and re-inserts all published slots for a
// term/week pair, used when a WeekSchedule version is promoted to PUBLISHED.
func (r *PublishedSlotRepository) ReplaceForWeek(ctx context.Context, termID string, week int, slots []models.PublishedSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM published_slots WHERE term_id = $1 AND week = $2`, termID, week); err != nil {
		return fmt.Errorf("clear published slots: %w", err)
	}

	now := time.Now().UTC()
	insert := `INSERT INTO published_slots (id, term_id, week, course_id, day_of_week, "offset", room_id, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	for _, s := range slots {
		id := s.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, insert, id, termID, week, s.CourseID, s.DayOfWeek, s.Offset, s.RoomID, s.TeacherID, now); err != nil {
			return fmt.Errorf("insert published slot: %w", err)
		}
	}

	return tx.Commit()
}

// Delete removes all published slots for a term/week pair.
func (r *PublishedSlotRepository) Delete(ctx context.Context, termID string, week int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM published_slots WHERE term_id = $1 AND week = $2`, termID, week)
	if err != nil {
		return fmt.Errorf("delete published slots: %w", err)
	}
	return nil
}
