package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// WeekScheduleSlotRepository persists the per-course assignments that
// make up one WeekSchedule version.
type WeekScheduleSlotRepository struct {
	db *sqlx.DB
}

// NewWeekScheduleSlotRepository constructs the repository.
func NewWeekScheduleSlotRepository(db *sqlx.DB) *WeekScheduleSlotRepository {
	return &WeekScheduleSlotRepository{db: db}
}

// InsertBatch writes every slot of a freshly solved version within the
// given executor, so callers can wrap it in the same transaction as the
// parent WeekSchedule row.
func (r *WeekScheduleSlotRepository) InsertBatch(ctx context.Context, exec sqlExecer, slots []models.WeekScheduleSlot) error {
	const query = `INSERT INTO week_schedule_slots (id, week_schedule_id, course_id, day_of_week, "offset", room_id, teacher_id, created_at)
		VALUES (:id, :week_schedule_id, :course_id, :day_of_week, :offset, :room_id, :teacher_id, now())`
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if _, err := exec.NamedExecContext(ctx, query, slots[i]); err != nil {
			return fmt.Errorf("insert week schedule slot: %w", err)
		}
	}
	return nil
}

// ListBySchedule returns every slot belonging to a WeekSchedule version.
func (r *WeekScheduleSlotRepository) ListBySchedule(ctx context.Context, weekScheduleID string) ([]models.WeekScheduleSlot, error) {
	const query = `SELECT id, week_schedule_id, course_id, day_of_week, "offset", room_id, teacher_id, created_at
		FROM week_schedule_slots WHERE week_schedule_id = $1 ORDER BY day_of_week ASC, "offset" ASC`
	var rows []models.WeekScheduleSlot
	if err := r.db.SelectContext(ctx, &rows, query, weekScheduleID); err != nil {
		return nil, fmt.Errorf("list week schedule slots: %w", err)
	}
	return rows, nil
}

// DeleteBySchedule removes every slot belonging to a WeekSchedule
// version, used before deleting the parent row.
func (r *WeekScheduleSlotRepository) DeleteBySchedule(ctx context.Context, exec sqlExecer, weekScheduleID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM week_schedule_slots WHERE week_schedule_id = $1`, weekScheduleID); err != nil {
		return fmt.Errorf("delete week schedule slots: %w", err)
	}
	return nil
}
