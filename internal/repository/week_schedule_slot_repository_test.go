package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

func TestWeekScheduleSlotRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleSlotRepository(db)

	mock.ExpectExec("INSERT INTO week_schedule_slots").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO week_schedule_slots").WillReturnResult(sqlmock.NewResult(1, 1))

	slots := []models.WeekScheduleSlot{
		{WeekScheduleID: "ws-1", CourseID: "course-1", DayOfWeek: 0, Offset: 2, RoomID: "room-1", TeacherID: "teacher-1"},
		{WeekScheduleID: "ws-1", CourseID: "course-2", DayOfWeek: 1, Offset: 4, RoomID: "room-2", TeacherID: "teacher-2"},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), db, slots))
}

func TestWeekScheduleSlotRepositoryInsertBatchEmpty(t *testing.T) {
	db, _, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleSlotRepository(db)
	require.NoError(t, repo.InsertBatch(context.Background(), db, nil))
}

func TestWeekScheduleSlotRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleSlotRepository(db)

	rows := sqlmock.NewRows([]string{"id", "week_schedule_id", "course_id", "day_of_week", "offset", "room_id", "teacher_id", "created_at"}).
		AddRow("slot-1", "ws-1", "course-1", 0, 2, "room-1", "teacher-1", time.Now())
	mock.ExpectQuery("SELECT id, week_schedule_id, course_id, day_of_week").
		WithArgs("ws-1").
		WillReturnRows(rows)

	result, err := repo.ListBySchedule(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, result, 1)
}

func TestWeekScheduleSlotRepositoryDeleteBySchedule(t *testing.T) {
	db, mock, cleanup := newWeekScheduleRepoMock(t)
	defer cleanup()
	repo := NewWeekScheduleSlotRepository(db)

	mock.ExpectExec("DELETE FROM week_schedule_slots").
		WithArgs("ws-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.DeleteBySchedule(context.Background(), db, "ws-1"))
}
