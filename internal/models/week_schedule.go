package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// WeekScheduleStatus represents lifecycle phases for a solved timetable.
type WeekScheduleStatus string

const (
	WeekScheduleStatusDraft     WeekScheduleStatus = "DRAFT"
	WeekScheduleStatusPublished WeekScheduleStatus = "PUBLISHED"
	WeekScheduleStatusArchived  WeekScheduleStatus = "ARCHIVED"
)

// WeekSchedule captures a versioned solver proposal for a term/week pair.
// Each run of the Timetable Solver for a given week produces a new
// version; exactly one version per (term, week) may be PUBLISHED.
type WeekSchedule struct {
	ID        string             `db:"id" json:"id"`
	TermID    string             `db:"term_id" json:"term_id"`
	Week      int                `db:"week" json:"week"`
	Version   int                `db:"version" json:"version"`
	Status    WeekScheduleStatus `db:"status" json:"status"`
	Meta      types.JSONText     `db:"meta" json:"meta"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}

// WeekScheduleSlot is one course assignment inside a WeekSchedule: the
// (day, offset, room, teacher) the solver picked for a course.
type WeekScheduleSlot struct {
	ID             string    `db:"id" json:"id"`
	WeekScheduleID string    `db:"week_schedule_id" json:"week_schedule_id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	DayOfWeek      int       `db:"day_of_week" json:"day_of_week"`
	Offset         int       `db:"offset" json:"offset"`
	RoomID         string    `db:"room_id" json:"room_id"`
	TeacherID      string    `db:"teacher_id" json:"teacher_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// WeekScheduleSummary aggregates versions available for a term/week pair.
type WeekScheduleSummary struct {
	TermID    string             `json:"term_id"`
	Week      int                `json:"week"`
	ActiveID  *string            `json:"active_id,omitempty"`
	Versions  []WeekScheduleMeta `json:"versions"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// WeekScheduleMeta represents lightweight metadata for list views.
type WeekScheduleMeta struct {
	ID        string             `json:"id"`
	Version   int                `json:"version"`
	Status    WeekScheduleStatus `json:"status"`
	Score     float64            `json:"score"`
	CreatedAt time.Time          `json:"created_at"`
}
