package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// LegacyUnavailableSlot is the pre-Constraint-Store shape of a blocked
// teaching window, as still carried by rows written before the
// availability_records table existed.
type LegacyUnavailableSlot struct {
	DayOfWeek string `json:"day_of_week"`
	TimeRange string `json:"time_range"`
}

// LegacyTeacherConstraint is the superseded per-teacher preferences row.
// It is read-only from the solver's perspective; internal/store.BulkAdd
// is how its Unavailable payload is migrated into first-class
// availability_records entries.
type LegacyTeacherConstraint struct {
	ID             string         `db:"id" json:"id"`
	TeacherID      string         `db:"teacher_id" json:"teacher_id"`
	MaxLoadPerDay  int            `db:"max_load_per_day" json:"max_load_per_day"`
	MaxLoadPerWeek int            `db:"max_load_per_week" json:"max_load_per_week"`
	Unavailable    types.JSONText `db:"unavailable" json:"unavailable"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
