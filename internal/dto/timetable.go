package dto

// GenerateRequest triggers a Timetable Solver run for a given term/week.
type GenerateRequest struct {
	TermID            string `json:"term_id"`
	Week              int    `json:"week" validate:"required"`
	TimeBudgetSeconds int    `json:"time_budget_seconds" validate:"omitempty,min=1"`
	Workers           int    `json:"workers" validate:"omitempty,min=1"`
}

// SlotAssignment is one course's final (day, offset, room, teacher) pick,
// mirroring internal/solver.Assignment.
type SlotAssignment struct {
	CourseID           string `json:"course_id"`
	DayOfWeek          string `json:"day_of_week"`
	Offset             int    `json:"offset"`
	RoomID             string `json:"room_id"`
	RoomName           string `json:"room_name"`
	TeacherID          string `json:"teacher_id"`
	TeacherDisplayName string `json:"teacher_display_name"`
}

// Diagnostics mirrors internal/solver.Diagnostics for the HTTP surface.
type Diagnostics struct {
	NoValidStartCourses    []string `json:"no_valid_start_courses,omitempty"`
	NoEligibleRoomCourses  []string `json:"no_eligible_room_courses,omitempty"`
	EmptyEligibleTeachers  []string `json:"empty_eligible_teachers,omitempty"`
	OverCommittedAudiences []string `json:"over_committed_audiences,omitempty"`

	ViolationsForbiddenStart int `json:"violations_forbidden_start"`
	ViolationsOverConsec     int `json:"violations_over_consec"`
	ViolationsCapacity       int `json:"violations_capacity"`
	ViolationsLateFinish     int `json:"violations_late_finish"`
}

// GenerateResponse is returned by a solver run, whether served
// synchronously or fetched from a completed async job.
type GenerateResponse struct {
	ScheduleID  string           `json:"schedule_id,omitempty"`
	TermID      string           `json:"term_id"`
	Week        int              `json:"week"`
	Version     int              `json:"version,omitempty"`
	Status      string           `json:"status"`
	Slots       []SlotAssignment `json:"slots,omitempty"`
	Diagnostics Diagnostics      `json:"diagnostics"`
	Warnings    []string         `json:"warnings,omitempty"`
}

// JobStatus reports the progress of an asynchronously queued solve,
// following the teacher's report-status polling pattern.
type JobStatus struct {
	JobID    string            `json:"job_id"`
	State    string            `json:"state"`
	Result   *GenerateResponse `json:"result,omitempty"`
	Error    string            `json:"error,omitempty"`
	QueuedAt int64             `json:"queued_at"`
}

// WeekScheduleVersion is a lightweight entry in a version listing.
type WeekScheduleVersion struct {
	ID        string `json:"id"`
	Version   int    `json:"version"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// WeekScheduleSummaryResponse lists every version recorded for a
// term/week pair.
type WeekScheduleSummaryResponse struct {
	TermID   string                `json:"term_id"`
	Week     int                   `json:"week"`
	Versions []WeekScheduleVersion `json:"versions"`
}

// DiagnosticsDownloadResponse carries a signed token for fetching a
// large diagnostics dump out of band, per the teacher's export-download
// pattern.
type DiagnosticsDownloadResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}
