package models

import "time"

// CourseEligibility links a teacher to a course they are permitted to
// teach. A course with no eligibility rows falls back to the full
// teacher pool (see internal/prep).
type CourseEligibility struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CourseEligibilityDetail enriches an eligibility row with descriptive fields.
type CourseEligibilityDetail struct {
	CourseEligibility
	CourseTitle string  `db:"course_title" json:"course_title"`
	TermName    string  `db:"term_name" json:"term_name"`
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
