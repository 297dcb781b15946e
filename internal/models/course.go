package models

import "time"

// CourseType is the teaching format of a course, which determines which
// level of the audience hierarchy it is taught to.
type CourseType string

const (
	CourseTypeLecture  CourseType = "LECTURE"
	CourseTypeTutorial CourseType = "TUTORIAL"
	CourseTypeLab      CourseType = "LAB"
	CourseTypeProject  CourseType = "PROJECT"
	CourseTypeExam     CourseType = "EXAM"
)

// AudienceType names the level of the student hierarchy a course's
// audience belongs to.
type AudienceType string

const (
	AudienceTypePromotion AudienceType = "promotion"
	AudienceTypeGroup     AudienceType = "group"
	AudienceTypeSubGroup  AudienceType = "subgroup"
)

// Course is a single teaching demand row: a title taught in a given
// format, for a given duration, to a given audience, within a term.
type Course struct {
	ID            string       `db:"id" json:"id"`
	TermID        string       `db:"term_id" json:"term_id"`
	Title         string       `db:"title" json:"title"`
	Type          CourseType   `db:"type" json:"type"`
	DurationSlots int          `db:"duration_slots" json:"duration_slots"`
	AudienceType  AudienceType `db:"audience_type" json:"audience_type"`
	AudienceID    string       `db:"audience_id" json:"audience_id"`
	ObligationDay *string      `db:"obligation_day" json:"obligation_day,omitempty"`
	ObligationOff *int         `db:"obligation_offset" json:"obligation_offset,omitempty"`
	IsExam        bool         `db:"is_exam" json:"is_exam"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// HasObligation reports whether the course carries a fixed (day, offset)
// start obligation.
func (c Course) HasObligation() bool {
	return c.ObligationDay != nil && c.ObligationOff != nil
}

// CourseFilter captures supported filters for listing courses.
type CourseFilter struct {
	TermID       string
	Type         CourseType
	AudienceType AudienceType
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
