package dto

import "time"

// ConstraintRecord is the wire representation of a Constraint Store entry.
type ConstraintRecord struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	SubjectID   string    `json:"subject_id"`
	DayOfWeek   string    `json:"day_of_week"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	Reason      string    `json:"reason"`
	Priority    string    `json:"priority"`
	Week        *int      `json:"week,omitempty"`
	IsExam      bool      `json:"is_exam,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateConstraintRequest is the payload for adding a single constraint
// record. Kind selects which Store method handles it; SubjectID names the
// teacher, room, audience, or course slot the record constrains.
type CreateConstraintRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=teacher-unavailable room-unavailable group-unavailable slot-fixed slot-exam"`
	SubjectID   string `json:"subject_id" validate:"required"`
	DayOfWeek   string `json:"day_of_week" validate:"required"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset" validate:"required"`
	Reason      string `json:"reason"`
	Priority    string `json:"priority"`
	Week        *int   `json:"week,omitempty"`
}

// BulkCreateConstraintRequest batches several constraint records into a
// single insert transaction.
type BulkCreateConstraintRequest struct {
	Records []CreateConstraintRequest `json:"records" validate:"required,min=1,dive"`
}

// UpdateConstraintRequest patches a subset of a constraint record's fields.
type UpdateConstraintRequest struct {
	Reason      *string `json:"reason,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	StartOffset *int    `json:"start_offset,omitempty"`
	EndOffset   *int    `json:"end_offset,omitempty"`
}

// UpdatePriorityRequest reassigns a record's priority.
type UpdatePriorityRequest struct {
	Priority string `json:"priority" validate:"required,oneof=hard medium soft"`
}

// CheckAvailabilityRequest is the payload for a read-only availability
// query against the Constraint Validator.
type CheckAvailabilityRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=teacher room group"`
	SubjectID string `json:"subject_id" validate:"required"`
	DayOfWeek string `json:"day_of_week" validate:"required"`
	Start     int    `json:"start"`
	End       int    `json:"end" validate:"required"`
	Week      int    `json:"week"`
}

// CheckAvailabilityResponse reports the outcome of a single availability
// query.
type CheckAvailabilityResponse struct {
	Available bool   `json:"available"`
	Priority  string `json:"priority,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
