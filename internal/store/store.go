// Package store implements the constraint store: a persistent catalog of
// typed unavailability and obligation records for teachers, rooms, groups,
// and individual course slots, scoped to a specific week or permanent, and
// carrying a hard/medium/soft priority.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

// Kind identifies the subject type an availability record constrains.
type Kind string

const (
	KindTeacherUnavailable Kind = "teacher-unavailable"
	KindRoomUnavailable    Kind = "room-unavailable"
	KindGroupUnavailable   Kind = "group-unavailable"
	KindSlotFixed          Kind = "slot-fixed"
	KindSlotExam           Kind = "slot-exam"
)

// Priority is the severity of a stored record.
type Priority string

const (
	PriorityHard   Priority = "hard"
	PriorityMedium Priority = "medium"
	PrioritySoft   Priority = "soft"
)

// ParsePriority parses the persisted string form. Per spec, any value
// outside {hard, medium, soft} is treated as PriorityHard with the caller
// expected to log the fallback.
func ParsePriority(raw string) (p Priority, fellBack bool) {
	switch Priority(strings.ToLower(raw)) {
	case PriorityHard:
		return PriorityHard, false
	case PriorityMedium:
		return PriorityMedium, false
	case PrioritySoft:
		return PrioritySoft, false
	default:
		return PriorityHard, true
	}
}

func (p Priority) rank() int {
	switch p {
	case PriorityHard:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Higher returns the higher-ranked of two priorities (hard > medium > soft).
func Higher(a, b Priority) Priority {
	if a.rank() >= b.rank() {
		return a
	}
	return b
}

// Record is a single Constraint Store entry.
type Record struct {
	ID          string    `db:"id" json:"id"`
	Kind        Kind      `db:"kind" json:"kind"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	DayOfWeek   string    `db:"day_of_week" json:"day_of_week"`
	StartOffset int       `db:"start_offset" json:"start_offset"`
	EndOffset   int       `db:"end_offset" json:"end_offset"`
	Reason      string    `db:"reason" json:"reason"`
	Priority    Priority  `db:"priority" json:"priority"`
	WeekID      *int      `db:"week_id" json:"week_id,omitempty"`
	IsExam      bool      `db:"is_exam" json:"is_exam,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Filter narrows List queries.
type Filter struct {
	SubjectID string
	Week      *int
	Global    bool // when true, ignore week scoping entirely
}

// Patch describes a partial update to a record.
type Patch struct {
	Reason      *string
	Priority    *Priority
	StartOffset *int
	EndOffset   *int
}

// SubjectChecker validates that a constraint subject exists before a
// record referencing it is admitted. A nil SubjectChecker skips validation.
type SubjectChecker interface {
	TeacherExists(ctx context.Context, id string) (bool, error)
	RoomExists(ctx context.Context, id string) (bool, error)
	GroupExists(ctx context.Context, id string) (bool, error)
	CourseSlotExists(ctx context.Context, id string) (bool, error)
}

// Store is the Constraint Store. It tolerates absence of the week_id
// column (legacy mode) per spec's schema-tolerance requirement; the
// capability is probed once at construction.
type Store struct {
	db           *sqlx.DB
	checker      SubjectChecker
	hasWeekScope bool
}

// New constructs a Store and probes whether the availability_records
// table carries a week_id column. checker may be nil to skip subject
// existence validation (e.g. in tests).
func New(ctx context.Context, db *sqlx.DB, checker SubjectChecker) (*Store, error) {
	hasWeek, err := probeWeekColumn(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("probe availability_records schema: %w", err)
	}
	return &Store{db: db, checker: checker, hasWeekScope: hasWeek}, nil
}

// HasWeekScope reports whether the underlying schema supports week-scoped
// records. When false, the Store operates in permanent-only legacy mode.
func (s *Store) HasWeekScope() bool {
	return s.hasWeekScope
}

func probeWeekColumn(ctx context.Context, db *sqlx.DB) (bool, error) {
	const query = `SELECT COUNT(*) FROM information_schema.columns WHERE table_name = 'availability_records' AND column_name = 'week_id'`
	var count int
	if err := db.GetContext(ctx, &count, query); err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddTeacherUnavailable validates the teacher exists then inserts a
// teacher-unavailable record.
func (s *Store) AddTeacherUnavailable(ctx context.Context, teacherID, day string, start, end int, reason string, priority Priority, week *int) (string, error) {
	if s.checker != nil {
		ok, err := s.checker.TeacherExists(ctx, teacherID)
		if err != nil {
			return "", fmt.Errorf("check teacher existence: %w", err)
		}
		if !ok {
			return "", appErrors.Clone(appErrors.ErrUnknownSubject, "unknown teacher")
		}
	}
	return s.insert(ctx, KindTeacherUnavailable, teacherID, day, start, end, reason, priority, week, false)
}

// AddRoomUnavailable validates the room exists then inserts a
// room-unavailable record.
func (s *Store) AddRoomUnavailable(ctx context.Context, roomID, day string, start, end int, reason string, priority Priority, week *int) (string, error) {
	if s.checker != nil {
		ok, err := s.checker.RoomExists(ctx, roomID)
		if err != nil {
			return "", fmt.Errorf("check room existence: %w", err)
		}
		if !ok {
			return "", appErrors.Clone(appErrors.ErrUnknownSubject, "unknown room")
		}
	}
	return s.insert(ctx, KindRoomUnavailable, roomID, day, start, end, reason, priority, week, false)
}

// AddGroupUnavailable validates the audience exists then inserts a
// group-unavailable record. The subject id may name a promotion, group,
// or sub-group; the hierarchy is expanded at validation time, not here.
func (s *Store) AddGroupUnavailable(ctx context.Context, audienceID, day string, start, end int, reason string, priority Priority, week *int) (string, error) {
	if s.checker != nil {
		ok, err := s.checker.GroupExists(ctx, audienceID)
		if err != nil {
			return "", fmt.Errorf("check audience existence: %w", err)
		}
		if !ok {
			return "", appErrors.Clone(appErrors.ErrUnknownSubject, "unknown audience")
		}
	}
	return s.insert(ctx, KindGroupUnavailable, audienceID, day, start, end, reason, priority, week, false)
}

// AddSlotFixed marks a course-slot as having a hard obligation to start at
// (day, start).
func (s *Store) AddSlotFixed(ctx context.Context, courseSlotID, day string, start, end int, reason string, week *int) (string, error) {
	if s.checker != nil {
		ok, err := s.checker.CourseSlotExists(ctx, courseSlotID)
		if err != nil {
			return "", fmt.Errorf("check course slot existence: %w", err)
		}
		if !ok {
			return "", appErrors.Clone(appErrors.ErrUnknownSubject, "unknown course slot")
		}
	}
	return s.insert(ctx, KindSlotFixed, courseSlotID, day, start, end, reason, PriorityHard, week, false)
}

// AddSlotExam marks a course-slot as an exam sitting, which the solver
// treats as a hard fixed obligation plus an is_exam flag for reporting.
func (s *Store) AddSlotExam(ctx context.Context, courseSlotID, day string, start, end int, reason string, week *int) (string, error) {
	if s.checker != nil {
		ok, err := s.checker.CourseSlotExists(ctx, courseSlotID)
		if err != nil {
			return "", fmt.Errorf("check course slot existence: %w", err)
		}
		if !ok {
			return "", appErrors.Clone(appErrors.ErrUnknownSubject, "unknown course slot")
		}
	}
	return s.insert(ctx, KindSlotExam, courseSlotID, day, start, end, reason, PriorityHard, week, true)
}

func (s *Store) insert(ctx context.Context, kind Kind, subjectID, day string, start, end int, reason string, priority Priority, week *int, isExam bool) (string, error) {
	if start >= end {
		return "", fmt.Errorf("store: start offset %d must be before end offset %d", start, end)
	}
	if !s.hasWeekScope {
		week = nil
	}
	rec := Record{
		ID:          uuid.NewString(),
		Kind:        kind,
		SubjectID:   subjectID,
		DayOfWeek:   day,
		StartOffset: start,
		EndOffset:   end,
		Reason:      reason,
		Priority:    priority,
		WeekID:      week,
		IsExam:      isExam,
		CreatedAt:   time.Now().UTC(),
	}
	const query = `INSERT INTO availability_records
		(id, kind, subject_id, day_of_week, start_offset, end_offset, reason, priority, week_id, is_exam, created_at)
		VALUES (:id, :kind, :subject_id, :day_of_week, :start_offset, :end_offset, :reason, :priority, :week_id, :is_exam, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return "", fmt.Errorf("insert availability record: %w", err)
	}
	return rec.ID, nil
}

// BulkAdd inserts many records in a single transaction, returning their
// assigned ids in input order. This supplements the one-at-a-time Add*
// operations for bulk imports (e.g. a term's worth of teacher constraints
// loaded at once).
func (s *Store) BulkAdd(ctx context.Context, records []Record) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk insert tx: %w", err)
	}
	const query = `INSERT INTO availability_records
		(id, kind, subject_id, day_of_week, start_offset, end_offset, reason, priority, week_id, is_exam, created_at)
		VALUES (:id, :kind, :subject_id, :day_of_week, :start_offset, :end_offset, :reason, :priority, :week_id, :is_exam, :created_at)`
	ids := make([]string, len(records))
	now := time.Now().UTC()
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.NewString()
		}
		if records[i].CreatedAt.IsZero() {
			records[i].CreatedAt = now
		}
		if !s.hasWeekScope {
			records[i].WeekID = nil
		}
		if _, err := tx.NamedExecContext(ctx, query, records[i]); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("bulk insert availability record: %w", err)
		}
		ids[i] = records[i].ID
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk insert tx: %w", err)
	}
	return ids, nil
}

// List returns records of a kind matching the filter. When filter.Global
// is set, week scoping is ignored entirely. Otherwise records with
// scope=permanent (week_id IS NULL) and scope=week=filter.Week are both
// included, per the week-resolution rule.
func (s *Store) List(ctx context.Context, kind Kind, filter Filter) ([]Record, error) {
	base := "FROM availability_records WHERE kind = $1"
	args := []interface{}{kind}

	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		base += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}

	if !filter.Global && s.hasWeekScope && filter.Week != nil {
		args = append(args, *filter.Week)
		base += fmt.Sprintf(" AND (week_id IS NULL OR week_id = $%d)", len(args))
	}

	query := fmt.Sprintf("SELECT id, kind, subject_id, day_of_week, start_offset, end_offset, reason, priority, week_id, is_exam, created_at %s", base)
	var records []Record
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list availability records: %w", err)
	}
	return records, nil
}

// Delete removes a record by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM availability_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete availability record: %w", err)
	}
	return nil
}

// Update applies a partial patch to a record.
func (s *Store) Update(ctx context.Context, id string, patch Patch) error {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Reason != nil {
		add("reason", *patch.Reason)
	}
	if patch.Priority != nil {
		add("priority", *patch.Priority)
	}
	if patch.StartOffset != nil {
		add("start_offset", *patch.StartOffset)
	}
	if patch.EndOffset != nil {
		add("end_offset", *patch.EndOffset)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE availability_records SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update availability record: %w", err)
	}
	return nil
}

// UpdatePriority reassigns the priority of a record.
func (s *Store) UpdatePriority(ctx context.Context, id string, priority Priority) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE availability_records SET priority = $1 WHERE id = $2`, priority, id); err != nil {
		return fmt.Errorf("update availability record priority: %w", err)
	}
	return nil
}

// ClearAll purges every record. It is a no-op unless confirm is true.
func (s *Store) ClearAll(ctx context.Context, confirm bool) error {
	if !confirm {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM availability_records`); err != nil {
		return fmt.Errorf("clear availability records: %w", err)
	}
	return nil
}

// Summary returns record counts by kind, optionally scoped to a week
// (permanent records always included).
func (s *Store) Summary(ctx context.Context, week *int) (map[Kind]int, error) {
	base := "FROM availability_records WHERE 1=1"
	args := []interface{}{}
	if s.hasWeekScope && week != nil {
		args = append(args, *week)
		base += fmt.Sprintf(" AND (week_id IS NULL OR week_id = $%d)", len(args))
	}
	query := fmt.Sprintf("SELECT kind, COUNT(*) AS count %s GROUP BY kind", base)
	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summarize availability records: %w", err)
	}
	defer rows.Close()

	out := make(map[Kind]int)
	for rows.Next() {
		var kind Kind
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan availability record summary: %w", err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}
