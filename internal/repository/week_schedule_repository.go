package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// sqlExecer is satisfied by both *sqlx.DB and *sqlx.Tx, letting
// CreateVersioned/UpdateStatus/ArchiveSiblings run either standalone or
// as part of the caller's transaction.
type sqlExecer interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// WeekScheduleRepository persists versioned solver proposals for a
// term/week pair.
type WeekScheduleRepository struct {
	db *sqlx.DB
}

// NewWeekScheduleRepository constructs the repository.
func NewWeekScheduleRepository(db *sqlx.DB) *WeekScheduleRepository {
	return &WeekScheduleRepository{db: db}
}

// NextVersion returns the version number the next solve for this
// term/week pair should use.
func (r *WeekScheduleRepository) NextVersion(ctx context.Context, termID string, week int) (int, error) {
	var max sql.NullInt64
	const query = `SELECT MAX(version) FROM week_schedules WHERE term_id = $1 AND week = $2`
	if err := r.db.GetContext(ctx, &max, query, termID, week); err != nil {
		return 0, fmt.Errorf("find max week schedule version: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

// CreateVersioned inserts a new draft version of a week schedule within
// the given executor, so callers can wrap it in the same transaction as
// the slot rows.
func (r *WeekScheduleRepository) CreateVersioned(ctx context.Context, exec sqlExecer, schedule *models.WeekSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.WeekScheduleStatusDraft
	}
	if len(schedule.Meta) == 0 {
		schedule.Meta = types.JSONText("{}")
	}
	const query = `INSERT INTO week_schedules (id, term_id, week, version, status, meta, created_at, updated_at)
		VALUES (:id, :term_id, :week, :version, :status, :meta, now(), now())`
	if _, err := exec.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create week schedule: %w", err)
	}
	return nil
}

// ListByTermWeek returns every version recorded for a term/week pair,
// most recent version first.
func (r *WeekScheduleRepository) ListByTermWeek(ctx context.Context, termID string, week int) ([]models.WeekSchedule, error) {
	const query = `SELECT id, term_id, week, version, status, meta, created_at, updated_at
		FROM week_schedules WHERE term_id = $1 AND week = $2 ORDER BY version DESC`
	var rows []models.WeekSchedule
	if err := r.db.SelectContext(ctx, &rows, query, termID, week); err != nil {
		return nil, fmt.Errorf("list week schedules: %w", err)
	}
	return rows, nil
}

// FindByID fetches a week schedule by id.
func (r *WeekScheduleRepository) FindByID(ctx context.Context, id string) (*models.WeekSchedule, error) {
	const query = `SELECT id, term_id, week, version, status, meta, created_at, updated_at
		FROM week_schedules WHERE id = $1`
	var schedule models.WeekSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, fmt.Errorf("find week schedule: %w", err)
	}
	return &schedule, nil
}

// UpdateStatus transitions a week schedule's status within the given
// executor. Promoting a version to PUBLISHED does not automatically
// demote sibling versions; callers handle that as part of the publish
// transaction so exactly one version per (term, week) ends up PUBLISHED.
func (r *WeekScheduleRepository) UpdateStatus(ctx context.Context, exec sqlExecer, id string, status models.WeekScheduleStatus) error {
	const query = `UPDATE week_schedules SET status = $1, updated_at = now() WHERE id = $2`
	result, err := exec.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update week schedule status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check updated rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ArchiveSiblings marks every other version of a term/week pair as
// ARCHIVED, used when a new version is published.
func (r *WeekScheduleRepository) ArchiveSiblings(ctx context.Context, exec sqlExecer, termID string, week int, exceptID string) error {
	const query = `UPDATE week_schedules SET status = $1, updated_at = now()
		WHERE term_id = $2 AND week = $3 AND id != $4 AND status != $1`
	if _, err := exec.ExecContext(ctx, query, models.WeekScheduleStatusArchived, termID, week, exceptID); err != nil {
		return fmt.Errorf("archive sibling week schedules: %w", err)
	}
	return nil
}

// Delete removes a week schedule row. Callers are expected to delete its
// slots first (see WeekScheduleSlotRepository.DeleteBySchedule).
func (r *WeekScheduleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM week_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete week schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deleted rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// WithTx runs fn within a transaction, committing on success and rolling
// back otherwise.
func (r *WeekScheduleRepository) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
