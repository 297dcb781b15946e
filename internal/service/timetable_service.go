package service

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/prep"
	"github.com/noah-isme/sma-adp-api/internal/solver"
	"github.com/noah-isme/sma-adp-api/internal/store"
	"github.com/noah-isme/sma-adp-api/internal/validator"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
)

// weekScheduleRepo is the subset of *repository.WeekScheduleRepository
// the service needs.
type weekScheduleRepo interface {
	NextVersion(ctx context.Context, termID string, week int) (int, error)
	CreateVersioned(ctx context.Context, exec interface {
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}, schedule *models.WeekSchedule) error
	ListByTermWeek(ctx context.Context, termID string, week int) ([]models.WeekSchedule, error)
	FindByID(ctx context.Context, id string) (*models.WeekSchedule, error)
	UpdateStatus(ctx context.Context, exec interface {
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}, id string, status models.WeekScheduleStatus) error
	ArchiveSiblings(ctx context.Context, exec interface {
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}, termID string, week int, exceptID string) error
	Delete(ctx context.Context, id string) error
	WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

// weekScheduleSlotRepo is the subset of
// *repository.WeekScheduleSlotRepository the service needs.
type weekScheduleSlotRepo interface {
	InsertBatch(ctx context.Context, exec interface {
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}, slots []models.WeekScheduleSlot) error
	ListBySchedule(ctx context.Context, weekScheduleID string) ([]models.WeekScheduleSlot, error)
	DeleteBySchedule(ctx context.Context, exec interface {
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	}, weekScheduleID string) error
}

// publishedSlotWriter is the subset of *repository.PublishedSlotRepository
// the service needs to commit a published version.
type publishedSlotWriter interface {
	ReplaceForWeek(ctx context.Context, termID string, week int, slots []models.PublishedSlot) error
}

// TimetableService orchestrates the Constraint Store, Constraint
// Validator, Data Preparation and Timetable Solver into one solve
// operation, and persists the outcome as a versioned WeekSchedule.
type TimetableService struct {
	store      *store.Store
	builder    *prep.Builder
	schedules  weekScheduleRepo
	slots      weekScheduleSlotRepo
	published  publishedSlotWriter
	defaults   solver.Options
	activeTerm string

	queue *jobs.Queue
	jobs  map[string]*dto.JobStatus
	mu    sync.Mutex
	ttl   time.Duration

	logger *zap.Logger
}

// NewTimetableService constructs the orchestration service. queue may be
// nil, in which case GenerateAsync is unavailable.
func NewTimetableService(
	constraintStore *store.Store,
	builder *prep.Builder,
	schedules weekScheduleRepo,
	slots weekScheduleSlotRepo,
	published publishedSlotWriter,
	defaults solver.Options,
	activeTermID string,
	queue *jobs.Queue,
	logger *zap.Logger,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		store:      constraintStore,
		builder:    builder,
		schedules:  schedules,
		slots:      slots,
		published:  published,
		defaults:   defaults,
		activeTerm: activeTermID,
		queue:      queue,
		jobs:       make(map[string]*dto.JobStatus),
		ttl:        30 * time.Minute,
		logger:     logger,
	}
}

// Generate runs a full solve for the requested term/week and persists the
// outcome as a new DRAFT version, regardless of whether the solve was
// optimal, feasible, infeasible or unknown — a failed solve is still
// recorded as a version without slots. The diagnostics are returned in the
// response only; the stored version's meta is left empty.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	termID := req.TermID
	if termID == "" {
		termID = s.activeTerm
	}
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term_id is required when no active term is configured")
	}
	if req.Week <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week must be positive")
	}

	opts := s.defaults
	if req.TimeBudgetSeconds > 0 {
		opts.TimeBudgetSeconds = req.TimeBudgetSeconds
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}

	val, err := validator.Load(ctx, s.store, req.Week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load constraint validator snapshot")
	}

	data, err := s.builder.Build(ctx, termID, req.Week, val)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrModelBuild.Code, appErrors.ErrModelBuild.Status, "failed to prepare model data")
	}

	result, err := solver.SolveWithOrTools(ctx, data, opts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrModelBuild.Code, appErrors.ErrModelBuild.Status, "solver failed")
	}

	version, err := s.schedules.NextVersion(ctx, termID, req.Week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to allocate version")
	}

	schedule := &models.WeekSchedule{
		ID:      uuid.NewString(),
		TermID:  termID,
		Week:    req.Week,
		Version: version,
		Status:  models.WeekScheduleStatusDraft,
	}

	slotRows, err := s.toSlotRows(schedule.ID, result.Assignments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode solver assignments")
	}

	if err := s.schedules.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.schedules.CreateVersioned(ctx, tx, schedule); err != nil {
			return err
		}
		return s.slots.InsertBatch(ctx, tx, slotRows)
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist week schedule")
	}

	s.logger.Info("timetable generated",
		zap.String("schedule_id", schedule.ID),
		zap.String("term_id", termID),
		zap.Int("week", req.Week),
		zap.Int("version", version),
		zap.String("status", string(result.Status)),
		zap.Int("assignments", len(result.Assignments)),
	)

	return s.toGenerateResponse(schedule, result, data.Warnings), nil
}

// SetQueue attaches the job queue once it has been constructed with
// HandleGenerateJob as its handler, breaking the constructor cycle
// between the queue (which needs a handler bound to this service) and
// the service (which needs the queue to enqueue work).
func (s *TimetableService) SetQueue(queue *jobs.Queue) {
	s.queue = queue
}

// GenerateAsync enqueues a solve and returns a job id immediately,
// following the teacher's enqueue-then-poll report pattern. The caller
// polls JobStatus for the outcome.
func (s *TimetableService) GenerateAsync(ctx context.Context, req dto.GenerateRequest) (string, error) {
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "async generation is not configured")
	}

	jobID := uuid.NewString()
	status := &dto.JobStatus{JobID: jobID, State: "queued", QueuedAt: time.Now().UTC().Unix()}
	s.mu.Lock()
	s.jobs[jobID] = status
	s.mu.Unlock()
	s.scheduleCleanup(jobID)

	job := jobs.Job{ID: jobID, Type: "timetable.generate", Payload: req}
	if err := s.queue.Enqueue(job); err != nil {
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue solve")
	}
	return jobID, nil
}

// HandleGenerateJob is the jobs.Handler registered against the queue
// passed to NewTimetableService; it runs Generate and records the
// outcome for JobStatus to later report.
func (s *TimetableService) HandleGenerateJob(ctx context.Context, job jobs.Job) error {
	req, ok := job.Payload.(dto.GenerateRequest)
	if !ok {
		return fmt.Errorf("unexpected payload type %T for job %s", job.Payload, job.ID)
	}

	s.setJobState(job.ID, "running", nil, "")
	result, err := s.Generate(ctx, req)
	if err != nil {
		s.setJobState(job.ID, "failed", nil, err.Error())
		return err
	}
	s.setJobState(job.ID, "completed", result, "")
	return nil
}

// JobStatus returns the current state of an asynchronously queued solve.
func (s *TimetableService) JobStatus(jobID string) (*dto.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.jobs[jobID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	cp := *status
	return &cp, nil
}

// List returns every version recorded for a term/week pair.
func (s *TimetableService) List(ctx context.Context, termID string, week int) (*dto.WeekScheduleSummaryResponse, error) {
	rows, err := s.schedules.ListByTermWeek(ctx, termID, week)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list week schedules")
	}
	versions := make([]dto.WeekScheduleVersion, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, dto.WeekScheduleVersion{
			ID:        row.ID,
			Version:   row.Version,
			Status:    string(row.Status),
			CreatedAt: row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return &dto.WeekScheduleSummaryResponse{TermID: termID, Week: week, Versions: versions}, nil
}

// GetSlots returns the per-course assignments of one WeekSchedule version.
func (s *TimetableService) GetSlots(ctx context.Context, scheduleID string) ([]dto.SlotAssignment, error) {
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "week schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week schedule")
	}
	rows, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list week schedule slots")
	}
	out := make([]dto.SlotAssignment, 0, len(rows))
	for _, row := range rows {
		dayName, err := grid.IndexToDayOfWeek(row.DayOfWeek)
		if err != nil {
			dayName = ""
		}
		out = append(out, dto.SlotAssignment{
			CourseID:  row.CourseID,
			DayOfWeek: dayName,
			Offset:    row.Offset,
			RoomID:    row.RoomID,
			TeacherID: row.TeacherID,
		})
	}
	return out, nil
}

// Publish promotes a DRAFT version to PUBLISHED: its slots are copied to
// the published_slots table consumed by downstream read paths, and every
// sibling version for the same (term, week) is archived so exactly one
// version stays PUBLISHED.
func (s *TimetableService) Publish(ctx context.Context, scheduleID string) error {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "week schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week schedule")
	}
	if schedule.Status == models.WeekScheduleStatusArchived {
		return appErrors.Clone(appErrors.ErrFinalized, "archived week schedule cannot be published")
	}

	rows, err := s.slots.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week schedule slots")
	}

	published := make([]models.PublishedSlot, 0, len(rows))
	for _, row := range rows {
		dayName, err := grid.IndexToDayOfWeek(row.DayOfWeek)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode slot day of week")
		}
		published = append(published, models.PublishedSlot{
			TermID:    schedule.TermID,
			Week:      schedule.Week,
			CourseID:  row.CourseID,
			DayOfWeek: dayName,
			Offset:    row.Offset,
			RoomID:    row.RoomID,
			TeacherID: row.TeacherID,
		})
	}

	if err := s.published.ReplaceForWeek(ctx, schedule.TermID, schedule.Week, published); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace published slots")
	}

	if err := s.schedules.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.schedules.UpdateStatus(ctx, tx, scheduleID, models.WeekScheduleStatusPublished); err != nil {
			return err
		}
		return s.schedules.ArchiveSiblings(ctx, tx, schedule.TermID, schedule.Week, scheduleID)
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize publish")
	}
	return nil
}

// Delete removes a week schedule version and its slots. Published
// versions cannot be deleted without first publishing a replacement.
func (s *TimetableService) Delete(ctx context.Context, scheduleID string) error {
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "week schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load week schedule")
	}
	if schedule.Status == models.WeekScheduleStatusPublished {
		return appErrors.Clone(appErrors.ErrConflict, "published week schedule cannot be deleted")
	}

	return s.schedules.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.slots.DeleteBySchedule(ctx, tx, scheduleID); err != nil {
			return err
		}
		return s.schedules.Delete(ctx, scheduleID)
	})
}

func (s *TimetableService) toSlotRows(scheduleID string, assignments map[string]solver.Assignment) ([]models.WeekScheduleSlot, error) {
	rows := make([]models.WeekScheduleSlot, 0, len(assignments))
	for courseID, a := range assignments {
		dayIdx, err := grid.DayOfWeekToIndex(a.Day)
		if err != nil {
			return nil, fmt.Errorf("encode assignment for course %s: %w", courseID, err)
		}
		rows = append(rows, models.WeekScheduleSlot{
			WeekScheduleID: scheduleID,
			CourseID:       courseID,
			DayOfWeek:      dayIdx,
			Offset:         a.Offset,
			RoomID:         a.RoomID,
			TeacherID:      a.TeacherID,
		})
	}
	return rows, nil
}

func (s *TimetableService) toGenerateResponse(schedule *models.WeekSchedule, result *solver.Result, warnings []string) *dto.GenerateResponse {
	slots := make([]dto.SlotAssignment, 0, len(result.Assignments))
	for courseID, a := range result.Assignments {
		slots = append(slots, dto.SlotAssignment{
			CourseID:           courseID,
			DayOfWeek:          a.Day,
			Offset:             a.Offset,
			RoomID:             a.RoomID,
			RoomName:           a.RoomName,
			TeacherID:          a.TeacherID,
			TeacherDisplayName: a.TeacherDisplayName,
		})
	}
	return &dto.GenerateResponse{
		ScheduleID: schedule.ID,
		TermID:     schedule.TermID,
		Week:       schedule.Week,
		Version:    schedule.Version,
		Status:     string(result.Status),
		Slots:      slots,
		Diagnostics: dto.Diagnostics{
			NoValidStartCourses:      result.Diagnostics.NoValidStartCourses,
			NoEligibleRoomCourses:    result.Diagnostics.NoEligibleRoomCourses,
			EmptyEligibleTeachers:    result.Diagnostics.EmptyEligibleTeachers,
			OverCommittedAudiences:   result.Diagnostics.OverCommittedAudiences,
			ViolationsForbiddenStart: result.Diagnostics.ViolationsForbiddenStart,
			ViolationsOverConsec:     result.Diagnostics.ViolationsOverConsec,
			ViolationsCapacity:       result.Diagnostics.ViolationsCapacity,
			ViolationsLateFinish:     result.Diagnostics.ViolationsLateFinish,
		},
		Warnings: warnings,
	}
}

func (s *TimetableService) setJobState(jobID, state string, result *dto.GenerateResponse, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.jobs[jobID]
	if !ok {
		return
	}
	status.State = state
	status.Result = result
	status.Error = errMsg
}

func (s *TimetableService) scheduleCleanup(jobID string) {
	ttl := s.ttl
	go func() {
		time.Sleep(ttl)
		s.mu.Lock()
		delete(s.jobs, jobID)
		s.mu.Unlock()
	}()
}
