package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/pkg/jobs"
)

type schedulesStub struct {
	byID     map[string]*models.WeekSchedule
	byTermWk map[string][]models.WeekSchedule
	nextVer  int
	updated  map[string]models.WeekScheduleStatus
	archived []string
	deleted  []string
}

func newSchedulesStub() *schedulesStub {
	return &schedulesStub{byID: map[string]*models.WeekSchedule{}, byTermWk: map[string][]models.WeekSchedule{}, updated: map[string]models.WeekScheduleStatus{}}
}

func (s *schedulesStub) NextVersion(ctx context.Context, termID string, week int) (int, error) {
	return s.nextVer, nil
}
func (s *schedulesStub) CreateVersioned(ctx context.Context, exec interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, schedule *models.WeekSchedule) error {
	s.byID[schedule.ID] = schedule
	return nil
}
func (s *schedulesStub) ListByTermWeek(ctx context.Context, termID string, week int) ([]models.WeekSchedule, error) {
	return s.byTermWk[termID], nil
}
func (s *schedulesStub) FindByID(ctx context.Context, id string) (*models.WeekSchedule, error) {
	row, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return row, nil
}
func (s *schedulesStub) UpdateStatus(ctx context.Context, exec interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, id string, status models.WeekScheduleStatus) error {
	s.updated[id] = status
	if row, ok := s.byID[id]; ok {
		row.Status = status
	}
	return nil
}
func (s *schedulesStub) ArchiveSiblings(ctx context.Context, exec interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, termID string, week int, exceptID string) error {
	s.archived = append(s.archived, exceptID)
	return nil
}
func (s *schedulesStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	delete(s.byID, id)
	return nil
}
func (s *schedulesStub) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return fn(nil)
}

type slotsStub struct {
	bySchedule map[string][]models.WeekScheduleSlot
	deleted    []string
}

func newSlotsStub() *slotsStub {
	return &slotsStub{bySchedule: map[string][]models.WeekScheduleSlot{}}
}

func (s *slotsStub) InsertBatch(ctx context.Context, exec interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, slots []models.WeekScheduleSlot) error {
	if len(slots) == 0 {
		return nil
	}
	s.bySchedule[slots[0].WeekScheduleID] = slots
	return nil
}
func (s *slotsStub) ListBySchedule(ctx context.Context, weekScheduleID string) ([]models.WeekScheduleSlot, error) {
	return s.bySchedule[weekScheduleID], nil
}
func (s *slotsStub) DeleteBySchedule(ctx context.Context, exec interface {
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}, weekScheduleID string) error {
	s.deleted = append(s.deleted, weekScheduleID)
	delete(s.bySchedule, weekScheduleID)
	return nil
}

type publishedStub struct {
	termID string
	week   int
	slots  []models.PublishedSlot
}

func (p *publishedStub) ReplaceForWeek(ctx context.Context, termID string, week int, slots []models.PublishedSlot) error {
	p.termID, p.week, p.slots = termID, week, slots
	return nil
}

func newTestTimetableService(schedules *schedulesStub, slots *slotsStub, published *publishedStub) *TimetableService {
	return &TimetableService{
		schedules:  schedules,
		slots:      slots,
		published:  published,
		activeTerm: "term-1",
		jobs:       make(map[string]*dto.JobStatus),
		ttl:        time.Minute,
		logger:     zap.NewNop(),
	}
}

func TestTimetableServiceList(t *testing.T) {
	schedules := newSchedulesStub()
	schedules.byTermWk["term-1"] = []models.WeekSchedule{
		{ID: "ws-1", TermID: "term-1", Week: 5, Version: 2, Status: models.WeekScheduleStatusDraft, CreatedAt: time.Now()},
	}
	svc := newTestTimetableService(schedules, newSlotsStub(), &publishedStub{})

	resp, err := svc.List(context.Background(), "term-1", 5)
	require.NoError(t, err)
	require.Len(t, resp.Versions, 1)
	assert.Equal(t, 2, resp.Versions[0].Version)
}

func TestTimetableServiceGetSlotsNotFound(t *testing.T) {
	svc := newTestTimetableService(newSchedulesStub(), newSlotsStub(), &publishedStub{})
	_, err := svc.GetSlots(context.Background(), "missing")
	require.Error(t, err)
}

func TestTimetableServiceGetSlots(t *testing.T) {
	schedules := newSchedulesStub()
	schedules.byID["ws-1"] = &models.WeekSchedule{ID: "ws-1", TermID: "term-1", Week: 5}
	slots := newSlotsStub()
	slots.bySchedule["ws-1"] = []models.WeekScheduleSlot{
		{WeekScheduleID: "ws-1", CourseID: "course-1", DayOfWeek: 0, Offset: 4, RoomID: "room-1", TeacherID: "teacher-1"},
	}
	svc := newTestTimetableService(schedules, slots, &publishedStub{})

	out, err := svc.GetSlots(context.Background(), "ws-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "course-1", out[0].CourseID)
	assert.NotEmpty(t, out[0].DayOfWeek)
}

func TestTimetableServicePublish(t *testing.T) {
	schedules := newSchedulesStub()
	schedules.byID["ws-1"] = &models.WeekSchedule{ID: "ws-1", TermID: "term-1", Week: 5, Status: models.WeekScheduleStatusDraft}
	slots := newSlotsStub()
	slots.bySchedule["ws-1"] = []models.WeekScheduleSlot{
		{WeekScheduleID: "ws-1", CourseID: "course-1", DayOfWeek: 1, Offset: 2, RoomID: "room-1", TeacherID: "teacher-1"},
	}
	published := &publishedStub{}
	svc := newTestTimetableService(schedules, slots, published)

	require.NoError(t, svc.Publish(context.Background(), "ws-1"))
	assert.Equal(t, models.WeekScheduleStatusPublished, schedules.updated["ws-1"])
	assert.Contains(t, schedules.archived, "ws-1")
	require.Len(t, published.slots, 1)
	assert.Equal(t, "course-1", published.slots[0].CourseID)
}

func TestTimetableServicePublishArchived(t *testing.T) {
	schedules := newSchedulesStub()
	schedules.byID["ws-1"] = &models.WeekSchedule{ID: "ws-1", Status: models.WeekScheduleStatusArchived}
	svc := newTestTimetableService(schedules, newSlotsStub(), &publishedStub{})

	err := svc.Publish(context.Background(), "ws-1")
	require.Error(t, err)
}

func TestTimetableServiceDeletePublishedRejected(t *testing.T) {
	schedules := newSchedulesStub()
	schedules.byID["ws-1"] = &models.WeekSchedule{ID: "ws-1", Status: models.WeekScheduleStatusPublished}
	svc := newTestTimetableService(schedules, newSlotsStub(), &publishedStub{})

	err := svc.Delete(context.Background(), "ws-1")
	require.Error(t, err)
}

func TestTimetableServiceDelete(t *testing.T) {
	schedules := newSchedulesStub()
	schedules.byID["ws-1"] = &models.WeekSchedule{ID: "ws-1", Status: models.WeekScheduleStatusDraft}
	slots := newSlotsStub()
	slots.bySchedule["ws-1"] = []models.WeekScheduleSlot{{WeekScheduleID: "ws-1"}}
	svc := newTestTimetableService(schedules, slots, &publishedStub{})

	require.NoError(t, svc.Delete(context.Background(), "ws-1"))
	assert.Contains(t, schedules.deleted, "ws-1")
	assert.Contains(t, slots.deleted, "ws-1")
}

func TestTimetableServiceGenerateAsyncWithoutQueue(t *testing.T) {
	svc := newTestTimetableService(newSchedulesStub(), newSlotsStub(), &publishedStub{})
	_, err := svc.GenerateAsync(context.Background(), dto.GenerateRequest{TermID: "term-1", Week: 5})
	require.Error(t, err)
}

func TestTimetableServiceJobStatusNotFound(t *testing.T) {
	svc := newTestTimetableService(newSchedulesStub(), newSlotsStub(), &publishedStub{})
	_, err := svc.JobStatus("missing")
	require.Error(t, err)
}

func TestTimetableServiceSetQueue(t *testing.T) {
	svc := newTestTimetableService(newSchedulesStub(), newSlotsStub(), &publishedStub{})
	queue := jobs.NewQueue("timetable", svc.HandleGenerateJob, jobs.QueueConfig{Workers: 1})
	svc.SetQueue(queue)
	assert.NotNil(t, svc.queue)
}
