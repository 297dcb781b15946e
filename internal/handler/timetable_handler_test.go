package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type timetableServiceMock struct {
	generateResp *dto.GenerateResponse
	generateErr  error
	jobID        string
	jobErr       error
	jobStatus    *dto.JobStatus
	listResp     *dto.WeekScheduleSummaryResponse
	slotsResp    []dto.SlotAssignment
	publishErr   error
	deleteErr    error
}

func (m *timetableServiceMock) Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	return m.generateResp, m.generateErr
}
func (m *timetableServiceMock) GenerateAsync(ctx context.Context, req dto.GenerateRequest) (string, error) {
	return m.jobID, m.jobErr
}
func (m *timetableServiceMock) JobStatus(jobID string) (*dto.JobStatus, error) {
	if m.jobStatus == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	return m.jobStatus, nil
}
func (m *timetableServiceMock) List(ctx context.Context, termID string, week int) (*dto.WeekScheduleSummaryResponse, error) {
	return m.listResp, nil
}
func (m *timetableServiceMock) GetSlots(ctx context.Context, scheduleID string) ([]dto.SlotAssignment, error) {
	return m.slotsResp, nil
}
func (m *timetableServiceMock) Publish(ctx context.Context, scheduleID string) error {
	return m.publishErr
}
func (m *timetableServiceMock) Delete(ctx context.Context, scheduleID string) error {
	return m.deleteErr
}

func TestTimetableHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &timetableServiceMock{generateResp: &dto.GenerateResponse{TermID: "term-1", Week: 5, Status: "OPTIMAL"}}
	handler := NewTimetableHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.GenerateRequest{TermID: "term-1", Week: 5})
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTimetableHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader([]byte("{invalid")))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)

	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestTimetableHandlerGenerateAsync(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &timetableServiceMock{jobID: "job-1"}
	handler := NewTimetableHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(dto.GenerateRequest{TermID: "term-1", Week: 5})
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate/async", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.GenerateAsync(c)

	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestTimetableHandlerJobStatusNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.JobStatus(c)

	assert.NotEqual(t, http.StatusOK, w.Code)
}

func TestTimetableHandlerListInvalidWeek(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetable/schedules?term_id=term-1&week=abc", nil)
	c.Request = req

	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &timetableServiceMock{listResp: &dto.WeekScheduleSummaryResponse{TermID: "term-1", Week: 5}}
	handler := NewTimetableHandler(mock)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetable/schedules?term_id=term-1&week=5", nil)
	c.Request = req

	handler.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTimetableHandlerPublish(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "ws-1"}}

	handler.Publish(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTimetableHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(&timetableServiceMock{})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "ws-1"}}

	handler.Delete(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
