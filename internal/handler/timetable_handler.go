package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-api/internal/dto"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error)
	GenerateAsync(ctx context.Context, req dto.GenerateRequest) (string, error)
	JobStatus(jobID string) (*dto.JobStatus, error)
	List(ctx context.Context, termID string, week int) (*dto.WeekScheduleSummaryResponse, error)
	GetSlots(ctx context.Context, scheduleID string) ([]dto.SlotAssignment, error)
	Publish(ctx context.Context, scheduleID string) error
	Delete(ctx context.Context, scheduleID string) error
}

// TimetableHandler exposes the Timetable Solver over HTTP: triggering a
// solve, inspecting its versions and per-course assignments, and
// promoting a DRAFT version to PUBLISHED.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler builds a new handler.
func NewTimetableHandler(service timetableGenerator) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// Generate godoc
// @Summary Run the timetable solver for a term/week
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Solve request"
// @Success 200 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateAsync godoc
// @Summary Queue a timetable solve and return a job id
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequest true "Solve request"
// @Success 202 {object} response.Envelope
// @Router /timetable/generate/async [post]
func (h *TimetableHandler) GenerateAsync(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	jobID, err := h.service.GenerateAsync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"job_id": jobID}, nil)
}

// JobStatus godoc
// @Summary Poll the status of a queued solve
// @Tags Timetable
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/jobs/{id} [get]
func (h *TimetableHandler) JobStatus(c *gin.Context) {
	status, err := h.service.JobStatus(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// List godoc
// @Summary List week schedule versions for a term/week
// @Tags Timetable
// @Produce json
// @Param term_id query string true "Term ID"
// @Param week query int true "Week number"
// @Success 200 {object} response.Envelope
// @Router /timetable/schedules [get]
func (h *TimetableHandler) List(c *gin.Context) {
	week, err := strconv.Atoi(c.Query("week"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week must be an integer"))
		return
	}
	result, err := h.service.List(c.Request.Context(), c.Query("term_id"), week)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Slots godoc
// @Summary List the per-course assignments of a week schedule version
// @Tags Timetable
// @Produce json
// @Param id path string true "Week schedule ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/schedules/{id}/slots [get]
func (h *TimetableHandler) Slots(c *gin.Context) {
	slots, err := h.service.GetSlots(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Publish godoc
// @Summary Promote a DRAFT week schedule version to PUBLISHED
// @Tags Timetable
// @Produce json
// @Param id path string true "Week schedule ID"
// @Success 204
// @Router /timetable/schedules/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	if err := h.service.Publish(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete godoc
// @Summary Delete a non-published week schedule version
// @Tags Timetable
// @Produce json
// @Param id path string true "Week schedule ID"
// @Success 204
// @Router /timetable/schedules/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
