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

type constraintManager interface {
	Create(ctx context.Context, req dto.CreateConstraintRequest) (string, error)
	BulkCreate(ctx context.Context, req dto.BulkCreateConstraintRequest) ([]string, error)
	List(ctx context.Context, kind string, subjectID string, week *int, global bool) ([]dto.ConstraintRecord, error)
	Update(ctx context.Context, id string, req dto.UpdateConstraintRequest) error
	UpdatePriority(ctx context.Context, id string, req dto.UpdatePriorityRequest) error
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context, week *int) (map[string]int, error)
	Check(ctx context.Context, req dto.CheckAvailabilityRequest) (*dto.CheckAvailabilityResponse, error)
}

// ConstraintHandler exposes the Constraint Store CRUD surface and the
// read-only Constraint Validator availability query.
type ConstraintHandler struct {
	service constraintManager
}

// NewConstraintHandler builds a new handler.
func NewConstraintHandler(service constraintManager) *ConstraintHandler {
	return &ConstraintHandler{service: service}
}

func parseOptionalWeek(c *gin.Context) (*int, error) {
	raw := c.Query("week")
	if raw == "" {
		return nil, nil
	}
	week, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &week, nil
}

// Create godoc
// @Summary Add a single constraint record
// @Tags Constraints
// @Accept json
// @Produce json
// @Param payload body dto.CreateConstraintRequest true "Constraint payload"
// @Success 201 {object} response.Envelope
// @Router /constraints [post]
func (h *ConstraintHandler) Create(c *gin.Context) {
	var req dto.CreateConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid constraint payload"))
		return
	}
	id, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"id": id})
}

// BulkCreate godoc
// @Summary Add many constraint records in a single transaction
// @Tags Constraints
// @Accept json
// @Produce json
// @Param payload body dto.BulkCreateConstraintRequest true "Constraint batch"
// @Success 201 {object} response.Envelope
// @Router /constraints/bulk [post]
func (h *ConstraintHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkCreateConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid constraint batch"))
		return
	}
	ids, err := h.service.BulkCreate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"ids": ids})
}

// List godoc
// @Summary List constraint records of a kind
// @Tags Constraints
// @Produce json
// @Param kind query string true "Constraint kind"
// @Param subject_id query string false "Filter by subject"
// @Param week query int false "Week number"
// @Param global query bool false "Ignore week scoping"
// @Success 200 {object} response.Envelope
// @Router /constraints [get]
func (h *ConstraintHandler) List(c *gin.Context) {
	week, err := parseOptionalWeek(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week must be an integer"))
		return
	}
	global := c.Query("global") == "true"
	records, err := h.service.List(c.Request.Context(), c.Query("kind"), c.Query("subject_id"), week, global)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Update godoc
// @Summary Patch a constraint record
// @Tags Constraints
// @Accept json
// @Produce json
// @Param id path string true "Constraint ID"
// @Param payload body dto.UpdateConstraintRequest true "Patch payload"
// @Success 204
// @Router /constraints/{id} [patch]
func (h *ConstraintHandler) Update(c *gin.Context) {
	var req dto.UpdateConstraintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patch payload"))
		return
	}
	if err := h.service.Update(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdatePriority godoc
// @Summary Reassign a constraint record's priority
// @Tags Constraints
// @Accept json
// @Produce json
// @Param id path string true "Constraint ID"
// @Param payload body dto.UpdatePriorityRequest true "Priority payload"
// @Success 204
// @Router /constraints/{id}/priority [patch]
func (h *ConstraintHandler) UpdatePriority(c *gin.Context) {
	var req dto.UpdatePriorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid priority payload"))
		return
	}
	if err := h.service.UpdatePriority(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete godoc
// @Summary Delete a constraint record
// @Tags Constraints
// @Produce json
// @Param id path string true "Constraint ID"
// @Success 204
// @Router /constraints/{id} [delete]
func (h *ConstraintHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Summary godoc
// @Summary Count constraint records by kind
// @Tags Constraints
// @Produce json
// @Param week query int false "Week number"
// @Success 200 {object} response.Envelope
// @Router /constraints/summary [get]
func (h *ConstraintHandler) Summary(c *gin.Context) {
	week, err := parseOptionalWeek(c)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "week must be an integer"))
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), week)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Check godoc
// @Summary Query the Constraint Validator for a single availability check
// @Tags Constraints
// @Accept json
// @Produce json
// @Param payload body dto.CheckAvailabilityRequest true "Check payload"
// @Success 200 {object} response.Envelope
// @Router /constraints/check [post]
func (h *ConstraintHandler) Check(c *gin.Context) {
	var req dto.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check payload"))
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
