package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/service"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
	"github.com/noah-isme/sma-adp-api/pkg/response"
)

// SubGroupHandler exposes sub-group CRUD endpoints.
type SubGroupHandler struct {
	service *service.SubGroupService
}

// NewSubGroupHandler constructs a sub-group handler.
func NewSubGroupHandler(svc *service.SubGroupService) *SubGroupHandler {
	return &SubGroupHandler{service: svc}
}

// List godoc
// @Summary List sub-groups
// @Tags SubGroups
// @Produce json
// @Param group_id query string false "Filter by group"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sub-groups [get]
func (h *SubGroupHandler) List(c *gin.Context) {
	var filter models.SubGroupFilter
	filter.GroupID = c.Query("group_id")
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	subGroups, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subGroups, pagination)
}

// Get godoc
// @Summary Get sub-group detail
// @Tags SubGroups
// @Produce json
// @Param id path string true "SubGroup ID"
// @Success 200 {object} response.Envelope
// @Router /sub-groups/{id} [get]
func (h *SubGroupHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create sub-group
// @Tags SubGroups
// @Accept json
// @Produce json
// @Param payload body service.CreateSubGroupRequest true "SubGroup payload"
// @Success 201 {object} response.Envelope
// @Router /sub-groups [post]
func (h *SubGroupHandler) Create(c *gin.Context) {
	var req service.CreateSubGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subGroup, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subGroup)
}

// Update godoc
// @Summary Update sub-group
// @Tags SubGroups
// @Accept json
// @Produce json
// @Param id path string true "SubGroup ID"
// @Param payload body service.UpdateSubGroupRequest true "SubGroup payload"
// @Success 200 {object} response.Envelope
// @Router /sub-groups/{id} [put]
func (h *SubGroupHandler) Update(c *gin.Context) {
	var req service.UpdateSubGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	subGroup, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subGroup, nil)
}

// Delete godoc
// @Summary Delete sub-group
// @Tags SubGroups
// @Produce json
// @Param id path string true "SubGroup ID"
// @Success 204
// @Router /sub-groups/{id} [delete]
func (h *SubGroupHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
