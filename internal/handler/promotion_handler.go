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

// PromotionHandler exposes promotion CRUD endpoints.
type PromotionHandler struct {
	service *service.PromotionService
}

// NewPromotionHandler constructs a promotion handler.
func NewPromotionHandler(svc *service.PromotionService) *PromotionHandler {
	return &PromotionHandler{service: svc}
}

// List godoc
// @Summary List promotions
// @Tags Promotions
// @Produce json
// @Param track query string false "Filter by track"
// @Param year query int false "Filter by year"
// @Param search query string false "Search keyword"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /promotions [get]
func (h *PromotionHandler) List(c *gin.Context) {
	var filter models.PromotionFilter
	filter.Track = c.Query("track")
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	promotions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, promotions, pagination)
}

// Get godoc
// @Summary Get promotion detail
// @Tags Promotions
// @Produce json
// @Param id path string true "Promotion ID"
// @Success 200 {object} response.Envelope
// @Router /promotions/{id} [get]
func (h *PromotionHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create promotion
// @Tags Promotions
// @Accept json
// @Produce json
// @Param payload body service.CreatePromotionRequest true "Promotion payload"
// @Success 201 {object} response.Envelope
// @Router /promotions [post]
func (h *PromotionHandler) Create(c *gin.Context) {
	var req service.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	promotion, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, promotion)
}

// Update godoc
// @Summary Update promotion
// @Tags Promotions
// @Accept json
// @Produce json
// @Param id path string true "Promotion ID"
// @Param payload body service.UpdatePromotionRequest true "Promotion payload"
// @Success 200 {object} response.Envelope
// @Router /promotions/{id} [put]
func (h *PromotionHandler) Update(c *gin.Context) {
	var req service.UpdatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	promotion, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, promotion, nil)
}

// Delete godoc
// @Summary Delete promotion
// @Tags Promotions
// @Produce json
// @Param id path string true "Promotion ID"
// @Success 204
// @Router /promotions/{id} [delete]
func (h *PromotionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
