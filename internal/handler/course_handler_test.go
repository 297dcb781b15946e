package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/service"
)

type courseHandlerRepoStub struct {
	items map[string]*models.Course
}

func (s *courseHandlerRepoStub) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range s.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (s *courseHandlerRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := s.items[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseHandlerRepoStub) ExistsByTitle(ctx context.Context, termID, title string, excludeID string) (bool, error) {
	return false, nil
}

func (s *courseHandlerRepoStub) Create(ctx context.Context, course *models.Course) error {
	course.ID = "course-new"
	s.items[course.ID] = course
	return nil
}

func (s *courseHandlerRepoStub) Update(ctx context.Context, course *models.Course) error {
	s.items[course.ID] = course
	return nil
}

func (s *courseHandlerRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.items, id)
	return nil
}

func (s *courseHandlerRepoStub) CountEligibilities(ctx context.Context, id string) (int, error) {
	return 0, nil
}

func TestCourseHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &courseHandlerRepoStub{items: map[string]*models.Course{}}
	svc := service.NewCourseService(repo, validator.New(), zap.NewNop())
	handler := NewCourseHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(service.CreateCourseRequest{
		TermID:        "term-1",
		Title:         "Algorithms",
		Type:          models.CourseTypeLecture,
		DurationSlots: 2,
		AudienceType:  models.AudienceTypePromotion,
		AudienceID:    "promo-1",
	})
	req, _ := http.NewRequest(http.MethodPost, "/courses", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
}

func TestCourseHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &courseHandlerRepoStub{items: map[string]*models.Course{}}
	svc := service.NewCourseService(repo, validator.New(), zap.NewNop())
	handler := NewCourseHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/courses", bytes.NewReader([]byte("{invalid")))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &courseHandlerRepoStub{items: map[string]*models.Course{}}
	svc := service.NewCourseService(repo, validator.New(), zap.NewNop())
	handler := NewCourseHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCourseHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &courseHandlerRepoStub{items: map[string]*models.Course{
		"course-1": {ID: "course-1", TermID: "term-1", Title: "Algorithms"},
	}}
	svc := service.NewCourseService(repo, validator.New(), zap.NewNop())
	handler := NewCourseHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/courses", nil)
	c.Request = req

	handler.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCourseHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &courseHandlerRepoStub{items: map[string]*models.Course{
		"course-1": {ID: "course-1"},
	}}
	svc := service.NewCourseService(repo, validator.New(), zap.NewNop())
	handler := NewCourseHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "course-1"}}

	handler.Delete(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
