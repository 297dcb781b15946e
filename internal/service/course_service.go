package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

// courseRepository is the persistence contract CourseService depends on.
type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByTitle(ctx context.Context, termID, title string, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	CountEligibilities(ctx context.Context, id string) (int, error)
}

// CreateCourseRequest captures fields for creating a course demand entry.
type CreateCourseRequest struct {
	TermID        string              `json:"term_id" validate:"required"`
	Title         string              `json:"title" validate:"required"`
	Type          models.CourseType   `json:"type" validate:"required"`
	DurationSlots int                 `json:"duration_slots" validate:"required,min=1"`
	AudienceType  models.AudienceType `json:"audience_type" validate:"required"`
	AudienceID    string              `json:"audience_id" validate:"required"`
	ObligationDay *string             `json:"obligation_day,omitempty"`
	ObligationOff *int                `json:"obligation_offset,omitempty"`
	IsExam        bool                `json:"is_exam"`
}

// UpdateCourseRequest modifies course demand fields.
type UpdateCourseRequest struct {
	Title         string              `json:"title" validate:"required"`
	Type          models.CourseType   `json:"type" validate:"required"`
	DurationSlots int                 `json:"duration_slots" validate:"required,min=1"`
	AudienceType  models.AudienceType `json:"audience_type" validate:"required"`
	AudienceID    string              `json:"audience_id" validate:"required"`
	ObligationDay *string             `json:"obligation_day,omitempty"`
	ObligationOff *int                `json:"obligation_offset,omitempty"`
	IsExam        bool                `json:"is_exam"`
}

// CourseService handles the course domain: the catalog of demand entries
// the timetable solver assigns into day/offset/room/teacher slots.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService creates a new course service.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated courses.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return courses, pagination, nil
}

// Get returns a course by identifier.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create adds a new course, ensuring its title is unique within the term.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	title := strings.TrimSpace(req.Title)

	exists, err := s.repo.ExistsByTitle(ctx, req.TermID, title, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course title")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this title already exists for the term")
	}

	course := &models.Course{
		TermID:        req.TermID,
		Title:         title,
		Type:          req.Type,
		DurationSlots: req.DurationSlots,
		AudienceType:  req.AudienceType,
		AudienceID:    req.AudienceID,
		ObligationDay: req.ObligationDay,
		ObligationOff: req.ObligationOff,
		IsExam:        req.IsExam,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("term_id", course.TermID))
	return course, nil
}

// Update modifies an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	title := strings.TrimSpace(req.Title)

	exists, err := s.repo.ExistsByTitle(ctx, course.TermID, title, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course title")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a course with this title already exists for the term")
	}

	course.Title = title
	course.Type = req.Type
	course.DurationSlots = req.DurationSlots
	course.AudienceType = req.AudienceType
	course.AudienceID = req.AudienceID
	course.ObligationDay = req.ObligationDay
	course.ObligationOff = req.ObligationOff
	course.IsExam = req.IsExam

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Delete removes a course, rejecting the operation while eligible teachers
// are still assigned to it.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	count, err := s.repo.CountEligibilities(ctx, course.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course eligibilities")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "course has eligible teachers assigned")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	return nil
}
