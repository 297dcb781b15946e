package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type courseEligibilityRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseEligibilityDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.CourseEligibility, error)
	Exists(ctx context.Context, teacherID, courseID string) (bool, error)
	Create(ctx context.Context, eligibility *models.CourseEligibility) error
	Delete(ctx context.Context, teacherID, eligibilityID string) error
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// CreateTeacherAssignmentRequest is the payload for eligibility creation:
// the course a teacher is being declared permitted to teach.
type CreateTeacherAssignmentRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// TeacherAssignmentService manages which teachers are eligible to teach
// which courses, consumed by internal/prep to build the solver's
// eligible-teacher index per course.
type TeacherAssignmentService struct {
	teachers      teacherRepository
	courses       courseReader
	eligibilities courseEligibilityRepository
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewTeacherAssignmentService creates a service instance.
func NewTeacherAssignmentService(
	teachers teacherRepository,
	courses courseReader,
	eligibilities courseEligibilityRepository,
	validate *validator.Validate,
	logger *zap.Logger,
) *TeacherAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherAssignmentService{
		teachers:      teachers,
		courses:       courses,
		eligibilities: eligibilities,
		validator:     validate,
		logger:        logger,
	}
}

// ListByTeacher returns the courses a teacher is eligible to teach.
func (s *TeacherAssignmentService) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseEligibilityDetail, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	rows, err := s.eligibilities.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course eligibilities")
	}
	return rows, nil
}

// Assign records that a teacher is eligible to teach a course.
func (s *TeacherAssignmentService) Assign(ctx context.Context, teacherID string, req CreateTeacherAssignmentRequest) (*models.CourseEligibility, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid eligibility payload")
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "teacher inactive")
	}

	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.eligibilities.Exists(ctx, teacherID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check eligibility uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher is already eligible for this course")
	}

	eligibility := &models.CourseEligibility{
		TeacherID: teacherID,
		CourseID:  req.CourseID,
	}
	if err := s.eligibilities.Create(ctx, eligibility); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create eligibility")
	}
	return eligibility, nil
}

// Remove deletes an eligibility link, verifying teacher ownership.
func (s *TeacherAssignmentService) Remove(ctx context.Context, teacherID, eligibilityID string) error {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := s.eligibilities.Delete(ctx, teacherID, eligibilityID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "eligibility not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete eligibility")
	}
	return nil
}
