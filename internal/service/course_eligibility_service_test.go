package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

type teacherRepoStub struct {
	items map[string]*models.Teacher
}

func (s *teacherRepoStub) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	return nil, 0, nil
}

func (s *teacherRepoStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := s.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *teacherRepoStub) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	return false, nil
}

func (s *teacherRepoStub) ExistsByNIP(ctx context.Context, nip, excludeID string) (bool, error) {
	return false, nil
}

func (s *teacherRepoStub) Create(ctx context.Context, teacher *models.Teacher) error { return nil }
func (s *teacherRepoStub) Update(ctx context.Context, teacher *models.Teacher) error { return nil }
func (s *teacherRepoStub) Deactivate(ctx context.Context, id string) error           { return nil }

type stubCourseReader struct {
	missing bool
}

func (s stubCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if s.missing {
		return nil, sql.ErrNoRows
	}
	return &models.Course{ID: id}, nil
}

type eligibilityRepoStub struct {
	exists    bool
	created   []*models.CourseEligibility
	deleteErr error
	deleted   []string
}

func (s *eligibilityRepoStub) ListByTeacher(ctx context.Context, teacherID string) ([]models.CourseEligibilityDetail, error) {
	return nil, nil
}

func (s *eligibilityRepoStub) ListByCourse(ctx context.Context, courseID string) ([]models.CourseEligibility, error) {
	return nil, nil
}

func (s *eligibilityRepoStub) Exists(ctx context.Context, teacherID, courseID string) (bool, error) {
	return s.exists, nil
}

func (s *eligibilityRepoStub) Create(ctx context.Context, eligibility *models.CourseEligibility) error {
	s.created = append(s.created, eligibility)
	return nil
}

func (s *eligibilityRepoStub) Delete(ctx context.Context, teacherID, eligibilityID string) error {
	s.deleted = append(s.deleted, teacherID+":"+eligibilityID)
	return s.deleteErr
}

func TestTeacherAssignmentServiceAssign(t *testing.T) {
	teacherRepo := &teacherRepoStub{
		items: map[string]*models.Teacher{"teacher-1": {ID: "teacher-1", Active: true}},
	}
	eligRepo := &eligibilityRepoStub{}

	service := NewTeacherAssignmentService(teacherRepo, stubCourseReader{}, eligRepo, validator.New(), zap.NewNop())

	eligibility, err := service.Assign(context.Background(), "teacher-1", CreateTeacherAssignmentRequest{
		CourseID: "course-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "teacher-1", eligibility.TeacherID)
	assert.Len(t, eligRepo.created, 1)
}

func TestTeacherAssignmentServiceAssignDuplicate(t *testing.T) {
	teacherRepo := &teacherRepoStub{
		items: map[string]*models.Teacher{"teacher-1": {ID: "teacher-1", Active: true}},
	}
	eligRepo := &eligibilityRepoStub{exists: true}
	service := NewTeacherAssignmentService(teacherRepo, stubCourseReader{}, eligRepo, validator.New(), zap.NewNop())

	_, err := service.Assign(context.Background(), "teacher-1", CreateTeacherAssignmentRequest{
		CourseID: "course-1",
	})
	require.Error(t, err)
}

func TestTeacherAssignmentServiceAssignUnknownCourse(t *testing.T) {
	teacherRepo := &teacherRepoStub{
		items: map[string]*models.Teacher{"teacher-1": {ID: "teacher-1", Active: true}},
	}
	eligRepo := &eligibilityRepoStub{}
	service := NewTeacherAssignmentService(teacherRepo, stubCourseReader{missing: true}, eligRepo, validator.New(), zap.NewNop())

	_, err := service.Assign(context.Background(), "teacher-1", CreateTeacherAssignmentRequest{
		CourseID: "course-1",
	})
	require.Error(t, err)
}

func TestTeacherAssignmentServiceRemove(t *testing.T) {
	teacherRepo := &teacherRepoStub{
		items: map[string]*models.Teacher{"teacher-1": {ID: "teacher-1", Active: true}},
	}
	eligRepo := &eligibilityRepoStub{}
	service := NewTeacherAssignmentService(teacherRepo, stubCourseReader{}, eligRepo, validator.New(), zap.NewNop())

	err := service.Remove(context.Background(), "teacher-1", "eligibility-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"teacher-1:eligibility-1"}, eligRepo.deleted)
}
