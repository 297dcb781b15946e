package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type subGroupRepository interface {
	List(ctx context.Context, filter models.SubGroupFilter) ([]models.SubGroup, int, error)
	FindByID(ctx context.Context, id string) (*models.SubGroup, error)
	FindDetailByID(ctx context.Context, id string) (*models.SubGroupDetail, error)
	ExistsByName(ctx context.Context, groupID, name string, excludeID string) (bool, error)
	Create(ctx context.Context, subGroup *models.SubGroup) error
	Update(ctx context.Context, subGroup *models.SubGroup) error
	Delete(ctx context.Context, id string) error
	CountCourses(ctx context.Context, subGroupID string) (int, error)
}

type subGroupGroupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

// CreateSubGroupRequest captures creation payload.
type CreateSubGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Size    int    `json:"size" validate:"gte=0"`
}

// UpdateSubGroupRequest modifies sub-group fields.
type UpdateSubGroupRequest struct {
	Name string `json:"name" validate:"required"`
	Size int    `json:"size" validate:"gte=0"`
}

// SubGroupService coordinates sub-group operations.
type SubGroupService struct {
	repo      subGroupRepository
	groups    subGroupGroupReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubGroupService constructs SubGroupService.
func NewSubGroupService(repo subGroupRepository, groups subGroupGroupReader, validate *validator.Validate, logger *zap.Logger) *SubGroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubGroupService{repo: repo, groups: groups, validator: validate, logger: logger}
}

// List returns sub-groups with pagination metadata.
func (s *SubGroupService) List(ctx context.Context, filter models.SubGroupFilter) ([]models.SubGroup, *models.Pagination, error) {
	subGroups, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sub-groups")
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
	return subGroups, pagination, nil
}

// Get returns detailed sub-group information.
func (s *SubGroupService) Get(ctx context.Context, id string) (*models.SubGroupDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sub-group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-group")
	}
	return detail, nil
}

// Create adds a new sub-group under a group.
func (s *SubGroupService) Create(ctx context.Context, req CreateSubGroupRequest) (*models.SubGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sub-group payload")
	}

	if _, err := s.groups.FindByID(ctx, req.GroupID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	exists, err := s.repo.ExistsByName(ctx, req.GroupID, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sub-group name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "sub-group name already exists in group")
	}

	subGroup := &models.SubGroup{
		GroupID: req.GroupID,
		Name:    req.Name,
		Size:    req.Size,
	}
	if err := s.repo.Create(ctx, subGroup); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sub-group")
	}
	return subGroup, nil
}

// Update modifies a sub-group record.
func (s *SubGroupService) Update(ctx context.Context, id string, req UpdateSubGroupRequest) (*models.SubGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sub-group payload")
	}

	subGroup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sub-group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-group")
	}

	exists, err := s.repo.ExistsByName(ctx, subGroup.GroupID, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sub-group name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "sub-group name already exists in group")
	}

	subGroup.Name = req.Name
	subGroup.Size = req.Size

	if err := s.repo.Update(ctx, subGroup); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sub-group")
	}
	return subGroup, nil
}

// Delete removes a sub-group, ensuring no courses reference it.
func (s *SubGroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "sub-group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-group")
	}

	if count, err := s.repo.CountCourses(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sub-group courses")
	} else if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "sub-group has courses")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sub-group")
	}
	return nil
}
