package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type groupRepository interface {
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error)
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindDetailByID(ctx context.Context, id string) (*models.GroupDetail, error)
	ExistsByName(ctx context.Context, promotionID, name string, excludeID string) (bool, error)
	Create(ctx context.Context, group *models.Group) error
	Update(ctx context.Context, group *models.Group) error
	Delete(ctx context.Context, id string) error
	CountSubGroups(ctx context.Context, groupID string) (int, error)
	CountCourses(ctx context.Context, groupID string) (int, error)
}

type groupPromotionReader interface {
	FindByID(ctx context.Context, id string) (*models.Promotion, error)
}

// CreateGroupRequest captures creation payload.
type CreateGroupRequest struct {
	PromotionID string `json:"promotion_id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Size        int    `json:"size" validate:"gte=0"`
}

// UpdateGroupRequest modifies group fields.
type UpdateGroupRequest struct {
	Name string `json:"name" validate:"required"`
	Size int    `json:"size" validate:"gte=0"`
}

// GroupService coordinates group operations.
type GroupService struct {
	repo       groupRepository
	promotions groupPromotionReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewGroupService constructs GroupService.
func NewGroupService(repo groupRepository, promotions groupPromotionReader, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, promotions: promotions, validator: validate, logger: logger}
}

// List returns groups with pagination metadata.
func (s *GroupService) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, *models.Pagination, error) {
	groups, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list groups")
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
	return groups, pagination, nil
}

// Get returns detailed group information.
func (s *GroupService) Get(ctx context.Context, id string) (*models.GroupDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}
	return detail, nil
}

// Create adds a new group under a promotion.
func (s *GroupService) Create(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	if _, err := s.promotions.FindByID(ctx, req.PromotionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promotion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion")
	}

	exists, err := s.repo.ExistsByName(ctx, req.PromotionID, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "group name already exists in promotion")
	}

	group := &models.Group{
		PromotionID: req.PromotionID,
		Name:        req.Name,
		Size:        req.Size,
	}
	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create group")
	}
	return group, nil
}

// Update modifies a group record.
func (s *GroupService) Update(ctx context.Context, id string, req UpdateGroupRequest) (*models.Group, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}

	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	exists, err := s.repo.ExistsByName(ctx, group.PromotionID, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "group name already exists in promotion")
	}

	group.Name = req.Name
	group.Size = req.Size

	if err := s.repo.Update(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update group")
	}
	return group, nil
}

// Delete removes a group, ensuring no sub-groups or courses reference it.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group")
	}

	if count, err := s.repo.CountSubGroups(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sub-groups")
	} else if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "group has sub-groups")
	}

	if count, err := s.repo.CountCourses(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check group courses")
	} else if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "group has courses")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete group")
	}
	return nil
}
