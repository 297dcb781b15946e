package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-adp-api/internal/models"
	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"
)

type promotionRepository interface {
	List(ctx context.Context, filter models.PromotionFilter) ([]models.Promotion, int, error)
	FindByID(ctx context.Context, id string) (*models.Promotion, error)
	FindDetailByID(ctx context.Context, id string) (*models.PromotionDetail, error)
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
	Create(ctx context.Context, promotion *models.Promotion) error
	Update(ctx context.Context, promotion *models.Promotion) error
	Delete(ctx context.Context, id string) error
	CountGroups(ctx context.Context, promotionID string) (int, error)
	CountCourses(ctx context.Context, promotionID string) (int, error)
}

// CreatePromotionRequest captures creation payload.
type CreatePromotionRequest struct {
	Name  string `json:"name" validate:"required"`
	Year  int    `json:"year" validate:"required,gt=0"`
	Track string `json:"track" validate:"required"`
	Size  int    `json:"size" validate:"gte=0"`
}

// UpdatePromotionRequest modifies promotion fields.
type UpdatePromotionRequest struct {
	Name  string `json:"name" validate:"required"`
	Year  int    `json:"year" validate:"required,gt=0"`
	Track string `json:"track" validate:"required"`
	Size  int    `json:"size" validate:"gte=0"`
}

// PromotionService coordinates promotion operations.
type PromotionService struct {
	repo      promotionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPromotionService constructs PromotionService.
func NewPromotionService(repo promotionRepository, validate *validator.Validate, logger *zap.Logger) *PromotionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromotionService{repo: repo, validator: validate, logger: logger}
}

// List returns promotions with pagination metadata.
func (s *PromotionService) List(ctx context.Context, filter models.PromotionFilter) ([]models.Promotion, *models.Pagination, error) {
	promotions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list promotions")
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
	return promotions, pagination, nil
}

// Get returns detailed promotion information.
func (s *PromotionService) Get(ctx context.Context, id string) (*models.PromotionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promotion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion")
	}
	return detail, nil
}

// Create adds a new promotion.
func (s *PromotionService) Create(ctx context.Context, req CreatePromotionRequest) (*models.Promotion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check promotion name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "promotion name already exists")
	}

	promotion := &models.Promotion{
		Name:  req.Name,
		Year:  req.Year,
		Track: req.Track,
		Size:  req.Size,
	}
	if err := s.repo.Create(ctx, promotion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create promotion")
	}
	return promotion, nil
}

// Update modifies a promotion record.
func (s *PromotionService) Update(ctx context.Context, id string, req UpdatePromotionRequest) (*models.Promotion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid promotion payload")
	}

	promotion, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "promotion not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check promotion name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "promotion name already exists")
	}

	promotion.Name = req.Name
	promotion.Year = req.Year
	promotion.Track = req.Track
	promotion.Size = req.Size

	if err := s.repo.Update(ctx, promotion); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update promotion")
	}
	return promotion, nil
}

// Delete removes a promotion, ensuring no groups or courses reference it.
func (s *PromotionService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "promotion not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion")
	}

	if count, err := s.repo.CountGroups(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check promotion groups")
	} else if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "promotion has groups")
	}

	if count, err := s.repo.CountCourses(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check promotion courses")
	} else if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "promotion has courses")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete promotion")
	}
	return nil
}
