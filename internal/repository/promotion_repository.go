package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-adp-api/internal/models"
)

// PromotionRepository manages persistence for promotions.
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository constructs a new promotion repository.
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

// List returns promotions matching filter criteria.
func (r *PromotionRepository) List(ctx context.Context, filter models.PromotionFilter) ([]models.Promotion, int, error) {
	base := "FROM promotions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Track != "" {
		conditions = append(conditions, fmt.Sprintf("track = $%d", len(args)+1))
		args = append(args, filter.Track)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d)", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]bool{
		"name":       true,
		"year":       true,
		"track":      true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, year, track, size, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var promotions []models.Promotion
	if err := r.db.SelectContext(ctx, &promotions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list promotions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count promotions: %w", err)
	}
	return promotions, total, nil
}

// FindByID returns a promotion record by ID.
func (r *PromotionRepository) FindByID(ctx context.Context, id string) (*models.Promotion, error) {
	const query = `SELECT id, name, year, track, size, created_at, updated_at FROM promotions WHERE id = $1`
	var promotion models.Promotion
	if err := r.db.GetContext(ctx, &promotion, query, id); err != nil {
		return nil, err
	}
	return &promotion, nil
}

// ListAll returns every promotion, used by the data preparation step to
// build the solver's audience size table.
func (r *PromotionRepository) ListAll(ctx context.Context) ([]models.Promotion, error) {
	const query = `SELECT id, name, year, track, size, created_at, updated_at FROM promotions ORDER BY name ASC`
	var promotions []models.Promotion
	if err := r.db.SelectContext(ctx, &promotions, query); err != nil {
		return nil, fmt.Errorf("list all promotions: %w", err)
	}
	return promotions, nil
}

// FindDetailByID returns a promotion with its group count.
func (r *PromotionRepository) FindDetailByID(ctx context.Context, id string) (*models.PromotionDetail, error) {
	const query = `SELECT p.id, p.name, p.year, p.track, p.size, p.created_at, p.updated_at,
		(SELECT COUNT(*) FROM groups g WHERE g.promotion_id = p.id) AS group_count
		FROM promotions p WHERE p.id = $1`
	var detail models.PromotionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByName checks if a promotion with the same name already exists.
func (r *PromotionRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM promotions WHERE LOWER(name) = LOWER($1)"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check promotion name: %w", err)
	}
	return true, nil
}

// Exists reports whether a promotion id exists.
func (r *PromotionRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM promotions WHERE id = $1 LIMIT 1", id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check promotion existence: %w", err)
	}
	return true, nil
}

// Create persists a promotion record.
func (r *PromotionRepository) Create(ctx context.Context, promotion *models.Promotion) error {
	if promotion.ID == "" {
		promotion.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if promotion.CreatedAt.IsZero() {
		promotion.CreatedAt = now
	}
	promotion.UpdatedAt = now

	const query = `INSERT INTO promotions (id, name, year, track, size, created_at, updated_at) VALUES (:id, :name, :year, :track, :size, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, promotion); err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

// Update modifies a promotion record.
func (r *PromotionRepository) Update(ctx context.Context, promotion *models.Promotion) error {
	promotion.UpdatedAt = time.Now().UTC()
	const query = `UPDATE promotions SET name = :name, year = :year, track = :track, size = :size, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, promotion); err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	return nil
}

// Delete removes a promotion record.
func (r *PromotionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}
	return nil
}

// CountGroups returns how many groups belong to a promotion.
func (r *PromotionRepository) CountGroups(ctx context.Context, promotionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM groups WHERE promotion_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, promotionID); err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return count, nil
}

// CountCourses returns the number of courses whose audience is this promotion.
func (r *PromotionRepository) CountCourses(ctx context.Context, promotionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE audience_type = 'promotion' AND audience_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, promotionID); err != nil {
		return 0, fmt.Errorf("count promotion courses: %w", err)
	}
	return count, nil
}
