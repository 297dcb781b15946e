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

// GroupRepository manages persistence for groups, the second level of the
// student audience hierarchy (tutorial-sized subdivisions of a promotion).
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns groups matching filter criteria.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error) {
	base := "FROM groups WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PromotionID != "" {
		conditions = append(conditions, fmt.Sprintf("promotion_id = $%d", len(args)+1))
		args = append(args, filter.PromotionID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"size":       true,
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

	query := fmt.Sprintf("SELECT id, promotion_id, name, size, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list groups: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count groups: %w", err)
	}
	return groups, total, nil
}

// FindByID returns a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, promotion_id, name, size, created_at, updated_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ListAll returns every group, used by the data preparation step to build
// the solver's audience hierarchy and size table.
func (r *GroupRepository) ListAll(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT id, promotion_id, name, size, created_at, updated_at FROM groups ORDER BY name ASC`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list all groups: %w", err)
	}
	return groups, nil
}

// FindDetailByID returns a group enriched with its owning promotion's name.
func (r *GroupRepository) FindDetailByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	const query = `SELECT g.id, g.promotion_id, g.name, g.size, g.created_at, g.updated_at, p.name AS promotion_name
		FROM groups g JOIN promotions p ON p.id = g.promotion_id WHERE g.id = $1`
	var detail models.GroupDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByName checks uniqueness of a group name within its promotion.
func (r *GroupRepository) ExistsByName(ctx context.Context, promotionID, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM groups WHERE promotion_id = $1 AND LOWER(name) = LOWER($2)"
	args := []interface{}{promotionID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check group name: %w", err)
	}
	return true, nil
}

// Exists reports whether a group id is known; it grounds
// store.SubjectChecker.GroupExists for group-scoped availability records.
func (r *GroupRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM groups WHERE id = $1 LIMIT 1", id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check group existence: %w", err)
	}
	return true, nil
}

// Create persists a group record.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const query = `INSERT INTO groups (id, promotion_id, name, size, created_at, updated_at) VALUES (:id, :promotion_id, :name, :size, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update modifies a group record.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE groups SET name = :name, size = :size, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	return nil
}

// Delete removes a group record.
func (r *GroupRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

// CountSubGroups returns how many sub-groups belong to a group.
func (r *GroupRepository) CountSubGroups(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sub_groups WHERE group_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, groupID); err != nil {
		return 0, fmt.Errorf("count sub groups: %w", err)
	}
	return count, nil
}

// CountCourses returns the number of courses whose audience is this group.
func (r *GroupRepository) CountCourses(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE audience_type = 'group' AND audience_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, groupID); err != nil {
		return 0, fmt.Errorf("count group courses: %w", err)
	}
	return count, nil
}
