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

// SubGroupRepository manages persistence for sub-groups, the third level
// of the student audience hierarchy (lab-sized subdivisions of a group).
type SubGroupRepository struct {
	db *sqlx.DB
}

// NewSubGroupRepository constructs a new sub-group repository.
func NewSubGroupRepository(db *sqlx.DB) *SubGroupRepository {
	return &SubGroupRepository{db: db}
}

// List returns sub-groups matching filter criteria.
func (r *SubGroupRepository) List(ctx context.Context, filter models.SubGroupFilter) ([]models.SubGroup, int, error) {
	base := "FROM sub_groups WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
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

	query := fmt.Sprintf("SELECT id, group_id, name, size, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var subGroups []models.SubGroup
	if err := r.db.SelectContext(ctx, &subGroups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sub groups: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sub groups: %w", err)
	}
	return subGroups, total, nil
}

// FindByID returns a sub-group by id.
func (r *SubGroupRepository) FindByID(ctx context.Context, id string) (*models.SubGroup, error) {
	const query = `SELECT id, group_id, name, size, created_at, updated_at FROM sub_groups WHERE id = $1`
	var subGroup models.SubGroup
	if err := r.db.GetContext(ctx, &subGroup, query, id); err != nil {
		return nil, err
	}
	return &subGroup, nil
}

// ListAll returns every sub-group, used by the data preparation step to
// build the solver's audience hierarchy and size table.
func (r *SubGroupRepository) ListAll(ctx context.Context) ([]models.SubGroup, error) {
	const query = `SELECT id, group_id, name, size, created_at, updated_at FROM sub_groups ORDER BY name ASC`
	var subGroups []models.SubGroup
	if err := r.db.SelectContext(ctx, &subGroups, query); err != nil {
		return nil, fmt.Errorf("list all sub-groups: %w", err)
	}
	return subGroups, nil
}

// FindDetailByID returns a sub-group enriched with its owning group's name.
func (r *SubGroupRepository) FindDetailByID(ctx context.Context, id string) (*models.SubGroupDetail, error) {
	const query = `SELECT s.id, s.group_id, s.name, s.size, s.created_at, s.updated_at, g.name AS group_name
		FROM sub_groups s JOIN groups g ON g.id = s.group_id WHERE s.id = $1`
	var detail models.SubGroupDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByName checks uniqueness of a sub-group name within its group.
func (r *SubGroupRepository) ExistsByName(ctx context.Context, groupID, name string, excludeID string) (bool, error) {
	query := "SELECT 1 FROM sub_groups WHERE group_id = $1 AND LOWER(name) = LOWER($2)"
	args := []interface{}{groupID, name}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check sub group name: %w", err)
	}
	return true, nil
}

// Exists reports whether a sub-group id is known.
func (r *SubGroupRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM sub_groups WHERE id = $1 LIMIT 1", id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check sub group existence: %w", err)
	}
	return true, nil
}

// Create persists a sub-group record.
func (r *SubGroupRepository) Create(ctx context.Context, subGroup *models.SubGroup) error {
	if subGroup.ID == "" {
		subGroup.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subGroup.CreatedAt.IsZero() {
		subGroup.CreatedAt = now
	}
	subGroup.UpdatedAt = now

	const query = `INSERT INTO sub_groups (id, group_id, name, size, created_at, updated_at) VALUES (:id, :group_id, :name, :size, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subGroup); err != nil {
		return fmt.Errorf("create sub group: %w", err)
	}
	return nil
}

// Update modifies a sub-group record.
func (r *SubGroupRepository) Update(ctx context.Context, subGroup *models.SubGroup) error {
	subGroup.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sub_groups SET name = :name, size = :size, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, subGroup); err != nil {
		return fmt.Errorf("update sub group: %w", err)
	}
	return nil
}

// Delete removes a sub-group record.
func (r *SubGroupRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sub_groups WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete sub group: %w", err)
	}
	return nil
}

// CountCourses returns the number of courses whose audience is this sub-group.
func (r *SubGroupRepository) CountCourses(ctx context.Context, subGroupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM courses WHERE audience_type = 'subgroup' AND audience_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, subGroupID); err != nil {
		return 0, fmt.Errorf("count sub group courses: %w", err)
	}
	return count, nil
}
