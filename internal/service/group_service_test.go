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

type mockGroupRepo struct {
	items        map[string]*models.Group
	nameIndex    map[string]string
	subGroups    map[string]int
	courses      map[string]int
	deletedIDs   []string
}

func (m *mockGroupRepo) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, int, error) {
	return nil, 0, nil
}

func (m *mockGroupRepo) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if g, ok := m.items[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockGroupRepo) FindDetailByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	g, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.GroupDetail{Group: *g}, nil
}

func (m *mockGroupRepo) ExistsByName(ctx context.Context, promotionID, name, excludeID string) (bool, error) {
	key := promotionID + "|" + name
	if owner, ok := m.nameIndex[key]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockGroupRepo) Create(ctx context.Context, group *models.Group) error {
	if m.items == nil {
		m.items = make(map[string]*models.Group)
	}
	if group.ID == "" {
		group.ID = "generated"
	}
	cp := *group
	m.items[group.ID] = &cp
	return nil
}

func (m *mockGroupRepo) Update(ctx context.Context, group *models.Group) error {
	cp := *group
	m.items[group.ID] = &cp
	return nil
}

func (m *mockGroupRepo) Delete(ctx context.Context, id string) error {
	m.deletedIDs = append(m.deletedIDs, id)
	delete(m.items, id)
	return nil
}

func (m *mockGroupRepo) CountSubGroups(ctx context.Context, groupID string) (int, error) {
	return m.subGroups[groupID], nil
}

func (m *mockGroupRepo) CountCourses(ctx context.Context, groupID string) (int, error) {
	return m.courses[groupID], nil
}

type mockGroupPromotionReader struct {
	promotions map[string]*models.Promotion
}

func (m *mockGroupPromotionReader) FindByID(ctx context.Context, id string) (*models.Promotion, error) {
	if p, ok := m.promotions[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func TestGroupServiceCreate(t *testing.T) {
	repo := &mockGroupRepo{}
	promotions := &mockGroupPromotionReader{promotions: map[string]*models.Promotion{"p1": {ID: "p1", Name: "BUT1"}}}
	service := NewGroupService(repo, promotions, validator.New(), zap.NewNop())

	group, err := service.Create(context.Background(), CreateGroupRequest{PromotionID: "p1", Name: "G1", Size: 30})
	require.NoError(t, err)
	assert.Equal(t, "G1", group.Name)
	assert.Len(t, repo.items, 1)
}

func TestGroupServiceCreateUnknownPromotion(t *testing.T) {
	repo := &mockGroupRepo{}
	promotions := &mockGroupPromotionReader{}
	service := NewGroupService(repo, promotions, validator.New(), zap.NewNop())

	_, err := service.Create(context.Background(), CreateGroupRequest{PromotionID: "missing", Name: "G1"})
	require.Error(t, err)
}

func TestGroupServiceDeleteBlockedBySubGroups(t *testing.T) {
	repo := &mockGroupRepo{
		items:     map[string]*models.Group{"g1": {ID: "g1", PromotionID: "p1", Name: "G1"}},
		subGroups: map[string]int{"g1": 2},
	}
	promotions := &mockGroupPromotionReader{}
	service := NewGroupService(repo, promotions, validator.New(), zap.NewNop())

	err := service.Delete(context.Background(), "g1")
	require.Error(t, err)
}

func TestGroupServiceDelete(t *testing.T) {
	repo := &mockGroupRepo{
		items: map[string]*models.Group{"g1": {ID: "g1", PromotionID: "p1", Name: "G1"}},
	}
	promotions := &mockGroupPromotionReader{}
	service := NewGroupService(repo, promotions, validator.New(), zap.NewNop())

	err := service.Delete(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, repo.deletedIDs)
}
