package prep

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/store"
	"github.com/noah-isme/sma-adp-api/internal/validator"
)

// courseLister is the subset of *repository.CourseRepository the builder
// needs: the term's teaching demand.
type courseLister interface {
	ListByTerm(ctx context.Context, termID string) ([]models.Course, error)
}

// roomLister is the subset of *repository.RoomRepository the builder needs.
type roomLister interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

// teacherLister is the subset of *repository.TeacherRepository the
// builder needs.
type teacherLister interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

// promotionLister is the subset of *repository.PromotionRepository the
// builder needs.
type promotionLister interface {
	ListAll(ctx context.Context) ([]models.Promotion, error)
}

// groupLister is the subset of *repository.GroupRepository the builder
// needs.
type groupLister interface {
	ListAll(ctx context.Context) ([]models.Group, error)
}

// subGroupLister is the subset of *repository.SubGroupRepository the
// builder needs.
type subGroupLister interface {
	ListAll(ctx context.Context) ([]models.SubGroup, error)
}

// eligibilityLister is the subset of *repository.CourseEligibilityRepository
// the builder needs.
type eligibilityLister interface {
	ListAllForTerm(ctx context.Context, termID string) ([]models.CourseEligibility, error)
}

// Builder assembles ModelData from the teaching-demand repositories and a
// Constraint Validator snapshot for a given week.
type Builder struct {
	courses       courseLister
	rooms         roomLister
	teachers      teacherLister
	promotions    promotionLister
	groups        groupLister
	subGroups     subGroupLister
	eligibilities eligibilityLister
	store         validator.StoreReader
	grid          grid.Config
}

// NewBuilder constructs a Builder from its repository dependencies.
func NewBuilder(
	courses courseLister,
	rooms roomLister,
	teachers teacherLister,
	promotions promotionLister,
	groups groupLister,
	subGroups subGroupLister,
	eligibilities eligibilityLister,
	storeReader validator.StoreReader,
	gridCfg grid.Config,
) *Builder {
	return &Builder{
		courses:       courses,
		rooms:         rooms,
		teachers:      teachers,
		promotions:    promotions,
		groups:        groups,
		subGroups:     subGroups,
		eligibilities: eligibilities,
		store:         storeReader,
		grid:          gridCfg,
	}
}

// Build loads a term's teaching demand for a given week and normalizes it
// into ModelData. val must have been loaded for the same week.
func (b *Builder) Build(ctx context.Context, termID string, week int, val *validator.Validator) (*ModelData, error) {
	rawCourses, err := b.courses.ListByTerm(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("prep: list courses: %w", err)
	}
	rooms, err := b.rooms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("prep: list rooms: %w", err)
	}
	teachers, err := b.teachers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("prep: list teachers: %w", err)
	}
	promotions, err := b.promotions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("prep: list promotions: %w", err)
	}
	groups, err := b.groups.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("prep: list groups: %w", err)
	}
	subGroups, err := b.subGroups.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("prep: list sub-groups: %w", err)
	}
	eligibilities, err := b.eligibilities.ListAllForTerm(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("prep: list course eligibilities: %w", err)
	}

	data := &ModelData{
		TermID:              termID,
		Week:                week,
		Days:                b.grid.Days,
		Offsets:             b.grid.Offsets,
		MiddayWindow:        append([]int(nil), b.grid.MiddayWindow...),
		AudienceSize:        make(map[string]int),
		GroupParent:         make(map[string]string),
		SubGroupParent:      make(map[string]string),
		TeacherIndexByID:    make(map[string]int),
		TeacherAvailability: make(map[int]map[string][]grid.Interval),
		RoomAvailability:    make(map[string]map[string][]grid.Interval),
		GroupAvailability:   make(map[string]map[string][]grid.Interval),
		FixedSlots:          make(map[string]FixedSlot),
	}

	for _, p := range promotions {
		data.AudienceSize[p.ID] = p.Size
	}
	groupNameByID := make(map[string]string, len(groups))
	for _, g := range groups {
		data.AudienceSize[g.ID] = g.Size
		data.GroupParent[g.ID] = g.PromotionID
		groupNameByID[g.ID] = g.Name
	}
	for _, sg := range subGroups {
		data.AudienceSize[sg.ID] = sg.Size
		data.SubGroupParent[sg.ID] = sg.GroupID
	}

	data.Rooms = make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		data.Rooms = append(data.Rooms, RoomInfo{ID: r.ID, Name: r.Name, Capacity: r.Capacity})
		data.RoomAvailability[r.ID] = b.freeTimeFor(val, validator.SubjectRoom, r.ID)
	}

	data.Teachers = make([]TeacherInfo, 0, len(teachers))
	for idx, t := range teachers {
		data.Teachers = append(data.Teachers, TeacherInfo{Index: idx, ID: t.ID, DisplayName: t.FullName})
		data.TeacherIndexByID[t.ID] = idx
		data.TeacherAvailability[idx] = b.freeTimeFor(val, validator.SubjectTeacher, t.ID)
	}

	eligibleByCourse := make(map[string][]string)
	for _, e := range eligibilities {
		eligibleByCourse[e.CourseID] = append(eligibleByCourse[e.CourseID], e.TeacherID)
	}

	for _, c := range rawCourses {
		demand, ok := b.buildCourseDemand(data, c, eligibleByCourse[c.ID], groupNameByID)
		if !ok {
			continue
		}
		data.Courses = append(data.Courses, demand)
		if demand.Obligation != nil {
			data.FixedSlots[demand.CID] = *demand.Obligation
		}
		if _, seen := data.GroupAvailability[demand.AudienceID]; !seen {
			data.GroupAvailability[demand.AudienceID] = b.freeTimeFor(val, validator.SubjectGroup, demand.AudienceID)
		}
	}

	if err := b.mergeStoreFixedSlots(ctx, week, data); err != nil {
		return nil, err
	}

	return data, nil
}

// buildCourseDemand applies the §4.4 course construction rules: audience
// derivation, duration pass-through, and eligible-teacher resolution with
// fallback to the full pool. Unknown course types are dropped with a
// recorded warning.
func (b *Builder) buildCourseDemand(data *ModelData, c models.Course, eligibleTeacherIDs []string, groupNameByID map[string]string) (CourseDemand, bool) {
	switch c.Type {
	case models.CourseTypeLecture, models.CourseTypeTutorial, models.CourseTypeLab, models.CourseTypeProject, models.CourseTypeExam:
	default:
		data.Warnings = append(data.Warnings, fmt.Sprintf("course %s: unknown type %q dropped", c.ID, c.Type))
		return CourseDemand{}, false
	}

	label := c.AudienceID
	if c.Type == models.CourseTypeLab {
		if groupID, ok := data.SubGroupParent[c.AudienceID]; ok {
			label = fmt.Sprintf("%s·%s", groupNameByID[groupID], c.AudienceID)
		}
	}

	idx := make([]int, 0, len(eligibleTeacherIDs))
	if len(eligibleTeacherIDs) == 0 {
		for _, t := range data.Teachers {
			idx = append(idx, t.Index)
		}
		if len(data.Teachers) > 0 {
			data.Warnings = append(data.Warnings, fmt.Sprintf("course %s: no explicit eligible teachers, widened to full pool", c.ID))
		}
	} else {
		for _, teacherID := range eligibleTeacherIDs {
			if i, ok := data.TeacherIndexByID[teacherID]; ok {
				idx = append(idx, i)
			}
		}
	}
	sort.Ints(idx)

	demand := CourseDemand{
		CID:                c.ID,
		Title:              c.Title,
		Type:               c.Type,
		AudienceType:       c.AudienceType,
		AudienceID:         c.AudienceID,
		AudienceLabel:      label,
		DurationSlots:      c.DurationSlots,
		EligibleTeacherIdx: idx,
		IsExam:             c.IsExam,
	}
	if c.HasObligation() {
		demand.Obligation = &FixedSlot{Day: *c.ObligationDay, Offset: *c.ObligationOff}
	}
	return demand, true
}

// mergeStoreFixedSlots folds in course-slot obligations recorded directly
// in the Constraint Store (kind slot-fixed and slot-exam), supplementing
// any Course.ObligationDay/Offset already captured above.
func (b *Builder) mergeStoreFixedSlots(ctx context.Context, week int, data *ModelData) error {
	for _, kind := range []store.Kind{store.KindSlotFixed, store.KindSlotExam} {
		records, err := b.store.List(ctx, kind, store.Filter{Week: &week})
		if err != nil {
			return fmt.Errorf("prep: list %s records: %w", kind, err)
		}
		for _, r := range records {
			data.FixedSlots[r.SubjectID] = FixedSlot{Day: r.DayOfWeek, Offset: r.StartOffset}
		}
	}
	return nil
}

// freeTimeFor returns the complement of a subject's hard unavailability
// ranges, intersected with the grid's working hours, for every configured
// day — the free-time representation §4.4 requires for teacher, room,
// and group availability.
func (b *Builder) freeTimeFor(val *validator.Validator, kind validator.SubjectKind, subjectID string) map[string][]grid.Interval {
	blocked := val.BlockedRanges(kind, subjectID)
	free := make(map[string][]grid.Interval, b.grid.Days)
	for d := 0; d < b.grid.Days; d++ {
		day, err := grid.IndexToDayOfWeek(d)
		if err != nil {
			continue
		}
		free[day] = complement(blocked[day], b.grid.Offsets)
	}
	return free
}

// complement returns the free half-open ranges within [0, total) given a
// set of sorted, non-overlapping blocked ranges.
func complement(blocked []grid.Interval, total int) []grid.Interval {
	sorted := append([]grid.Interval(nil), blocked...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var free []grid.Interval
	cursor := 0
	for _, b := range sorted {
		if b.Start > cursor {
			free = append(free, grid.Interval{Start: cursor, End: b.Start})
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if cursor < total {
		free = append(free, grid.Interval{Start: cursor, End: total})
	}
	return free
}
