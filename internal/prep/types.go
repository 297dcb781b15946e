// Package prep implements the Data Preparation component: it loads a
// week's teaching demand and availability records from persistent
// storage and normalizes them into the ModelData value consumed by
// internal/solver.
package prep

import (
	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/models"
)

// FixedSlot is a hard (day, offset) obligation a course must start at.
type FixedSlot struct {
	Day    string
	Offset int
}

// CourseDemand is one course's normalized teaching demand: its audience,
// duration, eligible teachers, and any fixed-slot obligation.
type CourseDemand struct {
	CID                string
	Title              string
	Type               models.CourseType
	AudienceType       models.AudienceType
	AudienceID         string
	AudienceLabel      string
	DurationSlots      int
	EligibleTeacherIdx []int
	Obligation         *FixedSlot
	IsExam             bool
}

// RoomInfo is a room's capacity as seen by the solver.
type RoomInfo struct {
	ID       string
	Name     string
	Capacity int
}

// TeacherInfo is a teacher's stable index and back-reference to the
// Constraint Store's teacher identifier.
type TeacherInfo struct {
	Index       int
	ID          string
	DisplayName string
}

// ModelData is the Timetable Solver's normalized input, built by Build
// from a week's teaching demand and Constraint Store snapshot.
type ModelData struct {
	TermID string
	Week   int

	Days         int
	Offsets      int
	MiddayWindow []int

	Courses []CourseDemand

	// AudienceSize maps an audience id (promotion, group, or sub-group
	// id) to its student headcount.
	AudienceSize map[string]int

	// GroupParent maps a group id to its owning promotion id.
	GroupParent map[string]string
	// SubGroupParent maps a sub-group id to its owning group id.
	SubGroupParent map[string]string

	Rooms    []RoomInfo
	Teachers []TeacherInfo

	// TeacherIndexByID resolves a stable teacher id back to its solver
	// index, re-used by callers re-querying the Store.
	TeacherIndexByID map[string]int

	// TeacherAvailability, RoomAvailability and GroupAvailability are
	// free-time representations: the complement of hard unavailability
	// records intersected with working hours, keyed by day name.
	TeacherAvailability map[int]map[string][]grid.Interval
	RoomAvailability    map[string]map[string][]grid.Interval
	GroupAvailability   map[string]map[string][]grid.Interval

	// FixedSlots maps a course id to its hard start obligation, if any.
	FixedSlots map[string]FixedSlot

	// Warnings accumulates non-fatal issues encountered while building
	// the model (unknown course types dropped, empty eligible-teacher
	// sets widened to the full pool, and so on).
	Warnings []string
}

// AudienceAncestors returns the chain of ancestor audience ids (nearest
// first) for a group or sub-group id, using the two-level parent index.
// A promotion id has no ancestors.
func (m *ModelData) AudienceAncestors(audienceID string) []string {
	var chain []string
	if promotionID, ok := m.GroupParent[audienceID]; ok {
		chain = append(chain, promotionID)
		return chain
	}
	if groupID, ok := m.SubGroupParent[audienceID]; ok {
		chain = append(chain, groupID)
		if promotionID, ok := m.GroupParent[groupID]; ok {
			chain = append(chain, promotionID)
		}
	}
	return chain
}

// AudienceDescendants returns every audience id in the subtree rooted at
// audienceID (excluding itself), computed by scanning the parent index.
// Used at constraint-emission time to expand a promotion or group into
// the full set of conflicting descendant audiences.
func (m *ModelData) AudienceDescendants(audienceID string) []string {
	var out []string
	for groupID, promotionID := range m.GroupParent {
		if promotionID != audienceID {
			continue
		}
		out = append(out, groupID)
		for subGroupID, parentGroupID := range m.SubGroupParent {
			if parentGroupID == groupID {
				out = append(out, subGroupID)
			}
		}
	}
	for subGroupID, groupID := range m.SubGroupParent {
		if groupID == audienceID {
			out = append(out, subGroupID)
		}
	}
	return out
}
