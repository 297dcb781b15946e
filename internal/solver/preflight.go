package solver

import (
	"fmt"

	"github.com/noah-isme/sma-adp-api/internal/prep"
)

// Preflight inspects a ModelData value for structural impossibilities that
// would make model construction itself fail, before any variable or
// constraint is ever posted to a Backend: a course with no feasible start
// domain, no capacity-eligible room, or an empty eligible-teacher set.
// Solve treats a non-empty result as a model-build error rather than
// attempting to solve.
func Preflight(data *prep.ModelData) Diagnostics {
	var diag Diagnostics
	for _, c := range data.Courses {
		if c.DurationSlots <= 0 || c.DurationSlots > data.Offsets {
			diag.NoValidStartCourses = append(diag.NoValidStartCourses, c.CID)
		}
		if !hasEligibleRoom(data, c.AudienceID) {
			diag.NoEligibleRoomCourses = append(diag.NoEligibleRoomCourses, c.CID)
		}
		if len(c.EligibleTeacherIdx) == 0 {
			diag.EmptyEligibleTeachers = append(diag.EmptyEligibleTeachers, c.CID)
		}
	}
	return diag
}

func hasEligibleRoom(data *prep.ModelData, audienceID string) bool {
	size := data.AudienceSize[audienceID]
	for _, r := range data.Rooms {
		if r.Capacity >= size {
			return true
		}
	}
	return len(data.Rooms) == 0 && size == 0
}

// modelBuildMessage summarizes a non-empty preflight Diagnostics for the
// wrapped ErrModelBuild error message.
func modelBuildMessage(diag Diagnostics) string {
	return fmt.Sprintf(
		"no valid start domain for %d course(s), no eligible room for %d course(s), no eligible teacher for %d course(s)",
		len(diag.NoValidStartCourses), len(diag.NoEligibleRoomCourses), len(diag.EmptyEligibleTeachers),
	)
}

// overCommittedAudiences flags audiences whose total course duration
// exceeds the free capacity their availability records leave them, a
// coarse necessary condition for infeasibility surfaced alongside a
// StatusInfeasible result.
func overCommittedAudiences(data *prep.ModelData) []string {
	demand := make(map[string]int)
	for _, c := range data.Courses {
		demand[c.AudienceID] += c.DurationSlots
	}

	var overCommitted []string
	for audience, required := range demand {
		free := 0
		for _, intervals := range data.GroupAvailability[audience] {
			for _, iv := range intervals {
				free += iv.End - iv.Start
			}
		}
		if required > free {
			overCommitted = append(overCommitted, audience)
		}
	}
	return overCommitted
}
