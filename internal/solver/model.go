package solver

import (
	"fmt"

	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/prep"
)

// builder assembles the decision variables and constraints of §4.5 onto a
// Backend for one prep.ModelData instance.
type builder struct {
	backend Backend
	data    *prep.ModelData
	opts    Options
	grid    grid.Config

	// start[cid][t] is defined only for t in the course's valid domain.
	start map[string]map[int]BoolVar
	// occ[cid][t] is defined for every global slot.
	occ map[string]map[int]BoolVar
	// y[cid][roomID] is defined only for rooms passing the capacity filter.
	y map[string]map[string]BoolVar
	// z[cid][teacherIdx] is defined only for eligible teachers.
	z map[string]map[int]BoolVar

	validStarts map[string][]int

	objective []LinearTerm
}

func newBuilder(backend Backend, data *prep.ModelData, opts Options) *builder {
	return &builder{
		backend:     backend,
		data:        data,
		opts:        opts,
		grid:        grid.Config{Days: data.Days, Offsets: data.Offsets, MiddayWindow: data.MiddayWindow},
		start:       make(map[string]map[int]BoolVar),
		occ:         make(map[string]map[int]BoolVar),
		y:           make(map[string]map[string]BoolVar),
		z:           make(map[string]map[int]BoolVar),
		validStarts: make(map[string][]int),
	}
}

func (b *builder) totalSlots() int { return b.data.Days * b.data.Offsets }

// validStartsForCourse returns the global slots at which c may begin
// without crossing a day boundary.
func (b *builder) validStartsForCourse(c prep.CourseDemand) []int {
	var starts []int
	if c.DurationSlots <= 0 || c.DurationSlots > b.data.Offsets {
		return starts
	}
	for d := 0; d < b.data.Days; d++ {
		for o := 0; o+c.DurationSlots <= b.data.Offsets; o++ {
			starts = append(starts, b.grid.ToGlobal(d, o))
		}
	}
	return starts
}

func (b *builder) allowedRoom(c prep.CourseDemand, r prep.RoomInfo) bool {
	return r.Capacity >= b.data.AudienceSize[c.AudienceID]
}

// build constructs every variable and constraint, then sets the
// objective. It always returns nil: courses with no valid start, no
// eligible room or no eligible teacher are caught by Preflight, which
// Solve runs before build.
func (b *builder) build() error {
	b.createVariables()
	b.structuralConstraints()
	b.occupancyLinking()
	b.resourceExclusion()
	b.availabilityWindows()
	b.middayPause()
	b.ordering()
	b.softObjective()
	b.backend.SetObjective(b.objective)
	return nil
}

func (b *builder) createVariables() {
	for _, c := range b.data.Courses {
		starts := b.validStartsForCourse(c)
		b.validStarts[c.CID] = starts
		startVars := make(map[int]BoolVar, len(starts))
		for _, t := range starts {
			startVars[t] = b.backend.NewBoolVar(fmt.Sprintf("start[%s,%d]", c.CID, t))
		}
		b.start[c.CID] = startVars

		occVars := make(map[int]BoolVar, b.totalSlots())
		for t := 0; t < b.totalSlots(); t++ {
			occVars[t] = b.backend.NewBoolVar(fmt.Sprintf("occ[%s,%d]", c.CID, t))
		}
		b.occ[c.CID] = occVars

		roomVars := make(map[string]BoolVar)
		for _, r := range b.data.Rooms {
			if b.allowedRoom(c, r) {
				roomVars[r.ID] = b.backend.NewBoolVar(fmt.Sprintf("y[%s,%s]", c.CID, r.ID))
			}
		}
		b.y[c.CID] = roomVars

		teacherVars := make(map[int]BoolVar, len(c.EligibleTeacherIdx))
		for _, idx := range c.EligibleTeacherIdx {
			teacherVars[idx] = b.backend.NewBoolVar(fmt.Sprintf("z[%s,%d]", c.CID, idx))
		}
		b.z[c.CID] = teacherVars
	}
}

func (b *builder) structuralConstraints() {
	for _, c := range b.data.Courses {
		// Exactly one start.
		b.backend.AddLinearConstraint(boolTerms(b.start[c.CID]), 1, 1)

		// Exactly one room among the capacity-eligible set.
		b.backend.AddLinearConstraint(boolTerms(b.y[c.CID]), 1, 1)

		// Exactly one teacher among the eligible set.
		b.backend.AddLinearConstraint(boolTerms(b.z[c.CID]), 1, 1)
	}
}

func (b *builder) occupancyLinking() {
	for _, c := range b.data.Courses {
		starts := b.start[c.CID]
		for t := 0; t < b.totalSlots(); t++ {
			terms := []LinearTerm{{b.occ[c.CID][t], 1}}
			for _, s := range occupancyWindowStarts(b.grid, c.DurationSlots, t) {
				if v, ok := starts[s]; ok {
					terms = append(terms, LinearTerm{v, -1})
				}
			}
			b.backend.AddLinearConstraint(terms, 0, 0)
		}
	}
}

// occupancyWindowStarts returns the candidate start offsets s such that a
// course starting at s and running durationSlots would occupy global
// slot t, restricted to s's own day (no day-crossing).
func occupancyWindowStarts(cfg grid.Config, durationSlots, t int) []int {
	day, offset := cfg.FromGlobal(t)
	var starts []int
	for s := offset - durationSlots + 1; s <= offset; s++ {
		if s < 0 {
			continue
		}
		starts = append(starts, cfg.ToGlobal(day, s))
	}
	return starts
}

func (b *builder) resourceExclusion() {
	courses := b.data.Courses

	// Rooms: for each (t, r), at most one course occupies it.
	for _, r := range b.data.Rooms {
		for t := 0; t < b.totalSlots(); t++ {
			var occupants []BoolVar
			for _, c := range courses {
				yVar, ok := b.y[c.CID][r.ID]
				if !ok {
					continue
				}
				ind := reifyAnd(b.backend, b.occ[c.CID][t], yVar, fmt.Sprintf("room_occ[%s,%d,%s]", c.CID, t, r.ID))
				occupants = append(occupants, ind)
			}
			if len(occupants) > 1 {
				b.backend.AddLinearConstraint(unitTerms(occupants), 0, 1)
			}
		}
	}

	// Teachers: symmetric with z.
	for _, tch := range b.data.Teachers {
		for t := 0; t < b.totalSlots(); t++ {
			var occupants []BoolVar
			for _, c := range courses {
				zVar, ok := b.z[c.CID][tch.Index]
				if !ok {
					continue
				}
				ind := reifyAnd(b.backend, b.occ[c.CID][t], zVar, fmt.Sprintf("teacher_occ[%s,%d,%d]", c.CID, t, tch.Index))
				occupants = append(occupants, ind)
			}
			if len(occupants) > 1 {
				b.backend.AddLinearConstraint(unitTerms(occupants), 0, 1)
			}
		}
	}

	// Student audiences: any concurrent pair sharing an ancestor/descendant
	// relationship in the audience hierarchy is a conflict.
	for i := 0; i < len(courses); i++ {
		for j := i + 1; j < len(courses); j++ {
			if !b.audiencesConflict(courses[i].AudienceID, courses[j].AudienceID) {
				continue
			}
			for t := 0; t < b.totalSlots(); t++ {
				b.backend.AddLinearConstraint([]LinearTerm{
					{b.occ[courses[i].CID][t], 1},
					{b.occ[courses[j].CID][t], 1},
				}, 0, 1)
			}
		}
	}
}

// audiencesConflict reports whether a and b are the same audience or one
// is an ancestor of the other in the Promotion > Group > SubGroup tree.
func (b *builder) audiencesConflict(a, c string) bool {
	if a == c {
		return true
	}
	for _, ancestor := range b.data.AudienceAncestors(a) {
		if ancestor == c {
			return true
		}
	}
	for _, ancestor := range b.data.AudienceAncestors(c) {
		if ancestor == a {
			return true
		}
	}
	return false
}

func (b *builder) availabilityWindows() {
	for _, c := range b.data.Courses {
		// Teacher availability.
		for _, idx := range c.EligibleTeacherIdx {
			for d := 0; d < b.data.Days; d++ {
				day, _ := grid.IndexToDayOfWeek(d)
				for _, blocked := range blockedOffsets(b.data.TeacherAvailability[idx][day], b.data.Offsets) {
					t := b.grid.ToGlobal(d, blocked)
					b.backend.AddLinearConstraint([]LinearTerm{
						{b.occ[c.CID][t], 1}, {b.z[c.CID][idx], 1},
					}, 0, 1)
				}
			}
		}

		// Room availability.
		for roomID := range b.y[c.CID] {
			for d := 0; d < b.data.Days; d++ {
				day, _ := grid.IndexToDayOfWeek(d)
				for _, blocked := range blockedOffsets(b.data.RoomAvailability[roomID][day], b.data.Offsets) {
					t := b.grid.ToGlobal(d, blocked)
					b.backend.AddLinearConstraint([]LinearTerm{
						{b.occ[c.CID][t], 1}, {b.y[c.CID][roomID], 1},
					}, 0, 1)
				}
			}
		}

		// Group (audience) availability.
		for d := 0; d < b.data.Days; d++ {
			day, _ := grid.IndexToDayOfWeek(d)
			for _, blocked := range blockedOffsets(b.data.GroupAvailability[c.AudienceID][day], b.data.Offsets) {
				t := b.grid.ToGlobal(d, blocked)
				b.backend.AddLinearConstraint([]LinearTerm{{b.occ[c.CID][t], 1}}, 0, 0)
			}
		}

		// Fixed-slot obligations.
		if fixed, ok := b.data.FixedSlots[c.CID]; ok {
			dayIdx, err := grid.DayOfWeekToIndex(fixed.Day)
			if err == nil {
				target := b.grid.ToGlobal(dayIdx, fixed.Offset)
				if v, ok := b.start[c.CID][target]; ok {
					b.backend.AddLinearConstraint([]LinearTerm{{v, 1}}, 1, 1)
				}
			}
		}
	}
}

// blockedOffsets inverts a free-range list into the individual offsets
// that are NOT free, within [0, total).
func blockedOffsets(free []grid.Interval, total int) []int {
	isFree := make([]bool, total)
	for _, r := range free {
		for o := r.Start; o < r.End && o < total; o++ {
			if o >= 0 {
				isFree[o] = true
			}
		}
	}
	var blocked []int
	for o := 0; o < total; o++ {
		if !isFree[o] {
			blocked = append(blocked, o)
		}
	}
	return blocked
}

func (b *builder) middayPause() {
	if len(b.data.MiddayWindow) == 0 {
		return
	}
	byAudience := make(map[string][]prep.CourseDemand)
	for _, c := range b.data.Courses {
		byAudience[c.AudienceID] = append(byAudience[c.AudienceID], c)
	}
	for _, courses := range byAudience {
		for d := 0; d < b.data.Days; d++ {
			var terms []LinearTerm
			for _, o := range b.data.MiddayWindow {
				t := b.grid.ToGlobal(d, o)
				for _, c := range courses {
					terms = append(terms, LinearTerm{b.occ[c.CID][t], 1})
				}
			}
			if len(terms) > 1 {
				b.backend.AddLinearConstraint(terms, 0, 1)
			}
		}
	}
}

func (b *builder) ordering() {
	byTitle := make(map[string]map[models.CourseType]prep.CourseDemand)
	for _, c := range b.data.Courses {
		if byTitle[c.Title] == nil {
			byTitle[c.Title] = make(map[models.CourseType]prep.CourseDemand)
		}
		byTitle[c.Title][c.Type] = c
	}
	for _, byType := range byTitle {
		lecture, hasLecture := byType[models.CourseTypeLecture]
		tutorial, hasTutorial := byType[models.CourseTypeTutorial]
		lab, hasLab := byType[models.CourseTypeLab]

		if hasLecture && hasTutorial {
			b.postOrdering(lecture, tutorial)
		}
		if hasTutorial && hasLab {
			b.postOrdering(tutorial, lab)
		}
	}
}

// postOrdering posts start_time[first] + duration(first) <= start_time[second].
func (b *builder) postOrdering(first, second prep.CourseDemand) {
	var terms []LinearTerm
	for t, v := range b.start[first.CID] {
		terms = append(terms, LinearTerm{v, int64(t)})
	}
	for t, v := range b.start[second.CID] {
		terms = append(terms, LinearTerm{v, int64(-t)})
	}
	b.backend.AddLinearConstraint(terms, -InfBound, int64(-first.DurationSlots))
}

func (b *builder) softObjective() {
	w := b.opts.Weights

	// Forbidden starts.
	for cid, offsets := range b.opts.ForbiddenStarts {
		for _, t := range offsets {
			if v, ok := b.start[cid][t]; ok {
				b.objective = append(b.objective, LinearTerm{v, int64(w.Forbidden)})
			}
		}
	}

	// Late finish: a start in the late region of its day is penalized in
	// proportion to how far past the threshold it falls.
	threshold := b.opts.LateStartThreshold
	for _, c := range b.data.Courses {
		for t, v := range b.start[c.CID] {
			_, offset := b.grid.FromGlobal(t)
			if excess := offset - threshold; excess > 0 {
				b.objective = append(b.objective, LinearTerm{v, int64(w.Late * excess)})
			}
		}
	}

	// Over-consecutive occupancy per audience, per day, over a sliding
	// window one block wider than the configured budget.
	window := b.opts.MaxConsecutiveBlocks + 1
	if window < 1 || window > b.data.Offsets {
		return
	}
	byAudience := make(map[string][]prep.CourseDemand)
	for _, c := range b.data.Courses {
		byAudience[c.AudienceID] = append(byAudience[c.AudienceID], c)
	}
	slack := int64(window - b.opts.MaxConsecutiveBlocks)
	for audience, courses := range byAudience {
		for d := 0; d < b.data.Days; d++ {
			for o := 0; o+window <= b.data.Offsets; o++ {
				viol := b.backend.NewBoolVar(fmt.Sprintf("viol_consec[%s,%d,%d]", audience, d, o))
				terms := []LinearTerm{{viol, -slack}}
				for off := o; off < o+window; off++ {
					t := b.grid.ToGlobal(d, off)
					for _, c := range courses {
						terms = append(terms, LinearTerm{b.occ[c.CID][t], 1})
					}
				}
				b.backend.AddLinearConstraint(terms, -InfBound, int64(b.opts.MaxConsecutiveBlocks))
				b.objective = append(b.objective, LinearTerm{viol, int64(w.Consec)})
			}
		}
	}
}

func boolTerms(vars map[int]BoolVar) []LinearTerm {
	terms := make([]LinearTerm, 0, len(vars))
	for _, v := range vars {
		terms = append(terms, LinearTerm{v, 1})
	}
	return terms
}

func unitTerms(vars []BoolVar) []LinearTerm {
	terms := make([]LinearTerm, 0, len(vars))
	for _, v := range vars {
		terms = append(terms, LinearTerm{v, 1})
	}
	return terms
}
