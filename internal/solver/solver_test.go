package solver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/models"
	"github.com/noah-isme/sma-adp-api/internal/prep"
)

type fakeVar struct{ name string }

// recordedConstraint is the (terms, bounds) triple a real Backend would
// hand to its CP/SAT library, captured so tests can assert on posted
// constraint content instead of merely on how many were posted.
type recordedConstraint struct {
	terms      []LinearTerm
	lowerBound int64
	upperBound int64
}

// coeffFor returns the coefficient posted for the named variable, if any.
func (rc recordedConstraint) coeffFor(name string) (int64, bool) {
	for _, t := range rc.terms {
		if t.Var.(*fakeVar).name == name {
			return t.Coeff, true
		}
	}
	return 0, false
}

type fakeBackend struct {
	varCount    int
	constraints []recordedConstraint
	truthy      map[string]bool
	status      Status
}

func (f *fakeBackend) NewBoolVar(name string) BoolVar {
	f.varCount++
	return &fakeVar{name: name}
}

func (f *fakeBackend) AddLinearConstraint(terms []LinearTerm, lowerBound, upperBound int64) {
	f.constraints = append(f.constraints, recordedConstraint{terms: terms, lowerBound: lowerBound, upperBound: upperBound})
}

func (f *fakeBackend) SetObjective(terms []LinearTerm) {}

func (f *fakeBackend) Solve(ctx context.Context, opts BackendOptions) (Status, Solution, error) {
	if f.status == StatusInfeasible {
		return StatusInfeasible, nil, nil
	}
	return f.status, fakeSolution{truthy: f.truthy}, nil
}

// constraintsContainingAll returns every recorded constraint whose terms
// reference every one of names, regardless of what else they reference.
func (f *fakeBackend) constraintsContainingAll(names ...string) []recordedConstraint {
	var matches []recordedConstraint
	for _, c := range f.constraints {
		all := true
		for _, n := range names {
			if _, ok := c.coeffFor(n); !ok {
				all = false
				break
			}
		}
		if all {
			matches = append(matches, c)
		}
	}
	return matches
}

// constraintsExactly returns every recorded constraint whose term set is
// precisely names, no more and no fewer.
func (f *fakeBackend) constraintsExactly(names ...string) []recordedConstraint {
	var matches []recordedConstraint
	for _, c := range f.constraintsContainingAll(names...) {
		if len(c.terms) == len(names) {
			matches = append(matches, c)
		}
	}
	return matches
}

// findConstraint returns the first recorded constraint referencing every
// name in names and carrying exactly the given bounds, or nil.
func (f *fakeBackend) findConstraint(lowerBound, upperBound int64, names ...string) *recordedConstraint {
	for _, c := range f.constraintsContainingAll(names...) {
		if c.lowerBound == lowerBound && c.upperBound == upperBound {
			c := c
			return &c
		}
	}
	return nil
}

type fakeSolution struct{ truthy map[string]bool }

func (s fakeSolution) BooleanValue(v BoolVar) bool {
	return s.truthy[v.(*fakeVar).name]
}

func minimalData() *prep.ModelData {
	return &prep.ModelData{
		Days:         1,
		Offsets:      4,
		MiddayWindow: nil,
		Courses: []prep.CourseDemand{{
			CID: "c1", Title: "Algo", Type: models.CourseTypeLecture,
			AudienceType: models.AudienceTypePromotion, AudienceID: "aud1",
			DurationSlots: 2, EligibleTeacherIdx: []int{0},
		}},
		AudienceSize:        map[string]int{"aud1": 30},
		GroupParent:         map[string]string{},
		SubGroupParent:      map[string]string{},
		Rooms:               []prep.RoomInfo{{ID: "r1", Name: "A101", Capacity: 40}},
		Teachers:            []prep.TeacherInfo{{Index: 0, ID: "t1", DisplayName: "Teacher One"}},
		TeacherIndexByID:    map[string]int{"t1": 0},
		TeacherAvailability: map[int]map[string][]grid.Interval{0: {"Lundi": {{Start: 0, End: 4}}}},
		RoomAvailability:    map[string]map[string][]grid.Interval{"r1": {"Lundi": {{Start: 0, End: 4}}}},
		GroupAvailability:   map[string]map[string][]grid.Interval{"aud1": {"Lundi": {{Start: 0, End: 4}}}},
		FixedSlots:          map[string]prep.FixedSlot{},
	}
}

func defaultTestOptions() Options {
	opts := DefaultOptions()
	opts.MaxConsecutiveBlocks = 10
	opts.LateStartThreshold = 100
	return opts
}

func TestSolveExtractsAssignmentFromFeasibleSolution(t *testing.T) {
	data := minimalData()
	backend := &fakeBackend{
		status: StatusFeasible,
		truthy: map[string]bool{
			"start[c1,0]": true,
			"y[c1,r1]":    true,
			"z[c1,0]":     true,
		},
	}

	result, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.NoError(t, err)
	require.Equal(t, StatusFeasible, result.Status)

	a, ok := result.Assignments["c1"]
	require.True(t, ok)
	assert.Equal(t, "Lundi", a.Day)
	assert.Equal(t, 0, a.Offset)
	assert.Equal(t, "r1", a.RoomID)
	assert.Equal(t, "t1", a.TeacherID)
	assert.True(t, result.Diagnostics.Empty())
	assert.Greater(t, backend.varCount, 0)
	assert.Greater(t, len(backend.constraints), 0)
}

func TestSolveReportsInfeasibleWithOverCommittedAudiences(t *testing.T) {
	data := minimalData()
	data.Courses = append(data.Courses, prep.CourseDemand{
		CID: "c2", Title: "Algo TD", Type: models.CourseTypeTutorial,
		AudienceType: models.AudienceTypePromotion, AudienceID: "aud1",
		DurationSlots: 3, EligibleTeacherIdx: []int{0},
	})

	backend := &fakeBackend{status: StatusInfeasible}
	result, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, result.Status)
	assert.Contains(t, result.Diagnostics.OverCommittedAudiences, "aud1")
}

func TestSolveShortCircuitsOnPreflightFailure(t *testing.T) {
	data := minimalData()
	data.Courses[0].EligibleTeacherIdx = nil

	backend := &fakeBackend{status: StatusOptimal, truthy: map[string]bool{}}
	result, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.Error(t, err)
	require.Nil(t, result)
	assert.Equal(t, 0, backend.varCount)
}

func TestPreflightFlagsEmptyRoomAndTeacherSets(t *testing.T) {
	data := minimalData()
	data.Rooms = []prep.RoomInfo{{ID: "r1", Name: "A101", Capacity: 10}}
	data.Courses[0].EligibleTeacherIdx = nil

	diag := Preflight(data)
	assert.Contains(t, diag.NoEligibleRoomCourses, "c1")
	assert.Contains(t, diag.EmptyEligibleTeachers, "c1")
}

// S1: a minimal single-course solve posts exactly-one bounds ([1,1]) on
// the structural start, room and teacher constraints.
func TestSolvePostsExactlyOneBoundsForStartRoomAndTeacher(t *testing.T) {
	data := minimalData()
	backend := &fakeBackend{
		status: StatusFeasible,
		truthy: map[string]bool{"start[c1,0]": true, "y[c1,r1]": true, "z[c1,0]": true},
	}

	_, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.NoError(t, err)

	startStructural := backend.constraintsExactly("start[c1,0]", "start[c1,1]", "start[c1,2]")
	require.Len(t, startStructural, 1)
	assert.Equal(t, int64(1), startStructural[0].lowerBound)
	assert.Equal(t, int64(1), startStructural[0].upperBound)
	for _, name := range []string{"start[c1,0]", "start[c1,1]", "start[c1,2]"} {
		coeff, ok := startStructural[0].coeffFor(name)
		require.True(t, ok)
		assert.Equal(t, int64(1), coeff)
	}

	roomStructural := backend.constraintsExactly("y[c1,r1]")
	require.Len(t, roomStructural, 1)
	assert.Equal(t, int64(1), roomStructural[0].lowerBound)
	assert.Equal(t, int64(1), roomStructural[0].upperBound)

	teacherStructural := backend.constraintsExactly("z[c1,0]")
	require.Len(t, teacherStructural, 1)
	assert.Equal(t, int64(1), teacherStructural[0].lowerBound)
	assert.Equal(t, int64(1), teacherStructural[0].upperBound)
}

// S2: when one of two rooms is too small for the audience, the smaller
// room never gets a decision variable at all and the structural room
// constraint is posted over the larger room alone.
func TestCapacityFiltersIneligibleRoomFromStructuralConstraint(t *testing.T) {
	data := minimalData()
	data.Rooms = []prep.RoomInfo{
		{ID: "rA", Name: "Room A", Capacity: 20},
		{ID: "rB", Name: "Room B", Capacity: 40},
	}
	data.AudienceSize["aud1"] = 30
	data.RoomAvailability = map[string]map[string][]grid.Interval{
		"rA": {"Lundi": {{Start: 0, End: 4}}},
		"rB": {"Lundi": {{Start: 0, End: 4}}},
	}

	backend := &fakeBackend{
		status: StatusFeasible,
		truthy: map[string]bool{"start[c1,0]": true, "y[c1,rB]": true, "z[c1,0]": true},
	}

	result, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.NoError(t, err)

	roomStructural := backend.constraintsExactly("y[c1,rB]")
	require.Len(t, roomStructural, 1)
	assert.Equal(t, int64(1), roomStructural[0].lowerBound)
	assert.Equal(t, int64(1), roomStructural[0].upperBound)

	assert.Empty(t, backend.constraintsContainingAll("y[c1,rA]"),
		"room A is too small for the audience and must never get a posted term")

	a := result.Assignments["c1"]
	assert.Equal(t, "rB", a.RoomID)
}

// S3: a teacher unavailable Monday 08:00-10:00 (offsets 0-3 of an 8-slot
// day) excludes those starts via an occ+z <=1 constraint at each
// blocked offset, and leaves the free offsets unconstrained.
func TestTeacherUnavailabilityBlocksMorningStarts(t *testing.T) {
	data := minimalData()
	data.Offsets = 8
	data.TeacherAvailability = map[int]map[string][]grid.Interval{
		0: {"Lundi": {{Start: 4, End: 8}}},
	}
	data.RoomAvailability = map[string]map[string][]grid.Interval{"r1": {"Lundi": {{Start: 0, End: 8}}}}
	data.GroupAvailability = map[string]map[string][]grid.Interval{"aud1": {"Lundi": {{Start: 0, End: 8}}}}

	backend := &fakeBackend{
		status: StatusFeasible,
		truthy: map[string]bool{"start[c1,4]": true, "y[c1,r1]": true, "z[c1,0]": true},
	}

	_, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.NoError(t, err)

	for offset := 0; offset < 4; offset++ {
		name := fmt.Sprintf("occ[c1,%d]", offset)
		matches := backend.constraintsExactly(name, "z[c1,0]")
		require.Lenf(t, matches, 1, "expected a teacher-unavailability constraint at offset %d", offset)
		assert.Equal(t, int64(0), matches[0].lowerBound)
		assert.Equal(t, int64(1), matches[0].upperBound)
	}
	for offset := 4; offset < 8; offset++ {
		name := fmt.Sprintf("occ[c1,%d]", offset)
		assert.Empty(t, backend.constraintsExactly(name, "z[c1,0]"),
			"offset %d falls in the teacher's free window and must not be blocked", offset)
	}
}

// S4: a Lecture and Tutorial sharing a title get an ordering constraint
// requiring the Tutorial to start no earlier than the Lecture's start
// plus its duration.
func TestOrderingPostsLectureBeforeTutorialGap(t *testing.T) {
	data := minimalData()
	data.Offsets = 8
	data.Courses = []prep.CourseDemand{
		{CID: "lec", Title: "Algo", Type: models.CourseTypeLecture,
			AudienceType: models.AudienceTypePromotion, AudienceID: "aud1",
			DurationSlots: 2, EligibleTeacherIdx: []int{0}},
		{CID: "td", Title: "Algo", Type: models.CourseTypeTutorial,
			AudienceType: models.AudienceTypePromotion, AudienceID: "aud1",
			DurationSlots: 2, EligibleTeacherIdx: []int{0}},
	}
	data.RoomAvailability = map[string]map[string][]grid.Interval{"r1": {"Lundi": {{Start: 0, End: 8}}}}
	data.GroupAvailability = map[string]map[string][]grid.Interval{"aud1": {"Lundi": {{Start: 0, End: 8}}}}
	data.TeacherAvailability = map[int]map[string][]grid.Interval{0: {"Lundi": {{Start: 0, End: 8}}}}

	backend := &fakeBackend{
		status: StatusFeasible,
		truthy: map[string]bool{
			"start[lec,0]": true, "start[td,2]": true,
			"y[lec,r1]": true, "y[td,r1]": true,
			"z[lec,0]": true, "z[td,0]": true,
		},
	}

	_, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.NoError(t, err)

	ordering := backend.findConstraint(-InfBound, -2, "start[lec,0]", "start[td,2]")
	require.NotNil(t, ordering, "expected a lecture-before-tutorial ordering constraint")

	for offset := 0; offset <= 6; offset++ {
		lecCoeff, ok := ordering.coeffFor(fmt.Sprintf("start[lec,%d]", offset))
		require.True(t, ok)
		assert.Equal(t, int64(offset), lecCoeff)

		tdCoeff, ok := ordering.coeffFor(fmt.Sprintf("start[td,%d]", offset))
		require.True(t, ok)
		assert.Equal(t, int64(-offset), tdCoeff)
	}
}

// S6: two courses for the same audience both touching the midday pause
// window get a single <=1 sum constraint over their midday occupancy.
func TestMiddayPauseLimitsOccupancyAcrossAudienceCourses(t *testing.T) {
	data := minimalData()
	data.Offsets = 8
	data.MiddayWindow = []int{3, 4}
	data.Courses = []prep.CourseDemand{
		{CID: "c1", Title: "Algo", Type: models.CourseTypeLecture,
			AudienceType: models.AudienceTypePromotion, AudienceID: "aud1",
			DurationSlots: 2, EligibleTeacherIdx: []int{0}},
		{CID: "c2", Title: "Proba", Type: models.CourseTypeLecture,
			AudienceType: models.AudienceTypePromotion, AudienceID: "aud1",
			DurationSlots: 2, EligibleTeacherIdx: []int{0}},
	}
	data.RoomAvailability = map[string]map[string][]grid.Interval{"r1": {"Lundi": {{Start: 0, End: 8}}}}
	data.GroupAvailability = map[string]map[string][]grid.Interval{"aud1": {"Lundi": {{Start: 0, End: 8}}}}
	data.TeacherAvailability = map[int]map[string][]grid.Interval{0: {"Lundi": {{Start: 0, End: 8}}}}

	backend := &fakeBackend{
		status: StatusFeasible,
		truthy: map[string]bool{
			"start[c1,0]": true, "start[c2,4]": true,
			"y[c1,r1]": true, "y[c2,r1]": true,
			"z[c1,0]": true, "z[c2,0]": true,
		},
	}

	_, err := Solve(context.Background(), data, defaultTestOptions(), backend)
	require.NoError(t, err)

	pause := backend.findConstraint(0, 1, "occ[c1,3]", "occ[c1,4]", "occ[c2,3]", "occ[c2,4]")
	require.NotNil(t, pause, "expected a midday pause constraint spanning both courses' occupancy")
	assert.Len(t, pause.terms, 4)
	for _, name := range []string{"occ[c1,3]", "occ[c1,4]", "occ[c2,3]", "occ[c2,4]"} {
		coeff, ok := pause.coeffFor(name)
		require.True(t, ok)
		assert.Equal(t, int64(1), coeff)
	}
}
