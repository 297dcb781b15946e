package solver

import (
	"context"

	appErrors "github.com/noah-isme/sma-adp-api/pkg/errors"

	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/prep"
)

// Solve runs the full Timetable Solver pipeline against data: preflight
// diagnostics, CP model construction, and a backend solve attempt under
// opts' time budget and worker count. A non-empty preflight result short
// circuits before the backend is ever invoked, per §4.5's fail-fast
// model-build error.
func Solve(ctx context.Context, data *prep.ModelData, opts Options, backend Backend) (*Result, error) {
	if diag := Preflight(data); !diag.Empty() {
		return nil, appErrors.Clone(appErrors.ErrModelBuild, modelBuildMessage(diag))
	}

	b := newBuilder(backend, data, opts)
	if err := b.build(); err != nil {
		return nil, err
	}

	status, solution, err := backend.Solve(ctx, BackendOptions{
		TimeBudgetSeconds: opts.TimeBudgetSeconds,
		Workers:           opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Status: status}
	switch status {
	case StatusOptimal, StatusFeasible:
		result.Assignments = b.extractAssignments(solution)
		result.Diagnostics = softDiagnostics(b, result.Assignments, opts)
	case StatusInfeasible:
		result.Diagnostics = Diagnostics{OverCommittedAudiences: overCommittedAudiences(data)}
	}
	return result, nil
}

// SolveWithOrTools is a convenience wrapper for callers that do not need
// to substitute a fake Backend, such as the CLI driver.
func SolveWithOrTools(ctx context.Context, data *prep.ModelData, opts Options) (*Result, error) {
	return Solve(ctx, data, opts, NewOrToolsBackend())
}

func (b *builder) extractAssignments(solution Solution) map[string]Assignment {
	assignments := make(map[string]Assignment, len(b.data.Courses))
	for _, c := range b.data.Courses {
		a := Assignment{CID: c.CID}

		for t, v := range b.start[c.CID] {
			if solution.BooleanValue(v) {
				day, offset := b.grid.FromGlobal(t)
				if name, err := grid.IndexToDayOfWeek(day); err == nil {
					a.Day = name
				}
				a.Offset = offset
				break
			}
		}

		for roomID, v := range b.y[c.CID] {
			if solution.BooleanValue(v) {
				a.RoomID = roomID
				for _, r := range b.data.Rooms {
					if r.ID == roomID {
						a.RoomName = r.Name
						break
					}
				}
				break
			}
		}

		for idx, v := range b.z[c.CID] {
			if solution.BooleanValue(v) {
				a.TeacherID = b.data.Teachers[idx].ID
				a.TeacherDisplayName = b.data.Teachers[idx].DisplayName
				break
			}
		}

		assignments[c.CID] = a
	}
	return assignments
}

// softDiagnostics recomputes the soft-penalty violation counts directly
// from the concrete assignment, independent of the auxiliary variables
// the objective used to steer the search.
func softDiagnostics(b *builder, assignments map[string]Assignment, opts Options) Diagnostics {
	var diag Diagnostics

	occupied := make(map[string]map[int]bool, len(assignments))
	for cid, a := range assignments {
		dayIdx, err := grid.DayOfWeekToIndex(a.Day)
		if err != nil {
			continue
		}
		slots := make(map[int]bool)
		start := b.grid.ToGlobal(dayIdx, a.Offset)
		for i := 0; i < b.courseDuration(cid); i++ {
			slots[start+i] = true
		}
		occupied[cid] = slots

		if forbidden, ok := opts.ForbiddenStarts[cid]; ok {
			for _, t := range forbidden {
				if t == start {
					diag.ViolationsForbiddenStart++
				}
			}
		}
		if a.Offset > opts.LateStartThreshold {
			diag.ViolationsLateFinish++
		}
	}

	window := opts.MaxConsecutiveBlocks + 1
	if window >= 1 && window <= b.data.Offsets {
		byAudience := make(map[string][]string)
		for _, c := range b.data.Courses {
			byAudience[c.AudienceID] = append(byAudience[c.AudienceID], c.CID)
		}
		for _, cids := range byAudience {
			for d := 0; d < b.data.Days; d++ {
				for o := 0; o+window <= b.data.Offsets; o++ {
					full := true
					for off := o; off < o+window && full; off++ {
						t := b.grid.ToGlobal(d, off)
						slotOccupied := false
						for _, cid := range cids {
							if occupied[cid][t] {
								slotOccupied = true
								break
							}
						}
						full = slotOccupied
					}
					if full {
						diag.ViolationsOverConsec++
					}
				}
			}
		}
	}

	return diag
}

func (b *builder) courseDuration(cid string) int {
	for _, c := range b.data.Courses {
		if c.CID == cid {
			return c.DurationSlots
		}
	}
	return 0
}
