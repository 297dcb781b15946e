// Package validator implements the Constraint Validator: a pure,
// read-only query layer over a snapshot of the Constraint Store loaded
// once for a given week.
package validator

import (
	"context"
	"fmt"
	"sort"

	"github.com/noah-isme/sma-adp-api/internal/grid"
	"github.com/noah-isme/sma-adp-api/internal/store"
)

// SubjectKind mirrors the store.Kind values relevant to availability
// queries (teacher, room, or group/audience).
type SubjectKind string

const (
	SubjectTeacher SubjectKind = "teacher"
	SubjectRoom    SubjectKind = "room"
	SubjectGroup   SubjectKind = "group"
)

func (k SubjectKind) storeKind() store.Kind {
	switch k {
	case SubjectTeacher:
		return store.KindTeacherUnavailable
	case SubjectRoom:
		return store.KindRoomUnavailable
	default:
		return store.KindGroupUnavailable
	}
}

// Outcome is the result of a single availability check.
type Outcome struct {
	Available bool
	Priority  store.Priority
	Reason    string
}

type entry struct {
	interval grid.Interval
	priority store.Priority
	reason   string
}

// Validator answers availability queries against an immutable in-memory
// snapshot built once per solver run. It never mutates the Store and
// never caches across weeks — construct a fresh Validator per week.
type Validator struct {
	byKindSubjectDay map[store.Kind]map[string]map[string][]entry
}

// StoreReader is the subset of *store.Store the Validator needs, kept as
// an interface so tests can substitute an in-memory fake.
type StoreReader interface {
	List(ctx context.Context, kind store.Kind, filter store.Filter) ([]store.Record, error)
}

// Load performs the bulk load from the Store for a given week and builds
// the in-memory index.
func Load(ctx context.Context, s StoreReader, week int) (*Validator, error) {
	v := &Validator{byKindSubjectDay: make(map[store.Kind]map[string]map[string][]entry)}

	kinds := []store.Kind{store.KindTeacherUnavailable, store.KindRoomUnavailable, store.KindGroupUnavailable}
	for _, kind := range kinds {
		records, err := s.List(ctx, kind, store.Filter{Week: &week})
		if err != nil {
			return nil, fmt.Errorf("validator: load %s records: %w", kind, err)
		}
		for _, r := range records {
			v.index(kind, r)
		}
	}
	return v, nil
}

func (v *Validator) index(kind store.Kind, r store.Record) {
	bySubject, ok := v.byKindSubjectDay[kind]
	if !ok {
		bySubject = make(map[string]map[string][]entry)
		v.byKindSubjectDay[kind] = bySubject
	}
	byDay, ok := bySubject[r.SubjectID]
	if !ok {
		byDay = make(map[string][]entry)
		bySubject[r.SubjectID] = byDay
	}
	byDay[r.DayOfWeek] = append(byDay[r.DayOfWeek], entry{
		interval: grid.Interval{Start: r.StartOffset, End: r.EndOffset},
		priority: r.Priority,
		reason:   r.Reason,
	})
}

// CheckAvailability returns Available if no stored record of the matching
// subject overlaps the proposed range; otherwise Blocked with the
// maximum priority among overlaps and its reason (ties broken by
// earliest start).
func (v *Validator) CheckAvailability(kind SubjectKind, subjectID string, day string, start, end int) Outcome {
	proposed := grid.Interval{Start: start, End: end}
	entries := v.entriesFor(kind, subjectID, day)

	var best *entry
	for i := range entries {
		e := &entries[i]
		if !grid.Overlaps(proposed, e.interval) {
			continue
		}
		switch {
		case best == nil:
			best = e
		case rank(e.priority) > rank(best.priority):
			best = e
		case rank(e.priority) == rank(best.priority) && e.interval.Start < best.interval.Start:
			best = e
		}
	}

	if best == nil {
		return Outcome{Available: true}
	}
	return Outcome{Available: false, Priority: best.priority, Reason: best.reason}
}

// BlockedRanges returns only the hard-priority overlapping ranges for a
// subject, grouped by day — used by the solver to hard-forbid offsets.
func (v *Validator) BlockedRanges(kind SubjectKind, subjectID string) map[string][]grid.Interval {
	out := make(map[string][]grid.Interval)
	bySubject, ok := v.byKindSubjectDay[kind.storeKind()]
	if !ok {
		return out
	}
	byDay, ok := bySubject[subjectID]
	if !ok {
		return out
	}
	for day, entries := range byDay {
		var ranges []grid.Interval
		for _, e := range entries {
			if e.priority == store.PriorityHard {
				ranges = append(ranges, e.interval)
			}
		}
		if len(ranges) > 0 {
			sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })
			out[day] = ranges
		}
	}
	return out
}

func rank(p store.Priority) int {
	switch p {
	case store.PriorityHard:
		return 2
	case store.PriorityMedium:
		return 1
	default:
		return 0
	}
}

func (v *Validator) entriesFor(kind SubjectKind, subjectID, day string) []entry {
	bySubject, ok := v.byKindSubjectDay[kind.storeKind()]
	if !ok {
		return nil
	}
	byDay, ok := bySubject[subjectID]
	if !ok {
		return nil
	}
	return byDay[day]
}
