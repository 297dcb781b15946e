package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-api/internal/store"
)

type fakeStoreReader struct {
	records map[store.Kind][]store.Record
}

func (f *fakeStoreReader) List(_ context.Context, kind store.Kind, _ store.Filter) ([]store.Record, error) {
	return f.records[kind], nil
}

func TestCheckAvailabilityNoOverlapReturnsAvailable(t *testing.T) {
	reader := &fakeStoreReader{records: map[store.Kind][]store.Record{
		store.KindTeacherUnavailable: {
			{SubjectID: "t1", DayOfWeek: "Lundi", StartOffset: 0, EndOffset: 4, Priority: store.PriorityHard, Reason: "leave"},
		},
	}}
	v, err := Load(context.Background(), reader, 1)
	require.NoError(t, err)

	out := v.CheckAvailability(SubjectTeacher, "t1", "Lundi", 4, 6)
	require.True(t, out.Available)
}

func TestCheckAvailabilityOverlapReturnsBlocked(t *testing.T) {
	reader := &fakeStoreReader{records: map[store.Kind][]store.Record{
		store.KindTeacherUnavailable: {
			{SubjectID: "t1", DayOfWeek: "Lundi", StartOffset: 0, EndOffset: 4, Priority: store.PriorityHard, Reason: "leave"},
		},
	}}
	v, err := Load(context.Background(), reader, 1)
	require.NoError(t, err)

	out := v.CheckAvailability(SubjectTeacher, "t1", "Lundi", 2, 6)
	require.False(t, out.Available)
	require.Equal(t, store.PriorityHard, out.Priority)
	require.Equal(t, "leave", out.Reason)
}

func TestCheckAvailabilityReturnsMaxPriorityAmongOverlaps(t *testing.T) {
	reader := &fakeStoreReader{records: map[store.Kind][]store.Record{
		store.KindRoomUnavailable: {
			{SubjectID: "r1", DayOfWeek: "Lundi", StartOffset: 0, EndOffset: 4, Priority: store.PrioritySoft, Reason: "soft-block"},
			{SubjectID: "r1", DayOfWeek: "Lundi", StartOffset: 2, EndOffset: 6, Priority: store.PriorityHard, Reason: "hard-block"},
		},
	}}
	v, err := Load(context.Background(), reader, 1)
	require.NoError(t, err)

	out := v.CheckAvailability(SubjectRoom, "r1", "Lundi", 3, 5)
	require.False(t, out.Available)
	require.Equal(t, store.PriorityHard, out.Priority)
	require.Equal(t, "hard-block", out.Reason)
}

func TestCheckAvailabilityTiesBrokenByEarliestStart(t *testing.T) {
	reader := &fakeStoreReader{records: map[store.Kind][]store.Record{
		store.KindGroupUnavailable: {
			{SubjectID: "g1", DayOfWeek: "Lundi", StartOffset: 4, EndOffset: 8, Priority: store.PriorityHard, Reason: "later"},
			{SubjectID: "g1", DayOfWeek: "Lundi", StartOffset: 0, EndOffset: 6, Priority: store.PriorityHard, Reason: "earlier"},
		},
	}}
	v, err := Load(context.Background(), reader, 1)
	require.NoError(t, err)

	out := v.CheckAvailability(SubjectGroup, "g1", "Lundi", 5, 6)
	require.False(t, out.Available)
	require.Equal(t, "earlier", out.Reason)
}

func TestBlockedRangesOnlyIncludesHard(t *testing.T) {
	reader := &fakeStoreReader{records: map[store.Kind][]store.Record{
		store.KindTeacherUnavailable: {
			{SubjectID: "t1", DayOfWeek: "Lundi", StartOffset: 0, EndOffset: 4, Priority: store.PriorityHard},
			{SubjectID: "t1", DayOfWeek: "Lundi", StartOffset: 10, EndOffset: 12, Priority: store.PrioritySoft},
			{SubjectID: "t1", DayOfWeek: "Mardi", StartOffset: 2, EndOffset: 3, Priority: store.PriorityHard},
		},
	}}
	v, err := Load(context.Background(), reader, 1)
	require.NoError(t, err)

	ranges := v.BlockedRanges(SubjectTeacher, "t1")
	require.Len(t, ranges["Lundi"], 1)
	require.Equal(t, 0, ranges["Lundi"][0].Start)
	require.Len(t, ranges["Mardi"], 1)
}
