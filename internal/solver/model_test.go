package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-adp-api/internal/grid"
)

func TestOccupancyWindowStartsStaysWithinDay(t *testing.T) {
	cfg := grid.Config{Days: 2, Offsets: 4}

	// Slot 5 is day 1, offset 1; a 2-block course can only have started at
	// offset 0 or 1 of that same day, never crossing back into day 0.
	starts := occupancyWindowStarts(cfg, 2, 5)
	assert.ElementsMatch(t, []int{4, 5}, starts)
}

func TestOccupancyWindowStartsClampsAtDayStart(t *testing.T) {
	cfg := grid.Config{Days: 1, Offsets: 4}

	starts := occupancyWindowStarts(cfg, 3, 0)
	assert.ElementsMatch(t, []int{0}, starts)
}

func TestAudiencesConflictAcrossHierarchy(t *testing.T) {
	b := &builder{data: minimalData()}
	b.data.GroupParent = map[string]string{"group-1": "promo-1"}
	b.data.SubGroupParent = map[string]string{"sub-1": "group-1"}

	assert.True(t, b.audiencesConflict("promo-1", "promo-1"))
	assert.True(t, b.audiencesConflict("promo-1", "group-1"))
	assert.True(t, b.audiencesConflict("group-1", "sub-1"))
	assert.True(t, b.audiencesConflict("promo-1", "sub-1"))
	assert.False(t, b.audiencesConflict("promo-1", "promo-2"))
}

func TestBlockedOffsetsInvertsFreeRanges(t *testing.T) {
	free := []grid.Interval{{Start: 0, End: 2}, {Start: 3, End: 4}}
	blocked := blockedOffsets(free, 4)
	assert.Equal(t, []int{2}, blocked)
}
