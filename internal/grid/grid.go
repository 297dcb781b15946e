// Package grid implements the canonical discretization of a working week
// into half-hour slots and the conversions between (day, offset), global
// slot index, and clock time.
package grid

import (
	"fmt"
	"strings"
)

// DefaultDays is the number of working days in a week grid.
const DefaultDays = 5

// DefaultOffsets is the number of half-hour offsets per day, covering
// 08:00-18:00.
const DefaultOffsets = 20

// StartHour is the clock hour the first offset of a day maps to.
const StartHour = 8

// Config describes the shape of a week grid: D working days of S
// half-hour offsets each, plus the midday-pause window shared by every
// day.
type Config struct {
	Days         int
	Offsets      int
	MiddayWindow []int // offsets, e.g. {8,9,10,11} for 12:00-14:00
}

// DefaultConfig returns the standard 5x20 grid with a 12:00-14:00 pause.
func DefaultConfig() Config {
	return Config{
		Days:         DefaultDays,
		Offsets:      DefaultOffsets,
		MiddayWindow: []int{8, 9, 10, 11},
	}
}

// Interval is a half-open offset range [Start, End) within a single day.
type Interval struct {
	Start int
	End   int
}

var dayIndex = map[string]int{
	"Lundi":    0,
	"Mardi":    1,
	"Mercredi": 2,
	"Jeudi":    3,
	"Vendredi": 4,
}

var dayNames = []string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi"}

// ErrOutOfRange is returned by TimeToOffset when the clock time falls
// outside the configured working hours or is not half-hour aligned.
type ErrOutOfRange struct {
	Clock string
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("grid: time %q is out of range or not half-hour aligned", e.Clock)
}

// ErrUnknownDay is returned by DayOfWeekToIndex for unrecognized day names.
type ErrUnknownDay struct {
	Day string
}

func (e *ErrUnknownDay) Error() string {
	return fmt.Sprintf("grid: unknown day of week %q", e.Day)
}

// ToGlobal maps a (day, offset) pair to a single global slot index.
func (c Config) ToGlobal(d, o int) int {
	return d*c.Offsets + o
}

// FromGlobal inverts ToGlobal.
func (c Config) FromGlobal(t int) (day, offset int) {
	return t / c.Offsets, t % c.Offsets
}

// TimeToOffset converts an "hh:mm" clock time to a half-hour offset index.
// It fails with ErrOutOfRange if the time lies outside the grid's working
// hours or does not land on a half-hour boundary.
func TimeToOffset(clock string) (int, error) {
	h, m, err := parseClock(clock)
	if err != nil {
		return 0, &ErrOutOfRange{Clock: clock}
	}
	if m != 0 && m != 30 {
		return 0, &ErrOutOfRange{Clock: clock}
	}
	o := 2*(h-StartHour) + boolToInt(m >= 30)
	if o < 0 || o > DefaultOffsets {
		return 0, &ErrOutOfRange{Clock: clock}
	}
	return o, nil
}

// OffsetToTime is the inverse of TimeToOffset; it is total on 0..S.
func OffsetToTime(o int) string {
	h := StartHour + o/2
	m := 0
	if o%2 == 1 {
		m = 30
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// DayOfWeekToIndex maps a (case-sensitive) French day name to its 0-based
// index within the working week, failing with ErrUnknownDay otherwise.
func DayOfWeekToIndex(day string) (int, error) {
	idx, ok := dayIndex[day]
	if !ok {
		return 0, &ErrUnknownDay{Day: day}
	}
	return idx, nil
}

// IndexToDayOfWeek is the inverse of DayOfWeekToIndex.
func IndexToDayOfWeek(idx int) (string, error) {
	if idx < 0 || idx >= len(dayNames) {
		return "", &ErrUnknownDay{Day: fmt.Sprintf("index %d", idx)}
	}
	return dayNames[idx], nil
}

func parseClock(clock string) (hour, minute int, err error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed clock %q", clock)
	}
	if _, err := fmt.Sscanf(parts[0], "%d", &hour); err != nil {
		return 0, 0, err
	}
	if _, err := fmt.Sscanf(parts[1], "%d", &minute); err != nil {
		return 0, 0, err
	}
	return hour, minute, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
