package grid

import "testing"

func TestToGlobalFromGlobalRoundtrip(t *testing.T) {
	cfg := DefaultConfig()
	for d := 0; d < cfg.Days; d++ {
		for o := 0; o < cfg.Offsets; o++ {
			got := cfg.ToGlobal(d, o)
			gotD, gotO := cfg.FromGlobal(got)
			if gotD != d || gotO != o {
				t.Fatalf("roundtrip(%d,%d) = (%d,%d)", d, o, gotD, gotO)
			}
		}
	}
}

func TestTimeToOffsetRoundtrip(t *testing.T) {
	cases := []string{"08:00", "08:30", "12:00", "17:30", "18:00"}
	for _, clock := range cases {
		o, err := TimeToOffset(clock)
		if err != nil {
			t.Fatalf("TimeToOffset(%q) error: %v", clock, err)
		}
		back := OffsetToTime(o)
		if back != clock {
			t.Fatalf("roundtrip(%q) = %q", clock, back)
		}
	}
}

func TestTimeToOffsetOutOfRange(t *testing.T) {
	cases := []string{"07:30", "18:30", "12:15", "not-a-time"}
	for _, clock := range cases {
		if _, err := TimeToOffset(clock); err == nil {
			t.Fatalf("expected error for %q", clock)
		}
	}
}

func TestOverlaps(t *testing.T) {
	a := Interval{Start: 2, End: 6}
	cases := []struct {
		b    Interval
		want bool
	}{
		{Interval{0, 2}, false},
		{Interval{6, 8}, false},
		{Interval{1, 3}, true},
		{Interval{5, 9}, true},
		{Interval{3, 4}, true},
		{Interval{2, 6}, true},
	}
	for _, c := range cases {
		if got := Overlaps(a, c.b); got != c.want {
			t.Fatalf("Overlaps(%v, %v) = %v, want %v", a, c.b, got, c.want)
		}
	}
}

func TestDayOfWeekToIndex(t *testing.T) {
	days := []string{"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi"}
	for i, d := range days {
		idx, err := DayOfWeekToIndex(d)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", d, err)
		}
		if idx != i {
			t.Fatalf("DayOfWeekToIndex(%q) = %d, want %d", d, idx, i)
		}
	}
	if _, err := DayOfWeekToIndex("monday"); err == nil {
		t.Fatal("expected error for lowercase/english day name")
	}
	if _, err := DayOfWeekToIndex("Samedi"); err == nil {
		t.Fatal("expected error for weekend day")
	}
}
