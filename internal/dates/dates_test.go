package dates

import (
	"errors"
	"math"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := Parse(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestAddOffsetDays_BusinessSkipsWeekend(t *testing.T) {
	// Friday + 1 business day lands on Monday.
	got := AddOffsetDays(mustDate(t, "2024-01-05"), 1, true)
	if want := mustDate(t, "2024-01-08"); !got.Equal(want) {
		t.Fatalf("AddOffsetDays(Fri, 1, true) = %s, want %s", Format(got), Format(want))
	}
}

func TestAddOffsetDays_CalendarNeverSkips(t *testing.T) {
	got := AddOffsetDays(mustDate(t, "2024-01-05"), 1, false)
	if want := mustDate(t, "2024-01-06"); !got.Equal(want) {
		t.Fatalf("AddOffsetDays(Fri, 1, false) = %s, want %s", Format(got), Format(want))
	}
}

func TestAddOffsetDays_ThreeBusinessDaysFromFriday(t *testing.T) {
	got := AddOffsetDays(mustDate(t, "2024-03-01"), 3, true)
	if want := mustDate(t, "2024-03-06"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", Format(got), Format(want))
	}
}

func TestAddOffsetDays_BusinessProperty(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	for day := 0; day < 366; day++ {
		base := start.AddDate(0, 0, day)
		for n := 1; n <= 15; n++ {
			got := AddOffsetDays(base, n, true)
			if IsWeekend(got) {
				t.Fatalf("AddOffsetDays(%s, %d) = %s is a weekend", Format(base), n, Format(got))
			}
			crossed := 0
			for d := base.AddDate(0, 0, 1); !d.After(got); d = d.AddDate(0, 0, 1) {
				if !IsWeekend(d) {
					crossed++
				}
			}
			if crossed != n {
				t.Fatalf("AddOffsetDays(%s, %d) = %s crossed %d weekdays", Format(base), n, Format(got), crossed)
			}
		}
	}
}

func TestAddOffsetDays_CalendarProperty(t *testing.T) {
	base := mustDate(t, "2024-02-26")
	for n := -40; n <= 40; n++ {
		got := AddOffsetDays(base, n, false)
		if DaysBetween(base, got) != n {
			t.Fatalf("calendar offset %d moved %d days", n, DaysBetween(base, got))
		}
	}
}

func TestAddOffsetDays_ZeroAndNegative(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		count    int
		business bool
		want     string
	}{
		{"zero on weekday", "2024-03-06", 0, true, "2024-03-06"},
		{"zero on saturday stays", "2024-03-09", 0, true, "2024-03-09"},
		{"minus one from monday", "2024-03-11", -1, true, "2024-03-08"},
		{"minus three from wednesday", "2024-03-06", -3, true, "2024-03-01"},
		{"minus one from sunday", "2024-03-10", -1, true, "2024-03-08"},
		{"minus five calendar", "2024-04-01", -5, false, "2024-03-27"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddOffsetDays(mustDate(t, tt.base), tt.count, tt.business)
			if Format(got) != tt.want {
				t.Errorf("AddOffsetDays(%s, %d, %v) = %s, want %s",
					tt.base, tt.count, tt.business, Format(got), tt.want)
			}
		})
	}
}

func TestNextWeekday(t *testing.T) {
	tests := map[string]string{
		"2024-03-08": "2024-03-08", // Fri
		"2024-03-09": "2024-03-11", // Sat
		"2024-03-10": "2024-03-11", // Sun
		"2024-03-11": "2024-03-11", // Mon
	}
	for in, want := range tests {
		if got := Format(NextWeekday(mustDate(t, in))); got != want {
			t.Errorf("NextWeekday(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestParse_RejectsNonISO(t *testing.T) {
	for _, in := range []string{"03/01/2024", "2024-3-1", "tomorrow", "2024-02-30", ""} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Parse(%q) error = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestParseOptional(t *testing.T) {
	for _, in := range []string{"", "TBD", " tbd ", "null"} {
		got, err := ParseOptional(in)
		if err != nil || got != nil {
			t.Errorf("ParseOptional(%q) = %v, %v; want nil, nil", in, got, err)
		}
	}
	got, err := ParseOptional("2024-03-01")
	if err != nil || got == nil || Format(*got) != "2024-03-01" {
		t.Fatalf("ParseOptional(2024-03-01) = %v, %v", got, err)
	}
}

func TestOffsetFromFloat(t *testing.T) {
	bad := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 2.5, 1e9}
	for _, f := range bad {
		if _, err := OffsetFromFloat(f); !errors.Is(err, ErrInvalidOffset) {
			t.Errorf("OffsetFromFloat(%v) error = %v, want ErrInvalidOffset", f, err)
		}
	}
	n, err := OffsetFromFloat(-5)
	if err != nil || n != -5 {
		t.Fatalf("OffsetFromFloat(-5) = %d, %v", n, err)
	}
}

func TestParseOffset(t *testing.T) {
	for _, in := range []string{"NaN", "inf", "abc", "", "1.5"} {
		if _, err := ParseOffset(in); !errors.Is(err, ErrInvalidOffset) {
			t.Errorf("ParseOffset(%q) error = %v, want ErrInvalidOffset", in, err)
		}
	}
	if n, err := ParseOffset(" 17 "); err != nil || n != 17 {
		t.Fatalf("ParseOffset(17) = %d, %v", n, err)
	}
}

func TestDaysBetween(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	from := time.Date(2024, 3, 1, 23, 30, 0, 0, loc)
	to := mustDate(t, "2024-03-04")
	if got := DaysBetween(from, to); got != 3 {
		t.Fatalf("DaysBetween = %d, want 3", got)
	}
	if got := DaysBetween(to, from); got != -3 {
		t.Fatalf("DaysBetween reversed = %d, want -3", got)
	}
}

func TestDaysBetweenBeyondDurationRange(t *testing.T) {
	from, to := mustDate(t, "2024-01-01"), mustDate(t, "2999-01-01")
	if got := DaysBetween(from, to); got != 356112 {
		t.Fatalf("DaysBetween = %d, want 356112", got)
	}
	if got := DaysBetween(to, from); got != -356112 {
		t.Fatalf("DaysBetween reversed = %d, want -356112", got)
	}
}
