package scheduler

import (
	"testing"
	"time"
)

func mustInterval(t *testing.T, start, end string) Interval {
	t.Helper()
	iv, err := ParseInterval(start, end)
	if err != nil {
		t.Fatalf("ParseInterval(%q, %q): %v", start, end, err)
	}
	return iv
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "09:30", want: 9*time.Hour + 30*time.Minute},
		{in: "9:30", want: 9*time.Hour + 30*time.Minute},
		{in: "23:59:59", want: 23*time.Hour + 59*time.Minute + 59*time.Second},
		{in: " 00:00 ", want: 0},
		{in: "25:00", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseClock(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseClock(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseClock(%q): expected %v, got %v (err %v)", tc.in, tc.want, got, err)
		}
	}
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name     string
		a, b     [2]string
		overlaps bool
	}{
		{name: "partial overlap", a: [2]string{"09:00", "10:00"}, b: [2]string{"09:30", "10:30"}, overlaps: true},
		{name: "containment", a: [2]string{"09:00", "12:00"}, b: [2]string{"10:00", "11:00"}, overlaps: true},
		{name: "identical", a: [2]string{"09:00", "10:00"}, b: [2]string{"09:00", "10:00"}, overlaps: true},
		{name: "touching end to start", a: [2]string{"09:00", "10:00"}, b: [2]string{"10:00", "11:00"}},
		{name: "disjoint", a: [2]string{"09:00", "10:00"}, b: [2]string{"13:00", "14:00"}},
		{name: "zero length inside", a: [2]string{"09:00", "10:00"}, b: [2]string{"09:30", "09:30"}},
		{name: "zero length against zero length", a: [2]string{"09:30", "09:30"}, b: [2]string{"09:30", "09:30"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := mustInterval(t, tc.a[0], tc.a[1])
			b := mustInterval(t, tc.b[0], tc.b[1])
			if got := a.Overlaps(b); got != tc.overlaps {
				t.Fatalf("a.Overlaps(b): expected %v, got %v", tc.overlaps, got)
			}
			if got := b.Overlaps(a); got != tc.overlaps {
				t.Fatalf("b.Overlaps(a): expected %v, got %v", tc.overlaps, got)
			}
		})
	}
}

func TestDetectConflicts(t *testing.T) {
	existing := []Slot{
		{ID: "BKG-1", Resource: "Room A", Date: "2024-05-01", Interval: mustInterval(t, "09:00", "10:00")},
		{ID: "BKG-2", Resource: "Room B", Date: "2024-05-01", Interval: mustInterval(t, "09:00", "10:00")},
		{ID: "BKG-3", Resource: "Room A", Date: "2024-05-02", Interval: mustInterval(t, "09:00", "10:00")},
		{ID: "BKG-4", Resource: "Room A", Date: "2024-05-01", Interval: mustInterval(t, "09:45", "11:00")},
	}

	t.Run("overlap on same resource and date produces conflicts", func(t *testing.T) {
		candidate := Slot{Resource: "Room A", Date: "2024-05-01", Interval: mustInterval(t, "09:30", "10:30")}
		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 2 || conflicts[0].WithSlotID != "BKG-1" || conflicts[1].WithSlotID != "BKG-4" {
			t.Fatalf("unexpected conflicts %#v", conflicts)
		}
	})

	t.Run("other resources and dates are ignored", func(t *testing.T) {
		candidate := Slot{Resource: "Room C", Date: "2024-05-01", Interval: mustInterval(t, "09:00", "10:00")}
		if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %#v", conflicts)
		}
	})

	t.Run("date comparison is exact", func(t *testing.T) {
		candidate := Slot{Resource: "Room A", Date: "2024-5-1", Interval: mustInterval(t, "09:00", "10:00")}
		if conflicts := DetectConflicts(existing, candidate); len(conflicts) != 0 {
			t.Fatalf("expected differently formatted date not to match, got %#v", conflicts)
		}
	})

	t.Run("slot does not conflict with itself", func(t *testing.T) {
		candidate := existing[0]
		conflicts := DetectConflicts(existing, candidate)
		if len(conflicts) != 1 || conflicts[0].WithSlotID != "BKG-4" {
			t.Fatalf("expected only BKG-4, got %#v", conflicts)
		}
	})
}
