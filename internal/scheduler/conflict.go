package scheduler

import (
	"fmt"
	"strings"
	"time"
)

var clockLayouts = []string{"15:04", "15:04:05"}

// ParseClock converts a wall clock time such as "09:30" into the offset from
// midnight.
func ParseClock(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("scheduler: invalid clock time %q", value)
}

// Interval is the half-open span [Start, End) within one day.
type Interval struct {
	Start time.Duration
	End   time.Duration
}

// ParseInterval parses start and end clock times.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}

// Empty reports whether the interval covers no time.
func (i Interval) Empty() bool {
	return i.End <= i.Start
}

// Overlaps reports whether the two intervals share any instant. Intervals
// that merely touch do not overlap, and an empty interval overlaps nothing.
func (i Interval) Overlaps(other Interval) bool {
	if i.Empty() || other.Empty() {
		return false
	}
	return i.Start < other.End && i.End > other.Start
}

// Slot is a blocking occupation of a resource on a calendar date. Date is
// compared as an opaque string.
type Slot struct {
	ID       string
	Resource string
	Date     string
	Interval
}

// Conflict names an existing slot that the candidate would overlap.
type Conflict struct {
	WithSlotID string
	Resource   string
	Date       string
	Existing   Interval
}

// DetectConflicts returns every existing slot on the candidate's resource and
// date that overlaps it, in input order.
func DetectConflicts(existing []Slot, candidate Slot) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if slot.ID != "" && slot.ID == candidate.ID {
			continue
		}
		if slot.Resource != candidate.Resource || slot.Date != candidate.Date {
			continue
		}
		if !slot.Overlaps(candidate.Interval) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithSlotID: slot.ID,
			Resource:   slot.Resource,
			Date:       slot.Date,
			Existing:   slot.Interval,
		})
	}
	return conflicts
}
