package tracker

import (
	"fmt"
	"time"

	"github.com/vincentbai/visittrace-agent/internal/models"
)

// DayComparison decides whether two instants fall on the "same day".
type DayComparison int

const (
	// DayOfMonth compares only the day of the month, so Jan 5 and Feb 5 are
	// the same day. This is the historical rule and the default.
	DayOfMonth DayComparison = iota
	// CalendarDate compares year, month and day.
	CalendarDate
)

func ParseDayComparison(s string) (DayComparison, error) {
	switch s {
	case "", "day_of_month":
		return DayOfMonth, nil
	case "calendar_date":
		return CalendarDate, nil
	default:
		return DayOfMonth, fmt.Errorf("unknown day comparison %q", s)
	}
}

func (d DayComparison) String() string {
	if d == CalendarDate {
		return "calendar_date"
	}
	return "day_of_month"
}

func (d DayComparison) sameDay(a, b time.Time) bool {
	if d == CalendarDate {
		ay, am, ad := a.Date()
		by, bm, bd := b.Date()
		return ay == by && am == bm && ad == bd
	}
	return a.Day() == b.Day()
}

// Policy is the visit dedup rule.
type Policy struct {
	Days DayComparison
}

// ShouldEmit reports whether a navigation with the given fresh auth state must
// produce an event. It emits when there is no previous record, when the auth
// state flipped in either direction, or when the day changed.
func (p Policy) ShouldEmit(previous models.VisitRecord, found bool, authenticated bool, now time.Time) bool {
	if !found {
		return true
	}
	if previous.HasAuthCookies != authenticated {
		return true
	}
	return !p.Days.sameDay(previous.LastVisit, now)
}
