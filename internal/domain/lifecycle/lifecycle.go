// Package lifecycle classifies events as open or closed from their response
// deadline.
package lifecycle

import (
	"slices"
	"strings"
	"time"

	"github.com/okian/avalia/internal/domain/model"
)

const endOfDayLayout = "2006-01-02T15:04:05"

// EffectiveDeadline returns the response deadline, falling back to the event date.
func EffectiveDeadline(e model.Event) string {
	if e.ResponseDeadline != "" {
		return e.ResponseDeadline
	}
	return e.Date
}

// ClosesAt is the last instant submissions are accepted: 23:59:59 of the
// effective deadline in loc. ok is false when the deadline cannot be parsed.
func ClosesAt(e model.Event, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(endOfDayLayout, EffectiveDeadline(e)+"T23:59:59", loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsClosed reports whether the event stopped accepting submissions before now.
// The deadline is read in now's location.
func IsClosed(e model.Event, now time.Time) bool {
	closesAt, ok := ClosesAt(e, now.Location())
	if !ok {
		return false
	}
	return closesAt.Before(now)
}

// Partition splits events into ongoing and past, each ordered by date
// descending. Events sharing a date keep their input order.
func Partition(events []model.Event, now time.Time) (ongoing, past []model.Event) {
	for _, e := range events {
		if IsClosed(e, now) {
			past = append(past, e)
		} else {
			ongoing = append(ongoing, e)
		}
	}
	byDateDesc := func(a, b model.Event) int { return strings.Compare(b.Date, a.Date) }
	slices.SortStableFunc(ongoing, byDateDesc)
	slices.SortStableFunc(past, byDateDesc)
	return ongoing, past
}
