package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hray3182/remind-engine/internal/models"
)

// Weekday ordinals on the reminder are 1=Monday .. 7=Sunday.
var weekdayByOrdinal = map[int]rrule.Weekday{
	1: rrule.MO,
	2: rrule.TU,
	3: rrule.WE,
	4: rrule.TH,
	5: rrule.FR,
	6: rrule.SA,
	7: rrule.SU,
}

// NextOccurrence computes the next instant the reminder becomes due after
// now. The second return value is false when the reminder is terminal:
// a one-shot that is already past, or a recurrence that has run out of
// occurrences.
//
// Recurrence arithmetic is wall-clock: the rule iterates in the anchor's
// location, so a daily 09:00 reminder stays at 09:00 local across a DST
// transition even though the absolute gap shifts by the DST delta.
func NextOccurrence(r *models.Reminder, now time.Time) (time.Time, bool) {
	switch r.RecurrenceType {
	case models.RecurrenceNone, "":
		return nextOneShot(r, now)
	case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceCustom:
		return nextRecurring(r, now)
	default:
		return time.Time{}, false
	}
}

func nextOneShot(r *models.Reminder, now time.Time) (time.Time, bool) {
	at := r.StartTime
	if d := r.DateInMillis; d != nil {
		at = pinToDate(r.StartTime, *d)
	}
	if at.Before(now) {
		// A missed one-shot never reschedules itself; the scheduler
		// decides whether it fires immediately or stays dormant.
		return time.Time{}, false
	}
	return at, true
}

// nextRecurring rolls forward from the anchor to the first slot strictly
// after now, skipping any number of missed periods in one jump. Overdue
// handling for strict scheduling is the scheduler's concern, not the
// calculator's.
func nextRecurring(r *models.Reminder, now time.Time) (time.Time, bool) {
	rule, err := buildRule(r)
	if err != nil {
		return time.Time{}, false
	}

	next := rule.After(now.In(time.Local), false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// buildRule maps the reminder's recurrence onto an RFC 5545 rule
// anchored at the original start time.
func buildRule(r *models.Reminder) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart: localWallClock(r.OriginalStartTime),
	}

	switch r.RecurrenceType {
	case models.RecurrenceDaily:
		opt.Freq = rrule.DAILY
	case models.RecurrenceWeekly:
		opt.Freq = rrule.WEEKLY
	case models.RecurrenceCustom:
		opt.Freq = rrule.WEEKLY
		for _, d := range r.DaysOfWeek {
			wd, ok := weekdayByOrdinal[d]
			if !ok {
				continue
			}
			opt.Byweekday = append(opt.Byweekday, wd)
		}
	}

	if d := r.DateInMillis; d != nil {
		opt.Until = endOfDay(*d)
	}

	return rrule.NewRRule(opt)
}

// PastEnd reports whether an instant falls after the reminder's pinned
// end date, when one is set.
func PastEnd(r *models.Reminder, at time.Time) bool {
	if r.DateInMillis == nil {
		return false
	}
	return at.After(endOfDay(*r.DateInMillis))
}

// localWallClock reinterprets a timestamp's clock values in the local
// timezone. Timestamps come out of storage as UTC but the stored values
// are local wall-clock times.
func localWallClock(t time.Time) time.Time {
	return time.Date(
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		time.Local,
	)
}

// pinToDate combines the date carried in millis with the reminder's
// time-of-day.
func pinToDate(start time.Time, millis int64) time.Time {
	d := time.UnixMilli(millis).In(time.Local)
	s := localWallClock(start)
	return time.Date(d.Year(), d.Month(), d.Day(),
		s.Hour(), s.Minute(), s.Second(), 0, time.Local)
}

func endOfDay(millis int64) time.Time {
	d := time.UnixMilli(millis).In(time.Local)
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, 0, time.Local)
}
