package scheduler

import (
	"time"

	"github.com/hray3182/remind-engine/internal/models"
)

// NextNagFire computes the next bounded re-notification instant for an
// incomplete reminder. Fires land at fixed offsets from the occurrence
// start: occurrenceStart + (index+1) * interval. The instant may already
// be in the past (for example when a snooze carried the clock beyond
// it); the wake-up service then fires immediately, preserving the
// originally scheduled offsets rather than recomputing from now.
func NextNagFire(r *models.Reminder, occurrenceStart time.Time) (time.Time, bool) {
	if !r.NagModeEnabled || r.Completed || r.NagInterval == nil {
		return time.Time{}, false
	}
	if r.NagExhausted() {
		return time.Time{}, false
	}
	next := occurrenceStart.Add(time.Duration(r.RepetitionIndex+1) * *r.NagInterval)
	return next, true
}
