package scheduler

import (
	"time"

	"github.com/hray3182/remind-engine/internal/models"
)

// ApplySnooze puts the reminder into the nested snooze loop: the snooze
// target takes precedence over any nag or recurrence computation until
// it elapses, and the nag repetition index is deliberately left alone so
// the interrupted cycle resumes where it stopped.
func ApplySnooze(r *models.Reminder, d time.Duration, now time.Time) {
	start := now
	target := now.Add(d)
	r.InSnoozeLoop = true
	r.SnoozeStartTime = &start
	r.SnoozeTarget = &target
}

// SnoozeActive reports whether a snooze target is still in the future.
func SnoozeActive(r *models.Reminder, now time.Time) bool {
	return r.InSnoozeLoop && r.SnoozeTarget != nil && now.Before(*r.SnoozeTarget)
}
