package models

import (
	"errors"
	"time"
)

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

type RecurrenceType string

const (
	RecurrenceNone   RecurrenceType = "none"
	RecurrenceDaily  RecurrenceType = "daily"
	RecurrenceWeekly RecurrenceType = "weekly"
	RecurrenceCustom RecurrenceType = "custom"
)

var (
	ErrEmptyDaysOfWeek  = errors.New("custom recurrence requires at least one weekday")
	ErrBadDayOfWeek     = errors.New("weekday ordinal must be between 1 and 7")
	ErrBadNagInterval   = errors.New("nag mode requires a positive interval")
	ErrOrphanedSnooze   = errors.New("snooze flag and snooze start time must agree")
	ErrMissingStartTime = errors.New("reminder requires a start time")
)

type Reminder struct {
	ID                int64          `json:"reminder_id"`
	Title             string         `json:"title"`
	Description       string         `json:"description"`
	Tags              string         `json:"tags"`
	Priority          Priority       `json:"priority"`
	StartTime         time.Time      `json:"start_time"`
	OriginalStartTime time.Time      `json:"original_start_time"` // immutable recurrence anchor
	RecurrenceType    RecurrenceType `json:"recurrence_type"`
	DaysOfWeek        []int          `json:"days_of_week"` // 1=Monday .. 7=Sunday, custom recurrence only
	DateInMillis      *int64         `json:"date_in_millis"`
	StrictScheduling  bool           `json:"strict_scheduling"`

	NagModeEnabled      bool           `json:"nag_mode_enabled"`
	NagInterval         *time.Duration `json:"nag_interval"`
	NagTotalRepetitions int            `json:"nag_total_repetitions"`
	RepetitionIndex     int            `json:"repetition_index"` // nag fires issued for the current occurrence

	InSnoozeLoop    bool       `json:"in_snooze_loop"`
	SnoozeStartTime *time.Time `json:"snooze_start_time"`
	SnoozeTarget    *time.Time `json:"snooze_target"`

	Completed bool `json:"completed"`
	Enabled   bool `json:"enabled"`

	// State of the outstanding wake-up, persisted on the record so that
	// cancel-before-arm and stale-delivery detection survive a restart.
	ArmedToken string     `json:"armed_token"` // empty when dormant
	ArmedKind  string     `json:"armed_kind"`  // which controller produced the armed instant
	ArmedAt    *time.Time `json:"armed_at"`    // the armed instant itself

	NotifiedAt *time.Time `json:"notified_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Disarm forgets the outstanding wake-up.
func (r *Reminder) Disarm() {
	r.ArmedToken = ""
	r.ArmedKind = ""
	r.ArmedAt = nil
}

// IsRecurring returns true if this reminder repeats on its own.
func (r *Reminder) IsRecurring() bool {
	return r.RecurrenceType != RecurrenceNone && r.RecurrenceType != ""
}

// IsTerminal reports whether no further wake-up may ever be armed:
// disabled, or completed with nothing left to recur.
func (r *Reminder) IsTerminal() bool {
	if !r.Enabled {
		return true
	}
	return r.Completed && !r.IsRecurring()
}

// NagExhausted reports whether the bounded nag cycle for the current
// occurrence has used up all repetitions.
func (r *Reminder) NagExhausted() bool {
	return r.RepetitionIndex >= r.NagTotalRepetitions
}

// ResetOccurrence moves the reminder onto a new occurrence: the nag
// counter restarts and any stale snooze state is discarded.
func (r *Reminder) ResetOccurrence(next time.Time) {
	r.StartTime = next
	r.RepetitionIndex = 0
	r.ClearSnooze()
}

func (r *Reminder) ClearSnooze() {
	r.InSnoozeLoop = false
	r.SnoozeStartTime = nil
	r.SnoozeTarget = nil
}

// Validate checks the invariants an edit must not break. Invalid state
// that slips past the edit boundary is treated as terminal by the
// scheduler rather than an error.
func (r *Reminder) Validate() error {
	if r.StartTime.IsZero() {
		return ErrMissingStartTime
	}
	if r.RecurrenceType == RecurrenceCustom {
		if len(r.DaysOfWeek) == 0 {
			return ErrEmptyDaysOfWeek
		}
		for _, d := range r.DaysOfWeek {
			if d < 1 || d > 7 {
				return ErrBadDayOfWeek
			}
		}
	}
	if r.NagModeEnabled {
		if r.NagInterval == nil || *r.NagInterval <= 0 {
			return ErrBadNagInterval
		}
	}
	if r.InSnoozeLoop != (r.SnoozeStartTime != nil) {
		return ErrOrphanedSnooze
	}
	return nil
}
