package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/hray3182/remind-engine/internal/models"
)

// FireKind records which controller produced an armed wake-up, so the
// dispatch handler knows which state transition to apply when it fires.
type FireKind string

const (
	FireOccurrence FireKind = "occurrence"
	FireNag        FireKind = "nag"
	FireSnooze     FireKind = "snooze"
)

// FireEvent is delivered by the wake-up service when an armed alarm
// elapses. Token pairs the event with the reminder state it was armed
// against; a mismatch means the delivery is stale.
type FireEvent struct {
	ReminderID int64
	Token      string
}

var (
	// ErrExactAlarmDenied is returned by ArmExact when the platform
	// refuses precise-timing wake-ups. The scheduler falls back to an
	// inexact arm instead of failing the operation.
	ErrExactAlarmDenied = errors.New("exact alarm scheduling denied")

	// ErrNotFound is returned by a Store when no reminder exists for
	// the requested id.
	ErrNotFound = errors.New("reminder not found")
)

// AlarmService is the external wake-up facility. At most one wake-up per
// reminder id may be outstanding; the scheduler enforces this by
// cancelling the previous token before arming a new one. Arm calls are
// expected to be immediate and non-blocking.
type AlarmService interface {
	ArmExact(at time.Time, ev FireEvent) error
	ArmInexact(at time.Time, ev FireEvent) error
	Cancel(token string)
}

// Store is the persistence collaborator. It must offer read-your-writes
// consistency for the calling goroutine.
type Store interface {
	Load(ctx context.Context, id int64) (*models.Reminder, error)
	Save(ctx context.Context, r *models.Reminder) error
	Delete(ctx context.Context, id int64) error
	// ListActive returns every enabled reminder, for the reboot re-arm pass.
	ListActive(ctx context.Context) ([]*models.Reminder, error)
}

// Notifier renders the user-visible notification after a fire. Failures
// are logged by the dispatcher, never allowed to block the state
// transition.
type Notifier interface {
	Notify(ctx context.Context, r *models.Reminder, message string) error
}
