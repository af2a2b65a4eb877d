package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/hray3182/remind-engine/internal/models"
)

// Dispatcher is the wake-up fire callback. On each delivery it applies
// exactly one state transition, determined by which controller armed the
// wake-up, then asks the scheduler for the next arm and hands the
// notification text to the notifier.
type Dispatcher struct {
	store    Store
	sched    *Scheduler
	notifier Notifier
}

func NewDispatcher(store Store, sched *Scheduler, notifier Notifier) *Dispatcher {
	return &Dispatcher{store: store, sched: sched, notifier: notifier}
}

// HandleFire processes one delivery from the wake-up service. Stale or
// orphaned deliveries are dropped silently: a missing reminder was
// deleted between arm and fire, a token mismatch is a duplicate of an
// already-processed wake-up.
func (d *Dispatcher) HandleFire(ctx context.Context, ev FireEvent) error {
	l := d.sched.lockFor(ev.ReminderID)
	l.Lock()
	defer l.Unlock()

	r, err := d.store.Load(ctx, ev.ReminderID)
	if errors.Is(err, ErrNotFound) {
		log.Printf("Dropping fire for deleted reminder %d", ev.ReminderID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load reminder %d on fire: %w", ev.ReminderID, err)
	}
	if !r.Enabled {
		return nil
	}
	if r.ArmedToken == "" || r.ArmedToken != ev.Token {
		log.Printf("Dropping stale fire for reminder %d", ev.ReminderID)
		return nil
	}

	now := d.sched.now()
	firedAt := now
	if r.ArmedAt != nil && firedAt.Before(*r.ArmedAt) {
		firedAt = *r.ArmedAt
	}
	kind := FireKind(r.ArmedKind)
	armedAt := firedAt
	if r.ArmedAt != nil {
		armedAt = *r.ArmedAt
	}
	r.Disarm()

	var message string
	switch kind {
	case FireOccurrence:
		// A new occurrence begins: the nag counter restarts and a
		// completion from the previous occurrence is rolled over.
		r.ResetOccurrence(armedAt)
		r.Completed = false
		r.NotifiedAt = &firedAt
		message = occurrenceMessage(r)
	case FireNag:
		if !r.NagExhausted() {
			r.RepetitionIndex++
		}
		r.NotifiedAt = &firedAt
		message = nagMessage(r)
	case FireSnooze:
		r.ClearSnooze()
		r.NotifiedAt = &firedAt
		message = snoozeMessage(r)
	default:
		log.Printf("Dropping fire with unknown kind %q for reminder %d", kind, ev.ReminderID)
		return nil
	}

	if err := d.sched.scheduleLocked(ctx, r, now); err != nil {
		return fmt.Errorf("failed to re-arm reminder %d after fire: %w", r.ID, err)
	}

	if err := d.notifier.Notify(ctx, r, message); err != nil {
		// Delivery failure never blocks the state transition.
		log.Printf("Failed to notify for reminder %d: %v", r.ID, err)
	}
	return nil
}

func occurrenceMessage(r *models.Reminder) string {
	msg := "⏰ Reminder: " + r.Title
	if r.Description != "" {
		msg += "\n" + r.Description
	}
	return msg
}

func nagMessage(r *models.Reminder) string {
	return fmt.Sprintf("🔁 Still pending (%d/%d): %s",
		r.RepetitionIndex, r.NagTotalRepetitions, r.Title)
}

func snoozeMessage(r *models.Reminder) string {
	return "😴 Snooze over: " + r.Title
}
