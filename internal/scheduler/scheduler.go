package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hray3182/remind-engine/internal/models"
	"github.com/hray3182/remind-engine/internal/recurrence"
)

// Scheduler owns the single outstanding wake-up per reminder. Every
// schedule call cancels the previously armed token before arming a new
// one, and the three controllers are consulted in fixed precedence:
// snooze, then nag, then recurrence.
type Scheduler struct {
	store  Store
	alarms AlarmService

	// FirePastOneShots controls what happens to a one-shot reminder
	// whose start time is already past but which has never fired: when
	// true it is armed immediately, when false it stays dormant.
	FirePastOneShots bool

	now func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func New(store Store, alarms AlarmService) *Scheduler {
	return &Scheduler{
		store:  store,
		alarms: alarms,
		now:    time.Now,
		locks:  make(map[int64]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing all scheduling work for one
// reminder id. Different ids never contend with each other.
func (s *Scheduler) lockFor(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Schedule recomputes and arms the next wake-up for the reminder,
// superseding any outstanding one. Safe to call repeatedly; each call
// fully replaces the prior arm. The reminder is persisted with its new
// armed state.
func (s *Scheduler) Schedule(ctx context.Context, r *models.Reminder) error {
	l := s.lockFor(r.ID)
	l.Lock()
	defer l.Unlock()
	return s.scheduleLocked(ctx, r, s.now())
}

// Reschedule reloads the reminder inside its critical section and arms
// it from the freshly read state. Concurrent callers for the same id
// serialize; each call fully supersedes the previous arm.
func (s *Scheduler) Reschedule(ctx context.Context, id int64) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reminder %d: %w", id, err)
	}
	return s.scheduleLocked(ctx, r, s.now())
}

func (s *Scheduler) scheduleLocked(ctx context.Context, r *models.Reminder, now time.Time) error {
	if r.ArmedToken != "" {
		s.alarms.Cancel(r.ArmedToken)
		r.Disarm()
	}

	at, kind, ok := s.computeNext(r, now)
	if !ok {
		// Dormant: nothing left to arm.
		if err := s.store.Save(ctx, r); err != nil {
			return fmt.Errorf("failed to save dormant reminder %d: %w", r.ID, err)
		}
		return nil
	}

	token := uuid.NewString()
	ev := FireEvent{ReminderID: r.ID, Token: token}
	if err := s.alarms.ArmExact(at, ev); err != nil {
		log.Printf("Exact wake-up for reminder %d rejected (%v), falling back to inexact", r.ID, err)
		if err := s.alarms.ArmInexact(at, ev); err != nil {
			return fmt.Errorf("failed to arm wake-up for reminder %d: %w", r.ID, err)
		}
	}

	r.ArmedToken = token
	r.ArmedKind = string(kind)
	r.ArmedAt = &at
	if err := s.store.Save(ctx, r); err != nil {
		s.alarms.Cancel(token)
		r.Disarm()
		return fmt.Errorf("failed to save armed reminder %d: %w", r.ID, err)
	}
	return nil
}

// computeNext picks the single next wake-up instant, with precedence
// snooze > nag > recurrence. Invalid state is treated as terminal rather
// than an error.
func (s *Scheduler) computeNext(r *models.Reminder, now time.Time) (time.Time, FireKind, bool) {
	if r.IsTerminal() || r.Validate() != nil {
		return time.Time{}, "", false
	}

	if r.InSnoozeLoop && r.SnoozeTarget != nil {
		// The target may already be past; firing immediately is what
		// hands control back to the interrupted controller.
		return *r.SnoozeTarget, FireSnooze, true
	}

	if s.occurrenceFired(r) {
		if at, ok := NextNagFire(r, r.StartTime); ok {
			return at, FireNag, true
		}
		if r.IsRecurring() {
			if at, ok := recurrence.NextOccurrence(r, now); ok {
				return at, FireOccurrence, true
			}
		}
		return time.Time{}, "", false
	}

	// The current occurrence has not fired yet.
	if !r.IsRecurring() {
		if at, ok := recurrence.NextOccurrence(r, now); ok {
			return at, FireOccurrence, true
		}
		if s.FirePastOneShots {
			return now, FireOccurrence, true
		}
		return time.Time{}, "", false
	}

	if !r.StartTime.Before(now) {
		return r.StartTime, FireOccurrence, true
	}
	// Missed occurrence. Strict scheduling fires it overdue instead of
	// rolling past it; lenient jumps straight to the next future slot.
	if r.StrictScheduling && !recurrence.PastEnd(r, r.StartTime) {
		return r.StartTime, FireOccurrence, true
	}
	if at, ok := recurrence.NextOccurrence(r, now); ok {
		return at, FireOccurrence, true
	}
	return time.Time{}, "", false
}

// occurrenceFired reports whether the current occurrence has already
// been delivered. Nag fires always land after the occurrence start, so
// comparing the last notification against it is sufficient.
func (s *Scheduler) occurrenceFired(r *models.Reminder) bool {
	return r.NotifiedAt != nil && !r.NotifiedAt.Before(r.StartTime)
}

// Cancel removes any outstanding wake-up for the reminder. Calling it on
// a reminder with none outstanding is a no-op, not an error.
func (s *Scheduler) Cancel(ctx context.Context, r *models.Reminder) error {
	l := s.lockFor(r.ID)
	l.Lock()
	defer l.Unlock()

	if r.ArmedToken == "" {
		return nil
	}
	s.alarms.Cancel(r.ArmedToken)
	r.Disarm()
	if err := s.store.Save(ctx, r); err != nil {
		return fmt.Errorf("failed to save cancelled reminder %d: %w", r.ID, err)
	}
	return nil
}

// Snooze defers the reminder by d from now. It may be called mid-nag;
// the repetition index is untouched and the interrupted cycle resumes
// once the snooze target elapses.
func (s *Scheduler) Snooze(ctx context.Context, id int64, d time.Duration) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reminder %d: %w", id, err)
	}
	now := s.now()
	ApplySnooze(r, d, now)
	return s.scheduleLocked(ctx, r, now)
}

// Complete marks the task done. The nag cycle stops and its counter
// resets; a recurring reminder still advances to its next occurrence,
// a one-shot goes dormant.
func (s *Scheduler) Complete(ctx context.Context, id int64) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reminder %d: %w", id, err)
	}
	r.Completed = true
	r.RepetitionIndex = 0
	r.ClearSnooze()
	return s.scheduleLocked(ctx, r, s.now())
}

// SetEnabled flips the master switch. Disabling cancels the outstanding
// wake-up in the same per-id critical section that persists the change.
func (s *Scheduler) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reminder %d: %w", id, err)
	}
	r.Enabled = enabled
	return s.scheduleLocked(ctx, r, s.now())
}

// Delete cancels the outstanding wake-up and removes the reminder, so no
// fire can be delivered for a record that is already gone.
func (s *Scheduler) Delete(ctx context.Context, id int64) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	r, err := s.store.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load reminder %d: %w", id, err)
	}
	if r.ArmedToken != "" {
		s.alarms.Cancel(r.ArmedToken)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete reminder %d: %w", id, err)
	}
	return nil
}

// Reboot re-arms every enabled reminder. The wake-up service loses all
// state across a restart, so each record's persisted armed token is
// stale; Schedule cancels it and arms afresh. Reminders are processed
// concurrently, relying on the per-id serialization.
func (s *Scheduler) Reboot(ctx context.Context) error {
	reminders, err := s.store.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reminders for re-arm: %w", err)
	}

	var wg sync.WaitGroup
	for _, r := range reminders {
		wg.Add(1)
		go func(r *models.Reminder) {
			defer wg.Done()
			if err := s.Schedule(ctx, r); err != nil {
				log.Printf("Failed to re-arm reminder %d after reboot: %v", r.ID, err)
			}
		}(r)
	}
	wg.Wait()
	log.Printf("Re-armed %d reminders", len(reminders))
	return nil
}
