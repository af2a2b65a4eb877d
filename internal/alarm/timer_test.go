package alarm

import (
	"errors"
	"testing"
	"time"

	"github.com/hray3182/remind-engine/internal/scheduler"
)

type fireCollector struct {
	ch chan scheduler.FireEvent
}

func newFireCollector() *fireCollector {
	return &fireCollector{ch: make(chan scheduler.FireEvent, 16)}
}

func (c *fireCollector) fire(ev scheduler.FireEvent) {
	c.ch <- ev
}

func (c *fireCollector) wait(t *testing.T) scheduler.FireEvent {
	t.Helper()
	select {
	case ev := <-c.ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fire")
		return scheduler.FireEvent{}
	}
}

func TestTimerService_FiresArmedEvent(t *testing.T) {
	c := newFireCollector()
	svc := NewTimerService(c.fire)
	defer svc.Shutdown()

	ev := scheduler.FireEvent{ReminderID: 1, Token: "tok-1"}
	if err := svc.ArmExact(time.Now().Add(20*time.Millisecond), ev); err != nil {
		t.Fatalf("arm failed: %v", err)
	}

	got := c.wait(t)
	if got != ev {
		t.Errorf("expected %+v, got %+v", ev, got)
	}
	if svc.Outstanding() != 0 {
		t.Errorf("expected no outstanding timers after fire, got %d", svc.Outstanding())
	}
}

func TestTimerService_PastInstantFiresImmediately(t *testing.T) {
	c := newFireCollector()
	svc := NewTimerService(c.fire)
	defer svc.Shutdown()

	ev := scheduler.FireEvent{ReminderID: 2, Token: "tok-2"}
	if err := svc.ArmExact(time.Now().Add(-time.Hour), ev); err != nil {
		t.Fatalf("arm failed: %v", err)
	}
	c.wait(t)
}

func TestTimerService_CancelPreventsFire(t *testing.T) {
	c := newFireCollector()
	svc := NewTimerService(c.fire)
	defer svc.Shutdown()

	ev := scheduler.FireEvent{ReminderID: 3, Token: "tok-3"}
	if err := svc.ArmExact(time.Now().Add(50*time.Millisecond), ev); err != nil {
		t.Fatalf("arm failed: %v", err)
	}
	svc.Cancel("tok-3")

	select {
	case got := <-c.ch:
		t.Errorf("cancelled wake-up still fired: %+v", got)
	case <-time.After(150 * time.Millisecond):
	}
	if svc.Outstanding() != 0 {
		t.Errorf("expected no outstanding timers after cancel, got %d", svc.Outstanding())
	}
}

func TestTimerService_ExactDenied(t *testing.T) {
	c := newFireCollector()
	svc := NewTimerService(c.fire)
	defer svc.Shutdown()
	svc.ExactDenied = true

	ev := scheduler.FireEvent{ReminderID: 4, Token: "tok-4"}
	err := svc.ArmExact(time.Now().Add(time.Hour), ev)
	if !errors.Is(err, scheduler.ErrExactAlarmDenied) {
		t.Fatalf("expected ErrExactAlarmDenied, got %v", err)
	}

	// The best-effort path still works.
	if err := svc.ArmInexact(time.Now().Add(10*time.Millisecond), ev); err != nil {
		t.Fatalf("inexact arm failed: %v", err)
	}
	c.wait(t)
}
