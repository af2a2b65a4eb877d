package alarm

import (
	"sync"
	"time"

	"github.com/hray3182/remind-engine/internal/scheduler"
)

// TimerService is an in-process wake-up service backed by one time.Timer
// per outstanding token. It keeps no durable state: after a restart the
// scheduler's reboot pass must re-arm everything.
type TimerService struct {
	// ExactDenied simulates a platform that refuses precise-timing
	// wake-ups; ArmExact then fails and the scheduler falls back to
	// ArmInexact.
	ExactDenied bool

	fire func(scheduler.FireEvent)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// inexactSlack is the scheduling granularity of best-effort wake-ups,
// matching a coarse minute-level platform alarm.
const inexactSlack = time.Minute

func NewTimerService(fire func(scheduler.FireEvent)) *TimerService {
	return &TimerService{
		fire:   fire,
		timers: make(map[string]*time.Timer),
	}
}

func (s *TimerService) ArmExact(at time.Time, ev scheduler.FireEvent) error {
	if s.ExactDenied {
		return scheduler.ErrExactAlarmDenied
	}
	s.arm(time.Until(at), ev)
	return nil
}

func (s *TimerService) ArmInexact(at time.Time, ev scheduler.FireEvent) error {
	d := time.Until(at)
	if d > inexactSlack {
		d = d.Round(inexactSlack)
	}
	s.arm(d, ev)
	return nil
}

func (s *TimerService) arm(d time.Duration, ev scheduler.FireEvent) {
	if d < 0 {
		// Past instants fire immediately; the dispatcher decides what
		// an overdue delivery means.
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[ev.Token] = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, ev.Token)
		s.mu.Unlock()
		s.fire(ev)
	})
}

func (s *TimerService) Cancel(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[token]; ok {
		t.Stop()
		delete(s.timers, token)
	}
}

// Outstanding reports the number of armed wake-ups.
func (s *TimerService) Outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Shutdown stops every outstanding timer.
func (s *TimerService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, t := range s.timers {
		t.Stop()
		delete(s.timers, token)
	}
}
