package room

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/kdev89/feudline/internal/game"
)

// TimerService schedules a room's countdowns. Firing timers never touch
// room state directly: they deliver a TimerFired command back into the
// room's inbox, where the generation check decides whether the timer is
// still meaningful.
type TimerService struct {
	clock   clockwork.Clock
	deliver func(TimerFired)

	mu     sync.Mutex
	timers map[string]*roomTimer
}

// roomTimer is one armed countdown plus the signal that releases its watcher
// goroutine when the timer is cancelled or replaced.
type roomTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

func NewTimerService(clock clockwork.Clock, deliver func(TimerFired)) *TimerService {
	return &TimerService{
		clock:   clock,
		deliver: deliver,
		timers:  make(map[string]*roomTimer),
	}
}

func timerID(mode game.TimerMode, key string) string {
	return string(mode) + "/" + key
}

// Schedule arms a one-shot timer, replacing any live timer with the same
// mode and key.
func (s *TimerService) Schedule(ctx context.Context, mode game.TimerMode, key string, gen uint64, d time.Duration) {
	id := timerID(mode, key)
	entry := &roomTimer{timer: s.clock.NewTimer(d), cancel: make(chan struct{})}

	s.mu.Lock()
	if existing, ok := s.timers[id]; ok {
		stopTimerLocked(existing)
	}
	s.timers[id] = entry
	s.mu.Unlock()

	go func() {
		select {
		case <-entry.timer.Chan():
			s.remove(id, entry)
			s.deliver(TimerFired{Mode: mode, Key: key, Gen: gen})
		case <-entry.cancel:
		case <-ctx.Done():
			stopAndDrainTimer(entry.timer)
			s.remove(id, entry)
		}
	}()

	log.Debug().Str("timer", id).Uint64("gen", gen).Dur("in", d).Msg("timer scheduled")
}

// Cancel stops a live timer. Already-fired timers are harmless: their
// generation check makes them no-ops.
func (s *TimerService) Cancel(mode game.TimerMode, key string) {
	id := timerID(mode, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.timers[id]; ok {
		stopTimerLocked(entry)
		delete(s.timers, id)
	}
}

// remove clears the registry entry if it still refers to this timer; a
// replacement scheduled meanwhile stays.
func (s *TimerService) remove(id string, entry *roomTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.timers[id]; ok && current == entry {
		delete(s.timers, id)
	}
}

// stopTimerLocked retires an entry still present in the registry: callers
// hold s.mu, so the cancel channel is closed exactly once before the entry
// is dropped or replaced.
func stopTimerLocked(entry *roomTimer) {
	stopAndDrainTimer(entry.timer)
	close(entry.cancel)
}

// stopAndDrainTimer stops a timer and drains its channel so a pending fire
// cannot be observed later, per the time.Timer.Stop documentation.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
