// Package timer schedules keyed callbacks for rooms. At most one timer is
// live per key; scheduling a key again replaces the previous timer, and a
// cancelled timer never runs its callback afterwards.
package timer

import (
	"sync"
	"time"
)

type Purpose string

const (
	WordChoice Purpose = "word-choice"
	Round      Purpose = "round"
	TurnPause  Purpose = "turn-pause"
)

type Key struct {
	Room    string
	Purpose Purpose
}

type entry struct {
	id   uint64
	stop func()
}

type Service struct {
	mu      sync.Mutex
	seq     uint64
	entries map[Key]*entry
}

func NewService() *Service {
	return &Service{entries: make(map[Key]*entry)}
}

// ScheduleOnce runs fn once after delay unless the key is cancelled or
// rescheduled first.
func (s *Service) ScheduleOnce(key Key, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(key)
	s.seq++
	id := s.seq

	t := time.AfterFunc(delay, func() {
		if s.release(key, id) {
			fn()
		}
	})
	s.entries[key] = &entry{id: id, stop: func() { t.Stop() }}
}

// ScheduleRepeating runs fn every interval until the key is cancelled or
// rescheduled.
func (s *Service) ScheduleRepeating(key Key, interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked(key)
	s.seq++
	id := s.seq
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !s.active(key, id) {
					return
				}
				fn()
			}
		}
	}()
	s.entries[key] = &entry{id: id, stop: sync.OnceFunc(func() { close(done) })}
}

// Cancel is idempotent; cancelling an absent key does nothing.
func (s *Service) Cancel(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(key)
}

// CancelRoom stops every timer that belongs to room.
func (s *Service) CancelRoom(room string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.entries {
		if key.Room == room {
			s.cancelLocked(key)
		}
	}
}

func (s *Service) Pending(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Service) cancelLocked(key Key) {
	if e, ok := s.entries[key]; ok {
		delete(s.entries, key)
		e.stop()
	}
}

func (s *Service) active(key Key, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return ok && e.id == id
}

// release drops a fired one-shot, reporting whether it was still current.
func (s *Service) release(key Key, id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.id != id {
		return false
	}
	delete(s.entries, key)
	return true
}
