// Package achievements evaluates the achievement catalog against user
// history and records unlocks exactly once.
package achievements

import (
	"sync"

	"github.com/jmlago/habitloop/internal/catalog"
	"github.com/jmlago/habitloop/internal/models"
)

// UnlockEvent describes one newly unlocked achievement.
type UnlockEvent struct {
	Achievement catalog.Definition         `json:"achievement"`
	Record      models.UnlockedAchievement `json:"record"`
	IsNew       bool                       `json:"is_new"`
}

// Listener receives batches of unlock events. Listeners are called
// synchronously at the end of a successful pipeline run; an empty batch is
// never delivered.
type Listener func(events []UnlockEvent)

// listenerSet is a subscription registry safe for concurrent use.
type listenerSet struct {
	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

func newListenerSet() *listenerSet {
	return &listenerSet{listeners: make(map[int]Listener)}
}

// add registers a listener and returns an unsubscribe function.
func (s *listenerSet) add(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// notify delivers a batch to every registered listener.
func (s *listenerSet) notify(events []UnlockEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.listeners {
		l(events)
	}
}
