package service

import (
	"reflect"
	"sync"
	"sync/atomic"

	"androidagent/models"
)

// ConnectionListener observes connection state changes.
type ConnectionListener interface {
	OnConnectionStateChanged(state models.ConnectionState)
}

// ConnectionListenerFunc adapts a function to ConnectionListener. Function
// values are not comparable, so each AddListener call with one creates a new
// subscription; keep the returned Subscription to remove it.
type ConnectionListenerFunc func(state models.ConnectionState)

func (f ConnectionListenerFunc) OnConnectionStateChanged(state models.ConnectionState) {
	f(state)
}

// Subscription is the handle returned when a listener is added.
// Closing it invalidates the entry; the registry prunes it lazily.
type Subscription struct {
	listener ConnectionListener
	active   atomic.Bool
}

func (s *Subscription) Close() {
	s.active.Store(false)
}

func (s *Subscription) Active() bool {
	return s.active.Load()
}

// ListenerRegistry is the set of connection state subscriptions.
type ListenerRegistry struct {
	mu   sync.Mutex
	subs []*Subscription
}

// Add registers l. Adding a listener that is already active returns its existing subscription.
func (r *ListenerRegistry) Add(l ConnectionListener) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	if isComparable(l) {
		for _, s := range r.subs {
			if s.listener == l {
				return s
			}
		}
	}

	s := &Subscription{listener: l}
	s.active.Store(true)
	r.subs = append(r.subs, s)
	return s
}

// Remove invalidates every subscription for l and prunes closed entries.
func (r *ListenerRegistry) Remove(l ConnectionListener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isComparable(l) {
		for _, s := range r.subs {
			if s.listener == l {
				s.Close()
			}
		}
	}
	r.pruneLocked()
}

// Snapshot prunes closed entries and returns the active listeners in registration order.
func (r *ListenerRegistry) Snapshot() []ConnectionListener {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked()
	listeners := make([]ConnectionListener, 0, len(r.subs))
	for _, s := range r.subs {
		listeners = append(listeners, s.listener)
	}
	return listeners
}

// Len returns the number of entries, including closed ones not yet pruned.
func (r *ListenerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

func (r *ListenerRegistry) pruneLocked() {
	live := r.subs[:0]
	for _, s := range r.subs {
		if s.Active() {
			live = append(live, s)
		}
	}
	for i := len(live); i < len(r.subs); i++ {
		r.subs[i] = nil
	}
	r.subs = live
}

// isComparable reports whether l can be used with ==. Func-backed listeners cannot.
func isComparable(l ConnectionListener) bool {
	return l != nil && reflect.TypeOf(l).Comparable()
}
