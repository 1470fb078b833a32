// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package notify fans out typed change events to subscribers such as the
// WebSocket event stream.
package notify

import (
	"sync"
	"sync/atomic"
	"time"
)

type Kind string

const (
	TopicCreated     Kind = "topic_created"
	TopicUpdated     Kind = "topic_updated"
	TopicRemoved     Kind = "topic_removed"
	CandidateChanged Kind = "candidate_changed"
	VoteRecorded     Kind = "vote_recorded"
	VotesReset       Kind = "votes_reset"
	BallotVerified   Kind = "ballot_verified"
	SignedIn         Kind = "signed_in"
	SignedOut        Kind = "signed_out"
)

type Event struct {
	Kind    Kind      `json:"kind"`
	TopicID string    `json:"topic_id,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher is what workflows depend on.
type Publisher interface {
	Publish(Event)
}

type Bus struct {
	mu      sync.Mutex
	nextID  int
	subs    map[int]chan Event
	closed  bool
	dropped atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber with the given channel buffer. The cancel
// func unregisters it and closes the channel; it is safe to call twice.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers e to every subscriber without blocking. Subscribers whose
// buffer is full miss the event.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because of full buffers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribers returns the number of active subscribers.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later subscriptions get a closed
// channel and later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Discard is a Publisher that drops everything.
type Discard struct{}

func (Discard) Publish(Event) {}
