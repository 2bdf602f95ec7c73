/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// EventPlayerState fires whenever the transport state record changes.
	EventPlayerState EventType = "player.state"
	// EventScheduleUpdate carries a freshly computed timeline schedule.
	EventScheduleUpdate EventType = "schedule.update"
	// EventNowPlaying fires when a new item goes on air.
	EventNowPlaying EventType = "now_playing"
	// EventItemEnded fires after an item finishes and history is recorded.
	EventItemEnded EventType = "item.ended"
	// EventSequenceUpdate fires after any sequence mutation.
	EventSequenceUpdate EventType = "sequence.update"
	// EventMixerGains carries re-derived bus gains.
	EventMixerGains EventType = "mixer.gains"
	// EventPolicyWarning fires when a placement check rejects a candidate.
	EventPolicyWarning EventType = "policy.warning"
)

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Bus implements a simple in-process pubsub. Publish never blocks: slow
// subscribers drop events rather than stalling the playout loop.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	b.subs[eventType] = subs
	close(sub)
}
