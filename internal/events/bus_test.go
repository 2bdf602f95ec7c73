/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "testing"

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()
	sub1 := bus.Subscribe(EventPlayerState)
	sub2 := bus.Subscribe(EventPlayerState)
	other := bus.Subscribe(EventMixerGains)

	bus.Publish(EventPlayerState, Payload{"playing": true})

	for i, sub := range []Subscriber{sub1, sub2} {
		select {
		case payload := <-sub:
			if payload["playing"] != true {
				t.Fatalf("subscriber %d got %v", i, payload)
			}
		default:
			t.Fatalf("subscriber %d got nothing", i)
		}
	}

	select {
	case <-other:
		t.Fatal("event leaked to a different type")
	default:
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventScheduleUpdate)

	// Overfill the buffer; extra events are dropped, not blocking.
	for i := 0; i < 100; i++ {
		bus.Publish(EventScheduleUpdate, Payload{"i": i})
	}

	drained := 0
	for {
		select {
		case <-sub:
			drained++
			continue
		default:
		}
		break
	}
	if drained == 0 || drained > 16 {
		t.Fatalf("drained %d events, want up to the buffer size", drained)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(EventItemEnded)
	bus.Unsubscribe(EventItemEnded, sub)

	if _, ok := <-sub; ok {
		t.Fatal("unsubscribed channel must be closed")
	}

	// Publishing after unsubscribe must not panic.
	bus.Publish(EventItemEnded, Payload{})
}
