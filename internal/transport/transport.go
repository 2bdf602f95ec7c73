/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package transport holds the playback transport state and its advancement
// rules. Operations never fail: on an empty sequence or an unknown id they
// leave the state untouched, which is how callers observe that nothing
// happened. Routine UI races (an item removed while a click was in flight)
// are not errors.
package transport

import (
	"time"

	"github.com/friendsincode/bragi_studio/internal/sequence"
)

// RestartThreshold is how far into an item Previous restarts it instead of
// moving to the prior item, matching conventional back-button semantics.
const RestartThreshold = 3 * time.Second

// State is the composite transport record. There is exactly one writer: the
// playout engine of the studio role. Other roles observe replicas.
type State struct {
	// CurrentIndex is the position of the on-deck playable item.
	CurrentIndex int
	// CurrentItemID is the id of the item at CurrentIndex.
	CurrentItemID string
	Playing       bool
	// Progress is the elapsed time into the current item.
	Progress time.Duration
	// StopAfterItemID halts playback once that item finishes. One-shot:
	// consumed implicitly by the next manual play.
	StopAfterItemID string
}

// TogglePlay flips the playing flag. No-op when the sequence holds no
// playable item. Starting playback consumes a pending stop-after.
func (s *State) TogglePlay(items []sequence.Item) {
	if !sequence.HasPlayable(items) {
		return
	}
	s.Playing = !s.Playing
	if s.Playing {
		s.StopAfterItemID = ""
		if _, ok := sequence.PlayableAt(items, s.CurrentIndex); !ok {
			s.moveTo(items, sequence.FirstPlayableIndex(items))
		}
	}
}

// Next advances to the nearest playable item after the current one, wrapping
// circularly and never landing on a marker.
func (s *State) Next(items []sequence.Item) {
	s.moveTo(items, sequence.NextPlayableIndex(items, s.CurrentIndex))
}

// Previous restarts the current item when more than RestartThreshold has
// elapsed; otherwise it moves to the prior playable item, wrapping.
func (s *State) Previous(items []sequence.Item) {
	if s.Progress > RestartThreshold {
		s.Progress = 0
		return
	}
	s.moveTo(items, sequence.PrevPlayableIndex(items, s.CurrentIndex))
}

// PlayItem jumps directly to the playable item with id and starts playback.
// No-op on unknown ids and markers.
func (s *State) PlayItem(items []sequence.Item, id string) {
	i := sequence.IndexOf(items, id)
	if _, ok := sequence.PlayableAt(items, i); !ok {
		return
	}
	s.moveTo(items, i)
	s.Playing = true
	s.StopAfterItemID = ""
}

// SetStopAfter arms a one-shot stop once the item with id finishes. An empty
// id clears it; unknown ids are ignored.
func (s *State) SetStopAfter(items []sequence.Item, id string) {
	if id == "" {
		s.StopAfterItemID = ""
		return
	}
	if i := sequence.IndexOf(items, id); i >= 0 {
		if _, ok := sequence.PlayableAt(items, i); ok {
			s.StopAfterItemID = id
		}
	}
}

// OnItemEnded reacts to the edge-triggered end-of-item signal from the audio
// transport. Honors stop-after, otherwise advances like Next; when no other
// playable item exists, playback stops.
func (s *State) OnItemEnded(items []sequence.Item) {
	if s.StopAfterItemID != "" && s.StopAfterItemID == s.CurrentItemID {
		s.Playing = false
		return
	}
	next := sequence.NextPlayableIndex(items, s.CurrentIndex)
	if next < 0 {
		s.Playing = false
		s.Progress = 0
		return
	}
	s.moveTo(items, next)
}

// OnProgressTick records the elapsed time into the current item. Advancement
// is edge-triggered by OnItemEnded, never by progress polling, so jitter
// cannot double-advance.
func (s *State) OnProgressTick(elapsed time.Duration) {
	if elapsed < 0 {
		elapsed = 0
	}
	s.Progress = elapsed
}

// Reconcile clamps the state after a sequence mutation: if the current item
// vanished, the slot index is re-resolved; if nothing playable remains, the
// transport stops.
func (s *State) Reconcile(items []sequence.Item) {
	if s.CurrentItemID != "" {
		if i := sequence.IndexOf(items, s.CurrentItemID); i >= 0 {
			s.CurrentIndex = i
			return
		}
	}
	first := sequence.FirstPlayableIndex(items)
	if first < 0 {
		*s = State{}
		return
	}
	s.moveTo(items, first)
	s.Playing = false
}

func (s *State) moveTo(items []sequence.Item, i int) {
	p, ok := sequence.PlayableAt(items, i)
	if !ok {
		return
	}
	s.CurrentIndex = i
	s.CurrentItemID = p.ID
	s.Progress = 0
}
