/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequence defines the ordered show sequence: playable audio items
// interleaved with time markers. Order encodes playback order; wall-clock
// times are always derived, never stored on items.
package sequence

import (
	"math"
	"time"
)

// ItemKind classifies playable items.
type ItemKind string

const (
	KindSong       ItemKind = "song"
	KindJingle     ItemKind = "jingle"
	KindAd         ItemKind = "ad"
	KindVoiceTrack ItemKind = "voicetrack"
)

// MarkerKind distinguishes hard and soft time markers.
type MarkerKind string

const (
	// MarkerHard truncates whatever is laid out across its activation time.
	MarkerHard MarkerKind = "hard"
	// MarkerSoft causes not-yet-played items before it to be skipped once
	// its activation time has passed, without interrupting playback.
	MarkerSoft MarkerKind = "soft"
)

// Item is a sequence element: either a PlayableItem or a TimeMarker.
type Item interface {
	// ItemID returns the element's unique id within the sequence.
	ItemID() string
	sequenceItem()
}

// PlayableItem is an audio item scheduled for playout.
type PlayableItem struct {
	ID string
	// OriginalID links a sequence instance back to its library source,
	// used for duplicate-warning suppression lookups.
	OriginalID string
	Duration   time.Duration
	Kind       ItemKind
	Artist     string
	Title      string
}

// ItemID implements Item.
func (p PlayableItem) ItemID() string { return p.ID }

func (PlayableItem) sequenceItem() {}

// TimeMarker pins a point in the sequence to an absolute wall-clock time.
type TimeMarker struct {
	ID          string
	ActivatesAt time.Time
	Kind        MarkerKind
}

// ItemID implements Item.
func (m TimeMarker) ItemID() string { return m.ID }

func (TimeMarker) sequenceItem() {}

// DurationFromSeconds converts a possibly malformed seconds value into a
// clamped duration. Negative and NaN inputs become zero; the timeline must
// produce a total order even from garbage durations.
func DurationFromSeconds(sec float64) time.Duration {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return 0
	}
	return time.Duration(sec * float64(time.Second))
}

// IndexOf returns the position of the element with id, or -1.
func IndexOf(items []Item, id string) int {
	for i, item := range items {
		if item.ItemID() == id {
			return i
		}
	}
	return -1
}

// PlayableAt returns the playable item at index i, if the index is in range
// and the element is not a marker.
func PlayableAt(items []Item, i int) (PlayableItem, bool) {
	if i < 0 || i >= len(items) {
		return PlayableItem{}, false
	}
	p, ok := items[i].(PlayableItem)
	return p, ok
}

// NextPlayableIndex finds the nearest playable item after from, wrapping
// circularly and skipping markers. The from position itself is never a
// candidate; -1 means no other playable item exists.
func NextPlayableIndex(items []Item, from int) int {
	n := len(items)
	if n == 0 {
		return -1
	}
	for step := 1; step < n; step++ {
		i := ((from+step)%n + n) % n
		if _, ok := items[i].(PlayableItem); ok {
			return i
		}
	}
	return -1
}

// PrevPlayableIndex finds the nearest playable item before from, wrapping
// circularly and skipping markers. -1 means no other playable item exists.
func PrevPlayableIndex(items []Item, from int) int {
	n := len(items)
	if n == 0 {
		return -1
	}
	for step := 1; step < n; step++ {
		i := ((from-step)%n + n) % n
		if _, ok := items[i].(PlayableItem); ok {
			return i
		}
	}
	return -1
}

// FirstPlayableIndex returns the first playable element, or -1.
func FirstPlayableIndex(items []Item) int {
	for i, item := range items {
		if _, ok := item.(PlayableItem); ok {
			return i
		}
	}
	return -1
}

// HasPlayable reports whether the sequence contains at least one playable item.
func HasPlayable(items []Item) bool {
	return FirstPlayableIndex(items) >= 0
}

// Insert returns a new sequence with item placed before the element with
// beforeID, or appended when beforeID is empty or unknown.
func Insert(items []Item, item Item, beforeID string) []Item {
	out := make([]Item, 0, len(items)+1)
	at := len(items)
	if beforeID != "" {
		if i := IndexOf(items, beforeID); i >= 0 {
			at = i
		}
	}
	out = append(out, items[:at]...)
	out = append(out, item)
	out = append(out, items[at:]...)
	return out
}

// Remove returns a new sequence without the element with id. The input is
// returned unchanged when the id is unknown.
func Remove(items []Item, id string) []Item {
	i := IndexOf(items, id)
	if i < 0 {
		return items
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:i]...)
	out = append(out, items[i+1:]...)
	return out
}

// Move returns a new sequence with the element id placed before beforeID
// (or at the end when beforeID is empty).
func Move(items []Item, id, beforeID string) []Item {
	i := IndexOf(items, id)
	if i < 0 || id == beforeID {
		return items
	}
	item := items[i]
	return Insert(Remove(items, id), item, beforeID)
}
