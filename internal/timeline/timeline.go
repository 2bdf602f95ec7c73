/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeline computes authoritative wall-clock start/end times for
// every item in a show sequence. Compute is a pure function of the sequence,
// the transport state, and an explicit "now" - no I/O, no global clock - so
// the whole calculation is reproducible with synthetic time.
package timeline

import (
	"time"

	"github.com/friendsincode/bragi_studio/internal/sequence"
	"github.com/friendsincode/bragi_studio/internal/transport"
)

// shortenedFloor suppresses sub-100ms truncation amounts so rounding noise
// never surfaces as a "shortened" flag.
const shortenedFloor = 100 * time.Millisecond

// Entry is the computed schedule for one playable item.
type Entry struct {
	ItemID            string
	StartsAt          time.Time
	EndsAt            time.Time
	EffectiveDuration time.Duration
	Skipped           bool
	ShortenedBy       time.Duration
}

// Schedule maps item ids to computed entries while preserving sequence order.
type Schedule struct {
	entries []Entry
	byID    map[string]int
}

// Entry looks up the computed entry for an item id.
func (s *Schedule) Entry(id string) (Entry, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Entries returns all entries in sequence order.
func (s *Schedule) Entries() []Entry {
	return s.entries
}

// Len returns the number of scheduled playable items.
func (s *Schedule) Len() int { return len(s.entries) }

// Compute lays out the sequence on the wall clock.
//
// Pass 1 walks the sequence in order from a provisional playhead at now:
// markers push the playhead forward (never back), the next hard marker in
// sequence order truncates an item's natural end, and items whose window has
// already closed - or which fall between the playing item and the last
// passed soft marker - are skipped without advancing the playhead.
//
// Pass 2 applies a single offset that re-bases the provisional schedule onto
// the true start of the currently playing item (now minus progress), or
// anchors the selected item to now while paused. Keeping the correction to
// one term keeps the truncation math independent of transport state.
//
// A nil sequence is a caller contract violation and panics; an empty
// sequence yields an empty schedule.
func Compute(items []sequence.Item, state transport.State, now time.Time) *Schedule {
	if items == nil {
		panic("timeline: nil sequence")
	}

	softSkipped := softSkipSet(items, state, now)

	sched := &Schedule{byID: make(map[string]int, len(items))}
	playhead := now

	for i, item := range items {
		switch v := item.(type) {
		case sequence.TimeMarker:
			if v.ActivatesAt.After(playhead) {
				playhead = v.ActivatesAt
			}
		case sequence.PlayableItem:
			dur := v.Duration
			if dur < 0 {
				dur = 0
			}
			naturalEnd := playhead.Add(dur)
			finalEnd := naturalEnd
			var shortened time.Duration
			if hard, ok := nextHardMarker(items, i); ok && hard.ActivatesAt.Before(naturalEnd) {
				finalEnd = hard.ActivatesAt
				shortened = naturalEnd.Sub(finalEnd)
			}
			if shortened < shortenedFloor {
				shortened = 0
			}

			skipped := !playhead.Before(finalEnd) || softSkipped[v.ID]

			effective := finalEnd.Sub(playhead)
			if skipped || effective < 0 {
				effective = 0
			}

			sched.byID[v.ID] = len(sched.entries)
			sched.entries = append(sched.entries, Entry{
				ItemID:            v.ID,
				StartsAt:          playhead,
				EndsAt:            finalEnd,
				EffectiveDuration: effective,
				Skipped:           skipped,
				ShortenedBy:       shortened,
			})

			if !skipped {
				playhead = finalEnd
			}
		}
	}

	applyAnchorOffset(sched, items, state, now)
	return sched
}

// softSkipSet flags items owed but bypassed: while playing, every playable
// item strictly between the current item and the last soft marker whose
// activation time has already passed. Rightmost passed marker wins; markers
// at or before the playing position are ignored.
func softSkipSet(items []sequence.Item, state transport.State, now time.Time) map[string]bool {
	if !state.Playing || state.CurrentItemID == "" {
		return nil
	}
	current := sequence.IndexOf(items, state.CurrentItemID)
	if current < 0 {
		return nil
	}

	marker := -1
	for i, item := range items {
		m, ok := item.(sequence.TimeMarker)
		if !ok || m.Kind != sequence.MarkerSoft {
			continue
		}
		if m.ActivatesAt.Before(now) {
			marker = i
		}
	}
	if marker <= current {
		return nil
	}

	skipped := make(map[string]bool)
	for i := current + 1; i < marker; i++ {
		if p, ok := items[i].(sequence.PlayableItem); ok {
			skipped[p.ID] = true
		}
	}
	return skipped
}

// nextHardMarker finds the first hard marker after index i, regardless of
// intervening items.
func nextHardMarker(items []sequence.Item, i int) (sequence.TimeMarker, bool) {
	for j := i + 1; j < len(items); j++ {
		if m, ok := items[j].(sequence.TimeMarker); ok && m.Kind == sequence.MarkerHard {
			return m, true
		}
	}
	return sequence.TimeMarker{}, false
}

func applyAnchorOffset(sched *Schedule, items []sequence.Item, state transport.State, now time.Time) {
	var offset time.Duration

	switch {
	case state.Playing && state.CurrentItemID != "":
		entry, ok := sched.Entry(state.CurrentItemID)
		if !ok {
			return
		}
		trueStart := now.Add(-state.Progress)
		offset = trueStart.Sub(entry.StartsAt)
	case !state.Playing:
		p, ok := sequence.PlayableAt(items, state.CurrentIndex)
		if !ok {
			return
		}
		entry, ok := sched.Entry(p.ID)
		if !ok {
			return
		}
		offset = now.Sub(entry.StartsAt)
	default:
		return
	}

	if offset == 0 {
		return
	}
	for i := range sched.entries {
		sched.entries[i].StartsAt = sched.entries[i].StartsAt.Add(offset)
		sched.entries[i].EndsAt = sched.entries[i].EndsAt.Add(offset)
	}
}
