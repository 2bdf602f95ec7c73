/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package policy checks artist/title separation for song placements. The
// checks are advisory: a violation is a typed result for the caller to turn
// into a confirmation prompt, never a hard block.
package policy

import (
	"fmt"
	"time"

	"github.com/friendsincode/bragi_studio/internal/sequence"
	"github.com/friendsincode/bragi_studio/internal/timeline"
)

// Policy holds the minimum separation windows for repeated plays.
type Policy struct {
	ArtistSeparation time.Duration
	TitleSeparation  time.Duration
}

// HistoryEntry is one aired item from the playout log, prior art for
// separation checks that look backward past the start of the sequence.
type HistoryEntry struct {
	Artist   string
	Title    string
	PlayedAt time.Time
}

// Result is the advisory outcome of a placement check.
type Result struct {
	Valid  bool
	Reason string
}

// SuppressionResolver reports whether an item's library folder path carries
// the duplicate-warning suppression flag anywhere along its ancestry.
type SuppressionResolver interface {
	SuppressDuplicateWarning(originalID string) bool
}

type checkPoint struct {
	artist string
	title  string
	at     time.Time
}

// ValidatePlacement decides whether inserting candidate before insertBeforeID
// would violate the separation policy. Only songs with a non-empty artist are
// checked; jingles, ads, and voice tracks are exempt. Matching is
// case-sensitive exact string comparison, deliberately: see the known sharp
// edge noted in the project design log. The first violating check point wins.
func ValidatePlacement(candidate sequence.PlayableItem, insertBeforeID string, sched *timeline.Schedule, items []sequence.Item, history []HistoryEntry, pol Policy, now time.Time) Result {
	if candidate.Kind != sequence.KindSong || candidate.Artist == "" {
		return Result{Valid: true}
	}

	estimatedStart := estimateStart(insertBeforeID, sched, items, now)

	points := make([]checkPoint, 0, len(history)+sched.Len())
	for _, h := range history {
		points = append(points, checkPoint{artist: h.Artist, title: h.Title, at: h.PlayedAt})
	}
	for _, item := range items {
		p, ok := item.(sequence.PlayableItem)
		if !ok || p.Kind != sequence.KindSong {
			continue
		}
		entry, ok := sched.Entry(p.ID)
		if !ok {
			continue
		}
		points = append(points, checkPoint{artist: p.Artist, title: p.Title, at: entry.StartsAt})
	}

	for _, point := range points {
		diff := estimatedStart.Sub(point.at)
		if diff < 0 {
			diff = -diff
		}
		if point.artist != "" && point.artist == candidate.Artist && diff < pol.ArtistSeparation {
			return Result{
				Valid:  false,
				Reason: fmt.Sprintf("artist %s already plays %d minute(s) away; policy requires %d minute(s) separation", candidate.Artist, int(diff.Minutes()), int(pol.ArtistSeparation.Minutes())),
			}
		}
		if point.title == candidate.Title && diff < pol.TitleSeparation {
			return Result{
				Valid:  false,
				Reason: fmt.Sprintf("title %q already plays %d minute(s) away; policy requires %d minute(s) separation", candidate.Title, int(diff.Minutes()), int(pol.TitleSeparation.Minutes())),
			}
		}
	}

	return Result{Valid: true}
}

// estimateStart is the end time of the schedule entry immediately preceding
// the insertion point, or now when inserting at the head.
func estimateStart(insertBeforeID string, sched *timeline.Schedule, items []sequence.Item, now time.Time) time.Time {
	at := len(items)
	if insertBeforeID != "" {
		if i := sequence.IndexOf(items, insertBeforeID); i >= 0 {
			at = i
		}
	}
	for i := at - 1; i >= 0; i-- {
		p, ok := items[i].(sequence.PlayableItem)
		if !ok {
			continue
		}
		if entry, ok := sched.Entry(p.ID); ok {
			return entry.EndsAt
		}
	}
	return now
}

// DuplicateIDs runs the separation check over every ordered pair of
// scheduled songs and collects both ids of each violating pair, for UI
// warning highlighting. Items whose library folder path suppresses duplicate
// warnings neither contribute nor receive. O(n^2) over a day's playlist is
// fine; n is hundreds, not millions.
func DuplicateIDs(items []sequence.Item, sched *timeline.Schedule, pol Policy, resolver SuppressionResolver) map[string]struct{} {
	type scheduled struct {
		item  sequence.PlayableItem
		start time.Time
	}

	songs := make([]scheduled, 0, len(items))
	for _, item := range items {
		p, ok := item.(sequence.PlayableItem)
		if !ok || p.Kind != sequence.KindSong {
			continue
		}
		if resolver != nil && resolver.SuppressDuplicateWarning(p.OriginalID) {
			continue
		}
		entry, ok := sched.Entry(p.ID)
		if !ok {
			continue
		}
		songs = append(songs, scheduled{item: p, start: entry.StartsAt})
	}

	dupes := make(map[string]struct{})
	for i := 0; i < len(songs); i++ {
		for j := i + 1; j < len(songs); j++ {
			a, b := songs[i], songs[j]
			diff := b.start.Sub(a.start)
			if diff < 0 {
				diff = -diff
			}
			artistHit := a.item.Artist != "" && a.item.Artist == b.item.Artist && diff < pol.ArtistSeparation
			titleHit := a.item.Title == b.item.Title && diff < pol.TitleSeparation
			if artistHit || titleHit {
				dupes[a.item.ID] = struct{}{}
				dupes[b.item.ID] = struct{}{}
			}
		}
	}
	return dupes
}
