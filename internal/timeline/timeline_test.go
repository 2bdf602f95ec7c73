/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import (
	"testing"
	"time"

	"github.com/friendsincode/bragi_studio/internal/sequence"
	"github.com/friendsincode/bragi_studio/internal/transport"
)

var base = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func song(id string, dur time.Duration) sequence.PlayableItem {
	return sequence.PlayableItem{ID: id, Duration: dur, Kind: sequence.KindSong, Artist: "a-" + id, Title: "t-" + id}
}

func marker(id string, at time.Time, kind sequence.MarkerKind) sequence.TimeMarker {
	return sequence.TimeMarker{ID: id, ActivatesAt: at, Kind: kind}
}

func mustEntry(t *testing.T, sched *Schedule, id string) Entry {
	t.Helper()
	entry, ok := sched.Entry(id)
	if !ok {
		t.Fatalf("no schedule entry for %s", id)
	}
	return entry
}

func TestComputeContiguousWithoutMarkers(t *testing.T) {
	items := []sequence.Item{
		song("a", 3*time.Minute),
		song("b", 4*time.Minute),
		song("c", 2*time.Minute),
	}

	sched := Compute(items, transport.State{}, base)
	if sched.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", sched.Len())
	}

	prev := mustEntry(t, sched, "a")
	for _, id := range []string{"b", "c"} {
		entry := mustEntry(t, sched, id)
		if !entry.StartsAt.Equal(prev.EndsAt) {
			t.Fatalf("entry %s starts %v, want %v", id, entry.StartsAt, prev.EndsAt)
		}
		prev = entry
	}

	a := mustEntry(t, sched, "a")
	if a.EffectiveDuration != 3*time.Minute {
		t.Fatalf("effective duration = %v, want 3m", a.EffectiveDuration)
	}
}

func TestComputeEmptySequence(t *testing.T) {
	sched := Compute([]sequence.Item{}, transport.State{}, base)
	if sched.Len() != 0 {
		t.Fatalf("expected empty schedule, got %d entries", sched.Len())
	}
}

func TestComputeNilSequencePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on nil sequence")
		}
	}()
	Compute(nil, transport.State{}, base)
}

func TestHardMarkerTruncates(t *testing.T) {
	// "a" runs 10m but a hard marker fires 6m in.
	items := []sequence.Item{
		song("a", 10*time.Minute),
		marker("m", base.Add(6*time.Minute), sequence.MarkerHard),
		song("b", 3*time.Minute),
	}

	sched := Compute(items, transport.State{}, base)

	a := mustEntry(t, sched, "a")
	if !a.EndsAt.Equal(base.Add(6 * time.Minute)) {
		t.Fatalf("truncated end = %v, want %v", a.EndsAt, base.Add(6*time.Minute))
	}
	if a.ShortenedBy != 4*time.Minute {
		t.Fatalf("shortened by %v, want 4m", a.ShortenedBy)
	}
	if a.EffectiveDuration != 6*time.Minute {
		t.Fatalf("effective duration %v, want 6m", a.EffectiveDuration)
	}

	b := mustEntry(t, sched, "b")
	if !b.StartsAt.Equal(base.Add(6 * time.Minute)) {
		t.Fatalf("b starts %v, want marker time", b.StartsAt)
	}
}

func TestHardMarkerTruncatesAcrossInterveningItems(t *testing.T) {
	// The next hard marker in sequence order binds even with a song between.
	items := []sequence.Item{
		song("a", 30*time.Minute),
		song("b", 5*time.Minute),
		marker("m", base.Add(20*time.Minute), sequence.MarkerHard),
	}

	sched := Compute(items, transport.State{}, base)
	a := mustEntry(t, sched, "a")
	if !a.EndsAt.Equal(base.Add(20 * time.Minute)) {
		t.Fatalf("a ends %v, want truncated to marker", a.EndsAt)
	}
	if a.ShortenedBy != 10*time.Minute {
		t.Fatalf("a shortened by %v, want 10m", a.ShortenedBy)
	}
}

func TestMarkerInFutureCreatesGap(t *testing.T) {
	items := []sequence.Item{
		song("a", 3*time.Minute),
		marker("m", base.Add(10*time.Minute), sequence.MarkerHard),
		song("b", 2*time.Minute),
	}

	sched := Compute(items, transport.State{}, base)
	b := mustEntry(t, sched, "b")
	if !b.StartsAt.Equal(base.Add(10 * time.Minute)) {
		t.Fatalf("b starts %v, want pushed to marker activation", b.StartsAt)
	}
}

func TestPastMarkerNeverMovesPlayheadBack(t *testing.T) {
	items := []sequence.Item{
		song("a", 5*time.Minute),
		marker("m", base.Add(-time.Hour), sequence.MarkerHard),
		song("b", 2*time.Minute),
	}

	sched := Compute(items, transport.State{}, base)
	// The stale hard marker closes a's window entirely; its slot collapses and
	// b starts at now, not an hour in the past.
	a := mustEntry(t, sched, "a")
	if !a.Skipped {
		t.Fatal("a should be skipped: its window closed at the stale hard marker")
	}
	b := mustEntry(t, sched, "b")
	if !b.StartsAt.Equal(base) {
		t.Fatalf("b starts %v, want now", b.StartsAt)
	}
}

func TestShortenedFloorClampsRoundingNoise(t *testing.T) {
	items := []sequence.Item{
		song("a", 5*time.Minute+50*time.Millisecond),
		marker("m", base.Add(5*time.Minute), sequence.MarkerHard),
	}

	sched := Compute(items, transport.State{}, base)
	a := mustEntry(t, sched, "a")
	if a.ShortenedBy != 0 {
		t.Fatalf("sub-100ms truncation surfaced as ShortenedBy=%v", a.ShortenedBy)
	}
	if !a.EndsAt.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("end still truncates to marker, got %v", a.EndsAt)
	}
}

func TestSkippedItemDoesNotAdvancePlayhead(t *testing.T) {
	// "a" is fully behind the stale hard marker, so its window is closed;
	// "b" starts where "a" would have.
	items := []sequence.Item{
		song("a", 5*time.Minute),
		marker("m", base, sequence.MarkerHard),
		song("b", 2*time.Minute),
	}

	sched := Compute(items, transport.State{}, base)
	a := mustEntry(t, sched, "a")
	if !a.Skipped {
		t.Fatal("a should be skipped")
	}
	if a.EffectiveDuration != 0 {
		t.Fatalf("skipped item effective duration %v, want 0", a.EffectiveDuration)
	}
	b := mustEntry(t, sched, "b")
	if !b.StartsAt.Equal(base) {
		t.Fatalf("b starts %v, want %v (skipped slot collapses)", b.StartsAt, base)
	}
}

func TestSoftMarkerSkipsOwedItemsWhilePlaying(t *testing.T) {
	state := transport.State{CurrentIndex: 0, CurrentItemID: "a", Playing: true, Progress: time.Minute}
	items := []sequence.Item{
		song("a", 5*time.Minute),
		song("b", 3*time.Minute),
		song("c", 3*time.Minute),
		marker("m", base.Add(-time.Minute), sequence.MarkerSoft),
		song("d", 3*time.Minute),
	}

	sched := Compute(items, state, base)

	for _, id := range []string{"b", "c"} {
		if !mustEntry(t, sched, id).Skipped {
			t.Fatalf("%s should be soft-skipped", id)
		}
	}
	if mustEntry(t, sched, "a").Skipped {
		t.Fatal("playing item must never be soft-skipped")
	}
	if mustEntry(t, sched, "d").Skipped {
		t.Fatal("item after the soft marker must not be skipped")
	}
}

func TestSoftMarkerIgnoredWhilePaused(t *testing.T) {
	state := transport.State{CurrentIndex: 0, CurrentItemID: "a", Playing: false}
	items := []sequence.Item{
		song("a", 5*time.Minute),
		song("b", 3*time.Minute),
		marker("m", base.Add(-time.Minute), sequence.MarkerSoft),
		song("c", 3*time.Minute),
	}

	sched := Compute(items, state, base)
	if mustEntry(t, sched, "b").Skipped {
		t.Fatal("soft skip must only apply while playing")
	}
}

func TestLastPassedSoftMarkerWins(t *testing.T) {
	state := transport.State{CurrentIndex: 0, CurrentItemID: "a", Playing: true}
	items := []sequence.Item{
		song("a", 5*time.Minute),
		song("b", 3*time.Minute),
		marker("m1", base.Add(-10*time.Minute), sequence.MarkerSoft),
		song("c", 3*time.Minute),
		marker("m2", base.Add(-time.Minute), sequence.MarkerSoft),
		song("d", 3*time.Minute),
	}

	sched := Compute(items, state, base)
	if !mustEntry(t, sched, "b").Skipped || !mustEntry(t, sched, "c").Skipped {
		t.Fatal("everything before the rightmost passed soft marker is owed and skipped")
	}
	if mustEntry(t, sched, "d").Skipped {
		t.Fatal("d is after the rightmost passed marker")
	}
}

func TestAnchorWhilePlaying(t *testing.T) {
	// 90s into "b": its derived start must equal now - progress.
	state := transport.State{CurrentIndex: 1, CurrentItemID: "b", Playing: true, Progress: 90 * time.Second}
	items := []sequence.Item{
		song("a", 3*time.Minute),
		song("b", 4*time.Minute),
		song("c", 2*time.Minute),
	}

	sched := Compute(items, state, base)
	b := mustEntry(t, sched, "b")
	wantStart := base.Add(-90 * time.Second)
	if !b.StartsAt.Equal(wantStart) {
		t.Fatalf("playing item starts %v, want %v", b.StartsAt, wantStart)
	}
	// The offset is uniform: c still starts exactly at b's end.
	c := mustEntry(t, sched, "c")
	if !c.StartsAt.Equal(b.EndsAt) {
		t.Fatalf("offset must shift all entries equally")
	}
}

func TestAnchorWhilePaused(t *testing.T) {
	state := transport.State{CurrentIndex: 1, CurrentItemID: "b", Playing: false}
	items := []sequence.Item{
		song("a", 3*time.Minute),
		song("b", 4*time.Minute),
	}

	sched := Compute(items, state, base)
	b := mustEntry(t, sched, "b")
	if !b.StartsAt.Equal(base) {
		t.Fatalf("paused selected item starts %v, want now", b.StartsAt)
	}
	a := mustEntry(t, sched, "a")
	if !a.StartsAt.Equal(base.Add(-3 * time.Minute)) {
		t.Fatalf("prior item shifts by the same offset, got %v", a.StartsAt)
	}
}

func TestNegativeDurationClampedToZero(t *testing.T) {
	items := []sequence.Item{
		sequence.PlayableItem{ID: "a", Duration: -time.Minute, Kind: sequence.KindSong},
		song("b", time.Minute),
	}

	sched := Compute(items, transport.State{}, base)
	a := mustEntry(t, sched, "a")
	if !a.EndsAt.Equal(a.StartsAt) {
		t.Fatalf("negative duration must collapse to zero-length entry")
	}
	b := mustEntry(t, sched, "b")
	if !b.StartsAt.Equal(base) {
		t.Fatalf("b starts %v, want %v", b.StartsAt, base)
	}
}
