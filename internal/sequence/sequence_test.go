/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequence

import (
	"math"
	"testing"
	"time"
)

func items(ids ...string) []Item {
	out := make([]Item, 0, len(ids))
	for _, id := range ids {
		if id[0] == 'm' {
			out = append(out, TimeMarker{ID: id, ActivatesAt: time.Now(), Kind: MarkerHard})
			continue
		}
		out = append(out, PlayableItem{ID: id, Duration: time.Minute, Kind: KindSong})
	}
	return out
}

func TestDurationFromSeconds(t *testing.T) {
	cases := []struct {
		in   float64
		want time.Duration
	}{
		{180, 3 * time.Minute},
		{0.5, 500 * time.Millisecond},
		{-5, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tc := range cases {
		if got := DurationFromSeconds(tc.in); got != tc.want {
			t.Fatalf("DurationFromSeconds(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNextPlayableIndexWrapsAndSkipsMarkers(t *testing.T) {
	seq := items("a", "m1", "b")

	if got := NextPlayableIndex(seq, 0); got != 2 {
		t.Fatalf("next from 0 = %d, want 2", got)
	}
	if got := NextPlayableIndex(seq, 2); got != 0 {
		t.Fatalf("next from 2 = %d, want wrap to 0", got)
	}
}

func TestNextPlayableIndexNoOther(t *testing.T) {
	if got := NextPlayableIndex(items("a"), 0); got != -1 {
		t.Fatalf("single playable: next = %d, want -1", got)
	}
	if got := NextPlayableIndex(items("m1", "m2"), 0); got != -1 {
		t.Fatalf("marker-only: next = %d, want -1", got)
	}
	if got := NextPlayableIndex(nil, 0); got != -1 {
		t.Fatalf("empty: next = %d, want -1", got)
	}
}

func TestPrevPlayableIndexWraps(t *testing.T) {
	seq := items("a", "m1", "b")
	if got := PrevPlayableIndex(seq, 0); got != 2 {
		t.Fatalf("prev from 0 = %d, want wrap to 2", got)
	}
	if got := PrevPlayableIndex(seq, 2); got != 0 {
		t.Fatalf("prev from 2 = %d, want 0", got)
	}
}

func TestInsertBeforeAndAppend(t *testing.T) {
	seq := items("a", "b")

	seq = Insert(seq, PlayableItem{ID: "x", Kind: KindSong}, "b")
	if IndexOf(seq, "x") != 1 {
		t.Fatalf("x at %d, want 1", IndexOf(seq, "x"))
	}

	seq = Insert(seq, PlayableItem{ID: "y", Kind: KindSong}, "")
	if IndexOf(seq, "y") != len(seq)-1 {
		t.Fatal("empty beforeID must append")
	}

	seq = Insert(seq, PlayableItem{ID: "z", Kind: KindSong}, "ghost")
	if IndexOf(seq, "z") != len(seq)-1 {
		t.Fatal("unknown beforeID must append")
	}
}

func TestRemoveUnknownReturnsInput(t *testing.T) {
	seq := items("a", "b")
	if got := Remove(seq, "ghost"); len(got) != 2 {
		t.Fatalf("remove unknown changed length to %d", len(got))
	}
	if got := Remove(seq, "a"); len(got) != 1 || got[0].ItemID() != "b" {
		t.Fatal("remove a should leave only b")
	}
}

func TestMove(t *testing.T) {
	seq := items("a", "b", "c")

	seq = Move(seq, "c", "a")
	if seq[0].ItemID() != "c" {
		t.Fatalf("move c before a: got head %s", seq[0].ItemID())
	}

	seq = Move(seq, "c", "")
	if seq[len(seq)-1].ItemID() != "c" {
		t.Fatal("empty beforeID moves to end")
	}

	before := append([]Item(nil), seq...)
	seq = Move(seq, "ghost", "a")
	for i := range before {
		if seq[i].ItemID() != before[i].ItemID() {
			t.Fatal("moving an unknown id must be a no-op")
		}
	}
}

func TestFirstPlayableAndHasPlayable(t *testing.T) {
	if FirstPlayableIndex(items("m1", "a")) != 1 {
		t.Fatal("first playable should skip markers")
	}
	if HasPlayable(items("m1", "m2")) {
		t.Fatal("marker-only sequence has no playable")
	}
}
