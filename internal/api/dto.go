/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"time"

	"github.com/friendsincode/bragi_studio/internal/sequence"
	"github.com/friendsincode/bragi_studio/internal/timeline"
	"github.com/friendsincode/bragi_studio/internal/transport"
	"github.com/google/uuid"
)

// sequenceItemDTO is the wire shape of one sequence element. Type
// discriminates playable items from markers.
type sequenceItemDTO struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	OriginalID      string  `json:"original_id,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Kind            string  `json:"kind,omitempty"`
	Artist          string  `json:"artist,omitempty"`
	Title           string  `json:"title,omitempty"`

	ActivatesAt *time.Time `json:"activates_at,omitempty"`
	MarkerKind  string     `json:"marker_kind,omitempty"`
}

const (
	typePlayable = "playable"
	typeMarker   = "marker"
)

func toDTO(item sequence.Item) sequenceItemDTO {
	switch v := item.(type) {
	case sequence.PlayableItem:
		return sequenceItemDTO{
			ID:              v.ID,
			Type:            typePlayable,
			OriginalID:      v.OriginalID,
			DurationSeconds: v.Duration.Seconds(),
			Kind:            string(v.Kind),
			Artist:          v.Artist,
			Title:           v.Title,
		}
	case sequence.TimeMarker:
		at := v.ActivatesAt
		return sequenceItemDTO{
			ID:          v.ID,
			Type:        typeMarker,
			ActivatesAt: &at,
			MarkerKind:  string(v.Kind),
		}
	}
	return sequenceItemDTO{}
}

func (d sequenceItemDTO) toItem() (sequence.Item, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	switch d.Type {
	case typeMarker:
		if d.ActivatesAt == nil {
			return nil, errMarkerTime
		}
		kind := sequence.MarkerKind(d.MarkerKind)
		if kind != sequence.MarkerHard && kind != sequence.MarkerSoft {
			return nil, errMarkerKind
		}
		return sequence.TimeMarker{ID: id, ActivatesAt: *d.ActivatesAt, Kind: kind}, nil
	case typePlayable, "":
		kind := sequence.ItemKind(d.Kind)
		if kind == "" {
			kind = sequence.KindSong
		}
		return sequence.PlayableItem{
			ID:         id,
			OriginalID: d.OriginalID,
			Duration:   sequence.DurationFromSeconds(d.DurationSeconds),
			Kind:       kind,
			Artist:     d.Artist,
			Title:      d.Title,
		}, nil
	}
	return nil, errItemType
}

// stateDTO is the wire shape of the transport state record.
type stateDTO struct {
	CurrentIndex    int    `json:"current_index"`
	CurrentItemID   string `json:"current_item_id"`
	Playing         bool   `json:"playing"`
	ProgressMS      int64  `json:"progress_ms"`
	StopAfterItemID string `json:"stop_after_item_id,omitempty"`
}

func stateToDTO(st transport.State) stateDTO {
	return stateDTO{
		CurrentIndex:    st.CurrentIndex,
		CurrentItemID:   st.CurrentItemID,
		Playing:         st.Playing,
		ProgressMS:      st.Progress.Milliseconds(),
		StopAfterItemID: st.StopAfterItemID,
	}
}

// scheduleEntryDTO is the wire shape of one computed timeline entry.
type scheduleEntryDTO struct {
	ItemID      string    `json:"item_id"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	EffectiveMS int64     `json:"effective_ms"`
	Skipped     bool      `json:"skipped"`
	ShortenedMS int64     `json:"shortened_ms"`
}

func scheduleToDTO(sched *timeline.Schedule) []scheduleEntryDTO {
	out := make([]scheduleEntryDTO, 0, sched.Len())
	for _, entry := range sched.Entries() {
		out = append(out, scheduleEntryDTO{
			ItemID:      entry.ItemID,
			StartsAt:    entry.StartsAt,
			EndsAt:      entry.EndsAt,
			EffectiveMS: entry.EffectiveDuration.Milliseconds(),
			Skipped:     entry.Skipped,
			ShortenedMS: entry.ShortenedBy.Milliseconds(),
		})
	}
	return out
}
