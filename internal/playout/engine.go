/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package playout runs the studio automation engine: it owns the show
// sequence and the transport state, re-derives the timeline schedule, records
// aired items, and publishes every observable change on the event bus.
package playout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/friendsincode/bragi_studio/internal/events"
	"github.com/friendsincode/bragi_studio/internal/policy"
	"github.com/friendsincode/bragi_studio/internal/sequence"
	"github.com/friendsincode/bragi_studio/internal/telemetry"
	"github.com/friendsincode/bragi_studio/internal/timeline"
	"github.com/friendsincode/bragi_studio/internal/transport"
	"github.com/rs/zerolog"
)

// EventBus is the pubsub surface the engine publishes on. Satisfied by the
// in-process bus and by the Redis and NATS bridges.
type EventBus interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Publish(eventType events.EventType, payload events.Payload)
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

// AudioTransport is the playback backend. When nil, the engine drives
// progress from its own tick clock, which is how headless and test
// deployments run.
type AudioTransport interface {
	LoadAndPlay(itemID string) error
	Pause() error
	Seek(offset time.Duration) error
}

// HistoryRecorder persists aired items and serves the policy lookback window.
type HistoryRecorder interface {
	Append(ctx context.Context, itemID, artist, title string, playedAt time.Time) error
	Recent(ctx context.Context, since time.Time) ([]policy.HistoryEntry, error)
}

// Options configures an Engine.
type Options struct {
	Bus      EventBus
	Audio    AudioTransport
	History  HistoryRecorder
	Resolver policy.SuppressionResolver
	Policy   policy.Policy
	Tick     time.Duration
	Logger   zerolog.Logger

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the single writer of transport state. Every mutation happens
// under one lock and ends with a schedule recompute and event publication.
type Engine struct {
	mu    sync.Mutex
	items []sequence.Item
	state transport.State
	sched *timeline.Schedule

	bus      EventBus
	audio    AudioTransport
	history  HistoryRecorder
	resolver policy.SuppressionResolver
	pol      policy.Policy
	tick     time.Duration
	logger   zerolog.Logger
	nowFn    func() time.Time

	lastFingerprint string
	lastTick        time.Time
}

// NewEngine creates a playout engine with an empty sequence.
func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Tick <= 0 {
		opts.Tick = time.Second
	}
	e := &Engine{
		items:    []sequence.Item{},
		bus:      opts.Bus,
		audio:    opts.Audio,
		history:  opts.History,
		resolver: opts.Resolver,
		pol:      opts.Policy,
		tick:     opts.Tick,
		logger:   opts.Logger.With().Str("component", "playout").Logger(),
		nowFn:    opts.Now,
	}
	e.sched = timeline.Compute(e.items, e.state, e.nowFn())
	return e
}

// SetSequence replaces the show sequence wholesale, reconciling the transport
// against the new contents.
func (e *Engine) SetSequence(items []sequence.Item) {
	if items == nil {
		items = []sequence.Item{}
	}
	e.mu.Lock()
	e.items = items
	e.state.Reconcile(e.items)
	e.recomputeLocked()
	e.mu.Unlock()

	e.publish(events.EventSequenceUpdate, events.Payload{"length": len(items)})
	e.publishState()
}

// Sequence returns a copy of the current show sequence.
func (e *Engine) Sequence() []sequence.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sequence.Item(nil), e.items...)
}

// State returns the current transport state record.
func (e *Engine) State() transport.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Schedule returns the most recently computed timeline schedule.
func (e *Engine) Schedule() *timeline.Schedule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched
}

// TogglePlay flips play/pause.
func (e *Engine) TogglePlay() {
	telemetry.TransportOpsTotal.WithLabelValues("toggle_play").Inc()

	e.mu.Lock()
	wasPlaying := e.state.Playing
	before := e.state.CurrentItemID
	e.state.TogglePlay(e.items)
	changed := e.state.Playing != wasPlaying
	started := !wasPlaying && e.state.Playing
	itemID := e.state.CurrentItemID
	e.recomputeLocked()
	e.mu.Unlock()

	if !changed {
		return
	}
	e.syncAudio(started, itemID, before != itemID)
	e.publishState()
}

// Next advances to the following playable item.
func (e *Engine) Next() {
	telemetry.TransportOpsTotal.WithLabelValues("next").Inc()
	e.move(func() { e.state.Next(e.items) })
}

// Previous restarts the current item or moves back one.
func (e *Engine) Previous() {
	telemetry.TransportOpsTotal.WithLabelValues("previous").Inc()
	e.move(func() { e.state.Previous(e.items) })
}

// PlayItem jumps to the item with id and starts playback.
func (e *Engine) PlayItem(id string) {
	telemetry.TransportOpsTotal.WithLabelValues("play_item").Inc()

	e.mu.Lock()
	before := e.state
	e.state.PlayItem(e.items, id)
	changed := e.state != before
	itemID := e.state.CurrentItemID
	e.recomputeLocked()
	e.mu.Unlock()

	if !changed {
		return
	}
	e.syncAudio(true, itemID, true)
	e.publishState()
	e.publish(events.EventNowPlaying, events.Payload{"item_id": itemID})
}

// SetStopAfter arms or clears the one-shot stop-after flag.
func (e *Engine) SetStopAfter(id string) {
	telemetry.TransportOpsTotal.WithLabelValues("set_stop_after").Inc()

	e.mu.Lock()
	before := e.state.StopAfterItemID
	e.state.SetStopAfter(e.items, id)
	changed := e.state.StopAfterItemID != before
	e.mu.Unlock()

	if changed {
		e.publishState()
	}
}

// OnProgressTick records elapsed playback time reported by the audio
// transport.
func (e *Engine) OnProgressTick(elapsed time.Duration) {
	e.mu.Lock()
	e.state.OnProgressTick(elapsed)
	e.mu.Unlock()
}

// OnItemEnded handles the edge-triggered end-of-item signal: the finished
// item is recorded to history, then the transport advances or stops.
func (e *Engine) OnItemEnded(ctx context.Context) {
	e.mu.Lock()
	ended, hadItem := sequence.PlayableAt(e.items, e.state.CurrentIndex)
	wasPlaying := e.state.Playing
	e.state.OnItemEnded(e.items)
	nowPlaying := e.state.CurrentItemID
	stillPlaying := e.state.Playing
	e.recomputeLocked()
	now := e.nowFn()
	e.mu.Unlock()

	if !hadItem {
		return
	}
	if wasPlaying {
		e.recordAired(ctx, ended, now)
	}

	e.publish(events.EventItemEnded, events.Payload{"item_id": ended.ID})
	if stillPlaying {
		e.syncAudio(true, nowPlaying, true)
		e.publish(events.EventNowPlaying, events.Payload{"item_id": nowPlaying})
	} else if e.audio != nil {
		if err := e.audio.Pause(); err != nil {
			e.logger.Error().Err(err).Msg("pause audio transport")
		}
	}
	e.publishState()
}

// ValidateInsert runs the separation policy against a candidate placement
// without mutating the sequence.
func (e *Engine) ValidateInsert(ctx context.Context, candidate sequence.PlayableItem, beforeID string) policy.Result {
	e.mu.Lock()
	items := append([]sequence.Item(nil), e.items...)
	sched := e.sched
	now := e.nowFn()
	e.mu.Unlock()

	res := policy.ValidatePlacement(candidate, beforeID, sched, items, e.lookback(ctx, now), e.pol, now)
	if !res.Valid {
		telemetry.PolicyRejectionsTotal.Inc()
		e.publish(events.EventPolicyWarning, events.Payload{
			"item_id": candidate.ID,
			"reason":  res.Reason,
		})
	}
	return res
}

// InsertItem places item before beforeID (append on empty) and returns the
// advisory policy result. The insert always happens; the result is for the
// caller to surface as a confirmation prompt.
func (e *Engine) InsertItem(ctx context.Context, item sequence.Item, beforeID string) policy.Result {
	res := policy.Result{Valid: true}
	if p, ok := item.(sequence.PlayableItem); ok {
		res = e.ValidateInsert(ctx, p, beforeID)
	}

	e.mu.Lock()
	e.items = sequence.Insert(e.items, item, beforeID)
	e.state.Reconcile(e.items)
	e.recomputeLocked()
	e.mu.Unlock()

	e.publish(events.EventSequenceUpdate, events.Payload{"inserted": item.ItemID()})
	return res
}

// RemoveItem deletes the element with id from the sequence.
func (e *Engine) RemoveItem(id string) {
	e.mu.Lock()
	before := len(e.items)
	e.items = sequence.Remove(e.items, id)
	changed := len(e.items) != before
	if changed {
		e.state.Reconcile(e.items)
		e.recomputeLocked()
	}
	e.mu.Unlock()

	if changed {
		e.publish(events.EventSequenceUpdate, events.Payload{"removed": id})
		e.publishState()
	}
}

// MoveItem repositions the element with id before beforeID.
func (e *Engine) MoveItem(id, beforeID string) {
	e.mu.Lock()
	e.items = sequence.Move(e.items, id, beforeID)
	e.state.Reconcile(e.items)
	e.recomputeLocked()
	e.mu.Unlock()

	e.publish(events.EventSequenceUpdate, events.Payload{"moved": id})
}

// Duplicates returns the ids of all scheduled songs involved in a separation
// violation, for warning highlighting.
func (e *Engine) Duplicates() map[string]struct{} {
	e.mu.Lock()
	items := append([]sequence.Item(nil), e.items...)
	sched := e.sched
	e.mu.Unlock()
	return policy.DuplicateIDs(items, sched, e.pol, e.resolver)
}

// Run drives the engine clock until ctx is cancelled. Each tick re-derives
// the schedule (wall clock moved, so derived times moved) and, when no audio
// transport is attached, advances playback progress internally.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.logger.Info().Dur("tick", e.tick).Msg("playout engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Info().Msg("playout engine stopped")
			return
		case <-ticker.C:
			e.step(ctx)
		}
	}
}

func (e *Engine) step(ctx context.Context) {
	tickCtx, span := telemetry.StartSpan(ctx, "playout", "engine.tick")
	defer span.End()

	telemetry.EngineTicksTotal.Inc()
	now := e.nowFn()

	e.mu.Lock()
	elapsed := now.Sub(e.lastTick)
	if e.lastTick.IsZero() || elapsed < 0 {
		elapsed = 0
	}
	e.lastTick = now

	selfClocked := e.audio == nil && e.state.Playing
	var finished bool
	if selfClocked {
		e.state.Progress += elapsed
		if entry, ok := e.sched.Entry(e.state.CurrentItemID); ok {
			finished = entry.EffectiveDuration > 0 && e.state.Progress >= entry.EffectiveDuration
		}
	}

	start := time.Now()
	e.recomputeLocked()
	telemetry.TimelineComputeDuration.Observe(time.Since(start).Seconds())

	fp := fingerprint(e.sched)
	schedChanged := fp != e.lastFingerprint
	e.lastFingerprint = fp
	sched := e.sched
	skipped := 0
	for _, entry := range sched.Entries() {
		if entry.Skipped {
			skipped++
		}
	}
	seqLen := len(e.items)
	playing := e.state.Playing
	e.mu.Unlock()

	telemetry.AddSpanAttributes(span, map[string]any{
		"sequence.length":   seqLen,
		"schedule.skipped":  skipped,
		"transport.playing": playing,
	})

	if finished {
		e.OnItemEnded(tickCtx)
	}
	if schedChanged {
		e.publish(events.EventScheduleUpdate, schedulePayload(sched))
	}
}

func (e *Engine) move(op func()) {
	e.mu.Lock()
	before := e.state
	op()
	changed := e.state != before
	itemID := e.state.CurrentItemID
	playing := e.state.Playing
	e.recomputeLocked()
	e.mu.Unlock()

	if !changed {
		return
	}
	if before.CurrentItemID == itemID {
		// Previous inside the restart window: same item from the top.
		if e.audio != nil {
			if err := e.audio.Seek(0); err != nil {
				e.logger.Error().Err(err).Msg("seek audio transport")
			}
		}
	} else {
		e.syncAudio(playing, itemID, true)
	}
	e.publishState()
	if playing && before.CurrentItemID != itemID {
		e.publish(events.EventNowPlaying, events.Payload{"item_id": itemID})
	}
}

// recomputeLocked re-derives the schedule. Caller holds e.mu.
func (e *Engine) recomputeLocked() {
	e.sched = timeline.Compute(e.items, e.state, e.nowFn())
}

func (e *Engine) recordAired(ctx context.Context, item sequence.PlayableItem, playedAt time.Time) {
	if e.history == nil {
		return
	}
	if err := e.history.Append(ctx, item.ID, item.Artist, item.Title, playedAt); err != nil {
		e.logger.Error().Err(err).Str("item", item.ID).Msg("record playout history")
	}
}

// lookback fetches prior plays covering the widest separation window.
func (e *Engine) lookback(ctx context.Context, now time.Time) []policy.HistoryEntry {
	if e.history == nil {
		return nil
	}
	window := e.pol.ArtistSeparation
	if e.pol.TitleSeparation > window {
		window = e.pol.TitleSeparation
	}
	entries, err := e.history.Recent(ctx, now.Add(-window))
	if err != nil {
		e.logger.Error().Err(err).Msg("query playout history")
		return nil
	}
	return entries
}

func (e *Engine) syncAudio(play bool, itemID string, itemChanged bool) {
	if e.audio == nil {
		return
	}
	if play && itemID != "" && itemChanged {
		if err := e.audio.LoadAndPlay(itemID); err != nil {
			e.logger.Error().Err(err).Str("item", itemID).Msg("load audio item")
		}
		return
	}
	if !play {
		if err := e.audio.Pause(); err != nil {
			e.logger.Error().Err(err).Msg("pause audio transport")
		}
	}
}

func (e *Engine) publish(eventType events.EventType, payload events.Payload) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventType, payload)
}

func (e *Engine) publishState() {
	e.mu.Lock()
	st := e.state
	e.mu.Unlock()
	e.publish(events.EventPlayerState, events.Payload{
		"current_index":      st.CurrentIndex,
		"current_item_id":    st.CurrentItemID,
		"playing":            st.Playing,
		"progress_ms":        st.Progress.Milliseconds(),
		"stop_after_item_id": st.StopAfterItemID,
	})
}

func schedulePayload(sched *timeline.Schedule) events.Payload {
	entries := make([]map[string]any, 0, sched.Len())
	for _, entry := range sched.Entries() {
		entries = append(entries, map[string]any{
			"item_id":      entry.ItemID,
			"starts_at":    entry.StartsAt,
			"ends_at":      entry.EndsAt,
			"effective_ms": entry.EffectiveDuration.Milliseconds(),
			"skipped":      entry.Skipped,
			"shortened_ms": entry.ShortenedBy.Milliseconds(),
		})
	}
	return events.Payload{"entries": entries}
}

// fingerprint summarizes the schedule coarsely enough that the per-tick clock
// drift of derived times does not count as a change, while membership, order,
// skips, and truncations do.
func fingerprint(sched *timeline.Schedule) string {
	var b strings.Builder
	for _, entry := range sched.Entries() {
		fmt.Fprintf(&b, "%s:%t:%d:%d;", entry.ItemID, entry.Skipped, entry.EffectiveDuration.Milliseconds(), entry.ShortenedBy.Milliseconds())
	}
	return b.String()
}
