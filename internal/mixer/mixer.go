/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package mixer derives bus gains from transport and monitoring state. It is
// a satellite of the transport: every relevant state change re-derives the
// full gain set rather than mutating individual faders.
package mixer

import (
	"sync"

	"github.com/friendsincode/bragi_studio/internal/events"
	"github.com/rs/zerolog"
)

// Duck levels. PFL pulls the monitor bus down so the cue feed is audible;
// a live mic pulls the program bus down under the voice.
const (
	gainFull        = 1.0
	monitorDuckPFL  = 0.2
	programDuckMic  = 0.3
	programDuckCart = 0.7
)

// Input is the state the gain derivation reacts to.
type Input struct {
	Playing        bool
	PFLActive      bool
	MicLive        bool
	CartwallActive bool
}

// Gains are linear per-bus gain factors in [0,1].
type Gains struct {
	Program float64 `json:"program"`
	Monitor float64 `json:"monitor"`
	PFL     float64 `json:"pfl"`
}

// Derive computes bus gains for the given input. Pure function.
func Derive(in Input) Gains {
	g := Gains{Program: gainFull, Monitor: gainFull, PFL: 0}

	if in.PFLActive {
		g.PFL = gainFull
		g.Monitor = monitorDuckPFL
	}
	if in.MicLive {
		g.Program = programDuckMic
	} else if in.CartwallActive {
		g.Program = programDuckCart
	}
	if !in.Playing {
		// Nothing on program; keep the bus open so the next start is clean.
		g.Program = gainFull
		if in.MicLive {
			g.Program = programDuckMic
		}
	}
	return g
}

// Publisher is the event bus surface the controller needs.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Controller tracks mixer input state and publishes gain changes on the bus.
type Controller struct {
	bus    Publisher
	logger zerolog.Logger

	mu    sync.Mutex
	in    Input
	gains Gains
}

// NewController creates a mixer controller.
func NewController(bus Publisher, logger zerolog.Logger) *Controller {
	c := &Controller{
		bus:    bus,
		logger: logger.With().Str("component", "mixer").Logger(),
	}
	c.gains = Derive(c.in)
	return c
}

// Gains returns the current gain set.
func (c *Controller) Gains() Gains {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gains
}

// SetPFL toggles pre-fade listen monitoring.
func (c *Controller) SetPFL(active bool) {
	c.update(func(in *Input) { in.PFLActive = active })
}

// SetMicLive toggles the studio microphone.
func (c *Controller) SetMicLive(live bool) {
	c.update(func(in *Input) { in.MicLive = live })
}

// SetCartwallActive toggles cartwall playback.
func (c *Controller) SetCartwallActive(active bool) {
	c.update(func(in *Input) { in.CartwallActive = active })
}

// SetPlaying mirrors the transport playing flag.
func (c *Controller) SetPlaying(playing bool) {
	c.update(func(in *Input) { in.Playing = playing })
}

func (c *Controller) update(apply func(*Input)) {
	c.mu.Lock()
	apply(&c.in)
	next := Derive(c.in)
	changed := next != c.gains
	c.gains = next
	c.mu.Unlock()

	if !changed {
		return
	}
	c.logger.Debug().
		Float64("program", next.Program).
		Float64("monitor", next.Monitor).
		Float64("pfl", next.PFL).
		Msg("bus gains changed")
	c.bus.Publish(events.EventMixerGains, events.Payload{
		"program": next.Program,
		"monitor": next.Monitor,
		"pfl":     next.PFL,
	})
}
