/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package eventbus

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/friendsincode/bragi_studio/internal/events"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSBus bridges the in-process bus over NATS core pub/sub. Subject pattern
// is "bragi.events.{event_type}". Like the Redis bus it degrades to
// local-only delivery when the server is unreachable.
type NATSBus struct {
	conn   *nats.Conn
	logger zerolog.Logger
	local  *events.Bus
	nodeID string

	mu       sync.Mutex
	natsSubs map[events.EventType]*nats.Subscription
}

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewNATSBus creates a NATS-backed event bus.
func NewNATSBus(cfg NATSConfig, nodeID string, logger zerolog.Logger) *NATSBus {
	nb := &NATSBus{
		logger:   logger.With().Str("component", "eventbus_nats").Logger(),
		local:    events.NewBus(),
		nodeID:   nodeID,
		natsSubs: make(map[events.EventType]*nats.Subscription),
	}

	conn, err := nats.Connect(cfg.URL,
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		nb.logger.Warn().Err(err).Msg("nats unreachable, event fan-out degraded to local delivery")
		return nb
	}

	nb.conn = conn
	nb.logger.Info().Str("url", cfg.URL).Msg("nats event bus initialized")
	return nb
}

// Subscribe registers a subscriber for an event type.
func (nb *NATSBus) Subscribe(eventType events.EventType) events.Subscriber {
	sub := nb.local.Subscribe(eventType)

	nb.mu.Lock()
	defer nb.mu.Unlock()

	if nb.conn == nil {
		return sub
	}

	if _, exists := nb.natsSubs[eventType]; !exists {
		natsSub, err := nb.conn.Subscribe(channelName(eventType), func(msg *nats.Msg) {
			var wire wireMessage
			if err := json.Unmarshal(msg.Data, &wire); err != nil {
				nb.logger.Error().Err(err).Msg("unmarshal nats event")
				return
			}
			if wire.NodeID == nb.nodeID {
				return
			}
			nb.local.Publish(eventType, wire.Payload)
		})
		if err != nil {
			nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("nats subscribe failed")
			return sub
		}
		nb.natsSubs[eventType] = natsSub
	}
	return sub
}

// Publish delivers locally and mirrors the event to remote nodes.
func (nb *NATSBus) Publish(eventType events.EventType, payload events.Payload) {
	nb.local.Publish(eventType, payload)

	nb.mu.Lock()
	conn := nb.conn
	nb.mu.Unlock()
	if conn == nil {
		return
	}

	data, err := json.Marshal(wireMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nb.nodeID,
	})
	if err != nil {
		nb.logger.Error().Err(err).Msg("marshal event for nats")
		return
	}

	if err := conn.Publish(channelName(eventType), data); err != nil {
		nb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("publish to nats failed")
	}
}

// Unsubscribe removes a subscriber.
func (nb *NATSBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	nb.local.Unsubscribe(eventType, sub)
}

// Close drains and closes the NATS connection.
func (nb *NATSBus) Close() error {
	nb.mu.Lock()
	defer nb.mu.Unlock()

	for _, natsSub := range nb.natsSubs {
		_ = natsSub.Unsubscribe()
	}
	nb.natsSubs = make(map[events.EventType]*nats.Subscription)

	if nb.conn != nil {
		if err := nb.conn.Drain(); err != nil {
			return err
		}
		nb.conn = nil
	}
	return nil
}
