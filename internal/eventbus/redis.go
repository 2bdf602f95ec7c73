/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus fans events out to replica studio roles. The studio
// process remains the sole writer of transport state; these buses only carry
// observations outward and deliver remote observations locally.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/bragi_studio/internal/events"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisBus bridges the in-process bus over Redis pub/sub. When Redis becomes
// unreachable it degrades to local-only delivery (circuit breaker) instead of
// stalling playout.
type RedisBus struct {
	client *redis.Client
	logger zerolog.Logger
	local  *events.Bus
	nodeID string

	mu       sync.RWMutex
	subs     map[events.EventType][]events.Subscriber
	channels map[events.EventType]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	degraded  bool
	failCount int
	maxFails  int
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	MaxFailures int
}

// DefaultRedisConfig returns default Redis configuration.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxFailures:  5,
	}
}

// NewRedisBus creates a Redis-backed event bus. Connection failure is not an
// error: the bus starts degraded and serves local subscribers only.
func NewRedisBus(cfg RedisConfig, nodeID string, logger zerolog.Logger) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())

	rb := &RedisBus{
		logger:   logger.With().Str("component", "eventbus_redis").Logger(),
		local:    events.NewBus(),
		nodeID:   nodeID,
		maxFails: cfg.MaxFailures,
		subs:     make(map[events.EventType][]events.Subscriber),
		channels: make(map[events.EventType]*redis.PubSub),
		ctx:      ctx,
		cancel:   cancel,
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		rb.logger.Warn().Err(err).Msg("redis unreachable, event fan-out degraded to local delivery")
		rb.degraded = true
		_ = client.Close()
		return rb
	}

	rb.client = client
	rb.logger.Info().Str("addr", cfg.Addr).Msg("redis event bus initialized")
	return rb
}

// Subscribe registers a subscriber for an event type.
func (rb *RedisBus) Subscribe(eventType events.EventType) events.Subscriber {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	sub := rb.local.Subscribe(eventType)
	rb.subs[eventType] = append(rb.subs[eventType], sub)

	if rb.degraded {
		return sub
	}

	if _, exists := rb.channels[eventType]; !exists {
		pubsub := rb.client.Subscribe(rb.ctx, channelName(eventType))
		rb.channels[eventType] = pubsub
		rb.wg.Add(1)
		go rb.receive(eventType, pubsub)
	}
	return sub
}

// Publish delivers locally and mirrors the event to remote nodes.
func (rb *RedisBus) Publish(eventType events.EventType, payload events.Payload) {
	rb.local.Publish(eventType, payload)

	rb.mu.RLock()
	degraded := rb.degraded
	rb.mu.RUnlock()
	if degraded {
		return
	}

	data, err := json.Marshal(wireMessage{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    rb.nodeID,
	})
	if err != nil {
		rb.logger.Error().Err(err).Msg("marshal event for redis")
		return
	}

	ctx, cancel := context.WithTimeout(rb.ctx, 2*time.Second)
	defer cancel()
	if err := rb.client.Publish(ctx, channelName(eventType), data).Err(); err != nil {
		rb.logger.Error().Err(err).Str("event_type", string(eventType)).Msg("publish to redis failed")
		rb.recordFailure()
		return
	}

	rb.mu.Lock()
	rb.failCount = 0
	rb.mu.Unlock()
}

// Unsubscribe removes a subscriber.
func (rb *RedisBus) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	rb.mu.Lock()
	subs := rb.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			rb.subs[eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	remaining := len(rb.subs[eventType])
	pubsub, hadChannel := rb.channels[eventType]
	if remaining == 0 && hadChannel {
		delete(rb.channels, eventType)
	}
	rb.mu.Unlock()

	rb.local.Unsubscribe(eventType, sub)
	if remaining == 0 && hadChannel {
		_ = pubsub.Close()
	}
}

// Close shuts the bus down.
func (rb *RedisBus) Close() error {
	rb.cancel()
	rb.wg.Wait()

	rb.mu.Lock()
	for _, pubsub := range rb.channels {
		_ = pubsub.Close()
	}
	rb.channels = make(map[events.EventType]*redis.PubSub)
	client := rb.client
	rb.mu.Unlock()

	if client != nil {
		return client.Close()
	}
	return nil
}

func (rb *RedisBus) receive(eventType events.EventType, pubsub *redis.PubSub) {
	defer rb.wg.Done()
	rb.consume(eventType, pubsub.Channel())
}

// consume delivers remote messages until the bus stops or the subscription
// channel closes. A closed channel is the normal end of a subscription
// (Unsubscribe closes the pubsub when the last local subscriber leaves), not
// a backend failure, so it must not trip the circuit breaker.
func (rb *RedisBus) consume(eventType events.EventType, ch <-chan *redis.Message) {
	for {
		select {
		case <-rb.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				rb.logger.Warn().Str("event_type", string(eventType)).Msg("redis subscription channel closed")
				return
			}
			var wire wireMessage
			if err := json.Unmarshal([]byte(msg.Payload), &wire); err != nil {
				rb.logger.Error().Err(err).Msg("unmarshal redis event")
				continue
			}
			// Skip our own events to prevent double delivery.
			if wire.NodeID == rb.nodeID {
				continue
			}
			rb.local.Publish(eventType, wire.Payload)
		}
	}
}

func (rb *RedisBus) recordFailure() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.failCount++
	if rb.failCount >= rb.maxFails && !rb.degraded {
		rb.logger.Warn().Int("fail_count", rb.failCount).Msg("redis failure threshold reached, degrading to local delivery")
		rb.degraded = true
		if rb.client != nil {
			_ = rb.client.Close()
		}
	}
}

func channelName(eventType events.EventType) string {
	return fmt.Sprintf("bragi.events.%s", eventType)
}

// wireMessage is the JSON envelope shared by the Redis and NATS buses.
type wireMessage struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
}
