/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBusBackend selects how events fan out to replica roles.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	MetricsBind string

	DBBackend DatabaseBackend
	DBDSN     string

	// Engine tick cadence; the timeline is re-derived on every tick because
	// "now" advances even when nothing else changes.
	EngineTick time.Duration

	// Playout policy defaults; the optional policy file overrides these at
	// load time, and a station settings row in the database overrides both
	// at server assembly.
	ArtistSeparation time.Duration
	TitleSeparation  time.Duration
	PolicyFile       string

	// Event bus configuration
	EventBus      EventBusBackend
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	NATSURL       string
	InstanceID    string

	// Tracing configuration
	TracingEnabled    bool
	OTLPEndpoint      string
	TracingSampleRate float64
}

// PolicyFileDoc is the YAML shape of the optional playout policy file.
type PolicyFileDoc struct {
	ArtistSeparationMinutes int `yaml:"artist_separation_minutes"`
	TitleSeparationMinutes  int `yaml:"title_separation_minutes"`
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("BRAGI_ENV", "development"),
		HTTPBind:    getEnv("BRAGI_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("BRAGI_HTTP_PORT", 8080),
		MetricsBind: getEnv("BRAGI_METRICS_BIND", "127.0.0.1:9000"),

		DBBackend: DatabaseBackend(getEnv("BRAGI_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:     getEnv("BRAGI_DB_DSN", "bragi.db"),

		EngineTick: time.Duration(getEnvInt("BRAGI_ENGINE_TICK_MS", 1000)) * time.Millisecond,

		ArtistSeparation: time.Duration(getEnvInt("BRAGI_ARTIST_SEPARATION_MINUTES", 60)) * time.Minute,
		TitleSeparation:  time.Duration(getEnvInt("BRAGI_TITLE_SEPARATION_MINUTES", 240)) * time.Minute,
		PolicyFile:       getEnv("BRAGI_POLICY_FILE", ""),

		EventBus:      EventBusBackend(getEnv("BRAGI_EVENT_BUS", string(EventBusMemory))),
		RedisAddr:     getEnv("BRAGI_REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("BRAGI_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("BRAGI_REDIS_DB", 0),
		NATSURL:       getEnv("BRAGI_NATS_URL", "nats://localhost:4222"),
		InstanceID:    getEnv("BRAGI_INSTANCE_ID", ""),

		TracingEnabled:    getEnvBool("BRAGI_TRACING_ENABLED", false),
		OTLPEndpoint:      getEnv("BRAGI_OTLP_ENDPOINT", "localhost:4317"),
		TracingSampleRate: getEnvFloat("BRAGI_TRACING_SAMPLE_RATE", 1.0),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("BRAGI_DB_DSN must be provided")
	}
	if cfg.EventBus != EventBusMemory && cfg.EventBus != EventBusRedis && cfg.EventBus != EventBusNATS {
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBus)
	}
	if cfg.EngineTick <= 0 {
		cfg.EngineTick = time.Second
	}

	if cfg.PolicyFile != "" {
		if err := cfg.applyPolicyFile(cfg.PolicyFile); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *Config) applyPolicyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy file: %w", err)
	}
	var doc PolicyFileDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if doc.ArtistSeparationMinutes > 0 {
		c.ArtistSeparation = time.Duration(doc.ArtistSeparationMinutes) * time.Minute
	}
	if doc.TitleSeparationMinutes > 0 {
		c.TitleSeparation = time.Duration(doc.TitleSeparationMinutes) * time.Minute
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(strings.TrimSpace(val))
		if val == "true" || val == "1" || val == "yes" {
			return true
		}
		if val == "false" || val == "0" || val == "no" {
			return false
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return def
}
