/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("default port = %d", cfg.HTTPPort)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Fatalf("default backend = %s", cfg.DBBackend)
	}
	if cfg.ArtistSeparation != 60*time.Minute || cfg.TitleSeparation != 240*time.Minute {
		t.Fatalf("default separations = %v / %v", cfg.ArtistSeparation, cfg.TitleSeparation)
	}
	if cfg.EventBus != EventBusMemory {
		t.Fatalf("default event bus = %s", cfg.EventBus)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BRAGI_HTTP_PORT", "9999")
	t.Setenv("BRAGI_ARTIST_SEPARATION_MINUTES", "15")
	t.Setenv("BRAGI_EVENT_BUS", "nats")
	t.Setenv("BRAGI_ENGINE_TICK_MS", "250")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPPort != 9999 {
		t.Fatalf("port = %d", cfg.HTTPPort)
	}
	if cfg.ArtistSeparation != 15*time.Minute {
		t.Fatalf("artist separation = %v", cfg.ArtistSeparation)
	}
	if cfg.EventBus != EventBusNATS {
		t.Fatalf("event bus = %s", cfg.EventBus)
	}
	if cfg.EngineTick != 250*time.Millisecond {
		t.Fatalf("tick = %v", cfg.EngineTick)
	}
}

func TestLoadRejectsUnknownBackends(t *testing.T) {
	t.Setenv("BRAGI_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("unknown database backend must fail")
	}

	t.Setenv("BRAGI_DB_BACKEND", "sqlite")
	t.Setenv("BRAGI_EVENT_BUS", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("unknown event bus backend must fail")
	}
}

func TestPolicyFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := "artist_separation_minutes: 30\ntitle_separation_minutes: 120\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
	t.Setenv("BRAGI_POLICY_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ArtistSeparation != 30*time.Minute {
		t.Fatalf("artist separation = %v, want 30m from file", cfg.ArtistSeparation)
	}
	if cfg.TitleSeparation != 120*time.Minute {
		t.Fatalf("title separation = %v, want 2h from file", cfg.TitleSeparation)
	}
}

func TestPolicyFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
	t.Setenv("BRAGI_POLICY_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("malformed policy file must fail loading")
	}

	t.Setenv("BRAGI_POLICY_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("missing policy file must fail loading")
	}
}
