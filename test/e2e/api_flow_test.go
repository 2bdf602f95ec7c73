/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package e2e exercises the full HTTP API surface against an assembled studio
// core: database, engine, mixer, and routes wired exactly as the server does.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/friendsincode/bragi_studio/internal/api"
	"github.com/friendsincode/bragi_studio/internal/events"
	"github.com/friendsincode/bragi_studio/internal/history"
	"github.com/friendsincode/bragi_studio/internal/library"
	"github.com/friendsincode/bragi_studio/internal/mixer"
	"github.com/friendsincode/bragi_studio/internal/models"
	"github.com/friendsincode/bragi_studio/internal/playout"
	"github.com/friendsincode/bragi_studio/internal/policy"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := zerolog.Nop()
	bus := events.NewBus()
	lib := library.New(db, logger)
	hist := history.NewStore(db, logger)
	engine := playout.NewEngine(playout.Options{
		Bus:      bus,
		History:  hist,
		Resolver: lib,
		Policy:   policy.Policy{ArtistSeparation: time.Hour, TitleSeparation: 4 * time.Hour},
		Logger:   logger,
	})
	handler := api.NewHandler(engine, mixer.NewController(bus, logger), hist, lib, logger)

	r := chi.NewRouter()
	handler.Routes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

// TestStudioFlow walks a full operator session: build a show, save and
// reload it, drive the transport, and check the warnings surface.
func TestStudioFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e tests in short mode")
	}

	server := setupServer(t)

	post := func(path string, body any) map[string]any {
		t.Helper()
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(raw))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			t.Fatalf("POST %s: status %d", path, resp.StatusCode)
		}
		out := map[string]any{}
		if resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return out
	}
	get := func(path string) map[string]any {
		t.Helper()
		resp, err := http.Get(server.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		out := map[string]any{}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
		return out
	}

	// Build a three item show.
	for i, meta := range []struct{ artist, title string }{
		{"Kraftwerk", "Autobahn"},
		{"Neu!", "Hallogallo"},
		{"Kraftwerk", "The Model"},
	} {
		res := post("/v1/sequence/items", map[string]any{
			"item": map[string]any{
				"id":               fmt.Sprintf("item-%d", i),
				"type":             "playable",
				"kind":             "song",
				"artist":           meta.artist,
				"title":            meta.title,
				"duration_seconds": 180,
			},
		})
		// The third item repeats an artist three minutes out: advisory only.
		if i == 2 && res["valid"] != false {
			t.Fatalf("expected advisory violation on item %d, got %v", i, res)
		}
	}

	seq := get("/v1/sequence")
	if items := seq["items"].([]any); len(items) != 3 {
		t.Fatalf("sequence has %d items, want 3", len(items))
	}

	// Both Kraftwerk items show up as duplicates.
	dupes := get("/v1/duplicates")
	if ids := dupes["item_ids"].([]any); len(ids) != 2 {
		t.Fatalf("duplicate ids %v, want both Kraftwerk items", ids)
	}

	// Persist and reload the show.
	post("/v1/shows/morning/save", map[string]any{})
	post("/v1/shows/morning/load", map[string]any{})
	seq = get("/v1/sequence")
	if items := seq["items"].([]any); len(items) != 3 {
		t.Fatalf("reloaded sequence has %d items", len(items))
	}

	// Drive the transport: play, skip, stop after the current item.
	st := post("/v1/transport/toggle", map[string]any{})
	if st["playing"] != true {
		t.Fatalf("toggle: %v", st)
	}
	st = post("/v1/transport/next", map[string]any{})
	if st["current_item_id"] != "item-1" {
		t.Fatalf("next: %v", st)
	}
	post("/v1/transport/stop-after", map[string]any{"item_id": "item-1"})
	st = post("/v1/transport/ended", map[string]any{})
	if st["playing"] != false {
		t.Fatalf("stop-after did not halt: %v", st)
	}

	// The ended item is in the history now.
	histDoc := get("/v1/history?hours=1")
	entries := histDoc["entries"].([]any)
	if len(entries) != 1 {
		t.Fatalf("history has %d entries, want 1", len(entries))
	}

	// Mixer ducking over HTTP.
	gains := post("/v1/mixer/mic", map[string]any{"active": true})
	if gains["program"] != 0.3 {
		t.Fatalf("mic duck: %v", gains)
	}
}
