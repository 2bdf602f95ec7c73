/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the studio automation core over JSON/HTTP. Transport
// operations mirror the engine's no-op semantics: an operation that matched
// nothing still returns 200 with the resulting state, because from the
// caller's point of view nothing went wrong.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/friendsincode/bragi_studio/internal/history"
	"github.com/friendsincode/bragi_studio/internal/library"
	"github.com/friendsincode/bragi_studio/internal/mixer"
	"github.com/friendsincode/bragi_studio/internal/playout"
	"github.com/friendsincode/bragi_studio/internal/sequence"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

var (
	errMarkerTime = errors.New("marker requires activates_at")
	errMarkerKind = errors.New("marker kind must be hard or soft")
	errItemType   = errors.New("item type must be playable or marker")
)

// Handler serves the studio HTTP API.
type Handler struct {
	engine  *playout.Engine
	mixer   *mixer.Controller
	history *history.Store
	library *library.Service
	logger  zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(engine *playout.Engine, mix *mixer.Controller, hist *history.Store, lib *library.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		mixer:   mix,
		history: hist,
		library: lib,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts all API routes on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Get("/schedule", h.getSchedule)

		r.Route("/transport", func(r chi.Router) {
			r.Post("/toggle", h.transportToggle)
			r.Post("/next", h.transportNext)
			r.Post("/previous", h.transportPrevious)
			r.Post("/play/{itemID}", h.transportPlay)
			r.Post("/stop-after", h.transportStopAfter)
			r.Post("/progress", h.transportProgress)
			r.Post("/ended", h.transportEnded)
		})

		r.Route("/sequence", func(r chi.Router) {
			r.Get("/", h.getSequence)
			r.Put("/", h.putSequence)
			r.Post("/items", h.insertItem)
			r.Delete("/items/{itemID}", h.removeItem)
			r.Post("/items/{itemID}/move", h.moveItem)
		})

		r.Post("/validate", h.validatePlacement)
		r.Get("/duplicates", h.getDuplicates)
		r.Get("/history", h.getHistory)

		r.Route("/mixer", func(r chi.Router) {
			r.Get("/", h.getMixer)
			r.Post("/pfl", h.setPFL)
			r.Post("/mic", h.setMic)
			r.Post("/cartwall", h.setCartwall)
		})

		r.Route("/shows/{showID}", func(r chi.Router) {
			r.Post("/load", h.loadShow)
			r.Post("/save", h.saveShow)
		})
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"entries": scheduleToDTO(h.engine.Schedule()),
	})
}

func (h *Handler) transportToggle(w http.ResponseWriter, r *http.Request) {
	h.engine.TogglePlay()
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) transportNext(w http.ResponseWriter, r *http.Request) {
	h.engine.Next()
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) transportPrevious(w http.ResponseWriter, r *http.Request) {
	h.engine.Previous()
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) transportPlay(w http.ResponseWriter, r *http.Request) {
	h.engine.PlayItem(chi.URLParam(r, "itemID"))
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) transportStopAfter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID string `json:"item_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.engine.SetStopAfter(req.ItemID)
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) transportProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElapsedMS int64 `json:"elapsed_ms"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.engine.OnProgressTick(time.Duration(req.ElapsedMS) * time.Millisecond)
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) transportEnded(w http.ResponseWriter, r *http.Request) {
	h.engine.OnItemEnded(r.Context())
	h.writeJSON(w, http.StatusOK, stateToDTO(h.engine.State()))
}

func (h *Handler) getSequence(w http.ResponseWriter, r *http.Request) {
	items := h.engine.Sequence()
	dtos := make([]sequenceItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toDTO(item))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": dtos})
}

func (h *Handler) putSequence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []sequenceItemDTO `json:"items"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	items := make([]sequence.Item, 0, len(req.Items))
	for _, dto := range req.Items {
		item, err := dto.toItem()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err)
			return
		}
		items = append(items, item)
	}
	h.engine.SetSequence(items)
	h.writeJSON(w, http.StatusOK, map[string]any{"length": len(items)})
}

func (h *Handler) insertItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item     sequenceItemDTO `json:"item"`
		BeforeID string          `json:"before_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	item, err := req.Item.toItem()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	res := h.engine.InsertItem(r.Context(), item, req.BeforeID)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"id":     item.ItemID(),
		"valid":  res.Valid,
		"reason": res.Reason,
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	h.engine.RemoveItem(chi.URLParam(r, "itemID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) moveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BeforeID string `json:"before_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	h.engine.MoveItem(chi.URLParam(r, "itemID"), req.BeforeID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) validatePlacement(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Item     sequenceItemDTO `json:"item"`
		BeforeID string          `json:"before_id"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	item, err := req.Item.toItem()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	p, ok := item.(sequence.PlayableItem)
	if !ok {
		h.writeJSON(w, http.StatusOK, map[string]any{"valid": true})
		return
	}
	res := h.engine.ValidateInsert(r.Context(), p, req.BeforeID)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"valid":  res.Valid,
		"reason": res.Reason,
	})
}

func (h *Handler) getDuplicates(w http.ResponseWriter, r *http.Request) {
	dupes := h.engine.Duplicates()
	ids := make([]string, 0, len(dupes))
	for id := range dupes {
		ids = append(ids, id)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"item_ids": ids})
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			hours = parsed
		}
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	entries, err := h.history.Recent(r.Context(), since)
	if err != nil {
		h.logger.Error().Err(err).Msg("query history")
		h.writeError(w, http.StatusInternalServerError, errors.New("history unavailable"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) getMixer(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.mixer.Gains())
}

func (h *Handler) setPFL(w http.ResponseWriter, r *http.Request) {
	h.setMixerFlag(w, r, h.mixer.SetPFL)
}

func (h *Handler) setMic(w http.ResponseWriter, r *http.Request) {
	h.setMixerFlag(w, r, h.mixer.SetMicLive)
}

func (h *Handler) setCartwall(w http.ResponseWriter, r *http.Request) {
	h.setMixerFlag(w, r, h.mixer.SetCartwallActive)
}

func (h *Handler) setMixerFlag(w http.ResponseWriter, r *http.Request, set func(bool)) {
	var req struct {
		Active bool `json:"active"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	set(req.Active)
	h.writeJSON(w, http.StatusOK, h.mixer.Gains())
}

func (h *Handler) loadShow(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	items, err := h.library.LoadShowSequence(r.Context(), showID)
	if err != nil {
		h.logger.Error().Err(err).Str("show", showID).Msg("load show sequence")
		h.writeError(w, http.StatusInternalServerError, errors.New("show load failed"))
		return
	}
	h.engine.SetSequence(items)
	h.writeJSON(w, http.StatusOK, map[string]any{"length": len(items)})
}

func (h *Handler) saveShow(w http.ResponseWriter, r *http.Request) {
	showID := chi.URLParam(r, "showID")
	items := h.engine.Sequence()
	if err := h.library.SaveShowSequence(r.Context(), showID, items); err != nil {
		h.logger.Error().Err(err).Str("show", showID).Msg("save show sequence")
		h.writeError(w, http.StatusInternalServerError, errors.New("show save failed"))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"length": len(items)})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
