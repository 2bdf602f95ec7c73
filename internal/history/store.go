/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history persists the append-only playout log and serves the
// lookback window the policy validator uses as prior art.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/friendsincode/bragi_studio/internal/models"
	"github.com/friendsincode/bragi_studio/internal/policy"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Store records and queries playout history.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a history store.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Append records one aired item.
func (s *Store) Append(ctx context.Context, itemID, artist, title string, playedAt time.Time) error {
	row := models.PlayoutHistory{
		ID:       uuid.NewString(),
		ItemID:   itemID,
		Artist:   artist,
		Title:    title,
		PlayedAt: playedAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append playout history: %w", err)
	}
	s.logger.Debug().Str("item", itemID).Str("title", title).Msg("playout recorded")
	return nil
}

// Recent returns history entries played at or after since, oldest first.
func (s *Store) Recent(ctx context.Context, since time.Time) ([]policy.HistoryEntry, error) {
	var rows []models.PlayoutHistory
	err := s.db.WithContext(ctx).
		Where("played_at >= ?", since).
		Order("played_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query playout history: %w", err)
	}

	entries := make([]policy.HistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = policy.HistoryEntry{
			Artist:   row.Artist,
			Title:    row.Title,
			PlayedAt: row.PlayedAt,
		}
	}
	return entries, nil
}

// Prune deletes history older than the retention cutoff.
func (s *Store) Prune(ctx context.Context, before time.Time) error {
	result := s.db.WithContext(ctx).
		Where("played_at < ?", before).
		Delete(&models.PlayoutHistory{})
	if result.Error != nil {
		return fmt.Errorf("prune playout history: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Int64("deleted", result.RowsAffected).Msg("pruned old playout history")
	}
	return nil
}
