/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package library is the read-side of the media library the core needs:
// folder-path suppression lookups and persisted show sequences. Everything
// else about the library (upload, CRUD, storage) lives outside this service.
package library

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/friendsincode/bragi_studio/internal/models"
	"github.com/friendsincode/bragi_studio/internal/policy"
	"github.com/friendsincode/bragi_studio/internal/sequence"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// maxFolderDepth guards the ancestor walk against cyclic folder data.
const maxFolderDepth = 64

// Service provides library lookups for the playout core.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a library service.
func New(db *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "library").Logger(),
	}
}

// SuppressDuplicateWarning walks the item's folder ancestry from the item
// upward; the flag is a boolean OR over the whole path, so the first folder
// carrying it settles the answer. Unknown items are not suppressed.
func (s *Service) SuppressDuplicateWarning(originalID string) bool {
	if originalID == "" {
		return false
	}

	var item models.LibraryItem
	if err := s.db.First(&item, "id = ?", originalID).Error; err != nil {
		return false
	}

	folderID := item.FolderID
	for depth := 0; folderID != "" && depth < maxFolderDepth; depth++ {
		var folder models.LibraryFolder
		if err := s.db.First(&folder, "id = ?", folderID).Error; err != nil {
			return false
		}
		if folder.SuppressDuplicateWarning {
			return true
		}
		folderID = folder.ParentID
	}
	return false
}

// StationPolicy returns the separation windows stored for this station, if a
// settings row exists. Zero-valued minutes leave the corresponding window
// unset; callers keep their defaults for those.
func (s *Service) StationPolicy(ctx context.Context) (policy.Policy, bool, error) {
	var row models.StationSettings
	err := s.db.WithContext(ctx).Order("updated_at DESC").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return policy.Policy{}, false, nil
	}
	if err != nil {
		return policy.Policy{}, false, fmt.Errorf("load station settings: %w", err)
	}
	return policy.Policy{
		ArtistSeparation: time.Duration(row.ArtistSeparationMinutes) * time.Minute,
		TitleSeparation:  time.Duration(row.TitleSeparationMinutes) * time.Minute,
	}, true, nil
}

// SaveStationPolicy upserts the station's separation windows.
func (s *Service) SaveStationPolicy(ctx context.Context, pol policy.Policy) error {
	var row models.StationSettings
	err := s.db.WithContext(ctx).Order("updated_at DESC").First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("load station settings: %w", err)
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.ArtistSeparationMinutes = int(pol.ArtistSeparation.Minutes())
	row.TitleSeparationMinutes = int(pol.TitleSeparation.Minutes())
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("save station settings: %w", err)
	}
	return nil
}

// LoadShowSequence materializes a persisted show into sequence items.
func (s *Service) LoadShowSequence(ctx context.Context, showID string) ([]sequence.Item, error) {
	var rows []models.SequenceRow
	err := s.db.WithContext(ctx).
		Where("show_sequence_id = ?", showID).
		Order("position ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load show sequence: %w", err)
	}

	items := make([]sequence.Item, 0, len(rows))
	for _, row := range rows {
		switch row.RowType {
		case models.RowMarker:
			if row.ActivatesAt == nil {
				s.logger.Warn().Str("row", row.ID).Msg("marker row without activation time, skipping")
				continue
			}
			items = append(items, sequence.TimeMarker{
				ID:          row.ID,
				ActivatesAt: *row.ActivatesAt,
				Kind:        sequence.MarkerKind(row.MarkerKind),
			})
		default:
			items = append(items, sequence.PlayableItem{
				ID:         row.ID,
				OriginalID: row.LibraryItemID,
				Duration:   row.Duration,
				Kind:       sequence.ItemKind(row.Kind),
				Artist:     row.Artist,
				Title:      row.Title,
			})
		}
	}
	return items, nil
}

// SaveShowSequence replaces a show's persisted rows with the given sequence.
func (s *Service) SaveShowSequence(ctx context.Context, showID string, items []sequence.Item) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("show_sequence_id = ?", showID).Delete(&models.SequenceRow{}).Error; err != nil {
			return fmt.Errorf("clear show rows: %w", err)
		}
		now := time.Now().UTC()
		for i, item := range items {
			row := models.SequenceRow{
				ID:             item.ItemID(),
				ShowSequenceID: showID,
				Position:       i,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			switch v := item.(type) {
			case sequence.PlayableItem:
				row.RowType = models.RowPlayable
				row.LibraryItemID = v.OriginalID
				row.Title = v.Title
				row.Artist = v.Artist
				row.Kind = string(v.Kind)
				row.Duration = v.Duration
			case sequence.TimeMarker:
				row.RowType = models.RowMarker
				at := v.ActivatesAt
				row.ActivatesAt = &at
				row.MarkerKind = string(v.Kind)
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("save show row: %w", err)
			}
		}
		return nil
	})
}
