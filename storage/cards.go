package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pharma-deck/models"
)

const appendAttempts = 3

// AppendCard schreibt card als neue Version max+1. Bestehende Versionen bleiben unverändert.
func (s *Store) AppendCard(ctx context.Context, card *models.CompoundCard) error {
	if err := requirePolicy[models.CompoundCard](PolicyAppend); err != nil {
		return err
	}
	var err error
	for range appendAttempts {
		card.ID = ""
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var latest int
			if err := tx.Model(&models.CompoundCard{}).
				Where("compound_id = ?", card.CompoundID).
				Select("COALESCE(MAX(version), 0)").
				Scan(&latest).Error; err != nil {
				return err
			}
			card.Version = latest + 1
			return tx.Create(card).Error
		})
		if err == nil {
			return nil
		}
		s.Logger.Warn("Card-Version kollidiert, neuer Versuch",
			zap.String("compound_id", card.CompoundID), zap.Int("version", card.Version), zap.Error(err))
	}
	return fmt.Errorf("append card %s: %w", card.CompoundID, err)
}

// CurrentCard liefert die höchste Version der Card einer Substanz.
func (s *Store) CurrentCard(ctx context.Context, compoundID string) (*models.CompoundCard, error) {
	return first(s.DB.WithContext(ctx).Where("compound_id = ?", compoundID).Order("version DESC"), &models.CompoundCard{})
}

// CardBySlug liefert die aktuelle Card zu einem Slug.
func (s *Store) CardBySlug(ctx context.Context, slug string) (*models.CompoundCard, error) {
	return first(s.DB.WithContext(ctx).Where("slug = ?", slug).Order("version DESC"), &models.CompoundCard{})
}

// CardHistory liefert alle Versionen einer Substanz, neueste zuerst.
func (s *Store) CardHistory(ctx context.Context, compoundID string) ([]models.CompoundCard, error) {
	var rows []models.CompoundCard
	err := s.Select(ctx, &rows, Query{
		Filter: map[string]any{"compound_id": compoundID},
		Order:  "version DESC",
	})
	return rows, err
}
