package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pharma-deck/extract"
	"pharma-deck/models"
)

// PairKey ist die Identität einer aufgelösten Kante: die beiden IDs in kanonischer Reihenfolge.
func PairKey(a, b string) string {
	return min(a, b) + "|" + max(a, b)
}

// RawPairKey ist die Identität einer unaufgelösten Kante: eigene ID und normalisierter Rohname.
func RawPairKey(compoundID, rawName string) string {
	return compoundID + "|raw:" + extract.NormalizeName(rawName)
}

// UpsertInteraction schreibt eine Kante über ihren PairKey. Gibt es zu einer aufgelösten Kante
// noch die unaufgelöste Zeile unter promoteFrom, wird diese Zeile in place befördert.
func (s *Store) UpsertInteraction(ctx context.Context, edge models.CompoundInteraction, promoteFrom string) (*models.CompoundInteraction, error) {
	values := map[string]any{
		"compound_a_id":       edge.CompoundAID,
		"compound_b_id":       edge.CompoundBID,
		"severity":            edge.Severity,
		"description":         edge.Description,
		"source":              edge.Source,
		"resolution_status":   edge.ResolutionStatus,
		"other_drug_raw_name": edge.OtherDrugRawName,
	}

	var out *models.CompoundInteraction
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if promoteFrom != "" && promoteFrom != edge.PairKey {
			promoted, err := promote(tx, edge.PairKey, promoteFrom, values)
			if err != nil {
				return err
			}
			if promoted != nil {
				out = promoted
				return nil
			}
		}
		row, err := upsertByKey[models.CompoundInteraction](tx, map[string]any{"pair_key": edge.PairKey}, values)
		out = row
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("interaction %s: %w", edge.PairKey, err)
	}
	return out, nil
}

// promote hebt die unaufgelöste Zeile auf den neuen Schlüssel. Existiert die aufgelöste Kante
// bereits, wird die veraltete Zeile entfernt und nil zurückgegeben.
func promote(tx *gorm.DB, pairKey, rawKey string, values map[string]any) (*models.CompoundInteraction, error) {
	raw, err := first(tx.Where("pair_key = ?", rawKey), &models.CompoundInteraction{})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var resolved int64
	if err := tx.Model(&models.CompoundInteraction{}).Where("pair_key = ?", pairKey).Count(&resolved).Error; err != nil {
		return nil, err
	}
	if resolved > 0 {
		return nil, tx.Delete(raw).Error
	}

	updates := map[string]any{"pair_key": pairKey}
	for k, v := range values {
		updates[k] = v
	}
	if err := tx.Model(raw).Updates(updates).Error; err != nil {
		return nil, err
	}
	return first(tx.Where("id = ?", raw.ID), &models.CompoundInteraction{})
}

// InteractionsFor liefert alle Kanten, an denen die Substanz auf einer der beiden Seiten beteiligt ist.
func (s *Store) InteractionsFor(ctx context.Context, compoundID string) ([]models.CompoundInteraction, error) {
	var rows []models.CompoundInteraction
	err := s.DB.WithContext(ctx).
		Where("compound_a_id = ? OR compound_b_id = ?", compoundID, compoundID).
		Order("resolution_status ASC, pair_key ASC").
		Find(&rows).Error
	return rows, err
}
