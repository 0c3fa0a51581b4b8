package storage

import (
	"context"
	"fmt"

	"pharma-deck/extract"
	"pharma-deck/models"
)

// UpsertCompound legt die Substanz zur RxCUI an oder aktualisiert Name und Status.
func (s *Store) UpsertCompound(ctx context.Context, rxcui, canonicalName string) (*models.Compound, error) {
	c, err := UpsertByKey[models.Compound](ctx, s,
		map[string]any{"rxcui": rxcui},
		map[string]any{
			"canonical_name":  canonicalName,
			"normalized_name": extract.NormalizeName(canonicalName),
			"status":          models.CompoundActive,
		})
	if err != nil {
		return nil, fmt.Errorf("compound %s: %w", rxcui, err)
	}
	return c, nil
}

// SetCompoundDescription setzt die Beschreibung aus dem Label.
func (s *Store) SetCompoundDescription(ctx context.Context, compoundID, description string) error {
	return s.DB.WithContext(ctx).Model(&models.Compound{}).
		Where("id = ?", compoundID).
		Update("description", description).Error
}

// MarkObsolete setzt den Status einer Substanz auf obsolete. Substanzen werden nie gelöscht.
func (s *Store) MarkObsolete(ctx context.Context, rxcui string) error {
	res := s.DB.WithContext(ctx).Model(&models.Compound{}).
		Where("rxcui = ?", rxcui).
		Update("status", models.CompoundObsolete)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CompoundByRxCUI lädt die Substanz zur RxCUI.
func (s *Store) CompoundByRxCUI(ctx context.Context, rxcui string) (*models.Compound, error) {
	return first(s.DB.WithContext(ctx).Where("rxcui = ?", rxcui), &models.Compound{})
}

// CompoundByID lädt die Substanz zur ID.
func (s *Store) CompoundByID(ctx context.Context, id string) (*models.Compound, error) {
	return first(s.DB.WithContext(ctx).Where("id = ?", id), &models.Compound{})
}

// CompoundsByIDs lädt mehrere Substanzen, indiziert nach ID.
func (s *Store) CompoundsByIDs(ctx context.Context, ids []string) (map[string]models.Compound, error) {
	out := make(map[string]models.Compound, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Compound
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r
	}
	return out, nil
}

// ListCompounds liefert Substanzen alphabetisch, optional nach Status gefiltert.
func (s *Store) ListCompounds(ctx context.Context, status string, limit int) ([]models.Compound, error) {
	var rows []models.Compound
	q := Query{Order: "normalized_name ASC", Limit: limit}
	if status != "" {
		q.Filter = map[string]any{"status": status}
	}
	if err := s.Select(ctx, &rows, q); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertTarget legt ein Target über seinen Schlüssel an oder aktualisiert es.
func (s *Store) UpsertTarget(ctx context.Context, t models.Target) (*models.Target, error) {
	return UpsertByKey[models.Target](ctx, s,
		map[string]any{"target_key": t.TargetKey},
		map[string]any{
			"chembl_id":   t.ChEMBLID,
			"uniprot_id":  t.UniProtID,
			"name":        t.Name,
			"gene_symbol": t.GeneSymbol,
			"organism":    t.Organism,
			"aliases":     t.Aliases,
			"type":        t.Type,
			"source":      t.Source,
		})
}

// UpsertCompoundTarget verbindet Substanz und Target; wiederholte Aufrufe sind idempotent.
func (s *Store) UpsertCompoundTarget(ctx context.Context, ct models.CompoundTarget) (*models.CompoundTarget, error) {
	return UpsertByKey[models.CompoundTarget](ctx, s,
		map[string]any{"compound_id": ct.CompoundID, "target_id": ct.TargetID},
		map[string]any{
			"action":            ct.Action,
			"confidence":        ct.Confidence,
			"evidence_strength": ct.EvidenceStrength,
			"source_ref_id":     ct.SourceRefID,
		})
}

// TargetsFor liefert die Targets einer Substanz.
func (s *Store) TargetsFor(ctx context.Context, compoundID string) ([]models.Target, error) {
	var rows []models.Target
	err := s.DB.WithContext(ctx).
		Joins("JOIN compound_targets ON compound_targets.target_id = targets.id").
		Where("compound_targets.compound_id = ?", compoundID).
		Order("targets.name ASC").
		Find(&rows).Error
	return rows, err
}

// UpsertStudy speichert eine Literaturstelle, eindeutig über (Substanz, PMID).
func (s *Store) UpsertStudy(ctx context.Context, st models.CompoundStudy) (*models.CompoundStudy, error) {
	return UpsertByKey[models.CompoundStudy](ctx, s,
		map[string]any{"compound_id": st.CompoundID, "pmid": st.PMID},
		map[string]any{
			"title":            st.Title,
			"journal":          st.Journal,
			"publication_date": st.PublicationDate,
			"study_type":       st.StudyType,
			"summary":          st.Summary,
			"doi":              st.DOI,
			"url":              st.URL,
			"full_text_url":    st.FullTextURL,
		})
}
