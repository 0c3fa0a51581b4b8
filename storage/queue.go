package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pharma-deck/models"
)

// SeedQueue trägt Einträge ein. Bestehende RxCUIs werden auf pending zurückgesetzt.
func (s *Store) SeedQueue(ctx context.Context, items []models.IngestQueueItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}
	for i := range items {
		items[i].Status = models.QueuePending
		items[i].Attempts = 0
		items[i].LastError = ""
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "rxcui"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"canonical_name", "rank", "priority_score", "category", "status", "attempts", "last_error", "updated_at",
		}),
	}).CreateInBatches(&items, batchSize).Error
	if err != nil {
		return 0, fmt.Errorf("seed queue: %w", err)
	}
	return len(items), nil
}

// ClaimQueue holt bis zu n wartende Einträge nach Priorität und setzt sie auf processing.
func (s *Store) ClaimQueue(ctx context.Context, n int) ([]models.IngestQueueItem, error) {
	var items []models.IngestQueueItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("status = ?", models.QueuePending).
			Order("priority_score DESC").
			Order("rank ASC").
			Order("created_at ASC").
			Limit(n)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		ids := make([]string, len(items))
		for i := range items {
			ids[i] = items[i].ID
			items[i].Status = models.QueueProcessing
			items[i].Attempts++
		}
		return tx.Model(&models.IngestQueueItem{}).Where("id IN ?", ids).Updates(map[string]any{
			"status":   models.QueueProcessing,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("claim queue: %w", err)
	}
	return items, nil
}

// FinishQueueItem setzt den Eintrag auf done oder, bei runErr, auf error mit Fehlermeldung.
func (s *Store) FinishQueueItem(ctx context.Context, id string, runErr error) error {
	updates := map[string]any{
		"status":       models.QueueDone,
		"last_error":   "",
		"processed_at": now(),
	}
	if runErr != nil {
		updates["status"] = models.QueueError
		updates["last_error"] = runErr.Error()
	}
	return s.DB.WithContext(ctx).Model(&models.IngestQueueItem{}).Where("id = ?", id).Updates(updates).Error
}

// RequeueErrors setzt fehlgeschlagene Einträge mit weniger als maxAttempts Versuchen auf pending zurück.
func (s *Store) RequeueErrors(ctx context.Context, maxAttempts int) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.IngestQueueItem{}).
		Where("status = ? AND attempts < ?", models.QueueError, maxAttempts).
		Update("status", models.QueuePending)
	return res.RowsAffected, res.Error
}

// QueueStats zählt die Einträge je Status.
func (s *Store) QueueStats(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := s.DB.WithContext(ctx).Model(&models.IngestQueueItem{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
