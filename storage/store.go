// Package storage kapselt den Zugriff auf die relationale Datenbank. Jede Tabelle hat eine feste
// Schreibstrategie (REPLACE, APPEND, UPSERT), die hier zentral durchgesetzt wird.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pharma-deck/models"
)

const batchSize = 100

var (
	// ErrNotFound meldet, dass kein passender Datensatz existiert.
	ErrNotFound = errors.New("record not found")
	// ErrPolicy meldet einen Schreibzugriff, der der Strategie der Tabelle widerspricht.
	ErrPolicy = errors.New("write policy violation")
)

// Store bündelt die Datenbankverbindung und die Schreibprimitive.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// New erstellt einen Store über einer bestehenden GORM-Verbindung.
func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// Migrate legt alle Tabellen an bzw. passt sie an.
func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(models.All()...)
}

// Query beschreibt eine einfache Auswahl mit Filter, Sortierung und Limit.
type Query struct {
	Filter map[string]any
	Order  string
	Limit  int
}

// Select lädt alle Zeilen, die auf q passen, nach dest (Zeiger auf Slice).
func (s *Store) Select(ctx context.Context, dest any, q Query) error {
	tx := s.DB.WithContext(ctx)
	if len(q.Filter) > 0 {
		tx = tx.Where(q.Filter)
	}
	if q.Order != "" {
		tx = tx.Order(q.Order)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	return tx.Find(dest).Error
}

// UpsertByKey sucht die Zeile über key und aktualisiert sie mit values oder legt sie an.
// Ein Konflikt durch paralleles Anlegen wird mit einem zweiten Versuch aufgelöst.
func UpsertByKey[T tabler](ctx context.Context, s *Store, key, values map[string]any) (*T, error) {
	if err := requirePolicy[T](PolicyUpsert); err != nil {
		return nil, err
	}
	return upsertByKey[T](s.DB.WithContext(ctx), key, values)
}

func upsertByKey[T any](tx *gorm.DB, key, values map[string]any) (*T, error) {
	var err error
	for range 2 {
		row := new(T)
		if err = tx.Where(key).Assign(values).FirstOrCreate(row).Error; err == nil {
			return row, nil
		}
	}
	return nil, fmt.Errorf("upsert %v: %w", key, err)
}

// DeleteWhere löscht alle Zeilen von model, die auf filter passen. Ein leerer Filter ist nicht erlaubt.
func (s *Store) DeleteWhere(ctx context.Context, model any, filter map[string]any) (int64, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("delete without filter: %w", ErrPolicy)
	}
	res := s.DB.WithContext(ctx).Where(filter).Delete(model)
	return res.RowsAffected, res.Error
}

// InsertBatch fügt rows (Slice) in Blöcken ein.
func (s *Store) InsertBatch(ctx context.Context, rows any) error {
	return s.DB.WithContext(ctx).CreateInBatches(rows, batchSize).Error
}

// SourceRef liefert den Herkunftsnachweis zu (sourceType, url) und legt ihn bei Bedarf an.
func (s *Store) SourceRef(ctx context.Context, sourceType, url, title string) (*models.SourceReference, error) {
	ref := models.SourceReference{}
	err := s.DB.WithContext(ctx).
		Where(map[string]any{"source_type": sourceType, "url": url}).
		Attrs(map[string]any{"title": title, "retrieved_at": now()}).
		FirstOrCreate(&ref).Error
	if err != nil {
		return nil, fmt.Errorf("source reference %s %s: %w", sourceType, url, err)
	}
	return &ref, nil
}

func first[T any](tx *gorm.DB, dest *T) (*T, error) {
	err := tx.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dest, nil
}
