package storage

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pharma-deck/models"
)

// Policy ist die Schreibstrategie einer Tabelle.
type Policy string

const (
	// PolicyReplace löscht den Bestand des Scopes und fügt neu ein.
	PolicyReplace Policy = "replace"
	// PolicyAppend fügt nur an, bestehende Zeilen werden nie geändert.
	PolicyAppend Policy = "append"
	// PolicyUpsert aktualisiert über einen eindeutigen Schlüssel.
	PolicyUpsert Policy = "upsert"
)

var policies = map[string]Policy{
	models.Compound{}.TableName():            PolicyUpsert,
	models.Synonym{}.TableName():             PolicyReplace,
	models.CompoundRelation{}.TableName():    PolicyReplace,
	models.LabelSnippet{}.TableName():        PolicyAppend,
	models.RegulatoryRecord{}.TableName():    PolicyReplace,
	models.Target{}.TableName():              PolicyUpsert,
	models.CompoundTarget{}.TableName():      PolicyUpsert,
	models.CompoundInteraction{}.TableName(): PolicyUpsert,
	models.CompoundCard{}.TableName():        PolicyAppend,
	models.SourceReference{}.TableName():     PolicyUpsert,
	models.CompoundStructure{}.TableName():   PolicyReplace,
	models.CompoundStudy{}.TableName():       PolicyUpsert,
	models.CompoundATC{}.TableName():         PolicyReplace,
	models.CompoundTrial{}.TableName():       PolicyReplace,
	models.CompoundProduct{}.TableName():     PolicyReplace,
	models.IngestQueueItem{}.TableName():     PolicyUpsert,
}

// PolicyFor liefert die Strategie einer Tabelle.
func PolicyFor(table string) (Policy, bool) {
	p, ok := policies[table]
	return p, ok
}

type tabler interface {
	TableName() string
}

func requirePolicy[T tabler](want Policy) error {
	var zero T
	if got, ok := policies[zero.TableName()]; !ok || got != want {
		return fmt.Errorf("%s is %q, not %q: %w", zero.TableName(), got, want, ErrPolicy)
	}
	return nil
}

// ReplaceRows ersetzt alle Zeilen im scope durch rows, in einer Transaktion.
func ReplaceRows[T tabler](ctx context.Context, s *Store, scope map[string]any, rows []T) error {
	if err := requirePolicy[T](PolicyReplace); err != nil {
		return err
	}
	if len(scope) == 0 {
		return fmt.Errorf("replace without scope: %w", ErrPolicy)
	}
	var zero T
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(scope).Delete(&zero).Error; err != nil {
			return fmt.Errorf("delete %s: %w", zero.TableName(), err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
			return fmt.Errorf("insert %s: %w", zero.TableName(), err)
		}
		return nil
	})
}

// AppendRows fügt rows an eine APPEND-Tabelle an.
func AppendRows[T tabler](ctx context.Context, s *Store, rows []T) error {
	if err := requirePolicy[T](PolicyAppend); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	return s.InsertBatch(ctx, rows)
}

var now = func() time.Time { return time.Now().UTC() }
