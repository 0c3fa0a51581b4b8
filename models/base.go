package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base stellt die opake String-ID (UUID) und die Zeitstempel aller Tabellen bereit.
type Base struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate vergibt eine neue UUID, falls noch keine gesetzt ist.
func (b *Base) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All listet alle Modelle für AutoMigrate.
func All() []any {
	return []any{
		&Compound{},
		&Synonym{},
		&CompoundRelation{},
		&LabelSnippet{},
		&RegulatoryRecord{},
		&Target{},
		&CompoundTarget{},
		&CompoundInteraction{},
		&CompoundCard{},
		&SourceReference{},
		&CompoundStructure{},
		&CompoundStudy{},
		&CompoundATC{},
		&CompoundTrial{},
		&CompoundProduct{},
		&IngestQueueItem{},
	}
}
