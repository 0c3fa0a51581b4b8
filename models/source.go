package models

import "time"

// SourceReference ist ein Herkunftsnachweis; eindeutig über (SourceType, URL).
type SourceReference struct {
	Base
	SourceType  string    `json:"source_type" gorm:"uniqueIndex:idx_source_ref;not null"`
	URL         string    `json:"url" gorm:"uniqueIndex:idx_source_ref;not null"`
	Title       string    `json:"title,omitempty"`
	RetrievedAt time.Time `json:"retrieved_at"`
}

func (SourceReference) TableName() string {
	return "source_references"
}
