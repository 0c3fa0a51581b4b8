package models

import "time"

// Zustände eines Queue-Eintrags.
const (
	QueuePending    = "pending"
	QueueProcessing = "processing"
	QueueDone       = "done"
	QueueError      = "error"
)

// IngestQueueItem ist ein zur Aufnahme vorgemerkter Wirkstoff; eindeutig über die RxCUI.
type IngestQueueItem struct {
	Base
	RxCUI         string     `json:"rxcui" gorm:"column:rxcui;uniqueIndex;not null"`
	CanonicalName string     `json:"canonical_name,omitempty"`
	Rank          int        `json:"rank"`
	PriorityScore int        `json:"priority_score" gorm:"index"`
	Category      string     `json:"category,omitempty"`
	Status        string     `json:"status" gorm:"index;not null;default:pending"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty" gorm:"type:text"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

func (IngestQueueItem) TableName() string {
	return "ingest_queue"
}
