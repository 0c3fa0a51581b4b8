package models

// LabelSnippet ist ein Abschnitt des Beipackzettels aus einem Ingest-Lauf (nur angehängt).
type LabelSnippet struct {
	Base
	CompoundID    string `json:"compound_id" gorm:"index;not null"`
	RunID         string `json:"run_id" gorm:"index"`
	Section       string `json:"section"`
	SectionType   string `json:"section_type" gorm:"index"`
	Text          string `json:"text" gorm:"type:text"`
	Source        string `json:"source"`
	SourceURL     string `json:"source_url,omitempty"`
	SourceVersion string `json:"source_version,omitempty"`
}

func (LabelSnippet) TableName() string {
	return "label_snippets"
}

// RegulatoryRecord hält den Zulassungsstand einer Substanz (eine Zeile pro Substanz).
type RegulatoryRecord struct {
	Base
	CompoundID                  string `json:"compound_id" gorm:"uniqueIndex;not null"`
	ApprovalStatus              string `json:"approval_status"`
	ApprovalType                string `json:"approval_type,omitempty"`
	ApprovalDate                string `json:"approval_date,omitempty"`
	ApplicationNumber           string `json:"application_number,omitempty"`
	SponsorName                 string `json:"sponsor_name,omitempty"`
	LabelURL                    string `json:"label_url,omitempty"`
	BoxedWarning                bool   `json:"boxed_warning"`
	REMS                        bool   `json:"rems" gorm:"column:rems"`
	ControlledSubstanceSchedule string `json:"controlled_substance_schedule,omitempty"`
}

func (RegulatoryRecord) TableName() string {
	return "regulatory_records"
}
