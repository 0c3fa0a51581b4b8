package models

import "gorm.io/datatypes"

// CompoundCard ist die denormalisierte, versionierte Karte einer Substanz. Zeilen werden nie
// geändert; jeder Lauf hängt Version max+1 an.
type CompoundCard struct {
	Base
	CompoundID string `json:"compound_id" gorm:"uniqueIndex:idx_card_version;not null"`
	Version    int    `json:"version" gorm:"uniqueIndex:idx_card_version;not null"`
	RunID      string `json:"run_id"`

	Slug          string `json:"slug" gorm:"index"`
	CanonicalName string `json:"canonical_name"`
	RxCUI         string `json:"rxcui" gorm:"column:rxcui;index"`
	MoleculeType  string `json:"molecule_type"`
	PrimaryClass  string `json:"primary_class,omitempty"`
	ApprovalYear  *int   `json:"approval_year,omitempty"`

	MechanismSummary   string `json:"mechanism_summary,omitempty" gorm:"type:text"`
	UsesSummary        string `json:"uses_summary,omitempty" gorm:"type:text"`
	SafetySummary      string `json:"safety_summary,omitempty" gorm:"type:text"`
	RegulatorySummary  string `json:"regulatory_summary,omitempty" gorm:"type:text"`
	EvidenceSummary    string `json:"evidence_summary,omitempty" gorm:"type:text"`
	InteractionSummary string `json:"interaction_summary,omitempty" gorm:"type:text"`
	Description        string `json:"description,omitempty" gorm:"type:text"`

	Pharmacokinetics       datatypes.JSON `json:"pharmacokinetics"`
	Pharmacodynamics       datatypes.JSON `json:"pharmacodynamics"`
	ClinicalProfile        datatypes.JSON `json:"clinical_profile"`
	ChemistryProfile       datatypes.JSON `json:"chemistry_profile"`
	AdverseEffectFrequency datatypes.JSON `json:"adverse_effect_frequency"`
	DeckStats              datatypes.JSON `json:"deck_stats"`
	DeckTags               datatypes.JSON `json:"deck_tags"`
	Classification         datatypes.JSON `json:"classification"`
	SourceLinks            datatypes.JSON `json:"source_links"`
	References             datatypes.JSON `json:"references"`

	StudyCount        int `json:"study_count"`
	TrialCount        int `json:"trial_count"`
	ProductCount      int `json:"product_count"`
	TargetCount       int `json:"target_count"`
	InteractionsCount int `json:"interactions_count"`

	Published bool `json:"published"`
}

func (CompoundCard) TableName() string {
	return "compound_cards"
}
