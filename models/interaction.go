package models

// Auflösungsstatus einer Interaktionskante.
const (
	InteractionResolved   = "resolved"
	InteractionUnresolved = "unresolved"
)

// CompoundInteraction ist eine Wechselwirkungskante. Aufgelöste Kanten tragen das kanonisch
// geordnete Paar (CompoundAID <= CompoundBID); unaufgelöste nur die eigene Seite und den Rohnamen.
// PairKey ist die Identität: "a|b" bzw. "a|raw:<normalisierter Name>".
type CompoundInteraction struct {
	Base
	PairKey          string  `json:"pair_key" gorm:"uniqueIndex;not null"`
	CompoundAID      string  `json:"compound_a_id" gorm:"column:compound_a_id;index;not null"`
	CompoundBID      *string `json:"compound_b_id" gorm:"column:compound_b_id;index"`
	Severity         string  `json:"severity"`
	Description      string  `json:"description" gorm:"type:text"`
	Source           string  `json:"source"`
	ResolutionStatus string  `json:"resolution_status" gorm:"index"`
	OtherDrugRawName string  `json:"other_drug_raw_name,omitempty"`
}

func (CompoundInteraction) TableName() string {
	return "compound_interactions"
}
