package models

// Status einer Substanz.
const (
	CompoundActive   = "active"
	CompoundObsolete = "obsolete"
)

// Compound ist die kanonische Identität einer Substanz (eine Zeile pro RxCUI). Wird nie gelöscht.
type Compound struct {
	Base
	RxCUI          string `json:"rxcui" gorm:"column:rxcui;uniqueIndex;not null"`
	CanonicalName  string `json:"canonical_name" gorm:"not null"`
	NormalizedName string `json:"normalized_name" gorm:"index"`
	Description    string `json:"description,omitempty" gorm:"type:text"`
	Status         string `json:"status" gorm:"not null;default:active"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Compound) TableName() string {
	return "compounds"
}

// Synonym ist ein alternativer Name einer Substanz.
type Synonym struct {
	Base
	CompoundID  string `json:"compound_id" gorm:"index;not null"`
	Term        string `json:"term" gorm:"not null"`
	Source      string `json:"source"`
	IsPreferred bool   `json:"is_preferred"`
}

func (Synonym) TableName() string {
	return "synonyms"
}

// CompoundRelation ist eine typisierte Kante zu einem verwandten RxNorm-Konzept.
type CompoundRelation struct {
	Base
	FromCompoundID string `json:"from_compound_id" gorm:"index;not null"`
	ToRxCUI        string `json:"to_rxcui" gorm:"column:to_rxcui"`
	ToName         string `json:"to_name"`
	RelationType   string `json:"relation_type"`
}

func (CompoundRelation) TableName() string {
	return "compound_relations"
}
