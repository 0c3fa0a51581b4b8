package models

import "gorm.io/datatypes"

// Target ist ein Protein-Target, dedupliziert über TargetKey (UniProt, sonst ChEMBL-ID).
type Target struct {
	Base
	TargetKey  string         `json:"target_key" gorm:"uniqueIndex;not null"`
	ChEMBLID   string         `json:"chembl_id" gorm:"column:chembl_id;index"`
	UniProtID  string         `json:"uniprot_id,omitempty" gorm:"column:uniprot_id"`
	Name       string         `json:"name"`
	GeneSymbol string         `json:"gene_symbol,omitempty"`
	Organism   string         `json:"organism,omitempty"`
	Aliases    datatypes.JSON `json:"aliases"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
}

func (Target) TableName() string {
	return "targets"
}

// CompoundTarget verbindet Substanz und Target; eindeutig pro Paar.
type CompoundTarget struct {
	Base
	CompoundID       string   `json:"compound_id" gorm:"uniqueIndex:idx_compound_target;not null"`
	TargetID         string   `json:"target_id" gorm:"uniqueIndex:idx_compound_target;not null"`
	Action           *string  `json:"action"`
	Confidence       *float64 `json:"confidence,omitempty"`
	EvidenceStrength string   `json:"evidence_strength,omitempty"`
	SourceRefID      *string  `json:"source_ref_id,omitempty"`
}

func (CompoundTarget) TableName() string {
	return "compound_targets"
}
