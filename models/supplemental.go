package models

// CompoundStructure hält die PubChem-Identifikatoren (eine Zeile pro Substanz).
type CompoundStructure struct {
	Base
	CompoundID      string   `json:"compound_id" gorm:"uniqueIndex;not null"`
	CID             string   `json:"cid" gorm:"column:cid"`
	Formula         string   `json:"formula,omitempty"`
	MolecularWeight *float64 `json:"molecular_weight,omitempty"`
	InChIKey        string   `json:"inchi_key,omitempty" gorm:"column:inchi_key"`
	SMILES          string   `json:"smiles,omitempty" gorm:"column:smiles;type:text"`
}

func (CompoundStructure) TableName() string {
	return "compound_structures"
}

// CompoundStudy ist eine Literaturstelle; eindeutig über (CompoundID, PMID).
type CompoundStudy struct {
	Base
	CompoundID      string `json:"compound_id" gorm:"uniqueIndex:idx_compound_study;not null"`
	PMID            string `json:"pmid" gorm:"column:pmid;uniqueIndex:idx_compound_study;not null"`
	Title           string `json:"title"`
	Journal         string `json:"journal,omitempty"`
	PublicationDate string `json:"publication_date,omitempty"`
	StudyType       string `json:"study_type,omitempty" gorm:"index"`
	Summary         string `json:"summary,omitempty" gorm:"type:text"`
	DOI             string `json:"doi,omitempty" gorm:"column:doi"`
	URL             string `json:"url,omitempty"`
	FullTextURL     string `json:"full_text_url,omitempty"`
}

func (CompoundStudy) TableName() string {
	return "compound_studies"
}

// CompoundATC ist eine ATC-Klasse der Substanz.
type CompoundATC struct {
	Base
	CompoundID string `json:"compound_id" gorm:"index;not null"`
	Code       string `json:"atc_code" gorm:"column:atc_code"`
	Name       string `json:"atc_name,omitempty" gorm:"column:atc_name"`
	Level      int    `json:"level"`
}

func (CompoundATC) TableName() string {
	return "compound_atc"
}

// CompoundTrial ist eine klinische Studie aus ClinicalTrials.gov.
type CompoundTrial struct {
	Base
	CompoundID string `json:"compound_id" gorm:"index;not null"`
	NCTID      string `json:"nct_id" gorm:"column:nct_id"`
	Title      string `json:"title,omitempty"`
	Phase      string `json:"phase,omitempty"`
	Status     string `json:"status,omitempty"`
	Conditions string `json:"conditions,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
}

func (CompoundTrial) TableName() string {
	return "compound_trials"
}

// CompoundProduct ist ein Fertigarzneimittel aus dem NDC-Verzeichnis.
type CompoundProduct struct {
	Base
	CompoundID        string `json:"compound_id" gorm:"index;not null"`
	ProductNDC        string `json:"product_ndc" gorm:"column:product_ndc"`
	DosageForm        string `json:"dosage_form,omitempty"`
	Strength          string `json:"strength,omitempty"`
	Manufacturer      string `json:"manufacturer,omitempty"`
	BrandName         string `json:"brand_name,omitempty"`
	GenericName       string `json:"generic_name,omitempty"`
	Route             string `json:"route,omitempty"`
	ApprovalStatus    string `json:"approval_status,omitempty"`
	ApplicationNumber string `json:"application_number,omitempty"`
}

func (CompoundProduct) TableName() string {
	return "compound_products"
}
