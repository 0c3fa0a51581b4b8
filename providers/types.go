// Package providers definiert die neutralen Ergebnis-Typen, in die jede Quelle ihre
// eigenen Payloads übersetzt. Orchestrator und Builder kennen nur diese Typen.
package providers

// Concept ist ein RxNorm-Konzept mit Term-Typ (z.B. SCD, SBD).
type Concept struct {
	RxCUI string
	Name  string
	TTY   string
}

// Structure enthält die Chemie-Identifikatoren aus PubChem.
type Structure struct {
	CID             string
	Formula         string
	MolecularWeight *float64
	InChIKey        string
	SMILES          string
	// Profile enthält nur die tatsächlich gefundenen Felder.
	Profile map[string]any
}

// LabelSection ist ein roher Abschnitt eines Beipackzettels.
type LabelSection struct {
	Section   string
	Text      string
	SourceURL string
}

// Regulatory fasst Zulassungsstatus und Label-Abschnitte zusammen.
type Regulatory struct {
	ApprovalStatus              string
	ApprovalType                string
	ApprovalDate                string
	ApplicationNumber           string
	SponsorName                 string
	LabelURL                    string
	SetID                       string
	SourceVersion               string
	BoxedWarning                bool
	REMS                        bool
	ControlledSubstanceSchedule string
	Sections                    []LabelSection
}

// Section liefert den Text eines Abschnitts oder "".
func (r Regulatory) Section(key string) string {
	for _, s := range r.Sections {
		if s.Section == key {
			return s.Text
		}
	}
	return ""
}

// Study ist ein Literatur-Treffer.
type Study struct {
	PMID            string
	Title           string
	Journal         string
	PublicationDate string
	StudyType       string
	Abstract        string
	DOI             string
	URL             string
	FullTextURL     string
}

// Target ist ein Protein-Target aus ChEMBL.
type Target struct {
	ChEMBLID   string
	UniProtID  string
	Name       string
	GeneSymbol string
	Organism   string
	Aliases    []string
	// Type ist target, enzyme, transporter oder carrier.
	Type string
}

// Key ist die UniProt-Accession, sonst die ChEMBL-ID.
func (t Target) Key() string {
	if t.UniProtID != "" {
		return t.UniProtID
	}
	return t.ChEMBLID
}

// TargetLink verbindet eine Substanz mit einem Target.
type TargetLink struct {
	Target Target
	// Action ist agonist, antagonist, inhibitor, substrate oder "".
	Action    string
	SourceURL string
}

// ATCClass ist eine ATC-Klassifikation mit aus der Codelänge abgeleiteter Ebene.
type ATCClass struct {
	Code  string
	Name  string
	Level int
}

// Trial ist eine Studie aus ClinicalTrials.gov.
type Trial struct {
	NCTID      string
	Title      string
	Phase      string
	Status     string
	Conditions string
	SourceURL  string
}

// Product ist ein Fertigarzneimittel aus dem NDC-Verzeichnis.
type Product struct {
	ProductNDC        string
	DosageForm        string
	Strength          string
	Manufacturer      string
	BrandName         string
	GenericName       string
	Route             string
	ApprovalStatus    string
	ApplicationNumber string
}
