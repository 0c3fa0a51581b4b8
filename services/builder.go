package services

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"pharma-deck/extract"
	"pharma-deck/models"
	"pharma-deck/providers"
)

const (
	summaryLength     = 1200
	descriptionLength = 500
	maxReferences     = 10
)

// Enrichment sammelt alle Teilergebnisse eines Laufs. Übersprungene Quellen bleiben Skipped.
type Enrichment struct {
	RunID        string
	Compound     models.Compound
	Structure    providers.Result[providers.Structure]
	Regulatory   providers.Result[providers.Regulatory]
	Studies      providers.Result[[]providers.Study]
	Targets      providers.Result[[]providers.TargetLink]
	Classes      providers.Result[[]providers.ATCClass]
	Trials       providers.Result[[]providers.Trial]
	Products     providers.Result[[]providers.Product]
	Interactions InteractionReport
	// RichKinetics ist das Ergebnis der KI-Extraktion, nil ohne Extractor oder bei Fehler.
	RichKinetics *extract.Pharmacokinetics
}

// KineticsText liefert den Label-Text, aus dem die Pharmakokinetik gelesen wird.
func KineticsText(reg providers.Regulatory) string {
	return extract.JoinSections(reg.Sections, extract.KineticsTopic)
}

// LabelDescription liefert die gekürzte Beschreibung aus dem Label.
func LabelDescription(reg providers.Regulatory) string {
	return extract.Truncate(extract.NormalizeLabelText(reg.Section("description")), descriptionLength)
}

// BuildCard verdichtet alle Teilergebnisse zu einer neuen, noch nicht versionierten Card.
func BuildCard(e Enrichment) (*models.CompoundCard, error) {
	reg, hasReg := e.Regulatory.Get()
	structure, hasStructure := e.Structure.Get()
	studies := e.Studies.OrZero()
	targets := e.Targets.OrZero()
	classes := e.Classes.OrZero()
	trials := e.Trials.OrZero()
	products := e.Products.OrZero()

	sections := reg.Sections
	mechanism := extract.Summary(sections, extract.MechanismTopic, summaryLength)
	uses := extract.Summary(sections, extract.UsesTopic, summaryLength)
	safety := extract.Summary(sections, extract.SafetyTopic, summaryLength)

	classNames := make([]string, 0, len(classes))
	for _, c := range classes {
		classNames = append(classNames, c.Name)
	}
	primaryClass := extract.PrimaryClass(append(classNames, mechanism, uses)...)

	var molecularWeight *float64
	if hasStructure {
		molecularWeight = structure.MolecularWeight
	}
	moleculeType := extract.MoleculeType(molecularWeight)

	kinetics := extract.ExtractPharmacokinetics(KineticsText(reg))
	if e.RichKinetics != nil {
		kinetics = extract.MergePharmacokinetics(kinetics, *e.RichKinetics)
	}

	deck := extract.DeckInput{
		PrimaryClass:      primaryClass,
		MoleculeType:      moleculeType,
		BoxedWarning:      reg.BoxedWarning,
		REMS:              reg.REMS,
		Schedule:          reg.ControlledSubstanceSchedule,
		HalfLifeHours:     kinetics.HalfLifeHours,
		StudyCount:        len(studies),
		TrialCount:        len(trials),
		MajorInteractions: e.Interactions.Major,
	}

	description := e.Compound.Description
	if description == "" {
		description = LabelDescription(reg)
	}

	card := &models.CompoundCard{
		CompoundID:         e.Compound.ID,
		RunID:              e.RunID,
		Slug:               extract.Slug(e.Compound.CanonicalName),
		CanonicalName:      e.Compound.CanonicalName,
		RxCUI:              e.Compound.RxCUI,
		MoleculeType:       moleculeType,
		PrimaryClass:       primaryClass,
		ApprovalYear:       approvalYear(reg.ApprovalDate),
		MechanismSummary:   mechanism,
		UsesSummary:        uses,
		SafetySummary:      safety,
		EvidenceSummary:    evidenceSummary(studies, len(trials)),
		InteractionSummary: e.Interactions.Summary(),
		Description:        description,
		StudyCount:         len(studies),
		TrialCount:         len(trials),
		ProductCount:       len(products),
		TargetCount:        len(targets),
		InteractionsCount:  e.Interactions.Total(),
		Published:          mechanism != "" || uses != "" || safety != "",
	}
	if hasReg {
		card.RegulatorySummary = regulatorySummary(reg)
	}

	var err error
	set := func(dst *datatypes.JSON, v any) {
		if err != nil {
			return
		}
		*dst, err = toJSON(v)
	}
	if !kinetics.IsEmpty() {
		set(&card.Pharmacokinetics, kinetics)
	}
	if pd := pharmacodynamics(mechanism, targets); len(pd) > 0 {
		set(&card.Pharmacodynamics, pd)
	}
	if hasReg {
		set(&card.ClinicalProfile, extract.ClinicalProfile{
			ApprovedIndications:         extract.Indications(extract.FindSection(sections, extract.UsesTopic)),
			Contraindications:           extract.Contraindications(extract.FindSection(sections, extract.ContraindicationTopic)),
			BoxedWarning:                reg.BoxedWarning,
			REMS:                        reg.REMS,
			ControlledSubstanceSchedule: reg.ControlledSubstanceSchedule,
		})
	}
	if hasStructure && len(structure.Profile) > 0 {
		chem := map[string]any{"pubchem_cid": structure.CID}
		for k, v := range structure.Profile {
			chem[k] = v
		}
		set(&card.ChemistryProfile, chem)
	}
	if freq := extract.AdverseFrequency(extract.FindSection(sections, extract.AdverseTopic)); freq != nil {
		set(&card.AdverseEffectFrequency, freq)
	}
	set(&card.DeckStats, extract.DeckStats(deck))
	if tags := extract.DeckTags(deck); len(tags) > 0 {
		set(&card.DeckTags, tags)
	}
	set(&card.Classification, classification(primaryClass, moleculeType, classes))
	set(&card.SourceLinks, sourceLinks(e.Compound.RxCUI, reg, structure, targets))
	if refs := References(studies, maxReferences); len(refs) > 0 {
		set(&card.References, refs)
	}
	if err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return card, nil
}

func toJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// approvalYear liest das Jahr aus einem Datum der Form YYYY-MM-DD.
func approvalYear(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y < 1900 {
		return nil
	}
	return &y
}

func regulatorySummary(reg providers.Regulatory) string {
	status := reg.ApprovalStatus
	if status == "" {
		status = "unknown"
	}
	var b strings.Builder
	b.WriteString("FDA status: " + status)
	if reg.ApprovalType != "" {
		b.WriteString(" (" + reg.ApprovalType + ")")
	}
	if reg.ApplicationNumber != "" {
		b.WriteString(", application " + reg.ApplicationNumber)
	}
	if reg.ApprovalDate != "" {
		b.WriteString(", first approved " + reg.ApprovalDate)
	}
	if reg.SponsorName != "" {
		b.WriteString(", sponsor " + reg.SponsorName)
	}
	b.WriteString(".")
	if reg.BoxedWarning {
		b.WriteString(" Carries a boxed warning.")
	}
	if reg.REMS {
		b.WriteString(" Subject to a REMS program.")
	}
	if reg.ControlledSubstanceSchedule != "" {
		b.WriteString(" Controlled substance, schedule " + reg.ControlledSubstanceSchedule + ".")
	}
	return b.String()
}

var studyTypeLabels = []struct{ key, label string }{
	{"meta_analysis", "meta-analysis"},
	{"systematic_review", "systematic review"},
	{"randomized_controlled_trial", "randomized controlled trial"},
	{"observational", "observational"},
}

func evidenceSummary(studies []providers.Study, trialCount int) string {
	if len(studies) == 0 && trialCount == 0 {
		return ""
	}
	var b strings.Builder
	if len(studies) == 1 {
		b.WriteString("1 clinical study")
	} else {
		fmt.Fprintf(&b, "%d clinical studies", len(studies))
	}

	byType := make(map[string]int)
	for _, s := range studies {
		byType[s.StudyType]++
	}
	var parts []string
	for _, t := range studyTypeLabels {
		if n := byType[t.key]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", t.label, n))
		}
	}
	if len(parts) > 0 {
		b.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}

	switch trialCount {
	case 0:
	case 1:
		b.WriteString("; 1 registered trial")
	default:
		fmt.Fprintf(&b, "; %d registered trials", trialCount)
	}
	b.WriteString(".")
	return b.String()
}

func pharmacodynamics(mechanism string, targets []providers.TargetLink) map[string]any {
	pd := make(map[string]any)
	if mechanism != "" {
		pd["mechanism_of_action"] = mechanism
	}
	if len(targets) == 0 {
		return pd
	}
	list := make([]map[string]string, 0, len(targets))
	for _, t := range targets {
		entry := map[string]string{"name": t.Target.Name, "type": t.Target.Type}
		if t.Target.GeneSymbol != "" {
			entry["gene_symbol"] = t.Target.GeneSymbol
		}
		if t.Action != "" {
			entry["action"] = t.Action
		}
		list = append(list, entry)
	}
	pd["targets"] = list
	return pd
}

func classification(primaryClass, moleculeType string, classes []providers.ATCClass) map[string]any {
	atc := make([]map[string]any, 0, len(classes))
	for _, c := range classes {
		atc = append(atc, map[string]any{"code": c.Code, "name": c.Name, "level": c.Level})
	}
	out := map[string]any{"molecule_type": moleculeType, "atc": atc}
	if primaryClass != "" {
		out["primary_class"] = primaryClass
	}
	return out
}

func sourceLinks(rxcui string, reg providers.Regulatory, structure providers.Structure, targets []providers.TargetLink) []string {
	links := []string{"https://mor.nlm.nih.gov/RxNav/search?searchBy=RXCUI&searchTerm=" + rxcui}
	add := func(u string) {
		if u != "" && !slices.Contains(links, u) {
			links = append(links, u)
		}
	}
	add(reg.LabelURL)
	if structure.CID != "" {
		add("https://pubchem.ncbi.nlm.nih.gov/compound/" + structure.CID)
	}
	for _, t := range targets {
		add(t.SourceURL)
	}
	return links
}
