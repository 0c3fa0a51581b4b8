package extract

import (
	"regexp"
	"strings"
)

type classRule struct {
	class   string
	pattern *regexp.Regexp
}

// classRules werden in dieser Reihenfolge geprüft; der erste Treffer gewinnt.
var classRules = []classRule{
	{"GLP-1 receptor agonist", regexp.MustCompile(`(?i)glp-1|glucagon-like peptide`)},
	{"biguanide", regexp.MustCompile(`(?i)biguanide`)},
	{"SGLT2 inhibitor", regexp.MustCompile(`(?i)sglt2|sodium-glucose co-?transporter`)},
	{"DPP-4 inhibitor", regexp.MustCompile(`(?i)dpp-4|dipeptidyl peptidase`)},
	{"sulfonylurea", regexp.MustCompile(`(?i)sulfonylurea`)},
	{"statin", regexp.MustCompile(`(?i)hmg-coa reductase|\bstatins?\b`)},
	{"ACE inhibitor", regexp.MustCompile(`(?i)angiotensin[- ]converting enzyme`)},
	{"angiotensin receptor blocker", regexp.MustCompile(`(?i)angiotensin ii receptor|\bat1 receptor`)},
	{"beta blocker", regexp.MustCompile(`(?i)beta[- ]?adrenergic (?:receptor )?(?:blocking|antagonist)|beta[- ]blocker`)},
	{"calcium channel blocker", regexp.MustCompile(`(?i)calcium channel block|calcium ion influx`)},
	{"SSRI", regexp.MustCompile(`(?i)selective serotonin reuptake|\bssri\b`)},
	{"SNRI", regexp.MustCompile(`(?i)serotonin and norepinephrine reuptake|\bsnri\b`)},
	{"opioid agonist", regexp.MustCompile(`(?i)opioid agonist|mu[- ]opioid`)},
	{"benzodiazepine", regexp.MustCompile(`(?i)benzodiazepine`)},
	{"NSAID", regexp.MustCompile(`(?i)nonsteroidal anti-?inflammatory|cyclooxygenase|\bcox-[12]\b`)},
	{"proton pump inhibitor", regexp.MustCompile(`(?i)proton pump|h\+/k\+[- ]atpase`)},
	{"anticoagulant", regexp.MustCompile(`(?i)anticoagulant|factor xa|thrombin inhibitor|vitamin k antagonist`)},
	{"androgen", regexp.MustCompile(`(?i)\bandrogens?\b|testosterone`)},
	{"selective estrogen receptor modulator", regexp.MustCompile(`(?i)selective estrogen receptor modulator|\bserm\b`)},
	{"corticosteroid", regexp.MustCompile(`(?i)corticosteroid|glucocorticoid`)},
	{"antipsychotic", regexp.MustCompile(`(?i)antipsychotic|dopamine d2 receptor antagonist`)},
	{"antidepressant", regexp.MustCompile(`(?i)antidepressant`)},
	{"anticonvulsant", regexp.MustCompile(`(?i)anticonvulsant|antiepileptic`)},
	{"antihistamine", regexp.MustCompile(`(?i)histamine h1|antihistamine`)},
	{"antiviral", regexp.MustCompile(`(?i)antiviral|reverse transcriptase|protease inhibitor`)},
	{"antibiotic", regexp.MustCompile(`(?i)antibacterial|antibiotic`)},
	{"insulin", regexp.MustCompile(`(?i)\binsulin (?:analog|human|glargine|lispro|aspart)`)},
}

// PrimaryClass liefert die erste passende Wirkstoffklasse aus Mechanismus- und Indikationstext.
func PrimaryClass(texts ...string) string {
	joined := strings.Join(texts, "\n")
	if strings.TrimSpace(joined) == "" {
		return ""
	}
	for _, r := range classRules {
		if r.pattern.MatchString(joined) {
			return r.class
		}
	}
	return ""
}

// Molekültypen nach Molmasse.
const (
	MoleculeSmall    = "small_molecule"
	MoleculePeptide  = "peptide"
	MoleculeBiologic = "biologic"
	MoleculeUnknown  = "unknown"
)

// MoleculeType leitet den Molekültyp aus der Molmasse (Da) ab.
func MoleculeType(molecularWeight *float64) string {
	switch {
	case molecularWeight == nil || *molecularWeight <= 0:
		return MoleculeUnknown
	case *molecularWeight < 900:
		return MoleculeSmall
	case *molecularWeight < 5000:
		return MoleculePeptide
	default:
		return MoleculeBiologic
	}
}

var (
	metaAnalysisRegex  = regexp.MustCompile(`\bmeta[- ]?analysis|metaanalysis\b`)
	systematicRegex    = regexp.MustCompile(`\bsystematic review\b`)
	randomizedRegex    = regexp.MustCompile(`\brandomi[sz]ed|\brct\b|double[- ]blind|placebo[- ]controlled\b`)
	observationalRegex = regexp.MustCompile(`\bobservational|cohort|case[- ]control\b`)
)

// StudyType leitet den Studientyp aus Titel und Abstract ab, sonst "".
func StudyType(title, abstract string) string {
	t := strings.ToLower(title + " " + abstract)
	switch {
	case metaAnalysisRegex.MatchString(t):
		return "meta_analysis"
	case systematicRegex.MatchString(t):
		return "systematic_review"
	case randomizedRegex.MatchString(t):
		return "randomized_controlled_trial"
	case observationalRegex.MatchString(t):
		return "observational"
	default:
		return ""
	}
}

// Schweregrade von Interaktionen.
const (
	SeverityMajor    = "major"
	SeverityModerate = "moderate"
	SeverityMinor    = "minor"
	SeverityUnknown  = "unknown"
)

var (
	majorRegex    = regexp.MustCompile(`(?i)major|contraindicated`)
	moderateRegex = regexp.MustCompile(`(?i)moderate|caution|monitor`)
	minorRegex    = regexp.MustCompile(`(?i)minor`)
)

// InferSeverity ordnet einen Interaktionstext per Schlüsselwort einem Schweregrad zu.
func InferSeverity(text string) string {
	switch {
	case majorRegex.MatchString(text):
		return SeverityMajor
	case moderateRegex.MatchString(text):
		return SeverityModerate
	case minorRegex.MatchString(text):
		return SeverityMinor
	default:
		return SeverityUnknown
	}
}
