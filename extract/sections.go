package extract

import (
	"regexp"
	"strings"

	"pharma-deck/providers"
)

// Themen-Regexe für die Auswahl des ersten passenden Label-Abschnitts.
var (
	MechanismTopic        = regexp.MustCompile(`(?i)mechanism|pharmacology|clinical pharmacology`)
	UsesTopic             = regexp.MustCompile(`(?i)indication|use|disease`)
	SafetyTopic           = regexp.MustCompile(`(?i)warning|precaution|adverse|contraindication`)
	InteractionTopic      = regexp.MustCompile(`(?i)interaction`)
	ContraindicationTopic = regexp.MustCompile(`(?i)contraindication`)
	AdverseTopic          = regexp.MustCompile(`(?i)adverse`)
	KineticsTopic         = regexp.MustCompile(`(?i)pharmacokinetic|clinical_pharmacology`)
)

// Taxonomie der Label-Snippets.
const (
	SectionDescription      = "description"
	SectionIndication       = "indication"
	SectionWarning          = "warning"
	SectionContraindication = "contraindication"
	SectionAdverseReaction  = "adverse_reaction"
	SectionMechanism        = "mechanism"
)

// sectionTaxonomy ordnet openFDA-Abschnittsnamen der festen Taxonomie zu.
var sectionTaxonomy = map[string]string{
	"description":           SectionDescription,
	"indications_and_usage": SectionIndication,
	"boxed_warning":         SectionWarning,
	"warnings":              SectionWarning,
	"warnings_and_cautions": SectionWarning,
	"precautions":           SectionWarning,
	"contraindications":     SectionContraindication,
	"adverse_reactions":     SectionAdverseReaction,
	"mechanism_of_action":   SectionMechanism,
	"clinical_pharmacology": SectionMechanism,
}

// SectionType liefert die Taxonomie-Klasse eines rohen Abschnittsnamens.
func SectionType(section string) (string, bool) {
	t, ok := sectionTaxonomy[strings.ToLower(strings.TrimSpace(section))]
	return t, ok
}

// FindSection liefert den Text des ersten Abschnitts, dessen Name auf topic passt.
func FindSection(sections []providers.LabelSection, topic *regexp.Regexp) string {
	for _, s := range sections {
		if topic.MatchString(s.Section) {
			return s.Text
		}
	}
	return ""
}

// Summary wählt den ersten passenden Abschnitt, normalisiert ihn und kürzt auf n Zeichen.
func Summary(sections []providers.LabelSection, topic *regexp.Regexp, n int) string {
	text := FindSection(sections, topic)
	if text == "" {
		return ""
	}
	return Truncate(NormalizeLabelText(text), n)
}

// JoinSections verbindet alle Abschnitte, deren Name auf topic passt.
func JoinSections(sections []providers.LabelSection, topic *regexp.Regexp) string {
	var parts []string
	for _, s := range sections {
		if topic.MatchString(s.Section) {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
