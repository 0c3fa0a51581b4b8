package extract

import "strings"

// DeckInput bündelt die Felder, aus denen Deck-Werte und Tags berechnet werden.
type DeckInput struct {
	PrimaryClass      string
	MoleculeType      string
	BoxedWarning      bool
	REMS              bool
	Schedule          string
	HalfLifeHours     *float64
	StudyCount        int
	TrialCount        int
	MajorInteractions int
}

// classPower: Schlüsselwort in der Wirkstoffklasse -> Basiswert. Erster Treffer gewinnt.
var classPower = []struct {
	keyword string
	power   int
}{
	{"opioid", 85},
	{"anticoagulant", 75},
	{"antipsychotic", 70},
	{"agonist", 70},
	{"antagonist", 65},
	{"benzodiazepine", 65},
	{"inhibitor", 60},
	{"blocker", 60},
	{"corticosteroid", 60},
	{"antibiotic", 55},
	{"antiviral", 55},
	{"statin", 55},
	{"biguanide", 50},
	{"antihistamine", 35},
}

const defaultPower = 50

// DeckStats berechnet die kleine heuristische Wertetabelle einer Karte (0..100).
func DeckStats(in DeckInput) map[string]int {
	power := defaultPower
	class := strings.ToLower(in.PrimaryClass)
	for _, p := range classPower {
		if class != "" && strings.Contains(class, p.keyword) {
			power = p.power
			break
		}
	}

	toxicity := 10 + 10*min(in.MajorInteractions, 3)
	if in.BoxedWarning {
		toxicity += 40
	}
	if in.REMS {
		toxicity += 15
	}

	rarity := 20
	if in.Schedule != "" {
		rarity += 30
	}
	if in.REMS {
		rarity += 30
	}
	if in.StudyCount < 3 {
		rarity += 20
	}

	return map[string]int{
		"power_score":    clampScore(power),
		"speed_score":    speedScore(in.HalfLifeHours),
		"toxicity_score": clampScore(toxicity),
		"evidence_score": clampScore(in.StudyCount*5 + in.TrialCount*2),
		"rarity_score":   clampScore(rarity),
	}
}

func speedScore(halfLife *float64) int {
	switch {
	case halfLife == nil:
		return 50
	case *halfLife < 4:
		return 85
	case *halfLife < 12:
		return 70
	case *halfLife < 24:
		return 55
	case *halfLife < 72:
		return 40
	default:
		return 25
	}
}

func clampScore(v int) int {
	return max(0, min(100, v))
}

// DeckTags liefert die Klassifikations-Tags einer Karte in fester Reihenfolge.
func DeckTags(in DeckInput) []string {
	var tags []string
	if in.PrimaryClass != "" {
		tags = append(tags, Slug(in.PrimaryClass))
	}
	if in.MoleculeType != "" && in.MoleculeType != MoleculeUnknown {
		tags = append(tags, strings.ReplaceAll(in.MoleculeType, "_", "-"))
	}
	if in.BoxedWarning {
		tags = append(tags, "boxed-warning")
	}
	if in.REMS {
		tags = append(tags, "rems")
	}
	if in.Schedule != "" {
		tags = append(tags, "controlled-substance", "schedule-"+strings.ToLower(in.Schedule))
	}
	if in.StudyCount >= 10 {
		tags = append(tags, "well-studied")
	}
	if in.MajorInteractions >= 3 {
		tags = append(tags, "interaction-heavy")
	}
	return tags
}
