package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Pharmacokinetics ist das strukturierte PK-Profil einer Karte. nil heißt "nicht gefunden".
type Pharmacokinetics struct {
	HalfLifeHours          *float64       `json:"half_life_hours"`
	HalfLifeNote           *string        `json:"half_life_note"`
	BioavailabilityPercent *float64       `json:"bioavailability_percent"`
	Cmax                   *string        `json:"cmax"`
	TmaxHours              *float64       `json:"tmax_hours"`
	AUC                    *string        `json:"auc"`
	VolumeOfDistribution   *string        `json:"volume_of_distribution"`
	Clearance              *string        `json:"clearance"`
	Metabolism             *string        `json:"metabolism"`
	RouteOfElimination     *string        `json:"route_of_elimination"`
	ProteinBindingPercent  *float64       `json:"protein_binding_percent"`
	BloodBrainBarrier      *string        `json:"blood_brain_barrier"`
	FoodEffect             *string        `json:"food_effect"`
	Other                  map[string]any `json:"other,omitempty"`
}

// IsEmpty meldet, ob kein einziges Feld gesetzt ist.
func (p Pharmacokinetics) IsEmpty() bool {
	return p.HalfLifeHours == nil && p.HalfLifeNote == nil && p.BioavailabilityPercent == nil &&
		p.Cmax == nil && p.TmaxHours == nil && p.AUC == nil && p.VolumeOfDistribution == nil &&
		p.Clearance == nil && p.Metabolism == nil && p.RouteOfElimination == nil &&
		p.ProteinBindingPercent == nil && p.BloodBrainBarrier == nil && p.FoodEffect == nil &&
		len(p.Other) == 0
}

var (
	halfLifeRegex        = regexp.MustCompile(`(?i)(?:\b(terminal|effective|apparent)\s+)?(?:elimination\s+)?(?:half[- ]?life|t\s*½)[^0-9]{0,40}?(\d+(?:\.\d+)?)\s*(?:to\s*\d+(?:\.\d+)?\s*)?(hours?|hrs?|h|days?|d)\b`)
	bioavailabilityRegex = regexp.MustCompile(`(?i)bioavailability[^0-9%]{0,40}?(\d+(?:\.\d+)?)\s*%`)
	tmaxRegex            = regexp.MustCompile(`(?i)(?:\bt\s?max\b|peak plasma concentrations?)[^0-9]{0,60}?(\d+(?:\.\d+)?)\s*(?:to\s*\d+(?:\.\d+)?\s*)?(?:hours?|hrs?|h)\b`)
	cypRegex             = regexp.MustCompile(`(?i)\bCYP\s*\d+[a-z]*\d*`)
	unmetabolizedRegex   = regexp.MustCompile(`(?i)\bnot (?:be )?metabolized|does not undergo hepatic metabolism|excreted unchanged`)
	proteolyticRegex     = regexp.MustCompile(`(?i)\bproteolytic\b`)
	hepaticRegex         = regexp.MustCompile(`(?i)\bhepatic|metabolized in the liver\b`)
	bbbRegex             = regexp.MustCompile(`(?i)blood[- ]?brain|\bBBB\b|CNS\s*penetr`)
	bbbQualifierRegex    = regexp.MustCompile(`(?i)\b(?:does not cross|not cross|crosses|minimal|limited|poor|low|readily)\b`)
	vdRegex              = regexp.MustCompile(`(?i)(?:volume of distribution|\bVd(?:ss)?\b)[^0-9]{0,40}?(\d+(?:\.\d+)?(?:\s*(?:L/kg|mL/kg|L))?)`)
	clearanceRegex       = regexp.MustCompile(`(?i)(?:clearance|\bCL\b)[^0-9]{0,40}?(\d+(?:\.\d+)?(?:\s*(?:mL/min(?:/kg)?|L/h(?:r)?(?:/kg)?))?)`)
	proteinBindingRegex  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*(?:protein[- ])?bound|protein binding[^0-9]{0,40}?(\d+(?:\.\d+)?)\s*%`)
	eliminationRegex     = regexp.MustCompile(`(?i)(?:excreted|eliminated)\s+(?:\w+\s+){0,3}?(?:in|into|via|through)\s+(?:the\s+)?(urine|feces|faeces|bile)`)
	sentenceSplitRegex   = regexp.MustCompile(`[.;]\s+`)
)

// ExtractPharmacokinetics ist die Regex-Heuristik über Label-Text. Sie rät nie: Felder ohne
// Treffer bleiben nil.
func ExtractPharmacokinetics(text string) Pharmacokinetics {
	var pk Pharmacokinetics
	full := anyWhitespace.ReplaceAllString(text, " ")
	if strings.TrimSpace(full) == "" {
		return pk
	}

	if m := halfLifeRegex.FindStringSubmatch(full); m != nil {
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			if strings.HasPrefix(strings.ToLower(m[3]), "d") {
				v *= 24
			}
			pk.HalfLifeHours = &v
		}
		if m[1] != "" {
			note := strings.ToLower(m[1])
			pk.HalfLifeNote = &note
		}
	}

	if m := bioavailabilityRegex.FindStringSubmatch(full); m != nil {
		pk.BioavailabilityPercent = parseFloatPtr(m[1])
	}
	if m := tmaxRegex.FindStringSubmatch(full); m != nil {
		pk.TmaxHours = parseFloatPtr(m[1])
	}

	switch {
	case cypRegex.MatchString(full):
		pk.Metabolism = strPtr(strings.ToUpper(strings.ReplaceAll(cypRegex.FindString(full), " ", "")))
	case unmetabolizedRegex.MatchString(full):
		pk.Metabolism = strPtr("not metabolized")
	case proteolyticRegex.MatchString(full):
		pk.Metabolism = strPtr("proteolytic degradation")
	case hepaticRegex.MatchString(full):
		pk.Metabolism = strPtr("hepatic")
	}

	if bbbRegex.MatchString(full) {
		pk.BloodBrainBarrier = strPtr(bloodBrainQualifier(full))
	}

	if m := vdRegex.FindStringSubmatch(full); m != nil {
		pk.VolumeOfDistribution = strPtr(strings.TrimSpace(m[1]))
	}
	if m := clearanceRegex.FindStringSubmatch(full); m != nil {
		pk.Clearance = strPtr(strings.TrimSpace(m[1]))
	}
	if m := proteinBindingRegex.FindStringSubmatch(full); m != nil {
		v := m[1]
		if v == "" {
			v = m[2]
		}
		pk.ProteinBindingPercent = parseFloatPtr(v)
	}
	if m := eliminationRegex.FindStringSubmatch(full); m != nil {
		switch strings.ToLower(m[1]) {
		case "urine":
			pk.RouteOfElimination = strPtr("renal")
		default:
			pk.RouteOfElimination = strPtr("fecal/biliary")
		}
	}
	return pk
}

// bloodBrainQualifier liest den Qualifier nur aus dem Satz, der die Blut-Hirn-Schranke nennt.
func bloodBrainQualifier(full string) string {
	for _, sentence := range sentenceSplitRegex.Split(full, -1) {
		if !bbbRegex.MatchString(sentence) {
			continue
		}
		q := strings.ToLower(bbbQualifierRegex.FindString(sentence))
		switch q {
		case "":
			continue
		case "does not cross", "not cross":
			return "no"
		case "crosses", "readily":
			return "yes"
		default:
			return q
		}
	}
	return "unknown"
}

// MergePharmacokinetics legt die nicht-nil Felder von rich über base. Ein in base gefundener
// Wert bleibt erhalten, wenn rich ihn nicht liefert.
func MergePharmacokinetics(base, rich Pharmacokinetics) Pharmacokinetics {
	out := base
	out.HalfLifeHours = pickFloat(rich.HalfLifeHours, base.HalfLifeHours)
	out.HalfLifeNote = pickString(rich.HalfLifeNote, base.HalfLifeNote)
	out.BioavailabilityPercent = pickFloat(rich.BioavailabilityPercent, base.BioavailabilityPercent)
	out.Cmax = pickString(rich.Cmax, base.Cmax)
	out.TmaxHours = pickFloat(rich.TmaxHours, base.TmaxHours)
	out.AUC = pickString(rich.AUC, base.AUC)
	out.VolumeOfDistribution = pickString(rich.VolumeOfDistribution, base.VolumeOfDistribution)
	out.Clearance = pickString(rich.Clearance, base.Clearance)
	out.Metabolism = pickString(rich.Metabolism, base.Metabolism)
	out.RouteOfElimination = pickString(rich.RouteOfElimination, base.RouteOfElimination)
	out.ProteinBindingPercent = pickFloat(rich.ProteinBindingPercent, base.ProteinBindingPercent)
	out.BloodBrainBarrier = pickString(rich.BloodBrainBarrier, base.BloodBrainBarrier)
	out.FoodEffect = pickString(rich.FoodEffect, base.FoodEffect)

	if len(base.Other) > 0 || len(rich.Other) > 0 {
		out.Other = make(map[string]any, len(base.Other)+len(rich.Other))
		for k, v := range base.Other {
			out.Other[k] = v
		}
		for k, v := range rich.Other {
			if v != nil {
				out.Other[k] = v
			}
		}
	}
	return out
}

func pickFloat(rich, base *float64) *float64 {
	if rich != nil {
		return rich
	}
	return base
}

func pickString(rich, base *string) *string {
	if rich != nil {
		return rich
	}
	return base
}

func parseFloatPtr(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func strPtr(s string) *string {
	return &s
}
