package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	maxIndications       = 10
	maxContraindications = 15
	maxClinicalItemLen   = 200
)

// ClinicalProfile ist das klinische Profil einer Karte.
type ClinicalProfile struct {
	ApprovedIndications         []string `json:"approved_indications"`
	Contraindications           []string `json:"contraindications"`
	BoxedWarning                bool     `json:"boxed_warning"`
	REMS                        bool     `json:"rems"`
	ControlledSubstanceSchedule string   `json:"controlled_substance_schedule,omitempty"`
}

var (
	indicatedRegex   = regexp.MustCompile(`(?i)\bindicated\s+(?:as\s+[^.;]*?\s+)?(?:for|in)\s+(?:the\s+)?(?:(?:treatment|management|prevention|relief|reduction)\s+of\s+)?([^.;]+)`)
	contraRegex      = regexp.MustCompile(`(?i)\bcontraindicated\s+(?:in|with|for)\s+(?:patients\s+(?:with|who)\s*)?(.*)`)
	bulletSplitRegex = regexp.MustCompile(`\s*(?:\n|•|·|▪)\s*`)
	listPrefixRegex  = regexp.MustCompile(`^\s*(?:\(?\d+(?:\.\d+)*[.)]?|[-*–])\s+`)
	headingRegex     = regexp.MustCompile(`^[\d.\s]*[A-Z][A-Z &/-]+$`)
)

// Indications extrahiert zugelassene Indikationen aus dem Indikationsabschnitt.
func Indications(text string) []string {
	text = NormalizeLabelText(text)
	if text == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		s = cleanClinicalItem(s)
		key := NormalizeName(s)
		if len(s) < 3 || seen[key] || len(out) >= maxIndications {
			return
		}
		seen[key] = true
		out = append(out, s)
	}

	for _, m := range indicatedRegex.FindAllStringSubmatch(anyWhitespace.ReplaceAllString(text, " "), -1) {
		add(m[1])
	}
	if len(out) > 0 {
		return out
	}
	for _, line := range bulletSplitRegex.Split(text, -1) {
		if headingRegex.MatchString(strings.TrimSpace(line)) {
			continue
		}
		add(listPrefixRegex.ReplaceAllString(line, ""))
	}
	return out
}

// Contraindications extrahiert Kontraindikationen, eine pro Aufzählungspunkt oder Satz.
func Contraindications(text string) []string {
	text = NormalizeLabelText(text)
	if text == "" {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	for _, line := range bulletSplitRegex.Split(text, -1) {
		line = strings.TrimSpace(listPrefixRegex.ReplaceAllString(line, ""))
		if line == "" || headingRegex.MatchString(line) {
			continue
		}
		for _, sentence := range sentenceSplitRegex.Split(line, -1) {
			item := sentence
			if m := contraRegex.FindStringSubmatch(sentence); m != nil {
				item = m[1]
			}
			item = cleanClinicalItem(item)
			key := NormalizeName(item)
			if len(item) < 3 || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, item)
			if len(out) >= maxContraindications {
				return out
			}
		}
	}
	return out
}

func cleanClinicalItem(s string) string {
	s = strings.TrimSpace(anyWhitespace.ReplaceAllString(s, " "))
	s = strings.TrimRight(s, ".:;, ")
	return Truncate(s, maxClinicalItemLen)
}

// adverseTerms ist die feste Liste häufiger Nebenwirkungen, nach denen gesucht wird.
var adverseTerms = []string{
	"abdominal pain", "anorexia", "arthralgia", "asthenia", "back pain", "constipation", "cough",
	"diarrhea", "dizziness", "dry mouth", "dyspepsia", "edema", "fatigue", "flatulence", "headache",
	"hypoglycemia", "hypotension", "insomnia", "myalgia", "nausea", "pruritus", "rash",
	"somnolence", "tremor", "upper respiratory tract infection", "vomiting", "weight gain",
}

var (
	adverseTermRegexes = buildTermRegexes(adverseTerms)
	percentRegex       = regexp.MustCompile(`^[^a-zA-Z%]{0,5}?(\d+(?:\.\d+)?)\s*%`)
	frequencyWordRegex = regexp.MustCompile(`(?i)\b(very common|common|uncommon|infrequent|frequent|rare|very rare)\b`)
)

func buildTermRegexes(terms []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(terms))
	for _, t := range terms {
		out[t] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `s?\b`)
	}
	return out
}

// AdverseFrequency ordnet jeder im Text gefundenen Nebenwirkung eine Häufigkeitsklasse zu.
// Eine Prozentangabe direkt hinter dem Begriff geht vor Häufigkeitswörtern im Umfeld.
func AdverseFrequency(text string) map[string]string {
	full := anyWhitespace.ReplaceAllString(text, " ")
	if strings.TrimSpace(full) == "" {
		return nil
	}
	out := map[string]string{}
	for _, term := range adverseTerms {
		loc := adverseTermRegexes[term].FindStringIndex(full)
		if loc == nil {
			continue
		}
		window := full[loc[1]:min(len(full), loc[1]+40)]
		if m := percentRegex.FindStringSubmatch(window); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				out[term] = frequencyBucket(v)
				continue
			}
		}
		around := full[max(0, loc[0]-60):min(len(full), loc[1]+60)]
		if w := frequencyWordRegex.FindString(around); w != "" {
			out[term] = strings.ToLower(w)
			continue
		}
		out[term] = "reported"
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func frequencyBucket(percent float64) string {
	switch {
	case percent >= 10:
		return "very common"
	case percent >= 1:
		return "common"
	case percent >= 0.1:
		return "uncommon"
	default:
		return "rare"
	}
}

// AdverseTerms liefert die Schlüssel einer Häufigkeitstabelle sortiert.
func AdverseTerms(freq map[string]string) []string {
	keys := make([]string, 0, len(freq))
	for k := range freq {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
