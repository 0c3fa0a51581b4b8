package services

import (
	"fmt"
	"sort"
	"strings"

	"pharma-deck/providers"
)

// evidenceRank ordnet Studientypen nach Evidenzstärke; unbekannte Typen kommen zuletzt.
var evidenceRank = map[string]int{
	"meta_analysis":               0,
	"systematic_review":           1,
	"randomized_controlled_trial": 2,
	"observational":               3,
}

func rankOf(studyType string) int {
	if r, ok := evidenceRank[studyType]; ok {
		return r
	}
	return len(evidenceRank)
}

// References liefert höchstens n Literaturangaben, stärkste Evidenz zuerst. Innerhalb eines
// Typs bleibt die Reihenfolge der Quelle erhalten.
func References(studies []providers.Study, n int) []string {
	ordered := make([]providers.Study, len(studies))
	copy(ordered, studies)
	sort.SliceStable(ordered, func(i, j int) bool {
		return rankOf(ordered[i].StudyType) < rankOf(ordered[j].StudyType)
	})

	refs := make([]string, 0, min(len(ordered), n))
	for _, s := range ordered[:min(len(ordered), n)] {
		refs = append(refs, FormatReference(s))
	}
	return refs
}

// FormatReference rendert eine Studie als kompakte Literaturangabe.
func FormatReference(s providers.Study) string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = "Untitled"
	}
	year := "n.d."
	if len(s.PublicationDate) >= 4 {
		year = s.PublicationDate[:4]
	}

	var tail []string
	if s.DOI != "" {
		tail = append(tail, "doi:"+s.DOI)
	}
	if s.PMID != "" {
		tail = append(tail, "pmid:"+s.PMID)
	}
	tailStr := strings.Join(tail, " ")
	if tailStr != "" {
		tailStr = " " + tailStr
	}

	if s.Journal != "" {
		return fmt.Sprintf("%s. %s (%s).%s", strings.TrimSuffix(title, "."), s.Journal, year, tailStr)
	}
	return fmt.Sprintf("%s (%s).%s", strings.TrimSuffix(title, "."), year, tailStr)
}
