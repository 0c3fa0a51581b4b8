package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"pharma-deck/providers"
)

func TestFormatReference(t *testing.T) {
	assert.Equal(t, "UKPDS 34. Lancet (1998). doi:10.1016/S0140-6736(98)07037-8 pmid:9742977",
		FormatReference(providers.Study{
			Title:           "UKPDS 34.",
			Journal:         "Lancet",
			PublicationDate: "1998-09-12",
			DOI:             "10.1016/S0140-6736(98)07037-8",
			PMID:            "9742977",
		}))
	assert.Equal(t, "Untitled (n.d.).", FormatReference(providers.Study{}))
}

func TestReferences_StrongestEvidenceFirst(t *testing.T) {
	studies := []providers.Study{
		{Title: "Cohort", StudyType: "observational"},
		{Title: "Case", StudyType: "other"},
		{Title: "RCT A", StudyType: "randomized_controlled_trial"},
		{Title: "Pooled", StudyType: "meta_analysis"},
		{Title: "RCT B", StudyType: "randomized_controlled_trial"},
	}

	refs := References(studies, 4)
	assert.Equal(t, []string{"Pooled (n.d.).", "RCT A (n.d.).", "RCT B (n.d.).", "Cohort (n.d.)."}, refs)
	assert.Equal(t, "Cohort", studies[0].Title)
	assert.Empty(t, References(nil, 10))
}
